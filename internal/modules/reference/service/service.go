package reference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"caseflow.dev/caseflowlearn/internal/entity"
	"caseflow.dev/caseflowlearn/internal/modules/reference/dto"
	"caseflow.dev/caseflowlearn/internal/modules/reference/repository"
	"caseflow.dev/caseflowlearn/pkg/apperror"
	"caseflow.dev/caseflowlearn/pkg/sanitize"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	keyUniversities = "ref:universities"
	keyTopics       = "ref:topics"
)

func departmentsKey(universityID uuid.UUID) string {
	return fmt.Sprintf("ref:departments:%s", universityID)
}

type ReferenceService interface {
	ListUniversities(ctx context.Context) ([]entity.University, error)
	GetUniversity(ctx context.Context, id uuid.UUID) (*entity.University, error)
	CreateUniversity(ctx context.Context, req dto.CreateUniversityRequest) (*entity.University, error)

	// ListDepartments returns only the departments of the given university.
	ListDepartments(ctx context.Context, universityID uuid.UUID) ([]entity.Department, error)
	GetDepartment(ctx context.Context, id uuid.UUID) (*entity.Department, error)
	CreateDepartment(ctx context.Context, universityID uuid.UUID, req dto.CreateDepartmentRequest) (*entity.Department, error)

	ListTopics(ctx context.Context) ([]entity.Topic, error)
	GetTopic(ctx context.Context, id uuid.UUID) (*entity.Topic, error)
	// FindTopics returns the topics that exist among ids.
	FindTopics(ctx context.Context, ids []uuid.UUID) ([]entity.Topic, error)
	CreateTopic(ctx context.Context, req dto.CreateTopicRequest) (*entity.Topic, error)
	DeleteTopic(ctx context.Context, id uuid.UUID) error
}

type referenceService struct {
	repo        repository.ReferenceRepository
	redisClient *redis.Client
	cacheTTL    time.Duration
}

func NewReferenceService(repo repository.ReferenceRepository, redisClient *redis.Client, cacheTTL time.Duration) ReferenceService {
	return &referenceService{
		repo:        repo,
		redisClient: redisClient,
		cacheTTL:    cacheTTL,
	}
}

// cached reads key from Redis and falls back to load on a miss. Cache errors
// never fail the request.
func cached[T any](ctx context.Context, s *referenceService, key string, load func() (T, error)) (T, error) {
	if s.redisClient != nil && s.cacheTTL > 0 {
		if raw, err := s.redisClient.Get(ctx, key).Bytes(); err == nil {
			var value T
			if err := json.Unmarshal(raw, &value); err == nil {
				return value, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			slog.WarnContext(ctx, "reference cache read failed", "key", key, "error", err)
		}
	}

	value, err := load()
	if err != nil {
		return value, err
	}

	if s.redisClient != nil && s.cacheTTL > 0 {
		if payload, err := json.Marshal(value); err == nil {
			if err := s.redisClient.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
				slog.WarnContext(ctx, "reference cache write failed", "key", key, "error", err)
			}
		}
	}
	return value, nil
}

func (s *referenceService) invalidate(ctx context.Context, keys ...string) {
	if s.redisClient == nil {
		return
	}
	if err := s.redisClient.Del(ctx, keys...).Err(); err != nil {
		slog.WarnContext(ctx, "reference cache invalidation failed", "keys", keys, "error", err)
	}
}

func (s *referenceService) ListUniversities(ctx context.Context) ([]entity.University, error) {
	return cached(ctx, s, keyUniversities, func() ([]entity.University, error) {
		return s.repo.ListUniversities(ctx)
	})
}

func (s *referenceService) GetUniversity(ctx context.Context, id uuid.UUID) (*entity.University, error) {
	university, err := s.repo.FindUniversityByID(ctx, id)
	if err != nil {
		return nil, notFound("university", err)
	}
	return university, nil
}

func (s *referenceService) CreateUniversity(ctx context.Context, req dto.CreateUniversityRequest) (*entity.University, error) {
	name := sanitize.Text(req.Name)
	if name == "" {
		return nil, apperror.Validation("name is required")
	}

	university := &entity.University{Name: name, Code: sanitize.Optional(req.Code)}
	if err := s.repo.CreateUniversity(ctx, university); err != nil {
		return nil, conflictOr(err, "university already exists")
	}

	s.invalidate(ctx, keyUniversities)
	return university, nil
}

func (s *referenceService) ListDepartments(ctx context.Context, universityID uuid.UUID) ([]entity.Department, error) {
	return cached(ctx, s, departmentsKey(universityID), func() ([]entity.Department, error) {
		if _, err := s.repo.FindUniversityByID(ctx, universityID); err != nil {
			return nil, notFound("university", err)
		}
		return s.repo.ListDepartments(ctx, universityID)
	})
}

func (s *referenceService) GetDepartment(ctx context.Context, id uuid.UUID) (*entity.Department, error) {
	department, err := s.repo.FindDepartmentByID(ctx, id)
	if err != nil {
		return nil, notFound("department", err)
	}
	return department, nil
}

func (s *referenceService) CreateDepartment(ctx context.Context, universityID uuid.UUID, req dto.CreateDepartmentRequest) (*entity.Department, error) {
	name := sanitize.Text(req.Name)
	if name == "" {
		return nil, apperror.Validation("name is required")
	}

	if _, err := s.repo.FindUniversityByID(ctx, universityID); err != nil {
		return nil, notFound("university", err)
	}

	department := &entity.Department{Name: name, UniversityID: universityID}
	if err := s.repo.CreateDepartment(ctx, department); err != nil {
		return nil, conflictOr(err, "department already exists in this university")
	}

	s.invalidate(ctx, departmentsKey(universityID))
	return department, nil
}

func (s *referenceService) ListTopics(ctx context.Context) ([]entity.Topic, error) {
	return cached(ctx, s, keyTopics, func() ([]entity.Topic, error) {
		return s.repo.ListTopics(ctx)
	})
}

func (s *referenceService) GetTopic(ctx context.Context, id uuid.UUID) (*entity.Topic, error) {
	topic, err := s.repo.FindTopicByID(ctx, id)
	if err != nil {
		return nil, notFound("topic", err)
	}
	return topic, nil
}

func (s *referenceService) FindTopics(ctx context.Context, ids []uuid.UUID) ([]entity.Topic, error) {
	return s.repo.FindTopicsByIDs(ctx, ids)
}

func (s *referenceService) CreateTopic(ctx context.Context, req dto.CreateTopicRequest) (*entity.Topic, error) {
	name := sanitize.Text(req.Name)
	if name == "" {
		return nil, apperror.Validation("name is required")
	}

	topic := &entity.Topic{Name: name, Description: sanitize.Optional(req.Description)}
	if err := s.repo.CreateTopic(ctx, topic); err != nil {
		return nil, conflictOr(err, "topic already exists")
	}

	s.invalidate(ctx, keyTopics)
	return topic, nil
}

func (s *referenceService) DeleteTopic(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteTopic(ctx, id); err != nil {
		return notFound("topic", err)
	}
	s.invalidate(ctx, keyTopics)
	return nil
}

func notFound(what string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s not found: %w", what, apperror.ErrNotFound)
	}
	return err
}

func conflictOr(err error, message string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "duplicate key") {
		return apperror.New(409, message, apperror.ErrConflict)
	}
	return err
}
