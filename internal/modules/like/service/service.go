package like

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"caseflow.dev/caseflowlearn/internal/entity"
	caseDto "caseflow.dev/caseflowlearn/internal/modules/casereport/dto"
	likeDto "caseflow.dev/caseflowlearn/internal/modules/like/dto"
	likeRepo "caseflow.dev/caseflowlearn/internal/modules/like/repository"
	"caseflow.dev/caseflowlearn/pkg/apperror"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	pendingKey     = "pending:case_likes"
	counterTTL     = 7 * 24 * time.Hour
	resyncBatchMax = 500
)

func counterKey(caseReportID uuid.UUID) string {
	return fmt.Sprintf("case_likes:%s", caseReportID)
}

// CaseReportReader enforces report visibility before a like is read or toggled.
type CaseReportReader interface {
	Get(ctx context.Context, viewer caseDto.Viewer, id uuid.UUID) (*caseDto.CaseReportResponse, error)
}

type Notifier interface {
	CreateNotification(ctx context.Context, notification *entity.Notification) error
}

type LikeService interface {
	Toggle(ctx context.Context, viewer caseDto.Viewer, caseReportID uuid.UUID) (*likeDto.LikeStatus, error)
	Status(ctx context.Context, viewer caseDto.Viewer, caseReportID uuid.UUID) (*likeDto.LikeStatus, error)
	// ResyncCounters recounts reports touched since the last run and
	// refreshes their redis counters. It returns how many were synced.
	ResyncCounters(ctx context.Context) (int, error)
}

type likeService struct {
	repo        likeRepo.LikeRepository
	reports     CaseReportReader
	notifier    Notifier
	redisClient *redis.Client
}

func NewLikeService(repo likeRepo.LikeRepository, reports CaseReportReader, notifier Notifier, redisClient *redis.Client) LikeService {
	return &likeService{
		repo:        repo,
		reports:     reports,
		notifier:    notifier,
		redisClient: redisClient,
	}
}

func (s *likeService) Toggle(ctx context.Context, viewer caseDto.Viewer, caseReportID uuid.UUID) (*likeDto.LikeStatus, error) {
	if _, err := s.reports.Get(ctx, viewer, caseReportID); err != nil {
		return nil, err
	}

	result, err := s.repo.Toggle(ctx, caseReportID, viewer.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("case report not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}

	if s.redisClient != nil {
		pipe := s.redisClient.Pipeline()
		pipe.Set(ctx, counterKey(caseReportID), result.LikesCount, counterTTL)
		pipe.SAdd(ctx, pendingKey, caseReportID.String())
		if _, err := pipe.Exec(ctx); err != nil {
			slog.WarnContext(ctx, "redis like counter update failed", "case_report_id", caseReportID, "error", err)
		}
	}

	if result.Liked && result.AuthorID != viewer.ID && s.notifier != nil {
		notif := &entity.Notification{
			UserID:     result.AuthorID,
			ActorID:    viewer.ID,
			EntityID:   caseReportID,
			EntityType: "case_report",
			Type:       entity.NotificationCaseLiked,
			Message:    "Someone liked your case report: " + snippet(result.Title, 40),
		}
		if err := s.notifier.CreateNotification(ctx, notif); err != nil {
			slog.WarnContext(ctx, "failed to create like notification", "case_report_id", caseReportID, "error", err)
		}
	}

	return &likeDto.LikeStatus{
		CaseReportID: caseReportID,
		Liked:        result.Liked,
		LikesCount:   result.LikesCount,
	}, nil
}

func (s *likeService) Status(ctx context.Context, viewer caseDto.Viewer, caseReportID uuid.UUID) (*likeDto.LikeStatus, error) {
	report, err := s.reports.Get(ctx, viewer, caseReportID)
	if err != nil {
		return nil, err
	}

	liked, err := s.repo.IsLiked(ctx, caseReportID, viewer.ID)
	if err != nil {
		return nil, err
	}

	return &likeDto.LikeStatus{
		CaseReportID: caseReportID,
		Liked:        liked,
		LikesCount:   s.cachedCount(ctx, caseReportID, report.LikesCount),
	}, nil
}

// cachedCount prefers the redis counter and repopulates it on a miss.
func (s *likeService) cachedCount(ctx context.Context, caseReportID uuid.UUID, fallback int) int {
	if s.redisClient == nil {
		return fallback
	}

	val, err := s.redisClient.Get(ctx, counterKey(caseReportID)).Result()
	if err == nil {
		if n, err := strconv.Atoi(val); err == nil && n >= 0 {
			return n
		}
	}

	if err := s.redisClient.Set(ctx, counterKey(caseReportID), fallback, counterTTL).Err(); err != nil {
		slog.WarnContext(ctx, "failed to cache like counter", "case_report_id", caseReportID, "error", err)
	}
	return fallback
}

func (s *likeService) ResyncCounters(ctx context.Context) (int, error) {
	if s.redisClient == nil {
		return 0, nil
	}

	members, err := s.redisClient.SPopN(ctx, pendingKey, resyncBatchMax).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read pending like counters: %w", err)
	}
	if len(members) == 0 {
		return 0, nil
	}

	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		if id, err := uuid.Parse(m); err == nil {
			ids = append(ids, id)
		}
	}

	counts, err := s.repo.Recount(ctx, ids)
	if err != nil {
		// put them back for the next run
		args := make([]interface{}, len(members))
		for i, m := range members {
			args[i] = m
		}
		if addErr := s.redisClient.SAdd(ctx, pendingKey, args...).Err(); addErr != nil {
			slog.WarnContext(ctx, "failed to requeue like counters", "count", len(members), "error", addErr)
		}
		return 0, err
	}

	pipe := s.redisClient.Pipeline()
	for _, id := range ids {
		if n, ok := counts[id]; ok {
			pipe.Set(ctx, counterKey(id), n, counterTTL)
		} else {
			pipe.Del(ctx, counterKey(id))
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}

	return len(counts), nil
}

func snippet(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
