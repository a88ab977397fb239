package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"caseflow.dev/caseflowlearn/internal/entity"
	adminDto "caseflow.dev/caseflowlearn/internal/modules/admin/dto"
	search "caseflow.dev/caseflowlearn/internal/modules/search/service"
	"caseflow.dev/caseflowlearn/internal/modules/user/repository"
	"caseflow.dev/caseflowlearn/pkg/apperror"
	"caseflow.dev/caseflowlearn/pkg/authevents"
	commonDto "caseflow.dev/caseflowlearn/pkg/dto"
	"caseflow.dev/caseflowlearn/pkg/storage"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// SessionRevoker ends the tokens already issued to an account.
type SessionRevoker interface {
	RevokeSessions(ctx context.Context, userID uuid.UUID) error
}

// ReviewReleaser returns an evaluator's unfinished reviews to the queue.
type ReviewReleaser interface {
	ReleaseReviews(ctx context.Context, evaluatorID uuid.UUID) (int64, error)
}

type AdminService interface {
	ListUsers(ctx context.Context, q adminDto.ListUsersQuery) (*adminDto.PaginatedUsers, error)
	ChangeRole(ctx context.Context, actorID, userID uuid.UUID, role entity.Role) (*adminDto.AdminUserResponse, error)
	DeleteUser(ctx context.Context, actorID, userID uuid.UUID) error
	UserStats(ctx context.Context) (*adminDto.UserStats, error)
}

type adminService struct {
	users       repository.UserRepository
	sessions    SessionRevoker
	reviews     ReviewReleaser
	hub         *authevents.Hub
	fileStorage storage.FileStorage
	redisClient *redis.Client
	meili       search.MeiliSearchService
}

func NewAdminService(
	users repository.UserRepository,
	sessions SessionRevoker,
	reviews ReviewReleaser,
	hub *authevents.Hub,
	fileStorage storage.FileStorage,
	redisClient *redis.Client,
	meili search.MeiliSearchService,
) AdminService {
	return &adminService{
		users:       users,
		sessions:    sessions,
		reviews:     reviews,
		hub:         hub,
		fileStorage: fileStorage,
		redisClient: redisClient,
		meili:       meili,
	}
}

func (s *adminService) ListUsers(ctx context.Context, q adminDto.ListUsersQuery) (*adminDto.PaginatedUsers, error) {
	offset := q.Normalize()

	users, total, err := s.users.FindAll(ctx, entity.Role(q.Role), offset, q.Limit)
	if err != nil {
		return nil, err
	}

	data := make([]adminDto.AdminUserResponse, 0, len(users))
	for _, u := range users {
		data = append(data, adminDto.ToUserResponse(u))
	}

	return &adminDto.PaginatedUsers{
		Data: data,
		Meta: commonDto.NewPaginationMeta(q.Page, q.Limit, total),
	}, nil
}

func (s *adminService) ChangeRole(ctx context.Context, actorID, userID uuid.UUID, role entity.Role) (*adminDto.AdminUserResponse, error) {
	if !role.Valid() {
		return nil, apperror.Validation("role must be one of student, evaluator, admin")
	}
	if actorID == userID && role != entity.RoleAdmin {
		return nil, fmt.Errorf("admins cannot demote themselves: %w", apperror.ErrForbidden)
	}

	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if u.Role != entity.RoleEvaluator && s.reviews != nil {
		if _, err := s.reviews.ReleaseReviews(ctx, userID); err != nil {
			return nil, fmt.Errorf("failed to release reviews: %w", err)
		}
	}
	if s.sessions != nil {
		if err := s.sessions.RevokeSessions(ctx, userID); err != nil {
			slog.WarnContext(ctx, "failed to revoke sessions after role change", "user_id", userID, "error", err)
		}
	}

	if s.hub != nil {
		s.hub.Publish(ctx, authevents.Event{Kind: authevents.RoleChanged, UserID: userID, Role: string(role)})
	}

	res := adminDto.ToUserResponse(u)
	return &res, nil
}

// DeleteUser returns the user's open reviews to the queue, removes the
// account and everything that cascades from it, then cleans up the user's
// uploads and search documents.
func (s *adminService) DeleteUser(ctx context.Context, actorID, userID uuid.UUID) error {
	if actorID == userID {
		return fmt.Errorf("admins cannot delete themselves: %w", apperror.ErrForbidden)
	}

	files, err := s.users.StoredFiles(ctx, userID)
	if err != nil {
		return err
	}

	if s.reviews != nil {
		if _, err := s.reviews.ReleaseReviews(ctx, userID); err != nil {
			return fmt.Errorf("failed to release reviews: %w", err)
		}
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("user not found: %w", apperror.ErrNotFound)
		}
		return err
	}

	if s.sessions != nil {
		if err := s.sessions.RevokeSessions(ctx, userID); err != nil {
			slog.WarnContext(ctx, "failed to revoke sessions of deleted user", "user_id", userID, "error", err)
		}
	}

	for _, url := range files.URLs {
		storage.DeleteOrQueue(ctx, s.fileStorage, s.redisClient, url)
	}
	if s.meili != nil {
		for _, id := range files.ReportIDs {
			if err := s.meili.DeleteCaseReport(ctx, id); err != nil {
				slog.WarnContext(ctx, "failed to remove case report from index", "case_report_id", id, "error", err)
			}
		}
	}

	if s.hub != nil {
		s.hub.Publish(ctx, authevents.Event{Kind: authevents.AccountDeleted, UserID: userID})
	}
	return nil
}

func (s *adminService) UserStats(ctx context.Context) (*adminDto.UserStats, error) {
	counts, err := s.users.CountByRole(ctx)
	if err != nil {
		return nil, err
	}

	stats := &adminDto.UserStats{
		Students:   counts[entity.RoleStudent],
		Evaluators: counts[entity.RoleEvaluator],
		Admins:     counts[entity.RoleAdmin],
	}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}
