package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"caseflow.dev/caseflowlearn/internal/entity"
	notifDto "caseflow.dev/caseflowlearn/internal/modules/notification/dto"
	notifRepo "caseflow.dev/caseflowlearn/internal/modules/notification/repository"
	"caseflow.dev/caseflowlearn/pkg/apperror"
	commonDto "caseflow.dev/caseflowlearn/pkg/dto"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Channel is the redis pub/sub channel carrying a user's live notifications.
func Channel(userID uuid.UUID) string {
	return fmt.Sprintf("user_notifications:%s", userID.String())
}

type NotificationService interface {
	CreateNotification(ctx context.Context, notification *entity.Notification) error
	GetNotifications(ctx context.Context, userID uuid.UUID, page commonDto.PageQuery) (*notifDto.PaginatedNotifications, error)
	MarkAsRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	PruneOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

type notificationService struct {
	repo        notifRepo.NotificationRepository
	redisClient *redis.Client
}

func NewNotificationService(repo notifRepo.NotificationRepository, redisClient *redis.Client) NotificationService {
	return &notificationService{
		repo:        repo,
		redisClient: redisClient,
	}
}

func (s *notificationService) CreateNotification(ctx context.Context, notification *entity.Notification) error {
	if err := s.repo.Create(ctx, notification); err != nil {
		return err
	}

	if s.redisClient != nil {
		payload, err := json.Marshal(notifDto.ToResponse(*notification))
		if err == nil {
			if err := s.redisClient.Publish(ctx, Channel(notification.UserID), payload).Err(); err != nil {
				slog.WarnContext(ctx, "failed to publish notification", "user_id", notification.UserID, "error", err)
			}
		}
	}

	return nil
}

func (s *notificationService) GetNotifications(ctx context.Context, userID uuid.UUID, page commonDto.PageQuery) (*notifDto.PaginatedNotifications, error) {
	offset := page.Normalize()

	rows, total, err := s.repo.GetByUserID(ctx, userID, page.Limit, offset)
	if err != nil {
		return nil, err
	}

	data := make([]notifDto.NotificationResponse, 0, len(rows))
	for _, n := range rows {
		data = append(data, notifDto.ToResponse(n))
	}

	return &notifDto.PaginatedNotifications{
		Data: data,
		Meta: commonDto.NewPaginationMeta(page.Page, page.Limit, total),
	}, nil
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.repo.MarkAsRead(ctx, userID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("notification not found: %w", apperror.ErrNotFound)
		}
		return err
	}
	return nil
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *notificationService) PruneOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	return s.repo.DeleteOlderThan(ctx, time.Now().Add(-age))
}
