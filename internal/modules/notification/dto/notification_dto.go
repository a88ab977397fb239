package dto

import (
	"time"

	"caseflow.dev/caseflowlearn/internal/entity"
	commonDto "caseflow.dev/caseflowlearn/pkg/dto"
	"github.com/google/uuid"
)

type NotificationResponse struct {
	ID         uuid.UUID                 `json:"id"`
	Type       string                    `json:"type"`
	Message    string                    `json:"message"`
	EntityID   uuid.UUID                 `json:"entity_id"`
	EntityType string                    `json:"entity_type"`
	IsRead     bool                      `json:"is_read"`
	CreatedAt  time.Time                 `json:"created_at"`
	Actor      *commonDto.AuthorResponse `json:"actor"`
}

type PaginatedNotifications = commonDto.Paginated[NotificationResponse]

func ToResponse(n entity.Notification) NotificationResponse {
	res := NotificationResponse{
		ID:         n.ID,
		Type:       n.Type,
		Message:    n.Message,
		EntityID:   n.EntityID,
		EntityType: n.EntityType,
		IsRead:     n.IsRead,
		CreatedAt:  n.CreatedAt,
	}
	if n.Actor != nil {
		res.Actor = &commonDto.AuthorResponse{ID: n.Actor.ID}
		if n.Actor.Profile != nil {
			res.Actor.FullName = n.Actor.Profile.FullName
			res.Actor.AvatarURL = n.Actor.Profile.AvatarURL
		}
	}
	return res
}
