package dto

import (
	"time"

	"github.com/google/uuid"
)

type AcceptTopicsRequest struct {
	TopicIDs []string `json:"topic_ids" binding:"required,min=1,max=50,dive,uuid"`
}

type TopicRecommendation struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Description      *string   `json:"description"`
	PendingCount     int64     `json:"pending_count"`
	TotalCount       int64     `json:"total_count"`
	EvaluatedPercent int       `json:"evaluated_percent"`
	Accepted         bool      `json:"accepted"`
}

type AcceptedTopic struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	AcceptedAt time.Time `json:"accepted_at"`
}
