package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Evaluation struct {
	ID           uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	CaseReportID uuid.UUID   `gorm:"type:uuid;not null;index" json:"case_report_id"`
	CaseReport   *CaseReport `gorm:"constraint:OnDelete:CASCADE" json:"case_report,omitempty"`
	EvaluatorID  uuid.UUID   `gorm:"type:uuid;not null;index" json:"evaluator_id"`
	Evaluator    *User       `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Rating       *int        `json:"rating"`
	Feedback     *string     `gorm:"type:text" json:"feedback"`
	Status       CaseStatus  `gorm:"size:20;not null;default:under_review;index" json:"status"`
	CreatedAt    time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (e *Evaluation) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == uuid.Nil {
		e.ID, err = uuid.NewV7()
	}
	return
}

type EvaluatorTopic struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EvaluatorID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_evaluator_topics_unique,priority:1" json:"evaluator_id"`
	Evaluator   User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	TopicID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_evaluator_topics_unique,priority:2" json:"topic_id"`
	Topic       *Topic    `gorm:"constraint:OnDelete:CASCADE" json:"topic,omitempty"`
	AcceptedAt  time.Time `gorm:"not null" json:"accepted_at"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (t *EvaluatorTopic) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == uuid.Nil {
		t.ID, err = uuid.NewV7()
	}
	return
}
