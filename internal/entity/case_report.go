package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PrivacyLevel string

const (
	PrivacyPublic         PrivacyLevel = "public"
	PrivacyUniversityOnly PrivacyLevel = "university_only"
	PrivacyPrivate        PrivacyLevel = "private"
)

type CaseStatus string

const (
	StatusPending     CaseStatus = "pending"
	StatusUnderReview CaseStatus = "under_review"
	StatusCompleted   CaseStatus = "completed"
	StatusRejected    CaseStatus = "rejected"
)

// Finished reports whether an evaluation with this status has been submitted.
func (s CaseStatus) Finished() bool {
	return s == StatusCompleted || s == StatusRejected
}

type CaseReport struct {
	ID           uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Title        string       `gorm:"size:200;not null" json:"title"`
	UserID       uuid.UUID    `gorm:"type:uuid;not null;index" json:"user_id"`
	User         User         `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	UniversityID *uuid.UUID   `gorm:"type:uuid;index" json:"university_id"`
	University   *University  `gorm:"constraint:OnDelete:SET NULL" json:"university,omitempty"`
	DepartmentID *uuid.UUID   `gorm:"type:uuid" json:"department_id"`
	Department   *Department  `gorm:"constraint:OnDelete:SET NULL" json:"department,omitempty"`
	TopicID      *uuid.UUID   `gorm:"type:uuid;index" json:"topic_id"`
	Topic        *Topic       `gorm:"constraint:OnDelete:SET NULL" json:"topic,omitempty"`
	FileURL      string       `gorm:"type:text;not null" json:"file_url"`
	FileName     string       `gorm:"size:255;not null" json:"file_name"`
	PrivacyLevel PrivacyLevel `gorm:"size:20;not null;default:public;index" json:"privacy_level"`
	Status       CaseStatus   `gorm:"size:20;not null;default:pending;index" json:"status"`
	LikesCount   int          `gorm:"not null;default:0" json:"likes_count"`
	CreatedAt    time.Time    `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c *CaseReport) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID, err = uuid.NewV7()
	}
	return
}

// VisibleTo applies the browse rule: public reports, university-only reports
// from the viewer's university, and the viewer's own reports.
func (c *CaseReport) VisibleTo(viewerID uuid.UUID, viewerRole Role, viewerUniversity *uuid.UUID) bool {
	if c.UserID == viewerID || viewerRole == RoleAdmin {
		return true
	}
	switch c.PrivacyLevel {
	case PrivacyPublic:
		return true
	case PrivacyUniversityOnly:
		return viewerUniversity != nil && c.UniversityID != nil && *viewerUniversity == *c.UniversityID
	}
	return false
}

type CaseLike struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CaseReportID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_case_likes_unique,priority:1" json:"case_report_id"`
	CaseReport   CaseReport `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	UserID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_case_likes_unique,priority:2" json:"user_id"`
	User         User       `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (l *CaseLike) BeforeCreate(tx *gorm.DB) (err error) {
	if l.ID == uuid.Nil {
		l.ID, err = uuid.NewV7()
	}
	return
}
