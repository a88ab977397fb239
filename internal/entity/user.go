package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleStudent   Role = "student"
	RoleEvaluator Role = "evaluator"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleEvaluator, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         Role      `gorm:"size:20;not null;default:student;index" json:"role"`
	GoogleID     *string   `gorm:"size:100;uniqueIndex" json:"google_id,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	Profile      *Profile  `gorm:"constraint:OnDelete:CASCADE" json:"profile,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID, err = uuid.NewV7()
	}
	return
}

// Profile is keyed by the owning user. University and department are both
// optional; a department, when set, belongs to the profile's university.
type Profile struct {
	UserID       uuid.UUID   `gorm:"type:uuid;primaryKey" json:"user_id"`
	FullName     string      `gorm:"size:100;not null" json:"full_name"`
	Role         Role        `gorm:"size:20;not null;default:student" json:"role"`
	Specialty    *string     `gorm:"size:100" json:"specialty,omitempty"`
	Affiliation  *string     `gorm:"size:150" json:"affiliation,omitempty"`
	UniversityID *uuid.UUID  `gorm:"type:uuid;index" json:"university_id"`
	University   *University `gorm:"constraint:OnDelete:SET NULL" json:"university,omitempty"`
	DepartmentID *uuid.UUID  `gorm:"type:uuid;index" json:"department_id"`
	Department   *Department `gorm:"constraint:OnDelete:SET NULL" json:"department,omitempty"`
	AvatarURL    *string     `gorm:"type:text" json:"avatar_url,omitempty"`
	CreatedAt    time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}
