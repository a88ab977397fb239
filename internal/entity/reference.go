package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type University struct {
	ID          uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string       `gorm:"size:150;not null;uniqueIndex" json:"name"`
	Code        *string      `gorm:"size:20;uniqueIndex" json:"code,omitempty"`
	CreatedAt   time.Time    `gorm:"autoCreateTime" json:"created_at"`
	Departments []Department `gorm:"constraint:OnDelete:CASCADE" json:"departments,omitempty"`
}

func (u *University) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID, err = uuid.NewV7()
	}
	return
}

type Department struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string    `gorm:"size:150;not null;uniqueIndex:idx_departments_university_name,priority:2" json:"name"`
	UniversityID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_departments_university_name,priority:1" json:"university_id"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (d *Department) BeforeCreate(tx *gorm.DB) (err error) {
	if d.ID == uuid.Nil {
		d.ID, err = uuid.NewV7()
	}
	return
}

type Topic struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (t *Topic) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == uuid.Nil {
		t.ID, err = uuid.NewV7()
	}
	return
}
