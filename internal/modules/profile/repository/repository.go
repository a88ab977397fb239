package repository

import (
	"context"
	"errors"

	"caseflow.dev/caseflowlearn/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfileRepository interface {
	// FindByUserID returns nil without error when the user has no profile row.
	FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.Profile, error)
	// Upsert inserts or updates the row keyed by user_id.
	Upsert(ctx context.Context, profile *entity.Profile) error
}

type profileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.Profile, error) {
	var profile entity.Profile
	err := r.db.WithContext(ctx).
		Preload("University").
		Preload("Department").
		Where("user_id = ?", userID).
		First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) Upsert(ctx context.Context, profile *entity.Profile) error {
	return r.db.WithContext(ctx).
		Omit("University", "Department").
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"full_name",
				"university_id",
				"department_id",
				"avatar_url",
				"updated_at",
			}),
		}).
		Create(profile).Error
}
