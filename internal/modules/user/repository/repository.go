package repository

import (
	"context"

	"caseflow.dev/caseflowlearn/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User, profile *entity.Profile) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	Update(ctx context.Context, user *entity.User) error
	UpdateRole(ctx context.Context, id uuid.UUID, role entity.Role) error
	FindAll(ctx context.Context, role entity.Role, offset, limit int) ([]*entity.User, int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CountByRole(ctx context.Context) (map[entity.Role]int64, error)
	StoredFiles(ctx context.Context, id uuid.UUID) (*UserFiles, error)
}

// UserFiles is what has to be cleaned up outside the database when a user
// goes away.
type UserFiles struct {
	ReportIDs []uuid.UUID
	URLs      []string
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create inserts the user and its profile in one transaction.
func (r *userRepository) Create(ctx context.Context, user *entity.User, profile *entity.Profile) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}

		if profile != nil {
			profile.UserID = user.ID
			if err := tx.Create(profile).Error; err != nil {
				return err
			}
			user.Profile = profile
		}

		return nil
	})
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).
		Preload("Profile").
		Where("id = ?", id).
		First(&user).Error; err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).
		Preload("Profile").
		Where("email = ?", email).
		First(&user).Error; err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, user *entity.User) error {
	return r.db.WithContext(ctx).Omit("Profile").Save(user).Error
}

// UpdateRole keeps users.role and profiles.role in step.
func (r *userRepository) UpdateRole(ctx context.Context, id uuid.UUID, role entity.Role) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entity.User{}).Where("id = ?", id).Update("role", role)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		return tx.Model(&entity.Profile{}).Where("user_id = ?", id).Update("role", role).Error
	})
}

func (r *userRepository) FindAll(ctx context.Context, role entity.Role, offset, limit int) ([]*entity.User, int64, error) {
	var users []*entity.User
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.User{})
	if role != "" {
		query = query.Where("role = ?", role)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.
		Preload("Profile").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&entity.User{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepository) CountByRole(ctx context.Context) (map[entity.Role]int64, error) {
	type row struct {
		Role  entity.Role
		Count int64
	}
	var rows []row

	if err := r.db.WithContext(ctx).
		Model(&entity.User{}).
		Select("role, COUNT(*) AS count").
		Group("role").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[entity.Role]int64, len(rows))
	for _, r := range rows {
		counts[r.Role] = r.Count
	}
	return counts, nil
}

func (r *userRepository) StoredFiles(ctx context.Context, id uuid.UUID) (*UserFiles, error) {
	var reports []entity.CaseReport
	if err := r.db.WithContext(ctx).
		Select("id", "file_url").
		Where("user_id = ?", id).
		Find(&reports).Error; err != nil {
		return nil, err
	}

	files := &UserFiles{}
	for _, report := range reports {
		files.ReportIDs = append(files.ReportIDs, report.ID)
		files.URLs = append(files.URLs, report.FileURL)
	}

	var avatars []string
	if err := r.db.WithContext(ctx).
		Model(&entity.Profile{}).
		Where("user_id = ? AND avatar_url IS NOT NULL AND avatar_url <> ''", id).
		Pluck("avatar_url", &avatars).Error; err != nil {
		return nil, err
	}
	files.URLs = append(files.URLs, avatars...)

	return files, nil
}
