package repository

import (
	"context"

	"caseflow.dev/caseflowlearn/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReferenceRepository interface {
	ListUniversities(ctx context.Context) ([]entity.University, error)
	FindUniversityByID(ctx context.Context, id uuid.UUID) (*entity.University, error)
	CreateUniversity(ctx context.Context, university *entity.University) error

	ListDepartments(ctx context.Context, universityID uuid.UUID) ([]entity.Department, error)
	FindDepartmentByID(ctx context.Context, id uuid.UUID) (*entity.Department, error)
	CreateDepartment(ctx context.Context, department *entity.Department) error

	ListTopics(ctx context.Context) ([]entity.Topic, error)
	FindTopicByID(ctx context.Context, id uuid.UUID) (*entity.Topic, error)
	FindTopicsByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Topic, error)
	CreateTopic(ctx context.Context, topic *entity.Topic) error
	DeleteTopic(ctx context.Context, id uuid.UUID) error
}

type referenceRepository struct {
	db *gorm.DB
}

func NewReferenceRepository(db *gorm.DB) ReferenceRepository {
	return &referenceRepository{db: db}
}

func (r *referenceRepository) ListUniversities(ctx context.Context) ([]entity.University, error) {
	universities := []entity.University{}
	err := r.db.WithContext(ctx).Order("name ASC").Find(&universities).Error
	return universities, err
}

func (r *referenceRepository) FindUniversityByID(ctx context.Context, id uuid.UUID) (*entity.University, error) {
	var university entity.University
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&university).Error; err != nil {
		return nil, err
	}
	return &university, nil
}

func (r *referenceRepository) CreateUniversity(ctx context.Context, university *entity.University) error {
	return r.db.WithContext(ctx).Create(university).Error
}

func (r *referenceRepository) ListDepartments(ctx context.Context, universityID uuid.UUID) ([]entity.Department, error) {
	departments := []entity.Department{}
	err := r.db.WithContext(ctx).
		Where("university_id = ?", universityID).
		Order("name ASC").
		Find(&departments).Error
	return departments, err
}

func (r *referenceRepository) FindDepartmentByID(ctx context.Context, id uuid.UUID) (*entity.Department, error) {
	var department entity.Department
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&department).Error; err != nil {
		return nil, err
	}
	return &department, nil
}

func (r *referenceRepository) CreateDepartment(ctx context.Context, department *entity.Department) error {
	return r.db.WithContext(ctx).Create(department).Error
}

func (r *referenceRepository) ListTopics(ctx context.Context) ([]entity.Topic, error) {
	topics := []entity.Topic{}
	err := r.db.WithContext(ctx).Order("name ASC").Find(&topics).Error
	return topics, err
}

func (r *referenceRepository) FindTopicByID(ctx context.Context, id uuid.UUID) (*entity.Topic, error) {
	var topic entity.Topic
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&topic).Error; err != nil {
		return nil, err
	}
	return &topic, nil
}

func (r *referenceRepository) FindTopicsByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Topic, error) {
	topics := []entity.Topic{}
	if len(ids) == 0 {
		return topics, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("name ASC").Find(&topics).Error
	return topics, err
}

func (r *referenceRepository) CreateTopic(ctx context.Context, topic *entity.Topic) error {
	return r.db.WithContext(ctx).Create(topic).Error
}

func (r *referenceRepository) DeleteTopic(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&entity.Topic{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
