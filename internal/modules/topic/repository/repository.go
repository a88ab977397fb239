package repository

import (
	"context"
	"time"

	"caseflow.dev/caseflowlearn/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TopicLoad aggregates case reports per topic.
type TopicLoad struct {
	ID          uuid.UUID
	Name        string
	Description *string
	Total       int64
	Pending     int64
	Finished    int64
}

type TopicRepository interface {
	// Load returns every topic with its report counts, busiest first.
	Load(ctx context.Context) ([]TopicLoad, error)
	Accept(ctx context.Context, evaluatorID uuid.UUID, topicIDs []uuid.UUID, at time.Time) error
	Withdraw(ctx context.Context, evaluatorID, topicID uuid.UUID) error
	Accepted(ctx context.Context, evaluatorID uuid.UUID) ([]entity.EvaluatorTopic, error)
	AcceptedIDs(ctx context.Context, evaluatorID uuid.UUID) ([]uuid.UUID, error)
}

type topicRepository struct {
	db *gorm.DB
}

func NewTopicRepository(db *gorm.DB) TopicRepository {
	return &topicRepository{db: db}
}

func (r *topicRepository) Load(ctx context.Context) ([]TopicLoad, error) {
	var rows []TopicLoad
	err := r.db.WithContext(ctx).
		Model(&entity.Topic{}).
		Select(`topics.id, topics.name, topics.description,
			COUNT(case_reports.id) AS total,
			COUNT(case_reports.id) FILTER (WHERE case_reports.status = ?) AS pending,
			COUNT(case_reports.id) FILTER (WHERE case_reports.status IN ?) AS finished`,
			entity.StatusPending,
			[]entity.CaseStatus{entity.StatusCompleted, entity.StatusRejected},
		).
		Joins("LEFT JOIN case_reports ON case_reports.topic_id = topics.id").
		Group("topics.id").
		Order("pending DESC").
		Order("topics.name ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *topicRepository) Accept(ctx context.Context, evaluatorID uuid.UUID, topicIDs []uuid.UUID, at time.Time) error {
	if len(topicIDs) == 0 {
		return nil
	}

	rows := make([]entity.EvaluatorTopic, 0, len(topicIDs))
	for _, id := range topicIDs {
		rows = append(rows, entity.EvaluatorTopic{
			EvaluatorID: evaluatorID,
			TopicID:     id,
			AcceptedAt:  at,
		})
	}

	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "evaluator_id"}, {Name: "topic_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"accepted_at"}),
		}).
		Create(&rows).Error
}

func (r *topicRepository) Withdraw(ctx context.Context, evaluatorID, topicID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("evaluator_id = ? AND topic_id = ?", evaluatorID, topicID).
		Delete(&entity.EvaluatorTopic{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *topicRepository) Accepted(ctx context.Context, evaluatorID uuid.UUID) ([]entity.EvaluatorTopic, error) {
	var rows []entity.EvaluatorTopic
	err := r.db.WithContext(ctx).
		Preload("Topic").
		Where("evaluator_id = ?", evaluatorID).
		Order("accepted_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *topicRepository) AcceptedIDs(ctx context.Context, evaluatorID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&entity.EvaluatorTopic{}).
		Where("evaluator_id = ?", evaluatorID).
		Pluck("topic_id", &ids).Error
	return ids, err
}
