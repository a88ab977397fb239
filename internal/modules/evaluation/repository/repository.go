package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"caseflow.dev/caseflowlearn/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrStateChanged means the row was no longer in the status the update
// expected, usually because another evaluator got there first.
var ErrStateChanged = errors.New("status changed concurrently")

type Stats struct {
	Completed     int64
	Rejected      int64
	InReview      int64
	AverageRating *float64
}

type EvaluationRepository interface {
	// Start moves the report from pending to under_review and creates the
	// evaluator's evaluation in one transaction.
	Start(ctx context.Context, caseReportID, evaluatorID uuid.UUID) (*entity.Evaluation, error)
	// Submit stores the verdict and sets the report status to match.
	Submit(ctx context.Context, evaluation *entity.Evaluation) error
	// Abandon drops an unfinished evaluation and puts its report back in the
	// pending queue.
	Abandon(ctx context.Context, evaluation *entity.Evaluation) error
	// ReleaseByEvaluator abandons every unfinished evaluation of evaluatorID.
	// It returns the number of reports put back in the queue.
	ReleaseByEvaluator(ctx context.Context, evaluatorID uuid.UUID) (int64, error)
	// ReleaseStale abandons unfinished evaluations untouched since before.
	ReleaseStale(ctx context.Context, before time.Time) (int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Evaluation, error)
	FindByEvaluator(ctx context.Context, evaluatorID uuid.UUID, statuses []entity.CaseStatus, offset, limit int) ([]*entity.Evaluation, int64, error)
	FindByCaseReport(ctx context.Context, caseReportID uuid.UUID) ([]*entity.Evaluation, error)
	Stats(ctx context.Context, evaluatorID uuid.UUID) (*Stats, error)
}

type evaluationRepository struct {
	db *gorm.DB
}

func NewEvaluationRepository(db *gorm.DB) EvaluationRepository {
	return &evaluationRepository{db: db}
}

func (r *evaluationRepository) withRelations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Evaluator").
		Preload("Evaluator.Profile").
		Preload("CaseReport").
		Preload("CaseReport.User").
		Preload("CaseReport.User.Profile").
		Preload("CaseReport.University").
		Preload("CaseReport.Department").
		Preload("CaseReport.Topic")
}

func (r *evaluationRepository) Start(ctx context.Context, caseReportID, evaluatorID uuid.UUID) (*entity.Evaluation, error) {
	evaluation := &entity.Evaluation{
		CaseReportID: caseReportID,
		EvaluatorID:  evaluatorID,
		Status:       entity.StatusUnderReview,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entity.CaseReport{}).
			Where("id = ? AND status = ?", caseReportID, entity.StatusPending).
			Update("status", entity.StatusUnderReview)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&entity.CaseReport{}).Where("id = ?", caseReportID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return gorm.ErrRecordNotFound
			}
			return ErrStateChanged
		}

		return tx.Omit(clause.Associations).Create(evaluation).Error
	})
	if err != nil {
		return nil, err
	}
	return evaluation, nil
}

func (r *evaluationRepository) Submit(ctx context.Context, evaluation *entity.Evaluation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entity.Evaluation{}).
			Where("id = ? AND status = ?", evaluation.ID, entity.StatusUnderReview).
			Updates(map[string]interface{}{
				"rating":   evaluation.Rating,
				"feedback": evaluation.Feedback,
				"status":   evaluation.Status,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStateChanged
		}

		return tx.Model(&entity.CaseReport{}).
			Where("id = ?", evaluation.CaseReportID).
			Update("status", evaluation.Status).Error
	})
}

func (r *evaluationRepository) Abandon(ctx context.Context, evaluation *entity.Evaluation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND status = ?", evaluation.ID, entity.StatusUnderReview).
			Delete(&entity.Evaluation{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStateChanged
		}

		return tx.Model(&entity.CaseReport{}).
			Where("id = ? AND status = ?", evaluation.CaseReportID, entity.StatusUnderReview).
			Update("status", entity.StatusPending).Error
	})
}

func (r *evaluationRepository) ReleaseByEvaluator(ctx context.Context, evaluatorID uuid.UUID) (int64, error) {
	var released int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("evaluator_id = ? AND status = ?", evaluatorID, entity.StatusUnderReview).
			Delete(&entity.Evaluation{}).Error; err != nil {
			return err
		}

		n, err := releaseOrphaned(tx)
		released = n
		return err
	})
	return released, err
}

func (r *evaluationRepository) ReleaseStale(ctx context.Context, before time.Time) (int64, error) {
	var released int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("status = ? AND updated_at < ?", entity.StatusUnderReview, before).
			Delete(&entity.Evaluation{}).Error; err != nil {
			return err
		}

		n, err := releaseOrphaned(tx)
		released = n
		return err
	})
	return released, err
}

// releaseOrphaned returns under_review reports without an unfinished
// evaluation to pending. That also covers reports whose evaluator row was
// removed by a cascade.
func releaseOrphaned(tx *gorm.DB) (int64, error) {
	res := tx.Model(&entity.CaseReport{}).
		Where("status = ?", entity.StatusUnderReview).
		Where("NOT EXISTS (?)", tx.Session(&gorm.Session{NewDB: true}).
			Model(&entity.Evaluation{}).
			Select("1").
			Where("evaluations.case_report_id = case_reports.id AND evaluations.status = ?", entity.StatusUnderReview)).
		Update("status", entity.StatusPending)
	return res.RowsAffected, res.Error
}

func (r *evaluationRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Evaluation, error) {
	var evaluation entity.Evaluation
	if err := r.withRelations(ctx).Where("evaluations.id = ?", id).First(&evaluation).Error; err != nil {
		return nil, err
	}
	return &evaluation, nil
}

func (r *evaluationRepository) FindByEvaluator(ctx context.Context, evaluatorID uuid.UUID, statuses []entity.CaseStatus, offset, limit int) ([]*entity.Evaluation, int64, error) {
	var evaluations []*entity.Evaluation
	var total int64

	query := r.withRelations(ctx).
		Model(&entity.Evaluation{}).
		Where("evaluations.evaluator_id = ?", evaluatorID)
	if len(statuses) > 0 {
		query = query.Where("evaluations.status IN ?", statuses)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("evaluations.updated_at DESC").Offset(offset).Limit(limit).Find(&evaluations).Error; err != nil {
		return nil, 0, err
	}

	return evaluations, total, nil
}

func (r *evaluationRepository) FindByCaseReport(ctx context.Context, caseReportID uuid.UUID) ([]*entity.Evaluation, error) {
	evaluations := []*entity.Evaluation{}
	err := r.db.WithContext(ctx).
		Preload("Evaluator").
		Preload("Evaluator.Profile").
		Where("case_report_id = ?", caseReportID).
		Order("created_at ASC").
		Find(&evaluations).Error
	return evaluations, err
}

func (r *evaluationRepository) Stats(ctx context.Context, evaluatorID uuid.UUID) (*Stats, error) {
	var rows []struct {
		Status entity.CaseStatus
		Count  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&entity.Evaluation{}).
		Select("status, COUNT(*) AS count").
		Where("evaluator_id = ?", evaluatorID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	stats := &Stats{}
	for _, row := range rows {
		switch row.Status {
		case entity.StatusCompleted:
			stats.Completed = row.Count
		case entity.StatusRejected:
			stats.Rejected = row.Count
		case entity.StatusUnderReview:
			stats.InReview = row.Count
		}
	}

	var avg sql.NullFloat64
	if err := r.db.WithContext(ctx).
		Model(&entity.Evaluation{}).
		Select("AVG(rating)").
		Where("evaluator_id = ? AND rating IS NOT NULL", evaluatorID).
		Row().Scan(&avg); err != nil {
		return nil, err
	}
	if avg.Valid {
		stats.AverageRating = &avg.Float64
	}

	return stats, nil
}
