package repository

import (
	"context"
	"strings"

	"caseflow.dev/caseflowlearn/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Query selects case reports visible to a viewer.
type Query struct {
	ViewerID         uuid.UUID
	ViewerRole       entity.Role
	ViewerUniversity *uuid.UUID

	Search       string
	TopicID      *uuid.UUID
	UniversityID *uuid.UUID
	Status       entity.CaseStatus
	SortBy       string

	Offset int
	Limit  int
}

type CaseReportRepository interface {
	Create(ctx context.Context, report *entity.CaseReport) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.CaseReport, error)
	// FindByIDs keeps the order of ids and skips ids that no longer exist.
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.CaseReport, error)
	Find(ctx context.Context, q Query) ([]*entity.CaseReport, int64, error)
	FindByUserID(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*entity.CaseReport, int64, error)
	// FindPending lists reports awaiting review, excluding those written by
	// excludeUserID. Reports in preferTopics come first.
	FindPending(ctx context.Context, excludeUserID uuid.UUID, preferTopics []uuid.UUID, offset, limit int) ([]*entity.CaseReport, int64, error)
	FindByTopics(ctx context.Context, topicIDs []uuid.UUID) ([]*entity.CaseReport, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

func NewCaseReportRepository(db *gorm.DB) CaseReportRepository {
	return &repository{db: db}
}

func (r *repository) withRelations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("User").
		Preload("User.Profile").
		Preload("University").
		Preload("Department").
		Preload("Topic")
}

func (r *repository) Create(ctx context.Context, report *entity.CaseReport) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(report).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*entity.CaseReport, error) {
	var report entity.CaseReport
	if err := r.withRelations(ctx).
		Where("case_reports.id = ?", id).
		First(&report).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.CaseReport, error) {
	if len(ids) == 0 {
		return []*entity.CaseReport{}, nil
	}

	var reports []*entity.CaseReport
	if err := r.withRelations(ctx).
		Where("case_reports.id IN ?", ids).
		Find(&reports).Error; err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*entity.CaseReport, len(reports))
	for _, rep := range reports {
		byID[rep.ID] = rep
	}

	ordered := make([]*entity.CaseReport, 0, len(ids))
	for _, id := range ids {
		if rep, ok := byID[id]; ok {
			ordered = append(ordered, rep)
		}
	}
	return ordered, nil
}

func (r *repository) Find(ctx context.Context, q Query) ([]*entity.CaseReport, int64, error) {
	var reports []*entity.CaseReport
	var total int64

	query := r.withRelations(ctx).Model(&entity.CaseReport{})

	if q.ViewerRole != entity.RoleAdmin {
		query = query.Where(
			r.db.Where("case_reports.user_id = ?", q.ViewerID).
				Or("case_reports.privacy_level = ?", entity.PrivacyPublic).
				Or("case_reports.privacy_level = ? AND case_reports.university_id = ?", entity.PrivacyUniversityOnly, q.ViewerUniversity),
		)
	}

	if q.Search != "" {
		query = query.Where(`case_reports.title ILIKE ? ESCAPE '\'`, "%"+escapeLike(q.Search)+"%")
	}
	if q.TopicID != nil {
		query = query.Where("case_reports.topic_id = ?", *q.TopicID)
	}
	if q.UniversityID != nil {
		query = query.Where("case_reports.university_id = ?", *q.UniversityID)
	}
	if q.Status != "" {
		query = query.Where("case_reports.status = ?", q.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if q.SortBy == "popular" {
		query = query.Order("case_reports.likes_count DESC").Order("case_reports.created_at DESC")
	} else {
		query = query.Order("case_reports.created_at DESC")
	}

	if err := query.Offset(q.Offset).Limit(q.Limit).Find(&reports).Error; err != nil {
		return nil, 0, err
	}

	return reports, total, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user input match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (r *repository) FindByUserID(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*entity.CaseReport, int64, error) {
	var reports []*entity.CaseReport
	var total int64

	query := r.withRelations(ctx).
		Model(&entity.CaseReport{}).
		Where("case_reports.user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("case_reports.created_at DESC").Offset(offset).Limit(limit).Find(&reports).Error; err != nil {
		return nil, 0, err
	}

	return reports, total, nil
}

func (r *repository) FindPending(ctx context.Context, excludeUserID uuid.UUID, preferTopics []uuid.UUID, offset, limit int) ([]*entity.CaseReport, int64, error) {
	var reports []*entity.CaseReport
	var total int64

	query := r.withRelations(ctx).
		Model(&entity.CaseReport{}).
		Where("case_reports.status = ?", entity.StatusPending).
		Where("case_reports.user_id <> ?", excludeUserID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// An expression ORDER BY is replaced by any later column Order, so the
	// tie-break lives inside the same expression.
	if len(preferTopics) > 0 {
		query = query.Order(clause.OrderBy{Expression: clause.Expr{
			SQL:  "CASE WHEN case_reports.topic_id IN ? THEN 0 ELSE 1 END, case_reports.created_at ASC",
			Vars: []interface{}{preferTopics},
		}})
	} else {
		query = query.Order("case_reports.created_at ASC")
	}

	if err := query.Offset(offset).Limit(limit).Find(&reports).Error; err != nil {
		return nil, 0, err
	}

	return reports, total, nil
}

func (r *repository) FindByTopics(ctx context.Context, topicIDs []uuid.UUID) ([]*entity.CaseReport, error) {
	reports := []*entity.CaseReport{}
	if len(topicIDs) == 0 {
		return reports, nil
	}

	err := r.withRelations(ctx).
		Where("case_reports.topic_id IN ?", topicIDs).
		Order("case_reports.created_at DESC").
		Find(&reports).Error
	return reports, err
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entity.CaseReport{}, "id = ?", id).Error
}
