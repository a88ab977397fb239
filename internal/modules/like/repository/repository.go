package repository

import (
	"context"

	"caseflow.dev/caseflowlearn/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ToggleResult is the state after a toggle.
type ToggleResult struct {
	Liked      bool
	LikesCount int
	AuthorID   uuid.UUID
	Title      string
}

type LikeRepository interface {
	// Toggle adds or removes the user's like and adjusts likes_count in one
	// transaction. It returns gorm.ErrRecordNotFound for an unknown report.
	Toggle(ctx context.Context, caseReportID, userID uuid.UUID) (*ToggleResult, error)
	IsLiked(ctx context.Context, caseReportID, userID uuid.UUID) (bool, error)
	// Recount rewrites likes_count from case_likes for ids and returns the new counts.
	Recount(ctx context.Context, caseReportIDs []uuid.UUID) (map[uuid.UUID]int, error)
}

type likeRepository struct {
	db *gorm.DB
}

func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

func (r *likeRepository) Toggle(ctx context.Context, caseReportID, userID uuid.UUID) (*ToggleResult, error) {
	var result ToggleResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var report entity.CaseReport
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "user_id", "title", "likes_count").
			Where("id = ?", caseReportID).
			First(&report).Error; err != nil {
			return err
		}

		// Find with a slice avoids gorm's record-not-found log noise.
		var existing []entity.CaseLike
		if err := tx.Where("case_report_id = ? AND user_id = ?", caseReportID, userID).
			Limit(1).
			Find(&existing).Error; err != nil {
			return err
		}

		delta := 1
		if len(existing) > 0 {
			if err := tx.Delete(&existing[0]).Error; err != nil {
				return err
			}
			delta = -1
		} else {
			if err := tx.Omit(clause.Associations).Create(&entity.CaseLike{CaseReportID: caseReportID, UserID: userID}).Error; err != nil {
				return err
			}
		}

		count := report.LikesCount + delta
		if count < 0 {
			count = 0
		}
		if err := tx.Model(&entity.CaseReport{}).
			Where("id = ?", caseReportID).
			UpdateColumn("likes_count", count).Error; err != nil {
			return err
		}

		result = ToggleResult{
			Liked:      delta > 0,
			LikesCount: count,
			AuthorID:   report.UserID,
			Title:      report.Title,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *likeRepository) IsLiked(ctx context.Context, caseReportID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.CaseLike{}).
		Where("case_report_id = ? AND user_id = ?", caseReportID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *likeRepository) Recount(ctx context.Context, caseReportIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(caseReportIDs))
	if len(caseReportIDs) == 0 {
		return counts, nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`UPDATE case_reports SET likes_count =
			(SELECT COUNT(*) FROM case_likes WHERE case_likes.case_report_id = case_reports.id)
			WHERE id IN ?`, caseReportIDs).Error; err != nil {
			return err
		}

		var rows []struct {
			ID         uuid.UUID
			LikesCount int
		}
		if err := tx.Model(&entity.CaseReport{}).
			Select("id", "likes_count").
			Where("id IN ?", caseReportIDs).
			Scan(&rows).Error; err != nil {
			return err
		}
		for _, row := range rows {
			counts[row.ID] = row.LikesCount
		}
		return nil
	})
	return counts, err
}
