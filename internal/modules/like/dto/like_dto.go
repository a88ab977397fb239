package dto

import "github.com/google/uuid"

type LikeStatus struct {
	CaseReportID uuid.UUID `json:"case_report_id"`
	Liked        bool      `json:"liked"`
	LikesCount   int       `json:"likes_count"`
}
