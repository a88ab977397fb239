package dto

import (
	"time"

	"caseflow.dev/caseflowlearn/internal/entity"
	caseDto "caseflow.dev/caseflowlearn/internal/modules/casereport/dto"
	commonDto "caseflow.dev/caseflowlearn/pkg/dto"
	"github.com/google/uuid"
)

const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

type StartEvaluationRequest struct {
	CaseReportID string `json:"case_report_id" binding:"required,uuid"`
}

type SubmitEvaluationRequest struct {
	Rating   int    `json:"rating" binding:"required,min=1,max=5"`
	Feedback string `json:"feedback" binding:"max=5000"`
	Decision string `json:"decision" binding:"required,decision"`
}

type EvaluationResponse struct {
	ID           uuid.UUID                   `json:"id"`
	CaseReportID uuid.UUID                   `json:"case_report_id"`
	CaseReport   *caseDto.CaseReportResponse `json:"case_report,omitempty"`
	Evaluator    commonDto.AuthorResponse    `json:"evaluator"`
	Rating       *int                        `json:"rating"`
	Feedback     *string                     `json:"feedback"`
	Status       entity.CaseStatus           `json:"status"`
	CreatedAt    time.Time                   `json:"created_at"`
	UpdatedAt    time.Time                   `json:"updated_at"`
}

type PaginatedEvaluations = commonDto.Paginated[EvaluationResponse]

type EvaluatorStats struct {
	Completed     int64    `json:"completed"`
	Rejected      int64    `json:"rejected"`
	InReview      int64    `json:"in_review"`
	PendingQueue  int64    `json:"pending_queue"`
	AverageRating *float64 `json:"average_rating"`
}

func ToResponse(e *entity.Evaluation) EvaluationResponse {
	res := EvaluationResponse{
		ID:           e.ID,
		CaseReportID: e.CaseReportID,
		Evaluator:    commonDto.AuthorResponse{ID: e.EvaluatorID},
		Rating:       e.Rating,
		Feedback:     e.Feedback,
		Status:       e.Status,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
	if e.Evaluator != nil && e.Evaluator.Profile != nil {
		res.Evaluator.FullName = e.Evaluator.Profile.FullName
		res.Evaluator.AvatarURL = e.Evaluator.Profile.AvatarURL
	}
	if e.CaseReport != nil {
		report := caseDto.ToResponse(e.CaseReport)
		res.CaseReport = &report
	}
	return res
}

func ToResponses(evaluations []*entity.Evaluation) []EvaluationResponse {
	out := make([]EvaluationResponse, 0, len(evaluations))
	for _, e := range evaluations {
		out = append(out, ToResponse(e))
	}
	return out
}
