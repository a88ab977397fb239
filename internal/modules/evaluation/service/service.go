package evaluation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"caseflow.dev/caseflowlearn/internal/entity"
	caseDto "caseflow.dev/caseflowlearn/internal/modules/casereport/dto"
	caseRepo "caseflow.dev/caseflowlearn/internal/modules/casereport/repository"
	evalDto "caseflow.dev/caseflowlearn/internal/modules/evaluation/dto"
	evalRepo "caseflow.dev/caseflowlearn/internal/modules/evaluation/repository"
	"caseflow.dev/caseflowlearn/pkg/apperror"
	commonDto "caseflow.dev/caseflowlearn/pkg/dto"
	"caseflow.dev/caseflowlearn/pkg/sanitize"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TopicPreferences returns the topics an evaluator has accepted.
type TopicPreferences interface {
	AcceptedTopicIDs(ctx context.Context, evaluatorID uuid.UUID) ([]uuid.UUID, error)
}

type Notifier interface {
	CreateNotification(ctx context.Context, notification *entity.Notification) error
}

type EvaluationService interface {
	PendingQueue(ctx context.Context, evaluatorID uuid.UUID, page commonDto.PageQuery) (*caseDto.PaginatedCaseReports, error)
	StartEvaluation(ctx context.Context, evaluatorID, caseReportID uuid.UUID) (*evalDto.EvaluationResponse, error)
	SubmitEvaluation(ctx context.Context, evaluatorID, evaluationID uuid.UUID, req evalDto.SubmitEvaluationRequest) (*evalDto.EvaluationResponse, error)
	// AbandonEvaluation gives up an unfinished review and returns the report
	// to the pending queue.
	AbandonEvaluation(ctx context.Context, evaluatorID, evaluationID uuid.UUID) error
	ReleaseReviews(ctx context.Context, evaluatorID uuid.UUID) (int64, error)
	ReleaseStaleReviews(ctx context.Context, age time.Duration) (int64, error)
	InReview(ctx context.Context, evaluatorID uuid.UUID, page commonDto.PageQuery) (*evalDto.PaginatedEvaluations, error)
	History(ctx context.Context, evaluatorID uuid.UUID, page commonDto.PageQuery) (*evalDto.PaginatedEvaluations, error)
	ForReport(ctx context.Context, viewer caseDto.Viewer, caseReportID uuid.UUID) ([]evalDto.EvaluationResponse, error)
	Stats(ctx context.Context, evaluatorID uuid.UUID) (*evalDto.EvaluatorStats, error)
}

type evaluationService struct {
	repo     evalRepo.EvaluationRepository
	reports  caseRepo.CaseReportRepository
	topics   TopicPreferences
	notifier Notifier
}

func NewEvaluationService(repo evalRepo.EvaluationRepository, reports caseRepo.CaseReportRepository, topics TopicPreferences, notifier Notifier) EvaluationService {
	return &evaluationService{
		repo:     repo,
		reports:  reports,
		topics:   topics,
		notifier: notifier,
	}
}

func (s *evaluationService) PendingQueue(ctx context.Context, evaluatorID uuid.UUID, page commonDto.PageQuery) (*caseDto.PaginatedCaseReports, error) {
	offset := page.Normalize()

	var preferred []uuid.UUID
	if s.topics != nil {
		ids, err := s.topics.AcceptedTopicIDs(ctx, evaluatorID)
		if err != nil {
			return nil, err
		}
		preferred = ids
	}

	reports, total, err := s.reports.FindPending(ctx, evaluatorID, preferred, offset, page.Limit)
	if err != nil {
		return nil, err
	}

	return &caseDto.PaginatedCaseReports{
		Data: caseDto.ToResponses(reports),
		Meta: commonDto.NewPaginationMeta(page.Page, page.Limit, total),
	}, nil
}

func (s *evaluationService) StartEvaluation(ctx context.Context, evaluatorID, caseReportID uuid.UUID) (*evalDto.EvaluationResponse, error) {
	report, err := s.reports.FindByID(ctx, caseReportID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("case report not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}

	if report.UserID == evaluatorID {
		return nil, fmt.Errorf("you cannot evaluate your own case report: %w", apperror.ErrForbidden)
	}

	evaluation, err := s.repo.Start(ctx, caseReportID, evaluatorID)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, fmt.Errorf("case report not found: %w", apperror.ErrNotFound)
		case errors.Is(err, evalRepo.ErrStateChanged):
			return nil, fmt.Errorf("case report is no longer pending: %w", apperror.ErrConflict)
		}
		return nil, err
	}

	report.Status = entity.StatusUnderReview
	evaluation.CaseReport = report
	res := evalDto.ToResponse(evaluation)
	return &res, nil
}

func (s *evaluationService) SubmitEvaluation(ctx context.Context, evaluatorID, evaluationID uuid.UUID, req evalDto.SubmitEvaluationRequest) (*evalDto.EvaluationResponse, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, apperror.Validation("Rating must be between 1 and 5")
	}

	var status entity.CaseStatus
	switch req.Decision {
	case evalDto.DecisionApprove:
		status = entity.StatusCompleted
	case evalDto.DecisionReject:
		status = entity.StatusRejected
	default:
		return nil, apperror.Validation("Decision must be either approve or reject")
	}

	evaluation, err := s.find(ctx, evaluationID)
	if err != nil {
		return nil, err
	}
	if evaluation.EvaluatorID != evaluatorID {
		return nil, fmt.Errorf("you can only submit your own evaluations: %w", apperror.ErrForbidden)
	}
	if evaluation.Status != entity.StatusUnderReview {
		return nil, fmt.Errorf("evaluation has already been submitted: %w", apperror.ErrConflict)
	}

	rating := req.Rating
	evaluation.Rating = &rating
	evaluation.Feedback = sanitize.Optional(&req.Feedback)
	evaluation.Status = status

	if err := s.repo.Submit(ctx, evaluation); err != nil {
		if errors.Is(err, evalRepo.ErrStateChanged) {
			return nil, fmt.Errorf("evaluation has already been submitted: %w", apperror.ErrConflict)
		}
		return nil, err
	}

	if evaluation.CaseReport != nil {
		evaluation.CaseReport.Status = status
		s.notifyStudent(ctx, evaluation)
	}

	res := evalDto.ToResponse(evaluation)
	return &res, nil
}

func (s *evaluationService) AbandonEvaluation(ctx context.Context, evaluatorID, evaluationID uuid.UUID) error {
	evaluation, err := s.find(ctx, evaluationID)
	if err != nil {
		return err
	}
	if evaluation.EvaluatorID != evaluatorID {
		return fmt.Errorf("you can only abandon your own evaluations: %w", apperror.ErrForbidden)
	}
	if evaluation.Status != entity.StatusUnderReview {
		return fmt.Errorf("evaluation has already been submitted: %w", apperror.ErrConflict)
	}

	if err := s.repo.Abandon(ctx, evaluation); err != nil {
		if errors.Is(err, evalRepo.ErrStateChanged) {
			return fmt.Errorf("evaluation has already been submitted: %w", apperror.ErrConflict)
		}
		return err
	}
	return nil
}

func (s *evaluationService) ReleaseReviews(ctx context.Context, evaluatorID uuid.UUID) (int64, error) {
	n, err := s.repo.ReleaseByEvaluator(ctx, evaluatorID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.InfoContext(ctx, "reviews returned to the queue", "evaluator_id", evaluatorID, "count", n)
	}
	return n, nil
}

func (s *evaluationService) ReleaseStaleReviews(ctx context.Context, age time.Duration) (int64, error) {
	return s.repo.ReleaseStale(ctx, time.Now().Add(-age))
}

func (s *evaluationService) notifyStudent(ctx context.Context, evaluation *entity.Evaluation) {
	if s.notifier == nil {
		return
	}

	verdict := "approved"
	if evaluation.Status == entity.StatusRejected {
		verdict = "rejected"
	}

	notif := &entity.Notification{
		UserID:     evaluation.CaseReport.UserID,
		ActorID:    evaluation.EvaluatorID,
		EntityID:   evaluation.CaseReportID,
		EntityType: "case_report",
		Type:       entity.NotificationEvaluationCompleted,
		Message:    fmt.Sprintf("Your case report %q was %s", evaluation.CaseReport.Title, verdict),
	}
	if err := s.notifier.CreateNotification(ctx, notif); err != nil {
		slog.WarnContext(ctx, "failed to notify student of evaluation", "evaluation_id", evaluation.ID, "error", err)
	}
}

func (s *evaluationService) InReview(ctx context.Context, evaluatorID uuid.UUID, page commonDto.PageQuery) (*evalDto.PaginatedEvaluations, error) {
	return s.byEvaluator(ctx, evaluatorID, []entity.CaseStatus{entity.StatusUnderReview}, page)
}

func (s *evaluationService) History(ctx context.Context, evaluatorID uuid.UUID, page commonDto.PageQuery) (*evalDto.PaginatedEvaluations, error) {
	return s.byEvaluator(ctx, evaluatorID, []entity.CaseStatus{entity.StatusCompleted, entity.StatusRejected}, page)
}

func (s *evaluationService) byEvaluator(ctx context.Context, evaluatorID uuid.UUID, statuses []entity.CaseStatus, page commonDto.PageQuery) (*evalDto.PaginatedEvaluations, error) {
	offset := page.Normalize()

	evaluations, total, err := s.repo.FindByEvaluator(ctx, evaluatorID, statuses, offset, page.Limit)
	if err != nil {
		return nil, err
	}

	return &evalDto.PaginatedEvaluations{
		Data: evalDto.ToResponses(evaluations),
		Meta: commonDto.NewPaginationMeta(page.Page, page.Limit, total),
	}, nil
}

func (s *evaluationService) ForReport(ctx context.Context, viewer caseDto.Viewer, caseReportID uuid.UUID) ([]evalDto.EvaluationResponse, error) {
	report, err := s.reports.FindByID(ctx, caseReportID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("case report not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}

	if report.UserID != viewer.ID && viewer.Role != entity.RoleEvaluator && viewer.Role != entity.RoleAdmin {
		return nil, fmt.Errorf("only the author and evaluators can read evaluations: %w", apperror.ErrForbidden)
	}

	evaluations, err := s.repo.FindByCaseReport(ctx, caseReportID)
	if err != nil {
		return nil, err
	}
	return evalDto.ToResponses(evaluations), nil
}

func (s *evaluationService) Stats(ctx context.Context, evaluatorID uuid.UUID) (*evalDto.EvaluatorStats, error) {
	stats, err := s.repo.Stats(ctx, evaluatorID)
	if err != nil {
		return nil, err
	}

	_, pending, err := s.reports.FindPending(ctx, evaluatorID, nil, 0, 1)
	if err != nil {
		return nil, err
	}

	return &evalDto.EvaluatorStats{
		Completed:     stats.Completed,
		Rejected:      stats.Rejected,
		InReview:      stats.InReview,
		PendingQueue:  pending,
		AverageRating: stats.AverageRating,
	}, nil
}

func (s *evaluationService) find(ctx context.Context, id uuid.UUID) (*entity.Evaluation, error) {
	evaluation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("evaluation not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	return evaluation, nil
}
