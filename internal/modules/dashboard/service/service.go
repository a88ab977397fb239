package dashboard

import (
	"context"
	"log/slog"

	caseDto "caseflow.dev/caseflowlearn/internal/modules/casereport/dto"
	dashDto "caseflow.dev/caseflowlearn/internal/modules/dashboard/dto"
	evalDto "caseflow.dev/caseflowlearn/internal/modules/evaluation/dto"
	topicDto "caseflow.dev/caseflowlearn/internal/modules/topic/dto"
	commonDto "caseflow.dev/caseflowlearn/pkg/dto"
	"caseflow.dev/caseflowlearn/pkg/viewstate"
	"github.com/google/uuid"
)

const (
	msgReportsFailed     = "Failed to load case reports"
	msgFormFailed        = "Failed to load submission form"
	msgEvaluationsFailed = "Failed to load evaluations"
	msgStatsFailed       = "Failed to load statistics"
	msgTopicsFailed      = "Failed to load topics"
)

type StudentSources interface {
	Browse(ctx context.Context, viewer caseDto.Viewer, filter caseDto.CaseReportFilter) (*caseDto.PaginatedCaseReports, error)
	MyReports(ctx context.Context, userID uuid.UUID, page commonDto.PageQuery) (*caseDto.PaginatedCaseReports, error)
	SubmitForm(ctx context.Context) (*caseDto.SubmitForm, error)
}

type EvaluationSources interface {
	PendingQueue(ctx context.Context, evaluatorID uuid.UUID, page commonDto.PageQuery) (*caseDto.PaginatedCaseReports, error)
	InReview(ctx context.Context, evaluatorID uuid.UUID, page commonDto.PageQuery) (*evalDto.PaginatedEvaluations, error)
	History(ctx context.Context, evaluatorID uuid.UUID, page commonDto.PageQuery) (*evalDto.PaginatedEvaluations, error)
	Stats(ctx context.Context, evaluatorID uuid.UUID) (*evalDto.EvaluatorStats, error)
}

type TopicSources interface {
	Recommendations(ctx context.Context, evaluatorID uuid.UUID) ([]topicDto.TopicRecommendation, error)
	AcceptedTopics(ctx context.Context, evaluatorID uuid.UUID) ([]topicDto.AcceptedTopic, error)
	CasesForAcceptedTopics(ctx context.Context, evaluatorID uuid.UUID) ([]caseDto.CaseReportResponse, error)
}

type DashboardService interface {
	StudentDashboard(ctx context.Context, viewer caseDto.Viewer, tab dashDto.StudentTab) *dashDto.Dashboard
	EvaluatorDashboard(ctx context.Context, evaluatorID uuid.UUID, tab dashDto.EvaluatorTab) *dashDto.Dashboard
}

type dashboardService struct {
	cases       StudentSources
	evaluations EvaluationSources
	topics      TopicSources
}

func NewDashboardService(cases StudentSources, evaluations EvaluationSources, topics TopicSources) DashboardService {
	return &dashboardService{
		cases:       cases,
		evaluations: evaluations,
		topics:      topics,
	}
}

func idleSources(names ...string) map[string]viewstate.State {
	sources := make(map[string]viewstate.State, len(names))
	for _, n := range names {
		sources[n] = viewstate.Idle()
	}
	return sources
}

func state(ctx context.Context, source string, data any, err error, message string) viewstate.State {
	if err != nil {
		slog.ErrorContext(ctx, "dashboard source failed", "source", source, "error", err)
	}
	return viewstate.From(data, err, message)
}

func (s *dashboardService) StudentDashboard(ctx context.Context, viewer caseDto.Viewer, tab dashDto.StudentTab) *dashDto.Dashboard {
	sources := idleSources(dashDto.SourceBrowse, dashDto.SourceSubmitForm, dashDto.SourceMyReports)

	switch tab {
	case dashDto.StudentSubmit:
		form, err := s.cases.SubmitForm(ctx)
		sources[dashDto.SourceSubmitForm] = state(ctx, dashDto.SourceSubmitForm, form, err, msgFormFailed)
	case dashDto.StudentReports:
		reports, err := s.cases.MyReports(ctx, viewer.ID, commonDto.PageQuery{})
		sources[dashDto.SourceMyReports] = state(ctx, dashDto.SourceMyReports, reports, err, msgReportsFailed)
	default:
		tab = dashDto.StudentBrowse
		reports, err := s.cases.Browse(ctx, viewer, caseDto.CaseReportFilter{})
		sources[dashDto.SourceBrowse] = state(ctx, dashDto.SourceBrowse, reports, err, msgReportsFailed)
	}

	return &dashDto.Dashboard{ActiveTab: string(tab), Sources: sources}
}

func (s *dashboardService) EvaluatorDashboard(ctx context.Context, evaluatorID uuid.UUID, tab dashDto.EvaluatorTab) *dashDto.Dashboard {
	sources := idleSources(
		dashDto.SourcePendingQueue, dashDto.SourceInReview,
		dashDto.SourceHistory, dashDto.SourceStats,
		dashDto.SourceRecommendations, dashDto.SourceAcceptedTopics, dashDto.SourceTopicCases,
	)

	switch tab {
	case dashDto.EvaluatorEvaluations:
		history, err := s.evaluations.History(ctx, evaluatorID, commonDto.PageQuery{})
		sources[dashDto.SourceHistory] = state(ctx, dashDto.SourceHistory, history, err, msgEvaluationsFailed)

		stats, err := s.evaluations.Stats(ctx, evaluatorID)
		sources[dashDto.SourceStats] = state(ctx, dashDto.SourceStats, stats, err, msgStatsFailed)
	case dashDto.EvaluatorRecommendations:
		recs, err := s.topics.Recommendations(ctx, evaluatorID)
		sources[dashDto.SourceRecommendations] = state(ctx, dashDto.SourceRecommendations, recs, err, msgTopicsFailed)

		accepted, err := s.topics.AcceptedTopics(ctx, evaluatorID)
		sources[dashDto.SourceAcceptedTopics] = state(ctx, dashDto.SourceAcceptedTopics, accepted, err, msgTopicsFailed)

		cases, err := s.topics.CasesForAcceptedTopics(ctx, evaluatorID)
		sources[dashDto.SourceTopicCases] = state(ctx, dashDto.SourceTopicCases, cases, err, msgReportsFailed)
	default:
		tab = dashDto.EvaluatorPending
		queue, err := s.evaluations.PendingQueue(ctx, evaluatorID, commonDto.PageQuery{})
		sources[dashDto.SourcePendingQueue] = state(ctx, dashDto.SourcePendingQueue, queue, err, msgReportsFailed)

		inReview, err := s.evaluations.InReview(ctx, evaluatorID, commonDto.PageQuery{})
		sources[dashDto.SourceInReview] = state(ctx, dashDto.SourceInReview, inReview, err, msgEvaluationsFailed)
	}

	return &dashDto.Dashboard{ActiveTab: string(tab), Sources: sources}
}
