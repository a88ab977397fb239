package dto

import "caseflow.dev/caseflowlearn/pkg/viewstate"

type StudentTab string

const (
	StudentBrowse  StudentTab = "browse"
	StudentSubmit  StudentTab = "submit"
	StudentReports StudentTab = "reports"
)

type EvaluatorTab string

const (
	EvaluatorPending         EvaluatorTab = "pending"
	EvaluatorEvaluations     EvaluatorTab = "evaluations"
	EvaluatorRecommendations EvaluatorTab = "recommendations"
)

// Source names returned in Dashboard.Sources.
const (
	SourceBrowse          = "browse"
	SourceSubmitForm      = "submit_form"
	SourceMyReports       = "my_reports"
	SourcePendingQueue    = "pending_queue"
	SourceInReview        = "in_review"
	SourceHistory         = "history"
	SourceStats           = "stats"
	SourceRecommendations = "recommendations"
	SourceAcceptedTopics  = "accepted_topics"
	SourceTopicCases      = "topic_cases"
)

type Dashboard struct {
	ActiveTab string                     `json:"active_tab"`
	Sources   map[string]viewstate.State `json:"sources"`
}

type TabQuery struct {
	Tab string `form:"tab"`
}

// ParseStudentTab falls back to browse for anything unknown.
func ParseStudentTab(q string) StudentTab {
	switch StudentTab(q) {
	case StudentSubmit, StudentReports:
		return StudentTab(q)
	}
	return StudentBrowse
}

// ParseEvaluatorTab falls back to pending for anything unknown.
func ParseEvaluatorTab(q string) EvaluatorTab {
	switch EvaluatorTab(q) {
	case EvaluatorEvaluations, EvaluatorRecommendations:
		return EvaluatorTab(q)
	}
	return EvaluatorPending
}
