package dto

import (
	"caseflow.dev/caseflowlearn/internal/entity"
	"github.com/google/uuid"
)

const (
	ViewLanding            = "landing"
	ViewStudentAuth        = "student_auth"
	ViewEvaluatorAuth      = "evaluator_auth"
	ViewStudentDashboard   = "student_dashboard"
	ViewEvaluatorDashboard = "evaluator_dashboard"
	ViewNotFound           = "not_found"
)

const (
	ActionSignIn         = "sign_in"
	ActionGetStarted     = "get_started"
	ActionDashboard      = "dashboard"
	ActionSubmitReport   = "submit_report"
	ActionPendingReviews = "pending_reviews"
	ActionProfile        = "profile"
	ActionAdmin          = "admin"
	ActionSignOut        = "sign_out"
)

// Session is the signed-in caller; a nil *Session means signed out.
type Session struct {
	UserID uuid.UUID
	Role   entity.Role
}

type ResolveQuery struct {
	Path string `form:"path" binding:"omitempty,max=2048"`
}

type Resolution struct {
	View     string   `json:"view"`
	Tab      string   `json:"tab,omitempty"`
	Redirect string   `json:"redirect,omitempty"`
	Actions  []string `json:"actions"`
}
