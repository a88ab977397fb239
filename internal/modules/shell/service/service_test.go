package shell

import (
	"testing"

	"caseflow.dev/caseflowlearn/internal/entity"
	shellDto "caseflow.dev/caseflowlearn/internal/modules/shell/dto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func session(role entity.Role) *shellDto.Session {
	return &shellDto.Session{UserID: uuid.New(), Role: role}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		session  *shellDto.Session
		view     string
		tab      string
		redirect string
	}{
		{name: "landing", path: "/", view: shellDto.ViewLanding},
		{name: "empty path is landing", path: "", view: shellDto.ViewLanding},
		{name: "student dashboard signed out shows auth", path: "/student-dashboard", view: shellDto.ViewStudentAuth},
		{name: "evaluator dashboard signed out shows auth", path: "/evaluator-dashboard?tab=evaluations", view: shellDto.ViewEvaluatorAuth},
		{name: "student auth page", path: "/student-auth", view: shellDto.ViewStudentAuth},
		{name: "evaluator auth page", path: "/evaluator-auth", view: shellDto.ViewEvaluatorAuth},
		{
			name: "student on auth page goes to dashboard", path: "/student-auth",
			session: session(entity.RoleStudent), view: shellDto.ViewStudentDashboard, redirect: "/student-dashboard",
		},
		{
			name: "evaluator on student auth goes to own dashboard", path: "/student-auth",
			session: session(entity.RoleEvaluator), view: shellDto.ViewEvaluatorDashboard, redirect: "/evaluator-dashboard",
		},
		{
			name: "student default tab", path: "/student-dashboard",
			session: session(entity.RoleStudent), view: shellDto.ViewStudentDashboard, tab: "browse",
		},
		{
			name: "student submit tab", path: "/student-dashboard?tab=submit",
			session: session(entity.RoleStudent), view: shellDto.ViewStudentDashboard, tab: "submit",
		},
		{
			name: "unknown tab falls back", path: "/student-dashboard/?tab=nope",
			session: session(entity.RoleStudent), view: shellDto.ViewStudentDashboard, tab: "browse",
		},
		{
			name: "student on evaluator dashboard is redirected", path: "/evaluator-dashboard?tab=pending",
			session: session(entity.RoleStudent), view: shellDto.ViewStudentDashboard, redirect: "/student-dashboard",
		},
		{
			name: "evaluator on student dashboard is redirected", path: "/student-dashboard",
			session: session(entity.RoleEvaluator), view: shellDto.ViewEvaluatorDashboard, redirect: "/evaluator-dashboard",
		},
		{
			name: "evaluator tab", path: "/evaluator-dashboard?tab=evaluations",
			session: session(entity.RoleEvaluator), view: shellDto.ViewEvaluatorDashboard, tab: "evaluations",
		},
		{
			name: "admin may open either dashboard", path: "/evaluator-dashboard",
			session: session(entity.RoleAdmin), view: shellDto.ViewEvaluatorDashboard, tab: "pending",
		},
		{name: "unknown path", path: "/somewhere/else", view: shellDto.ViewNotFound},
	}

	svc := NewShellService()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := svc.Resolve(tt.path, tt.session)
			assert.Equal(t, tt.view, res.View)
			assert.Equal(t, tt.tab, res.Tab)
			assert.Equal(t, tt.redirect, res.Redirect)
		})
	}
}

func TestActionsComeFromSession(t *testing.T) {
	svc := NewShellService()

	// A dashboard-looking path does not make a signed-out caller look signed in.
	out := svc.Resolve("/student-dashboard", nil)
	assert.Equal(t, []string{"sign_in", "get_started"}, out.Actions)

	// And a landing path does not hide a signed-in caller's actions.
	in := svc.Resolve("/", session(entity.RoleStudent))
	assert.Equal(t, []string{"dashboard", "submit_report", "profile", "sign_out"}, in.Actions)

	assert.Equal(t, []string{"dashboard", "pending_reviews", "profile", "sign_out"}, Actions(session(entity.RoleEvaluator)))
	assert.Equal(t, []string{"admin", "sign_out"}, Actions(session(entity.RoleAdmin)))
}
