package shell

import (
	"net/url"
	"strings"

	"caseflow.dev/caseflowlearn/internal/entity"
	dashDto "caseflow.dev/caseflowlearn/internal/modules/dashboard/dto"
	shellDto "caseflow.dev/caseflowlearn/internal/modules/shell/dto"
)

const (
	PathLanding            = "/"
	PathStudentAuth        = "/student-auth"
	PathEvaluatorAuth      = "/evaluator-auth"
	PathStudentDashboard   = "/student-dashboard"
	PathEvaluatorDashboard = "/evaluator-dashboard"
)

type ShellService interface {
	Resolve(pathWithQuery string, session *shellDto.Session) shellDto.Resolution
}

type shellService struct{}

func NewShellService() ShellService {
	return &shellService{}
}

// Resolve decides what the browser shows for a location. Authorization comes
// from session alone; the path only selects the page.
func (s *shellService) Resolve(pathWithQuery string, session *shellDto.Session) shellDto.Resolution {
	path, query := splitLocation(pathWithQuery)

	res := shellDto.Resolution{Actions: Actions(session)}

	switch path {
	case PathLanding:
		res.View = shellDto.ViewLanding

	case PathStudentAuth, PathEvaluatorAuth:
		if session != nil {
			target := DashboardPath(session.Role)
			res.Redirect = target
			res.View = viewFor(target)
			return res
		}
		res.View = shellDto.ViewStudentAuth
		if path == PathEvaluatorAuth {
			res.View = shellDto.ViewEvaluatorAuth
		}

	case PathStudentDashboard:
		if session == nil {
			res.View = shellDto.ViewStudentAuth
			return res
		}
		if session.Role == entity.RoleEvaluator {
			return redirectTo(res, PathEvaluatorDashboard)
		}
		res.View = shellDto.ViewStudentDashboard
		res.Tab = string(dashDto.ParseStudentTab(query.Get("tab")))

	case PathEvaluatorDashboard:
		if session == nil {
			res.View = shellDto.ViewEvaluatorAuth
			return res
		}
		if session.Role == entity.RoleStudent {
			return redirectTo(res, PathStudentDashboard)
		}
		res.View = shellDto.ViewEvaluatorDashboard
		res.Tab = string(dashDto.ParseEvaluatorTab(query.Get("tab")))

	default:
		res.View = shellDto.ViewNotFound
	}

	return res
}

// DashboardPath is where a signed-in role lands. Admins have no dashboard of
// their own and go to the landing page.
func DashboardPath(role entity.Role) string {
	switch role {
	case entity.RoleStudent:
		return PathStudentDashboard
	case entity.RoleEvaluator:
		return PathEvaluatorDashboard
	default:
		return PathLanding
	}
}

// Actions lists the header actions for session.
func Actions(session *shellDto.Session) []string {
	if session == nil {
		return []string{shellDto.ActionSignIn, shellDto.ActionGetStarted}
	}

	switch session.Role {
	case entity.RoleStudent:
		return []string{shellDto.ActionDashboard, shellDto.ActionSubmitReport, shellDto.ActionProfile, shellDto.ActionSignOut}
	case entity.RoleEvaluator:
		return []string{shellDto.ActionDashboard, shellDto.ActionPendingReviews, shellDto.ActionProfile, shellDto.ActionSignOut}
	case entity.RoleAdmin:
		return []string{shellDto.ActionAdmin, shellDto.ActionSignOut}
	default:
		return []string{shellDto.ActionSignOut}
	}
}

func redirectTo(res shellDto.Resolution, target string) shellDto.Resolution {
	res.Redirect = target
	res.View = viewFor(target)
	res.Tab = ""
	return res
}

func viewFor(path string) string {
	switch path {
	case PathStudentDashboard:
		return shellDto.ViewStudentDashboard
	case PathEvaluatorDashboard:
		return shellDto.ViewEvaluatorDashboard
	default:
		return shellDto.ViewLanding
	}
}

func splitLocation(raw string) (string, url.Values) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return PathLanding, url.Values{}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return raw, url.Values{}
	}

	path := u.Path
	if path == "" {
		path = PathLanding
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path, u.Query()
}
