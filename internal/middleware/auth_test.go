package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"caseflow.dev/caseflowlearn/internal/entity"
	shellHttp "caseflow.dev/caseflowlearn/internal/modules/shell/delivery/http"
	shellDto "caseflow.dev/caseflowlearn/internal/modules/shell/dto"
	shell "caseflow.dev/caseflowlearn/internal/modules/shell/service"
	user "caseflow.dev/caseflowlearn/internal/modules/user/service"
	"caseflow.dev/caseflowlearn/pkg/apperror"
	"caseflow.dev/caseflowlearn/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVerifier struct {
	tokens map[string]*user.Claims
	users  map[uuid.UUID]*entity.User
}

func (f *fakeVerifier) Authenticate(ctx context.Context, token string) (*user.Claims, error) {
	if c, ok := f.tokens[token]; ok {
		return c, nil
	}
	return nil, apperror.New(http.StatusUnauthorized, "invalid or expired token", apperror.ErrUnauthorized)
}

func (f *fakeVerifier) GetCurrentUser(ctx context.Context, token string) (*entity.User, error) {
	c, ok := f.tokens[token]
	if !ok {
		return nil, nil
	}
	id, err := c.UserID()
	if err != nil {
		return nil, nil
	}
	return f.users[id], nil
}

func (f *fakeVerifier) GetUser(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, apperror.ErrNotFound
}

func claimsFor(id uuid.UUID, role entity.Role) *user.Claims {
	return &user.Claims{Role: role, RegisteredClaims: jwt.RegisteredClaims{Subject: id.String()}}
}

// newVerifier knows three tokens: a live student, an account that has been
// deleted, and a student who has since been promoted to evaluator.
func newVerifier() (*fakeVerifier, uuid.UUID) {
	studentID := uuid.New()
	deletedID := uuid.New()
	promotedID := uuid.New()

	return &fakeVerifier{
		tokens: map[string]*user.Claims{
			"student-token":  claimsFor(studentID, entity.RoleStudent),
			"deleted-token":  claimsFor(deletedID, entity.RoleStudent),
			"promoted-token": claimsFor(promotedID, entity.RoleStudent),
		},
		users: map[uuid.UUID]*entity.User{
			studentID:  {ID: studentID, Role: entity.RoleStudent},
			promotedID: {ID: promotedID, Role: entity.RoleEvaluator},
		},
	}, studentID
}

func setup() (*gin.Engine, uuid.UUID) {
	gin.SetMode(gin.TestMode)
	verifier, studentID := newVerifier()
	m := NewAuthMiddleware(verifier)

	r := gin.New()
	r.GET("/me", m.RequireAuth(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(response.ContextUserID))
	})
	r.GET("/maybe", m.OptionalAuth(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(response.ContextUserRole))
	})
	r.GET("/evaluator-only", m.RequireAuth(), m.RequireRole(entity.RoleEvaluator), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/api/shell/resolve", m.OptionalAuth(), shellHttp.NewShellHandler(shell.NewShellService()).Resolve)
	return r, studentID
}

func get(r *gin.Engine, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	r, studentID := setup()

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"missing token", "", "", http.StatusUnauthorized},
		{"bad token", "Bearer nope", "", http.StatusUnauthorized},
		{"header token", "Bearer student-token", "", http.StatusOK},
		{"query token", "", "?token=student-token", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, studentID.String(), w.Body.String())
			}
		})
	}
}

func TestOptionalAuthLetsAnonymousThrough(t *testing.T) {
	r, _ := setup()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/maybe", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/maybe", nil)
	req.Header.Set("Authorization", "Bearer student-token")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "student", w.Body.String())
}

func TestRequireRoleForbidsOtherRoles(t *testing.T) {
	r, _ := setup()

	req := httptest.NewRequest(http.MethodGet, "/evaluator-only", nil)
	req.Header.Set("Authorization", "Bearer student-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireAuthRejectsDeletedAccount(t *testing.T) {
	r, _ := setup()

	w := get(r, "/me", "deleted-token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "account no longer exists")
}

func TestAuthUsesStoredRole(t *testing.T) {
	r, _ := setup()

	assert.Equal(t, "evaluator", get(r, "/maybe", "promoted-token").Body.String())
	assert.Equal(t, http.StatusNoContent, get(r, "/evaluator-only", "promoted-token").Code)
	assert.Empty(t, get(r, "/maybe", "deleted-token").Body.String())
}

func TestShellResolveFollowsStoredAccount(t *testing.T) {
	r, _ := setup()

	resolve := func(path, token string) shellDto.Resolution {
		w := get(r, "/api/shell/resolve?path="+path, token)
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Data shellDto.Resolution `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		return body.Data
	}

	deleted := resolve("/student-dashboard", "deleted-token")
	assert.Equal(t, shellDto.ViewStudentAuth, deleted.View)
	assert.NotContains(t, deleted.Actions, shellDto.ActionSignOut)

	promoted := resolve("/evaluator-dashboard", "promoted-token")
	assert.Equal(t, shellDto.ViewEvaluatorDashboard, promoted.View)
	assert.Empty(t, promoted.Redirect)
	assert.Contains(t, promoted.Actions, shellDto.ActionPendingReviews)
}
