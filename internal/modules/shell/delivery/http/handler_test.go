package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"caseflow.dev/caseflowlearn/internal/entity"
	shellDto "caseflow.dev/caseflowlearn/internal/modules/shell/dto"
	shell "caseflow.dev/caseflowlearn/internal/modules/shell/service"
	"caseflow.dev/caseflowlearn/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolve(t *testing.T, role entity.Role, path string) shellDto.Resolution {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if role != "" {
		r.Use(func(c *gin.Context) {
			c.Set(response.ContextUserID, uuid.NewString())
			c.Set(response.ContextUserRole, string(role))
		})
	}
	r.GET("/api/shell/resolve", NewShellHandler(shell.NewShellService()).Resolve)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/shell/resolve?path="+url.QueryEscape(path), nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data shellDto.Resolution `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Data
}

func TestResolveAnonymous(t *testing.T) {
	res := resolve(t, "", "/evaluator-dashboard?tab=pending")
	assert.Equal(t, shellDto.ViewEvaluatorAuth, res.View)
	assert.Equal(t, []string{"sign_in", "get_started"}, res.Actions)
}

func TestResolveSignedIn(t *testing.T) {
	res := resolve(t, entity.RoleEvaluator, "/evaluator-auth")
	assert.Equal(t, "/evaluator-dashboard", res.Redirect)
	assert.Contains(t, res.Actions, "sign_out")
}
