package handler

import (
	"net/http"

	"caseflow.dev/caseflowlearn/internal/entity"
	shellDto "caseflow.dev/caseflowlearn/internal/modules/shell/dto"
	shell "caseflow.dev/caseflowlearn/internal/modules/shell/service"
	"caseflow.dev/caseflowlearn/pkg/response"
	"github.com/gin-gonic/gin"
)

type ShellHandler struct {
	service shell.ShellService
}

func NewShellHandler(service shell.ShellService) *ShellHandler {
	return &ShellHandler{service: service}
}

// Resolve expects OptionalAuth in front of it.
func (h *ShellHandler) Resolve(c *gin.Context) {
	var q shellDto.ResolveQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BindError(c, err)
		return
	}

	var session *shellDto.Session
	if userID, err := response.GetUserID(c); err == nil {
		session = &shellDto.Session{UserID: userID, Role: entity.Role(response.GetRole(c))}
	}

	c.JSON(http.StatusOK, gin.H{"data": h.service.Resolve(q.Path, session)})
}
