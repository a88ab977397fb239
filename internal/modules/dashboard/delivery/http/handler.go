package handler

import (
	"net/http"

	"caseflow.dev/caseflowlearn/internal/entity"
	caseDto "caseflow.dev/caseflowlearn/internal/modules/casereport/dto"
	dashDto "caseflow.dev/caseflowlearn/internal/modules/dashboard/dto"
	dashboard "caseflow.dev/caseflowlearn/internal/modules/dashboard/service"
	"caseflow.dev/caseflowlearn/pkg/response"
	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	service dashboard.DashboardService
}

func NewDashboardHandler(service dashboard.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

func (h *DashboardHandler) Student(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var q dashDto.TabQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BindError(c, err)
		return
	}

	v := caseDto.Viewer{ID: userID, Role: entity.Role(response.GetRole(c))}
	c.JSON(http.StatusOK, gin.H{"data": h.service.StudentDashboard(c.Request.Context(), v, dashDto.ParseStudentTab(q.Tab))})
}

func (h *DashboardHandler) Evaluator(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var q dashDto.TabQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BindError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": h.service.EvaluatorDashboard(c.Request.Context(), userID, dashDto.ParseEvaluatorTab(q.Tab))})
}
