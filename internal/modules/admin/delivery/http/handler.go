package handler

import (
	"context"
	"net/http"

	"caseflow.dev/caseflowlearn/internal/entity"
	adminDto "caseflow.dev/caseflowlearn/internal/modules/admin/dto"
	admin "caseflow.dev/caseflowlearn/internal/modules/admin/service"
	commonDto "caseflow.dev/caseflowlearn/pkg/dto"
	"caseflow.dev/caseflowlearn/pkg/response"
	"github.com/gin-gonic/gin"
)

// JobRunner exposes the maintenance scheduler to admins.
type JobRunner interface {
	Names() []string
	RunByName(ctx context.Context, name string) error
}

type AdminHandler struct {
	adminService admin.AdminService
	jobs         JobRunner
}

func NewAdminHandler(adminService admin.AdminService, jobs JobRunner) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		jobs:         jobs,
	}
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	var q adminDto.ListUsersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BindError(c, err)
		return
	}

	res, err := h.adminService.ListUsers(c.Request.Context(), q)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *AdminHandler) ChangeRole(c *gin.Context) {
	actorID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var uri commonDto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BindError(c, err)
		return
	}

	var input adminDto.ChangeRoleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BindError(c, err)
		return
	}

	res, err := h.adminService.ChangeRole(c.Request.Context(), actorID, uri.UUID(), entity.Role(input.Role))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res})
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	actorID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var uri commonDto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BindError(c, err)
		return
	}

	if err := h.adminService.DeleteUser(c.Request.Context(), actorID, uri.UUID()); err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Message(c, http.StatusOK, "user deleted successfully")
}

func (h *AdminHandler) UserStats(c *gin.Context) {
	stats, err := h.adminService.UserStats(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": stats})
}

func (h *AdminHandler) ListJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.jobs.Names()})
}

// RunJob runs a maintenance job now instead of waiting for its schedule.
func (h *AdminHandler) RunJob(c *gin.Context) {
	name := c.Param("name")
	if err := h.jobs.RunByName(c.Request.Context(), name); err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Message(c, http.StatusOK, "job "+name+" completed")
}
