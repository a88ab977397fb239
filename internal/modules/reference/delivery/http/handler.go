package handler

import (
	"net/http"

	"caseflow.dev/caseflowlearn/internal/modules/reference/dto"
	reference "caseflow.dev/caseflowlearn/internal/modules/reference/service"
	commonDto "caseflow.dev/caseflowlearn/pkg/dto"
	"caseflow.dev/caseflowlearn/pkg/response"
	"github.com/gin-gonic/gin"
)

type ReferenceHandler struct {
	service reference.ReferenceService
}

func NewReferenceHandler(service reference.ReferenceService) *ReferenceHandler {
	return &ReferenceHandler{service: service}
}

func (h *ReferenceHandler) ListUniversities(c *gin.Context) {
	universities, err := h.service.ListUniversities(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": universities})
}

func (h *ReferenceHandler) ListDepartments(c *gin.Context) {
	var req commonDto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		response.BindError(c, err)
		return
	}

	departments, err := h.service.ListDepartments(c.Request.Context(), req.UUID())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": departments})
}

func (h *ReferenceHandler) ListTopics(c *gin.Context) {
	topics, err := h.service.ListTopics(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": topics})
}

func (h *ReferenceHandler) CreateUniversity(c *gin.Context) {
	var req dto.CreateUniversityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	university, err := h.service.CreateUniversity(c.Request.Context(), req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, university)
}

func (h *ReferenceHandler) CreateDepartment(c *gin.Context) {
	var uri commonDto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BindError(c, err)
		return
	}

	var req dto.CreateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	department, err := h.service.CreateDepartment(c.Request.Context(), uri.UUID(), req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, department)
}

func (h *ReferenceHandler) CreateTopic(c *gin.Context) {
	var req dto.CreateTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	topic, err := h.service.CreateTopic(c.Request.Context(), req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, topic)
}

func (h *ReferenceHandler) DeleteTopic(c *gin.Context) {
	var req commonDto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		response.BindError(c, err)
		return
	}

	if err := h.service.DeleteTopic(c.Request.Context(), req.UUID()); err != nil {
		response.ResponseError(c, err)
		return
	}

	response.Message(c, http.StatusOK, "topic deleted successfully")
}
