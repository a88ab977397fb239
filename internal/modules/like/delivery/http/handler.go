package handler

import (
	"net/http"

	"caseflow.dev/caseflowlearn/internal/entity"
	caseDto "caseflow.dev/caseflowlearn/internal/modules/casereport/dto"
	like "caseflow.dev/caseflowlearn/internal/modules/like/service"
	commonDto "caseflow.dev/caseflowlearn/pkg/dto"
	"caseflow.dev/caseflowlearn/pkg/response"
	"github.com/gin-gonic/gin"
)

type LikeHandler struct {
	service like.LikeService
}

func NewLikeHandler(service like.LikeService) *LikeHandler {
	return &LikeHandler{service: service}
}

func (h *LikeHandler) bind(c *gin.Context) (caseDto.Viewer, commonDto.IDRequest, bool) {
	var uri commonDto.IDRequest
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return caseDto.Viewer{}, uri, false
	}

	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid case report id"})
		return caseDto.Viewer{}, uri, false
	}

	return caseDto.Viewer{ID: userID, Role: entity.Role(response.GetRole(c))}, uri, true
}

func (h *LikeHandler) Toggle(c *gin.Context) {
	viewer, uri, ok := h.bind(c)
	if !ok {
		return
	}

	status, err := h.service.Toggle(c.Request.Context(), viewer, uri.UUID())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

func (h *LikeHandler) Status(c *gin.Context) {
	viewer, uri, ok := h.bind(c)
	if !ok {
		return
	}

	status, err := h.service.Status(c.Request.Context(), viewer, uri.UUID())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}
