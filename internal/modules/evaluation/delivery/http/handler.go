package handler

import (
	"net/http"

	"caseflow.dev/caseflowlearn/internal/entity"
	caseDto "caseflow.dev/caseflowlearn/internal/modules/casereport/dto"
	evalDto "caseflow.dev/caseflowlearn/internal/modules/evaluation/dto"
	evaluation "caseflow.dev/caseflowlearn/internal/modules/evaluation/service"
	commonDto "caseflow.dev/caseflowlearn/pkg/dto"
	"caseflow.dev/caseflowlearn/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type EvaluationHandler struct {
	service evaluation.EvaluationService
}

func NewEvaluationHandler(service evaluation.EvaluationService) *EvaluationHandler {
	return &EvaluationHandler{service: service}
}

func (h *EvaluationHandler) PendingQueue(c *gin.Context) {
	h.paged(c, func(userID uuid.UUID, page commonDto.PageQuery) (any, error) {
		return h.service.PendingQueue(c.Request.Context(), userID, page)
	})
}

func (h *EvaluationHandler) InReview(c *gin.Context) {
	h.paged(c, func(userID uuid.UUID, page commonDto.PageQuery) (any, error) {
		return h.service.InReview(c.Request.Context(), userID, page)
	})
}

func (h *EvaluationHandler) History(c *gin.Context) {
	h.paged(c, func(userID uuid.UUID, page commonDto.PageQuery) (any, error) {
		return h.service.History(c.Request.Context(), userID, page)
	})
}

func (h *EvaluationHandler) paged(c *gin.Context, load func(uuid.UUID, commonDto.PageQuery) (any, error)) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var page commonDto.PageQuery
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BindError(c, err)
		return
	}

	res, err := load(userID, page)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *EvaluationHandler) Start(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req evalDto.StartEvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	res, err := h.service.StartEvaluation(c.Request.Context(), userID, uuid.MustParse(req.CaseReportID))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": res})
}

func (h *EvaluationHandler) Submit(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var uri commonDto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid evaluation id"})
		return
	}

	var req evalDto.SubmitEvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	res, err := h.service.SubmitEvaluation(c.Request.Context(), userID, uri.UUID(), req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "evaluation submitted successfully",
		"data":    res,
	})
}

func (h *EvaluationHandler) Abandon(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var uri commonDto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid evaluation id"})
		return
	}

	if err := h.service.AbandonEvaluation(c.Request.Context(), userID, uri.UUID()); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "evaluation abandoned, case report returned to the queue"})
}

func (h *EvaluationHandler) ForReport(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var uri commonDto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid case report id"})
		return
	}

	viewer := caseDto.Viewer{ID: userID, Role: entity.Role(response.GetRole(c))}
	res, err := h.service.ForReport(c.Request.Context(), viewer, uri.UUID())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res})
}

func (h *EvaluationHandler) Stats(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	stats, err := h.service.Stats(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
