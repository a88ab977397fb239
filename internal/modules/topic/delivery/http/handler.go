package handler

import (
	"net/http"

	topicDto "caseflow.dev/caseflowlearn/internal/modules/topic/dto"
	topic "caseflow.dev/caseflowlearn/internal/modules/topic/service"
	commonDto "caseflow.dev/caseflowlearn/pkg/dto"
	"caseflow.dev/caseflowlearn/pkg/response"
	"github.com/gin-gonic/gin"
)

type TopicHandler struct {
	service topic.TopicService
}

func NewTopicHandler(service topic.TopicService) *TopicHandler {
	return &TopicHandler{service: service}
}

func (h *TopicHandler) Recommendations(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	recs, err := h.service.Recommendations(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": recs})
}

func (h *TopicHandler) Accept(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req topicDto.AcceptTopicsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	accepted, err := h.service.AcceptTopics(c.Request.Context(), userID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "topics accepted successfully",
		"data":    accepted,
	})
}

func (h *TopicHandler) Withdraw(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var uri commonDto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid topic id"})
		return
	}

	if err := h.service.WithdrawTopic(c.Request.Context(), userID, uri.UUID()); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "topic withdrawn successfully"})
}

func (h *TopicHandler) Accepted(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	topics, err := h.service.AcceptedTopics(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": topics})
}

func (h *TopicHandler) Cases(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	cases, err := h.service.CasesForAcceptedTopics(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": cases})
}
