package handler

import (
	"errors"
	"fmt"
	"net/http"

	"caseflow.dev/caseflowlearn/internal/entity"
	caseDto "caseflow.dev/caseflowlearn/internal/modules/casereport/dto"
	casereport "caseflow.dev/caseflowlearn/internal/modules/casereport/service"
	commonDto "caseflow.dev/caseflowlearn/pkg/dto"
	"caseflow.dev/caseflowlearn/pkg/ratelimiter"
	"caseflow.dev/caseflowlearn/pkg/response"
	"github.com/gin-gonic/gin"
)

type CaseReportHandler struct {
	service casereport.CaseReportService
}

func NewCaseReportHandler(service casereport.CaseReportService) *CaseReportHandler {
	return &CaseReportHandler{service: service}
}

func viewer(c *gin.Context) (caseDto.Viewer, error) {
	userID, err := response.GetUserID(c)
	if err != nil {
		return caseDto.Viewer{}, err
	}
	return caseDto.Viewer{ID: userID, Role: entity.Role(response.GetRole(c))}, nil
}

func (h *CaseReportHandler) Submit(c *gin.Context) {
	v, err := viewer(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req caseDto.SubmitCaseReportRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BindError(c, err)
		return
	}

	var file *commonDto.UploadFile
	if fileHeader, err := c.FormFile("file"); err == nil && fileHeader != nil {
		f, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded file"})
			return
		}
		defer f.Close()

		file = &commonDto.UploadFile{
			Reader:   f,
			FileName: fileHeader.Filename,
			Size:     fileHeader.Size,
		}
	}

	res, err := h.service.Submit(c.Request.Context(), v, req, file)
	if err != nil {
		var rateLimitErr *ratelimiter.RateLimitError
		if errors.As(err, &rateLimitErr) {
			c.Header("Retry-After", fmt.Sprintf("%.0f", rateLimitErr.RetryAfter.Seconds()))
		}
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "case report submitted successfully",
		"data":    res,
	})
}

func (h *CaseReportHandler) Browse(c *gin.Context) {
	v, err := viewer(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var filter caseDto.CaseReportFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BindError(c, err)
		return
	}

	reports, err := h.service.Browse(c.Request.Context(), v, filter)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, reports)
}

func (h *CaseReportHandler) MyReports(c *gin.Context) {
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

	reports, err := h.service.MyReports(c.Request.Context(), userID, page)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, reports)
}

func (h *CaseReportHandler) Get(c *gin.Context) {
	v, err := viewer(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var uri commonDto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid case report id"})
		return
	}

	report, err := h.service.Get(c.Request.Context(), v, uri.UUID())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": report})
}

func (h *CaseReportHandler) Delete(c *gin.Context) {
	v, err := viewer(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var uri commonDto.IDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid case report id"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), v, uri.UUID()); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "case report deleted successfully"})
}

func (h *CaseReportHandler) SubmitForm(c *gin.Context) {
	form, err := h.service.SubmitForm(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, form)
}
