package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"caseflow.dev/caseflowlearn/internal/entity"
	caseDto "caseflow.dev/caseflowlearn/internal/modules/casereport/dto"
	"caseflow.dev/caseflowlearn/pkg/apperror"
	commonDto "caseflow.dev/caseflowlearn/pkg/dto"
	"caseflow.dev/caseflowlearn/pkg/ratelimiter"
	"caseflow.dev/caseflowlearn/pkg/response"
	"caseflow.dev/caseflowlearn/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	gotFile    *commonDto.UploadFile
	gotContent string
	submitErr  error
}

func (s *stubService) Submit(ctx context.Context, v caseDto.Viewer, req caseDto.SubmitCaseReportRequest, file *commonDto.UploadFile) (*caseDto.CaseReportResponse, error) {
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	if file == nil {
		return nil, apperror.Validation("A case report file is required")
	}
	s.gotFile = file
	content, _ := io.ReadAll(file.Reader)
	s.gotContent = string(content)
	return &caseDto.CaseReportResponse{ID: uuid.New(), Title: req.Title, FileName: file.FileName, Status: entity.StatusPending}, nil
}

func (s *stubService) Browse(ctx context.Context, v caseDto.Viewer, f caseDto.CaseReportFilter) (*caseDto.PaginatedCaseReports, error) {
	return &caseDto.PaginatedCaseReports{Data: []caseDto.CaseReportResponse{}}, nil
}

func (s *stubService) MyReports(ctx context.Context, userID uuid.UUID, p commonDto.PageQuery) (*caseDto.PaginatedCaseReports, error) {
	return &caseDto.PaginatedCaseReports{Data: []caseDto.CaseReportResponse{}}, nil
}

func (s *stubService) Get(ctx context.Context, v caseDto.Viewer, id uuid.UUID) (*caseDto.CaseReportResponse, error) {
	return nil, apperror.ErrNotFound
}

func (s *stubService) Delete(ctx context.Context, v caseDto.Viewer, id uuid.UUID) error {
	return nil
}

func (s *stubService) SubmitForm(ctx context.Context) (*caseDto.SubmitForm, error) {
	return &caseDto.SubmitForm{AcceptedExtensions: caseDto.AcceptedExtensions}, nil
}

func newRouter(svc *stubService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	validator.Setup()

	h := NewCaseReportHandler(svc)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(response.ContextUserID, uuid.NewString())
		c.Set(response.ContextUserRole, string(entity.RoleStudent))
	})
	r.POST("/case-reports", h.Submit)
	r.GET("/case-reports/:id", h.Get)
	return r
}

func multipartBody(t *testing.T, fields map[string]string, fileName, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileName != "" {
		part, err := w.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestSubmitWithoutFileIsRejected(t *testing.T) {
	r := newRouter(&stubService{})

	body, contentType := multipartBody(t, map[string]string{"title": "Chest pain"}, "", "")
	req := httptest.NewRequest(http.MethodPost, "/case-reports", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "A case report file is required")
}

func TestSubmitWithFileReturnsFileName(t *testing.T) {
	svc := &stubService{}
	r := newRouter(svc)

	body, contentType := multipartBody(t, map[string]string{"title": "Chest pain", "privacy_level": "private"}, "ecg.pdf", "%PDF-1.7")
	req := httptest.NewRequest(http.MethodPost, "/case-reports", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var res struct {
		Data caseDto.CaseReportResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "ecg.pdf", res.Data.FileName)
	assert.Equal(t, "%PDF-1.7", svc.gotContent)
}

func TestSubmitInvalidPrivacyLevel(t *testing.T) {
	r := newRouter(&stubService{})

	body, contentType := multipartBody(t, map[string]string{"title": "Chest pain", "privacy_level": "everyone"}, "ecg.pdf", "x")
	req := httptest.NewRequest(http.MethodPost, "/case-reports", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "privacy_level must be one of")
}

func TestSubmitRateLimitedSetsRetryAfter(t *testing.T) {
	r := newRouter(&stubService{submitErr: &ratelimiter.RateLimitError{Message: "Please wait 30 seconds", RetryAfter: 30 * time.Second}})

	body, contentType := multipartBody(t, map[string]string{"title": "Chest pain"}, "ecg.pdf", "x")
	req := httptest.NewRequest(http.MethodPost, "/case-reports", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
}

func TestGetInvalidID(t *testing.T) {
	r := newRouter(&stubService{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/case-reports/not-a-uuid", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
