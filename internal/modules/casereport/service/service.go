package casereport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"caseflow.dev/caseflowlearn/internal/entity"
	caseDto "caseflow.dev/caseflowlearn/internal/modules/casereport/dto"
	"caseflow.dev/caseflowlearn/internal/modules/casereport/repository"
	search "caseflow.dev/caseflowlearn/internal/modules/search/service"
	"caseflow.dev/caseflowlearn/pkg/apperror"
	commonDto "caseflow.dev/caseflowlearn/pkg/dto"
	"caseflow.dev/caseflowlearn/pkg/ratelimiter"
	"caseflow.dev/caseflowlearn/pkg/sanitize"
	"caseflow.dev/caseflowlearn/pkg/storage"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	MsgFileRequired   = "A case report file is required"
	MsgFileType       = "Only PDF, JPG and PNG files are accepted"
	MsgFileTooLarge   = "The file exceeds the maximum upload size"
	MsgTitleRequired  = "Title is required"
	MsgTopicNotFound  = "Selected topic does not exist"
	MsgSubmitFailed   = "Failed to submit case report"
	MsgOnlyStudents   = "only students can submit case reports"
	uploadFolder      = "case-reports"
	defaultMaxUploads = 10 << 20
)

type ProfileLookup interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.Profile, error)
}

type TopicLookup interface {
	ListTopics(ctx context.Context) ([]entity.Topic, error)
	GetTopic(ctx context.Context, id uuid.UUID) (*entity.Topic, error)
}

type Options struct {
	SubmitCooldown time.Duration
	MaxUploadBytes int64
}

type CaseReportService interface {
	Submit(ctx context.Context, viewer caseDto.Viewer, req caseDto.SubmitCaseReportRequest, file *commonDto.UploadFile) (*caseDto.CaseReportResponse, error)
	Browse(ctx context.Context, viewer caseDto.Viewer, filter caseDto.CaseReportFilter) (*caseDto.PaginatedCaseReports, error)
	MyReports(ctx context.Context, userID uuid.UUID, page commonDto.PageQuery) (*caseDto.PaginatedCaseReports, error)
	Get(ctx context.Context, viewer caseDto.Viewer, id uuid.UUID) (*caseDto.CaseReportResponse, error)
	Delete(ctx context.Context, viewer caseDto.Viewer, id uuid.UUID) error
	SubmitForm(ctx context.Context) (*caseDto.SubmitForm, error)
}

type caseReportService struct {
	repo        repository.CaseReportRepository
	profiles    ProfileLookup
	topics      TopicLookup
	fileStorage storage.FileStorage
	redisClient *redis.Client
	meili       search.MeiliSearchService
	opts        Options
}

func NewCaseReportService(
	repo repository.CaseReportRepository,
	profiles ProfileLookup,
	topics TopicLookup,
	fileStorage storage.FileStorage,
	redisClient *redis.Client,
	meili search.MeiliSearchService,
	opts Options,
) CaseReportService {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploads
	}
	return &caseReportService{
		repo:        repo,
		profiles:    profiles,
		topics:      topics,
		fileStorage: fileStorage,
		redisClient: redisClient,
		meili:       meili,
		opts:        opts,
	}
}

func (s *caseReportService) Submit(ctx context.Context, viewer caseDto.Viewer, req caseDto.SubmitCaseReportRequest, file *commonDto.UploadFile) (*caseDto.CaseReportResponse, error) {
	if viewer.Role != entity.RoleStudent {
		return nil, fmt.Errorf("%s: %w", MsgOnlyStudents, apperror.ErrForbidden)
	}

	if file == nil || file.Reader == nil || file.FileName == "" {
		return nil, apperror.Validation(MsgFileRequired)
	}
	if !AcceptedFile(file.FileName) {
		return nil, apperror.Validation(MsgFileType)
	}
	if file.Size > s.opts.MaxUploadBytes {
		return nil, apperror.Validation(MsgFileTooLarge)
	}

	title := sanitize.Text(req.Title)
	if title == "" {
		return nil, apperror.Validation(MsgTitleRequired)
	}

	privacy := entity.PrivacyLevel(req.PrivacyLevel)
	if privacy == "" {
		privacy = entity.PrivacyPublic
	}

	var topicID *uuid.UUID
	if req.TopicID != nil && strings.TrimSpace(*req.TopicID) != "" {
		id, err := uuid.Parse(strings.TrimSpace(*req.TopicID))
		if err != nil {
			return nil, apperror.Validation(MsgTopicNotFound)
		}
		if _, err := s.topics.GetTopic(ctx, id); err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return nil, apperror.Validation(MsgTopicNotFound)
			}
			return nil, apperror.Remote(MsgSubmitFailed, err)
		}
		topicID = &id
	}

	allowed, err := ratelimiter.CheckAndSetRateLimit(ctx, s.redisClient, viewer.ID, ratelimiter.ScopeSubmit, s.opts.SubmitCooldown)
	if err != nil {
		slog.WarnContext(ctx, "rate limit check failed", "user_id", viewer.ID, "error", err)
	} else if !allowed {
		ttl, _ := ratelimiter.GetRateLimitTTL(ctx, s.redisClient, viewer.ID, ratelimiter.ScopeSubmit)
		return nil, &ratelimiter.RateLimitError{
			Message:    fmt.Sprintf("Please wait %d seconds before submitting another case report", int(ttl.Seconds())),
			RetryAfter: ttl,
		}
	}

	submitted := false
	defer func() {
		if !submitted {
			if err := ratelimiter.ClearRateLimit(ctx, s.redisClient, viewer.ID, ratelimiter.ScopeSubmit); err != nil {
				slog.WarnContext(ctx, "failed to clear rate limit", "user_id", viewer.ID, "error", err)
			}
		}
	}()

	profile, err := s.profiles.FindByUserID(ctx, viewer.ID)
	if err != nil {
		return nil, apperror.Remote(MsgSubmitFailed, err)
	}

	fileURL, err := s.fileStorage.Upload(ctx, file.Reader, uploadFolder, file.FileName)
	if err != nil {
		slog.ErrorContext(ctx, "case report upload failed", "user_id", viewer.ID, "error", err)
		return nil, apperror.Remote(MsgSubmitFailed, err)
	}

	report := &entity.CaseReport{
		Title:        title,
		UserID:       viewer.ID,
		TopicID:      topicID,
		FileURL:      fileURL,
		FileName:     filepath.Base(file.FileName),
		PrivacyLevel: privacy,
		Status:       entity.StatusPending,
	}
	if profile != nil {
		report.UniversityID = profile.UniversityID
		report.DepartmentID = profile.DepartmentID
	}

	if err := s.repo.Create(ctx, report); err != nil {
		slog.ErrorContext(ctx, "failed to create case report", "user_id", viewer.ID, "error", err)
		storage.DeleteOrQueue(ctx, s.fileStorage, s.redisClient, fileURL)
		return nil, apperror.Remote(MsgSubmitFailed, err)
	}
	submitted = true

	stored, err := s.repo.FindByID(ctx, report.ID)
	if err != nil {
		stored = report
	}

	if s.meili != nil {
		if err := s.meili.IndexCaseReport(ctx, stored); err != nil {
			slog.WarnContext(ctx, "failed to index case report", "id", report.ID, "error", err)
		}
	}

	res := caseDto.ToResponse(stored)
	return &res, nil
}

func (s *caseReportService) Browse(ctx context.Context, viewer caseDto.Viewer, filter caseDto.CaseReportFilter) (*caseDto.PaginatedCaseReports, error) {
	offset := filter.Normalize()

	viewerUniversity, err := s.viewerUniversity(ctx, viewer.ID)
	if err != nil {
		return nil, err
	}

	q := repository.Query{
		ViewerID:         viewer.ID,
		ViewerRole:       viewer.Role,
		ViewerUniversity: viewerUniversity,
		Search:           strings.TrimSpace(filter.Search),
		TopicID:          parseFilterID(filter.TopicID),
		UniversityID:     parseFilterID(filter.UniversityID),
		Status:           entity.CaseStatus(filter.Status),
		SortBy:           filter.SortBy,
		Offset:           offset,
		Limit:            filter.Limit,
	}

	var (
		reports []*entity.CaseReport
		total   int64
	)

	if q.Search != "" && s.meili != nil {
		reports, total, err = s.searchIndex(ctx, q)
		if err != nil {
			slog.WarnContext(ctx, "search index unavailable, falling back to database", "error", err)
		}
	}
	if reports == nil {
		reports, total, err = s.repo.Find(ctx, q)
		if err != nil {
			return nil, err
		}
	}

	return &caseDto.PaginatedCaseReports{
		Data: caseDto.ToResponses(reports),
		Meta: commonDto.NewPaginationMeta(filter.Page, filter.Limit, total),
	}, nil
}

func (s *caseReportService) searchIndex(ctx context.Context, q repository.Query) ([]*entity.CaseReport, int64, error) {
	ids, total, err := s.meili.SearchCaseReports(ctx, search.CaseReportQuery{
		Text:             q.Search,
		ViewerID:         q.ViewerID,
		ViewerRole:       q.ViewerRole,
		ViewerUniversity: q.ViewerUniversity,
		TopicID:          q.TopicID,
		UniversityID:     q.UniversityID,
		Status:           q.Status,
		SortBy:           q.SortBy,
		Offset:           q.Offset,
		Limit:            q.Limit,
	})
	if err != nil {
		return nil, 0, err
	}

	reports, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	return reports, total, nil
}

func (s *caseReportService) MyReports(ctx context.Context, userID uuid.UUID, page commonDto.PageQuery) (*caseDto.PaginatedCaseReports, error) {
	offset := page.Normalize()

	reports, total, err := s.repo.FindByUserID(ctx, userID, offset, page.Limit)
	if err != nil {
		return nil, err
	}

	return &caseDto.PaginatedCaseReports{
		Data: caseDto.ToResponses(reports),
		Meta: commonDto.NewPaginationMeta(page.Page, page.Limit, total),
	}, nil
}

func (s *caseReportService) Get(ctx context.Context, viewer caseDto.Viewer, id uuid.UUID) (*caseDto.CaseReportResponse, error) {
	report, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if viewer.Role != entity.RoleEvaluator {
		viewerUniversity, err := s.viewerUniversity(ctx, viewer.ID)
		if err != nil {
			return nil, err
		}
		if !report.VisibleTo(viewer.ID, viewer.Role, viewerUniversity) {
			return nil, fmt.Errorf("case report not found: %w", apperror.ErrNotFound)
		}
	}

	res := caseDto.ToResponse(report)
	return &res, nil
}

func (s *caseReportService) Delete(ctx context.Context, viewer caseDto.Viewer, id uuid.UUID) error {
	report, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	if report.UserID != viewer.ID && viewer.Role != entity.RoleAdmin {
		return fmt.Errorf("you can only delete your own case reports: %w", apperror.ErrForbidden)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	storage.DeleteOrQueue(ctx, s.fileStorage, s.redisClient, report.FileURL)

	if s.meili != nil {
		if err := s.meili.DeleteCaseReport(ctx, id); err != nil {
			slog.WarnContext(ctx, "failed to remove case report from index", "id", id, "error", err)
		}
	}

	return nil
}

func (s *caseReportService) SubmitForm(ctx context.Context) (*caseDto.SubmitForm, error) {
	topics, err := s.topics.ListTopics(ctx)
	if err != nil {
		return nil, err
	}

	return &caseDto.SubmitForm{
		AcceptedExtensions: caseDto.AcceptedExtensions,
		PrivacyLevels:      caseDto.PrivacyLevels,
		Topics:             topics,
		MaxUploadBytes:     s.opts.MaxUploadBytes,
	}, nil
}

func (s *caseReportService) find(ctx context.Context, id uuid.UUID) (*entity.CaseReport, error) {
	report, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("case report not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	return report, nil
}

func (s *caseReportService) viewerUniversity(ctx context.Context, userID uuid.UUID) (*uuid.UUID, error) {
	profile, err := s.profiles.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load viewer profile: %w", err)
	}
	if profile == nil {
		return nil, nil
	}
	return profile.UniversityID, nil
}

// AcceptedFile reports whether name has one of the accepted extensions.
func AcceptedFile(name string) bool {
	return slices.Contains(caseDto.AcceptedExtensions, strings.ToLower(filepath.Ext(name)))
}

func parseFilterID(value string) *uuid.UUID {
	if value == "" {
		return nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return nil
	}
	return &id
}
