package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"caseflow.dev/caseflowlearn/internal/entity"
	"github.com/google/uuid"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
)

const caseReportsIndex = "case_reports"

// CaseReportQuery mirrors the browse filter; visibility is always applied
// unless the viewer is an admin.
type CaseReportQuery struct {
	Text             string
	ViewerID         uuid.UUID
	ViewerRole       entity.Role
	ViewerUniversity *uuid.UUID
	TopicID          *uuid.UUID
	UniversityID     *uuid.UUID
	Status           entity.CaseStatus
	SortBy           string
	Offset           int
	Limit            int
}

type MeiliSearchService interface {
	IndexCaseReport(ctx context.Context, report *entity.CaseReport) error
	DeleteCaseReport(ctx context.Context, id uuid.UUID) error
	// SearchCaseReports returns matching ids in rank order and the estimated total.
	SearchCaseReports(ctx context.Context, q CaseReportQuery) ([]uuid.UUID, int64, error)
}

type meiliSearchService struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
}

func NewMeiliSearchService(client meilisearch.ServiceManager) MeiliSearchService {
	s := &meiliSearchService{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
	}
	s.initIndexes()
	return s
}

func (s *meiliSearchService) initIndexes() {
	filterable := []any{"privacy_level", "university_id", "user_id", "topic_id", "status"}
	if _, err := s.client.Index(caseReportsIndex).UpdateFilterableAttributes(&filterable); err != nil {
		slog.Warn("failed to update case_reports filterable attributes", "error", err)
	}

	sortable := []string{"created_at", "likes_count"}
	if _, err := s.client.Index(caseReportsIndex).UpdateSortableAttributes(&sortable); err != nil {
		slog.Warn("failed to update case_reports sortable attributes", "error", err)
	}

	slog.Info("meilisearch indexes initialized")
}

type caseReportDoc struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	AuthorName     string `json:"author_name"`
	TopicName      string `json:"topic_name"`
	UniversityName string `json:"university_name"`
	UserID         string `json:"user_id"`
	TopicID        string `json:"topic_id"`
	UniversityID   string `json:"university_id"`
	PrivacyLevel   string `json:"privacy_level"`
	Status         string `json:"status"`
	LikesCount     int    `json:"likes_count"`
	CreatedAt      int64  `json:"created_at"`
}

func (s *meiliSearchService) toDoc(r *entity.CaseReport) caseReportDoc {
	doc := caseReportDoc{
		ID:           r.ID.String(),
		Title:        strings.Join(strings.Fields(s.sanitizer.Sanitize(r.Title)), " "),
		UserID:       r.UserID.String(),
		PrivacyLevel: string(r.PrivacyLevel),
		Status:       string(r.Status),
		LikesCount:   r.LikesCount,
		CreatedAt:    r.CreatedAt.Unix(),
	}
	if r.User.Profile != nil {
		doc.AuthorName = r.User.Profile.FullName
	}
	if r.TopicID != nil {
		doc.TopicID = r.TopicID.String()
	}
	if r.Topic != nil {
		doc.TopicName = r.Topic.Name
	}
	if r.UniversityID != nil {
		doc.UniversityID = r.UniversityID.String()
	}
	if r.University != nil {
		doc.UniversityName = r.University.Name
	}
	return doc
}

func (s *meiliSearchService) IndexCaseReport(ctx context.Context, report *entity.CaseReport) error {
	task, err := s.client.Index(caseReportsIndex).AddDocuments([]caseReportDoc{s.toDoc(report)}, strPtr("id"))
	if err != nil {
		return fmt.Errorf("failed to index case report: %w", err)
	}
	slog.DebugContext(ctx, "indexed case report", "id", report.ID, "task_uid", task.TaskUID)
	return nil
}

func (s *meiliSearchService) DeleteCaseReport(ctx context.Context, id uuid.UUID) error {
	if _, err := s.client.Index(caseReportsIndex).DeleteDocument(id.String()); err != nil {
		return fmt.Errorf("failed to remove case report from index: %w", err)
	}
	return nil
}

type rawSearchResult struct {
	Hits []struct {
		ID string `json:"id"`
	} `json:"hits"`
	EstimatedTotalHits int64 `json:"estimatedTotalHits"`
}

func (s *meiliSearchService) SearchCaseReports(ctx context.Context, q CaseReportQuery) ([]uuid.UUID, int64, error) {
	req := &meilisearch.SearchRequest{
		Offset:               int64(q.Offset),
		Limit:                int64(q.Limit),
		AttributesToRetrieve: []string{"id"},
	}
	if filter := BuildFilter(q); filter != "" {
		req.Filter = filter
	}
	if q.SortBy == "popular" {
		req.Sort = []string{"likes_count:desc", "created_at:desc"}
	}

	raw, err := s.client.Index(caseReportsIndex).SearchRaw(q.Text, req)
	if err != nil {
		return nil, 0, fmt.Errorf("case report search failed: %w", err)
	}

	var result rawSearchResult
	if err := json.Unmarshal(*raw, &result); err != nil {
		return nil, 0, fmt.Errorf("failed to decode search result: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(result.Hits))
	for _, hit := range result.Hits {
		if id, err := uuid.Parse(hit.ID); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, result.EstimatedTotalHits, nil
}

// BuildFilter renders the Meilisearch filter expression for q.
func BuildFilter(q CaseReportQuery) string {
	var parts []string

	if q.ViewerRole != entity.RoleAdmin {
		visibility := []string{
			fmt.Sprintf("privacy_level = %q", entity.PrivacyPublic),
			fmt.Sprintf("user_id = %q", q.ViewerID.String()),
		}
		if q.ViewerUniversity != nil {
			visibility = append(visibility, fmt.Sprintf("(privacy_level = %q AND university_id = %q)",
				entity.PrivacyUniversityOnly, q.ViewerUniversity.String()))
		}
		parts = append(parts, "("+strings.Join(visibility, " OR ")+")")
	}

	if q.TopicID != nil {
		parts = append(parts, fmt.Sprintf("topic_id = %q", q.TopicID.String()))
	}
	if q.UniversityID != nil {
		parts = append(parts, fmt.Sprintf("university_id = %q", q.UniversityID.String()))
	}
	if q.Status != "" {
		parts = append(parts, fmt.Sprintf("status = %q", q.Status))
	}

	return strings.Join(parts, " AND ")
}

func strPtr(s string) *string {
	return &s
}
