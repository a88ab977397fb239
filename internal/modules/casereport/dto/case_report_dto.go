package dto

import (
	"time"

	"caseflow.dev/caseflowlearn/internal/entity"
	commonDto "caseflow.dev/caseflowlearn/pkg/dto"
	"github.com/google/uuid"
)

// AcceptedExtensions are the file types a case report may be uploaded as.
var AcceptedExtensions = []string{".pdf", ".jpg", ".jpeg", ".png"}

var PrivacyLevels = []entity.PrivacyLevel{
	entity.PrivacyPublic,
	entity.PrivacyUniversityOnly,
	entity.PrivacyPrivate,
}

type SubmitCaseReportRequest struct {
	Title        string  `form:"title" json:"title" binding:"required,max=200"`
	TopicID      *string `form:"topic_id" json:"topic_id" binding:"omitempty,uuid"`
	PrivacyLevel string  `form:"privacy_level" json:"privacy_level" binding:"omitempty,privacy_level"`
}

type CaseReportFilter struct {
	Search       string `form:"search" binding:"omitempty,max=100"`
	TopicID      string `form:"topic_id" binding:"omitempty,uuid"`
	UniversityID string `form:"university_id" binding:"omitempty,uuid"`
	Status       string `form:"status" binding:"omitempty,oneof=pending under_review completed rejected"`
	SortBy       string `form:"sort_by" binding:"omitempty,oneof=newest popular"`
	commonDto.PageQuery
}

// Viewer identifies who is asking; visibility rules depend on it.
type Viewer struct {
	ID   uuid.UUID
	Role entity.Role
}

type NamedRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type CaseReportResponse struct {
	ID           uuid.UUID                `json:"id"`
	Title        string                   `json:"title"`
	Author       commonDto.AuthorResponse `json:"author"`
	University   *NamedRef                `json:"university"`
	Department   *NamedRef                `json:"department"`
	Topic        *NamedRef                `json:"topic"`
	FileURL      string                   `json:"file_url"`
	FileName     string                   `json:"file_name"`
	PrivacyLevel entity.PrivacyLevel      `json:"privacy_level"`
	Status       entity.CaseStatus        `json:"status"`
	LikesCount   int                      `json:"likes_count"`
	CreatedAt    time.Time                `json:"created_at"`
	UpdatedAt    time.Time                `json:"updated_at"`
}

type PaginatedCaseReports = commonDto.Paginated[CaseReportResponse]

// SubmitForm describes what the submit tab accepts.
type SubmitForm struct {
	AcceptedExtensions []string              `json:"accepted_extensions"`
	PrivacyLevels      []entity.PrivacyLevel `json:"privacy_levels"`
	Topics             []entity.Topic        `json:"topics"`
	MaxUploadBytes     int64                 `json:"max_upload_bytes"`
}

func ToResponse(r *entity.CaseReport) CaseReportResponse {
	res := CaseReportResponse{
		ID:           r.ID,
		Title:        r.Title,
		Author:       commonDto.AuthorResponse{ID: r.UserID},
		FileURL:      r.FileURL,
		FileName:     r.FileName,
		PrivacyLevel: r.PrivacyLevel,
		Status:       r.Status,
		LikesCount:   r.LikesCount,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}

	if r.User.Profile != nil {
		res.Author.FullName = r.User.Profile.FullName
		res.Author.AvatarURL = r.User.Profile.AvatarURL
	}
	if r.University != nil {
		res.University = &NamedRef{ID: r.University.ID, Name: r.University.Name}
	}
	if r.Department != nil {
		res.Department = &NamedRef{ID: r.Department.ID, Name: r.Department.Name}
	}
	if r.Topic != nil {
		res.Topic = &NamedRef{ID: r.Topic.ID, Name: r.Topic.Name}
	}
	return res
}

func ToResponses(reports []*entity.CaseReport) []CaseReportResponse {
	out := make([]CaseReportResponse, 0, len(reports))
	for _, r := range reports {
		out = append(out, ToResponse(r))
	}
	return out
}
