package dto

import (
	"caseflow.dev/caseflowlearn/internal/entity"
)

const (
	MsgLoadFailed  = "Failed to load profile information"
	MsgSaveFailed  = "Failed to save profile changes"
	MsgSaved       = "Profile updated successfully"
	MsgNameMissing = "Full name is required"
)

// SaveProfileInput is the whole form state. An empty or missing id clears the
// stored value.
type SaveProfileInput struct {
	FullName     string  `json:"full_name" form:"full_name" binding:"max=100"`
	UniversityID *string `json:"university_id" form:"university_id"`
	DepartmentID *string `json:"department_id" form:"department_id"`
}

type SaveProfileResponse struct {
	Message string          `json:"message"`
	Profile *entity.Profile `json:"profile"`
}

// ProfileForm is everything the profile editor needs on open.
type ProfileForm struct {
	Profile      *entity.Profile     `json:"profile"`
	Universities []entity.University `json:"universities"`
	Departments  []entity.Department `json:"departments"`
}
