package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"caseflow.dev/caseflowlearn/internal/entity"
	profileDto "caseflow.dev/caseflowlearn/internal/modules/profile/dto"
	"caseflow.dev/caseflowlearn/internal/modules/profile/repository"
	"caseflow.dev/caseflowlearn/pkg/apperror"
	commonDto "caseflow.dev/caseflowlearn/pkg/dto"
	"caseflow.dev/caseflowlearn/pkg/sanitize"
	"caseflow.dev/caseflowlearn/pkg/storage"
	"github.com/google/uuid"
)

// ReferenceLookup is the part of the reference service profiles depend on.
type ReferenceLookup interface {
	ListUniversities(ctx context.Context) ([]entity.University, error)
	ListDepartments(ctx context.Context, universityID uuid.UUID) ([]entity.Department, error)
	GetUniversity(ctx context.Context, id uuid.UUID) (*entity.University, error)
	GetDepartment(ctx context.Context, id uuid.UUID) (*entity.Department, error)
}

type ProfileService interface {
	LoadProfile(ctx context.Context, userID uuid.UUID) (*entity.Profile, error)
	ListUniversities(ctx context.Context) ([]entity.University, error)
	ListDepartments(ctx context.Context, universityID uuid.UUID) ([]entity.Department, error)
	LoadForm(ctx context.Context, userID uuid.UUID) (*profileDto.ProfileForm, error)
	SaveProfile(ctx context.Context, userID uuid.UUID, role entity.Role, input profileDto.SaveProfileInput, avatar *commonDto.UploadFile) (*profileDto.SaveProfileResponse, error)
}

type profileService struct {
	repo        repository.ProfileRepository
	reference   ReferenceLookup
	fileStorage storage.FileStorage
}

func NewProfileService(repo repository.ProfileRepository, reference ReferenceLookup, fileStorage storage.FileStorage) ProfileService {
	return &profileService{
		repo:        repo,
		reference:   reference,
		fileStorage: fileStorage,
	}
}

func (s *profileService) LoadProfile(ctx context.Context, userID uuid.UUID) (*entity.Profile, error) {
	profile, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load profile", "user_id", userID, "error", err)
		return nil, apperror.Remote(profileDto.MsgLoadFailed, err)
	}
	return profile, nil
}

func (s *profileService) ListUniversities(ctx context.Context) ([]entity.University, error) {
	universities, err := s.reference.ListUniversities(ctx)
	if err != nil {
		return nil, apperror.Remote(profileDto.MsgLoadFailed, err)
	}
	return universities, nil
}

func (s *profileService) ListDepartments(ctx context.Context, universityID uuid.UUID) ([]entity.Department, error) {
	departments, err := s.reference.ListDepartments(ctx, universityID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, apperror.Remote(profileDto.MsgLoadFailed, err)
	}
	return departments, nil
}

func (s *profileService) LoadForm(ctx context.Context, userID uuid.UUID) (*profileDto.ProfileForm, error) {
	profile, err := s.LoadProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	universities, err := s.ListUniversities(ctx)
	if err != nil {
		return nil, err
	}

	form := &profileDto.ProfileForm{
		Profile:      profile,
		Universities: universities,
		Departments:  []entity.Department{},
	}

	if profile != nil && profile.UniversityID != nil {
		departments, err := s.ListDepartments(ctx, *profile.UniversityID)
		if err != nil && !errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		if departments != nil {
			form.Departments = departments
		}
	}

	return form, nil
}

func (s *profileService) SaveProfile(ctx context.Context, userID uuid.UUID, role entity.Role, input profileDto.SaveProfileInput, avatar *commonDto.UploadFile) (*profileDto.SaveProfileResponse, error) {
	fullName := sanitize.Text(input.FullName)
	if fullName == "" {
		return nil, apperror.Validation(profileDto.MsgNameMissing)
	}

	universityID, err := parseOptionalID(input.UniversityID, "university_id")
	if err != nil {
		return nil, err
	}
	departmentID, err := parseOptionalID(input.DepartmentID, "department_id")
	if err != nil {
		return nil, err
	}

	current, err := s.LoadProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Switching university drops the department carried over from the
	// previous one.
	if current != nil && !sameID(current.UniversityID, universityID) && sameID(current.DepartmentID, departmentID) {
		departmentID = nil
	}

	if err := s.checkAffiliation(ctx, universityID, departmentID); err != nil {
		return nil, err
	}

	profile := &entity.Profile{
		UserID:       userID,
		FullName:     fullName,
		Role:         role,
		UniversityID: universityID,
		DepartmentID: departmentID,
		UpdatedAt:    time.Now(),
	}
	if current != nil {
		profile.Role = current.Role
		profile.Specialty = current.Specialty
		profile.Affiliation = current.Affiliation
		profile.AvatarURL = current.AvatarURL
	}
	if profile.Role == "" {
		profile.Role = entity.RoleStudent
	}

	var uploadedURL string
	if avatar != nil && avatar.Reader != nil && s.fileStorage != nil {
		uploadedURL, err = s.fileStorage.Upload(ctx, avatar.Reader, "avatars", avatar.FileName)
		if err != nil {
			slog.ErrorContext(ctx, "avatar upload failed", "user_id", userID, "error", err)
			return nil, apperror.Remote(profileDto.MsgSaveFailed, err)
		}
		profile.AvatarURL = &uploadedURL
	}

	if err := s.repo.Upsert(ctx, profile); err != nil {
		slog.ErrorContext(ctx, "failed to save profile", "user_id", userID, "error", err)
		if uploadedURL != "" {
			s.discardUpload(ctx, uploadedURL)
		}
		return nil, apperror.Remote(profileDto.MsgSaveFailed, err)
	}

	if uploadedURL != "" && current != nil && current.AvatarURL != nil && *current.AvatarURL != uploadedURL {
		s.discardUpload(ctx, *current.AvatarURL)
	}

	saved, err := s.repo.FindByUserID(ctx, userID)
	if err != nil || saved == nil {
		if err == nil {
			err = errors.New("profile missing after upsert")
		}
		return nil, apperror.Remote(profileDto.MsgSaveFailed, err)
	}

	return &profileDto.SaveProfileResponse{
		Message: profileDto.MsgSaved,
		Profile: saved,
	}, nil
}

// checkAffiliation rejects a department without a university and a
// department that belongs to another university.
func (s *profileService) checkAffiliation(ctx context.Context, universityID, departmentID *uuid.UUID) error {
	if universityID != nil {
		if _, err := s.reference.GetUniversity(ctx, *universityID); err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return apperror.Validation("Selected university does not exist")
			}
			return apperror.Remote(profileDto.MsgSaveFailed, err)
		}
	}

	if departmentID == nil {
		return nil
	}
	if universityID == nil {
		return apperror.Validation("Select a university before choosing a department")
	}

	department, err := s.reference.GetDepartment(ctx, *departmentID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.Validation("Selected department does not exist")
		}
		return apperror.Remote(profileDto.MsgSaveFailed, err)
	}
	if department.UniversityID != *universityID {
		return apperror.Validation("Selected department does not belong to the selected university")
	}
	return nil
}

func (s *profileService) discardUpload(ctx context.Context, url string) {
	if err := s.fileStorage.Delete(ctx, url); err != nil {
		slog.WarnContext(ctx, "failed to delete stored avatar", "url", url, "error", err)
	}
}

func parseOptionalID(value *string, field string) (*uuid.UUID, error) {
	if value == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil, nil
	}
	id, err := uuid.Parse(trimmed)
	if err != nil {
		return nil, apperror.Validation(fmt.Sprintf("%s must be a valid id", field))
	}
	return &id, nil
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
