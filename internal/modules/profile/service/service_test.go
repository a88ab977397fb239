package profile

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"caseflow.dev/caseflowlearn/internal/entity"
	profileDto "caseflow.dev/caseflowlearn/internal/modules/profile/dto"
	"caseflow.dev/caseflowlearn/pkg/apperror"
	commonDto "caseflow.dev/caseflowlearn/pkg/dto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProfileRepo struct {
	rows        map[uuid.UUID]entity.Profile
	upserts     int
	findErr     error
	upsertErr   error
	departments map[uuid.UUID]*entity.Department
}

func (f *fakeProfileRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.Profile, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	p, ok := f.rows[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakeProfileRepo) Upsert(ctx context.Context, p *entity.Profile) error {
	f.upserts++
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.rows[p.UserID] = *p
	return nil
}

type fakeReference struct {
	universities []entity.University
	departments  []entity.Department
}

func (f *fakeReference) ListUniversities(ctx context.Context) ([]entity.University, error) {
	return f.universities, nil
}

func (f *fakeReference) ListDepartments(ctx context.Context, universityID uuid.UUID) ([]entity.Department, error) {
	out := []entity.Department{}
	for _, d := range f.departments {
		if d.UniversityID == universityID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeReference) GetUniversity(ctx context.Context, id uuid.UUID) (*entity.University, error) {
	for i := range f.universities {
		if f.universities[i].ID == id {
			return &f.universities[i], nil
		}
	}
	return nil, apperror.ErrNotFound
}

func (f *fakeReference) GetDepartment(ctx context.Context, id uuid.UUID) (*entity.Department, error) {
	for i := range f.departments {
		if f.departments[i].ID == id {
			return &f.departments[i], nil
		}
	}
	return nil, apperror.ErrNotFound
}

type fakeStorage struct {
	uploaded []string
	deleted  []string
}

func (f *fakeStorage) Upload(ctx context.Context, r io.Reader, folder, fileName string) (string, error) {
	url := "https://files.example/" + folder + "/" + fileName
	f.uploaded = append(f.uploaded, url)
	return url, nil
}

func (f *fakeStorage) Delete(ctx context.Context, fileURL string) error {
	f.deleted = append(f.deleted, fileURL)
	return nil
}

type fixture struct {
	svc       ProfileService
	repo      *fakeProfileRepo
	storage   *fakeStorage
	userID    uuid.UUID
	harvard   entity.University
	hopkins   entity.University
	surgery   entity.Department
	cardio    entity.Department
	neurology entity.Department
}

func newFixture() *fixture {
	f := &fixture{
		userID:  uuid.New(),
		harvard: entity.University{ID: uuid.New(), Name: "Harvard Medical School"},
		hopkins: entity.University{ID: uuid.New(), Name: "Johns Hopkins"},
	}
	f.surgery = entity.Department{ID: uuid.New(), Name: "Surgery", UniversityID: f.harvard.ID}
	f.cardio = entity.Department{ID: uuid.New(), Name: "Cardiology", UniversityID: f.hopkins.ID}
	f.neurology = entity.Department{ID: uuid.New(), Name: "Neurology", UniversityID: f.hopkins.ID}

	f.repo = &fakeProfileRepo{rows: map[uuid.UUID]entity.Profile{}}
	f.storage = &fakeStorage{}
	ref := &fakeReference{
		universities: []entity.University{f.harvard, f.hopkins},
		departments:  []entity.Department{f.surgery, f.cardio, f.neurology},
	}
	f.svc = NewProfileService(f.repo, ref, f.storage)
	return f
}

func idStr(id uuid.UUID) *string {
	s := id.String()
	return &s
}

func TestLoadProfileAbsentIsNotAnError(t *testing.T) {
	f := newFixture()

	p, err := f.svc.LoadProfile(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestLoadProfileFailureUsesFixedMessage(t *testing.T) {
	f := newFixture()
	f.repo.findErr = errors.New("connection reset by peer")

	_, err := f.svc.LoadProfile(context.Background(), f.userID)
	require.Error(t, err)
	assert.Equal(t, profileDto.MsgLoadFailed, apperror.PublicMessage(err))
}

func TestSaveProfileEmptyNameDoesNotWrite(t *testing.T) {
	f := newFixture()

	for _, name := range []string{"", "   ", "\t\n"} {
		_, err := f.svc.SaveProfile(context.Background(), f.userID, entity.RoleStudent, profileDto.SaveProfileInput{FullName: name}, nil)
		require.ErrorIs(t, err, apperror.ErrInvalidInput)
		assert.Equal(t, profileDto.MsgNameMissing, apperror.PublicMessage(err))
	}

	assert.Equal(t, 0, f.repo.upserts)
}

func TestSaveProfileUpsertsAndReturnsStoredRow(t *testing.T) {
	f := newFixture()

	res, err := f.svc.SaveProfile(context.Background(), f.userID, entity.RoleStudent, profileDto.SaveProfileInput{
		FullName:     "  Meredith Grey ",
		UniversityID: idStr(f.harvard.ID),
		DepartmentID: idStr(f.surgery.ID),
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, profileDto.MsgSaved, res.Message)
	assert.Equal(t, "Meredith Grey", res.Profile.FullName)
	assert.Equal(t, f.harvard.ID, *res.Profile.UniversityID)
	assert.Equal(t, f.surgery.ID, *res.Profile.DepartmentID)
	assert.False(t, res.Profile.UpdatedAt.IsZero())
	assert.Equal(t, 1, f.repo.upserts)
}

func TestSaveProfileSwitchingUniversityClearsDepartment(t *testing.T) {
	f := newFixture()
	f.repo.rows[f.userID] = entity.Profile{
		UserID:       f.userID,
		FullName:     "Meredith Grey",
		Role:         entity.RoleStudent,
		UniversityID: &f.harvard.ID,
		DepartmentID: &f.surgery.ID,
	}

	res, err := f.svc.SaveProfile(context.Background(), f.userID, entity.RoleStudent, profileDto.SaveProfileInput{
		FullName:     "Meredith Grey",
		UniversityID: idStr(f.hopkins.ID),
		DepartmentID: idStr(f.surgery.ID),
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, f.hopkins.ID, *res.Profile.UniversityID)
	assert.Nil(t, res.Profile.DepartmentID)

	departments, err := f.svc.ListDepartments(context.Background(), f.hopkins.ID)
	require.NoError(t, err)
	require.Len(t, departments, 2)
	for _, d := range departments {
		assert.Equal(t, f.hopkins.ID, d.UniversityID)
	}
}

func TestSaveProfileRejectsDepartmentOfOtherUniversity(t *testing.T) {
	f := newFixture()

	_, err := f.svc.SaveProfile(context.Background(), f.userID, entity.RoleStudent, profileDto.SaveProfileInput{
		FullName:     "Cristina Yang",
		UniversityID: idStr(f.harvard.ID),
		DepartmentID: idStr(f.cardio.ID),
	}, nil)

	require.ErrorIs(t, err, apperror.ErrInvalidInput)
	assert.Equal(t, 0, f.repo.upserts)
}

func TestSaveProfileRejectsDepartmentWithoutUniversity(t *testing.T) {
	f := newFixture()

	_, err := f.svc.SaveProfile(context.Background(), f.userID, entity.RoleStudent, profileDto.SaveProfileInput{
		FullName:     "Cristina Yang",
		DepartmentID: idStr(f.cardio.ID),
	}, nil)

	require.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestSaveProfileClearsUniversityWhenEmpty(t *testing.T) {
	f := newFixture()
	f.repo.rows[f.userID] = entity.Profile{UserID: f.userID, FullName: "A", UniversityID: &f.harvard.ID, DepartmentID: &f.surgery.ID}

	empty := ""
	res, err := f.svc.SaveProfile(context.Background(), f.userID, entity.RoleStudent, profileDto.SaveProfileInput{
		FullName:     "A",
		UniversityID: &empty,
	}, nil)
	require.NoError(t, err)

	assert.Nil(t, res.Profile.UniversityID)
	assert.Nil(t, res.Profile.DepartmentID)
}

func TestSaveProfileKeepsEvaluatorAttributesAndReplacesAvatar(t *testing.T) {
	f := newFixture()
	oldAvatar := "https://files.example/avatars/old.png"
	specialty := "Cardiology"
	f.repo.rows[f.userID] = entity.Profile{
		UserID:    f.userID,
		FullName:  "Dr. Burke",
		Role:      entity.RoleEvaluator,
		Specialty: &specialty,
		AvatarURL: &oldAvatar,
	}

	res, err := f.svc.SaveProfile(context.Background(), f.userID, entity.RoleEvaluator, profileDto.SaveProfileInput{FullName: "Dr. Preston Burke"},
		&commonDto.UploadFile{Reader: strings.NewReader("png"), FileName: "new.png"})
	require.NoError(t, err)

	assert.Equal(t, entity.RoleEvaluator, res.Profile.Role)
	assert.Equal(t, "Cardiology", *res.Profile.Specialty)
	assert.Equal(t, "https://files.example/avatars/new.png", *res.Profile.AvatarURL)
	assert.Equal(t, []string{oldAvatar}, f.storage.deleted)
}

func TestSaveProfileWriteFailureUsesFixedMessage(t *testing.T) {
	f := newFixture()
	f.repo.upsertErr = errors.New("deadlock detected")

	_, err := f.svc.SaveProfile(context.Background(), f.userID, entity.RoleStudent, profileDto.SaveProfileInput{FullName: "A"}, nil)
	require.Error(t, err)
	assert.Equal(t, profileDto.MsgSaveFailed, apperror.PublicMessage(err))
}

func TestLoadFormIncludesDepartmentsOfStoredUniversity(t *testing.T) {
	f := newFixture()
	f.repo.rows[f.userID] = entity.Profile{UserID: f.userID, FullName: "A", UniversityID: &f.hopkins.ID}

	form, err := f.svc.LoadForm(context.Background(), f.userID)
	require.NoError(t, err)

	assert.Len(t, form.Universities, 2)
	assert.Len(t, form.Departments, 2)
}
