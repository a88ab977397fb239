package admin

import (
	"context"
	"sync"
	"testing"

	"caseflow.dev/caseflowlearn/internal/entity"
	adminDto "caseflow.dev/caseflowlearn/internal/modules/admin/dto"
	search "caseflow.dev/caseflowlearn/internal/modules/search/service"
	"caseflow.dev/caseflowlearn/internal/modules/user/repository"
	"caseflow.dev/caseflowlearn/pkg/apperror"
	"caseflow.dev/caseflowlearn/pkg/authevents"
	commonDto "caseflow.dev/caseflowlearn/pkg/dto"
	"caseflow.dev/caseflowlearn/pkg/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeUsers struct {
	repository.UserRepository
	users     map[uuid.UUID]*entity.User
	files     *repository.UserFiles
	gotOffset int
	gotLimit  int
	gotRole   entity.Role
}

func (f *fakeUsers) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (f *fakeUsers) UpdateRole(ctx context.Context, id uuid.UUID, role entity.Role) error {
	u, ok := f.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Role = role
	return nil
}

func (f *fakeUsers) FindAll(ctx context.Context, role entity.Role, offset, limit int) ([]*entity.User, int64, error) {
	f.gotRole, f.gotOffset, f.gotLimit = role, offset, limit
	var out []*entity.User
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, int64(len(out)), nil
}

func (f *fakeUsers) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.users[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUsers) CountByRole(ctx context.Context) (map[entity.Role]int64, error) {
	return map[entity.Role]int64{entity.RoleStudent: 4, entity.RoleEvaluator: 2, entity.RoleAdmin: 1}, nil
}

func (f *fakeUsers) StoredFiles(ctx context.Context, id uuid.UUID) (*repository.UserFiles, error) {
	if f.files == nil {
		return &repository.UserFiles{}, nil
	}
	return f.files, nil
}

type fakeStorage struct {
	storage.FileStorage
	mu      sync.Mutex
	deleted []string
}

func (f *fakeStorage) Delete(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, url)
	return nil
}

type fakeIndex struct {
	search.MeiliSearchService
	removed []uuid.UUID
}

func (f *fakeIndex) DeleteCaseReport(ctx context.Context, id uuid.UUID) error {
	f.removed = append(f.removed, id)
	return nil
}

type fakeSessions struct {
	revoked []uuid.UUID
}

func (f *fakeSessions) RevokeSessions(ctx context.Context, userID uuid.UUID) error {
	f.revoked = append(f.revoked, userID)
	return nil
}

type fakeReviews struct {
	released []uuid.UUID
}

func (f *fakeReviews) ReleaseReviews(ctx context.Context, evaluatorID uuid.UUID) (int64, error) {
	f.released = append(f.released, evaluatorID)
	return 1, nil
}

func newUsers(ids ...uuid.UUID) *fakeUsers {
	f := &fakeUsers{users: map[uuid.UUID]*entity.User{}}
	for _, id := range ids {
		f.users[id] = &entity.User{ID: id, Role: entity.RoleStudent}
	}
	return f
}

func TestChangeRole(t *testing.T) {
	actor, target := uuid.New(), uuid.New()
	users := newUsers(actor, target)
	hub := authevents.NewHub(nil)

	var got []authevents.Event
	hub.Subscribe(func(ev authevents.Event) { got = append(got, ev) })
	sessions, reviews := &fakeSessions{}, &fakeReviews{}

	svc := NewAdminService(users, sessions, reviews, hub, nil, nil, nil)
	res, err := svc.ChangeRole(context.Background(), actor, target, entity.RoleEvaluator)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleEvaluator, res.User.Role)

	require.Len(t, got, 1)
	assert.Equal(t, authevents.RoleChanged, got[0].Kind)
	assert.Equal(t, target, got[0].UserID)
	assert.Equal(t, []uuid.UUID{target}, sessions.revoked)
	assert.Empty(t, reviews.released)
}

func TestChangeRoleAwayFromEvaluatorReleasesReviews(t *testing.T) {
	actor, target := uuid.New(), uuid.New()
	users := newUsers(actor, target)
	users.users[target].Role = entity.RoleEvaluator
	sessions, reviews := &fakeSessions{}, &fakeReviews{}

	svc := NewAdminService(users, sessions, reviews, nil, nil, nil, nil)
	_, err := svc.ChangeRole(context.Background(), actor, target, entity.RoleStudent)
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{target}, reviews.released)
	assert.Equal(t, []uuid.UUID{target}, sessions.revoked)
}

func TestChangeRoleErrors(t *testing.T) {
	actor := uuid.New()
	svc := NewAdminService(newUsers(actor), nil, nil, nil, nil, nil, nil)

	_, err := svc.ChangeRole(context.Background(), actor, uuid.New(), entity.RoleStudent)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = svc.ChangeRole(context.Background(), actor, actor, entity.RoleStudent)
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = svc.ChangeRole(context.Background(), actor, uuid.New(), entity.Role("janitor"))
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestDeleteUserCleansUpFiles(t *testing.T) {
	actor, target := uuid.New(), uuid.New()
	reportID := uuid.New()
	users := newUsers(actor, target)
	users.files = &repository.UserFiles{
		ReportIDs: []uuid.UUID{reportID},
		URLs:      []string{"https://files/report.pdf", "https://files/avatar.png"},
	}
	fs := &fakeStorage{}
	index := &fakeIndex{}
	sessions, reviews := &fakeSessions{}, &fakeReviews{}

	svc := NewAdminService(users, sessions, reviews, nil, fs, nil, index)
	require.NoError(t, svc.DeleteUser(context.Background(), actor, target))

	assert.NotContains(t, users.users, target)
	assert.ElementsMatch(t, users.files.URLs, fs.deleted)
	assert.Equal(t, []uuid.UUID{reportID}, index.removed)
	assert.Equal(t, []uuid.UUID{target}, reviews.released)
	assert.Equal(t, []uuid.UUID{target}, sessions.revoked)
}

func TestDeleteUserRefusesSelf(t *testing.T) {
	actor := uuid.New()
	fs := &fakeStorage{}
	svc := NewAdminService(newUsers(actor), nil, nil, nil, fs, nil, nil)

	err := svc.DeleteUser(context.Background(), actor, actor)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	assert.Empty(t, fs.deleted)
}

func TestListUsersPaginates(t *testing.T) {
	users := newUsers(uuid.New(), uuid.New())
	svc := NewAdminService(users, nil, nil, nil, nil, nil, nil)

	res, err := svc.ListUsers(context.Background(), adminDto.ListUsersQuery{
		Role:      "student",
		PageQuery: commonDto.PageQuery{Page: 2, Limit: 5},
	})
	require.NoError(t, err)
	assert.Equal(t, 5, users.gotOffset)
	assert.Equal(t, 5, users.gotLimit)
	assert.Equal(t, entity.RoleStudent, users.gotRole)
	assert.Len(t, res.Data, 2)
	assert.Equal(t, int64(2), res.Meta.TotalItems)
}

func TestUserStats(t *testing.T) {
	svc := NewAdminService(newUsers(), nil, nil, nil, nil, nil, nil)
	stats, err := svc.UserStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &adminDto.UserStats{Total: 7, Students: 4, Evaluators: 2, Admins: 1}, stats)
}
