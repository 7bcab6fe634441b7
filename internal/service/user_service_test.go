package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/event-registration-api/internal/models"
	appErrors "github.com/noah-isme/event-registration-api/pkg/errors"
)

type mockUserRepo struct {
	users     map[string]*models.User
	listErr   error
	revoked   []string
	auditLogs []*models.AuditLog
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	var users []models.User
	for _, u := range m.users {
		users = append(users, *u)
	}
	return users, len(users), nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.users[id]; ok {
		copy := *user
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) UpdateRole(ctx context.Context, id string, role models.UserRole) error {
	m.users[id].Role = role
	return nil
}

func (m *mockUserRepo) UpdateAvatar(ctx context.Context, id, url string) error {
	user, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	user.AvatarURL = &url
	return nil
}

func (m *mockUserRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revoked = append(m.revoked, userID)
	return nil
}

func (m *mockUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func newUserFixture() (*UserService, *mockUserRepo) {
	repo := &mockUserRepo{users: map[string]*models.User{
		"admin": {ID: "admin", Email: "admin@example.com", Role: models.RoleSuperAdmin, Active: true},
		"u-1":   {ID: "u-1", Email: "lan@example.com", FullName: "Lan", Role: models.RoleUser, Active: true},
	}}
	uploads := NewUploadService(&memoryFileStore{}, UploadConfig{}, nil)
	return NewUserService(repo, uploads, nil, zap.NewNop()), repo
}

func TestUserServiceList(t *testing.T) {
	svc, repo := newUserFixture()

	users, page, err := svc.List(context.Background(), models.UserFilter{Page: 0, PageSize: 500})
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
	assert.Equal(t, 2, page.TotalCount)

	repo.listErr = errors.New("db down")
	_, _, err = svc.List(context.Background(), models.UserFilter{})
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}

func TestUserServiceUpdateRole(t *testing.T) {
	svc, repo := newUserFixture()
	ctx := context.Background()

	user, err := svc.UpdateRole(ctx, "admin", "u-1", models.UpdateRoleRequest{Role: models.RoleCashier})
	require.NoError(t, err)
	assert.Equal(t, models.RoleCashier, user.Role)
	assert.Equal(t, []string{"u-1"}, repo.revoked)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionRoleChange, repo.auditLogs[0].Action)
	assert.JSONEq(t, `{"role":"user"}`, string(repo.auditLogs[0].OldValues))

	_, err = svc.UpdateRole(ctx, "admin", "u-1", models.UpdateRoleRequest{Role: models.RoleCashier})
	require.NoError(t, err)
	assert.Len(t, repo.revoked, 1)
}

func TestUserServiceUpdateRoleRejects(t *testing.T) {
	svc, _ := newUserFixture()
	ctx := context.Background()

	_, err := svc.UpdateRole(ctx, "admin", "u-1", models.UpdateRoleRequest{Role: "janitor"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.UpdateRole(ctx, "admin", "admin", models.UpdateRoleRequest{Role: models.RoleUser})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = svc.UpdateRole(ctx, "admin", "ghost", models.UpdateRoleRequest{Role: models.RoleUser})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestUserServiceUploadAvatar(t *testing.T) {
	svc, _ := newUserFixture()
	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

	info, err := svc.UploadAvatar(context.Background(), "u-1", UploadFile{Filename: "me.png", Size: int64(len(png)), Content: bytes.NewReader(png)})
	require.NoError(t, err)
	require.NotNil(t, info.AvatarURL)
	assert.Contains(t, *info.AvatarURL, "avatars/u-1")

	_, err = svc.UploadAvatar(context.Background(), "u-1", UploadFile{Filename: "me.txt", Size: 5, Content: bytes.NewReader([]byte("hello"))})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestUserServiceGet(t *testing.T) {
	svc, _ := newUserFixture()

	info, err := svc.Get(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "lan@example.com", info.Email)

	_, err = svc.Get(context.Background(), "ghost")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
