package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/event-registration-api/internal/models"
	appErrors "github.com/noah-isme/event-registration-api/pkg/errors"
)

type stubTeamStore struct {
	teams       map[string]*models.EventTeam
	roles       []models.EventRole
	listedEvent string
	createdRole *models.EventRole
}

func (s *stubTeamStore) ListTeams(ctx context.Context, eventID string) ([]models.EventTeam, error) {
	s.listedEvent = eventID
	return nil, nil
}

func (s *stubTeamStore) GetTeam(ctx context.Context, id string) (*models.EventTeam, error) {
	team, ok := s.teams[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return team, nil
}

func (s *stubTeamStore) CreateTeam(ctx context.Context, team *models.EventTeam) error {
	team.ID = "team-new"
	return nil
}

func (s *stubTeamStore) CreateRole(ctx context.Context, role *models.EventRole) error {
	role.ID = "role-new"
	s.createdRole = role
	return nil
}

func (s *stubTeamStore) ListRoles(ctx context.Context, eventID string) ([]models.EventRole, error) {
	s.listedEvent = eventID
	return s.roles, nil
}

func TestTeamServiceDefaultsToActiveEvent(t *testing.T) {
	store := &stubTeamStore{}
	svc := NewTeamService(store, &stubEvents{event: &models.EventConfig{ID: "ev-1"}}, nil, nil)

	teams, err := svc.ListTeams(context.Background(), "")
	require.NoError(t, err)
	assert.NotNil(t, teams)
	assert.Equal(t, "ev-1", store.listedEvent)

	_, err = svc.ListTeams(context.Background(), "ev-7")
	require.NoError(t, err)
	assert.Equal(t, "ev-7", store.listedEvent)

	_, err = NewTeamService(store, &stubEvents{}, nil, nil).ListTeams(context.Background(), "")
	assert.True(t, errors.Is(err, appErrors.ErrNoActiveEvent))
}

func TestTeamServiceCreateRole(t *testing.T) {
	store := &stubTeamStore{teams: map[string]*models.EventTeam{"team-1": {ID: "team-1", Name: "Truyền thông"}}}
	svc := NewTeamService(store, &stubEvents{event: &models.EventConfig{ID: "ev-1"}}, nil, nil)

	_, err := svc.CreateRole(context.Background(), "missing", models.CreateRoleRequest{Name: "Chụp ảnh"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.CreateRole(context.Background(), "team-1", models.CreateRoleRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	role, err := svc.CreateRole(context.Background(), "team-1", models.CreateRoleRequest{Name: " Chụp ảnh "})
	require.NoError(t, err)
	assert.Equal(t, "Chụp ảnh", role.Name)
	assert.Equal(t, "Truyền thông", role.TeamName)
	assert.Equal(t, "team-1", store.createdRole.TeamID)
}

func TestTeamServiceRoleNames(t *testing.T) {
	store := &stubTeamStore{roles: []models.EventRole{{ID: "r-1", TeamName: "Hậu cần", Name: "Bếp"}}}
	svc := NewTeamService(store, &stubEvents{event: &models.EventConfig{ID: "ev-1"}}, nil, nil)

	names, err := svc.RoleNames(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"r-1": "Hậu cần / Bếp"}, names)
}
