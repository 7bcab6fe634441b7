package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/event-registration-api/internal/models"
	appErrors "github.com/noah-isme/event-registration-api/pkg/errors"
)

type teamStore interface {
	ListTeams(ctx context.Context, eventID string) ([]models.EventTeam, error)
	GetTeam(ctx context.Context, id string) (*models.EventTeam, error)
	CreateTeam(ctx context.Context, team *models.EventTeam) error
	CreateRole(ctx context.Context, role *models.EventRole) error
	ListRoles(ctx context.Context, eventID string) ([]models.EventRole, error)
}

// TeamService manages volunteer teams and the roles assignable to registrants.
type TeamService struct {
	repo      teamStore
	events    eventProvider
	validator *RegistrantValidator
	logger    *zap.Logger
}

// NewTeamService constructs the service.
func NewTeamService(repo teamStore, events eventProvider, validator *RegistrantValidator, logger *zap.Logger) *TeamService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validator == nil {
		validator = NewRegistrantValidator(nil)
	}
	return &TeamService{repo: repo, events: events, validator: validator, logger: logger}
}

// ListTeams returns the teams of eventID, or of the active event when empty.
func (s *TeamService) ListTeams(ctx context.Context, eventID string) ([]models.EventTeam, error) {
	eventID, err := s.resolveEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	teams, err := s.repo.ListTeams(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teams")
	}
	if teams == nil {
		teams = []models.EventTeam{}
	}
	return teams, nil
}

// ListRoles returns every role of eventID, or of the active event when empty.
func (s *TeamService) ListRoles(ctx context.Context, eventID string) ([]models.EventRole, error) {
	eventID, err := s.resolveEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	roles, err := s.repo.ListRoles(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list roles")
	}
	if roles == nil {
		roles = []models.EventRole{}
	}
	return roles, nil
}

// RoleNames maps role ids to "Team / Role" labels for the given event.
func (s *TeamService) RoleNames(ctx context.Context, eventID string) (map[string]string, error) {
	roles, err := s.ListRoles(ctx, eventID)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(roles))
	for _, role := range roles {
		names[role.ID] = role.TeamName + " / " + role.Name
	}
	return names, nil
}

// CreateTeam adds a team to the active event.
func (s *TeamService) CreateTeam(ctx context.Context, req models.CreateTeamRequest) (*models.EventTeam, error) {
	if err := ValidateStruct(ctx, s.validator.Validator(), req); err != nil {
		return nil, err
	}
	eventID, err := s.resolveEvent(ctx, "")
	if err != nil {
		return nil, err
	}
	team := &models.EventTeam{EventConfigID: eventID, Name: strings.TrimSpace(req.Name), Description: trimPtr(req.Description)}
	if err := s.repo.CreateTeam(ctx, team); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create team")
	}
	return team, nil
}

// CreateRole adds a role under teamID.
func (s *TeamService) CreateRole(ctx context.Context, teamID string, req models.CreateRoleRequest) (*models.EventRole, error) {
	if err := ValidateStruct(ctx, s.validator.Validator(), req); err != nil {
		return nil, err
	}
	team, err := s.repo.GetTeam(ctx, teamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "team not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load team")
	}
	role := &models.EventRole{TeamID: team.ID, TeamName: team.Name, Name: strings.TrimSpace(req.Name), Description: trimPtr(req.Description)}
	if err := s.repo.CreateRole(ctx, role); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create role")
	}
	s.logger.Info("event role created", zap.String("team", team.Name), zap.String("role", role.Name))
	return role, nil
}

func (s *TeamService) resolveEvent(ctx context.Context, eventID string) (string, error) {
	if eventID != "" {
		return eventID, nil
	}
	event, err := s.events.GetActive(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrNoActiveEvent, "")
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active event")
	}
	return event.ID, nil
}
