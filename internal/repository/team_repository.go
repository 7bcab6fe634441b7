package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/event-registration-api/internal/models"
)

// TeamRepository persists volunteer teams and roles.
type TeamRepository struct {
	db *sqlx.DB
}

// NewTeamRepository constructs the repository.
func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

// ListTeams returns the teams of an event with their roles.
func (r *TeamRepository) ListTeams(ctx context.Context, eventID string) ([]models.EventTeam, error) {
	const query = `SELECT id, event_config_id, name, description, created_at FROM event_teams WHERE event_config_id = $1 ORDER BY name`
	var teams []models.EventTeam
	if err := r.db.SelectContext(ctx, &teams, query, eventID); err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	if len(teams) == 0 {
		return teams, nil
	}
	ids := make([]string, len(teams))
	for i := range teams {
		ids[i] = teams[i].ID
	}
	const rolesQuery = `SELECT r.id, r.team_id, t.name AS team_name, r.name, r.description, r.created_at
	FROM event_roles r JOIN event_teams t ON t.id = r.team_id WHERE r.team_id = ANY($1) ORDER BY r.name`
	var roles []models.EventRole
	if err := r.db.SelectContext(ctx, &roles, rolesQuery, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list team roles: %w", err)
	}
	byTeam := make(map[string][]models.EventRole, len(teams))
	for _, role := range roles {
		byTeam[role.TeamID] = append(byTeam[role.TeamID], role)
	}
	for i := range teams {
		teams[i].Roles = byTeam[teams[i].ID]
	}
	return teams, nil
}

// GetTeam fetches a team without roles.
func (r *TeamRepository) GetTeam(ctx context.Context, id string) (*models.EventTeam, error) {
	const query = `SELECT id, event_config_id, name, description, created_at FROM event_teams WHERE id = $1`
	var team models.EventTeam
	if err := r.db.GetContext(ctx, &team, query, id); err != nil {
		return nil, err
	}
	return &team, nil
}

// CreateTeam inserts a team.
func (r *TeamRepository) CreateTeam(ctx context.Context, team *models.EventTeam) error {
	if team.ID == "" {
		team.ID = uuid.NewString()
	}
	team.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO event_teams (id, event_config_id, name, description, created_at) VALUES (:id, :event_config_id, :name, :description, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, team); err != nil {
		return fmt.Errorf("create team: %w", err)
	}
	return nil
}

// CreateRole inserts a role under a team.
func (r *TeamRepository) CreateRole(ctx context.Context, role *models.EventRole) error {
	if role.ID == "" {
		role.ID = uuid.NewString()
	}
	role.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO event_roles (id, team_id, name, description, created_at) VALUES (:id, :team_id, :name, :description, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, role); err != nil {
		return fmt.Errorf("create role: %w", err)
	}
	return nil
}

// ListRoles returns every role of an event joined with its team name.
func (r *TeamRepository) ListRoles(ctx context.Context, eventID string) ([]models.EventRole, error) {
	const query = `SELECT r.id, r.team_id, t.name AS team_name, r.name, r.description, r.created_at
	FROM event_roles r JOIN event_teams t ON t.id = r.team_id WHERE t.event_config_id = $1 ORDER BY t.name, r.name`
	var roles []models.EventRole
	if err := r.db.SelectContext(ctx, &roles, query, eventID); err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

// GetRole fetches one role with its team name.
func (r *TeamRepository) GetRole(ctx context.Context, id string) (*models.EventRole, error) {
	const query = `SELECT r.id, r.team_id, t.name AS team_name, r.name, r.description, r.created_at
	FROM event_roles r JOIN event_teams t ON t.id = r.team_id WHERE r.id = $1`
	var role models.EventRole
	if err := r.db.GetContext(ctx, &role, query, id); err != nil {
		return nil, err
	}
	return &role, nil
}
