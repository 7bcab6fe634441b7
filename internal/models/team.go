package models

import "time"

// EventTeam groups volunteer roles.
type EventTeam struct {
	ID            string      `db:"id" json:"id"`
	EventConfigID string      `db:"event_config_id" json:"event_config_id"`
	Name          string      `db:"name" json:"name"`
	Description   *string     `db:"description" json:"description,omitempty"`
	CreatedAt     time.Time   `db:"created_at" json:"created_at"`
	Roles         []EventRole `db:"-" json:"roles,omitempty"`
}

// EventRole is a volunteer role within a team.
type EventRole struct {
	ID          string    `db:"id" json:"id"`
	TeamID      string    `db:"team_id" json:"team_id"`
	TeamName    string    `db:"team_name" json:"team_name,omitempty"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// CreateTeamRequest payload.
type CreateTeamRequest struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
}

// CreateRoleRequest payload.
type CreateRoleRequest struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
}
