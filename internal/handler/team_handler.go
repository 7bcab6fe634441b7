package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/event-registration-api/internal/models"
	"github.com/noah-isme/event-registration-api/pkg/response"
)

type teamService interface {
	ListTeams(ctx context.Context, eventID string) ([]models.EventTeam, error)
	ListRoles(ctx context.Context, eventID string) ([]models.EventRole, error)
	CreateTeam(ctx context.Context, req models.CreateTeamRequest) (*models.EventTeam, error)
	CreateRole(ctx context.Context, teamID string, req models.CreateRoleRequest) (*models.EventRole, error)
}

// TeamHandler manages volunteer teams and roles.
type TeamHandler struct {
	service teamService
}

// NewTeamHandler constructs the handler.
func NewTeamHandler(svc teamService) *TeamHandler {
	return &TeamHandler{service: svc}
}

// ListTeams godoc
// @Summary List teams with roles
// @Tags Teams
// @Produce json
// @Param event_id query string false "Event ID"
// @Success 200 {object} response.Envelope
// @Router /teams [get]
func (h *TeamHandler) ListTeams(c *gin.Context) {
	teams, err := h.service.ListTeams(c.Request.Context(), strings.TrimSpace(c.Query("event_id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teams, nil)
}

// ListRoles godoc
// @Summary List roles
// @Tags Teams
// @Produce json
// @Param event_id query string false "Event ID"
// @Success 200 {object} response.Envelope
// @Router /roles [get]
func (h *TeamHandler) ListRoles(c *gin.Context) {
	roles, err := h.service.ListRoles(c.Request.Context(), strings.TrimSpace(c.Query("event_id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roles, nil)
}

// CreateTeam godoc
// @Summary Create team
// @Tags Teams
// @Accept json
// @Produce json
// @Param payload body models.CreateTeamRequest true "Team"
// @Success 201 {object} response.Envelope
// @Router /teams [post]
func (h *TeamHandler) CreateTeam(c *gin.Context) {
	var req models.CreateTeamRequest
	if !bindJSON(c, &req, "invalid team payload") {
		return
	}
	team, err := h.service.CreateTeam(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, team)
}

// CreateRole godoc
// @Summary Add a role to a team
// @Tags Teams
// @Accept json
// @Produce json
// @Param id path string true "Team ID"
// @Param payload body models.CreateRoleRequest true "Role"
// @Success 201 {object} response.Envelope
// @Router /teams/{id}/roles [post]
func (h *TeamHandler) CreateRole(c *gin.Context) {
	var req models.CreateRoleRequest
	if !bindJSON(c, &req, "invalid role payload") {
		return
	}
	role, err := h.service.CreateRole(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, role)
}
