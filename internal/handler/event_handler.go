package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/event-registration-api/internal/models"
	"github.com/noah-isme/event-registration-api/internal/service"
	"github.com/noah-isme/event-registration-api/pkg/response"
)

type eventService interface {
	List(ctx context.Context) ([]models.EventConfig, error)
	Active(ctx context.Context) (*models.EventConfig, error)
	Create(ctx context.Context, actor service.Actor, req models.EventConfigRequest) (*models.EventConfig, error)
	Update(ctx context.Context, actor service.Actor, id string, req models.EventConfigRequest) (*models.EventConfig, error)
	Activate(ctx context.Context, actor service.Actor, id string) (*models.EventConfig, error)
}

// EventHandler exposes event configuration endpoints.
type EventHandler struct {
	service eventService
}

// NewEventHandler constructs the handler.
func NewEventHandler(svc eventService) *EventHandler {
	return &EventHandler{service: svc}
}

// Active godoc
// @Summary Active event
// @Description Pricing and dates of the event currently open for registration
// @Tags Events
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /events/active [get]
func (h *EventHandler) Active(c *gin.Context) {
	event, err := h.service.Active(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// List godoc
// @Summary List events
// @Tags Events
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /events [get]
func (h *EventHandler) List(c *gin.Context) {
	events, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}

// Create godoc
// @Summary Create event
// @Tags Events
// @Accept json
// @Produce json
// @Param payload body models.EventConfigRequest true "Event"
// @Success 201 {object} response.Envelope
// @Router /events [post]
func (h *EventHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.EventConfigRequest
	if !bindJSON(c, &req, "invalid event payload") {
		return
	}
	event, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

// Update godoc
// @Summary Update event
// @Tags Events
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body models.EventConfigRequest true "Event"
// @Success 200 {object} response.Envelope
// @Router /events/{id} [put]
func (h *EventHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.EventConfigRequest
	if !bindJSON(c, &req, "invalid event payload") {
		return
	}
	event, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// Activate godoc
// @Summary Make an event the active one
// @Tags Events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/activate [post]
func (h *EventHandler) Activate(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	event, err := h.service.Activate(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}
