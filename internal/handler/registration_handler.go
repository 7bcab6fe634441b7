package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/event-registration-api/internal/models"
	"github.com/noah-isme/event-registration-api/internal/service"
	"github.com/noah-isme/event-registration-api/pkg/response"
)

type registrationService interface {
	Create(ctx context.Context, actor service.Actor, req models.CreateRegistrationRequest) (*models.Registration, error)
	Quote(ctx context.Context, req models.CreateRegistrationRequest) (*models.FeeQuote, error)
	Get(ctx context.Context, actor service.Actor, id string) (*models.Registration, error)
	List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, *models.Pagination, error)
	ListMine(ctx context.Context, actor service.Actor, filter models.RegistrationFilter) ([]models.Registration, *models.Pagination, error)
	Update(ctx context.Context, actor service.Actor, id string, req models.UpdateRegistrationRequest) (*models.Registration, error)
	Delete(ctx context.Context, actor service.Actor, id string) error
	UploadReceipt(ctx context.Context, actor service.Actor, id string, file service.UploadFile) (*models.Registration, error)
	Transition(ctx context.Context, actor service.Actor, id string, req models.TransitionRequest) (*models.Registration, error)
	Statuses() models.RegistrationStatusView
}

// RegistrationHandler exposes registration endpoints.
type RegistrationHandler struct {
	service registrationService
}

// NewRegistrationHandler constructs the handler.
func NewRegistrationHandler(svc registrationService) *RegistrationHandler {
	return &RegistrationHandler{service: svc}
}

// List godoc
// @Summary List registrations
// @Description Staff listing with status, date and free-text filters
// @Tags Registrations
// @Produce json
// @Param event_id query string false "Event ID (defaults to active event)"
// @Param status query []string false "Statuses" collectionFormat(multi)
// @Param search query string false "Invoice code, name, email or phone"
// @Param from query string false "Created from (YYYY-MM-DD)"
// @Param to query string false "Created to (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /registrations [get]
func (h *RegistrationHandler) List(c *gin.Context) {
	filter, ok := registrationFilterFromQuery(c)
	if !ok {
		return
	}
	regs, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, regs, pagination)
}

// Mine godoc
// @Summary Own registrations
// @Tags Registrations
// @Produce json
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /registrations/mine [get]
func (h *RegistrationHandler) Mine(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	filter, ok := registrationFilterFromQuery(c)
	if !ok {
		return
	}
	regs, pagination, err := h.service.ListMine(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, regs, pagination)
}

// Create godoc
// @Summary Register participants
// @Tags Registrations
// @Accept json
// @Produce json
// @Param payload body models.CreateRegistrationRequest true "Registrants"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /registrations [post]
func (h *RegistrationHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.CreateRegistrationRequest
	if !bindJSON(c, &req, "invalid registration payload") {
		return
	}
	reg, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, reg)
}

// Quote godoc
// @Summary Preview registration fee
// @Tags Registrations
// @Accept json
// @Produce json
// @Param payload body models.CreateRegistrationRequest true "Registrants"
// @Success 200 {object} response.Envelope
// @Router /registrations/quote [post]
func (h *RegistrationHandler) Quote(c *gin.Context) {
	var req models.CreateRegistrationRequest
	if !bindJSON(c, &req, "invalid registration payload") {
		return
	}
	quote, err := h.service.Quote(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, quote, nil)
}

// Get godoc
// @Summary Get registration
// @Tags Registrations
// @Produce json
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /registrations/{id} [get]
func (h *RegistrationHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	reg, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reg, nil)
}

// Update godoc
// @Summary Edit registrants
// @Description Allowed while pending or payment rejected; the registrant count is frozen once rejected
// @Tags Registrations
// @Accept json
// @Produce json
// @Param id path string true "Registration ID"
// @Param payload body models.UpdateRegistrationRequest true "Registrants"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /registrations/{id} [put]
func (h *RegistrationHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.UpdateRegistrationRequest
	if !bindJSON(c, &req, "invalid registration payload") {
		return
	}
	reg, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reg, nil)
}

// Delete godoc
// @Summary Delete registration
// @Tags Registrations
// @Param id path string true "Registration ID"
// @Success 204 {object} response.Envelope
// @Router /registrations/{id} [delete]
func (h *RegistrationHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UploadReceipt godoc
// @Summary Upload payment receipt
// @Description Stores the receipt and moves the registration to report_paid
// @Tags Registrations
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Registration ID"
// @Param file formData file true "Receipt image or PDF"
// @Success 200 {object} response.Envelope
// @Router /registrations/{id}/receipt [post]
func (h *RegistrationHandler) UploadReceipt(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	upload, closeFn, ok := uploadFromForm(c)
	if !ok {
		return
	}
	defer closeFn()

	reg, err := h.service.UploadReceipt(c.Request.Context(), actor, c.Param("id"), upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reg, nil)
}

// Transition godoc
// @Summary Apply a status action
// @Tags Registrations
// @Accept json
// @Produce json
// @Param id path string true "Registration ID"
// @Param payload body models.TransitionRequest true "Action"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /registrations/{id}/transitions [post]
func (h *RegistrationHandler) Transition(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.TransitionRequest
	if !bindJSON(c, &req, "invalid transition payload") {
		return
	}
	reg, err := h.service.Transition(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reg, nil)
}

// Statuses godoc
// @Summary Status catalog
// @Description Labels, colors and allowed transitions of every registration status
// @Tags Registrations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /registrations/statuses [get]
func (h *RegistrationHandler) Statuses(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.service.Statuses(), nil)
}

func registrationFilterFromQuery(c *gin.Context) (models.RegistrationFilter, bool) {
	page, size := pageParams(c)
	filter := models.RegistrationFilter{
		EventConfigID: strings.TrimSpace(c.Query("event_id")),
		Statuses:      statusesQuery(c),
		Search:        strings.TrimSpace(c.Query("search")),
		Page:          page,
		PageSize:      size,
		SortBy:        c.DefaultQuery("sort_by", "created_at"),
		SortOrder:     c.DefaultQuery("sort_order", "desc"),
	}
	if err := validateStatuses(filter.Statuses); err != nil {
		response.Error(c, err)
		return filter, false
	}
	var err error
	if filter.From, err = dateQuery(c, "from"); err != nil {
		response.Error(c, err)
		return filter, false
	}
	if filter.To, err = dateQuery(c, "to"); err != nil {
		response.Error(c, err)
		return filter, false
	}
	return filter, true
}
