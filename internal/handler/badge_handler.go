package handler

import (
	"context"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/event-registration-api/internal/models"
	"github.com/noah-isme/event-registration-api/internal/service"
	"github.com/noah-isme/event-registration-api/pkg/response"
)

type badgeService interface {
	Start(ctx context.Context, actor service.Actor, req models.BadgeJobRequest) (*models.BadgeJob, error)
	Get(ctx context.Context, actor service.Actor, id string) (*models.BadgeJob, error)
	Cancel(ctx context.Context, actor service.Actor, id string) (*models.BadgeJob, error)
	Open(token string) (*os.File, string, error)
}

// BadgeHandler drives asynchronous badge sheet renders.
type BadgeHandler struct {
	service badgeService
}

// NewBadgeHandler constructs the handler.
func NewBadgeHandler(svc badgeService) *BadgeHandler {
	return &BadgeHandler{service: svc}
}

// Start godoc
// @Summary Queue a badge sheet
// @Tags Badges
// @Accept json
// @Produce json
// @Param payload body models.BadgeJobRequest false "Filter"
// @Success 202 {object} response.Envelope
// @Router /badges/jobs [post]
func (h *BadgeHandler) Start(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.BadgeJobRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req, "invalid badge payload") {
		return
	}
	job, err := h.service.Start(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}

// Get godoc
// @Summary Badge job status
// @Tags Badges
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /badges/jobs/{id} [get]
func (h *BadgeHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	job, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Cancel godoc
// @Summary Cancel a badge job
// @Tags Badges
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /badges/jobs/{id}/cancel [post]
func (h *BadgeHandler) Cancel(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	job, err := h.service.Cancel(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Download godoc
// @Summary Download a badge sheet
// @Tags Badges
// @Produce application/pdf
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Router /badges/download/{token} [get]
func (h *BadgeHandler) Download(c *gin.Context) {
	file, relPath, err := h.service.Open(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	serveFile(c, file, relPath)
}
