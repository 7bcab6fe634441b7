package handler

import (
	"context"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/event-registration-api/internal/models"
	"github.com/noah-isme/event-registration-api/internal/service"
	"github.com/noah-isme/event-registration-api/pkg/response"
)

type exportService interface {
	Generate(ctx context.Context, actor service.Actor, req models.ExportRequest) (*models.ExportResult, error)
	Open(token string) (*os.File, string, error)
}

// ExportHandler generates registration exports and serves the signed downloads.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(svc exportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Registrations godoc
// @Summary Export registrations
// @Description Renders the filtered registrations as CSV or PDF and returns a signed download URL
// @Tags Exports
// @Accept json
// @Produce json
// @Param payload body models.ExportRequest true "Format and filter"
// @Success 201 {object} response.Envelope
// @Router /exports/registrations [post]
func (h *ExportHandler) Registrations(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.ExportRequest
	if !bindJSON(c, &req, "invalid export payload") {
		return
	}
	if err := validateStatuses(req.Filter.Statuses); err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.Generate(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download an export
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /exports/download/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	file, relPath, err := h.service.Open(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	serveFile(c, file, relPath)
}
