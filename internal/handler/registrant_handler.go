package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/event-registration-api/internal/models"
	"github.com/noah-isme/event-registration-api/internal/service"
	"github.com/noah-isme/event-registration-api/pkg/response"
)

type registrantService interface {
	CheckIn(ctx context.Context, actor service.Actor, registrantID string) (*models.AttendanceResult, error)
	CheckOut(ctx context.Context, actor service.Actor, registrantID string) (*models.AttendanceResult, error)
	UndoCheckIn(ctx context.Context, actor service.Actor, registrantID string) (*models.AttendanceResult, error)
	AssignRole(ctx context.Context, actor service.Actor, registrantID string, req models.AssignRoleRequest) (*models.Registrant, error)
	UploadPortrait(ctx context.Context, actor service.Actor, registrantID string, file service.UploadFile) (*models.Registrant, error)
}

// RegistrantHandler exposes per-registrant operations used at the venue.
type RegistrantHandler struct {
	service registrantService
}

// NewRegistrantHandler constructs the handler.
func NewRegistrantHandler(svc registrantService) *RegistrantHandler {
	return &RegistrantHandler{service: svc}
}

type attendanceFunc func(ctx context.Context, actor service.Actor, registrantID string) (*models.AttendanceResult, error)

func (h *RegistrantHandler) attendance(c *gin.Context, fn attendanceFunc) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	result, err := fn(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// CheckIn godoc
// @Summary Check a registrant in
// @Description The registration moves to checked_in once every registrant has arrived
// @Tags Registrants
// @Produce json
// @Param id path string true "Registrant ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /registrants/{id}/check-in [post]
func (h *RegistrantHandler) CheckIn(c *gin.Context) {
	h.attendance(c, h.service.CheckIn)
}

// CheckOut godoc
// @Summary Check a registrant out
// @Tags Registrants
// @Produce json
// @Param id path string true "Registrant ID"
// @Success 200 {object} response.Envelope
// @Router /registrants/{id}/check-out [post]
func (h *RegistrantHandler) CheckOut(c *gin.Context) {
	h.attendance(c, h.service.CheckOut)
}

// UndoCheckIn godoc
// @Summary Revert a check-in
// @Tags Registrants
// @Produce json
// @Param id path string true "Registrant ID"
// @Success 200 {object} response.Envelope
// @Router /registrants/{id}/check-in [delete]
func (h *RegistrantHandler) UndoCheckIn(c *gin.Context) {
	h.attendance(c, h.service.UndoCheckIn)
}

// AssignRole godoc
// @Summary Assign a volunteer role
// @Tags Registrants
// @Accept json
// @Produce json
// @Param id path string true "Registrant ID"
// @Param payload body models.AssignRoleRequest true "Role"
// @Success 200 {object} response.Envelope
// @Router /registrants/{id}/role [put]
func (h *RegistrantHandler) AssignRole(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.AssignRoleRequest
	if !bindJSON(c, &req, "invalid role payload") {
		return
	}
	registrant, err := h.service.AssignRole(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, registrant, nil)
}

// UploadPortrait godoc
// @Summary Upload a badge portrait
// @Tags Registrants
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Registrant ID"
// @Param file formData file true "Portrait image"
// @Success 200 {object} response.Envelope
// @Router /registrants/{id}/portrait [post]
func (h *RegistrantHandler) UploadPortrait(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	upload, closeFn, ok := uploadFromForm(c)
	if !ok {
		return
	}
	defer closeFn()

	registrant, err := h.service.UploadPortrait(c.Request.Context(), actor, c.Param("id"), upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, registrant, nil)
}
