package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/event-registration-api/internal/middleware"
	"github.com/noah-isme/event-registration-api/internal/models"
	appErrors "github.com/noah-isme/event-registration-api/pkg/errors"
	"github.com/noah-isme/event-registration-api/pkg/response"
)

type analyticsService interface {
	Summary(ctx context.Context, filter models.AnalyticsFilter) (models.RegistrationSummary, bool, error)
	Breakdown(ctx context.Context, filter models.AnalyticsFilter, dimension models.BreakdownDimension) (models.Breakdown, bool, error)
	Finance(ctx context.Context, eventID string) (models.FinanceSummary, bool, error)
	Dashboard(ctx context.Context, filter models.AnalyticsFilter, includeFinance bool) (*models.Dashboard, error)
	SystemMetrics() models.SystemMetrics
}

// AnalyticsHandler exposes dashboard-ready analytics endpoints.
type AnalyticsHandler struct {
	analytics analyticsService
}

// NewAnalyticsHandler constructs the analytics handler.
func NewAnalyticsHandler(analytics analyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Summary godoc
// @Summary Registration summary
// @Description Counts, revenue and status distribution for the filtered registrations
// @Tags Analytics
// @Produce json
// @Param event_id query string false "Event ID"
// @Param status query []string false "Statuses" collectionFormat(multi)
// @Param from query string false "From (YYYY-MM-DD)"
// @Param to query string false "To (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /analytics/summary [get]
func (h *AnalyticsHandler) Summary(c *gin.Context) {
	filter, err := analyticsFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	summary, cacheHit, err := h.analytics.Summary(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, summary, cacheHit, start)
}

// Breakdown godoc
// @Summary Grouped registrant counts
// @Tags Analytics
// @Produce json
// @Param dimension path string true "shirt-size, province or diocese"
// @Param event_id query string false "Event ID"
// @Param status query []string false "Statuses" collectionFormat(multi)
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /analytics/breakdown/{dimension} [get]
func (h *AnalyticsHandler) Breakdown(c *gin.Context) {
	dimension := models.BreakdownDimension(strings.ToLower(c.Param("dimension")))
	switch dimension {
	case models.DimensionShirtSize, models.DimensionProvince, models.DimensionDiocese:
	default:
		response.Error(c, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "unknown dimension"),
			[]appErrors.FieldDetail{{Field: "dimension", Message: "expected shirt-size, province or diocese"}}))
		return
	}
	filter, err := analyticsFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	breakdown, cacheHit, err := h.analytics.Breakdown(c.Request.Context(), filter, dimension)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, breakdown, cacheHit, start)
}

// Finance godoc
// @Summary Finance summary
// @Tags Analytics
// @Produce json
// @Param event_id query string false "Event ID"
// @Success 200 {object} response.Envelope
// @Router /analytics/finance [get]
func (h *AnalyticsHandler) Finance(c *gin.Context) {
	start := time.Now()
	summary, cacheHit, err := h.analytics.Finance(c.Request.Context(), strings.TrimSpace(c.Query("event_id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, summary, cacheHit, start)
}

// Dashboard godoc
// @Summary Admin dashboard
// @Description Summary and breakdowns in one call; finance is included for finance roles
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/dashboard [get]
func (h *AnalyticsHandler) Dashboard(c *gin.Context) {
	filter, err := analyticsFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	includeFinance := false
	if claims := claimsFromContext(c); claims != nil {
		includeFinance = claims.Role == models.RoleSuperAdmin || claims.Role == models.RoleCashier
	}
	start := time.Now()
	dashboard, err := h.analytics.Dashboard(c.Request.Context(), filter, includeFinance)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, dashboard, false, start)
}

// System godoc
// @Summary Process metrics snapshot
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /analytics/system [get]
func (h *AnalyticsHandler) System(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.analytics.SystemMetrics(), nil)
}

func (h *AnalyticsHandler) respond(c *gin.Context, data interface{}, cacheHit bool, start time.Time) {
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = make(map[string]interface{})
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, data, nil, meta)
}
