package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/event-registration-api/internal/models"
	appErrors "github.com/noah-isme/event-registration-api/pkg/errors"
)

type stubValidator struct {
	claims *models.JWTClaims
}

func (s stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return s.claims, nil
}

type recordingAudit struct {
	entries []*models.AuditLog
}

func (r *recordingAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.entries = append(r.entries, log)
	return nil
}

type recordingObserver struct {
	paths    []string
	statuses []int
}

func (r *recordingObserver) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	r.paths = append(r.paths, path)
	r.statuses = append(r.statuses, status)
}

func newRouter(claims *models.JWTClaims, handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	chain := append([]gin.HandlerFunc{JWT(stubValidator{claims: claims})}, handlers...)
	chain = append(chain, func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.POST("/registrations/:id", chain...)
	return router
}

func serve(router *gin.Engine, auth string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/registrations/reg-1", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestJWT(t *testing.T) {
	router := newRouter(&models.JWTClaims{UserID: "u-1", Role: models.RoleUser})

	assert.Equal(t, http.StatusUnauthorized, serve(router, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "Bearer bad").Code)
	assert.Equal(t, http.StatusNoContent, serve(router, "bearer good").Code)
}

func TestOptionalJWT(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/", OptionalJWT(stubValidator{claims: &models.JWTClaims{UserID: "u-1"}}), func(c *gin.Context) {
		_, ok := Claims(c)
		c.JSON(http.StatusOK, gin.H{"authenticated": ok})
	})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"authenticated":false}`, recorder.Body.String())

	recorder = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	router.ServeHTTP(recorder, req)
	assert.JSONEq(t, `{"authenticated":true}`, recorder.Body.String())
}

func TestRequireRoles(t *testing.T) {
	cashier := newRouter(&models.JWTClaims{UserID: "u-1", Role: models.RoleCashier}, RequireRoles(models.RoleCashier))
	assert.Equal(t, http.StatusNoContent, serve(cashier, "Bearer good").Code)

	user := newRouter(&models.JWTClaims{UserID: "u-1", Role: models.RoleUser}, RequireRoles(models.RoleCashier))
	assert.Equal(t, http.StatusForbidden, serve(user, "Bearer good").Code)

	admin := newRouter(&models.JWTClaims{UserID: "u-1", Role: models.RoleSuperAdmin}, RequireRoles(models.RoleCashier))
	assert.Equal(t, http.StatusNoContent, serve(admin, "Bearer good").Code)

	self := newRouter(&models.JWTClaims{UserID: "reg-1", Role: models.RoleUser}, RequireRolesOrSelf(models.RoleCashier))
	assert.Equal(t, http.StatusNoContent, serve(self, "Bearer good").Code)
}

func TestAuditRecordsSuccessfulRequests(t *testing.T) {
	writer := &recordingAudit{}
	router := newRouter(&models.JWTClaims{UserID: "u-1", Role: models.RoleCashier}, Audit(writer, nil, models.AuditActionStatusTransition, "registration"))

	require.Equal(t, http.StatusNoContent, serve(router, "Bearer good").Code)
	require.Len(t, writer.entries, 1)
	entry := writer.entries[0]
	assert.Equal(t, "u-1", *entry.UserID)
	assert.Equal(t, "reg-1", *entry.ResourceID)
	assert.Contains(t, entry.Client, "Chrome 120")
	assert.Contains(t, string(entry.NewValues), `"status":204`)

	serve(router, "Bearer bad")
	assert.Len(t, writer.entries, 1)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	observer := &recordingObserver{}
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Metrics(observer))
	router.GET("/registrations/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/registrations/abc", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, []string{"/registrations/:id", "unmatched"}, observer.paths)
	assert.Equal(t, []int{http.StatusOK, http.StatusNotFound}, observer.statuses)
}

func TestResponseMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(WithResponseMeta())
	var meta map[string]interface{}
	router.GET("/", func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, true, meta[cacheHitKey])
	assert.Contains(t, meta, "processing_time_ms")
}
