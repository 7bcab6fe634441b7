package handler

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/event-registration-api/internal/models"
	"github.com/noah-isme/event-registration-api/internal/service"
	appErrors "github.com/noah-isme/event-registration-api/pkg/errors"
)

type fakeBadgeSrv struct {
	lastReq models.BadgeJobRequest
	file    string
}

func (f *fakeBadgeSrv) Start(_ context.Context, actor service.Actor, req models.BadgeJobRequest) (*models.BadgeJob, error) {
	f.lastReq = req
	return &models.BadgeJob{ID: "job-1", Status: models.BadgeJobQueued, CreatedBy: actor.UserID}, nil
}

func (f *fakeBadgeSrv) Get(_ context.Context, actor service.Actor, id string) (*models.BadgeJob, error) {
	if id != "job-1" {
		return nil, appErrors.ErrNotFound
	}
	return &models.BadgeJob{ID: id, Status: models.BadgeJobProcessing, Total: 10, Rendered: 4}, nil
}

func (f *fakeBadgeSrv) Cancel(context.Context, service.Actor, string) (*models.BadgeJob, error) {
	return nil, appErrors.Clone(appErrors.ErrConflict, "job already finished")
}

func (f *fakeBadgeSrv) Open(token string) (*os.File, string, error) {
	if token != "good" {
		return nil, "", appErrors.ErrNotFound
	}
	file, err := os.Open(f.file)
	return file, "badges/badges_1.pdf", err
}

func TestBadgeHandlerStartAccepted(t *testing.T) {
	srv := &fakeBadgeSrv{}
	handler := NewBadgeHandler(srv)
	organizer := &models.JWTClaims{UserID: "org-1", Role: models.RoleEventOrganizer}

	c, rec := newTestContext(http.MethodPost, "/badges/jobs", nil, organizer)
	handler.Start(c)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	c, rec = newTestContext(http.MethodPost, "/badges/jobs", jsonBody(models.BadgeJobRequest{Search: "lan"}), organizer)
	handler.Start(c)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "lan", srv.lastReq.Search)
	assert.Contains(t, string(decodeEnvelope(rec).Data), `"created_by":"org-1"`)
}

func TestBadgeHandlerStatusAndCancel(t *testing.T) {
	handler := NewBadgeHandler(&fakeBadgeSrv{})
	organizer := &models.JWTClaims{UserID: "org-1", Role: models.RoleEventOrganizer}

	c, rec := newTestContext(http.MethodGet, "/badges/jobs/missing", nil, organizer)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	handler.Get(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	c, rec = newTestContext(http.MethodGet, "/badges/jobs/job-1", nil, organizer)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}
	handler.Get(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decodeEnvelope(rec).Data), `"rendered":4`)

	c, rec = newTestContext(http.MethodPost, "/badges/jobs/job-1/cancel", nil, organizer)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}
	handler.Cancel(c)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestBadgeHandlerDownload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sheet.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.3"), 0o600))
	handler := NewBadgeHandler(&fakeBadgeSrv{file: path})

	c, rec := newTestContext(http.MethodGet, "/badges/download/bad", nil, nil)
	c.Params = gin.Params{{Key: "token", Value: "bad"}}
	handler.Download(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	c, rec = newTestContext(http.MethodGet, "/badges/download/good", nil, nil)
	c.Params = gin.Params{{Key: "token", Value: "good"}}
	handler.Download(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="badges_1.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.3", rec.Body.String())
}
