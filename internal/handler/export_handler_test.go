package handler

import (
	"context"
	"net/http"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/event-registration-api/internal/models"
	"github.com/noah-isme/event-registration-api/internal/service"
	appErrors "github.com/noah-isme/event-registration-api/pkg/errors"
)

type fakeExportSrv struct {
	lastReq models.ExportRequest
	calls   int
}

func (f *fakeExportSrv) Generate(_ context.Context, _ service.Actor, req models.ExportRequest) (*models.ExportResult, error) {
	f.calls++
	f.lastReq = req
	return &models.ExportResult{ID: "exp-1", Format: req.Format, URL: "/api/v1/exports/download/tok"}, nil
}

func (f *fakeExportSrv) Open(string) (*os.File, string, error) {
	return nil, "", appErrors.ErrNotFound
}

func TestExportHandlerRegistrations(t *testing.T) {
	srv := &fakeExportSrv{}
	handler := NewExportHandler(srv)

	payload := map[string]interface{}{"format": "csv", "filter": map[string]interface{}{"statuses": []string{"confirmed"}}}
	c, rec := newTestContext(http.MethodPost, "/exports/registrations", jsonBody(payload), cashierClaims)
	handler.Registrations(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, models.ExportFormatCSV, srv.lastReq.Format)
	assert.Equal(t, []models.RegistrationStatus{models.StatusConfirmed}, srv.lastReq.Filter.Statuses)
	assert.Contains(t, string(decodeEnvelope(rec).Data), "/exports/download/tok")

	bad := map[string]interface{}{"format": "csv", "filter": map[string]interface{}{"statuses": []string{"paid"}}}
	c, rec = newTestContext(http.MethodPost, "/exports/registrations", jsonBody(bad), cashierClaims)
	handler.Registrations(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1, srv.calls)
}
