package handler

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/event-registration-api/internal/middleware"
	"github.com/noah-isme/event-registration-api/internal/models"
	"github.com/noah-isme/event-registration-api/internal/service"
	appErrors "github.com/noah-isme/event-registration-api/pkg/errors"
	"github.com/noah-isme/event-registration-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.Claims(c)
	if !ok {
		return nil
	}
	return claims
}

// actorFromContext writes 401 and returns false when no claims are present.
func actorFromContext(c *gin.Context) (service.Actor, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return service.Actor{}, false
	}
	return service.ActorFromClaims(claims), true
}

func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return page, size
}

func statusesQuery(c *gin.Context) []models.RegistrationStatus {
	var statuses []models.RegistrationStatus
	for _, raw := range c.QueryArray("status") {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				statuses = append(statuses, models.RegistrationStatus(part))
			}
		}
	}
	return statuses
}

func validateStatuses(statuses []models.RegistrationStatus) error {
	for _, s := range statuses {
		if !s.Valid() {
			return appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "unknown status"),
				[]appErrors.FieldDetail{{Field: "status", Message: fmt.Sprintf("unknown status %q", s)}})
		}
	}
	return nil
}

// dateQuery parses YYYY-MM-DD or RFC3339 values.
func dateQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return &parsed, nil
		}
	}
	return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "invalid date"),
		[]appErrors.FieldDetail{{Field: key, Message: "expected YYYY-MM-DD or RFC3339"}})
}

func analyticsFilterFromQuery(c *gin.Context) (models.AnalyticsFilter, error) {
	filter := models.AnalyticsFilter{
		EventConfigID: strings.TrimSpace(c.Query("event_id")),
		Statuses:      statusesQuery(c),
		Search:        strings.TrimSpace(c.Query("search")),
	}
	if err := validateStatuses(filter.Statuses); err != nil {
		return filter, err
	}
	var err error
	if filter.From, err = dateQuery(c, "from"); err != nil {
		return filter, err
	}
	if filter.To, err = dateQuery(c, "to"); err != nil {
		return filter, err
	}
	return filter, nil
}

// uploadFromForm reads the multipart "file" field. The caller must invoke the returned closer.
func uploadFromForm(c *gin.Context) (service.UploadFile, func(), bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "file is required"),
			[]appErrors.FieldDetail{{Field: "file", Message: "multipart field file is required"}}))
		return service.UploadFile{}, nil, false
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return service.UploadFile{}, nil, false
	}
	upload := service.UploadFile{Filename: fileHeader.Filename, Size: fileHeader.Size, Content: src}
	return upload, func() { _ = src.Close() }, true
}

func serveFile(c *gin.Context, file *os.File, relPath string) {
	defer file.Close() //nolint:errcheck
	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat file"))
		return
	}
	filename := filepath.Base(relPath)
	contentType := "application/octet-stream"
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		contentType = "text/csv; charset=utf-8"
	case ".pdf":
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, info.Size(), contentType, io.Reader(file), nil)
}
