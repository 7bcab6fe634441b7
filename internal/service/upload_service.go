package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/event-registration-api/pkg/errors"
)

// UploadFile is a file received from a multipart form.
type UploadFile struct {
	Filename string
	Size     int64
	Content  io.Reader
}

type fileStore interface {
	Save(filename string, data []byte) (string, error)
	PublicURL(filename string) string
}

// UploadConfig limits what may be uploaded.
type UploadConfig struct {
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// UploadService stores receipts, avatars and portraits and returns their public URL.
type UploadService struct {
	store  fileStore
	cfg    UploadConfig
	logger *zap.Logger
}

var mimeExtensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"image/gif":       ".gif",
	"application/pdf": ".pdf",
}

// NewUploadService constructs the service.
func NewUploadService(store fileStore, cfg UploadConfig, logger *zap.Logger) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSizeBytes <= 0 {
		cfg.MaxFileSizeBytes = 5 << 20
	}
	if len(cfg.AllowedMIMEs) == 0 {
		cfg.AllowedMIMEs = []string{"image/jpeg", "image/png", "image/webp", "application/pdf"}
	}
	return &UploadService{store: store, cfg: cfg, logger: logger}
}

// Save stores a file under folder/ownerID and returns its public URL.
// The content type is sniffed from the bytes, not taken from the client.
func (s *UploadService) Save(ctx context.Context, folder, ownerID string, file UploadFile) (string, error) {
	return s.save(folder, ownerID, file, s.cfg.AllowedMIMEs)
}

// SaveImage is Save restricted to image types.
func (s *UploadService) SaveImage(ctx context.Context, folder, ownerID string, file UploadFile) (string, error) {
	images := make([]string, 0, len(s.cfg.AllowedMIMEs))
	for _, m := range s.cfg.AllowedMIMEs {
		if strings.HasPrefix(m, "image/") {
			images = append(images, m)
		}
	}
	return s.save(folder, ownerID, file, images)
}

func (s *UploadService) save(folder, ownerID string, file UploadFile, allowed []string) (string, error) {
	if s == nil || s.store == nil {
		return "", appErrors.Clone(appErrors.ErrPreconditionFailed, "file uploads are not configured")
	}
	if file.Content == nil {
		return "", uploadError("a file is required")
	}
	if file.Size > s.cfg.MaxFileSizeBytes {
		return "", uploadError(fmt.Sprintf("file exceeds the %d byte limit", s.cfg.MaxFileSizeBytes))
	}
	data, err := io.ReadAll(io.LimitReader(file.Content, s.cfg.MaxFileSizeBytes+1))
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read upload")
	}
	if int64(len(data)) > s.cfg.MaxFileSizeBytes {
		return "", uploadError(fmt.Sprintf("file exceeds the %d byte limit", s.cfg.MaxFileSizeBytes))
	}
	if len(data) == 0 {
		return "", uploadError("file is empty")
	}

	mime := strings.SplitN(http.DetectContentType(data), ";", 2)[0]
	if !containsString(allowed, mime) {
		return "", uploadError(fmt.Sprintf("file type %s is not allowed", mime))
	}
	ext, ok := mimeExtensions[mime]
	if !ok {
		ext = strings.ToLower(path.Ext(file.Filename))
	}

	name := path.Join(folder, ownerID, uuid.NewString()+ext)
	if _, err := s.store.Save(name, data); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}
	s.logger.Debug("file stored", zap.String("path", name), zap.String("mime", mime), zap.Int("bytes", len(data)))
	return s.store.PublicURL(name), nil
}

func uploadError(message string) error {
	return appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, message),
		[]appErrors.FieldDetail{{Field: "file", Message: message}})
}
