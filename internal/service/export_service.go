package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/event-registration-api/internal/models"
	appErrors "github.com/noah-isme/event-registration-api/pkg/errors"
	"github.com/noah-isme/event-registration-api/pkg/export"
	"github.com/noah-isme/event-registration-api/pkg/storage"
)

// RegistrationExportHeaders is the fixed column order of registration exports.
var RegistrationExportHeaders = []string{
	"Invoice Code", "Full Name", "Saint Name", "Gender", "Age Group", "Shirt Size", "Province", "Diocese",
	"Email", "Phone", "Facebook", "Role", "Team", "Status", "Shared Transport", "Attendance", "Primary",
	"Amount", "Registered At",
}

type registrationSource interface {
	Registrations(ctx context.Context, filter models.AnalyticsFilter) ([]models.Registration, models.AnalyticsFilter, error)
}

type roleDirectory interface {
	ListRoles(ctx context.Context, eventID string) ([]models.EventRole, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	RenderWithLayout(data export.Dataset, title string, layout export.PDFLayout) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
	FontPath  string
}

// ExportService renders registration exports and serves them through signed URLs.
type ExportService struct {
	registrations registrationSource
	roles         roleDirectory
	storage       fileStorage
	csv           csvRenderer
	pdf           pdfRenderer
	signer        *storage.SignedURLSigner
	audit         auditLogger
	metrics       *MetricsService
	validator     *RegistrantValidator
	logger        *zap.Logger
	cfg           ExportConfig
	now           func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(registrations registrationSource, roles roleDirectory, store fileStorage, signer *storage.SignedURLSigner, audit auditLogger, metrics *MetricsService, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		registrations: registrations,
		roles:         roles,
		storage:       store,
		csv:           export.NewCSVExporter(),
		pdf:           export.NewPDFExporter(cfg.FontPath),
		signer:        signer,
		audit:         audit,
		metrics:       metrics,
		validator:     NewRegistrantValidator(nil),
		logger:        logger,
		cfg:           cfg,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Generate renders the registrations matching the request and stores the file.
func (s *ExportService) Generate(ctx context.Context, actor Actor, req models.ExportRequest) (*models.ExportResult, error) {
	req.Format = models.ExportFormat(strings.ToLower(string(req.Format)))
	if err := ValidateStruct(ctx, s.validator.Validator(), req); err != nil {
		return nil, err
	}
	regs, filter, err := s.registrations.Registrations(ctx, req.Filter)
	if err != nil {
		return nil, err
	}
	dataset := BuildRegistrationDataset(regs, s.roleLookup(ctx, filter.EventConfigID))

	var payload []byte
	switch req.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.RenderWithLayout(dataset, "Danh sách đăng ký", export.PDFLayout{
			Landscape:    true,
			ColumnWidths: map[string]float64{"Invoice Code": 24, "Full Name": 32, "Email": 30, "Registered At": 22},
			Summary:      s.summaryLines(regs),
		})
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	id := uuid.NewString()
	filename := fmt.Sprintf("registrations_%s_%s.%s", s.now().Format("20060102_150405"), id[:8], req.Format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}
	token, expiresAt, err := s.signer.Generate(id, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export url")
	}

	s.metrics.RecordExport(string(req.Format))
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionExport, "registration_export", id, nil,
		map[string]interface{}{"format": req.Format, "rows": dataset.Len(), "filter": filter})
	s.logger.Info("registration export generated", zap.String("export_id", id), zap.String("format", string(req.Format)), zap.Int("rows", dataset.Len()))

	return &models.ExportResult{
		ID:        id,
		Format:    req.Format,
		Rows:      dataset.Len(),
		URL:       downloadURL(s.cfg.APIPrefix, "exports", token),
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// Open validates a download token and opens the referenced file.
func (s *ExportService) Open(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "download link is invalid or expired")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export file no longer exists")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export")
	}
	return file, relPath, nil
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

// roleLookup returns role ids mapped to roles. A failing lookup degrades to empty names.
func (s *ExportService) roleLookup(ctx context.Context, eventID string) map[string]models.EventRole {
	lookup := make(map[string]models.EventRole)
	if s.roles == nil {
		return lookup
	}
	roles, err := s.roles.ListRoles(ctx, eventID)
	if err != nil {
		s.logger.Warn("role lookup failed, exporting without team names", zap.String("event_id", eventID), zap.Error(err))
		return lookup
	}
	for _, role := range roles {
		lookup[role.ID] = role
	}
	return lookup
}

func (s *ExportService) summaryLines(regs []models.Registration) []export.SummaryLine {
	summary := Summarize(regs)
	return []export.SummaryLine{
		{Label: "Registrations", Value: strconv.Itoa(summary.TotalRegistrations)},
		{Label: "Registrants", Value: strconv.Itoa(summary.TotalRegistrants)},
		{Label: "Total amount (JPY)", Value: strconv.FormatInt(summary.TotalAmount, 10)},
		{Label: "Generated", Value: s.now().Format("2006-01-02 15:04 MST")},
	}
}

// BuildRegistrationDataset flattens registrations into one row per registrant.
// The registration amount is reported on the primary registrant's row only.
func BuildRegistrationDataset(regs []models.Registration, roles map[string]models.EventRole) export.Dataset {
	rows := make([]map[string]string, 0)
	for _, reg := range regs {
		for _, r := range reg.Registrants {
			role, team := r.Role(), ""
			if known, ok := roles[r.EventRole]; ok {
				role, team = known.Name, known.TeamName
			}
			amount := ""
			if r.IsPrimary {
				amount = strconv.FormatInt(reg.TotalAmount, 10)
			}
			rows = append(rows, map[string]string{
				"Invoice Code":     reg.InvoiceCode,
				"Full Name":        r.FullName,
				"Saint Name":       deref(r.SaintName),
				"Gender":           string(r.Gender),
				"Age Group":        string(r.AgeGroup),
				"Shirt Size":       r.ShirtSize,
				"Province":         r.Province,
				"Diocese":          r.Diocese,
				"Email":            deref(r.Email),
				"Phone":            deref(r.Phone),
				"Facebook":         deref(r.FacebookLink),
				"Role":             role,
				"Team":             team,
				"Status":           reg.Status.Label(),
				"Shared Transport": yesNo(r.GoWith),
				"Attendance":       attendanceLabel(r),
				"Primary":          yesNo(r.IsPrimary),
				"Amount":           amount,
				"Registered At":    reg.CreatedAt.UTC().Format("2006-01-02 15:04"),
			})
		}
	}
	return export.Dataset{Headers: RegistrationExportHeaders, Rows: rows}
}

func attendanceLabel(r models.Registrant) string {
	switch {
	case r.SelectedAttendanceDay != nil:
		return r.SelectedAttendanceDay.Format("2006-01-02")
	case r.SecondDayOnly:
		return "Day 2"
	default:
		return "Full"
	}
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func downloadURL(prefix, resource, token string) string {
	base := strings.TrimRight(prefix, "/")
	if base == "" {
		base = "/api/v1"
	}
	return fmt.Sprintf("%s/%s/download/%s", base, resource, token)
}
