package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/event-registration-api/internal/models"
	"github.com/noah-isme/event-registration-api/internal/repository"
	appErrors "github.com/noah-isme/event-registration-api/pkg/errors"
)

const (
	invoiceAlphabet    = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	invoiceSuffixLen   = 6
	invoiceMaxAttempts = 5
)

type registrationStore interface {
	Create(ctx context.Context, reg *models.Registration) error
	GetByID(ctx context.Context, id string) (*models.Registration, error)
	List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, int, error)
	ReplaceRegistrants(ctx context.Context, reg *models.Registration, expectedStatus models.RegistrationStatus) error
	UpdateStatus(ctx context.Context, params repository.UpdateStatusParams) error
	Delete(ctx context.Context, id string) error
}

type registrantStore interface {
	GetByID(ctx context.Context, id string) (*models.Registrant, error)
	RecordAttendance(ctx context.Context, params repository.AttendanceParams) (models.RegistrationStatus, error)
	UpdateRole(ctx context.Context, id, role, shirtSize string) error
	UpdatePortrait(ctx context.Context, id, url string) error
}

type eventProvider interface {
	GetActive(ctx context.Context) (*models.EventConfig, error)
	GetByID(ctx context.Context, id string) (*models.EventConfig, error)
}

type roleLookup interface {
	GetRole(ctx context.Context, id string) (*models.EventRole, error)
}

type cacheInvalidator interface {
	InvalidateCache(ctx context.Context)
}

// RegistrationSettings carries the registration rules taken from configuration.
type RegistrationSettings struct {
	Policy        DiscountPolicy
	AutoConfirm   bool
	InvoicePrefix string
}

// RegistrationService runs the registration workflow: submission, edits,
// payment reporting, status transitions and on-site attendance.
type RegistrationService struct {
	registrations registrationStore
	registrants   registrantStore
	events        eventProvider
	roles         roleLookup
	audit         auditLogger
	validator     *RegistrantValidator
	uploads       *UploadService
	notifier      *NotificationService
	metrics       *MetricsService
	cache         cacheInvalidator
	settings      RegistrationSettings
	logger        *zap.Logger
	now           func() time.Time
	suffix        func() (string, error)
}

// RegistrationServiceOption configures optional collaborators.
type RegistrationServiceOption func(*RegistrationService)

// WithRegistrationUploads sets the upload service used for receipts and portraits.
func WithRegistrationUploads(uploads *UploadService) RegistrationServiceOption {
	return func(s *RegistrationService) { s.uploads = uploads }
}

// WithRegistrationNotifier publishes status changes.
func WithRegistrationNotifier(notifier *NotificationService) RegistrationServiceOption {
	return func(s *RegistrationService) { s.notifier = notifier }
}

// WithRegistrationMetrics records transition counters.
func WithRegistrationMetrics(metrics *MetricsService) RegistrationServiceOption {
	return func(s *RegistrationService) { s.metrics = metrics }
}

// WithRegistrationCache invalidates cached analytics after writes.
func WithRegistrationCache(cache cacheInvalidator) RegistrationServiceOption {
	return func(s *RegistrationService) { s.cache = cache }
}

// WithRegistrationClock overrides the clock.
func WithRegistrationClock(now func() time.Time) RegistrationServiceOption {
	return func(s *RegistrationService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewRegistrationService constructs the service.
func NewRegistrationService(
	registrations registrationStore,
	registrants registrantStore,
	events eventProvider,
	roles roleLookup,
	audit auditLogger,
	validator *RegistrantValidator,
	settings RegistrationSettings,
	logger *zap.Logger,
	opts ...RegistrationServiceOption,
) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validator == nil {
		validator = NewRegistrantValidator(nil)
	}
	if settings.Policy == "" {
		settings.Policy = DiscountCompound
	}
	if settings.InvoicePrefix == "" {
		settings.InvoicePrefix = "DH"
	}
	svc := &RegistrationService{
		registrations: registrations,
		registrants:   registrants,
		events:        events,
		roles:         roles,
		audit:         audit,
		validator:     validator,
		settings:      settings,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
		suffix:        randomInvoiceSuffix,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Create validates and stores a new pending registration for the actor.
func (s *RegistrationService) Create(ctx context.Context, actor Actor, req models.CreateRegistrationRequest) (*models.Registration, error) {
	if err := ValidateStruct(ctx, s.validator.Validator(), req); err != nil {
		return nil, err
	}
	event, err := s.activeEvent(ctx)
	if err != nil {
		return nil, err
	}
	registrants, err := s.validator.Build(ctx, req.Registrants, BuildOptions{Event: event})
	if err != nil {
		return nil, err
	}

	reg := &models.Registration{
		UserID:        actor.UserID,
		EventConfigID: event.ID,
		Status:        models.StatusPending,
		TotalAmount:   CalculateTotal(registrants, event.BasePrice, s.settings.Policy),
		Notes:         trimPtr(req.Notes),
		Registrants:   registrants,
	}
	for attempt := 1; ; attempt++ {
		code, err := s.invoiceCode()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate invoice code")
		}
		reg.InvoiceCode = code
		err = s.registrations.Create(ctx, reg)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrDuplicateInvoice) && attempt < invoiceMaxAttempts {
			s.logger.Debug("invoice code collision, retrying", zap.String("invoice_code", code), zap.Int("attempt", attempt))
			reg.ID = ""
			continue
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create registration")
	}

	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionRegistrationCreate, "registration", reg.ID, nil,
		map[string]interface{}{"invoice_code": reg.InvoiceCode, "participants": reg.ParticipantCount, "total_amount": reg.TotalAmount})
	s.invalidate(ctx)
	s.logger.Info("registration created",
		zap.String("registration_id", reg.ID),
		zap.String("invoice_code", reg.InvoiceCode),
		zap.Int("participants", reg.ParticipantCount))
	return reg, nil
}

// Quote previews the fee for a registrant list without storing anything.
func (s *RegistrationService) Quote(ctx context.Context, req models.CreateRegistrationRequest) (*models.FeeQuote, error) {
	if err := ValidateStruct(ctx, s.validator.Validator(), req); err != nil {
		return nil, err
	}
	event, err := s.activeEvent(ctx)
	if err != nil {
		return nil, err
	}
	registrants, err := s.validator.Build(ctx, req.Registrants, BuildOptions{Event: event})
	if err != nil {
		return nil, err
	}
	quote := Quote(registrants, event.BasePrice, s.settings.Policy)
	return &quote, nil
}

// Get returns a registration visible to the actor.
func (s *RegistrationService) Get(ctx context.Context, actor Actor, id string) (*models.Registration, error) {
	reg, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if reg.UserID != actor.UserID && !actor.Role.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
	}
	return reg, nil
}

// List returns registrations for staff views.
func (s *RegistrationService) List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, *models.Pagination, error) {
	regs, total, err := s.registrations.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list registrations")
	}
	return regs, pagination(filter.Page, filter.PageSize, total), nil
}

// ListMine returns the actor's own registrations.
func (s *RegistrationService) ListMine(ctx context.Context, actor Actor, filter models.RegistrationFilter) ([]models.Registration, *models.Pagination, error) {
	filter.UserID = actor.UserID
	return s.List(ctx, filter)
}

// Update replaces the registrant list of an editable registration and recomputes the total.
func (s *RegistrationService) Update(ctx context.Context, actor Actor, id string, req models.UpdateRegistrationRequest) (*models.Registration, error) {
	if err := ValidateStruct(ctx, s.validator.Validator(), req); err != nil {
		return nil, err
	}
	reg, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canManage(actor, reg) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you cannot edit this registration")
	}
	if err := CheckParticipantChange(reg.Status, len(reg.Registrants), len(req.Registrants)); err != nil {
		return nil, err
	}
	event, err := s.eventFor(ctx, reg)
	if err != nil {
		return nil, err
	}

	previous := make(map[string]models.Registrant, len(reg.Registrants))
	for _, r := range reg.Registrants {
		previous[r.ID] = r
	}
	registrants, err := s.validator.Build(ctx, req.Registrants, BuildOptions{Event: event, Previous: previous})
	if err != nil {
		return nil, err
	}
	for i := range registrants {
		if prev, ok := previous[registrants[i].ID]; ok {
			registrants[i].CreatedAt = prev.CreatedAt
			registrants[i].PortraitURL = prev.PortraitURL
			if registrants[i].EventRole == "" || registrants[i].EventRole == models.ParticipantRole {
				registrants[i].EventRole = prev.EventRole
			}
		} else {
			registrants[i].ID = ""
		}
	}

	oldTotal := reg.TotalAmount
	expected := reg.Status
	reg.Registrants = registrants
	reg.Notes = trimPtr(req.Notes)
	reg.TotalAmount = CalculateTotal(registrants, event.BasePrice, s.settings.Policy)
	if err := s.registrations.ReplaceRegistrants(ctx, reg, expected); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "registration changed while it was being edited")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update registration")
	}

	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionRegistrationUpdate, "registration", reg.ID,
		map[string]interface{}{"total_amount": oldTotal},
		map[string]interface{}{"total_amount": reg.TotalAmount, "participants": reg.ParticipantCount})
	s.invalidate(ctx)
	return reg, nil
}

// Delete removes a pending registration that never reported payment.
func (s *RegistrationService) Delete(ctx context.Context, actor Actor, id string) error {
	reg, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if reg.UserID != actor.UserID && actor.Role != models.RoleSuperAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "you cannot delete this registration")
	}
	if reg.Status != models.StatusPending || reg.ReceiptURL != nil {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "only pending registrations without a receipt can be deleted")
	}
	if err := s.registrations.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrConflict, "registration changed while it was being deleted")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete registration")
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionRegistrationDelete, "registration", id,
		map[string]interface{}{"invoice_code": reg.InvoiceCode}, nil)
	s.invalidate(ctx)
	return nil
}

// UploadReceipt stores a payment receipt and reports the registration as paid.
func (s *RegistrationService) UploadReceipt(ctx context.Context, actor Actor, id string, file UploadFile) (*models.Registration, error) {
	reg, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	rule, ok := models.FindTransition(models.ActionReportPayment, reg.Status)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("a receipt cannot be uploaded while the registration is %s", reg.Status))
	}
	if !rule.Permits(actor.Role, reg.UserID == actor.UserID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the registrant can report payment")
	}
	url, err := s.uploads.Save(ctx, "receipts", reg.ID, file)
	if err != nil {
		return nil, err
	}
	reg.ReceiptURL = &url
	return s.apply(ctx, actor, reg, models.ActionReportPayment, nil)
}

// Transition applies an action through the status machine.
func (s *RegistrationService) Transition(ctx context.Context, actor Actor, id string, req models.TransitionRequest) (*models.Registration, error) {
	if err := ValidateStruct(ctx, s.validator.Validator(), req); err != nil {
		return nil, err
	}
	reg, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, actor, reg, req.Action, trimPtr(req.Note))
}

func (s *RegistrationService) apply(ctx context.Context, actor Actor, reg *models.Registration, action models.RegistrationAction, note *string) (*models.Registration, error) {
	var event *models.EventConfig
	if action == models.ActionRequestCancel {
		ev, err := s.eventFor(ctx, reg)
		if err != nil {
			return nil, err
		}
		event = ev
	}
	rule, err := ResolveTransition(reg, action, actor, event, s.now())
	if err != nil {
		return nil, err
	}

	from := reg.Status
	to := rule.To
	if action == models.ActionConfirmPayment && s.settings.AutoConfirm {
		to = models.StatusConfirmed
	}
	params := repository.UpdateStatusParams{ID: reg.ID, From: from, To: to, AdminNote: note}
	if action == models.ActionReportPayment {
		params.ReceiptURL = reg.ReceiptURL
	}
	if err := s.registrations.UpdateStatus(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "registration status changed concurrently, reload and retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update registration status")
	}
	reg.Status = to
	if note != nil {
		reg.AdminNote = note
	}
	reg.UpdatedAt = s.now()

	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionStatusTransition, "registration", reg.ID,
		map[string]interface{}{"status": from},
		map[string]interface{}{"status": to, "action": action, "note": note})
	s.metrics.RecordTransition(string(action), from, to)
	s.notifier.StatusChanged(ctx, reg, from, string(action), actor.UserID)
	s.invalidate(ctx)
	s.logger.Info("registration status changed",
		zap.String("registration_id", reg.ID),
		zap.String("action", string(action)),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return reg, nil
}

// CheckIn records the arrival of a registrant.
func (s *RegistrationService) CheckIn(ctx context.Context, actor Actor, registrantID string) (*models.AttendanceResult, error) {
	return s.attendance(ctx, actor, registrantID, "check_in")
}

// CheckOut records the departure of a checked-in registrant.
func (s *RegistrationService) CheckOut(ctx context.Context, actor Actor, registrantID string) (*models.AttendanceResult, error) {
	return s.attendance(ctx, actor, registrantID, "check_out")
}

// UndoCheckIn clears a mistaken check-in.
func (s *RegistrationService) UndoCheckIn(ctx context.Context, actor Actor, registrantID string) (*models.AttendanceResult, error) {
	return s.attendance(ctx, actor, registrantID, "undo_check_in")
}

func (s *RegistrationService) attendance(ctx context.Context, actor Actor, registrantID, operation string) (*models.AttendanceResult, error) {
	if !hasRole(actor.Role, models.CheckInRoles) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "check-in requires an organizer role")
	}
	registrant, err := s.loadRegistrant(ctx, registrantID)
	if err != nil {
		return nil, err
	}
	reg, err := s.load(ctx, registrant.RegistrationID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	params := repository.AttendanceParams{
		RegistrantID:   registrant.ID,
		RegistrationID: reg.ID,
		CheckedInAt:    registrant.CheckedInAt,
		CheckedOutAt:   registrant.CheckedOutAt,
	}
	switch operation {
	case "check_in":
		if !reg.Status.Info().CheckInAllowed {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
				fmt.Sprintf("registrants cannot check in while the registration is %s", reg.Status))
		}
		if registrant.CheckedInAt != nil {
			return nil, appErrors.Clone(appErrors.ErrConflict, "registrant is already checked in")
		}
		params.CheckedInAt = &now
		params.AllowedFrom = models.CheckInStatuses()
	case "check_out", "undo_check_in":
		if reg.Status != models.StatusCheckedIn {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
				fmt.Sprintf("registration is %s, not checked in", reg.Status))
		}
		if registrant.CheckedInAt == nil || registrant.CheckedOutAt != nil {
			return nil, appErrors.Clone(appErrors.ErrConflict, "registrant is not currently checked in")
		}
		if operation == "check_out" {
			params.CheckedOutAt = &now
		} else {
			params.CheckedInAt = nil
		}
		params.AllowedFrom = []models.RegistrationStatus{models.StatusCheckedIn}
	}

	status, err := s.registrants.RecordAttendance(ctx, params)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "registration changed during check-in, reload and retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}
	registrant.CheckedInAt = params.CheckedInAt
	registrant.CheckedOutAt = params.CheckedOutAt

	action := models.AuditActionCheckIn
	if operation == "check_out" {
		action = models.AuditActionCheckOut
	}
	recordAudit(ctx, s.audit, s.logger, actor, action, "registrant", registrant.ID,
		map[string]interface{}{"registration_status": reg.Status},
		map[string]interface{}{"registration_status": status, "operation": operation})
	s.metrics.RecordAttendance(operation)
	if status != reg.Status {
		s.metrics.RecordTransition(operation, reg.Status, status)
		from := reg.Status
		reg.Status = status
		s.notifier.StatusChanged(ctx, reg, from, operation, actor.UserID)
	}
	s.invalidate(ctx)
	return &models.AttendanceResult{Registrant: *registrant, RegistrationStatus: status}, nil
}

// AssignRole gives a registrant a volunteer role, keeping the shirt size on the matching scale.
func (s *RegistrationService) AssignRole(ctx context.Context, actor Actor, registrantID string, req models.AssignRoleRequest) (*models.Registrant, error) {
	if err := ValidateStruct(ctx, s.validator.Validator(), req); err != nil {
		return nil, err
	}
	if actor.Role != models.RoleSuperAdmin && actor.Role != models.RoleEventOrganizer {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only organizers can assign roles")
	}
	registrant, err := s.loadRegistrant(ctx, registrantID)
	if err != nil {
		return nil, err
	}

	role := strings.TrimSpace(req.EventRole)
	if role != models.ParticipantRole {
		if _, err := s.roles.GetRole(ctx, role); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "unknown event role"),
					[]appErrors.FieldDetail{{Field: "event_role", Message: "role does not exist"}})
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load role")
		}
	}

	sizes := models.ShirtSizesForRole(role)
	size := strings.ToUpper(strings.TrimSpace(req.ShirtSize))
	switch {
	case size != "" && !containsString(sizes, size):
		return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "shirt size does not match the role"),
			[]appErrors.FieldDetail{{Field: "shirt_size", Message: "must be one of " + strings.Join(sizes, ", ")}})
	case size == "" && !containsString(sizes, registrant.ShirtSize):
		return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "a shirt size for the new role is required"),
			[]appErrors.FieldDetail{{Field: "shirt_size", Message: "must be one of " + strings.Join(sizes, ", ")}})
	}

	if err := s.registrants.UpdateRole(ctx, registrant.ID, role, size); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registrant not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign role")
	}
	previousRole := registrant.EventRole
	registrant.EventRole = role
	if size != "" {
		registrant.ShirtSize = size
	}
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionRoleChange, "registrant", registrant.ID,
		map[string]string{"event_role": previousRole}, map[string]string{"event_role": role, "shirt_size": registrant.ShirtSize})
	s.invalidate(ctx)
	return registrant, nil
}

// UploadPortrait stores the badge portrait of a registrant.
func (s *RegistrationService) UploadPortrait(ctx context.Context, actor Actor, registrantID string, file UploadFile) (*models.Registrant, error) {
	registrant, err := s.loadRegistrant(ctx, registrantID)
	if err != nil {
		return nil, err
	}
	reg, err := s.load(ctx, registrant.RegistrationID)
	if err != nil {
		return nil, err
	}
	if reg.UserID != actor.UserID && !actor.Role.IsStaff() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you cannot change this registrant")
	}
	url, err := s.uploads.SaveImage(ctx, "portraits", registrant.ID, file)
	if err != nil {
		return nil, err
	}
	if err := s.registrants.UpdatePortrait(ctx, registrant.ID, url); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store portrait")
	}
	registrant.PortraitURL = &url
	return registrant, nil
}

// Statuses returns the status catalog and action table.
func (s *RegistrationService) Statuses() models.RegistrationStatusView {
	return models.RegistrationStatusView{Statuses: models.StatusCatalog(), Transitions: models.TransitionRules()}
}

func (s *RegistrationService) load(ctx context.Context, id string) (*models.Registration, error) {
	reg, err := s.registrations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}
	return reg, nil
}

func (s *RegistrationService) loadRegistrant(ctx context.Context, id string) (*models.Registrant, error) {
	registrant, err := s.registrants.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registrant not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registrant")
	}
	return registrant, nil
}

func (s *RegistrationService) activeEvent(ctx context.Context) (*models.EventConfig, error) {
	event, err := s.events.GetActive(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNoActiveEvent, "registration is closed: no active event")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active event")
	}
	return event, nil
}

func (s *RegistrationService) eventFor(ctx context.Context, reg *models.Registration) (*models.EventConfig, error) {
	event, err := s.events.GetByID(ctx, reg.EventConfigID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return event, nil
}

func (s *RegistrationService) canManage(actor Actor, reg *models.Registration) bool {
	if reg.UserID == actor.UserID {
		return true
	}
	return actor.Role == models.RoleSuperAdmin || actor.Role == models.RoleRegistrationManager
}

func (s *RegistrationService) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.InvalidateCache(ctx)
	}
}

func (s *RegistrationService) invoiceCode() (string, error) {
	suffix, err := s.suffix()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%s", s.settings.InvoicePrefix, s.now().Format("20060102"), suffix), nil
}

func randomInvoiceSuffix() (string, error) {
	var b strings.Builder
	max := big.NewInt(int64(len(invoiceAlphabet)))
	for i := 0; i < invoiceSuffixLen; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(invoiceAlphabet[n.Int64()])
	}
	return b.String(), nil
}

func hasRole(role models.UserRole, allowed []models.UserRole) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
