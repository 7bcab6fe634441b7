package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/event-registration-api/internal/models"
	"github.com/noah-isme/event-registration-api/internal/repository"
	appErrors "github.com/noah-isme/event-registration-api/pkg/errors"
)

type stubRegistrationStore struct {
	regs         map[string]*models.Registration
	createErrs   []error
	created      []*models.Registration
	statusCalls  []repository.UpdateStatusParams
	statusErr    error
	replaceErr   error
	replacedWith models.RegistrationStatus
	deleted      []string
}

func (s *stubRegistrationStore) Create(ctx context.Context, reg *models.Registration) error {
	if len(s.createErrs) > 0 {
		err := s.createErrs[0]
		s.createErrs = s.createErrs[1:]
		if err != nil {
			return err
		}
	}
	reg.ID = "reg-new"
	reg.ParticipantCount = len(reg.Registrants)
	s.created = append(s.created, reg)
	return nil
}

func (s *stubRegistrationStore) GetByID(ctx context.Context, id string) (*models.Registration, error) {
	reg, ok := s.regs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copyReg := *reg
	copyReg.Registrants = append([]models.Registrant(nil), reg.Registrants...)
	return &copyReg, nil
}

func (s *stubRegistrationStore) List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, int, error) {
	result := make([]models.Registration, 0)
	for _, reg := range s.regs {
		if filter.UserID != "" && reg.UserID != filter.UserID {
			continue
		}
		result = append(result, *reg)
	}
	return result, len(result), nil
}

func (s *stubRegistrationStore) ReplaceRegistrants(ctx context.Context, reg *models.Registration, expectedStatus models.RegistrationStatus) error {
	s.replacedWith = expectedStatus
	return s.replaceErr
}

func (s *stubRegistrationStore) UpdateStatus(ctx context.Context, params repository.UpdateStatusParams) error {
	s.statusCalls = append(s.statusCalls, params)
	return s.statusErr
}

func (s *stubRegistrationStore) Delete(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type stubRegistrantStore struct {
	registrants map[string]*models.Registrant
	attendance  []repository.AttendanceParams
	status      models.RegistrationStatus
	attendErr   error
	// projectInto makes RecordAttendance derive the status from stored registrants when status is empty.
	projectInto *stubRegistrationStore
	before      models.RegistrationStatus
	roleUpdates []string
}

func (s *stubRegistrantStore) GetByID(ctx context.Context, id string) (*models.Registrant, error) {
	r, ok := s.registrants[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copyR := *r
	return &copyR, nil
}

func (s *stubRegistrantStore) RecordAttendance(ctx context.Context, params repository.AttendanceParams) (models.RegistrationStatus, error) {
	s.attendance = append(s.attendance, params)
	if s.attendErr != nil || s.status != "" || s.projectInto == nil {
		return s.status, s.attendErr
	}
	r := s.registrants[params.RegistrantID]
	r.CheckedInAt, r.CheckedOutAt = params.CheckedInAt, params.CheckedOutAt
	var counts models.AttendanceCounts
	for _, other := range s.registrants {
		if other.RegistrationID != params.RegistrationID {
			continue
		}
		counts.Total++
		if other.CheckedInAt != nil {
			counts.CheckedIn++
		}
		if other.CheckedOutAt != nil {
			counts.CheckedOut++
		}
	}
	reg := s.projectInto.regs[params.RegistrationID]
	status, restore := models.ProjectAttendance(counts, reg.Status, s.before)
	reg.Status, s.before = status, restore
	return status, nil
}

func (s *stubRegistrantStore) UpdateRole(ctx context.Context, id, role, shirtSize string) error {
	s.roleUpdates = append(s.roleUpdates, role+"/"+shirtSize)
	return nil
}

func (s *stubRegistrantStore) UpdatePortrait(ctx context.Context, id, url string) error {
	return nil
}

type stubEvents struct {
	event *models.EventConfig
}

func (s *stubEvents) GetActive(ctx context.Context) (*models.EventConfig, error) {
	if s.event == nil {
		return nil, sql.ErrNoRows
	}
	return s.event, nil
}

func (s *stubEvents) GetByID(ctx context.Context, id string) (*models.EventConfig, error) {
	if s.event == nil || s.event.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.event, nil
}

type stubRoles struct {
	known map[string]bool
}

func (s *stubRoles) GetRole(ctx context.Context, id string) (*models.EventRole, error) {
	if !s.known[id] {
		return nil, sql.ErrNoRows
	}
	return &models.EventRole{ID: id, Name: id}, nil
}

type stubAudit struct {
	entries []*models.AuditLog
}

func (s *stubAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.entries = append(s.entries, log)
	return nil
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) InvalidateCache(ctx context.Context) { c.calls++ }

type memoryFileStore struct {
	files map[string][]byte
}

func (m *memoryFileStore) Save(filename string, data []byte) (string, error) {
	if m.files == nil {
		m.files = make(map[string][]byte)
	}
	m.files[filename] = data
	return filename, nil
}

func (m *memoryFileStore) PublicURL(filename string) string {
	return "/uploads/" + filename
}

type registrationFixture struct {
	svc         *RegistrationService
	regs        *stubRegistrationStore
	registrants *stubRegistrantStore
	audit       *stubAudit
	cache       *countingInvalidator
	event       *models.EventConfig
}

var fixedNow = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

func newRegistrationFixture(settings RegistrationSettings) *registrationFixture {
	event := &models.EventConfig{
		ID:        "ev-1",
		Name:      "Đại hội Giới trẻ",
		BasePrice: 10000,
		StartDate: time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 8, 11, 0, 0, 0, 0, time.UTC),
		IsActive:  true,
	}
	f := &registrationFixture{
		regs:        &stubRegistrationStore{regs: map[string]*models.Registration{}},
		registrants: &stubRegistrantStore{registrants: map[string]*models.Registrant{}},
		audit:       &stubAudit{},
		cache:       &countingInvalidator{},
		event:       event,
	}
	f.svc = NewRegistrationService(f.regs, f.registrants, &stubEvents{event: event}, &stubRoles{known: map[string]bool{"media": true}},
		f.audit, nil, settings, nil,
		WithRegistrationCache(f.cache),
		WithRegistrationUploads(NewUploadService(&memoryFileStore{}, UploadConfig{}, nil)),
		WithRegistrationClock(func() time.Time { return fixedNow }),
	)
	f.svc.suffix = func() (string, error) { return "ABC234", nil }
	return f
}

func (f *registrationFixture) seed(status models.RegistrationStatus, registrants ...models.Registrant) *models.Registration {
	reg := &models.Registration{
		ID:            "reg-1",
		UserID:        "owner",
		EventConfigID: f.event.ID,
		InvoiceCode:   "DH-20260501-XYZ789",
		Status:        status,
		TotalAmount:   10000,
		Registrants:   registrants,
	}
	f.regs.regs[reg.ID] = reg
	for i := range registrants {
		r := registrants[i]
		f.registrants.registrants[r.ID] = &r
	}
	return reg
}

func owner() Actor   { return Actor{UserID: "owner", Role: models.RoleUser} }
func cashier() Actor { return Actor{UserID: "cash-1", Role: models.RoleCashier} }
func organizer() Actor {
	return Actor{UserID: "org-1", Role: models.RoleEventOrganizer}
}

func appErrorCode(t *testing.T, err error) string {
	t.Helper()
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr), "expected app error, got %v", err)
	return appErr.Code
}

func TestRegistrationServiceCreate(t *testing.T) {
	f := newRegistrationFixture(RegistrationSettings{})

	reg, err := f.svc.Create(context.Background(), owner(), models.CreateRegistrationRequest{
		Registrants: []models.RegistrantInput{primaryInput(), childInput()},
	})
	require.NoError(t, err)
	assert.Equal(t, "DH-20260601-ABC234", reg.InvoiceCode)
	assert.Equal(t, models.StatusPending, reg.Status)
	assert.Equal(t, int64(15000), reg.TotalAmount)
	assert.Equal(t, "owner", reg.UserID)
	assert.Equal(t, "ev-1", reg.EventConfigID)
	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, models.AuditActionRegistrationCreate, f.audit.entries[0].Action)
	assert.Equal(t, 1, f.cache.calls)
}

func TestRegistrationServiceCreateRetriesDuplicateInvoice(t *testing.T) {
	f := newRegistrationFixture(RegistrationSettings{InvoicePrefix: "YT"})
	f.regs.createErrs = []error{repository.ErrDuplicateInvoice, repository.ErrDuplicateInvoice}

	reg, err := f.svc.Create(context.Background(), owner(), models.CreateRegistrationRequest{
		Registrants: []models.RegistrantInput{primaryInput()},
	})
	require.NoError(t, err)
	assert.Equal(t, "YT-20260601-ABC234", reg.InvoiceCode)
	assert.Len(t, f.regs.created, 1)
}

func TestRegistrationServiceCreateWithoutActiveEvent(t *testing.T) {
	f := newRegistrationFixture(RegistrationSettings{})
	f.svc.events = &stubEvents{}

	_, err := f.svc.Create(context.Background(), owner(), models.CreateRegistrationRequest{
		Registrants: []models.RegistrantInput{primaryInput()},
	})
	assert.True(t, errors.Is(err, appErrors.ErrNoActiveEvent))
}

func TestRegistrationServiceQuoteUsesPolicy(t *testing.T) {
	f := newRegistrationFixture(RegistrationSettings{Policy: DiscountSingle})
	child := childInput()
	child.SecondDayOnly = true

	quote, err := f.svc.Quote(context.Background(), models.CreateRegistrationRequest{
		Registrants: []models.RegistrantInput{primaryInput(), child},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(15000), quote.Total)
}

func TestRegistrationServiceGetHidesOtherUsers(t *testing.T) {
	f := newRegistrationFixture(RegistrationSettings{})
	f.seed(models.StatusPending)

	_, err := f.svc.Get(context.Background(), Actor{UserID: "stranger", Role: models.RoleUser}, "reg-1")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	reg, err := f.svc.Get(context.Background(), cashier(), "reg-1")
	require.NoError(t, err)
	assert.Equal(t, "reg-1", reg.ID)
}

func TestRegistrationServiceUpdateFrozen(t *testing.T) {
	f := newRegistrationFixture(RegistrationSettings{})
	f.seed(models.StatusConfirmed, models.Registrant{ID: "r-1", IsPrimary: true})

	_, err := f.svc.Update(context.Background(), owner(), "reg-1", models.UpdateRegistrationRequest{
		Registrants: []models.RegistrantInput{primaryInput(), childInput()},
	})
	assert.Equal(t, appErrors.ErrParticipantsFrozen.Code, appErrorCode(t, err))
}

func TestRegistrationServiceUpdateRecomputesTotal(t *testing.T) {
	f := newRegistrationFixture(RegistrationSettings{})
	f.seed(models.StatusPaymentRejected, models.Registrant{ID: "r-1", IsPrimary: true, EventRole: models.ParticipantRole})

	primary := primaryInput()
	primary.ID = "r-1"
	reg, err := f.svc.Update(context.Background(), owner(), "reg-1", models.UpdateRegistrationRequest{
		Registrants: []models.RegistrantInput{primary, childInput()},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(15000), reg.TotalAmount)
	assert.Equal(t, models.StatusPaymentRejected, f.regs.replacedWith)
	assert.Equal(t, "r-1", reg.Registrants[0].ID)
	assert.Empty(t, reg.Registrants[1].ID)

	f.regs.replaceErr = sql.ErrNoRows
	_, err = f.svc.Update(context.Background(), owner(), "reg-1", models.UpdateRegistrationRequest{
		Registrants: []models.RegistrantInput{primary},
	})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
}

func TestRegistrationServiceDeleteRequiresPendingWithoutReceipt(t *testing.T) {
	f := newRegistrationFixture(RegistrationSettings{})
	reg := f.seed(models.StatusPending)
	receipt := "/uploads/receipts/reg-1/a.png"
	reg.ReceiptURL = &receipt

	err := f.svc.Delete(context.Background(), owner(), "reg-1")
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))

	reg.ReceiptURL = nil
	require.NoError(t, f.svc.Delete(context.Background(), owner(), "reg-1"))
	assert.Equal(t, []string{"reg-1"}, f.regs.deleted)
}

func TestRegistrationServiceUploadReceiptReportsPayment(t *testing.T) {
	f := newRegistrationFixture(RegistrationSettings{})
	f.seed(models.StatusPending)
	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

	reg, err := f.svc.UploadReceipt(context.Background(), owner(), "reg-1", UploadFile{Filename: "receipt.png", Size: int64(len(png)), Content: bytes.NewReader(png)})
	require.NoError(t, err)
	assert.Equal(t, models.StatusReportPaid, reg.Status)
	require.Len(t, f.regs.statusCalls, 1)
	call := f.regs.statusCalls[0]
	assert.Equal(t, models.StatusPending, call.From)
	assert.Equal(t, models.StatusReportPaid, call.To)
	require.NotNil(t, call.ReceiptURL)
	assert.Contains(t, *call.ReceiptURL, "/uploads/receipts/reg-1/")

	_, err = f.svc.UploadReceipt(context.Background(), cashier(), "reg-1", UploadFile{Size: int64(len(png)), Content: bytes.NewReader(png)})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestRegistrationServiceTransition(t *testing.T) {
	f := newRegistrationFixture(RegistrationSettings{})
	f.seed(models.StatusReportPaid)

	_, err := f.svc.Transition(context.Background(), owner(), "reg-1", models.TransitionRequest{Action: models.ActionConfirmPayment})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = f.svc.Transition(context.Background(), cashier(), "reg-1", models.TransitionRequest{Action: models.ActionFinalize})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))

	note := " paid in cash "
	reg, err := f.svc.Transition(context.Background(), cashier(), "reg-1", models.TransitionRequest{Action: models.ActionConfirmPayment, Note: &note})
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmPaid, reg.Status)
	require.NotNil(t, reg.AdminNote)
	assert.Equal(t, "paid in cash", *reg.AdminNote)
	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, models.AuditActionStatusTransition, f.audit.entries[0].Action)
}

func TestRegistrationServiceAutoConfirm(t *testing.T) {
	f := newRegistrationFixture(RegistrationSettings{AutoConfirm: true})
	f.seed(models.StatusReportPaid)

	reg, err := f.svc.Transition(context.Background(), cashier(), "reg-1", models.TransitionRequest{Action: models.ActionConfirmPayment})
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, reg.Status)
	assert.Equal(t, models.StatusConfirmed, f.regs.statusCalls[0].To)
}

func TestRegistrationServiceTransitionConflict(t *testing.T) {
	f := newRegistrationFixture(RegistrationSettings{})
	f.seed(models.StatusReportPaid)
	f.regs.statusErr = sql.ErrNoRows

	_, err := f.svc.Transition(context.Background(), cashier(), "reg-1", models.TransitionRequest{Action: models.ActionRejectPayment})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
	assert.Empty(t, f.audit.entries)
}

func TestRegistrationServiceRequestCancelAfterDeadline(t *testing.T) {
	f := newRegistrationFixture(RegistrationSettings{})
	deadline := fixedNow.Add(-time.Hour)
	f.event.CancellationDeadline = &deadline
	f.seed(models.StatusConfirmed)

	_, err := f.svc.Transition(context.Background(), owner(), "reg-1", models.TransitionRequest{Action: models.ActionRequestCancel})
	assert.True(t, errors.Is(err, appErrors.ErrDeadlinePassed))
}

func TestRegistrationServiceCheckInFlow(t *testing.T) {
	f := newRegistrationFixture(RegistrationSettings{})
	f.seed(models.StatusConfirmed, models.Registrant{ID: "r-1", RegistrationID: "reg-1", IsPrimary: true})
	f.registrants.status = models.StatusCheckedIn

	_, err := f.svc.CheckIn(context.Background(), owner(), "r-1")
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	res, err := f.svc.CheckIn(context.Background(), organizer(), "r-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCheckedIn, res.RegistrationStatus)
	require.NotNil(t, res.Registrant.CheckedInAt)
	assert.Equal(t, fixedNow, *res.Registrant.CheckedInAt)
	params := f.registrants.attendance[0]
	assert.Contains(t, params.AllowedFrom, models.StatusConfirmed)
	assert.Contains(t, params.AllowedFrom, models.StatusCheckedIn)
	assert.NotContains(t, params.AllowedFrom, models.StatusPending)

	f.registrants.registrants["r-1"].CheckedInAt = &fixedNow
	_, err = f.svc.CheckIn(context.Background(), organizer(), "r-1")
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
}

func TestRegistrationServiceCompanionCheckInAfterPrimaryLeft(t *testing.T) {
	f := newRegistrationFixture(RegistrationSettings{})
	f.seed(models.StatusConfirmPaid,
		models.Registrant{ID: "r-1", RegistrationID: "reg-1", IsPrimary: true},
		models.Registrant{ID: "r-2", RegistrationID: "reg-1"})
	f.registrants.projectInto = f.regs

	res, err := f.svc.CheckIn(context.Background(), organizer(), "r-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCheckedIn, res.RegistrationStatus)

	res, err = f.svc.CheckOut(context.Background(), organizer(), "r-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmPaid, res.RegistrationStatus)

	res, err = f.svc.CheckIn(context.Background(), organizer(), "r-2")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCheckedIn, res.RegistrationStatus)

	res, err = f.svc.CheckOut(context.Background(), organizer(), "r-2")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCheckedOut, res.RegistrationStatus)
}

func TestRegistrationServiceUndoCheckInRestoresStatus(t *testing.T) {
	f := newRegistrationFixture(RegistrationSettings{})
	f.seed(models.StatusCancelRejected, models.Registrant{ID: "r-1", RegistrationID: "reg-1", IsPrimary: true})
	f.registrants.projectInto = f.regs

	_, err := f.svc.CheckIn(context.Background(), organizer(), "r-1")
	require.NoError(t, err)
	res, err := f.svc.UndoCheckIn(context.Background(), organizer(), "r-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelRejected, res.RegistrationStatus)
	assert.Nil(t, res.Registrant.CheckedInAt)
}

func TestRegistrationServiceCheckInRejectsUnpaid(t *testing.T) {
	f := newRegistrationFixture(RegistrationSettings{})
	f.seed(models.StatusReportPaid, models.Registrant{ID: "r-1", RegistrationID: "reg-1"})

	_, err := f.svc.CheckIn(context.Background(), organizer(), "r-1")
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))
	assert.Empty(t, f.registrants.attendance)
}

func TestRegistrationServiceCheckOutAndUndo(t *testing.T) {
	f := newRegistrationFixture(RegistrationSettings{})
	arrived := fixedNow.Add(-2 * time.Hour)
	f.seed(models.StatusCheckedIn, models.Registrant{ID: "r-1", RegistrationID: "reg-1", CheckedInAt: &arrived})

	f.registrants.status = models.StatusCheckedOut
	res, err := f.svc.CheckOut(context.Background(), organizer(), "r-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCheckedOut, res.RegistrationStatus)
	assert.Equal(t, []models.RegistrationStatus{models.StatusCheckedIn}, f.registrants.attendance[0].AllowedFrom)

	f.registrants.status = models.StatusConfirmed
	res, err = f.svc.UndoCheckIn(context.Background(), organizer(), "r-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, res.RegistrationStatus)
	assert.Nil(t, f.registrants.attendance[1].CheckedInAt)
}

func TestRegistrationServiceAssignRole(t *testing.T) {
	f := newRegistrationFixture(RegistrationSettings{})
	f.seed(models.StatusConfirmed, models.Registrant{ID: "r-1", RegistrationID: "reg-1", ShirtSize: "M", EventRole: models.ParticipantRole})

	_, err := f.svc.AssignRole(context.Background(), cashier(), "r-1", models.AssignRoleRequest{EventRole: "media", ShirtSize: "M-M"})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = f.svc.AssignRole(context.Background(), organizer(), "r-1", models.AssignRoleRequest{EventRole: "unknown"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = f.svc.AssignRole(context.Background(), organizer(), "r-1", models.AssignRoleRequest{EventRole: "media"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation), "participant sizes do not fit a volunteer role")

	r, err := f.svc.AssignRole(context.Background(), organizer(), "r-1", models.AssignRoleRequest{EventRole: "media", ShirtSize: "f-m"})
	require.NoError(t, err)
	assert.Equal(t, "media", r.EventRole)
	assert.Equal(t, "F-M", r.ShirtSize)
	assert.Equal(t, []string{"media/F-M"}, f.registrants.roleUpdates)
}

func TestRegistrationServiceStatuses(t *testing.T) {
	f := newRegistrationFixture(RegistrationSettings{})
	view := f.svc.Statuses()
	assert.Len(t, view.Statuses, 13)
	assert.NotEmpty(t, view.Transitions)
}

func TestRandomInvoiceSuffix(t *testing.T) {
	suffix, err := randomInvoiceSuffix()
	require.NoError(t, err)
	assert.Len(t, suffix, invoiceSuffixLen)
	for _, c := range suffix {
		assert.Contains(t, invoiceAlphabet, string(c))
	}
}
