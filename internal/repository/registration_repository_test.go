package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/event-registration-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var registrationCols = []string{"id", "user_id", "event_config_id", "invoice_code", "status", "total_amount", "participant_count",
	"notes", "receipt_url", "admin_note", "created_at", "updated_at"}

var registrantCols = []string{"id", "registration_id", "full_name", "saint_name", "gender", "age_group", "shirt_size", "province", "diocese",
	"email", "phone", "address", "facebook_link", "is_primary", "event_role", "go_with", "second_day_only", "selected_attendance_day",
	"portrait_url", "notes", "checked_in_at", "checked_out_at", "created_at", "updated_at"}

func registrantRow(rows *sqlmock.Rows, id, regID, name string, primary bool) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(id, regID, name, nil, "female", "18_25", "M", "Tokyo", models.DioceseTokyo,
		nil, nil, nil, nil, primary, "participant", false, false, nil, nil, nil, nil, nil, now, now)
}

func TestRegistrationRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO registrations")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO registrants")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO registrants")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	reg := &models.Registration{
		UserID:        "user-1",
		EventConfigID: "event-1",
		InvoiceCode:   "DH-20250701-ABC123",
		TotalAmount:   9000,
		Registrants: []models.Registrant{
			{FullName: "Lan", IsPrimary: true},
			{FullName: "Minh", EventRole: ""},
		},
	}
	require.NoError(t, repo.Create(context.Background(), reg))
	assert.NotEmpty(t, reg.ID)
	assert.Equal(t, models.StatusPending, reg.Status)
	assert.Equal(t, 2, reg.ParticipantCount)
	assert.Equal(t, reg.ID, reg.Registrants[1].RegistrationID)
	assert.Equal(t, models.ParticipantRole, reg.Registrants[1].EventRole)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryCreateDuplicateInvoice(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO registrations")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "registrations_invoice_code_key"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Registration{InvoiceCode: "DUP", Registrants: []models.Registrant{{FullName: "A"}}})
	assert.True(t, errors.Is(err, ErrDuplicateInvoice))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryGetByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, event_config_id")).
		WithArgs("reg-1").
		WillReturnRows(sqlmock.NewRows(registrationCols).
			AddRow("reg-1", "user-1", "event-1", "DH-1", "confirmed", 9000, 2, nil, nil, nil, now, now))
	rows := sqlmock.NewRows(registrantCols)
	registrantRow(rows, "r-1", "reg-1", "Lan", true)
	registrantRow(rows, "r-2", "reg-1", "Minh", false)
	mock.ExpectQuery(regexp.QuoteMeta("FROM registrants WHERE registration_id = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(rows)

	reg, err := repo.GetByID(context.Background(), "reg-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, reg.Status)
	require.Len(t, reg.Registrants, 2)
	assert.Equal(t, "Lan", reg.Primary().FullName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM registrations WHERE event_config_id = $1 AND status IN ($2,$3)")).
		WithArgs("event-1", models.StatusConfirmed, models.StatusCheckedIn).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY invoice_code ASC LIMIT 10 OFFSET 10")).
		WithArgs("event-1", models.StatusConfirmed, models.StatusCheckedIn).
		WillReturnRows(sqlmock.NewRows(registrationCols).
			AddRow("reg-9", "user-1", "event-1", "DH-9", "confirmed", 6000, 1, nil, nil, nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM registrants WHERE registration_id = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(registrantCols))

	regs, total, err := repo.List(context.Background(), models.RegistrationFilter{
		EventConfigID: "event-1",
		Statuses:      []models.RegistrationStatus{models.StatusConfirmed, models.StatusCheckedIn},
		Page:          2,
		PageSize:      10,
		SortBy:        "invoice_code",
		SortOrder:     "asc",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, regs, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryUpdateStatusConflict(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE registrations SET status = ?, updated_at = ?, admin_note = ? WHERE id = ? AND status = ?")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	note := "receipt unreadable"
	err := repo.UpdateStatus(context.Background(), UpdateStatusParams{
		ID: "reg-1", From: models.StatusReportPaid, To: models.StatusPaymentRejected, AdminNote: &note,
	})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryReplaceRegistrants(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE registrations SET total_amount = $1")).
		WithArgs(int64(6000), 1, nil, sqlmock.AnyArg(), "reg-1", models.StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM registrants WHERE registration_id = $1")).
		WithArgs("reg-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO registrants")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	reg := &models.Registration{ID: "reg-1", TotalAmount: 6000, Registrants: []models.Registrant{{FullName: "Lan", IsPrimary: true}}}
	require.NoError(t, repo.ReplaceRegistrants(context.Background(), reg, models.StatusPending))
	assert.Equal(t, 1, reg.ParticipantCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrantRepositoryRecordAttendance(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRegistrantRepository(db)
	checkedIn := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE registrants SET checked_in_at = $1")).
		WithArgs(checkedIn, nil, sqlmock.AnyArg(), "r-1", "reg-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COALESCE(status_before_check_in, '')")).
		WithArgs("reg-1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "status_before_check_in"}).AddRow("confirm_paid", ""))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) AS total, COUNT(checked_in_at)")).
		WithArgs("reg-1").
		WillReturnRows(sqlmock.NewRows([]string{"total", "checked_in", "checked_out"}).AddRow(2, 1, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE registrations SET status = $1, status_before_check_in = NULLIF($2, '')")).
		WithArgs(models.StatusCheckedIn, models.StatusConfirmPaid, sqlmock.AnyArg(), "reg-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	status, err := repo.RecordAttendance(context.Background(), AttendanceParams{
		RegistrantID:   "r-1",
		RegistrationID: "reg-1",
		CheckedInAt:    &checkedIn,
		AllowedFrom:    []models.RegistrationStatus{models.StatusConfirmPaid},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCheckedIn, status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrantRepositoryCheckOutKeepsCompanionsOpen(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRegistrantRepository(db)
	arrived := time.Now().UTC().Add(-time.Hour)
	left := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE registrants SET checked_in_at = $1")).
		WithArgs(arrived, left, sqlmock.AnyArg(), "r-1", "reg-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"status", "status_before_check_in"}).AddRow("checked_in", "cancel_rejected"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) AS total")).
		WillReturnRows(sqlmock.NewRows([]string{"total", "checked_in", "checked_out"}).AddRow(2, 1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE registrations SET status = $1")).
		WithArgs(models.StatusCancelRejected, models.RegistrationStatus(""), sqlmock.AnyArg(), "reg-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	status, err := repo.RecordAttendance(context.Background(), AttendanceParams{
		RegistrantID: "r-1", RegistrationID: "reg-1", CheckedInAt: &arrived, CheckedOutAt: &left,
		AllowedFrom: []models.RegistrationStatus{models.StatusCheckedIn},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelRejected, status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrantRepositoryRecordAttendanceRejectsWrongStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRegistrantRepository(db)
	checkedIn := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE registrants SET checked_in_at = $1")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"status", "status_before_check_in"}).AddRow("report_paid", ""))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) AS total")).
		WillReturnRows(sqlmock.NewRows([]string{"total", "checked_in", "checked_out"}).AddRow(1, 1, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE registrations SET status = $1")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.RecordAttendance(context.Background(), AttendanceParams{
		RegistrantID: "r-1", RegistrationID: "reg-1", CheckedInAt: &checkedIn,
		AllowedFrom: []models.RegistrationStatus{models.StatusConfirmed},
	})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
