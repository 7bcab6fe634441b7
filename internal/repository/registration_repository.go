package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/event-registration-api/internal/models"
	"github.com/noah-isme/event-registration-api/pkg/database"
)

// ErrDuplicateInvoice is returned when an invoice code collides with an existing one.
var ErrDuplicateInvoice = errors.New("duplicate invoice code")

const registrationColumns = `id, user_id, event_config_id, invoice_code, status, total_amount, participant_count,
       notes, receipt_url, admin_note, created_at, updated_at`

const registrantColumns = `id, registration_id, full_name, saint_name, gender, age_group, shirt_size, province, diocese,
       email, phone, address, facebook_link, is_primary, event_role, go_with, second_day_only, selected_attendance_day,
       portrait_url, notes, checked_in_at, checked_out_at, created_at, updated_at`

const insertRegistrantQuery = `INSERT INTO registrants
	(id, registration_id, full_name, saint_name, gender, age_group, shirt_size, province, diocese, email, phone, address,
	 facebook_link, is_primary, event_role, go_with, second_day_only, selected_attendance_day, portrait_url, notes,
	 checked_in_at, checked_out_at, created_at, updated_at)
	VALUES (:id, :registration_id, :full_name, :saint_name, :gender, :age_group, :shirt_size, :province, :diocese, :email,
	 :phone, :address, :facebook_link, :is_primary, :event_role, :go_with, :second_day_only, :selected_attendance_day,
	 :portrait_url, :notes, :checked_in_at, :checked_out_at, :created_at, :updated_at)`

// RegistrationRepository persists registrations together with their registrants.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository constructs the repository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Create inserts the registration and all registrants in one transaction.
func (r *RegistrationRepository) Create(ctx context.Context, reg *models.Registration) error {
	now := time.Now().UTC()
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	if reg.Status == "" {
		reg.Status = models.StatusPending
	}
	reg.CreatedAt, reg.UpdatedAt = now, now
	reg.ParticipantCount = len(reg.Registrants)
	prepareRegistrants(reg.ID, reg.Registrants, now)

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const query = `INSERT INTO registrations
		(id, user_id, event_config_id, invoice_code, status, total_amount, participant_count, notes, receipt_url, admin_note, created_at, updated_at)
		VALUES (:id, :user_id, :event_config_id, :invoice_code, :status, :total_amount, :participant_count, :notes, :receipt_url, :admin_note, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, query, reg); err != nil {
			if isUniqueViolation(err, "registrations_invoice_code_key") {
				return ErrDuplicateInvoice
			}
			return fmt.Errorf("create registration: %w", err)
		}
		return insertRegistrants(ctx, tx, reg.Registrants)
	})
}

// GetByID fetches a registration with its registrants.
func (r *RegistrationRepository) GetByID(ctx context.Context, id string) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	var reg models.Registration
	if err := r.db.GetContext(ctx, &reg, query, id); err != nil {
		return nil, err
	}
	registrants, err := registrantsFor(ctx, r.db, []string{reg.ID})
	if err != nil {
		return nil, err
	}
	reg.Registrants = registrants[reg.ID]
	return &reg, nil
}

// List returns a page of registrations matching the filter plus the total count.
func (r *RegistrationRepository) List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, int, error) {
	where, args := buildRegistrationConditions(filter.EventConfigID, filter.UserID, filter.Statuses, filter.From, filter.To, filter.Search)

	countQuery := "SELECT COUNT(*) FROM registrations" + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count registrations: %w", err)
	}

	page, size := normalisePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s FROM registrations%s ORDER BY %s LIMIT %d OFFSET %d",
		registrationColumns, where, registrationOrder(filter.SortBy, filter.SortOrder), size, (page-1)*size)

	var regs []models.Registration
	if err := r.db.SelectContext(ctx, &regs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list registrations: %w", err)
	}
	if err := attachRegistrants(ctx, r.db, regs); err != nil {
		return nil, 0, err
	}
	return regs, total, nil
}

// ReplaceRegistrants rewrites the registrant list while the registration is still in expectedStatus.
func (r *RegistrationRepository) ReplaceRegistrants(ctx context.Context, reg *models.Registration, expectedStatus models.RegistrationStatus) error {
	now := time.Now().UTC()
	reg.UpdatedAt = now
	reg.ParticipantCount = len(reg.Registrants)
	prepareRegistrants(reg.ID, reg.Registrants, now)

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const update = `UPDATE registrations SET total_amount = $1, participant_count = $2, notes = $3, updated_at = $4
		WHERE id = $5 AND status = $6`
		result, err := tx.ExecContext(ctx, update, reg.TotalAmount, reg.ParticipantCount, reg.Notes, now, reg.ID, expectedStatus)
		if err != nil {
			return fmt.Errorf("update registration: %w", err)
		}
		if err := expectAffected(result); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM registrants WHERE registration_id = $1`, reg.ID); err != nil {
			return fmt.Errorf("clear registrants: %w", err)
		}
		return insertRegistrants(ctx, tx, reg.Registrants)
	})
}

// UpdateStatusParams describes a conditional status write.
type UpdateStatusParams struct {
	ID         string
	From       models.RegistrationStatus
	To         models.RegistrationStatus
	AdminNote  *string
	ReceiptURL *string
}

// UpdateStatus moves a registration only if it is still in params.From.
func (r *RegistrationRepository) UpdateStatus(ctx context.Context, params UpdateStatusParams) error {
	setParts := []string{"status = :to", "updated_at = :updated_at"}
	if params.AdminNote != nil {
		setParts = append(setParts, "admin_note = :admin_note")
	}
	if params.ReceiptURL != nil {
		setParts = append(setParts, "receipt_url = :receipt_url")
	}
	query := fmt.Sprintf("UPDATE registrations SET %s WHERE id = :id AND status = :from", strings.Join(setParts, ", "))
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":          params.ID,
		"from":        params.From,
		"to":          params.To,
		"admin_note":  params.AdminNote,
		"receipt_url": params.ReceiptURL,
		"updated_at":  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("update registration status: %w", err)
	}
	return expectAffected(result)
}

// Delete removes a registration that never reported payment.
func (r *RegistrationRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM registrations WHERE id = $1 AND status = $2 AND receipt_url IS NULL`
	result, err := r.db.ExecContext(ctx, query, id, models.StatusPending)
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	return expectAffected(result)
}

// attachRegistrants loads registrants for regs with a single query.
func attachRegistrants(ctx context.Context, db sqlx.QueryerContext, regs []models.Registration) error {
	if len(regs) == 0 {
		return nil
	}
	ids := make([]string, len(regs))
	for i := range regs {
		ids[i] = regs[i].ID
	}
	byReg, err := registrantsFor(ctx, db, ids)
	if err != nil {
		return err
	}
	for i := range regs {
		regs[i].Registrants = byReg[regs[i].ID]
	}
	return nil
}

func registrantsFor(ctx context.Context, db sqlx.QueryerContext, ids []string) (map[string][]models.Registrant, error) {
	query := `SELECT ` + registrantColumns + ` FROM registrants WHERE registration_id = ANY($1)
	ORDER BY registration_id, is_primary DESC, created_at ASC, full_name ASC`
	var rows []models.Registrant
	if err := sqlx.SelectContext(ctx, db, &rows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("list registrants: %w", err)
	}
	result := make(map[string][]models.Registrant, len(ids))
	for _, row := range rows {
		result[row.RegistrationID] = append(result[row.RegistrationID], row)
	}
	return result, nil
}

func prepareRegistrants(registrationID string, registrants []models.Registrant, now time.Time) {
	for i := range registrants {
		if registrants[i].ID == "" {
			registrants[i].ID = uuid.NewString()
		}
		registrants[i].RegistrationID = registrationID
		registrants[i].EventRole = registrants[i].Role()
		if registrants[i].CreatedAt.IsZero() {
			registrants[i].CreatedAt = now
		}
		registrants[i].UpdatedAt = now
	}
}

func insertRegistrants(ctx context.Context, tx *sqlx.Tx, registrants []models.Registrant) error {
	for i := range registrants {
		if _, err := tx.NamedExecContext(ctx, insertRegistrantQuery, &registrants[i]); err != nil {
			return fmt.Errorf("insert registrant %d: %w", i, err)
		}
	}
	return nil
}

func buildRegistrationConditions(eventID, userID string, statuses []models.RegistrationStatus, from, to *time.Time, search string) (string, []interface{}) {
	conditions := make([]string, 0, 6)
	args := make([]interface{}, 0, 6)
	if eventID != "" {
		args = append(args, eventID)
		conditions = append(conditions, fmt.Sprintf("event_config_id = $%d", len(args)))
	}
	if userID != "" {
		args = append(args, userID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if from != nil {
		args = append(args, *from)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if to != nil {
		args = append(args, *to)
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if search = strings.TrimSpace(search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		idx := len(args)
		conditions = append(conditions, fmt.Sprintf(`(LOWER(invoice_code) LIKE $%d OR EXISTS (
			SELECT 1 FROM registrants rg WHERE rg.registration_id = registrations.id
			AND (LOWER(rg.full_name) LIKE $%d OR LOWER(COALESCE(rg.email, '')) LIKE $%d)))`, idx, idx, idx))
	}
	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func registrationOrder(sortBy, sortOrder string) string {
	column := "created_at"
	switch sortBy {
	case "invoice_code", "status", "total_amount", "participant_count", "updated_at":
		column = sortBy
	}
	direction := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		direction = "ASC"
	}
	return column + " " + direction
}

func normalisePage(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 200 {
		size = 20
	}
	return page, size
}

func expectAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check affected rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "23505" && (constraint == "" || pqErr.Constraint == constraint)
}
