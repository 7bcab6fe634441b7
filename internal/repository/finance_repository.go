package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/event-registration-api/internal/models"
)

const expenseColumns = `id, event_config_id, title, description, requested_amount, approved_amount, bank_name, bank_account_number,
       bank_account_holder, transfer_receipt_url, status, requested_by, reviewed_by, review_note, created_at, updated_at`

const incomeColumns = `id, event_config_id, name, description, amount, status, created_by, reviewed_by, review_note, created_at, updated_at`

// FinanceRepository persists expense requests and income sources.
type FinanceRepository struct {
	db *sqlx.DB
}

// NewFinanceRepository constructs the repository.
func NewFinanceRepository(db *sqlx.DB) *FinanceRepository {
	return &FinanceRepository{db: db}
}

// FinanceUpdate is a conditional status change on an expense or income record.
type FinanceUpdate struct {
	ID             string
	From           models.FinanceStatus
	To             models.FinanceStatus
	ReviewedBy     string
	ReviewNote     *string
	ApprovedAmount *int64
	ReceiptURL     *string
}

// CreateExpense inserts a pending expense request.
func (r *FinanceRepository) CreateExpense(ctx context.Context, expense *models.ExpenseRequest) error {
	if expense.ID == "" {
		expense.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	expense.CreatedAt, expense.UpdatedAt = now, now
	if expense.Status == "" {
		expense.Status = models.FinancePending
	}
	const query = `INSERT INTO expense_requests (id, event_config_id, title, description, requested_amount, approved_amount, bank_name,
	bank_account_number, bank_account_holder, transfer_receipt_url, status, requested_by, reviewed_by, review_note, created_at, updated_at)
	VALUES (:id, :event_config_id, :title, :description, :requested_amount, :approved_amount, :bank_name, :bank_account_number,
	:bank_account_holder, :transfer_receipt_url, :status, :requested_by, :reviewed_by, :review_note, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, expense); err != nil {
		return fmt.Errorf("create expense request: %w", err)
	}
	return nil
}

// GetExpense fetches an expense request.
func (r *FinanceRepository) GetExpense(ctx context.Context, id string) (*models.ExpenseRequest, error) {
	query := `SELECT ` + expenseColumns + ` FROM expense_requests WHERE id = $1`
	var expense models.ExpenseRequest
	if err := r.db.GetContext(ctx, &expense, query, id); err != nil {
		return nil, err
	}
	return &expense, nil
}

// ListExpenses returns a page of expense requests.
func (r *FinanceRepository) ListExpenses(ctx context.Context, filter models.FinanceFilter) ([]models.ExpenseRequest, int, error) {
	where, args := financeConditions(filter)
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM expense_requests"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count expense requests: %w", err)
	}
	page, size := normalisePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s FROM expense_requests%s ORDER BY created_at DESC LIMIT %d OFFSET %d", expenseColumns, where, size, (page-1)*size)
	var expenses []models.ExpenseRequest
	if err := r.db.SelectContext(ctx, &expenses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list expense requests: %w", err)
	}
	return expenses, total, nil
}

// UpdateExpenseStatus applies update only if the expense is still in update.From.
func (r *FinanceRepository) UpdateExpenseStatus(ctx context.Context, update FinanceUpdate) error {
	setParts := []string{"status = :to", "reviewed_by = :reviewed_by", "updated_at = :updated_at"}
	if update.ReviewNote != nil {
		setParts = append(setParts, "review_note = :review_note")
	}
	if update.ApprovedAmount != nil {
		setParts = append(setParts, "approved_amount = :approved_amount")
	}
	if update.ReceiptURL != nil {
		setParts = append(setParts, "transfer_receipt_url = :receipt_url")
	}
	return r.conditionalUpdate(ctx, "expense_requests", setParts, update)
}

// CreateIncome inserts a pending income source.
func (r *FinanceRepository) CreateIncome(ctx context.Context, income *models.IncomeSource) error {
	if income.ID == "" {
		income.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	income.CreatedAt, income.UpdatedAt = now, now
	if income.Status == "" {
		income.Status = models.FinancePending
	}
	const query = `INSERT INTO income_sources (id, event_config_id, name, description, amount, status, created_by, reviewed_by, review_note, created_at, updated_at)
	VALUES (:id, :event_config_id, :name, :description, :amount, :status, :created_by, :reviewed_by, :review_note, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, income); err != nil {
		return fmt.Errorf("create income source: %w", err)
	}
	return nil
}

// GetIncome fetches an income source.
func (r *FinanceRepository) GetIncome(ctx context.Context, id string) (*models.IncomeSource, error) {
	query := `SELECT ` + incomeColumns + ` FROM income_sources WHERE id = $1`
	var income models.IncomeSource
	if err := r.db.GetContext(ctx, &income, query, id); err != nil {
		return nil, err
	}
	return &income, nil
}

// ListIncomes returns a page of income sources.
func (r *FinanceRepository) ListIncomes(ctx context.Context, filter models.FinanceFilter) ([]models.IncomeSource, int, error) {
	where, args := financeConditions(filter)
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM income_sources"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count income sources: %w", err)
	}
	page, size := normalisePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s FROM income_sources%s ORDER BY created_at DESC LIMIT %d OFFSET %d", incomeColumns, where, size, (page-1)*size)
	var incomes []models.IncomeSource
	if err := r.db.SelectContext(ctx, &incomes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list income sources: %w", err)
	}
	return incomes, total, nil
}

// UpdateIncomeStatus applies update only if the income is still in update.From.
func (r *FinanceRepository) UpdateIncomeStatus(ctx context.Context, update FinanceUpdate) error {
	setParts := []string{"status = :to", "reviewed_by = :reviewed_by", "updated_at = :updated_at"}
	if update.ReviewNote != nil {
		setParts = append(setParts, "review_note = :review_note")
	}
	return r.conditionalUpdate(ctx, "income_sources", setParts, update)
}

// FinanceTotals sums income received and expenses paid out for an event.
type FinanceTotals struct {
	IncomeReceived   int64 `db:"income_received"`
	IncomePledged    int64 `db:"income_pledged"`
	ExpensesApproved int64 `db:"expenses_approved"`
	ExpensesPaid     int64 `db:"expenses_paid"`
}

// Totals computes the finance totals of an event.
// Income counts as pledged once approved and as received once transferred; expenses count their approved amount once approved and as paid once transferred.
func (r *FinanceRepository) Totals(ctx context.Context, eventID string) (FinanceTotals, error) {
	const query = `SELECT
		COALESCE((SELECT SUM(amount) FROM income_sources WHERE event_config_id = $1 AND status IN ('transferred', 'closed')), 0) AS income_received,
		COALESCE((SELECT SUM(amount) FROM income_sources WHERE event_config_id = $1 AND status = 'approved'), 0) AS income_pledged,
		COALESCE((SELECT SUM(COALESCE(approved_amount, requested_amount)) FROM expense_requests
			WHERE event_config_id = $1 AND status IN ('approved', 'transferred', 'closed')), 0) AS expenses_approved,
		COALESCE((SELECT SUM(COALESCE(approved_amount, requested_amount)) FROM expense_requests
			WHERE event_config_id = $1 AND status IN ('transferred', 'closed')), 0) AS expenses_paid`
	var totals FinanceTotals
	if err := r.db.GetContext(ctx, &totals, query, eventID); err != nil {
		return FinanceTotals{}, fmt.Errorf("finance totals: %w", err)
	}
	return totals, nil
}

func (r *FinanceRepository) conditionalUpdate(ctx context.Context, table string, setParts []string, update FinanceUpdate) error {
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = :id AND status = :from", table, strings.Join(setParts, ", "))
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":              update.ID,
		"from":            update.From,
		"to":              update.To,
		"reviewed_by":     update.ReviewedBy,
		"review_note":     update.ReviewNote,
		"approved_amount": update.ApprovedAmount,
		"receipt_url":     update.ReceiptURL,
		"updated_at":      time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("update %s status: %w", table, err)
	}
	return expectAffected(result)
}

func financeConditions(filter models.FinanceFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	if filter.EventConfigID != "" {
		args = append(args, filter.EventConfigID)
		conditions = append(conditions, fmt.Sprintf("event_config_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
