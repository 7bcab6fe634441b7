package service

import (
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

type stubFinanceStore struct {
	expenses      map[string]*models.ExpenseRequest
	incomes       map[string]*models.IncomeSource
	updates       []repository.FinanceUpdate
	updateErr     error
	lastFilter    models.FinanceFilter
	createdIncome *models.IncomeSource
}

func (s *stubFinanceStore) CreateExpense(ctx context.Context, expense *models.ExpenseRequest) error {
	expense.ID = "exp-new"
	return nil
}

func (s *stubFinanceStore) GetExpense(ctx context.Context, id string) (*models.ExpenseRequest, error) {
	e, ok := s.expenses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copyE := *e
	return &copyE, nil
}

func (s *stubFinanceStore) ListExpenses(ctx context.Context, filter models.FinanceFilter) ([]models.ExpenseRequest, int, error) {
	s.lastFilter = filter
	return nil, 0, nil
}

func (s *stubFinanceStore) UpdateExpenseStatus(ctx context.Context, update repository.FinanceUpdate) error {
	s.updates = append(s.updates, update)
	return s.updateErr
}

func (s *stubFinanceStore) CreateIncome(ctx context.Context, income *models.IncomeSource) error {
	income.ID = "inc-new"
	s.createdIncome = income
	return nil
}

func (s *stubFinanceStore) GetIncome(ctx context.Context, id string) (*models.IncomeSource, error) {
	i, ok := s.incomes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copyI := *i
	return &copyI, nil
}

func (s *stubFinanceStore) ListIncomes(ctx context.Context, filter models.FinanceFilter) ([]models.IncomeSource, int, error) {
	s.lastFilter = filter
	return []models.IncomeSource{{ID: "inc-1"}}, 1, nil
}

func (s *stubFinanceStore) UpdateIncomeStatus(ctx context.Context, update repository.FinanceUpdate) error {
	s.updates = append(s.updates, update)
	return s.updateErr
}

func (s *stubFinanceStore) Totals(ctx context.Context, eventID string) (repository.FinanceTotals, error) {
	return repository.FinanceTotals{IncomeReceived: 50000, ExpensesApproved: 30000, ExpensesPaid: 20000}, nil
}

func newFinanceFixture() (*FinanceService, *stubFinanceStore, *stubAudit) {
	store := &stubFinanceStore{
		expenses: map[string]*models.ExpenseRequest{
			"exp-1": {ID: "exp-1", EventConfigID: "ev-1", Title: "Âm thanh", RequestedAmount: 40000, Status: models.FinancePending},
		},
		incomes: map[string]*models.IncomeSource{
			"inc-1": {ID: "inc-1", EventConfigID: "ev-1", Name: "Giáo xứ", Amount: 50000, Status: models.FinanceApproved},
		},
	}
	audit := &stubAudit{}
	event := &models.EventConfig{ID: "ev-1", StartDate: time.Now(), EndDate: time.Now()}
	return NewFinanceService(store, &stubEvents{event: event}, audit, nil, nil, nil), store, audit
}

func TestFinanceServiceApproveUsesApprovedAmount(t *testing.T) {
	svc, store, audit := newFinanceFixture()
	amount := int64(35000)

	expense, err := svc.TransitionExpense(context.Background(), cashier(), "exp-1", models.FinanceTransitionRequest{
		Action:         models.FinanceActionApprove,
		ApprovedAmount: &amount,
	})
	require.NoError(t, err)
	assert.Equal(t, models.FinanceApproved, expense.Status)
	require.NotNil(t, expense.ApprovedAmount)
	assert.Equal(t, int64(35000), *expense.ApprovedAmount)
	require.Len(t, store.updates, 1)
	assert.Equal(t, models.FinancePending, store.updates[0].From)
	assert.Equal(t, "cash-1", store.updates[0].ReviewedBy)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionFinanceTransition, audit.entries[0].Action)
}

func TestFinanceServiceApproveDefaultsToRequestedAmount(t *testing.T) {
	svc, store, _ := newFinanceFixture()

	_, err := svc.TransitionExpense(context.Background(), cashier(), "exp-1", models.FinanceTransitionRequest{Action: models.FinanceActionApprove})
	require.NoError(t, err)
	require.NotNil(t, store.updates[0].ApprovedAmount)
	assert.Equal(t, int64(40000), *store.updates[0].ApprovedAmount)
}

func TestFinanceServiceTransferRequiresReceipt(t *testing.T) {
	svc, store, _ := newFinanceFixture()
	store.expenses["exp-1"].Status = models.FinanceApproved

	_, err := svc.TransitionExpense(context.Background(), cashier(), "exp-1", models.FinanceTransitionRequest{Action: models.FinanceActionTransfer})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	receipt := "https://files.example.org/transfer.pdf"
	expense, err := svc.TransitionExpense(context.Background(), cashier(), "exp-1", models.FinanceTransitionRequest{
		Action:     models.FinanceActionTransfer,
		ReceiptURL: &receipt,
	})
	require.NoError(t, err)
	assert.Equal(t, models.FinanceTransferred, expense.Status)
	assert.Equal(t, receipt, *expense.TransferReceiptURL)
}

func TestFinanceServiceRejectsInvalidMoves(t *testing.T) {
	svc, store, _ := newFinanceFixture()

	_, err := svc.TransitionExpense(context.Background(), organizer(), "exp-1", models.FinanceTransitionRequest{Action: models.FinanceActionApprove})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = svc.TransitionExpense(context.Background(), cashier(), "exp-1", models.FinanceTransitionRequest{Action: models.FinanceActionClose})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))

	_, err = svc.TransitionExpense(context.Background(), cashier(), "missing", models.FinanceTransitionRequest{Action: models.FinanceActionApprove})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	store.updateErr = sql.ErrNoRows
	_, err = svc.TransitionExpense(context.Background(), cashier(), "exp-1", models.FinanceTransitionRequest{Action: models.FinanceActionReject})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
}

func TestFinanceServiceIncomeFlow(t *testing.T) {
	svc, store, _ := newFinanceFixture()

	_, err := svc.CreateIncome(context.Background(), organizer(), models.CreateIncomeRequest{Name: "Quyên góp", Amount: 1000})
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	income, err := svc.CreateIncome(context.Background(), cashier(), models.CreateIncomeRequest{Name: " Quyên góp ", Amount: 1000})
	require.NoError(t, err)
	assert.Equal(t, "Quyên góp", income.Name)
	assert.Equal(t, "ev-1", store.createdIncome.EventConfigID)

	moved, err := svc.TransitionIncome(context.Background(), cashier(), "inc-1", models.FinanceTransitionRequest{Action: models.FinanceActionTransfer})
	require.NoError(t, err)
	assert.Equal(t, models.FinanceTransferred, moved.Status)
}

func TestFinanceServiceListScopesToActiveEvent(t *testing.T) {
	svc, store, _ := newFinanceFixture()

	expenses, page, err := svc.ListExpenses(context.Background(), models.FinanceFilter{})
	require.NoError(t, err)
	assert.NotNil(t, expenses)
	assert.Equal(t, "ev-1", store.lastFilter.EventConfigID)
	assert.Equal(t, 20, page.PageSize)

	incomes, _, err := svc.ListIncomes(context.Background(), models.FinanceFilter{EventConfigID: "ev-2"})
	require.NoError(t, err)
	assert.Len(t, incomes, 1)
	assert.Equal(t, "ev-2", store.lastFilter.EventConfigID)
}
