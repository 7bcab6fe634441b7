package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/event-registration-api/internal/models"
	"github.com/noah-isme/event-registration-api/internal/repository"
	appErrors "github.com/noah-isme/event-registration-api/pkg/errors"
)

type financeStore interface {
	CreateExpense(ctx context.Context, expense *models.ExpenseRequest) error
	GetExpense(ctx context.Context, id string) (*models.ExpenseRequest, error)
	ListExpenses(ctx context.Context, filter models.FinanceFilter) ([]models.ExpenseRequest, int, error)
	UpdateExpenseStatus(ctx context.Context, update repository.FinanceUpdate) error
	CreateIncome(ctx context.Context, income *models.IncomeSource) error
	GetIncome(ctx context.Context, id string) (*models.IncomeSource, error)
	ListIncomes(ctx context.Context, filter models.FinanceFilter) ([]models.IncomeSource, int, error)
	UpdateIncomeStatus(ctx context.Context, update repository.FinanceUpdate) error
	Totals(ctx context.Context, eventID string) (repository.FinanceTotals, error)
}

var financeReviewers = []models.UserRole{models.RoleSuperAdmin, models.RoleCashier}

// FinanceService tracks expense requests and income sources of the active event.
type FinanceService struct {
	repo      financeStore
	events    eventProvider
	audit     auditLogger
	validator *RegistrantValidator
	cache     cacheInvalidator
	logger    *zap.Logger
}

// NewFinanceService constructs the service.
func NewFinanceService(repo financeStore, events eventProvider, audit auditLogger, validator *RegistrantValidator, cache cacheInvalidator, logger *zap.Logger) *FinanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validator == nil {
		validator = NewRegistrantValidator(nil)
	}
	return &FinanceService{repo: repo, events: events, audit: audit, validator: validator, cache: cache, logger: logger}
}

// CreateExpense files a pending expense request against the active event.
func (s *FinanceService) CreateExpense(ctx context.Context, actor Actor, req models.CreateExpenseRequest) (*models.ExpenseRequest, error) {
	if err := ValidateStruct(ctx, s.validator.Validator(), req); err != nil {
		return nil, err
	}
	eventID, err := s.activeEventID(ctx)
	if err != nil {
		return nil, err
	}
	expense := &models.ExpenseRequest{
		EventConfigID:     eventID,
		Title:             strings.TrimSpace(req.Title),
		Description:       trimPtr(req.Description),
		RequestedAmount:   req.RequestedAmount,
		BankName:          trimPtr(req.BankName),
		BankAccountNumber: trimPtr(req.BankAccountNumber),
		BankAccountHolder: trimPtr(req.BankAccountHolder),
		Status:            models.FinancePending,
		RequestedBy:       actor.UserID,
	}
	if err := s.repo.CreateExpense(ctx, expense); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create expense request")
	}
	recordAudit(ctx, s.audit, s.logger, actor, "EXPENSE_CREATE", "expense_request", expense.ID, nil,
		map[string]interface{}{"title": expense.Title, "requested_amount": expense.RequestedAmount})
	return expense, nil
}

// ListExpenses returns expense requests, scoped to the active event when no event is given.
func (s *FinanceService) ListExpenses(ctx context.Context, filter models.FinanceFilter) ([]models.ExpenseRequest, *models.Pagination, error) {
	if err := s.scope(ctx, &filter); err != nil {
		return nil, nil, err
	}
	expenses, total, err := s.repo.ListExpenses(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list expense requests")
	}
	if expenses == nil {
		expenses = []models.ExpenseRequest{}
	}
	return expenses, pagination(filter.Page, filter.PageSize, total), nil
}

// TransitionExpense moves an expense request through approve, reject, transfer and close.
func (s *FinanceService) TransitionExpense(ctx context.Context, actor Actor, id string, req models.FinanceTransitionRequest) (*models.ExpenseRequest, error) {
	if err := s.checkReviewer(ctx, actor, req); err != nil {
		return nil, err
	}
	expense, err := s.repo.GetExpense(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "expense request")
	}
	next, ok := models.NextFinanceStatus(expense.Status, req.Action)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot %s an expense request that is %s", req.Action, expense.Status))
	}

	update := repository.FinanceUpdate{ID: expense.ID, From: expense.Status, To: next, ReviewedBy: actor.UserID, ReviewNote: trimPtr(req.Note)}
	switch req.Action {
	case models.FinanceActionApprove:
		amount := expense.RequestedAmount
		if req.ApprovedAmount != nil {
			amount = *req.ApprovedAmount
		}
		update.ApprovedAmount = &amount
	case models.FinanceActionTransfer:
		receipt := trimPtr(req.ReceiptURL)
		if receipt == nil {
			return nil, validationError("a transfer receipt is required", []appErrors.FieldDetail{
				{Field: "receipt_url", Message: "required when transferring"},
			})
		}
		update.ReceiptURL = receipt
	}

	if err := s.repo.UpdateExpenseStatus(ctx, update); err != nil {
		return nil, conflictOrInternal(err, "expense request")
	}
	from := expense.Status
	expense.Status = next
	expense.ReviewedBy = &update.ReviewedBy
	if update.ReviewNote != nil {
		expense.ReviewNote = update.ReviewNote
	}
	if update.ApprovedAmount != nil {
		expense.ApprovedAmount = update.ApprovedAmount
	}
	if update.ReceiptURL != nil {
		expense.TransferReceiptURL = update.ReceiptURL
	}
	s.afterTransition(ctx, actor, "expense_request", expense.ID, from, next, req.Action)
	return expense, nil
}

// CreateIncome records a pending income source for the active event.
func (s *FinanceService) CreateIncome(ctx context.Context, actor Actor, req models.CreateIncomeRequest) (*models.IncomeSource, error) {
	if err := ValidateStruct(ctx, s.validator.Validator(), req); err != nil {
		return nil, err
	}
	if !hasRole(actor.Role, financeReviewers) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only cashiers can record income")
	}
	eventID, err := s.activeEventID(ctx)
	if err != nil {
		return nil, err
	}
	income := &models.IncomeSource{
		EventConfigID: eventID,
		Name:          strings.TrimSpace(req.Name),
		Description:   trimPtr(req.Description),
		Amount:        req.Amount,
		Status:        models.FinancePending,
		CreatedBy:     actor.UserID,
	}
	if err := s.repo.CreateIncome(ctx, income); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create income source")
	}
	recordAudit(ctx, s.audit, s.logger, actor, "INCOME_CREATE", "income_source", income.ID, nil,
		map[string]interface{}{"name": income.Name, "amount": income.Amount})
	return income, nil
}

// ListIncomes returns income sources, scoped to the active event when no event is given.
func (s *FinanceService) ListIncomes(ctx context.Context, filter models.FinanceFilter) ([]models.IncomeSource, *models.Pagination, error) {
	if err := s.scope(ctx, &filter); err != nil {
		return nil, nil, err
	}
	incomes, total, err := s.repo.ListIncomes(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list income sources")
	}
	if incomes == nil {
		incomes = []models.IncomeSource{}
	}
	return incomes, pagination(filter.Page, filter.PageSize, total), nil
}

// TransitionIncome moves an income source through the finance machine.
func (s *FinanceService) TransitionIncome(ctx context.Context, actor Actor, id string, req models.FinanceTransitionRequest) (*models.IncomeSource, error) {
	if err := s.checkReviewer(ctx, actor, req); err != nil {
		return nil, err
	}
	income, err := s.repo.GetIncome(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "income source")
	}
	next, ok := models.NextFinanceStatus(income.Status, req.Action)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot %s an income source that is %s", req.Action, income.Status))
	}
	update := repository.FinanceUpdate{ID: income.ID, From: income.Status, To: next, ReviewedBy: actor.UserID, ReviewNote: trimPtr(req.Note)}
	if err := s.repo.UpdateIncomeStatus(ctx, update); err != nil {
		return nil, conflictOrInternal(err, "income source")
	}
	from := income.Status
	income.Status = next
	income.ReviewedBy = &update.ReviewedBy
	if update.ReviewNote != nil {
		income.ReviewNote = update.ReviewNote
	}
	s.afterTransition(ctx, actor, "income_source", income.ID, from, next, req.Action)
	return income, nil
}

// Totals returns the finance totals of an event.
func (s *FinanceService) Totals(ctx context.Context, eventID string) (repository.FinanceTotals, error) {
	totals, err := s.repo.Totals(ctx, eventID)
	if err != nil {
		return repository.FinanceTotals{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute finance totals")
	}
	return totals, nil
}

func (s *FinanceService) checkReviewer(ctx context.Context, actor Actor, req models.FinanceTransitionRequest) error {
	if err := ValidateStruct(ctx, s.validator.Validator(), req); err != nil {
		return err
	}
	if !hasRole(actor.Role, financeReviewers) {
		return appErrors.Clone(appErrors.ErrForbidden, "only cashiers can review finance records")
	}
	return nil
}

func (s *FinanceService) afterTransition(ctx context.Context, actor Actor, resource, id string, from, to models.FinanceStatus, action models.FinanceAction) {
	recordAudit(ctx, s.audit, s.logger, actor, models.AuditActionFinanceTransition, resource, id,
		map[string]interface{}{"status": from},
		map[string]interface{}{"status": to, "action": action})
	if s.cache != nil {
		s.cache.InvalidateCache(ctx)
	}
	s.logger.Info("finance record transitioned",
		zap.String("resource", resource),
		zap.String("id", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
}

func (s *FinanceService) scope(ctx context.Context, filter *models.FinanceFilter) error {
	if filter.EventConfigID != "" {
		return nil
	}
	eventID, err := s.activeEventID(ctx)
	if err != nil {
		return err
	}
	filter.EventConfigID = eventID
	return nil
}

func (s *FinanceService) activeEventID(ctx context.Context) (string, error) {
	event, err := s.events.GetActive(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrNoActiveEvent, "")
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active event")
	}
	return event.ID, nil
}

func notFoundOrInternal(err error, resource string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, resource+" not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load "+resource)
}

func conflictOrInternal(err error, resource string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrConflict, resource+" changed concurrently, reload and retry")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update "+resource)
}
