package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/event-registration-api/internal/models"
	"github.com/noah-isme/event-registration-api/internal/service"
	appErrors "github.com/noah-isme/event-registration-api/pkg/errors"
	"github.com/noah-isme/event-registration-api/pkg/response"
)

type financeService interface {
	CreateExpense(ctx context.Context, actor service.Actor, req models.CreateExpenseRequest) (*models.ExpenseRequest, error)
	ListExpenses(ctx context.Context, filter models.FinanceFilter) ([]models.ExpenseRequest, *models.Pagination, error)
	TransitionExpense(ctx context.Context, actor service.Actor, id string, req models.FinanceTransitionRequest) (*models.ExpenseRequest, error)
	CreateIncome(ctx context.Context, actor service.Actor, req models.CreateIncomeRequest) (*models.IncomeSource, error)
	ListIncomes(ctx context.Context, filter models.FinanceFilter) ([]models.IncomeSource, *models.Pagination, error)
	TransitionIncome(ctx context.Context, actor service.Actor, id string, req models.FinanceTransitionRequest) (*models.IncomeSource, error)
}

// FinanceHandler exposes expense requests and income sources.
type FinanceHandler struct {
	service financeService
}

// NewFinanceHandler constructs the handler.
func NewFinanceHandler(svc financeService) *FinanceHandler {
	return &FinanceHandler{service: svc}
}

func financeFilterFromQuery(c *gin.Context) (models.FinanceFilter, error) {
	page, size := pageParams(c)
	filter := models.FinanceFilter{
		EventConfigID: strings.TrimSpace(c.Query("event_id")),
		Page:          page,
		PageSize:      size,
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := models.FinanceStatus(raw)
		switch status {
		case models.FinancePending, models.FinanceApproved, models.FinanceTransferred, models.FinanceClosed, models.FinanceRejected:
			filter.Status = &status
		default:
			return filter, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "unknown status"),
				[]appErrors.FieldDetail{{Field: "status", Message: "unknown finance status"}})
		}
	}
	return filter, nil
}

// ListExpenses godoc
// @Summary List expense requests
// @Tags Finance
// @Produce json
// @Param status query string false "Status"
// @Param page query int false "Page"
// @Success 200 {object} response.Envelope
// @Router /finance/expenses [get]
func (h *FinanceHandler) ListExpenses(c *gin.Context) {
	filter, err := financeFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, pagination, err := h.service.ListExpenses(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// CreateExpense godoc
// @Summary Request an expense
// @Tags Finance
// @Accept json
// @Produce json
// @Param payload body models.CreateExpenseRequest true "Expense"
// @Success 201 {object} response.Envelope
// @Router /finance/expenses [post]
func (h *FinanceHandler) CreateExpense(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.CreateExpenseRequest
	if !bindJSON(c, &req, "invalid expense payload") {
		return
	}
	expense, err := h.service.CreateExpense(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, expense)
}

// TransitionExpense godoc
// @Summary Approve, reject, transfer or close an expense
// @Tags Finance
// @Accept json
// @Produce json
// @Param id path string true "Expense ID"
// @Param payload body models.FinanceTransitionRequest true "Action"
// @Success 200 {object} response.Envelope
// @Router /finance/expenses/{id}/transitions [post]
func (h *FinanceHandler) TransitionExpense(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.FinanceTransitionRequest
	if !bindJSON(c, &req, "invalid transition payload") {
		return
	}
	expense, err := h.service.TransitionExpense(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, expense, nil)
}

// ListIncomes godoc
// @Summary List income sources
// @Tags Finance
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /finance/incomes [get]
func (h *FinanceHandler) ListIncomes(c *gin.Context) {
	filter, err := financeFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, pagination, err := h.service.ListIncomes(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// CreateIncome godoc
// @Summary Record an income source
// @Tags Finance
// @Accept json
// @Produce json
// @Param payload body models.CreateIncomeRequest true "Income"
// @Success 201 {object} response.Envelope
// @Router /finance/incomes [post]
func (h *FinanceHandler) CreateIncome(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.CreateIncomeRequest
	if !bindJSON(c, &req, "invalid income payload") {
		return
	}
	income, err := h.service.CreateIncome(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, income)
}

// TransitionIncome godoc
// @Summary Move an income source
// @Tags Finance
// @Accept json
// @Produce json
// @Param id path string true "Income ID"
// @Param payload body models.FinanceTransitionRequest true "Action"
// @Success 200 {object} response.Envelope
// @Router /finance/incomes/{id}/transitions [post]
func (h *FinanceHandler) TransitionIncome(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.FinanceTransitionRequest
	if !bindJSON(c, &req, "invalid transition payload") {
		return
	}
	income, err := h.service.TransitionIncome(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, income, nil)
}
