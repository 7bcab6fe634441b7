package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/event-registration-api/internal/models"
	"github.com/noah-isme/event-registration-api/internal/repository"
	appErrors "github.com/noah-isme/event-registration-api/pkg/errors"
)

// AnalyticsRepository describes the registration reads required by AnalyticsService.
type AnalyticsRepository interface {
	ListForAnalytics(ctx context.Context, filter models.AnalyticsFilter) ([]models.Registration, error)
}

type financeTotalsSource interface {
	Totals(ctx context.Context, eventID string) (repository.FinanceTotals, error)
}

// AnalyticsService computes dashboards and breakdowns with cache integration.
type AnalyticsService struct {
	repo    AnalyticsRepository
	finance financeTotalsSource
	events  eventProvider
	cache   *ResultCache
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewAnalyticsService constructs an analytics service.
func NewAnalyticsService(repo AnalyticsRepository, finance financeTotalsSource, events eventProvider, cache *ResultCache, metrics *MetricsService, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{
		repo:    repo,
		finance: finance,
		events:  events,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Registrations returns the registrations matching filter, scoped to the active event by default.
func (s *AnalyticsService) Registrations(ctx context.Context, filter models.AnalyticsFilter) ([]models.Registration, models.AnalyticsFilter, error) {
	filter, err := s.scope(ctx, filter)
	if err != nil {
		return nil, filter, err
	}
	regs, err := s.repo.ListForAnalytics(ctx, filter)
	if err != nil {
		return nil, filter, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registrations")
	}
	return FilterRegistrations(regs, filter), filter, nil
}

// Summary returns headline counts. The boolean indicates whether data originated from cache.
func (s *AnalyticsService) Summary(ctx context.Context, filter models.AnalyticsFilter) (models.RegistrationSummary, bool, error) {
	filter, err := s.scope(ctx, filter)
	if err != nil {
		return models.RegistrationSummary{}, false, err
	}
	key := s.cache.Key("summary", filter.CacheKey())
	var cached models.RegistrationSummary
	if s.cache.Lookup(ctx, key, &cached) {
		return cached, true, nil
	}

	regs, _, err := s.Registrations(ctx, filter)
	if err != nil {
		return models.RegistrationSummary{}, false, err
	}
	summary := Summarize(regs)
	s.cache.Store(ctx, key, summary)
	return summary, false, nil
}

// Breakdown returns a grouped count table for dimension.
func (s *AnalyticsService) Breakdown(ctx context.Context, filter models.AnalyticsFilter, dimension models.BreakdownDimension) (models.Breakdown, bool, error) {
	if _, ok := BreakdownBy(nil, dimension); !ok {
		return models.Breakdown{}, false, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "unknown breakdown dimension"),
			[]appErrors.FieldDetail{{Field: "dimension", Message: "must be one of shirt-size, province, diocese"}})
	}
	filter, err := s.scope(ctx, filter)
	if err != nil {
		return models.Breakdown{}, false, err
	}
	key := s.cache.Key("breakdown", string(dimension), filter.CacheKey())
	var cached models.Breakdown
	if s.cache.Lookup(ctx, key, &cached) {
		return cached, true, nil
	}

	regs, _, err := s.Registrations(ctx, filter)
	if err != nil {
		return models.Breakdown{}, false, err
	}
	result, _ := BreakdownBy(regs, dimension)
	s.cache.Store(ctx, key, result)
	return result, false, nil
}

// Finance compares registration revenue with income and expenses of an event.
func (s *AnalyticsService) Finance(ctx context.Context, eventID string) (models.FinanceSummary, bool, error) {
	filter, err := s.scope(ctx, models.AnalyticsFilter{EventConfigID: eventID})
	if err != nil {
		return models.FinanceSummary{}, false, err
	}
	key := s.cache.Key("finance", filter.EventConfigID)
	var cached models.FinanceSummary
	if s.cache.Lookup(ctx, key, &cached) {
		return cached, true, nil
	}

	var (
		regs   []models.Registration
		totals repository.FinanceTotals
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		loaded, err := s.repo.ListForAnalytics(gctx, models.AnalyticsFilter{EventConfigID: filter.EventConfigID, Statuses: models.RevenueStatuses()})
		if err != nil {
			return err
		}
		regs = loaded
		return nil
	})
	g.Go(func() error {
		loaded, err := s.finance.Totals(gctx, filter.EventConfigID)
		if err != nil {
			return err
		}
		totals = loaded
		return nil
	})
	if err := g.Wait(); err != nil {
		return models.FinanceSummary{}, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute finance summary")
	}

	summary := buildFinanceSummary(Summarize(regs).TotalAmount, totals)
	s.cache.Store(ctx, key, summary)
	return summary, false, nil
}

// Dashboard bundles the summary, the three breakdowns and the finance summary.
func (s *AnalyticsService) Dashboard(ctx context.Context, filter models.AnalyticsFilter, includeFinance bool) (*models.Dashboard, error) {
	filter, err := s.scope(ctx, filter)
	if err != nil {
		return nil, err
	}

	var (
		regs    []models.Registration
		finance *models.FinanceSummary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		loaded, _, err := s.Registrations(gctx, filter)
		regs = loaded
		return err
	})
	if includeFinance {
		g.Go(func() error {
			summary, _, err := s.Finance(gctx, filter.EventConfigID)
			if err != nil {
				return err
			}
			finance = &summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &models.Dashboard{
		Summary:     Summarize(regs),
		ShirtSizes:  ShirtSizeBreakdown(regs),
		Provinces:   ProvinceBreakdown(regs),
		Dioceses:    DioceseBreakdown(regs),
		Finance:     finance,
		GeneratedAt: s.now(),
	}, nil
}

// InvalidateCache drops every cached analytics payload.
func (s *AnalyticsService) InvalidateCache(ctx context.Context) {
	if s == nil {
		return
	}
	_ = s.cache.Flush(ctx)
}

// SystemMetrics returns system instrumentation snapshot.
func (s *AnalyticsService) SystemMetrics() models.SystemMetrics {
	return s.metrics.Snapshot()
}

func (s *AnalyticsService) scope(ctx context.Context, filter models.AnalyticsFilter) (models.AnalyticsFilter, error) {
	if filter.EventConfigID != "" || s.events == nil {
		return filter, nil
	}
	event, err := s.events.GetActive(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return filter, appErrors.Clone(appErrors.ErrNoActiveEvent, "")
		}
		return filter, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active event")
	}
	filter.EventConfigID = event.ID
	return filter, nil
}

func buildFinanceSummary(revenue int64, totals repository.FinanceTotals) models.FinanceSummary {
	return models.FinanceSummary{
		RegistrationRevenue: revenue,
		IncomeReceived:      totals.IncomeReceived,
		IncomePledged:       totals.IncomePledged,
		ExpensesTransferred: totals.ExpensesPaid,
		ExpensesApproved:    totals.ExpensesApproved,
		Balance:             revenue + totals.IncomeReceived - totals.ExpensesPaid,
	}
}
