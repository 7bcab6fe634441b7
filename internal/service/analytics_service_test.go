package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/event-registration-api/internal/models"
	"github.com/noah-isme/event-registration-api/internal/repository"
	appErrors "github.com/noah-isme/event-registration-api/pkg/errors"
)

type mockAnalyticsRepo struct {
	mu            sync.Mutex
	registrations []models.Registration
	calls         int
	lastFilter    models.AnalyticsFilter
	err           error
}

func (m *mockAnalyticsRepo) ListForAnalytics(ctx context.Context, filter models.AnalyticsFilter) ([]models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastFilter = filter
	if m.err != nil {
		return nil, m.err
	}
	return m.registrations, nil
}

type stubTotals struct {
	totals repository.FinanceTotals
	err    error
}

func (s *stubTotals) Totals(ctx context.Context, eventID string) (repository.FinanceTotals, error) {
	return s.totals, s.err
}

type stubCacheRepo struct {
	store   map[string][]byte
	deleted []string
}

func (s *stubCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	if s.store == nil {
		return appErrors.ErrCacheMiss
	}
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func (s *stubCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	s.deleted = append(s.deleted, pattern)
	s.store = nil
	return nil
}

func analyticsRegistrations() []models.Registration {
	return []models.Registration{
		{
			ID: "reg-1", EventConfigID: "ev-1", InvoiceCode: "DH-1", Status: models.StatusConfirmed, TotalAmount: 15000,
			Registrants: []models.Registrant{
				{FullName: "Lan", ShirtSize: "M", Province: "Tokyo", Diocese: models.DioceseTokyo, AgeGroup: models.Age26To35, GoWith: true},
				{FullName: "Minh", ShirtSize: "XS", Province: "Tokyo", Diocese: models.DioceseTokyo, AgeGroup: models.AgeUnder12},
			},
		},
		{
			ID: "reg-2", EventConfigID: "ev-1", InvoiceCode: "DH-2", Status: models.StatusPending, TotalAmount: 10000,
			Registrants: []models.Registrant{
				{FullName: "Hùng", ShirtSize: "L", Province: "Osaka", Diocese: models.DioceseOsaka, AgeGroup: models.Age18To25},
			},
		},
	}
}

func newAnalyticsFixture(cacheRepo CacheRepository, enabled bool) (*AnalyticsService, *mockAnalyticsRepo) {
	repo := &mockAnalyticsRepo{registrations: analyticsRegistrations()}
	cacheSvc := NewResultCache(cacheRepo, nil, "analytics", time.Minute, zap.NewNop(), enabled)
	totals := &stubTotals{totals: repository.FinanceTotals{IncomeReceived: 5000, IncomePledged: 2000, ExpensesApproved: 4000, ExpensesPaid: 3000}}
	svc := NewAnalyticsService(repo, totals, &stubEvents{event: &models.EventConfig{ID: "ev-1"}}, cacheSvc, nil, zap.NewNop())
	return svc, repo
}

func TestAnalyticsServiceSummaryCaching(t *testing.T) {
	cacheRepo := &stubCacheRepo{}
	svc, repo := newAnalyticsFixture(cacheRepo, true)
	ctx := context.Background()

	summary, cacheHit, err := svc.Summary(ctx, models.AnalyticsFilter{})
	require.NoError(t, err)
	assert.False(t, cacheHit)
	assert.Equal(t, 1, repo.calls)
	assert.Equal(t, "ev-1", repo.lastFilter.EventConfigID)
	assert.Equal(t, 2, summary.TotalRegistrations)
	assert.Equal(t, 3, summary.TotalRegistrants)
	assert.Equal(t, int64(15000), summary.TotalAmount)
	assert.Equal(t, int64(25000), summary.GrossAmount)

	cached, cacheHit, err := svc.Summary(ctx, models.AnalyticsFilter{})
	require.NoError(t, err)
	assert.True(t, cacheHit)
	assert.Equal(t, 1, repo.calls)
	assert.Equal(t, summary.TotalAmount, cached.TotalAmount)

	svc.InvalidateCache(ctx)
	assert.Equal(t, []string{"analytics:*"}, cacheRepo.deleted)
	_, cacheHit, err = svc.Summary(ctx, models.AnalyticsFilter{})
	require.NoError(t, err)
	assert.False(t, cacheHit)
	assert.Equal(t, 2, repo.calls)
}

func TestAnalyticsServiceSearchFilter(t *testing.T) {
	svc, _ := newAnalyticsFixture(nil, false)

	summary, _, err := svc.Summary(context.Background(), models.AnalyticsFilter{Search: "hùng"})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalRegistrations)
}

func TestAnalyticsServiceBreakdown(t *testing.T) {
	svc, _ := newAnalyticsFixture(nil, false)

	result, _, err := svc.Breakdown(context.Background(), models.AnalyticsFilter{}, models.DimensionDiocese)
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, models.DioceseOsaka, result.Rows[0].Key)
	assert.Equal(t, 2, result.Rows[1].Count)
	assert.Equal(t, 1, result.Rows[0].SharedTransport+result.Rows[1].SharedTransport)

	_, _, err = svc.Breakdown(context.Background(), models.AnalyticsFilter{}, "gender")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAnalyticsServiceFinance(t *testing.T) {
	svc, repo := newAnalyticsFixture(nil, false)
	repo.registrations = analyticsRegistrations()[:1]

	summary, _, err := svc.Finance(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, int64(15000), summary.RegistrationRevenue)
	assert.Equal(t, int64(2000), summary.IncomePledged)
	assert.Equal(t, int64(15000+5000-3000), summary.Balance)
	assert.ElementsMatch(t, models.RevenueStatuses(), repo.lastFilter.Statuses)
}

func TestAnalyticsServiceErrorPassthrough(t *testing.T) {
	svc, repo := newAnalyticsFixture(nil, false)
	repo.err = assert.AnError

	_, _, err := svc.Summary(context.Background(), models.AnalyticsFilter{})
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)

	_, err = svc.Dashboard(context.Background(), models.AnalyticsFilter{}, true)
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestAnalyticsServiceNoActiveEvent(t *testing.T) {
	svc := NewAnalyticsService(&mockAnalyticsRepo{}, &stubTotals{}, &stubEvents{}, nil, nil, nil)
	_, _, err := svc.Summary(context.Background(), models.AnalyticsFilter{})
	assert.ErrorIs(t, err, appErrors.ErrNoActiveEvent)
}

func TestAnalyticsServiceDashboard(t *testing.T) {
	svc, _ := newAnalyticsFixture(nil, false)

	dashboard, err := svc.Dashboard(context.Background(), models.AnalyticsFilter{}, true)
	require.NoError(t, err)
	assert.Equal(t, 3, dashboard.ShirtSizes.Total)
	require.NotNil(t, dashboard.Finance)
	assert.Equal(t, int64(5000), dashboard.Finance.IncomeReceived)
}
