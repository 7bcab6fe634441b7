package models

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// AnalyticsFilter is the explicit filter applied to every report and export.
type AnalyticsFilter struct {
	EventConfigID string               `json:"event_config_id,omitempty"`
	Statuses      []RegistrationStatus `json:"statuses,omitempty"`
	From          *time.Time           `json:"from,omitempty"`
	To            *time.Time           `json:"to,omitempty"`
	Search        string               `json:"search,omitempty"`
}

// CacheKey returns a stable digest of the filter.
func (f AnalyticsFilter) CacheKey() string {
	statuses := make([]string, len(f.Statuses))
	for i, s := range f.Statuses {
		statuses[i] = string(s)
	}
	sort.Strings(statuses)
	var from, to string
	if f.From != nil {
		from = f.From.UTC().Format(time.RFC3339)
	}
	if f.To != nil {
		to = f.To.UTC().Format(time.RFC3339)
	}
	raw := fmt.Sprintf("%s|%s|%s|%s|%s", f.EventConfigID, strings.Join(statuses, ","), from, to, strings.ToLower(strings.TrimSpace(f.Search)))
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:8])
}

// RegistrationSummary is the headline block of the dashboard. TotalAmount only
// counts revenue statuses; GrossAmount sums every registration.
type RegistrationSummary struct {
	TotalRegistrations int                        `json:"total_registrations"`
	TotalRegistrants   int                        `json:"total_registrants"`
	TotalAmount        int64                      `json:"total_amount"`
	GrossAmount        int64                      `json:"gross_amount"`
	CheckedIn          int                        `json:"checked_in"`
	ByStatus           map[RegistrationStatus]int `json:"by_status"`
	ByAgeGroup         map[AgeGroup]int           `json:"by_age_group"`
}

// BreakdownRow is one row of a grouped count table.
type BreakdownRow struct {
	Key             string  `json:"key"`
	Count           int     `json:"count"`
	Percentage      float64 `json:"percentage"`
	SelfTransport   int     `json:"self_transport,omitempty"`
	SharedTransport int     `json:"shared_transport,omitempty"`
}

// BreakdownDimension names a supported grouping.
type BreakdownDimension string

const (
	DimensionShirtSize BreakdownDimension = "shirt-size"
	DimensionProvince  BreakdownDimension = "province"
	DimensionDiocese   BreakdownDimension = "diocese"
)

// Breakdown is a grouped count table.
type Breakdown struct {
	Dimension BreakdownDimension `json:"dimension"`
	Total     int                `json:"total"`
	Rows      []BreakdownRow     `json:"rows"`
}

// FinanceSummary compares collected money against spending.
type FinanceSummary struct {
	RegistrationRevenue int64 `json:"registration_revenue"`
	IncomeReceived      int64 `json:"income_received"`
	IncomePledged       int64 `json:"income_pledged"`
	ExpensesTransferred int64 `json:"expenses_transferred"`
	ExpensesApproved    int64 `json:"expenses_approved"`
	Balance             int64 `json:"balance"`
}

// Dashboard bundles the analytics served to administrators.
type Dashboard struct {
	Summary     RegistrationSummary `json:"summary"`
	ShirtSizes  Breakdown           `json:"shirt_sizes"`
	Provinces   Breakdown           `json:"provinces"`
	Dioceses    Breakdown           `json:"dioceses"`
	Finance     *FinanceSummary     `json:"finance,omitempty"`
	GeneratedAt time.Time           `json:"generated_at"`
}

// SystemMetrics is a lightweight snapshot of the process counters.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	TransitionsTotal         uint64    `json:"transitions_total"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
