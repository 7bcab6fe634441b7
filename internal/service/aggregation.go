package service

import (
	"math"
	"sort"
	"strings"

	"github.com/noah-isme/event-registration-api/internal/models"
)

// FilterRegistrations returns the registrations matching every set field of the filter.
func FilterRegistrations(registrations []models.Registration, filter models.AnalyticsFilter) []models.Registration {
	statuses := make(map[models.RegistrationStatus]struct{}, len(filter.Statuses))
	for _, s := range filter.Statuses {
		statuses[s] = struct{}{}
	}
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	result := make([]models.Registration, 0, len(registrations))
	for _, reg := range registrations {
		if filter.EventConfigID != "" && reg.EventConfigID != filter.EventConfigID {
			continue
		}
		if len(statuses) > 0 {
			if _, ok := statuses[reg.Status]; !ok {
				continue
			}
		}
		if filter.From != nil && reg.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && reg.CreatedAt.After(*filter.To) {
			continue
		}
		if search != "" && !matchesSearch(reg, search) {
			continue
		}
		result = append(result, reg)
	}
	return result
}

func matchesSearch(reg models.Registration, needle string) bool {
	if strings.Contains(strings.ToLower(reg.InvoiceCode), needle) {
		return true
	}
	for _, r := range reg.Registrants {
		if strings.Contains(strings.ToLower(r.FullName), needle) {
			return true
		}
		if r.Email != nil && strings.Contains(strings.ToLower(*r.Email), needle) {
			return true
		}
		if r.Phone != nil && strings.Contains(*r.Phone, needle) {
			return true
		}
	}
	return false
}

// Summarize computes headline counts and amounts.
func Summarize(registrations []models.Registration) models.RegistrationSummary {
	summary := models.RegistrationSummary{
		ByStatus:   make(map[models.RegistrationStatus]int),
		ByAgeGroup: make(map[models.AgeGroup]int),
	}
	for _, reg := range registrations {
		summary.TotalRegistrations++
		summary.TotalRegistrants += len(reg.Registrants)
		summary.GrossAmount += reg.TotalAmount
		summary.ByStatus[reg.Status]++
		if reg.Status.CountsAsRevenue() {
			summary.TotalAmount += reg.TotalAmount
		}
		for _, r := range reg.Registrants {
			summary.ByAgeGroup[r.AgeGroup]++
			if r.CheckedInAt != nil && r.CheckedOutAt == nil {
				summary.CheckedIn++
			}
		}
	}
	return summary
}

// ShirtSizeBreakdown counts registrants per shirt size.
func ShirtSizeBreakdown(registrations []models.Registration) models.Breakdown {
	return breakdown(registrations, models.DimensionShirtSize, func(r models.Registrant) string { return r.ShirtSize }, false)
}

// ProvinceBreakdown counts registrants per province.
func ProvinceBreakdown(registrations []models.Registration) models.Breakdown {
	return breakdown(registrations, models.DimensionProvince, func(r models.Registrant) string { return r.Province }, false)
}

// DioceseBreakdown counts registrants per diocese, split by transport arrangement.
func DioceseBreakdown(registrations []models.Registration) models.Breakdown {
	return breakdown(registrations, models.DimensionDiocese, func(r models.Registrant) string { return r.Diocese }, true)
}

// BreakdownBy dispatches on a dimension name.
func BreakdownBy(registrations []models.Registration, dimension models.BreakdownDimension) (models.Breakdown, bool) {
	switch dimension {
	case models.DimensionShirtSize:
		return ShirtSizeBreakdown(registrations), true
	case models.DimensionProvince:
		return ProvinceBreakdown(registrations), true
	case models.DimensionDiocese:
		return DioceseBreakdown(registrations), true
	}
	return models.Breakdown{}, false
}

// breakdown groups registrants by key. Empty keys are skipped and rows are
// sorted ascending by key. Percentages are relative to the counted registrants.
func breakdown(registrations []models.Registration, dimension models.BreakdownDimension, key func(models.Registrant) string, transport bool) models.Breakdown {
	rows := make(map[string]*models.BreakdownRow)
	total := 0
	for _, reg := range registrations {
		for _, r := range reg.Registrants {
			k := strings.TrimSpace(key(r))
			if k == "" {
				continue
			}
			row, ok := rows[k]
			if !ok {
				row = &models.BreakdownRow{Key: k}
				rows[k] = row
			}
			row.Count++
			if transport {
				if r.GoWith {
					row.SharedTransport++
				} else {
					row.SelfTransport++
				}
			}
			total++
		}
	}

	result := models.Breakdown{Dimension: dimension, Total: total, Rows: make([]models.BreakdownRow, 0, len(rows))}
	for _, row := range rows {
		row.Percentage = percentage(row.Count, total)
		result.Rows = append(result.Rows, *row)
	}
	sort.Slice(result.Rows, func(i, j int) bool { return result.Rows[i].Key < result.Rows[j].Key })
	return result
}

func percentage(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count)/float64(total)*10000) / 100
}
