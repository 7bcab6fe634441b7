package service

import (
	"fmt"
	"strings"

	"github.com/noah-isme/event-registration-api/internal/models"
)

// DiscountPolicy decides how the under-12 and single-day discounts combine.
type DiscountPolicy string

const (
	// DiscountCompound applies every matching half-price discount, so a
	// single-day child pays a quarter.
	DiscountCompound DiscountPolicy = "compound"
	// DiscountSingle applies at most one half-price discount.
	DiscountSingle DiscountPolicy = "single"
)

// ParseDiscountPolicy maps configuration values to a policy. Empty means compound.
func ParseDiscountPolicy(raw string) (DiscountPolicy, error) {
	switch DiscountPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", DiscountCompound:
		return DiscountCompound, nil
	case DiscountSingle:
		return DiscountSingle, nil
	}
	return "", fmt.Errorf("unknown discount policy %q", raw)
}

// CalculateFee returns the integer yen fee for one registrant.
func CalculateFee(ageGroup models.AgeGroup, singleDay bool, basePrice int64, policy DiscountPolicy) int64 {
	if basePrice <= 0 {
		return 0
	}
	halvings := 0
	if ageGroup == models.AgeUnder12 {
		halvings++
	}
	if singleDay {
		halvings++
	}
	if policy == DiscountSingle && halvings > 1 {
		halvings = 1
	}
	return basePrice >> uint(halvings)
}

// CalculateRegistrantFee applies CalculateFee to a stored registrant.
func CalculateRegistrantFee(r models.Registrant, basePrice int64, policy DiscountPolicy) int64 {
	return CalculateFee(r.AgeGroup, r.SingleDay(), basePrice, policy)
}

// CalculateTotal sums the fees of all registrants.
func CalculateTotal(registrants []models.Registrant, basePrice int64, policy DiscountPolicy) int64 {
	var total int64
	for _, r := range registrants {
		total += CalculateRegistrantFee(r, basePrice, policy)
	}
	return total
}

// Quote builds a per-line fee preview.
func Quote(registrants []models.Registrant, basePrice int64, policy DiscountPolicy) models.FeeQuote {
	quote := models.FeeQuote{BasePrice: basePrice, Policy: string(policy), Lines: make([]models.FeeLine, 0, len(registrants))}
	for _, r := range registrants {
		amount := CalculateRegistrantFee(r, basePrice, policy)
		quote.Lines = append(quote.Lines, models.FeeLine{
			FullName:  r.FullName,
			AgeGroup:  r.AgeGroup,
			SingleDay: r.SingleDay(),
			Amount:    amount,
		})
		quote.Total += amount
	}
	return quote
}
