package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/event-registration-api/internal/models"
)

func TestCalculateFee(t *testing.T) {
	cases := []struct {
		name      string
		age       models.AgeGroup
		singleDay bool
		policy    DiscountPolicy
		want      int64
	}{
		{"adult full", models.Age18To25, false, DiscountCompound, 6000},
		{"child", models.AgeUnder12, false, DiscountCompound, 3000},
		{"adult single day", models.Age36To50, true, DiscountCompound, 3000},
		{"child single day compound", models.AgeUnder12, true, DiscountCompound, 1500},
		{"child single day single", models.AgeUnder12, true, DiscountSingle, 3000},
		{"teen", models.Age12To17, false, DiscountSingle, 6000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CalculateFee(tc.age, tc.singleDay, 6000, tc.policy))
		})
	}
	assert.Equal(t, int64(0), CalculateFee(models.Age18To25, false, 0, DiscountCompound))
	assert.Equal(t, int64(2500), CalculateFee(models.AgeUnder12, false, 5001, DiscountCompound))
}

func TestCalculateTotal(t *testing.T) {
	registrants := []models.Registrant{
		{FullName: "Anna", AgeGroup: models.Age18To25},
		{FullName: "Bé Minh", AgeGroup: models.AgeUnder12},
	}
	assert.Equal(t, int64(9000), CalculateTotal(registrants, 6000, DiscountCompound))

	day := time.Date(2025, 10, 12, 0, 0, 0, 0, time.UTC)
	registrants = append(registrants, models.Registrant{FullName: "Chú Tư", AgeGroup: models.AgeOver50, SelectedAttendanceDay: &day})
	quote := Quote(registrants, 6000, DiscountCompound)
	assert.Equal(t, int64(12000), quote.Total)
	require.Len(t, quote.Lines, 3)
	assert.True(t, quote.Lines[2].SingleDay)
}

func TestParseDiscountPolicy(t *testing.T) {
	p, err := ParseDiscountPolicy("")
	require.NoError(t, err)
	assert.Equal(t, DiscountCompound, p)

	p, err = ParseDiscountPolicy(" SINGLE ")
	require.NoError(t, err)
	assert.Equal(t, DiscountSingle, p)

	_, err = ParseDiscountPolicy("half")
	assert.Error(t, err)
}
