package utils

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseDate(t *testing.T) {
	t.Run("Valid date", func(t *testing.T) {
		date, err := ParseDate("2024-01-15")
		require.NoError(t, err)
		assert.Equal(t, day(2024, time.January, 15), date)
	})

	t.Run("Invalid format", func(t *testing.T) {
		_, err := ParseDate("2024/01/15")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid date format")
	})

	t.Run("Invalid day", func(t *testing.T) {
		_, err := ParseDate("2024-02-30")
		assert.Error(t, err)
	})
}

func TestDaysInMonth(t *testing.T) {
	tests := []struct {
		year     int
		month    time.Month
		expected int
	}{
		{2024, time.January, 31},
		{2024, time.February, 29}, // leap year
		{2023, time.February, 28},
		{2024, time.April, 30},
		{2024, time.December, 31},
		{2000, time.February, 29}, // divisible by 400
		{1900, time.February, 28}, // divisible by 100 but not 400
	}

	for _, tt := range tests {
		t.Run(tt.month.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, DaysInMonth(tt.year, tt.month))
		})
	}
}

func TestComputeProration(t *testing.T) {
	tests := []struct {
		name          string
		rent          string
		start         time.Time
		wantProrated  bool
		wantRemaining int
		wantAmount    string
	}{
		{"Starts on the 1st pays full rent", "900", day(2025, time.April, 1), false, 30, "900.00"},
		{"Mid-month in a 30-day month", "900", day(2025, time.April, 15), true, 16, "480.00"},
		{"Last day of a 31-day month", "1550", day(2025, time.January, 31), true, 1, "50.00"},
		{"Leap-year February", "1450", day(2024, time.February, 20), true, 10, "500.00"},
		{"Rounds to the cent", "1000", day(2025, time.March, 15), true, 17, "548.39"},
		{"Second of the month", "1200", day(2025, time.June, 2), true, 29, "1160.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ComputeProration(decimal.RequireFromString(tt.rent), tt.start)
			assert.Equal(t, tt.wantProrated, p.IsProrated)
			assert.Equal(t, tt.wantRemaining, p.DaysRemaining)
			assert.Equal(t, tt.wantAmount, p.FirstPaymentAmount.StringFixed(2))
			assert.Equal(t, tt.start, p.FirstPaymentDue)
		})
	}
}

func TestComputeProration_IgnoresTimeOfDay(t *testing.T) {
	start := time.Date(2025, time.April, 15, 23, 30, 0, 0, time.UTC)
	p := ComputeProration(decimal.NewFromInt(900), start)
	assert.Equal(t, "480.00", p.FirstPaymentAmount.StringFixed(2))
	assert.Equal(t, day(2025, time.April, 15), p.FirstPaymentDue)
}

func TestFirstBillingDate(t *testing.T) {
	assert.Equal(t, day(2025, time.May, 1), FirstBillingDate(day(2025, time.April, 15), true))
	assert.Equal(t, day(2025, time.April, 1), FirstBillingDate(day(2025, time.April, 1), false))
	assert.Equal(t, day(2026, time.January, 1), FirstBillingDate(day(2025, time.December, 10), true))
	// an unprorated lease bills on its start date
	assert.Equal(t, day(2025, time.April, 15), FirstBillingDate(day(2025, time.April, 15), false))
}

func TestPlanBillingSchedule(t *testing.T) {
	t.Run("First billing date in the past anchors the plan", func(t *testing.T) {
		now := day(2025, time.May, 20)
		s := PlanBillingSchedule(day(2025, time.April, 15), true, now)

		require.NotNil(t, s.Anchor)
		assert.Nil(t, s.TrialEnd)
		assert.False(t, s.Deferred())
		assert.Equal(t, day(2025, time.May, 1), *s.Anchor)
		assert.Equal(t, day(2025, time.June, 1), s.NextPaymentDate)
	})

	t.Run("First billing date equal to now anchors the plan", func(t *testing.T) {
		now := day(2025, time.May, 1)
		s := PlanBillingSchedule(day(2025, time.April, 15), true, now)

		require.NotNil(t, s.Anchor)
		assert.Equal(t, day(2025, time.June, 1), s.NextPaymentDate)
	})

	t.Run("Future first billing date defers with a trial", func(t *testing.T) {
		now := day(2025, time.April, 20)
		s := PlanBillingSchedule(day(2025, time.April, 15), true, now)

		assert.Nil(t, s.Anchor)
		require.NotNil(t, s.TrialEnd)
		assert.True(t, s.Deferred())
		assert.Equal(t, day(2025, time.May, 1), *s.TrialEnd)
		assert.Equal(t, day(2025, time.May, 1), s.NextPaymentDate)
	})

	t.Run("Unprorated future lease bills on its start date", func(t *testing.T) {
		now := day(2025, time.March, 3)
		s := PlanBillingSchedule(day(2025, time.April, 1), false, now)

		require.NotNil(t, s.TrialEnd)
		assert.Equal(t, day(2025, time.April, 1), s.NextPaymentDate)
	})

	t.Run("Same inputs reproduce the same schedule", func(t *testing.T) {
		now := day(2025, time.May, 20)
		a := PlanBillingSchedule(day(2025, time.April, 15), true, now)
		b := PlanBillingSchedule(day(2025, time.April, 15), true, now)
		assert.Equal(t, a, b)
	})
}
