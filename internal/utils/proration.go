package utils

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

// ParseDate converts a yyyy-mm-dd formatted string into a UTC midnight time.
func ParseDate(dateStr string) (time.Time, error) {
	t, err := time.Parse(DateLayout, dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format, expected yyyy-mm-dd")
	}
	return t, nil
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysInMonth returns the number of days in a given month
func DaysInMonth(year int, month time.Month) int {
	// Day 0 of the following month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// FirstOfNextMonth returns the 1st of the month after t.
func FirstOfNextMonth(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()
	return time.Date(y, m+1, 1, 0, 0, 0, 0, time.UTC)
}

// Proration is the first-payment breakdown computed at lease approval.
type Proration struct {
	IsProrated         bool
	DaysInMonth        int
	DaysRemaining      int
	FirstPaymentAmount decimal.Decimal
	FirstPaymentDue    time.Time
}

// ComputeProration charges the occupied fraction of the start month.
// A lease starting on the 1st pays the full rent; any other start day pays
// round2(rent / daysInMonth * daysRemaining), days counted inclusive.
func ComputeProration(monthlyRent decimal.Decimal, leaseStart time.Time) Proration {
	start := DateOnly(leaseStart)
	day := start.Day()
	dim := DaysInMonth(start.Year(), start.Month())

	if day == 1 {
		return Proration{
			IsProrated:         false,
			DaysInMonth:        dim,
			DaysRemaining:      dim,
			FirstPaymentAmount: Round2(monthlyRent),
			FirstPaymentDue:    start,
		}
	}

	remaining := dim - day + 1
	amount := monthlyRent.
		Div(decimal.NewFromInt(int64(dim))).
		Mul(decimal.NewFromInt(int64(remaining)))

	return Proration{
		IsProrated:         true,
		DaysInMonth:        dim,
		DaysRemaining:      remaining,
		FirstPaymentAmount: Round2(amount),
		FirstPaymentDue:    start,
	}
}

// BillingSchedule describes how the recurring plan is created on the gateway.
type BillingSchedule struct {
	FirstBillingDate time.Time
	// Exactly one of Anchor and TrialEnd is set.
	Anchor          *time.Time
	TrialEnd        *time.Time
	NextPaymentDate time.Time
}

// Deferred reports whether the first charge waits for a future date.
func (s BillingSchedule) Deferred() bool {
	return s.TrialEnd != nil
}

// FirstBillingDate is the 1st of the following month for a prorated lease,
// otherwise the lease start itself.
func FirstBillingDate(leaseStart time.Time, isProrated bool) time.Time {
	start := DateOnly(leaseStart)
	if isProrated && start.Day() != 1 {
		return FirstOfNextMonth(start)
	}
	return start
}

// PlanBillingSchedule picks between an anchored plan (first billing date already
// reached) and a deferred plan whose trial ends on the first billing date.
// The result depends only on its inputs so re-reads reproduce the same schedule.
func PlanBillingSchedule(leaseStart time.Time, isProrated bool, now time.Time) BillingSchedule {
	first := FirstBillingDate(leaseStart, isProrated)

	if !first.After(now) {
		anchor := first
		return BillingSchedule{
			FirstBillingDate: first,
			Anchor:           &anchor,
			NextPaymentDate:  first.AddDate(0, 1, 0),
		}
	}

	trialEnd := first
	return BillingSchedule{
		FirstBillingDate: first,
		TrialEnd:         &trialEnd,
		NextPaymentDate:  first,
	}
}
