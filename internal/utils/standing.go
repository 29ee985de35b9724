package utils

import (
	"time"

	"rentops-backend/internal/domain"
)

// ProjectRentStatus derives the display label for a lease's rent standing.
// lastPayment is the due date of the most recent installment that was covered.
// The schedule is rolled past covered installments before projecting, so a
// stale nextPayment reads the same as a refreshed one.
//
//   - next outstanding installment already paid -> paid_ahead
//   - due date passed without cover              -> late
//   - anything else (including no schedule)      -> current
//
// Dates are compared by calendar day in UTC; the due day itself is never late.
func ProjectRentStatus(nextPayment, lastPayment *time.Time, now time.Time) domain.RentPaymentStatus {
	if nextPayment == nil {
		return domain.RentPaymentStatusCurrent
	}
	today := DateOnly(now)
	next, _ := RollSchedule(nextPayment, lastPayment, today)

	if lastPayment != nil && !lastPayment.Before(next) {
		return domain.RentPaymentStatusPaidAhead
	}
	if today.After(next) {
		return domain.RentPaymentStatusLate
	}
	return domain.RentPaymentStatusCurrent
}

// NextUncoveredInstallment returns the due date a new rent payment settles:
// the scheduled next payment, or the month after the last covered installment
// when the tenant is already paid through it.
func NextUncoveredInstallment(nextPayment, lastPayment *time.Time) (time.Time, bool) {
	if nextPayment == nil {
		return time.Time{}, false
	}
	if lastPayment == nil || lastPayment.Before(*nextPayment) {
		return *nextPayment, true
	}
	return lastPayment.AddDate(0, 1, 0), true
}

// RollSchedule advances next past every installment that is both due and
// covered, so the schedule always points at the next outstanding charge.
func RollSchedule(nextPayment, lastPayment *time.Time, now time.Time) (time.Time, bool) {
	if nextPayment == nil {
		return time.Time{}, false
	}
	next := *nextPayment
	today := DateOnly(now)
	moved := false
	for lastPayment != nil && !lastPayment.Before(next) && !today.Before(next) {
		next = next.AddDate(0, 1, 0)
		moved = true
	}
	return next, moved
}
