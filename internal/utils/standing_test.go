package utils

import (
	"testing"
	"time"

	"rentops-backend/internal/domain"

	"github.com/stretchr/testify/assert"
)

func ptr(t time.Time) *time.Time { return &t }

func TestProjectRentStatus(t *testing.T) {
	next := day(2025, time.June, 1)

	tests := []struct {
		name string
		next *time.Time
		last *time.Time
		now  time.Time
		want domain.RentPaymentStatus
	}{
		{"No schedule", nil, nil, day(2025, time.June, 10), domain.RentPaymentStatusCurrent},
		{"Before due, nothing paid", &next, nil, day(2025, time.May, 20), domain.RentPaymentStatusCurrent},
		{"On the due date, nothing paid", &next, nil, next, domain.RentPaymentStatusCurrent},
		{"Past due, nothing paid", &next, nil, day(2025, time.June, 2), domain.RentPaymentStatusLate},
		{"Past due, previous cycle paid", &next, ptr(day(2025, time.May, 1)), day(2025, time.June, 5), domain.RentPaymentStatusLate},
		{"Upcoming cycle already paid", &next, ptr(next), day(2025, time.May, 25), domain.RentPaymentStatusPaidAhead},
		{"Current cycle paid and reached", &next, ptr(next), day(2025, time.June, 3), domain.RentPaymentStatusCurrent},
		{"Paid two cycles ahead", &next, ptr(day(2025, time.July, 1)), day(2025, time.May, 25), domain.RentPaymentStatusPaidAhead},
		{"Paid through the following cycle, current reached", &next, ptr(day(2025, time.July, 1)), day(2025, time.June, 3), domain.RentPaymentStatusPaidAhead},
		{"Late evening of the due date, nothing paid", &next, nil, next.Add(23 * time.Hour), domain.RentPaymentStatusCurrent},
		{"One second into the due day", &next, nil, next.Add(time.Second), domain.RentPaymentStatusCurrent},
		{"First second after the due day", &next, nil, next.Add(24*time.Hour + time.Second), domain.RentPaymentStatusLate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ProjectRentStatus(tt.next, tt.last, tt.now))
		})
	}
}

func TestNextUncoveredInstallment(t *testing.T) {
	next := day(2025, time.June, 1)

	_, ok := NextUncoveredInstallment(nil, nil)
	assert.False(t, ok)

	got, ok := NextUncoveredInstallment(&next, nil)
	assert.True(t, ok)
	assert.Equal(t, next, got)

	got, _ = NextUncoveredInstallment(&next, ptr(day(2025, time.May, 1)))
	assert.Equal(t, next, got)

	got, _ = NextUncoveredInstallment(&next, ptr(next))
	assert.Equal(t, day(2025, time.July, 1), got)
}

func TestRollSchedule(t *testing.T) {
	next := day(2025, time.June, 1)

	t.Run("Covered and reached moves forward", func(t *testing.T) {
		got, moved := RollSchedule(&next, ptr(next), day(2025, time.June, 2))
		assert.True(t, moved)
		assert.Equal(t, day(2025, time.July, 1), got)
	})

	t.Run("Covered several months", func(t *testing.T) {
		got, moved := RollSchedule(&next, ptr(day(2025, time.August, 1)), day(2025, time.August, 15))
		assert.True(t, moved)
		assert.Equal(t, day(2025, time.September, 1), got)
	})

	t.Run("Covered but not reached stays", func(t *testing.T) {
		got, moved := RollSchedule(&next, ptr(next), day(2025, time.May, 30))
		assert.False(t, moved)
		assert.Equal(t, next, got)
	})

	t.Run("Unpaid stays so it reads late", func(t *testing.T) {
		got, moved := RollSchedule(&next, nil, day(2025, time.June, 20))
		assert.False(t, moved)
		assert.Equal(t, next, got)
	})
}
