package utils

import (
	"time"
)

const secondsPerDay = 24 * 60 * 60

// GraceDaysLeft reports how many whole days remain before a request deleted at
// deletedAt is permanently removed: graceDays - floor((now-deletedAt)/1d),
// never below zero.
func GraceDaysLeft(deletedAt, now time.Time, graceDays int) int {
	elapsed := int64(now.Sub(deletedAt) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	left := graceDays - int(elapsed/secondsPerDay)
	if left < 0 {
		return 0
	}
	return left
}

// GraceExpired reports whether the recovery window has closed.
func GraceExpired(deletedAt, now time.Time, grace time.Duration) bool {
	return !now.Before(deletedAt.Add(grace))
}
