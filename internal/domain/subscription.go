package domain

import (
	"errors"
	"time"
)

// DueTolerance absorbs scheduler jitter: a subscription that is a few seconds
// short of its interval on the current sweep still counts as due, instead of
// slipping a whole sweep period.
const DueTolerance = 5 * time.Second

// ErrNotFound is returned when a favorite or subscription does not exist.
var ErrNotFound = errors.New("not found")

// Favorite is a currency a user has chosen to track.
type Favorite struct {
	UserID   int64
	Currency string
}

// Subscription is a favorite plus a recurring notification interval.
// LastNotifiedAt is the watermark the scheduler uses to compute due-ness;
// it is advanced only after a notification was actually delivered.
type Subscription struct {
	UserID          int64
	Currency        string
	IntervalMinutes int
	LastNotifiedAt  time.Time
}

// Interval returns the notification interval as a duration.
func (s Subscription) Interval() time.Duration {
	return time.Duration(s.IntervalMinutes) * time.Minute
}

// Due reports whether the subscription should fire at the given time.
func (s Subscription) Due(now time.Time) bool {
	return now.Sub(s.LastNotifiedAt) >= s.Interval()-DueTolerance
}
