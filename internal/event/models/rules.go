package models

import "time"

// DefaultEarlyWindow is how long before start attendees may check in.
const DefaultEarlyWindow = 2 * time.Hour

// Rules holds the tunable parts of check-in eligibility.
type Rules struct {
	EarlyWindow time.Duration
	// GraceDays opens the window this many days before start. Zero disables it.
	GraceDays int
}

func DefaultRules() Rules {
	return Rules{EarlyWindow: DefaultEarlyWindow}
}

// CheckInWindowOpen reports whether an attendee may check in at now.
// Once the event has started the window stays open.
func (r Rules) CheckInWindowOpen(e *Event, now time.Time) bool {
	if e == nil {
		return false
	}
	if e.IsInProgress(now) || e.HasStarted(now) {
		return true
	}
	start := e.StartDateTime()
	if !now.Before(start.Add(-r.EarlyWindow)) {
		return true
	}
	if r.GraceDays > 0 {
		return !now.Before(start.AddDate(0, 0, -r.GraceDays))
	}
	return false
}
