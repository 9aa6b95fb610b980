package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptrDuration(d time.Duration) *time.Duration { return &d }
func ptrInt(i int) *int                          { return &i }

// publishedAt builds a published single-day event starting at 18:00 UTC on day.
func publishedAt(day time.Time) *Event {
	return &Event{
		Title:     "Go Meetup",
		Status:    StatusPublished,
		StartDate: day,
		EndDate:   day,
		StartTime: ptrDuration(18 * time.Hour),
		EndTime:   ptrDuration(21 * time.Hour),
	}
}

var day = time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC)

func TestStartAndEndDateTime(t *testing.T) {
	t.Run("combines date and time", func(t *testing.T) {
		e := publishedAt(day)
		assert.Equal(t, day.Add(18*time.Hour), e.StartDateTime())
		assert.Equal(t, day.Add(21*time.Hour), e.EndDateTime())
	})

	t.Run("missing times mean whole day", func(t *testing.T) {
		e := &Event{StartDate: day}
		assert.Equal(t, day, e.StartDateTime())
		assert.Equal(t, day.Add(24*time.Hour-time.Second), e.EndDateTime())
	})

	t.Run("date part of a timestamped start date is used", func(t *testing.T) {
		e := &Event{StartDate: day.Add(13 * time.Hour), StartTime: ptrDuration(9 * time.Hour)}
		assert.Equal(t, day.Add(9*time.Hour), e.StartDateTime())
	})
}

func TestCapacityAndRegistration(t *testing.T) {
	now := day.Add(-48 * time.Hour)

	t.Run("unlimited capacity is never full", func(t *testing.T) {
		e := publishedAt(day)
		e.ConfirmedCount = 10_000
		assert.False(t, e.IsFull())
		assert.True(t, e.IsRegistrationOpen(now))
	})

	t.Run("full at capacity", func(t *testing.T) {
		e := publishedAt(day)
		e.MaxCapacity = ptrInt(2)
		e.ConfirmedCount = 2
		assert.True(t, e.IsFull())
		assert.False(t, e.IsRegistrationOpen(now))
	})

	t.Run("deadline in the past closes registration", func(t *testing.T) {
		e := publishedAt(day)
		deadline := now
		e.RegistrationDeadline = &deadline
		assert.False(t, e.IsRegistrationOpen(now))
	})

	t.Run("draft events are closed", func(t *testing.T) {
		e := publishedAt(day)
		e.Status = StatusDraft
		assert.False(t, e.IsRegistrationOpen(now))
	})
}

func TestProgress(t *testing.T) {
	e := publishedAt(day)
	start := e.StartDateTime()

	assert.False(t, e.HasStarted(start.Add(-time.Second)))
	assert.True(t, e.HasStarted(start))
	assert.True(t, e.IsInProgress(start.Add(time.Hour)))
	assert.False(t, e.IsInProgress(e.EndDateTime().Add(time.Second)))
	assert.True(t, e.HasStarted(e.EndDateTime().Add(time.Hour)))
}

func TestCheckInWindowOpen(t *testing.T) {
	e := publishedAt(day)
	start := e.StartDateTime()
	strict := DefaultRules()

	tests := []struct {
		name  string
		rules Rules
		now   time.Time
		want  bool
	}{
		{"exactly two hours before start", strict, start.Add(-2 * time.Hour), true},
		{"thirty minutes before start", strict, start.Add(-30 * time.Minute), true},
		{"in progress", strict, start.Add(time.Hour), true},
		{"after the event ended", strict, e.EndDateTime().Add(24 * time.Hour), true},
		{"one second before the early window", strict, start.Add(-2*time.Hour - time.Second), false},
		{"ten days out without grace", strict, start.AddDate(0, 0, -10), false},
		{"ten days out with 90 day grace", Rules{EarlyWindow: DefaultEarlyWindow, GraceDays: 90}, start.AddDate(0, 0, -10), true},
		{"beyond the grace period", Rules{EarlyWindow: DefaultEarlyWindow, GraceDays: 90}, start.AddDate(0, 0, -91), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rules.CheckInWindowOpen(e, tt.now))
		})
	}

	t.Run("nil event is never open", func(t *testing.T) {
		assert.False(t, strict.CheckInWindowOpen(nil, start))
	})
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("published")
	require.NoError(t, err)
	assert.Equal(t, StatusPublished, s)

	_, err = ParseStatus("archived")
	require.Error(t, err)
}
