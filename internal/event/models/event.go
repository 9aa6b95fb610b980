package models

import (
	"time"

	id "eventdesk/pkg/domain"
	dErrors "eventdesk/pkg/domain-errors"
)

// Status is the publication state of an event.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// ParseStatus rejects anything outside the closed set.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusDraft, StatusPublished, StatusCompleted, StatusCancelled:
		return Status(s), nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "invalid event status: "+s)
}

// Event is the snapshot the check-in rules evaluate. Dates are midnight UTC;
// start and end times are offsets from midnight.
type Event struct {
	ID                   id.EventID
	Title                string
	Location             string
	Status               Status
	StartDate            time.Time
	EndDate              time.Time
	StartTime            *time.Duration
	EndTime              *time.Duration
	MaxCapacity          *int
	RegistrationDeadline *time.Time
	// ConfirmedCount is derived by stores from confirmed registrations.
	ConfirmedCount int
	CreatedAt      time.Time
}

func (e *Event) IsPublished() bool {
	return e.Status == StatusPublished
}

// IsFull is false for unlimited events.
func (e *Event) IsFull() bool {
	if e.MaxCapacity == nil {
		return false
	}
	return e.ConfirmedCount >= *e.MaxCapacity
}

func (e *Event) IsRegistrationOpen(now time.Time) bool {
	if !e.IsPublished() {
		return false
	}
	if e.RegistrationDeadline != nil && !e.RegistrationDeadline.After(now) {
		return false
	}
	return !e.IsFull()
}

// StartDateTime combines start date and time; no time means start of day.
func (e *Event) StartDateTime() time.Time {
	start := dateOnly(e.StartDate)
	if e.StartTime != nil {
		return start.Add(*e.StartTime)
	}
	return start
}

// EndDateTime combines end date and time; no time means end of day.
func (e *Event) EndDateTime() time.Time {
	end := dateOnly(e.EndDate)
	if e.EndDate.IsZero() {
		end = dateOnly(e.StartDate)
	}
	if e.EndTime != nil {
		return end.Add(*e.EndTime)
	}
	return end.Add(24*time.Hour - time.Second)
}

func (e *Event) HasStarted(now time.Time) bool {
	return !now.Before(e.StartDateTime())
}

func (e *Event) IsInProgress(now time.Time) bool {
	return !now.Before(e.StartDateTime()) && !now.After(e.EndDateTime())
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
