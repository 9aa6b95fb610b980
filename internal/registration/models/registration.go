package models

import (
	"fmt"
	"strings"
	"time"

	eventmodels "eventdesk/internal/event/models"
	id "eventdesk/pkg/domain"
	dErrors "eventdesk/pkg/domain-errors"
	"eventdesk/pkg/platform/sentinel"
)

// Status is the lifecycle state of a registration.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return Status(s), nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "invalid registration status: "+s)
}

// Ineligibility explains why a registration cannot be checked in.
type Ineligibility string

const (
	IneligibleNone              Ineligibility = ""
	IneligibleNotConfirmed      Ineligibility = "not_confirmed"
	IneligibleAlreadyCheckedIn  Ineligibility = "already_checked_in"
	IneligibleEventMissing      Ineligibility = "event_missing"
	IneligibleEventNotPublished Ineligibility = "event_not_published"
	IneligibleOutsideWindow     Ineligibility = "outside_window"
)

const (
	CodeLength   = 8
	CodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// Registration is one attendee's claim on one event.
type Registration struct {
	ID           id.RegistrationID
	EventID      id.EventID
	UserID       id.UserID
	Code         string
	QRCodeData   string
	Status       Status
	RegisteredAt time.Time

	// Joined for display; stores fill these from users and check_ins.
	HolderName  string
	HolderEmail string
	CheckedInAt *time.Time
}

func (r *Registration) IsCheckedIn() bool {
	return r.CheckedInAt != nil
}

// CanCheckIn evaluates check-in eligibility. Only confirmed registrations
// that have not been checked in may pass, whatever the time.
func (r *Registration) CanCheckIn(e *eventmodels.Event, rules eventmodels.Rules, now time.Time) (bool, Ineligibility) {
	switch {
	case r.Status != StatusConfirmed:
		return false, IneligibleNotConfirmed
	case r.IsCheckedIn():
		return false, IneligibleAlreadyCheckedIn
	case e == nil:
		return false, IneligibleEventMissing
	case !e.IsPublished():
		return false, IneligibleEventNotPublished
	case !rules.CheckInWindowOpen(e, now):
		return false, IneligibleOutsideWindow
	}
	return true, IneligibleNone
}

// CanBeCancelled is false once cancelled, checked in, or the event has started.
func (r *Registration) CanBeCancelled(e *eventmodels.Event, now time.Time) bool {
	if r.Status == StatusCancelled || r.IsCheckedIn() {
		return false
	}
	if e != nil && e.HasStarted(now) {
		return false
	}
	return true
}

// Transition moves the status machine. Cancelled is terminal.
func (r *Registration) Transition(to Status) error {
	allowed := false
	switch r.Status {
	case StatusPending:
		allowed = to == StatusConfirmed || to == StatusCancelled
	case StatusConfirmed:
		allowed = to == StatusConfirmed || to == StatusCancelled
	}
	if !allowed {
		return fmt.Errorf("registration %s: %s -> %s: %w", r.ID, r.Status, to, sentinel.ErrInvalidState)
	}
	r.Status = to
	return nil
}

// Cancel applies the cancellation guard before transitioning.
func (r *Registration) Cancel(e *eventmodels.Event, now time.Time) error {
	if !r.CanBeCancelled(e, now) {
		return fmt.Errorf("registration %s cannot be cancelled: %w", r.ID, sentinel.ErrInvalidState)
	}
	return r.Transition(StatusCancelled)
}

// NormalizeCode uppercases and trims user-entered codes.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidCode reports whether code has the registration code shape.
func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(CodeAlphabet, rune(code[i])) {
			return false
		}
	}
	return true
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
