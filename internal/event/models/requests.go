package models

import (
	"strings"
	"time"

	dErrors "eventdesk/pkg/domain-errors"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// CreateEventRequest is the admin payload for a new event.
type CreateEventRequest struct {
	Title                string     `json:"title"`
	Location             string     `json:"location"`
	StartDate            string     `json:"start_date"`
	EndDate              string     `json:"end_date,omitempty"`
	StartTime            string     `json:"start_time,omitempty"`
	EndTime              string     `json:"end_time,omitempty"`
	MaxCapacity          *int       `json:"max_capacity,omitempty"`
	RegistrationDeadline *time.Time `json:"registration_deadline,omitempty"`
}

// Normalize trims free text fields.
func (r *CreateEventRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Location = strings.TrimSpace(r.Location)
}

// ToEvent validates the request and builds a draft event.
func (r *CreateEventRequest) ToEvent() (*Event, error) {
	if r.Title == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "title is required")
	}
	start, err := time.Parse(dateLayout, r.StartDate)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "start_date must be YYYY-MM-DD")
	}
	end := start
	if r.EndDate != "" {
		if end, err = time.Parse(dateLayout, r.EndDate); err != nil {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "end_date must be YYYY-MM-DD")
		}
		if end.Before(start) {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "end_date must not precede start_date")
		}
	}
	startTime, err := parseClock(r.StartTime, "start_time")
	if err != nil {
		return nil, err
	}
	endTime, err := parseClock(r.EndTime, "end_time")
	if err != nil {
		return nil, err
	}
	if r.MaxCapacity != nil && *r.MaxCapacity < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "max_capacity must not be negative")
	}
	return &Event{
		Title:                r.Title,
		Location:             r.Location,
		Status:               StatusDraft,
		StartDate:            start,
		EndDate:              end,
		StartTime:            startTime,
		EndTime:              endTime,
		MaxCapacity:          r.MaxCapacity,
		RegistrationDeadline: r.RegistrationDeadline,
	}, nil
}

func parseClock(s, field string) (*time.Duration, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, field+" must be HH:MM")
	}
	d := time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute
	return &d, nil
}

// EventResponse is the public view of an event.
type EventResponse struct {
	ID                   string     `json:"id"`
	Title                string     `json:"title"`
	Location             string     `json:"location"`
	Status               Status     `json:"status"`
	StartsAt             time.Time  `json:"starts_at"`
	EndsAt               time.Time  `json:"ends_at"`
	MaxCapacity          *int       `json:"max_capacity,omitempty"`
	RegistrationDeadline *time.Time `json:"registration_deadline,omitempty"`
	ConfirmedCount       int        `json:"confirmed_count"`
}

func ToResponse(e *Event) *EventResponse {
	return &EventResponse{
		ID:                   e.ID.String(),
		Title:                e.Title,
		Location:             e.Location,
		Status:               e.Status,
		StartsAt:             e.StartDateTime(),
		EndsAt:               e.EndDateTime(),
		MaxCapacity:          e.MaxCapacity,
		RegistrationDeadline: e.RegistrationDeadline,
		ConfirmedCount:       e.ConfirmedCount,
	}
}
