package models

import (
	"time"

	eventmodels "eventdesk/internal/event/models"
	regmodels "eventdesk/internal/registration/models"
)

// Display formats shared with exports.
const (
	TimestampLayout = "Jan 02, 2006 3:04 PM"
	DateLayout      = "Jan 02, 2006"
)

// Reason is the stable machine code of a failed attempt.
type Reason string

const (
	ReasonNotFound         Reason = "not_found"
	ReasonAlreadyCheckedIn Reason = "already_checked_in"
	ReasonNotEligible      Reason = "not_eligible"
	ReasonMalformedPayload Reason = "malformed_payload"
	ReasonWrongType        Reason = "wrong_type"
	ReasonMissingCode      Reason = "missing_code"
	ReasonInvalidSignature Reason = "invalid_signature"
	ReasonExpiredPayload   Reason = "expired_payload"
	ReasonPersistenceError Reason = "persistence_error"
)

var humanMessages = map[Reason]string{
	ReasonNotFound:         "Registration not found.",
	ReasonAlreadyCheckedIn: "This attendee has already been checked in.",
	ReasonNotEligible:      "This registration is not eligible for check-in.",
	ReasonMalformedPayload: "Invalid QR code format.",
	ReasonWrongType:        "This QR code is not an event registration.",
	ReasonMissingCode:      "QR code does not contain a registration code.",
	ReasonInvalidSignature: "QR code could not be verified.",
	ReasonExpiredPayload:   "QR code has expired.",
	ReasonPersistenceError: "Check-in could not be saved. Please try again.",
}

var eligibilityMessages = map[regmodels.Ineligibility]string{
	regmodels.IneligibleNotConfirmed:      "Registration is not confirmed.",
	regmodels.IneligibleEventMissing:      "Event not found for this registration.",
	regmodels.IneligibleEventNotPublished: "Event is not open for check-in.",
	regmodels.IneligibleOutsideWindow:     "Check-in is not open yet for this event.",
}

// Message returns the user-facing text for r.
func (r Reason) Message() string {
	if msg, ok := humanMessages[r]; ok {
		return msg
	}
	return "Check-in failed."
}

// Success is the stable success shape consumed by reports and exports.
type Success struct {
	ID                 string `json:"id"`
	Code               string `json:"code"`
	HolderName         string `json:"holder_name"`
	HolderEmail        string `json:"holder_email"`
	EventTitle         string `json:"event_title"`
	EventDate          string `json:"event_date"`
	CheckedInAt        string `json:"checked_in_at"`
	CheckInMethodLabel string `json:"check_in_method_label"`
}

// Failure is the stable failure shape. Detail carries the eligibility
// sub-reason for logs and is not rendered to attendees.
type Failure struct {
	Code                     string `json:"code,omitempty"`
	ReasonCode               Reason `json:"reason_code"`
	HumanMessage             string `json:"human_message"`
	ExistingCheckInTimestamp string `json:"existing_check_in_timestamp,omitempty"`
	Detail                   string `json:"detail,omitempty"`
}

// Result is exactly one of Success or Failure.
type Result struct {
	Success *Success
	Failure *Failure
}

func (r Result) OK() bool {
	return r.Success != nil
}

// Reason returns the failure reason, or "" on success.
func (r Result) Reason() Reason {
	if r.Failure == nil {
		return ""
	}
	return r.Failure.ReasonCode
}

func NewSuccess(reg *regmodels.Registration, e *eventmodels.Event, c *CheckIn) Result {
	s := &Success{
		ID:                 reg.ID.String(),
		Code:               reg.Code,
		HolderName:         reg.HolderName,
		HolderEmail:        reg.HolderEmail,
		CheckedInAt:        FormatTimestamp(c.CheckedInAt),
		CheckInMethodLabel: c.Method.Label(),
	}
	if e != nil {
		s.EventTitle = e.Title
		s.EventDate = e.StartDate.Format(DateLayout)
	}
	return Result{Success: s}
}

func NewFailure(code string, reason Reason) Result {
	return Result{Failure: &Failure{
		Code:         code,
		ReasonCode:   reason,
		HumanMessage: reason.Message(),
	}}
}

// AlreadyCheckedIn carries the original timestamp so staff can see when the
// attendee arrived.
func AlreadyCheckedIn(code string, at time.Time) Result {
	res := NewFailure(code, ReasonAlreadyCheckedIn)
	res.Failure.ExistingCheckInTimestamp = FormatTimestamp(at)
	return res
}

func NotEligible(code string, why regmodels.Ineligibility) Result {
	res := NewFailure(code, ReasonNotEligible)
	if msg, ok := eligibilityMessages[why]; ok {
		res.Failure.HumanMessage = msg
	}
	res.Failure.Detail = string(why)
	return res
}

func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// BulkSummary counts each bucket of a bulk run.
type BulkSummary struct {
	Total            int `json:"total"`
	Successful       int `json:"successful"`
	Failed           int `json:"failed"`
	AlreadyCheckedIn int `json:"already_checked_in"`
}

// BulkResult groups per-code outcomes. Items are processed independently.
type BulkResult struct {
	Successful       []Success   `json:"successful"`
	Failed           []Failure   `json:"failed"`
	AlreadyCheckedIn []Failure   `json:"already_checked_in"`
	Summary          BulkSummary `json:"summary"`
}

func NewBulkResult() *BulkResult {
	return &BulkResult{
		Successful:       []Success{},
		Failed:           []Failure{},
		AlreadyCheckedIn: []Failure{},
	}
}

// Add files res under its bucket and updates the summary.
func (b *BulkResult) Add(res Result) {
	b.Summary.Total++
	switch {
	case res.Success != nil:
		b.Successful = append(b.Successful, *res.Success)
		b.Summary.Successful++
	case res.Reason() == ReasonAlreadyCheckedIn:
		b.AlreadyCheckedIn = append(b.AlreadyCheckedIn, *res.Failure)
		b.Summary.AlreadyCheckedIn++
	default:
		b.Failed = append(b.Failed, *res.Failure)
		b.Summary.Failed++
	}
}
