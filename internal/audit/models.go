package audit

import "time"

// Action names what happened. Values are stable; downstream consumers key on them.
type Action string

const (
	ActionCheckInCommitted Action = "checkin_committed"
	ActionCheckInRejected  Action = "checkin_rejected"
	ActionCheckInFailed    Action = "checkin_failed"
	ActionCheckInUndone    Action = "checkin_undone"

	ActionRegistrationCreated   Action = "registration_created"
	ActionRegistrationConfirmed Action = "registration_confirmed"
	ActionRegistrationCancelled Action = "registration_cancelled"
	ActionQRRegenerated         Action = "qr_regenerated"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Timestamp      time.Time `json:"timestamp"`
	Action         Action    `json:"action"`
	RegistrationID string    `json:"registration_id,omitempty"`
	EventID        string    `json:"event_id,omitempty"`
	Code           string    `json:"code,omitempty"`
	// ActorID is empty for attendee self check-in.
	ActorID string `json:"actor_id,omitempty"`
	Method  string `json:"method,omitempty"`
	Reason  string `json:"reason,omitempty"`
	// Detail carries the eligibility sub-reason or the storage error text.
	Detail string `json:"detail,omitempty"`

	RequestID string `json:"request_id,omitempty"`
	ClientIP  string `json:"client_ip,omitempty"`
	Device    string `json:"device,omitempty"`
}

// Key groups events of one registration on the same partition.
func (e Event) Key() string {
	if e.RegistrationID != "" {
		return e.RegistrationID
	}
	return e.EventID
}
