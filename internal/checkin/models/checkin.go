package models

import (
	"encoding/json"
	"time"

	id "eventdesk/pkg/domain"
	dErrors "eventdesk/pkg/domain-errors"
)

// Method is how an attendee was checked in. The zero value is not a valid
// method; use ParseMethod at boundaries.
type Method uint8

const (
	methodUnset Method = iota
	MethodQR
	MethodManual
	MethodID
)

var methodNames = map[Method]string{
	MethodQR:     "qr",
	MethodManual: "manual",
	MethodID:     "id",
}

func ParseMethod(s string) (Method, error) {
	for m, name := range methodNames {
		if name == s {
			return m, nil
		}
	}
	return methodUnset, dErrors.New(dErrors.CodeInvalidInput, "invalid check-in method: "+s)
}

func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return "unknown"
}

func (m Method) Valid() bool {
	_, ok := methodNames[m]
	return ok
}

// Label is the display name used in check-in results and exports.
func (m Method) Label() string {
	switch m {
	case MethodQR:
		return "QR Code"
	case MethodManual:
		return "Manual"
	case MethodID:
		return "ID Verification"
	default:
		return "Unknown"
	}
}

func (m Method) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Method) UnmarshalText(b []byte) error {
	parsed, err := ParseMethod(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

var _ json.Marshaler = (*CheckIn)(nil)

// CheckIn records a single successful check-in. One per registration.
type CheckIn struct {
	ID             id.CheckInID
	RegistrationID id.RegistrationID
	CheckedInAt    time.Time
	// CheckedInBy is nil for self/QR check-ins.
	CheckedInBy *id.UserID
	Method      Method
}

func (c *CheckIn) MarshalJSON() ([]byte, error) {
	type view struct {
		ID             string    `json:"id"`
		RegistrationID string    `json:"registration_id"`
		CheckedInAt    time.Time `json:"checked_in_at"`
		CheckedInBy    *string   `json:"checked_in_by"`
		Method         Method    `json:"check_in_method"`
		MethodLabel    string    `json:"check_in_method_label"`
	}
	v := view{
		ID:             c.ID.String(),
		RegistrationID: c.RegistrationID.String(),
		CheckedInAt:    c.CheckedInAt,
		Method:         c.Method,
		MethodLabel:    c.Method.Label(),
	}
	if c.CheckedInBy != nil {
		by := c.CheckedInBy.String()
		v.CheckedInBy = &by
	}
	return json.Marshal(v)
}

// Filter narrows check-in listings for reports.
type Filter struct {
	Method *Method
	Since  *time.Time
	Until  *time.Time
}

func (f Filter) Matches(c *CheckIn) bool {
	if f.Method != nil && c.Method != *f.Method {
		return false
	}
	if f.Since != nil && c.CheckedInAt.Before(*f.Since) {
		return false
	}
	if f.Until != nil && c.CheckedInAt.After(*f.Until) {
		return false
	}
	return true
}

// Stats is the per-event check-in summary.
type Stats struct {
	Registered int            `json:"registered"`
	Pending    int            `json:"pending"`
	Confirmed  int            `json:"confirmed"`
	Cancelled  int            `json:"cancelled"`
	CheckedIn  int            `json:"checked_in"`
	ByMethod   map[string]int `json:"by_method"`
}

// AttendanceRate is checked-in over confirmed, 0 when nobody confirmed.
func (s Stats) AttendanceRate() float64 {
	if s.Confirmed == 0 {
		return 0
	}
	return float64(s.CheckedIn) / float64(s.Confirmed)
}
