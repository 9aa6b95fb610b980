package models

import (
	"net/mail"
	"strings"
	"time"

	id "eventdesk/pkg/domain"
	dErrors "eventdesk/pkg/domain-errors"
)

// RegisterRequest is assembled by the handler from the path and the
// authenticated caller's claims.
type RegisterRequest struct {
	EventID     id.EventID
	UserID      id.UserID
	HolderName  string
	HolderEmail string
}

func (r *RegisterRequest) Normalize() {
	r.HolderName = strings.TrimSpace(r.HolderName)
	r.HolderEmail = strings.ToLower(strings.TrimSpace(r.HolderEmail))
}

func (r *RegisterRequest) Validate() error {
	if r.EventID.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "event id is required")
	}
	if r.UserID.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "authenticated user is required")
	}
	if r.HolderName == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "holder name is required")
	}
	if _, err := mail.ParseAddress(r.HolderEmail); err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "holder email is invalid")
	}
	return nil
}

// RegistrationResponse is the public view of a registration.
type RegistrationResponse struct {
	ID           string     `json:"id"`
	EventID      string     `json:"event_id"`
	Code         string     `json:"code"`
	Status       Status     `json:"status"`
	RegisteredAt time.Time  `json:"registered_at"`
	HolderName   string     `json:"holder_name"`
	HolderEmail  string     `json:"holder_email"`
	CheckedInAt  *time.Time `json:"checked_in_at"`
	QRCodeData   string     `json:"qr_code_data,omitempty"`
}

func ToResponse(r *Registration) *RegistrationResponse {
	return &RegistrationResponse{
		ID:           r.ID.String(),
		EventID:      r.EventID.String(),
		Code:         r.Code,
		Status:       r.Status,
		RegisteredAt: r.RegisteredAt,
		HolderName:   r.HolderName,
		HolderEmail:  r.HolderEmail,
		CheckedInAt:  r.CheckedInAt,
		QRCodeData:   r.QRCodeData,
	}
}
