package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain outcomes:
//   - ErrNotFound: row does not exist
//   - ErrConflict: a unique key other than the guarded one collided (e.g. registration code)
//   - ErrAlreadyUsed: the guarded one-per-owner row already exists (e.g. check-in per registration)
//   - ErrInvalidState: row is in the wrong state for the requested mutation
//   - ErrUnavailable: backing service is temporarily unavailable
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
