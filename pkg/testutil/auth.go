package testutil

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"eventdesk/internal/platform/middleware"
	id "eventdesk/pkg/domain"
)

// Tokens is a static JWT validator for handler tests, keyed by bearer token.
type Tokens map[string]*middleware.JWTClaims

func (t Tokens) ValidateToken(token string) (*middleware.JWTClaims, error) {
	if c, ok := t[token]; ok {
		return c, nil
	}
	return nil, errors.New("unknown token")
}

// Admin registers token for a fresh administrator.
func (t Tokens) Admin(token string) id.UserID {
	userID := id.UserID(uuid.New())
	t[token] = &middleware.JWTClaims{UserID: userID.String(), Role: "admin"}
	return userID
}

// Attendee registers token for a fresh attendee with a display profile.
func (t Tokens) Attendee(token, name, email string) id.UserID {
	userID := id.UserID(uuid.New())
	t[token] = &middleware.JWTClaims{UserID: userID.String(), Role: "attendee", Name: name, Email: email}
	return userID
}

// WithBearer sets the Authorization header when token is non-empty.
func WithBearer(req *http.Request, token string) *http.Request {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}
