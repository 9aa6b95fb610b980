// Package qrcode builds and validates the signed JSON payload embedded in
// registration QR codes.
//
// The payload schema is a wire contract with previously issued codes:
//
//	{
//	  "type": "event_registration",
//	  "version": "1.0",
//	  "registration_id": "...",
//	  "registration_code": "K7Q2ZP9A",
//	  "event_id": "...",
//	  "user_id": "...",
//	  "security_hash": "<hex sha256>",
//	  "issued_at": 1763654400,
//	  "expires_at": 1921420800
//	}
package qrcode

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"eventdesk/internal/registration/models"
	id "eventdesk/pkg/domain"
	"eventdesk/pkg/platform/clock"
)

const (
	PayloadType    = "event_registration"
	PayloadVersion = "1.0"

	// DefaultTTL is how long an issued payload stays valid.
	DefaultTTL = 5 * 365 * 24 * time.Hour

	hashDelimiter = "|"
)

var (
	ErrMalformedPayload  = errors.New("qr payload is not valid JSON")
	ErrWrongType         = errors.New("qr payload is not a registration check-in code")
	ErrMissingCode       = errors.New("qr payload has no registration code")
	ErrSignatureMismatch = errors.New("qr payload security hash does not match registration")
	ErrPayloadExpired    = errors.New("qr payload has expired")
)

// Payload is the decoded QR content.
type Payload struct {
	Type             string `json:"type"`
	Version          string `json:"version"`
	RegistrationID   string `json:"registration_id"`
	RegistrationCode string `json:"registration_code"`
	EventID          string `json:"event_id"`
	UserID           string `json:"user_id"`
	SecurityHash     string `json:"security_hash"`
	IssuedAt         int64  `json:"issued_at"`
	ExpiresAt        int64  `json:"expires_at"`
}

// Codec signs payloads with a deployment secret and a fixed salt.
type Codec struct {
	secret string
	salt   string
	ttl    time.Duration
	clock  clock.Clock
}

type Option func(*Codec)

func WithTTL(ttl time.Duration) Option {
	return func(c *Codec) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithClock(clk clock.Clock) Option {
	return func(c *Codec) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// New builds a codec. The secret must be the application key shared by every
// instance that scans codes; changing it invalidates issued payloads.
func New(secret, salt string, opts ...Option) *Codec {
	c := &Codec{
		secret: secret,
		salt:   salt,
		ttl:    DefaultTTL,
		clock:  clock.NewSystem(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Build encodes a fresh payload for reg. The hash is always recomputed.
func (c *Codec) Build(reg *models.Registration) (string, error) {
	issued := c.clock.Now()
	p := Payload{
		Type:             PayloadType,
		Version:          PayloadVersion,
		RegistrationID:   reg.ID.String(),
		RegistrationCode: reg.Code,
		EventID:          reg.EventID.String(),
		UserID:           reg.UserID.String(),
		SecurityHash:     c.SecurityHash(reg),
		IssuedAt:         issued.Unix(),
		ExpiresAt:        issued.Add(c.ttl).Unix(),
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// SecurityHash binds a payload to this registration and this deployment.
func (c *Codec) SecurityHash(reg *models.Registration) string {
	parts := []string{
		reg.ID.String(),
		reg.Code,
		reg.EventID.String(),
		reg.UserID.String(),
		strconv.FormatInt(reg.RegisteredAt.Unix(), 10),
		c.salt,
		c.secret,
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, hashDelimiter)))
	return hex.EncodeToString(sum[:])
}

// Parse decodes raw and checks the discriminator and code. It does not
// consult the secret; call Verify once the registration is loaded.
func (c *Codec) Parse(raw string) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &p); err != nil {
		return nil, ErrMalformedPayload
	}
	if p.Type != PayloadType {
		return nil, ErrWrongType
	}
	p.RegistrationCode = models.NormalizeCode(p.RegistrationCode)
	if p.RegistrationCode == "" {
		return nil, ErrMissingCode
	}
	return &p, nil
}

// Verify recomputes the hash from the stored registration and checks expiry.
func (c *Codec) Verify(p *Payload, reg *models.Registration) error {
	if p.ExpiresAt > 0 && c.clock.Now().Unix() > p.ExpiresAt {
		return ErrPayloadExpired
	}
	if !sameID(p.RegistrationID, uuid.UUID(reg.ID)) {
		return ErrSignatureMismatch
	}
	want := c.SecurityHash(reg)
	if subtle.ConstantTimeCompare([]byte(want), []byte(strings.ToLower(p.SecurityHash))) != 1 {
		return ErrSignatureMismatch
	}
	return nil
}

func sameID(raw string, want uuid.UUID) bool {
	got, err := id.ParseRegistrationID(raw)
	return err == nil && uuid.UUID(got) == want
}
