// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	eventmodels "eventdesk/internal/event/models"
	platformstrings "eventdesk/pkg/platform/strings"
)

const devSigningKey = "dev-secret-key-change-in-production"

// Server captures everything main needs to wire the process.
type Server struct {
	Addr     string `envconfig:"ADDR" default:":8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// DatabaseURL selects Postgres; empty runs on in-memory stores.
	DatabaseURL      string `envconfig:"DATABASE_URL"`
	DatabaseMaxConns int32  `envconfig:"DATABASE_MAX_CONNS" default:"10"`

	RedisConfig

	// KafkaBrokers is a comma separated seed list; empty keeps audit in memory.
	KafkaBrokers    string `envconfig:"KAFKA_BROKERS"`
	KafkaAuditTopic string `envconfig:"KAFKA_AUDIT_TOPIC" default:"eventdesk.audit"`

	JWTSigningKey string `envconfig:"JWT_SIGNING_KEY" default:"dev-secret-key-change-in-production"`
	JWTIssuer     string `envconfig:"JWT_ISSUER" default:"eventdesk"`
	JWTAudience   string `envconfig:"JWT_AUDIENCE" default:"eventdesk-api"`
	Environment   string `envconfig:"ENVIRONMENT" default:"development"`

	AppKey            string `envconfig:"APP_KEY" required:"true"`
	QRHashSalt        string `envconfig:"QR_HASH_SALT" default:"eventdesk-qr"`
	QRVerifySignature bool   `envconfig:"QR_VERIFY_SIGNATURE" default:"true"`
	// QRPayloadTTL bounds how long an issued QR payload stays scannable.
	QRPayloadTTL time.Duration `envconfig:"QR_PAYLOAD_TTL" default:"43800h"`

	EarlyCheckInWindow    time.Duration `envconfig:"EARLY_CHECKIN_WINDOW" default:"2h"`
	EarlyCheckInGraceDays int           `envconfig:"EARLY_CHECKIN_GRACE_DAYS" default:"0"`
	MaxBulkCodes          int           `envconfig:"MAX_BULK_CODES" default:"500"`

	RegistrationAutoConfirm bool          `envconfig:"REGISTRATION_AUTO_CONFIRM" default:"false"`
	TxTimeout               time.Duration `envconfig:"TX_TIMEOUT" default:"5s"`
	RequestTimeout          time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`
	ShutdownTimeout         time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// RedisConfig backs the event snapshot cache. An empty URL disables it.
type RedisConfig struct {
	URL          string        `envconfig:"REDIS_URL"`
	PoolSize     int           `envconfig:"REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"REDIS_WRITE_TIMEOUT" default:"3s"`
	EventTTL     time.Duration `envconfig:"EVENT_CACHE_TTL" default:"30s"`
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	var cfg Server
	if err := envconfig.Process("", &cfg); err != nil {
		return Server{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func (c Server) Validate() error {
	var errs []error
	if c.AppKey == "" {
		errs = append(errs, errors.New("APP_KEY must be set"))
	}
	if c.EarlyCheckInWindow < 0 {
		errs = append(errs, errors.New("EARLY_CHECKIN_WINDOW must not be negative"))
	}
	if c.EarlyCheckInGraceDays < 0 {
		errs = append(errs, errors.New("EARLY_CHECKIN_GRACE_DAYS must not be negative"))
	}
	if c.MaxBulkCodes <= 0 {
		errs = append(errs, errors.New("MAX_BULK_CODES must be positive"))
	}
	if c.IsProduction() && c.JWTSigningKey == devSigningKey {
		errs = append(errs, errors.New("JWT_SIGNING_KEY must be set in production"))
	}
	return errors.Join(errs...)
}

func (c Server) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Brokers splits KafkaBrokers, dropping blanks and duplicates.
func (c Server) Brokers() []string {
	if c.KafkaBrokers == "" {
		return nil
	}
	return platformstrings.SplitList(c.KafkaBrokers, ",")
}

// CheckInRules is the eligibility window configured for this deployment.
func (c Server) CheckInRules() eventmodels.Rules {
	return eventmodels.Rules{
		EarlyWindow: c.EarlyCheckInWindow,
		GraceDays:   c.EarlyCheckInGraceDays,
	}
}
