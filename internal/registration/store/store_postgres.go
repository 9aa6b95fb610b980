package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"eventdesk/internal/platform/postgres"
	"eventdesk/internal/registration/models"
	id "eventdesk/pkg/domain"
	"eventdesk/pkg/platform/sentinel"
)

const (
	constraintCode     = "registrations_code_key"
	constraintAttendee = "registrations_event_user_key"
)

// SelectRegistration joins holder identity and check-in time. Callers append
// WHERE and locking clauses.
const SelectRegistration = `
SELECT r.id, r.event_id, r.user_id, r.registration_code, r.qr_code_data, r.status,
	r.registration_date, u.name, u.email, c.checked_in_at
FROM registrations r
JOIN users u ON u.id = r.user_id
LEFT JOIN check_ins c ON c.registration_id = r.id`

// ScanRegistration reads one row selected with SelectRegistration.
func ScanRegistration(row pgx.Row) (*models.Registration, error) {
	var (
		r                      models.Registration
		regID, eventID, userID string
		status                 string
		checkedInAt            *time.Time
	)
	if err := row.Scan(&regID, &eventID, &userID, &r.Code, &r.QRCodeData, &status,
		&r.RegisteredAt, &r.HolderName, &r.HolderEmail, &checkedInAt); err != nil {
		return nil, err
	}
	var err error
	if r.ID, err = id.ParseRegistrationID(regID); err != nil {
		return nil, err
	}
	if r.EventID, err = id.ParseEventID(eventID); err != nil {
		return nil, err
	}
	if r.UserID, err = id.ParseUserID(userID); err != nil {
		return nil, err
	}
	r.Code = strings.TrimSpace(r.Code)
	r.Status = models.Status(status)
	r.CheckedInAt = checkedInAt
	return &r, nil
}

// PostgresStore persists registrations and the holder's user row.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, r *models.Registration) error {
	return postgres.WithTx(ctx, s.pool, func(ctx context.Context) error {
		conn := postgres.Conn(ctx, s.pool)
		if _, err := conn.Exec(ctx, `
INSERT INTO users (id, name, email) VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email`,
			r.UserID.String(), r.HolderName, r.HolderEmail); err != nil {
			return fmt.Errorf("upsert user: %w", err)
		}

		_, err := conn.Exec(ctx, `
INSERT INTO registrations (id, event_id, user_id, registration_code, qr_code_data, status, registration_date)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			r.ID.String(), r.EventID.String(), r.UserID.String(), r.Code, r.QRCodeData, string(r.Status), r.RegisteredAt)
		if constraint, ok := postgres.UniqueViolation(err); ok {
			switch constraint {
			case constraintCode:
				return fmt.Errorf("registration code %s: %w", r.Code, sentinel.ErrConflict)
			case constraintAttendee:
				return fmt.Errorf("attendee already registered: %w", sentinel.ErrAlreadyUsed)
			}
		}
		if err != nil {
			return fmt.Errorf("insert registration: %w", err)
		}
		return nil
	})
}

// Modify locks the row, re-reads its check-in with a fresh snapshot, runs fn
// and writes back status and QR payload.
func (s *PostgresStore) Modify(ctx context.Context, registrationID id.RegistrationID, fn func(*models.Registration) error) (*models.Registration, error) {
	var out *models.Registration
	err := postgres.WithTx(ctx, s.pool, func(ctx context.Context) error {
		r, err := s.findOne(ctx, SelectRegistration+` WHERE r.id = $1 FOR UPDATE OF r`, registrationID.String())
		if err != nil {
			return err
		}
		// The locking read may have waited on a check-in; its join saw the
		// older snapshot.
		r.CheckedInAt = nil
		err = postgres.Conn(ctx, s.pool).QueryRow(ctx,
			`SELECT checked_in_at FROM check_ins WHERE registration_id = $1`,
			registrationID.String()).Scan(&r.CheckedInAt)
		if err != nil && !postgres.IsNoRows(err) {
			return fmt.Errorf("read check-in: %w", err)
		}

		if err := fn(r); err != nil {
			return err
		}
		_, err = postgres.Conn(ctx, s.pool).Exec(ctx,
			`UPDATE registrations SET status = $2, qr_code_data = $3 WHERE id = $1`,
			registrationID.String(), string(r.Status), r.QRCodeData)
		if err != nil {
			return fmt.Errorf("update registration: %w", err)
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := postgres.Conn(ctx, s.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM registrations WHERE registration_code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check registration code: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, registrationID id.RegistrationID) (*models.Registration, error) {
	return s.findOne(ctx, SelectRegistration+` WHERE r.id = $1`, registrationID.String())
}

func (s *PostgresStore) FindByCode(ctx context.Context, code string) (*models.Registration, error) {
	return s.findOne(ctx, SelectRegistration+` WHERE r.registration_code = $1`, code)
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg string) (*models.Registration, error) {
	r, err := ScanRegistration(postgres.Conn(ctx, s.pool).QueryRow(ctx, query, arg))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("registration %s: %w", arg, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find registration: %w", err)
	}
	return r, nil
}

// ListByEvent pushes the scope into SQL.
func (s *PostgresStore) ListByEvent(ctx context.Context, eventID id.EventID, scope models.Scope) ([]*models.Registration, error) {
	query, args := scopeQuery(eventID, scope)
	rows, err := postgres.Conn(ctx, s.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Registration, 0)
	for rows.Next() {
		r, err := ScanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return out, nil
}

func scopeQuery(eventID id.EventID, scope models.Scope) (string, []any) {
	var b strings.Builder
	b.WriteString(SelectRegistration)
	b.WriteString(` WHERE r.event_id = $1`)
	args := []any{eventID.String()}

	if scope.Status != nil {
		args = append(args, string(*scope.Status))
		b.WriteString(` AND r.status = $` + strconv.Itoa(len(args)))
	}
	if scope.CheckedIn != nil {
		if *scope.CheckedIn {
			b.WriteString(` AND c.id IS NOT NULL`)
		} else {
			b.WriteString(` AND c.id IS NULL`)
		}
	}
	if q := strings.TrimSpace(scope.Query); q != "" {
		args = append(args, models.NormalizeCode(q), strings.ToLower(q))
		n := len(args)
		b.WriteString(fmt.Sprintf(` AND (r.registration_code = $%d OR lower(u.email) = $%d)`, n-1, n))
	}
	b.WriteString(` ORDER BY r.registration_date, r.registration_code`)
	if scope.Limit > 0 {
		args = append(args, scope.Limit)
		b.WriteString(` LIMIT $` + strconv.Itoa(len(args)))
	}
	return b.String(), args
}

func (s *PostgresStore) CountConfirmed(ctx context.Context, eventID id.EventID) (int, error) {
	var n int
	err := postgres.Conn(ctx, s.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status = 'confirmed'`,
		eventID.String()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count confirmed registrations: %w", err)
	}
	return n, nil
}
