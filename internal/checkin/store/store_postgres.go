package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"eventdesk/internal/checkin/models"
	eventmodels "eventdesk/internal/event/models"
	"eventdesk/internal/platform/postgres"
	regmodels "eventdesk/internal/registration/models"
	regstore "eventdesk/internal/registration/store"
	id "eventdesk/pkg/domain"
	"eventdesk/pkg/platform/sentinel"
	txcontext "eventdesk/pkg/platform/tx"
)

const constraintOnePerRegistration = "check_ins_registration_key"

const selectCheckIn = `
SELECT c.id, c.registration_id, c.checked_in_at, c.checked_in_by, c.check_in_method
FROM check_ins c`

// RegistrationLister serves admin lookups. The registration Postgres store
// satisfies it.
type RegistrationLister interface {
	ListByEvent(ctx context.Context, eventID id.EventID, scope regmodels.Scope) ([]*regmodels.Registration, error)
}

// PostgresStore relies on UNIQUE(registration_id) for at-most-once and locks
// the registration row while an attempt is in flight.
type PostgresStore struct {
	pool          *pgxpool.Pool
	events        EventReader
	registrations RegistrationLister
}

func NewPostgres(pool *pgxpool.Pool, events EventReader, registrations RegistrationLister) *PostgresStore {
	return &PostgresStore{pool: pool, events: events, registrations: registrations}
}

// FindRegistrationByCode takes a row lock when called inside a transaction.
func (s *PostgresStore) FindRegistrationByCode(ctx context.Context, code string) (*regmodels.Registration, error) {
	query := regstore.SelectRegistration + ` WHERE r.registration_code = $1`
	if _, inTx := txcontext.From(ctx); inTx {
		query += ` FOR UPDATE OF r`
	}
	return s.findRegistration(ctx, query, code)
}

func (s *PostgresStore) FindRegistrationByID(ctx context.Context, registrationID id.RegistrationID) (*regmodels.Registration, error) {
	return s.findRegistration(ctx, regstore.SelectRegistration+` WHERE r.id = $1`, registrationID.String())
}

func (s *PostgresStore) findRegistration(ctx context.Context, query, arg string) (*regmodels.Registration, error) {
	r, err := regstore.ScanRegistration(postgres.Conn(ctx, s.pool).QueryRow(ctx, query, arg))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("registration %s: %w", arg, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find registration: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) FindEvent(ctx context.Context, eventID id.EventID) (*eventmodels.Event, error) {
	return s.events.FindByID(ctx, eventID)
}

func (s *PostgresStore) FindByRegistration(ctx context.Context, registrationID id.RegistrationID) (*models.CheckIn, error) {
	c, err := scanCheckIn(postgres.Conn(ctx, s.pool).QueryRow(ctx,
		selectCheckIn+` WHERE c.registration_id = $1`, registrationID.String()))
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("check-in for registration %s: %w", registrationID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find check-in: %w", err)
	}
	return c, nil
}

// Create maps the unique violation on registration_id to ErrAlreadyUsed.
func (s *PostgresStore) Create(ctx context.Context, c *models.CheckIn) error {
	var by *string
	if c.CheckedInBy != nil {
		v := c.CheckedInBy.String()
		by = &v
	}
	_, err := postgres.Conn(ctx, s.pool).Exec(ctx, `
INSERT INTO check_ins (id, registration_id, checked_in_at, checked_in_by, check_in_method)
VALUES ($1, $2, $3, $4, $5)`,
		c.ID.String(), c.RegistrationID.String(), c.CheckedInAt, by, c.Method.String())
	if constraint, ok := postgres.UniqueViolation(err); ok && constraint == constraintOnePerRegistration {
		return fmt.Errorf("check-in for registration %s: %w", c.RegistrationID, sentinel.ErrAlreadyUsed)
	}
	if err != nil {
		return fmt.Errorf("insert check-in: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteByRegistration(ctx context.Context, registrationID id.RegistrationID) error {
	tag, err := postgres.Conn(ctx, s.pool).Exec(ctx,
		`DELETE FROM check_ins WHERE registration_id = $1`, registrationID.String())
	if err != nil {
		return fmt.Errorf("delete check-in: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("check-in for registration %s: %w", registrationID, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) ListByEvent(ctx context.Context, eventID id.EventID, filter models.Filter) ([]*models.CheckIn, error) {
	var b strings.Builder
	b.WriteString(selectCheckIn)
	b.WriteString(` JOIN registrations r ON r.id = c.registration_id WHERE r.event_id = $1`)
	args := []any{eventID.String()}
	if filter.Method != nil {
		args = append(args, filter.Method.String())
		b.WriteString(` AND c.check_in_method = $` + strconv.Itoa(len(args)))
	}
	if filter.Since != nil {
		args = append(args, *filter.Since)
		b.WriteString(` AND c.checked_in_at >= $` + strconv.Itoa(len(args)))
	}
	if filter.Until != nil {
		args = append(args, *filter.Until)
		b.WriteString(` AND c.checked_in_at <= $` + strconv.Itoa(len(args)))
	}
	b.WriteString(` ORDER BY c.checked_in_at`)

	rows, err := postgres.Conn(ctx, s.pool).Query(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list check-ins: %w", err)
	}
	defer rows.Close()

	out := make([]*models.CheckIn, 0)
	for rows.Next() {
		c, err := scanCheckIn(rows)
		if err != nil {
			return nil, fmt.Errorf("scan check-in: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list check-ins: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) SearchRegistrations(ctx context.Context, eventID id.EventID, scope regmodels.Scope) ([]*regmodels.Registration, error) {
	return s.registrations.ListByEvent(ctx, eventID, scope)
}

func (s *PostgresStore) Stats(ctx context.Context, eventID id.EventID) (*models.Stats, error) {
	conn := postgres.Conn(ctx, s.pool)
	stats := &models.Stats{ByMethod: make(map[string]int)}
	err := conn.QueryRow(ctx, `
SELECT COUNT(*),
	COUNT(*) FILTER (WHERE r.status = 'pending'),
	COUNT(*) FILTER (WHERE r.status = 'confirmed'),
	COUNT(*) FILTER (WHERE r.status = 'cancelled'),
	COUNT(c.id)
FROM registrations r
LEFT JOIN check_ins c ON c.registration_id = r.id
WHERE r.event_id = $1`, eventID.String()).
		Scan(&stats.Registered, &stats.Pending, &stats.Confirmed, &stats.Cancelled, &stats.CheckedIn)
	if err != nil {
		return nil, fmt.Errorf("count registrations: %w", err)
	}

	rows, err := conn.Query(ctx, `
SELECT c.check_in_method, COUNT(*)
FROM check_ins c
JOIN registrations r ON r.id = c.registration_id
WHERE r.event_id = $1
GROUP BY c.check_in_method`, eventID.String())
	if err != nil {
		return nil, fmt.Errorf("count check-ins by method: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			method string
			n      int
		)
		if err := rows.Scan(&method, &n); err != nil {
			return nil, fmt.Errorf("scan method count: %w", err)
		}
		stats.ByMethod[method] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count check-ins by method: %w", err)
	}
	return stats, nil
}

func scanCheckIn(row pgx.Row) (*models.CheckIn, error) {
	var (
		c                   models.CheckIn
		checkInID, regID    string
		checkedInBy, method *string
		at                  time.Time
	)
	if err := row.Scan(&checkInID, &regID, &at, &checkedInBy, &method); err != nil {
		return nil, err
	}
	var err error
	if c.ID, err = id.ParseCheckInID(checkInID); err != nil {
		return nil, err
	}
	if c.RegistrationID, err = id.ParseRegistrationID(regID); err != nil {
		return nil, err
	}
	if checkedInBy != nil {
		by, err := id.ParseUserID(*checkedInBy)
		if err != nil {
			return nil, err
		}
		c.CheckedInBy = &by
	}
	if method != nil {
		// Unknown values scan as the zero method and render as "Unknown".
		c.Method, _ = models.ParseMethod(*method)
	}
	c.CheckedInAt = at
	return &c, nil
}
