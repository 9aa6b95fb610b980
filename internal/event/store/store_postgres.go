package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"eventdesk/internal/event/models"
	"eventdesk/internal/platform/postgres"
	id "eventdesk/pkg/domain"
	"eventdesk/pkg/platform/sentinel"
)

// PostgresStore persists events. ConfirmedCount is derived on read.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Save(ctx context.Context, e *models.Event) error {
	const query = `
INSERT INTO events (id, title, location, status, start_date, end_date, start_time, end_time,
	max_capacity, registration_deadline, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO UPDATE SET
	title = EXCLUDED.title,
	location = EXCLUDED.location,
	status = EXCLUDED.status,
	start_date = EXCLUDED.start_date,
	end_date = EXCLUDED.end_date,
	start_time = EXCLUDED.start_time,
	end_time = EXCLUDED.end_time,
	max_capacity = EXCLUDED.max_capacity,
	registration_deadline = EXCLUDED.registration_deadline`

	var endDate *time.Time
	if !e.EndDate.IsZero() {
		endDate = &e.EndDate
	}
	_, err := postgres.Conn(ctx, s.pool).Exec(ctx, query,
		e.ID.String(), e.Title, e.Location, string(e.Status),
		e.StartDate, endDate, toInterval(e.StartTime), toInterval(e.EndTime),
		e.MaxCapacity, e.RegistrationDeadline, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save event: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, eventID id.EventID) (*models.Event, error) {
	const query = `
SELECT e.id, e.title, e.location, e.status, e.start_date, e.end_date, e.start_time, e.end_time,
	e.max_capacity, e.registration_deadline, e.created_at,
	(SELECT COUNT(*) FROM registrations r WHERE r.event_id = e.id AND r.status = 'confirmed')
FROM events e
WHERE e.id = $1`

	var (
		e                  models.Event
		rawID, status      string
		endDate            *time.Time
		startTime, endTime pgtype.Interval
	)
	err := postgres.Conn(ctx, s.pool).QueryRow(ctx, query, eventID.String()).Scan(
		&rawID, &e.Title, &e.Location, &status, &e.StartDate, &endDate, &startTime, &endTime,
		&e.MaxCapacity, &e.RegistrationDeadline, &e.CreatedAt, &e.ConfirmedCount,
	)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("event %s: %w", eventID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find event: %w", err)
	}
	e.ID = eventID
	e.Status = models.Status(status)
	if endDate != nil {
		e.EndDate = *endDate
	}
	e.StartTime = fromInterval(startTime)
	e.EndTime = fromInterval(endTime)
	return &e, nil
}

func toInterval(d *time.Duration) pgtype.Interval {
	if d == nil {
		return pgtype.Interval{}
	}
	return pgtype.Interval{Microseconds: d.Microseconds(), Valid: true}
}

func fromInterval(iv pgtype.Interval) *time.Duration {
	if !iv.Valid {
		return nil
	}
	d := time.Duration(iv.Microseconds)*time.Microsecond + time.Duration(iv.Days)*24*time.Hour
	return &d
}
