package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"eventdesk/internal/event/models"
	id "eventdesk/pkg/domain"
)

const eventKeyPrefix = "eventdesk:event:"

// Store is the persistence contract the cache fronts.
type Store interface {
	Save(ctx context.Context, e *models.Event) error
	FindByID(ctx context.Context, eventID id.EventID) (*models.Event, error)
}

// RedisCache is a read-through cache in front of a Store. Writes go to the
// backing store first and then drop the cached snapshot. Redis failures
// degrade to the backing store.
type RedisCache struct {
	client *redis.Client
	next   Store
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisCache(client *redis.Client, next Store, ttl time.Duration, logger *slog.Logger) *RedisCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{client: client, next: next, ttl: ttl, logger: logger}
}

type cachedEvent struct {
	ID                   string         `json:"id"`
	Title                string         `json:"title"`
	Location             string         `json:"location"`
	Status               string         `json:"status"`
	StartDate            time.Time      `json:"start_date"`
	EndDate              time.Time      `json:"end_date"`
	StartTime            *time.Duration `json:"start_time,omitempty"`
	EndTime              *time.Duration `json:"end_time,omitempty"`
	MaxCapacity          *int           `json:"max_capacity,omitempty"`
	RegistrationDeadline *time.Time     `json:"registration_deadline,omitempty"`
	ConfirmedCount       int            `json:"confirmed_count"`
	CreatedAt            time.Time      `json:"created_at"`
}

func eventKey(eventID id.EventID) string {
	return eventKeyPrefix + eventID.String()
}

func (c *RedisCache) Save(ctx context.Context, e *models.Event) error {
	if err := c.next.Save(ctx, e); err != nil {
		return err
	}
	c.Invalidate(ctx, e.ID)
	return nil
}

// Invalidate drops the cached snapshot, e.g. after registrations change the count.
func (c *RedisCache) Invalidate(ctx context.Context, eventID id.EventID) {
	if err := c.client.Del(ctx, eventKey(eventID)).Err(); err != nil {
		c.logger.WarnContext(ctx, "event cache invalidate failed",
			"event_id", eventID.String(),
			"error", err,
		)
	}
}

func (c *RedisCache) FindByID(ctx context.Context, eventID id.EventID) (*models.Event, error) {
	raw, err := c.client.Get(ctx, eventKey(eventID)).Bytes()
	switch {
	case err == nil:
		var cached cachedEvent
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
			return fromCached(eventID, &cached), nil
		}
	case !errors.Is(err, redis.Nil):
		c.logger.WarnContext(ctx, "event cache read failed",
			"event_id", eventID.String(),
			"error", err,
		)
	}

	e, err := c.next.FindByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, e)
	return e, nil
}

func (c *RedisCache) store(ctx context.Context, e *models.Event) {
	payload, err := json.Marshal(toCached(e))
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, eventKey(e.ID), payload, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "event cache write failed",
			"event_id", e.ID.String(),
			"error", err,
		)
	}
}

func toCached(e *models.Event) *cachedEvent {
	return &cachedEvent{
		ID:                   e.ID.String(),
		Title:                e.Title,
		Location:             e.Location,
		Status:               string(e.Status),
		StartDate:            e.StartDate,
		EndDate:              e.EndDate,
		StartTime:            e.StartTime,
		EndTime:              e.EndTime,
		MaxCapacity:          e.MaxCapacity,
		RegistrationDeadline: e.RegistrationDeadline,
		ConfirmedCount:       e.ConfirmedCount,
		CreatedAt:            e.CreatedAt,
	}
}

func fromCached(eventID id.EventID, c *cachedEvent) *models.Event {
	return &models.Event{
		ID:                   eventID,
		Title:                c.Title,
		Location:             c.Location,
		Status:               models.Status(c.Status),
		StartDate:            c.StartDate,
		EndDate:              c.EndDate,
		StartTime:            c.StartTime,
		EndTime:              c.EndTime,
		MaxCapacity:          c.MaxCapacity,
		RegistrationDeadline: c.RegistrationDeadline,
		ConfirmedCount:       c.ConfirmedCount,
		CreatedAt:            c.CreatedAt,
	}
}
