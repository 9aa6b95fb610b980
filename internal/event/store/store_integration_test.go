//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"eventdesk/internal/event/models"
	"eventdesk/internal/event/store"
	id "eventdesk/pkg/domain"
	"eventdesk/pkg/platform/sentinel"
	"eventdesk/pkg/testutil/containers"
)

type EventStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	redis    *containers.RedisContainer
	pg       *store.PostgresStore
	cache    *store.RedisCache
}

func TestEventStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(EventStoreSuite))
}

func (s *EventStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.redis = mgr.GetRedis(s.T())
	s.pg = store.NewPostgres(s.postgres.Pool)
	s.cache = store.NewRedisCache(s.redis.Client, s.pg, time.Minute, nil)
}

func (s *EventStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "check_ins", "registrations", "events"))
	s.Require().NoError(s.redis.FlushAll(ctx))
}

func newEvent() *models.Event {
	startTime := 18 * time.Hour
	capacity := 50
	return &models.Event{
		ID:          id.NewEventID(),
		Title:       "Go Meetup",
		Location:    "Hall A",
		Status:      models.StatusPublished,
		StartDate:   time.Date(2026, 11, 20, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2026, 11, 21, 0, 0, 0, 0, time.UTC),
		StartTime:   &startTime,
		MaxCapacity: &capacity,
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
}

func (s *EventStoreSuite) TestPostgresRoundTrip() {
	ctx := context.Background()
	e := newEvent()
	s.Require().NoError(s.pg.Save(ctx, e))

	found, err := s.pg.FindByID(ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(e.Title, found.Title)
	s.Equal(e.StartDateTime(), found.StartDateTime())
	s.Nil(found.EndTime)
	s.Require().NotNil(found.MaxCapacity)
	s.Equal(50, *found.MaxCapacity)
	s.Equal(0, found.ConfirmedCount)
}

func (s *EventStoreSuite) TestPostgresMissing() {
	_, err := s.pg.FindByID(context.Background(), id.NewEventID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *EventStoreSuite) TestCacheServesSnapshotUntilInvalidated() {
	ctx := context.Background()
	e := newEvent()
	s.Require().NoError(s.cache.Save(ctx, e))

	first, err := s.cache.FindByID(ctx, e.ID)
	s.Require().NoError(err)
	s.Equal("Go Meetup", first.Title)

	// Write behind the cache's back; the snapshot is still served.
	e.Title = "Renamed"
	s.Require().NoError(s.pg.Save(ctx, e))
	cached, err := s.cache.FindByID(ctx, e.ID)
	s.Require().NoError(err)
	s.Equal("Go Meetup", cached.Title)

	s.cache.Invalidate(ctx, e.ID)
	fresh, err := s.cache.FindByID(ctx, e.ID)
	s.Require().NoError(err)
	s.Equal("Renamed", fresh.Title)
}
