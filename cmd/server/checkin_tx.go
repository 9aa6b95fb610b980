package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	checkinservice "eventdesk/internal/checkin/service"
	"eventdesk/internal/platform/postgres"
	dErrors "eventdesk/pkg/domain-errors"
)

// checkInPostgresTx runs each attempt in one database transaction. The store
// picks the transaction up from the context.
type checkInPostgresTx struct {
	pool    *pgxpool.Pool
	store   checkinservice.Store
	timeout time.Duration
}

func newCheckInPostgresTx(pool *pgxpool.Pool, store checkinservice.Store, timeout time.Duration) *checkInPostgresTx {
	return &checkInPostgresTx{pool: pool, store: store, timeout: timeout}
}

func (t *checkInPostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context, store checkinservice.Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = checkinservice.DefaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	return postgres.WithTx(ctx, t.pool, func(ctx context.Context) error {
		return fn(ctx, t.store)
	})
}
