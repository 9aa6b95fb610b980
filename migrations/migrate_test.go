//go:build integration

package migrations_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"eventdesk/migrations"
	"eventdesk/pkg/testutil/containers"
)

func TestApplyIsIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	pg := containers.GetManager().GetPostgres(t)
	ctx := context.Background()

	var before int
	require.NoError(t, pg.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&before))
	require.GreaterOrEqual(t, before, 1)

	require.NoError(t, migrations.Apply(ctx, pg.Pool))

	var after int
	require.NoError(t, pg.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&after))
	require.Equal(t, before, after)

	var exists bool
	require.NoError(t, pg.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'check_ins_registration_key')`).Scan(&exists))
	require.True(t, exists, "check-ins must be unique per registration")
}
