package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenSQLiteMemoryIsIdempotent(t *testing.T) {
	ctx := context.Background()
	h, err := Open(ctx, DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })

	require.NoError(t, EnsureSchema(ctx, h, DriverSQLite))

	for _, table := range []string{"users", "tests", "questions", "event_log"} {
		var n int
		require.NoError(t, h.QueryRowContext(ctx, `SELECT count(*) FROM `+table).Scan(&n), table)
		require.Zero(t, n, table)
	}
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), Driver("oracle"), "")
	require.ErrorContains(t, err, "unsupported driver")
}
