package storage

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a throwaway database only when TEST_DATABASE_URL is set.
func TestPostgresArchivePublish(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	store, err := NewPostgresStore(ctx, dsn)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.pool.Exec(ctx, `TRUNCATE archived_bookings, archived_listings`)
	require.NoError(t, err)

	snap := sampleSnapshot()
	require.NoError(t, store.Publish(ctx, snap))
	require.NoError(t, store.Publish(ctx, snap))

	n, err := store.CountArchivedBookings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
