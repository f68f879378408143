package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stays_observer/models"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "observer.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteKV(t *testing.T) {
	store := newTestSQLite(t)
	ctx := context.Background()

	_, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Put(ctx, "k", []byte(`{"a":1}`)))
	require.NoError(t, store.Put(ctx, "k", []byte(`{"a":2}`)))
	val, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"a":2}`, string(val))

	require.NoError(t, store.Delete(ctx, "k"))
	_, found, _ = store.Get(ctx, "k")
	assert.False(t, found)
	assert.NoError(t, store.Ping(ctx))
}

func TestSQLiteRunsAndLogs(t *testing.T) {
	store := newTestSQLite(t)

	run := &models.RefreshRun{RunID: "r-1", Trigger: "periodic", StartedAt: time.Now(), Status: models.RunStatusRunning}
	id, err := store.CreateRun(run)
	require.NoError(t, err)
	run.ID = id

	require.NoError(t, store.Log(&id, models.LogLevelInfo, "fetched 12 bookings"))
	require.NoError(t, store.Log(&id, models.LogLevelWarn, "details STA-1 failed"))

	finished := time.Now()
	run.FinishedAt = &finished
	run.Status = models.RunStatusCompleted
	run.BookingsFetched = 12
	run.BookingsEnriched = 11
	run.ErrorsCount = 1
	require.NoError(t, store.UpdateRun(run))

	runs, err := store.GetRecentRuns(5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "r-1", runs[0].RunID)
	assert.Equal(t, "periodic", runs[0].Trigger)
	assert.Equal(t, models.RunStatusCompleted, runs[0].Status)
	assert.Equal(t, 11, runs[0].BookingsEnriched)
	assert.NotNil(t, runs[0].FinishedAt)

	logs, err := store.GetRunLogs(id)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, models.LogLevelWarn, logs[1].Level)
	assert.Equal(t, id, *logs[0].RunID)
}

func TestSQLiteCommands(t *testing.T) {
	store := newTestSQLite(t)

	_, err := store.EnqueueCommand(models.CmdPause, nil)
	require.NoError(t, err)
	_, err = store.EnqueueCommand(models.CmdRefreshNow, &models.CommandParams{Force: true, Reason: "kiosk"})
	require.NoError(t, err)

	cmds, err := store.GetPendingCommands()
	require.NoError(t, err)
	require.Len(t, cmds, 2)
	assert.Equal(t, models.CmdPause, cmds[0].Command)

	params, err := ParseCommandParams(&cmds[0])
	require.NoError(t, err)
	assert.False(t, params.Force)

	params, err = ParseCommandParams(&cmds[1])
	require.NoError(t, err)
	assert.True(t, params.Force)
	assert.Equal(t, "kiosk", params.Reason)

	require.NoError(t, store.MarkCommandProcessed(cmds[0].ID))
	cmds, err = store.GetPendingCommands()
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	assert.Equal(t, models.CmdRefreshNow, cmds[0].Command)

	require.NoError(t, store.ResetAllData())
	cmds, err = store.GetPendingCommands()
	require.NoError(t, err)
	assert.Empty(t, cmds)
}
