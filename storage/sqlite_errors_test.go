package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStorePropagatesQueryErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	store := &SQLiteStore{db: db}

	mock.ExpectQuery("SELECT id, command, params, created_at, processed_at").
		WillReturnError(errors.New("database is locked"))
	_, err = store.GetPendingCommands()
	assert.EqualError(t, err, "database is locked")

	mock.ExpectQuery("SELECT value FROM kv").WithArgs(testKey).
		WillReturnError(errors.New("disk I/O error"))
	_, found, err := store.Get(context.Background(), testKey)
	assert.Error(t, err)
	assert.False(t, found)

	mock.ExpectExec("DELETE FROM refresh_logs").WillReturnError(errors.New("readonly"))
	err = store.ResetAllData()
	assert.EqualError(t, err, "clear refresh_logs: readonly")

	assert.NoError(t, mock.ExpectationsWereMet())
}
