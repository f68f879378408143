package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stays_observer/models"
)

type memRuns struct {
	mu   sync.Mutex
	runs []models.RefreshRun
	logs []models.RefreshLog
}

func (m *memRuns) CreateRun(run *models.RefreshRun) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, *run)
	return int64(len(m.runs)), nil
}

func (m *memRuns) UpdateRun(run *models.RefreshRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID-1] = *run
	return nil
}

func (m *memRuns) Log(runID *int64, level models.LogLevel, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, models.RefreshLog{RunID: runID, Level: level, Message: message})
	return nil
}

func TestRunLog_RecordsRunAndRoutesWorkerLogs(t *testing.T) {
	store := &memRuns{}
	rl := NewRunLog(store, nil)
	now := time.Date(2025, 10, 10, 9, 0, 0, 0, time.UTC)

	run := rl.Begin("scheduled", now)
	require.EqualValues(t, 1, run.ID)
	assert.Len(t, run.RunID, 36)

	rl.Func()(models.LogLevelWarn, "details", "fetch AA01: upstream 500")
	rl.Finish(run, now.Add(time.Minute), nil)
	rl.Write(models.LogLevelInfo, "after")

	require.Len(t, store.logs, 2)
	require.NotNil(t, store.logs[0].RunID)
	assert.EqualValues(t, 1, *store.logs[0].RunID)
	assert.Equal(t, "details: fetch AA01: upstream 500", store.logs[0].Message)
	assert.Nil(t, store.logs[1].RunID)

	assert.Equal(t, models.RunStatusCompleted, store.runs[0].Status)
	require.NotNil(t, store.runs[0].FinishedAt)
}

func TestRunLog_FailedRun(t *testing.T) {
	store := &memRuns{}
	rl := NewRunLog(store, nil)
	run := rl.Begin("manual", time.Now())
	rl.Finish(run, time.Now(), errors.New("stays API error 401"))

	assert.Equal(t, models.RunStatusFailed, store.runs[0].Status)
	assert.Equal(t, "stays API error 401", store.runs[0].Error)
	assert.Equal(t, 1, store.runs[0].ErrorsCount)
}

func TestRunLog_NilStore(t *testing.T) {
	rl := NewRunLog(nil, nil)
	run := rl.Begin("startup", time.Now())
	rl.Write(models.LogLevelInfo, "ignored")
	rl.Finish(run, time.Now(), nil)
	assert.Equal(t, models.RunStatusCompleted, run.Status)
}
