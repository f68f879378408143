package services

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"stays_observer/models"
	"stays_observer/workers"
)

type RunStore interface {
	CreateRun(run *models.RefreshRun) (int64, error)
	UpdateRun(run *models.RefreshRun) error
	Log(runID *int64, level models.LogLevel, message string) error
}

// RunLog records refresh runs and routes worker log lines to the run in
// progress. A nil store disables persistence.
type RunLog struct {
	store   RunStore
	current atomic.Int64
	log     *zap.SugaredLogger
}

func NewRunLog(store RunStore, logger *zap.SugaredLogger) *RunLog {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &RunLog{store: store, log: logger}
}

// Func adapts the run log for the detail and listing workers.
func (r *RunLog) Func() workers.LogFunc {
	return func(level models.LogLevel, source, message string) {
		r.Write(level, source+": "+message)
	}
}

func (r *RunLog) Begin(trigger string, now time.Time) *models.RefreshRun {
	run := &models.RefreshRun{
		RunID:     uuid.NewString(),
		Trigger:   trigger,
		StartedAt: now,
		Status:    models.RunStatusRunning,
	}
	if r.store == nil {
		return run
	}
	id, err := r.store.CreateRun(run)
	if err != nil {
		r.log.Warnw("failed to record refresh run", "error", err)
		return run
	}
	run.ID = id
	r.current.Store(id)
	return run
}

func (r *RunLog) Write(level models.LogLevel, message string) {
	if r.store == nil {
		return
	}
	var runID *int64
	if id := r.current.Load(); id != 0 {
		runID = &id
	}
	if err := r.store.Log(runID, level, message); err != nil {
		r.log.Warnw("failed to write refresh log", "error", err)
	}
}

func (r *RunLog) Finish(run *models.RefreshRun, now time.Time, err error) {
	run.FinishedAt = &now
	run.Status = models.RunStatusCompleted
	if err != nil {
		run.Status = models.RunStatusFailed
		run.Error = err.Error()
		run.ErrorsCount++
	}
	if r.store != nil && run.ID != 0 {
		if uerr := r.store.UpdateRun(run); uerr != nil {
			r.log.Warnw("failed to update refresh run", "error", uerr)
		}
	}
	r.current.CompareAndSwap(run.ID, 0)
}
