package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"stays_observer/config"
	"stays_observer/models"
	"stays_observer/services"
	"stays_observer/storage"
)

const commandPollInterval = 2 * time.Second

type Refresher interface {
	Refresh(ctx context.Context, opts services.RefreshOptions) error
}

type CommandQueue interface {
	GetPendingCommands() ([]models.Command, error)
	MarkCommandProcessed(id int64) error
}

// Scheduler drives the periodic and midnight refreshes and applies queued
// commands. Pausing only affects the periodic job.
type Scheduler struct {
	cfg       config.SchedulerConfig
	refresher Refresher
	commands  CommandQueue
	clock     clockwork.Clock
	log       *zap.SugaredLogger
	cron      *cron.Cron

	paused   atomic.Bool
	mu       sync.Mutex
	stopped  bool
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func New(cfg config.SchedulerConfig, refresher Refresher, commands CommandQueue, clock clockwork.Clock, logger *zap.SugaredLogger) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Scheduler{
		cfg:       cfg,
		refresher: refresher,
		commands:  commands,
		clock:     clock,
		log:       logger,
		cron:      cron.New(cron.WithLocation(time.Local)),
		stopCh:    make(chan struct{}),
	}
}

var ErrStopped = errors.New("scheduler stopped")

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}

	if s.cfg.MidnightCron != "" {
		s.log.Infow("starting midnight refresh", "cron", s.cfg.MidnightCron)
		if _, err := s.cron.AddFunc(s.cfg.MidnightCron, func() { s.runMidnight(ctx) }); err != nil {
			return fmt.Errorf("invalid midnight cron expression: %w", err)
		}
	}
	s.cron.Start()

	if s.cfg.Interval > 0 {
		s.log.Infow("starting periodic refresh", "interval", s.cfg.Interval)
		s.wg.Add(1)
		go s.periodicLoop(ctx)
	}
	if s.commands != nil {
		s.wg.Add(1)
		go s.pollCommands(ctx)
	}
	return nil
}

// Stop clears every timer and waits for running jobs to return.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()
		<-s.cron.Stop().Done()
		close(s.stopCh)
		s.wg.Wait()
	})
}

func (s *Scheduler) Paused() bool {
	return s.paused.Load()
}

// periodicLoop re-arms the timer only after each refresh returns, so the
// next tick lands one interval after the data was last fetched.
func (s *Scheduler) periodicLoop(ctx context.Context) {
	defer s.wg.Done()
	timer := s.clock.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-timer.Chan():
			s.runPeriodic(ctx)
			timer.Reset(s.cfg.Interval)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) runPeriodic(ctx context.Context) {
	if s.paused.Load() {
		s.log.Debug("periodic refresh skipped, scheduler paused")
		return
	}
	if err := s.refresher.Refresh(ctx, services.RefreshOptions{Trigger: "periodic"}); err != nil {
		s.log.Warnw("periodic refresh failed", "error", err)
	}
}

func (s *Scheduler) runMidnight(ctx context.Context) {
	if err := s.refresher.Refresh(ctx, services.RefreshOptions{Force: true, Trigger: "midnight"}); err != nil {
		s.log.Warnw("midnight refresh failed", "error", err)
	}
}

func (s *Scheduler) pollCommands(ctx context.Context) {
	defer s.wg.Done()
	ticker := s.clock.NewTicker(commandPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			s.processCommands(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) processCommands(ctx context.Context) {
	cmds, err := s.commands.GetPendingCommands()
	if err != nil {
		s.log.Warnw("error getting commands", "error", err)
		return
	}
	for _, cmd := range cmds {
		s.log.Infow("processing command", "command", cmd.Command, "id", cmd.ID)
		if err := s.handleCommand(ctx, &cmd); err != nil {
			s.log.Warnw("command error", "command", cmd.Command, "error", err)
		}
		if err := s.commands.MarkCommandProcessed(cmd.ID); err != nil {
			s.log.Warnw("error marking command processed", "id", cmd.ID, "error", err)
		}
	}
}

func (s *Scheduler) handleCommand(ctx context.Context, cmd *models.Command) error {
	switch cmd.Command {
	case models.CmdRefreshNow:
		params, err := storage.ParseCommandParams(cmd)
		if err != nil {
			return err
		}
		if params.Reason != "" {
			s.log.Infow("manual refresh requested", "reason", params.Reason)
		}
		return s.refresher.Refresh(ctx, services.RefreshOptions{Force: true, Trigger: "command"})
	case models.CmdPause:
		s.paused.Store(true)
		s.log.Info("scheduler paused")
		return nil
	case models.CmdResume:
		s.paused.Store(false)
		s.log.Info("scheduler resumed")
		return nil
	default:
		return fmt.Errorf("unknown command: %s", cmd.Command)
	}
}
