package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sudipta6891/OC-Chain-System-ver-01/internal/domain/models"
	"github.com/sudipta6891/OC-Chain-System-ver-01/pkg/config"
	applogger "github.com/sudipta6891/OC-Chain-System-ver-01/pkg/logger"
	"github.com/sudipta6891/OC-Chain-System-ver-01/pkg/util"
)

// CycleExecutor is the part of CycleRunner the scheduler drives.
type CycleExecutor interface {
	Run(ctx context.Context, symbol string) (models.Decision, error)
}

// RetentionJob is the daily cleanup.
type RetentionJob interface {
	Cleanup(ctx context.Context) (int64, error)
}

type SchedulerConfig struct {
	Symbols      []string
	Interval     time.Duration
	TestInterval time.Duration
	SessionStart util.Clock
	SessionEnd   util.Clock
	CleanupAt    util.Clock
	TestMode     bool
	Location     *time.Location
}

// SchedulerConfigFromConfig parses the clock strings and timezone.
func SchedulerConfigFromConfig(cfg *config.Config) (SchedulerConfig, error) {
	sc := cfg.Scheduler
	loc, err := time.LoadLocation(sc.Timezone)
	if err != nil {
		return SchedulerConfig{}, fmt.Errorf("scheduler timezone: %w", err)
	}
	start, err := util.ParseClock(sc.SessionStart)
	if err != nil {
		return SchedulerConfig{}, err
	}
	end, err := util.ParseClock(sc.SessionEnd)
	if err != nil {
		return SchedulerConfig{}, err
	}
	cleanup, err := util.ParseClock(sc.CleanupAt)
	if err != nil {
		return SchedulerConfig{}, err
	}
	return SchedulerConfig{
		Symbols:      sc.Symbols,
		Interval:     sc.Interval,
		TestInterval: sc.TestInterval,
		SessionStart: start,
		SessionEnd:   end,
		CleanupAt:    cleanup,
		TestMode:     sc.TestMode,
		Location:     loc,
	}, nil
}

// Scheduler runs cycles on clock-aligned slots inside the trading session
// and the retention cleanup once per weekday. Jobs run on the scheduler
// goroutine one after another, so a slow cycle delays the next slot instead
// of overlapping it.
type Scheduler struct {
	runner  CycleExecutor
	cleaner RetentionJob
	cfg     SchedulerConfig
	now     func() time.Time
	l       *applogger.Logger
}

func NewScheduler(runner CycleExecutor, cleaner RetentionJob, cfg SchedulerConfig, l *applogger.Logger) *Scheduler {
	if l == nil {
		l = applogger.Nop()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.TestInterval <= 0 {
		cfg.TestInterval = time.Minute
	}
	if cfg.SessionEnd == (util.Clock{}) {
		cfg.SessionEnd = util.Clock{Hour: 15, Minute: 30}
	}
	return &Scheduler{runner: runner, cleaner: cleaner, cfg: cfg, now: time.Now, l: l}
}

// NextRun returns the first cycle slot strictly after now.
func (s *Scheduler) NextRun(now time.Time) time.Time {
	now = now.In(s.cfg.Location)
	if s.cfg.TestMode {
		return align(now, s.cfg.TestInterval)
	}
	cand := align(now, s.cfg.Interval)
	for range 14 {
		start := s.cfg.SessionStart.On(cand)
		end := s.cfg.SessionEnd.On(cand)
		if util.IsWeekday(cand) {
			if cand.Before(start) {
				return start
			}
			if !cand.After(end) {
				return cand
			}
		}
		y, m, d := cand.Date()
		cand = time.Date(y, m, d+1, 0, 0, 0, 0, s.cfg.Location)
	}
	return cand
}

// NextCleanup returns the next weekday cleanup time after now, or the zero
// time in test mode.
func (s *Scheduler) NextCleanup(now time.Time) time.Time {
	if s.cfg.TestMode || s.cleaner == nil {
		return time.Time{}
	}
	now = now.In(s.cfg.Location)
	cand := s.cfg.CleanupAt.On(now)
	if !cand.After(now) {
		cand = s.cfg.CleanupAt.On(now.AddDate(0, 0, 1))
	}
	for !util.IsWeekday(cand) {
		cand = s.cfg.CleanupAt.On(cand.AddDate(0, 0, 1))
	}
	return cand
}

// align rounds t up to the next multiple of step counted from local midnight.
func align(t time.Time, step time.Duration) time.Time {
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	n := t.Sub(midnight)/step + 1
	return midnight.Add(n * step)
}

// Run blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.l.Info("scheduler started",
		applogger.Strings("symbols", s.cfg.Symbols),
		applogger.Bool("test_mode", s.cfg.TestMode),
		applogger.String("session", s.cfg.SessionStart.String()+"-"+s.cfg.SessionEnd.String()),
	)
	for {
		now := s.now()
		next, cleanup := s.NextRun(now), false
		if c := s.NextCleanup(now); !c.IsZero() && c.Before(next) {
			next, cleanup = c, true
		}
		s.l.Debug("scheduler waiting", applogger.Time("next", next), applogger.Bool("cleanup", cleanup))

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.l.Info("scheduler stopped")
			return ctx.Err()
		case <-timer.C:
		}

		if cleanup {
			if _, err := s.cleaner.Cleanup(ctx); err != nil {
				s.l.Error("scheduled cleanup failed", applogger.Error(err))
			}
			continue
		}
		s.RunAll(ctx)
	}
}

// RunAll runs one cycle per configured symbol in order.
func (s *Scheduler) RunAll(ctx context.Context) {
	for _, symbol := range s.cfg.Symbols {
		if ctx.Err() != nil {
			return
		}
		start := time.Now()
		_, err := s.runner.Run(ctx, symbol)
		switch {
		case err == nil:
			s.l.Info("scheduled cycle done", applogger.String("symbol", symbol), applogger.Duration("duration_ms", time.Since(start)))
		case errors.Is(err, ErrCycleBusy):
			s.l.Warn("previous cycle still running, skipping", applogger.String("symbol", symbol))
		case errors.Is(err, ErrNoChain):
			s.l.Warn("no chain data, skipping", applogger.String("symbol", symbol))
		default:
			s.l.Error("scheduled cycle failed", applogger.String("symbol", symbol), applogger.Error(err))
		}
	}
}
