// Package scheduler drives all scheduled sync runs from a single cooperative
// loop: one ticker re-evaluates which platforms are due and runs them one at
// a time. No per-platform goroutines.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fountainhq/fountain-agent/internal/config"
	"github.com/fountainhq/fountain-agent/internal/notify"
	"github.com/fountainhq/fountain-agent/internal/platform"
	"github.com/fountainhq/fountain-agent/internal/sync"
)

// defaultTick is how often due-ness is re-evaluated. Intervals are hours, so
// minute-scale drift is irrelevant.
const defaultTick = 5 * time.Minute

// Runner runs one sync; *sync.Session implements it.
type Runner interface {
	Run(ctx context.Context, p platform.Platform) sync.Outcome
}

// Scheduler owns the tick loop. Last-run times are kept in memory only:
// after a restart every enabled platform is due on the first tick, which is
// the intended catch-up behavior for a desktop agent that may have been
// closed for days.
type Scheduler struct {
	runner   Runner
	notifier notify.Notifier
	logger   *slog.Logger
	tick     time.Duration

	settings *config.Settings
	updates  <-chan *config.Settings
	lastRun  map[platform.Platform]time.Time

	now func() time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithTick overrides the evaluation interval, used by tests.
func WithTick(d time.Duration) Option {
	return func(s *Scheduler) {
		s.tick = d
	}
}

// New creates a scheduler. updates delivers live settings snapshots; the
// scheduler applies each one between ticks without restarting.
func New(
	runner Runner,
	settings *config.Settings,
	updates <-chan *config.Settings,
	notifier notify.Notifier,
	logger *slog.Logger,
	opts ...Option,
) *Scheduler {
	s := &Scheduler{
		runner:   runner,
		notifier: notifier,
		logger:   logger,
		tick:     defaultTick,
		settings: settings,
		updates:  updates,
		lastRun:  make(map[platform.Platform]time.Time),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run blocks until ctx is cancelled. Cancellation is checked between
// platforms, never mid-run; a sync already in flight completes.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("Scheduler started", "tick", s.tick)

	// First evaluation happens immediately so an agent start catches up
	// without waiting out a full tick.
	s.runDue(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return nil
		case settings := <-s.updates:
			s.settings = settings
			s.logger.Info("Scheduler settings updated")
		case <-ticker.C:
			s.runDue(ctx)
		}
	}
}

// runDue syncs every enabled, due platform sequentially.
func (s *Scheduler) runDue(ctx context.Context) {
	if s.settings.ServerURL == "" {
		s.logger.Debug("No backend configured, skipping tick")
		return
	}

	for _, p := range platform.All() {
		// Cancellation wins over starting the next platform.
		select {
		case <-ctx.Done():
			return
		default:
		}

		if !s.settings.Enabled(p) {
			continue
		}
		last, ran := s.lastRun[p]
		if ran && s.now().Sub(last) < s.settings.Interval(p) {
			continue
		}

		s.lastRun[p] = s.now()
		outcome := s.runner.Run(ctx, p)
		s.report(outcome)
	}
}

// report notifies the user about an outcome: quiet successes stay quiet,
// failures always surface. Settings can silence notifications entirely.
func (s *Scheduler) report(outcome sync.Outcome) {
	if !s.settings.NotificationsEnabled() {
		return
	}
	if outcome.Success {
		if outcome.ItemsSynced > 0 {
			s.notifier.Notify(
				"Sync complete",
				fmt.Sprintf("%s: %d items synced", outcome.Platform, outcome.ItemsSynced),
			)
		}
		return
	}
	s.notifier.Notify(
		"Sync failed",
		fmt.Sprintf("%s: %s", outcome.Platform, outcome.Message),
	)
}
