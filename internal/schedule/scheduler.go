// Package schedule drives the scrape pipeline on a timer and fans out
// notifications for new records.
package schedule

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/opennotify/autonotifier/internal/announce"
)

// Runner executes one scrape run.
type Runner interface {
	Run(ctx context.Context) announce.RunOutcome
}

// Notifier is the slice of the notification surface the scheduler needs.
type Notifier interface {
	DispatchRetrying(ctx context.Context, rec announce.Record, recipients []string) error
	NotifyRunFailure(ctx context.Context, runErr error) error
	NotifyDeliverySummary(ctx context.Context, recipientCount, notificationCount int) error
	NotifyDeliveryFailures(ctx context.Context, failures []string) error
}

// Config controls scheduling behavior.
type Config struct {
	// Spec is a cron expression, evaluated in Timezone.
	Spec string
	// Timezone names the schedule's location, e.g. "Asia/Kolkata". The
	// process-local zone is deliberately not the default.
	Timezone string
	// Enabled switches the timer on. The manual trigger works regardless.
	Enabled bool
	// RunTimeout bounds one run including notification fan-out.
	RunTimeout time.Duration
}

// Scheduler owns the cron lifecycle and guarantees at most one concurrent
// run. A timer fire that overlaps an active run is dropped, not queued:
// runs are idempotent, so a drop only delays discovery to the next fire.
type Scheduler struct {
	cron       *cron.Cron
	runner     Runner
	notifier   Notifier
	recipients announce.RecipientSource
	cfg        Config
	running    atomic.Bool
	logger     *zap.Logger
}

// New builds a Scheduler. The cron entry is registered only when the timer
// is enabled.
func New(
	runner Runner,
	notifier Notifier,
	recipients announce.RecipientSource,
	cfg Config,
	logger *zap.Logger,
) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Spec == "" {
		cfg.Spec = "0 9 * * *"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Asia/Kolkata"
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 5 * time.Minute
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	s := &Scheduler{
		cron:       cron.New(cron.WithLocation(loc)),
		runner:     runner,
		notifier:   notifier,
		recipients: recipients,
		cfg:        cfg,
		logger:     logger,
	}
	if cfg.Enabled {
		if _, err := s.cron.AddFunc(cfg.Spec, s.runScheduled); err != nil {
			return nil, fmt.Errorf("register cron job %q: %w", cfg.Spec, err)
		}
	}
	return s, nil
}

// Start launches the timer when enabled.
func (s *Scheduler) Start() {
	if !s.cfg.Enabled {
		s.logger.Info("cron timer disabled; manual trigger remains available")
		return
	}
	s.cron.Start()
	s.logger.Info("cron job scheduled",
		zap.String("spec", s.cfg.Spec), zap.String("timezone", s.cfg.Timezone))
}

// Stop halts the timer and waits for an in-flight cron invocation.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// TryTrigger runs the full cron path (scrape plus notification fan-out) if
// no run is active. It reports false only when the trigger was dropped; a
// run that panics still reports true, with a failed outcome.
func (s *Scheduler) TryTrigger(ctx context.Context) (outcome announce.RunOutcome, ok bool) {
	if !s.running.CompareAndSwap(false, true) {
		return announce.RunOutcome{}, false
	}
	defer s.running.Store(false)

	ok = true
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("run panic recovered", zap.Any("panic", r))
			outcome.Status = announce.RunStatusFailed
			outcome.Err = fmt.Errorf("run panicked: %v", r)
			if err := s.notifier.NotifyRunFailure(ctx, outcome.Err); err != nil {
				s.logger.Error("admin failure report failed", zap.Error(err))
			}
		}
	}()

	start := time.Now()
	outcome = s.runner.Run(ctx)
	s.handleOutcome(ctx, outcome)
	s.logger.Info("run finished",
		zap.String("run_id", outcome.RunID),
		zap.String("status", string(outcome.Status)),
		zap.Duration("cost", time.Since(start)),
	)
	return outcome, true
}

func (s *Scheduler) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RunTimeout)
	defer cancel()
	if _, ok := s.TryTrigger(ctx); !ok {
		s.logger.Warn("run already in progress, dropping scheduled fire")
	}
}

// handleOutcome converts a run outcome into notifications. Scheduled-run
// failures are invisible to end users; they surface only on the admin
// channel.
func (s *Scheduler) handleOutcome(ctx context.Context, outcome announce.RunOutcome) {
	switch outcome.Status {
	case announce.RunStatusFailed:
		if err := s.notifier.NotifyRunFailure(ctx, outcome.Err); err != nil {
			s.logger.Error("admin failure report failed", zap.Error(err))
		}
	case announce.RunStatusNewRecords:
		s.fanOut(ctx, outcome.Save.Saved)
	case announce.RunStatusNoNew:
		s.logger.Info("no new notifications found")
	}
}

// fanOut sends one message per persisted record. A delivery failure for one
// record never blocks the rest; terminal failures are reported per batch to
// the admin channel and the corresponding records stay persisted.
func (s *Scheduler) fanOut(ctx context.Context, saved []announce.Record) {
	recipients, err := s.recipients.ListAll(ctx)
	if err != nil {
		s.logger.Error("list recipients failed", zap.Error(err))
		if nErr := s.notifier.NotifyRunFailure(ctx, fmt.Errorf("list recipients: %w", err)); nErr != nil {
			s.logger.Error("admin failure report failed", zap.Error(nErr))
		}
		return
	}
	if len(recipients) == 0 {
		s.logger.Info("no recipients subscribed, skipping fan-out")
		return
	}

	var failures []string
	sent := 0
	for _, rec := range saved {
		if err := s.notifier.DispatchRetrying(ctx, rec, recipients); err != nil {
			s.logger.Error("notification delivery failed",
				zap.String("title", rec.Title), zap.Error(err))
			failures = append(failures, fmt.Sprintf("%s: %v", rec.Title, err))
			continue
		}
		sent++
	}

	if len(failures) > 0 {
		if err := s.notifier.NotifyDeliveryFailures(ctx, failures); err != nil {
			s.logger.Error("admin delivery-failure report failed", zap.Error(err))
		}
	}
	if sent > 0 {
		if err := s.notifier.NotifyDeliverySummary(ctx, len(recipients), sent); err != nil {
			s.logger.Error("admin delivery summary failed", zap.Error(err))
		}
	}
}
