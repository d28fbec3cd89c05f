// Package pipeline composes fetch, extract, and save into one run.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/opennotify/autonotifier/internal/announce"
	"github.com/opennotify/autonotifier/internal/metrics"
)

// Config controls Runner behavior.
type Config struct {
	SourceURL      string
	SnapshotPrefix string
	EventTopic     string
}

// Runner executes the fetch -> snapshot -> extract -> save sequence. It is
// stateless and idempotent on failure: dedup absorbs a re-fetch of
// already-seen rows.
type Runner struct {
	fetcher   announce.Fetcher
	extractor announce.Extractor
	saver     announce.Saver
	runs      announce.RunStore      // optional
	snapshots announce.SnapshotStore // optional
	publisher announce.Publisher     // optional
	clock     announce.Clock
	idGen     announce.IDGenerator
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Runner. runs, snapshots, and publisher may be nil.
func New(
	fetcher announce.Fetcher,
	extractor announce.Extractor,
	saver announce.Saver,
	runs announce.RunStore,
	snapshots announce.SnapshotStore,
	publisher announce.Publisher,
	clock announce.Clock,
	idGen announce.IDGenerator,
	cfg Config,
	logger *zap.Logger,
) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SnapshotPrefix == "" {
		cfg.SnapshotPrefix = "snapshots"
	}
	return &Runner{
		fetcher:   fetcher,
		extractor: extractor,
		saver:     saver,
		runs:      runs,
		snapshots: snapshots,
		publisher: publisher,
		clock:     clock,
		idGen:     idGen,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run performs one scrape run and classifies the outcome.
func (r *Runner) Run(ctx context.Context) announce.RunOutcome {
	outcome := announce.RunOutcome{StartedAt: r.clock.Now()}
	if id, err := r.idGen.NewID(); err == nil {
		outcome.RunID = id
	} else {
		r.logger.Warn("run id generation failed", zap.Error(err))
	}
	r.logger.Info("starting announcements scrape",
		zap.String("run_id", outcome.RunID), zap.String("url", r.cfg.SourceURL))

	fetchStart := time.Now()
	html, err := r.fetcher.Fetch(ctx, r.cfg.SourceURL)
	metrics.ObserveFetch(time.Since(fetchStart))
	if err != nil {
		return r.finish(ctx, outcome, fmt.Errorf("scraping failed: %w", err))
	}

	r.snapshot(ctx, outcome.RunID, html)

	records, err := r.extractor.Extract(html, r.cfg.SourceURL)
	if err != nil {
		return r.finish(ctx, outcome, fmt.Errorf("scraping failed: %w", err))
	}
	outcome.Scraped = records
	r.logger.Info("found valid announcements", zap.Int("count", len(records)))

	save, err := r.saver.SaveNew(ctx, records)
	if err != nil {
		return r.finish(ctx, outcome, err)
	}
	outcome.Save = save

	if save.NewCount > 0 {
		outcome.Status = announce.RunStatusNewRecords
		r.publishNew(ctx, outcome.RunID, save.Saved)
	} else {
		outcome.Status = announce.RunStatusNoNew
	}
	return r.finish(ctx, outcome, nil)
}

// snapshot archives the raw page. Failures are logged, never fatal.
func (r *Runner) snapshot(ctx context.Context, runID string, html []byte) {
	if r.snapshots == nil {
		return
	}
	now := r.clock.Now()
	path := fmt.Sprintf("%s/%s/%s.html", r.cfg.SnapshotPrefix, now.Format("2006/01/02"), runID)
	uri, err := r.snapshots.Put(ctx, path, "text/html; charset=utf-8", html)
	if err != nil {
		r.logger.Warn("snapshot failed", zap.String("run_id", runID), zap.Error(err))
		return
	}
	r.logger.Debug("snapshot stored", zap.String("uri", uri))
}

// publishNew emits one event per newly persisted record. Events fire only
// after persistence is confirmed; failures are logged, never fatal.
func (r *Runner) publishNew(ctx context.Context, runID string, saved []announce.Record) {
	if r.publisher == nil || r.cfg.EventTopic == "" {
		return
	}
	for _, rec := range saved {
		payload := map[string]any{
			"run_id":     runID,
			"title":      rec.Title,
			"time":       rec.Time,
			"source":     rec.Source,
			"scraped_at": rec.ScrapedAt.Format(time.RFC3339),
		}
		if _, err := r.publisher.Publish(ctx, r.cfg.EventTopic, payload); err != nil {
			r.logger.Warn("publish new-announcement event failed",
				zap.String("title", rec.Title), zap.Error(err))
		}
	}
}

func (r *Runner) finish(ctx context.Context, outcome announce.RunOutcome, err error) announce.RunOutcome {
	outcome.FinishedAt = r.clock.Now()
	if err != nil {
		outcome.Status = announce.RunStatusFailed
		outcome.Err = err
		r.logger.Error("run failed", zap.String("run_id", outcome.RunID), zap.Error(err))
	}
	metrics.ObserveRun(string(outcome.Status))
	metrics.ObserveNewRecords(outcome.Save.NewCount)
	r.recordRun(ctx, outcome)
	return outcome
}

func (r *Runner) recordRun(ctx context.Context, outcome announce.RunOutcome) {
	if r.runs == nil || outcome.RunID == "" {
		return
	}
	message := outcome.Save.Message
	if outcome.Err != nil {
		message = outcome.Err.Error()
	}
	run := announce.RunRecord{
		ID:         outcome.RunID,
		Status:     outcome.Status,
		Message:    message,
		NewCount:   outcome.Save.NewCount,
		StartedAt:  outcome.StartedAt,
		FinishedAt: outcome.FinishedAt,
	}
	if err := r.runs.RecordRun(ctx, run); err != nil {
		r.logger.Warn("record run history failed", zap.String("run_id", run.ID), zap.Error(err))
	}
}
