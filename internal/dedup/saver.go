// Package dedup implements the deduplicating batch save.
package dedup

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/opennotify/autonotifier/internal/announce"
)

// DefaultMaxInFlight bounds concurrent store operations. Observed batches
// are small; the bound guards against a pathological page.
const DefaultMaxInFlight = 8

// Saver checks and inserts records concurrently against a RecordStore.
// A failure on one record is logged and excluded from the result; it never
// aborts the batch. Only a store that cannot proceed at all (context dead)
// yields an error.
type Saver struct {
	store       announce.RecordStore
	maxInFlight int
	logger      *zap.Logger
}

// New builds a Saver.
func New(store announce.RecordStore, maxInFlight int, logger *zap.Logger) *Saver {
	if maxInFlight <= 0 {
		maxInFlight = DefaultMaxInFlight
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Saver{store: store, maxInFlight: maxInFlight, logger: logger}
}

// SaveNew persists the records whose identity triple has not been seen
// before and returns them in input order. Records in the batch sharing an
// identity triple collapse to the first occurrence.
func (s *Saver) SaveNew(ctx context.Context, records []announce.Record) (announce.SaveResult, error) {
	if len(records) == 0 {
		return announce.SaveResult{Message: "No notifications provided"}, nil
	}

	candidates := collapseBatch(records)
	s.logger.Info("processing notifications for saving", zap.Int("count", len(records)))

	saved := make([]bool, len(candidates))
	sem := make(chan struct{}, s.maxInFlight)
	var wg sync.WaitGroup

	for i, rec := range candidates {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, rec announce.Record) {
			defer wg.Done()
			defer func() { <-sem }()
			ok, err := s.saveOne(ctx, rec)
			if err != nil {
				s.logger.Error("error processing notification item",
					zap.String("title", rec.Title), zap.Error(err))
				return
			}
			saved[i] = ok
		}(i, rec)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return announce.SaveResult{}, &announce.PersistenceError{Op: "save batch", Err: err}
	}

	result := announce.SaveResult{}
	for i, ok := range saved {
		if ok {
			result.Saved = append(result.Saved, candidates[i])
		}
	}
	result.NewCount = len(result.Saved)
	if result.NewCount == 0 {
		result.Message = "No new notifications found"
	} else {
		result.Message = fmt.Sprintf("Saved %d new notification(s)", result.NewCount)
	}
	s.logger.Info(result.Message)
	return result, nil
}

// saveOne reports whether the record was newly persisted. The store's own
// uniqueness enforcement is the backstop for runs racing each other; the
// existence pre-check just avoids pointless inserts.
func (s *Saver) saveOne(ctx context.Context, rec announce.Record) (bool, error) {
	exists, err := s.store.Exists(ctx, rec.Identity())
	if err != nil {
		return false, fmt.Errorf("check existence: %w", err)
	}
	if exists {
		s.logger.Debug("duplicate notification skipped", zap.String("title", rec.Title))
		return false, nil
	}
	inserted, err := s.store.Insert(ctx, rec)
	if err != nil {
		return false, fmt.Errorf("insert: %w", err)
	}
	if !inserted {
		// Lost the race to a concurrent run.
		s.logger.Debug("duplicate notification skipped on insert", zap.String("title", rec.Title))
		return false, nil
	}
	s.logger.Info("notification saved", zap.String("title", rec.Title))
	return true, nil
}

// collapseBatch drops later records sharing an identity triple with an
// earlier one, preserving input order.
func collapseBatch(records []announce.Record) []announce.Record {
	seen := make(map[announce.Identity]struct{}, len(records))
	out := make([]announce.Record, 0, len(records))
	for _, rec := range records {
		id := rec.Identity()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, rec)
	}
	return out
}
