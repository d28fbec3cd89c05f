package memory

import (
	"context"
	"sync"

	"github.com/opennotify/autonotifier/internal/announce"
)

// RunStore keeps run history rows in memory, newest first.
type RunStore struct {
	mu   sync.RWMutex
	runs []announce.RunRecord
}

// NewRunStore creates an empty in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{}
}

// RecordRun prepends one history row.
func (s *RunStore) RecordRun(_ context.Context, run announce.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append([]announce.RunRecord{run}, s.runs...)
	return nil
}

// ListRuns returns up to limit recent runs, newest first.
func (s *RunStore) ListRuns(_ context.Context, limit int) ([]announce.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.runs) {
		limit = len(s.runs)
	}
	out := make([]announce.RunRecord, limit)
	copy(out, s.runs[:limit])
	return out, nil
}
