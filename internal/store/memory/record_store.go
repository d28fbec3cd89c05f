// Package memory provides in-memory store implementations for tests and
// storeless development runs.
package memory

import (
	"context"
	"sync"

	"github.com/opennotify/autonotifier/internal/announce"
)

// RecordStore keeps records in a map keyed by identity triple. The mutex
// makes the check-and-set atomic, mirroring the database's uniqueness
// constraint.
type RecordStore struct {
	mu      sync.RWMutex
	records map[announce.Identity]announce.Record
}

// NewRecordStore creates an empty in-memory record store.
func NewRecordStore() *RecordStore {
	return &RecordStore{records: make(map[announce.Identity]announce.Record)}
}

// Exists reports whether the identity triple has been persisted.
func (s *RecordStore) Exists(_ context.Context, id announce.Identity) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[id]
	return ok, nil
}

// Insert persists the record unless its identity triple is already present.
func (s *RecordStore) Insert(_ context.Context, rec announce.Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := rec.Identity()
	if _, ok := s.records[id]; ok {
		return false, nil
	}
	s.records[id] = rec
	return true, nil
}

// Len returns the number of persisted records.
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
