package memory

import (
	"context"
	"sync"

	"github.com/opennotify/autonotifier/internal/announce"
)

// RecipientStore keeps normalized subscriber addresses in memory,
// preserving subscription order.
type RecipientStore struct {
	mu     sync.RWMutex
	emails []string
	index  map[string]struct{}
}

// NewRecipientStore creates an empty in-memory recipient store.
func NewRecipientStore() *RecipientStore {
	return &RecipientStore{index: make(map[string]struct{})}
}

// Add subscribes an address, reporting false when already present.
func (s *RecipientStore) Add(_ context.Context, email string) (bool, error) {
	normalized := announce.NormalizeEmail(email)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[normalized]; ok {
		return false, nil
	}
	s.index[normalized] = struct{}{}
	s.emails = append(s.emails, normalized)
	return true, nil
}

// Remove unsubscribes an address, reporting false when not present.
func (s *RecipientStore) Remove(_ context.Context, email string) (bool, error) {
	normalized := announce.NormalizeEmail(email)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.index[normalized]; !ok {
		return false, nil
	}
	delete(s.index, normalized)
	for i, e := range s.emails {
		if e == normalized {
			s.emails = append(s.emails[:i], s.emails[i+1:]...)
			break
		}
	}
	return true, nil
}

// ListAll returns subscribers in subscription order.
func (s *RecipientStore) ListAll(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.emails))
	copy(out, s.emails)
	return out, nil
}
