package oauth

import (
	"sync"
	"time"

	"github.com/jaevor/go-nanoid"
)

type stateEntry struct {
	provider  string
	expiresAt time.Time
}

// stateStore holds pending login states in memory. States are single-use and
// expire after the TTL; there is no durable session storage behind them.
type stateStore struct {
	mu      sync.Mutex
	entries map[string]stateEntry
	ttl     time.Duration
	now     func() time.Time
}

func newStateStore(ttl time.Duration) *stateStore {
	return &stateStore{
		entries: make(map[string]stateEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *stateStore) Issue(provider string) (string, error) {
	generateID, err := nanoid.Standard(40)
	if err != nil {
		return "", err
	}
	state := generateID()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune()
	s.entries[state] = stateEntry{
		provider:  provider,
		expiresAt: s.now().Add(s.ttl),
	}
	return state, nil
}

// Consume validates and removes a state. It returns false for unknown,
// expired or cross-provider states.
func (s *stateStore) Consume(state, provider string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[state]
	if !ok {
		return false
	}
	delete(s.entries, state)

	return entry.provider == provider && s.now().Before(entry.expiresAt)
}

// prune drops expired entries; called with the lock held.
func (s *stateStore) prune() {
	now := s.now()
	for state, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, state)
		}
	}
}
