package memory

import (
	"context"
	"sync"
)

// SessionStore is an in-memory attempt id store (attempt.Store).
// Entries live as long as the process, standing in for a browser session.
type SessionStore struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		entries: make(map[string]string),
	}
}

func (s *SessionStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	return v, ok, nil
}

func (s *SessionStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = value
	return nil
}

func (s *SessionStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
