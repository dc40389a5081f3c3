package store

import (
	"context"
	"sync"
	"time"

	"github.com/Gladiston-Porto/Trading-APP-sub001/ports"
)

// MemoryStore is an in-memory implementation of the Store interface.
// Entries are dropped lazily once their expiry has passed.
type MemoryStore struct {
	invalidatedTokens map[string]time.Time
	mu                sync.Mutex
	now               func() time.Time
}

var _ ports.Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		invalidatedTokens: make(map[string]time.Time),
		now:               time.Now,
	}
}

// InvalidateToken marks a token as invalidated
func (s *MemoryStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	if expiry <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()
	s.setLocked(tokenID, expiry)
	return nil
}

// IsTokenInvalidated checks if a token is invalidated
func (s *MemoryStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.activeLocked(tokenID), nil
}

// ConsumeToken marks a token as used unless it already was
func (s *MemoryStore) ConsumeToken(ctx context.Context, tokenID string, expiry time.Duration) (bool, error) {
	if expiry <= 0 {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeLocked(tokenID) {
		return false, nil
	}
	s.sweepLocked()
	s.setLocked(tokenID, expiry)
	return true, nil
}

// Len returns the number of live entries
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()
	return len(s.invalidatedTokens)
}

func (s *MemoryStore) setLocked(tokenID string, expiry time.Duration) {
	expiryTime := s.now().Add(expiry)
	// Never shorten an existing entry.
	if existing, ok := s.invalidatedTokens[tokenID]; ok && existing.After(expiryTime) {
		return
	}
	s.invalidatedTokens[tokenID] = expiryTime
}

func (s *MemoryStore) activeLocked(tokenID string) bool {
	expiryTime, exists := s.invalidatedTokens[tokenID]
	if !exists {
		return false
	}
	if s.now().After(expiryTime) {
		delete(s.invalidatedTokens, tokenID)
		return false
	}
	return true
}

func (s *MemoryStore) sweepLocked() {
	now := s.now()
	for id, expiryTime := range s.invalidatedTokens {
		if now.After(expiryTime) {
			delete(s.invalidatedTokens, id)
		}
	}
}
