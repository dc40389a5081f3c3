package credentials

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Gladiston-Porto/Trading-APP-sub001/core"
	"github.com/Gladiston-Porto/Trading-APP-sub001/ports"
)

// MemoryStore keeps identities in maps. Intended for tests and local runs.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*core.Identity
	byEmail map[string]string
}

var _ ports.CredentialStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*core.Identity),
		byEmail: make(map[string]string),
	}
}

func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (*core.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[core.NormalizeEmail(email)]
	if !ok {
		return nil, core.ErrNotFound
	}
	return clone(s.byID[id]), nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (*core.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	identity, ok := s.byID[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return clone(identity), nil
}

func (s *MemoryStore) Create(ctx context.Context, identity *core.Identity) (*core.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := clone(identity)
	record.Email = core.NormalizeEmail(record.Email)
	if _, exists := s.byEmail[record.Email]; exists {
		return nil, fmt.Errorf("%w: %s", core.ErrDuplicateEmail, record.Email)
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	s.byID[record.ID] = record
	s.byEmail[record.Email] = record.ID
	return clone(record), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	identity, ok := s.byID[id]
	if !ok {
		return core.ErrNotFound
	}
	delete(s.byEmail, identity.Email)
	delete(s.byID, id)
	return nil
}

func clone(i *core.Identity) *core.Identity {
	c := *i
	return &c
}
