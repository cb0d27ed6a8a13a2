// Package draft implements the form-draft store: cashier form state is saved
// under a tenant-scoped key so in-progress work survives navigation. The
// store is an explicit port (Save/Load/Clear) so the medium can change —
// this implementation keeps drafts in memory with a TTL.
package draft

import (
	"context"
	"sync"
	"time"

	"github.com/valadez/empenos-api/internal/domain"
)

type record struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is a thread-safe in-memory draft store.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]record
	ttl   time.Duration
}

// NewMemoryStore creates a draft store whose entries expire after ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		items: make(map[string]record),
		ttl:   ttl,
	}
}

func draftKey(tenantID, key string) string {
	return tenantID + "/" + key
}

// Save stores a draft, replacing any previous value for the key.
func (s *MemoryStore) Save(_ context.Context, tenantID, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := make([]byte, len(value))
	copy(buf, value)
	s.items[draftKey(tenantID, key)] = record{
		value:     buf,
		expiresAt: time.Now().Add(s.ttl),
	}
	return nil
}

// Load returns the stored draft or ErrNotFound if absent or expired.
func (s *MemoryStore) Load(_ context.Context, tenantID, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.items[draftKey(tenantID, key)]
	if !ok || time.Now().After(r.expiresAt) {
		return nil, &domain.ErrNotFound{Resource: "draft", ID: key}
	}
	out := make([]byte, len(r.value))
	copy(out, r.value)
	return out, nil
}

// Clear removes a draft. Clearing a missing key is not an error.
func (s *MemoryStore) Clear(_ context.Context, tenantID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, draftKey(tenantID, key))
	return nil
}
