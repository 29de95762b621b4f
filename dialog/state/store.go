package state

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrSessionNotFound = errors.New("call session not found")

// Store is the only shared mutable resource in the core. Per-call operations
// are linearizable: Update applies its mutator under that call's lock, and
// operations on distinct call ids never block one another.
type Store interface {
	// Get returns the session for callID or ErrSessionNotFound.
	Get(ctx context.Context, callID string) (*CallSession, error)
	// Create makes a session for callID if none exists and returns it.
	// Idempotent: an existing session is returned unchanged.
	Create(ctx context.Context, callID string, now time.Time) (*CallSession, error)
	// Update applies mutate atomically with respect to all other operations
	// on callID and returns the resulting session. If mutate returns an
	// error the session is left unchanged and the error is propagated.
	Update(ctx context.Context, callID string, mutate func(*CallSession) error) (*CallSession, error)
	// Delete destroys the session. Deleting a missing session is a no-op.
	Delete(ctx context.Context, callID string) error
	// SweepExpired deletes every session idle past timeout and returns the
	// purged sessions.
	SweepExpired(ctx context.Context, now time.Time, timeout time.Duration) ([]*CallSession, error)
}

// Clone deep-copies a session so callers never alias store-held state.
func (s *CallSession) Clone() *CallSession {
	if s == nil {
		return nil
	}
	out := *s
	if s.Retries != nil {
		out.Retries = make(map[string]int, len(s.Retries))
		for k, v := range s.Retries {
			out.Retries[k] = v
		}
	}
	if s.Lookup != nil {
		lk := *s.Lookup
		out.Lookup = &lk
	}
	return &out
}

type memoryEntry struct {
	mu      sync.Mutex
	sess    *CallSession
	deleted bool
}

// MemoryStore keeps sessions in process memory with one lock per call. The
// default driver for single-process deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
	}
}

func (m *MemoryStore) Get(ctx context.Context, callID string) (*CallSession, error) {
	if callID == "" {
		return nil, ErrInvalidCallID
	}
	m.mu.RLock()
	entry, ok := m.entries[callID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.deleted {
		return nil, ErrSessionNotFound
	}
	return entry.sess.Clone(), nil
}

func (m *MemoryStore) Create(ctx context.Context, callID string, now time.Time) (*CallSession, error) {
	if callID == "" {
		return nil, ErrInvalidCallID
	}
	m.mu.Lock()
	entry, ok := m.entries[callID]
	if !ok || entryDead(entry) {
		entry = &memoryEntry{sess: NewCallSession(callID, now)}
		m.entries[callID] = entry
	}
	m.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.sess.Clone(), nil
}

func (m *MemoryStore) Update(ctx context.Context, callID string, mutate func(*CallSession) error) (*CallSession, error) {
	if mutate == nil {
		return nil, errors.New("nil mutator")
	}
	m.mu.RLock()
	entry, ok := m.entries[callID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.deleted {
		return nil, ErrSessionNotFound
	}

	// Mutate a copy so a failed mutator leaves the stored session intact.
	next := entry.sess.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	entry.sess = next
	return next.Clone(), nil
}

func (m *MemoryStore) Delete(ctx context.Context, callID string) error {
	m.mu.Lock()
	entry, ok := m.entries[callID]
	if ok {
		delete(m.entries, callID)
	}
	m.mu.Unlock()
	if !ok {
		return nil
	}

	entry.mu.Lock()
	entry.deleted = true
	entry.sess = nil
	entry.mu.Unlock()
	return nil
}

func (m *MemoryStore) SweepExpired(ctx context.Context, now time.Time, timeout time.Duration) ([]*CallSession, error) {
	m.mu.Lock()
	candidates := make(map[string]*memoryEntry, len(m.entries))
	for id, entry := range m.entries {
		candidates[id] = entry
	}
	m.mu.Unlock()

	var purged []*CallSession
	for id, entry := range candidates {
		entry.mu.Lock()
		expired := !entry.deleted && entry.sess.Expired(now, timeout)
		if expired {
			entry.deleted = true
			purged = append(purged, entry.sess)
			entry.sess = nil
		}
		entry.mu.Unlock()

		if expired {
			m.mu.Lock()
			if cur, ok := m.entries[id]; ok && cur == entry {
				delete(m.entries, id)
			}
			m.mu.Unlock()
		}
	}
	return purged, nil
}

func entryDead(e *memoryEntry) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.deleted
}
