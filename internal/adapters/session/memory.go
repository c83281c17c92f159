package session

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend is an in-memory session store. Sessions are lost on restart.
type MemoryBackend struct {
	mu       sync.RWMutex
	sessions map[string]Record
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryBackend creates a new in-memory session store.
func NewMemoryBackend(ttl time.Duration) *MemoryBackend {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryBackend{
		sessions: make(map[string]Record),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create stores a new session and returns the token.
// PRE: rec.Identity.ID is non-empty
// POST: Session is stored, token is returned
func (m *MemoryBackend) Create(_ context.Context, rec Record) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = m.now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[token] = rec
	return token, nil
}

// Get retrieves a session by token.
// PRE: none
// POST: Returns the record if present and not expired; expired records are removed
func (m *MemoryBackend) Get(_ context.Context, token string) (Record, bool, error) {
	m.mu.RLock()
	rec, ok := m.sessions[token]
	m.mu.RUnlock()
	if !ok {
		return Record{}, false, nil
	}
	if m.now().Sub(rec.CreatedAt) > m.ttl {
		m.mu.Lock()
		delete(m.sessions, token)
		m.mu.Unlock()
		return Record{}, false, nil
	}
	return rec, true, nil
}

// Delete removes a session by token.
// PRE: none
// POST: Session with given token is removed
func (m *MemoryBackend) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

// Sweep drops every expired session. The server calls it periodically.
func (m *MemoryBackend) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for token, rec := range m.sessions {
		if now.Sub(rec.CreatedAt) > m.ttl {
			delete(m.sessions, token)
			n++
		}
	}
	return n
}
