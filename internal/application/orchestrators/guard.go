package orchestrators

import "sync"

// InFlight admits at most one holder per key. It stands in for the disabled button:
// a second attempt while the first is running is rejected, never queued.
type InFlight struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// NewInFlight creates an empty guard.
func NewInFlight() *InFlight {
	return &InFlight{keys: make(map[string]struct{})}
}

// Acquire claims key. When ok is false the key is already held and release is a no-op.
// PRE: none
// POST: If ok, key is held until release is called; release is idempotent
func (g *InFlight) Acquire(key string) (release func(), ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.keys[key]; busy {
		return func() {}, false
	}
	g.keys[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.keys, key)
			g.mu.Unlock()
		})
	}, true
}

// Held reports whether key is currently claimed.
func (g *InFlight) Held(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.keys[key]
	return ok
}
