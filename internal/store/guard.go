package store

import "sync"

// Guard is the transient set of token addresses currently mid-flight. It
// prevents re-entrant duplicate handling within a single run; it is never
// persisted and starts empty on every process start.
type Guard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewGuard returns an empty guard.
func NewGuard() *Guard {
	return &Guard{inFlight: make(map[string]struct{})}
}

// TryAcquire marks token as in flight. It returns false if the token is
// already being handled.
func (g *Guard) TryAcquire(token string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := Normalize(token)
	if _, ok := g.inFlight[key]; ok {
		return false
	}
	g.inFlight[key] = struct{}{}
	return true
}

// Release removes token from the in-flight set. Safe to call for tokens that
// were never acquired.
func (g *Guard) Release(token string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inFlight, Normalize(token))
}

// Held reports whether token is currently in flight.
func (g *Guard) Held(token string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.inFlight[Normalize(token)]
	return ok
}
