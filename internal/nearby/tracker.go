package nearby

import "sync"

// Tracker hands out generation numbers so a result computed for an older
// location can be recognized and dropped. Numbers come from one counter
// shared by all sessions and are never reused, even after Forget.
type Tracker struct {
	mu   sync.Mutex
	last uint64
	gens map[string]uint64
}

func NewTracker() *Tracker {
	return &Tracker{gens: make(map[string]uint64)}
}

// Begin starts a new generation for session and returns it.
func (t *Tracker) Begin(session string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last++
	t.gens[session] = t.last
	return t.last
}

// IsCurrent reports whether gen is still the latest generation of session.
func (t *Tracker) IsCurrent(session string, gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur, ok := t.gens[session]
	return ok && cur == gen
}

// Forget drops session. Generations handed out before it stay stale.
func (t *Tracker) Forget(session string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.gens, session)
}

func (t *Tracker) Sessions() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.gens)
}
