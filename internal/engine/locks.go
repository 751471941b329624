package engine

import "sync"

// SessionLocks serializes mutating work per session ID so that at most one
// submit/complete/abandon runs at a time for a given session, while different
// sessions proceed in parallel. Entries are reference counted and removed
// when the last holder releases, so the map does not grow with session churn.
type SessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewSessionLocks() *SessionLocks {
	return &SessionLocks{locks: make(map[string]*sessionLock)}
}

// Acquire blocks until the lock for sessionID is held and returns the release
// function. The caller must invoke release exactly once, typically via defer.
func (l *SessionLocks) Acquire(sessionID string) (release func()) {
	l.mu.Lock()
	entry, ok := l.locks[sessionID]
	if !ok {
		entry = &sessionLock{}
		l.locks[sessionID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, sessionID)
		}
		l.mu.Unlock()
	}
}
