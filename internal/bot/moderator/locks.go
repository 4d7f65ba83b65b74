package moderator

import "sync"

// reviewLocks serializes interactions referencing the same review id, so a
// rapid double-click cannot race two side effects against the backend.
// Entries are created lazily and reaped as soon as no interaction holds or
// awaits them.
type reviewLocks struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newReviewLocks() *reviewLocks {
	return &reviewLocks{entries: make(map[string]*lockEntry)}
}

// Lock acquires the lock for a review id and returns its release func.
func (l *reviewLocks) Lock(reviewID string) (unlock func()) {
	l.mu.Lock()
	entry, ok := l.entries[reviewID]
	if !ok {
		entry = &lockEntry{}
		l.entries[reviewID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, reviewID)
		}
		l.mu.Unlock()
	}
}
