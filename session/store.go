package session

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	session  *Session
	lastUsed time.Time
}

// Store keeps sessions in memory and forgets the ones idle longer than ttl.
// A ttl of zero keeps sessions until they are deleted.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration
	now     func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		entries: make(map[string]*entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (st *Store) Now() time.Time {
	return st.now()
}

func (st *Store) Put(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.entries[s.ID] = &entry{session: s, lastUsed: st.now()}
}

// Get returns the session and marks it as used.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	e, exists := st.entries[id]
	if !exists {
		return nil, ErrSessionNotFound
	}
	now := st.now()
	if st.expired(e, now) {
		delete(st.entries, id)
		return nil, ErrSessionNotFound
	}
	e.lastUsed = now
	return e.session, nil
}

func (st *Store) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, exists := st.entries[id]; !exists {
		return ErrSessionNotFound
	}
	delete(st.entries, id)
	return nil
}

func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.entries)
}

// Sweep drops expired sessions and returns how many it removed.
func (st *Store) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	now := st.now()
	removed := 0
	for id, e := range st.entries {
		if st.expired(e, now) {
			delete(st.entries, id)
			removed++
		}
	}
	return removed
}

// RunSweeper sweeps every interval until ctx is done.
func (st *Store) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := st.Sweep(); n > 0 {
				logger.Debug().Int("removed", n).Msg("swept idle sessions")
			}
		}
	}
}

func (st *Store) expired(e *entry, now time.Time) bool {
	return st.ttl > 0 && now.Sub(e.lastUsed) > st.ttl
}
