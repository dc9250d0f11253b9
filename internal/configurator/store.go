package configurator

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

type entry struct {
	mu      sync.Mutex
	session *Session
	owner   uint
}

// Store keeps live sessions with a sliding expiry. Every entry carries its
// own mutex so a session is never driven by two requests at once.
type Store struct {
	sessions *gocache.Cache
	ttl      time.Duration
}

func NewStore(ttl time.Duration) *Store {
	cleanup := ttl / 2
	if ttl <= 0 {
		ttl, cleanup = gocache.NoExpiration, 0
	}
	c := gocache.New(ttl, cleanup)
	c.OnEvicted(func(_ string, v interface{}) {
		e := v.(*entry)
		e.mu.Lock()
		defer e.mu.Unlock()
		if !e.session.Closed() {
			_ = e.session.Cancel()
		}
	})
	return &Store{sessions: c, ttl: ttl}
}

func (st *Store) Put(id string, s *Session, owner uint) {
	st.sessions.Set(id, &entry{session: s, owner: owner}, gocache.DefaultExpiration)
}

// With runs fn on session id while holding its lock and refreshes its
// expiry unless the entry expired meanwhile. Sessions owned by another user are reported as not found. A
// session that fn closes is dropped from the store.
func (st *Store) With(id string, owner uint, fn func(*Session) error) error {
	v, ok := st.sessions.Get(id)
	if !ok {
		return ErrSessionNotFound
	}
	e := v.(*entry)
	if e.owner != 0 && e.owner != owner {
		return ErrSessionNotFound
	}

	e.mu.Lock()
	err := fn(e.session)
	closed := e.session.Closed()
	e.mu.Unlock()

	if closed {
		st.sessions.Delete(id)
		return err
	}
	// Replace fails when the entry was evicted while fn ran; the eviction
	// cancels the session, so it must not be put back.
	_ = st.sessions.Replace(id, e, gocache.DefaultExpiration)
	return err
}

func (st *Store) Len() int {
	return st.sessions.ItemCount()
}
