package viewer

import (
	"crypto/sha256"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

var sessionSeq atomic.Uint64

// NewSessionID returns a fresh opaque session identifier.
func NewSessionID() string {
	h := sha256.Sum256(fmt.Appendf(nil, "session-%d-%d", time.Now().UnixNano(), sessionSeq.Add(1)))
	return fmt.Sprintf("%x", h[:])[:20]
}

// Store is a thread-safe session registry with idle-TTL eviction.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	max      int
	log      *slog.Logger
}

func NewStore(ttl time.Duration, max int, log *slog.Logger) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		max:      max,
		log:      log,
	}
}

// Add registers a session, enforcing the session cap.
func (st *Store) Add(s *Session) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.sessions) >= st.max {
		return fmt.Errorf("session limit reached (%d)", st.max)
	}
	st.sessions[s.ID] = s
	return nil
}

// Get returns a session by ID, or nil.
func (st *Store) Get(id string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.sessions[id]
}

// Remove unregisters and returns the session, or nil. The caller
// closes it outside the store lock.
func (st *Store) Remove(id string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	s := st.sessions[id]
	delete(st.sessions, id)
	return s
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Cleanup evicts and closes sessions idle past the TTL.
func (st *Store) Cleanup() {
	now := time.Now()

	st.mu.Lock()
	var expired []*Session
	for id, s := range st.sessions {
		if now.Sub(s.LastActive()) > st.ttl {
			delete(st.sessions, id)
			expired = append(expired, s)
		}
	}
	st.mu.Unlock()

	for _, s := range expired {
		st.log.Info("evicting idle session", "session_id", s.ID)
		s.Close()
	}
}

// CloseAll closes every session, for shutdown.
func (st *Store) CloseAll() {
	st.mu.Lock()
	all := make([]*Session, 0, len(st.sessions))
	for id, s := range st.sessions {
		delete(st.sessions, id)
		all = append(all, s)
	}
	st.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
}
