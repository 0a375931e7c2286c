package schedule

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hrygo/schedkit/plugin/ai/cache"
)

// ErrStaleResponse is returned when an agent reply arrives after a newer
// request was started in the same session. The reply is discarded.
var ErrStaleResponse = errors.New("stale agent response")

// Session orders the requests of one conversation. Each request takes a
// sequence number; only the reply to the latest request is used.
type Session struct {
	ID  string
	seq atomic.Uint64
}

// NewSession creates a session.
func NewSession(id string) *Session {
	return &Session{ID: id}
}

// Begin starts a request and returns its sequence number.
func (s *Session) Begin() uint64 {
	return s.seq.Add(1)
}

// IsLatest reports whether seq belongs to the most recent request.
func (s *Session) IsLatest(seq uint64) bool {
	return s.seq.Load() == seq
}

// SessionRegistry keeps recently used sessions in memory, keyed by user and
// session id. Idle sessions expire after the registry TTL.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions *cache.TTLCache[*Session]
}

// NewSessionRegistry creates a registry holding up to capacity sessions.
func NewSessionRegistry(capacity int, ttl time.Duration) *SessionRegistry {
	return &SessionRegistry{sessions: cache.NewTTLCache[*Session](capacity, ttl)}
}

// Get returns the session for key, creating it when absent or expired.
func (r *SessionRegistry) Get(key string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions.Get(key); ok {
		// Refresh the expiry on use.
		r.sessions.Set(key, s)
		return s
	}
	s := NewSession(key)
	r.sessions.Set(key, s)
	return s
}

// Sweep drops expired sessions and returns how many were removed.
func (r *SessionRegistry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions.CleanupExpired()
}
