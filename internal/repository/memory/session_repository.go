package memory

import (
	"sync"
	"time"

	"brainstorm-be/pkg/session"

	"github.com/patrickmn/go-cache"
)

// SessionRepository keeps live question sessions in process memory.
// With an idle TTL a session expires after that long without being read or
// written; zero keeps sessions until they are deleted.
type SessionRepository struct {
	cache    *cache.Cache
	expiring bool

	// ids being removed through Delete, which go-cache also reports as evictions
	deleting sync.Map

	mu        sync.RWMutex
	onExpired func(*session.Session)
}

func NewSessionRepository(idleTTL, cleanupInterval time.Duration) *SessionRepository {
	expiring := idleTTL > 0
	if !expiring {
		idleTTL = cache.NoExpiration
	} else if cleanupInterval <= 0 {
		cleanupInterval = idleTTL
	}
	r := &SessionRepository{
		cache:    cache.New(idleTTL, cleanupInterval),
		expiring: expiring,
	}
	r.cache.OnEvicted(r.evicted)
	return r
}

// OnExpired registers fn to run, on its own goroutine, for every session
// dropped by the idle TTL. Explicit deletes are not reported.
func (r *SessionRepository) OnExpired(fn func(*session.Session)) {
	r.mu.Lock()
	r.onExpired = fn
	r.mu.Unlock()
}

func (r *SessionRepository) Save(s *session.Session) {
	r.cache.Set(s.ID, s, cache.DefaultExpiration)
}

// Get counts as activity and restarts the idle timer. A miss sweeps expired
// sessions so their teardown does not wait for the janitor.
func (r *SessionRepository) Get(sessionID string) (*session.Session, bool) {
	x, found := r.cache.Get(sessionID)
	if !found {
		if r.expiring {
			r.cache.DeleteExpired()
		}
		return nil, false
	}
	s := x.(*session.Session)
	if r.expiring {
		r.cache.Set(sessionID, s, cache.DefaultExpiration)
	}
	return s, true
}

func (r *SessionRepository) Delete(sessionID string) {
	r.deleting.Store(sessionID, struct{}{})
	r.cache.Delete(sessionID)
	r.deleting.Delete(sessionID)
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}

func (r *SessionRepository) evicted(sessionID string, x interface{}) {
	if _, ok := r.deleting.Load(sessionID); ok {
		return
	}
	r.mu.RLock()
	fn := r.onExpired
	r.mu.RUnlock()

	s, ok := x.(*session.Session)
	if fn == nil || !ok {
		return
	}
	go fn(s)
}
