package waiter

import "sync"

// Registry holds pending callbacks grouped by key.
//
// Every registration gets a process-unique sequence number. Entries live in a
// per-key slot table indexed by that number, so a cancel handle removes its own
// entry in O(1) and never touches a waiter registered after it.
type Registry[K comparable, V any] struct {
	mu    sync.Mutex
	seq   uint64
	slots map[K]*slot[V]
}

type slot[V any] struct {
	order   []uint64
	entries map[uint64]func(V)
}

func New[K comparable, V any]() *Registry[K, V] {
	return &Registry[K, V]{slots: make(map[K]*slot[V])}
}

// Register adds cb under key and returns a handle that removes exactly this waiter.
// The handle is safe to call more than once.
func (r *Registry[K, V]) Register(key K, cb func(V)) (cancel func()) {
	r.mu.Lock()
	r.seq++
	id := r.seq
	s, ok := r.slots[key]
	if !ok {
		s = &slot[V]{entries: make(map[uint64]func(V))}
		r.slots[key] = s
	}
	s.order = append(s.order, id)
	s.entries[id] = cb
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		s, ok := r.slots[key]
		if !ok {
			return
		}
		if _, live := s.entries[id]; !live {
			return
		}
		delete(s.entries, id)
		if len(s.entries) == 0 {
			delete(r.slots, key)
			return
		}
		if len(s.order) > 2*len(s.entries)+compactSlack {
			s.compact()
		}
	}
}

const compactSlack = 16

// compact drops cancelled ids from the order list.
func (s *slot[V]) compact() {
	live := s.order[:0]
	for _, id := range s.order {
		if _, ok := s.entries[id]; ok {
			live = append(live, id)
		}
	}
	s.order = live
}

// NotifyFirst invokes the oldest live waiter for key and removes it.
// It reports whether a waiter was invoked.
func (r *Registry[K, V]) NotifyFirst(key K, value V) bool {
	r.mu.Lock()
	s, ok := r.slots[key]
	if !ok {
		r.mu.Unlock()
		return false
	}
	var cb func(V)
	for len(s.order) > 0 {
		id := s.order[0]
		s.order = s.order[1:]
		if fn, live := s.entries[id]; live {
			delete(s.entries, id)
			cb = fn
			break
		}
	}
	if len(s.entries) == 0 {
		delete(r.slots, key)
	}
	r.mu.Unlock()

	if cb == nil {
		return false
	}
	cb(value)
	return true
}

// NotifyAll invokes every waiter for key in registration order and drops the key.
// It returns the number of waiters invoked.
func (r *Registry[K, V]) NotifyAll(key K, value V) int {
	r.mu.Lock()
	s, ok := r.slots[key]
	if !ok {
		r.mu.Unlock()
		return 0
	}
	delete(r.slots, key)
	cbs := make([]func(V), 0, len(s.entries))
	for _, id := range s.order {
		if fn, live := s.entries[id]; live {
			cbs = append(cbs, fn)
		}
	}
	r.mu.Unlock()

	for _, cb := range cbs {
		cb(value)
	}
	return len(cbs)
}

func (r *Registry[K, V]) HasWaiters(key K) bool {
	return r.Count(key) > 0
}

func (r *Registry[K, V]) Count(key K) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.slots[key]; ok {
		return len(s.entries)
	}
	return 0
}

// Clear drops every waiter for key without invoking them.
func (r *Registry[K, V]) Clear(key K) {
	r.mu.Lock()
	delete(r.slots, key)
	r.mu.Unlock()
}
