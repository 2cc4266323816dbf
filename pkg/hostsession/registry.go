// Package hostsession remembers which sessions were opened under which host
// conversation so they can be torn down together.
package hostsession

import (
	"sort"
	"sync"
)

type Kind string

const (
	KindBrainstorm Kind = "brainstorm"
	KindSession    Kind = "session"
)

type Entry struct {
	Kind Kind
	ID   string
}

// Registry is owned by whoever wires the service; there is no package-level instance.
type Registry struct {
	mu     sync.Mutex
	byHost map[string]map[Entry]struct{}
	owner  map[Entry]string
}

func NewRegistry() *Registry {
	return &Registry{
		byHost: make(map[string]map[Entry]struct{}),
		owner:  make(map[Entry]string),
	}
}

// Track associates e with host. Calls without a host are ignored.
func (r *Registry) Track(host string, e Entry) {
	if host == "" || e.ID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.owner[e]; ok && prev != host {
		r.remove(prev, e)
	}
	set, ok := r.byHost[host]
	if !ok {
		set = make(map[Entry]struct{})
		r.byHost[host] = set
	}
	set[e] = struct{}{}
	r.owner[e] = host
}

// Untrack forgets e, typically after it was ended explicitly.
func (r *Registry) Untrack(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if host, ok := r.owner[e]; ok {
		r.remove(host, e)
	}
}

// Take removes and returns everything tracked under host, brainstorms first.
func (r *Registry) Take(host string) []Entry {
	r.mu.Lock()
	set := r.byHost[host]
	delete(r.byHost, host)
	out := make([]Entry, 0, len(set))
	for e := range set {
		delete(r.owner, e)
		out = append(out, e)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind == KindBrainstorm
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// HostOf returns the host e was tracked under.
func (r *Registry) HostOf(e Entry) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	host, ok := r.owner[e]
	return host, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.owner)
}

// caller holds r.mu
func (r *Registry) remove(host string, e Entry) {
	delete(r.owner, e)
	if set, ok := r.byHost[host]; ok {
		delete(set, e)
		if len(set) == 0 {
			delete(r.byHost, host)
		}
	}
}
