package state

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryRepository keeps encoded records in a map. Records are stored as bytes
// so callers never share pointers with the repository.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string][]byte
	loads   int
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string][]byte)}
}

func (r *MemoryRepository) Load(ctx context.Context, id string) (*BrainstormSession, error) {
	r.mu.Lock()
	r.loads++
	data, ok := r.records[id]
	r.mu.Unlock()
	if !ok {
		return nil, nil
	}
	var s BrainstormSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *MemoryRepository) Save(ctx context.Context, s *BrainstormSession) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := checkVersion(r.records[s.ID], s.Version); err != nil {
		return err
	}
	r.records[s.ID] = data
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	delete(r.records, id)
	r.mu.Unlock()
	return nil
}

// Loads counts Load calls, used to observe lazy loading.
func (r *MemoryRepository) Loads() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loads
}
