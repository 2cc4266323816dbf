package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"brainstorm-be/internal/pkg/logger"
	"brainstorm-be/pkg/apperror"
	"brainstorm-be/pkg/keylock"

	"github.com/google/uuid"
)

// Repository persists one self-contained record per brainstorm id.
// Load returns nil, nil when no record exists. Save writes s only when the
// stored record is at s.Version-1 (absent counts as 0) and returns
// ErrVersionConflict otherwise.
type Repository interface {
	Load(ctx context.Context, id string) (*BrainstormSession, error)
	Save(ctx context.Context, s *BrainstormSession) error
	Delete(ctx context.Context, id string) error
}

// ErrVersionConflict means the record changed since it was read.
var ErrVersionConflict = errors.New("state: record changed concurrently")

// errNoop tells update to skip the write.
var errNoop = errors.New("state: no change")

const maxSaveAttempts = 5

type ManagerOption func(*Manager)

// WithSharedRepository makes every read go to the repository. Use it when
// other processes write the same records.
func WithSharedRepository() ManagerOption {
	return func(m *Manager) { m.shared = true }
}

// Manager tracks branch progress. Records are loaded lazily on first access and
// every read-modify-write of one id is serialized; different ids run in parallel.
// Writes from other managers are detected through the record version.
type Manager struct {
	repo   Repository
	locks  *keylock.Locker
	mu     sync.RWMutex
	cache  map[string]*BrainstormSession
	shared bool
	logger logger.ILogger
}

func NewManager(repo Repository, log logger.ILogger, opts ...ManagerOption) *Manager {
	m := &Manager{
		repo:   repo,
		locks:  keylock.New(),
		cache:  make(map[string]*BrainstormSession),
		logger: log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func newSessionID() string {
	return "ses_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func (m *Manager) CreateBrainstorm(ctx context.Context, request, browserSessionID string, branches []BranchInput) (string, error) {
	if len(branches) == 0 {
		return "", apperror.InvalidInput("CreateBrainstorm", "", "at least one branch is required")
	}

	now := time.Now()
	s := &BrainstormSession{
		ID:               newSessionID(),
		Request:          request,
		BrowserSessionID: browserSessionID,
		Branches:         make(map[string]*Branch, len(branches)),
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	for _, in := range branches {
		if in.ID == "" {
			return "", apperror.InvalidInput("CreateBrainstorm", "", "branch id is required")
		}
		if _, dup := s.Branches[in.ID]; dup {
			return "", apperror.InvalidInput("CreateBrainstorm", in.ID, "duplicate branch id")
		}
		first := in.InitialQuestion
		first.Config = first.Config.Clone()
		s.Branches[in.ID] = &Branch{
			ID:        in.ID,
			Scope:     in.Scope,
			Status:    BranchExploring,
			Questions: []BranchQuestion{first},
		}
		s.BranchOrder = append(s.BranchOrder, in.ID)
	}

	unlock := m.locks.Lock(s.ID)
	defer unlock()

	if err := m.repo.Save(ctx, s); err != nil {
		return "", fmt.Errorf("save brainstorm %s: %w", s.ID, err)
	}
	m.put(s)

	m.logger.Info("StateManager", "Brainstorm created", map[string]interface{}{"session_id": s.ID, "branches": len(branches)})
	return s.ID, nil
}

// GetSession returns a copy of the record, or nil when it does not exist.
func (m *Manager) GetSession(ctx context.Context, id string) (*BrainstormSession, error) {
	unlock := m.locks.Lock(id)
	defer unlock()

	s, err := m.load(ctx, id)
	if err != nil || s == nil {
		return nil, err
	}
	return s.clone()
}

// RecordAnswer stores the answer on the branch owning questionID. Unknown
// sessions, unknown questions and finished branches are ignored.
func (m *Manager) RecordAnswer(ctx context.Context, id, questionID string, answer []byte) error {
	_, err := m.update(ctx, id, func(s *BrainstormSession) error {
		b := s.BranchOwning(questionID)
		if b == nil || b.Status == BranchDone {
			return errNoop
		}
		now := time.Now()
		for i := range b.Questions {
			if b.Questions[i].ID == questionID {
				b.Questions[i].Answer = append([]byte(nil), answer...)
				b.Questions[i].AnsweredAt = &now
				return nil
			}
		}
		return errNoop
	}, false)
	return err
}

func (m *Manager) AddQuestionToBranch(ctx context.Context, id, branchID string, q BranchQuestion) error {
	_, err := m.update(ctx, id, func(s *BrainstormSession) error {
		b, ok := s.Branches[branchID]
		if !ok {
			return apperror.NotFound("AddQuestionToBranch", branchID, "branch not found")
		}
		if b.Status == BranchDone {
			return apperror.InvalidInput("AddQuestionToBranch", branchID, "branch is already done")
		}
		q.Config = q.Config.Clone()
		b.Questions = append(b.Questions, q)
		return nil
	}, true)
	return err
}

// CompleteBranch marks the branch done with finding and reports whether it
// did. A branch that is already done keeps its first finding.
func (m *Manager) CompleteBranch(ctx context.Context, id, branchID, finding string) (bool, error) {
	return m.update(ctx, id, func(s *BrainstormSession) error {
		b, ok := s.Branches[branchID]
		if !ok {
			return apperror.NotFound("CompleteBranch", branchID, "branch not found")
		}
		if b.Status == BranchDone {
			return errNoop
		}
		f := finding
		b.Finding = &f
		b.Status = BranchDone
		return nil
	}, true)
}

func (m *Manager) DeleteSession(ctx context.Context, id string) error {
	unlock := m.locks.Lock(id)
	defer unlock()

	if err := m.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete brainstorm %s: %w", id, err)
	}
	m.forget(id)
	return nil
}

// update runs fn on a working copy under the id lock and persists the result,
// reporting whether anything was written. A save that loses to another writer
// is retried on a fresh copy. With strict set a missing session is NotFound,
// otherwise it is ignored.
func (m *Manager) update(ctx context.Context, id string, fn func(*BrainstormSession) error, strict bool) (bool, error) {
	unlock := m.locks.Lock(id)
	defer unlock()

	for attempt := 1; ; attempt++ {
		current, err := m.load(ctx, id)
		if err != nil {
			return false, err
		}
		if current == nil {
			if strict {
				return false, apperror.NotFound("state", id, "brainstorm session not found")
			}
			return false, nil
		}

		work, err := current.clone()
		if err != nil {
			return false, err
		}
		if err := fn(work); err != nil {
			if errors.Is(err, errNoop) {
				return false, nil
			}
			return false, err
		}
		work.Version = current.Version + 1
		work.UpdatedAt = time.Now()

		err = m.repo.Save(ctx, work)
		if errors.Is(err, ErrVersionConflict) && attempt < maxSaveAttempts {
			m.forget(id)
			m.logger.Debug("StateManager", "Stale brainstorm record, retrying", map[string]interface{}{"session_id": id, "attempt": attempt})
			continue
		}
		if err != nil {
			return false, fmt.Errorf("save brainstorm %s: %w", id, err)
		}
		m.put(work)
		return true, nil
	}
}

// load returns the cached record, reading it from the repository on first use
// or always when the repository is shared. Caller holds the id lock.
func (m *Manager) load(ctx context.Context, id string) (*BrainstormSession, error) {
	if !m.shared {
		m.mu.RLock()
		s, ok := m.cache[id]
		m.mu.RUnlock()
		if ok {
			return s, nil
		}
	}

	s, err := m.repo.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load brainstorm %s: %w", id, err)
	}
	if s == nil {
		return nil, nil
	}
	m.put(s)
	m.logger.Debug("StateManager", "Brainstorm loaded from storage", map[string]interface{}{"session_id": id})
	return s, nil
}

func (m *Manager) put(s *BrainstormSession) {
	if m.shared {
		return
	}
	m.mu.Lock()
	m.cache[s.ID] = s
	m.mu.Unlock()
}

func (m *Manager) forget(id string) {
	m.mu.Lock()
	delete(m.cache, id)
	m.mu.Unlock()
}
