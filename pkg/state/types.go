package state

import (
	"encoding/json"
	"time"

	"brainstorm-be/pkg/session"
)

type BranchStatus string

const (
	BranchExploring BranchStatus = "exploring"
	BranchDone      BranchStatus = "done"
)

// BranchQuestion duplicates what the question store knows so a branch can be
// replayed without it.
type BranchQuestion struct {
	ID         string                 `json:"id"`
	Type       session.QuestionType   `json:"type"`
	Text       string                 `json:"text"`
	Config     session.QuestionConfig `json:"config"`
	Answer     json.RawMessage        `json:"answer,omitempty"`
	AnsweredAt *time.Time             `json:"answered_at,omitempty"`
}

func (q BranchQuestion) Answered() bool {
	return q.Answer != nil
}

type Branch struct {
	ID        string           `json:"id"`
	Scope     string           `json:"scope"`
	Status    BranchStatus     `json:"status"`
	Questions []BranchQuestion `json:"questions"`
	Finding   *string          `json:"finding,omitempty"`
}

// Owns reports whether questionID belongs to the branch.
func (b *Branch) Owns(questionID string) bool {
	for _, q := range b.Questions {
		if q.ID == questionID {
			return true
		}
	}
	return false
}

// BrainstormSession is one brainstorm record. Version increments on every
// save and repositories refuse a save whose previous version is not the stored one.
type BrainstormSession struct {
	ID               string             `json:"id"`
	Request          string             `json:"request"`
	BrowserSessionID string             `json:"browser_session_id"`
	BranchOrder      []string           `json:"branch_order"`
	Branches         map[string]*Branch `json:"branches"`
	Version          int64              `json:"version"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// BranchOwning finds the branch holding questionID.
func (s *BrainstormSession) BranchOwning(questionID string) *Branch {
	for _, id := range s.BranchOrder {
		if b, ok := s.Branches[id]; ok && b.Owns(questionID) {
			return b
		}
	}
	return nil
}

// Complete reports whether every branch is done.
func (s *BrainstormSession) Complete() bool {
	for _, b := range s.Branches {
		if b.Status != BranchDone {
			return false
		}
	}
	return true
}

// OrderedBranches returns branches in creation order.
func (s *BrainstormSession) OrderedBranches() []*Branch {
	out := make([]*Branch, 0, len(s.BranchOrder))
	for _, id := range s.BranchOrder {
		if b, ok := s.Branches[id]; ok {
			out = append(out, b)
		}
	}
	return out
}

type BranchInput struct {
	ID              string
	Scope           string
	InitialQuestion BranchQuestion
}

// clone deep-copies through the record encoding, which is also what gets persisted.
func (s *BrainstormSession) clone() (*BrainstormSession, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var out BrainstormSession
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// checkVersion compares the encoded record a save would replace with the
// version being written. An empty stored record is version 0.
func checkVersion(stored []byte, next int64) error {
	var current struct {
		Version int64 `json:"version"`
	}
	if len(stored) > 0 {
		if err := json.Unmarshal(stored, &current); err != nil {
			return err
		}
	}
	if current.Version != next-1 {
		return ErrVersionConflict
	}
	return nil
}
