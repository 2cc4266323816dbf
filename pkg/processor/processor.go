// Package processor advances brainstorm branches as answers arrive.
package processor

import (
	"context"
	"errors"
	"strings"

	"brainstorm-be/internal/pkg/logger"
	"brainstorm-be/pkg/apperror"
	"brainstorm-be/pkg/keylock"
	"brainstorm-be/pkg/probe"
	"brainstorm-be/pkg/session"
	"brainstorm-be/pkg/state"
)

const (
	followUpPlaceholder = "Follow-up question"
	noFinding           = "No finding"
)

// QuestionStore is the part of the session store the processor writes to.
type QuestionStore interface {
	RecordAnswer(ctx context.Context, sessionID, questionID string, answer []byte) error
	PushQuestion(ctx context.Context, sessionID string, qType session.QuestionType, config session.QuestionConfig) (string, error)
}

// StateStore is the part of the branch state manager the processor uses.
type StateStore interface {
	GetSession(ctx context.Context, id string) (*state.BrainstormSession, error)
	RecordAnswer(ctx context.Context, id, questionID string, answer []byte) error
	AddQuestionToBranch(ctx context.Context, id, branchID string, q state.BranchQuestion) error
	CompleteBranch(ctx context.Context, id, branchID, finding string) (bool, error)
}

// EventPublisher is told when a branch moves forward. It runs on the answer path.
type EventPublisher interface {
	BranchCompleted(ctx context.Context, brainstormID, branchID, finding string)
	QuestionPushed(ctx context.Context, brainstormID, branchID, questionID string)
}

type Action string

const (
	ActionIgnored        Action = "ignored"
	ActionWaiting        Action = "waiting"
	ActionCompleted      Action = "completed"
	ActionQuestionPushed Action = "question_pushed"
)

// Outcome describes what one answer event did to its branch.
type Outcome struct {
	Action     Action
	BranchID   string
	QuestionID string
	Finding    string
}

type Option func(*Processor)

func WithEventPublisher(p EventPublisher) Option {
	return func(pr *Processor) { pr.events = p }
}

type Processor struct {
	questions QuestionStore
	states    StateStore
	evaluator probe.Evaluator
	events    EventPublisher
	branches  *keylock.Locker
	logger    logger.ILogger
}

func New(questions QuestionStore, states StateStore, evaluator probe.Evaluator, log logger.ILogger, opts ...Option) *Processor {
	p := &Processor{
		questions: questions,
		states:    states,
		evaluator: evaluator,
		branches:  keylock.New(),
		logger:    log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// LockBranch serializes work on one branch with the answer pipeline.
func (p *Processor) LockBranch(brainstormID, branchID string) (unlock func()) {
	return p.branches.Lock(brainstormID + "/" + branchID)
}

// HandleAnswer records a browser answer in the question store and then
// advances the brainstorm that owns it.
func (p *Processor) HandleAnswer(ctx context.Context, brainstormID, browserSessionID, questionID string, answer []byte) (Outcome, error) {
	if err := p.questions.RecordAnswer(ctx, browserSessionID, questionID, answer); err != nil {
		if errors.Is(err, apperror.ErrAlreadyAnswered) {
			p.logger.Warn("Processor", "Duplicate answer delivery", map[string]interface{}{
				"brainstorm_id": brainstormID,
				"question_id":   questionID,
			})
		}
		return Outcome{Action: ActionIgnored}, err
	}
	return p.Process(ctx, brainstormID, browserSessionID, questionID, answer)
}

// Process applies one answer to the brainstorm state and asks the evaluator
// what the owning branch needs next. Answers for unknown brainstorms, unknown
// questions or finished branches are ignored.
func (p *Processor) Process(ctx context.Context, brainstormID, browserSessionID, questionID string, answer []byte) (Outcome, error) {
	ignored := Outcome{Action: ActionIgnored, QuestionID: questionID}

	s, err := p.states.GetSession(ctx, brainstormID)
	if err != nil {
		return ignored, err
	}
	if s == nil {
		p.logger.Debug("Processor", "Answer for unknown brainstorm", map[string]interface{}{"brainstorm_id": brainstormID, "question_id": questionID})
		return ignored, nil
	}
	owner := s.BranchOwning(questionID)
	if owner == nil || owner.Status == state.BranchDone {
		return ignored, nil
	}
	branchID := owner.ID
	ignored.BranchID = branchID

	unlock := p.LockBranch(brainstormID, branchID)
	defer unlock()

	if err := p.states.RecordAnswer(ctx, brainstormID, questionID, answer); err != nil {
		p.logger.Error("Processor", "Failed to record answer on branch", map[string]interface{}{
			"brainstorm_id": brainstormID,
			"branch_id":     branchID,
			"question_id":   questionID,
			"error":         err,
		})
		return ignored, err
	}

	s, err = p.states.GetSession(ctx, brainstormID)
	if err != nil {
		return ignored, err
	}
	if s == nil {
		return ignored, nil
	}
	branch, ok := s.Branches[branchID]
	// completed while we waited for the branch lock
	if !ok || branch.Status == state.BranchDone {
		return ignored, nil
	}

	res, err := p.evaluator.Evaluate(ctx, probe.EvaluationInput{Request: s.Request, Branch: *branch})
	if err == nil {
		err = probe.ValidateResult(branchID, res)
	}
	if err != nil {
		p.logger.Error("Processor", "Branch evaluation failed", map[string]interface{}{
			"brainstorm_id": brainstormID,
			"branch_id":     branchID,
			"error":         err,
		})
		return ignored, err
	}

	switch {
	case res.Done:
		return p.complete(ctx, brainstormID, branchID, res.Finding)
	case res.Waiting:
		return Outcome{Action: ActionWaiting, BranchID: branchID, QuestionID: questionID}, nil
	}

	sessionID := browserSessionID
	if sessionID == "" {
		sessionID = s.BrowserSessionID
	}
	return p.pushFollowUp(ctx, brainstormID, sessionID, branch, res.Question)
}

func (p *Processor) complete(ctx context.Context, brainstormID, branchID, finding string) (Outcome, error) {
	if strings.TrimSpace(finding) == "" {
		finding = noFinding
	}
	changed, err := p.states.CompleteBranch(ctx, brainstormID, branchID, finding)
	if err != nil || !changed {
		return Outcome{Action: ActionIgnored, BranchID: branchID}, err
	}
	p.logger.Info("Processor", "Branch completed", map[string]interface{}{"brainstorm_id": brainstormID, "branch_id": branchID})
	if p.events != nil {
		p.events.BranchCompleted(ctx, brainstormID, branchID, finding)
	}
	return Outcome{Action: ActionCompleted, BranchID: branchID, Finding: finding}, nil
}

func (p *Processor) pushFollowUp(ctx context.Context, brainstormID, sessionID string, branch *state.Branch, q *probe.NextQuestion) (Outcome, error) {
	text := QuestionText(q.Config)
	config := ScopeConfig(branch.Scope, q.Config)

	questionID, err := p.questions.PushQuestion(ctx, sessionID, q.Type, config)
	if err != nil {
		return Outcome{Action: ActionIgnored, BranchID: branch.ID}, err
	}
	err = p.states.AddQuestionToBranch(ctx, brainstormID, branch.ID, state.BranchQuestion{
		ID:     questionID,
		Type:   q.Type,
		Text:   text,
		Config: config,
	})
	if err != nil {
		return Outcome{Action: ActionIgnored, BranchID: branch.ID, QuestionID: questionID}, err
	}

	p.logger.Info("Processor", "Follow-up question pushed", map[string]interface{}{
		"brainstorm_id": brainstormID,
		"branch_id":     branch.ID,
		"question_id":   questionID,
	})
	if p.events != nil {
		p.events.QuestionPushed(ctx, brainstormID, branch.ID, questionID)
	}
	return Outcome{Action: ActionQuestionPushed, BranchID: branch.ID, QuestionID: questionID}, nil
}

// QuestionText is the display text of a branch question.
func QuestionText(config session.QuestionConfig) string {
	if text, ok := config.Text(); ok {
		return text
	}
	return followUpPlaceholder
}

// ScopeConfig returns a copy of config whose context starts with "[scope]".
func ScopeConfig(scope string, config session.QuestionConfig) session.QuestionConfig {
	out := config.Clone()
	if out == nil {
		out = session.QuestionConfig{}
	}
	existing, _ := out["context"].(string)
	out["context"] = strings.TrimSpace("[" + scope + "] " + existing)
	return out
}
