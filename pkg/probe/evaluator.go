// Package probe decides, for one branch, whether exploration is finished or
// which question to ask next.
package probe

import (
	"context"

	"brainstorm-be/pkg/apperror"
	"brainstorm-be/pkg/session"
	"brainstorm-be/pkg/state"
)

type EvaluationInput struct {
	Request string
	Branch  state.Branch
}

type NextQuestion struct {
	Type   session.QuestionType   `json:"type"`
	Config session.QuestionConfig `json:"config"`
}

// Result is either a finding (Done) or a follow-up question. Waiting means the
// evaluator wants the branch's pending questions answered first.
type Result struct {
	Done     bool
	Finding  string
	Question *NextQuestion
	Waiting  bool
	Reason   string
}

type Evaluator interface {
	Evaluate(ctx context.Context, in EvaluationInput) (*Result, error)
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(ctx context.Context, in EvaluationInput) (*Result, error)

func (f EvaluatorFunc) Evaluate(ctx context.Context, in EvaluationInput) (*Result, error) {
	return f(ctx, in)
}

// ValidateResult rejects results the orchestrator cannot act on.
func ValidateResult(branchID string, r *Result) error {
	const op = "Evaluate"
	if r == nil {
		return apperror.ContractViolation(op, branchID, "evaluator returned no result")
	}
	if r.Done {
		return nil
	}
	if r.Question == nil {
		if r.Waiting {
			return nil
		}
		return apperror.ContractViolation(op, branchID, "result has neither a finding nor a next question")
	}
	if !r.Question.Type.IsValid() {
		return apperror.ContractViolation(op, branchID, "next question has unknown type "+string(r.Question.Type))
	}
	if r.Question.Config == nil {
		return apperror.ContractViolation(op, branchID, "next question has no config")
	}
	if err := session.ValidateQuestion(op, r.Question.Type, r.Question.Config); err != nil {
		return apperror.ContractViolation(op, branchID, err.Error())
	}
	return nil
}
