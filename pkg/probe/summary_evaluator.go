package probe

import "context"

// SummaryEvaluator needs no model. A branch is done once it has at least
// MinAnswers answered questions and nothing pending; the finding joins the
// answer summaries. It never asks follow-up questions.
type SummaryEvaluator struct {
	MinAnswers int
}

func NewSummaryEvaluator(minAnswers int) *SummaryEvaluator {
	if minAnswers < 1 {
		minAnswers = 1
	}
	return &SummaryEvaluator{MinAnswers: minAnswers}
}

func (e *SummaryEvaluator) Evaluate(ctx context.Context, in EvaluationInput) (*Result, error) {
	answered, pending := SplitBranch(in.Branch)
	if len(pending) > 0 || len(answered) < e.MinAnswers {
		return &Result{Waiting: true, Reason: "waiting for more answers"}, nil
	}
	return &Result{Done: true, Finding: summarize(answered)}, nil
}
