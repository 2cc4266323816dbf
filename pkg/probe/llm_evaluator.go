package probe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"brainstorm-be/internal/pkg/logger"
	"brainstorm-be/pkg/apperror"
	"brainstorm-be/pkg/llm"

	"github.com/go-playground/validator/v10"
)

const systemPrompt = `You review one branch of a design brainstorm.
Given the original request, the branch scope and the questions asked so far, decide whether the branch is sufficiently explored.
Reply with a single JSON object and nothing else.
If the branch is explored: {"done": true, "reason": "<the finding for this branch>"}
Otherwise: {"done": false, "reason": "<what is still unknown>", "question": {"type": "<question type>", "config": {"question": "...", ...}}}
If pending questions will answer what is missing, reply {"done": false, "reason": "..."} without a question.
Valid types: pick_one, pick_many, confirm, ask_text, slider, rank, rate, show_options, thumbs, emoji_react, ask_code, ask_image, ask_file, show_diff, show_plan, review_section.
pick_one, pick_many, rank, rate and show_options need "options": [{"id": "...", "label": "..."}].
Ask one question at a time, build on earlier answers, never repeat a question.`

// ProbeOptions tune the model call.
type ProbeOptions struct {
	Model        string   `validate:"omitempty"`
	Temperature  *float64 `validate:"omitempty,gte=0,lte=2"`
	MaxTokens    int      `validate:"omitempty,gte=1"`
	MaxQuestions int      `validate:"omitempty,gte=1"`
}

const defaultMaxQuestions = 15

// LLMEvaluator asks a chat model to judge the branch.
type LLMEvaluator struct {
	provider llm.LLMProvider
	opts     ProbeOptions
	logger   logger.ILogger
}

var validate = validator.New()

func NewLLMEvaluator(provider llm.LLMProvider, opts ProbeOptions, log logger.ILogger) (*LLMEvaluator, error) {
	if provider == nil {
		return nil, errors.New("probe: llm provider is required")
	}
	if err := validate.Struct(opts); err != nil {
		return nil, apperror.Wrap(apperror.KindInvalidInput, "NewLLMEvaluator", "", err)
	}
	if opts.MaxQuestions == 0 {
		opts.MaxQuestions = defaultMaxQuestions
	}
	return &LLMEvaluator{provider: provider, opts: opts, logger: log}, nil
}

func (e *LLMEvaluator) Evaluate(ctx context.Context, in EvaluationInput) (*Result, error) {
	answered, pending := SplitBranch(in.Branch)

	// hard stop so a chatty model cannot keep a branch open forever
	if len(in.Branch.Questions) >= e.opts.MaxQuestions && len(pending) == 0 {
		return &Result{Done: true, Finding: summarize(answered)}, nil
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "BRANCH SCOPE:\n%s\n\n", in.Branch.Scope)
	prompt.WriteString(BuildContext(in.Request, answered, pending))

	history := []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: prompt.String()},
	}

	reply, err := e.provider.Chat(ctx, history, e.callOptions()...)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperror.Wrap(apperror.KindTimeout, "Evaluate", in.Branch.ID, err)
		}
		return nil, fmt.Errorf("probe model call for branch %s: %w", in.Branch.ID, err)
	}

	res, err := ParseResponse(in.Branch.ID, reply)
	if err != nil {
		e.logger.Warn("Probe", "Unusable probe reply", map[string]interface{}{"branch_id": in.Branch.ID, "reply": reply})
		return nil, err
	}
	e.logger.Debug("Probe", "Branch evaluated", map[string]interface{}{"branch_id": in.Branch.ID, "done": res.Done, "reason": res.Reason})
	return res, nil
}

func (e *LLMEvaluator) callOptions() []llm.Option {
	var opts []llm.Option
	if e.opts.Model != "" {
		opts = append(opts, llm.WithModel(e.opts.Model))
	}
	if e.opts.Temperature != nil {
		opts = append(opts, llm.WithTemperature(*e.opts.Temperature))
	}
	if e.opts.MaxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(e.opts.MaxTokens))
	}
	return opts
}

// summarize joins "question: answer" lines.
func summarize(answered []QAPair) string {
	lines := make([]string, 0, len(answered))
	for _, qa := range answered {
		lines = append(lines, fmt.Sprintf("%s: %s", qa.Text, ExtractAnswerSummary(qa.Type, qa.Answer)))
	}
	return strings.Join(lines, "; ")
}
