package processor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"brainstorm-be/internal/pkg/logger"
	"brainstorm-be/internal/repository/memory"
	"brainstorm-be/pkg/apperror"
	"brainstorm-be/pkg/probe"
	"brainstorm-be/pkg/session"
	"brainstorm-be/pkg/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordedEvents struct {
	mu        sync.Mutex
	completed []string
	pushed    []string
}

func (r *recordedEvents) BranchCompleted(ctx context.Context, brainstormID, branchID, finding string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, branchID+"="+finding)
}

func (r *recordedEvents) QuestionPushed(ctx context.Context, brainstormID, branchID, questionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushed = append(r.pushed, branchID)
}

type fixture struct {
	store      *session.Store
	states     *state.Manager
	events     *recordedEvents
	proc       *Processor
	browserID  string
	brainstorm string
	firstQ     map[string]string
}

func newFixture(t *testing.T, eval probe.Evaluator) *fixture {
	t.Helper()
	ctx := context.Background()
	log := logger.NewNopLogger()

	f := &fixture{
		store:  session.NewStore(memory.NewSessionRepository(0, 0), log),
		states: state.NewManager(state.NewMemoryRepository(), log),
		events: &recordedEvents{},
		firstQ: map[string]string{},
	}
	f.proc = New(f.store, f.states, eval, log, WithEventPublisher(f.events))

	var err error
	f.browserID, err = f.store.StartSession(ctx, session.Meta{Title: "Brainstorm"})
	require.NoError(t, err)

	var inputs []state.BranchInput
	for _, b := range []struct{ id, scope, text string }{
		{"services", "Which services to monitor", "Which services?"},
		{"format", "Report format", "Which format?"},
	} {
		cfg := session.QuestionConfig{"question": b.text, "context": "[" + b.scope + "]"}
		qid, err := f.store.PushQuestion(ctx, f.browserID, session.TypeAskText, cfg)
		require.NoError(t, err)
		f.firstQ[b.id] = qid
		inputs = append(inputs, state.BranchInput{
			ID:              b.id,
			Scope:           b.scope,
			InitialQuestion: state.BranchQuestion{ID: qid, Type: session.TypeAskText, Text: b.text, Config: cfg},
		})
	}
	f.brainstorm, err = f.states.CreateBrainstorm(ctx, "Build a monitoring dashboard", f.browserID, inputs)
	require.NoError(t, err)
	return f
}

func (f *fixture) branch(t *testing.T, id string) *state.Branch {
	t.Helper()
	s, err := f.states.GetSession(context.Background(), f.brainstorm)
	require.NoError(t, err)
	require.NotNil(t, s)
	return s.Branches[id]
}

func doneWith(finding string) probe.Evaluator {
	return probe.EvaluatorFunc(func(ctx context.Context, in probe.EvaluationInput) (*probe.Result, error) {
		return &probe.Result{Done: true, Finding: finding}, nil
	})
}

func TestAnswerCompletesBranch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, doneWith("Monitor PostgreSQL and Redis"))

	out, err := f.proc.HandleAnswer(ctx, f.brainstorm, f.browserID, f.firstQ["services"], []byte(`{"text":"postgres, redis"}`))
	require.NoError(t, err)
	assert.Equal(t, ActionCompleted, out.Action)
	assert.Equal(t, "services", out.BranchID)

	b := f.branch(t, "services")
	assert.Equal(t, state.BranchDone, b.Status)
	assert.Equal(t, "Monitor PostgreSQL and Redis", *b.Finding)
	assert.JSONEq(t, `{"text":"postgres, redis"}`, string(b.Questions[0].Answer))

	// branch isolation
	assert.Equal(t, state.BranchExploring, f.branch(t, "format").Status)
	assert.Equal(t, []string{"services=Monitor PostgreSQL and Redis"}, f.events.completed)

	// nothing new reached the browser
	pending, _ := f.store.PendingQuestions(f.browserID)
	assert.Len(t, pending, 1)
}

func TestEmptyFindingIsStoredAsNoFinding(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, doneWith("  "))

	out, err := f.proc.HandleAnswer(ctx, f.brainstorm, f.browserID, f.firstQ["format"], []byte(`{"text":"whatever"}`))
	require.NoError(t, err)
	assert.Equal(t, ActionCompleted, out.Action)
	assert.Equal(t, "No finding", out.Finding)
	assert.Equal(t, "No finding", *f.branch(t, "format").Finding)
	assert.Equal(t, []string{"format=No finding"}, f.events.completed)
}

func TestLockBranchHoldsOffTheAnswerPipeline(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, doneWith("from answer"))

	unlock := f.proc.LockBranch(f.brainstorm, "services")
	done := make(chan Outcome, 1)
	go func() {
		out, _ := f.proc.HandleAnswer(ctx, f.brainstorm, f.browserID, f.firstQ["services"], []byte(`{"text":"x"}`))
		done <- out
	}()

	select {
	case <-done:
		t.Fatal("answer was processed while the branch was locked")
	case <-time.After(50 * time.Millisecond):
	}
	_, err := f.states.CompleteBranch(ctx, f.brainstorm, "services", "manual")
	require.NoError(t, err)
	unlock()

	out := <-done
	assert.Equal(t, ActionIgnored, out.Action)
	assert.Equal(t, "manual", *f.branch(t, "services").Finding)
	assert.Empty(t, f.events.completed)
}

func TestAnswerPushesScopedFollowUp(t *testing.T) {
	ctx := context.Background()
	var seen probe.EvaluationInput
	eval := probe.EvaluatorFunc(func(ctx context.Context, in probe.EvaluationInput) (*probe.Result, error) {
		seen = in
		return &probe.Result{Question: &probe.NextQuestion{
			Type: session.TypePickOne,
			Config: session.QuestionConfig{
				"question": "Detailed or summary?",
				"context":  "Follows your format answer",
				"options":  []interface{}{map[string]interface{}{"id": "d", "label": "Detailed"}},
			},
		}}, nil
	})
	f := newFixture(t, eval)

	out, err := f.proc.HandleAnswer(ctx, f.brainstorm, f.browserID, f.firstQ["format"], []byte(`{"text":"html"}`))
	require.NoError(t, err)
	assert.Equal(t, ActionQuestionPushed, out.Action)

	assert.Equal(t, "Build a monitoring dashboard", seen.Request)
	require.Len(t, seen.Branch.Questions, 1)
	assert.True(t, seen.Branch.Questions[0].Answered())

	b := f.branch(t, "format")
	require.Len(t, b.Questions, 2)
	follow := b.Questions[1]
	assert.Equal(t, out.QuestionID, follow.ID)
	assert.Equal(t, "Detailed or summary?", follow.Text)
	assert.Equal(t, "[Report format] Follows your format answer", follow.Config["context"])

	pending, _ := f.store.PendingQuestions(f.browserID)
	ids := make([]string, 0, len(pending))
	for _, q := range pending {
		ids = append(ids, q.ID)
	}
	assert.Contains(t, ids, out.QuestionID)
	assert.Equal(t, []string{"format"}, f.events.pushed)
}

func TestFollowUpWithoutTextUsesPlaceholder(t *testing.T) {
	ctx := context.Background()
	eval := probe.EvaluatorFunc(func(ctx context.Context, in probe.EvaluationInput) (*probe.Result, error) {
		return &probe.Result{Question: &probe.NextQuestion{Type: session.TypeConfirm, Config: session.QuestionConfig{}}}, nil
	})
	f := newFixture(t, eval)

	_, err := f.proc.HandleAnswer(ctx, f.brainstorm, f.browserID, f.firstQ["services"], []byte(`{"text":"x"}`))
	require.NoError(t, err)

	follow := f.branch(t, "services").Questions[1]
	assert.Equal(t, "Follow-up question", follow.Text)
	assert.Equal(t, "[Which services to monitor]", follow.Config["context"])
}

func TestWaitingLeavesBranchUntouched(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, probe.NewSummaryEvaluator(2))

	out, err := f.proc.HandleAnswer(ctx, f.brainstorm, f.browserID, f.firstQ["services"], []byte(`{"text":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, ActionWaiting, out.Action)

	b := f.branch(t, "services")
	assert.Equal(t, state.BranchExploring, b.Status)
	assert.Len(t, b.Questions, 1)
}

func TestIgnoredAnswers(t *testing.T) {
	ctx := context.Background()
	var calls int32
	eval := probe.EvaluatorFunc(func(ctx context.Context, in probe.EvaluationInput) (*probe.Result, error) {
		atomic.AddInt32(&calls, 1)
		return &probe.Result{Done: true, Finding: "f"}, nil
	})
	f := newFixture(t, eval)

	out, err := f.proc.Process(ctx, "ses_gone", f.browserID, f.firstQ["services"], []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, ActionIgnored, out.Action)

	out, err = f.proc.Process(ctx, f.brainstorm, f.browserID, "q_unknown", []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, ActionIgnored, out.Action)

	_, err = f.states.CompleteBranch(ctx, f.brainstorm, "services", "manual")
	require.NoError(t, err)
	out, err = f.proc.Process(ctx, f.brainstorm, f.browserID, f.firstQ["services"], []byte(`{"text":"late"}`))
	require.NoError(t, err)
	assert.Equal(t, ActionIgnored, out.Action)
	assert.Equal(t, "manual", *f.branch(t, "services").Finding)

	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestDuplicateDeliveryIsSurfaced(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, doneWith("f"))

	_, err := f.proc.HandleAnswer(ctx, f.brainstorm, f.browserID, f.firstQ["format"], []byte(`{"text":"a"}`))
	require.NoError(t, err)
	_, err = f.proc.HandleAnswer(ctx, f.brainstorm, f.browserID, f.firstQ["format"], []byte(`{"text":"b"}`))
	assert.ErrorIs(t, err, apperror.ErrAlreadyAnswered)
}

func TestEvaluatorFailuresAreSurfaced(t *testing.T) {
	ctx := context.Background()

	violating := probe.EvaluatorFunc(func(ctx context.Context, in probe.EvaluationInput) (*probe.Result, error) {
		return &probe.Result{}, nil
	})
	f := newFixture(t, violating)
	_, err := f.proc.HandleAnswer(ctx, f.brainstorm, f.browserID, f.firstQ["services"], []byte(`{"text":"x"}`))
	assert.ErrorIs(t, err, apperror.ErrEvaluatorContractViolation)
	assert.Equal(t, state.BranchExploring, f.branch(t, "services").Status)

	boom := errors.New("model offline")
	failing := probe.EvaluatorFunc(func(ctx context.Context, in probe.EvaluationInput) (*probe.Result, error) {
		return nil, boom
	})
	f = newFixture(t, failing)
	_, err = f.proc.HandleAnswer(ctx, f.brainstorm, f.browserID, f.firstQ["services"], []byte(`{"text":"x"}`))
	assert.ErrorIs(t, err, boom)
}

func TestSameBranchEvaluationsDoNotOverlap(t *testing.T) {
	ctx := context.Background()
	var active, maxActive int32
	eval := probe.EvaluatorFunc(func(ctx context.Context, in probe.EvaluationInput) (*probe.Result, error) {
		n := atomic.AddInt32(&active, 1)
		for {
			m := atomic.LoadInt32(&maxActive)
			if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return &probe.Result{Waiting: true}, nil
	})
	f := newFixture(t, eval)

	// a second pending question on the same branch
	qid, err := f.store.PushQuestion(ctx, f.browserID, session.TypeAskText, session.QuestionConfig{"question": "More?"})
	require.NoError(t, err)
	require.NoError(t, f.states.AddQuestionToBranch(ctx, f.brainstorm, "services", state.BranchQuestion{ID: qid, Type: session.TypeAskText, Text: "More?"}))

	var wg sync.WaitGroup
	for _, q := range []string{f.firstQ["services"], qid} {
		wg.Add(1)
		go func(q string) {
			defer wg.Done()
			_, _ = f.proc.HandleAnswer(ctx, f.brainstorm, f.browserID, q, []byte(`{"text":"x"}`))
		}(q)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxActive))
	for _, q := range f.branch(t, "services").Questions {
		assert.True(t, q.Answered())
	}
}

func TestScopeConfigDoesNotMutateInput(t *testing.T) {
	in := session.QuestionConfig{"question": "q"}
	out := ScopeConfig("Scope", in)
	assert.Equal(t, "[Scope]", out["context"])
	_, touched := in["context"]
	assert.False(t, touched)
	assert.Equal(t, "[Scope]", ScopeConfig("Scope", nil)["context"])
}
