package session_test

import (
	"context"
	"encoding/json"
	"regexp"
	"sync"
	"testing"
	"time"

	"brainstorm-be/internal/pkg/logger"
	"brainstorm-be/internal/repository/memory"
	"brainstorm-be/pkg/apperror"
	"brainstorm-be/pkg/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingNotifier struct {
	mu     sync.Mutex
	pushed []string
	ended  []string
}

func (n *recordingNotifier) QuestionPushed(_ context.Context, sessionID string, q session.Question) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pushed = append(n.pushed, sessionID+"/"+q.ID)
}

func (n *recordingNotifier) SessionEnded(_ context.Context, sessionID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ended = append(n.ended, sessionID)
}

func newStore(opts ...session.Option) *session.Store {
	return session.NewStore(memory.NewSessionRepository(0, 0), logger.NewNopLogger(), opts...)
}

func textQuestion(text string) session.QuestionConfig {
	return session.QuestionConfig{"question": text}
}

func TestStartSessionIDFormat(t *testing.T) {
	s := newStore()
	id, err := s.StartSession(context.Background(), session.Meta{Title: "Design"})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^ses_[a-z0-9]+$`), id)
	assert.True(t, s.Exists(id))
}

func TestAnswersDrainInArrivalOrder(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	sid, _ := s.StartSession(ctx, session.Meta{})

	q1, err := s.PushQuestion(ctx, sid, session.TypeAskText, textQuestion("one"))
	require.NoError(t, err)
	q2, _ := s.PushQuestion(ctx, sid, session.TypeAskText, textQuestion("two"))
	q3, _ := s.PushQuestion(ctx, sid, session.TypeAskText, textQuestion("three"))

	require.NoError(t, s.RecordAnswer(ctx, sid, q1, []byte(`{"text":"a"}`)))
	require.NoError(t, s.RecordAnswer(ctx, sid, q3, []byte(`{"text":"c"}`)))

	res, err := s.GetNextAnswer(ctx, sid, session.WaitOptions{})
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, q1, res.QuestionID)
	assert.JSONEq(t, `{"text":"a"}`, string(res.Response))

	res, _ = s.GetNextAnswer(ctx, sid, session.WaitOptions{})
	assert.Equal(t, q3, res.QuestionID)

	res, _ = s.GetNextAnswer(ctx, sid, session.WaitOptions{})
	assert.False(t, res.Completed)
	assert.Equal(t, session.WaitPending, res.Status)

	qs, err := s.ListQuestions(sid)
	require.NoError(t, err)
	require.Len(t, qs, 3)
	assert.Equal(t, session.StatusPending, qs[1].Status)
	assert.Equal(t, q2, qs[1].ID)
}

func TestRecordAnswerErrors(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	sid, _ := s.StartSession(ctx, session.Meta{})
	qid, _ := s.PushQuestion(ctx, sid, session.TypeConfirm, textQuestion("ok?"))

	err := s.RecordAnswer(ctx, "ses_missing", qid, nil)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	err = s.RecordAnswer(ctx, sid, "q_missing", nil)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	require.NoError(t, s.RecordAnswer(ctx, sid, qid, []byte(`{"choice":"yes"}`)))
	err = s.RecordAnswer(ctx, sid, qid, []byte(`{"choice":"no"}`))
	assert.ErrorIs(t, err, apperror.ErrAlreadyAnswered)

	qs, _ := s.ListQuestions(sid)
	assert.JSONEq(t, `{"choice":"yes"}`, string(qs[0].Answer))
}

func TestPushQuestionValidation(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	sid, _ := s.StartSession(ctx, session.Meta{})

	_, err := s.PushQuestion(ctx, sid, session.TypePickOne, session.QuestionConfig{"question": "pick", "options": []interface{}{}})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = s.PushQuestion(ctx, sid, session.TypeRank, session.QuestionConfig{"question": "rank"})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = s.PushQuestion(ctx, sid, session.QuestionType("free_dance"), textQuestion("?"))
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = s.PushQuestion(ctx, "ses_nope", session.TypeAskText, textQuestion("?"))
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	qs, _ := s.ListQuestions(sid)
	assert.Empty(t, qs)
}

func TestBlockingWaitWakesOnAnswer(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	sid, _ := s.StartSession(ctx, session.Meta{})
	qid, _ := s.PushQuestion(ctx, sid, session.TypeAskText, textQuestion("name?"))

	done := make(chan session.AnswerResult)
	go func() {
		res, _ := s.GetNextAnswer(ctx, sid, session.WaitOptions{Block: true, Timeout: 5 * time.Second})
		done <- res
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.RecordAnswer(ctx, sid, qid, []byte(`{"text":"Ada"}`)))

	select {
	case res := <-done:
		assert.True(t, res.Completed)
		assert.Equal(t, qid, res.QuestionID)
	case <-time.After(2 * time.Second):
		t.Fatal("blocked consumer was not woken")
	}
}

func TestBlockingWaitSurvivesQuestionPush(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	sid, _ := s.StartSession(ctx, session.Meta{})

	done := make(chan session.AnswerResult)
	go func() {
		res, _ := s.GetNextAnswer(ctx, sid, session.WaitOptions{Block: true, Timeout: 5 * time.Second})
		done <- res
	}()

	time.Sleep(20 * time.Millisecond)
	qid, _ := s.PushQuestion(ctx, sid, session.TypeAskText, textQuestion("late"))
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.RecordAnswer(ctx, sid, qid, []byte(`{"text":"x"}`)))

	res := <-done
	assert.True(t, res.Completed)
	assert.Equal(t, qid, res.QuestionID)
}

func TestBlockingWaitTimesOut(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	sid, _ := s.StartSession(ctx, session.Meta{})

	start := time.Now()
	res, err := s.GetNextAnswer(ctx, sid, session.WaitOptions{Block: true, Timeout: 30 * time.Millisecond})
	require.NoError(t, err)
	assert.False(t, res.Completed)
	assert.Equal(t, session.WaitTimeout, res.Status)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestEndSessionCancelsWaiters(t *testing.T) {
	ctx := context.Background()
	notifier := &recordingNotifier{}
	s := newStore(session.WithNotifier(notifier))
	sid, _ := s.StartSession(ctx, session.Meta{})
	qid, _ := s.PushQuestion(ctx, sid, session.TypeAskText, textQuestion("?"))

	var wg sync.WaitGroup
	results := make([]session.AnswerResult, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		results[0], _ = s.GetNextAnswer(ctx, sid, session.WaitOptions{Block: true, Timeout: 5 * time.Second})
	}()
	go func() {
		defer wg.Done()
		results[1], _ = s.GetAnswer(ctx, sid, qid, session.WaitOptions{Block: true, Timeout: 5 * time.Second})
	}()

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, s.EndSession(ctx, sid))
	wg.Wait()

	assert.Equal(t, session.WaitCancelled, results[0].Status)
	assert.Equal(t, session.WaitCancelled, results[1].Status)
	assert.False(t, s.Exists(sid))
	assert.Equal(t, []string{sid}, notifier.ended)
	assert.Len(t, notifier.pushed, 1)

	assert.ErrorIs(t, s.EndSession(ctx, sid), apperror.ErrNotFound)
}

func TestContextCancelIsNotTimeout(t *testing.T) {
	s := newStore()
	sid, _ := s.StartSession(context.Background(), session.Meta{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	res, err := s.GetNextAnswer(ctx, sid, session.WaitOptions{Block: true, Timeout: 5 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, session.WaitCancelled, res.Status)
}

func TestConcurrentPollersNeverShareAnAnswer(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	sid, _ := s.StartSession(ctx, session.Meta{})

	const n = 20
	ids := make([]string, n)
	for i := range ids {
		ids[i], _ = s.PushQuestion(ctx, sid, session.TypeAskText, textQuestion("q"))
	}

	var mu sync.Mutex
	seen := map[string]int{}
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, _ := s.GetNextAnswer(ctx, sid, session.WaitOptions{Block: true, Timeout: 3 * time.Second})
			if res.Completed {
				mu.Lock()
				seen[res.QuestionID]++
				mu.Unlock()
			}
		}()
	}
	for _, id := range ids {
		require.NoError(t, s.RecordAnswer(ctx, sid, id, []byte(`{"text":"x"}`)))
	}
	wg.Wait()

	assert.Len(t, seen, n)
	for id, count := range seen {
		assert.Equal(t, 1, count, id)
	}
}

func TestGetAnswerDoesNotConsume(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	sid, _ := s.StartSession(ctx, session.Meta{})
	qid, _ := s.PushQuestion(ctx, sid, session.TypeSlider, session.QuestionConfig{"question": "how much", "min": 0, "max": 10})

	res, err := s.GetAnswer(ctx, sid, qid, session.WaitOptions{})
	require.NoError(t, err)
	assert.Equal(t, session.WaitPending, res.Status)

	require.NoError(t, s.RecordAnswer(ctx, sid, qid, []byte(`{"value":7}`)))

	res, _ = s.GetAnswer(ctx, sid, qid, session.WaitOptions{})
	assert.True(t, res.Completed)

	next, _ := s.GetNextAnswer(ctx, sid, session.WaitOptions{})
	assert.Equal(t, qid, next.QuestionID)

	_, err = s.GetAnswer(ctx, sid, "q_nope", session.WaitOptions{})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestHandleMessageIgnoresUnknownIDs(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	sid, _ := s.StartSession(ctx, session.Meta{})
	qid, _ := s.PushQuestion(ctx, sid, session.TypeThumbs, textQuestion("like it?"))

	assert.NoError(t, s.HandleMessage(ctx, sid, []byte(`{"type":"response","id":"q_ghost","answer":{"choice":"up"}}`)))
	assert.NoError(t, s.HandleMessage(ctx, sid, []byte(`{"type":"ping"}`)))
	assert.NoError(t, s.HandleMessage(ctx, sid, []byte(`not json`)))

	frame, _ := json.Marshal(map[string]interface{}{"type": "response", "id": qid, "answer": map[string]string{"choice": "up"}})
	require.NoError(t, s.HandleMessage(ctx, sid, frame))

	pending, err := s.PendingQuestions(sid)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
