package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"brainstorm-be/internal/pkg/logger"
	"brainstorm-be/pkg/apperror"
	"brainstorm-be/pkg/waiter"

	"github.com/google/uuid"
)

const DefaultAnswerTimeout = 5 * time.Minute

// Repository keeps live sessions. Implemented by the in-memory cache repository.
type Repository interface {
	Save(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// Notifier is told about questions that should reach the browser and sessions that ended.
type Notifier interface {
	QuestionPushed(ctx context.Context, sessionID string, q Question)
	SessionEnded(ctx context.Context, sessionID string)
}

type signal int

const (
	signalAnswer signal = iota
	signalQuestion
	signalCancelled
)

type Option func(*Store)

func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

func WithDefaultTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.defaultTimeout = d
		}
	}
}

// Store owns question sessions and their answer queues.
type Store struct {
	mu             sync.Mutex
	repo           Repository
	waiters        *waiter.Registry[string, signal]
	notifier       Notifier
	defaultTimeout time.Duration
	logger         logger.ILogger
}

func NewStore(repo Repository, log logger.ILogger, opts ...Option) *Store {
	s := &Store{
		repo:           repo,
		waiters:        waiter.New[string, signal](),
		defaultTimeout: DefaultAnswerTimeout,
		logger:         log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func sessionKey(sessionID string) string { return sessionID }

func questionKey(sessionID, questionID string) string { return sessionID + "/" + questionID }

func newID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func (s *Store) StartSession(ctx context.Context, meta Meta) (string, error) {
	sess := &Session{
		ID:            newID("ses_"),
		Title:         meta.Title,
		HostSessionID: meta.HostSessionID,
		CreatedAt:     time.Now(),
	}

	s.mu.Lock()
	s.repo.Save(sess)
	s.mu.Unlock()

	s.logger.Info("SessionStore", "Session started", map[string]interface{}{"session_id": sess.ID, "title": meta.Title})
	return sess.ID, nil
}

// Exists reports whether the session is live.
func (s *Store) Exists(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.repo.Get(sessionID)
	return ok
}

func (s *Store) PushQuestion(ctx context.Context, sessionID string, qType QuestionType, config QuestionConfig) (string, error) {
	if err := ValidateQuestion("PushQuestion", qType, config); err != nil {
		return "", err
	}

	s.mu.Lock()
	sess, ok := s.repo.Get(sessionID)
	if !ok {
		s.mu.Unlock()
		return "", apperror.NotFound("PushQuestion", sessionID, "session not found")
	}
	q := &Question{
		ID:        newID("q_"),
		Type:      qType,
		Config:    config.Clone(),
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
	sess.Questions = append(sess.Questions, q)
	s.repo.Save(sess)
	snapshot := q.clone()
	s.mu.Unlock()

	// a woken consumer re-checks its queue and keeps waiting if nothing is ready
	s.waiters.NotifyFirst(sessionKey(sessionID), signalQuestion)
	if s.notifier != nil {
		s.notifier.QuestionPushed(ctx, sessionID, snapshot)
	}
	return q.ID, nil
}

func (s *Store) RecordAnswer(ctx context.Context, sessionID, questionID string, answer []byte) error {
	s.mu.Lock()
	sess, ok := s.repo.Get(sessionID)
	if !ok {
		s.mu.Unlock()
		return apperror.NotFound("RecordAnswer", sessionID, "session not found")
	}
	q := sess.find(questionID)
	if q == nil {
		s.mu.Unlock()
		return apperror.NotFound("RecordAnswer", questionID, "question not found")
	}
	if q.Status != StatusPending {
		s.mu.Unlock()
		return apperror.AlreadyAnswered("RecordAnswer", questionID)
	}
	now := time.Now()
	q.Status = StatusAnswered
	q.Answer = append([]byte(nil), answer...)
	q.AnsweredAt = &now
	sess.answerQueue = append(sess.answerQueue, questionID)
	s.repo.Save(sess)
	s.mu.Unlock()

	s.waiters.NotifyFirst(sessionKey(sessionID), signalAnswer)
	s.waiters.NotifyAll(questionKey(sessionID, questionID), signalAnswer)

	s.logger.Debug("SessionStore", "Answer recorded", map[string]interface{}{"session_id": sessionID, "question_id": questionID})
	return nil
}

// HandleMessage applies a browser frame to the session. Frames for unknown
// questions, or that are not responses, are dropped.
func (s *Store) HandleMessage(ctx context.Context, sessionID string, raw []byte) error {
	msg, ok := DecodeMessage(raw)
	if !ok {
		return nil
	}
	err := s.RecordAnswer(ctx, sessionID, msg.ID, msg.Answer)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil
	}
	return err
}

// popAnswer hands out the oldest answer not yet retrieved. Caller holds s.mu.
func (s *Store) popAnswer(sess *Session) (AnswerResult, bool) {
	for len(sess.answerQueue) > 0 {
		id := sess.answerQueue[0]
		sess.answerQueue = sess.answerQueue[1:]
		q := sess.find(id)
		if q == nil || q.Retrieved {
			continue
		}
		q.Retrieved = true
		s.repo.Save(sess)
		return AnswerResult{
			Completed:    true,
			QuestionID:   q.ID,
			QuestionType: q.Type,
			Response:     append([]byte(nil), q.Answer...),
			Status:       WaitCompleted,
		}, true
	}
	return AnswerResult{}, false
}

func (s *Store) timeout(opts WaitOptions) time.Duration {
	if opts.Timeout > 0 {
		return opts.Timeout
	}
	return s.defaultTimeout
}

// GetNextAnswer returns the oldest unretrieved answer of the session. With
// Block set it waits until one is recorded, the timeout passes, or the session
// ends; the three outcomes are reported as completed, timeout and cancelled.
func (s *Store) GetNextAnswer(ctx context.Context, sessionID string, opts WaitOptions) (AnswerResult, error) {
	deadline := time.Now().Add(s.timeout(opts))
	key := sessionKey(sessionID)

	for {
		s.mu.Lock()
		sess, ok := s.repo.Get(sessionID)
		if !ok {
			s.mu.Unlock()
			return AnswerResult{}, apperror.NotFound("GetNextAnswer", sessionID, "session not found")
		}
		if res, ok := s.popAnswer(sess); ok {
			s.mu.Unlock()
			return res, nil
		}
		if !opts.Block {
			s.mu.Unlock()
			return AnswerResult{Status: WaitPending}, nil
		}
		ch := make(chan signal, 1)
		cancel := s.waiters.Register(key, func(v signal) {
			select {
			case ch <- v:
			default:
			}
		})
		s.mu.Unlock()

		sig, status := s.wait(ctx, ch, cancel, deadline, key)
		switch status {
		case WaitTimeout:
			// an answer may have landed while the timer fired
			s.mu.Lock()
			if sess, ok := s.repo.Get(sessionID); ok {
				if res, ok := s.popAnswer(sess); ok {
					s.mu.Unlock()
					return res, nil
				}
			}
			s.mu.Unlock()
			return AnswerResult{Status: WaitTimeout}, nil
		case WaitCancelled:
			return AnswerResult{Status: WaitCancelled}, nil
		}
		if sig == signalCancelled {
			return AnswerResult{Status: WaitCancelled}, nil
		}
	}
}

// GetAnswer waits for one specific question without consuming it from the answer queue.
func (s *Store) GetAnswer(ctx context.Context, sessionID, questionID string, opts WaitOptions) (AnswerResult, error) {
	deadline := time.Now().Add(s.timeout(opts))
	key := questionKey(sessionID, questionID)

	for {
		s.mu.Lock()
		sess, ok := s.repo.Get(sessionID)
		if !ok {
			s.mu.Unlock()
			return AnswerResult{}, apperror.NotFound("GetAnswer", sessionID, "session not found")
		}
		q := sess.find(questionID)
		if q == nil {
			s.mu.Unlock()
			return AnswerResult{}, apperror.NotFound("GetAnswer", questionID, "question not found")
		}
		if q.Status == StatusAnswered {
			res := AnswerResult{
				Completed:    true,
				QuestionID:   q.ID,
				QuestionType: q.Type,
				Response:     append([]byte(nil), q.Answer...),
				Status:       WaitCompleted,
			}
			s.mu.Unlock()
			return res, nil
		}
		if !opts.Block {
			s.mu.Unlock()
			return AnswerResult{QuestionID: questionID, Status: WaitPending}, nil
		}
		ch := make(chan signal, 1)
		cancel := s.waiters.Register(key, func(v signal) {
			select {
			case ch <- v:
			default:
			}
		})
		s.mu.Unlock()

		sig, status := s.wait(ctx, ch, cancel, deadline, "")
		if status == WaitTimeout || status == WaitCancelled {
			return AnswerResult{QuestionID: questionID, Status: status}, nil
		}
		if sig == signalCancelled {
			return AnswerResult{QuestionID: questionID, Status: WaitCancelled}, nil
		}
	}
}

// wait blocks on ch until a signal, the deadline or ctx. When relayKey is set,
// an answer signal that raced with giving up is handed to the next waiter on that key.
func (s *Store) wait(ctx context.Context, ch chan signal, cancel func(), deadline time.Time, relayKey string) (signal, WaitStatus) {
	remaining := time.Until(deadline)
	if remaining <= 0 {
		cancel()
		return 0, WaitTimeout
	}
	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case sig := <-ch:
		return sig, WaitCompleted
	case <-timer.C:
		cancel()
		return 0, WaitTimeout
	case <-ctx.Done():
		cancel()
		if relayKey != "" {
			select {
			case sig := <-ch:
				if sig == signalAnswer {
					s.waiters.NotifyFirst(relayKey, sig)
				}
			default:
			}
		}
		return 0, WaitCancelled
	}
}

func (s *Store) ListQuestions(sessionID string) ([]Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.repo.Get(sessionID)
	if !ok {
		return nil, apperror.NotFound("ListQuestions", sessionID, "session not found")
	}
	out := make([]Question, 0, len(sess.Questions))
	for _, q := range sess.Questions {
		out = append(out, q.clone())
	}
	return out, nil
}

// PendingQuestions lists unanswered questions, used to replay them to a browser that (re)connects.
func (s *Store) PendingQuestions(sessionID string) ([]Question, error) {
	all, err := s.ListQuestions(sessionID)
	if err != nil {
		return nil, err
	}
	pending := all[:0]
	for _, q := range all {
		if q.Status == StatusPending {
			pending = append(pending, q)
		}
	}
	return pending, nil
}

// EndSession discards the session. Every outstanding wait resolves as cancelled.
func (s *Store) EndSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	sess, ok := s.repo.Get(sessionID)
	if !ok {
		s.mu.Unlock()
		return apperror.NotFound("EndSession", sessionID, "session not found")
	}
	s.repo.Delete(sessionID)
	questionIDs := sess.questionIDs()
	s.mu.Unlock()

	s.release(ctx, sessionID, questionIDs)
	s.logger.Info("SessionStore", "Session ended", map[string]interface{}{"session_id": sessionID})
	return nil
}

// SessionExpired is the teardown for a session the repository already dropped
// for inactivity. Waits resolve as cancelled, the same as EndSession.
func (s *Store) SessionExpired(ctx context.Context, sess *Session) {
	s.mu.Lock()
	questionIDs := sess.questionIDs()
	s.mu.Unlock()

	s.release(ctx, sess.ID, questionIDs)
	s.logger.Warn("SessionStore", "Session expired after idle timeout", map[string]interface{}{"session_id": sess.ID})
}

func (s *Store) release(ctx context.Context, sessionID string, questionIDs []string) {
	s.waiters.NotifyAll(sessionKey(sessionID), signalCancelled)
	for _, id := range questionIDs {
		s.waiters.NotifyAll(questionKey(sessionID, id), signalCancelled)
	}
	if s.notifier != nil {
		s.notifier.SessionEnded(ctx, sessionID)
	}
}
