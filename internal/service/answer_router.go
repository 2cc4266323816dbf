package service

import (
	"context"
	"errors"
	"sync"

	"brainstorm-be/internal/pkg/logger"
	"brainstorm-be/pkg/apperror"
	"brainstorm-be/pkg/processor"
	"brainstorm-be/pkg/session"
)

// IAnswerRouter sends browser answers to the brainstorm processor when the
// browser session belongs to a brainstorm and to the plain session store otherwise.
type IAnswerRouter interface {
	Bind(browserSessionID, brainstormID string)
	Unbind(browserSessionID string)
	BrainstormFor(browserSessionID string) (string, bool)
	Route(ctx context.Context, browserSessionID string, raw []byte) error
}

type answerRouter struct {
	store     *session.Store
	processor *processor.Processor
	logger    logger.ILogger

	mu         sync.RWMutex
	brainstorm map[string]string
}

func NewAnswerRouter(store *session.Store, proc *processor.Processor, log logger.ILogger) IAnswerRouter {
	return &answerRouter{
		store:      store,
		processor:  proc,
		logger:     log,
		brainstorm: make(map[string]string),
	}
}

func (r *answerRouter) Bind(browserSessionID, brainstormID string) {
	r.mu.Lock()
	r.brainstorm[browserSessionID] = brainstormID
	r.mu.Unlock()
}

func (r *answerRouter) Unbind(browserSessionID string) {
	r.mu.Lock()
	delete(r.brainstorm, browserSessionID)
	r.mu.Unlock()
}

func (r *answerRouter) BrainstormFor(browserSessionID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.brainstorm[browserSessionID]
	return id, ok
}

// Route applies one inbound browser frame. Frames that are not responses and
// answers to unknown questions are dropped without error.
func (r *answerRouter) Route(ctx context.Context, browserSessionID string, raw []byte) error {
	msg, ok := session.DecodeMessage(raw)
	if !ok {
		r.logger.Debug("AnswerRouter", "Ignoring browser frame", map[string]interface{}{"session_id": browserSessionID})
		return nil
	}

	var err error
	if brainstormID, bound := r.BrainstormFor(browserSessionID); bound {
		var out processor.Outcome
		out, err = r.processor.HandleAnswer(ctx, brainstormID, browserSessionID, msg.ID, msg.Answer)
		if err == nil {
			r.logger.Info("AnswerRouter", "Brainstorm answer processed", map[string]interface{}{
				"brainstorm_id": brainstormID,
				"question_id":   msg.ID,
				"branch_id":     out.BranchID,
				"action":        string(out.Action),
			})
		}
	} else {
		err = r.store.RecordAnswer(ctx, browserSessionID, msg.ID, msg.Answer)
	}

	if errors.Is(err, apperror.ErrNotFound) {
		r.logger.Warn("AnswerRouter", "Dropping answer for unknown session or question", map[string]interface{}{
			"session_id":  browserSessionID,
			"question_id": msg.ID,
		})
		return nil
	}
	return err
}
