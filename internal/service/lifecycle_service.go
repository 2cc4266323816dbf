package service

import (
	"context"
	"errors"

	"brainstorm-be/internal/pkg/logger"
	"brainstorm-be/pkg/apperror"
	"brainstorm-be/pkg/events"
	"brainstorm-be/pkg/hostsession"
	pktNats "brainstorm-be/pkg/nats"
)

const hostLifecycleDurable = "brainstorm-host-lifecycle"

type ILifecycleService interface {
	// HostSessionDeleted ends everything opened under the host conversation and
	// reports how many sessions were ended.
	HostSessionDeleted(ctx context.Context, hostId string) (int, error)
	HandleEvent(ctx context.Context, event events.Event) error
	Subscribe(subscriber *pktNats.Subscriber) error
	// SessionExpired cleans up after a browser session dropped for inactivity:
	// a brainstorm bound to it is ended, a plain session is forgotten.
	SessionExpired(ctx context.Context, sessionId string)
}

type lifecycleService struct {
	registry    *hostsession.Registry
	router      IAnswerRouter
	brainstorms IBrainstormService
	questions   IQuestionService
	logger      logger.ILogger
}

func NewLifecycleService(registry *hostsession.Registry, router IAnswerRouter, brainstorms IBrainstormService, questions IQuestionService, log logger.ILogger) ILifecycleService {
	return &lifecycleService{
		registry:    registry,
		router:      router,
		brainstorms: brainstorms,
		questions:   questions,
		logger:      log,
	}
}

func (l *lifecycleService) HostSessionDeleted(ctx context.Context, hostId string) (int, error) {
	if hostId == "" {
		return 0, apperror.InvalidInput("HostSessionDeleted", "", "host session id is required")
	}

	ended := 0
	for _, e := range l.registry.Take(hostId) {
		var err error
		switch e.Kind {
		case hostsession.KindBrainstorm:
			_, err = l.brainstorms.End(ctx, e.ID)
		case hostsession.KindSession:
			err = l.questions.EndSession(ctx, e.ID)
		}
		switch {
		case err == nil:
			ended++
		case errors.Is(err, apperror.ErrNotFound):
			// already ended
		default:
			l.logger.Error("LifecycleService", "Failed to end session for deleted host", map[string]interface{}{
				"host_session_id": hostId,
				"session_id":      e.ID,
				"error":           err,
			})
		}
	}

	l.logger.Info("LifecycleService", "Host session deleted", map[string]interface{}{"host_session_id": hostId, "ended": ended})
	return ended, nil
}

func (l *lifecycleService) SessionExpired(ctx context.Context, sessionId string) {
	if l.router != nil {
		if brainstormId, bound := l.router.BrainstormFor(sessionId); bound {
			if _, err := l.brainstorms.End(ctx, brainstormId); err != nil && !errors.Is(err, apperror.ErrNotFound) {
				l.logger.Error("LifecycleService", "Failed to end brainstorm of expired session", map[string]interface{}{
					"session_id":    sessionId,
					"brainstorm_id": brainstormId,
					"error":         err,
				})
			}
			return
		}
	}
	l.registry.Untrack(hostsession.Entry{Kind: hostsession.KindSession, ID: sessionId})
}

// HandleEvent consumes host events from the bus; only session.deleted matters.
func (l *lifecycleService) HandleEvent(ctx context.Context, event events.Event) error {
	if event.EventType() != events.TypeHostSessionDeleted {
		return nil
	}
	hostId := hostIdFromPayload(event.Payload())
	if hostId == "" {
		l.logger.Warn("LifecycleService", "session.deleted without id", map[string]interface{}{"payload": event.Payload()})
		return nil
	}
	_, err := l.HostSessionDeleted(ctx, hostId)
	return err
}

func (l *lifecycleService) Subscribe(subscriber *pktNats.Subscriber) error {
	if subscriber == nil {
		return nil
	}
	return subscriber.Subscribe(pktNats.SubjectPrefix+events.TypeHostSessionDeleted, hostLifecycleDurable, l.HandleEvent)
}

// hostIdFromPayload reads properties.info.id.
func hostIdFromPayload(payload map[string]interface{}) string {
	props, _ := payload["properties"].(map[string]interface{})
	info, _ := props["info"].(map[string]interface{})
	id, _ := info["id"].(string)
	return id
}
