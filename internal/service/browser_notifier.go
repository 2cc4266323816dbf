package service

import (
	"context"
	"encoding/json"

	"brainstorm-be/internal/dto"
	"brainstorm-be/internal/pkg/logger"
	"brainstorm-be/pkg/session"
)

// BrowserNotifier forwards session store changes to connected browsers through the event bus.
type BrowserNotifier struct {
	publisher IPublisherService
	logger    logger.ILogger
}

func NewBrowserNotifier(publisher IPublisherService, log logger.ILogger) *BrowserNotifier {
	return &BrowserNotifier{publisher: publisher, logger: log}
}

func (n *BrowserNotifier) QuestionPushed(ctx context.Context, sessionID string, q session.Question) {
	n.send(ctx, sessionID, dto.BrowserFrame{
		Type:         dto.FrameTypeQuestion,
		Id:           q.ID,
		QuestionType: q.Type,
		Config:       q.Config,
	})
}

func (n *BrowserNotifier) SessionEnded(ctx context.Context, sessionID string) {
	n.send(ctx, sessionID, dto.BrowserFrame{Type: dto.FrameTypeEnd})
}

func (n *BrowserNotifier) send(ctx context.Context, sessionID string, frame dto.BrowserFrame) {
	raw, err := json.Marshal(frame)
	if err != nil {
		n.logger.Error("BrowserNotifier", "Failed to marshal frame", map[string]interface{}{"session_id": sessionID, "error": err})
		return
	}
	payload, err := json.Marshal(dto.BrowserEnvelope{SessionId: sessionID, Frame: raw})
	if err != nil {
		n.logger.Error("BrowserNotifier", "Failed to marshal envelope", map[string]interface{}{"session_id": sessionID, "error": err})
		return
	}
	if err := n.publisher.Publish(ctx, payload); err != nil {
		n.logger.Error("BrowserNotifier", "Failed to publish frame", map[string]interface{}{"session_id": sessionID, "type": frame.Type, "error": err})
	}
}
