package service

import (
	"context"
	"time"

	"brainstorm-be/internal/pkg/logger"
	"brainstorm-be/pkg/events"
)

const publishTimeout = 2 * time.Second

// EventSink is implemented by the NATS publisher.
type EventSink interface {
	Publish(ctx context.Context, event events.Event) error
}

// BrainstormEventPublisher emits brainstorm progress to NATS. A nil sink
// turns every call into a no-op.
type BrainstormEventPublisher struct {
	publisher EventSink
	logger    logger.ILogger
}

func NewBrainstormEventPublisher(publisher EventSink, log logger.ILogger) *BrainstormEventPublisher {
	return &BrainstormEventPublisher{publisher: publisher, logger: log}
}

func (p *BrainstormEventPublisher) BranchCompleted(ctx context.Context, brainstormID, branchID, finding string) {
	p.publish(ctx, events.TypeBranchCompleted, map[string]interface{}{
		"brainstorm_id": brainstormID,
		"branch_id":     branchID,
		"finding":       finding,
	})
}

func (p *BrainstormEventPublisher) QuestionPushed(ctx context.Context, brainstormID, branchID, questionID string) {
	p.publish(ctx, events.TypeQuestionPushed, map[string]interface{}{
		"brainstorm_id": brainstormID,
		"branch_id":     branchID,
		"question_id":   questionID,
	})
}

func (p *BrainstormEventPublisher) SessionEnded(ctx context.Context, brainstormID string, findings map[string]string) {
	p.publish(ctx, events.TypeSessionEnded, map[string]interface{}{
		"brainstorm_id": brainstormID,
		"findings":      findings,
	})
}

func (p *BrainstormEventPublisher) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if p == nil || p.publisher == nil {
		return
	}

	now := time.Now()
	data["occurred_at"] = now
	evt := events.BaseEvent{Type: eventType, Data: data, OccurredAt: now}

	// the caller's request may already be finished
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := p.publisher.Publish(pubCtx, evt); err != nil {
		p.logger.Error("EventPublisher", "Failed to publish "+eventType+" event", map[string]interface{}{"error": err.Error()})
	}
}
