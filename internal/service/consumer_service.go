package service

import (
	"context"
	"encoding/json"

	"brainstorm-be/internal/dto"
	"brainstorm-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
)

// FrameDelivery hands frames to the browsers of one session.
type FrameDelivery interface {
	Deliver(sessionID string, frame []byte)
	CloseSession(sessionID string)
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	delivery   FrameDelivery
	logger     logger.ILogger
}

func NewConsumerService(subscriber message.Subscriber, topicName string, delivery FrameDelivery, log logger.ILogger) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		delivery:   delivery,
		logger:     log,
	}
}

// Consume starts delivering bus frames to browsers until ctx is cancelled.
func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(msg *message.Message) {
	// every outcome is acked; a frame that cannot be parsed will not parse on retry either
	defer msg.Ack()

	var env dto.BrowserEnvelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil || env.SessionId == "" {
		cs.logger.Error("ConsumerService", "Malformed browser envelope", map[string]interface{}{"message_id": msg.UUID, "error": err})
		return
	}

	var head struct {
		Type string `json:"type"`
	}
	_ = json.Unmarshal(env.Frame, &head)

	cs.delivery.Deliver(env.SessionId, env.Frame)
	if head.Type == dto.FrameTypeEnd {
		cs.delivery.CloseSession(env.SessionId)
	}
}
