package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"brainstorm-be/internal/dto"
	"brainstorm-be/internal/pkg/logger"
	"brainstorm-be/pkg/session"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const clusterChannel = "brainstorm_cluster_events"

// AnswerRouter applies an inbound browser frame.
type AnswerRouter interface {
	Route(ctx context.Context, sessionID string, raw []byte) error
}

// PendingSource lists the questions a (re)connecting browser still has to answer.
type PendingSource interface {
	PendingQuestions(sessionID string) ([]session.Question, error)
}

type clusterMessage struct {
	Origin          string          `json:"origin"`
	TargetSessionID string          `json:"target_session_id"`
	Message         json.RawMessage `json:"message,omitempty"`
	Close           bool            `json:"close,omitempty"`
}

type Hub struct {
	// Registered clients: SessionID -> browser tabs
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	// Redis connection for cross-instance delivery; nil runs single-instance
	rdb    *redis.Client
	origin string

	router  AnswerRouter
	pending PendingSource
	logger  logger.ILogger
}

func NewHub(rdb *redis.Client, router AnswerRouter, pending PendingSource, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		origin:     uuid.NewString(),
		router:     router,
		pending:    pending,
		logger:     log,
	}
}

// Run serves register/unregister requests until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, clients := range h.clients {
				for _, c := range clients {
					c.close()
				}
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.SessionID] = append(h.clients[client.SessionID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"session_id": client.SessionID})

		case client := <-h.unregister:
			h.remove(client)
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.clients[client.SessionID]
	for i, c := range clients {
		if c == client {
			h.clients[client.SessionID] = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	client.close()
	if len(h.clients[client.SessionID]) == 0 {
		delete(h.clients, client.SessionID)
		h.logger.Info("Hub", "Session has no browsers left", map[string]interface{}{"session_id": client.SessionID})
	}
}

// ClientCount reports the local browsers connected to sessionID.
func (h *Hub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

// Deliver sends frame to every browser of sessionID on this and other instances.
func (h *Hub) Deliver(sessionID string, frame []byte) {
	h.deliverLocal(sessionID, frame)
	h.publish(clusterMessage{TargetSessionID: sessionID, Message: frame})
}

// CloseSession disconnects every browser of sessionID.
func (h *Hub) CloseSession(sessionID string) {
	h.closeLocal(sessionID)
	h.publish(clusterMessage{TargetSessionID: sessionID, Close: true})
}

func (h *Hub) deliverLocal(sessionID string, frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	kept := h.clients[sessionID][:0]
	for _, c := range h.clients[sessionID] {
		if c.trySend(frame) {
			kept = append(kept, c)
			continue
		}
		h.logger.Warn("Hub", "Client send buffer full, dropping client", map[string]interface{}{"session_id": sessionID})
		c.close()
	}
	if len(kept) == 0 {
		delete(h.clients, sessionID)
	} else {
		h.clients[sessionID] = kept
	}
}

func (h *Hub) closeLocal(sessionID string) {
	h.mu.Lock()
	clients := h.clients[sessionID]
	delete(h.clients, sessionID)
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func (h *Hub) publish(msg clusterMessage) {
	if h.rdb == nil {
		return
	}
	msg.Origin = h.origin
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := h.rdb.Publish(context.Background(), clusterChannel, payload).Err(); err != nil {
		h.logger.Warn("Hub", "Redis publish failed", map[string]interface{}{"error": err.Error()})
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.handleClusterMessage([]byte(msg.Payload))
		}
	}
}

// handleClusterMessage applies a frame published by another instance.
func (h *Hub) handleClusterMessage(payload []byte) {
	var msg clusterMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		h.logger.Warn("Hub", "Redis message parse error", map[string]interface{}{"error": err.Error()})
		return
	}
	if msg.Origin == h.origin || msg.TargetSessionID == "" {
		return
	}
	if len(msg.Message) > 0 {
		h.deliverLocal(msg.TargetSessionID, msg.Message)
	}
	if msg.Close {
		h.closeLocal(msg.TargetSessionID)
	}
}

// replay queues the session's pending questions on a freshly connected client.
func (h *Hub) replay(c *Client) {
	if h.pending == nil {
		return
	}
	questions, err := h.pending.PendingQuestions(c.SessionID)
	if err != nil {
		h.logger.Warn("Hub", "Cannot replay pending questions", map[string]interface{}{"session_id": c.SessionID, "error": err.Error()})
		return
	}
	for _, q := range questions {
		frame, err := json.Marshal(dto.BrowserFrame{
			Type:         dto.FrameTypeQuestion,
			Id:           q.ID,
			QuestionType: q.Type,
			Config:       q.Config,
		})
		if err != nil {
			continue
		}
		if !c.trySend(frame) {
			h.logger.Warn("Hub", "Replay truncated, send buffer full", map[string]interface{}{"session_id": c.SessionID})
			return
		}
	}
}

// route hands an inbound frame to the answer router off the read loop, so a
// slow evaluation never stalls pong handling.
func (h *Hub) route(sessionID string, raw []byte) {
	if h.router == nil {
		return
	}
	go func() {
		if err := h.router.Route(context.Background(), sessionID, raw); err != nil {
			h.logger.Warn("Hub", "Browser answer rejected", map[string]interface{}{"session_id": sessionID, "error": err.Error()})
		}
	}()
}
