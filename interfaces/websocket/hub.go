// Package websocket streams session frames and events to browser clients
// and feeds their interactions back into the command bus.
package websocket

import (
	"context"
	"sync"

	"constellations/application/ports"
	"constellations/domain/core/entities"

	"go.uber.org/zap"
)

// ClientMetrics observes connection churn and throttling.
type ClientMetrics interface {
	ClientConnected()
	ClientDisconnected()
	MessageThrottled()
}

type noopClientMetrics struct{}

func (noopClientMetrics) ClientConnected()    {}
func (noopClientMetrics) ClientDisconnected() {}
func (noopClientMetrics) MessageThrottled()   {}

// outbound is one encoded message for every client of a session.
type outbound struct {
	sessionID string
	payload   []byte
	kind      string
}

// Hub maintains active connections per session and fans messages out to them
type Hub struct {
	// session id -> set of clients
	sessions map[string]map[*Client]bool
	mu       sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan outbound

	done    chan struct{}
	metrics ClientMetrics
	logger  *zap.Logger
}

// NewHub creates a new hub. metrics may be nil.
func NewHub(metrics ClientMetrics, logger *zap.Logger) *Hub {
	if metrics == nil {
		metrics = noopClientMetrics{}
	}
	return &Hub{
		sessions:   make(map[string]map[*Client]bool),
		register:   make(chan *Client, 100),
		unregister: make(chan *Client, 100),
		broadcast:  make(chan outbound, 1000),
		done:       make(chan struct{}),
		metrics:    metrics,
		logger:     logger,
	}
}

// Run is the hub's event loop. It returns when ctx is cancelled, after
// closing every connection.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Hub shutting down")
			h.closeAllConnections()
			return nil

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// Scene returns the scene that streams sessionID's frames to its clients.
func (h *Hub) Scene(sessionID string) ports.Scene {
	return ports.SceneFunc(func(_ context.Context, frame *ports.Frame) error {
		if h.ClientCount(sessionID) == 0 {
			return nil
		}
		payload, err := frameMessage(frame)
		if err != nil {
			return err
		}
		h.enqueue(outbound{sessionID: sessionID, payload: payload, kind: TypeFrame})
		return nil
	})
}

// Listener returns the listener that forwards sessionID's events.
func (h *Hub) Listener(sessionID string) ports.Listener {
	return ports.ListenerFuncs{
		OnNodeClick: func(n *entities.Node) {
			h.Publish(sessionID, TypeEvent, nodeClickData(n))
		},
		OnLinkClick: func(l *entities.Link) {
			h.Publish(sessionID, TypeEvent, linkClickData(l))
		},
		OnVisibleNodes: func(nodes []*entities.Node) {
			h.Publish(sessionID, TypeEvent, visibleNodesData(nodes))
		},
	}
}

// Publish encodes data and queues it for every client of sessionID.
func (h *Hub) Publish(sessionID, messageType string, data interface{}) {
	if h.ClientCount(sessionID) == 0 {
		return
	}
	payload, err := encode(messageType, data)
	if err != nil {
		h.logger.Error("Failed to marshal message",
			zap.String("session_id", sessionID),
			zap.String("type", messageType),
			zap.Error(err))
		return
	}
	h.enqueue(outbound{sessionID: sessionID, payload: payload, kind: messageType})
}

// enqueue never blocks: callers run on the session goroutine.
func (h *Hub) enqueue(msg outbound) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("Broadcast queue full, message dropped",
			zap.String("session_id", msg.sessionID),
			zap.String("type", msg.kind))
	}
}

// ClientCount returns the number of connections watching sessionID.
func (h *Hub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sessions[client.sessionID] == nil {
		h.sessions[client.sessionID] = make(map[*Client]bool)
	}
	h.sessions[client.sessionID][client] = true
	h.metrics.ClientConnected()
	close(client.registered)

	h.logger.Info("Client registered",
		zap.String("session_id", client.sessionID),
		zap.String("connectionID", client.id),
		zap.Int("sessionConnections", len(h.sessions[client.sessionID])))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.sessions[client.sessionID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	client.closeSend()
	if len(clients) == 0 {
		delete(h.sessions, client.sessionID)
	}
	h.metrics.ClientDisconnected()

	h.logger.Info("Client unregistered",
		zap.String("session_id", client.sessionID),
		zap.String("connectionID", client.id),
		zap.Int("remainingConnections", len(clients)))
}

// deliver sends a message to every client of a session. Clients whose send
// buffer is full are disconnected.
func (h *Hub) deliver(msg outbound) {
	h.mu.RLock()
	var slow []*Client
	for client := range h.sessions[msg.sessionID] {
		if !client.trySend(msg.payload) {
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.logger.Warn("Closing slow client",
			zap.String("session_id", client.sessionID),
			zap.String("connectionID", client.id))
		h.unregisterClient(client)
		_ = client.conn.Close()
	}
}

func (h *Hub) closeAllConnections() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sessionID, clients := range h.sessions {
		for client := range clients {
			client.closeSend()
			_ = client.conn.Close()
			h.metrics.ClientDisconnected()
		}
		delete(h.sessions, sessionID)
	}
	h.logger.Info("All connections closed")
}

// join waits until the hub has taken the client, so nothing published
// afterwards is missed. join and leave give up once the hub has stopped.
func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
	case <-h.done:
		return false
	}
	select {
	case <-c.registered:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
