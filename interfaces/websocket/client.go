package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"constellations/application/commands"
	"constellations/application/commands/bus"
	"constellations/application/snapshot"
	"constellations/pkg/common"
	pkgerrors "constellations/pkg/errors"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer; snapshots travel this way too
	maxMessageSize = snapshot.MaxDocumentBytes

	sendBufferSize = 256

	// Upper bound for one inbound command
	commandTimeout = 5 * time.Second
)

// CommandSender dispatches commands; *bus.CommandBus satisfies it.
type CommandSender interface {
	Send(ctx context.Context, cmd bus.Command) error
}

// Client is one websocket connection watching a session
type Client struct {
	id         string
	sessionID  string
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	sendMu     sync.Mutex
	sendClosed bool
	registered chan struct{}
	commands   CommandSender
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient creates a new client. A nil limiter disables throttling.
func NewClient(sessionID string, hub *Hub, conn *websocket.Conn, commands CommandSender, limiter *rate.Limiter, logger *zap.Logger) *Client {
	id := uuid.New().String()
	return &Client{
		id:         id,
		sessionID:  sessionID,
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufferSize),
		registered: make(chan struct{}),
		commands:   commands,
		limiter:    limiter,
		logger: logger.With(
			zap.String("session_id", sessionID),
			zap.String("connectionID", id),
		),
	}
}

// ID returns the connection id.
func (c *Client) ID() string { return c.id }

// Start registers the client and begins its read and write pumps
func (c *Client) Start() bool {
	if !c.hub.join(c) {
		_ = c.conn.Close()
		return false
	}
	go c.writePump()
	go c.readPump()
	return true
}

// readPump pumps messages from the connection into the command bus
func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		_ = c.conn.Close()
		c.logger.Debug("Read pump stopped")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}

		switch messageType {
		case websocket.TextMessage:
			c.handleTextMessage(message)
		case websocket.BinaryMessage:
			c.reply(TypeError, ErrorData{Code: common.StandardErrorCodes.BadRequest, Message: "binary messages are not supported"})
		}
	}
}

// writePump pumps messages from the hub to the connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		c.logger.Debug("Write pump stopped")
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Debug("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("Failed to send ping", zap.Error(err))
				return
			}
		}
	}
}

// handleTextMessage throttles, decodes and dispatches one inbound message.
func (c *Client) handleTextMessage(message []byte) {
	if c.limiter != nil && !c.limiter.Allow() {
		c.hub.metrics.MessageThrottled()
		c.reply(TypeError, ErrorData{Code: common.StandardErrorCodes.TooManyRequests, Message: "message rate exceeded"})
		return
	}

	var msg Message
	if err := json.Unmarshal(bytes.TrimSpace(message), &msg); err != nil {
		c.reply(TypeError, ErrorData{Code: common.StandardErrorCodes.BadRequest, Message: "malformed message: " + err.Error()})
		return
	}

	cmd, err := c.command(msg)
	if err != nil {
		c.replyError(err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if err := c.commands.Send(ctx, cmd); err != nil {
		c.logger.Debug("Command rejected", zap.String("type", msg.Type), zap.Error(err))
		c.replyError(err)
	}
}

// command converts a message into the command it asks for.
func (c *Client) command(msg Message) (bus.Command, error) {
	switch msg.Type {
	case TypeInteraction:
		var data InteractionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return nil, pkgerrors.NewValidationError("malformed interaction: " + err.Error())
		}
		return commands.InteractCommand{
			SessionID: c.sessionID,
			Kind:      data.Kind,
			NodeID:    data.NodeID,
			LinkID:    data.LinkID,
			X:         data.X,
			Y:         data.Y,
			DX:        data.DX,
			DY:        data.DY,
			Factor:    data.Factor,
			Key:       data.Key,
		}, nil

	case TypeMeasurements:
		var data MeasurementsData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return nil, pkgerrors.NewValidationError("malformed measurements: " + err.Error())
		}
		return commands.ApplyMeasurementsCommand{SessionID: c.sessionID, Heights: data.Heights}, nil

	case TypeSnapshot:
		doc, err := snapshot.Decode(bytes.NewReader(msg.Data))
		if err != nil {
			return nil, err
		}
		return commands.ReplaceSnapshotCommand{SessionID: c.sessionID, Document: doc}, nil

	default:
		return nil, pkgerrors.NewValidationError("unknown message type: " + msg.Type)
	}
}

func (c *Client) replyError(err error) {
	data := ErrorData{Code: common.StandardErrorCodes.InternalError, Message: "internal error"}
	if appErr := pkgerrors.GetAppError(err); appErr != nil {
		data.Code = string(appErr.Type)
		if appErr.Code != "" {
			data.Code = appErr.Code
		}
		data.Message = appErr.Message
	}
	c.reply(TypeError, data)
}

// reply queues a message for this client only.
func (c *Client) reply(messageType string, data interface{}) {
	payload, err := encode(messageType, data)
	if err != nil {
		c.logger.Error("Failed to marshal reply", zap.Error(err))
		return
	}
	if !c.trySend(payload) {
		c.logger.Warn("Send buffer full, reply dropped", zap.String("type", messageType))
	}
}

// trySend queues payload without blocking. It reports false only when the
// buffer is full; a closed client swallows the payload.
func (c *Client) trySend(payload []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return true
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// closeSend ends the write pump. Safe to call more than once.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.sendClosed {
		c.sendClosed = true
		close(c.send)
	}
}
