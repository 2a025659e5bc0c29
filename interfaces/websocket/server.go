package websocket

import (
	"context"
	"net/http"

	"constellations/application/ports"
	"constellations/application/queries"
	querybus "constellations/application/queries/bus"
	"constellations/pkg/common"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// QueryAsker answers queries; *querybus.QueryBus satisfies it.
type QueryAsker interface {
	Ask(ctx context.Context, query querybus.Query) (interface{}, error)
}

// ServerConfig holds websocket server configuration
type ServerConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
	// MessagesPerSecond and Burst bound inbound messages per connection.
	// Zero MessagesPerSecond disables throttling.
	MessagesPerSecond float64
	Burst             int
	// MaxClientsPerSession caps watchers of one session. Zero means no cap.
	MaxClientsPerSession int
}

// DefaultServerConfig returns default websocket server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ReadBufferSize:       1024,
		WriteBufferSize:      1024,
		CheckOrigin:          func(*http.Request) bool { return true },
		MessagesPerSecond:    60,
		Burst:                120,
		MaxClientsPerSession: 16,
	}
}

// Server upgrades session watch requests and wires each connection to the
// hub and the command bus.
type Server struct {
	hub      *Hub
	upgrader websocket.Upgrader
	commands CommandSender
	queries  QueryAsker
	config   ServerConfig
	logger   *zap.Logger
}

// NewServer creates a new websocket server
func NewServer(hub *Hub, commands CommandSender, queries QueryAsker, config ServerConfig, logger *zap.Logger) *Server {
	if config.CheckOrigin == nil {
		config.CheckOrigin = DefaultServerConfig().CheckOrigin
	}
	return &Server{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		commands: commands,
		queries:  queries,
		config:   config,
		logger:   logger,
	}
}

// ServeHTTP handles GET /api/v1/sessions/{id}/ws. The session must exist;
// its current frame is the first message the client receives.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	result, err := s.queries.Ask(r.Context(), queries.GetFrameQuery{SessionID: sessionID})
	if err != nil {
		common.RespondAppError(w, err)
		return
	}

	if limit := s.config.MaxClientsPerSession; limit > 0 && s.hub.ClientCount(sessionID) >= limit {
		s.logger.Warn("Connection limit exceeded for session",
			zap.String("session_id", sessionID),
			zap.Int("currentConnections", s.hub.ClientCount(sessionID)))
		common.RespondError(w, http.StatusTooManyRequests, common.StandardErrorCodes.TooManyRequests, "Connection limit exceeded")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Failed to upgrade connection",
			zap.Error(err),
			zap.String("remoteAddr", r.RemoteAddr))
		return
	}

	client := NewClient(sessionID, s.hub, conn, s.commands, s.limiter(), s.logger)
	if frame, ok := result.(*ports.Frame); ok && frame != nil {
		if payload, err := frameMessage(frame); err == nil {
			client.trySend(payload)
		}
	}
	if !client.Start() {
		return
	}

	s.logger.Info("New WebSocket connection established",
		zap.String("session_id", sessionID),
		zap.String("connectionID", client.ID()),
		zap.String("remoteAddr", r.RemoteAddr))
}

func (s *Server) limiter() *rate.Limiter {
	if s.config.MessagesPerSecond <= 0 {
		return nil
	}
	burst := s.config.Burst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(s.config.MessagesPerSecond), burst)
}
