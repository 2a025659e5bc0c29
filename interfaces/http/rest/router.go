// Package rest exposes diagram sessions over HTTP.
package rest

import (
	"net/http"

	"constellations/application/commands/bus"
	querybus "constellations/application/queries/bus"
	"constellations/interfaces/http/rest/handlers"
	"constellations/interfaces/http/rest/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RouterOptions carries the optional collaborators of the router.
type RouterOptions struct {
	CORSOrigins []string
	// MetricsHandler is mounted at /metrics when set.
	MetricsHandler http.Handler
	// Recorder observes every request when set.
	Recorder middleware.RequestRecorder
	// WebSocket is mounted at /api/v1/sessions/{id}/ws when set.
	WebSocket http.Handler
}

// Router creates and configures the HTTP router
type Router struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	opts       RouterOptions
	logger     *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	opts RouterOptions,
	logger *zap.Logger,
) *Router {
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	return &Router{
		commandBus: commandBus,
		queryBus:   queryBus,
		opts:       opts,
		logger:     logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	if rt.opts.Recorder != nil {
		router.Use(middleware.Metrics(rt.opts.Recorder))
	}

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: rt.opts.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-Frame-Seq", "Location"},
		MaxAge:         300,
	}))

	router.Get("/health", rt.healthCheck)
	if rt.opts.MetricsHandler != nil {
		router.Method(http.MethodGet, "/metrics", rt.opts.MetricsHandler)
	}

	router.Route("/api/v1/sessions", func(r chi.Router) {
		sessionHandler := handlers.NewSessionHandler(rt.commandBus, rt.queryBus, rt.logger)
		r.Post("/", sessionHandler.CreateSession)
		r.Get("/", sessionHandler.ListSessions)

		r.Route("/{id}", func(r chi.Router) {
			r.Delete("/", sessionHandler.CloseSession)
			r.Put("/snapshot", sessionHandler.ReplaceSnapshot)
			r.Put("/options", sessionHandler.UpdateOptions)
			r.Put("/highlight", sessionHandler.SetHighlight)
			r.Post("/center/{nodeID}", sessionHandler.CenterOnNode)
			r.Post("/interactions", sessionHandler.Interact)
			r.Get("/frame", sessionHandler.GetFrame)
			r.Get("/frame.svg", sessionHandler.GetFrameSVG)
			if rt.opts.WebSocket != nil {
				r.Method(http.MethodGet, "/ws", rt.opts.WebSocket)
			}
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}
