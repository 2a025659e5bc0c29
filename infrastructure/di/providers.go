// Package di wires the serve command's object graph.
package di

import (
	"context"
	"net/http"

	"constellations/application/commands/bus"
	commandhandlers "constellations/application/commands/handlers"
	"constellations/application/ports"
	querybus "constellations/application/queries/bus"
	queryhandlers "constellations/application/queries/handlers"
	"constellations/application/session"
	domainconfig "constellations/domain/config"
	"constellations/infrastructure/cache"
	"constellations/infrastructure/config"
	"constellations/infrastructure/observability"
	"constellations/infrastructure/render/svg"
	"constellations/interfaces/http/rest"
	"constellations/interfaces/websocket"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// MetricsNamespace prefixes every exported metric.
const MetricsNamespace = "constellations"

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

// ProvideLayoutWatcher watches the layout tuning file. It returns nil when no
// file is configured.
func ProvideLayoutWatcher(cfg *config.Config, logger *zap.Logger) (*config.LayoutWatcher, error) {
	if cfg.LayoutConfigPath == "" {
		return nil, nil
	}
	return config.NewLayoutWatcher(cfg.LayoutConfigPath, logger)
}

// ProvideLayoutConfig returns the tuning new sessions start with.
func ProvideLayoutConfig(cfg *config.Config, watcher *config.LayoutWatcher) (*domainconfig.LayoutConfig, error) {
	if watcher != nil {
		return watcher.Current(), nil
	}
	return config.LoadLayoutConfig(cfg.LayoutConfigPath)
}

// ProvideMetrics creates the Prometheus collector
func ProvideMetrics() *observability.Collector {
	return observability.NewCollector(MetricsNamespace)
}

// ProvideTracerProvider installs OTLP tracing when enabled, nil otherwise.
func ProvideTracerProvider(ctx context.Context, cfg *config.Config) (*observability.TracerProvider, error) {
	if !cfg.EnableTracing {
		return nil, nil
	}
	return observability.InitTracing(ctx, observability.TracingConfig{
		ServiceName:    "constellations",
		ServiceVersion: cfg.ServiceVersion,
		Environment:    cfg.Environment,
		Endpoint:       cfg.TracingEndpoint,
		SampleRate:     cfg.TracingSampling,
		Insecure:       !cfg.IsProduction(),
	})
}

// ProvideTracer returns the bus tracer, a no-op one when tracing is off.
func ProvideTracer(tp *observability.TracerProvider) trace.Tracer {
	if tp == nil {
		return observability.NoopTracer()
	}
	return tp.Tracer()
}

// ProvideHub creates the websocket hub
func ProvideHub(metrics *observability.Collector, logger *zap.Logger) *websocket.Hub {
	return websocket.NewHub(metrics, logger)
}

// ProvideCache provides the cache for rendered documents
func ProvideCache() *cache.InMemoryCache {
	return cache.NewInMemoryCache(cache.DefaultCleanupInterval)
}

// ProvideFrameRenderer creates the SVG renderer behind frame.svg
func ProvideFrameRenderer() ports.FrameRenderer {
	return svg.NewRenderer(svg.DefaultStyle())
}

// ProvideSessionManager creates the session manager. Each session paints into
// an SVG scene, which also measures card content, and into the hub.
func ProvideSessionManager(
	cfg *config.Config,
	layout *domainconfig.LayoutConfig,
	watcher *config.LayoutWatcher,
	hub *websocket.Hub,
	metrics *observability.Collector,
	logger *zap.Logger,
) *session.Manager {
	runnerCfg := session.DefaultRunnerConfig()
	runnerCfg.TickInterval = cfg.TickInterval
	runnerCfg.PaintInterval = cfg.PaintInterval

	manager := session.NewManager(layout, runnerCfg, logger,
		session.WithMaxSessions(cfg.MaxSessions),
		session.WithSessionMetrics(metrics),
		session.WithSceneFactory(func(id string) ports.Scene {
			return ports.MultiScene{svg.NewScene(svg.DefaultStyle()), hub.Scene(id)}
		}),
		session.WithListenerFactory(hub.Listener),
	)

	if watcher != nil {
		watcher.OnChange(manager.ApplyConfig)
	}
	return manager
}

// ProvideCommandBus creates the command bus with every session command
// registered
func ProvideCommandBus(manager *session.Manager, tracer trace.Tracer, logger *zap.Logger) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus(
		bus.LoggingMiddleware(logger),
		bus.TracingMiddleware(tracer),
	)
	if err := commandhandlers.NewSessionHandlers(manager, logger).Register(commandBus); err != nil {
		return nil, err
	}
	return commandBus, nil
}

// ProvideQueryBus creates the query bus with every session query registered
func ProvideQueryBus(
	cfg *config.Config,
	manager *session.Manager,
	renderer ports.FrameRenderer,
	documentCache *cache.InMemoryCache,
	tracer trace.Tracer,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	var opts []queryhandlers.Option
	if cfg.DocumentCacheTTL > 0 {
		opts = append(opts, queryhandlers.WithDocumentCache(documentCache, cfg.DocumentCacheTTL))
	}

	queryBus := querybus.NewQueryBus(querybus.TracingMiddleware(tracer))
	if err := queryhandlers.NewSessionQueryHandlers(manager, renderer, logger, opts...).Register(queryBus); err != nil {
		return nil, err
	}
	return queryBus, nil
}

// ProvideWebSocketServer creates the per-session websocket endpoint
func ProvideWebSocketServer(
	cfg *config.Config,
	hub *websocket.Hub,
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	logger *zap.Logger,
) *websocket.Server {
	wsCfg := websocket.DefaultServerConfig()
	wsCfg.MessagesPerSecond = cfg.WSMessagesPerSecond
	wsCfg.Burst = cfg.WSBurst
	return websocket.NewServer(hub, commandBus, queryBus, wsCfg, logger)
}

// ProvideHTTPHandler builds the REST router
func ProvideHTTPHandler(
	cfg *config.Config,
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	metrics *observability.Collector,
	ws *websocket.Server,
	logger *zap.Logger,
) http.Handler {
	opts := rest.RouterOptions{
		CORSOrigins: cfg.CORSOrigins,
		WebSocket:   ws,
	}
	if cfg.EnableMetrics {
		opts.MetricsHandler = metrics.Handler()
		opts.Recorder = metrics
	}
	return rest.NewRouter(commandBus, queryBus, opts, logger).Setup()
}
