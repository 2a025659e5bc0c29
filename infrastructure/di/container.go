package di

import (
	"context"
	"net/http"

	"constellations/application/commands/bus"
	querybus "constellations/application/queries/bus"
	"constellations/application/session"
	domainconfig "constellations/domain/config"
	"constellations/infrastructure/cache"
	"constellations/infrastructure/config"
	"constellations/infrastructure/observability"
	"constellations/interfaces/websocket"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config     *config.Config
	Logger     *zap.Logger
	Layout     *domainconfig.LayoutConfig
	Watcher    *config.LayoutWatcher
	Metrics    *observability.Collector
	Tracing    *observability.TracerProvider
	Hub        *websocket.Hub
	Manager    *session.Manager
	Cache      *cache.InMemoryCache
	CommandBus *bus.CommandBus
	QueryBus   *querybus.QueryBus
	Handler    http.Handler
}

// Shutdown closes every session, stops the cache sweeper and flushes traces.
func (c *Container) Shutdown(ctx context.Context) error {
	c.Manager.CloseAll()
	c.Cache.Close()
	if c.Tracing != nil {
		return c.Tracing.Shutdown(ctx)
	}
	return nil
}
