// Package handlers answers session queries.
package handlers

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"constellations/application/engine"
	"constellations/application/ports"
	"constellations/application/queries"
	"constellations/application/queries/bus"
	"constellations/application/session"
	pkgerrors "constellations/pkg/errors"

	"go.uber.org/zap"
)

// SessionQueryHandlers handles every session query.
type SessionQueryHandlers struct {
	manager  *session.Manager
	renderer ports.FrameRenderer
	cache    ports.Cache
	cacheTTL int
	logger   *zap.Logger
}

// Option customizes the handlers.
type Option func(*SessionQueryHandlers)

// WithDocumentCache keeps rendered documents for ttl seconds, keyed by
// session and frame sequence.
func WithDocumentCache(cache ports.Cache, ttl int) Option {
	return func(h *SessionQueryHandlers) {
		h.cache = cache
		h.cacheTTL = ttl
	}
}

// NewSessionQueryHandlers creates the handlers.
func NewSessionQueryHandlers(manager *session.Manager, renderer ports.FrameRenderer, logger *zap.Logger, opts ...Option) *SessionQueryHandlers {
	h := &SessionQueryHandlers{manager: manager, renderer: renderer, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register wires every session query into b.
func (h *SessionQueryHandlers) Register(b *bus.QueryBus) error {
	if err := b.Register(queries.GetFrameQuery{}, adapt(h.GetFrame)); err != nil {
		return err
	}
	if err := b.Register(queries.RenderSVGQuery{}, adapt(h.RenderSVG)); err != nil {
		return err
	}
	return b.Register(queries.ListSessionsQuery{}, adapt(h.ListSessions))
}

func adapt[Q bus.Query, R any](fn func(context.Context, Q) (R, error)) bus.QueryHandlerFunc {
	return func(ctx context.Context, query bus.Query) (interface{}, error) {
		typed, ok := query.(Q)
		if !ok {
			return nil, pkgerrors.NewInternalError(fmt.Sprintf("unexpected query type %T", query))
		}
		result, err := fn(ctx, typed)
		if err != nil {
			return nil, err
		}
		return result, nil
	}
}

// GetFrame returns the latest frame. A session that has not painted yet is
// painted on the spot.
func (h *SessionQueryHandlers) GetFrame(ctx context.Context, q queries.GetFrameQuery) (*ports.Frame, error) {
	runner, err := h.manager.Get(q.SessionID)
	if err != nil {
		return nil, err
	}

	var frame *ports.Frame
	err = runner.Do(ctx, func(e *engine.Engine) error {
		frame = e.LastFrame()
		if frame != nil {
			return nil
		}
		painted, err := e.Paint(ctx, time.Now())
		frame = painted
		return err
	})
	if err != nil {
		return nil, err
	}
	return frame, nil
}

// RenderSVG renders the latest frame with the configured renderer. A frame
// that was already rendered is served from the cache.
func (h *SessionQueryHandlers) RenderSVG(ctx context.Context, q queries.RenderSVGQuery) (*queries.RenderedDocument, error) {
	if h.renderer == nil {
		return nil, pkgerrors.NewUnavailableError("renderer")
	}
	frame, err := h.GetFrame(ctx, queries.GetFrameQuery{SessionID: q.SessionID})
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("document:%s:%d", q.SessionID, frame.Seq)
	if h.cache != nil {
		if cached, found := h.cache.Get(ctx, cacheKey); found {
			if doc, ok := cached.(*queries.RenderedDocument); ok {
				return doc, nil
			}
		}
	}

	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, frame); err != nil {
		h.logger.Error("Failed to render frame",
			zap.String("session_id", q.SessionID),
			zap.Uint64("seq", frame.Seq),
			zap.Error(err))
		return nil, pkgerrors.Wrap(err, "render frame")
	}
	doc := &queries.RenderedDocument{
		ContentType: h.renderer.ContentType(),
		Body:        buf.Bytes(),
		Seq:         frame.Seq,
	}
	if h.cache != nil {
		if err := h.cache.Set(ctx, cacheKey, doc, h.cacheTTL); err != nil {
			h.logger.Warn("Failed to cache document", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return doc, nil
}

// ListSessions returns the live sessions.
func (h *SessionQueryHandlers) ListSessions(_ context.Context, _ queries.ListSessionsQuery) ([]session.Info, error) {
	return h.manager.List(), nil
}
