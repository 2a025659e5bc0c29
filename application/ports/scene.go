package ports

import (
	"context"
	"io"

	"constellations/domain/core/entities"
	"constellations/domain/core/valueobjects"
)

// Scene is a retained drawing surface. It receives the full declarative
// frame and performs its own create/update/destroy reconciliation.
type Scene interface {
	Commit(ctx context.Context, frame *Frame) error
}

// Measurer is implemented by scenes that can report the rendered height of
// card content. Missing ids mean the scene could not measure them.
type Measurer interface {
	MeasureContent(ids []valueobjects.NodeID) map[valueobjects.NodeID]float64
}

// Listener receives the events the engine reports outward. Arguments are
// copies owned by the listener.
type Listener interface {
	// NodeClicked receives nil when focus was cleared.
	NodeClicked(node *entities.Node)
	LinkClicked(link *entities.Link)
	VisibleNodes(nodes []*entities.Node)
}

// NoopListener ignores every event.
type NoopListener struct{}

func (NoopListener) NodeClicked(*entities.Node) {}
func (NoopListener) LinkClicked(*entities.Link) {}
func (NoopListener) VisibleNodes([]*entities.Node) {}

// ListenerFuncs adapts plain functions; nil fields are skipped.
type ListenerFuncs struct {
	OnNodeClick    func(*entities.Node)
	OnLinkClick    func(*entities.Link)
	OnVisibleNodes func([]*entities.Node)
}

func (l ListenerFuncs) NodeClicked(n *entities.Node) {
	if l.OnNodeClick != nil {
		l.OnNodeClick(n)
	}
}

func (l ListenerFuncs) LinkClicked(link *entities.Link) {
	if l.OnLinkClick != nil {
		l.OnLinkClick(link)
	}
}

func (l ListenerFuncs) VisibleNodes(nodes []*entities.Node) {
	if l.OnVisibleNodes != nil {
		l.OnVisibleNodes(nodes)
	}
}

// MultiScene commits every frame to several scenes. Measurement goes to the
// first member that can measure.
type MultiScene []Scene

func (m MultiScene) Commit(ctx context.Context, frame *Frame) error {
	var firstErr error
	for _, s := range m {
		if err := s.Commit(ctx, frame); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m MultiScene) MeasureContent(ids []valueobjects.NodeID) map[valueobjects.NodeID]float64 {
	for _, s := range m {
		if measurer, ok := s.(Measurer); ok {
			return measurer.MeasureContent(ids)
		}
	}
	return nil
}

// SceneFunc adapts a function that only observes frames.
type SceneFunc func(ctx context.Context, frame *Frame) error

func (f SceneFunc) Commit(ctx context.Context, frame *Frame) error {
	return f(ctx, frame)
}

// FrameRenderer serializes a frame into a standalone document.
type FrameRenderer interface {
	Render(w io.Writer, frame *Frame) error
	ContentType() string
}
