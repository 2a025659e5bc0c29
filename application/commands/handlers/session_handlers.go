// Package handlers executes session commands against the session manager.
package handlers

import (
	"context"
	"fmt"

	"constellations/application/commands"
	"constellations/application/commands/bus"
	"constellations/application/engine"
	"constellations/application/session"
	"constellations/domain/core/valueobjects"
	pkgerrors "constellations/pkg/errors"

	"go.uber.org/zap"
)

// SessionHandlers handles every session command.
type SessionHandlers struct {
	manager *session.Manager
	logger  *zap.Logger
}

// NewSessionHandlers creates the handlers.
func NewSessionHandlers(manager *session.Manager, logger *zap.Logger) *SessionHandlers {
	return &SessionHandlers{manager: manager, logger: logger}
}

// Register wires every session command into b.
func (h *SessionHandlers) Register(b *bus.CommandBus) error {
	registrations := []struct {
		cmd     bus.Command
		handler bus.CommandHandlerFunc
	}{
		{commands.CreateSessionCommand{}, adapt(h.CreateSession)},
		{commands.CloseSessionCommand{}, adapt(h.CloseSession)},
		{commands.ReplaceSnapshotCommand{}, adapt(h.ReplaceSnapshot)},
		{commands.UpdateOptionsCommand{}, adapt(h.UpdateOptions)},
		{commands.SetHighlightCommand{}, adapt(h.SetHighlight)},
		{commands.CenterOnNodeCommand{}, adapt(h.CenterOnNode)},
		{commands.InteractCommand{}, adapt(h.Interact)},
		{commands.ApplyMeasurementsCommand{}, adapt(h.ApplyMeasurements)},
	}
	for _, r := range registrations {
		if err := b.Register(r.cmd, r.handler); err != nil {
			return err
		}
	}
	return nil
}

// adapt turns a typed handler into a bus handler.
func adapt[C bus.Command](fn func(context.Context, C) error) bus.CommandHandlerFunc {
	return func(ctx context.Context, cmd bus.Command) error {
		typed, ok := cmd.(C)
		if !ok {
			return pkgerrors.NewInternalError(fmt.Sprintf("unexpected command type %T", cmd))
		}
		return fn(ctx, typed)
	}
}

// CreateSession opens a session.
func (h *SessionHandlers) CreateSession(_ context.Context, cmd commands.CreateSessionCommand) error {
	opts := engine.DefaultOptions()
	mode, err := valueobjects.ParseLayoutMode(cmd.Mode)
	if err != nil {
		return err
	}
	opts.Mode = mode
	opts.Compact = cmd.Compact
	opts.TextOnly = cmd.TextOnly
	if cmd.Width > 0 {
		opts.ViewportWidth = cmd.Width
	}
	if cmd.Height > 0 {
		opts.ViewportHeight = cmd.Height
	}

	_, err = h.manager.Create(cmd.SessionID, opts)
	return err
}

// CloseSession tears a session down.
func (h *SessionHandlers) CloseSession(_ context.Context, cmd commands.CloseSessionCommand) error {
	return h.manager.Close(cmd.SessionID)
}

// ReplaceSnapshot converts the document and hands it to the engine.
func (h *SessionHandlers) ReplaceSnapshot(ctx context.Context, cmd commands.ReplaceSnapshotCommand) error {
	nodes, links, err := cmd.Document.Entities()
	if err != nil {
		return err
	}
	return h.do(ctx, cmd.SessionID, func(e *engine.Engine) error {
		result, err := e.ApplySnapshot(nodes, links)
		if err != nil {
			return err
		}
		h.logger.Debug("Snapshot applied",
			zap.String("session_id", cmd.SessionID),
			zap.Int("nodes", result.Nodes),
			zap.Int("links", result.Links),
			zap.Int("dropped_links", result.DroppedLinks),
			zap.Bool("structural", result.Structural))
		return nil
	})
}

// UpdateOptions applies the non-nil flags.
func (h *SessionHandlers) UpdateOptions(ctx context.Context, cmd commands.UpdateOptionsCommand) error {
	var mode *valueobjects.LayoutMode
	if cmd.Mode != nil {
		m, err := valueobjects.ParseLayoutMode(*cmd.Mode)
		if err != nil {
			return err
		}
		mode = &m
	}

	return h.do(ctx, cmd.SessionID, func(e *engine.Engine) error {
		if cmd.Width != nil || cmd.Height != nil {
			opts := e.Options()
			w, ht := opts.ViewportWidth, opts.ViewportHeight
			if cmd.Width != nil {
				w = *cmd.Width
			}
			if cmd.Height != nil {
				ht = *cmd.Height
			}
			e.SetViewport(w, ht)
		}
		if cmd.Compact != nil {
			e.SetCompact(*cmd.Compact)
		}
		if cmd.TextOnly != nil {
			e.SetTextOnly(*cmd.TextOnly)
		}
		if mode != nil {
			e.SetMode(*mode)
		}
		if cmd.Selected != nil {
			e.SetSelected(valueobjects.NodeID(*cmd.Selected))
		}
		if cmd.SearchEpoch != nil {
			e.SetSearchEpoch(*cmd.SearchEpoch)
		}
		return nil
	})
}

// SetHighlight replaces the keep and drop sets.
func (h *SessionHandlers) SetHighlight(ctx context.Context, cmd commands.SetHighlightCommand) error {
	keep, drop := toNodeIDs(cmd.Keep), toNodeIDs(cmd.Drop)
	return h.do(ctx, cmd.SessionID, func(e *engine.Engine) error {
		e.SetHighlight(keep, drop)
		return nil
	})
}

// CenterOnNode animates the viewport onto a node.
func (h *SessionHandlers) CenterOnNode(ctx context.Context, cmd commands.CenterOnNodeCommand) error {
	return h.do(ctx, cmd.SessionID, func(e *engine.Engine) error {
		return e.CenterOn(valueobjects.NodeID(cmd.NodeID))
	})
}

// Interact forwards one pointer or keyboard event.
func (h *SessionHandlers) Interact(ctx context.Context, cmd commands.InteractCommand) error {
	pointer := valueobjects.Position{X: cmd.X, Y: cmd.Y}
	node := valueobjects.NodeID(cmd.NodeID)

	return h.do(ctx, cmd.SessionID, func(e *engine.Engine) error {
		switch cmd.Kind {
		case commands.InteractDragStart:
			return e.DragStart(node, pointer)
		case commands.InteractDragMove:
			e.DragMove(pointer)
		case commands.InteractDragEnd:
			e.DragEnd()
		case commands.InteractClickNode:
			return e.ClickNode(node)
		case commands.InteractClickLink:
			return e.ClickLink(valueobjects.LinkID(cmd.LinkID))
		case commands.InteractClickBackground:
			e.ClickBackground()
		case commands.InteractHover:
			e.Hover(node)
		case commands.InteractPan:
			e.PanBy(cmd.DX, cmd.DY)
		case commands.InteractZoom:
			e.ZoomAt(cmd.Factor, pointer)
		case commands.InteractGestureEnd:
			e.EndViewportGesture()
		case commands.InteractKeyPan:
			return e.KeyPan(cmd.Key)
		default:
			return pkgerrors.NewValidationError("unknown interaction: " + cmd.Kind)
		}
		return nil
	})
}

// ApplyMeasurements stores card heights reported by a remote scene.
func (h *SessionHandlers) ApplyMeasurements(ctx context.Context, cmd commands.ApplyMeasurementsCommand) error {
	heights := make(map[valueobjects.NodeID]float64, len(cmd.Heights))
	for id, v := range cmd.Heights {
		heights[valueobjects.NodeID(id)] = v
	}
	return h.do(ctx, cmd.SessionID, func(e *engine.Engine) error {
		e.ApplyMeasurements(heights)
		return nil
	})
}

func (h *SessionHandlers) do(ctx context.Context, id string, fn func(*engine.Engine) error) error {
	runner, err := h.manager.Get(id)
	if err != nil {
		return err
	}
	return runner.Do(ctx, fn)
}

func toNodeIDs(ids []string) []valueobjects.NodeID {
	out := make([]valueobjects.NodeID, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, valueobjects.NodeID(id))
		}
	}
	return out
}
