package engine

import (
	"constellations/domain/core/entities"
	"constellations/domain/core/valueobjects"
	pkgerrors "constellations/pkg/errors"

	"go.uber.org/zap"
)

// dragGesture owns the pin of one node from start to end.
type dragGesture struct {
	id   valueobjects.NodeID
	node *entities.Node
}

func (e *Engine) lookup(id valueobjects.NodeID) (*entities.Node, error) {
	n, ok := e.byID[id]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("node " + id.String()).WithCause(entities.ErrUnknownNode)
	}
	return n, nil
}

// Draggable reports whether a drag may start on n. In chronological mode the
// timed and person nodes hold meaningful positions and cannot be moved.
func (e *Engine) Draggable(n *entities.Node) bool {
	if !e.opts.Mode.IsChronological() {
		return true
	}
	return !n.HasYear() && !n.IsPerson()
}

// DragStart pins the node at the pointer (screen coordinates) and, in
// free-form mode, keeps the simulation warm so neighbours follow.
func (e *Engine) DragStart(id valueobjects.NodeID, pointer valueobjects.Position) error {
	n, err := e.lookup(id)
	if err != nil {
		return err
	}
	if !e.Draggable(n) {
		return pkgerrors.NewConflictError("drag disabled for " + id.String()).WithCause(entities.ErrNotDraggable)
	}
	if e.drag != nil {
		e.DragEnd()
	}

	n.SetPin(e.view.current.Invert(pointer), entities.PinDrag)
	n.ApplyPin()
	e.drag = &dragGesture{id: id, node: n}

	if !e.opts.Mode.IsChronological() {
		e.sim.SetAlphaTarget(e.cfg.Simulation.DragAlphaTarget)
		e.sim.Restart()
		e.metrics.Reheated("drag")
	}
	return nil
}

// DragMove moves the pin to the pointer. Without an active drag it does
// nothing.
func (e *Engine) DragMove(pointer valueobjects.Position) {
	if e.drag == nil {
		return
	}
	e.drag.node.SetPin(e.view.current.Invert(pointer), entities.PinDrag)
	e.drag.node.ApplyPin()
}

// DragEnd releases the pin in free-form mode. In chronological mode the node
// stays where it was dropped under layout ownership, including across later
// pin recomputes, until the mode changes or the node gains a year.
func (e *Engine) DragEnd() {
	if e.drag == nil {
		return
	}
	n := e.drag.node
	e.drag = nil

	if e.opts.Mode.IsChronological() {
		if pos, ok := n.Pin(); ok {
			n.ClearPin(entities.PinDrag)
			n.SetPin(pos, entities.PinLayout)
			if e.dropped == nil {
				e.dropped = make(map[valueobjects.NodeID]valueobjects.Position)
			}
			e.dropped[n.ID] = pos
		}
		return
	}
	n.ClearPin(entities.PinDrag)
	e.sim.SetAlphaTarget(0)
}

// Dragging returns the id of the node being dragged.
func (e *Engine) Dragging() (valueobjects.NodeID, bool) {
	if e.drag == nil {
		return "", false
	}
	return e.drag.id, true
}

// cancelDrag ends a gesture without the release semantics; the caller is
// about to overwrite pins anyway.
func (e *Engine) cancelDrag() {
	if e.drag == nil {
		return
	}
	e.drag.node.ForceClearPin()
	e.drag = nil
	e.sim.SetAlphaTarget(0)
}

// rebindDrag points an in-flight gesture at the node that replaced the
// dragged one, or cancels it when the node is gone.
func (e *Engine) rebindDrag() {
	if e.drag == nil {
		return
	}
	n, ok := e.byID[e.drag.id]
	if !ok {
		e.logger.Debug("Dragged node removed by snapshot", zap.String("node_id", e.drag.id.String()))
		e.drag = nil
		e.sim.SetAlphaTarget(0)
		return
	}
	e.drag.node = n
}

// ClickNode toggles the click focus. Clicking the focused node clears it.
func (e *Engine) ClickNode(id valueobjects.NodeID) error {
	n, err := e.lookup(id)
	if err != nil {
		return err
	}
	if e.Focus() == id {
		e.clickFocus = ""
		e.selected = ""
		e.listener.NodeClicked(nil)
		return nil
	}
	e.clickFocus = id
	e.listener.NodeClicked(n.Clone())
	return nil
}

// ClickLink reports a link click outward.
func (e *Engine) ClickLink(id valueobjects.LinkID) error {
	for _, l := range e.links {
		if l.ID == id {
			e.listener.LinkClicked(l.Clone())
			return nil
		}
	}
	return pkgerrors.NewNotFoundError("link " + id.String())
}

// ClickBackground clears focus and hover.
func (e *Engine) ClickBackground() {
	hadFocus := !e.Focus().IsZero()
	e.clickFocus = ""
	e.selected = ""
	e.hover = ""
	if hadFocus {
		e.listener.NodeClicked(nil)
	}
}

// Hover sets the hovered node; an empty or unknown id clears it.
func (e *Engine) Hover(id valueobjects.NodeID) {
	if _, ok := e.byID[id]; !ok {
		e.hover = ""
		return
	}
	e.hover = id
}

// Hovered returns the hovered node id.
func (e *Engine) Hovered() valueobjects.NodeID {
	return e.hover
}
