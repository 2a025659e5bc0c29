package engine

import (
	"time"

	"constellations/domain/core/entities"
	"constellations/domain/core/valueobjects"
	"constellations/domain/viewport"
	pkgerrors "constellations/pkg/errors"
)

// viewState is the pan/zoom transform and the animation moving it.
type viewState struct {
	current viewport.Transform
	anim    *viewport.Animation
}

func newViewState() viewState {
	return viewState{current: viewport.Identity()}
}

func (v *viewState) reset() {
	v.current = viewport.Identity()
	v.anim = nil
}

// target is where the transform will end up once any animation finishes.
func (v *viewState) target() viewport.Transform {
	if v.anim != nil {
		return v.anim.To
	}
	return v.current
}

// Transform returns the current pan/zoom transform.
func (e *Engine) Transform() viewport.Transform {
	return e.view.current
}

// PanBy translates the view by a screen-space offset. It is part of an
// interactive gesture; call EndViewportGesture when the gesture ends.
func (e *Engine) PanBy(dx, dy float64) {
	e.view.anim = nil
	e.view.current = e.view.current.Translate(dx, dy)
}

// ZoomAt scales the view around a screen point, within the configured scale
// bounds.
func (e *Engine) ZoomAt(factor float64, anchor valueobjects.Position) {
	if factor <= 0 {
		return
	}
	e.view.anim = nil
	vp := e.cfg.Viewport
	e.view.current = e.view.current.ScaleAt(factor, anchor, vp.MinScale, vp.MaxScale)
}

// EndViewportGesture reports the nodes now on screen and returns them.
func (e *Engine) EndViewportGesture() []*entities.Node {
	return e.reportVisible()
}

// VisibleNodes lists nodes whose position falls inside the viewport grown by
// the configured margin.
func (e *Engine) VisibleNodes() []*entities.Node {
	var visible []*entities.Node
	for _, n := range e.nodes {
		if e.view.current.Visible(n.Position(), e.opts.ViewportWidth, e.opts.ViewportHeight, e.cfg.Viewport.VisibleMargin) {
			visible = append(visible, n.Clone())
		}
	}
	return visible
}

func (e *Engine) reportVisible() []*entities.Node {
	visible := e.VisibleNodes()
	e.listener.VisibleNodes(visible)
	return visible
}

// Arrow keys understood by KeyPan.
const (
	KeyArrowLeft  = "ArrowLeft"
	KeyArrowRight = "ArrowRight"
	KeyArrowUp    = "ArrowUp"
	KeyArrowDown  = "ArrowDown"
)

// KeyPan starts an eased pan by one step in the direction of an arrow key.
func (e *Engine) KeyPan(key string) error {
	step := e.cfg.Viewport.KeyPanStep
	var dx, dy float64
	switch key {
	case KeyArrowLeft:
		dx = step
	case KeyArrowRight:
		dx = -step
	case KeyArrowUp:
		dy = step
	case KeyArrowDown:
		dy = -step
	default:
		return pkgerrors.NewValidationError("unsupported key: " + key)
	}
	to := e.view.target().Translate(dx, dy)
	e.view.anim = viewport.NewAnimation(e.view.current, to, e.cfg.Viewport.KeyPanDuration, "key")
	return nil
}

// CenterOn animates the view so node id sits in the middle of the viewport.
// The scale is preserved.
func (e *Engine) CenterOn(id valueobjects.NodeID) error {
	n, err := e.lookup(id)
	if err != nil {
		return err
	}
	if !n.IsPlaced() {
		return pkgerrors.NewConflictError("node " + id.String() + " has no position yet")
	}
	to := e.view.current.CenteredOn(n.Position(), e.opts.ViewportWidth, e.opts.ViewportHeight)
	e.view.anim = viewport.NewAnimation(e.view.current, to, e.cfg.Viewport.CenterDuration, "center")
	return nil
}

// Animating reports whether a viewport animation is in progress.
func (e *Engine) Animating() bool {
	return e.view.anim != nil
}

func (e *Engine) advanceViewport(now time.Time) {
	if e.view.anim == nil {
		return
	}
	t, done := e.view.anim.Step(now)
	e.view.current = t
	if done {
		e.view.anim = nil
		e.reportVisible()
	}
}
