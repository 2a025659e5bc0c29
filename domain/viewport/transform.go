// Package viewport holds the pan/zoom transform and its animations.
package viewport

import (
	"math"
	"time"

	"constellations/domain/core/valueobjects"
)

// Transform maps world space to screen space: screen = world*K + (X, Y).
type Transform struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	K float64 `json:"k"`
}

// Identity is the unpanned, unzoomed transform.
func Identity() Transform {
	return Transform{K: 1}
}

// Apply converts a world position to screen space.
func (t Transform) Apply(p valueobjects.Position) valueobjects.Position {
	return valueobjects.Position{X: p.X*t.K + t.X, Y: p.Y*t.K + t.Y}
}

// Invert converts a screen position to world space.
func (t Transform) Invert(p valueobjects.Position) valueobjects.Position {
	return valueobjects.Position{X: (p.X - t.X) / t.K, Y: (p.Y - t.Y) / t.K}
}

// Translate pans by a screen-space offset.
func (t Transform) Translate(dx, dy float64) Transform {
	t.X += dx
	t.Y += dy
	return t
}

// ScaleAt multiplies the scale by factor, keeping the screen point anchor
// fixed, and clamps the result to [minK, maxK].
func (t Transform) ScaleAt(factor float64, anchor valueobjects.Position, minK, maxK float64) Transform {
	world := t.Invert(anchor)
	k := math.Max(minK, math.Min(maxK, t.K*factor))
	return Transform{
		X: anchor.X - world.X*k,
		Y: anchor.Y - world.Y*k,
		K: k,
	}
}

// CenteredOn returns the transform that puts world point p in the middle of
// a width x height viewport at the current scale.
func (t Transform) CenteredOn(p valueobjects.Position, width, height float64) Transform {
	return Transform{
		X: width/2 - p.X*t.K,
		Y: height/2 - p.Y*t.K,
		K: t.K,
	}
}

// Lerp interpolates each component.
func (t Transform) Lerp(to Transform, f float64) Transform {
	return Transform{
		X: t.X + (to.X-t.X)*f,
		Y: t.Y + (to.Y-t.Y)*f,
		K: t.K + (to.K-t.K)*f,
	}
}

// Visible reports whether world point p lands inside the viewport grown by
// margin on every side.
func (t Transform) Visible(p valueobjects.Position, width, height, margin float64) bool {
	if !p.IsFinite() {
		return false
	}
	s := t.Apply(p)
	return s.X >= -margin && s.X <= width+margin &&
		s.Y >= -margin && s.Y <= height+margin
}

// EaseCubicInOut is the standard cubic in-out curve.
func EaseCubicInOut(f float64) float64 {
	f = math.Max(0, math.Min(1, f))
	if f < 0.5 {
		return 4 * f * f * f
	}
	g := 2*f - 2
	return 1 + g*g*g/2
}

// Animation eases a transform from one value to another. The clock starts on
// the first Step.
type Animation struct {
	From     Transform
	To       Transform
	Duration time.Duration
	Reason   string

	start time.Time
}

// NewAnimation creates an animation that starts on its first step.
func NewAnimation(from, to Transform, d time.Duration, reason string) *Animation {
	return &Animation{From: from, To: to, Duration: d, Reason: reason}
}

// Step returns the transform at now and whether the animation finished.
func (a *Animation) Step(now time.Time) (Transform, bool) {
	if a.start.IsZero() {
		a.start = now
	}
	if a.Duration <= 0 {
		return a.To, true
	}
	f := float64(now.Sub(a.start)) / float64(a.Duration)
	if f >= 1 {
		return a.To, true
	}
	return a.From.Lerp(a.To, EaseCubicInOut(f)), false
}
