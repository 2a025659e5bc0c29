package layout

import (
	"fmt"
	"math"

	"constellations/domain/config"
	"constellations/domain/core/entities"
	"constellations/domain/core/valueobjects"
)

// Shape is the kind of mark a node is drawn with.
type Shape int

const (
	ShapeCircle Shape = iota
	ShapeSquare
	ShapeCard
)

func (s Shape) String() string {
	switch s {
	case ShapeSquare:
		return "square"
	case ShapeCard:
		return "card"
	default:
		return "circle"
	}
}

// MarshalText lets frames carry the shape name.
func (s Shape) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText reads a shape name. Unknown names are an error.
func (s *Shape) UnmarshalText(text []byte) error {
	switch string(text) {
	case "circle":
		*s = ShapeCircle
	case "square":
		*s = ShapeSquare
	case "card":
		*s = ShapeCard
	default:
		return fmt.Errorf("unknown shape %q", text)
	}
	return nil
}

// Profile is the visual footprint of a node in a given mode.
type Profile struct {
	Shape           Shape   `json:"shape"`
	Width           float64 `json:"width"`
	Height          float64 `json:"height"`
	CollisionRadius float64 `json:"collision_radius"`
}

// Variant carries the presentation flags that change a footprint.
type Variant struct {
	Mode     valueobjects.LayoutMode
	TextOnly bool
	Compact  bool
}

// ProfileOf derives a node's footprint. A measured card height overrides the
// nominal one.
func ProfileOf(n *entities.Node, v Variant, g config.GeometryConfig) Profile {
	var p Profile
	switch {
	case n.IsPerson():
		d := g.PersonDiameter
		switch {
		case v.Mode.IsChronological():
			d = g.ChronoPersonDiameter
		case n.Origin:
			d = g.OriginDiameter
		case v.Compact:
			d = g.PersonDiameterCompact
		}
		p = Profile{Shape: ShapeCircle, Width: d, Height: d}
	case v.Mode.IsChronological():
		h := g.CardHeight
		if v.TextOnly {
			h = g.CardHeightTextOnly
		}
		p = Profile{Shape: ShapeCard, Width: g.CardWidth, Height: h}
		if n.MeasuredHeight > 0 {
			return p.WithHeight(n.MeasuredHeight, g.CollisionMargin)
		}
	default:
		side := g.ThingSide
		switch {
		case n.Origin:
			side = g.OriginDiameter
		case v.Compact:
			side = g.ThingSideCompact
		}
		p = Profile{Shape: ShapeSquare, Width: side, Height: side}
	}
	p.CollisionRadius = collisionRadius(p.Width, p.Height, g.CollisionMargin)
	return p
}

// WithHeight returns the profile with an overridden height and the matching
// collision radius.
func (p Profile) WithHeight(h, margin float64) Profile {
	p.Height = h
	p.CollisionRadius = collisionRadius(p.Width, p.Height, margin)
	return p
}

func collisionRadius(w, h, margin float64) float64 {
	return math.Max(w, h)/2 + margin
}
