package valueobjects

import (
	"math"

	pkgerrors "constellations/pkg/errors"
)

// Position is a point in world space. Fields are exported because the
// solver reads and writes them on every tick.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewPosition creates a position with validation
func NewPosition(x, y float64) (Position, error) {
	if !isValidCoordinate(x) || !isValidCoordinate(y) {
		return Position{}, pkgerrors.NewValidationError("invalid coordinates: must be finite numbers")
	}
	return Position{X: x, Y: y}, nil
}

// Undefined is the position of a node the solver has not placed yet.
func Undefined() Position {
	return Position{X: math.NaN(), Y: math.NaN()}
}

// IsFinite reports whether both coordinates are usable for drawing.
func (p Position) IsFinite() bool {
	return isValidCoordinate(p.X) && isValidCoordinate(p.Y)
}

// DistanceTo calculates the Euclidean distance to another position
func (p Position) DistanceTo(other Position) float64 {
	return math.Hypot(p.X-other.X, p.Y-other.Y)
}

// Equals checks if two positions are equal
func (p Position) Equals(other Position) bool {
	const epsilon = 1e-9
	return math.Abs(p.X-other.X) < epsilon && math.Abs(p.Y-other.Y) < epsilon
}

// Translate moves the position by the given offsets
func (p Position) Translate(dx, dy float64) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Lerp interpolates toward other by t in [0, 1].
func (p Position) Lerp(other Position, t float64) Position {
	return Position{
		X: p.X + (other.X-p.X)*t,
		Y: p.Y + (other.Y-p.Y)*t,
	}
}

func isValidCoordinate(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
