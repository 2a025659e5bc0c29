package entities

import (
	"testing"

	"constellations/domain/core/valueobjects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNodeIsUnplaced(t *testing.T) {
	n := NewNode("p1", valueobjects.CategoryPerson, "Ada Lovelace")

	assert.False(t, n.IsPlaced())
	assert.False(t, n.HasPin())
	assert.True(t, n.IsPerson())
}

func TestPinOwnership(t *testing.T) {
	n := NewNode("e1", valueobjects.CategoryThing, "Analytical Engine")

	require.True(t, n.SetPin(valueobjects.Position{X: 10, Y: 20}, PinDrag))
	assert.Equal(t, PinDrag, n.PinOwner())

	// layout may not steal or release a drag-owned pin
	assert.False(t, n.SetPin(valueobjects.Position{X: 0, Y: 0}, PinLayout))
	assert.False(t, n.ClearPin(PinLayout))
	pos, ok := n.Pin()
	require.True(t, ok)
	assert.Equal(t, 10.0, pos.X)

	assert.True(t, n.ClearPin(PinDrag))
	assert.False(t, n.HasPin())
	assert.Equal(t, PinNone, n.PinOwner())
}

func TestApplyPinStopsNode(t *testing.T) {
	n := NewNode("e1", valueobjects.CategoryThing, "Engine")
	n.VX, n.VY = 4, -2
	n.SetPin(valueobjects.Position{X: 5, Y: 6}, PinLayout)

	n.ApplyPin()

	assert.Equal(t, 5.0, n.X)
	assert.Equal(t, 6.0, n.Y)
	assert.Zero(t, n.VX)
	assert.Zero(t, n.VY)
}

func TestCarryStateFrom(t *testing.T) {
	prev := NewNode("p1", valueobjects.CategoryPerson, "Old title")
	prev.X, prev.Y, prev.VX, prev.VY = 1, 2, 3, 4
	prev.SetPin(valueobjects.Position{X: 1, Y: 2}, PinDrag)

	next := NewNode("p1", valueobjects.CategoryPerson, "New title")
	next.CarryStateFrom(prev)

	assert.Equal(t, 1.0, next.X)
	assert.Equal(t, 4.0, next.VY)
	assert.Equal(t, PinDrag, next.PinOwner())

	// the copy must not alias the previous pin
	prev.ForceClearPin()
	assert.True(t, next.HasPin())
}

func TestContentKey(t *testing.T) {
	year := 1843
	a := NewNode("e1", valueobjects.CategoryThing, "Notes")
	a.Year = &year
	b := NewNode("e1", valueobjects.CategoryThing, "Notes")
	b.Year = &year

	assert.Equal(t, a.ContentKey(), b.ContentKey())
	b.Description = "Translation of Menabrea's paper"
	assert.NotEqual(t, a.ContentKey(), b.ContentKey())
}

func TestLinkHelpers(t *testing.T) {
	l := NewLink("", "p1", "e1", "author")

	assert.Equal(t, valueobjects.LinkID("p1->e1"), l.ID)
	assert.True(t, l.Touches("e1"))
	assert.Equal(t, valueobjects.NodeID("p1"), l.Other("e1"))
	assert.True(t, l.Connects("e1", "p1"))
	assert.False(t, l.Connects("e1", "e2"))
}
