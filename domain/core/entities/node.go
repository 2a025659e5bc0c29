package entities

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"constellations/domain/core/valueobjects"
)

var (
	// ErrUnknownNode is returned when an operation names a node that is not
	// part of the current snapshot.
	ErrUnknownNode = errors.New("unknown node")
	// ErrNotDraggable is returned when a drag starts on a node whose
	// position is fixed by the active layout.
	ErrNotDraggable = errors.New("node is not draggable in the current mode")
)

// PinOwner records which writer holds a node's pin. Exactly one writer owns a
// pin at a time.
type PinOwner int

const (
	PinNone PinOwner = iota
	PinLayout
	PinDrag
)

func (o PinOwner) String() string {
	switch o {
	case PinLayout:
		return "layout"
	case PinDrag:
		return "drag"
	default:
		return "none"
	}
}

// Node is a person or thing in the diagram together with its simulation
// state.
type Node struct {
	ID          valueobjects.NodeID
	Category    valueobjects.Category
	Origin      bool
	Title       string
	Description string
	Year        *int
	ImageRef    string
	Names       []string

	// MeasuredHeight is the rendered card height reported after paint; zero
	// means not measured.
	MeasuredHeight float64

	Loading       bool
	ImageFetching bool
	ImageResolved bool

	X, Y   float64
	VX, VY float64

	pin      *valueobjects.Position
	pinOwner PinOwner
}

// NewNode creates an unplaced node.
func NewNode(id valueobjects.NodeID, category valueobjects.Category, title string) *Node {
	return &Node{
		ID:       id,
		Category: category,
		Title:    title,
		X:        math.NaN(),
		Y:        math.NaN(),
	}
}

// IsPerson reports whether the node is on the people side.
func (n *Node) IsPerson() bool {
	return n.Category.IsPerson()
}

// HasYear reports whether the node belongs on the time axis.
func (n *Node) HasYear() bool {
	return n.Year != nil
}

// Position returns the live position.
func (n *Node) Position() valueobjects.Position {
	return valueobjects.Position{X: n.X, Y: n.Y}
}

// IsPlaced reports whether the solver has assigned a finite position.
func (n *Node) IsPlaced() bool {
	return n.Position().IsFinite()
}

// Pin returns the pinned position, if any.
func (n *Node) Pin() (valueobjects.Position, bool) {
	if n.pin == nil {
		return valueobjects.Position{}, false
	}
	return *n.pin, true
}

// HasPin reports whether the node is fixed.
func (n *Node) HasPin() bool {
	return n.pin != nil
}

// PinOwner reports who holds the pin.
func (n *Node) PinOwner() PinOwner {
	return n.pinOwner
}

// SetPin fixes the node at pos on behalf of owner. A drag-owned pin can only
// be moved by the drag itself.
func (n *Node) SetPin(pos valueobjects.Position, owner PinOwner) bool {
	if n.pinOwner == PinDrag && owner != PinDrag {
		return false
	}
	p := pos
	n.pin = &p
	n.pinOwner = owner
	return true
}

// ClearPin releases the pin if owner holds it.
func (n *Node) ClearPin(owner PinOwner) bool {
	if n.pin == nil {
		return true
	}
	if n.pinOwner != owner {
		return false
	}
	n.pin = nil
	n.pinOwner = PinNone
	return true
}

// ForceClearPin drops any pin regardless of owner. Only a mode switch or the
// end of a gesture may call it.
func (n *Node) ForceClearPin() {
	n.pin = nil
	n.pinOwner = PinNone
}

// ApplyPin copies the pin into the live position and stops the node.
func (n *Node) ApplyPin() {
	if n.pin == nil {
		return
	}
	n.X, n.Y = n.pin.X, n.pin.Y
	n.VX, n.VY = 0, 0
}

// CarryStateFrom copies simulation state forward from the previous snapshot.
func (n *Node) CarryStateFrom(prev *Node) {
	n.X, n.Y = prev.X, prev.Y
	n.VX, n.VY = prev.VX, prev.VY
	if prev.pin != nil {
		p := *prev.pin
		n.pin = &p
		n.pinOwner = prev.pinOwner
	} else {
		n.pin = nil
		n.pinOwner = PinNone
	}
}

// Clone returns an independent copy for handing outside the engine.
func (n *Node) Clone() *Node {
	cp := *n
	if n.Year != nil {
		y := *n.Year
		cp.Year = &y
	}
	if n.pin != nil {
		p := *n.pin
		cp.pin = &p
	}
	cp.Names = append([]string(nil), n.Names...)
	return &cp
}

// ContentKey changes whenever something that affects card height changes.
func (n *Node) ContentKey() string {
	year := ""
	if n.Year != nil {
		year = fmt.Sprint(*n.Year)
	}
	return strings.Join([]string{
		n.Title,
		n.Description,
		n.ImageRef,
		year,
		strings.Join(n.Names, "|"),
		fmt.Sprint(n.ImageResolved),
	}, "\x00")
}

func (n *Node) String() string {
	return fmt.Sprintf("Node{%s %s %q}", n.ID, n.Category, n.Title)
}
