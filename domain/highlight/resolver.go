// Package highlight decides, per frame, how strongly each node and link is
// drawn given the keep/drop sets, the focus and the hover.
package highlight

import (
	"constellations/domain/core/entities"
	"constellations/domain/core/valueobjects"
)

const (
	DroppedOpacity   = 0.18
	UnkeptOpacity    = 0.3
	FocusDimFactor   = 0.25
	DroppedLinkAlpha = 0.1
	UnkeptLinkAlpha  = 0.15
	FocusLinkAlpha   = 0.9
	DefaultLinkAlpha = 0.6
)

// State is the presentation input of one frame. Keep is ordered: consecutive
// ids describe a path.
type State struct {
	Keep  []valueobjects.NodeID `json:"keep,omitempty"`
	Drop  []valueobjects.NodeID `json:"drop,omitempty"`
	Focus valueobjects.NodeID   `json:"focus,omitempty"`
	Hover valueobjects.NodeID   `json:"hover,omitempty"`
}

// Emphasis names the rule that won for a node or link.
type Emphasis string

const (
	EmphasisNone     Emphasis = "none"
	EmphasisDropped  Emphasis = "dropped"
	EmphasisKept     Emphasis = "kept"
	EmphasisPath     Emphasis = "path"
	EmphasisUnkept   Emphasis = "unkept"
	EmphasisFocused  Emphasis = "focused"
	EmphasisHovered  Emphasis = "hovered"
	EmphasisNeighbor Emphasis = "neighbor"
)

// Palette holds the stroke colors and widths per emphasis.
type Palette struct {
	DroppedStroke string
	KeptStroke    string
	FocusStroke   string
	DefaultStroke string
	LinkStroke    string

	DroppedWidth float64
	KeptWidth    float64
	FocusWidth   float64
	DefaultWidth float64
}

// DefaultPalette returns the standard colors.
func DefaultPalette() Palette {
	return Palette{
		DroppedStroke: "#ef4444",
		KeptStroke:    "#f59e0b",
		FocusStroke:   "#2563eb",
		DefaultStroke: "#ffffff",
		LinkStroke:    "#94a3b8",
		DroppedWidth:  3,
		KeptWidth:     4,
		FocusWidth:    3,
		DefaultWidth:  1.5,
	}
}

// NodeStyle is the resolved presentation of a node.
type NodeStyle struct {
	Opacity     float64  `json:"opacity"`
	Stroke      string   `json:"stroke"`
	StrokeWidth float64  `json:"stroke_width"`
	Emphasis    Emphasis `json:"emphasis"`
}

// LinkStyle is the resolved presentation of a link.
type LinkStyle struct {
	Opacity   float64  `json:"opacity"`
	Stroke    string   `json:"stroke"`
	Width     float64  `json:"width"`
	Emphasis  Emphasis `json:"emphasis"`
	ShowLabel bool     `json:"show_label"`
}

// Resolver computes styles. It holds no per-frame state.
type Resolver struct {
	palette Palette
}

// NewResolver creates a resolver with the given palette.
func NewResolver(p Palette) *Resolver {
	return &Resolver{palette: p}
}

// Context is the per-frame lookup built from State and the valid links.
type Context struct {
	keep      map[valueobjects.NodeID]bool
	drop      map[valueobjects.NodeID]bool
	neighbors map[valueobjects.NodeID]bool
	path      map[[2]valueobjects.NodeID]bool
	focus     valueobjects.NodeID
	hover     valueobjects.NodeID
}

// NewContext prepares the lookups. links must already be filtered to
// render-eligible links.
func NewContext(state State, links []*entities.Link) *Context {
	c := &Context{
		keep:      toSet(state.Keep),
		drop:      toSet(state.Drop),
		neighbors: make(map[valueobjects.NodeID]bool),
		path:      make(map[[2]valueobjects.NodeID]bool),
		focus:     state.Focus,
		hover:     state.Hover,
	}

	if !state.Focus.IsZero() {
		for _, l := range links {
			if l.Touches(state.Focus) {
				c.neighbors[l.Other(state.Focus)] = true
			}
		}
	}

	for i := 0; i+1 < len(state.Keep); i++ {
		a, b := state.Keep[i], state.Keep[i+1]
		c.path[[2]valueobjects.NodeID{a, b}] = true
		c.path[[2]valueobjects.NodeID{b, a}] = true
	}
	return c
}

// HighlightActive reports whether a keep set is in effect.
func (c *Context) HighlightActive() bool {
	return len(c.keep) > 0
}

// IsKept reports keep membership.
func (c *Context) IsKept(id valueobjects.NodeID) bool {
	return c.keep[id]
}

// IsDropped reports drop membership.
func (c *Context) IsDropped(id valueobjects.NodeID) bool {
	return c.drop[id]
}

// IsNeighbor reports whether id is linked to the focus node.
func (c *Context) IsNeighbor(id valueobjects.NodeID) bool {
	return c.neighbors[id]
}

// OnVerifiedPath reports whether the link joins two consecutive keep ids.
// Because only existing links are asked about, a true answer means the path
// segment really exists.
func (c *Context) OnVerifiedPath(l *entities.Link) bool {
	return c.path[[2]valueobjects.NodeID{l.SourceID, l.TargetID}]
}

// NodeOpacity applies the dimming rules. Dropped nodes stay at exactly
// DroppedOpacity whatever the focus.
func (c *Context) NodeOpacity(id valueobjects.NodeID) float64 {
	if c.drop[id] {
		return DroppedOpacity
	}
	opacity := 1.0
	if c.HighlightActive() && !c.keep[id] {
		opacity = UnkeptOpacity
	}
	if !c.focus.IsZero() && id != c.focus && !c.neighbors[id] && !c.keep[id] {
		opacity *= FocusDimFactor
	}
	return opacity
}

// Node resolves one node.
func (r *Resolver) Node(c *Context, id valueobjects.NodeID) NodeStyle {
	style := NodeStyle{
		Opacity:     c.NodeOpacity(id),
		Stroke:      r.palette.DefaultStroke,
		StrokeWidth: r.palette.DefaultWidth,
		Emphasis:    EmphasisNone,
	}
	switch {
	case c.drop[id]:
		style.Stroke, style.StrokeWidth, style.Emphasis = r.palette.DroppedStroke, r.palette.DroppedWidth, EmphasisDropped
	case c.HighlightActive() && c.keep[id]:
		style.Stroke, style.StrokeWidth, style.Emphasis = r.palette.KeptStroke, r.palette.KeptWidth, EmphasisKept
	case id == c.hover:
		style.Stroke, style.StrokeWidth, style.Emphasis = r.palette.FocusStroke, r.palette.FocusWidth, EmphasisHovered
	case id == c.focus:
		style.Stroke, style.StrokeWidth, style.Emphasis = r.palette.FocusStroke, r.palette.FocusWidth, EmphasisFocused
	}
	return style
}

// Link resolves one link.
func (r *Resolver) Link(c *Context, l *entities.Link) LinkStyle {
	p := r.palette
	touchesFocus := !c.focus.IsZero() && l.Touches(c.focus)
	touchesHover := !c.hover.IsZero() && l.Touches(c.hover)

	switch {
	case c.drop[l.SourceID] || c.drop[l.TargetID]:
		return LinkStyle{Opacity: DroppedLinkAlpha, Stroke: p.DroppedStroke, Width: 1, Emphasis: EmphasisDropped}
	case c.OnVerifiedPath(l):
		return LinkStyle{Opacity: 1, Stroke: p.KeptStroke, Width: 3, Emphasis: EmphasisPath, ShowLabel: true}
	case c.HighlightActive() && !(c.keep[l.SourceID] && c.keep[l.TargetID]):
		return LinkStyle{Opacity: UnkeptLinkAlpha, Stroke: p.LinkStroke, Width: 1, Emphasis: EmphasisUnkept}
	case touchesFocus:
		return LinkStyle{Opacity: FocusLinkAlpha, Stroke: p.FocusStroke, Width: 2.5, Emphasis: EmphasisNeighbor, ShowLabel: true}
	}

	style := LinkStyle{Opacity: DefaultLinkAlpha, Stroke: p.LinkStroke, Width: 1.5, Emphasis: EmphasisNone, ShowLabel: touchesHover}
	if !c.focus.IsZero() {
		style.Opacity *= FocusDimFactor
	}
	return style
}

// Styles is the resolved presentation of a whole frame.
type Styles struct {
	Nodes map[valueobjects.NodeID]NodeStyle
	Links map[valueobjects.LinkID]LinkStyle
}

// Resolve styles every node and link.
func (r *Resolver) Resolve(state State, nodes []*entities.Node, links []*entities.Link) Styles {
	c := NewContext(state, links)
	out := Styles{
		Nodes: make(map[valueobjects.NodeID]NodeStyle, len(nodes)),
		Links: make(map[valueobjects.LinkID]LinkStyle, len(links)),
	}
	for _, n := range nodes {
		out.Nodes[n.ID] = r.Node(c, n.ID)
	}
	for _, l := range links {
		out.Links[l.ID] = r.Link(c, l)
	}
	return out
}

func toSet(ids []valueobjects.NodeID) map[valueobjects.NodeID]bool {
	set := make(map[valueobjects.NodeID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
