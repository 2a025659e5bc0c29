package engine

import (
	"fmt"

	"constellations/application/ports"
	"constellations/domain/core/entities"
	"constellations/domain/highlight"
	"constellations/domain/layout"
)

const (
	personFill  = "#6366f1"
	thingFill   = "#0ea5e9"
	originFill  = "#f97316"
	loadingFill = "#cbd5e1"

	cardPadding    = 8
	labelMinWidth  = 100
	descriptionMax = 3
)

// buildFrame turns the current state into a declarative frame. It reads
// state and never mutates it. Nodes and links without finite coordinates are
// skipped for this frame.
func (e *Engine) buildFrame() *ports.Frame {
	e.frameSeq++
	frame := &ports.Frame{
		Seq:       e.frameSeq,
		Mode:      e.opts.Mode,
		Width:     e.opts.ViewportWidth,
		Height:    e.opts.ViewportHeight,
		Transform: e.view.current,
		Nodes:     make([]ports.NodeVisual, 0, len(e.nodes)),
		Links:     make([]ports.LinkVisual, 0, len(e.links)),
	}

	styles := e.resolver.Resolve(e.highlightState(), e.nodes, e.links)

	for _, l := range e.links {
		source, target := e.byID[l.SourceID], e.byID[l.TargetID]
		if !source.IsPlaced() || !target.IsPlaced() {
			frame.Skipped++
			continue
		}
		style := styles.Links[l.ID]
		frame.Links = append(frame.Links, ports.LinkVisual{
			ID:        l.ID,
			SourceID:  l.SourceID,
			TargetID:  l.TargetID,
			X1:        source.X,
			Y1:        source.Y,
			X2:        target.X,
			Y2:        target.Y,
			Stroke:    style.Stroke,
			Width:     style.Width,
			Opacity:   style.Opacity,
			Emphasis:  style.Emphasis,
			Label:     l.Label,
			ShowLabel: style.ShowLabel && l.Label != "",
		})
	}

	for _, n := range e.nodes {
		if !n.IsPlaced() {
			frame.Skipped++
			continue
		}
		frame.Nodes = append(frame.Nodes, e.nodeVisual(n, styles.Nodes[n.ID]))
	}
	return frame
}

func (e *Engine) nodeVisual(n *entities.Node, style highlight.NodeStyle) ports.NodeVisual {
	p := e.profile(n)
	text := e.cfg.Text

	v := ports.NodeVisual{
		ID:          n.ID,
		Category:    n.Category,
		Origin:      n.Origin,
		Shape:       p.Shape,
		X:           n.X,
		Y:           n.Y,
		Width:       p.Width,
		Height:      p.Height,
		Radius:      p.CollisionRadius,
		Fill:        fillFor(n),
		Stroke:      style.Stroke,
		StrokeWidth: style.StrokeWidth,
		Opacity:     style.Opacity,
		Emphasis:    style.Emphasis,
		TextOnly:    e.opts.TextOnly,
		Loading:     n.Loading || n.ImageFetching,
		Draggable:   e.Draggable(n),
		Pinned:      n.HasPin(),
	}
	if !e.opts.TextOnly {
		v.ImageRef = n.ImageRef
	}
	if n.Year != nil {
		v.YearLabel = yearLabel(*n.Year)
	}

	if p.Shape == layout.ShapeCard {
		inner := p.Width - 2*cardPadding
		v.TitleLines = layout.WrapWith(n.Title, inner, text.MaxLines, text.AvgCharWidth)
		v.DescriptionLines = layout.WrapWith(n.Description, inner, descriptionMax, text.AvgCharWidth)
		v.Names = n.Names
	} else {
		width := max(p.Width+40, labelMinWidth)
		v.TitleLines = layout.WrapWith(n.Title, width, text.MaxLines, text.AvgCharWidth)
	}
	return v
}

func fillFor(n *entities.Node) string {
	switch {
	case n.Loading:
		return loadingFill
	case n.Origin:
		return originFill
	case n.IsPerson():
		return personFill
	default:
		return thingFill
	}
}

func yearLabel(year int) string {
	if year < 0 {
		return fmt.Sprintf("%d BC", -year)
	}
	return fmt.Sprintf("%d", year)
}
