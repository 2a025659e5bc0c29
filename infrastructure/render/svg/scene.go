package svg

import (
	"context"
	"io"
	"sync"

	"constellations/application/ports"
	"constellations/domain/core/valueobjects"
	"constellations/domain/layout"
	"constellations/domain/viewport"
)

// Stats counts element churn across commits.
type Stats struct {
	Commits   int `json:"commits"`
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Destroyed int `json:"destroyed"`
	Elements  int `json:"elements"`
}

type element struct {
	markup string
	layer  int
}

const (
	layerLinks = iota
	layerNodes
)

// Scene is a retained SVG surface. Each commit reconciles the element table
// against the frame: new keys are created, changed markup is updated and
// missing keys are destroyed. It implements ports.Scene and ports.Measurer
// and is safe for concurrent use.
type Scene struct {
	mu       sync.RWMutex
	style    Style
	elements map[string]*element
	order    []string
	visuals  map[valueobjects.NodeID]ports.NodeVisual
	content  bounds

	width, height float64
	transform     viewport.Transform
	seq           uint64
	stats         Stats
}

// NewScene creates an empty scene.
func NewScene(style Style) *Scene {
	return &Scene{
		style:     style,
		elements:  make(map[string]*element),
		visuals:   make(map[valueobjects.NodeID]ports.NodeVisual),
		content:   emptyBounds(),
		transform: viewport.Identity(),
	}
}

// Commit reconciles the retained elements with frame.
func (s *Scene) Commit(ctx context.Context, frame *ports.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(frame.Links)+len(frame.Nodes))
	order := make([]string, 0, len(frame.Links)+len(frame.Nodes))
	upsert := func(key, markup string, layer int) {
		seen[key] = struct{}{}
		order = append(order, key)
		el, ok := s.elements[key]
		switch {
		case !ok:
			s.elements[key] = &element{markup: markup, layer: layer}
			s.stats.Created++
		case el.markup != markup:
			el.markup = markup
			s.stats.Updated++
		}
	}

	for _, l := range frame.Links {
		upsert(linkKey(l), linkMarkup(l, s.style), layerLinks)
	}
	content := emptyBounds()
	visuals := make(map[valueobjects.NodeID]ports.NodeVisual, len(frame.Nodes))
	for _, n := range frame.Nodes {
		upsert(nodeKey(n), nodeMarkup(n, s.style), layerNodes)
		content.add(n.X, n.Y, n.Width, n.Height)
		visuals[n.ID] = n
	}

	for key := range s.elements {
		if _, ok := seen[key]; !ok {
			delete(s.elements, key)
			s.stats.Destroyed++
		}
	}

	s.order = order
	s.visuals = visuals
	s.content = content
	s.width, s.height = frame.Width, frame.Height
	s.transform = frame.Transform
	s.seq = frame.Seq
	s.stats.Commits++
	return nil
}

// MeasureContent reports the height card content needs as drawn by this
// scene. Ids that are not committed cards are left out.
func (s *Scene) MeasureContent(ids []valueobjects.NodeID) map[valueobjects.NodeID]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[valueobjects.NodeID]float64, len(ids))
	for _, id := range ids {
		v, ok := s.visuals[id]
		if !ok || v.Shape != layout.ShapeCard {
			continue
		}
		out[id] = cardContentHeight(v, s.style)
	}
	return out
}

// Stats returns the churn counters.
func (s *Scene) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.stats
	st.Elements = len(s.elements)
	return st
}

// Seq returns the sequence number of the last committed frame.
func (s *Scene) Seq() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq
}

// WriteTo writes the retained elements as a standalone document.
func (s *Scene) WriteTo(w io.Writer) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	elements := make([]string, 0, len(s.order))
	for _, layer := range []int{layerLinks, layerNodes} {
		for _, key := range s.order {
			if el := s.elements[key]; el != nil && el.layer == layer {
				elements = append(elements, el.markup)
			}
		}
	}
	h := documentHeader(s.width, s.height, s.transform, s.content, s.style)
	return writeDocument(w, h, elements, s.style)
}

// Render implements ports.FrameRenderer by writing the retained document;
// the frame argument is committed first when it is newer.
func (s *Scene) Render(w io.Writer, frame *ports.Frame) error {
	if frame != nil && frame.Seq > s.Seq() {
		if err := s.Commit(context.Background(), frame); err != nil {
			return err
		}
	}
	_, err := s.WriteTo(w)
	return err
}

// ContentType implements ports.FrameRenderer.
func (s *Scene) ContentType() string {
	return ContentType
}
