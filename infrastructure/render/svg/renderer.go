package svg

import (
	"io"

	"constellations/application/ports"
)

// ContentType is the media type of generated documents.
const ContentType = "image/svg+xml"

// Renderer draws one frame into a standalone document. It implements
// ports.FrameRenderer.
type Renderer struct {
	style Style
}

// NewRenderer creates a renderer with the given style.
func NewRenderer(style Style) *Renderer {
	return &Renderer{style: style}
}

// Render writes frame as an SVG document. Links are drawn under nodes.
func (r *Renderer) Render(w io.Writer, frame *ports.Frame) error {
	elements := make([]string, 0, len(frame.Links)+len(frame.Nodes))
	content := emptyBounds()
	for _, l := range frame.Links {
		elements = append(elements, linkMarkup(l, r.style))
	}
	for _, n := range frame.Nodes {
		elements = append(elements, nodeMarkup(n, r.style))
		content.add(n.X, n.Y, n.Width, n.Height)
	}
	h := documentHeader(frame.Width, frame.Height, frame.Transform, content, r.style)
	_, err := writeDocument(w, h, elements, r.style)
	return err
}

// ContentType implements ports.FrameRenderer.
func (r *Renderer) ContentType() string {
	return ContentType
}
