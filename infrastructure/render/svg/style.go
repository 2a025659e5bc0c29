// Package svg draws frames as SVG documents. Scene is the retained surface
// used by sessions and the render command; Renderer is its stateless
// one-shot counterpart.
package svg

// Style controls the look of generated documents.
type Style struct {
	FontFamily  string
	FontSize    float64
	LineHeight  float64
	Background  string
	TextColor   string
	MutedColor  string
	CardFill    string
	ImageHeight float64
	Padding     float64
	MaxNames    int
	// Fit frames the drawing to its content instead of the viewport, which
	// suits headless output.
	Fit       bool
	FitMargin float64
}

// DefaultStyle matches the engine's default text metrics.
func DefaultStyle() Style {
	return Style{
		FontFamily:  "Inter, Helvetica, Arial, sans-serif",
		FontSize:    12,
		LineHeight:  16,
		Background:  "#ffffff",
		TextColor:   "#0f172a",
		MutedColor:  "#64748b",
		CardFill:    "#ffffff",
		ImageHeight: 96,
		Padding:     8,
		MaxNames:    3,
		FitMargin:   40,
	}
}
