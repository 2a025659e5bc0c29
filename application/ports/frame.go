package ports

import (
	"constellations/domain/core/valueobjects"
	"constellations/domain/highlight"
	"constellations/domain/layout"
	"constellations/domain/viewport"
)

// Frame is everything a scene needs to draw one paint.
type Frame struct {
	Seq       uint64                  `json:"seq"`
	Mode      valueobjects.LayoutMode `json:"mode"`
	Width     float64                 `json:"width"`
	Height    float64                 `json:"height"`
	Transform viewport.Transform      `json:"transform"`
	Nodes     []NodeVisual            `json:"nodes"`
	Links     []LinkVisual            `json:"links"`
	// Skipped counts nodes and links left out because a position was not
	// yet finite.
	Skipped int `json:"skipped"`
}

// NodeVisual is the resolved appearance of one node.
type NodeVisual struct {
	ID               valueobjects.NodeID   `json:"id"`
	Category         valueobjects.Category `json:"category"`
	Origin           bool                  `json:"origin,omitempty"`
	Shape            layout.Shape          `json:"shape"`
	X                float64               `json:"x"`
	Y                float64               `json:"y"`
	Width            float64               `json:"width"`
	Height           float64               `json:"height"`
	Radius           float64               `json:"radius"`
	Fill             string                `json:"fill"`
	Stroke           string                `json:"stroke"`
	StrokeWidth      float64               `json:"stroke_width"`
	Opacity          float64               `json:"opacity"`
	Emphasis         highlight.Emphasis    `json:"emphasis"`
	TitleLines       []string              `json:"title_lines,omitempty"`
	DescriptionLines []string              `json:"description_lines,omitempty"`
	Names            []string              `json:"names,omitempty"`
	YearLabel        string                `json:"year_label,omitempty"`
	ImageRef         string                `json:"image_ref,omitempty"`
	TextOnly         bool                  `json:"text_only,omitempty"`
	Loading          bool                  `json:"loading,omitempty"`
	Draggable        bool                  `json:"draggable"`
	Pinned           bool                  `json:"pinned,omitempty"`
}

// LinkVisual is the resolved appearance of one link.
type LinkVisual struct {
	ID        valueobjects.LinkID `json:"id"`
	SourceID  valueobjects.NodeID `json:"source"`
	TargetID  valueobjects.NodeID `json:"target"`
	X1        float64             `json:"x1"`
	Y1        float64             `json:"y1"`
	X2        float64             `json:"x2"`
	Y2        float64             `json:"y2"`
	Stroke    string              `json:"stroke"`
	Width     float64             `json:"width"`
	Opacity   float64             `json:"opacity"`
	Emphasis  highlight.Emphasis  `json:"emphasis"`
	Label     string              `json:"label,omitempty"`
	ShowLabel bool                `json:"show_label,omitempty"`
}
