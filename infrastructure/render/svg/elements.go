package svg

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"constellations/application/ports"
	"constellations/domain/layout"
	"constellations/domain/viewport"
)

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func escapeXML(s string) string {
	return xmlEscaper.Replace(s)
}

// num prints a coordinate with at most two decimals.
func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

// bounds is an axis-aligned box in world coordinates.
type bounds struct {
	minX, minY, maxX, maxY float64
	empty                  bool
}

func emptyBounds() bounds {
	return bounds{empty: true}
}

func (b *bounds) add(x, y, w, h float64) {
	x0, y0, x1, y1 := x-w/2, y-h/2, x+w/2, y+h/2
	if b.empty {
		*b = bounds{minX: x0, minY: y0, maxX: x1, maxY: y1}
		return
	}
	b.minX = math.Min(b.minX, x0)
	b.minY = math.Min(b.minY, y0)
	b.maxX = math.Max(b.maxX, x1)
	b.maxY = math.Max(b.maxY, y1)
}

func linkKey(l ports.LinkVisual) string { return "link:" + l.ID.String() }
func nodeKey(n ports.NodeVisual) string { return "node:" + n.ID.String() }

func linkMarkup(l ports.LinkVisual, style Style) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<g class="link link-%s" data-id="%s" opacity="%s">`,
		l.Emphasis, escapeXML(l.ID.String()), num(l.Opacity))
	fmt.Fprintf(&b, `<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="%s"/>`,
		num(l.X1), num(l.Y1), num(l.X2), num(l.Y2), l.Stroke, num(l.Width))
	if l.ShowLabel {
		fmt.Fprintf(&b, `<text x="%s" y="%s" text-anchor="middle" font-size="%s" fill="%s">%s</text>`,
			num((l.X1+l.X2)/2), num((l.Y1+l.Y2)/2-4), num(style.FontSize-2), style.MutedColor, escapeXML(l.Label))
	}
	b.WriteString(`</g>`)
	return b.String()
}

func nodeMarkup(n ports.NodeVisual, style Style) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<g class="node node-%s node-%s" data-id="%s" transform="translate(%s,%s)" opacity="%s">`,
		n.Category, n.Emphasis, escapeXML(n.ID.String()), num(n.X), num(n.Y), num(n.Opacity))

	switch n.Shape {
	case layout.ShapeCard:
		writeCard(&b, n, style)
	case layout.ShapeSquare:
		fmt.Fprintf(&b, `<rect x="%s" y="%s" width="%s" height="%s" rx="6" fill="%s" stroke="%s" stroke-width="%s"/>`,
			num(-n.Width/2), num(-n.Height/2), num(n.Width), num(n.Height), n.Fill, n.Stroke, num(n.StrokeWidth))
		writeImage(&b, n, -n.Width/2, -n.Height/2, n.Width, n.Height)
		writeCaption(&b, n, n.Height/2, style)
	default:
		r := n.Width / 2
		fmt.Fprintf(&b, `<circle r="%s" fill="%s" stroke="%s" stroke-width="%s"/>`,
			num(r), n.Fill, n.Stroke, num(n.StrokeWidth))
		writeImage(&b, n, -r, -r, 2*r, 2*r)
		writeCaption(&b, n, r, style)
	}
	b.WriteString(`</g>`)
	return b.String()
}

func writeImage(b *strings.Builder, n ports.NodeVisual, x, y, w, h float64) {
	if n.ImageRef == "" || n.TextOnly || n.Loading {
		return
	}
	fmt.Fprintf(b, `<image href="%s" x="%s" y="%s" width="%s" height="%s" preserveAspectRatio="xMidYMid slice"/>`,
		escapeXML(n.ImageRef), num(x), num(y), num(w), num(h))
}

// writeCaption puts the title lines under a circle or square.
func writeCaption(b *strings.Builder, n ports.NodeVisual, below float64, style Style) {
	y := below + style.LineHeight
	for _, line := range n.TitleLines {
		fmt.Fprintf(b, `<text y="%s" text-anchor="middle" font-size="%s" fill="%s">%s</text>`,
			num(y), num(style.FontSize), style.TextColor, escapeXML(line))
		y += style.LineHeight
	}
}

// cardRows lists the text rows of a card top to bottom, with their class.
func cardRows(n ports.NodeVisual, style Style) [][2]string {
	var rows [][2]string
	if n.YearLabel != "" {
		rows = append(rows, [2]string{"year", n.YearLabel})
	}
	for _, line := range n.TitleLines {
		rows = append(rows, [2]string{"title", line})
	}
	names := n.Names
	if style.MaxNames > 0 && len(names) > style.MaxNames {
		names = names[:style.MaxNames]
	}
	for _, name := range names {
		rows = append(rows, [2]string{"name", name})
	}
	for _, line := range n.DescriptionLines {
		rows = append(rows, [2]string{"description", line})
	}
	return rows
}

func hasCardImage(n ports.NodeVisual) bool {
	return n.ImageRef != "" && !n.TextOnly
}

// cardContentHeight is the height the card content needs when drawn.
func cardContentHeight(n ports.NodeVisual, style Style) float64 {
	h := 2 * style.Padding
	if hasCardImage(n) {
		h += style.ImageHeight + style.Padding
	}
	h += float64(len(cardRows(n, style))) * style.LineHeight
	return h
}

func writeCard(b *strings.Builder, n ports.NodeVisual, style Style) {
	x0, y0 := -n.Width/2, -n.Height/2
	fmt.Fprintf(b, `<rect x="%s" y="%s" width="%s" height="%s" rx="8" fill="%s" stroke="%s" stroke-width="%s"/>`,
		num(x0), num(y0), num(n.Width), num(n.Height), style.CardFill, n.Stroke, num(n.StrokeWidth))
	fmt.Fprintf(b, `<rect x="%s" y="%s" width="%s" height="4" fill="%s"/>`,
		num(x0), num(y0), num(n.Width), n.Fill)

	y := y0 + style.Padding
	if hasCardImage(n) && !n.Loading {
		writeImage(b, n, x0+style.Padding, y, n.Width-2*style.Padding, style.ImageHeight)
	}
	if hasCardImage(n) {
		y += style.ImageHeight + style.Padding
	}

	for _, row := range cardRows(n, style) {
		y += style.LineHeight
		weight, color, size := "normal", style.TextColor, style.FontSize
		switch row[0] {
		case "title":
			weight = "bold"
		case "year", "description":
			color, size = style.MutedColor, style.FontSize-1
		}
		fmt.Fprintf(b, `<text class="card-%s" x="%s" y="%s" font-size="%s" font-weight="%s" fill="%s">%s</text>`,
			row[0], num(x0+style.Padding), num(y-4), num(size), weight, color, escapeXML(row[1]))
	}
}

// header is the drawing area and optional pan/zoom group of one document.
type header struct {
	width, height float64
	viewBox       string
	transform     *viewport.Transform
}

func documentHeader(width, height float64, t viewport.Transform, content bounds, style Style) header {
	if !style.Fit || content.empty {
		return header{width: width, height: height, transform: &t}
	}
	m := style.FitMargin
	w := content.maxX - content.minX + 2*m
	h := content.maxY - content.minY + 2*m
	return header{
		width:   w,
		height:  h,
		viewBox: fmt.Sprintf("%s %s %s %s", num(content.minX-m), num(content.minY-m), num(w), num(h)),
	}
}

// writeDocument writes a complete SVG file around pre-rendered elements.
func writeDocument(w io.Writer, h header, elements []string, style Style) (int64, error) {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s"`, num(h.width), num(h.height))
	if h.viewBox != "" {
		fmt.Fprintf(&b, ` viewBox="%s"`, h.viewBox)
	}
	fmt.Fprintf(&b, ` font-family="%s">`+"\n", escapeXML(style.FontFamily))
	fmt.Fprintf(&b, `<rect x="-50%%" y="-50%%" width="200%%" height="200%%" fill="%s"/>`+"\n", style.Background)

	if h.transform != nil {
		fmt.Fprintf(&b, `<g transform="translate(%s,%s) scale(%s)">`+"\n",
			num(h.transform.X), num(h.transform.Y), num(h.transform.K))
	} else {
		b.WriteString("<g>\n")
	}
	for _, el := range elements {
		b.WriteString(el)
		b.WriteByte('\n')
	}
	b.WriteString("</g>\n</svg>\n")

	n, err := io.WriteString(w, b.String())
	return int64(n), err
}
