package svg

import (
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"strings"
	"testing"

	"constellations/application/ports"
	"constellations/domain/core/valueobjects"
	"constellations/domain/highlight"
	"constellations/domain/layout"
	"constellations/domain/viewport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ ports.Scene         = (*Scene)(nil)
	_ ports.Measurer      = (*Scene)(nil)
	_ ports.FrameRenderer = (*Scene)(nil)
	_ ports.FrameRenderer = (*Renderer)(nil)
	_ io.WriterTo         = (*Scene)(nil)
)

func person(id string, x, y float64) ports.NodeVisual {
	return ports.NodeVisual{
		ID: valueobjects.NodeID(id), Category: valueobjects.CategoryPerson,
		Shape: layout.ShapeCircle, X: x, Y: y, Width: 72, Height: 72,
		Fill: "#6366f1", Stroke: "#fff", StrokeWidth: 2, Opacity: 1,
		Emphasis: highlight.EmphasisNone, TitleLines: []string{"Ada & <Co>"},
	}
}

func card(id string) ports.NodeVisual {
	return ports.NodeVisual{
		ID: valueobjects.NodeID(id), Category: valueobjects.CategoryThing,
		Shape: layout.ShapeCard, X: 300, Y: 200, Width: 160, Height: 220,
		Fill: "#0ea5e9", Stroke: "#fff", StrokeWidth: 1, Opacity: 1,
		Emphasis:   highlight.EmphasisNone,
		YearLabel:  "1843",
		TitleLines: []string{"Notes on the", "Analytical Engine"},
		Names:      []string{"Ada", "Charles"},
		ImageRef:   "notes.png",
	}
}

func frameOf(seq uint64, nodes []ports.NodeVisual, links []ports.LinkVisual) *ports.Frame {
	return &ports.Frame{
		Seq: seq, Width: 800, Height: 600, Transform: viewport.Identity(),
		Nodes: nodes, Links: links,
	}
}

func link(s, t string) ports.LinkVisual {
	return ports.LinkVisual{
		ID: valueobjects.DeriveLinkID(valueobjects.NodeID(s), valueobjects.NodeID(t)), SourceID: valueobjects.NodeID(s), TargetID: valueobjects.NodeID(t),
		X1: 100, Y1: 100, X2: 300, Y2: 200, Stroke: "#94a3b8", Width: 1.5, Opacity: 1,
		Label: "wrote", ShowLabel: true,
	}
}

// wellFormed parses the whole document.
func wellFormed(t *testing.T, doc string) {
	t.Helper()
	dec := xml.NewDecoder(strings.NewReader(doc))
	for {
		_, err := dec.Token()
		if err == io.EOF {
			return
		}
		require.NoError(t, err, doc)
	}
}

func TestRendererWritesDocument(t *testing.T) {
	r := NewRenderer(DefaultStyle())
	var buf bytes.Buffer
	err := r.Render(&buf, frameOf(1, []ports.NodeVisual{person("A", 100, 100), card("B")}, []ports.LinkVisual{link("A", "B")}))
	require.NoError(t, err)

	doc := buf.String()
	wellFormed(t, doc)
	assert.Contains(t, doc, `width="800" height="600"`)
	assert.Contains(t, doc, `<circle r="36"`)
	assert.Contains(t, doc, "Ada &amp; &lt;Co&gt;")
	assert.Contains(t, doc, `data-id="A-&gt;B"`)
	assert.Contains(t, doc, `<image href="notes.png"`)
	assert.Contains(t, doc, ">wrote</text>")
	assert.Less(t, strings.Index(doc, `class="link`), strings.Index(doc, `class="node`), "links are drawn under nodes")
	assert.Equal(t, ContentType, r.ContentType())
}

func TestRendererFitsContent(t *testing.T) {
	style := DefaultStyle()
	style.Fit = true
	style.FitMargin = 10

	var buf bytes.Buffer
	require.NoError(t, NewRenderer(style).Render(&buf, frameOf(1, []ports.NodeVisual{person("A", 100, 100)}, nil)))
	assert.Contains(t, buf.String(), `viewBox="54 54 92 92"`)
}

func TestTextOnlyCardHasNoImage(t *testing.T) {
	c := card("B")
	c.TextOnly = true
	markup := nodeMarkup(c, DefaultStyle())
	assert.NotContains(t, markup, "<image")
	assert.Contains(t, markup, `class="card-title"`)
}

func TestSceneReconciliation(t *testing.T) {
	s := NewScene(DefaultStyle())
	ctx := context.Background()

	a, b := person("A", 100, 100), person("B", 200, 200)
	require.NoError(t, s.Commit(ctx, frameOf(1, []ports.NodeVisual{a, b}, []ports.LinkVisual{link("A", "B")})))
	assert.Equal(t, Stats{Commits: 1, Created: 3, Elements: 3}, s.Stats())

	// unchanged frame does no work
	require.NoError(t, s.Commit(ctx, frameOf(2, []ports.NodeVisual{a, b}, []ports.LinkVisual{link("A", "B")})))
	assert.Equal(t, Stats{Commits: 2, Created: 3, Elements: 3}, s.Stats())

	// one node moves, the link goes away
	b.X = 250
	require.NoError(t, s.Commit(ctx, frameOf(3, []ports.NodeVisual{a, b}, nil)))
	assert.Equal(t, Stats{Commits: 3, Created: 3, Updated: 1, Destroyed: 1, Elements: 2}, s.Stats())
	assert.Equal(t, uint64(3), s.Seq())

	var buf bytes.Buffer
	n, err := s.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	wellFormed(t, buf.String())
	assert.Contains(t, buf.String(), `translate(250,200)`)
	assert.NotContains(t, buf.String(), `class="link`)
}

func TestSceneHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewScene(DefaultStyle()).Commit(ctx, frameOf(1, nil, nil)), context.Canceled)
}

func TestSceneMeasuresCards(t *testing.T) {
	style := DefaultStyle()
	s := NewScene(style)

	withImage := card("B")
	textOnly := card("C")
	textOnly.TextOnly = true
	require.NoError(t, s.Commit(context.Background(), frameOf(1,
		[]ports.NodeVisual{person("A", 0, 0), withImage, textOnly}, nil)))

	got := s.MeasureContent([]valueobjects.NodeID{"A", "B", "C", "missing"})
	require.Len(t, got, 2)

	// year + 2 title lines + 2 names
	rows := 5 * style.LineHeight
	assert.Equal(t, 2*style.Padding+style.ImageHeight+style.Padding+rows, got["B"])
	assert.Equal(t, 2*style.Padding+rows, got["C"])
}

func TestSceneRenderCommitsNewerFrames(t *testing.T) {
	s := NewScene(DefaultStyle())
	var buf bytes.Buffer
	require.NoError(t, s.Render(&buf, frameOf(4, []ports.NodeVisual{person("A", 10, 10)}, nil)))
	assert.Equal(t, uint64(4), s.Seq())
	assert.Contains(t, buf.String(), `data-id="A"`)
	assert.Equal(t, ContentType, s.ContentType())
}

func TestNumberFormatting(t *testing.T) {
	assert.Equal(t, "1.23", num(1.2345))
	assert.Equal(t, "-4", num(-4))
	assert.Equal(t, "0.5", num(0.5))
}
