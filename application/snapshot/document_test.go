package snapshot

import (
	"fmt"
	"strings"
	"testing"

	"constellations/domain/core/valueobjects"
	pkgerrors "constellations/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDocument = `{
  "nodes": [
    {"id": "P", "type": "person", "title": "Ada Lovelace", "is_origin": true},
    {"id": "E1", "type": "event", "title": "Analytical Engine notes", "year": 1843,
     "names": ["Babbage"], "image_url": "notes.png"}
  ],
  "links": [
    {"source": "P", "target": "E1", "label": "wrote"},
    {"source": "P", "target": "D"}
  ]
}`

func TestDecodeAndConvert(t *testing.T) {
	doc, err := Decode(strings.NewReader(sampleDocument))
	require.NoError(t, err)

	nodes, links, err := doc.Entities()
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	require.Len(t, links, 2)

	p, e1 := nodes[0], nodes[1]
	assert.Equal(t, valueobjects.CategoryPerson, p.Category)
	assert.True(t, p.Origin)
	assert.Equal(t, valueobjects.CategoryThing, e1.Category)
	require.NotNil(t, e1.Year)
	assert.Equal(t, 1843, *e1.Year)
	assert.Equal(t, []string{"Babbage"}, e1.Names)
	assert.Equal(t, "notes.png", e1.ImageRef)
	assert.False(t, e1.IsPlaced())

	assert.Equal(t, valueobjects.LinkID("P->E1"), links[0].ID)
	assert.Equal(t, "wrote", links[0].Label)
	// dangling links are kept here; the engine filters them
	assert.Equal(t, valueobjects.NodeID("D"), links[1].TargetID)
}

func TestDecodeRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"nodes": [`},
		{"missing node id", `{"nodes": [{"type": "person"}]}`},
		{"missing link target", `{"nodes": [], "links": [{"source": "a"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.body))
			require.Error(t, err)
			assert.True(t, pkgerrors.IsValidation(err))
		})
	}
}

func TestDecodeRejectsOversizeDocument(t *testing.T) {
	// valid JSON, padded past the limit
	body := `{"nodes": [` + strings.Repeat(" ", MaxDocumentBytes) + `]}`

	_, err := Decode(strings.NewReader(body))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
	assert.Contains(t, err.Error(), fmt.Sprintf("snapshot exceeds %d bytes", MaxDocumentBytes))
	assert.NotContains(t, err.Error(), "unexpected EOF")
}

func TestUnknownCategoryFailsConversion(t *testing.T) {
	doc, err := Decode(strings.NewReader(`{"nodes": [{"id": "x", "type": "planet"}]}`))
	require.NoError(t, err)

	_, _, err = doc.Entities()
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestFromEntitiesRoundTrip(t *testing.T) {
	doc, err := Decode(strings.NewReader(sampleDocument))
	require.NoError(t, err)
	nodes, links, err := doc.Entities()
	require.NoError(t, err)

	back := FromEntities(nodes, links)
	require.Len(t, back.Nodes, 2)
	assert.Equal(t, "thing", back.Nodes[1].Type)
	assert.Equal(t, 1843, *back.Nodes[1].Year)
	assert.Equal(t, "P->E1", back.Links[0].ID)
}
