package engine

import (
	"testing"

	"constellations/domain/core/entities"
	"constellations/domain/core/valueobjects"
	"constellations/domain/layout"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYearLabel(t *testing.T) {
	assert.Equal(t, "1990", yearLabel(1990))
	assert.Equal(t, "0", yearLabel(0))
	assert.Equal(t, "44 BC", yearLabel(-44))
}

func TestFillFor(t *testing.T) {
	origin := personNode("O")
	origin.Origin = true
	loading := eventNode("L", 2000)
	loading.Loading = true

	assert.Equal(t, personFill, fillFor(personNode("P")))
	assert.Equal(t, thingFill, fillFor(eventNode("E", 1)))
	assert.Equal(t, originFill, fillFor(origin))
	assert.Equal(t, loadingFill, fillFor(loading))
}

func TestFrameShapesFollowMode(t *testing.T) {
	tests := []struct {
		name      string
		mode      valueobjects.LayoutMode
		wantThing layout.Shape
	}{
		{"free-form things are squares", valueobjects.ModeFreeForm, layout.ShapeSquare},
		{"chronological things are cards", valueobjects.ModeChronological, layout.ShapeCard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, WithOptions(Options{Mode: tt.mode, ViewportWidth: 800, ViewportHeight: 600}))
			_, err := e.ApplySnapshot(scenario(), nil)
			require.NoError(t, err)
			e.Tick()

			frame := paint(t, e)
			require.Len(t, frame.Nodes, 3)
			for _, n := range frame.Nodes {
				if n.Category == valueobjects.CategoryPerson {
					assert.Equal(t, layout.ShapeCircle, n.Shape)
				} else {
					assert.Equal(t, tt.wantThing, n.Shape)
				}
			}
		})
	}
}

func TestCardVisual(t *testing.T) {
	e := newTestEngine(t, WithOptions(Options{Mode: valueobjects.ModeChronological, ViewportWidth: 800, ViewportHeight: 600}))
	event := eventNode("E", -44)
	event.Title = "Assassination of Julius Caesar in the Theatre of Pompey"
	event.Description = "Senators stab the dictator"
	event.ImageRef = "caesar.jpg"
	event.Names = []string{"Brutus", "Cassius"}
	_, err := e.ApplySnapshot([]*entities.Node{event}, nil)
	require.NoError(t, err)
	e.Tick()

	frame := paint(t, e)
	require.Len(t, frame.Nodes, 1)
	v := frame.Nodes[0]

	assert.Equal(t, "44 BC", v.YearLabel)
	assert.Equal(t, "caesar.jpg", v.ImageRef)
	assert.Equal(t, []string{"Brutus", "Cassius"}, v.Names)
	assert.Greater(t, len(v.TitleLines), 1)
	assert.LessOrEqual(t, len(v.TitleLines), e.Config().Text.MaxLines)
	assert.False(t, v.Draggable)
	assert.True(t, v.Pinned)

	e.SetTextOnly(true)
	frame = paint(t, e)
	assert.Empty(t, frame.Nodes[0].ImageRef)
	assert.True(t, frame.Nodes[0].TextOnly)
	assert.Equal(t, e.Config().Geometry.CardHeightTextOnly, frame.Nodes[0].Height)
}

func TestFrameSequenceIncreases(t *testing.T) {
	e := newTestEngine(t)
	first := paint(t, e)
	second := paint(t, e)
	assert.Equal(t, first.Seq+1, second.Seq)
	assert.Same(t, second, e.LastFrame())
}
