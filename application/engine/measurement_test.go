package engine

import (
	"context"
	"math"
	"testing"
	"time"

	"constellations/application/ports"
	"constellations/domain/core/entities"
	"constellations/domain/core/valueobjects"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeScene records committed frames and answers measurement requests with a
// fixed height.
type fakeScene struct {
	frames   []*ports.Frame
	height   float64
	measured [][]valueobjects.NodeID
}

func (s *fakeScene) Commit(_ context.Context, f *ports.Frame) error {
	s.frames = append(s.frames, f)
	return nil
}

func (s *fakeScene) MeasureContent(ids []valueobjects.NodeID) map[valueobjects.NodeID]float64 {
	s.measured = append(s.measured, ids)
	out := make(map[valueobjects.NodeID]float64, len(ids))
	if s.height <= 0 {
		return out
	}
	for _, id := range ids {
		out[id] = s.height
	}
	return out
}

// commitOnlyScene cannot measure.
type commitOnlyScene struct {
	commits int
}

func (s *commitOnlyScene) Commit(context.Context, *ports.Frame) error {
	s.commits++
	return nil
}

func chronologicalEngine(t *testing.T, scene ports.Scene) *Engine {
	t.Helper()
	e := newTestEngine(t,
		WithScene(scene),
		WithOptions(Options{Mode: valueobjects.ModeChronological, ViewportWidth: 800, ViewportHeight: 600}),
	)
	_, err := e.ApplySnapshot(scenario(), nil)
	require.NoError(t, err)
	e.Tick()
	return e
}

func TestMeasurementRunsOnceAfterProvisionalPaint(t *testing.T) {
	scene := &fakeScene{height: 300}
	e := chronologicalEngine(t, scene)
	require.True(t, e.MeasurementPending())

	now := time.Now()
	_, err := e.Paint(context.Background(), now)
	require.NoError(t, err)
	assert.Empty(t, scene.measured, "first paint commits provisional sizes")

	_, err = e.Paint(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, scene.measured, 1)
	assert.ElementsMatch(t, []valueobjects.NodeID{"E1", "E2"}, scene.measured[0])

	for i := 0; i < 5; i++ {
		e.Tick()
		_, err = e.Paint(context.Background(), now)
		require.NoError(t, err)
	}
	assert.Len(t, scene.measured, 1, "a correction must not trigger another measurement")
	assert.False(t, e.MeasurementPending())

	e1, _ := e.Node("E1")
	assert.Equal(t, 300.0, e1.MeasuredHeight)
}

func TestMeasurementGrowsAxisClearance(t *testing.T) {
	scene := &fakeScene{height: 300}
	e := chronologicalEngine(t, scene)

	e1, _ := e.Node("E1")
	e2, _ := e.Node("E2")
	before := math.Abs(e1.Y - e2.Y)

	paint(t, e)
	paint(t, e)
	e.Tick()

	after := math.Abs(e1.Y - e2.Y)
	assert.Greater(t, after, before)
}

func TestApplyMeasurementsIsIdempotent(t *testing.T) {
	e := chronologicalEngine(t, &fakeScene{})
	heights := map[valueobjects.NodeID]float64{"E1": 260, "E2": 240}

	assert.Equal(t, 2, e.ApplyMeasurements(heights))
	e.Settle(10000)
	require.False(t, e.Running())

	assert.Zero(t, e.ApplyMeasurements(heights))
	assert.False(t, e.Running(), "a repeated measurement must not reheat")

	heights["E1"] = 260.4
	assert.Zero(t, e.ApplyMeasurements(heights), "changes within tolerance are ignored")
}

func TestApplyMeasurementsIgnoresInvalidInput(t *testing.T) {
	e := chronologicalEngine(t, &fakeScene{})

	corrected := e.ApplyMeasurements(map[valueobjects.NodeID]float64{
		"E1":      math.NaN(),
		"E2":      -4,
		"P":       500,
		"missing": 300,
	})
	assert.Zero(t, corrected)

	p, _ := e.Node("P")
	assert.Zero(t, p.MeasuredHeight, "persons are not cards")
}

func TestFailedMeasurementKeepsNominalHeight(t *testing.T) {
	scene := &fakeScene{}
	e := chronologicalEngine(t, scene)

	for i := 0; i < 4; i++ {
		paint(t, e)
	}

	require.Len(t, scene.measured, 1, "no retry after an empty answer")
	frame := e.LastFrame()
	for _, n := range frame.Nodes {
		if n.ID == "E1" {
			assert.Equal(t, e.Config().Geometry.CardHeight, n.Height)
		}
	}
}

func TestSceneWithoutMeasurerIsTolerated(t *testing.T) {
	scene := &commitOnlyScene{}
	e := chronologicalEngine(t, scene)

	paint(t, e)
	paint(t, e)
	paint(t, e)

	assert.Equal(t, 3, scene.commits)
	assert.False(t, e.MeasurementPending())
}

func TestContentEditRearmsMeasurementButNotStructure(t *testing.T) {
	scene := &fakeScene{height: 280}
	e := chronologicalEngine(t, scene)
	paint(t, e)
	paint(t, e)
	require.Len(t, scene.measured, 1)

	edited := scenario()
	edited[1].Description = "A much longer description that wraps onto more lines"
	result, err := e.ApplySnapshot(edited, nil)
	require.NoError(t, err)
	assert.False(t, result.Structural)

	e1, _ := e.Node("E1")
	assert.Zero(t, e1.MeasuredHeight, "stale measurement is discarded with changed content")
	e2, _ := e.Node("E2")
	assert.Equal(t, 280.0, e2.MeasuredHeight)

	paint(t, e)
	paint(t, e)
	assert.Len(t, scene.measured, 2)
}

func TestMeasurementOnlyInChronologicalMode(t *testing.T) {
	scene := &fakeScene{height: 300}
	e := newTestEngine(t, WithScene(scene))
	_, err := e.ApplySnapshot([]*entities.Node{personNode("P"), eventNode("E1", 1990)}, nil)
	require.NoError(t, err)
	e.Tick()

	paint(t, e)
	paint(t, e)
	assert.Empty(t, scene.measured)
}
