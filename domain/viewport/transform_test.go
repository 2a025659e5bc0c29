package viewport

import (
	"testing"
	"time"

	"constellations/domain/core/valueobjects"

	"github.com/stretchr/testify/assert"
)

func TestApplyInvertRoundTrip(t *testing.T) {
	tr := Transform{X: 30, Y: -12, K: 2.5}
	p := valueobjects.Position{X: 17, Y: 4}

	assert.True(t, tr.Invert(tr.Apply(p)).Equals(p))
}

func TestScaleAtKeepsAnchorAndClamps(t *testing.T) {
	anchor := valueobjects.Position{X: 400, Y: 300}
	tr := Identity()

	zoomed := tr.ScaleAt(2, anchor, 0.1, 4)
	assert.Equal(t, 2.0, zoomed.K)
	assert.True(t, zoomed.Apply(tr.Invert(anchor)).Equals(anchor))

	assert.Equal(t, 4.0, zoomed.ScaleAt(100, anchor, 0.1, 4).K)
	assert.Equal(t, 0.1, zoomed.ScaleAt(0.0001, anchor, 0.1, 4).K)
}

func TestCenteredOnPreservesScale(t *testing.T) {
	tr := Transform{X: 5, Y: 5, K: 1.5}
	p := valueobjects.Position{X: 200, Y: -40}

	c := tr.CenteredOn(p, 800, 600)

	assert.Equal(t, 1.5, c.K)
	assert.True(t, c.Apply(p).Equals(valueobjects.Position{X: 400, Y: 300}))
}

func TestVisible(t *testing.T) {
	tr := Identity()

	tests := []struct {
		name string
		p    valueobjects.Position
		want bool
	}{
		{"inside", valueobjects.Position{X: 400, Y: 300}, true},
		{"within margin", valueobjects.Position{X: -90, Y: 650}, true},
		{"beyond margin", valueobjects.Position{X: -150, Y: 300}, false},
		{"far away", valueobjects.Position{X: 10000, Y: 10000}, false},
		{"unplaced", valueobjects.Undefined(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tr.Visible(tt.p, 800, 600, 100))
		})
	}
}

func TestEaseCubicInOut(t *testing.T) {
	assert.Equal(t, 0.0, EaseCubicInOut(0))
	assert.Equal(t, 0.5, EaseCubicInOut(0.5))
	assert.Equal(t, 1.0, EaseCubicInOut(1))
	assert.Less(t, EaseCubicInOut(0.25), 0.25)
	assert.Greater(t, EaseCubicInOut(0.75), 0.75)
}

func TestAnimationStep(t *testing.T) {
	from := Identity()
	to := from.Translate(100, 0)
	a := NewAnimation(from, to, 250*time.Millisecond, "key")
	start := time.Unix(1000, 0)

	tr, done := a.Step(start)
	assert.False(t, done)
	assert.Equal(t, 0.0, tr.X)

	tr, done = a.Step(start.Add(125 * time.Millisecond))
	assert.False(t, done)
	assert.InDelta(t, 50, tr.X, 1e-9)

	tr, done = a.Step(start.Add(300 * time.Millisecond))
	assert.True(t, done)
	assert.Equal(t, to, tr)
}

func TestZeroDurationAnimationFinishesImmediately(t *testing.T) {
	to := Identity().Translate(0, 40)
	tr, done := NewAnimation(Identity(), to, 0, "reset").Step(time.Now())

	assert.True(t, done)
	assert.Equal(t, to, tr)
}
