package valueobjects

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPosition(t *testing.T) {
	tests := []struct {
		name    string
		x, y    float64
		wantErr bool
	}{
		{"origin", 0, 0, false},
		{"negative", -120.5, 40, false},
		{"nan x", math.NaN(), 1, true},
		{"inf y", 1, math.Inf(1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos, err := NewPosition(tt.x, tt.y)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, pos.IsFinite())
		})
	}
}

func TestPositionMath(t *testing.T) {
	a := Position{X: 0, Y: 0}
	b := Position{X: 3, Y: 4}

	assert.Equal(t, 5.0, a.DistanceTo(b))
	assert.True(t, a.Lerp(b, 0.5).Equals(Position{X: 1.5, Y: 2}))
	assert.True(t, b.Translate(-3, -4).Equals(a))
	assert.False(t, Undefined().IsFinite())
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("Person")
	require.NoError(t, err)
	assert.True(t, c.IsPerson())

	c, err = ParseCategory("event")
	require.NoError(t, err)
	assert.Equal(t, CategoryThing, c)

	_, err = ParseCategory("")
	assert.Error(t, err)
}

func TestLayoutModeJSON(t *testing.T) {
	data, err := json.Marshal(ModeChronological)
	require.NoError(t, err)
	assert.Equal(t, `"chronological"`, string(data))

	var m LayoutMode
	require.NoError(t, json.Unmarshal([]byte(`"freeform"`), &m))
	assert.Equal(t, ModeFreeForm, m)
	assert.Error(t, json.Unmarshal([]byte(`"radial"`), &m))
}

func TestNodeID(t *testing.T) {
	id, err := NewNodeID("  q42 ")
	require.NoError(t, err)
	assert.Equal(t, "q42", id.String())

	_, err = NewNodeID(" ")
	assert.Error(t, err)
	assert.Equal(t, LinkID("a->b"), DeriveLinkID("a", "b"))
}
