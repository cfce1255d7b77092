package rules

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestRuleGeometry(t *testing.T) {
	tests := []struct {
		name   string
		rule   Rule
		want   Geometry
		wantOK bool
	}{
		{"normal", Rule{Left: 0, Top: 0, Right: 100, Bottom: 50}, Geometry{X: 0, Y: 0, Width: 100, Height: 50}, true},
		{"offset", Rule{Left: 10, Top: 20, Right: 15, Bottom: 21}, Geometry{X: 10, Y: 20, Width: 5, Height: 1}, true},
		{"negative origin", Rule{Left: -10, Top: -5, Right: 10, Bottom: 5}, Geometry{X: -10, Y: -5, Width: 20, Height: 10}, true},
		{"zero width", Rule{Left: 5, Top: 0, Right: 5, Bottom: 10}, Geometry{}, false},
		{"zero height", Rule{Left: 0, Top: 5, Right: 10, Bottom: 5}, Geometry{}, false},
		{"inverted x", Rule{Left: 50, Top: 50, Right: 40, Bottom: 90}, Geometry{}, false},
		{"inverted y", Rule{Left: 0, Top: 90, Right: 10, Bottom: 10}, Geometry{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.rule.Geometry()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRuleSizeNeverNegative(t *testing.T) {
	w, h := Rule{Left: 50, Top: 90, Right: 40, Bottom: 10}.Size()
	assert.Equal(t, 0, w)
	assert.Equal(t, 0, h)
}

func TestRuleSizeSaturatesOnOverflow(t *testing.T) {
	r := Rule{Left: -1, Top: math.MinInt, Right: math.MaxInt, Bottom: math.MaxInt}
	w, h := r.Size()
	assert.Equal(t, math.MaxInt, w)
	assert.Equal(t, math.MaxInt, h)

	g, ok := r.Geometry()
	require.True(t, ok, "an oversized rule is not empty")
	assert.Equal(t, -1, g.X)
	assert.Equal(t, math.MaxInt, g.Width)
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want Color
	}{
		{"#FF000000", 0xFF000000},
		{"#ff0000ff", 0xFF0000FF},
		{"#00FF00", 0xFF00FF00},
		{"0x800000FF", 0x800000FF},
		{"4278190080", 0xFF000000},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "#12345", "#GG0000", "0xZZ", "red"} {
		_, err := ParseColor(bad)
		assert.Error(t, err, bad)
	}
}

func TestColorChannels(t *testing.T) {
	c := Color(0x80123456)
	assert.Equal(t, uint8(0x80), c.Alpha())
	assert.Equal(t, uint32(0x123456), c.RGB())
	assert.Equal(t, "#80123456", c.String())
	assert.InDelta(t, 0.502, c.Opacity(), 0.001)
}

func TestColorYAML(t *testing.T) {
	var r Rule
	require.NoError(t, yaml.Unmarshal([]byte("id: a\ncolor: \"#FF0000FF\"\n"), &r))
	assert.Equal(t, Color(0xFF0000FF), r.Color)

	require.NoError(t, yaml.Unmarshal([]byte("id: b\ncolor: 4278190080\n"), &r))
	assert.Equal(t, Color(0xFF000000), r.Color)

	out, err := yaml.Marshal(Rule{ID: "c", Color: 0xFF00FF00})
	require.NoError(t, err)
	assert.Contains(t, string(out), "#FF00FF00")
	var back Rule
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, Color(0xFF00FF00), back.Color)

	err = yaml.Unmarshal([]byte("id: d\ncolor: [1, 2]\n"), &r)
	assert.Error(t, err)
}

func TestEnabledPreservesOrder(t *testing.T) {
	rs := []Rule{{ID: "1", Enabled: true}, {ID: "2"}, {ID: "3", Enabled: true}}
	got := Enabled(rs)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "3", got[1].ID)
}
