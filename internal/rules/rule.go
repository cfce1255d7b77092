package rules

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Color is a packed ARGB value (alpha in the top byte).
type Color uint32

// Alpha returns the alpha channel (0 = transparent, 0xFF = opaque).
func (c Color) Alpha() uint8 {
	return uint8(c >> 24)
}

// RGB returns the color without its alpha channel.
func (c Color) RGB() uint32 {
	return uint32(c) & 0x00ffffff
}

// Opacity returns the alpha channel as a fraction in [0, 1].
func (c Color) Opacity() float64 {
	return float64(c.Alpha()) / 255
}

func (c Color) String() string {
	return fmt.Sprintf("#%08X", uint32(c))
}

// ParseColor accepts "#AARRGGBB", "#RRGGBB" (opaque), "0xAARRGGBB" or a
// decimal integer.
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("color is empty")
	}

	switch {
	case strings.HasPrefix(s, "#"):
		hex := s[1:]
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid color %q: %w", s, err)
		}
		switch len(hex) {
		case 6:
			return Color(0xff000000 | uint32(v)), nil
		case 8:
			return Color(v), nil
		default:
			return 0, fmt.Errorf("invalid color %q: expected #RRGGBB or #AARRGGBB", s)
		}
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		v, err := strconv.ParseUint(s[2:], 16, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid color %q: %w", s, err)
		}
		return Color(v), nil
	default:
		v, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid color %q: %w", s, err)
		}
		return Color(v), nil
	}
}

func (c *Color) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("color must be a string or integer")
	}
	parsed, err := ParseColor(value.Value)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c Color) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}

// Geometry is a validated on-screen rectangle.
type Geometry struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Rule describes one mask region.
type Rule struct {
	ID      string `yaml:"id" json:"id"`
	Left    int    `yaml:"left" json:"left"`
	Top     int    `yaml:"top" json:"top"`
	Right   int    `yaml:"right" json:"right"`
	Bottom  int    `yaml:"bottom" json:"bottom"`
	Color   Color  `yaml:"color" json:"color"`
	Enabled bool   `yaml:"enabled" json:"enabled"`
}

// Size returns the rule extent with each dimension clamped at zero and
// saturated at math.MaxInt.
func (r Rule) Size() (width, height int) {
	return extent(r.Left, r.Right), extent(r.Top, r.Bottom)
}

func extent(lo, hi int) int {
	if hi <= lo {
		return 0
	}
	if d := hi - lo; d > 0 {
		return d
	}
	return math.MaxInt
}

// Geometry returns the surface rectangle for the rule. ok is false when the
// clamped width or height is zero; such rules produce no surface.
func (r Rule) Geometry() (Geometry, bool) {
	width, height := r.Size()
	if width <= 0 || height <= 0 {
		return Geometry{}, false
	}
	return Geometry{X: r.Left, Y: r.Top, Width: width, Height: height}, true
}

// Enabled returns the enabled subset of rs, preserving order.
func Enabled(rs []Rule) []Rule {
	out := make([]Rule, 0, len(rs))
	for _, r := range rs {
		if r.Enabled {
			out = append(out, r)
		}
	}
	return out
}
