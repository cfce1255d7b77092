package overlay

import (
	"errors"
	"fmt"
	"strings"

	"github.com/1broseidon/screenmask/internal/rules"
)

var (
	// ErrSurfaceGone is returned by Destroy when the surface no longer exists
	// in the window system.
	ErrSurfaceGone = errors.New("overlay surface already gone")
	// ErrInvalidSpec is returned by Create for a non-positive extent.
	ErrInvalidSpec = errors.New("invalid overlay spec")
)

// Handle identifies one live overlay surface.
type Handle uint32

// Flags control how a surface interacts with the rest of the desktop.
type Flags uint8

const (
	// NonInteractive surfaces never receive pointer input.
	NonInteractive Flags = 1 << iota
	// NonFocusable surfaces never take keyboard focus.
	NonFocusable
	// AboveContent surfaces are stacked above normal application windows.
	AboveContent
)

// MaskFlags is the flag set every mask surface is created with.
const MaskFlags = NonInteractive | NonFocusable | AboveContent

func (f Flags) Has(flag Flags) bool {
	return f&flag == flag
}

func (f Flags) String() string {
	var parts []string
	if f.Has(NonInteractive) {
		parts = append(parts, "non_interactive")
	}
	if f.Has(NonFocusable) {
		parts = append(parts, "non_focusable")
	}
	if f.Has(AboveContent) {
		parts = append(parts, "above_content")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Spec describes a surface to create. X/Y is the top-left corner in screen
// space.
type Spec struct {
	X      int
	Y      int
	Width  int
	Height int
	Color  rules.Color
	Flags  Flags
}

// SpecFor builds the mask spec for a validated rule geometry.
func SpecFor(g rules.Geometry, color rules.Color) Spec {
	return Spec{
		X:      g.X,
		Y:      g.Y,
		Width:  g.Width,
		Height: g.Height,
		Color:  color,
		Flags:  MaskFlags,
	}
}

// Validate reports whether the spec can be realized.
func (s Spec) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidSpec, s.Width, s.Height)
	}
	return nil
}

// Driver creates and destroys overlay surfaces.
//
// Create either returns a usable handle or an error; it never leaves a
// surface registered with the window system when it fails. Destroy returns
// ErrSurfaceGone (possibly wrapped) when the surface was invalidated
// externally.
type Driver interface {
	Create(spec Spec) (Handle, error)
	Destroy(h Handle) error
}
