package overlay

import (
	"errors"
	"fmt"
	"math"

	"github.com/BurntSushi/xgb/shape"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"

	"github.com/1broseidon/screenmask/internal/x11"
)

// X11Driver realizes each surface as one override-redirect window.
type X11Driver struct {
	xu   *xgbutil.XUtil
	root xproto.Window
}

var _ Driver = (*X11Driver)(nil)

// NewX11Driver prepares a driver on an open connection. The SHAPE extension
// is required to make masks click-through.
func NewX11Driver(conn *x11.Connection) (*X11Driver, error) {
	if err := shape.Init(conn.XUtil.Conn()); err != nil {
		return nil, fmt.Errorf("shape extension unavailable: %w", err)
	}
	return &X11Driver{xu: conn.XUtil, root: conn.Root}, nil
}

// Create maps a solid window for spec. On any failure after the window was
// created it is destroyed again before returning.
func (d *X11Driver) Create(spec Spec) (Handle, error) {
	if err := spec.Validate(); err != nil {
		return 0, err
	}

	conn := d.xu.Conn()
	screen := d.xu.Screen()

	wid, err := xproto.NewWindowId(conn)
	if err != nil {
		return 0, fmt.Errorf("allocate window id: %w", err)
	}

	// Value list order follows the bit positions of the mask (low -> high):
	// CwBackPixel, CwOverrideRedirect, CwEventMask.
	// Override-redirect keeps the window manager from placing, decorating
	// or focusing the mask.
	err = xproto.CreateWindowChecked(
		conn,
		screen.RootDepth,
		wid,
		d.root,
		clampInt16(spec.X), clampInt16(spec.Y),
		clampUint16(spec.Width), clampUint16(spec.Height),
		0, // border_width
		xproto.WindowClassInputOutput,
		screen.RootVisual,
		xproto.CwBackPixel|xproto.CwOverrideRedirect|xproto.CwEventMask,
		[]uint32{spec.Color.RGB(), 1, xproto.EventMaskNoEvent},
	).Check()
	if err != nil {
		return 0, fmt.Errorf("create window: %w", err)
	}

	if err := d.configure(wid, spec); err != nil {
		xproto.DestroyWindow(conn, wid)
		return 0, err
	}

	return Handle(wid), nil
}

func (d *X11Driver) configure(wid xproto.Window, spec Spec) error {
	conn := d.xu.Conn()

	if spec.Flags.Has(NonInteractive) {
		// An empty input region lets pointer events fall through.
		err := shape.RectanglesChecked(
			conn,
			shape.SoSet,
			shape.SkInput,
			xproto.ClipOrderingUnsorted,
			wid,
			0, 0,
			nil,
		).Check()
		if err != nil {
			return fmt.Errorf("clear input shape: %w", err)
		}
	}

	if spec.Flags.Has(NonFocusable) {
		hints := &icccm.Hints{Flags: icccm.HintInput, Input: 0}
		if err := icccm.WmHintsSet(d.xu, wid, hints); err != nil {
			return fmt.Errorf("set WM_HINTS: %w", err)
		}
	}

	if spec.Color.Alpha() < 0xff {
		if err := ewmh.WmWindowOpacitySet(d.xu, wid, spec.Color.Opacity()); err != nil {
			return fmt.Errorf("set window opacity: %w", err)
		}
	}

	if err := xproto.MapWindowChecked(conn, wid).Check(); err != nil {
		return fmt.Errorf("map window: %w", err)
	}

	if spec.Flags.Has(AboveContent) {
		err := xproto.ConfigureWindowChecked(
			conn,
			wid,
			xproto.ConfigWindowStackMode,
			[]uint32{xproto.StackModeAbove},
		).Check()
		if err != nil {
			return fmt.Errorf("raise window: %w", err)
		}
	}

	return nil
}

// Destroy removes the window. A BadWindow reply means the server already
// dropped it and is reported as ErrSurfaceGone.
func (d *X11Driver) Destroy(h Handle) error {
	err := xproto.DestroyWindowChecked(d.xu.Conn(), xproto.Window(h)).Check()
	if err == nil {
		return nil
	}
	var badWindow xproto.WindowError
	if errors.As(err, &badWindow) {
		return fmt.Errorf("%w: window 0x%x", ErrSurfaceGone, uint32(h))
	}
	return fmt.Errorf("destroy window 0x%x: %w", uint32(h), err)
}

func clampInt16(v int) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

func clampUint16(v int) uint16 {
	if v > math.MaxUint16 {
		return math.MaxUint16
	}
	if v < 1 {
		return 1
	}
	return uint16(v)
}
