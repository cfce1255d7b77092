package overlay

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1broseidon/screenmask/internal/rules"
)

func TestFlagsString(t *testing.T) {
	assert.Equal(t, "non_interactive|non_focusable|above_content", MaskFlags.String())
	assert.Equal(t, "none", Flags(0).String())
	assert.True(t, MaskFlags.Has(NonFocusable))
	assert.False(t, NonInteractive.Has(AboveContent))
}

func TestSpecFor(t *testing.T) {
	spec := SpecFor(rules.Geometry{X: 3, Y: 4, Width: 10, Height: 20}, 0xFF000000)
	assert.Equal(t, Spec{X: 3, Y: 4, Width: 10, Height: 20, Color: 0xFF000000, Flags: MaskFlags}, spec)
	assert.NoError(t, spec.Validate())

	assert.ErrorIs(t, Spec{Width: 0, Height: 5}.Validate(), ErrInvalidSpec)
	assert.ErrorIs(t, Spec{Width: 5, Height: -1}.Validate(), ErrInvalidSpec)
}

func TestRecorderCreateDestroy(t *testing.T) {
	r := NewRecorder()

	h1, err := r.Create(Spec{Width: 1, Height: 1})
	require.NoError(t, err)
	h2, err := r.Create(Spec{Width: 2, Height: 2})
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
	assert.Equal(t, []Handle{h1, h2}, r.Handles())

	require.NoError(t, r.Destroy(h1))
	assert.ErrorIs(t, r.Destroy(h1), ErrSurfaceGone)
	assert.Equal(t, []Handle{h2}, r.Handles())

	created, destroyed := r.Counts()
	assert.Equal(t, 2, created)
	assert.Equal(t, 1, destroyed)
}

func TestRecorderRejectsInvalidSpecWithoutRegistering(t *testing.T) {
	r := NewRecorder()
	_, err := r.Create(Spec{Width: 0, Height: 10})
	require.ErrorIs(t, err, ErrInvalidSpec)
	assert.Empty(t, r.Live())
}

func TestRecorderInjectedFailures(t *testing.T) {
	r := NewRecorder()
	boom := errors.New("boom")
	r.FailCreate(func(s Spec) error {
		if s.X == 2 {
			return boom
		}
		return nil
	})

	_, err := r.Create(Spec{X: 2, Width: 1, Height: 1})
	require.ErrorIs(t, err, boom)
	assert.Empty(t, r.Live())

	h, err := r.Create(Spec{X: 1, Width: 1, Height: 1})
	require.NoError(t, err)

	r.FailDestroy(h, nil)
	assert.ErrorIs(t, r.Destroy(h), ErrInjected)
	assert.Empty(t, r.Live(), "failed destroy still releases the surface")
}

func TestRecorderLose(t *testing.T) {
	r := NewRecorder()
	h, err := r.Create(Spec{Width: 1, Height: 1})
	require.NoError(t, err)
	r.Lose(h)
	assert.ErrorIs(t, r.Destroy(h), ErrSurfaceGone)
}

func TestClampHelpers(t *testing.T) {
	assert.Equal(t, int16(32767), clampInt16(100000))
	assert.Equal(t, int16(-32768), clampInt16(-100000))
	assert.Equal(t, int16(-5), clampInt16(-5))
	assert.Equal(t, uint16(65535), clampUint16(70000))
	assert.Equal(t, uint16(1), clampUint16(0))
}
