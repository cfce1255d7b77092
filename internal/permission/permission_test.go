package permission

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileGateGrantRevoke(t *testing.T) {
	g := NewFileGate(filepath.Join(t.TempDir(), "nested", "overlay-permission"))
	assert.False(t, g.Granted())

	require.NoError(t, g.Grant())
	assert.True(t, g.Granted())

	info, err := os.Stat(g.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	require.NoError(t, g.Revoke())
	assert.False(t, g.Granted())
	require.NoError(t, g.Revoke(), "second revoke is a no-op")
}

func TestFileGateRejectsForeignContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overlay-permission")
	require.NoError(t, os.WriteFile(path, []byte("denied\n"), 0600))
	assert.False(t, NewFileGate(path).Granted())
}

func TestFileGateSeesExternalRevocation(t *testing.T) {
	g := NewFileGate(filepath.Join(t.TempDir(), "overlay-permission"))
	require.NoError(t, g.Grant())
	require.True(t, g.Granted())
	require.NoError(t, os.Remove(g.Path()))
	assert.False(t, g.Granted())
}

func TestStatic(t *testing.T) {
	assert.True(t, Static(true).Granted())
	assert.False(t, Static(false).Granted())
}

func TestFileGateSetPath(t *testing.T) {
	dir := t.TempDir()
	granted := filepath.Join(dir, "a")
	require.NoError(t, os.WriteFile(granted, []byte("granted\n"), 0600))

	g := NewFileGate(filepath.Join(dir, "b"))
	assert.False(t, g.Granted())
	g.SetPath(granted)
	assert.True(t, g.Granted())
	assert.Equal(t, granted, g.Path())
}
