package ipc

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1broseidon/screenmask/internal/daemon"
	"github.com/1broseidon/screenmask/internal/engine"
	"github.com/1broseidon/screenmask/internal/overlay"
	"github.com/1broseidon/screenmask/internal/permission"
	"github.com/1broseidon/screenmask/internal/rules"
)

type fixture struct {
	server *Server
	client *Client
	driver *overlay.Recorder
	ctl    *daemon.Controller
}

func startServer(t *testing.T, reload ReloadFunc, monitors MonitorFunc) *fixture {
	t.Helper()
	dir, err := os.MkdirTemp("", "smipc")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	t.Setenv("SCREENMASK_SOCKET", filepath.Join(dir, "s.sock"))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := rules.NewFileStore(filepath.Join(dir, "rules.yaml"), logger)
	_, err = store.Add(rules.Rule{ID: "top", Right: 100, Bottom: 20, Color: 0xFF000000, Enabled: true})
	require.NoError(t, err)
	_, err = store.Add(rules.Rule{ID: "empty", Left: 5, Right: 5, Bottom: 20, Color: 0xFF000000, Enabled: true})
	require.NoError(t, err)

	driver := overlay.NewRecorder()
	gate := permission.Static(true)
	e := engine.New(engine.Config{Driver: driver, Gate: gate, Rules: store, Logger: logger})
	ctl := daemon.NewController(e, gate, logger)

	srv, err := NewServer(ctl, store.Path(), reload, monitors, logger)
	require.NoError(t, err)
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Stop)

	return &fixture{server: srv, client: NewClient(), driver: driver, ctl: ctl}
}

func TestActivateDeactivateOverSocket(t *testing.T) {
	f := startServer(t, nil, nil)

	st, err := f.client.GetStatus()
	require.NoError(t, err)
	assert.True(t, st.DaemonRunning)
	assert.True(t, st.Suspended)
	assert.Equal(t, engine.StateInactive, st.State)

	out, err := f.client.Activate()
	require.NoError(t, err)
	assert.Equal(t, 1, out.Outcome.SurfacesCreated)
	assert.Equal(t, 1, out.Outcome.RulesSkipped)
	assert.Len(t, f.driver.Live(), 1)

	st, err = f.client.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, engine.StateActive, st.State)
	assert.False(t, st.Suspended)
	assert.Equal(t, []string{"top"}, st.LiveRuleIDs)
	assert.True(t, st.PermissionGranted)
	assert.Equal(t, f.server.rulesFile, st.RulesFile)
	require.NotNil(t, st.LastOutcome)
	assert.Equal(t, 1, st.LastOutcome.SurfacesCreated)

	cleared, err := f.client.Deactivate()
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)
	assert.Empty(t, f.driver.Live())

	cleared, err = f.client.Deactivate()
	require.NoError(t, err)
	assert.Equal(t, 0, cleared)
}

func TestReload(t *testing.T) {
	calls := 0
	f := startServer(t, func() (string, error) {
		calls++
		if calls > 2 {
			return "", errors.New("bad config")
		}
		return "/new/rules.yaml", nil
	}, nil)

	out, err := f.client.Reload()
	require.NoError(t, err)
	assert.True(t, out.Suspended, "reload does not start a stopped service")
	assert.Empty(t, f.driver.Live())

	_, err = f.client.Activate()
	require.NoError(t, err)
	out, err = f.client.Reload()
	require.NoError(t, err)
	assert.False(t, out.Suspended)
	assert.Equal(t, 1, out.Outcome.Cleared)
	assert.Equal(t, 1, out.Outcome.SurfacesCreated)

	st, err := f.client.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, "/new/rules.yaml", st.RulesFile)

	_, err = f.client.Reload()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad config")
}

func TestGetMonitors(t *testing.T) {
	f := startServer(t, nil, nil)
	_, err := f.client.GetMonitors()
	require.Error(t, err)

	f = startServer(t, nil, func() ([]MonitorInfo, error) {
		return []MonitorInfo{{ID: 0, Name: "eDP-1", Width: 1920, Height: 1080}}, nil
	})
	data, err := f.client.GetMonitors()
	require.NoError(t, err)
	require.Len(t, data.Monitors, 1)
	assert.Equal(t, "eDP-1", data.Monitors[0].Name)
}

func TestUnknownAndMalformedRequests(t *testing.T) {
	f := startServer(t, nil, nil)

	send := func(line string) *Response {
		conn, err := net.Dial("unix", f.server.SocketPath())
		require.NoError(t, err)
		defer conn.Close()
		_, err = conn.Write([]byte(line + "\n"))
		require.NoError(t, err)
		data, err := bufio.NewReader(conn).ReadBytes('\n')
		require.NoError(t, err)
		resp, err := parseResponse(data)
		require.NoError(t, err)
		return resp
	}

	resp := send(`{"command":"TILE"}`)
	assert.Equal(t, "ERROR", resp.Status)
	assert.Contains(t, resp.Error, "Unknown command")

	resp = send(`not json`)
	assert.Equal(t, "ERROR", resp.Status)
	assert.Contains(t, resp.Error, "Invalid request")
}

func TestClientWithoutDaemon(t *testing.T) {
	t.Setenv("SCREENMASK_SOCKET", filepath.Join(t.TempDir(), "absent.sock"))
	err := NewClient().Ping()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is the daemon running?")
}
