package daemon

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1broseidon/screenmask/internal/engine"
	"github.com/1broseidon/screenmask/internal/overlay"
	"github.com/1broseidon/screenmask/internal/rules"
)

type switchGate struct{ granted atomic.Bool }

func (g *switchGate) Granted() bool { return g.granted.Load() }

type staticRules []rules.Rule

func (s staticRules) CurrentRules() []rules.Rule { return s }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestController(t *testing.T, granted bool) (*Controller, *overlay.Recorder, *switchGate) {
	t.Helper()
	gate := &switchGate{}
	gate.granted.Store(granted)
	driver := overlay.NewRecorder()
	e := engine.New(engine.Config{
		Driver: driver,
		Gate:   gate,
		Rules: staticRules{
			{ID: "a", Right: 10, Bottom: 10, Color: 0xFF000000, Enabled: true},
			{ID: "b", Left: 20, Right: 30, Bottom: 10, Color: 0xFF000000, Enabled: true},
		},
		Logger: quietLogger(),
	})
	return NewController(e, gate, quietLogger()), driver, gate
}

func TestControllerLifecycle(t *testing.T) {
	ctl, driver, _ := newTestController(t, true)
	assert.True(t, ctl.Suspended())
	assert.Zero(t, ctl.Uptime())

	_, ok := ctl.Restart("before start")
	assert.False(t, ok, "restart is ignored until started")
	assert.Empty(t, driver.Live())

	out := ctl.Start()
	assert.Equal(t, 2, out.SurfacesCreated)
	assert.False(t, ctl.Suspended())
	assert.Len(t, driver.Live(), 2)

	out, ok = ctl.Restart("rules changed")
	require.True(t, ok)
	assert.Equal(t, 2, out.Cleared)
	assert.Len(t, driver.Live(), 2)

	assert.Equal(t, 2, ctl.Stop())
	assert.Empty(t, driver.Live())
	assert.Equal(t, 0, ctl.Stop())

	_, ok = ctl.Restart("rules changed")
	assert.False(t, ok, "stopped service stays stopped")
	assert.Empty(t, driver.Live())
}

func TestControllerServe(t *testing.T) {
	ctl, driver, _ := newTestController(t, true)
	ctl.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	requests := make(chan string)
	done := make(chan struct{})
	go func() {
		ctl.Serve(ctx, requests)
		close(done)
	}()

	requests <- "test"
	requests <- "test"
	close(requests)
	<-done

	created, destroyed := driver.Counts()
	assert.Equal(t, 6, created)
	assert.Equal(t, 4, destroyed)
	assert.Equal(t, 3, ctl.Status().Activations)
}

func TestPermissionMonitorRestartsOnDrift(t *testing.T) {
	ctl, driver, gate := newTestController(t, true)
	mon := NewPermissionMonitor(MonitorConfig{Logger: quietLogger()}, ctl, gate)

	assert.False(t, mon.CheckNow(), "no activation yet")

	ctl.Start()
	require.Len(t, driver.Live(), 2)
	assert.False(t, mon.CheckNow(), "grant unchanged")

	gate.granted.Store(false)
	assert.True(t, mon.CheckNow())
	assert.Empty(t, driver.Live(), "revoked grant clears masks")
	assert.True(t, ctl.Status().LastOutcome.PermissionDenied)
	assert.False(t, mon.CheckNow(), "already reflected")

	gate.granted.Store(true)
	assert.True(t, mon.CheckNow())
	assert.Len(t, driver.Live(), 2)

	ctl.Stop()
	gate.granted.Store(false)
	assert.False(t, mon.CheckNow(), "stopped service is not polled")
}

func TestPermissionMonitorRun(t *testing.T) {
	ctl, driver, gate := newTestController(t, true)
	ctl.Start()
	mon := NewPermissionMonitor(MonitorConfig{Interval: 10 * time.Millisecond, Logger: quietLogger()}, ctl, gate)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		mon.Run(ctx)
		close(done)
	}()

	gate.granted.Store(false)
	require.Eventually(t, func() bool { return len(driver.Live()) == 0 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done
}

func TestWatcherDebouncesChanges(t *testing.T) {
	dir := t.TempDir()
	rulesPath := filepath.Join(dir, "rules.yaml")
	grantPath := filepath.Join(dir, "overlay-permission")

	w, err := NewWatcher(quietLogger(),
		WatchTarget{Path: rulesPath, Reason: "rules file changed"},
		WatchTarget{Path: grantPath, Reason: "permission file changed"},
	)
	require.NoError(t, err)
	defer w.Close()
	w.debounce = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	requests := make(chan string, 4)
	go w.Run(ctx, requests)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x"), 0644))
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(rulesPath, []byte("rules: []\n"), 0644))
	}

	select {
	case reason := <-requests:
		assert.Equal(t, "rules file changed", reason)
	case <-time.After(3 * time.Second):
		t.Fatal("expected a restart request")
	}

	select {
	case reason := <-requests:
		t.Fatalf("burst should collapse into one request, got extra %q", reason)
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(grantPath, []byte("granted\n"), 0600))
	select {
	case reason := <-requests:
		assert.Equal(t, "permission file changed", reason)
	case <-time.After(3 * time.Second):
		t.Fatal("expected a restart request for the grant file")
	}
}

func TestWatcherCreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "screenmask")
	rulesPath := filepath.Join(dir, "rules.yaml")

	w, err := NewWatcher(quietLogger(), WatchTarget{Path: rulesPath, Reason: "rules file changed"})
	require.NoError(t, err)
	defer w.Close()
	w.debounce = 50 * time.Millisecond

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	requests := make(chan string, 1)
	go w.Run(ctx, requests)

	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(rulesPath, []byte("rules: []\n"), 0644))
	require.NoError(t, os.WriteFile(rulesPath, []byte("rules: []\n"), 0644))

	select {
	case reason := <-requests:
		assert.Equal(t, "rules file changed", reason)
	case <-time.After(3 * time.Second):
		t.Fatal("expected a restart request for a rules file in a new directory")
	}
}

func TestWatcherSkipsUncreatableDirectory(t *testing.T) {
	parent := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(parent, []byte("x"), 0644))

	w, err := NewWatcher(quietLogger(), WatchTarget{Path: filepath.Join(parent, "sub", "rules.yaml"), Reason: "rules file changed"})
	require.NoError(t, err)
	require.NoError(t, w.Close())
}
