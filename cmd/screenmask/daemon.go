package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/1broseidon/screenmask/internal/config"
	"github.com/1broseidon/screenmask/internal/daemon"
	"github.com/1broseidon/screenmask/internal/engine"
	"github.com/1broseidon/screenmask/internal/ipc"
	"github.com/1broseidon/screenmask/internal/metrics"
	"github.com/1broseidon/screenmask/internal/overlay"
	"github.com/1broseidon/screenmask/internal/permission"
	"github.com/1broseidon/screenmask/internal/rules"
	"github.com/1broseidon/screenmask/internal/x11"
)

func runDaemon(args []string) int {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	cfgPath := fs.String("config", "", "Config file path (default: ~/.config/screenmask/config.yaml)")
	dryRun := fs.Bool("dry-run", false, "Record masks in memory instead of drawing them")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: screenmask daemon [--config PATH] [--dry-run]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Run the mask daemon in the foreground. Masks are drawn on start and")
		fmt.Fprintln(os.Stderr, "removed on exit.")
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "daemon takes no arguments")
		fs.Usage()
		return 2
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	level := new(slog.LevelVar)
	level.Set(cfg.Level())
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	logger.Info("configuration loaded",
		"rules_file", cfg.RulesFile,
		"require_permission", cfg.RequirePermission,
		"watch_rules", cfg.WatchRules)

	var (
		driver   overlay.Driver
		monitors ipc.MonitorFunc
	)
	if *dryRun {
		driver = overlay.NewRecorder()
		logger.Info("dry run: masks are recorded, not drawn")
	} else {
		conn, err := x11.NewConnection(cfg.Display)
		if err != nil {
			log.Fatalf("Failed to connect to display: %v", err)
		}
		defer conn.Close()

		x11Driver, err := overlay.NewX11Driver(conn)
		if err != nil {
			log.Fatalf("Failed to initialise overlay driver: %v", err)
		}
		driver = x11Driver
		monitors = monitorLister(conn)
	}

	var gate engine.PermissionGate = permission.Static(true)
	fileGate := permission.NewFileGate(cfg.PermissionFile)
	if cfg.RequirePermission {
		gate = fileGate
	}

	store := rules.NewFileStore(cfg.RulesFile, logger)
	m := metrics.New()
	eng := engine.New(engine.Config{
		Driver:  driver,
		Gate:    gate,
		Rules:   store,
		Logger:  logger,
		Metrics: m,
	})
	ctl := daemon.NewController(eng, gate, logger)
	// Masks never outlive the daemon.
	defer ctl.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	restarts := make(chan string, 1)
	watch := &watchLoop{logger: logger, requests: restarts}
	if cfg.WatchRules {
		watch.start(ctx, cfg)
	}
	defer watch.stop()

	var (
		reloadMu  sync.Mutex
		activeCfg = cfg
	)
	reload := func() (string, error) {
		reloadMu.Lock()
		defer reloadMu.Unlock()

		newCfg, err := loadConfig(*cfgPath)
		if err != nil {
			return "", err
		}
		level.Set(newCfg.Level())
		store.SetPath(newCfg.RulesFile)
		fileGate.SetPath(newCfg.PermissionFile)
		if newCfg.RequirePermission != activeCfg.RequirePermission {
			logger.Warn("require_permission changes take effect after a daemon restart")
		}
		if newCfg.MetricsListen != activeCfg.MetricsListen {
			logger.Warn("metrics_listen changes take effect after a daemon restart")
		}
		watch.stop()
		if newCfg.WatchRules {
			watch.start(ctx, newCfg)
		}
		activeCfg = newCfg
		logger.Info("configuration reloaded", "rules_file", newCfg.RulesFile)
		return newCfg.RulesFile, nil
	}

	var metricsSrv *http.Server
	if cfg.MetricsListen != "" {
		metricsSrv = serveMetrics(cfg.MetricsListen, m, logger)
	}

	ctl.Start()

	ipcServer, err := ipc.NewServer(ctl, cfg.RulesFile, reload, monitors, logger)
	if err != nil {
		logger.Error("failed to create IPC server", "error", err)
		return 1
	}
	if err := ipcServer.Start(); err != nil {
		logger.Error("failed to start IPC server", "error", err)
		return 1
	}
	defer ipcServer.Stop()

	go ctl.Serve(ctx, restarts)

	if cfg.RequirePermission && cfg.PermissionPollSeconds > 0 {
		monitor := daemon.NewPermissionMonitor(daemon.MonitorConfig{
			Interval: time.Duration(cfg.PermissionPollSeconds) * time.Second,
			Logger:   logger,
		}, ctl, gate)
		go monitor.Run(ctx)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	logger.Info("screenmask daemon started")
	for sig := range sigCh {
		if sig == syscall.SIGHUP {
			logger.Info("received SIGHUP, reloading config")
			if _, err := reload(); err != nil {
				logger.Error("config reload failed", "error", err)
				continue
			}
			ctl.Restart("SIGHUP")
			continue
		}
		logger.Info("shutting down screenmask daemon", "signal", sig.String())
		break
	}

	cancel()
	if metricsSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer shutdownCancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown", "error", err)
		}
	}
	return 0
}

// watchLoop owns the file watcher so a reload can re-target it.
type watchLoop struct {
	logger   *slog.Logger
	requests chan<- string

	mu      sync.Mutex
	watcher *daemon.Watcher
	cancel  context.CancelFunc
}

func (w *watchLoop) start(parent context.Context, cfg *config.Config) {
	w.mu.Lock()
	defer w.mu.Unlock()

	targets := []daemon.WatchTarget{{Path: cfg.RulesFile, Reason: "rules file changed"}}
	if cfg.RequirePermission {
		targets = append(targets, daemon.WatchTarget{Path: cfg.PermissionFile, Reason: "permission file changed"})
	}
	watcher, err := daemon.NewWatcher(w.logger, targets...)
	if err != nil {
		w.logger.Warn("file watching disabled", "error", err)
		return
	}
	ctx, cancel := context.WithCancel(parent)
	w.watcher = watcher
	w.cancel = cancel
	go watcher.Run(ctx, w.requests)
}

func (w *watchLoop) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	if w.watcher != nil {
		w.watcher.Close()
		w.watcher = nil
	}
}

func serveMetrics(addr string, m *metrics.Metrics, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics endpoint listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}

func monitorLister(conn *x11.Connection) ipc.MonitorFunc {
	return func() ([]ipc.MonitorInfo, error) {
		monitors, err := conn.GetMonitors()
		if err != nil {
			return nil, err
		}
		out := make([]ipc.MonitorInfo, len(monitors))
		for i, mon := range monitors {
			out[i] = ipc.MonitorInfo{
				ID:     mon.ID,
				Name:   mon.Name,
				X:      mon.X,
				Y:      mon.Y,
				Width:  mon.Width,
				Height: mon.Height,
			}
		}
		return out, nil
	}
}
