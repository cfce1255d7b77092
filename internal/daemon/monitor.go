package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/1broseidon/screenmask/internal/engine"
)

// MonitorConfig holds configuration for the permission monitor.
type MonitorConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// PermissionMonitor periodically re-checks the permission gate and restarts
// the masks when the grant no longer matches the last activation.
type PermissionMonitor struct {
	interval time.Duration
	ctl      *Controller
	gate     engine.PermissionGate
	logger   *slog.Logger
}

// NewPermissionMonitor creates a monitor for ctl. A non-positive interval
// defaults to five seconds.
func NewPermissionMonitor(cfg MonitorConfig, ctl *Controller, gate engine.PermissionGate) *PermissionMonitor {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &PermissionMonitor{
		interval: interval,
		ctl:      ctl,
		gate:     gate,
		logger:   logger,
	}
}

// Run starts the polling loop. Blocks until context is cancelled.
func (m *PermissionMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("permission monitor started", "interval", m.interval)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("permission monitor stopped")
			return
		case <-ticker.C:
			m.check()
		}
	}
}

// CheckNow performs one pass immediately and reports whether it restarted.
func (m *PermissionMonitor) CheckNow() bool {
	return m.check()
}

func (m *PermissionMonitor) check() (restarted bool) {
	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			m.logger.Error("permission monitor panic recovered", "error", err)
			restarted = false
		}
	}()

	if m.ctl.Suspended() {
		return false
	}
	last := m.ctl.Status().LastOutcome
	if last == nil {
		return false
	}

	// No drift while the grant still matches the last activation.
	granted := m.gate.Granted()
	if granted == !last.PermissionDenied {
		return false
	}

	reason := "overlay permission granted"
	if !granted {
		reason = "overlay permission revoked"
	}
	_, restarted = m.ctl.Restart(reason)
	return restarted
}
