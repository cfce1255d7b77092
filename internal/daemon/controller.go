package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/1broseidon/screenmask/internal/engine"
)

// Controller is the host lifecycle around the engine. Start and Stop mirror
// the service being brought up or torn down; Restart re-applies the rules
// while the service is up.
type Controller struct {
	engine *engine.Engine
	gate   engine.PermissionGate
	logger *slog.Logger

	mu        sync.Mutex
	suspended bool
	started   time.Time
}

// NewController wraps e. The controller starts suspended until Start.
func NewController(e *engine.Engine, gate engine.PermissionGate, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		engine:    e,
		gate:      gate,
		logger:    logger,
		suspended: true,
	}
}

// Start brings masks up and lifts a previous Stop.
func (c *Controller) Start() engine.Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.suspended {
		c.started = time.Now()
	}
	c.suspended = false
	out := c.engine.Activate()
	if out.PermissionDenied {
		c.logger.Warn("mask service started without overlay permission; grant it with 'screenmask permission grant'")
	} else {
		c.logger.Info("mask service started", "rules", out.RulesSeen, "enabled", out.RulesEnabled)
	}
	return out
}

// Restart re-runs a full activation. It is a no-op while stopped, so file
// changes and permission polling never resurrect masks the user turned off.
func (c *Controller) Restart(reason string) (engine.Outcome, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.suspended {
		c.logger.Debug("restart ignored while stopped", "reason", reason)
		return engine.Outcome{}, false
	}
	c.logger.Info("restarting masks", "reason", reason)
	return c.engine.Activate(), true
}

// Stop removes every mask and suspends restarts. Safe to call repeatedly.
func (c *Controller) Stop() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.suspended = true
	n := c.engine.Deactivate()
	c.logger.Info("mask service stopped", "cleared", n)
	return n
}

// Suspended reports whether the service is stopped.
func (c *Controller) Suspended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.suspended
}

// Uptime is the time since the last Start, or zero while stopped.
func (c *Controller) Uptime() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.suspended || c.started.IsZero() {
		return 0
	}
	return time.Since(c.started)
}

func (c *Controller) Status() engine.Status {
	return c.engine.Status()
}

func (c *Controller) LiveRuleIDs() []string {
	return c.engine.LiveRuleIDs()
}

func (c *Controller) PermissionGranted() bool {
	return c.gate.Granted()
}

// Serve restarts the engine for every reason received on requests until ctx
// is done or requests is closed.
func (c *Controller) Serve(ctx context.Context, requests <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case reason, ok := <-requests:
			if !ok {
				return
			}
			c.Restart(reason)
		}
	}
}
