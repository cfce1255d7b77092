package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/1broseidon/screenmask/internal/metrics"
	"github.com/1broseidon/screenmask/internal/overlay"
	"github.com/1broseidon/screenmask/internal/rules"
)

// RuleSource supplies the current rule snapshot, in order.
type RuleSource interface {
	CurrentRules() []rules.Rule
}

// PermissionGate reports whether masks may be drawn right now.
type PermissionGate interface {
	Granted() bool
}

// State is the engine lifecycle state.
type State string

const (
	StateInactive State = "inactive"
	StateActive   State = "active"
)

// Outcome summarises one activation.
type Outcome struct {
	PermissionDenied bool     `json:"permission_denied"`
	Cleared          int      `json:"cleared"`
	RulesSeen        int      `json:"rules_seen"`
	RulesEnabled     int      `json:"rules_enabled"`
	RulesSkipped     int      `json:"rules_skipped"`
	SurfacesCreated  int      `json:"surfaces_created"`
	SurfacesFailed   int      `json:"surfaces_failed"`
	FailedRuleIDs    []string `json:"failed_rule_ids,omitempty"`
}

func (o Outcome) String() string {
	if o.PermissionDenied {
		return fmt.Sprintf("inactive: no permission (cleared=%d)", o.Cleared)
	}
	return fmt.Sprintf("active: rules=%d enabled=%d skipped=%d created=%d failed=%d cleared=%d",
		o.RulesSeen, o.RulesEnabled, o.RulesSkipped, o.SurfacesCreated, o.SurfacesFailed, o.Cleared)
}

// Status is a read-only view of the engine.
type Status struct {
	State         State     `json:"state"`
	LiveSurfaces  int       `json:"live_surfaces"`
	Activations   int       `json:"activations"`
	LastActivated time.Time `json:"last_activated,omitempty"`
	LastOutcome   *Outcome  `json:"last_outcome,omitempty"`
}

// Config wires the engine's collaborators. Driver, Gate and Rules are
// required; Metrics and Logger are optional.
type Config struct {
	Driver  overlay.Driver
	Gate    PermissionGate
	Rules   RuleSource
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

type surface struct {
	ruleID string
	handle overlay.Handle
}

// Engine owns the live set of mask surfaces and reconciles it against the
// rule snapshot. All operations are serialized.
type Engine struct {
	driver  overlay.Driver
	gate    PermissionGate
	rules   RuleSource
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu            sync.Mutex
	live          []surface
	state         State
	activations   int
	lastActivated time.Time
	lastOutcome   *Outcome
}

// New creates an inactive engine. It panics if a required collaborator is
// missing.
func New(cfg Config) *Engine {
	switch {
	case cfg.Driver == nil:
		panic("engine: Config.Driver is required")
	case cfg.Gate == nil:
		panic("engine: Config.Gate is required")
	case cfg.Rules == nil:
		panic("engine: Config.Rules is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		driver:  cfg.Driver,
		gate:    cfg.Gate,
		rules:   cfg.Rules,
		logger:  logger,
		metrics: cfg.Metrics,
		state:   StateInactive,
	}
}

// Activate clears every live surface, then, if permission is granted,
// creates one surface per enabled rule with a non-empty extent. Per-rule
// failures are logged and counted, never returned.
func (e *Engine) Activate() Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	out := Outcome{Cleared: e.clearLocked()}

	if !e.gate.Granted() {
		out.PermissionDenied = true
		e.logger.Warn("overlay permission not granted, masks stay hidden")
		e.finishLocked(StateInactive, out, start)
		return out
	}

	snapshot := e.rules.CurrentRules()
	enabled := rules.Enabled(snapshot)
	out.RulesSeen = len(snapshot)
	out.RulesEnabled = len(enabled)

	for _, rule := range enabled {
		geom, ok := rule.Geometry()
		if !ok {
			width, height := rule.Size()
			e.logger.Debug("skip rule with empty geometry",
				"rule", rule.ID,
				"rect", fmt.Sprintf("(%d,%d,%d,%d)", rule.Left, rule.Top, rule.Right, rule.Bottom),
				"width", width,
				"height", height)
			out.RulesSkipped++
			continue
		}

		h, err := e.driver.Create(overlay.SpecFor(geom, rule.Color))
		if err != nil {
			e.logger.Error("failed to create mask surface", "rule", rule.ID, "error", err)
			out.SurfacesFailed++
			out.FailedRuleIDs = append(out.FailedRuleIDs, rule.ID)
			continue
		}

		e.logger.Debug("mask surface created",
			"rule", rule.ID,
			"x", geom.X,
			"y", geom.Y,
			"width", geom.Width,
			"height", geom.Height,
			"color", rule.Color.String())
		e.live = append(e.live, surface{ruleID: rule.ID, handle: h})
		out.SurfacesCreated++
	}

	e.finishLocked(StateActive, out, start)
	e.logger.Info("masks reconciled",
		"rules", out.RulesSeen,
		"enabled", out.RulesEnabled,
		"skipped", out.RulesSkipped,
		"created", out.SurfacesCreated,
		"failed", out.SurfacesFailed)
	return out
}

// Deactivate destroys every live surface and returns how many were
// released. Safe to call repeatedly and before any Activate.
func (e *Engine) Deactivate() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := e.clearLocked()
	e.state = StateInactive
	e.metrics.SetLive(0)
	if n > 0 {
		e.logger.Info("masks cleared", "surfaces", n)
	}
	return n
}

// Status returns a snapshot of the engine state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := Status{
		State:         e.state,
		LiveSurfaces:  len(e.live),
		Activations:   e.activations,
		LastActivated: e.lastActivated,
	}
	if e.lastOutcome != nil {
		o := *e.lastOutcome
		o.FailedRuleIDs = append([]string(nil), e.lastOutcome.FailedRuleIDs...)
		st.LastOutcome = &o
	}
	return st
}

// LiveRuleIDs returns the rule ids of the live surfaces, in creation order.
func (e *Engine) LiveRuleIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := make([]string, len(e.live))
	for i, s := range e.live {
		ids[i] = s.ruleID
	}
	return ids
}

// clearLocked destroys every tracked surface. Failures are logged and the
// handle is dropped regardless; the live set is always empty afterwards.
func (e *Engine) clearLocked() int {
	n := len(e.live)
	for _, s := range e.live {
		err := e.driver.Destroy(s.handle)
		switch {
		case err == nil:
		case errors.Is(err, overlay.ErrSurfaceGone):
			e.logger.Debug("mask surface already gone", "rule", s.ruleID, "handle", uint32(s.handle))
		default:
			e.metrics.RecordDestroyError()
			e.logger.Warn("failed to destroy mask surface", "rule", s.ruleID, "handle", uint32(s.handle), "error", err)
		}
	}
	e.live = nil
	return n
}

func (e *Engine) finishLocked(state State, out Outcome, start time.Time) {
	e.state = state
	e.activations++
	e.lastActivated = start
	o := out
	o.FailedRuleIDs = append([]string(nil), out.FailedRuleIDs...)
	e.lastOutcome = &o

	e.metrics.SetLive(len(e.live))
	e.metrics.RecordActivation(metrics.Activation{
		Denied:   out.PermissionDenied,
		Created:  out.SurfacesCreated,
		Failed:   out.SurfacesFailed,
		Skipped:  out.RulesSkipped,
		Duration: time.Since(start),
	})
}
