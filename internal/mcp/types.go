package mcp

import (
	"github.com/1broseidon/screenmask/internal/engine"
)

// MaskStatusInput is the input for the mask_status tool.
type MaskStatusInput struct{}

// MaskStatusOutput is the output for the mask_status tool.
type MaskStatusOutput struct {
	DaemonRunning     bool            `json:"daemon_running"`
	State             engine.State    `json:"state,omitempty"`
	Suspended         bool            `json:"suspended"`
	LiveSurfaces      int             `json:"live_surfaces"`
	LiveRuleIDs       []string        `json:"live_rule_ids,omitempty"`
	PermissionGranted bool            `json:"permission_granted"`
	LastOutcome       *engine.Outcome `json:"last_outcome,omitempty"`
	Error             string          `json:"error,omitempty"`
}

// ActivateMasksInput is the input for the activate_masks tool.
type ActivateMasksInput struct{}

// ActivateMasksOutput is the output for the activate_masks tool.
type ActivateMasksOutput struct {
	Outcome engine.Outcome `json:"outcome"`
	Summary string         `json:"summary"`
}

// DeactivateMasksInput is the input for the deactivate_masks tool.
type DeactivateMasksInput struct{}

// DeactivateMasksOutput is the output for the deactivate_masks tool.
type DeactivateMasksOutput struct {
	Cleared int `json:"cleared"`
}

// ListRulesInput is the input for the list_rules tool.
type ListRulesInput struct {
	EnabledOnly bool `json:"enabled_only,omitempty" jsonschema:"When true, only return enabled rules"`
}

// RuleInfo describes one rule and whether it would produce a mask.
type RuleInfo struct {
	ID       string `json:"id"`
	Left     int    `json:"left"`
	Top      int    `json:"top"`
	Right    int    `json:"right"`
	Bottom   int    `json:"bottom"`
	Color    string `json:"color"`
	Enabled  bool   `json:"enabled"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Drawable bool   `json:"drawable"`
}

// ListRulesOutput is the output for the list_rules tool.
type ListRulesOutput struct {
	RulesFile string     `json:"rules_file"`
	Rules     []RuleInfo `json:"rules"`
}

// SetRuleEnabledInput is the input for the set_rule_enabled tool.
type SetRuleEnabledInput struct {
	ID      string `json:"id" jsonschema:"required,Rule id to change"`
	Enabled bool   `json:"enabled" jsonschema:"required,New enabled state"`
	Apply   bool   `json:"apply,omitempty" jsonschema:"When true, ask the daemon to re-apply masks immediately instead of waiting for the file watcher"`
}

// SetRuleEnabledOutput is the output for the set_rule_enabled tool.
type SetRuleEnabledOutput struct {
	ID      string          `json:"id"`
	Enabled bool            `json:"enabled"`
	Applied bool            `json:"applied"`
	Outcome *engine.Outcome `json:"outcome,omitempty"`
}
