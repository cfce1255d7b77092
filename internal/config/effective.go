package config

import (
	"fmt"
)

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// BuildEffectiveConfig applies raw over the defaults.
func BuildEffectiveConfig(raw RawConfig) (*Config, error) {
	cfg := DefaultConfig()

	if raw.Display != nil {
		cfg.Display = *raw.Display
	}
	if raw.RulesFile != nil {
		cfg.RulesFile = *raw.RulesFile
	}
	if raw.PermissionFile != nil {
		cfg.PermissionFile = *raw.PermissionFile
	}
	if raw.RequirePermission != nil {
		cfg.RequirePermission = *raw.RequirePermission
	}
	if raw.WatchRules != nil {
		cfg.WatchRules = *raw.WatchRules
	}
	if raw.PermissionPollSeconds != nil {
		cfg.PermissionPollSeconds = *raw.PermissionPollSeconds
	}
	if raw.MetricsListen != nil {
		cfg.MetricsListen = *raw.MetricsListen
	}
	if raw.LogLevel != nil {
		cfg.LogLevel = *raw.LogLevel
	}

	return cfg, nil
}
