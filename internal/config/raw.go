package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		// Not present.
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

// RawConfig mirrors Config with optional fields so files can be layered.
type RawConfig struct {
	Include               IncludeList `yaml:"include"`
	Display               *string     `yaml:"display"`
	RulesFile             *string     `yaml:"rules_file"`
	PermissionFile        *string     `yaml:"permission_file"`
	RequirePermission     *bool       `yaml:"require_permission"`
	WatchRules            *bool       `yaml:"watch_rules"`
	PermissionPollSeconds *int        `yaml:"permission_poll_seconds"`
	MetricsListen         *string     `yaml:"metrics_listen"`
	LogLevel              *string     `yaml:"log_level"`

	// paths in this file resolve relative to it
	baseFile string
}

func (c RawConfig) merge(overlay RawConfig) RawConfig {
	out := c

	if overlay.Display != nil {
		out.Display = overlay.Display
	}
	if overlay.RulesFile != nil {
		out.RulesFile = resolvedPtr(overlay.baseFile, overlay.RulesFile)
	}
	if overlay.PermissionFile != nil {
		out.PermissionFile = resolvedPtr(overlay.baseFile, overlay.PermissionFile)
	}
	if overlay.RequirePermission != nil {
		out.RequirePermission = overlay.RequirePermission
	}
	if overlay.WatchRules != nil {
		out.WatchRules = overlay.WatchRules
	}
	if overlay.PermissionPollSeconds != nil {
		out.PermissionPollSeconds = overlay.PermissionPollSeconds
	}
	if overlay.MetricsListen != nil {
		out.MetricsListen = overlay.MetricsListen
	}
	if overlay.LogLevel != nil {
		out.LogLevel = overlay.LogLevel
	}

	return out
}

// resolvedPtr expands "~" and makes path relative to baseFile's directory.
func resolvedPtr(baseFile string, path *string) *string {
	if baseFile == "" || path == nil || *path == "" {
		return path
	}
	resolved, err := resolvePathRelativeToFile(baseFile, *path)
	if err != nil {
		return path
	}
	return &resolved
}
