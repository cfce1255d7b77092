package config

import (
	"fmt"
)

// Keys lists the top-level config keys in display order.
var Keys = []string{
	"display",
	"rules_file",
	"permission_file",
	"require_permission",
	"watch_rules",
	"permission_poll_seconds",
	"metrics_listen",
	"log_level",
}

// Explain returns the effective value of key and where it came from.
func Explain(res *LoadResult, key string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if key == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, key)
	if err != nil {
		return nil, Source{}, err
	}
	if src, ok := res.Sources[key]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault, Name: "defaults"}, nil
}

func lookupValue(cfg *Config, key string) (any, error) {
	switch key {
	case "display":
		return cfg.Display, nil
	case "rules_file":
		return cfg.RulesFile, nil
	case "permission_file":
		return cfg.PermissionFile, nil
	case "require_permission":
		return cfg.RequirePermission, nil
	case "watch_rules":
		return cfg.WatchRules, nil
	case "permission_poll_seconds":
		return cfg.PermissionPollSeconds, nil
	case "metrics_listen":
		return cfg.MetricsListen, nil
	case "log_level":
		return cfg.LogLevel, nil
	default:
		return nil, fmt.Errorf("unknown path: %s", key)
	}
}
