package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	DefaultPermissionPollSeconds = 5
	appDirName                   = "screenmask"
)

// Config is the effective daemon configuration.
type Config struct {
	// Display is the X11 display to draw on (default: $DISPLAY).
	Display string `yaml:"display,omitempty"`
	// RulesFile holds the mask rules.
	RulesFile string `yaml:"rules_file"`
	// PermissionFile is the overlay grant marker.
	PermissionFile string `yaml:"permission_file"`
	// RequirePermission gates every activation on PermissionFile.
	// When false masks are always allowed.
	RequirePermission bool `yaml:"require_permission"`
	// WatchRules re-applies masks when the rule or permission file changes.
	WatchRules bool `yaml:"watch_rules"`
	// PermissionPollSeconds is how often the daemon re-checks the grant;
	// 0 disables polling.
	PermissionPollSeconds int `yaml:"permission_poll_seconds"`
	// MetricsListen is the address for the Prometheus endpoint (empty = off).
	MetricsListen string `yaml:"metrics_listen,omitempty"`
	LogLevel      string `yaml:"log_level"`
}

func configHome() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appDirName), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", appDirName), nil
}

func DefaultConfig() *Config {
	dir, err := configHome()
	if err != nil {
		// Last resort fallback - use current directory
		dir = "."
	}
	return &Config{
		RulesFile:             filepath.Join(dir, "rules.yaml"),
		PermissionFile:        filepath.Join(dir, "overlay-permission"),
		RequirePermission:     true,
		WatchRules:            true,
		PermissionPollSeconds: DefaultPermissionPollSeconds,
		LogLevel:              "info",
	}
}

// Validate performs strict validation of the effective configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.RulesFile) == "" {
		return &ValidationError{Path: "rules_file", Err: fmt.Errorf("rules_file is required")}
	}
	if c.RequirePermission && strings.TrimSpace(c.PermissionFile) == "" {
		return &ValidationError{Path: "permission_file", Err: fmt.Errorf("permission_file is required when require_permission is true")}
	}
	if c.PermissionPollSeconds < 0 {
		return &ValidationError{Path: "permission_poll_seconds", Err: fmt.Errorf("permission_poll_seconds must be >= 0")}
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return &ValidationError{Path: "log_level", Err: err}
	}
	return nil
}

// ParseLogLevel maps a config level name onto slog.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log_level must be one of: debug, info, warn, error")
	}
}

// Level returns the slog level for LogLevel, defaulting to info.
func (c *Config) Level() slog.Level {
	level, _ := ParseLogLevel(c.LogLevel)
	return level
}
