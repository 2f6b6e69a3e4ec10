package telemetry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Log is the telemetry sink the session engine writes lifecycle events
// to. Implementations must not retain prompt or message content — only
// the metadata captured in RequestRecord.
type Log interface {
	RecordStart(ctx context.Context, rec RequestRecord) error
	RecordEnd(ctx context.Context, id string, status RequestStatus, errorKind string, numTurns, toolUseCount int, totalCostUSD float64) error
	List(ctx context.Context, opts ListOptions) ([]RequestRecord, error)
	Summarize(ctx context.Context, opts ListOptions) (Summary, error)
	Close() error
}

// Config controls whether and where the audit log is persisted.
type Config struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"` // supports ":memory:"
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

func DefaultConfig() Config {
	return Config{Enabled: false, MaxAgeDays: 30}
}

// DefaultDir returns the XDG data directory for the SDK's own telemetry
// database, following the same convention the app-config tier uses for
// its own directory.
func DefaultDir() (string, error) {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "claude-agent-sdk"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "claude-agent-sdk"), nil
}

// ResolveDBPath resolves an optional DB path override, defaulting to
// <DefaultDir>/telemetry.db. ":memory:" is passed through unchanged.
func ResolveDBPath(pathOverride string) (string, error) {
	pathOverride = strings.TrimSpace(pathOverride)
	if pathOverride == ":memory:" {
		return pathOverride, nil
	}
	if pathOverride == "" {
		dir, err := DefaultDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "telemetry.db"), nil
	}
	if strings.HasPrefix(pathOverride, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get home directory: %w", err)
		}
		pathOverride = filepath.Join(home, pathOverride[2:])
	}
	return filepath.Abs(os.ExpandEnv(pathOverride))
}

// NewLog builds a Log from cfg: a no-op sink when telemetry is disabled,
// a SQLite-backed one otherwise.
func NewLog(cfg Config) (Log, error) {
	if !cfg.Enabled {
		return &NoopLog{}, nil
	}
	return NewSQLiteLog(cfg)
}
