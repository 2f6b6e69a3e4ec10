package local

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/samsaffron/claude-agent-sdk-go/adapter/local/clibinary"
	"github.com/samsaffron/claude-agent-sdk-go/option"
)

// resolveCacheFreshness bounds how long a cached resolution is trusted
// before the resolver re-probes the binary, mirroring the update checker's
// "don't hammer this every run" interval.
const resolveCacheFreshness = 24 * time.Hour

// ResolveBinary locates the claude executable according to the configured
// CLIPath mode (spec.md §4.H step 1): bundled (a pinned install directory),
// global (PATH and common locations), or an explicit path taken verbatim.
func ResolveBinary(ctx context.Context, cfg option.CLIPath, cache *clibinary.Cache) (string, error) {
	switch cfg.Mode {
	case option.CLIPathExplicit:
		if cfg.Path == "" {
			return "", fmt.Errorf("cli_path: explicit mode requires a path")
		}
		return cfg.Path, nil
	case option.CLIPathGlobal:
		return resolveCached(ctx, "global", cache, resolveGlobal)
	case option.CLIPathBundled, "":
		return resolveCached(ctx, "bundled", cache, resolveBundled)
	default:
		return "", fmt.Errorf("cli_path: unrecognized mode %q", cfg.Mode)
	}
}

func resolveCached(ctx context.Context, mode string, cache *clibinary.Cache, probe func(ctx context.Context) (string, string, error)) (string, error) {
	if cache != nil {
		if r, ok, err := cache.Get(mode); err == nil && ok {
			if time.Since(r.ResolvedAt) < resolveCacheFreshness {
				if _, statErr := os.Stat(r.Path); statErr == nil {
					return r.Path, nil
				}
			}
		}
	}

	path, version, err := probe(ctx)
	if err != nil {
		return "", err
	}
	if cache != nil {
		_ = cache.Put(mode, clibinary.Resolution{Path: path, Version: version, ResolvedAt: time.Now()})
	}
	return path, nil
}

// resolveGlobal walks PATH (via exec.LookPath) and a short list of common
// install locations, same order the CLI's own installer documents.
func resolveGlobal(ctx context.Context) (string, string, error) {
	if p, err := exec.LookPath("claude"); err == nil {
		v, _ := probeVersion(ctx, p)
		return p, v, nil
	}
	home, _ := os.UserHomeDir()
	candidates := []string{
		filepath.Join(home, ".claude", "local", "claude"),
		filepath.Join(home, ".local", "bin", "claude"),
		"/usr/local/bin/claude",
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			v, _ := probeVersion(ctx, c)
			return c, v, nil
		}
	}
	return "", "", fmt.Errorf("claude binary not found on PATH or common install locations")
}

// resolveBundled locates the SDK's own pinned copy of the CLI, installing
// it on first use is out of scope here (spec.md §1 Out of scope: "binary
// installation and version-pinning scaffolding") — this resolver only
// looks in the conventional pinned directory and fails with a clear error
// if nothing is there yet.
func resolveBundled(ctx context.Context) (string, string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", "", fmt.Errorf("resolving home dir for bundled claude: %w", err)
	}
	path := filepath.Join(home, ".claude", "bin", "claude")
	if _, err := os.Stat(path); err != nil {
		return "", "", fmt.Errorf("bundled claude not found at %s: %w", path, err)
	}
	v, _ := probeVersion(ctx, path)
	return path, v, nil
}

func probeVersion(ctx context.Context, path string) (string, error) {
	out, err := exec.CommandContext(ctx, path, "--version").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
