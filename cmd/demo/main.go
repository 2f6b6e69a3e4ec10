// Command demo is a minimal terminal client exercising the SDK's public
// surface end to end: it opens a Session over the local adapter, drives a
// bubbletea UI off QueryStream, and renders assistant text as it streams in
// — the same shape as the teacher's own `chat` command, pointed at this
// module's Session instead of its internal/llm providers.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	claudeagent "github.com/samsaffron/claude-agent-sdk-go"
	"github.com/samsaffron/claude-agent-sdk-go/adapter/local"
	"github.com/samsaffron/claude-agent-sdk-go/adapter/local/clibinary"
	"github.com/samsaffron/claude-agent-sdk-go/internal/agentdefs"
	"github.com/samsaffron/claude-agent-sdk-go/internal/config"
	"github.com/samsaffron/claude-agent-sdk-go/option"
)

var (
	modelFlag      string
	systemPrompt   string
	permissionMode string
	agentsDir      string
)

var rootCmd = &cobra.Command{
	Use:   "demo [prompt]",
	Short: "Interactive demo client for claude-agent-sdk-go",
	Long: `demo opens a Session against the local claude CLI and either runs a
prompt given as an argument to completion, runs one prompt per line read
from non-terminal (piped) stdin, or drops into a small streaming chat UI.`,
	Args: cobra.ArbitraryArgs,
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVar(&modelFlag, "model", "", "override the model for this session")
	rootCmd.Flags().StringVar(&systemPrompt, "system-prompt", "", "replace the default system prompt for this session")
	rootCmd.Flags().StringVar(&permissionMode, "permission-mode", "", "default, acceptEdits, bypassPermissions, or plan")
	rootCmd.Flags().StringVar(&agentsDir, "agents-dir", "", "directory of <name>/agent.yaml subagent definitions to load")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// sessionOptions builds the session-level (tier 2) option.Options from
// flags/env, then merges it over the tier-3 app config loaded from
// ~/.config/claude-agent-sdk/config.yaml (or $XDG_CONFIG_HOME), the way
// the teacher's own `chat` command layers its flags over its own config
// file. Missing config is not an error: an unconfigured demo run falls
// back to flags and schema defaults alone.
func sessionOptions() option.Options {
	session := option.Options{}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		session.APIKey = &key
	}
	if modelFlag != "" {
		session.Model = &modelFlag
	}
	if systemPrompt != "" {
		session.SystemPrompt = &systemPrompt
	}
	if permissionMode != "" {
		mode := option.PermissionMode(permissionMode)
		session.PermissionMode = &mode
	}
	if agentsDir != "" {
		if defs, err := agentdefs.LoadDir(agentsDir); err == nil {
			session.Agents = defs
		} else {
			fmt.Fprintf(os.Stderr, "demo: loading --agents-dir %q: %v\n", agentsDir, err)
		}
	}

	appConfig := option.Options{}
	if dir, err := config.DefaultDir(); err == nil {
		if cfg, err := config.Load(dir); err == nil {
			appConfig = cfg.ToOptions()
		}
	}

	return option.Merge(option.Options{}, session, appConfig, option.Options{})
}

// queryOverrides is layered on top of sessionOptions for each individual
// query; the demo doesn't need per-turn overrides, so it's empty, but the
// session engine still merges it per spec.md §4.A's four-tier precedence.
func queryOverrides() option.Options {
	return option.Options{}
}

func run(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cachePath, err := clibinary.DefaultPath()
	var cache *clibinary.Cache
	if err == nil {
		cache, _ = clibinary.Open(cachePath)
	}
	if cache != nil {
		defer cache.Close()
	}

	session, err := claudeagent.New(ctx, local.New(cache), sessionOptions())
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	defer session.Stop(ctx)

	if len(args) > 0 {
		return runOnce(ctx, session, args[0])
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return runPipe(ctx, session)
	}

	m := newModel(session)
	program := tea.NewProgram(m, tea.WithAltScreen())
	_, err = program.Run()
	return err
}

// runOnce drives a single query to completion and prints the assistant's
// final text, for scripting (`demo "summarize this repo"`).
func runOnce(ctx context.Context, session *claudeagent.Session, prompt string) error {
	text, err := session.QuerySync(ctx, prompt, queryOverrides())
	if err != nil {
		return err
	}
	fmt.Println(text)
	return nil
}

// runPipe reads one prompt per line from stdin and prints each turn's
// collected summary, for non-interactive (piped) invocations.
func runPipe(ctx context.Context, session *claudeagent.Session) error {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		stream, err := session.QueryStream(ctx, line, queryOverrides())
		if err != nil {
			return err
		}
		summary := claudeagent.CollectSummary(ctx, stream.Messages(ctx))
		fmt.Println(summary.Text)
	}
	return scanner.Err()
}
