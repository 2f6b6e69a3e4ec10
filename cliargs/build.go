// Package cliargs translates a validated option.Options into the argv the
// local adapter execs and the JSON shape of an mcp_servers flag value
// (spec.md §4.B).
package cliargs

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/samsaffron/claude-agent-sdk-go/option"
)

// Build converts validated options into the CLI's argument vector. The CLI
// is always invoked in bidirectional stream-json mode; queries are
// submitted on stdin once the process is running, never as argv.
func Build(o option.Options) ([]string, error) {
	args := []string{
		"--input-format", "stream-json",
		"--output-format", "stream-json",
		"--verbose",
	}

	if o.Model != nil && *o.Model != "" {
		args = append(args, "--model", *o.Model)
	}
	if o.FallbackModel != nil && *o.FallbackModel != "" {
		args = append(args, "--fallback-model", *o.FallbackModel)
	}
	if o.SystemPrompt != nil && *o.SystemPrompt != "" {
		args = append(args, "--system-prompt", *o.SystemPrompt)
	}
	if o.AppendSystemPrompt != nil && *o.AppendSystemPrompt != "" {
		args = append(args, "--append-system-prompt", *o.AppendSystemPrompt)
	}
	if o.MaxTurns != nil {
		args = append(args, "--max-turns", strconv.Itoa(*o.MaxTurns))
	}
	if o.MaxThinkingTokens != nil {
		args = append(args, "--max-thinking-tokens", strconv.Itoa(*o.MaxThinkingTokens))
	}
	if o.MaxBudgetUSD != nil {
		args = append(args, "--max-budget-usd", strconv.FormatFloat(*o.MaxBudgetUSD, 'f', -1, 64))
	}
	if o.PermissionMode != nil && *o.PermissionMode != "" {
		args = append(args, "--permission-mode", string(*o.PermissionMode))
	}
	if len(o.AllowedTools) > 0 {
		args = append(args, "--allowed-tools", strings.Join(o.AllowedTools, ","))
	}
	if len(o.DisallowedTools) > 0 {
		args = append(args, "--disallowed-tools", strings.Join(o.DisallowedTools, ","))
	}
	if o.Tools != nil {
		switch {
		case o.Tools.Preset != "":
			args = append(args, "--tools", o.Tools.Preset)
		case len(o.Tools.List) > 0:
			args = append(args, "--tools", strings.Join(o.Tools.List, ","))
		}
	}
	for _, dir := range o.AddDir {
		args = append(args, "--add-dir", dir)
	}
	if o.MCPConfig != nil && *o.MCPConfig != "" {
		args = append(args, "--mcp-config", *o.MCPConfig)
	}
	if len(o.MCPServers) > 0 {
		flagValue, err := MCPServersJSON(o.MCPServers)
		if err != nil {
			return nil, fmt.Errorf("encoding mcp_servers: %w", err)
		}
		args = append(args, "--mcp-config", flagValue)
	}
	// can_use_tool and permission_prompt_tool are mutually exclusive
	// (enforced by option.Validate); only one of these two fires.
	if o.PermissionPromptTool != nil && *o.PermissionPromptTool != "" {
		args = append(args, "--permission-prompt-tool", *o.PermissionPromptTool)
	}
	if option.NeedsStdioPermissionPrompt(o) {
		args = append(args, "--permission-prompt-tool", "stdio")
	}
	if o.OutputFormat != nil && *o.OutputFormat != "" {
		args = append(args, "--output-format", *o.OutputFormat)
	}
	if o.Settings != nil && *o.Settings != "" {
		args = append(args, "--settings", *o.Settings)
	}
	if len(o.SettingSources) > 0 {
		args = append(args, "--setting-sources", strings.Join(o.SettingSources, ","))
	}
	if len(o.Plugins) > 0 {
		for _, p := range o.Plugins {
			args = append(args, "--plugin", p.Path)
		}
	}
	if o.IncludePartialMessages != nil && *o.IncludePartialMessages {
		args = append(args, "--include-partial-messages")
	}
	if o.Resume != nil && *o.Resume != "" {
		args = append(args, "--resume", *o.Resume)
	}
	if o.ForkSession != nil && *o.ForkSession {
		args = append(args, "--fork-session")
	}
	if o.Continue != nil && *o.Continue {
		args = append(args, "--continue")
	}
	if len(o.Betas) > 0 {
		args = append(args, "--betas", strings.Join(o.Betas, ","))
	}
	if o.Cwd != nil && *o.Cwd != "" {
		args = append(args, "--cwd", *o.Cwd)
	}
	if o.Sandbox != nil {
		sandboxJSON, err := json.Marshal(o.Sandbox)
		if err != nil {
			return nil, fmt.Errorf("encoding sandbox: %w", err)
		}
		args = append(args, "--sandbox", string(sandboxJSON))
	}

	// agents, hooks, can_use_tool content never become flags — they ride
	// the initialize handshake instead (spec.md §4.B/§6).
	// tool_callback, timeout, max_buffer_size, cli_path, adapter, name,
	// and api_key (when passed via env) are likewise protocol/process-layer
	// only and produce no flags.

	args = append(args, o.ExtraArgs...)
	return args, nil
}

// sdkServerSpec is the wire shape for an in-process tool server declared
// in mcp_servers (spec.md §4.B).
type sdkServerSpec struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type subprocessServerSpec struct {
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// MCPServersJSON renders the --mcp-config flag value: a single JSON object
// {"mcpServers": {...}} whose inner object is keyed by server name, where
// in-process servers are represented as
// {"type":"sdk","name":<key>} so the CLI routes calls back through the
// control protocol instead of spawning a subprocess.
func MCPServersJSON(servers map[string]option.MCPServerConfig) (string, error) {
	out := make(map[string]any, len(servers))
	for name, cfg := range servers {
		if cfg.IsSDK() {
			out[name] = sdkServerSpec{Type: "sdk", Name: name}
			continue
		}
		out[name] = subprocessServerSpec{
			Command: cfg.Command,
			Args:    cfg.Args,
			Env:     cfg.Env,
			URL:     cfg.URL,
			Headers: cfg.Headers,
		}
	}
	wrapped := map[string]any{"mcpServers": out}
	b, err := json.Marshal(wrapped)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// SDKServerNames returns, in sorted order, the mcp_servers keys that are
// in-process tool sets (the same entries mcprouter.NewRouter indexes).
func SDKServerNames(servers map[string]option.MCPServerConfig) []string {
	names := make([]string, 0, len(servers))
	for name, cfg := range servers {
		if cfg.IsSDK() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
