package option

import "time"

const (
	// DefaultMaxBufferSize is the per-line accumulation cap before the
	// local adapter reports a buffer-overflow error (spec.md §5).
	DefaultMaxBufferSize = 1 << 20 // ~1 MiB

	// DefaultTimeout is the overall per-query deadline (spec.md §5/§7).
	DefaultTimeout = 300 * time.Second

	// ControlTimeout is the fixed outbound control-request deadline
	// (spec.md §4.D/§5); the spec leaves it a constant, not user-tunable
	// (see the Open Questions note).
	ControlTimeout = 30 * time.Second

	// InitializeTimeout gates the provisioning->ready transition.
	InitializeTimeout = 30 * time.Second
)

// schemaEntry is one option spec.md §4.A enumerates, with a doc string for
// introspection/help output.
type schemaEntry struct {
	Name string
	Doc  string
}

// Schema lists every recognized option name with a one-line doc, for
// callers that want to print help. Validate does not consult it.
var Schema = []schemaEntry{
	{"api_key", "Anthropic API key; falls back to ANTHROPIC_API_KEY"},
	{"model", "model name passed via --model"},
	{"fallback_model", "model to retry with on overload"},
	{"system_prompt", "replaces the CLI's default system prompt"},
	{"append_system_prompt", "appended after the default system prompt"},
	{"max_turns", "maximum agent turns for this query"},
	{"max_thinking_tokens", "thinking-token budget"},
	{"max_budget_usd", "abort once this USD spend is reached"},
	{"permission_mode", "default | acceptEdits | bypassPermissions | plan"},
	{"allowed_tools", "comma-joined allow-list"},
	{"disallowed_tools", "comma-joined deny-list"},
	{"tools", "preset marker or explicit tool list"},
	{"add_dir", "extra directories the CLI may access"},
	{"mcp_config", "path to, or inline JSON of, an mcp config"},
	{"mcp_servers", "mapping of MCP server name to config"},
	{"permission_prompt_tool", "external stdio permission-prompt tool name"},
	{"can_use_tool", "in-process permission callback"},
	{"hooks", "event name -> matcher list"},
	{"output_format", "CLI output format override"},
	{"settings", "path to a settings JSON file"},
	{"setting_sources", "which filesystem settings layers to load"},
	{"agents", "named subagent definitions"},
	{"plugins", "local plugin paths to load"},
	{"include_partial_messages", "stream token/delta events"},
	{"resume", "session id to resume"},
	{"fork_session", "fork rather than continue the resumed session"},
	{"continue", "continue the most recent conversation"},
	{"sandbox", "sandbox settings passed through to the CLI"},
	{"betas", "beta feature flags"},
	{"env", "extra environment variables for the child process"},
	{"cwd", "child process working directory"},
	{"cli_path", "bundled | global | explicit path"},
	{"extra_args", "verbatim extra argv, appended last"},
	{"max_buffer_size", "per-line NDJSON accumulation cap"},
	{"timeout", "overall per-query deadline"},
	{"tool_callback", "protocol-layer tool execution hook"},
	{"adapter", "adapter implementation + its config"},
	{"name", "named process identity, for logging"},
}

// KnownOptionNames is Schema projected to just the names, for validation.
func KnownOptionNames() map[string]bool {
	out := make(map[string]bool, len(Schema))
	for _, e := range Schema {
		out[e.Name] = true
	}
	return out
}

// Defaults returns the schema-default tier (tier 4, lowest precedence).
func Defaults() Options {
	mode := PermissionModeDefault
	bufSize := DefaultMaxBufferSize
	timeout := DefaultTimeout
	return Options{
		PermissionMode: &mode,
		MaxBufferSize:  &bufSize,
		Timeout:        &timeout,
		CLIPathOpt:     &CLIPath{Mode: CLIPathBundled},
		SettingSources: nil,
	}
}
