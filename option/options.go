// Package option declares the recognized query/session options, their
// types and defaults, and the four-tier precedence merge described in the
// option schema & validator component.
package option

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
)

// PermissionMode mirrors the CLI's documented permission modes.
type PermissionMode string

const (
	PermissionModeDefault           PermissionMode = "default"
	PermissionModeAcceptEdits       PermissionMode = "acceptEdits"
	PermissionModeBypassPermissions PermissionMode = "bypassPermissions"
	PermissionModePlan              PermissionMode = "plan"
)

// CLIPathMode selects how the local adapter resolves the claude binary.
type CLIPathMode string

const (
	CLIPathBundled  CLIPathMode = "bundled"
	CLIPathGlobal   CLIPathMode = "global"
	CLIPathExplicit CLIPathMode = "explicit"
)

// CLIPath configures binary resolution (spec.md §4.H step 1 / §6).
type CLIPath struct {
	Mode CLIPathMode
	Path string // only meaningful when Mode == CLIPathExplicit
}

// ToolsConfig selects either a named preset or an explicit tool list.
type ToolsConfig struct {
	Preset string
	List   []string
}

// ToolCallResult is what a ToolHandler returns; exactly one of Text or
// Structured should be set, or IsError with Text holding the message.
type ToolCallResult struct {
	Text       string
	Structured any
	IsError    bool
}

// ToolHandler executes an in-process ("sdk") tool call.
type ToolHandler func(ctx context.Context, input json.RawMessage) (ToolCallResult, error)

// ToolDefinition describes one tool exposed by an in-process ("sdk") MCP
// server (spec.md §4.F). InputSchema is a JSON-Schema object supplied with
// the definition; mcprouter emits it unchanged as inputSchema in
// tools/list and derives no schema itself.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
	Handler     ToolHandler
}

// MCPServerConfig is one entry of the mcp_servers mapping. A server is
// either a subprocess (Command set), an HTTP server (URL set), or an
// in-process "sdk" server (Tools set); exactly one transport should be
// populated.
type MCPServerConfig struct {
	Command string
	Args    []string
	Env     map[string]string

	URL     string
	Headers map[string]string

	Tools []ToolDefinition
}

// IsSDK reports whether this entry is an in-process tool server, which the
// command builder emits as {"type":"sdk","name":<key>} instead of a
// subprocess/HTTP spec (spec.md §4.B).
func (c MCPServerConfig) IsSDK() bool { return len(c.Tools) > 0 }

// HookMatcher is one matcher entry for a hook event, as supplied by the
// caller before the hook registry assigns wire ids (spec.md §4.E).
type HookMatcher struct {
	Matcher   string // glob pattern over tool name; "" matches everything
	Callbacks []HookCallback
	Timeout   time.Duration
}

// HookCallback is invoked for PreToolUse/PostToolUse/... events, and for
// the can_use_tool permission gate. Observational events ignore everything
// in the returned HookResult but its Kind.
type HookCallback func(ctx context.Context, input map[string]any, toolUseID *string) (HookResult, error)

// HookResultKind is the small sum type hook/permission callbacks return.
type HookResultKind int

const (
	ResultAllow HookResultKind = iota
	ResultAllowWithInput
	ResultAllowWithPermissions
	ResultDeny
	ResultDenyAndInterrupt
	ResultObservationalOK
	ResultContinueWithReason
	ResultRejectPrompt
	ResultInstructions
)

// HookResult is the translated, wire-agnostic return value of a hook or
// permission callback (spec.md §4.E table).
type HookResult struct {
	Kind               HookResultKind
	UpdatedInput       map[string]any
	UpdatedPermissions any
	Message            string
	Reason             string
	Instructions       string
}

// AgentDefinition describes one named subagent sent in the initialize
// handshake.
type AgentDefinition struct {
	Description string
	Prompt      string
	Tools       []string
	Model       string
}

// PluginConfig references a plugin the CLI should load.
type PluginConfig struct {
	Path string
}

// AdapterConfig names which adapter implementation to use and its
// transport-specific configuration. The zero value selects the local
// subprocess adapter.
type AdapterConfig struct {
	Name   string // "local" (default), "remote", "test"
	Config map[string]any
}

// Options is a flat, partially-populated option set for one of the four
// precedence tiers (query, session, app config, schema defaults). Pointer
// fields distinguish "not set at this tier" from a deliberate zero value;
// slice/map fields are all-or-nothing per tier (see Merge).
type Options struct {
	APIKey             *string
	Model              *string
	FallbackModel      *string
	SystemPrompt       *string
	AppendSystemPrompt *string
	MaxTurns           *int
	MaxThinkingTokens  *int
	MaxBudgetUSD       *float64
	PermissionMode     *PermissionMode

	AllowedTools    []string
	DisallowedTools []string
	Tools           *ToolsConfig
	AddDir          []string

	MCPConfig  *string
	MCPServers map[string]MCPServerConfig

	PermissionPromptTool *string
	CanUseTool           HookCallback
	Hooks                map[string][]HookMatcher

	OutputFormat           *string
	Settings               *string
	SettingSources         []string
	Agents                 map[string]AgentDefinition
	Plugins                []PluginConfig
	IncludePartialMessages *bool
	Resume                 *string
	ForkSession            *bool
	Continue               *bool
	Sandbox                map[string]any
	Betas                  []string
	Env                    map[string]string
	Cwd                    *string
	CLIPathOpt             *CLIPath
	ExtraArgs              []string
	MaxBufferSize          *int
	Timeout                *time.Duration
	ToolCallback           HookCallback
	Adapter                *AdapterConfig
	Name                   *string
}
