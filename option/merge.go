package option

// Merge composes the four precedence tiers: query overrides session
// overrides appConfig overrides schema defaults (spec.md §3 "Option set").
// Scalar/pointer fields take the highest-precedence non-nil value.
// Slice- and map-valued fields are all-or-nothing per tier: the highest
// tier that sets a non-nil value wins wholesale, it is never shallow-merged
// with a lower tier (spec.md §9 Open Questions — this SDK documents the
// all-or-nothing choice rather than shallow-merging).
func Merge(query, session, appConfig, schemaDefaults Options) Options {
	out := schemaDefaults
	for _, tier := range []Options{appConfig, session, query} {
		out = overlay(out, tier)
	}
	return out
}

func overlay(base, tier Options) Options {
	if tier.APIKey != nil {
		base.APIKey = tier.APIKey
	}
	if tier.Model != nil {
		base.Model = tier.Model
	}
	if tier.FallbackModel != nil {
		base.FallbackModel = tier.FallbackModel
	}
	if tier.SystemPrompt != nil {
		base.SystemPrompt = tier.SystemPrompt
	}
	if tier.AppendSystemPrompt != nil {
		base.AppendSystemPrompt = tier.AppendSystemPrompt
	}
	if tier.MaxTurns != nil {
		base.MaxTurns = tier.MaxTurns
	}
	if tier.MaxThinkingTokens != nil {
		base.MaxThinkingTokens = tier.MaxThinkingTokens
	}
	if tier.MaxBudgetUSD != nil {
		base.MaxBudgetUSD = tier.MaxBudgetUSD
	}
	if tier.PermissionMode != nil {
		base.PermissionMode = tier.PermissionMode
	}
	if tier.AllowedTools != nil {
		base.AllowedTools = tier.AllowedTools
	}
	if tier.DisallowedTools != nil {
		base.DisallowedTools = tier.DisallowedTools
	}
	if tier.Tools != nil {
		base.Tools = tier.Tools
	}
	if tier.AddDir != nil {
		base.AddDir = tier.AddDir
	}
	if tier.MCPConfig != nil {
		base.MCPConfig = tier.MCPConfig
	}
	if tier.MCPServers != nil {
		base.MCPServers = tier.MCPServers
	}
	if tier.PermissionPromptTool != nil {
		base.PermissionPromptTool = tier.PermissionPromptTool
	}
	if tier.CanUseTool != nil {
		base.CanUseTool = tier.CanUseTool
	}
	if tier.Hooks != nil {
		base.Hooks = tier.Hooks
	}
	if tier.OutputFormat != nil {
		base.OutputFormat = tier.OutputFormat
	}
	if tier.Settings != nil {
		base.Settings = tier.Settings
	}
	if tier.SettingSources != nil {
		base.SettingSources = tier.SettingSources
	}
	if tier.Agents != nil {
		base.Agents = tier.Agents
	}
	if tier.Plugins != nil {
		base.Plugins = tier.Plugins
	}
	if tier.IncludePartialMessages != nil {
		base.IncludePartialMessages = tier.IncludePartialMessages
	}
	if tier.Resume != nil {
		base.Resume = tier.Resume
	}
	if tier.ForkSession != nil {
		base.ForkSession = tier.ForkSession
	}
	if tier.Continue != nil {
		base.Continue = tier.Continue
	}
	if tier.Sandbox != nil {
		base.Sandbox = tier.Sandbox
	}
	if tier.Betas != nil {
		base.Betas = tier.Betas
	}
	if tier.Env != nil {
		base.Env = tier.Env
	}
	if tier.Cwd != nil {
		base.Cwd = tier.Cwd
	}
	if tier.CLIPathOpt != nil {
		base.CLIPathOpt = tier.CLIPathOpt
	}
	if tier.ExtraArgs != nil {
		base.ExtraArgs = tier.ExtraArgs
	}
	if tier.MaxBufferSize != nil {
		base.MaxBufferSize = tier.MaxBufferSize
	}
	if tier.Timeout != nil {
		base.Timeout = tier.Timeout
	}
	if tier.ToolCallback != nil {
		base.ToolCallback = tier.ToolCallback
	}
	if tier.Adapter != nil {
		base.Adapter = tier.Adapter
	}
	if tier.Name != nil {
		base.Name = tier.Name
	}
	return base
}
