package option

import (
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gobwas/glob"
)

// ValidationError names the offending option, per spec.md §4.A.
type ValidationError struct {
	Option string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("option %q: %s", e.Option, e.Reason)
}

// Validate checks a merged Options set against the invariants in spec.md
// §3/§4.A: required options present, mutually exclusive pairs absent
// together, and well-formed glob patterns on directory/tool options.
func Validate(o Options) error {
	if o.APIKey == nil || *o.APIKey == "" {
		if os.Getenv("ANTHROPIC_API_KEY") == "" {
			return &ValidationError{"api_key", "required (or set ANTHROPIC_API_KEY)"}
		}
	}

	if o.CanUseTool != nil && o.PermissionPromptTool != nil && *o.PermissionPromptTool != "" {
		return &ValidationError{"can_use_tool/permission_prompt_tool", "mutually exclusive"}
	}

	for _, dir := range o.AddDir {
		if !doublestar.ValidatePattern(dir) {
			return &ValidationError{"add_dir", fmt.Sprintf("invalid glob pattern %q", dir)}
		}
	}

	if o.Tools != nil && o.Tools.Preset != "" && len(o.Tools.List) > 0 {
		return &ValidationError{"tools", "preset and explicit list are mutually exclusive"}
	}

	for _, pattern := range o.AllowedTools {
		if _, err := glob.Compile(pattern); err != nil {
			return &ValidationError{"allowed_tools", fmt.Sprintf("invalid pattern %q: %v", pattern, err)}
		}
	}
	for _, pattern := range o.DisallowedTools {
		if _, err := glob.Compile(pattern); err != nil {
			return &ValidationError{"disallowed_tools", fmt.Sprintf("invalid pattern %q: %v", pattern, err)}
		}
	}
	for event, matchers := range o.Hooks {
		for _, m := range matchers {
			if m.Matcher == "" {
				continue
			}
			if _, err := glob.Compile(m.Matcher); err != nil {
				return &ValidationError{"hooks", fmt.Sprintf("event %q: invalid matcher %q: %v", event, m.Matcher, err)}
			}
		}
	}

	if o.PermissionMode != nil {
		switch *o.PermissionMode {
		case PermissionModeDefault, PermissionModeAcceptEdits, PermissionModeBypassPermissions, PermissionModePlan:
		default:
			return &ValidationError{"permission_mode", fmt.Sprintf("unrecognized mode %q", *o.PermissionMode)}
		}
	}

	if o.MaxBufferSize != nil && *o.MaxBufferSize <= 0 {
		return &ValidationError{"max_buffer_size", "must be positive"}
	}

	if o.Timeout != nil && *o.Timeout <= 0 {
		return &ValidationError{"timeout", "must be positive"}
	}

	return nil
}

// NeedsStdioPermissionPrompt reports whether the command builder must
// inject --permission-prompt-tool stdio (spec.md §4.A: "when can_use_tool
// is set, the builder must inject the CLI flag requesting stdio permission
// prompts").
func NeedsStdioPermissionPrompt(o Options) bool {
	return o.CanUseTool != nil
}
