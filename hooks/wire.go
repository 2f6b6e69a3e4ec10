package hooks

import "github.com/samsaffron/claude-agent-sdk-go/option"

// TranslateResult converts a caller's HookResult into the wire-format
// response object per the table in spec.md §4.E.
func TranslateResult(r option.HookResult) map[string]any {
	switch r.Kind {
	case option.ResultAllow:
		return map[string]any{"behavior": "allow"}
	case option.ResultAllowWithInput:
		return map[string]any{"behavior": "allow", "updatedInput": r.UpdatedInput}
	case option.ResultAllowWithPermissions:
		return map[string]any{
			"behavior":           "allow",
			"updatedInput":       r.UpdatedInput,
			"updatedPermissions": r.UpdatedPermissions,
		}
	case option.ResultDeny:
		return map[string]any{"behavior": "deny", "message": r.Message}
	case option.ResultDenyAndInterrupt:
		return map[string]any{"behavior": "deny", "message": r.Message, "interrupt": true}
	case option.ResultContinueWithReason:
		return map[string]any{"continue": false, "stopReason": r.Reason}
	case option.ResultRejectPrompt:
		return map[string]any{"decision": "block", "reason": r.Reason}
	case option.ResultInstructions:
		return map[string]any{"hookSpecificOutput": map[string]any{"customInstructions": r.Instructions}}
	case option.ResultObservationalOK:
		fallthrough
	default:
		return map[string]any{}
	}
}
