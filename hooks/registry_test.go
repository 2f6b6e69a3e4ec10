package hooks

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/samsaffron/claude-agent-sdk-go/option"
	"github.com/samsaffron/claude-agent-sdk-go/protocol"
)

func allowCallback(ctx context.Context, input map[string]any, toolUseID *string) (option.HookResult, error) {
	return option.HookResult{Kind: option.ResultAllow}, nil
}

func TestBuildAssignsSequentialIDs(t *testing.T) {
	events := map[string][]option.HookMatcher{
		"PreToolUse": {
			{Matcher: "Write", Callbacks: []option.HookCallback{allowCallback, allowCallback}},
		},
		"PostToolUse": {
			{Matcher: "", Callbacks: []option.HookCallback{allowCallback}},
		},
	}
	r := Build(events, nil)

	if _, ok := r.Lookup("hook_0"); !ok {
		t.Fatal("expected hook_0 to be registered")
	}
	if _, ok := r.Lookup("hook_2"); !ok {
		t.Fatal("expected hook_2 to be registered (PreToolUse's second callback; PostToolUse sorts first and takes hook_0)")
	}
	if _, ok := r.Lookup("hook_3"); ok {
		t.Fatal("did not expect a fourth callback id")
	}

	wire := r.WireHooks()
	if wire == nil {
		t.Fatal("expected non-nil wire hooks")
	}
	post, ok := wire["PostToolUse"].([]map[string]any)
	if !ok || len(post) != 1 {
		t.Fatalf("expected one PostToolUse matcher entry, got %#v", wire["PostToolUse"])
	}
}

func TestBuildAbsentWhenEmpty(t *testing.T) {
	r := Build(nil, nil)
	if r.WireHooks() != nil {
		t.Fatal("expected absent wire hooks when no hooks or permission callback configured")
	}
	if r.HasPermissionCallback() {
		t.Fatal("expected no permission callback")
	}
}

func TestTranslateResultTable(t *testing.T) {
	cases := []struct {
		name string
		in   option.HookResult
		want string // key expected in the output map
	}{
		{"allow", option.HookResult{Kind: option.ResultAllow}, "behavior"},
		{"deny", option.HookResult{Kind: option.ResultDeny, Message: "no"}, "behavior"},
		{"continue", option.HookResult{Kind: option.ResultContinueWithReason, Reason: "done"}, "continue"},
		{"reject", option.HookResult{Kind: option.ResultRejectPrompt, Reason: "blocked"}, "decision"},
		{"instructions", option.HookResult{Kind: option.ResultInstructions, Instructions: "be careful"}, "hookSpecificOutput"},
		{"observational", option.HookResult{Kind: option.ResultObservationalOK}, ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			out := TranslateResult(c.in)
			if c.want == "" {
				if len(out) != 0 {
					t.Fatalf("expected empty object, got %#v", out)
				}
				return
			}
			if _, ok := out[c.want]; !ok {
				t.Fatalf("expected key %q in %#v", c.want, out)
			}
		})
	}
}

func TestMatchingCallbackIDsGlob(t *testing.T) {
	events := map[string][]option.HookMatcher{
		"PreToolUse": {
			{Matcher: "mcp__*", Callbacks: []option.HookCallback{allowCallback}},
			{Matcher: "", Callbacks: []option.HookCallback{allowCallback}},
		},
	}
	r := Build(events, nil)

	ids := r.MatchingCallbackIDs("PreToolUse", "mcp__filesystem__read")
	if len(ids) != 2 {
		t.Fatalf("expected both the glob match and the match-all matcher, got %v", ids)
	}

	ids = r.MatchingCallbackIDs("PreToolUse", "Bash")
	if len(ids) != 1 {
		t.Fatalf("expected only the match-all matcher for a non-mcp tool, got %v", ids)
	}

	if len(r.MatchingCallbackIDs("PostToolUse", "Bash")) != 0 {
		t.Fatal("expected no matches for an event with no registered matchers")
	}
}

func TestDispatchUnknownCallbackID(t *testing.T) {
	r := Build(nil, nil)
	req := protocol.InboundControlRequest{
		RequestID: "req_1",
		Subtype:   "hook_callback",
		Raw:       json.RawMessage(`{"subtype":"hook_callback","hook_callback_id":"hook_99"}`),
	}
	resp := r.Dispatch(context.Background(), req)
	if resp.Success {
		t.Fatal("expected failure for unknown callback id")
	}
}
