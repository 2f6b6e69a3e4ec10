package option

import (
	"context"
	"os"
	"testing"
	"time"
)

func noopCanUseTool(ctx context.Context, input map[string]any, toolUseID *string) (HookResult, error) {
	return HookResult{Kind: ResultAllow}, nil
}

func TestValidateRequiresAPIKeyUnlessEnvSet(t *testing.T) {
	os.Unsetenv("ANTHROPIC_API_KEY")
	err := Validate(Options{})
	if err == nil {
		t.Fatal("expected an error when api_key is unset and ANTHROPIC_API_KEY is unset")
	}
	if ve, ok := err.(*ValidationError); !ok || ve.Option != "api_key" {
		t.Fatalf("err=%v, want a ValidationError on api_key", err)
	}
}

func TestValidateAcceptsAPIKeyFromEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	if err := Validate(Options{}); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateCanUseToolAndPermissionPromptToolAreMutuallyExclusive(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	tool := "stdio-tool"
	err := Validate(Options{
		CanUseTool:           noopCanUseTool,
		PermissionPromptTool: &tool,
	})
	if err == nil {
		t.Fatal("expected an error when can_use_tool and permission_prompt_tool are both set")
	}
	if ve, ok := err.(*ValidationError); !ok || ve.Option != "can_use_tool/permission_prompt_tool" {
		t.Fatalf("err=%v, want a ValidationError on can_use_tool/permission_prompt_tool", err)
	}
}

func TestValidateToolsPresetAndListAreMutuallyExclusive(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	err := Validate(Options{Tools: &ToolsConfig{Preset: "default", List: []string{"Read"}}})
	if err == nil {
		t.Fatal("expected an error when both tools.preset and tools.list are set")
	}
	if ve, ok := err.(*ValidationError); !ok || ve.Option != "tools" {
		t.Fatalf("err=%v, want a ValidationError on tools", err)
	}
}

func TestValidateRejectsInvalidAddDirGlob(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	err := Validate(Options{AddDir: []string{"[invalid"}})
	if err == nil {
		t.Fatal("expected an error for a malformed add_dir glob")
	}
}

func TestValidateAcceptsDoublestarAddDirPatterns(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	err := Validate(Options{AddDir: []string{"src/**/*.go", "/abs/path"}})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejectsInvalidToolGlobPattern(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	err := Validate(Options{AllowedTools: []string{"mcp__["}})
	if err == nil {
		t.Fatal("expected an error for a malformed allowed_tools glob")
	}
}

func TestValidateRejectsInvalidHookMatcherGlob(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	err := Validate(Options{
		Hooks: map[string][]HookMatcher{
			"PreToolUse": {{Matcher: "mcp__["}},
		},
	})
	if err == nil {
		t.Fatal("expected an error for a malformed hook matcher glob")
	}
}

func TestValidateEmptyHookMatcherMeansMatchAll(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	err := Validate(Options{
		Hooks: map[string][]HookMatcher{
			"PreToolUse": {{Matcher: ""}},
		},
	})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejectsUnrecognizedPermissionMode(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	mode := PermissionMode("not-a-real-mode")
	err := Validate(Options{PermissionMode: &mode})
	if err == nil {
		t.Fatal("expected an error for an unrecognized permission_mode")
	}
}

func TestValidateRejectsNonPositiveMaxBufferSizeAndTimeout(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	zero := 0
	if err := Validate(Options{MaxBufferSize: &zero}); err == nil {
		t.Fatal("expected an error for max_buffer_size <= 0")
	}
	zeroDur := time.Duration(0)
	if err := Validate(Options{Timeout: &zeroDur}); err == nil {
		t.Fatal("expected an error for timeout <= 0")
	}
}

func TestNeedsStdioPermissionPromptOnlyWhenCanUseToolSet(t *testing.T) {
	if NeedsStdioPermissionPrompt(Options{}) {
		t.Fatal("expected false when can_use_tool is unset")
	}
	opts := Options{CanUseTool: noopCanUseTool}
	if !NeedsStdioPermissionPrompt(opts) {
		t.Fatal("expected true when can_use_tool is set")
	}
}
