package cliargs

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/samsaffron/claude-agent-sdk-go/option"
)

func contains(args []string, flag, value string) bool {
	for i, a := range args {
		if a == flag && i+1 < len(args) && args[i+1] == value {
			return true
		}
	}
	return false
}

func hasFlag(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}

func TestBuildAlwaysIncludesStreamJSONMode(t *testing.T) {
	args, err := Build(option.Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !contains(args, "--input-format", "stream-json") {
		t.Fatalf("args=%v, missing --input-format stream-json", args)
	}
	if !contains(args, "--output-format", "stream-json") {
		t.Fatalf("args=%v, missing --output-format stream-json", args)
	}
	if !hasFlag(args, "--verbose") {
		t.Fatalf("args=%v, missing --verbose", args)
	}
}

func TestBuildModelAndTurns(t *testing.T) {
	model := "claude-sonnet-4-6"
	maxTurns := 5
	args, err := Build(option.Options{Model: &model, MaxTurns: &maxTurns})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !contains(args, "--model", "claude-sonnet-4-6") {
		t.Fatalf("args=%v", args)
	}
	if !contains(args, "--max-turns", "5") {
		t.Fatalf("args=%v", args)
	}
}

func TestBuildToolsPresetVsList(t *testing.T) {
	args, err := Build(option.Options{Tools: &option.ToolsConfig{Preset: "default"}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !contains(args, "--tools", "default") {
		t.Fatalf("preset args=%v", args)
	}

	args, err = Build(option.Options{Tools: &option.ToolsConfig{List: []string{"Read", "Bash"}}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !contains(args, "--tools", "Read,Bash") {
		t.Fatalf("list args=%v", args)
	}
}

func TestBuildAllowedAndDisallowedTools(t *testing.T) {
	args, err := Build(option.Options{
		AllowedTools:    []string{"Read", "Grep"},
		DisallowedTools: []string{"Bash"},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !contains(args, "--allowed-tools", "Read,Grep") {
		t.Fatalf("args=%v", args)
	}
	if !contains(args, "--disallowed-tools", "Bash") {
		t.Fatalf("args=%v", args)
	}
}

func TestBuildAddDirRepeatsFlag(t *testing.T) {
	args, err := Build(option.Options{AddDir: []string{"/a", "/b"}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	count := 0
	for i, a := range args {
		if a == "--add-dir" {
			count++
			if i+1 >= len(args) {
				t.Fatalf("--add-dir with no following value")
			}
		}
	}
	if count != 2 {
		t.Fatalf("expected --add-dir twice, got %d in %v", count, args)
	}
}

func TestBuildMCPServersEncodesSDKAndSubprocessEntries(t *testing.T) {
	args, err := Build(option.Options{
		MCPServers: map[string]option.MCPServerConfig{
			"local-tools": {Tools: []option.ToolDefinition{{Name: "ping"}}},
			"proc":        {Command: "some-server", Args: []string{"--flag"}},
		},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	var flagValue string
	for i, a := range args {
		if a == "--mcp-config" && i+1 < len(args) {
			flagValue = args[i+1]
		}
	}
	if flagValue == "" {
		t.Fatalf("expected a --mcp-config flag, got %v", args)
	}

	var wrapped struct {
		MCPServers map[string]json.RawMessage `json:"mcpServers"`
	}
	if err := json.Unmarshal([]byte(flagValue), &wrapped); err != nil {
		t.Fatalf("unmarshal mcp-config: %v", err)
	}

	var sdkSpec struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(wrapped.MCPServers["local-tools"], &sdkSpec); err != nil {
		t.Fatalf("unmarshal sdk server: %v", err)
	}
	if sdkSpec.Type != "sdk" || sdkSpec.Name != "local-tools" {
		t.Fatalf("sdk spec=%+v", sdkSpec)
	}

	var procSpec struct {
		Command string   `json:"command"`
		Args    []string `json:"args"`
	}
	if err := json.Unmarshal(wrapped.MCPServers["proc"], &procSpec); err != nil {
		t.Fatalf("unmarshal subprocess server: %v", err)
	}
	if procSpec.Command != "some-server" || len(procSpec.Args) != 1 {
		t.Fatalf("proc spec=%+v", procSpec)
	}
}

func TestSDKServerNamesIsSortedAndFiltersSubprocesses(t *testing.T) {
	servers := map[string]option.MCPServerConfig{
		"zeta":  {Tools: []option.ToolDefinition{{Name: "a"}}},
		"alpha": {Tools: []option.ToolDefinition{{Name: "b"}}},
		"proc":  {Command: "foo"},
	}
	names := SDKServerNames(servers)
	if strings.Join(names, ",") != "alpha,zeta" {
		t.Fatalf("names=%v, want [alpha zeta]", names)
	}
}

func TestBuildSandboxEncodesAsJSON(t *testing.T) {
	args, err := Build(option.Options{Sandbox: map[string]any{"enabled": true}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	var flagValue string
	for i, a := range args {
		if a == "--sandbox" && i+1 < len(args) {
			flagValue = args[i+1]
		}
	}
	if flagValue == "" {
		t.Fatalf("expected --sandbox flag, got %v", args)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(flagValue), &decoded); err != nil {
		t.Fatalf("unmarshal sandbox: %v", err)
	}
	if decoded["enabled"] != true {
		t.Fatalf("sandbox=%v", decoded)
	}
}

func TestBuildExtraArgsAreAppendedLast(t *testing.T) {
	args, err := Build(option.Options{ExtraArgs: []string{"--custom-flag", "value"}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if args[len(args)-2] != "--custom-flag" || args[len(args)-1] != "value" {
		t.Fatalf("args=%v, expected extra args at the end", args)
	}
}
