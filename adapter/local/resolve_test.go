package local

import (
	"context"
	"testing"

	"github.com/samsaffron/claude-agent-sdk-go/option"
)

func TestResolveBinaryExplicitModeReturnsPathVerbatim(t *testing.T) {
	path, err := ResolveBinary(context.Background(), option.CLIPath{Mode: option.CLIPathExplicit, Path: "/opt/claude/claude"}, nil)
	if err != nil {
		t.Fatalf("ResolveBinary: %v", err)
	}
	if path != "/opt/claude/claude" {
		t.Fatalf("path=%q", path)
	}
}

func TestResolveBinaryExplicitModeRequiresPath(t *testing.T) {
	_, err := ResolveBinary(context.Background(), option.CLIPath{Mode: option.CLIPathExplicit}, nil)
	if err == nil {
		t.Fatal("expected an error when explicit mode has no path")
	}
}

func TestResolveBinaryRejectsUnrecognizedMode(t *testing.T) {
	_, err := ResolveBinary(context.Background(), option.CLIPath{Mode: "made-up"}, nil)
	if err == nil {
		t.Fatal("expected an error for an unrecognized cli_path mode")
	}
}
