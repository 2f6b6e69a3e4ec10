package agentdefs

import (
	"os"
	"path/filepath"
	"testing"
)

func writeAgent(t *testing.T, root, name string, yamlContent, systemMD string) {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "agent.yaml"), []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("write agent.yaml: %v", err)
	}
	if systemMD != "" {
		if err := os.WriteFile(filepath.Join(dir, "system.md"), []byte(systemMD), 0o644); err != nil {
			t.Fatalf("write system.md: %v", err)
		}
	}
}

func TestLoadDirParsesDescriptionToolsModelAndPrompt(t *testing.T) {
	root := t.TempDir()
	writeAgent(t, root, "reviewer", `
description: Reviews pull requests
tools:
  - Read
  - Grep
model: claude-sonnet-4-6
`, "You are a careful code reviewer.\n")

	defs, err := LoadDir(root)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	def, ok := defs["reviewer"]
	if !ok {
		t.Fatal("expected \"reviewer\" agent to be loaded")
	}
	if def.Description != "Reviews pull requests" {
		t.Fatalf("description=%q", def.Description)
	}
	if len(def.Tools) != 2 || def.Tools[0] != "Read" {
		t.Fatalf("tools=%v", def.Tools)
	}
	if def.Model != "claude-sonnet-4-6" {
		t.Fatalf("model=%q", def.Model)
	}
	if def.Prompt != "You are a careful code reviewer." {
		t.Fatalf("prompt=%q", def.Prompt)
	}
}

func TestLoadDirSkipsDirectoriesWithoutAgentYAML(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "scratch"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeAgent(t, root, "planner", "description: Plans work\n", "")

	defs, err := LoadDir(root)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(defs) != 1 {
		t.Fatalf("expected only the agent with agent.yaml to load, got %v", Names(defs))
	}
	if _, ok := defs["planner"]; !ok {
		t.Fatal("expected \"planner\" to be loaded")
	}
}

func TestNamesIsSorted(t *testing.T) {
	root := t.TempDir()
	writeAgent(t, root, "zeta", "description: z\n", "")
	writeAgent(t, root, "alpha", "description: a\n", "")

	defs, err := LoadDir(root)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	names := Names(defs)
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Fatalf("names=%v, want [alpha zeta]", names)
	}
}
