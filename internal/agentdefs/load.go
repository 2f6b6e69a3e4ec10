// Package agentdefs loads named subagent definitions (spec.md §4.A
// "Agents map[string]AgentDefinition") from a directory of YAML files,
// the way the teacher's internal/agents package loads its own chat
// agents: one directory per agent, an agent.yaml for metadata plus an
// optional system.md for the prompt body.
package agentdefs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/samsaffron/claude-agent-sdk-go/option"
)

// definitionFile is the on-disk shape of agent.yaml. It is deliberately
// narrower than option.AgentDefinition's in-memory shape has no slot
// for — prompt text lives in system.md, not inline in the YAML, mirroring
// the teacher's own convention.
type definitionFile struct {
	Description string   `yaml:"description"`
	Tools       []string `yaml:"tools,omitempty"`
	Model       string   `yaml:"model,omitempty"`
}

// LoadDir reads every subdirectory of dir containing an agent.yaml into
// an option.AgentDefinition, keyed by directory name. A directory
// without agent.yaml is silently skipped, so a definitions directory can
// freely contain scratch files alongside agent subdirectories.
func LoadDir(dir string) (map[string]option.AgentDefinition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read agent definitions dir: %w", err)
	}

	defs := make(map[string]option.AgentDefinition)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		def, err := loadOne(filepath.Join(dir, name))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("agent %q: %w", name, err)
		}
		defs[name] = def
	}
	return defs, nil
}

func loadOne(agentDir string) (option.AgentDefinition, error) {
	yamlPath := filepath.Join(agentDir, "agent.yaml")
	raw, err := os.ReadFile(yamlPath)
	if err != nil {
		return option.AgentDefinition{}, err
	}

	var df definitionFile
	if err := yaml.Unmarshal(raw, &df); err != nil {
		return option.AgentDefinition{}, fmt.Errorf("parse agent.yaml: %w", err)
	}

	def := option.AgentDefinition{
		Description: df.Description,
		Tools:       df.Tools,
		Model:       df.Model,
	}

	promptPath := filepath.Join(agentDir, "system.md")
	if promptBytes, err := os.ReadFile(promptPath); err == nil {
		def.Prompt = strings.TrimSpace(string(promptBytes))
	} else if !os.IsNotExist(err) {
		return option.AgentDefinition{}, fmt.Errorf("read system.md: %w", err)
	}

	return def, nil
}

// Names returns the agent names in defs, sorted — used when rendering a
// deterministic listing (e.g. a CLI `agents list` command).
func Names(defs map[string]option.AgentDefinition) []string {
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
