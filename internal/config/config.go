// Package config loads the application-wide defaults tier (tier 3 of the
// four-tier option merge, spec.md §4.A) from a YAML file plus environment
// variables, the way the teacher's own config package layers viper over a
// mapstructure-tagged struct.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/samsaffron/claude-agent-sdk-go/option"
)

const envPrefix = "CLAUDE_SDK"

// AppConfig holds every option-schema field that makes sense as a static,
// file-backed default. Fields that only make sense supplied in code
// (hook callbacks, in-process tool handlers, the permission callback) have
// no home here; they are tier-1/tier-2 only.
type AppConfig struct {
	APIKey             string   `mapstructure:"api_key"`
	Model              string   `mapstructure:"model"`
	FallbackModel      string   `mapstructure:"fallback_model"`
	SystemPrompt       string   `mapstructure:"system_prompt"`
	AppendSystemPrompt string   `mapstructure:"append_system_prompt"`
	MaxTurns           int      `mapstructure:"max_turns"`
	MaxThinkingTokens  int      `mapstructure:"max_thinking_tokens"`
	MaxBudgetUSD       float64  `mapstructure:"max_budget_usd"`
	PermissionMode     string   `mapstructure:"permission_mode"`
	AllowedTools       []string `mapstructure:"allowed_tools"`
	DisallowedTools    []string `mapstructure:"disallowed_tools"`
	AddDir             []string `mapstructure:"add_dir"`
	OutputFormat       string   `mapstructure:"output_format"`
	Settings           string   `mapstructure:"settings"`
	SettingSources     []string `mapstructure:"setting_sources"`
	Betas              []string `mapstructure:"betas"`
	Cwd                string   `mapstructure:"cwd"`
	MaxBufferSizeBytes int      `mapstructure:"max_buffer_size_bytes"`
	TimeoutSeconds     int      `mapstructure:"timeout_seconds"`

	CLIPath struct {
		Mode string `mapstructure:"mode"`
		Path string `mapstructure:"path"`
	} `mapstructure:"cli_path"`
}

// Load reads `<configDir>/config.yaml` (falling back silently to defaults
// if the file is absent) and `CLAUDE_SDK_*` environment variables,
// mirroring `internal/config/config.go`'s `Load` — one viper instance,
// registered defaults, optional file.
func Load(configDir string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configDir != "" {
		v.AddConfigPath(configDir)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func defaults() map[string]any {
	return map[string]any{
		"max_turns":              0,
		"max_buffer_size_bytes":  1024 * 1024,
		"timeout_seconds":        300,
		"output_format":          "stream-json",
		"cli_path.mode":          "bundled",
		"permission_mode":        "default",
	}
}

// DefaultDir returns the XDG config directory for the SDK's own app
// config, following the teacher's GetConfigDir convention.
func DefaultDir() (string, error) {
	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		return filepath.Join(xdgHome, "claude-agent-sdk"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "claude-agent-sdk"), nil
}

// ToOptions converts the loaded app config into a tier-3 option.Options
// value for option.Merge (spec.md §4.A precedence: query > session > app
// config > schema defaults). Zero-valued fields are left unset (nil
// pointer / nil slice) rather than forcing a pointer-to-zero-value, so an
// absent config key with no entry in defaults() never shadows a lower
// tier's default; the keys defaults() registers are always set.
func (c *AppConfig) ToOptions() option.Options {
	var o option.Options
	if c.APIKey != "" {
		o.APIKey = &c.APIKey
	}
	if c.Model != "" {
		o.Model = &c.Model
	}
	if c.FallbackModel != "" {
		o.FallbackModel = &c.FallbackModel
	}
	if c.SystemPrompt != "" {
		o.SystemPrompt = &c.SystemPrompt
	}
	if c.AppendSystemPrompt != "" {
		o.AppendSystemPrompt = &c.AppendSystemPrompt
	}
	if c.MaxTurns != 0 {
		o.MaxTurns = &c.MaxTurns
	}
	if c.MaxThinkingTokens != 0 {
		o.MaxThinkingTokens = &c.MaxThinkingTokens
	}
	if c.MaxBudgetUSD != 0 {
		o.MaxBudgetUSD = &c.MaxBudgetUSD
	}
	if c.PermissionMode != "" {
		mode := option.PermissionMode(c.PermissionMode)
		o.PermissionMode = &mode
	}
	o.AllowedTools = c.AllowedTools
	o.DisallowedTools = c.DisallowedTools
	o.AddDir = c.AddDir
	if c.OutputFormat != "" {
		o.OutputFormat = &c.OutputFormat
	}
	if c.Settings != "" {
		o.Settings = &c.Settings
	}
	o.SettingSources = c.SettingSources
	o.Betas = c.Betas
	if c.Cwd != "" {
		o.Cwd = &c.Cwd
	}
	if c.MaxBufferSizeBytes != 0 {
		o.MaxBufferSize = &c.MaxBufferSizeBytes
	}
	if c.TimeoutSeconds != 0 {
		t := time.Duration(c.TimeoutSeconds) * time.Second
		o.Timeout = &t
	}
	if c.CLIPath.Mode != "" {
		o.CLIPathOpt = &option.CLIPath{Mode: option.CLIPathMode(c.CLIPath.Mode), Path: c.CLIPath.Path}
	}
	return o
}
