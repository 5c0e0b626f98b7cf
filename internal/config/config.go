// Package config holds the orchestrator configuration and its loaders.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/agent"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/errors"
)

// AgentSettings overrides how one agent CLI is invoked
type AgentSettings struct {
	Command        string            `koanf:"command" yaml:"command,omitempty" json:"command,omitempty"`
	TimeoutSeconds int               `koanf:"timeout_seconds" yaml:"timeout_seconds,omitempty" json:"timeout_seconds,omitempty"`
	Sandbox        *bool             `koanf:"sandbox" yaml:"sandbox,omitempty" json:"sandbox,omitempty"`
	FullAuto       *bool             `koanf:"full_auto" yaml:"full_auto,omitempty" json:"full_auto,omitempty"`
	JSONOutput     *bool             `koanf:"json_output" yaml:"json_output,omitempty" json:"json_output,omitempty"`
	Env            map[string]string `koanf:"env" yaml:"env,omitempty" json:"env,omitempty"`
}

// HookSettings declares a script hook fired on orchestrator events
type HookSettings struct {
	Name           string   `koanf:"name" yaml:"name" json:"name"`
	Events         []string `koanf:"events" yaml:"events" json:"events"`
	Command        string   `koanf:"command" yaml:"command" json:"command"`
	TimeoutSeconds int      `koanf:"timeout_seconds" yaml:"timeout_seconds,omitempty" json:"timeout_seconds,omitempty"`
	FailureMode    string   `koanf:"failure_mode" yaml:"failure_mode,omitempty" json:"failure_mode,omitempty"`
}

// Config is the orchestrator configuration
type Config struct {
	MaxIterations         int        `koanf:"max_iterations" yaml:"max_iterations" json:"max_iterations"`
	TimeoutSeconds        int        `koanf:"timeout_seconds" yaml:"timeout_seconds" json:"timeout_seconds"`
	CheckpointInterval    int        `koanf:"checkpoint_interval" yaml:"checkpoint_interval" json:"checkpoint_interval"`
	StrictVerification    bool       `koanf:"strict_verification" yaml:"strict_verification" json:"strict_verification"`
	MaxCorrectionAttempts int        `koanf:"max_correction_attempts" yaml:"max_correction_attempts" json:"max_correction_attempts"`
	MasterAgentType       agent.Type `koanf:"master_agent_type" yaml:"master_agent_type" json:"master_agent_type"`
	WorkerAgentType       agent.Type `koanf:"worker_agent_type" yaml:"worker_agent_type" json:"worker_agent_type"`
	WorkDir               string     `koanf:"work_dir" yaml:"work_dir" json:"work_dir"`
	SessionDir            string     `koanf:"session_dir" yaml:"session_dir" json:"session_dir"`
	GoalFile              string     `koanf:"goal_file" yaml:"goal_file" json:"goal_file"`
	LogLevel              string     `koanf:"log_level" yaml:"log_level" json:"log_level"`
	LogFile               string     `koanf:"log_file" yaml:"log_file,omitempty" json:"log_file,omitempty"`

	RunChecks        bool   `koanf:"run_checks" yaml:"run_checks" json:"run_checks"`
	ValidateCriteria bool   `koanf:"validate_criteria" yaml:"validate_criteria" json:"validate_criteria"`
	Language         string `koanf:"language" yaml:"language" json:"language"`
	TestCommand      string `koanf:"test_command" yaml:"test_command,omitempty" json:"test_command,omitempty"`
	HistoryDB        string `koanf:"history_db" yaml:"history_db" json:"history_db"`
	MetricsFile      string `koanf:"metrics_file" yaml:"metrics_file,omitempty" json:"metrics_file,omitempty"`
	MessageLog       bool   `koanf:"message_log" yaml:"message_log" json:"message_log"`

	Agents map[string]AgentSettings `koanf:"agents" yaml:"agents,omitempty" json:"agents,omitempty"`
	Hooks  []HookSettings           `koanf:"hooks" yaml:"hooks,omitempty" json:"hooks,omitempty"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		MaxIterations:         20,
		TimeoutSeconds:        300,
		CheckpointInterval:    5,
		StrictVerification:    true,
		MaxCorrectionAttempts: 3,
		MasterAgentType:       agent.TypeClaude,
		WorkerAgentType:       agent.TypeCodex,
		WorkDir:               ".",
		SessionDir:            "sessions",
		GoalFile:              "GOAL.txt",
		LogLevel:              "INFO",
		Language:              "python",
		HistoryDB:             "history.db",
	}
}

// Validate reports the first invalid value
func (c *Config) Validate() error {
	switch {
	case c.MaxIterations <= 0:
		return errors.NewConfigInvalidError("max_iterations must be positive")
	case c.CheckpointInterval <= 0:
		return errors.NewConfigInvalidError("checkpoint_interval must be positive")
	case c.MaxCorrectionAttempts < 0:
		return errors.NewConfigInvalidError("max_correction_attempts must not be negative")
	case c.TimeoutSeconds < 0:
		return errors.NewConfigInvalidError("timeout_seconds must not be negative")
	}
	if _, err := agent.ParseType(string(c.MasterAgentType)); err != nil {
		return errors.Wrap(errors.ErrCodeConfigInvalid, "invalid master_agent_type", err)
	}
	if _, err := agent.ParseType(string(c.WorkerAgentType)); err != nil {
		return errors.Wrap(errors.ErrCodeConfigInvalid, "invalid worker_agent_type", err)
	}
	for name := range c.Agents {
		if _, err := agent.ParseType(name); err != nil {
			return errors.Wrap(errors.ErrCodeConfigInvalid, "invalid agents entry", err)
		}
	}
	return nil
}

// SessionPath is the directory holding checkpoints, progress and history
func (c *Config) SessionPath() string {
	return filepath.Join(c.WorkDir, c.SessionDir)
}

// GoalPath is the goal document location
func (c *Config) GoalPath() string {
	if filepath.IsAbs(c.GoalFile) {
		return c.GoalFile
	}
	return filepath.Join(c.WorkDir, c.GoalFile)
}

// HistoryPath is the SQLite history location, or "" when disabled
func (c *Config) HistoryPath() string {
	return c.inSession(c.HistoryDB)
}

// MetricsPath is the metrics textfile location, or "" when disabled
func (c *Config) MetricsPath() string {
	return c.inSession(c.MetricsFile)
}

func (c *Config) inSession(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.SessionPath(), p)
}

// AgentConfig merges the per-type overrides over the built-in defaults
func (c *Config) AgentConfig(t agent.Type) agent.Config {
	cfg := agent.DefaultConfig(t)
	cfg.WorkDir = c.WorkDir
	s, ok := c.Agents[string(t)]
	if !ok {
		return cfg
	}
	if s.Command != "" {
		cfg.Command = s.Command
	}
	if s.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(s.TimeoutSeconds) * time.Second
	}
	if s.Sandbox != nil {
		cfg.Sandbox = *s.Sandbox
	}
	if s.FullAuto != nil {
		cfg.FullAuto = *s.FullAuto
	}
	if s.JSONOutput != nil {
		cfg.JSONOutput = *s.JSONOutput
	}
	if len(s.Env) > 0 {
		cfg.Env = s.Env
	}
	return cfg
}

// ToMap is the configuration persisted into checkpoints. Logging settings are
// process-local and omitted.
func (c *Config) ToMap() map[string]any {
	return map[string]any{
		"max_iterations":          c.MaxIterations,
		"timeout_seconds":         c.TimeoutSeconds,
		"checkpoint_interval":     c.CheckpointInterval,
		"strict_verification":     c.StrictVerification,
		"max_correction_attempts": c.MaxCorrectionAttempts,
		"master_agent_type":       string(c.MasterAgentType),
		"worker_agent_type":       string(c.WorkerAgentType),
		"work_dir":                c.WorkDir,
		"session_dir":             c.SessionDir,
		"goal_file":               c.GoalFile,
		"run_checks":              c.RunChecks,
		"validate_criteria":       c.ValidateCriteria,
	}
}

// FromMap overlays a persisted configuration onto base. Unknown keys are ignored.
func FromMap(base Config, m map[string]any) (Config, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return base, fmt.Errorf("failed to encode config map: %w", err)
	}
	cfg := base
	if err := json.Unmarshal(data, &cfg); err != nil {
		return base, errors.Wrap(errors.ErrCodeConfigInvalid, "invalid persisted config", err)
	}
	if err := cfg.Validate(); err != nil {
		return base, err
	}
	return cfg, nil
}

// Marshal renders the configuration as YAML
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]any{"orchestrator": c}); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes the YAML rendering to path
func (c *Config) Save(path string) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
