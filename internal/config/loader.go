package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/errors"
)

// EnvPrefix marks environment variables that override file settings
const EnvPrefix = "AIORCH_"

const maxConfigFileSize = 1024 * 1024

// Load reads configuration with this precedence (highest first):
//  1. AIORCH_* environment variables (AIORCH_MAX_ITERATIONS, AIORCH_AGENTS__CODEX__COMMAND)
//  2. the YAML file at path, if path is non-empty and exists
//  3. built-in defaults
//
// A YAML file may nest everything under a top-level `orchestrator:` key.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		if content != nil {
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, errors.Wrap(errors.ErrCodeConfigLoadFailed, fmt.Sprintf("failed to parse config file %s", path), err)
			}
			if k.Exists("orchestrator") {
				k = k.Cut("orchestrator")
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigLoadFailed, "failed to load environment variables", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigLoadFailed, "failed to unmarshal config", err)
	}
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps AIORCH_MAX_ITERATIONS to max_iterations and
// AIORCH_AGENTS__CODEX__COMMAND to agents.codex.command
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

func readConfigFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigLoadFailed, "failed to stat config file", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, errors.New(errors.ErrCodeConfigLoadFailed,
			fmt.Sprintf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize))
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigLoadFailed, "failed to read config file", err)
	}
	return content, nil
}

// applyDefaults fills string settings that were explicitly blanked
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.WorkDir == "" {
		cfg.WorkDir = def.WorkDir
	}
	if cfg.SessionDir == "" {
		cfg.SessionDir = def.SessionDir
	}
	if cfg.GoalFile == "" {
		cfg.GoalFile = def.GoalFile
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
	if cfg.Language == "" {
		cfg.Language = def.Language
	}
}
