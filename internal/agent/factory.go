package agent

import (
	"time"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/errors"
)

// DefaultConfig returns the built-in invocation settings for t
func DefaultConfig(t Type) Config {
	switch t {
	case TypeCodex:
		return Config{Command: "codex", Timeout: 300 * time.Second, Sandbox: true, FullAuto: true, JSONOutput: true}
	default:
		return Config{Command: "claude", Timeout: 120 * time.Second, Sandbox: true, JSONOutput: true}
	}
}

// Factory builds agents from per-type configuration. Each orchestrator owns
// its own factory, so overrides never leak between sessions.
type Factory struct {
	configs map[Type]Config
}

// NewFactory creates a factory seeded with the built-in defaults
func NewFactory() *Factory {
	f := &Factory{configs: map[Type]Config{}}
	for _, t := range Types() {
		f.configs[t] = DefaultConfig(t)
	}
	return f
}

// Configure replaces the settings used for t
func (f *Factory) Configure(t Type, cfg Config) {
	f.configs[t] = cfg
}

// Config returns the settings used for t
func (f *Factory) Config(t Type) Config {
	if cfg, ok := f.configs[t]; ok {
		return cfg
	}
	return DefaultConfig(t)
}

// Create builds an agent of type t
func (f *Factory) Create(t Type) (Agent, error) {
	switch t {
	case TypeClaude:
		return NewClaude(f.Config(t)), nil
	case TypeCodex:
		return NewCodex(f.Config(t)), nil
	default:
		return nil, errors.NewUnknownAgentError(string(t))
	}
}

// CreatePair builds the master and worker agents
func (f *Factory) CreatePair(master, worker Type) (Agent, Agent, error) {
	m, err := f.Create(master)
	if err != nil {
		return nil, nil, err
	}
	w, err := f.Create(worker)
	if err != nil {
		return nil, nil, err
	}
	return m, w, nil
}

// Available reports which agent CLIs are installed
func (f *Factory) Available() map[Type]bool {
	out := make(map[Type]bool, len(f.configs))
	for _, t := range Types() {
		a, err := f.Create(t)
		out[t] = err == nil && a.IsAvailable()
	}
	return out
}
