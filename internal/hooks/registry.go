package hooks

import (
	"context"
	"fmt"
	"sync"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/log"
)

// Registry manages hooks and their lifecycle
type Registry struct {
	mu       sync.RWMutex
	hooks    map[EventType][]Hook
	executor *Executor
	logger   *log.Logger
}

// NewRegistry creates a new hook registry
func NewRegistry() *Registry {
	return &Registry{
		hooks:    make(map[EventType][]Hook),
		executor: NewExecutor(),
		logger:   log.Nop(),
	}
}

// FromConfigs builds a registry of script hooks
func FromConfigs(configs []HookConfig) (*Registry, error) {
	r := NewRegistry()
	for _, cfg := range configs {
		hook, err := NewScriptHook(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create hook %s: %w", cfg.Name, err)
		}
		if err := r.Register(hook); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) SetLogger(logger *log.Logger) {
	if logger == nil {
		logger = log.Nop()
	}
	r.mu.Lock()
	r.logger = logger
	r.mu.Unlock()
}

// Register adds a hook to the registry. Disabled hooks are skipped.
func (r *Registry) Register(hook Hook) error {
	if hook == nil {
		return fmt.Errorf("hook cannot be nil")
	}
	if !hook.Enabled() {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, eventType := range hook.EventTypes() {
		r.hooks[eventType] = append(r.hooks[eventType], hook)
	}
	return nil
}

// Unregister removes a hook from all event types
func (r *Registry) Unregister(hookName string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for eventType, hooks := range r.hooks {
		filtered := make([]Hook, 0, len(hooks))
		for _, hook := range hooks {
			if hook.Name() != hookName {
				filtered = append(filtered, hook)
			}
		}
		r.hooks[eventType] = filtered
	}
}

// Trigger executes all hooks registered for the event and reports failures
// according to each hook's failure mode. A nil registry is a no-op.
func (r *Registry) Trigger(ctx context.Context, event *Event) []ExecutionResult {
	if r == nil || event == nil {
		return nil
	}
	r.mu.RLock()
	hooks := append([]Hook(nil), r.hooks[event.Type]...)
	logger := r.logger
	r.mu.RUnlock()

	if len(hooks) == 0 {
		return nil
	}

	results := r.executor.ExecuteAll(ctx, hooks, event)
	for i, result := range results {
		report(logger, modeOf(hooks[i]), result)
	}
	return results
}

// Hooks returns a copy of the hooks for an event type
func (r *Registry) Hooks(eventType EventType) []Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Hook(nil), r.hooks[eventType]...)
}

// Count returns the number of distinct registered hooks
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	for _, hooks := range r.hooks {
		for _, hook := range hooks {
			seen[hook.Name()] = true
		}
	}
	return len(seen)
}

// HasHooksFor checks if there are any hooks registered for an event type
func (r *Registry) HasHooksFor(eventType EventType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hooks[eventType]) > 0
}

func modeOf(h Hook) FailureMode {
	if fm, ok := h.(failureModer); ok && fm.FailureMode() != "" {
		return fm.FailureMode()
	}
	return FailureWarn
}

// report logs a failed result. A failing hook never aborts the session; in
// fail mode it is logged as an error and the event's later hooks are skipped.
func report(logger *log.Logger, mode FailureMode, result ExecutionResult) {
	if result.Success {
		logger.Debug("hook executed", "hook", result.HookName, "event", result.EventType, "duration", result.Duration)
		return
	}
	args := []any{"hook", result.HookName, "event", result.EventType, "error", result.Error, "duration", result.Duration}
	switch mode {
	case FailureIgnore:
		logger.Debug("hook failed", args...)
	case FailureFail:
		logger.Error("hook failed", args...)
	default:
		logger.Warn("hook failed", args...)
	}
}
