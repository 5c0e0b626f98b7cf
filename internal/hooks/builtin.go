package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// ScriptHook runs a shell command with the event JSON on stdin
type ScriptHook struct {
	name        string
	eventTypes  []EventType
	enabled     bool
	command     string
	shell       string
	timeout     time.Duration
	failureMode FailureMode

	mu     sync.Mutex
	output string
}

// NewScriptHook creates a new script hook
func NewScriptHook(cfg HookConfig) (*ScriptHook, error) {
	if strings.TrimSpace(cfg.Command) == "" {
		return nil, fmt.Errorf("hook command required")
	}
	if len(cfg.Events) == 0 {
		return nil, fmt.Errorf("hook %s has no events", cfg.Name)
	}
	mode := cfg.FailureMode
	if mode == "" {
		mode = FailureWarn
	}
	name := cfg.Name
	if name == "" {
		name = cfg.Command
	}
	return &ScriptHook{
		name:        name,
		eventTypes:  cfg.Events,
		enabled:     cfg.Enabled,
		command:     cfg.Command,
		shell:       "/bin/sh",
		timeout:     cfg.Timeout,
		failureMode: mode,
	}, nil
}

func (h *ScriptHook) Name() string             { return h.name }
func (h *ScriptHook) EventTypes() []EventType  { return h.eventTypes }
func (h *ScriptHook) Enabled() bool            { return h.enabled }
func (h *ScriptHook) Timeout() time.Duration   { return h.timeout }
func (h *ScriptHook) FailureMode() FailureMode { return h.failureMode }

func (h *ScriptHook) LastOutput() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.output
}

func (h *ScriptHook) Execute(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	cmd := exec.CommandContext(ctx, h.shell, "-c", h.command)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Env = append(os.Environ(),
		"AIORCH_EVENT="+string(event.Type),
		"AIORCH_SESSION_ID="+event.SessionID,
	)
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	h.mu.Lock()
	h.output = strings.TrimSpace(stdout.String())
	h.mu.Unlock()

	if runErr != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("script timed out after %s", h.timeout)
		}
		return fmt.Errorf("script failed: %w (stderr: %s)", runErr, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// FuncHook adapts a Go function into a hook
type FuncHook struct {
	name       string
	eventTypes []EventType
	fn         func(ctx context.Context, event *Event) error
}

// NewFuncHook registers fn for the given events
func NewFuncHook(name string, fn func(ctx context.Context, event *Event) error, events ...EventType) *FuncHook {
	return &FuncHook{name: name, eventTypes: events, fn: fn}
}

func (h *FuncHook) Name() string            { return h.name }
func (h *FuncHook) EventTypes() []EventType { return h.eventTypes }
func (h *FuncHook) Enabled() bool           { return true }

func (h *FuncHook) Execute(ctx context.Context, event *Event) error {
	return h.fn(ctx, event)
}
