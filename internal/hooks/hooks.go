// Package hooks runs user-defined actions on orchestrator lifecycle events.
package hooks

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// EventType represents the type of lifecycle event
type EventType string

const (
	EventSessionStart      EventType = "session_start"
	EventIterationComplete EventType = "iteration_complete"
	EventGoalAchieved      EventType = "goal_achieved"
	EventSessionFailed     EventType = "session_failed"
	EventSessionPaused     EventType = "session_paused"
	EventRolesSwapped      EventType = "roles_swapped"
)

// EventTypes lists every event the orchestrator fires
func EventTypes() []EventType {
	return []EventType{
		EventSessionStart,
		EventIterationComplete,
		EventGoalAchieved,
		EventSessionFailed,
		EventSessionPaused,
		EventRolesSwapped,
	}
}

// ParseEventType accepts the bare name or the "on_" prefixed form
func ParseEventType(s string) (EventType, error) {
	name := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "on_")
	for _, t := range EventTypes() {
		if string(t) == name {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown hook event %q", s)
}

// Event represents a lifecycle event that can trigger hooks
type Event struct {
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	SessionID string         `json:"session_id"`
	Data      map[string]any `json:"data"`
}

// NewEvent creates a new event
func NewEvent(eventType EventType, sessionID string, data map[string]any) *Event {
	if data == nil {
		data = map[string]any{}
	}
	return &Event{
		Type:      eventType,
		Timestamp: time.Now(),
		SessionID: sessionID,
		Data:      data,
	}
}

// GetString gets a string value from event data
func (e *Event) GetString(key string) string {
	if s, ok := e.Data[key].(string); ok {
		return s
	}
	return ""
}

// GetInt gets an int value from event data
func (e *Event) GetInt(key string) int {
	if i, ok := e.Data[key].(int); ok {
		return i
	}
	return 0
}

// Hook is the interface that all hooks must implement
type Hook interface {
	Name() string
	EventTypes() []EventType
	Execute(ctx context.Context, event *Event) error
	Enabled() bool
}

// FailureMode decides how a failed hook is reported
type FailureMode string

const (
	FailureIgnore FailureMode = "ignore"
	FailureWarn   FailureMode = "warn"
	FailureFail   FailureMode = "fail"
)

// ParseFailureMode defaults to warn for an empty value
func ParseFailureMode(s string) (FailureMode, error) {
	switch m := FailureMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return FailureWarn, nil
	case FailureIgnore, FailureWarn, FailureFail:
		return m, nil
	default:
		return "", fmt.Errorf("invalid failure mode %q (valid: ignore, warn, fail)", s)
	}
}

// HookConfig describes a script hook
type HookConfig struct {
	Name        string
	Events      []EventType
	Command     string
	Timeout     time.Duration
	FailureMode FailureMode
	Enabled     bool
}

// ExecutionResult contains the result of hook execution
type ExecutionResult struct {
	HookName  string        `json:"hook_name"`
	EventType EventType     `json:"event_type"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Output    string        `json:"output,omitempty"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

// DefaultTimeout is the default hook execution timeout
const DefaultTimeout = 30 * time.Second

// timeouter and failureModer are optional hook capabilities
type timeouter interface{ Timeout() time.Duration }

type failureModer interface{ FailureMode() FailureMode }

type outputter interface{ LastOutput() string }
