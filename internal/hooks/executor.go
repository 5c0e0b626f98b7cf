package hooks

import (
	"context"
	"fmt"
	"time"
)

// Executor runs the hooks of one event one after another in registration
// order. A failed hook in fail mode stops the remaining hooks of that event.
type Executor struct {
	defaultTimeout time.Duration
}

func NewExecutor() *Executor {
	return &Executor{defaultTimeout: DefaultTimeout}
}

// ExecuteAll returns one result per hook that ran, in order
func (e *Executor) ExecuteAll(ctx context.Context, hooks []Hook, event *Event) []ExecutionResult {
	if len(hooks) == 0 {
		return nil
	}

	results := make([]ExecutionResult, 0, len(hooks))
	for _, h := range hooks {
		result := e.Execute(ctx, h, event)
		results = append(results, result)
		if !result.Success && modeOf(h) == FailureFail {
			break
		}
	}
	return results
}

// Execute runs one hook under its own timeout, or the executor default.
// A panicking hook is reported as a failure.
func (e *Executor) Execute(ctx context.Context, hook Hook, event *Event) (result ExecutionResult) {
	result = ExecutionResult{
		HookName:  hook.Name(),
		EventType: event.Type,
		Timestamp: time.Now(),
	}

	timeout := e.defaultTimeout
	if t, ok := hook.(timeouter); ok && t.Timeout() > 0 {
		timeout = t.Timeout()
	}
	hookCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)
		if r := recover(); r != nil {
			result.Success = false
			result.Error = fmt.Sprintf("hook panicked: %v", r)
		}
	}()

	err := hook.Execute(hookCtx, event)
	if o, ok := hook.(outputter); ok {
		result.Output = o.LastOutput()
	}
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Success = true
	return result
}

// SetDefaultTimeout applies to hooks without their own timeout
func (e *Executor) SetDefaultTimeout(timeout time.Duration) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	e.defaultTimeout = timeout
}
