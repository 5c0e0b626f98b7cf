package agent

import (
	"context"
	"sync"
	"time"
)

// Fake is a scripted Agent. Responses are consumed in order; once the queue
// is empty, Fallback (or a generic success) is returned.
type Fake struct {
	mu        sync.Mutex
	AgentType Type
	Available bool
	Responses []*Response
	Fallback  *Response
	Prompts   []string
	// Handler, when set, produces the response instead of the queue
	Handler func(prompt string) *Response
}

// NewFake creates an available fake of the given type
func NewFake(t Type, responses ...*Response) *Fake {
	return &Fake{AgentType: t, Available: true, Responses: responses}
}

// OK builds a successful response with output
func OK(output string) *Response {
	return &Response{Success: true, Output: output, Metadata: map[string]any{}, Timestamp: time.Now()}
}

func (f *Fake) Type() Type { return f.AgentType }

func (f *Fake) Capabilities() []Capability {
	return []Capability{CapabilityCodeGeneration, CapabilityVerification}
}

func (f *Fake) Execute(_ context.Context, prompt, _ string) *Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Prompts = append(f.Prompts, prompt)
	if f.Handler != nil {
		return f.Handler(prompt)
	}
	if len(f.Responses) > 0 {
		resp := f.Responses[0]
		f.Responses = f.Responses[1:]
		return resp
	}
	if f.Fallback != nil {
		return f.Fallback
	}
	return OK("")
}

func (f *Fake) Analyze(ctx context.Context, subject, question string) string {
	return f.Execute(ctx, subject+"\n"+question, "").Output
}

func (f *Fake) Verify(ctx context.Context, expected, actual string) bool {
	return f.Execute(ctx, expected+"\n"+actual, "").Success
}

func (f *Fake) IsAvailable() bool { return f.Available }

// Calls returns the number of prompts received
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Prompts)
}

// LastPrompt returns the most recent prompt, or ""
func (f *Fake) LastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Prompts) == 0 {
		return ""
	}
	return f.Prompts[len(f.Prompts)-1]
}
