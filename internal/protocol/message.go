// Package protocol defines the messages exchanged between master and worker
// and their JSON and markdown encodings.
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Type discriminates message payloads
type Type string

const (
	TypeRequest      Type = "request"
	TypeResponse     Type = "response"
	TypeError        Type = "error"
	TypeStatus       Type = "status"
	TypeHeartbeat    Type = "heartbeat"
	TypeDecision     Type = "decision"
	TypeVerification Type = "verification"
)

// Types lists every message type
func Types() []Type {
	return []Type{TypeRequest, TypeResponse, TypeError, TypeStatus, TypeHeartbeat, TypeDecision, TypeVerification}
}

// ParseType parses a message type case-insensitively
func ParseType(s string) (Type, bool) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Types() {
		if t == known {
			return t, true
		}
	}
	return "", false
}

// Priority orders messages; errors default to high
type Priority int

const (
	PriorityLow      Priority = 1
	PriorityNormal   Priority = 2
	PriorityHigh     Priority = 3
	PriorityCritical Priority = 4
)

// Header is the envelope every message carries
type Header struct {
	Type          Type           `json:"type"`
	ID            string         `json:"id"`
	Timestamp     time.Time      `json:"timestamp"`
	Sender        string         `json:"sender"`
	Recipient     string         `json:"recipient"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Priority      Priority       `json:"priority"`
	Metadata      map[string]any `json:"metadata"`
}

// Request asks the worker to implement something
type Request struct {
	Instruction     string   `json:"instruction"`
	Context         string   `json:"context"`
	ExpectedOutcome string   `json:"expected_outcome"`
	Constraints     []string `json:"constraints"`
	FilesToModify   []string `json:"files_to_modify"`
	FilesToCreate   []string `json:"files_to_create"`
	TimeoutSeconds  int      `json:"timeout_seconds"`
	RetryCount      int      `json:"retry_count"`
}

// Response reports the worker's result
type Response struct {
	Success       bool     `json:"success"`
	Output        string   `json:"output"`
	FilesModified []string `json:"files_modified"`
	FilesCreated  []string `json:"files_created"`
	FilesDeleted  []string `json:"files_deleted"`
	Error         string   `json:"error,omitempty"`
	ExitCode      int      `json:"exit_code"`
	ExecutionTime float64  `json:"execution_time"`
}

// Error reports a failure
type Error struct {
	Code        string `json:"error_code"`
	Message     string `json:"error_message"`
	StackTrace  string `json:"stack_trace,omitempty"`
	Recoverable bool   `json:"recoverable"`
}

// Status is a progress update
type Status struct {
	Status             string   `json:"status"`
	Progress           float64  `json:"progress"`
	CurrentTask        string   `json:"current_task"`
	TasksCompleted     int      `json:"tasks_completed"`
	TasksTotal         int      `json:"tasks_total"`
	EstimatedRemaining *float64 `json:"estimated_remaining"`
}

// Decision is the master's verdict for an iteration
type Decision struct {
	DecisionType    string `json:"decision_type"`
	Instruction     string `json:"instruction"`
	Reason          string `json:"reason"`
	ExpectedOutcome string `json:"expected_outcome"`
}

// Verification is the verdict on an implementation
type Verification struct {
	Passed      bool     `json:"passed"`
	Score       float64  `json:"score"`
	Issues      []string `json:"issues"`
	Suggestions []string `json:"suggestions"`
}

// Message is an envelope plus exactly one payload matching Header.Type.
// Heartbeats carry no payload.
type Message struct {
	Header
	Request      *Request
	Response     *Response
	Error        *Error
	Status       *Status
	Decision     *Decision
	Verification *Verification
}

func newHeader(t Type, sender, recipient string) Header {
	p := PriorityNormal
	if t == TypeError {
		p = PriorityHigh
	}
	return Header{
		Type:      t,
		ID:        NewID(),
		Timestamp: time.Now(),
		Sender:    sender,
		Recipient: recipient,
		Priority:  p,
		Metadata:  map[string]any{},
	}
}

// NewID returns a short random message id
func NewID() string {
	return uuid.New().String()[:8]
}

func NewRequest(sender, recipient string, r Request) *Message {
	if r.TimeoutSeconds == 0 {
		r.TimeoutSeconds = 300
	}
	r.Constraints = orEmpty(r.Constraints)
	r.FilesToModify = orEmpty(r.FilesToModify)
	r.FilesToCreate = orEmpty(r.FilesToCreate)
	return &Message{Header: newHeader(TypeRequest, sender, recipient), Request: &r}
}

// NewResponse links the response to the request it answers via correlationID
func NewResponse(sender, recipient, correlationID string, r Response) *Message {
	r.FilesModified = orEmpty(r.FilesModified)
	r.FilesCreated = orEmpty(r.FilesCreated)
	r.FilesDeleted = orEmpty(r.FilesDeleted)
	m := &Message{Header: newHeader(TypeResponse, sender, recipient), Response: &r}
	m.CorrelationID = correlationID
	return m
}

// NewError always has high priority
func NewError(sender, code, message string, recoverable bool) *Message {
	return &Message{
		Header: newHeader(TypeError, sender, ""),
		Error:  &Error{Code: code, Message: message, Recoverable: recoverable},
	}
}

func NewStatus(sender string, s Status) *Message {
	return &Message{Header: newHeader(TypeStatus, sender, ""), Status: &s}
}

func NewDecision(sender, recipient string, d Decision) *Message {
	return &Message{Header: newHeader(TypeDecision, sender, recipient), Decision: &d}
}

func NewVerification(sender, recipient string, v Verification) *Message {
	v.Issues = orEmpty(v.Issues)
	v.Suggestions = orEmpty(v.Suggestions)
	return &Message{Header: newHeader(TypeVerification, sender, recipient), Verification: &v}
}

func NewHeartbeat(sender string) *Message {
	return &Message{Header: newHeader(TypeHeartbeat, sender, "")}
}

// payload returns the set payload, or nil for a heartbeat
func (m *Message) payload() any {
	switch m.Type {
	case TypeRequest:
		return m.Request
	case TypeResponse:
		return m.Response
	case TypeError:
		return m.Error
	case TypeStatus:
		return m.Status
	case TypeDecision:
		return m.Decision
	case TypeVerification:
		return m.Verification
	}
	return nil
}

// Validate checks that exactly the payload matching the type is set
func (m *Message) Validate() error {
	if _, ok := ParseType(string(m.Type)); !ok {
		return fmt.Errorf("unknown message type %q", m.Type)
	}
	if m.ID == "" {
		return fmt.Errorf("message has no id")
	}

	set := 0
	for _, p := range []bool{
		m.Request != nil, m.Response != nil, m.Error != nil,
		m.Status != nil, m.Decision != nil, m.Verification != nil,
	} {
		if p {
			set++
		}
	}

	if m.Type == TypeHeartbeat {
		if set != 0 {
			return fmt.Errorf("heartbeat must not carry a payload")
		}
		return nil
	}
	if set != 1 || isNilPayload(m.payload()) {
		return fmt.Errorf("%s message must carry exactly one %s payload", m.Type, m.Type)
	}
	return nil
}

func isNilPayload(p any) bool {
	switch v := p.(type) {
	case *Request:
		return v == nil
	case *Response:
		return v == nil
	case *Error:
		return v == nil
	case *Status:
		return v == nil
	case *Decision:
		return v == nil
	case *Verification:
		return v == nil
	}
	return true
}

type header Header

// MarshalJSON writes the envelope and payload fields as one flat object
func (m *Message) MarshalJSON() ([]byte, error) {
	h := header(m.Header)
	if h.Metadata == nil {
		h.Metadata = map[string]any{}
	}
	switch m.Type {
	case TypeRequest:
		return json.Marshal(struct {
			header
			*Request
		}{h, m.Request})
	case TypeResponse:
		return json.Marshal(struct {
			header
			*Response
		}{h, m.Response})
	case TypeError:
		return json.Marshal(struct {
			header
			*Error
		}{h, m.Error})
	case TypeStatus:
		return json.Marshal(struct {
			header
			*Status
		}{h, m.Status})
	case TypeDecision:
		return json.Marshal(struct {
			header
			*Decision
		}{h, m.Decision})
	case TypeVerification:
		return json.Marshal(struct {
			header
			*Verification
		}{h, m.Verification})
	default:
		return json.Marshal(h)
	}
}

// UnmarshalJSON dispatches on the type field. A missing priority defaults
// to normal, or high for errors.
func (m *Message) UnmarshalJSON(data []byte) error {
	var probe struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.Type == nil {
		return errMissingType
	}
	t, ok := ParseType(*probe.Type)
	if !ok {
		return fmt.Errorf("%w: %s", errUnknownType, *probe.Type)
	}

	h := header{Priority: PriorityNormal}
	if t == TypeError {
		h.Priority = PriorityHigh
	}

	var err error
	out := Message{}
	switch t {
	case TypeRequest:
		out.Request = &Request{}
		err = json.Unmarshal(data, &struct {
			*header
			*Request
		}{&h, out.Request})
	case TypeResponse:
		out.Response = &Response{}
		err = json.Unmarshal(data, &struct {
			*header
			*Response
		}{&h, out.Response})
	case TypeError:
		out.Error = &Error{Recoverable: true}
		err = json.Unmarshal(data, &struct {
			*header
			*Error
		}{&h, out.Error})
	case TypeStatus:
		out.Status = &Status{}
		err = json.Unmarshal(data, &struct {
			*header
			*Status
		}{&h, out.Status})
	case TypeDecision:
		out.Decision = &Decision{}
		err = json.Unmarshal(data, &struct {
			*header
			*Decision
		}{&h, out.Decision})
	case TypeVerification:
		out.Verification = &Verification{}
		err = json.Unmarshal(data, &struct {
			*header
			*Verification
		}{&h, out.Verification})
	default:
		err = json.Unmarshal(data, &h)
	}
	if err != nil {
		return err
	}

	h.Type = t
	if h.Metadata == nil {
		h.Metadata = map[string]any{}
	}
	out.Header = Header(h)
	*m = out
	return nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
