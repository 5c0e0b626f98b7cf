package protocol

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	markerType         = "---TYPE---"
	markerInstruction  = "---INSTRUCTION---"
	markerContext      = "---CONTEXT---"
	markerExpected     = "---EXPECTED---"
	markerConstraints  = "---CONSTRAINTS---"
	markerOutput       = "---OUTPUT---"
	markerError        = "---ERROR---"
	markerStatus       = "---STATUS---"
	markerDecision     = "---DECISION---"
	markerAnalysis     = "---ANALYSIS---"
	markerMetadata     = "---METADATA---"
	sectionPreamble    = "preamble"
	markdownTimeLayout = time.RFC3339Nano
)

var markers = []string{
	markerType, markerInstruction, markerContext, markerExpected, markerConstraints,
	markerOutput, markerError, markerStatus, markerDecision, markerAnalysis, markerMetadata,
}

// MarkdownSerializer writes a human-readable sectioned format
type MarkdownSerializer struct{}

func NewMarkdownSerializer() *MarkdownSerializer { return &MarkdownSerializer{} }

func (s *MarkdownSerializer) Format() string { return "markdown" }

func (s *MarkdownSerializer) Serialize(m *Message) (string, error) {
	lines := []string{markerType, strings.ToUpper(string(m.Type)), ""}

	switch {
	case m.Type == TypeRequest && m.Request != nil:
		lines = append(lines, requestLines(m.Request)...)
	case m.Type == TypeResponse && m.Response != nil:
		lines = append(lines, responseLines(m.Response)...)
	case m.Type == TypeError && m.Error != nil:
		lines = append(lines,
			markerError,
			"Code: "+m.Error.Code,
			"Message: "+m.Error.Message,
			fmt.Sprintf("Recoverable: %t", m.Error.Recoverable),
			"",
		)
	case m.Type == TypeDecision && m.Decision != nil:
		lines = append(lines,
			markerDecision, m.Decision.DecisionType, "",
			markerInstruction, m.Decision.Instruction, "",
			markerAnalysis, m.Decision.Reason, "",
		)
		if m.Decision.ExpectedOutcome != "" {
			lines = append(lines, markerExpected, m.Decision.ExpectedOutcome, "")
		}
	case m.Type == TypeVerification && m.Verification != nil:
		lines = append(lines, verificationLines(m.Verification)...)
	case m.Type == TypeStatus && m.Status != nil:
		lines = append(lines,
			markerStatus,
			m.Status.Status,
			fmt.Sprintf("Progress: %.2f", m.Status.Progress),
			"Task: "+m.Status.CurrentTask,
			fmt.Sprintf("Completed: %d/%d", m.Status.TasksCompleted, m.Status.TasksTotal),
			"",
		)
	default:
		data, err := json.Marshal(m)
		if err != nil {
			return "", err
		}
		lines = append(lines, "Data: "+string(data))
	}

	lines = append(lines,
		markerMetadata,
		"ID: "+m.ID,
		"Timestamp: "+m.Timestamp.Format(markdownTimeLayout),
		"Sender: "+m.Sender,
		"Recipient: "+m.Recipient,
	)
	return strings.Join(lines, "\n"), nil
}

func requestLines(r *Request) []string {
	lines := []string{markerInstruction, r.Instruction, ""}
	if r.Context != "" {
		lines = append(lines, markerContext, r.Context, "")
	}
	if r.ExpectedOutcome != "" {
		lines = append(lines, markerExpected, r.ExpectedOutcome, "")
	}
	if len(r.Constraints) > 0 {
		lines = append(lines, markerConstraints)
		lines = append(lines, bullets(r.Constraints)...)
		lines = append(lines, "")
	}
	return lines
}

func responseLines(r *Response) []string {
	status := "FAILED"
	if r.Success {
		status = "SUCCESS"
	}
	lines := []string{markerStatus, status, "", markerOutput, r.Output, ""}
	if r.Error != "" {
		lines = append(lines, markerError, r.Error, "")
	}
	return lines
}

func verificationLines(v *Verification) []string {
	status := "FAILED"
	if v.Passed {
		status = "PASSED"
	}
	lines := []string{markerStatus, status, fmt.Sprintf("Score: %.2f", v.Score), ""}
	if len(v.Issues) > 0 {
		lines = append(lines, "Issues:")
		lines = append(lines, bullets(v.Issues)...)
		lines = append(lines, "")
	}
	if len(v.Suggestions) > 0 {
		lines = append(lines, "Suggestions:")
		lines = append(lines, bullets(v.Suggestions)...)
		lines = append(lines, "")
	}
	return lines
}

func bullets(items []string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = "- " + item
	}
	return out
}

// Deserialize reads a sectioned message. An unknown type marker is read as a request.
func (s *MarkdownSerializer) Deserialize(data string) (*Message, error) {
	sections := parseSections(data)

	typeLine, _, _ := strings.Cut(sections[markerType], "\n")
	t, ok := ParseType(typeLine)
	if !ok {
		t = TypeRequest
	}

	var m *Message
	switch t {
	case TypeRequest:
		m = NewRequest("", "", Request{
			Instruction:     sections[markerInstruction],
			Context:         sections[markerContext],
			ExpectedOutcome: sections[markerExpected],
			Constraints:     readBullets(sections[markerConstraints]),
		})
	case TypeResponse:
		m = NewResponse("", "", "", Response{
			Success: strings.EqualFold(strings.TrimSpace(sections[markerStatus]), "SUCCESS"),
			Output:  sections[markerOutput],
			Error:   sections[markerError],
		})
	case TypeError:
		m = NewError("", "", "", true)
		readError(sections[markerError], m.Error)
	case TypeDecision:
		m = NewDecision("", "", Decision{
			DecisionType:    strings.ToUpper(strings.TrimSpace(sections[markerDecision])),
			Instruction:     sections[markerInstruction],
			Reason:          sections[markerAnalysis],
			ExpectedOutcome: sections[markerExpected],
		})
	case TypeVerification:
		m = NewVerification("", "", readVerification(sections[markerStatus]))
	case TypeStatus:
		m = NewStatus("", readStatus(sections[markerStatus]))
	default:
		m = NewHeartbeat("")
	}

	readMetadata(sections[markerMetadata], &m.Header)
	return m, nil
}

func parseSections(data string) map[string]string {
	sections := map[string]string{}
	current := sectionPreamble
	var content []string

	flush := func() {
		if len(content) > 0 {
			sections[current] = strings.TrimSpace(strings.Join(content, "\n"))
		}
	}

	for _, line := range strings.Split(strings.ReplaceAll(data, "\r\n", "\n"), "\n") {
		if marker := matchMarker(line); marker != "" {
			flush()
			current = marker
			content = nil
			continue
		}
		content = append(content, line)
	}
	flush()
	return sections
}

func matchMarker(line string) string {
	trimmed := strings.TrimSpace(line)
	for _, m := range markers {
		if trimmed == m {
			return m
		}
	}
	return ""
}

func readBullets(section string) []string {
	items := []string{}
	for _, line := range strings.Split(section, "\n") {
		if trimmed := strings.TrimSpace(line); strings.HasPrefix(trimmed, "- ") {
			items = append(items, trimmed[2:])
		}
	}
	return items
}

func readError(section string, e *Error) {
	e.Message = section
	for _, line := range strings.Split(section, "\n") {
		switch {
		case strings.HasPrefix(line, "Code:"):
			e.Code = strings.TrimSpace(line[len("Code:"):])
		case strings.HasPrefix(line, "Message:"):
			e.Message = strings.TrimSpace(line[len("Message:"):])
		case strings.HasPrefix(line, "Recoverable:"):
			if b, err := strconv.ParseBool(strings.TrimSpace(line[len("Recoverable:"):])); err == nil {
				e.Recoverable = b
			}
		}
	}
}

func readVerification(section string) Verification {
	v := Verification{Issues: []string{}, Suggestions: []string{}}
	var list *[]string
	for i, line := range strings.Split(section, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case i == 0:
			v.Passed = strings.EqualFold(trimmed, "PASSED")
		case strings.HasPrefix(trimmed, "Score:"):
			v.Score, _ = strconv.ParseFloat(strings.TrimSpace(trimmed[len("Score:"):]), 64)
		case trimmed == "Issues:":
			list = &v.Issues
		case trimmed == "Suggestions:":
			list = &v.Suggestions
		case strings.HasPrefix(trimmed, "- ") && list != nil:
			*list = append(*list, trimmed[2:])
		}
	}
	return v
}

func readStatus(section string) Status {
	var s Status
	for i, line := range strings.Split(section, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case i == 0:
			s.Status = trimmed
		case strings.HasPrefix(trimmed, "Progress:"):
			s.Progress, _ = strconv.ParseFloat(strings.TrimSpace(trimmed[len("Progress:"):]), 64)
		case strings.HasPrefix(trimmed, "Task:"):
			s.CurrentTask = strings.TrimSpace(trimmed[len("Task:"):])
		case strings.HasPrefix(trimmed, "Completed:"):
			_, _ = fmt.Sscanf(strings.TrimSpace(trimmed[len("Completed:"):]), "%d/%d", &s.TasksCompleted, &s.TasksTotal)
		}
	}
	return s
}

func readMetadata(section string, h *Header) {
	for _, line := range strings.Split(section, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "ID":
			if value != "" {
				h.ID = value
			}
		case "Timestamp":
			if ts, err := time.Parse(markdownTimeLayout, value); err == nil {
				h.Timestamp = ts
			}
		case "Sender":
			h.Sender = value
		case "Recipient":
			h.Recipient = value
		}
	}
}
