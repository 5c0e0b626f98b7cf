package protocol

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/errors"
)

func TestConstructors(t *testing.T) {
	req := NewRequest("master", "worker", Request{Instruction: "do it"})
	assert.Len(t, req.ID, 8)
	assert.Equal(t, TypeRequest, req.Type)
	assert.Equal(t, PriorityNormal, req.Priority)
	assert.Equal(t, 300, req.Request.TimeoutSeconds)
	assert.NoError(t, req.Validate())

	e := NewError("worker", "E1", "broken", false)
	assert.Equal(t, PriorityHigh, e.Priority)
	assert.NoError(t, e.Validate())

	assert.NoError(t, NewHeartbeat("worker").Validate())
	assert.NotEqual(t, req.ID, NewRequest("", "", Request{}).ID)
}

func TestValidate(t *testing.T) {
	m := NewRequest("", "", Request{})
	m.Response = &Response{}
	assert.Error(t, m.Validate(), "two payloads")

	m = NewDecision("", "", Decision{})
	m.Decision = nil
	assert.Error(t, m.Validate(), "missing payload")

	m = NewStatus("", Status{})
	m.Type = TypeVerification
	assert.Error(t, m.Validate(), "payload does not match type")

	hb := NewHeartbeat("")
	hb.Error = &Error{}
	assert.Error(t, hb.Validate())
}

func TestJSONSerializer_FlatRoundTrip(t *testing.T) {
	s := NewJSONSerializer()
	msgs := []*Message{
		NewRequest("master", "worker", Request{Instruction: "build", Constraints: []string{"fast"}, FilesToCreate: []string{"a.go"}}),
		NewResponse("worker", "master", "abc12345", Response{Success: true, Output: "ok", FilesCreated: []string{"a.go"}, ExecutionTime: 1.5}),
		NewError("worker", "E42", "boom", false),
		NewStatus("master", Status{Status: "running", Progress: 0.5, TasksCompleted: 1, TasksTotal: 2}),
		NewDecision("master", "worker", Decision{DecisionType: "IMPLEMENT", Instruction: "go", Reason: "why"}),
		NewVerification("master", "worker", Verification{Passed: true, Score: 0.9, Issues: []string{"minor"}}),
		NewHeartbeat("worker"),
	}

	for _, m := range msgs {
		t.Run(string(m.Type), func(t *testing.T) {
			data, err := s.Serialize(m)
			require.NoError(t, err)

			var flat map[string]any
			require.NoError(t, json.Unmarshal([]byte(data), &flat))
			assert.Equal(t, string(m.Type), flat["type"])
			assert.Equal(t, m.ID, flat["id"])

			back, err := s.Deserialize(data)
			require.NoError(t, err)
			require.NoError(t, back.Validate())
			assert.Equal(t, m.Header.ID, back.ID)
			assert.Equal(t, m.Priority, back.Priority)
			assert.True(t, m.Timestamp.Equal(back.Timestamp))
			assert.Equal(t, m.payload(), back.payload())
		})
	}
}

func TestJSONSerializer_FlatFields(t *testing.T) {
	data, err := (&JSONSerializer{}).Serialize(NewError("w", "E1", "bad", true))
	require.NoError(t, err)
	assert.NotContains(t, data, "\n")

	var flat map[string]any
	require.NoError(t, json.Unmarshal([]byte(data), &flat))
	assert.Equal(t, "E1", flat["error_code"])
	assert.Equal(t, "bad", flat["error_message"])
	assert.Equal(t, true, flat["recoverable"])
	assert.Equal(t, 3.0, flat["priority"])
}

func TestJSONSerializer_Errors(t *testing.T) {
	s := NewJSONSerializer()

	_, err := s.Deserialize("{not json")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeProtocolInvalid))
	assert.Contains(t, err.Error(), "Invalid JSON")

	_, err = s.Deserialize(`{"id": "x"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Message type not specified")

	_, err = s.Deserialize(`{"type": "gossip"}`)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeProtocolUnknownType))
}

func TestJSONSerializer_DefaultPriority(t *testing.T) {
	s := NewJSONSerializer()
	m, err := s.Deserialize(`{"type": "error", "id": "abcd1234", "error_code": "X"}`)
	require.NoError(t, err)
	assert.Equal(t, PriorityHigh, m.Priority)
	assert.True(t, m.Error.Recoverable)

	m, err = s.Deserialize(`{"type": "request", "instruction": "hi"}`)
	require.NoError(t, err)
	assert.Equal(t, PriorityNormal, m.Priority)
	assert.Equal(t, "hi", m.Request.Instruction)
}

func TestMarkdownSerializer_Request(t *testing.T) {
	s := NewMarkdownSerializer()
	m := NewRequest("master", "worker", Request{
		Instruction:     "Add a flag",
		Context:         "cli tool",
		ExpectedOutcome: "flag works",
		Constraints:     []string{"no deps", "keep tests green"},
	})
	m.Timestamp = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	out, err := s.Serialize(m)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "---TYPE---\nREQUEST\n\n---INSTRUCTION---\nAdd a flag\n"))
	assert.Contains(t, out, "---CONSTRAINTS---\n- no deps\n- keep tests green\n")
	assert.Contains(t, out, "---METADATA---\nID: "+m.ID+"\nTimestamp: 2024-05-01T12:00:00Z\nSender: master\nRecipient: worker")

	back, err := s.Deserialize(out)
	require.NoError(t, err)
	assert.Equal(t, TypeRequest, back.Type)
	assert.Equal(t, m.ID, back.ID)
	assert.Equal(t, "master", back.Sender)
	assert.Equal(t, "worker", back.Recipient)
	assert.True(t, m.Timestamp.Equal(back.Timestamp))
	assert.Equal(t, "Add a flag", back.Request.Instruction)
	assert.Equal(t, "cli tool", back.Request.Context)
	assert.Equal(t, "flag works", back.Request.ExpectedOutcome)
	assert.Equal(t, []string{"no deps", "keep tests green"}, back.Request.Constraints)
}

func TestMarkdownSerializer_Variants(t *testing.T) {
	s := NewMarkdownSerializer()

	out, err := s.Serialize(NewVerification("m", "w", Verification{Passed: false, Score: 0.456, Issues: []string{"a"}, Suggestions: []string{"b", "c"}}))
	require.NoError(t, err)
	assert.Contains(t, out, "---STATUS---\nFAILED\nScore: 0.46\n\nIssues:\n- a\n\nSuggestions:\n- b\n- c\n")
	back, err := s.Deserialize(out)
	require.NoError(t, err)
	assert.Equal(t, TypeVerification, back.Type)
	assert.False(t, back.Verification.Passed)
	assert.InDelta(t, 0.46, back.Verification.Score, 1e-9)
	assert.Equal(t, []string{"a"}, back.Verification.Issues)
	assert.Equal(t, []string{"b", "c"}, back.Verification.Suggestions)

	out, err = s.Serialize(NewResponse("w", "m", "", Response{Success: true, Output: "all good"}))
	require.NoError(t, err)
	back, err = s.Deserialize(out)
	require.NoError(t, err)
	assert.True(t, back.Response.Success)
	assert.Equal(t, "all good", back.Response.Output)

	out, err = s.Serialize(NewError("w", "E7", "disk full", false))
	require.NoError(t, err)
	assert.Contains(t, out, "---ERROR---\nCode: E7\nMessage: disk full\nRecoverable: false")
	back, err = s.Deserialize(out)
	require.NoError(t, err)
	assert.Equal(t, "E7", back.Error.Code)
	assert.Equal(t, "disk full", back.Error.Message)
	assert.False(t, back.Error.Recoverable)

	out, err = s.Serialize(NewDecision("m", "w", Decision{DecisionType: "implement", Instruction: "write code", Reason: "needed"}))
	require.NoError(t, err)
	back, err = s.Deserialize(out)
	require.NoError(t, err)
	assert.Equal(t, "IMPLEMENT", back.Decision.DecisionType)
	assert.Equal(t, "needed", back.Decision.Reason)

	out, err = s.Serialize(NewStatus("m", Status{Status: "running", Progress: 0.25, CurrentTask: "AC-2", TasksCompleted: 1, TasksTotal: 4}))
	require.NoError(t, err)
	back, err = s.Deserialize(out)
	require.NoError(t, err)
	assert.Equal(t, "running", back.Status.Status)
	assert.Equal(t, 0.25, back.Status.Progress)
	assert.Equal(t, "AC-2", back.Status.CurrentTask)
	assert.Equal(t, 4, back.Status.TasksTotal)

	out, err = s.Serialize(NewHeartbeat("w"))
	require.NoError(t, err)
	assert.Contains(t, out, "Data: {")
	back, err = s.Deserialize(out)
	require.NoError(t, err)
	assert.Equal(t, TypeHeartbeat, back.Type)
}

func TestMarkdownSerializer_UnknownTypeDefaultsToRequest(t *testing.T) {
	m, err := NewMarkdownSerializer().Deserialize("---TYPE---\nGOSSIP\n\n---INSTRUCTION---\nhello")
	require.NoError(t, err)
	assert.Equal(t, TypeRequest, m.Type)
	assert.Equal(t, "hello", m.Request.Instruction)
}

func TestNewSerializer(t *testing.T) {
	for format, want := range map[string]string{"json": "json", "JSON": "json", "markdown": "markdown", "md": "markdown"} {
		s, err := NewSerializer(format)
		require.NoError(t, err)
		assert.Equal(t, want, s.Format())
	}

	_, err := NewSerializer("xml")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeProtocolUnknownFormat))
}

func TestDetectSerializer(t *testing.T) {
	assert.Equal(t, "json", DetectSerializer(`  {"type": "request"}`).Format())
	assert.Equal(t, "json", DetectSerializer(`[1]`).Format())
	assert.Equal(t, "markdown", DetectSerializer("---TYPE---\nREQUEST").Format())
	assert.Equal(t, "json", DetectSerializer("plain").Format())
}

func TestConvert(t *testing.T) {
	m := NewDecision("master", "worker", Decision{DecisionType: "DONE", Reason: "finished"})
	data, err := NewJSONSerializer().Serialize(m)
	require.NoError(t, err)

	md, err := Convert(data, "md")
	require.NoError(t, err)
	assert.Contains(t, md, "---DECISION---\nDONE")

	back, err := Convert(md, "json")
	require.NoError(t, err)
	assert.Contains(t, back, `"reason": "finished"`)

	_, err = Convert(data, "yaml")
	assert.Error(t, err)
}

func TestMessageLog(t *testing.T) {
	dir := t.TempDir()
	log, err := OpenMessageLog(dir, "sess1")
	require.NoError(t, err)
	assert.Equal(t, LogPath(dir, "sess1"), log.Path())

	require.NoError(t, log.Append(NewDecision("master", "worker", Decision{DecisionType: "IMPLEMENT"})))
	require.NoError(t, log.Append(NewVerification("master", "worker", Verification{Passed: true, Score: 1})))
	require.NoError(t, log.Close())
	assert.Error(t, log.Append(NewHeartbeat("x")))

	msgs, err := ReadMessageLog(log.Path())
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, TypeDecision, msgs[0].Type)
	assert.Equal(t, TypeVerification, msgs[1].Type)
	assert.True(t, msgs[1].Verification.Passed)
}
