package protocol

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/errors"
)

var (
	errMissingType = stderrors.New("Message type not specified")
	errUnknownType = stderrors.New("unknown message type")
)

// Serializer converts messages to and from a wire format
type Serializer interface {
	Serialize(m *Message) (string, error)
	Deserialize(data string) (*Message, error)
	Format() string
}

// JSONSerializer writes flat JSON objects. Indent 0 produces a single line.
type JSONSerializer struct {
	Indent int
}

func NewJSONSerializer() *JSONSerializer {
	return &JSONSerializer{Indent: 2}
}

func (s *JSONSerializer) Format() string { return "json" }

func (s *JSONSerializer) Serialize(m *Message) (string, error) {
	var (
		data []byte
		err  error
	)
	if s.Indent > 0 {
		data, err = json.MarshalIndent(m, "", strings.Repeat(" ", s.Indent))
	} else {
		data, err = json.Marshal(m)
	}
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeProtocolInvalid, "failed to encode message", err)
	}
	return string(data), nil
}

func (s *JSONSerializer) Deserialize(data string) (*Message, error) {
	if !json.Valid([]byte(data)) {
		return nil, errors.New(errors.ErrCodeProtocolInvalid, "Invalid JSON").
			WithSuggestion("Check that the message is a single JSON object")
	}
	var m Message
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		switch {
		case stderrors.Is(err, errMissingType):
			return nil, errors.New(errors.ErrCodeProtocolInvalid, errMissingType.Error())
		case stderrors.Is(err, errUnknownType):
			return nil, errors.Wrap(errors.ErrCodeProtocolUnknownType, err.Error(), err).
				WithSuggestion(fmt.Sprintf("Use one of: %s", typeList()))
		default:
			return nil, errors.Wrap(errors.ErrCodeProtocolInvalid, "Invalid JSON: "+err.Error(), err)
		}
	}
	return &m, nil
}

// NewSerializer returns the serializer for format: json, markdown or md
func NewSerializer(format string) (Serializer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return NewJSONSerializer(), nil
	case "markdown", "md":
		return NewMarkdownSerializer(), nil
	default:
		return nil, errors.NewUnknownFormatError(format)
	}
}

// DetectSerializer guesses the format of data, defaulting to JSON
func DetectSerializer(data string) Serializer {
	trimmed := strings.TrimSpace(data)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return NewJSONSerializer()
	}
	if strings.Contains(trimmed, "---") {
		return NewMarkdownSerializer()
	}
	return NewJSONSerializer()
}

// Convert re-encodes data, detected automatically, into format
func Convert(data, format string) (string, error) {
	target, err := NewSerializer(format)
	if err != nil {
		return "", err
	}
	m, err := DetectSerializer(data).Deserialize(data)
	if err != nil {
		return "", err
	}
	return target.Serialize(m)
}

func typeList() string {
	names := make([]string, 0, len(Types()))
	for _, t := range Types() {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}
