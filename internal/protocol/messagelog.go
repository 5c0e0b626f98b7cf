package protocol

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// MessageLog appends messages as JSON lines to messages_<session>.jsonl
type MessageLog struct {
	path       string
	file       *os.File
	mu         sync.Mutex
	serializer *JSONSerializer
}

// LogPath returns the message log location for a session
func LogPath(sessionDir, sessionID string) string {
	return filepath.Join(sessionDir, fmt.Sprintf("messages_%s.jsonl", sessionID))
}

// OpenMessageLog opens (or creates) the session's message log for appending
func OpenMessageLog(sessionDir, sessionID string) (*MessageLog, error) {
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	path := LogPath(sessionDir, sessionID)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open message log: %w", err)
	}
	return &MessageLog{path: path, file: f, serializer: &JSONSerializer{Indent: 0}}, nil
}

func (l *MessageLog) Path() string { return l.path }

// Append writes one message per line
func (l *MessageLog) Append(m *Message) error {
	line, err := l.serializer.Serialize(m)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return fmt.Errorf("message log is closed")
	}
	if _, err := l.file.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

func (l *MessageLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// ReadMessageLog decodes every line of a message log. Blank lines are skipped.
func ReadMessageLog(path string) ([]*Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open message log: %w", err)
	}
	defer f.Close()

	s := NewJSONSerializer()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var messages []*Message
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		m, err := s.Deserialize(line)
		if err != nil {
			return messages, fmt.Errorf("line %d: %w", lineNo, err)
		}
		messages = append(messages, m)
	}
	return messages, scanner.Err()
}
