// Package checkpoint persists orchestration sessions so they can be resumed.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/errors"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/role"
)

const (
	// Version of the checkpoint document layout
	Version = "1.0"

	filePrefix = "checkpoint_"
	fileSuffix = ".json"
)

// Document is a resumable snapshot of one session
type Document struct {
	Version         string              `json:"version"`
	SessionID       string              `json:"session_id"`
	StartedAt       time.Time           `json:"started_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	State           string              `json:"state"`
	Iteration       int                 `json:"iteration"`
	GoalTitle       string              `json:"goal_title"`
	GoalHash        string              `json:"goal_hash"`
	Config          map[string]any      `json:"config"`
	History         []role.HistoryEntry `json:"history"`
	CurrentDecision *role.Decision      `json:"current_decision"`
}

// Info describes a stored checkpoint without its history
type Info struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	State     string    `json:"state"`
	Iteration int       `json:"iteration"`
	GoalTitle string    `json:"goal_title"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Manager stores checkpoint_<session>.json files in a single directory
type Manager struct {
	checkpointDir string
}

func NewManager(checkpointDir string) *Manager {
	return &Manager{checkpointDir: checkpointDir}
}

func (m *Manager) Dir() string { return m.checkpointDir }

// Path returns where the checkpoint for id lives
func (m *Manager) Path(id string) string {
	return filepath.Join(m.checkpointDir, filePrefix+id+fileSuffix)
}

// Save writes doc atomically and returns its path
func (m *Manager) Save(doc *Document) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("checkpoint document is nil")
	}
	if doc.SessionID == "" {
		return "", errors.New(errors.ErrCodeCheckpointInvalid, "checkpoint has no session id")
	}
	if doc.Version == "" {
		doc.Version = Version
	}
	doc.UpdatedAt = time.Now()

	if err := os.MkdirAll(m.checkpointDir, 0o755); err != nil {
		return "", errors.Wrap(errors.ErrCodeCheckpointWriteFailed, "failed to create checkpoint directory", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeCheckpointWriteFailed, "failed to marshal checkpoint", err)
	}

	path := m.Path(doc.SessionID)
	tmp, err := os.CreateTemp(m.checkpointDir, "."+filePrefix+"*.tmp")
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeCheckpointWriteFailed, "failed to write checkpoint", err)
	}
	tmpName := tmp.Name()
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		os.Remove(tmpName)
		return "", errors.Wrap(errors.ErrCodeCheckpointWriteFailed, "failed to write checkpoint", firstErr(werr, cerr))
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return "", errors.Wrap(errors.ErrCodeCheckpointWriteFailed, "failed to write checkpoint", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", errors.Wrap(errors.ErrCodeCheckpointWriteFailed, "failed to write checkpoint", err)
	}
	return path, nil
}

// Load reads the checkpoint for id
func (m *Manager) Load(id string) (*Document, error) {
	doc, err := LoadFile(m.Path(id))
	if os.IsNotExist(underlying(err)) {
		return nil, errors.NewCheckpointNotFoundError(id)
	}
	return doc, err
}

// LoadFile reads a checkpoint from an explicit path
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeCheckpointNotFound, fmt.Sprintf("checkpoint not found: %s", path), err)
		}
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeCheckpointInvalid, "failed to parse checkpoint", err)
	}
	if doc.SessionID == "" {
		return nil, errors.New(errors.ErrCodeCheckpointInvalid, "checkpoint has no session id")
	}
	return &doc, nil
}

// Exists reports whether a checkpoint for id is stored
func (m *Manager) Exists(id string) bool {
	_, err := os.Stat(m.Path(id))
	return err == nil
}

// Delete removes the checkpoint for id; a missing file is not an error
func (m *Manager) Delete(id string) error {
	if err := os.Remove(m.Path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// List returns every readable checkpoint, most recently updated first
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.checkpointDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Info{}, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint directory: %w", err)
	}

	infos := []Info{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		path := filepath.Join(m.checkpointDir, name)
		doc, err := LoadFile(path)
		if err != nil {
			continue
		}
		infos = append(infos, Info{
			ID:        strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix),
			Path:      path,
			State:     doc.State,
			Iteration: doc.Iteration,
			GoalTitle: doc.GoalTitle,
			UpdatedAt: doc.UpdatedAt,
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].UpdatedAt.After(infos[j].UpdatedAt)
	})
	return infos, nil
}

// Latest returns the most recently updated checkpoint
func (m *Manager) Latest() (*Info, error) {
	infos, err := m.List()
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return nil, errors.NewNoSessionError()
	}
	return &infos[0], nil
}

func underlying(err error) error {
	if oe, ok := errors.As(err); ok && oe.Cause != nil {
		return oe.Cause
	}
	return err
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
