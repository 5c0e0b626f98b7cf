package goal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/zeebo/blake3"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/errors"
)

// ToMarkdown renders g in the format Parse reads
func ToMarkdown(g *Goal) string {
	lines := []string{"# " + g.Title, ""}

	if g.Description != "" {
		lines = append(lines, "## Description", "", g.Description, "")
	}

	if len(g.AcceptanceCriteria) > 0 {
		lines = append(lines, "## Acceptance Criteria", "")
		for _, c := range g.AcceptanceCriteria {
			box := "[ ]"
			if c.Completed {
				box = "[x]"
			}
			lines = append(lines, fmt.Sprintf("- %s %s", box, c.Description))
		}
		lines = append(lines, "")
	}

	if len(g.QualityRequirements) > 0 {
		lines = append(lines, "## Quality Requirements", "")
		for _, q := range g.QualityRequirements {
			lines = append(lines, "- "+q)
		}
		lines = append(lines, "")
	}

	if len(g.Constraints) > 0 {
		lines = append(lines, "## Constraints", "")
		for _, c := range g.Constraints {
			lines = append(lines, "- "+c)
		}
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}

// Hash returns the blake3 hex digest of goal content
func Hash(content string) string {
	hasher := blake3.New()
	_, _ = hasher.Write([]byte(content))
	return fmt.Sprintf("%x", hasher.Sum(nil))
}

// WriteBack rewrites the goal file at path from g and returns a unified diff
// of the change. An empty diff means the file already matched.
func WriteBack(path string, g *Goal) (string, error) {
	oldBytes, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return "", errors.Wrap(errors.ErrCodeGoalReadFailed, "failed to read goal file", err)
	}
	newContent := ToMarkdown(g)
	if string(oldBytes) == newContent {
		return "", nil
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(oldBytes)),
		B:        difflib.SplitLines(newContent),
		FromFile: filepath.Base(path),
		ToFile:   filepath.Base(path) + " (updated)",
		Context:  3,
	})
	if err != nil {
		return "", fmt.Errorf("failed to diff goal file: %w", err)
	}

	if err := writeAtomic(path, []byte(newContent)); err != nil {
		return "", errors.Wrap(errors.ErrCodeGoalWriteFailed, "failed to write goal file", err)
	}
	return diff, nil
}

// writeAtomic replaces path via a temp file in the same directory
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
