package verify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	maxFileLines  = 500
	maxLineLength = 120
)

// QualityChecker flags long files, long lines, debug output and leftover markers
type QualityChecker struct{}

func NewQualityChecker() *QualityChecker { return &QualityChecker{} }

func (q *QualityChecker) Name() string { return "quality" }

func (q *QualityChecker) Check(_ context.Context, vc Context) CheckResult {
	workDir := resolveWorkDir(vc.WorkDir)

	issues := []string{}
	for _, f := range vc.Files {
		issues = append(issues, fileIssues(f, workDir)...)
	}

	score := max(0, 1-0.1*float64(len(issues)))
	return CheckResult{
		Name:    q.Name(),
		Passed:  score >= 0.7,
		Score:   score,
		Message: fmt.Sprintf("Found %d quality issues", len(issues)),
		Details: map[string]any{"issues": issues},
	}
}

func fileIssues(file, workDir string) []string {
	full := file
	if !filepath.IsAbs(full) {
		full = filepath.Join(workDir, file)
	}
	if _, err := os.Stat(full); err != nil {
		return []string{"File not found: " + file}
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return []string{fmt.Sprintf("%s: Could not read file: %v", file, err)}
	}

	content := string(data)
	lines := strings.Split(content, "\n")
	var issues []string

	if len(lines) > maxFileLines {
		issues = append(issues, fmt.Sprintf("%s: File too long (%d lines)", file, len(lines)))
	}
	for i, line := range lines {
		if n := len([]rune(line)); n > maxLineLength {
			issues = append(issues, fmt.Sprintf("%s:%d: Line too long (%d chars)", file, i+1, n))
			break
		}
	}
	if strings.Contains(content, "print(") || strings.Contains(content, "console.log") {
		issues = append(issues, file+": Contains debug output")
	}
	if strings.Contains(content, "TODO") || strings.Contains(content, "FIXME") {
		issues = append(issues, file+": Contains TODO/FIXME comments")
	}
	return issues
}
