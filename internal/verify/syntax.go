package verify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// DefaultSyntaxCommands maps file extensions to a syntax-only compile command.
// The file path is appended as the last argument.
var DefaultSyntaxCommands = map[string][]string{
	".py":  {"python", "-m", "py_compile"},
	".js":  {"node", "--check"},
	".ts":  {"npx", "tsc", "--noEmit"},
	".go":  {"go", "build", "-n"},
	".rs":  {"rustfmt", "--check"},
	".cpp": {"g++", "-fsyntax-only"},
	".c":   {"gcc", "-fsyntax-only"},
}

// SyntaxChecker compiles changed files without building them
type SyntaxChecker struct {
	Commands map[string][]string
	Timeout  time.Duration
}

func NewSyntaxChecker() *SyntaxChecker {
	return &SyntaxChecker{Commands: DefaultSyntaxCommands, Timeout: 30 * time.Second}
}

func (s *SyntaxChecker) Name() string { return "syntax" }

func (s *SyntaxChecker) Check(ctx context.Context, vc Context) CheckResult {
	if len(vc.Files) == 0 {
		return CheckResult{Name: s.Name(), Passed: true, Score: 1, Message: "No files to check", Details: map[string]any{}}
	}
	workDir := resolveWorkDir(vc.WorkDir)

	errs := []string{}
	for _, f := range vc.Files {
		if msg := s.checkFile(ctx, f, workDir); msg != "" {
			errs = append(errs, msg)
		}
	}

	return CheckResult{
		Name:    s.Name(),
		Passed:  len(errs) == 0,
		Score:   max(0, 1-float64(len(errs))/float64(len(vc.Files))),
		Message: fmt.Sprintf("Checked %d files, %d syntax errors", len(vc.Files), len(errs)),
		Details: map[string]any{"errors": errs},
	}
}

// checkFile returns "" when the file is fine or could not be checked
func (s *SyntaxChecker) checkFile(ctx context.Context, file, workDir string) string {
	cmdArgs, ok := s.Commands[strings.ToLower(filepath.Ext(file))]
	if !ok || len(cmdArgs) == 0 {
		return ""
	}

	full := file
	if !filepath.IsAbs(full) {
		full = filepath.Join(workDir, file)
	}
	if _, err := os.Stat(full); err != nil {
		return "File not found: " + file
	}
	if _, err := exec.LookPath(cmdArgs[0]); err != nil {
		return ""
	}

	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	args := append(append([]string{}, cmdArgs[1:]...), full)
	cmd := exec.CommandContext(ctx, cmdArgs[0], args...)
	cmd.Dir = workDir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return file + ": Syntax check timed out"
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return ""
		}
		return file + ": " + truncate(stderr.String(), 200)
	}
	return ""
}

func resolveWorkDir(dir string) string {
	if dir != "" {
		return dir
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
