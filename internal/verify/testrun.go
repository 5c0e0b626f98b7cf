package verify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultTestCommands maps a project language to its test command
var DefaultTestCommands = map[string][]string{
	"python":     {"python", "-m", "pytest", "-v"},
	"javascript": {"npm", "test"},
	"typescript": {"npm", "test"},
	"go":         {"go", "test", "./..."},
	"rust":       {"cargo", "test"},
}

// TestStats is what could be parsed from test output
type TestStats struct {
	Total    int     `json:"total"`
	Passed   int     `json:"passed"`
	Failed   int     `json:"failed"`
	Skipped  int     `json:"skipped"`
	Coverage float64 `json:"coverage,omitempty"`
}

// TestChecker runs the project's test suite
type TestChecker struct {
	Commands map[string][]string
	Timeout  time.Duration
}

func NewTestChecker() *TestChecker {
	return &TestChecker{Commands: DefaultTestCommands, Timeout: 300 * time.Second}
}

func (t *TestChecker) Name() string { return "tests" }

// Check runs vc.TestCommand if set, otherwise the command for vc.Language
// (python by default). An unknown language is a soft pass.
func (t *TestChecker) Check(ctx context.Context, vc Context) CheckResult {
	language := vc.Language
	if language == "" {
		language = "python"
	}
	cmdArgs := strings.Fields(vc.TestCommand)
	if len(cmdArgs) == 0 {
		cmdArgs = t.Commands[language]
	}
	if len(cmdArgs) == 0 {
		return CheckResult{Name: t.Name(), Passed: true, Score: 0.5, Message: "No test command for " + language, Details: map[string]any{}}
	}

	ctx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, cmdArgs[0], cmdArgs[1:]...)
	cmd.Dir = resolveWorkDir(vc.WorkDir)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return CheckResult{Name: t.Name(), Message: "Tests timed out", Details: map[string]any{}}
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return CheckResult{Name: t.Name(), Message: fmt.Sprintf("Test execution failed: %v", err), Details: map[string]any{}}
	}

	passed := err == nil
	output := stdout.String() + stderr.String()
	stats := ParseTestOutput(output)

	score := 0.0
	switch {
	case stats.Total > 0:
		score = float64(stats.Passed) / float64(stats.Total)
	case passed:
		score = 1
	}

	return CheckResult{
		Name:    t.Name(),
		Passed:  passed,
		Score:   score,
		Message: fmt.Sprintf("Tests: %d/%d passed", stats.Passed, stats.Total),
		Details: map[string]any{
			"output": truncate(output, 2000),
			"stats":  stats,
		},
	}
}

var (
	passedRe   = regexp.MustCompile(`(\d+) passed`)
	failedRe   = regexp.MustCompile(`(\d+) failed`)
	skippedRe  = regexp.MustCompile(`(\d+) skipped`)
	goPassRe   = regexp.MustCompile(`--- PASS:`)
	goFailRe   = regexp.MustCompile(`--- FAIL:`)
	goSkipRe   = regexp.MustCompile(`--- SKIP:`)
	coverageRe = regexp.MustCompile(`coverage:\s+(\d+\.?\d*)%`)
)

// ParseTestOutput reads "N passed / N failed / N skipped" summaries and falls
// back to counting verbose go test result lines
func ParseTestOutput(output string) TestStats {
	stats := TestStats{
		Passed:  firstInt(passedRe, output),
		Failed:  firstInt(failedRe, output),
		Skipped: firstInt(skippedRe, output),
	}
	if stats.Passed+stats.Failed+stats.Skipped == 0 {
		stats.Passed = len(goPassRe.FindAllString(output, -1))
		stats.Failed = len(goFailRe.FindAllString(output, -1))
		stats.Skipped = len(goSkipRe.FindAllString(output, -1))
	}
	stats.Total = stats.Passed + stats.Failed + stats.Skipped

	if m := coverageRe.FindStringSubmatch(output); len(m) > 1 {
		if cov, err := strconv.ParseFloat(m[1], 64); err == nil {
			stats.Coverage = cov / 100.0
		}
	}
	return stats
}

func firstInt(re *regexp.Regexp, s string) int {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}
