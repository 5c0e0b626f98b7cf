package verify

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/agent"
)

type stubChecker struct {
	name   string
	result CheckResult
	panics bool
}

func (s stubChecker) Name() string { return s.name }

func (s stubChecker) Check(context.Context, Context) CheckResult {
	if s.panics {
		panic("kaboom")
	}
	r := s.result
	r.Name = s.name
	return r
}

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestEngine_Verify(t *testing.T) {
	e := NewEngine(
		stubChecker{name: "a", result: CheckResult{Passed: true, Score: 1}},
		stubChecker{name: "b", result: CheckResult{Passed: false, Score: 0.5}},
	)

	report := e.Verify(context.Background(), Context{})
	assert.False(t, report.Passed)
	assert.InDelta(t, 0.75, report.OverallScore, 1e-9)
	assert.Equal(t, "a: PASS (100.0%) | b: FAIL (50.0%)", report.Summary)
	assert.Equal(t, 1, report.PassedCount())
	assert.Equal(t, 2, report.TotalCount())

	e.RemoveChecker("b")
	assert.Equal(t, []string{"a"}, e.Checkers())
	report = e.Verify(context.Background(), Context{})
	assert.True(t, report.Passed)
	assert.Equal(t, 1.0, report.OverallScore)
}

func TestEngine_Empty(t *testing.T) {
	report := NewEngine().Verify(context.Background(), Context{})
	assert.False(t, report.Passed)
	assert.Equal(t, 0.0, report.OverallScore)
	assert.Empty(t, report.Checks)
}

func TestEngine_RecoversPanics(t *testing.T) {
	e := NewEngine(stubChecker{name: "ok", result: CheckResult{Passed: true, Score: 1}})
	e.AddChecker(stubChecker{name: "boom", panics: true})

	report := e.Verify(context.Background(), Context{})
	require.Len(t, report.Checks, 2)
	assert.False(t, report.Passed)
	assert.Equal(t, "boom", report.Checks[1].Name)
	assert.False(t, report.Checks[1].Passed)
	assert.Equal(t, "Check failed: kaboom", report.Checks[1].Message)
	assert.InDelta(t, 0.5, report.OverallScore, 1e-9)
}

func TestDefaultEngine(t *testing.T) {
	assert.Equal(t, []string{"syntax", "tests", "goal_match", "quality"}, DefaultEngine(nil).Checkers())
}

func TestSyntaxChecker(t *testing.T) {
	requireShell(t)
	dir := t.TempDir()
	writeFile(t, dir, "good.sh", "echo hello\n")
	writeFile(t, dir, "bad.sh", "if then fi (\n")
	writeFile(t, dir, "notes.txt", "ignored")

	s := &SyntaxChecker{Commands: map[string][]string{".sh": {"sh", "-n"}}, Timeout: 5 * time.Second}

	r := s.Check(context.Background(), Context{WorkDir: dir, Files: []string{"good.sh", "notes.txt"}})
	assert.True(t, r.Passed)
	assert.Equal(t, 1.0, r.Score)

	r = s.Check(context.Background(), Context{WorkDir: dir, Files: []string{"good.sh", "bad.sh", "missing.sh", "notes.txt"}})
	assert.False(t, r.Passed)
	assert.InDelta(t, 0.5, r.Score, 1e-9)
	assert.Equal(t, "Checked 4 files, 2 syntax errors", r.Message)
	errs := r.Details["errors"].([]string)
	require.Len(t, errs, 2)
	assert.True(t, strings.HasPrefix(errs[0], "bad.sh: "))
	assert.Equal(t, "File not found: missing.sh", errs[1])
}

func TestSyntaxChecker_NoFilesAndMissingTool(t *testing.T) {
	s := NewSyntaxChecker()
	r := s.Check(context.Background(), Context{})
	assert.True(t, r.Passed)
	assert.Equal(t, "No files to check", r.Message)

	dir := t.TempDir()
	writeFile(t, dir, "x.zz", "anything")
	s = &SyntaxChecker{Commands: map[string][]string{".zz": {"definitely-not-a-real-tool-xyz"}}, Timeout: time.Second}
	r = s.Check(context.Background(), Context{WorkDir: dir, Files: []string{"x.zz"}})
	assert.True(t, r.Passed, "missing tools are skipped")
}

func TestTestChecker(t *testing.T) {
	if _, err := exec.LookPath("echo"); err != nil {
		t.Skip("echo not available")
	}
	tc := NewTestChecker()

	r := tc.Check(context.Background(), Context{WorkDir: t.TempDir(), TestCommand: "echo 3 passed, 1 failed"})
	assert.True(t, r.Passed)
	assert.InDelta(t, 0.75, r.Score, 1e-9)
	assert.Equal(t, "Tests: 3/4 passed", r.Message)

	if _, err := exec.LookPath("false"); err == nil {
		r = tc.Check(context.Background(), Context{WorkDir: t.TempDir(), TestCommand: "false"})
		assert.False(t, r.Passed)
		assert.Equal(t, 0.0, r.Score)
	}

	r = tc.Check(context.Background(), Context{Language: "cobol"})
	assert.True(t, r.Passed)
	assert.Equal(t, 0.5, r.Score)
	assert.Equal(t, "No test command for cobol", r.Message)
}

func TestParseTestOutput(t *testing.T) {
	stats := ParseTestOutput("===== 10 passed, 2 failed, 1 skipped in 0.3s =====")
	assert.Equal(t, TestStats{Total: 13, Passed: 10, Failed: 2, Skipped: 1}, stats)

	goOut := `=== RUN   TestA
--- PASS: TestA (0.00s)
=== RUN   TestB
--- FAIL: TestB (0.00s)
=== RUN   TestC
--- SKIP: TestC (0.00s)
--- PASS: TestD (0.00s)
coverage: 81.5% of statements`
	stats = ParseTestOutput(goOut)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Passed)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Skipped)
	assert.InDelta(t, 0.815, stats.Coverage, 1e-9)

	assert.Equal(t, 0, ParseTestOutput("ok  example.com/pkg 0.01s").Total)
}

func TestGoalMatcher_Keywords(t *testing.T) {
	g := NewGoalMatcher(nil)

	r := g.Check(context.Background(), Context{Goal: "Build a parser for config files", Implementation: "I wrote the parser and the config loader"})
	// goal keywords: build, parser, config, files -> parser, config match
	assert.True(t, r.Passed)
	assert.InDelta(t, 0.5, r.Score, 1e-9)
	assert.Equal(t, "Keyword match: 2/4 keywords", r.Message)

	r = g.Check(context.Background(), Context{Goal: "do it", Implementation: "done"})
	assert.True(t, r.Passed)
	assert.Equal(t, 0.5, r.Score)

	r = g.Check(context.Background(), Context{Goal: "x"})
	assert.False(t, r.Passed)
	assert.Equal(t, "Missing goal or implementation", r.Message)
}

func TestGoalMatcher_NonASCIIKeywords(t *testing.T) {
	g := NewGoalMatcher(nil)

	// "für" is too short; Grüße and Bäume are whole keywords
	r := g.Check(context.Background(), Context{Goal: "Grüße für Bäume", Implementation: "nothing related here"})
	assert.False(t, r.Passed)
	assert.Equal(t, 0.0, r.Score)
	assert.Equal(t, "Keyword match: 0/2 keywords", r.Message)

	r = g.Check(context.Background(), Context{Goal: "Grüße für Bäume", Implementation: "Die BÄUME sind gepflanzt"})
	assert.True(t, r.Passed)
	assert.InDelta(t, 0.5, r.Score, 1e-9)
	assert.Equal(t, "Keyword match: 1/2 keywords", r.Message)
}

func TestGoalMatcher_Agent(t *testing.T) {
	fake := agent.NewFake(agent.TypeClaude,
		agent.OK(`{"matches": true, "score": 0.9, "matched_criteria": ["AC-1"], "unmatched_criteria": [], "assessment": "good"}`),
		agent.OK("no idea"),
		agent.ErrorResponse("offline", 1),
	)
	g := NewGoalMatcher(fake)
	vc := Context{Goal: "goal", Implementation: strings.Repeat("i", 4000), Criteria: []string{"AC-1"}}

	r := g.Check(context.Background(), vc)
	assert.True(t, r.Passed)
	assert.Equal(t, 0.9, r.Score)
	assert.Equal(t, "good", r.Message)
	assert.Equal(t, []string{"AC-1"}, r.Details["matched"])
	assert.NotContains(t, fake.LastPrompt(), strings.Repeat("i", 3001))
	assert.Contains(t, fake.LastPrompt(), "- AC-1")

	r = g.Check(context.Background(), vc)
	assert.False(t, r.Passed)
	assert.True(t, strings.HasPrefix(r.Message, "Failed to parse response:"))

	r = g.Check(context.Background(), vc)
	assert.Equal(t, "Agent check failed: offline", r.Message)
}

func TestQualityChecker(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "clean.go", "package main\n\nfunc main() {}\n")
	writeFile(t, dir, "messy.py", "print('debug')\n# TODO: fix\n"+strings.Repeat("x", 130)+"\n"+strings.Repeat("y", 130)+"\n")

	q := NewQualityChecker()

	r := q.Check(context.Background(), Context{WorkDir: dir, Files: []string{"clean.go"}})
	assert.True(t, r.Passed)
	assert.Equal(t, 1.0, r.Score)

	r = q.Check(context.Background(), Context{WorkDir: dir, Files: []string{"messy.py", "gone.go"}})
	issues := r.Details["issues"].([]string)
	assert.Equal(t, []string{
		"messy.py:3: Line too long (130 chars)",
		"messy.py: Contains debug output",
		"messy.py: Contains TODO/FIXME comments",
		"File not found: gone.go",
	}, issues)
	assert.InDelta(t, 0.6, r.Score, 1e-9)
	assert.False(t, r.Passed)
}
