// Package verify runs pluggable checks over an implementation and combines
// them into a single report.
package verify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/agent"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/log"
)

// Context is everything a checker may look at. Checkers ignore fields they do not need.
type Context struct {
	Files          []string
	WorkDir        string
	Language       string
	TestCommand    string
	Goal           string
	Implementation string
	Criteria       []string
	Requirements   []string
}

// CheckResult is the outcome of a single checker
type CheckResult struct {
	Name     string         `json:"name"`
	Passed   bool           `json:"passed"`
	Score    float64        `json:"score"`
	Message  string         `json:"message"`
	Details  map[string]any `json:"details,omitempty"`
	Duration time.Duration  `json:"duration"`
}

// Report combines every check of one verification run
type Report struct {
	Passed       bool          `json:"passed"`
	OverallScore float64       `json:"overall_score"`
	Checks       []CheckResult `json:"checks"`
	Summary      string        `json:"summary"`
}

func (r *Report) PassedCount() int {
	n := 0
	for _, c := range r.Checks {
		if c.Passed {
			n++
		}
	}
	return n
}

func (r *Report) TotalCount() int { return len(r.Checks) }

// Checker is one verification step
type Checker interface {
	Name() string
	Check(ctx context.Context, vc Context) CheckResult
}

// Engine runs checkers in order
type Engine struct {
	checkers []Checker
	logger   *log.Logger
}

// NewEngine creates an engine with the given checkers
func NewEngine(checkers ...Checker) *Engine {
	return &Engine{checkers: checkers, logger: log.Nop()}
}

// DefaultEngine wires the syntax, tests, goal_match and quality checkers.
// a may be nil, in which case goal matching falls back to keyword overlap.
func DefaultEngine(a agent.Agent) *Engine {
	return NewEngine(
		NewSyntaxChecker(),
		NewTestChecker(),
		NewGoalMatcher(a),
		NewQualityChecker(),
	)
}

// SetLogger sets the logger used to report recovered checker panics
func (e *Engine) SetLogger(l *log.Logger) {
	if l != nil {
		e.logger = l
	}
}

func (e *Engine) AddChecker(c Checker) {
	e.checkers = append(e.checkers, c)
}

// RemoveChecker drops every checker with the given name
func (e *Engine) RemoveChecker(name string) {
	kept := e.checkers[:0]
	for _, c := range e.checkers {
		if c.Name() != name {
			kept = append(kept, c)
		}
	}
	e.checkers = kept
}

// Checkers returns the names of the configured checkers in run order
func (e *Engine) Checkers() []string {
	names := make([]string, len(e.checkers))
	for i, c := range e.checkers {
		names[i] = c.Name()
	}
	return names
}

// Verify runs every checker. The report passes only if at least one checker
// ran and all of them passed.
func (e *Engine) Verify(ctx context.Context, vc Context) *Report {
	results := make([]CheckResult, 0, len(e.checkers))
	for _, c := range e.checkers {
		results = append(results, e.run(ctx, c, vc))
	}

	report := &Report{Checks: results}
	if len(results) == 0 {
		report.Summary = "No checks configured"
		return report
	}

	total := 0.0
	report.Passed = true
	parts := make([]string, len(results))
	for i, r := range results {
		total += r.Score
		report.Passed = report.Passed && r.Passed
		status := "FAIL"
		if r.Passed {
			status = "PASS"
		}
		parts[i] = fmt.Sprintf("%s: %s (%.1f%%)", r.Name, status, r.Score*100)
	}
	report.OverallScore = total / float64(len(results))
	report.Summary = strings.Join(parts, " | ")
	return report
}

func (e *Engine) run(ctx context.Context, c Checker, vc Context) (result CheckResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("checker panicked", "checker", c.Name(), "panic", r)
			result = CheckResult{
				Name:    c.Name(),
				Message: fmt.Sprintf("Check failed: %v", r),
				Details: map[string]any{},
			}
		}
		result.Duration = time.Since(start)
	}()
	return c.Check(ctx, vc)
}
