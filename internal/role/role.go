// Package role implements the master and worker strategies that can be bound
// to any agent.
package role

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/agent"
)

// DecisionType is what the master wants to happen next
type DecisionType string

const (
	DecisionImplement DecisionType = "implement"
	DecisionSkip      DecisionType = "skip"
	DecisionDone      DecisionType = "done"
	DecisionError     DecisionType = "error"
	DecisionRetry     DecisionType = "retry"
	DecisionCorrect   DecisionType = "correct"
)

// ParseDecisionType parses a decision type case-insensitively
func ParseDecisionType(s string) (DecisionType, error) {
	switch d := DecisionType(strings.ToLower(strings.TrimSpace(s))); d {
	case DecisionImplement, DecisionSkip, DecisionDone, DecisionError, DecisionRetry, DecisionCorrect:
		return d, nil
	default:
		return DecisionError, fmt.Errorf("unknown decision type %q", s)
	}
}

// Decision is the master's verdict for one iteration
type Decision struct {
	Type            DecisionType   `json:"type"`
	Instruction     string         `json:"instruction"`
	Reason          string         `json:"reason"`
	ExpectedOutcome string         `json:"expected_outcome"`
	Priority        int            `json:"priority"`
	Metadata        map[string]any `json:"metadata"`
	Timestamp       time.Time      `json:"timestamp"`
}

// NewDecision stamps a decision with priority 1 and the current time
func NewDecision(t DecisionType, reason string) *Decision {
	return &Decision{Type: t, Reason: reason, Priority: 1, Metadata: map[string]any{}, Timestamp: time.Now()}
}

// DefaultMaxAttempts is the attempt budget of a fresh instruction
const DefaultMaxAttempts = 3

// Instruction is a unit of work handed from master to worker
type Instruction struct {
	Prompt          string   `json:"prompt"`
	Context         string   `json:"context"`
	FilesToModify   []string `json:"files_to_modify"`
	FilesToCreate   []string `json:"files_to_create"`
	Constraints     []string `json:"constraints"`
	ExpectedOutcome string   `json:"expected_outcome"`
	MaxAttempts     int      `json:"max_attempts"`
}

// NewInstruction creates an instruction with the default attempt budget
func NewInstruction(prompt, expectedOutcome string) *Instruction {
	return &Instruction{Prompt: prompt, ExpectedOutcome: expectedOutcome, MaxAttempts: DefaultMaxAttempts}
}

// VerificationResult is a verdict on an implementation
type VerificationResult struct {
	Passed      bool           `json:"passed"`
	Score       float64        `json:"score"`
	Issues      []string       `json:"issues"`
	Suggestions []string       `json:"suggestions"`
	Details     map[string]any `json:"details"`
}

// HistoryEntry is one past step as the master sees it
type HistoryEntry struct {
	Iteration          int          `json:"iteration"`
	Timestamp          time.Time    `json:"timestamp"`
	Decision           DecisionType `json:"decision_type"`
	Instruction        string       `json:"instruction"`
	Reason             string       `json:"reason"`
	Success            bool         `json:"success"`
	Output             string       `json:"output"`
	VerificationPassed bool         `json:"verification_passed"`
	Score              float64      `json:"verification_score"`
}

// Strategy is the behaviour shared by both roles
type Strategy interface {
	Name() string
	Agent() agent.Agent
	DecideNextStep(ctx context.Context, goalDescription string, state map[string]any, history []HistoryEntry) *Decision
	ImplementStep(ctx context.Context, in *Instruction) *agent.Response
	VerifyImplementation(ctx context.Context, in *Instruction, resp *agent.Response) *VerificationResult
	CreateCorrection(ctx context.Context, original *Instruction, issues []string) *Instruction
}

// MasterStrategy plans, verifies and corrects
type MasterStrategy interface {
	Strategy
	AnalyzeCodebase(ctx context.Context, workDir string, focus []string) map[string]any
}

// WorkerStrategy implements instructions and counts attempts
type WorkerStrategy interface {
	Strategy
	Attempts() int
	ResetAttempts()
}

func bulletLines(items []string) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
