package verify

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/agent"
)

// GoalMatcher judges whether an implementation addresses the goal, by agent
// when one is configured and by keyword overlap otherwise
type GoalMatcher struct {
	agent agent.Agent
}

func NewGoalMatcher(a agent.Agent) *GoalMatcher {
	return &GoalMatcher{agent: a}
}

func (g *GoalMatcher) Name() string { return "goal_match" }

func (g *GoalMatcher) Check(ctx context.Context, vc Context) CheckResult {
	if vc.Goal == "" || vc.Implementation == "" {
		return CheckResult{Name: g.Name(), Message: "Missing goal or implementation", Details: map[string]any{}}
	}
	if g.agent != nil {
		return g.checkWithAgent(ctx, vc)
	}
	return g.keywordMatch(vc)
}

func (g *GoalMatcher) checkWithAgent(ctx context.Context, vc Context) CheckResult {
	criteria := "None specified"
	if len(vc.Criteria) > 0 {
		lines := make([]string, len(vc.Criteria))
		for i, c := range vc.Criteria {
			lines[i] = "- " + c
		}
		criteria = strings.Join(lines, "\n")
	}

	prompt := fmt.Sprintf(`Evaluate if the implementation meets the goal.

GOAL:
%s

ACCEPTANCE CRITERIA:
%s

IMPLEMENTATION:
%s

Respond with JSON:
{
    "matches": true | false,
    "score": 0.0 to 1.0,
    "matched_criteria": ["list of met criteria"],
    "unmatched_criteria": ["list of unmet criteria"],
    "assessment": "brief assessment"
}`, vc.Goal, criteria, truncate(vc.Implementation, 3000))

	resp := g.agent.Execute(ctx, prompt, vc.WorkDir)
	if !resp.Success {
		return CheckResult{Name: g.Name(), Message: "Agent check failed: " + resp.Error, Details: map[string]any{}}
	}

	var data struct {
		Matches   bool     `json:"matches"`
		Score     float64  `json:"score"`
		Matched   []string `json:"matched_criteria"`
		Unmatched []string `json:"unmatched_criteria"`
		Assessed  string   `json:"assessment"`
	}
	if err := agent.DecodeJSON(resp.Output, &data); err != nil {
		return CheckResult{Name: g.Name(), Message: fmt.Sprintf("Failed to parse response: %v", err), Details: map[string]any{}}
	}
	return CheckResult{
		Name:    g.Name(),
		Passed:  data.Matches,
		Score:   data.Score,
		Message: data.Assessed,
		Details: map[string]any{
			"matched":   nonNil(data.Matched),
			"unmatched": nonNil(data.Unmatched),
		},
	}
}

var wordRe = regexp.MustCompile(`[\p{L}\p{N}_]+`)

func keywords(s string) map[string]bool {
	set := map[string]bool{}
	for _, w := range wordRe.FindAllString(s, -1) {
		if len([]rune(w)) > 3 {
			set[strings.ToLower(w)] = true
		}
	}
	return set
}

func (g *GoalMatcher) keywordMatch(vc Context) CheckResult {
	goalWords := keywords(vc.Goal)
	implWords := keywords(vc.Implementation)

	common := 0
	for w := range goalWords {
		if implWords[w] {
			common++
		}
	}

	score := 0.5
	if len(goalWords) > 0 {
		score = float64(common) / float64(len(goalWords))
	}
	return CheckResult{
		Name:    g.Name(),
		Passed:  score >= 0.5,
		Score:   min(1, score),
		Message: fmt.Sprintf("Keyword match: %d/%d keywords", common, len(goalWords)),
		Details: map[string]any{},
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
