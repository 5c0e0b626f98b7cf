package goal

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/agent"
)

// ValidationStatus is the overall verdict of a goal validation
type ValidationStatus string

const (
	ValidationNotStarted        ValidationStatus = "not_started"
	ValidationInProgress        ValidationStatus = "in_progress"
	ValidationPartiallyAchieved ValidationStatus = "partially_achieved"
	ValidationAchieved          ValidationStatus = "achieved"
	ValidationFailed            ValidationStatus = "failed"
)

// CriterionValidation is the verdict for one acceptance criterion
type CriterionValidation struct {
	Criterion  *AcceptanceCriterion `json:"criterion"`
	Passed     bool                 `json:"passed"`
	Confidence float64              `json:"confidence"`
	Evidence   string               `json:"evidence"`
	Issues     []string             `json:"issues"`
}

// ValidationResult aggregates every criterion verdict
type ValidationResult struct {
	Status          ValidationStatus      `json:"status"`
	OverallScore    float64               `json:"overall_score"`
	CriteriaResults []CriterionValidation `json:"criteria_results"`
	Summary         string                `json:"summary"`
	Recommendations []string              `json:"recommendations"`
}

func (r *ValidationResult) PassedCount() int {
	n := 0
	for _, c := range r.CriteriaResults {
		if c.Passed {
			n++
		}
	}
	return n
}

func (r *ValidationResult) TotalCount() int { return len(r.CriteriaResults) }

// PassRate is 0 when nothing was validated
func (r *ValidationResult) PassRate() float64 {
	if len(r.CriteriaResults) == 0 {
		return 0
	}
	return float64(r.PassedCount()) / float64(len(r.CriteriaResults))
}

// CriterionValidatorFunc validates criteria carrying a registered tag
type CriterionValidatorFunc func(ctx context.Context, c *AcceptanceCriterion, vctx map[string]any) CriterionValidation

// Validator decides whether a goal's acceptance criteria are met
type Validator struct {
	agent  agent.Agent
	strict bool
	custom map[string]CriterionValidatorFunc
}

// NewValidator creates a validator. a may be nil; strict disables the 80% rule.
func NewValidator(a agent.Agent, strict bool) *Validator {
	return &Validator{agent: a, strict: strict, custom: map[string]CriterionValidatorFunc{}}
}

// RegisterValidator routes criteria tagged with tag to fn
func (v *Validator) RegisterValidator(tag string, fn CriterionValidatorFunc) {
	v.custom[tag] = fn
}

// Validate checks every criterion of g against vctx
func (v *Validator) Validate(ctx context.Context, g *Goal, vctx map[string]any) *ValidationResult {
	results := make([]CriterionValidation, 0, len(g.AcceptanceCriteria))
	for _, c := range g.AcceptanceCriteria {
		results = append(results, v.ValidateCriterion(ctx, c, vctx))
	}

	score := 0.0
	if len(results) > 0 {
		for _, r := range results {
			if r.Passed {
				score += r.Confidence
			}
		}
		score /= float64(len(results))
	}

	summary, recs := feedback(results, g)
	return &ValidationResult{
		Status:          v.status(results, score),
		OverallScore:    score,
		CriteriaResults: results,
		Summary:         summary,
		Recommendations: recs,
	}
}

// ValidateCriterion checks a single criterion
func (v *Validator) ValidateCriterion(ctx context.Context, c *AcceptanceCriterion, vctx map[string]any) CriterionValidation {
	for _, tag := range c.Tags {
		if fn, ok := v.custom[tag]; ok {
			return fn(ctx, c, vctx)
		}
	}

	if c.Completed {
		return CriterionValidation{Criterion: c, Passed: true, Confidence: 0.9, Evidence: "Marked as completed", Issues: []string{}}
	}

	if v.agent != nil {
		return v.validateWithAgent(ctx, c, vctx)
	}

	return CriterionValidation{
		Criterion:  c,
		Passed:     false,
		Confidence: 0.5,
		Evidence:   "No validation performed",
		Issues:     []string{"No validator available for this criterion"},
	}
}

func (v *Validator) validateWithAgent(ctx context.Context, c *AcceptanceCriterion, vctx map[string]any) CriterionValidation {
	prompt := fmt.Sprintf(`Validate if the following acceptance criterion is met.

CRITERION:
%s

CONTEXT:
%s

Respond in this exact JSON format:
{
    "passed": true | false,
    "confidence": 0.0 to 1.0,
    "evidence": "What evidence supports this conclusion",
    "issues": ["List of issues if not passed"]
}`, c.Description, FormatContext(vctx))

	resp := v.agent.Execute(ctx, prompt, "")
	if !resp.Success {
		return CriterionValidation{Criterion: c, Evidence: "Validation failed: " + resp.Error, Issues: []string{}}
	}

	data := struct {
		Passed     bool     `json:"passed"`
		Confidence *float64 `json:"confidence"`
		Evidence   string   `json:"evidence"`
		Issues     []string `json:"issues"`
	}{}
	if err := agent.DecodeJSON(resp.Output, &data); err != nil {
		return CriterionValidation{Criterion: c, Evidence: fmt.Sprintf("Failed to parse validation: %v", err), Issues: []string{}}
	}

	confidence := 0.5
	if data.Confidence != nil {
		confidence = *data.Confidence
	}
	return CriterionValidation{
		Criterion:  c,
		Passed:     data.Passed,
		Confidence: confidence,
		Evidence:   data.Evidence,
		Issues:     nonNil(data.Issues),
	}
}

func (v *Validator) status(results []CriterionValidation, score float64) ValidationStatus {
	if len(results) == 0 {
		return ValidationNotStarted
	}
	passed := 0
	for _, r := range results {
		if r.Passed {
			passed++
		}
	}
	total := len(results)

	if passed == 0 {
		if score > 0 {
			return ValidationInProgress
		}
		return ValidationNotStarted
	}
	if passed == total {
		return ValidationAchieved
	}

	rate := float64(passed) / float64(total)
	switch {
	case !v.strict && rate >= 0.8:
		return ValidationAchieved
	case rate >= 0.5:
		return ValidationPartiallyAchieved
	default:
		return ValidationInProgress
	}
}

func feedback(results []CriterionValidation, g *Goal) (string, []string) {
	var failed []CriterionValidation
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}

	summary := []string{
		fmt.Sprintf("Validated %d criteria: %d passed, %d pending/failed.", len(results), len(results)-len(failed), len(failed)),
	}
	if len(failed) > 0 {
		summary = append(summary, "Outstanding items:")
		for _, r := range failed[:min(3, len(failed))] {
			summary = append(summary, fmt.Sprintf("  - %s...", truncate(r.Criterion.Description, 50)))
		}
	}

	recs := []string{}
	if len(failed) > 0 {
		recs = append(recs, fmt.Sprintf("Complete the %d remaining acceptance criteria.", len(failed)))
		var issues []string
		for _, r := range failed {
			issues = append(issues, r.Issues...)
		}
		if len(issues) > 0 {
			recs = append(recs, "Address the following issues:")
			for _, issue := range issues[:min(5, len(issues))] {
				recs = append(recs, "  - "+issue)
			}
		}
	}
	if len(g.QualityRequirements) == 0 {
		recs = append(recs, "Consider adding quality requirements to the goal.")
	}

	return strings.Join(summary, "\n"), recs
}

// FormatContext renders validation context for a prompt. Keys are sorted.
func FormatContext(vctx map[string]any) string {
	if len(vctx) == 0 {
		return "No additional context provided."
	}

	keys := make([]string, 0, len(vctx))
	for k := range vctx {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		switch value := vctx[key].(type) {
		case []string:
			parts = append(parts, key+":\n"+bulletList(value))
		case []any:
			items := make([]string, len(value))
			for i, item := range value {
				items[i] = fmt.Sprint(item)
			}
			parts = append(parts, key+":\n"+bulletList(items))
		case map[string]any:
			data, _ := json.MarshalIndent(value, "", "  ")
			parts = append(parts, key+":\n"+truncate(string(data), 500))
		default:
			parts = append(parts, key+": "+truncate(fmt.Sprint(value), 200))
		}
	}
	return strings.Join(parts, "\n\n")
}

func bulletList(items []string) string {
	items = items[:min(10, len(items))]
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "  - " + item
	}
	return strings.Join(lines, "\n")
}

// UpdateGoalStatus applies validation verdicts back onto g by criterion ID
func UpdateGoalStatus(g *Goal, result *ValidationResult) {
	for _, r := range result.CriteriaResults {
		if r.Criterion == nil {
			continue
		}
		c := g.FindCriterion(r.Criterion.ID)
		if c == nil {
			continue
		}
		if r.Passed {
			c.MarkCompleted()
		} else if r.Confidence < 0.3 {
			c.MarkFailed()
		}
	}
}

// truncate cuts s to at most n runes
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
