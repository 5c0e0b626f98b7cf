package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/goal"
)

// GoalAnswers holds the raw wizard input. List fields take one item per line.
type GoalAnswers struct {
	Title       string
	Description string
	Criteria    string
	Quality     string
	Constraints string
}

// Goal converts the answers into a goal with pending criteria
func (a GoalAnswers) Goal() (*goal.Goal, error) {
	title := strings.TrimSpace(a.Title)
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}
	criteria := lines(a.Criteria)
	if len(criteria) == 0 {
		return nil, fmt.Errorf("at least one acceptance criterion is required")
	}
	return goal.NewGoal(title, strings.TrimSpace(a.Description), criteria, lines(a.Quality), lines(a.Constraints)), nil
}

// lines splits s into trimmed non-empty lines, dropping list markers
func lines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimLeft(line, "-*"))
		line = strings.TrimSpace(strings.TrimPrefix(line, "[ ]"))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

// GoalWizard interactively asks for a goal
func GoalWizard() (*goal.Goal, error) {
	var a GoalAnswers

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Goal title").
				Placeholder("Build a todo CLI").
				Validate(required("title")).
				Value(&a.Title),
			huh.NewText().
				Title("Description").
				Value(&a.Description),
		),
		huh.NewGroup(
			huh.NewText().
				Title("Acceptance criteria").
				Description("One per line").
				Validate(required("acceptance criteria")).
				Value(&a.Criteria),
			huh.NewText().
				Title("Quality requirements").
				Description("One per line, optional").
				Value(&a.Quality),
			huh.NewText().
				Title("Constraints").
				Description("One per line, optional").
				Value(&a.Constraints),
		),
	)

	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("goal wizard failed: %w", err)
	}
	return a.Goal()
}

// Confirm displays a yes/no prompt
func Confirm(message string, defaultValue bool) (bool, error) {
	confirmed := defaultValue
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(message).
			Value(&confirmed),
	))
	if err := form.Run(); err != nil {
		return false, fmt.Errorf("prompt failed: %w", err)
	}
	return confirmed, nil
}
