package ux

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/goal"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/orchestrator"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63"))
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
	valueStyle = lipgloss.NewStyle().
			Bold(true)
	successStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("46"))
	failureStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("226"))
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
)

// StatusView is an orchestrator status with a text rendering
type StatusView struct {
	orchestrator.Status `yaml:",inline"`
}

func (v StatusView) Text() string { return RenderStatus(v.Status) }

// RenderStatus renders a session status as a bordered block
func RenderStatus(s orchestrator.Status) string {
	title := s.Goal.Title
	if title == "" {
		title = "(no goal loaded)"
	}
	rows := []string{
		titleStyle.Render(title),
		row("State", stateStyle(string(s.State)).Render(string(s.State))),
		row("Iteration", fmt.Sprintf("%d/%d", s.Iteration, s.MaxIterations)),
		row("Progress", fmt.Sprintf("%s %d/%d (%.1f%%)", bar(s.Goal.Progress, 20), s.Goal.Completed, s.Goal.Total, s.Goal.Progress)),
		row("Master", s.Roles.Master),
		row("Worker", s.Roles.Worker),
	}
	if s.SessionID != "" {
		rows = append(rows, row("Session", s.SessionID))
	}
	return boxStyle.Render(strings.Join(rows, "\n"))
}

// SnapshotView is a progress snapshot with a text rendering
type SnapshotView struct {
	goal.Snapshot `yaml:",inline"`
}

func (v SnapshotView) Text() string { return RenderSnapshot(&v.Snapshot) }

// RenderSnapshot renders a tracker snapshot with its last iterations
func RenderSnapshot(s *goal.Snapshot) string {
	rows := []string{
		titleStyle.Render(s.GoalTitle),
		row("State", stateStyle(string(s.State)).Render(string(s.State))),
		row("Progress", fmt.Sprintf("%s %d/%d (%.1f%%)", bar(s.ProgressPercentage(), 20),
			s.CompletedCriteria, s.TotalCriteria, s.ProgressPercentage())),
		row("Iterations", fmt.Sprintf("%d", s.CurrentIteration)),
		row("Duration", fmt.Sprintf("%.1f minutes", s.Duration().Minutes())),
	}
	if s.BlockedReason != "" {
		rows = append(rows, row("Blocked", warningStyle.Render(s.BlockedReason)))
	}

	its := s.Iterations
	if len(its) > 5 {
		its = its[len(its)-5:]
	}
	if len(its) > 0 {
		rows = append(rows, "", labelStyle.Render("Recent iterations:"))
		for _, it := range its {
			mark := successStyle.Render("✓")
			if !it.Success {
				mark = failureStyle.Render("✗")
			}
			rows = append(rows, fmt.Sprintf("  %s #%d %s", mark, it.Iteration, it.Action))
		}
	}
	return boxStyle.Render(strings.Join(rows, "\n"))
}

func row(label, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-11s", label+":")) + valueStyle.Render(value)
}

func stateStyle(state string) lipgloss.Style {
	switch state {
	case "completed":
		return successStyle
	case "failed":
		return failureStyle
	case "paused", "blocked":
		return warningStyle
	default:
		return valueStyle
	}
}

// bar draws a fixed-width text progress bar for percent in [0, 100]
func bar(percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	filled = min(max(filled, 0), width)
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}
