package tui

import (
	"fmt"
	"strings"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/goal"
)

func (m WatchModel) render() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("AI Orchestrator"))
	b.WriteString("\n")

	if m.snapshot == nil {
		b.WriteString(m.spinner.View() + " " + m.styles.Muted.Render("Waiting for "+m.path))
		b.WriteString("\n")
		m.renderError(&b)
		b.WriteString(m.styles.Help.Render("q: quit"))
		return b.String()
	}

	s := m.snapshot
	b.WriteString(m.field("Goal", s.GoalTitle))
	b.WriteString(m.styles.Label.Render("State: ") + m.stateText(s.State))
	if !terminal(s.State) {
		b.WriteString(" " + m.spinner.View())
	}
	b.WriteString("\n\n")

	b.WriteString(m.bar.ViewAs(s.ProgressPercentage() / 100))
	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render(fmt.Sprintf("%d/%d criteria  ·  iteration %d",
		s.CompletedCriteria, s.TotalCriteria, s.CurrentIteration)))
	b.WriteString("\n\n")

	b.WriteString(m.styles.Border.Render(m.renderIterations(s)))
	b.WriteString("\n")

	if s.BlockedReason != "" {
		b.WriteString(m.styles.Warning.Render("Blocked: ") + s.BlockedReason)
		b.WriteString("\n")
	}
	m.renderError(&b)
	b.WriteString(m.styles.Help.Render("q: quit"))
	return b.String()
}

func (m WatchModel) renderIterations(s *goal.Snapshot) string {
	its := s.Iterations
	if len(its) == 0 {
		return m.styles.Muted.Render("No iterations yet")
	}
	if len(its) > recentIterations {
		its = its[len(its)-recentIterations:]
	}
	lines := make([]string, len(its))
	for i, it := range its {
		mark := m.styles.Success.Render("✓")
		if !it.Success {
			mark = m.styles.Error.Render("✗")
		}
		lines[i] = fmt.Sprintf("%s #%d %s", mark, it.Iteration, oneLine(it.Action, 60))
	}
	return strings.Join(lines, "\n")
}

func (m WatchModel) renderError(b *strings.Builder) {
	if m.err == nil {
		return
	}
	b.WriteString(m.styles.Error.Render("Error: ") + m.err.Error())
	b.WriteString("\n")
}

func (m WatchModel) field(label, value string) string {
	return m.styles.Label.Render(label+": ") + m.styles.Value.Render(value) + "\n"
}

func (m WatchModel) stateText(state goal.ProgressState) string {
	switch state {
	case goal.ProgressCompleted:
		return m.styles.Success.Render(string(state))
	case goal.ProgressFailed:
		return m.styles.Error.Render(string(state))
	case goal.ProgressBlocked:
		return m.styles.Warning.Render(string(state))
	default:
		return m.styles.Value.Render(string(state))
	}
}

func terminal(state goal.ProgressState) bool {
	return state == goal.ProgressCompleted || state == goal.ProgressFailed
}

// oneLine flattens s and cuts it to n runes
func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
