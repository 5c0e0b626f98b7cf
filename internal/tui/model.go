// Package tui renders live session progress and interactive goal authoring.
package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/goal"
)

// recentIterations is how many tracker records the view lists
const recentIterations = 5

// ProgressMsg carries a freshly read progress snapshot
type ProgressMsg struct {
	Snapshot *goal.Snapshot
}

// ErrMsg reports a failure of the snapshot source
type ErrMsg struct {
	Err error
}

type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// WatchModel follows progress.json of a running session
type WatchModel struct {
	path     string
	snapshot *goal.Snapshot
	err      error

	bar     progress.Model
	spinner spinner.Model

	width    int
	quitting bool
	styles   Styles
}

// Styles contains lipgloss styles for the watch view
type Styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Muted   lipgloss.Style
	Border  lipgloss.Style
	Help    lipgloss.Style
}

// DefaultStyles returns the default lipgloss styles
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")).
			MarginBottom(1),
		Label: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		Value: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")),
		Success: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("46")),
		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")),
		Warning: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("226")),
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1),
	}
}

// NewWatchModel creates a model for the progress file at path
func NewWatchModel(path string) WatchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))

	return WatchModel{
		path: path,
		bar: progress.New(
			progress.WithGradient("#5A56E0", "#00FF87"),
			progress.WithWidth(40),
		),
		spinner: s,
		styles:  DefaultStyles(),
	}
}

// Snapshot returns the most recent snapshot, or nil before the first one
func (m WatchModel) Snapshot() *goal.Snapshot { return m.snapshot }

func (m WatchModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(max(msg.Width-10, 10), 60)
		return m, nil

	case ProgressMsg:
		m.snapshot = msg.Snapshot
		m.err = nil
		return m, nil

	case ErrMsg:
		m.err = msg.Err
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m WatchModel) View() string {
	if m.quitting {
		return ""
	}
	return m.render()
}
