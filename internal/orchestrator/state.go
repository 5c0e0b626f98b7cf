package orchestrator

import "github.com/BenniProbst/ai-orchestrator-v2/internal/role"

// State is the lifecycle of an orchestrator
type State string

const (
	StateIdle         State = "idle"
	StateInitializing State = "initializing"
	StateRunning      State = "running"
	StateVerifying    State = "verifying"
	StateCorrecting   State = "correcting"
	StateCompleted    State = "completed"
	StateFailed       State = "failed"
	StatePaused       State = "paused"
)

// Terminal reports whether no further iterations will run from s
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// HistoryEntry is one recorded step of a session
type HistoryEntry = role.HistoryEntry

// Status is the externally visible summary of a session
type Status struct {
	State         State      `json:"state" yaml:"state"`
	Iteration     int        `json:"iteration" yaml:"iteration"`
	MaxIterations int        `json:"max_iterations" yaml:"max_iterations"`
	Goal          GoalStatus `json:"goal" yaml:"goal"`
	Roles         RoleStatus `json:"roles" yaml:"roles"`
	SessionID     string     `json:"session_id" yaml:"session_id"`
}

type GoalStatus struct {
	Title     string  `json:"title" yaml:"title"`
	Progress  float64 `json:"progress" yaml:"progress"`
	Completed int     `json:"completed" yaml:"completed"`
	Total     int     `json:"total" yaml:"total"`
}

// RoleStatus names the agent type bound to each role
type RoleStatus struct {
	Master string `json:"master" yaml:"master"`
	Worker string `json:"worker" yaml:"worker"`
}
