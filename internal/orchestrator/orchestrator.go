// Package orchestrator drives the master/worker loop toward a goal.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/agent"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/checkpoint"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/config"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/goal"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/hooks"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/log"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/metrics"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/protocol"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/role"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/verify"
)

// Orchestrator runs one session. It is not safe for concurrent use; the
// loop is the single writer of goal, tracker and checkpoint state.
type Orchestrator struct {
	cfg    config.Config
	logger *log.Logger
	state  State

	goal     *goal.Goal
	goalHash string

	factory     *agent.Factory
	masterAgent agent.Agent
	workerAgent agent.Agent
	fixedAgents bool

	newMaster func(agent.Agent) role.MasterStrategy
	newWorker func(agent.Agent) role.WorkerStrategy
	master    role.MasterStrategy
	worker    role.WorkerStrategy

	validator    *goal.Validator
	engine       *verify.Engine
	customEngine bool
	tracker      *goal.Tracker
	checkpoints  *checkpoint.Manager

	metrics        *metrics.Metrics
	gatherer       prometheus.Gatherer
	hooks          *hooks.Registry
	historyStore   HistoryStore
	messageLog     *protocol.MessageLog
	ownsMessageLog bool

	sessionID       string
	startedAt       time.Time
	iteration       int
	history         []HistoryEntry
	currentDecision *role.Decision
	lastErr         error
}

// New creates an orchestrator for cfg. Nothing is started until Initialize or Run.
func New(cfg config.Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:       cfg,
		logger:    log.Nop(),
		state:     StateIdle,
		newMaster: func(a agent.Agent) role.MasterStrategy { return role.NewMaster(a) },
		newWorker: func(a agent.Agent) role.WorkerStrategy { return role.NewWorker(a) },
		history:   []HistoryEntry{},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.factory == nil {
		o.factory = agent.NewFactory()
		for _, t := range agent.Types() {
			o.factory.Configure(t, cfg.AgentConfig(t))
		}
	}
	if o.hooks != nil {
		o.hooks.SetLogger(o.logger.WithGroup("hooks"))
	}
	return o
}

func (o *Orchestrator) State() State          { return o.state }
func (o *Orchestrator) Iteration() int        { return o.iteration }
func (o *Orchestrator) SessionID() string     { return o.sessionID }
func (o *Orchestrator) Goal() *goal.Goal      { return o.goal }
func (o *Orchestrator) Config() config.Config { return o.cfg }

// LastError returns the error that made the last Initialize or Run fail
func (o *Orchestrator) LastError() error { return o.lastErr }

// History returns a copy of the recorded steps
func (o *Orchestrator) History() []HistoryEntry {
	return append([]HistoryEntry(nil), o.history...)
}

func (o *Orchestrator) setState(s State) {
	if o.state != s {
		o.logger.Debug("state transition", "from", o.state, "to", s)
	}
	o.state = s
}

// Initialize loads the goal, builds agents and roles and allocates a new
// session. It returns false when the goal cannot be loaded.
func (o *Orchestrator) Initialize(ctx context.Context) bool {
	if !o.initialize(ctx) {
		return false
	}
	o.sessionID = uuid.NewString()[:8]
	o.startedAt = time.Now()
	o.iteration = 0
	o.history = []HistoryEntry{}
	o.currentDecision = nil
	o.openMessageLog()
	o.setState(StateIdle)
	o.logger.Info("initialization complete", "session", o.sessionID, "goal", o.goal.Title)
	return true
}

// initialize builds every component but leaves the session untouched
func (o *Orchestrator) initialize(ctx context.Context) bool {
	o.setState(StateInitializing)
	o.logger.Info("initializing orchestrator",
		"master", o.cfg.MasterAgentType, "worker", o.cfg.WorkerAgentType, "work_dir", o.cfg.WorkDir)

	if o.goal == nil {
		path := o.cfg.GoalPath()
		g, err := goal.ParseFile(path)
		if err != nil {
			o.logger.LogError(err, "failed to load goal")
			o.metrics.ObserveError("goal", err)
			o.lastErr = err
			o.setState(StateFailed)
			return false
		}
		o.goal = g
		o.logger.Info("loaded goal", "title", g.Title, "criteria", g.TotalCriteria())
	}
	o.goalHash = hashGoal(o.goal)

	if !o.fixedAgents {
		master, worker, err := o.factory.CreatePair(o.cfg.MasterAgentType, o.cfg.WorkerAgentType)
		if err != nil {
			o.logger.LogError(err, "failed to create agents")
			o.metrics.ObserveError("agent", err)
			o.lastErr = err
			o.setState(StateFailed)
			return false
		}
		o.masterAgent, o.workerAgent = master, worker
	}
	if !o.masterAgent.IsAvailable() {
		o.logger.Warn("master agent not available", "type", o.masterAgent.Type())
	}
	if !o.workerAgent.IsAvailable() {
		o.logger.Warn("worker agent not available", "type", o.workerAgent.Type())
	}

	o.buildRoles()

	o.tracker = goal.NewTracker(o.goal, o.cfg.SessionPath(), true)
	o.tracker.SetLogger(o.logger.WithGroup("progress"))
	o.checkpoints = checkpoint.NewManager(o.cfg.SessionPath())
	o.lastErr = nil
	return true
}

// buildRoles binds fresh strategies, validator and engine to the current agents
func (o *Orchestrator) buildRoles() {
	o.master = o.newMaster(o.masterAgent)
	o.worker = o.newWorker(o.workerAgent)
	o.validator = goal.NewValidator(o.masterAgent, o.cfg.StrictVerification)
	if !o.customEngine {
		o.engine = verify.DefaultEngine(o.masterAgent)
	}
	o.engine.SetLogger(o.logger.WithGroup("verify"))
}

func (o *Orchestrator) openMessageLog() {
	if !o.cfg.MessageLog || o.messageLog != nil {
		return
	}
	l, err := protocol.OpenMessageLog(o.cfg.SessionPath(), o.sessionID)
	if err != nil {
		o.logger.Warn("message log disabled", "error", err)
		return
	}
	o.messageLog = l
	o.ownsMessageLog = true
}

// Close releases resources the orchestrator opened itself
func (o *Orchestrator) Close() error {
	if o.ownsMessageLog && o.messageLog != nil {
		err := o.messageLog.Close()
		o.messageLog = nil
		o.ownsMessageLog = false
		return err
	}
	return nil
}

func hashGoal(g *goal.Goal) string {
	if g.RawContent != "" {
		return goal.Hash(g.RawContent)
	}
	return goal.Hash(goal.ToMarkdown(g))
}

// currentState is the digest the master decides on
func (o *Orchestrator) currentState() map[string]any {
	pending := []string{}
	for _, c := range o.goal.PendingCriteria() {
		pending = append(pending, c.Description)
	}
	lastSuccess := true
	if n := len(o.history); n > 0 {
		lastSuccess = o.history[n-1].Success
	}
	return map[string]any{
		"iteration":          o.iteration,
		"goal_progress":      o.goal.ProgressPercentage(),
		"completed_criteria": o.goal.CompletedCriteria(),
		"total_criteria":     o.goal.TotalCriteria(),
		"pending_criteria":   pending,
		"last_success":       lastSuccess,
		"state":              string(o.state),
	}
}

// goalPrompt renders the goal the way the master sees it
func (o *Orchestrator) goalPrompt() string {
	lines := []string{"# " + o.goal.Title, "", o.goal.Description, "", "## Acceptance Criteria"}
	for _, c := range o.goal.AcceptanceCriteria {
		box := "[ ]"
		if c.Completed {
			box = "[x]"
		}
		lines = append(lines, fmt.Sprintf("- %s %s", box, c.Description))
	}
	if len(o.goal.Constraints) > 0 {
		lines = append(lines, "", "## Constraints")
		for _, c := range o.goal.Constraints {
			lines = append(lines, "- "+c)
		}
	}
	return strings.Join(lines, "\n")
}

func (o *Orchestrator) fire(ctx context.Context, t hooks.EventType, data map[string]any) {
	if o.hooks == nil {
		return
	}
	o.hooks.Trigger(context.WithoutCancel(ctx), hooks.NewEvent(t, o.sessionID, data))
}

func (o *Orchestrator) logMessage(m *protocol.Message) {
	if o.messageLog == nil {
		return
	}
	if err := o.messageLog.Append(m); err != nil {
		o.logger.Warn("failed to append message", "type", m.Type, "error", err)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
