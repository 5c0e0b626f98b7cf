package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/agent"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/goal"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/history"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/hooks"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/log"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/metrics"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/protocol"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/role"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/verify"
)

// Option configures an Orchestrator
type Option func(*Orchestrator)

// HistoryStore receives every recorded step
type HistoryStore interface {
	Record(sessionID string, row history.Row) error
}

// WithGoal uses g instead of loading the configured goal file
func WithGoal(g *goal.Goal) Option {
	return func(o *Orchestrator) { o.goal = g }
}

func WithLogger(l *log.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithAgentFactory replaces the factory agents are built from
func WithAgentFactory(f *agent.Factory) Option {
	return func(o *Orchestrator) { o.factory = f }
}

// WithAgents binds fixed agents to the master and worker roles.
// The configured agent types are then used for display only.
func WithAgents(master, worker agent.Agent) Option {
	return func(o *Orchestrator) {
		o.masterAgent = master
		o.workerAgent = worker
		o.fixedAgents = true
	}
}

// WithMetrics records loop metrics into m. When gatherer is set and a
// metrics file is configured, the textfile is written at the end of Run.
func WithMetrics(m *metrics.Metrics, gatherer prometheus.Gatherer) Option {
	return func(o *Orchestrator) {
		o.metrics = m
		o.gatherer = gatherer
	}
}

func WithHooks(r *hooks.Registry) Option {
	return func(o *Orchestrator) { o.hooks = r }
}

func WithHistoryStore(s HistoryStore) Option {
	return func(o *Orchestrator) { o.historyStore = s }
}

// WithVerifier replaces the default verification engine. It survives role swaps.
func WithVerifier(e *verify.Engine) Option {
	return func(o *Orchestrator) {
		o.engine = e
		o.customEngine = e != nil
	}
}

// WithStrategies overrides how roles are built from agents
func WithStrategies(newMaster func(agent.Agent) role.MasterStrategy, newWorker func(agent.Agent) role.WorkerStrategy) Option {
	return func(o *Orchestrator) {
		if newMaster != nil {
			o.newMaster = newMaster
		}
		if newWorker != nil {
			o.newWorker = newWorker
		}
	}
}

// WithMessageLog records protocol messages exchanged between the roles
func WithMessageLog(l *protocol.MessageLog) Option {
	return func(o *Orchestrator) { o.messageLog = l }
}
