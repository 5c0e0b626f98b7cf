package orchestrator

import (
	"context"
	"os"
	"path/filepath"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/checkpoint"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/config"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/errors"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/goal"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/hooks"
)

// SwapRoles exchanges the master and worker agents. Call it between
// iterations; roles, validator and engine are rebuilt around the new master.
func (o *Orchestrator) SwapRoles() {
	o.logger.Info("swapping roles")
	o.cfg.MasterAgentType, o.cfg.WorkerAgentType = o.cfg.WorkerAgentType, o.cfg.MasterAgentType
	o.masterAgent, o.workerAgent = o.workerAgent, o.masterAgent
	if o.masterAgent != nil && o.workerAgent != nil {
		o.buildRoles()
	}
	o.logger.Info("roles swapped", "master", o.cfg.MasterAgentType, "worker", o.cfg.WorkerAgentType)
	o.fire(context.Background(), hooks.EventRolesSwapped, map[string]any{
		"master": string(o.cfg.MasterAgentType),
		"worker": string(o.cfg.WorkerAgentType),
	})
}

// Pause marks the session paused and checkpoints it
func (o *Orchestrator) Pause() {
	o.setState(StatePaused)
	o.saveCheckpoint()
	o.logger.Info("orchestration paused")
}

// Resume restores the session stored at path and continues the loop. With an
// empty path the in-memory session is resumed.
func (o *Orchestrator) Resume(ctx context.Context, path string) bool {
	if path == "" {
		if o.sessionID == "" {
			o.lastErr = errors.NewNoSessionError()
			o.logger.Error("no session to resume")
			return false
		}
		o.logger.Info("resuming", "session", o.sessionID, "iteration", o.iteration)
		return o.Run(ctx)
	}

	doc, err := checkpoint.LoadFile(path)
	if err != nil {
		o.logger.LogError(err, "failed to load checkpoint")
		o.metrics.ObserveError("checkpoint", err)
		o.lastErr = err
		return false
	}
	if doc.Config != nil {
		cfg, err := config.FromMap(o.cfg, doc.Config)
		if err != nil {
			o.logger.LogError(err, "failed to restore config")
			o.lastErr = err
			return false
		}
		o.cfg = cfg
	}

	o.sessionID = doc.SessionID
	o.startedAt = doc.StartedAt
	o.iteration = doc.Iteration
	o.history = append([]HistoryEntry{}, doc.History...)
	o.currentDecision = doc.CurrentDecision

	progress := o.loadProgress()
	if !o.initialize(ctx) {
		return false
	}
	if doc.GoalHash != "" && doc.GoalHash != o.goalHash {
		o.logger.Warn("goal changed since checkpoint", "checkpoint_hash", doc.GoalHash, "goal_hash", o.goalHash)
	} else if progress != nil {
		o.restoreProgress(progress)
	}
	o.openMessageLog()

	o.logger.Info("resuming", "session", o.sessionID, "iteration", o.iteration)
	return o.Run(ctx)
}

// loadProgress reads the tracker snapshot left by a previous run, if any
func (o *Orchestrator) loadProgress() *goal.Snapshot {
	path := filepath.Join(o.cfg.SessionPath(), goal.ProgressFile)
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	s, err := goal.LoadSnapshot(path)
	if err != nil {
		o.logger.Warn("ignoring unreadable progress file", "path", path, "error", err)
		return nil
	}
	return s
}

// restoreProgress reapplies criterion states recorded by the tracker
func (o *Orchestrator) restoreProgress(s *goal.Snapshot) {
	restored := 0
	for id, status := range s.CriteriaStatus {
		c := o.goal.FindCriterion(id)
		if c == nil {
			continue
		}
		switch status {
		case goal.StatusCompleted:
			c.MarkCompleted()
			restored++
		case goal.StatusFailed:
			c.MarkFailed()
		}
	}
	o.tracker.SyncWithGoal(o.goal)
	o.logger.Debug("restored criterion progress", "completed", restored)
}

// SaveCheckpoint writes the session to session_dir/checkpoint_<id>.json
func (o *Orchestrator) SaveCheckpoint() (string, error) {
	if o.sessionID == "" {
		return "", errors.NewNoSessionError()
	}
	if o.checkpoints == nil {
		o.checkpoints = checkpoint.NewManager(o.cfg.SessionPath())
	}
	title := ""
	if o.goal != nil {
		title = o.goal.Title
	}
	return o.checkpoints.Save(&checkpoint.Document{
		SessionID:       o.sessionID,
		StartedAt:       o.startedAt,
		State:           string(o.state),
		Iteration:       o.iteration,
		GoalTitle:       title,
		GoalHash:        o.goalHash,
		Config:          o.cfg.ToMap(),
		History:         o.History(),
		CurrentDecision: o.currentDecision,
	})
}

func (o *Orchestrator) saveCheckpoint() string {
	path, err := o.SaveCheckpoint()
	if err != nil {
		o.logger.Warn("failed to save checkpoint", "error", err)
		o.metrics.ObserveError("checkpoint", err)
		return ""
	}
	o.logger.Info("checkpoint saved", "path", path)
	return path
}

// Status reports the session state. It is safe before Initialize.
func (o *Orchestrator) Status() Status {
	s := Status{
		State:         o.state,
		Iteration:     o.iteration,
		MaxIterations: o.cfg.MaxIterations,
		Roles: RoleStatus{
			Master: string(o.cfg.MasterAgentType),
			Worker: string(o.cfg.WorkerAgentType),
		},
		SessionID: o.sessionID,
	}
	if o.goal != nil {
		s.Goal = GoalStatus{
			Title:     o.goal.Title,
			Progress:  o.goal.ProgressPercentage(),
			Completed: o.goal.CompletedCriteria(),
			Total:     o.goal.TotalCriteria(),
		}
	}
	return s
}

// ProgressSummary renders the tracker summary
func (o *Orchestrator) ProgressSummary() string {
	if o.tracker == nil {
		return "No progress data available"
	}
	return o.tracker.Summary()
}
