package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/agent"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/goal"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/history"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/hooks"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/metrics"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/protocol"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/role"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/verify"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/workspace"
)

// Run drives the loop until the goal is achieved, the iteration budget is
// spent or ctx is cancelled. It reports whether the goal was achieved.
func (o *Orchestrator) Run(ctx context.Context) (achieved bool) {
	if o.sessionID == "" {
		if !o.Initialize(ctx) {
			return false
		}
	}

	o.setState(StateRunning)
	o.tracker.Start()
	o.logger.Info("starting orchestration", "goal", o.goal.Title, "session", o.sessionID,
		"iteration", o.iteration, "max_iterations", o.cfg.MaxIterations)
	o.fire(ctx, hooks.EventSessionStart, map[string]any{
		"goal":           o.goal.Title,
		"iteration":      o.iteration,
		"max_iterations": o.cfg.MaxIterations,
	})

	defer o.finish()
	defer func() {
		if r := recover(); r != nil {
			o.fail(ctx, fmt.Sprintf("%v", r))
			achieved = false
		}
	}()

	for o.iteration < o.cfg.MaxIterations {
		if ctx.Err() != nil {
			return o.interrupt(ctx)
		}
		o.iteration++
		o.metrics.ObserveIteration()
		o.logger.Info("iteration started", "iteration", o.iteration)

		done, err := o.step(ctx)
		if err != nil {
			if ctx.Err() != nil {
				// the interrupted iteration is redone on resume
				o.iteration--
				return o.interrupt(ctx)
			}
			o.fail(ctx, err.Error())
			return false
		}
		if done {
			return o.complete(ctx)
		}

		o.fire(ctx, hooks.EventIterationComplete, map[string]any{
			"iteration": o.iteration,
			"decision":  string(o.currentDecision.Type),
			"progress":  o.goal.ProgressPercentage(),
		})

		if o.iteration%o.cfg.CheckpointInterval == 0 {
			o.saveCheckpoint()
		}
		if o.goal.IsAchieved() {
			o.logger.Info("all criteria completed")
			return o.complete(ctx)
		}
	}

	o.logger.Warn("max iterations reached", "max_iterations", o.cfg.MaxIterations)
	o.setState(StateFailed)
	o.tracker.MarkFailed(fmt.Sprintf("Max iterations (%d) reached", o.cfg.MaxIterations))
	o.saveCheckpoint()
	o.fire(ctx, hooks.EventSessionFailed, map[string]any{
		"reason":    "max_iterations",
		"iteration": o.iteration,
	})
	return false
}

// step runs one pass of the loop. It returns true when the master declares
// the goal done.
func (o *Orchestrator) step(ctx context.Context) (bool, error) {
	start := time.Now()
	decision := o.master.DecideNextStep(ctx, o.goalPrompt(), o.currentState(), o.history)
	o.metrics.ObserveAgentCall("master", time.Since(start))
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if decision == nil {
		return false, errors.New("master returned no decision")
	}

	o.currentDecision = decision
	o.metrics.ObserveDecision(string(decision.Type))
	o.logMessage(protocol.NewDecision("master", "worker", protocol.Decision{
		DecisionType:    strings.ToUpper(string(decision.Type)),
		Instruction:     decision.Instruction,
		Reason:          decision.Reason,
		ExpectedOutcome: decision.ExpectedOutcome,
	}))
	o.logger.Info("master decision", "type", decision.Type, "reason", truncate(decision.Reason, 100))

	switch decision.Type {
	case role.DecisionDone:
		return true, nil
	case role.DecisionSkip:
		o.logger.Info("skipping step", "reason", decision.Reason)
		o.record(decision, nil, nil)
		return false, nil
	case role.DecisionError:
		o.logger.Error("error decision", "reason", decision.Reason)
		o.tracker.MarkBlocked(decision.Reason)
		return false, nil
	}

	in := role.NewInstruction(decision.Instruction, decision.ExpectedOutcome)
	resp, ver, err := o.implementAndVerify(ctx, in)
	if err != nil {
		return false, err
	}

	if ver.Passed {
		o.logger.Info("verification passed", "score", ver.Score)
		o.accept(ctx, decision, resp, ver)
		return false, nil
	}

	o.logger.Warn("verification failed", "issues", ver.Issues)
	return false, o.correct(ctx, in, resp, ver)
}

// implementAndVerify has the worker implement in and the master judge it.
// With run_checks, a passing verdict is also held against the engine.
func (o *Orchestrator) implementAndVerify(ctx context.Context, in *role.Instruction) (*agent.Response, *role.VerificationResult, error) {
	req := protocol.NewRequest("master", "worker", protocol.Request{
		Instruction:     in.Prompt,
		Context:         in.Context,
		ExpectedOutcome: in.ExpectedOutcome,
		Constraints:     in.Constraints,
		FilesToModify:   in.FilesToModify,
		FilesToCreate:   in.FilesToCreate,
		TimeoutSeconds:  o.cfg.TimeoutSeconds,
		RetryCount:      o.worker.Attempts(),
	})
	o.logMessage(req)

	start := time.Now()
	resp := o.worker.ImplementStep(ctx, in)
	o.metrics.ObserveAgentCall("worker", time.Since(start))
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if resp == nil {
		resp = agent.ErrorResponse("worker returned no response", -1)
	}
	o.logger.Info("worker response", "success", resp.Success, "files", len(resp.ChangedFiles()))
	o.logMessage(protocol.NewResponse("worker", "master", req.ID, protocol.Response{
		Success:       resp.Success,
		Output:        resp.Output,
		FilesModified: resp.FilesModified,
		FilesCreated:  resp.FilesCreated,
		FilesDeleted:  resp.FilesDeleted,
		Error:         resp.Error,
		ExitCode:      resp.ExitCode,
		ExecutionTime: resp.ExecutionTime.Seconds(),
	}))

	o.setState(StateVerifying)
	start = time.Now()
	ver := o.master.VerifyImplementation(ctx, in, resp)
	o.metrics.ObserveAgentCall("master", time.Since(start))
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if ver == nil {
		ver = &role.VerificationResult{Issues: []string{"Verification returned no result"}}
	}
	o.metrics.ObserveVerification("master", ver.Passed, ver.Score)

	if ver.Passed && o.cfg.RunChecks {
		ver = o.runChecks(ctx, resp, ver)
	}

	o.logMessage(protocol.NewVerification("master", "worker", protocol.Verification{
		Passed:      ver.Passed,
		Score:       ver.Score,
		Issues:      ver.Issues,
		Suggestions: ver.Suggestions,
	}))
	return resp, ver, nil
}

// runChecks runs the verification engine and combines its report with the
// master's verdict: both must pass.
func (o *Orchestrator) runChecks(ctx context.Context, resp *agent.Response, ver *role.VerificationResult) *role.VerificationResult {
	files := resp.ChangedFiles()
	if len(files) == 0 {
		changed, err := workspace.ChangedFiles(o.cfg.WorkDir)
		switch {
		case errors.Is(err, workspace.ErrNotRepository):
			o.logger.Debug("work dir is not a git repository; checking without file list")
		case err != nil:
			o.logger.Warn("failed to list changed files", "error", err)
		default:
			files = changed
		}
	}

	criteria := []string{}
	for _, c := range o.goal.PendingCriteria() {
		criteria = append(criteria, c.Description)
	}

	report := o.engine.Verify(ctx, verify.Context{
		Files:          files,
		WorkDir:        o.cfg.WorkDir,
		Language:       o.cfg.Language,
		TestCommand:    o.cfg.TestCommand,
		Goal:           o.goalPrompt(),
		Implementation: resp.Output,
		Criteria:       criteria,
		Requirements:   o.goal.QualityRequirements,
	})
	for _, c := range report.Checks {
		o.metrics.ObserveCheck(c.Name, c.Passed)
	}
	o.metrics.ObserveVerification("engine", report.Passed, report.OverallScore)
	o.logger.Info("checks complete", "passed", report.Passed, "summary", report.Summary)

	combined := *ver
	combined.Details = map[string]any{}
	for k, v := range ver.Details {
		combined.Details[k] = v
	}
	combined.Details["checks"] = report
	if report.Passed {
		return &combined
	}

	combined.Passed = false
	combined.Score = min(ver.Score, report.OverallScore)
	issues := []string{"Checks: " + report.Summary}
	for _, c := range report.Checks {
		if !c.Passed {
			issues = append(issues, fmt.Sprintf("%s: %s", c.Name, c.Message))
		}
	}
	combined.Issues = append(issues, ver.Issues...)
	return &combined
}

// correct runs exactly max_correction_attempts rounds, each building on the
// previous correction and its issues
func (o *Orchestrator) correct(ctx context.Context, in *role.Instruction, resp *agent.Response, ver *role.VerificationResult) error {
	current := in
	for attempt := 1; attempt <= o.cfg.MaxCorrectionAttempts; attempt++ {
		o.setState(StateCorrecting)
		o.logger.Info("correction attempt", "attempt", attempt, "max", o.cfg.MaxCorrectionAttempts)

		current = o.master.CreateCorrection(ctx, current, ver.Issues)
		if err := ctx.Err(); err != nil {
			return err
		}

		var err error
		resp, ver, err = o.implementAndVerify(ctx, current)
		if err != nil {
			return err
		}
		if ver.Passed {
			o.logger.Info("correction successful", "attempt", attempt, "score", ver.Score)
			o.metrics.ObserveCorrection("succeeded")
			d := role.NewDecision(role.DecisionCorrect, fmt.Sprintf("Correction attempt %d passed verification", attempt))
			d.Instruction = current.Prompt
			o.accept(ctx, d, resp, ver)
			return nil
		}
	}

	o.logger.Warn("max correction attempts reached", "attempts", o.cfg.MaxCorrectionAttempts)
	o.metrics.ObserveCorrection("exhausted")
	o.record(role.NewDecision(role.DecisionError, "Correction failed"), resp, ver)
	o.setState(StateRunning)
	return nil
}

// accept records a passing step and, when enabled, revalidates the criteria
func (o *Orchestrator) accept(ctx context.Context, d *role.Decision, resp *agent.Response, ver *role.VerificationResult) {
	o.record(d, resp, ver)
	if o.tracker.State() == goal.ProgressBlocked {
		o.tracker.Unblock()
	}
	o.setState(StateRunning)

	if !o.cfg.ValidateCriteria {
		return
	}
	result := o.validator.Validate(ctx, o.goal, map[string]any{
		"files_modified": resp.FilesModified,
		"files_created":  resp.FilesCreated,
		"output":         resp.Output,
	})
	goal.UpdateGoalStatus(o.goal, result)
	o.tracker.SyncWithGoal(o.goal)
	o.logger.Info("criteria validated", "status", result.Status,
		"passed", result.PassedCount(), "total", result.TotalCount())
}

// record appends a history entry and mirrors it into the tracker and the
// history store. Steps without a response are not tracked as iterations.
func (o *Orchestrator) record(d *role.Decision, resp *agent.Response, ver *role.VerificationResult) {
	entry := HistoryEntry{
		Iteration:          o.iteration,
		Timestamp:          time.Now(),
		Decision:           d.Type,
		Instruction:        truncate(d.Instruction, 500),
		Reason:             d.Reason,
		Success:            true,
		VerificationPassed: true,
		Score:              1.0,
	}
	if resp != nil {
		entry.Success = resp.Success
		entry.Output = truncate(resp.Output, 1000)
	}
	if ver != nil {
		entry.VerificationPassed = ver.Passed
		entry.Score = ver.Score
	}
	o.history = append(o.history, entry)

	if resp != nil {
		action := truncate(d.Instruction, 200)
		if action == "" {
			action = string(d.Type)
		}
		result := truncate(resp.Output, 200)
		if result == "" {
			result = "No output"
		}
		o.tracker.RecordIteration(goal.IterationInput{
			Action:       action,
			Result:       result,
			Success:      resp.Success && (ver == nil || ver.Passed),
			FilesChanged: resp.ChangedFiles(),
			Duration:     resp.ExecutionTime,
			Metadata:     map[string]any{"decision_type": string(d.Type)},
		})
	}

	if o.historyStore != nil {
		err := o.historyStore.Record(o.sessionID, history.Row{
			Iteration:          entry.Iteration,
			Timestamp:          entry.Timestamp,
			DecisionType:       string(entry.Decision),
			Instruction:        entry.Instruction,
			Reason:             entry.Reason,
			Success:            entry.Success,
			Output:             entry.Output,
			VerificationPassed: entry.VerificationPassed,
			Score:              entry.Score,
		})
		if err != nil {
			o.logger.Warn("failed to record history", "error", err)
		}
	}
}

func (o *Orchestrator) complete(ctx context.Context) bool {
	o.logger.Info("goal achieved", "iteration", o.iteration)
	o.setState(StateCompleted)
	o.tracker.MarkCompleted()
	o.saveCheckpoint()
	o.fire(ctx, hooks.EventGoalAchieved, map[string]any{
		"goal":      o.goal.Title,
		"iteration": o.iteration,
	})
	return true
}

func (o *Orchestrator) interrupt(ctx context.Context) bool {
	o.logger.Info("orchestration interrupted", "iteration", o.iteration)
	o.setState(StatePaused)
	path := o.saveCheckpoint()
	o.fire(ctx, hooks.EventSessionPaused, map[string]any{
		"iteration":  o.iteration,
		"checkpoint": path,
	})
	return false
}

func (o *Orchestrator) fail(ctx context.Context, reason string) {
	o.logger.Error("orchestration failed", "error", reason, "iteration", o.iteration)
	o.lastErr = errors.New(reason)
	o.setState(StateFailed)
	if o.tracker != nil {
		o.tracker.MarkFailed(reason)
	}
	o.saveCheckpoint()
	o.fire(ctx, hooks.EventSessionFailed, map[string]any{
		"reason":    reason,
		"iteration": o.iteration,
	})
}

// finish records the outcome and exports metrics when configured
func (o *Orchestrator) finish() {
	o.metrics.ObserveSession(string(o.state))
	path := o.cfg.MetricsPath()
	if o.gatherer == nil || path == "" {
		return
	}
	if err := metrics.WriteTextfile(path, o.gatherer); err != nil {
		o.logger.Warn("failed to write metrics", "path", path, "error", err)
	}
}
