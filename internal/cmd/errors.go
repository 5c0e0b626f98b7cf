package cmd

import (
	stderrors "errors"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/errors"
)

// ErrGoalNotAchieved is returned by run and resume when the session ended
// without meeting the goal. The final status has already been printed.
var ErrGoalNotAchieved = stderrors.New("goal not achieved")

// setupFailure reports whether err stopped a session before its loop could
// run, as opposed to a failure recorded in the session itself
func setupFailure(err error) bool {
	oe, ok := errors.As(err)
	if !ok {
		return false
	}
	switch oe.Code {
	case errors.ErrCodeGoalEmpty, errors.ErrCodeGoalNotFound, errors.ErrCodeGoalReadFailed,
		errors.ErrCodeConfigInvalid, errors.ErrCodeConfigLoadFailed,
		errors.ErrCodeAgentUnknown,
		errors.ErrCodeCheckpointNotFound, errors.ErrCodeCheckpointInvalid,
		errors.ErrCodeSessionMissing:
		return true
	}
	return false
}
