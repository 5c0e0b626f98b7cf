package agent

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Exit codes reported for failures that never produced a process exit status
const (
	ExitTimeout  = -1
	ExitNotFound = -2
	ExitFailure  = -3
)

// waitDelay bounds how long output pipes may stay open after the process is killed
const waitDelay = 5 * time.Second

// runner executes an agent CLI with a timeout, merged environment and working directory
type runner struct {
	name   string
	config Config
}

type runResult struct {
	stdout   string
	stderr   string
	exitCode int
	elapsed  time.Duration
}

// run executes the configured command. A non-nil *Response means the process
// could not produce an exit status (timeout, missing binary, other failure).
func (r *runner) run(ctx context.Context, args []string, stdin, workDir string) (*runResult, *Response) {
	if workDir == "" {
		workDir = r.config.WorkDir
	}

	runCtx := ctx
	cancel := func() {}
	if r.config.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, r.config.Timeout)
	}
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.config.Command, args...)
	cmd.Dir = workDir
	cmd.Env = mergeEnv(os.Environ(), r.config.Env)
	cmd.WaitDelay = waitDelay
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case stderrors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
			return nil, ErrorResponse(fmt.Sprintf("%s execution timed out after %ds", r.name, int(r.config.Timeout.Seconds())), ExitTimeout)
		case stderrors.Is(err, exec.ErrNotFound):
			return nil, ErrorResponse(fmt.Sprintf("%s CLI not found: %s", r.name, r.config.Command), ExitNotFound)
		case stderrors.As(err, &exitErr) && ctx.Err() == nil:
			// ran to completion with a non-zero status
		default:
			return nil, ErrorResponse(err.Error(), ExitFailure)
		}
	}

	return &runResult{
		stdout:   stdout.String(),
		stderr:   stderr.String(),
		exitCode: cmd.ProcessState.ExitCode(),
		elapsed:  elapsed,
	}, nil
}

// response converts a completed run into a Response. The error field carries
// stderr only for non-zero exits.
func (res *runResult) response() *Response {
	resp := &Response{
		Success:       res.exitCode == 0,
		Output:        res.stdout,
		FilesModified: []string{},
		FilesCreated:  []string{},
		FilesDeleted:  []string{},
		ExitCode:      res.exitCode,
		ExecutionTime: res.elapsed,
		Metadata:      map[string]any{},
		Timestamp:     time.Now(),
	}
	if res.exitCode != 0 {
		resp.Error = res.stderr
	}
	return resp
}

func (r *runner) isAvailable() bool {
	_, err := exec.LookPath(r.config.Command)
	return err == nil
}

func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	env := make([]string, 0, len(base)+len(extra))
	env = append(env, base...)
	for k, v := range extra {
		env = append(env, k+"="+v)
	}
	return env
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
