package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/agent"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/checkpoint"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/config"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/goal"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/history"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/hooks"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/log"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/metrics"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/orchestrator"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/ux"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the orchestration loop until the goal is achieved",
	Long: `Run the master/worker loop against the goal file.

The session ends when every acceptance criterion is met, when the master
declares the goal done, or when max iterations is reached. Ctrl-C pauses the
session and writes a checkpoint that 'aiorch resume' can continue.

The final status is printed in --format (json by default). The exit code is 0
when the goal was achieved and 1 otherwise.

Examples:
  aiorch run
  aiorch run --goal GOAL.md --max-iterations 10
  aiorch run --master codex --worker claude
  aiorch run --resume 3f2a9c1b`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

var (
	runGoal          string
	runWorkDir       string
	runMaxIterations int
	runMaster        string
	runWorker        string
	runResume        string
	runSwap          bool
	runFormat        string
)

// extraOptions are appended to the options of every orchestrator built here
var extraOptions []orchestrator.Option

func init() {
	runCmd.Flags().StringVarP(&runGoal, "goal", "g", "", "goal file (default from config: GOAL.txt)")
	runCmd.Flags().StringVarP(&runWorkDir, "work-dir", "w", "", "directory the agents work in")
	runCmd.Flags().IntVarP(&runMaxIterations, "max-iterations", "m", 0, "maximum loop iterations")
	runCmd.Flags().StringVar(&runMaster, "master", "", "master agent type: claude or codex")
	runCmd.Flags().StringVar(&runWorker, "worker", "", "worker agent type: claude or codex")
	runCmd.Flags().StringVarP(&runResume, "resume", "r", "", "resume from a checkpoint file or session id")
	runCmd.Flags().BoolVar(&runSwap, "swap", false, "swap master and worker before the first iteration")
	runCmd.Flags().StringVar(&runFormat, "format", "json", "status output format: text, json or yaml")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	cfg, err := cc.LoadConfig()
	if err != nil {
		return err
	}
	if err := applyRunFlags(cmd, cfg); err != nil {
		return err
	}
	return runSession(cmd, cc, cfg, sessionOptions{resume: runResume, swap: runSwap, format: runFormat})
}

// applyRunFlags overrides cfg with the flags the user set explicitly
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("goal") {
		cfg.GoalFile = runGoal
	}
	if flags.Changed("work-dir") {
		cfg.WorkDir = runWorkDir
	}
	if flags.Changed("max-iterations") {
		cfg.MaxIterations = runMaxIterations
	}
	if flags.Changed("master") {
		t, err := agent.ParseType(runMaster)
		if err != nil {
			return err
		}
		cfg.MasterAgentType = t
	}
	if flags.Changed("worker") {
		t, err := agent.ParseType(runWorker)
		if err != nil {
			return err
		}
		cfg.WorkerAgentType = t
	}
	return cfg.Validate()
}

type sessionOptions struct {
	resume string
	swap   bool
	format string
}

// runSession builds an orchestrator for cfg, runs or resumes it and prints
// the final status
func runSession(cmd *cobra.Command, cc *CommandContext, cfg *config.Config, opts sessionOptions) error {
	formatter, err := ux.NewFormatter(opts.format, &ux.FormatterOptions{Writer: cmd.OutOrStdout()})
	if err != nil {
		return err
	}
	logger, err := cc.Logger(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	options, cleanup, err := buildOptions(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	o := orchestrator.New(*cfg, append(options, extraOptions...)...)
	defer o.Close()

	ctx := cmd.Context()
	var achieved bool
	if opts.resume != "" {
		if opts.swap {
			logger.Warn("--swap is ignored when resuming; roles come from the checkpoint")
		}
		achieved = o.Resume(ctx, resolveCheckpoint(cfg, opts.resume))
	} else {
		if !o.Initialize(ctx) {
			return o.LastError()
		}
		if opts.swap {
			o.SwapRoles()
		}
		achieved = o.Run(ctx)
	}
	if err := o.LastError(); err != nil && setupFailure(err) {
		return err
	}

	if err := formatter.Format(ux.StatusView{Status: o.Status()}); err != nil {
		return fmt.Errorf("failed to print status: %w", err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if !achieved {
		return ErrGoalNotAchieved
	}
	return nil
}

// buildOptions wires the configured metrics, hooks and history store. The
// returned cleanup releases whatever was opened.
func buildOptions(cfg *config.Config, logger *log.Logger) ([]orchestrator.Option, func(), error) {
	options := []orchestrator.Option{orchestrator.WithLogger(logger)}
	cleanup := func() {}

	if cfg.MetricsFile != "" {
		registry, m := metrics.NewRegistry()
		options = append(options, orchestrator.WithMetrics(m, registry))
	}

	registry, err := buildHooks(cfg.Hooks)
	if err != nil {
		return nil, cleanup, err
	}
	if registry.Count() > 0 {
		options = append(options, orchestrator.WithHooks(registry))
	}

	if path := cfg.HistoryPath(); path != "" {
		store, err := history.Open(path)
		if err != nil {
			logger.Warn("history disabled", "path", path, "error", err)
		} else {
			options = append(options, orchestrator.WithHistoryStore(store))
			cleanup = func() {
				if err := store.Close(); err != nil {
					logger.Warn("failed to close history store", "error", err)
				}
			}
		}
	}
	return options, cleanup, nil
}

func buildHooks(settings []config.HookSettings) (*hooks.Registry, error) {
	configs := make([]hooks.HookConfig, 0, len(settings))
	for _, s := range settings {
		events := make([]hooks.EventType, 0, len(s.Events))
		for _, name := range s.Events {
			e, err := hooks.ParseEventType(name)
			if err != nil {
				return nil, fmt.Errorf("hook %s: %w", s.Name, err)
			}
			events = append(events, e)
		}
		mode, err := hooks.ParseFailureMode(s.FailureMode)
		if err != nil {
			return nil, fmt.Errorf("hook %s: %w", s.Name, err)
		}
		configs = append(configs, hooks.HookConfig{
			Name:        s.Name,
			Events:      events,
			Command:     s.Command,
			Timeout:     time.Duration(s.TimeoutSeconds) * time.Second,
			FailureMode: mode,
			Enabled:     true,
		})
	}
	return hooks.FromConfigs(configs)
}

// resolveCheckpoint accepts a checkpoint path or a session id in the
// configured session directory
func resolveCheckpoint(cfg *config.Config, ref string) string {
	if _, err := os.Stat(ref); err == nil {
		return ref
	}
	return checkpoint.NewManager(cfg.SessionPath()).Path(ref)
}

// loadGoal parses the goal at path, or the configured goal file when path is
// empty
func loadGoal(cfg *config.Config, path string) (*goal.Goal, string, error) {
	if path == "" {
		path = cfg.GoalPath()
	}
	g, err := goal.ParseFile(path)
	return g, path, err
}
