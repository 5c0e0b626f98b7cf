package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/agent"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/config"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/health"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/ux"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/verify"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that agent CLIs and tools are installed",
	Long: `Check the environment a session needs: the configured master and worker
agent CLIs, git for change detection, and the language toolchain used by the
test checker.

The command fails when the environment is unhealthy.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

var (
	doctorFormat  string
	doctorTimeout time.Duration
)

func init() {
	doctorCmd.Flags().StringVar(&doctorFormat, "format", "text", "output format: text, json or yaml")
	doctorCmd.Flags().DurationVar(&doctorTimeout, "timeout", 5*time.Second, "timeout per check")

	rootCmd.AddCommand(doctorCmd)
}

// doctorReport renders a health report as a checklist
type doctorReport struct {
	health.Report `yaml:",inline"`
}

func (r doctorReport) Text() string {
	var b strings.Builder
	for _, nr := range r.Results {
		icon := "✓"
		switch nr.Result.Status {
		case health.StatusDegraded:
			icon = "!"
		case health.StatusUnhealthy:
			icon = "✗"
		}
		fmt.Fprintf(&b, "%s %-16s %s\n", icon, nr.Name, nr.Result.Message)
		if v, ok := nr.Result.Details["version"]; ok {
			fmt.Fprintf(&b, "  %-16s version %v\n", "", v)
		}
	}
	fmt.Fprintf(&b, "\nOverall: %s", r.Status)
	return b.String()
}

// doctorManager registers a checker for every binary cfg depends on
func doctorManager(cfg *config.Config) *health.Manager {
	mgr := health.NewManager().WithTimeout(doctorTimeout)

	factory := agent.NewFactory()
	binaries := map[string]bool{}
	var agents []agent.Agent
	for _, t := range []agent.Type{cfg.MasterAgentType, cfg.WorkerAgentType} {
		ac := cfg.AgentConfig(t)
		factory.Configure(t, ac)
		binaries[ac.Command] = true
		if a, err := factory.Create(t); err == nil && !containsType(agents, t) {
			agents = append(agents, a)
		}
	}
	binaries["git"] = false
	if bin := languageBinary(cfg.Language); bin != "" {
		binaries[bin] = false
	}

	names := make([]string, 0, len(binaries))
	for name := range binaries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		mgr.AddChecker(health.NewBinaryChecker(name, binaries[name]))
	}
	mgr.AddChecker(health.NewAgentChecker(agents...))
	return mgr
}

func containsType(agents []agent.Agent, t agent.Type) bool {
	for _, a := range agents {
		if a.Type() == t {
			return true
		}
	}
	return false
}

// languageBinary is the toolchain the test checker runs for language
func languageBinary(language string) string {
	if command, ok := verify.DefaultTestCommands[strings.ToLower(language)]; ok {
		return command[0]
	}
	return ""
}

func runDoctor(cmd *cobra.Command, args []string) error {
	formatter, err := ux.NewFormatter(doctorFormat, &ux.FormatterOptions{Writer: cmd.OutOrStdout()})
	if err != nil {
		return err
	}
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	cfg, err := cc.LoadConfig()
	if err != nil {
		return err
	}

	report := doctorManager(cfg).Report(cmd.Context())
	if err := formatter.Format(doctorReport{Report: *report}); err != nil {
		return err
	}
	if report.Status == health.StatusUnhealthy {
		return fmt.Errorf("environment is unhealthy; install the missing tools listed above")
	}
	return nil
}
