package cmd

import (
	"github.com/spf13/cobra"

	"github.com/BenniProbst/ai-orchestrator-v2/internal/config"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/log"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/ux"
	"github.com/BenniProbst/ai-orchestrator-v2/internal/version"
)

// CommandContext holds the persistent flags every command reads.
// Commands build it in RunE instead of reading package state:
//
//	func runStatus(cmd *cobra.Command, args []string) error {
//		cc, err := NewCommandContext(cmd)
//		if err != nil {
//			return err
//		}
//		cfg, err := cc.LoadConfig()
//		...
//	}
type CommandContext struct {
	ConfigFile string
	LogLevel   string
	LogFormat  string
	LogFile    string
}

// NewCommandContext extracts the persistent flags from cmd
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	logLevel, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return nil, err
	}
	logFormat, err := cmd.Flags().GetString("log-format")
	if err != nil {
		return nil, err
	}
	logFile, err := cmd.Flags().GetString("log-file")
	if err != nil {
		return nil, err
	}

	return &CommandContext{
		ConfigFile: configFile,
		LogLevel:   logLevel,
		LogFormat:  logFormat,
		LogFile:    logFile,
	}, nil
}

// LoadConfig loads --config, or the nearest discovered config file, and
// applies the logging flags on top
func (c *CommandContext) LoadConfig() (*config.Config, error) {
	path := c.ConfigFile
	if path == "" {
		path = ux.DiscoverConfigFile(".")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if c.LogLevel != "" {
		cfg.LogLevel = c.LogLevel
	}
	if c.LogFile != "" {
		cfg.LogFile = c.LogFile
	}
	return cfg, nil
}

// Logger builds the process logger for cfg. Logs always go to stderr and are
// teed to cfg.LogFile when one is set.
func (c *CommandContext) Logger(cfg *config.Config) (*log.Logger, error) {
	output := log.OutputStderr()
	if cfg.LogFile != "" {
		file, err := log.OutputFile(cfg.LogFile)
		if err != nil {
			return nil, err
		}
		output = log.MultiOutput(output, file)
	}

	logger := log.New(log.Config{
		Level:          log.ParseLevel(cfg.LogLevel),
		Format:         log.ParseFormat(c.LogFormat),
		Output:         output,
		ServiceName:    "aiorch",
		ServiceVersion: version.Version,
	})
	log.SetDefault(logger)
	return logger, nil
}
