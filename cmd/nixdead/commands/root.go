package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/l3aro/nixdead/internal/config"
	"github.com/l3aro/nixdead/internal/log"
	"github.com/l3aro/nixdead/pkg/pipeline"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "nixdead",
	Short: "nixdead - find unreferenced Nix modules",
	Long: `nixdead builds the reference graph of a Nix configuration repository,
finds the modules no entry point reaches, and plans their removal.

Commands:
  analyze     Analyze the repository and write the dependency report
  plan        Build the removal plan and removal script from the report
  backup      Back up the files of a removal phase
  graph       Export the reference graph as JSON or msgpack
  refs        Show references to and from one file
  doctor      Check configuration and repository health
  init        Create a configuration file interactively

Use "nixdead [command] --help" for more information about a command.`,
	SilenceUsage: true,
}

var (
	configFlag   string
	logLevelFlag string
	jsonLogsFlag bool
)

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file to use instead of the global and project files")
	RootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level (debug, info, warn, error)")
	RootCmd.PersistentFlags().BoolVar(&jsonLogsFlag, "json-logs", false, "Write logs as JSON lines")
}

// rootArg returns the repository root positional argument, defaulting to ".".
func rootArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

// setup loads configuration for root and builds the logger and analyzer.
func setup(cmd *cobra.Command, root string) (*config.Config, log.Logger, *pipeline.Analyzer, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFlag != "" {
		cfg, err = config.LoadFromFile(configFlag)
	} else {
		cfg, err = config.Load(root)
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}

	level := cfg.LogLevel
	if logLevelFlag != "" {
		level = logLevelFlag
	}
	logger := log.New(log.LoggerConfig{
		Level:      log.ParseLevel(level),
		JSONOutput: cfg.JSONLogs || jsonLogsFlag,
		Output:     cmd.ErrOrStderr(),
	})

	return cfg, logger, pipeline.New(cfg, logger), nil
}
