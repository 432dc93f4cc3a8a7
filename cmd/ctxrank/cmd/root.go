// Package cmd provides the CLI commands for ctxrank.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ctxrank/internal/config"
	"github.com/Aman-CERP/ctxrank/internal/logging"
	"github.com/Aman-CERP/ctxrank/internal/profiling"
	"github.com/Aman-CERP/ctxrank/pkg/version"
)

// Global flags
var (
	configFile     string
	projectDir     string
	debugMode      bool
	logFile        string
	loggingCleanup func()
)

// Profiling flags
var (
	profileOpts profiling.Options
	profile     *profiling.Session
)

// NewRootCmd creates the root command for the ctxrank CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ctxrank",
		Short: "Rank retrieved chunks into prompt context",
		Long: `ctxrank turns a user query and the hits of a hybrid vector index into a
merged, ranked, budget-bounded context block for prompt injection, plus
the citations to show next to the answer.

Configuration is layered: defaults, ~/.config/ctxrank/config.yaml,
.ctxrank.yaml in the project directory, .env, then CTXRANK_* variables.`,
		Version:      version.Version,
		SilenceUsage: true,
	}

	cmd.SetVersionTemplate("ctxrank version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (skips user and project config discovery)")
	cmd.PersistentFlags().StringVar(&projectDir, "dir", ".", "Directory holding .ctxrank.yaml and .env")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.ctxrank/logs/")
	cmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to this file")

	cmd.PersistentFlags().StringVar(&profileOpts.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileOpts.Heap, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profileOpts.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = startProfilingAndLogging
	cmd.PersistentPostRunE = stopProfilingAndLogging

	cmd.AddCommand(newParseCmd())
	cmd.AddCommand(newContextCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig honours --config, else discovers config from --dir.
func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.LoadFile(configFile)
	}
	return config.Load(projectDir)
}

func startProfilingAndLogging(cmd *cobra.Command, args []string) error {
	if err := startLogging(cmd, args); err != nil {
		return err
	}
	if profileOpts.Enabled() {
		s, err := profiling.Start(profileOpts)
		if err != nil {
			return err
		}
		profile = s
	}
	return nil
}

func stopProfilingAndLogging(cmd *cobra.Command, args []string) error {
	var err error
	if profile != nil {
		err = profile.Stop()
		profile = nil
	}
	_ = stopLogging(cmd, args)
	return err
}

// startLogging configures the default logger from the config's logging
// section, then the --log-file and --debug flags. A config that fails to
// load is reported by the command itself, not here.
func startLogging(_ *cobra.Command, _ []string) error {
	lc := logging.DefaultConfig()
	lc.Level = "warn"
	if cfg, err := loadConfig(); err == nil {
		lc = logging.Config{
			Level:         cfg.Logging.Level,
			FilePath:      cfg.Logging.FilePath,
			MaxSizeMB:     cfg.Logging.MaxSizeMB,
			MaxFiles:      cfg.Logging.MaxFiles,
			WriteToStderr: cfg.Logging.Stderr,
		}
	}
	if logFile != "" {
		lc.FilePath = logFile
	}
	if debugMode {
		lc.Level = "debug"
		if lc.FilePath == "" {
			lc.FilePath = logging.DefaultLogPath()
		}
	}

	logger, cleanup, err := logging.Setup(lc)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	if debugMode {
		slog.Debug("debug_logging_enabled",
			slog.String("log_file", lc.FilePath),
			slog.String("version", version.Version),
			slog.Int("pid", os.Getpid()))
	}
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}
