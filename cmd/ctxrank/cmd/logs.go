package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ctxrank/internal/logging"
	"github.com/Aman-CERP/ctxrank/internal/output"
)

type logsOptions struct {
	follow    bool
	lines     int
	level     string
	filter    string
	requestID string
	noColor   bool
	file      string
}

func newLogsCmd() *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View ctxrank logs",
		Long: `View and tail the JSON log file written with --debug or --log-file.

By default, shows the last 50 lines of ~/.ctxrank/logs/ctxrank.log.`,
		Example: `  ctxrank logs                      # Show last 50 lines
  ctxrank logs -f                   # Follow logs in real-time
  ctxrank logs --level warn         # Warnings and errors only
  ctxrank logs --request-id <uuid>  # One context request`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "Follow log output (like tail -f)")
	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().StringVar(&opts.level, "level", "", "Minimum log level (debug|info|warn|error)")
	cmd.Flags().StringVar(&opts.filter, "filter", "", "Filter by keyword/pattern (regex)")
	cmd.Flags().StringVar(&opts.requestID, "request-id", "", "Only entries of this request")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	cmd.Flags().StringVar(&opts.file, "file", "", "Path to log file")

	return cmd
}

func runLogs(cmd *cobra.Command, opts logsOptions) error {
	path := opts.file
	if path == "" {
		path = logFile
	}
	path, err := logging.FindLogFile(path)
	if err != nil {
		return err
	}

	var pattern *regexp.Regexp
	if opts.filter != "" {
		pattern, err = regexp.Compile(opts.filter)
		if err != nil {
			return fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	stdout := cmd.OutOrStdout()
	viewer := logging.NewViewer(logging.ViewerConfig{
		Level:     opts.level,
		Pattern:   pattern,
		RequestID: opts.requestID,
		NoColor:   opts.noColor || !output.IsTTY(stdout),
	}, stdout)

	stderr := cmd.ErrOrStderr()
	_, _ = fmt.Fprintf(stderr, "Log file: %s\n", path)
	if !opts.follow {
		entries, err := viewer.Tail(path, opts.lines)
		if err != nil {
			return err
		}
		viewer.Print(entries)
		return nil
	}

	_, _ = fmt.Fprintln(stderr, "Following... (Ctrl+C to stop)")
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return followLogs(ctx, viewer, path, func(line string) {
		_, _ = fmt.Fprintln(stdout, line)
	})
}

func followLogs(ctx context.Context, viewer *logging.Viewer, path string, emit func(string)) error {
	entries := make(chan logging.LogEntry, 100)
	errCh := make(chan error, 1)

	go func() {
		errCh <- viewer.Follow(ctx, path, entries)
	}()

	for {
		select {
		case entry := <-entries:
			emit(viewer.FormatEntry(entry))
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return nil
		}
	}
}
