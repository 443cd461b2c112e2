// Package cmd implements the nanokernelctl CLI: a set of subcommands
// that drive the simulated kernel components for inspection and
// testing, mirroring the teacher runtime's create/start/kill/list/state
// command surface but pointed at boot, scheduling, signal, memory, and
// network state instead of container lifecycle.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"nanokernel/logging"
)

// Version information, set at build time.
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
)

var (
	globalLog       string
	globalLogFormat string
	globalDebug     bool
)

// rootCmd is the base command for nanokernelctl.
var rootCmd = &cobra.Command{
	Use:   "nanokernelctl",
	Short: "Inspect and drive the nanokernel simulation",
	Long: `nanokernelctl exercises the nanokernel's core runtime components
outside of an actual boot: the staged boot pipeline, the adaptive
scheduler, the POSIX signal subsystem, the virtual memory manager, and
the network pipeline.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging()
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&globalLog, "log", "", "set the log file path")
	rootCmd.PersistentFlags().StringVar(&globalLogFormat, "log-format", "text", "set the format for log output (text or json)")
	rootCmd.PersistentFlags().BoolVar(&globalDebug, "debug", false, "enable debug logging")
}

func setupLogging() {
	logOutput := os.Stderr
	if globalLog != "" {
		f, err := os.OpenFile(globalLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err == nil {
			logOutput = f
		}
	}

	logLevel := slog.LevelInfo
	if globalDebug {
		logLevel = slog.LevelDebug
	}

	if globalLogFormat == "json" || globalLog != "" {
		logger := logging.NewLogger(logging.Config{
			Level:  logLevel,
			Format: globalLogFormat,
			Output: logOutput,
		})
		logging.SetDefault(logger)
	}
}
