package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/brensch/qcewpanel/internal/config"
	"github.com/brensch/qcewpanel/internal/metrics"
)

var (
	logFormat   string
	logLevel    string
	logOutput   string
	metricsPath string

	// Populated in PersistentPreRunE
	rootLogger *slog.Logger
	logFile    *os.File
	appConfig  = config.Default()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "qcewpanel",
	Short: "Fetch and clean county-level QCEW employment and wage data.",
	Long: `qcewpanel builds a county by quarter employment and wage panel from the
BLS Quarterly Census of Employment and Wages.

'fetch' downloads the yearly SIC archives and keeps the county total rows.
'clean' unions consolidated files, tags host counties and filters rows.
'run' does both in sequence. 'inspect' and 'save' work on the resulting CSVs.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var level slog.Level
		switch strings.ToLower(logLevel) {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			return fmt.Errorf("invalid --log-level %q (use debug, info, warn or error)", logLevel)
		}

		var logWriter io.Writer = os.Stderr
		switch strings.ToLower(logOutput) {
		case "", "stderr":
		case "stdout":
			logWriter = os.Stdout
		default:
			f, err := os.OpenFile(logOutput, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err != nil {
				return fmt.Errorf("failed to open log file %s: %w", logOutput, err)
			}
			logFile = f
			logWriter = f
		}

		opts := &slog.HandlerOptions{Level: level}
		var handler slog.Handler
		switch strings.ToLower(logFormat) {
		case "json":
			handler = slog.NewJSONHandler(logWriter, opts)
		case "text":
			handler = slog.NewTextHandler(logWriter, opts)
		default:
			return fmt.Errorf("invalid --log-format %q (use text or json)", logFormat)
		}
		rootLogger = slog.New(handler)
		slog.SetDefault(rootLogger)
		rootLogger.Debug("Logger initialized", "level", level.String(), "format", logFormat, "output", logOutput)

		appConfig.MetricsPath = metricsPath
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logFile != nil {
			return logFile.Close()
		}
		return nil
	},
}

// Execute adds all child commands to the root command and runs it.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(saveCmd)

	if err := rootCmd.Execute(); err != nil {
		if rootLogger != nil {
			rootLogger.Error("Command execution failed", "error", err)
		} else {
			fmt.Fprintf(os.Stderr, "Command execution failed: %v\n", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log output format (text or json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logOutput, "log-output", "stderr", "Log output destination (stderr, stdout, or file path)")
	rootCmd.PersistentFlags().StringVar(&metricsPath, "metrics-file", "", "Write run counters in Prometheus textfile format to this path")

	rootCmd.Version = "0.1.0"
}

// addFetchFlags binds the fetch settings onto a command's flag set.
func addFetchFlags(cmd *cobra.Command, cfg *config.FetchConfig) {
	cmd.Flags().StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "Root URL of the QCEW file tree")
	cmd.Flags().IntVar(&cfg.StartYear, "start-year", cfg.StartYear, "First year to fetch (inclusive)")
	cmd.Flags().IntVar(&cfg.EndYear, "end-year", cfg.EndYear, "Last year to fetch (inclusive)")
	cmd.Flags().StringVar(&cfg.OutputPath, "fetch-output", cfg.OutputPath, "Consolidated CSV written by the fetch stage")
	cmd.Flags().StringVar(&cfg.ParquetPath, "parquet", cfg.ParquetPath, "Also write the consolidated table to this Parquet file")
	cmd.Flags().DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-request HTTP timeout")
}

// addCleanFlags binds the clean settings onto a command's flag set.
func addCleanFlags(cmd *cobra.Command, cfg *config.CleanConfig) {
	cmd.Flags().StringSliceVar(&cfg.InputPaths, "input", cfg.InputPaths, "Consolidated CSVs to clean (can specify multiple)")
	cmd.Flags().StringVar(&cfg.OutputPath, "clean-output", cfg.OutputPath, "Cleaned CSV written by the clean stage")
	cmd.Flags().BoolVar(&cfg.DropPre2000, "drop-pre-2000", cfg.DropPre2000, "Drop rows with year before 2000")
	cmd.Flags().BoolVar(&cfg.SubsetControls, "subset-controls", cfg.SubsetControls, "Keep only host counties and control counties")
	cmd.Flags().StringSliceVar(&cfg.ControlFIPS, "control-fips", cfg.ControlFIPS, "Control county FIPS codes used by --subset-controls")
}

// getLogger returns the root logger, or a discarding one before initialization.
func getLogger() *slog.Logger {
	if rootLogger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return rootLogger
}

func newMetrics() *metrics.Metrics {
	if appConfig.MetricsPath == "" {
		return nil
	}
	return metrics.New()
}
