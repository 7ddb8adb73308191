package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tsderive/internal/config"
	"tsderive/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "tsderive",
	Short: "Expand @derive markers in TypeScript sources",
	Long: `tsderive finds @derive(...) markers on TypeScript classes and interfaces,
runs the named derive macros and splices their output back into the source.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: prepare,
}

// errFailed reports a run whose problems were already printed.
var errFailed = errors.New("expansion failed")

var (
	manifest *config.Manifest
	cleanups []func()
)

// finish dumps the trace ring to w when the run failed, then runs cleanups.
func finish(err error, w io.Writer) {
	if err != nil {
		dumpTraceRing(w)
	}
	runCleanups()
}

// runCleanups stops profilers and flushes the tracer, newest first.
func runCleanups() {
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
	cleanups = nil
}

func init() {
	rootCmd.Version = version.Get().Version

	rootCmd.AddCommand(expandCmd)
	rootCmd.AddCommand(macrosCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Int("max-diagnostics", 100, "maximum number of diagnostics reported per file")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().String("config", "", "path to tsderive.toml or tsderive.yaml (default: searched upwards)")
	rootCmd.PersistentFlags().String("trace", "", "trace output file (\"-\" for stderr)")
	rootCmd.PersistentFlags().String("trace-level", "", "trace level (off|error|phase|detail|debug)")
	rootCmd.PersistentFlags().String("trace-format", "", "trace format (auto|text|ndjson)")
	rootCmd.PersistentFlags().String("trace-mode", "", "trace storage mode (stream|ring|both); ring events are dumped on failure")
	rootCmd.PersistentFlags().Int("trace-ring-size", 4096, "ring buffer size for ring/both trace modes")
	rootCmd.PersistentFlags().Duration("trace-heartbeat", 0, "emit a heartbeat event at this interval (0 disables)")
	rootCmd.PersistentFlags().String("cpu-profile", "", "write a CPU profile to this file")
	rootCmd.PersistentFlags().String("mem-profile", "", "write a heap profile to this file on exit")
	rootCmd.PersistentFlags().String("runtime-trace", "", "write a Go runtime trace to this file")
}

// main executes the root command. Any error exits with status 1.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	finish(err, os.Stderr)
	if err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintf(os.Stderr, "%s %v\n", color.New(color.FgRed, color.Bold).Sprint("error:"), err)
		}
		os.Exit(1)
	}
}

// prepare loads configuration, applies flag overrides and starts tracing.
func prepare(cmd *cobra.Command, args []string) error {
	if err := applyColorMode(cmd); err != nil {
		return err
	}
	m, err := loadManifest(cmd, args)
	if err != nil {
		return err
	}
	if err := applyFlagOverrides(cmd, &m.Config); err != nil {
		return err
	}
	manifest = m

	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	cleanups = append(cleanups, stopProfiling)

	stopTracing, err := setupTracing(cmd, m.Config.Trace)
	if err != nil {
		return err
	}
	cleanups = append(cleanups, stopTracing)
	return nil
}

func loadManifest(cmd *cobra.Command, args []string) (*config.Manifest, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	if strings.TrimSpace(path) != "" {
		return config.LoadPath(path)
	}
	return config.Load(startDir(args))
}

// startDir is where the manifest search begins: the target's directory, or
// the working directory when there is no target.
func startDir(args []string) string {
	if len(args) == 0 {
		return "."
	}
	info, err := os.Stat(args[0])
	if err != nil {
		return "."
	}
	if info.IsDir() {
		return args[0]
	}
	return filepath.Dir(args[0])
}

func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("max-diagnostics") {
		n, err := flags.GetInt("max-diagnostics")
		if err != nil {
			return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
		}
		cfg.MaxDiagnostics = n
	}
	for name, dst := range map[string]*string{
		"trace-level":  &cfg.Trace.Level,
		"trace-format": &cfg.Trace.Format,
		"trace":        &cfg.Trace.Output,
		"trace-mode":   &cfg.Trace.Mode,
	} {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return fmt.Errorf("failed to get %s flag: %w", name, err)
		}
		*dst = v
	}
	if flags.Changed("trace-ring-size") {
		n, err := flags.GetInt("trace-ring-size")
		if err != nil {
			return fmt.Errorf("failed to get trace-ring-size flag: %w", err)
		}
		cfg.Trace.RingSize = n
	}
	// Naming an output or a mode without a level traces file boundaries.
	if (flags.Changed("trace") || flags.Changed("trace-mode")) && !flags.Changed("trace-level") && isOff(cfg.Trace.Level) {
		cfg.Trace.Level = "phase"
	}
	return cfg.Validate()
}

func isOff(level string) bool {
	level = strings.TrimSpace(strings.ToLower(level))
	return level == "" || level == "off"
}

func applyColorMode(cmd *cobra.Command) error {
	mode, err := cmd.Flags().GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "auto":
		color.NoColor = !isTerminal(os.Stdout)
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		return fmt.Errorf("invalid --color value %q (expected auto|on|off)", mode)
	}
	return nil
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
