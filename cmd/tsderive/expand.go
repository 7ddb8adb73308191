package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tsderive/internal/builtin"
	"tsderive/internal/config"
	"tsderive/internal/diagfmt"
	"tsderive/internal/driver"
	"tsderive/internal/expand"
	"tsderive/internal/lower"
	"tsderive/internal/macro"
)

var expandCmd = &cobra.Command{
	Use:   "expand <file|dir>",
	Short: "Expand derive markers in a file or directory",
	Long: `Expand runs every macro named by a @derive(...) marker and prints or writes
the expanded code. Directories are searched for .ts and .tsx files.`,
	Args: cobra.ExactArgs(1),
	RunE: runExpand,
}

func init() {
	expandCmd.Flags().Bool("write", false, "rewrite changed files in place")
	expandCmd.Flags().String("out", "", "write expanded files under this directory")
	expandCmd.Flags().Bool("types", false, "also emit the type view (<name>.derive.d.ts next to written files)")
	expandCmd.Flags().Int("jobs", 0, "max parallel files (0 = config or GOMAXPROCS)")
	expandCmd.Flags().String("format", "pretty", "diagnostics format (pretty|json)")
	expandCmd.Flags().String("ui", "auto", "progress view (auto|on|off)")
	expandCmd.Flags().Bool("no-cache", false, "disable the expansion cache")
	expandCmd.Flags().Duration("timeout", 0, "per-macro time limit (0 = config or none)")
}

type expandFlags struct {
	write   bool
	out     string
	types   bool
	jobs    int
	format  string
	ui      uiMode
	noCache bool
	timeout time.Duration
	timings bool
}

func readExpandFlags(cmd *cobra.Command) (expandFlags, error) {
	var (
		f   expandFlags
		err error
	)
	flags := cmd.Flags()
	if f.write, err = flags.GetBool("write"); err != nil {
		return f, err
	}
	if f.out, err = flags.GetString("out"); err != nil {
		return f, err
	}
	if f.types, err = flags.GetBool("types"); err != nil {
		return f, err
	}
	if f.jobs, err = flags.GetInt("jobs"); err != nil {
		return f, err
	}
	if f.format, err = flags.GetString("format"); err != nil {
		return f, err
	}
	uiValue, err := flags.GetString("ui")
	if err != nil {
		return f, err
	}
	if f.ui, err = readUIMode(uiValue); err != nil {
		return f, err
	}
	if f.noCache, err = flags.GetBool("no-cache"); err != nil {
		return f, err
	}
	if f.timeout, err = flags.GetDuration("timeout"); err != nil {
		return f, err
	}
	if f.timings, err = flags.GetBool("timings"); err != nil {
		return f, err
	}

	f.format = strings.ToLower(strings.TrimSpace(f.format))
	switch f.format {
	case "pretty", "json":
	default:
		return f, fmt.Errorf("unsupported format %q (must be pretty or json)", f.format)
	}
	if f.write && f.out != "" {
		return f, fmt.Errorf("--write and --out are mutually exclusive")
	}
	if f.jobs < 0 {
		return f, fmt.Errorf("--jobs must be >= 0, got %d", f.jobs)
	}
	if f.timeout < 0 {
		return f, fmt.Errorf("--timeout must be >= 0, got %s", f.timeout)
	}
	return f, nil
}

func runExpand(cmd *cobra.Command, args []string) error {
	flags, err := readExpandFlags(cmd)
	if err != nil {
		return err
	}
	cfg := manifest.Config
	if flags.jobs > 0 {
		cfg.Jobs = flags.jobs
	}
	if flags.timeout > 0 {
		cfg.MacroTimeout = config.Duration(flags.timeout)
	}
	if flags.types {
		cfg.EmitTypes = true
	}

	target := args[0]
	files, baseDir, err := collectFiles(target)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "no TypeScript sources under %s\n", target)
		return nil
	}

	reg, err := newRegistry()
	if err != nil {
		return err
	}
	var dopts []macro.Option
	if d := cfg.MacroTimeout.Std(); d > 0 {
		dopts = append(dopts, macro.WithTimeout(d))
	}
	pipeline := expand.New(macro.NewDispatcher(reg, dopts...), lower.NewTreeSitter(), cfg.PipelineOptions())

	runOpts := driver.Options{Jobs: cfg.Jobs}
	if cfg.Cache.Enabled && !flags.noCache {
		cache, err := openCache(cfg.Cache.Size)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: cache disabled: %v\n", err)
		} else {
			runOpts.Cache = cache
		}
	}

	codeOnStdout := !flags.write && flags.out == "" && flags.format == "pretty"
	var results []driver.FileResult
	if shouldUseTUI(flags.ui, len(files), codeOnStdout) {
		results, err = runExpandWithUI(cmd.Context(), "expanding "+target, files, pipeline, reg, runOpts)
	} else {
		results, err = driver.ExpandFiles(cmd.Context(), pipeline, reg, files, runOpts)
	}
	if err != nil {
		return err
	}

	emitter := outputEmitter{
		stdout:  cmd.OutOrStdout(),
		write:   flags.write,
		outDir:  flags.out,
		baseDir: baseDir,
		types:   cfg.EmitTypes,
	}
	if flags.format == "json" {
		emitter.stdout = io.Discard
	}
	for _, fr := range results {
		if err := emitter.emit(fr); err != nil {
			return err
		}
	}

	summary := driver.Summarize(results, runOpts.Cache)
	if err := reportDiagnostics(cmd, flags, baseDir, results); err != nil {
		return err
	}
	if flags.timings {
		printTimings(cmd.ErrOrStderr(), summary)
	}
	if summary.HasFailures() {
		return errFailed
	}
	return nil
}

func newRegistry() (*macro.Registry, error) {
	reg := macro.NewRegistry()
	if err := macro.RegisterAll(reg, builtin.Package); err != nil {
		return nil, err
	}
	return reg, nil
}

func openCache(size int) (*driver.Cache, error) {
	dir, err := manifest.CacheDir()
	if err != nil {
		return nil, err
	}
	disk, err := driver.OpenDiskCache(dir)
	if err != nil {
		return nil, err
	}
	return driver.NewCache(size, disk)
}

// collectFiles expands target into source files and the directory that
// relative output paths are computed against.
func collectFiles(target string) ([]string, string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, "", err
	}
	if !info.IsDir() {
		return []string{target}, filepath.Dir(target), nil
	}
	files, err := driver.ListFiles(target)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list %s: %w", target, err)
	}
	return files, target, nil
}

func reportDiagnostics(cmd *cobra.Command, flags expandFlags, baseDir string, results []driver.FileResult) error {
	if flags.format == "json" {
		reports := make([]diagfmt.FileReport, 0, len(results))
		for _, fr := range results {
			reports = append(reports, fileReport(fr))
		}
		return diagfmt.JSON(cmd.OutOrStdout(), reports, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         diagfmt.PathModeAuto,
			BaseDir:          baseDir,
			IncludeNotes:     true,
			IncludeTimings:   flags.timings,
		})
	}

	errOut := cmd.ErrOrStderr()
	opts := diagfmt.PrettyOpts{
		Color:     !color.NoColor,
		Context:   1,
		PathMode:  diagfmt.PathModeAuto,
		BaseDir:   baseDir,
		ShowNotes: true,
	}
	for _, fr := range results {
		if fr.Err != nil {
			fmt.Fprintf(errOut, "%s: %v\n", fr.Path, fr.Err)
			continue
		}
		if len(fr.Result.Diagnostics) == 0 {
			continue
		}
		if err := diagfmt.Pretty(errOut, fr.File, fr.Result.Diagnostics, opts); err != nil {
			return err
		}
	}
	return nil
}

func fileReport(fr driver.FileResult) diagfmt.FileReport {
	rep := diagfmt.FileReport{
		Path:   fr.Path,
		File:   fr.File,
		Cached: fr.Cached,
		Err:    fr.Err,
	}
	if fr.Result != nil {
		rep.Changed = fr.Result.Changed
		rep.Diagnostics = fr.Result.Diagnostics
		rep.Timings = fr.Result.Timings
	}
	return rep
}
