// Package driver expands many files with one shared registry: in parallel,
// through a result cache, reporting progress as it goes.
package driver

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"tsderive/internal/diag"
	"tsderive/internal/expand"
	"tsderive/internal/macro"
	"tsderive/internal/observ"
	"tsderive/internal/source"
	"tsderive/internal/trace"
)

// Options configure ExpandFiles.
type Options struct {
	// Jobs bounds concurrent expansions; <= 0 uses GOMAXPROCS.
	Jobs int
	// Cache is consulted before and filled after each expansion; nil
	// disables caching.
	Cache *Cache
	// Sink receives progress events; nil discards them.
	Sink ProgressSink
}

// FileResult is the outcome for one input file.
type FileResult struct {
	Path string
	// File is nil when the file could not be read.
	File   *source.File
	Result *expand.Result
	Cached bool
	// Err is a read failure or a file-fatal expansion error (overlapping
	// patches, lowering failure). Other files are unaffected.
	Err error
}

// Summary aggregates a run.
type Summary struct {
	Files     int
	Changed   int
	Cached    int
	Failed    int
	Errors    int
	Warnings  int
	Timings   observ.Report
	CacheHits int64
}

// Fingerprint identifies everything outside a file that influences its
// expansion: the registered macros and the pipeline options.
func Fingerprint(reg *macro.Registry, opts expand.Options) string {
	base := "<source>"
	if opts.TypeBase != nil {
		k, err := Key("", *opts.TypeBase, "")
		if err == nil {
			base = k.String()
		}
	}
	return fmt.Sprintf("max=%d;module=%s;version=%d;types=%s;macros=%s",
		opts.MaxDiagnostics, opts.Module, opts.Version, base, reg.Fingerprint())
}

// ExpandFiles expands paths concurrently with p. Results come back in input
// order. A failing file is recorded in its FileResult and does not stop the
// others; the returned error is only set when ctx is cancelled.
func ExpandFiles(ctx context.Context, p *expand.Pipeline, reg *macro.Registry, paths []string, opts Options) ([]FileResult, error) {
	sink := opts.Sink
	if sink == nil {
		sink = nopSink{}
	}
	results := make([]FileResult, len(paths))
	if len(paths) == 0 {
		return results, nil
	}

	tracer := trace.FromContext(ctx)
	sp := trace.Begin(tracer, trace.ScopeDriver, "expand-files", trace.ParentFrom(ctx)).
		WithExtra("files", fmt.Sprint(len(paths)))
	ctx = trace.WithParent(ctx, sp.ID())
	defer sp.End("")

	fingerprint := Fingerprint(reg, p.Options())

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	for i, path := range paths {
		sink.OnEvent(Event{Index: i, Total: len(paths), File: path, Status: StatusQueued})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sink.OnEvent(Event{Index: i, Total: len(paths), File: path, Status: StatusWorking})
			fr := expandOne(gctx, p, opts.Cache, fingerprint, path)
			results[i] = fr
			sink.OnEvent(finishEvent(i, len(paths), fr))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func expandOne(ctx context.Context, p *expand.Pipeline, cache *Cache, fingerprint, path string) FileResult {
	fr := FileResult{Path: path}

	file, err := source.Load(path)
	if err != nil {
		fr.Err = err
		return fr
	}
	fr.File = file

	key, keyErr := Key(path, file.Content, fingerprint)
	if keyErr == nil {
		if res, ok := cache.Get(key); ok {
			fr.Result = res
			fr.Cached = true
			return fr
		}
	}

	res, err := p.Expand(ctx, file.Content, path)
	if err != nil {
		fr.Err = err
		return fr
	}
	fr.Result = res

	if keyErr == nil && cache != nil && cacheable(ctx, res) {
		if err := cache.Put(key, path, fingerprint, res); err != nil {
			trace.Error(trace.FromContext(ctx), trace.ScopeFile, "cache", err.Error(), trace.ParentFrom(ctx))
		}
	}
	return fr
}

// cacheable reports whether res is a deterministic function of its key.
// Timeouts and cancellations depend on the run, not the input.
func cacheable(ctx context.Context, res *expand.Result) bool {
	if ctx.Err() != nil {
		return false
	}
	for _, d := range res.Diagnostics {
		if d.Code == diag.MacroTimedOut || d.Code == diag.MacroCancelled {
			return false
		}
	}
	return true
}

func finishEvent(i, total int, fr FileResult) Event {
	ev := Event{Index: i, Total: total, File: fr.Path, Err: fr.Err}
	switch {
	case fr.Err != nil:
		ev.Status = StatusFailed
	case fr.Cached:
		ev.Status = StatusCached
	case !fr.Result.Changed:
		ev.Status = StatusUnchanged
	default:
		ev.Status = StatusDone
	}
	if fr.Result != nil {
		for _, d := range fr.Result.Diagnostics {
			if d.Severity == diag.SevError {
				ev.Errors++
			}
		}
	}
	return ev
}

// Summarize folds results into a Summary.
func Summarize(results []FileResult, cache *Cache) Summary {
	s := Summary{Files: len(results)}
	agg := observ.NewAggregate()
	for _, fr := range results {
		if fr.Err != nil {
			s.Failed++
			continue
		}
		if fr.Cached {
			s.Cached++
		} else {
			agg.Add(fr.Result.Timings)
		}
		if fr.Result.Changed {
			s.Changed++
		}
		for _, d := range fr.Result.Diagnostics {
			switch d.Severity {
			case diag.SevError:
				s.Errors++
			case diag.SevWarning:
				s.Warnings++
			}
		}
	}
	s.Timings = agg.Report()
	s.CacheHits, _ = cache.Stats()
	return s
}

// HasFailures reports whether the run should exit non-zero.
func (s Summary) HasFailures() bool {
	return s.Failed > 0 || s.Errors > 0
}
