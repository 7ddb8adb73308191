package expand

import (
	"context"
	"fmt"

	"tsderive/internal/diag"
	"tsderive/internal/lower"
	"tsderive/internal/macro"
	"tsderive/internal/observ"
	"tsderive/internal/patch"
	"tsderive/internal/trace"
)

// Result is the outcome of expanding one file.
type Result struct {
	Code string `json:"code" msgpack:"code"`
	// TypeOutput is set only when some macro produced type patches.
	TypeOutput  *string           `json:"type_output,omitempty" msgpack:"type_output,omitempty"`
	Diagnostics []diag.Diagnostic `json:"diagnostics" msgpack:"diagnostics"`
	Changed     bool              `json:"changed" msgpack:"changed"`
	// Dispatches counts macro calls made for this file.
	Dispatches int           `json:"dispatches" msgpack:"dispatches"`
	Timings    observ.Report `json:"timings" msgpack:"timings"`
}

// Unchanged returns the bail-out result for src.
func Unchanged(src string) *Result {
	return &Result{Code: src, Diagnostics: []diag.Diagnostic{}}
}

// Pipeline expands derive markers in single files.
type Pipeline struct {
	dispatcher *macro.Dispatcher
	lowerer    lower.Lowerer
	opts       Options
}

// New creates a pipeline. opts fields left at their zero value get defaults,
// except MaxDiagnostics, where 0 means "report nothing".
func New(d *macro.Dispatcher, lw lower.Lowerer, opts Options) *Pipeline {
	return &Pipeline{dispatcher: d, lowerer: lw, opts: opts.withDefaults()}
}

// Options returns the effective options.
func (p *Pipeline) Options() Options { return p.opts }

// Expand runs the pipeline over src. A lowering failure or overlapping
// patches abort the file; the error wraps the cause, including
// patch.ErrOverlap.
func (p *Pipeline) Expand(ctx context.Context, src, fileName string) (*Result, error) {
	tracer := trace.FromContext(ctx)
	sp := trace.Begin(tracer, trace.ScopeFile, "expand", trace.ParentFrom(ctx)).WithExtra("file", fileName)
	ctx = trace.WithParent(ctx, sp.ID())

	res, err := p.expand(ctx, src, fileName)
	switch {
	case err != nil:
		sp.End("error: " + err.Error())
	case !res.Changed:
		sp.End("unchanged")
	default:
		sp.WithExtra("dispatches", fmt.Sprint(res.Dispatches))
		sp.End(fmt.Sprintf("%d diagnostics", len(res.Diagnostics)))
	}
	return res, err
}

func (p *Pipeline) expand(ctx context.Context, src, fileName string) (*Result, error) {
	if !lower.MayContainDerive(src) {
		return Unchanged(src), nil
	}

	timer := observ.NewTimer()

	idx := timer.Begin("lower")
	file, err := p.lowerer.Lower(ctx, src, fileName)
	if err != nil {
		timer.End(idx, "failed")
		return nil, fmt.Errorf("lower %s: %w", fileName, err)
	}
	timer.End(idx, fmt.Sprintf("%d decls", len(file.Decls)))

	if !hasDeriveMarker(file) {
		return Unchanged(src), nil
	}

	idx = timer.Begin("dispatch")
	targets := ScanTargets(file)
	col := patch.NewCollector()
	bag := diag.NewBag(p.opts.MaxDiagnostics)
	calls, typed := 0, 0
	for _, t := range targets {
		col.AddRuntime(patch.Delete(t.Marker))
		if p.opts.TypeBase == nil {
			col.AddType(patch.Delete(t.Marker))
		}
		targetSource := t.Decl.Span.Text(src)
		for _, name := range t.MacroNames {
			res := p.dispatcher.Dispatch(ctx, macro.Context{
				Version:       p.opts.Version,
				Kind:          macro.KindDerive,
				MacroName:     name,
				Module:        p.opts.Module,
				DecoratorSpan: t.Marker,
				TargetSpan:    t.Decl.Span,
				FileName:      fileName,
				Decl:          t.Decl,
				TargetSource:  targetSource,
			})
			calls++
			col.AddRuntime(res.RuntimePatches...)
			col.AddType(res.TypePatches...)
			typed += len(res.TypePatches)
			bag.AddAll(res.Diagnostics)
		}
	}
	timer.End(idx, fmt.Sprintf("%d targets, %d calls", len(targets), calls))

	idx = timer.Begin("apply")
	code, err := col.ApplyRuntime(src)
	if err != nil {
		timer.End(idx, "failed")
		return nil, applyError(fileName, err)
	}
	if tracer := trace.FromContext(ctx); tracer.Level() >= trace.LevelDebug {
		trace.Point(tracer, trace.ScopeDebug, "runtime-patches", patch.Preview(src, col.RuntimePatches()), trace.ParentFrom(ctx))
	}
	var typeOut *string
	if typed > 0 {
		base := src
		if p.opts.TypeBase != nil {
			base = *p.opts.TypeBase
		}
		out, err := col.ApplyType(base)
		if err != nil {
			timer.End(idx, "failed")
			return nil, applyError(fileName, err)
		}
		typeOut = &out
	}
	timer.End(idx, fmt.Sprintf("%d runtime, %d type patches", col.RuntimeLen(), col.TypeLen()))

	idx = timer.Begin("cap")
	diags := bag.Capped()
	timer.End(idx, fmt.Sprintf("%d of %d", len(diags), bag.Len()))

	return &Result{
		Code:        code,
		TypeOutput:  typeOut,
		Diagnostics: diags,
		Changed:     true,
		Dispatches:  calls,
		Timings:     timer.Report(),
	}, nil
}

func applyError(fileName string, err error) error {
	return fmt.Errorf("expand %s: %w", fileName, err)
}
