package macro

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tsderive/internal/diag"
	"tsderive/internal/trace"
)

const panicFallback = "macro panicked without a message"

// Dispatcher resolves a call context to a macro and runs it behind a panic
// barrier. Dispatch never panics and never returns an error; every failure
// comes back as an Error diagnostic in the Result.
type Dispatcher struct {
	reg     *Registry
	timeout time.Duration
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTimeout bounds each Run. Zero keeps calls synchronous.
func WithTimeout(d time.Duration) Option {
	return func(dp *Dispatcher) {
		if d > 0 {
			dp.timeout = d
		}
	}
}

// NewDispatcher creates a dispatcher over reg.
func NewDispatcher(reg *Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{reg: reg}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry returns the registry the dispatcher resolves against.
func (d *Dispatcher) Registry() *Registry { return d.reg }

// Timeout returns the per-call limit, or 0.
func (d *Dispatcher) Timeout() time.Duration { return d.timeout }

// Dispatch runs the macro named by mc.
func (d *Dispatcher) Dispatch(ctx context.Context, mc Context) Result {
	tracer := trace.FromContext(ctx)
	sp := trace.Begin(tracer, trace.ScopeMacro, "macro:"+mc.MacroName, trace.ParentFrom(ctx))
	res := d.dispatch(ctx, tracer, sp.ID(), mc)
	sp.WithExtra("runtime_patches", fmt.Sprint(len(res.RuntimePatches))).
		WithExtra("type_patches", fmt.Sprint(len(res.TypePatches))).
		WithExtra("diagnostics", fmt.Sprint(len(res.Diagnostics)))
	sp.End(declName(mc))
	return res
}

func (d *Dispatcher) dispatch(ctx context.Context, tracer trace.Tracer, spanID uint64, mc Context) Result {
	at := mc.DecoratorSpan

	if d.reg == nil {
		return Failure(diag.NewError(diag.MacroNotFound, at,
			fmt.Sprintf("macro `%s` not found: no registry configured", mc.MacroName)))
	}

	m, err := d.reg.LookupWithFallback(mc.Module, mc.MacroName)
	if err != nil {
		return Failure(diag.NewError(diag.MacroNotFound, at,
			fmt.Sprintf("macro `%s` not found in `%s` or any other module", mc.MacroName, mc.Module)).
			WithHelp("register the macro or check the spelling in @derive(...)"))
	}

	if got := VersionOf(m); got != mc.Version {
		return Failure(diag.NewError(diag.MacroVersionMismatch, at,
			fmt.Sprintf("macro `%s` has version %d, but version %d was requested", mc.MacroName, got, mc.Version)))
	}

	if err := ctx.Err(); err != nil {
		return Failure(diag.NewError(diag.MacroCancelled, at,
			fmt.Sprintf("macro `%s` was not run: %v", mc.MacroName, err)))
	}

	in, err := NewInput(mc)
	if err != nil {
		return Failure(diag.NewError(diag.MacroInputInvalid, at,
			fmt.Sprintf("macro `%s` received invalid input: %s", mc.MacroName, strings.TrimPrefix(err.Error(), ErrInvalidInput.Error()+": "))))
	}

	var res Result
	if d.timeout > 0 {
		res = d.runWithTimeout(ctx, m, in)
	} else {
		res = <-runIsolated(ctx, m, in)
	}

	if res.HasErrors() {
		for _, dg := range res.Diagnostics {
			if dg.Code == diag.MacroPanicked || dg.Code == diag.MacroTimedOut {
				trace.Error(tracer, trace.ScopeMacro, "macro:"+mc.MacroName, dg.Message, spanID)
			}
		}
	}
	return res
}

// runGuarded calls m.Run and turns a panic into a MacroPanicked failure.
func runGuarded(ctx context.Context, m Macro, in *Input) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Failure(diag.NewError(diag.MacroPanicked, in.DecoratorSpan,
				fmt.Sprintf("macro `%s` panicked: %s", in.MacroName, panicMessage(r))))
		}
	}()
	return m.Run(ctx, in)
}

// runIsolated runs the macro on its own goroutine so that runtime.Goexit
// inside Run ends only that goroutine. The channel always receives exactly
// one Result.
func runIsolated(ctx context.Context, m Macro, in *Input) <-chan Result {
	done := make(chan Result, 1)
	go func() {
		sent := false
		defer func() {
			// runtime.Goexit skips the send below but still runs defers.
			if !sent {
				done <- Failure(diag.NewError(diag.MacroPanicked, in.DecoratorSpan,
					fmt.Sprintf("macro `%s` panicked: %s", in.MacroName, panicFallback)))
			}
		}()
		res := runGuarded(ctx, m, in)
		sent = true
		done <- res
	}()
	return done
}

func (d *Dispatcher) runWithTimeout(ctx context.Context, m Macro, in *Input) Result {
	runCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := runIsolated(runCtx, m, in)

	select {
	case res := <-done:
		return res
	case <-runCtx.Done():
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return Failure(diag.NewError(diag.MacroTimedOut, in.DecoratorSpan,
				fmt.Sprintf("macro `%s` did not finish within %s", in.MacroName, d.timeout)).
				WithNote("its output was discarded"))
		}
		return Failure(diag.NewError(diag.MacroCancelled, in.DecoratorSpan,
			fmt.Sprintf("macro `%s` was cancelled: %v", in.MacroName, ctx.Err())))
	}
}

// panicMessage extracts a readable message from a recovered value.
func panicMessage(r any) string {
	var msg string
	switch v := r.(type) {
	case error:
		msg = v.Error()
	case string:
		msg = v
	case fmt.Stringer:
		msg = v.String()
	default:
		msg = fmt.Sprint(v)
	}
	if strings.TrimSpace(msg) == "" {
		return panicFallback
	}
	return msg
}

func declName(mc Context) string {
	if mc.Decl == nil {
		return ""
	}
	return mc.Decl.Name
}
