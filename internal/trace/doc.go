// Package trace records what the expansion engine is doing.
//
// Events are spans (begin/end pairs) or points, tagged with a scope:
//
//   - ScopeDriver: a whole run over a set of files
//   - ScopeFile: one file going through the pipeline (lower, dispatch, apply)
//   - ScopeMacro: one macro invocation on one declaration
//
// The level decides which scopes are emitted. LevelPhase stops at files,
// LevelDetail adds macro calls, LevelDebug adds everything else.
//
// Tracers travel through the pipeline in the context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	sp := trace.Begin(trace.FromContext(ctx), trace.ScopeFile, "expand", 0)
//	defer sp.End("")
//
// A Heartbeat emits periodic events so a stalled macro shows up as a run of
// heartbeats with no matching span end.
package trace
