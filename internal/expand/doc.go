// Package expand runs the derive expansion for one file.
//
// A Pipeline takes source text through a fixed sequence: a substring
// bail-out, lowering, derive-target scanning, one dispatch per (target,
// macro name), patch application, and the diagnostics cap. Everything that
// goes wrong inside a single macro call ends up as a diagnostic; only
// overlapping patches and lowering failures make Expand return an error.
//
// The pipeline is synchronous and keeps no state between calls, so one
// Pipeline can serve many goroutines as long as its Lowerer can.
package expand
