package macro

import (
	"tsderive/internal/diag"
	"tsderive/internal/patch"
)

// Result is the only output of a macro call. Failures are expressed as a
// Result with no patches and at least one Error diagnostic.
type Result struct {
	RuntimePatches []patch.Patch
	TypePatches    []patch.Patch
	Diagnostics    []diag.Diagnostic
}

// Failure returns a patch-free result carrying d.
func Failure(d diag.Diagnostic) Result {
	return Result{Diagnostics: []diag.Diagnostic{d}}
}

// HasErrors reports whether the result carries an Error diagnostic.
func (r Result) HasErrors() bool {
	return diag.HasErrors(r.Diagnostics)
}

// Empty reports whether the result has neither patches nor diagnostics.
func (r Result) Empty() bool {
	return len(r.RuntimePatches) == 0 && len(r.TypePatches) == 0 && len(r.Diagnostics) == 0
}

// Builder accumulates a Result; macro implementations use it to avoid
// juggling three slices.
type Builder struct {
	res Result
}

func (b *Builder) Runtime(ps ...patch.Patch) *Builder {
	b.res.RuntimePatches = append(b.res.RuntimePatches, ps...)
	return b
}

func (b *Builder) Type(ps ...patch.Patch) *Builder {
	b.res.TypePatches = append(b.res.TypePatches, ps...)
	return b
}

func (b *Builder) Report(d diag.Diagnostic) {
	b.res.Diagnostics = append(b.res.Diagnostics, d)
}

func (b *Builder) Result() Result {
	return b.res
}
