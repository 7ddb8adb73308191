package macro

import (
	"errors"
	"fmt"

	"tsderive/internal/diag"
	"tsderive/internal/lower"
	"tsderive/internal/patch"
	"tsderive/internal/source"
)

// Context is the immutable bundle describing one macro call. The pipeline
// builds a fresh one for every (target, macro name) pair.
type Context struct {
	Version       uint32
	Kind          Kind
	MacroName     string
	Module        string
	DecoratorSpan source.Span
	TargetSpan    source.Span
	FileName      string
	Decl          *lower.Decl
	// TargetSource is the raw text under TargetSpan.
	TargetSource string
}

// Key returns the registry key the call resolves against first.
func (c Context) Key() Key {
	return Key{Module: c.Module, Name: c.MacroName}
}

// Input is what a macro's Run receives: the call context plus helpers that
// produce patches addressed in original-source coordinates.
type Input struct {
	Context
}

// ErrInvalidInput is wrapped by every NewInput failure.
var ErrInvalidInput = errors.New("invalid macro input")

// NewInput validates c and wraps it for Run.
func NewInput(c Context) (*Input, error) {
	switch {
	case c.MacroName == "":
		return nil, fmt.Errorf("%w: empty macro name", ErrInvalidInput)
	case c.FileName == "":
		return nil, fmt.Errorf("%w: missing file name", ErrInvalidInput)
	case c.Decl == nil:
		return nil, fmt.Errorf("%w: missing declaration", ErrInvalidInput)
	case !c.TargetSpan.Valid():
		return nil, fmt.Errorf("%w: inverted declaration span %s", ErrInvalidInput, c.TargetSpan)
	case uint64(len(c.TargetSource)) != uint64(c.TargetSpan.Len()):
		return nil, fmt.Errorf("%w: declaration text is %d bytes but its span %s covers %d",
			ErrInvalidInput, len(c.TargetSource), c.TargetSpan, c.TargetSpan.Len())
	case c.Decl.HasBody() && !c.TargetSpan.Contains(c.Decl.BodySpan):
		return nil, fmt.Errorf("%w: body %s lies outside declaration %s", ErrInvalidInput, c.Decl.BodySpan, c.TargetSpan)
	}
	return &Input{Context: c}, nil
}

// Name returns the declaration name.
func (in *Input) Name() string {
	return in.Decl.Name
}

// BodyEnd is the offset of the declaration's closing brace.
func (in *Input) BodyEnd() (uint32, bool) {
	if !in.Decl.HasBody() {
		return 0, false
	}
	return in.Decl.BodySpan.End - 1, true
}

// InsertIntoBody adds code right before the closing brace of the body.
func (in *Input) InsertIntoBody(code string) (patch.Patch, bool) {
	at, ok := in.BodyEnd()
	if !ok {
		return patch.Patch{}, false
	}
	return patch.Insert(at, code), true
}

// InsertAfter adds code right after the declaration.
func (in *Input) InsertAfter(code string) patch.Patch {
	return patch.Insert(in.TargetSpan.End, code)
}

// Slice returns the original text under sp, which must lie inside the
// declaration.
func (in *Input) Slice(sp source.Span) string {
	if !in.TargetSpan.Contains(sp) {
		return ""
	}
	return sp.ShiftLeft(in.TargetSpan.Start).Text(in.TargetSource)
}

// Errorf builds an Error diagnostic at the decorator.
func (in *Input) Errorf(code diag.Code, format string, args ...any) diag.Diagnostic {
	return diag.NewError(code, in.DecoratorSpan, fmt.Sprintf(format, args...))
}

// Warnf builds a Warning diagnostic at the decorator.
func (in *Input) Warnf(code diag.Code, format string, args ...any) diag.Diagnostic {
	return diag.NewWarning(code, in.DecoratorSpan, fmt.Sprintf(format, args...))
}
