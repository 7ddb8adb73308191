package macro

import (
	"context"
	"fmt"
	"strings"
)

// StableVersion is the compatibility version assumed for macros that do not
// implement Versioned, and the version requested by default.
const StableVersion uint32 = 1

// DefaultModule is the module calls resolve against when none is configured.
const DefaultModule = "@tsderive/builtin"

// Kind tags how a macro is invoked.
type Kind uint8

const (
	KindDerive Kind = iota + 1
	KindAttribute
	KindCall
)

func (k Kind) String() string {
	switch k {
	case KindDerive:
		return "derive"
	case KindAttribute:
		return "attribute"
	case KindCall:
		return "call"
	default:
		return "unknown"
	}
}

// ParseKind converts a string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "derive":
		return KindDerive, nil
	case "attribute":
		return KindAttribute, nil
	case "call":
		return KindCall, nil
	default:
		return 0, fmt.Errorf("invalid macro kind: %q (expected: derive|attribute|call)", s)
	}
}

// Macro is the plugin contract. Name must match the identifier written inside
// `@derive(...)`.
type Macro interface {
	Name() string
	Kind() Kind
	Run(ctx context.Context, in *Input) Result
}

// Versioned is implemented by macros that pin a compatibility version.
type Versioned interface {
	Version() uint32
}

// Described is implemented by macros that carry a description.
type Described interface {
	Description() string
}

// VersionOf returns the compatibility version m reports.
func VersionOf(m Macro) uint32 {
	if v, ok := m.(Versioned); ok {
		return v.Version()
	}
	return StableVersion
}

// DescriptionOf returns m's description, or "".
func DescriptionOf(m Macro) string {
	if d, ok := m.(Described); ok {
		return d.Description()
	}
	return ""
}

// Func adapts a function into a derive Macro; handy for small macros and tests.
type Func struct {
	MacroName string
	MacroKind Kind
	Desc      string
	Ver       uint32
	Fn        func(ctx context.Context, in *Input) Result
}

func (f *Func) Name() string { return f.MacroName }

func (f *Func) Kind() Kind {
	if f.MacroKind == 0 {
		return KindDerive
	}
	return f.MacroKind
}

func (f *Func) Version() uint32 {
	if f.Ver == 0 {
		return StableVersion
	}
	return f.Ver
}

func (f *Func) Description() string { return f.Desc }

func (f *Func) Run(ctx context.Context, in *Input) Result {
	if f.Fn == nil {
		return Result{}
	}
	return f.Fn(ctx, in)
}
