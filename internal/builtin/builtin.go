// Package builtin holds the derive macros that ship with tsderive.
//
// Each macro adds one member to a class body, or one function in a namespace
// merged with an interface, plus the matching signature on the type channel.
// Fields marked `@debug(skip)` or `@hash(skip)` are left out of the
// generated code for the respective macro.
package builtin

import (
	"context"
	"fmt"
	"strings"

	"tsderive/internal/diag"
	"tsderive/internal/lower"
	"tsderive/internal/macro"
)

// Module is the registry module the built-ins live under.
const Module = macro.DefaultModule

// All returns a fresh instance of every built-in macro.
func All() []macro.Macro {
	return []macro.Macro{
		deriveMacro{name: "Debug", desc: "toString() listing each field", gen: genDebug},
		deriveMacro{name: "Clone", desc: "clone() returning a shallow copy", gen: genClone, publicOnly: true},
		deriveMacro{name: "Hash", desc: "hashCode() combining field hashes", gen: genHash},
		deriveMacro{name: "PartialEq", desc: "equals(other) comparing fields with ===", gen: genEq},
	}
}

// Register adds every built-in macro to r under Module.
func Register(r *macro.Registry) error {
	for _, m := range All() {
		if err := r.Register(Module, m.Name(), m); err != nil {
			return fmt.Errorf("builtin: %w", err)
		}
	}
	return nil
}

// Package exposes Register as a macro.Package.
var Package macro.Package = macro.PackageFunc(Register)

// member is what a generator produces for one declaration.
type member struct {
	// name of the class member or namespace function; checked for clashes.
	name string
	// runtime code for a class body, or for a namespace after an interface.
	classBody string
	classType string
	ifaceBody string
	ifaceType string
}

type generator func(in *macro.Input, fields []lower.Field) member

type deriveMacro struct {
	name string
	desc string
	gen  generator
	// publicOnly leaves out `#private` fields, which a generated method
	// cannot reach on an object it did not construct.
	publicOnly bool
}

func (m deriveMacro) Name() string        { return m.name }
func (m deriveMacro) Kind() macro.Kind    { return macro.KindDerive }
func (m deriveMacro) Version() uint32     { return macro.StableVersion }
func (m deriveMacro) Description() string { return m.desc }

func (m deriveMacro) Run(ctx context.Context, in *macro.Input) macro.Result {
	var b macro.Builder

	switch in.Decl.Kind {
	case lower.DeclClass, lower.DeclInterface:
	default:
		b.Report(in.Warnf(diag.DeriveUnsupportedTarget,
			"`%s` cannot be derived for %s `%s`", m.name, in.Decl.Kind, in.Name()).
			WithHelp("derive targets must be classes or interfaces"))
		return b.Result()
	}

	if err := ctx.Err(); err != nil {
		b.Report(in.Errorf(diag.MacroCancelled, "`%s` stopped: %v", m.name, err))
		return b.Result()
	}

	fields := selectFields(in, m.name, &b)
	if m.publicOnly && in.Decl.Kind == lower.DeclClass {
		fields = dropPrivate(in, m.name, fields, &b)
	}
	mem := m.gen(in, fields)

	if in.Decl.Kind == lower.DeclClass {
		if _, clash := in.Decl.Method(mem.name); clash {
			b.Report(in.Errorf(diag.MacroUserError,
				"`%s` would add `%s`, but class `%s` already defines it", m.name, mem.name, in.Name()).
				WithHelp(fmt.Sprintf("remove `%s` from @derive(...) or rename the existing method", m.name)))
			return b.Result()
		}
		rt, ok := in.InsertIntoBody(mem.classBody)
		if !ok {
			b.Report(in.Errorf(diag.MacroUserError, "class `%s` has no body to extend", in.Name()))
			return b.Result()
		}
		ty, _ := in.InsertIntoBody(mem.classType)
		b.Runtime(rt).Type(ty)
		return b.Result()
	}

	b.Runtime(in.InsertAfter(mem.ifaceBody)).Type(in.InsertAfter(mem.ifaceType))
	return b.Result()
}

// selectFields keeps instance fields not opted out via `@<macro>(skip)`, and
// warns about marker options the macro does not understand.
func selectFields(in *macro.Input, macroName string, rep diag.Reporter) []lower.Field {
	marker := strings.ToLower(macroName)
	out := make([]lower.Field, 0, len(in.Decl.Fields))
	for _, f := range in.Decl.Fields {
		if f.Static {
			continue
		}
		if mk, ok := f.Marker(marker); ok {
			for _, opt := range strings.Split(mk.Args, ",") {
				opt = strings.TrimSpace(opt)
				if opt != "" && opt != "skip" {
					rep.Report(diag.NewWarning(diag.DeriveUnknownOption, mk.Span,
						fmt.Sprintf("unknown option `%s` for `@%s` on field `%s`", opt, marker, f.Name)).
						WithHelp("the only supported option is `skip`"))
				}
			}
			if f.HasMarkerArg(marker, "skip") {
				continue
			}
		}
		out = append(out, f)
	}
	return out
}

// dropPrivate removes `#name` fields, warning once per field.
func dropPrivate(in *macro.Input, macroName string, fields []lower.Field, rep diag.Reporter) []lower.Field {
	out := fields[:0:0]
	for _, f := range fields {
		if isPrivateName(f.Name) {
			rep.Report(diag.NewWarning(diag.DeriveUnsupportedTarget, f.Span,
				fmt.Sprintf("`%s` cannot copy private field `%s` of `%s`; it is left out", macroName, f.Name, in.Name())).
				WithHelp("use a `private` modifier instead of a `#` name to have the field copied"))
			continue
		}
		out = append(out, f)
	}
	return out
}

func isPrivateName(name string) bool {
	return strings.HasPrefix(name, "#") && isIdent(name[1:])
}

// access renders recv.name, recv.#name for private names, or recv["name"]
// for names that are not identifiers.
func access(recv, name string) string {
	if isIdent(name) || isPrivateName(name) {
		return recv + "." + name
	}
	if strings.HasPrefix(name, `"`) || strings.HasPrefix(name, `'`) {
		return recv + "[" + name + "]"
	}
	return recv + `["` + name + `"]`
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// label is the field name as shown in generated strings.
func label(name string) string {
	return strings.Trim(name, `"'`)
}

// namespace wraps fn in a namespace merged with the declaration.
func namespace(in *macro.Input, declare bool, fn string) string {
	var sb strings.Builder
	sb.WriteString("\n\n")
	if in.Decl.Exported {
		sb.WriteString("export ")
	}
	if declare {
		sb.WriteString("declare ")
	}
	fmt.Fprintf(&sb, "namespace %s {\n%s}\n", in.Name(), fn)
	return sb.String()
}

// indent prefixes every non-empty line of s with n spaces.
func indent(s string, n int) string {
	pad := strings.Repeat(" ", n)
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = pad + l
		}
	}
	return strings.Join(lines, "\n")
}
