package builtin

import (
	"context"
	"errors"
	"strings"
	"testing"

	"tsderive/internal/diag"
	"tsderive/internal/lower"
	"tsderive/internal/macro"
	"tsderive/internal/patch"
	"tsderive/internal/source"
)

const userSrc = "class User { name: string; age: number; }"

func userDecl(kind lower.DeclKind) *lower.Decl {
	return &lower.Decl{
		Kind:     kind,
		Name:     "User",
		Span:     source.MustSpan(0, len(userSrc)),
		BodySpan: source.MustSpan(11, len(userSrc)),
		Fields: []lower.Field{
			{Name: "name", TypeText: "string", Span: source.MustSpan(13, 26)},
			{Name: "age", TypeText: "number", Span: source.MustSpan(27, 39)},
		},
	}
}

func run(t *testing.T, name string, decl *lower.Decl) macro.Result {
	t.Helper()
	r := macro.NewRegistry()
	if err := Register(r); err != nil {
		t.Fatal(err)
	}
	return macro.NewDispatcher(r).Dispatch(context.Background(), macro.Context{
		Version:      macro.StableVersion,
		Kind:         macro.KindDerive,
		MacroName:    name,
		Module:       Module,
		TargetSpan:   decl.Span,
		FileName:     "user.ts",
		Decl:         decl,
		TargetSource: userSrc,
	})
}

func apply(t *testing.T, ps []patch.Patch) string {
	t.Helper()
	out, err := patch.Apply(userSrc, ps)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestRegisterTwiceFails(t *testing.T) {
	r := macro.NewRegistry()
	if err := macro.RegisterAll(r, Package); err != nil {
		t.Fatal(err)
	}
	if r.Len() != 4 {
		t.Fatalf("registered %d macros, want 4", r.Len())
	}
	if err := Register(r); !errors.Is(err, macro.ErrDuplicate) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestClassMembers(t *testing.T) {
	tests := []struct {
		macro   string
		runtime []string
		typ     string
	}{
		{"Debug", []string{"toString(): string {", `"User { name: " + String(this.name)`, `", age: " + String(this.age) + " }"`}, "toString(): string;"},
		{"Clone", []string{"clone(): User {", "copy.name = this.name;", "copy.age = this.age;"}, "clone(): User;"},
		{"Hash", []string{"hashCode(): number {", "hashOf(this.name)", "hashOf(this.age)", "Math.imul(h, 31)"}, "hashCode(): number;"},
		{"PartialEq", []string{"equals(other: unknown): boolean {", "other instanceof User", "this.name === other.name"}, "equals(other: unknown): boolean;"},
	}
	for _, tt := range tests {
		t.Run(tt.macro, func(t *testing.T) {
			res := run(t, tt.macro, userDecl(lower.DeclClass))
			if len(res.Diagnostics) != 0 {
				t.Fatalf("unexpected diagnostics: %+v", res.Diagnostics)
			}
			out := apply(t, res.RuntimePatches)
			if !strings.HasPrefix(out, "class User { name: string; age: number; \n") || !strings.HasSuffix(out, "}") {
				t.Fatalf("member not inserted inside the body:\n%s", out)
			}
			for _, want := range tt.runtime {
				if !strings.Contains(out, want) {
					t.Errorf("runtime output missing %q:\n%s", want, out)
				}
			}
			if typ := apply(t, res.TypePatches); !strings.Contains(typ, tt.typ) {
				t.Errorf("type output missing %q:\n%s", tt.typ, typ)
			}
		})
	}
}

func TestInterfaceUsesNamespace(t *testing.T) {
	decl := userDecl(lower.DeclInterface)
	decl.Exported = true
	res := run(t, "Debug", decl)
	out := apply(t, res.RuntimePatches)
	if !strings.HasPrefix(out, userSrc+"\n\nexport namespace User {") {
		t.Fatalf("expected a namespace after the interface:\n%s", out)
	}
	if !strings.Contains(out, "export function toString(value: User): string") {
		t.Fatalf("namespace function missing:\n%s", out)
	}
	typ := apply(t, res.TypePatches)
	if !strings.Contains(typ, "export declare namespace User {") {
		t.Fatalf("type output missing declaration:\n%s", typ)
	}
}

func TestSkipMarker(t *testing.T) {
	decl := userDecl(lower.DeclClass)
	decl.Fields[1].Markers = []lower.Marker{{Name: "debug", Args: "skip", HasArgs: true}}
	out := apply(t, run(t, "Debug", decl).RuntimePatches)
	if strings.Contains(out, "this.age") {
		t.Fatalf("skipped field rendered:\n%s", out)
	}
	// Only @debug(skip) is honoured by Debug; Hash still sees the field.
	out = apply(t, run(t, "Hash", decl).RuntimePatches)
	if !strings.Contains(out, "this.age") {
		t.Fatalf("Hash dropped a field skipped only for Debug:\n%s", out)
	}
}

func TestUnknownFieldOption(t *testing.T) {
	decl := userDecl(lower.DeclClass)
	decl.Fields[0].Markers = []lower.Marker{{Name: "hash", Args: "ignore", HasArgs: true, Span: source.MustSpan(13, 17)}}
	res := run(t, "Hash", decl)
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Code != diag.DeriveUnknownOption {
		t.Fatalf("expected one unknown-option warning, got %+v", res.Diagnostics)
	}
	if res.HasErrors() || len(res.RuntimePatches) != 1 {
		t.Fatalf("warning should not suppress output: %+v", res)
	}
}

func TestUnsupportedTargets(t *testing.T) {
	for _, kind := range []lower.DeclKind{lower.DeclEnum, lower.DeclTypeAlias} {
		res := run(t, "Clone", userDecl(kind))
		if len(res.RuntimePatches)+len(res.TypePatches) != 0 {
			t.Fatalf("%s: unexpected patches", kind)
		}
		if len(res.Diagnostics) != 1 || res.Diagnostics[0].Severity != diag.SevWarning ||
			res.Diagnostics[0].Code != diag.DeriveUnsupportedTarget {
			t.Fatalf("%s: expected unsupported-target warning, got %+v", kind, res.Diagnostics)
		}
	}
}

func TestExistingMethodClash(t *testing.T) {
	decl := userDecl(lower.DeclClass)
	decl.Methods = []lower.Method{{Name: "clone", ParamsText: "()"}}
	res := run(t, "Clone", decl)
	if !res.HasErrors() || len(res.RuntimePatches) != 0 {
		t.Fatalf("expected a clash error with no patches, got %+v", res)
	}
}

func TestAccess(t *testing.T) {
	tests := []struct{ name, want string }{
		{"name", "this.name"},
		{"$id", "this.$id"},
		{"first-name", `this["first-name"]`},
		{`"quoted"`, `this["quoted"]`},
		{"#secret", "this.#secret"},
		{"#", `this["#"]`},
	}
	for _, tt := range tests {
		if got := access("this", tt.name); got != tt.want {
			t.Errorf("access(%q) = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestPrivateFields(t *testing.T) {
	decl := userDecl(lower.DeclClass)
	decl.Fields[1].Name = "#age"

	out := apply(t, run(t, "PartialEq", decl).RuntimePatches)
	if !strings.Contains(out, "this.#age === other.#age") {
		t.Fatalf("private field not compared with # access:\n%s", out)
	}
	out = apply(t, run(t, "Debug", decl).RuntimePatches)
	if !strings.Contains(out, "String(this.#age)") || strings.Contains(out, `["#age"]`) {
		t.Fatalf("private field rendered with bracket access:\n%s", out)
	}

	res := run(t, "Clone", decl)
	out = apply(t, res.RuntimePatches)
	if strings.Contains(out, "#age") {
		t.Fatalf("Clone should leave private fields out:\n%s", out)
	}
	if !strings.Contains(out, "copy.name = this.name;") {
		t.Fatalf("public field missing from clone:\n%s", out)
	}
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Severity != diag.SevWarning ||
		!strings.Contains(res.Diagnostics[0].Message, "#age") {
		t.Fatalf("expected one warning naming the private field, got %+v", res.Diagnostics)
	}
}
