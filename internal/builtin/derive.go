package builtin

import (
	"fmt"
	"strings"

	"tsderive/internal/lower"
	"tsderive/internal/macro"
)

func genDebug(in *macro.Input, fields []lower.Field) member {
	render := func(recv string) string {
		if len(fields) == 0 {
			return fmt.Sprintf("%q", in.Name()+" {}")
		}
		parts := make([]string, 0, len(fields))
		for i, f := range fields {
			prefix := ", "
			if i == 0 {
				prefix = in.Name() + " { "
			}
			parts = append(parts, fmt.Sprintf("%q + String(%s)", prefix+label(f.Name)+": ", access(recv, f.Name)))
		}
		return strings.Join(parts, " + ") + ` + " }"`
	}

	return member{
		name:      "toString",
		classBody: fmt.Sprintf("\n  toString(): string {\n    return %s;\n  }\n", render("this")),
		classType: "\n  toString(): string;\n",
		ifaceBody: namespace(in, false, fmt.Sprintf(
			"  export function toString(value: %s): string {\n    return %s;\n  }\n", in.Name(), render("value"))),
		ifaceType: namespace(in, true, fmt.Sprintf("  function toString(value: %s): string;\n", in.Name())),
	}
}

func genClone(in *macro.Input, fields []lower.Field) member {
	var body strings.Builder
	body.WriteString("const copy = Object.create(Object.getPrototypeOf(this));\n")
	for _, f := range fields {
		fmt.Fprintf(&body, "%s = %s;\n", access("copy", f.Name), access("this", f.Name))
	}
	body.WriteString("return copy;\n")

	return member{
		name:      "clone",
		classBody: fmt.Sprintf("\n  clone(): %s {\n%s  }\n", in.Name(), indent(body.String(), 4)),
		classType: fmt.Sprintf("\n  clone(): %s;\n", in.Name()),
		ifaceBody: namespace(in, false, fmt.Sprintf(
			"  export function clone(value: %s): %s {\n    return { ...value };\n  }\n", in.Name(), in.Name())),
		ifaceType: namespace(in, true, fmt.Sprintf("  function clone(value: %s): %s;\n", in.Name(), in.Name())),
	}
}

// hashHelper is a 31-multiplier hash over the String() form of each value.
// Numbers are truncated to int32 instead.
const hashHelper = `const hashOf = (v: unknown): number => {
  if (typeof v === "number") return v | 0;
  const s = String(v);
  let h = 0;
  for (let i = 0; i < s.length; i++) {
    h = (Math.imul(h, 31) + s.charCodeAt(i)) | 0;
  }
  return h;
};
`

func genHash(in *macro.Input, fields []lower.Field) member {
	render := func(recv string) string {
		var sb strings.Builder
		if len(fields) > 0 {
			sb.WriteString(hashHelper)
		}
		sb.WriteString("let h = 17;\n")
		for _, f := range fields {
			fmt.Fprintf(&sb, "h = (Math.imul(h, 31) + hashOf(%s)) | 0;\n", access(recv, f.Name))
		}
		sb.WriteString("return h;\n")
		return sb.String()
	}

	return member{
		name:      "hashCode",
		classBody: fmt.Sprintf("\n  hashCode(): number {\n%s  }\n", indent(render("this"), 4)),
		classType: "\n  hashCode(): number;\n",
		ifaceBody: namespace(in, false, fmt.Sprintf(
			"  export function hashCode(value: %s): number {\n%s  }\n", in.Name(), indent(render("value"), 4))),
		ifaceType: namespace(in, true, fmt.Sprintf("  function hashCode(value: %s): number;\n", in.Name())),
	}
}

func genEq(in *macro.Input, fields []lower.Field) member {
	compare := func(a, b string) string {
		if len(fields) == 0 {
			return "true"
		}
		parts := make([]string, 0, len(fields))
		for _, f := range fields {
			parts = append(parts, access(a, f.Name)+" === "+access(b, f.Name))
		}
		return strings.Join(parts, " &&\n      ")
	}

	classBody := fmt.Sprintf(
		"\n  equals(other: unknown): boolean {\n    if (!(other instanceof %s)) return false;\n    return %s;\n  }\n",
		in.Name(), compare("this", "other"))
	ifaceBody := namespace(in, false, fmt.Sprintf(
		"  export function equals(a: %s, b: %s): boolean {\n    return %s;\n  }\n",
		in.Name(), in.Name(), compare("a", "b")))

	return member{
		name:      "equals",
		classBody: classBody,
		classType: "\n  equals(other: unknown): boolean;\n",
		ifaceBody: ifaceBody,
		ifaceType: namespace(in, true, fmt.Sprintf("  function equals(a: %s, b: %s): boolean;\n", in.Name(), in.Name())),
	}
}
