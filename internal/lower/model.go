package lower

import (
	"strings"

	"tsderive/internal/source"
)

// DeclKind classifies a top-level declaration.
type DeclKind uint8

const (
	DeclClass DeclKind = iota + 1
	DeclInterface
	DeclEnum
	DeclTypeAlias
)

func (k DeclKind) String() string {
	switch k {
	case DeclClass:
		return "class"
	case DeclInterface:
		return "interface"
	case DeclEnum:
		return "enum"
	case DeclTypeAlias:
		return "type"
	default:
		return "unknown"
	}
}

// Visibility of a class member.
type Visibility uint8

const (
	VisPublic Visibility = iota
	VisProtected
	VisPrivate
)

func (v Visibility) String() string {
	switch v {
	case VisProtected:
		return "protected"
	case VisPrivate:
		return "private"
	default:
		return "public"
	}
}

// Marker is an annotation such as `@derive(Debug, Clone)` found either in a
// doc comment or as a decorator. Span covers the carrier: the whole comment or
// the whole decorator.
type Marker struct {
	Name         string      `json:"name" msgpack:"name"`
	Args         string      `json:"args,omitempty" msgpack:"args,omitempty"`
	HasArgs      bool        `json:"has_args,omitempty" msgpack:"has_args,omitempty"`
	Unterminated bool        `json:"unterminated,omitempty" msgpack:"unterminated,omitempty"`
	Span         source.Span `json:"span" msgpack:"span"`
}

// Field is a property of a class/interface/object type, or an enum member.
type Field struct {
	Name       string      `json:"name" msgpack:"name"`
	TypeText   string      `json:"type,omitempty" msgpack:"type,omitempty"`
	Optional   bool        `json:"optional,omitempty" msgpack:"optional,omitempty"`
	Readonly   bool        `json:"readonly,omitempty" msgpack:"readonly,omitempty"`
	Static     bool        `json:"static,omitempty" msgpack:"static,omitempty"`
	Visibility Visibility  `json:"visibility" msgpack:"visibility"`
	Markers    []Marker    `json:"markers,omitempty" msgpack:"markers,omitempty"`
	Span       source.Span `json:"span" msgpack:"span"`
}

// Method is a method definition or signature.
type Method struct {
	Name       string      `json:"name" msgpack:"name"`
	ParamsText string      `json:"params" msgpack:"params"`
	ReturnText string      `json:"return,omitempty" msgpack:"return,omitempty"`
	Static     bool        `json:"static,omitempty" msgpack:"static,omitempty"`
	Visibility Visibility  `json:"visibility" msgpack:"visibility"`
	Markers    []Marker    `json:"markers,omitempty" msgpack:"markers,omitempty"`
	Span       source.Span `json:"span" msgpack:"span"`
}

// Decl is the structural description of one top-level declaration.
// Span includes a leading `export` keyword when present; BodySpan covers the
// braces of the body (zero when the declaration has none).
type Decl struct {
	Kind     DeclKind    `json:"kind" msgpack:"kind"`
	Name     string      `json:"name" msgpack:"name"`
	Exported bool        `json:"exported,omitempty" msgpack:"exported,omitempty"`
	Span     source.Span `json:"span" msgpack:"span"`
	BodySpan source.Span `json:"body_span" msgpack:"body_span"`
	Markers  []Marker    `json:"markers,omitempty" msgpack:"markers,omitempty"`
	Fields   []Field     `json:"fields,omitempty" msgpack:"fields,omitempty"`
	Methods  []Method    `json:"methods,omitempty" msgpack:"methods,omitempty"`
}

// File is the lowered form of one source file: its declarations in source order.
type File struct {
	Name  string  `json:"name" msgpack:"name"`
	Decls []*Decl `json:"decls" msgpack:"decls"`
}

// Marker returns the first marker named name (case-insensitive).
func (d *Decl) Marker(name string) (Marker, bool) {
	return findMarker(d.Markers, name)
}

// HasBody reports whether the declaration has a braced body.
func (d *Decl) HasBody() bool {
	return d.BodySpan.Len() >= 2
}

// Marker returns the first marker named name (case-insensitive).
func (f *Field) Marker(name string) (Marker, bool) {
	return findMarker(f.Markers, name)
}

// HasMarkerArg reports whether the field carries marker name with arg among
// its comma-separated arguments, e.g. `@debug(skip)`.
func (f *Field) HasMarkerArg(name, arg string) bool {
	m, ok := f.Marker(name)
	if !ok {
		return false
	}
	for _, a := range strings.Split(m.Args, ",") {
		if strings.TrimSpace(a) == arg {
			return true
		}
	}
	return false
}

// Method returns the method named name, if any.
func (d *Decl) Method(name string) (Method, bool) {
	for _, m := range d.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return Method{}, false
}

func findMarker(ms []Marker, name string) (Marker, bool) {
	for _, m := range ms {
		if strings.EqualFold(m.Name, name) {
			return m, true
		}
	}
	return Marker{}, false
}
