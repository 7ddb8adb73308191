// Package patch accumulates text edits produced by macros and applies them to
// the original source exactly once per file.
//
// Every Patch addresses the ORIGINAL buffer. Apply dedups identical patches,
// rejects any overlap, and rewrites back-to-front so that no span is ever
// invalidated by an earlier edit.
package patch

import (
	"fmt"

	"tsderive/internal/source"
)

// Kind tags a Patch.
type Kind uint8

const (
	KindInsert Kind = iota + 1
	KindReplace
	KindDelete
)

func (k Kind) String() string {
	switch k {
	case KindInsert:
		return "insert"
	case KindReplace:
		return "replace"
	case KindDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Patch is one edit. Insert patches carry a zero-length Span; Delete patches
// carry no Code.
type Patch struct {
	Kind Kind        `json:"kind" msgpack:"kind"`
	Span source.Span `json:"span" msgpack:"span"`
	Code string      `json:"code,omitempty" msgpack:"code,omitempty"`
}

// Insert splices code at offset at.
func Insert(at uint32, code string) Patch {
	return Patch{Kind: KindInsert, Span: source.Point(at), Code: code}
}

// Replace substitutes code for the text under sp.
func Replace(sp source.Span, code string) Patch {
	return Patch{Kind: KindReplace, Span: sp, Code: code}
}

// Delete removes the text under sp.
func Delete(sp source.Span) Patch {
	return Patch{Kind: KindDelete, Span: sp}
}

// replacement is the text that ends up in place of p.Span.
func (p Patch) replacement() string {
	if p.Kind == KindDelete {
		return ""
	}
	return p.Code
}

func (p Patch) String() string {
	switch p.Kind {
	case KindDelete:
		return fmt.Sprintf("delete %s", p.Span)
	default:
		return fmt.Sprintf("%s %s %q", p.Kind, p.Span, p.Code)
	}
}
