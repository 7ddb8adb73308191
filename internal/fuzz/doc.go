// Package fuzztests holds Go fuzz harnesses for marker parsing, patch
// application and the full expansion pipeline. They guard against panics
// and broken span invariants on arbitrary input.
package fuzztests
