// Package diag defines the diagnostic model shared by the macro dispatcher,
// the expansion pipeline and macro implementations.
//
// # Data model
//
// Diagnostic is the central record. It contains:
//
//   - Severity – tri-level enum (Info, Warning, Error) defined in severity.go.
//   - Code – compact numeric identifier (see codes.go) with stable string form.
//   - Message – human oriented text; keep it short and actionable.
//   - Primary – optional span into the original source of the file.
//   - Notes – extra context lines.
//   - Help – one suggestion on how to resolve the problem.
//
// Spans are byte offsets; translating them to line/column is the host's job
// (see source.File.Position and package diagfmt).
//
// # Emitting diagnostics
//
// Producers use a Reporter to decouple emission from storage. ReportError /
// ReportWarning / ReportInfo build a ReportBuilder that can be decorated with
// WithNote / WithHelp before Emit.
//
// # Capping
//
// Bag keeps every diagnostic of a file in emission order. Capped applies the
// per-file limit: a zero limit reports nothing, and an overflowing list is cut
// to limit-1 entries followed by a single DiagnosticsTruncated warning.
package diag
