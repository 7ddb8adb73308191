package diagfmt

import (
	"encoding/json"
	"io"
	"strings"

	"tsderive/internal/diag"
	"tsderive/internal/observ"
	"tsderive/internal/source"
)

// LocationJSON is a span plus optional line/column positions.
type LocationJSON struct {
	StartByte uint32 `json:"start_byte"`
	EndByte   uint32 `json:"end_byte"`
	StartLine uint32 `json:"start_line,omitempty"`
	StartCol  uint32 `json:"start_col,omitempty"`
	EndLine   uint32 `json:"end_line,omitempty"`
	EndCol    uint32 `json:"end_col,omitempty"`
}

// DiagnosticJSON is one diagnostic in JSON output.
type DiagnosticJSON struct {
	Severity string        `json:"severity"`
	Code     string        `json:"code"`
	Title    string        `json:"title"`
	Message  string        `json:"message"`
	Location *LocationJSON `json:"location,omitempty"`
	Notes    []string      `json:"notes,omitempty"`
	Help     string        `json:"help,omitempty"`
}

// FileJSON groups the outcome of one file.
type FileJSON struct {
	File        string           `json:"file"`
	Changed     bool             `json:"changed"`
	Cached      bool             `json:"cached,omitempty"`
	Error       string           `json:"error,omitempty"`
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Timings     *observ.Report   `json:"timings,omitempty"`
}

// Output is the root of JSON output.
type Output struct {
	Files []FileJSON `json:"files"`
	Count int        `json:"count"`
}

// FileReport is the input for one file.
type FileReport struct {
	Path        string
	File        *source.File
	Changed     bool
	Cached      bool
	Err         error
	Diagnostics []diag.Diagnostic
	Timings     observ.Report
}

func makeLocation(sp source.Span, file *source.File, includePositions bool) *LocationJSON {
	loc := &LocationJSON{StartByte: sp.Start, EndByte: sp.End}
	if includePositions && file != nil {
		start, end := file.Resolve(sp)
		loc.StartLine, loc.StartCol = start.Line, start.Col
		loc.EndLine, loc.EndCol = end.Line, end.Col
	}
	return loc
}

// BuildOutput assembles JSON output without serializing it.
func BuildOutput(reports []FileReport, opts JSONOpts) Output {
	out := Output{Files: make([]FileJSON, 0, len(reports))}
	for _, r := range reports {
		fj := FileJSON{
			File:        displayPath(r.Path, opts.PathMode, opts.BaseDir),
			Changed:     r.Changed,
			Cached:      r.Cached,
			Diagnostics: make([]DiagnosticJSON, 0, len(r.Diagnostics)),
		}
		if r.Err != nil {
			fj.Error = r.Err.Error()
		}
		if opts.IncludeTimings && len(r.Timings.Stages) > 0 {
			t := r.Timings
			fj.Timings = &t
		}

		items := r.Diagnostics
		if opts.Max > 0 && opts.Max < len(items) {
			items = items[:opts.Max]
		}
		for _, d := range items {
			dj := DiagnosticJSON{
				Severity: strings.ToLower(d.Severity.String()),
				Code:     d.Code.ID(),
				Title:    d.Code.Title(),
				Message:  d.Message,
			}
			if d.Primary != nil {
				dj.Location = makeLocation(*d.Primary, r.File, opts.IncludePositions)
			}
			if opts.IncludeNotes {
				dj.Notes = d.Notes
				dj.Help = d.Help
			}
			fj.Diagnostics = append(fj.Diagnostics, dj)
		}
		out.Count += len(fj.Diagnostics)
		out.Files = append(out.Files, fj)
	}
	return out
}

// JSON writes reports as indented JSON.
func JSON(w io.Writer, reports []FileReport, opts JSONOpts) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(BuildOutput(reports, opts))
}
