package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"tsderive/internal/diag"
	"tsderive/internal/source"
)

type palette struct {
	err, warn, info, note, help, gutter, caret, bold *color.Color
}

func newPalette(enabled bool) palette {
	mk := func(attrs ...color.Attribute) *color.Color {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c
	}
	return palette{
		err:    mk(color.FgRed, color.Bold),
		warn:   mk(color.FgYellow, color.Bold),
		info:   mk(color.FgCyan, color.Bold),
		note:   mk(color.FgBlue, color.Bold),
		help:   mk(color.FgGreen, color.Bold),
		gutter: mk(color.FgBlue),
		caret:  mk(color.FgRed, color.Bold),
		bold:   mk(color.Bold),
	}
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty writes diags for file in a human-readable form:
//
//	path:line:col: ERROR MAC1001: message
//	   3 | class User {
//	     | ^~~~~~~~~~
//	  note: ...
//	  help: ...
//
// file may be nil, in which case only the header lines are printed.
func Pretty(w io.Writer, file *source.File, diags []diag.Diagnostic, opts PrettyOpts) error {
	p := newPalette(opts.Color)
	path := "<input>"
	if file != nil {
		path = displayPath(file.Path, opts.PathMode, opts.BaseDir)
	}

	var sb strings.Builder
	for i, d := range diags {
		if i > 0 {
			sb.WriteByte('\n')
		}
		writeHeader(&sb, p, path, file, d)
		if file != nil && d.Primary != nil {
			writeSnippet(&sb, p, file, *d.Primary, opts)
		}
		if opts.ShowNotes {
			for _, n := range d.Notes {
				fmt.Fprintf(&sb, "  %s %s\n", p.note.Sprint("note:"), n)
			}
			if d.Help != "" {
				fmt.Fprintf(&sb, "  %s %s\n", p.help.Sprint("help:"), d.Help)
			}
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func writeHeader(sb *strings.Builder, p palette, path string, file *source.File, d diag.Diagnostic) {
	loc := path
	if file != nil && d.Primary != nil {
		pos := file.Position(d.Primary.Start)
		loc = fmt.Sprintf("%s:%d:%d", path, pos.Line, pos.Col)
	}
	sev := p.severity(d.Severity)
	fmt.Fprintf(sb, "%s: %s %s: %s\n",
		p.bold.Sprint(loc),
		sev.Sprint(strings.ToUpper(d.Severity.String())),
		sev.Sprint(d.Code.ID()),
		p.bold.Sprint(d.Message))
}

func writeSnippet(sb *strings.Builder, p palette, file *source.File, sp source.Span, opts PrettyOpts) {
	start, end := file.Resolve(sp)
	if end.Line < start.Line {
		end = start
	}
	ctx := uint32(max(opts.Context, 0))

	first := start.Line
	if first > ctx {
		first -= ctx
	} else {
		first = 1
	}
	last := min(start.Line+ctx, uint32(len(file.LineIdx)+1))
	gutterWidth := len(fmt.Sprint(last))

	for ln := first; ln <= last; ln++ {
		text := file.GetLine(ln)
		display := expandTabs(text)
		if opts.Width > 0 {
			display = runewidth.Truncate(display, opts.Width, "…")
		}
		fmt.Fprintf(sb, " %s %s %s\n",
			p.gutter.Sprintf("%*d", gutterWidth, ln), p.gutter.Sprint("|"), display)

		if ln != start.Line {
			continue
		}
		pad, width := caretColumns(text, start.Col, end, ln)
		if opts.Width > 0 && pad+width > opts.Width {
			width = max(opts.Width-pad, 1)
		}
		marks := "^"
		if width > 1 {
			marks += strings.Repeat("~", width-1)
		}
		fmt.Fprintf(sb, " %s %s %s%s\n",
			strings.Repeat(" ", gutterWidth), p.gutter.Sprint("|"),
			strings.Repeat(" ", pad), p.caret.Sprint(marks))
	}
}

// caretColumns measures the display columns before the span start and of
// the span's part on this line, counting wide runes as two columns.
func caretColumns(line string, startCol uint32, end source.LineCol, ln uint32) (pad, width int) {
	startIdx := min(int(startCol)-1, len(line))
	endIdx := len(line)
	if end.Line == ln {
		endIdx = min(int(end.Col)-1, len(line))
	}
	if endIdx < startIdx {
		endIdx = startIdx
	}
	pad = runewidth.StringWidth(expandTabs(line[:startIdx]))
	width = runewidth.StringWidth(expandTabs(line[:endIdx])) - pad
	return pad, max(width, 1)
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", "    ")
}
