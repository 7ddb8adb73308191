package diag

import (
	"fmt"
	"strings"

	"tsderive/internal/source"
)

// FormatShort renders diagnostics of one file as stable single-line entries:
//
//	<severity> <CODE> <path>:<line>:<col> <message>
//
// Entries keep their emission order. Diagnostics without a span are reported
// at 0:0. Notes and help follow on indented lines when includeNotes is set.
func FormatShort(diags []Diagnostic, file *source.File, includeNotes bool) string {
	if len(diags) == 0 {
		return ""
	}
	path := ""
	if file != nil {
		path = file.Path
	}

	var b strings.Builder
	for i, d := range diags {
		var line, col uint32
		if d.Primary != nil && file != nil {
			pos := file.Position(d.Primary.Start)
			line, col = pos.Line, pos.Col
		}
		fmt.Fprintf(&b, "%s %s %s:%d:%d %s", severityLabel(d.Severity), d.Code.ID(), path, line, col, sanitizeMessage(d.Message))
		if includeNotes {
			for _, n := range d.Notes {
				fmt.Fprintf(&b, "\n  note: %s", sanitizeMessage(n))
			}
			if d.Help != "" {
				fmt.Fprintf(&b, "\n  help: %s", sanitizeMessage(d.Help))
			}
		}
		if i < len(diags)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func severityLabel(sev Severity) string {
	return strings.ToLower(sev.String())
}

func sanitizeMessage(msg string) string {
	return strings.Join(strings.Fields(msg), " ")
}
