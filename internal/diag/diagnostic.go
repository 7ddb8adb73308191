package diag

import (
	"tsderive/internal/source"
)

// Diagnostic is a leveled, user-facing message. Primary is nil when the
// message is not tied to a location.
type Diagnostic struct {
	Severity Severity     `json:"level" msgpack:"level"`
	Code     Code         `json:"code" msgpack:"code"`
	Message  string       `json:"message" msgpack:"message"`
	Primary  *source.Span `json:"span,omitempty" msgpack:"span,omitempty"`
	Notes    []string     `json:"notes,omitempty" msgpack:"notes,omitempty"`
	Help     string       `json:"help,omitempty" msgpack:"help,omitempty"`
}

func New(sev Severity, code Code, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Message:  msg,
	}
}

func NewError(code Code, primary source.Span, msg string) Diagnostic {
	return New(SevError, code, msg).At(primary)
}

func NewWarning(code Code, primary source.Span, msg string) Diagnostic {
	return New(SevWarning, code, msg).At(primary)
}

func NewInfo(code Code, primary source.Span, msg string) Diagnostic {
	return New(SevInfo, code, msg).At(primary)
}

// At returns a copy pointing at sp.
func (d Diagnostic) At(sp source.Span) Diagnostic {
	d.Primary = &sp
	return d
}

func (d Diagnostic) WithNote(msg string) Diagnostic {
	notes := make([]string, 0, len(d.Notes)+1)
	notes = append(notes, d.Notes...)
	d.Notes = append(notes, msg)
	return d
}

func (d Diagnostic) WithHelp(help string) Diagnostic {
	d.Help = help
	return d
}

// HasErrors reports whether any diagnostic is SevError.
func HasErrors(items []Diagnostic) bool {
	for i := range items {
		if items[i].Severity >= SevError {
			return true
		}
	}
	return false
}
