package lower

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"tsderive/internal/source"
)

// ParseMarkers extracts every `@name` / `@name(args)` annotation from text
// (a doc comment or a decorator). All markers found get carrier as their span.
// An `@` only starts a marker at the beginning of text or after whitespace,
// `*` or `/`, so e-mail addresses in prose are ignored.
func ParseMarkers(text string, carrier source.Span) []Marker {
	var out []Marker
	i := 0
	for i < len(text) {
		at := strings.IndexByte(text[i:], '@')
		if at < 0 {
			break
		}
		at += i
		if at > 0 && !isMarkerBoundary(text[at-1]) {
			i = at + 1
			continue
		}
		nameEnd := scanIdent(text, at+1)
		if nameEnd == at+1 {
			i = at + 1
			continue
		}
		m := Marker{Name: text[at+1 : nameEnd], Span: carrier}
		i = nameEnd
		if nameEnd < len(text) && text[nameEnd] == '(' {
			m.HasArgs = true
			closeIdx, ok := matchParen(text, nameEnd)
			if !ok {
				m.Unterminated = true
				m.Args = strings.TrimSpace(text[nameEnd+1:])
				out = append(out, m)
				break
			}
			m.Args = strings.TrimSpace(text[nameEnd+1 : closeIdx])
			i = closeIdx + 1
		}
		out = append(out, m)
	}
	return out
}

// ParseMacroNames splits a derive argument list into macro names in written
// order. It returns false for an empty list or when any entry, including one
// left empty by a stray comma, is not an identifier; such markers are skipped
// rather than reported.
func ParseMacroNames(m Marker) ([]string, bool) {
	if !m.HasArgs || m.Unterminated {
		return nil, false
	}
	parts := strings.Split(m.Args, ",")
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		name := strings.TrimSpace(part)
		if !isIdent(name) {
			return nil, false
		}
		names = append(names, name)
	}
	return names, true
}

func isMarkerBoundary(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '*' || b == '/'
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

func scanIdent(s string, i int) int {
	first := true
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if first && !isIdentStart(r) {
			return i
		}
		if !first && !isIdentPart(r) {
			return i
		}
		first = false
		i += size
	}
	return i
}

func isIdent(s string) bool {
	return s != "" && scanIdent(s, 0) == len(s)
}

// matchParen returns the index of the `)` closing the `(` at open, skipping
// nested parentheses and quoted strings.
func matchParen(s string, open int) (int, bool) {
	depth := 0
	var quote byte
	for i := open; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			quote = c
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
