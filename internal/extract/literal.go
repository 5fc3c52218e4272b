package extract

import "strings"

// Literal is a decoded string literal. Start and End delimit its content in
// the surrounding text, quotes excluded.
type Literal struct {
	Value    string
	Start    int
	End      int
	Verbatim bool
}

// ParseLeadingLiteral parses the string literal that s starts with, after
// optional whitespace. Offsets are reported relative to s plus base.
//
// Two forms are understood. Verbatim literals (@"...") end at the first quote
// not followed by another quote and decode "" to ". Escaped literals ("...")
// end at the first unescaped quote; \n and \t decode to control characters
// and any other escaped character stands for itself.
func ParseLeadingLiteral(s string, base int) (Literal, bool) {
	i := skipSpace(s, 0)
	if i >= len(s) {
		return Literal{}, false
	}
	if strings.HasPrefix(s[i:], `@"`) {
		return parseVerbatim(s, i+2, base)
	}
	if s[i] == '"' {
		return parseEscaped(s, i+1, base)
	}
	return Literal{}, false
}

func parseVerbatim(s string, start, base int) (Literal, bool) {
	var b strings.Builder
	for j := start; j < len(s); j++ {
		if s[j] != '"' {
			b.WriteByte(s[j])
			continue
		}
		if j+1 < len(s) && s[j+1] == '"' {
			b.WriteByte('"')
			j++
			continue
		}
		return Literal{Value: b.String(), Start: base + start, End: base + j, Verbatim: true}, true
	}
	return Literal{}, false
}

func parseEscaped(s string, start, base int) (Literal, bool) {
	var b strings.Builder
	for j := start; j < len(s); j++ {
		c := s[j]
		switch {
		case c == '\\' && j+1 < len(s):
			j++
			switch s[j] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			default:
				b.WriteByte(s[j])
			}
		case c == '"':
			return Literal{Value: b.String(), Start: base + start, End: base + j}, true
		default:
			b.WriteByte(c)
		}
	}
	return Literal{}, false
}

// skipLiteral returns the offset just past the string or char literal that
// starts at i, or i itself when nothing literal-like starts there. Unclosed
// literals run to the end of s.
func skipLiteral(s string, i int) int {
	switch {
	case strings.HasPrefix(s[i:], `@"`):
		for j := i + 2; j < len(s); j++ {
			if s[j] == '"' {
				if j+1 < len(s) && s[j+1] == '"' {
					j++
					continue
				}
				return j + 1
			}
		}
		return len(s)
	case s[i] == '"' || s[i] == '\'':
		q := s[i]
		for j := i + 1; j < len(s); j++ {
			switch s[j] {
			case '\\':
				j++
			case q:
				return j + 1
			case '\n':
				if q == '\'' {
					return j
				}
			}
		}
		return len(s)
	}
	return i
}

func skipSpace(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

// EscapeLiteral encodes s for insertion into an existing literal of the given
// form.
func EscapeLiteral(s string, verbatim bool) string {
	if verbatim {
		return strings.ReplaceAll(s, `"`, `""`)
	}
	return literalEscaper.Replace(s)
}

var literalEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)
