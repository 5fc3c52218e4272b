package extract

import (
	"slices"
	"strings"
)

// maxLookBehind bounds how far FirstArgumentAt searches backwards for the
// opening paren of the enclosing call.
const maxLookBehind = 4096

// Argument describes a cursor placed inside the first string-literal argument
// of a localization call.
type Argument struct {
	Function string
	// Start is the offset of the first content byte after the opening quote.
	Start int
	// End is the offset of the closing quote, or of the cursor when the
	// literal is still unterminated.
	End      int
	Prefix   string
	Verbatim bool
	Closed   bool
}

// FirstArgumentAt reports whether offset sits inside the first argument of a
// call to one of funcs, and that argument is a string literal. A cursor in a
// later argument never qualifies.
func FirstArgumentAt(text string, offset int, funcs []string) (Argument, bool) {
	if offset < 0 || offset > len(text) {
		return Argument{}, false
	}
	if len(funcs) == 0 {
		funcs = DefaultFunctions
	}

	floor := max(0, offset-maxLookBehind)
	for open := strings.LastIndexByte(text[:offset], '('); open >= floor; {
		if arg, ok := argumentFrom(text, open, offset, funcs); ok {
			return arg, true
		}
		if open == 0 {
			break
		}
		open = strings.LastIndexByte(text[:open], '(')
	}
	return Argument{}, false
}

func argumentFrom(text string, open, offset int, funcs []string) (Argument, bool) {
	name := identifierBefore(text, open)
	if name == "" || !slices.Contains(funcs, name) {
		return Argument{}, false
	}

	i := skipSpace(text, open+1)
	arg := Argument{Function: name}
	switch {
	case strings.HasPrefix(text[i:], `@"`):
		arg.Verbatim = true
		arg.Start = i + 2
	case i < len(text) && text[i] == '"':
		arg.Start = i + 1
	default:
		return Argument{}, false
	}
	if offset < arg.Start {
		return Argument{}, false
	}

	end, closed := literalEnd(text, arg.Start, arg.Verbatim)
	if closed && offset > end {
		return Argument{}, false
	}
	if !closed {
		end = offset
	}
	arg.End = end
	arg.Closed = closed
	arg.Prefix = text[arg.Start:offset]
	return arg, true
}

// literalEnd finds the closing quote of a literal whose content starts at
// start. Unterminated literals stop at the end of the line.
func literalEnd(text string, start int, verbatim bool) (int, bool) {
	for j := start; j < len(text); j++ {
		c := text[j]
		if verbatim {
			if c == '"' {
				if j+1 < len(text) && text[j+1] == '"' {
					j++
					continue
				}
				return j, true
			}
			continue
		}
		switch c {
		case '\\':
			j++
		case '"':
			return j, true
		case '\n':
			return j, false
		}
	}
	return len(text), false
}

func identifierBefore(text string, open int) string {
	j := open - 1
	for j >= 0 && isSpace(text[j]) {
		j--
	}
	end := j + 1
	for j >= 0 && isIdentByte(text[j]) {
		j--
	}
	return text[j+1 : end]
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// InComment reports whether offset falls inside a // or /* */ comment. String
// literals are tracked so comment markers inside them are ignored.
func InComment(text string, offset int) bool {
	if offset > len(text) {
		offset = len(text)
	}
	for i := 0; i < offset; {
		switch {
		case strings.HasPrefix(text[i:], "//"):
			end := strings.IndexByte(text[i:], '\n')
			if end < 0 {
				return true
			}
			if offset <= i+end {
				return true
			}
			i += end
		case strings.HasPrefix(text[i:], "/*"):
			end := strings.Index(text[i+2:], "*/")
			if end < 0 {
				return true
			}
			end = i + 2 + end + 2
			if offset < end {
				return true
			}
			i = end
		default:
			if next := skipLiteral(text, i); next > i {
				if offset < next {
					return false
				}
				i = next
				continue
			}
			i++
		}
	}
	return false
}
