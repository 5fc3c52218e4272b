package extract

import (
	"regexp"
	"strings"
	"sync"
)

// DefaultFunctions is used when no function names are configured.
var DefaultFunctions = []string{"G"}

// Call is a localization call found in source text. Offsets are byte offsets;
// KeyStart/KeyEnd delimit the literal content without quotes and
// CallStart/CallEnd run from the function name through the closing paren.
type Call struct {
	Key       string
	KeyStart  int
	KeyEnd    int
	CallStart int
	CallEnd   int
	Function  string
	Verbatim  bool
}

// Contains reports whether offset falls into the key, closing quote included
// so a cursor right after the last character still counts.
func (c Call) Contains(offset int) bool {
	return offset >= c.KeyStart && offset <= c.KeyEnd
}

var (
	patternMu    sync.Mutex
	patternCache = map[string]*regexp.Regexp{}
)

func functionPattern(funcs []string) *regexp.Regexp {
	if len(funcs) == 0 {
		funcs = DefaultFunctions
	}
	quoted := make([]string, 0, len(funcs))
	for _, f := range funcs {
		if f == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(f))
	}
	if len(quoted) == 0 {
		return functionPattern(DefaultFunctions)
	}
	expr := `\b(?:` + strings.Join(quoted, "|") + `)\b`

	patternMu.Lock()
	defer patternMu.Unlock()
	if re, ok := patternCache[expr]; ok {
		return re
	}
	re := regexp.MustCompile(expr)
	patternCache[expr] = re
	return re
}

// FindAllCalls scans text for calls to any of funcs whose first argument is a
// string literal. Calls whose first argument is anything else are skipped.
func FindAllCalls(text string, funcs []string) []Call {
	re := functionPattern(funcs)
	var calls []Call

	pos := 0
	for pos < len(text) {
		loc := re.FindStringIndex(text[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		pos = end

		open := skipSpace(text, end)
		if open >= len(text) || text[open] != '(' {
			continue
		}
		closing, ok := matchParen(text, open)
		if !ok {
			continue
		}
		lit, ok := ParseLeadingLiteral(text[open+1:closing], open+1)
		if !ok {
			continue
		}
		calls = append(calls, Call{
			Key:       lit.Value,
			KeyStart:  lit.Start,
			KeyEnd:    lit.End,
			CallStart: start,
			CallEnd:   closing + 1,
			Function:  text[start:end],
			Verbatim:  lit.Verbatim,
		})
	}
	return calls
}

// matchParen returns the offset of the paren closing the one at open. String
// and char literals are skipped so parens inside them do not count.
func matchParen(text string, open int) (int, bool) {
	depth := 0
	for i := open; i < len(text); {
		switch text[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i, true
			}
		case '"', '\'', '@':
			if next := skipLiteral(text, i); next > i {
				i = next
				continue
			}
		}
		i++
	}
	return 0, false
}
