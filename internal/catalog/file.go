package catalog

import (
	"strings"

	"github.com/shinyvision/poxref/internal/utils"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// File is the parsed form of one catalog file. Entries keep their file order;
// point lookups resolve to the last entry parsed for a key.
type File struct {
	Path    string
	Entries []Entry

	lines  []string
	lookup map[string]int
}

func (f *File) add(e Entry) {
	f.lookup[e.Key] = len(f.Entries)
	f.Entries = append(f.Entries, e)
}

// Lookup returns the last entry defined for key.
func (f *File) Lookup(key string) (Entry, bool) {
	i, ok := f.lookup[key]
	if !ok {
		return Entry{}, false
	}
	return f.Entries[i], true
}

// Keys returns every distinct key of the file, in first-seen order.
func (f *File) Keys() []string {
	seen := make(map[string]bool, len(f.Entries))
	keys := make([]string, 0, len(f.Entries))
	for _, e := range f.Entries {
		if seen[e.Key] {
			continue
		}
		seen[e.Key] = true
		keys = append(keys, e.Key)
	}
	return keys
}

// Duplicate describes a repeated definition of a key.
type Duplicate struct {
	Key       string
	Line      int
	FirstLine int
}

// Duplicates lists every definition after the first one for keys that are
// defined more than once. The empty key is never reported. Entries are keyed
// by msgctxt and msgid, so one msgid under different msgctxt values is not a
// duplicate.
func (f *File) Duplicates() []Duplicate {
	first := make(map[string]int)
	var dups []Duplicate
	for _, e := range f.Entries {
		if e.Key == "" {
			continue
		}
		id := e.Context + "\x04" + e.Key
		if line, ok := first[id]; ok {
			dups = append(dups, Duplicate{Key: e.Key, Line: e.Line, FirstLine: line})
			continue
		}
		first[id] = e.Line
	}
	return dups
}

// EntryAt returns the entry whose msgid/msgstr block covers line.
func (f *File) EntryAt(line int) (Entry, bool) {
	for _, e := range f.Entries {
		if line >= e.Line && line <= e.EndLine {
			return e, true
		}
	}
	return Entry{}, false
}

// Line returns the raw text of a line.
func (f *File) Line(n int) (string, bool) {
	if n < 0 || n >= len(f.lines) {
		return "", false
	}
	return f.lines[n], true
}

// KeyRange spans the text between the first two double quotes of a line. When
// the line has fewer than two quotes the whole line is used.
func (f *File) KeyRange(line int) protocol.Range {
	text, ok := f.Line(line)
	if !ok {
		return lineRange(line, 0, 0)
	}
	first := strings.IndexByte(text, '"')
	if first < 0 {
		return lineRange(line, 0, utils.UTF16Len(text))
	}
	second := strings.IndexByte(text[first+1:], '"')
	if second < 0 {
		return lineRange(line, 0, utils.UTF16Len(text))
	}
	second += first + 1
	return lineRange(line, utils.UTF16Len(text[:first+1]), utils.UTF16Len(text[:second]))
}

// KeySpan spans the quoted msgid content of e, from just after the first
// quote on the msgid line to the last quote of its final continuation line.
func (f *File) KeySpan(e Entry) (protocol.Range, bool) {
	startText, ok := f.Line(e.Line)
	if !ok {
		return protocol.Range{}, false
	}
	first := strings.IndexByte(startText, '"')
	if first < 0 {
		return protocol.Range{}, false
	}
	endLine := e.Line
	for n := e.Line + 1; n <= e.EndLine; n++ {
		text, _ := f.Line(n)
		if !isContinuation(strings.TrimSpace(text)) {
			break
		}
		endLine = n
	}
	endText, _ := f.Line(endLine)
	last := strings.LastIndexByte(endText, '"')
	if endLine == e.Line && last <= first {
		return protocol.Range{}, false
	}
	return protocol.Range{
		Start: protocol.Position{Line: uint32(e.Line), Character: uint32(utils.UTF16Len(startText[:first+1]))},
		End:   protocol.Position{Line: uint32(endLine), Character: uint32(utils.UTF16Len(endText[:last]))},
	}, true
}

// LineCount is the number of lines of the parsed text.
func (f *File) LineCount() int {
	return len(f.lines)
}

func lineRange(line, start, end int) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: uint32(line), Character: uint32(start)},
		End:   protocol.Position{Line: uint32(line), Character: uint32(end)},
	}
}

// AppendEdit returns an edit adding an untranslated entry for key at the end
// of the file, separated from the previous entry by a blank line.
func (f *File) AppendEdit(key string) protocol.TextEdit {
	entry := "msgid \"" + Escape(key) + "\"\nmsgstr \"\"\n"
	last := len(f.lines) - 1
	if last < 0 {
		return protocol.TextEdit{Range: lineRange(0, 0, 0), NewText: entry}
	}

	text := f.lines[last]
	if text != "" {
		end := utils.UTF16Len(text)
		return protocol.TextEdit{Range: lineRange(last, end, end), NewText: "\n\n" + entry}
	}
	if last > 0 && strings.TrimSpace(f.lines[last-1]) != "" {
		entry = "\n" + entry
	}
	return protocol.TextEdit{Range: lineRange(last, 0, 0), NewText: entry}
}
