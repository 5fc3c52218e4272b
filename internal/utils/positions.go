package utils

import (
	"sort"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// LineIndex maps byte offsets of a text to LSP positions (UTF-16 columns).
type LineIndex struct {
	text   string
	starts []int
}

func NewLineIndex(text string) *LineIndex {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &LineIndex{text: text, starts: starts}
}

// Position converts a byte offset into a protocol position. Offsets past the
// end of the text clamp to the end.
func (li *LineIndex) Position(offset int) protocol.Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(li.text) {
		offset = len(li.text)
	}
	line := sort.Search(len(li.starts), func(i int) bool { return li.starts[i] > offset }) - 1
	start := li.starts[line]
	return protocol.Position{
		Line:      uint32(line),
		Character: uint32(UTF16Len(li.text[start:offset])),
	}
}

// Range converts a half-open byte span.
func (li *LineIndex) Range(start, end int) protocol.Range {
	return protocol.Range{Start: li.Position(start), End: li.Position(end)}
}

// Offset converts a protocol position back into a byte offset.
func (li *LineIndex) Offset(pos protocol.Position) int {
	return pos.IndexIn(li.text)
}

// UTF16Len counts the UTF-16 code units needed to encode s.
func UTF16Len(s string) int {
	n := 0
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		s = s[size:]
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}
