package catalog

import (
	"strings"
)

type part int

const (
	partNone part = iota
	partContext
	partKey
	partValue
	partIgnored
)

// Entry is one msgid/msgstr pair of a catalog file.
type Entry struct {
	Key         string
	Translation string
	Context     string
	// Line is the 0-indexed line of the msgid marker.
	Line int
	// EndLine is the last line belonging to the entry's msgid/msgstr block.
	EndLine int
}

type pending struct {
	active      part
	hasKey      bool
	context     []string
	key         []string
	value       []string
	line        int
	endLine     int
	contextLine int
}

// Parse reads catalog text into its entries. The parser is lenient: lines it
// does not understand are skipped and never produce an error.
func Parse(text string) *File {
	lines := splitLines(text)
	f := &File{
		lines:  lines,
		lookup: make(map[string]int),
	}

	var cur pending
	flush := func() {
		if cur.hasKey {
			e := Entry{
				Key:         Unescape(strings.Join(cur.key, "")),
				Translation: Unescape(strings.Join(cur.value, "")),
				Context:     Unescape(strings.Join(cur.context, "")),
				Line:        cur.line,
				EndLine:     cur.endLine,
			}
			if !isHeader(e) {
				f.add(e)
			}
		}
		cur = pending{}
	}

	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "#"):
			continue
		case strings.HasPrefix(line, "msgctxt"):
			flush()
			cur.active = partContext
			cur.contextLine = i
			cur.context = append(cur.context, quotedContent(line))
		case strings.HasPrefix(line, "msgid_plural"):
			cur.active = partIgnored
			cur.endLine = i
		case strings.HasPrefix(line, "msgid"):
			if cur.hasKey {
				flush()
			}
			cur.active = partKey
			cur.hasKey = true
			cur.line = i
			cur.endLine = i
			cur.key = append(cur.key, quotedContent(line))
		case strings.HasPrefix(line, "msgstr"):
			if !cur.hasKey {
				cur.active = partIgnored
				continue
			}
			cur.endLine = i
			rest := strings.TrimPrefix(line, "msgstr")
			if strings.HasPrefix(rest, "[") && !strings.HasPrefix(rest, "[0]") {
				cur.active = partIgnored
				continue
			}
			cur.active = partValue
			cur.value = append(cur.value, quotedContent(line))
		case isContinuation(line):
			content := line[1 : len(line)-1]
			switch cur.active {
			case partContext:
				cur.context = append(cur.context, content)
			case partKey:
				cur.key = append(cur.key, content)
				cur.endLine = i
			case partValue:
				cur.value = append(cur.value, content)
				cur.endLine = i
			case partIgnored:
				if cur.hasKey {
					cur.endLine = i
				}
			}
		}
	}
	flush()
	return f
}

// isHeader reports whether e is the catalog's metadata header. Only the
// empty-key, empty-translation form is treated as a header; an empty key with
// content stays a regular entry.
func isHeader(e Entry) bool {
	return e.Key == "" && e.Translation == ""
}

func isContinuation(line string) bool {
	return len(line) >= 2 && line[0] == '"' && line[len(line)-1] == '"'
}

// quotedContent returns the raw text between the first and the last double
// quote of a marker line.
func quotedContent(line string) string {
	first := strings.IndexByte(line, '"')
	last := strings.LastIndexByte(line, '"')
	if first < 0 || last <= first {
		return ""
	}
	return line[first+1 : last]
}

func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
