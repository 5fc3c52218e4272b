package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEntries(t *testing.T) {
	text := `# translator comment
msgid ""
msgstr ""

msgid "hello"
msgstr "hallo"

msgid "multi"
"line"
msgstr "mehr"
"zeilig"

#: src/Program.cs:12
msgid "untranslated"
msgstr ""
`
	f := Parse(text)
	require.Len(t, f.Entries, 3)

	assert.Equal(t, Entry{Key: "hello", Translation: "hallo", Line: 4, EndLine: 5}, f.Entries[0])
	assert.Equal(t, "multiline", f.Entries[1].Key)
	assert.Equal(t, "mehrzeilig", f.Entries[1].Translation)
	assert.Equal(t, 7, f.Entries[1].Line)
	assert.Equal(t, 10, f.Entries[1].EndLine)
	assert.Equal(t, "untranslated", f.Entries[2].Key)
	assert.Equal(t, "", f.Entries[2].Translation)
	assert.Equal(t, 13, f.Entries[2].Line)

	_, ok := f.Lookup("")
	assert.False(t, ok, "the empty header must not be indexed")
}

func TestParseHeaderRule(t *testing.T) {
	testCases := []struct {
		name    string
		text    string
		wantKey bool
	}{
		{
			name:    "empty key and empty translation is a header",
			text:    "msgid \"\"\nmsgstr \"\"\n",
			wantKey: false,
		},
		{
			name:    "empty key with a value stays an entry",
			text:    "msgid \"\"\nmsgstr \"some value\"\n",
			wantKey: true,
		},
		{
			name:    "metadata block stays queryable",
			text:    "msgid \"\"\nmsgstr \"\"\n\"Language: de\\n\"\n",
			wantKey: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := Parse(tc.text)
			_, ok := f.Lookup("")
			assert.Equal(t, tc.wantKey, ok)
		})
	}
}

func TestParseWithoutBlankLines(t *testing.T) {
	f := Parse("msgid \"a\"\nmsgstr \"1\"\nmsgid \"b\"\nmsgstr \"2\"")
	require.Len(t, f.Entries, 2)
	assert.Equal(t, "a", f.Entries[0].Key)
	assert.Equal(t, "b", f.Entries[1].Key)
	assert.Equal(t, "2", f.Entries[1].Translation)
}

func TestParseSkipsMalformedLines(t *testing.T) {
	f := Parse("garbage here\nmsgstr \"orphan\"\nmsgid \"ok\"\nnot quoted\nmsgstr \"fine\"\n")
	require.Len(t, f.Entries, 1)
	assert.Equal(t, "ok", f.Entries[0].Key)
	assert.Equal(t, "fine", f.Entries[0].Translation)
}

func TestParsePluralAndContext(t *testing.T) {
	text := `msgctxt "menu"
msgid "Open"
msgstr "Öffnen"

msgctxt "verb"
msgid "Open"
msgstr "Öffne"

msgid "file"
msgid_plural "files"
msgstr[0] "Datei"
msgstr[1] "Dateien"
`
	f := Parse(text)
	require.Len(t, f.Entries, 3)
	assert.Equal(t, "menu", f.Entries[0].Context)
	assert.Equal(t, "verb", f.Entries[1].Context)
	assert.Equal(t, "file", f.Entries[2].Key)
	assert.Equal(t, "Datei", f.Entries[2].Translation)
	assert.Equal(t, 11, f.Entries[2].EndLine)

	assert.Empty(t, f.Duplicates(), "different contexts are not duplicates")

	e, ok := f.Lookup("Open")
	require.True(t, ok)
	assert.Equal(t, "Öffne", e.Translation, "lookups resolve to the last definition")
}

func TestParseCRLF(t *testing.T) {
	f := Parse("msgid \"a\"\r\nmsgstr \"b\"\r\n\r\nmsgid \"c\"\r\nmsgstr \"d\"\r\n")
	require.Len(t, f.Entries, 2)
	assert.Equal(t, "b", f.Entries[0].Translation)
	assert.Equal(t, 3, f.Entries[1].Line)
}

func TestEscapeRoundTrip(t *testing.T) {
	testCases := []struct {
		name        string
		key         string
		translation string
	}{
		{name: "quotes", key: `say "hi"`, translation: `sag "hallo"`},
		{name: "backslashes", key: `C:\path\n`, translation: `\\server`},
		{name: "control characters", key: "line1\nline2", translation: "col\tumn"},
		{name: "mixed", key: "\\\"\n\t", translation: "\"\\t\""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			text := "msgid \"" + Escape(tc.key) + "\"\nmsgstr \"" + Escape(tc.translation) + "\"\n"
			f := Parse(text)
			require.Len(t, f.Entries, 1)
			assert.Equal(t, tc.key, f.Entries[0].Key)
			assert.Equal(t, tc.translation, f.Entries[0].Translation)
		})
	}
}

func TestUnescapeKeepsUnknownSequences(t *testing.T) {
	assert.Equal(t, `a\rb`, Unescape(`a\rb`))
	assert.Equal(t, "a\\", Unescape(`a\`))
	assert.Equal(t, "\\n", Unescape(`\\n`))
}

func TestDuplicates(t *testing.T) {
	text := `msgid "dup"
msgstr "1"

msgid "other"
msgstr "x"

msgid "dup"
msgstr "2"

msgid "dup"
msgstr "3"
`
	f := Parse(text)
	dups := f.Duplicates()
	require.Len(t, dups, 2)
	for _, d := range dups {
		assert.Equal(t, "dup", d.Key)
		assert.Equal(t, 0, d.FirstLine)
	}
	assert.Equal(t, 6, dups[0].Line)
	assert.Equal(t, 9, dups[1].Line)
}

func TestRanges(t *testing.T) {
	text := "msgid \"héllo\"\nmsgstr \"x\"\n\nmsgid \"\"\n\"multi \"\n\"line\"\nmsgstr \"y\"\n"
	f := Parse(text)

	r := f.KeyRange(0)
	assert.Equal(t, uint32(0), r.Start.Line)
	assert.Equal(t, uint32(7), r.Start.Character)
	assert.Equal(t, uint32(12), r.End.Character)

	e, ok := f.Lookup("multi line")
	require.True(t, ok)
	span, ok := f.KeySpan(e)
	require.True(t, ok)
	assert.Equal(t, uint32(3), span.Start.Line)
	assert.Equal(t, uint32(7), span.Start.Character)
	assert.Equal(t, uint32(5), span.End.Line)
	assert.Equal(t, uint32(5), span.End.Character)

	at, ok := f.EntryAt(6)
	require.True(t, ok)
	assert.Equal(t, "multi line", at.Key)
	_, ok = f.EntryAt(2)
	assert.False(t, ok)
}

func TestAppendEdit(t *testing.T) {
	testCases := []struct {
		name    string
		text    string
		line    uint32
		char    uint32
		newText string
	}{
		{"empty file", "", 0, 0, "msgid \"k\\\"q\"\nmsgstr \"\"\n"},
		{"trailing newline", "msgid \"a\"\nmsgstr \"b\"\n", 2, 0, "\nmsgid \"k\\\"q\"\nmsgstr \"\"\n"},
		{"trailing blank line", "msgid \"a\"\nmsgstr \"b\"\n\n", 3, 0, "msgid \"k\\\"q\"\nmsgstr \"\"\n"},
		{"no trailing newline", "msgid \"a\"\nmsgstr \"b\"", 1, 10, "\n\nmsgid \"k\\\"q\"\nmsgstr \"\"\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			edit := Parse(tc.text).AppendEdit(`k"q`)
			assert.Equal(t, tc.line, edit.Range.Start.Line)
			assert.Equal(t, tc.char, edit.Range.Start.Character)
			assert.Equal(t, edit.Range.Start, edit.Range.End)
			assert.Equal(t, tc.newText, edit.NewText)
		})
	}
}
