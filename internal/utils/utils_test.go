package utils

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func TestPathIsUnder(t *testing.T) {
	root := t.TempDir()

	testCases := []struct {
		name string
		path string
		dir  string
		want bool
	}{
		{name: "same directory", path: root, dir: root, want: true},
		{name: "nested file", path: filepath.Join(root, "a", "b.po"), dir: root, want: true},
		{name: "sibling with shared prefix", path: root + "-other/x.po", dir: root, want: false},
		{name: "parent is not under child", path: root, dir: filepath.Join(root, "a"), want: false},
		{name: "unclean input", path: filepath.Join(root, "a", "..", "b", "c.cs"), dir: filepath.Join(root, "b"), want: true},
		{name: "empty dir", path: root, dir: "", want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, PathIsUnder(tc.path, tc.dir))
		})
	}
}

func TestURIRoundTrip(t *testing.T) {
	p := "/tmp/some dir/messages.po"
	uri := PathToURI(p)
	assert.Equal(t, "file:///tmp/some%20dir/messages.po", uri)
	assert.Equal(t, p, UriToPath(uri))
	assert.Equal(t, "relative/path", UriToPath("relative/path"))
}

func TestRelativePath(t *testing.T) {
	assert.Equal(t, "po/de.po", RelativePath("/ws", "/ws/po/de.po"))
	assert.Equal(t, "/elsewhere/de.po", RelativePath("/ws", "/elsewhere/de.po"))
	assert.Equal(t, "/ws/de.po", RelativePath("", "/ws/de.po"))
}

func TestLineIndex(t *testing.T) {
	text := "ab\n😀x\n\nend"
	li := NewLineIndex(text)

	assert.Equal(t, protocol.Position{Line: 0, Character: 0}, li.Position(0))
	assert.Equal(t, protocol.Position{Line: 0, Character: 2}, li.Position(2))
	assert.Equal(t, protocol.Position{Line: 1, Character: 0}, li.Position(3))
	// the emoji is four bytes and two UTF-16 units
	assert.Equal(t, protocol.Position{Line: 1, Character: 2}, li.Position(7))
	assert.Equal(t, protocol.Position{Line: 2, Character: 0}, li.Position(9))
	assert.Equal(t, protocol.Position{Line: 3, Character: 3}, li.Position(len(text)+5))

	assert.Equal(t, 7, li.Offset(protocol.Position{Line: 1, Character: 2}))
}

func TestAppendUnique(t *testing.T) {
	s := AppendUnique([]string{"G"}, "G")
	s = AppendUnique(s, "T")
	assert.Equal(t, []string{"G", "T"}, s)
}
