package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shinyvision/poxref/internal/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newWorkspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "poxref.json"), `{"config":[{"sourceDirs":["src"],"poDirs":["po"]}]}`)
	writeFile(t, filepath.Join(root, "src", "a.cs"), "G(\"used\");\nG(\"nope\");\n")
	writeFile(t, filepath.Join(root, "po", "de.po"), strings.Join([]string{
		`msgid "used"`,
		`msgstr "benutzt"`,
		``,
		`msgid "orphan"`,
		`msgstr "Waise"`,
		``,
	}, "\n"))
	return root
}

func TestCheckCollectsFindings(t *testing.T) {
	root := newWorkspace(t)

	findings, err := check(context.Background(), []string{root}, workspace.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, findings, 2)

	assert.Equal(t, "po/de.po", findings[0].File)
	assert.Equal(t, "unused-entry", findings[0].Code)
	assert.Equal(t, "info", findings[0].Severity)
	assert.Equal(t, 4, findings[0].Line)
	assert.Equal(t, 8, findings[0].Column)

	assert.Equal(t, "src/a.cs", findings[1].File)
	assert.Equal(t, "missing-entry", findings[1].Code)
	assert.Equal(t, "warning", findings[1].Severity)
	assert.Equal(t, 2, findings[1].Line)
	assert.Equal(t, 1, findings[1].Column)
	assert.Contains(t, findings[1].Message, "'nope'")
}

func TestWriteFindings(t *testing.T) {
	findings := []Finding{{File: "src/a.cs", Line: 2, Column: 1, Severity: "warning", Code: "missing-entry", Message: "Missing"}}

	var text bytes.Buffer
	require.NoError(t, writeFindings(&text, "text", findings))
	assert.Equal(t, "src/a.cs:2:1: warning: Missing [missing-entry]\n", text.String())

	var js bytes.Buffer
	require.NoError(t, writeFindings(&js, "json", findings))
	var decoded []Finding
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Equal(t, findings, decoded)

	var ym bytes.Buffer
	require.NoError(t, writeFindings(&ym, "yaml", findings))
	assert.Contains(t, ym.String(), "code: missing-entry")
	decoded = nil
	require.NoError(t, yaml.Unmarshal(ym.Bytes(), &decoded))
	assert.Equal(t, findings, decoded)

	var empty bytes.Buffer
	require.NoError(t, writeFindings(&empty, "json", nil))
	assert.Equal(t, "[]\n", empty.String())

	assert.Error(t, writeFindings(&bytes.Buffer{}, "xml", findings))
}

func TestCheckCommand(t *testing.T) {
	root := newWorkspace(t)

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"check", "--fail", root})
	err := cmd.Execute()
	assert.ErrorIs(t, err, ErrFindings)
	assert.Contains(t, out.String(), "src/a.cs:2:1: warning:")

	out.Reset()
	cmd = NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"check", "--format", "json", root})
	require.NoError(t, cmd.Execute())
	var findings []Finding
	require.NoError(t, json.Unmarshal(out.Bytes(), &findings))
	assert.Len(t, findings, 2)
}

func TestEngineOptions(t *testing.T) {
	o := &rootOptions{exts: []string{"cs", ".vb", ""}, parser: "treesitter"}
	opts, err := o.engineOptions()
	require.NoError(t, err)
	assert.Equal(t, []string{".cs", ".vb"}, opts.SourceExtensions)
	assert.True(t, opts.Grammar)
	assert.Equal(t, workspace.DefaultDebounce, opts.Debounce)

	_, err = (&rootOptions{parser: "lex"}).engineOptions()
	assert.Error(t, err)
}
