package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestParseEntries(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		want    []Entry
		wantErr bool
	}{
		{
			name:  "config array",
			input: `{"config":[{"sourceDirs":["src"],"poDirs":["po"],"localizeFuncs":["G","T"]},{"sourceDirs":["lib"]}]}`,
			want: []Entry{
				{SourceDirs: []string{"src"}, PoDirs: []string{"po"}, LocalizeFuncs: []string{"G", "T"}},
				{SourceDirs: []string{"lib"}},
			},
		},
		{
			name:  "bare object",
			input: `{"sourceDirs":["src"],"poDirs":["po"]}`,
			want:  []Entry{{SourceDirs: []string{"src"}, PoDirs: []string{"po"}}},
		},
		{
			name:  "empty config array",
			input: `{"config":[]}`,
			want:  []Entry{},
		},
		{
			name:    "malformed",
			input:   `{"config": [`,
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseEntries([]byte(tc.input))
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseYAMLEntries(t *testing.T) {
	got, err := ParseYAMLEntries([]byte("config:\n  - sourceDirs: [src]\n    poDirs: [po]\n    localizeFuncs: [G]\n"))
	require.NoError(t, err)
	assert.Equal(t, []Entry{{SourceDirs: []string{"src"}, PoDirs: []string{"po"}, LocalizeFuncs: []string{"G"}}}, got)

	got, err = ParseYAMLEntries([]byte("sourceDirs: [lib]\npoDirs: [po]\n"))
	require.NoError(t, err)
	assert.Equal(t, []Entry{{SourceDirs: []string{"lib"}, PoDirs: []string{"po"}}}, got)

	_, err = ParseYAMLEntries([]byte("config: [\n"))
	assert.Error(t, err)
}

func TestLoadYAMLFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "poxref.yaml")
	writeFile(t, path, "config:\n  - sourceDirs: [src]\n    poDirs: [po]\n")

	assert.True(t, IsConfigFile(path))
	scopes, err := LoadFile(path, root)
	require.NoError(t, err)
	require.Len(t, scopes, 1)
	assert.Equal(t, []string{filepath.Join(root, "src")}, scopes[0].SourceDirs)
	assert.Equal(t, []string{filepath.Join(root, "po")}, scopes[0].CatalogDirs)
	assert.Equal(t, path, scopes[0].Origin)
}

func TestResolveRelativeToBase(t *testing.T) {
	base := t.TempDir()
	scopes := Resolve([]Entry{{
		SourceDirs:    []string{"src", "src/", filepath.Join(base, "abs")},
		PoDirs:        []string{"../po"},
		LocalizeFuncs: []string{"G", " ", "G"},
	}}, base, "ws", "file")

	require.Len(t, scopes, 1)
	assert.Equal(t, []string{filepath.Join(base, "src"), filepath.Join(base, "abs")}, scopes[0].SourceDirs)
	assert.Equal(t, []string{filepath.Join(filepath.Dir(base), "po")}, scopes[0].CatalogDirs)
	assert.Equal(t, []string{"G"}, scopes[0].FunctionNames)
}

func TestResolverScopesFor(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "poxref.json"), `{"config":[{"sourceDirs":["app"],"poDirs":["po"]}]}`)
	writeFile(t, filepath.Join(root, "app", "podotnetconfig.json"), `{"sourceDirs":["."],"poDirs":["../po2"],"localizeFuncs":["T"]}`)
	writeFile(t, filepath.Join(root, "app", "podotnetconfig~.json"), `not json`)
	doc := filepath.Join(root, "app", "Views", "Home.cs")
	writeFile(t, doc, `G("x")`)

	r := NewResolver()
	r.SetWorkspaceRoots([]string{root})
	r.SetSettings([]Entry{{SourceDirs: []string{"app"}, PoDirs: []string{"shared/po"}}})

	scopes := r.ScopesFor(doc)
	require.Len(t, scopes, 3)

	assert.Equal(t, filepath.Join(root, "app", "podotnetconfig.json"), scopes[0].Origin, "closest configuration comes first")
	assert.Equal(t, []string{filepath.Join(root, "po2")}, scopes[0].CatalogDirs)
	assert.Equal(t, []string{"T"}, scopes[0].FunctionNames)
	assert.Equal(t, []string{filepath.Join(root, "po")}, scopes[1].CatalogDirs)
	assert.Equal(t, OriginSettings, scopes[2].Origin)
	assert.Equal(t, []string{filepath.Join(root, "shared", "po")}, scopes[2].CatalogDirs)
	for _, s := range scopes {
		assert.Equal(t, root, s.WorkspaceID)
	}

	funcs, dirs := Union(r.MatchingScopes(doc), []string{"G"})
	assert.Equal(t, []string{"T"}, funcs)
	assert.ElementsMatch(t, []string{
		filepath.Join(root, "po2"),
		filepath.Join(root, "po"),
		filepath.Join(root, "shared", "po"),
	}, dirs)
}

func TestResolverOutsideWorkspace(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()
	writeFile(t, filepath.Join(other, "poxref.json"), `{"sourceDirs":["."],"poDirs":["po"]}`)

	r := NewResolver()
	r.SetWorkspaceRoots([]string{root})

	assert.Empty(t, r.ScopesFor(filepath.Join(other, "a.cs")))
	assert.Empty(t, r.MatchingScopes(filepath.Join(other, "a.cs")))
}

func TestResolverUnmatchedDocument(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "poxref.json"), `{"sourceDirs":["src"],"poDirs":["po"]}`)

	r := NewResolver()
	r.SetWorkspaceRoots([]string{root})

	assert.Len(t, r.ScopesFor(filepath.Join(root, "tools", "x.cs")), 1)
	assert.Empty(t, r.MatchingScopes(filepath.Join(root, "tools", "x.cs")))
}

func TestResolverDiscover(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "poxref.json"), `{"sourceDirs":["src"],"poDirs":["po"]}`)
	writeFile(t, filepath.Join(root, "b", "podotnetconfig.json"), `{"config":[{"sourceDirs":["."],"poDirs":["po"]}]}`)
	writeFile(t, filepath.Join(root, "node_modules", "poxref.json"), `{"sourceDirs":["."],"poDirs":["po"]}`)
	writeFile(t, filepath.Join(root, "c", "poxref.json"), `{broken`)

	r := NewResolver()
	r.SetWorkspaceRoots([]string{root})

	all := r.Discover()
	require.Contains(t, all, root)
	scopes := all[root]
	require.Len(t, scopes, 2)
	assert.Equal(t, []string{filepath.Join(root, "a", "src")}, scopes[0].SourceDirs)
	assert.Equal(t, []string{filepath.Join(root, "b")}, scopes[1].SourceDirs)
}

func TestScopeCovers(t *testing.T) {
	s := Scope{SourceDirs: []string{"/ws/src"}, CatalogDirs: []string{"/ws/po"}}
	assert.True(t, s.Covers("/ws/src/a/b.cs"))
	assert.False(t, s.Covers("/ws/srcx/b.cs"))
	assert.True(t, s.CoversCatalog("/ws/po/de.po"))
	assert.True(t, IsConfigFile("/ws/podotnetconfig~.json"))
	assert.False(t, IsConfigFile("/ws/package.json"))
}
