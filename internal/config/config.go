package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/shinyvision/poxref/internal/utils"
	"gopkg.in/yaml.v3"
)

// FileNames are the configuration files looked up in every directory between
// a document and its workspace root.
var FileNames = []string{"poxref.json", "poxref.yaml", "poxref.yml", "podotnetconfig.json", "podotnetconfig~.json"}

// OriginSettings marks scopes that came from the workspace setting rather
// than from a configuration file.
const OriginSettings = "settings"

// Scope links source directories to the catalog directories and function
// names used for them. It is an immutable snapshot; resolve again to observe
// configuration changes.
type Scope struct {
	SourceDirs    []string
	CatalogDirs   []string
	FunctionNames []string
	WorkspaceID   string
	Origin        string
}

// Covers reports whether path lies below one of the scope's source directories.
func (s Scope) Covers(path string) bool {
	return utils.PathIsUnderAny(path, s.SourceDirs)
}

// CoversCatalog reports whether path lies below one of the catalog directories.
func (s Scope) CoversCatalog(path string) bool {
	return utils.PathIsUnderAny(path, s.CatalogDirs)
}

// Entry is the on-disk form of a scope.
type Entry struct {
	SourceDirs    []string `json:"sourceDirs" yaml:"sourceDirs"`
	PoDirs        []string `json:"poDirs" yaml:"poDirs"`
	LocalizeFuncs []string `json:"localizeFuncs" yaml:"localizeFuncs"`
}

type fileContent struct {
	Config []Entry `json:"config" yaml:"config"`
	Entry  `yaml:",inline"`
}

// ParseEntries decodes a configuration document: either an object with a
// "config" array or a single bare entry.
func ParseEntries(data []byte) ([]Entry, error) {
	var content fileContent
	if err := json.Unmarshal(data, &content); err != nil {
		return nil, err
	}
	if content.Config != nil {
		return content.Config, nil
	}
	return []Entry{content.Entry}, nil
}

// ParseYAMLEntries is ParseEntries for poxref.yaml files.
func ParseYAMLEntries(data []byte) ([]Entry, error) {
	var content fileContent
	if err := yaml.Unmarshal(data, &content); err != nil {
		return nil, err
	}
	if content.Config != nil {
		return content.Config, nil
	}
	return []Entry{content.Entry}, nil
}

// Resolve turns entries into scopes, resolving relative directories against base.
func Resolve(entries []Entry, base, workspaceID, origin string) []Scope {
	scopes := make([]Scope, 0, len(entries))
	for _, e := range entries {
		s := Scope{WorkspaceID: workspaceID, Origin: origin}
		for _, d := range e.SourceDirs {
			s.SourceDirs = utils.AppendUnique(s.SourceDirs, resolveDir(base, d))
		}
		for _, d := range e.PoDirs {
			s.CatalogDirs = utils.AppendUnique(s.CatalogDirs, resolveDir(base, d))
		}
		for _, f := range e.LocalizeFuncs {
			if f = strings.TrimSpace(f); f != "" {
				s.FunctionNames = utils.AppendUnique(s.FunctionNames, f)
			}
		}
		scopes = append(scopes, s)
	}
	return scopes
}

// LoadFile reads and resolves one configuration file.
func LoadFile(path, workspaceID string) ([]Scope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	parse := ParseEntries
	if ext := filepath.Ext(path); ext == ".yaml" || ext == ".yml" {
		parse = ParseYAMLEntries
	}
	entries, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return Resolve(entries, filepath.Dir(path), workspaceID, path), nil
}

// IsConfigFile reports whether path names a configuration file.
func IsConfigFile(path string) bool {
	return slices.Contains(FileNames, filepath.Base(path))
}

func resolveDir(base, dir string) string {
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(base, dir)
	}
	return utils.NormalizePath(dir)
}

// Union merges the function names and catalog directories of scopes. Empty
// function names fall back to defaults.
func Union(scopes []Scope, defaults []string) (funcs, catalogDirs []string) {
	for _, s := range scopes {
		for _, f := range s.FunctionNames {
			funcs = utils.AppendUnique(funcs, f)
		}
		for _, d := range s.CatalogDirs {
			catalogDirs = utils.AppendUnique(catalogDirs, d)
		}
	}
	if len(funcs) == 0 {
		funcs = slices.Clone(defaults)
	}
	return funcs, catalogDirs
}

// Matching filters scopes down to those covering path.
func Matching(scopes []Scope, path string) []Scope {
	var out []Scope
	for _, s := range scopes {
		if s.Covers(path) {
			out = append(out, s)
		}
	}
	return out
}
