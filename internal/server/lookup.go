package server

import (
	"os"

	"github.com/shinyvision/poxref/internal/catalog"
	"github.com/shinyvision/poxref/internal/config"
	"github.com/shinyvision/poxref/internal/extract"
	"github.com/shinyvision/poxref/internal/utils"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// target is the key under the cursor, either inside a localization call or on
// a catalog entry.
type target struct {
	path     string
	key      string
	rng      protocol.Range
	catalog  bool
	verbatim bool
}

func (s *Server) text(path string) (string, bool) {
	if text, ok := s.state.Buffer(path); ok {
		return text, true
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(data), true
}

// keyAt resolves the key at a position. Source documents use the scanned
// occurrences and fall back to parsing the current text when the document
// has no index yet.
func (s *Server) keyAt(uri protocol.DocumentUri, pos protocol.Position) (target, bool, error) {
	path := utils.UriToPath(uri)
	text, ok := s.text(path)
	if !ok {
		return target{}, false, nil
	}

	if catalog.IsCatalog(path) {
		f, ok := s.engine.Catalogs().File(path)
		if !ok {
			f = catalog.Parse(text)
		}
		entry, ok := f.EntryAt(int(pos.Line))
		if !ok || entry.Key == "" {
			return target{}, false, nil
		}
		return target{path: path, key: entry.Key, rng: f.KeyRange(entry.Line), catalog: true}, true, nil
	}

	if !s.engine.IsSource(path) {
		return target{}, false, nil
	}
	offset := pos.IndexIn(text)
	if extract.InComment(text, offset) {
		return target{}, false, nil
	}

	occ, ok, err := s.engine.OccurrenceAt(path, offset)
	if err != nil {
		return target{}, false, err
	}
	if ok {
		return target{path: path, key: occ.Key, rng: occ.Range, verbatim: occ.Verbatim}, true, nil
	}

	funcs, _ := config.Union(s.engine.ScopesFor(path), extract.DefaultFunctions)
	for _, c := range extract.FindAllCalls(text, funcs) {
		if c.Contains(offset) {
			lines := utils.NewLineIndex(text)
			return target{path: path, key: c.Key, rng: lines.Range(c.KeyStart, c.KeyEnd), verbatim: c.Verbatim}, true, nil
		}
	}
	return target{}, false, nil
}

// catalogDirsFor returns the catalog directories relevant to a target.
func (s *Server) catalogDirsFor(t target) []string {
	if t.catalog {
		var dirs []string
		for _, sc := range s.engine.ScopesForCatalog(t.path) {
			for _, d := range sc.CatalogDirs {
				dirs = utils.AppendUnique(dirs, d)
			}
		}
		return dirs
	}
	_, dirs := config.Union(s.engine.ScopesFor(t.path), nil)
	return dirs
}

// sourceDirsFor returns the source directories relevant to a target.
func (s *Server) sourceDirsFor(t target) []string {
	var scopes []config.Scope
	if t.catalog {
		scopes = s.engine.ScopesForCatalog(t.path)
	} else {
		scopes = s.engine.ScopesFor(t.path)
	}
	var dirs []string
	for _, sc := range scopes {
		for _, d := range sc.SourceDirs {
			dirs = utils.AppendUnique(dirs, d)
		}
	}
	return dirs
}
