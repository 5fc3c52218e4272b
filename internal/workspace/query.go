package workspace

import (
	"sort"

	"github.com/shinyvision/poxref/internal/catalog"
	"github.com/shinyvision/poxref/internal/config"
	"github.com/shinyvision/poxref/internal/extract"
	"github.com/shinyvision/poxref/internal/utils"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Reference is one use of a key in a scanned source document.
type Reference struct {
	Path       string
	Occurrence Occurrence
}

// Location renders the reference as an LSP location covering the key.
func (r Reference) Location() protocol.Location {
	return protocol.Location{URI: utils.PathToURI(r.Path), Range: r.Occurrence.Range}
}

// CallAt returns the call whose key contains the byte offset. It fails with
// ErrScanning while the document is being scanned.
func (e *Engine) CallAt(path string, offset int) (extract.Call, bool, error) {
	occ, ok, err := e.OccurrenceAt(path, offset)
	return occ.Call, ok, err
}

// OccurrenceAt is CallAt with the precomputed ranges of the call.
func (e *Engine) OccurrenceAt(path string, offset int) (Occurrence, bool, error) {
	path = utils.NormalizePath(path)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.scanning[path] > 0 {
		return Occurrence{}, false, ErrScanning
	}
	idx, ok := e.docs[path]
	if !ok {
		return Occurrence{}, false, nil
	}
	for _, occ := range idx.occurrences {
		if occ.Contains(offset) {
			return occ, true, nil
		}
	}
	return Occurrence{}, false, nil
}

// Occurrences returns the calls recorded for a document.
func (e *Engine) Occurrences(path string) []Occurrence {
	path = utils.NormalizePath(path)
	e.mu.Lock()
	defer e.mu.Unlock()
	idx, ok := e.docs[path]
	if !ok {
		return nil
	}
	return append([]Occurrence(nil), idx.occurrences...)
}

// ScopesFor returns the scopes that cover a source document.
func (e *Engine) ScopesFor(path string) []config.Scope {
	return e.resolver.MatchingScopes(path)
}

// ScopesForCatalog returns the known scopes whose catalog directories contain
// path, plus those visible from the file's own directory.
func (e *Engine) ScopesForCatalog(path string) []config.Scope {
	path = utils.NormalizePath(path)
	var out []config.Scope
	seen := make(map[string]bool)
	add := func(s config.Scope) {
		if !s.CoversCatalog(path) || seen[scopeKey(s)] {
			return
		}
		seen[scopeKey(s)] = true
		out = append(out, s)
	}

	known := e.KnownScopes()
	for _, ws := range sortedKeys(known) {
		for _, s := range known[ws] {
			add(s)
		}
	}
	for _, s := range e.resolver.ScopesFor(path) {
		add(s)
	}
	return out
}

// References lists every use of key in scanned documents below sourceDirs,
// ordered by path and position. An empty sourceDirs matches every document.
func (e *Engine) References(key string, sourceDirs []string) []Reference {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []Reference
	for path, idx := range e.docs {
		if len(sourceDirs) > 0 && !utils.PathIsUnderAny(path, sourceDirs) {
			continue
		}
		for _, occ := range idx.occurrences {
			if occ.Key == key {
				out = append(out, Reference{Path: path, Occurrence: occ})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Occurrence.KeyStart < out[j].Occurrence.KeyStart
	})
	return out
}

// Translations returns the non-empty translations of key under catalogDirs.
func (e *Engine) Translations(key string, catalogDirs []string) []catalog.Translation {
	return e.catalogs.Translations(key, catalogDirs)
}

// EntryStatus reports for every catalog file under catalogDirs whether it
// defines key.
func (e *Engine) EntryStatus(key string, catalogDirs []string) []catalog.EntryStatus {
	return e.catalogs.EntryStatus(key, catalogDirs)
}

// AllKeys returns the sorted union of keys defined under catalogDirs.
func (e *Engine) AllKeys(catalogDirs []string) []string {
	return sortedKeys(e.catalogs.AllKeys(catalogDirs))
}

// Definitions locates the entries of key in the catalog files under
// catalogDirs.
func (e *Engine) Definitions(key string, catalogDirs []string) []protocol.Location {
	var out []protocol.Location
	for _, st := range e.catalogs.EntryStatus(key, catalogDirs) {
		if !st.HasEntry {
			continue
		}
		f, ok := e.catalogs.File(st.Path)
		if !ok {
			continue
		}
		out = append(out, protocol.Location{
			URI:   utils.PathToURI(st.Path),
			Range: f.KeyRange(st.Line),
		})
	}
	return out
}
