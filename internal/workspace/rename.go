package workspace

import (
	"fmt"
	"path/filepath"

	"github.com/shinyvision/poxref/internal/catalog"
	"github.com/shinyvision/poxref/internal/config"
	"github.com/shinyvision/poxref/internal/extract"
	"github.com/shinyvision/poxref/internal/utils"
	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// KeyExistsError is returned when a rename target is already defined.
type KeyExistsError struct {
	Key string
}

func (e *KeyExistsError) Error() string {
	return fmt.Sprintf("a msgid %q already exists in catalog files", e.Key)
}

// Edits maps file paths to the text edits to apply to them.
type Edits map[string][]protocol.TextEdit

// WorkspaceEdit converts the edits to LSP form.
func (ed Edits) WorkspaceEdit() *protocol.WorkspaceEdit {
	changes := make(map[protocol.DocumentUri][]protocol.TextEdit, len(ed))
	for path, edits := range ed {
		changes[utils.PathToURI(path)] = edits
	}
	return &protocol.WorkspaceEdit{Changes: changes}
}

// Rename renames the key under the byte offset of a source document, in every
// referencing document and every catalog entry of the document's scopes.
func (e *Engine) Rename(path string, offset int, newName string) (Edits, error) {
	if newName == "" {
		return nil, ErrEmptyName
	}
	call, ok, err := e.CallAt(path, offset)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoKey
	}
	return e.renameKey(call.Key, newName, e.ScopesFor(path))
}

// RenameFromCatalog renames the key of the catalog entry covering line.
func (e *Engine) RenameFromCatalog(path string, line int, newName string) (Edits, error) {
	if newName == "" {
		return nil, ErrEmptyName
	}
	path = utils.NormalizePath(path)
	f, ok := e.catalogs.File(path)
	if !ok {
		return nil, ErrNoKey
	}
	entry, ok := f.EntryAt(line)
	if !ok || entry.Key == "" {
		return nil, ErrNoKey
	}

	scopes := e.ScopesForCatalog(path)
	if len(scopes) == 0 {
		// Only the file's own directory is renamed.
		dir := filepath.Dir(path)
		scopes = []config.Scope{{SourceDirs: []string{dir}, CatalogDirs: []string{dir}}}
	}
	return e.renameKey(entry.Key, newName, scopes)
}

func (e *Engine) renameKey(oldKey, newName string, scopes []config.Scope) (Edits, error) {
	logger := commonlog.GetLoggerf("poxref.workspace")
	edits := Edits{}
	if oldKey == newName {
		return edits, nil
	}

	_, catalogDirs := config.Union(scopes, nil)
	var sourceDirs []string
	for _, s := range scopes {
		for _, d := range s.SourceDirs {
			sourceDirs = utils.AppendUnique(sourceDirs, d)
		}
	}
	if len(catalogDirs) > 0 {
		for _, st := range e.catalogs.EntryStatus(newName, catalogDirs) {
			if st.HasEntry {
				return nil, &KeyExistsError{Key: newName}
			}
		}
	}

	if len(sourceDirs) > 0 {
		for _, ref := range e.References(oldKey, sourceDirs) {
			occ := ref.Occurrence
			edits[ref.Path] = append(edits[ref.Path], protocol.TextEdit{
				Range:   occ.Range,
				NewText: extract.EscapeLiteral(newName, occ.Verbatim),
			})
		}
	}

	if len(catalogDirs) > 0 {
		for _, st := range e.catalogs.EntryStatus(oldKey, catalogDirs) {
			if !st.HasEntry {
				continue
			}
			f, ok := e.catalogs.File(st.Path)
			if !ok {
				continue
			}
			edits[st.Path] = append(edits[st.Path], catalogEdits(f, oldKey, newName)...)
		}
	}

	logger.Infof("renaming %q to %q touches %d files", oldKey, newName, len(edits))
	return edits, nil
}

// catalogEdits rewrites every msgid of oldKey in f, duplicates included.
func catalogEdits(f *catalog.File, oldKey, newName string) []protocol.TextEdit {
	var out []protocol.TextEdit
	for _, entry := range f.Entries {
		if entry.Key != oldKey {
			continue
		}
		span, ok := f.KeySpan(entry)
		if !ok {
			continue
		}
		out = append(out, protocol.TextEdit{Range: span, NewText: catalog.Escape(newName)})
	}
	return out
}
