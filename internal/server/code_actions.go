package server

import (
	"fmt"

	"github.com/shinyvision/poxref/internal/config"
	"github.com/shinyvision/poxref/internal/diagnostics"
	"github.com/shinyvision/poxref/internal/utils"
	"github.com/shinyvision/poxref/internal/workspace"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func (s *Server) onCodeAction(_ *glsp.Context, params *protocol.CodeActionParams) (any, error) {
	if !s.ready() {
		return nil, nil
	}
	path := utils.UriToPath(params.TextDocument.URI)
	_, catalogDirs := config.Union(s.engine.ScopesFor(path), nil)
	if len(catalogDirs) == 0 {
		return nil, nil
	}

	var actions []protocol.CodeAction
	seen := make(map[string]bool)
	for _, d := range params.Context.Diagnostics {
		if diagnostics.CodeOf(d) != diagnostics.CodeMissing {
			continue
		}
		key, ok := diagnostics.KeyOf(d)
		if !ok || seen[key] {
			continue
		}
		seen[key] = true
		if action, ok := s.addEntryAction(key, catalogDirs, d); ok {
			actions = append(actions, action)
		}
	}
	if len(actions) == 0 {
		return nil, nil
	}
	return actions, nil
}

// addEntryAction appends an untranslated entry for key to every catalog file
// under catalogDirs that lacks one.
func (s *Server) addEntryAction(key string, catalogDirs []string, d protocol.Diagnostic) (protocol.CodeAction, bool) {
	edits := workspace.Edits{}
	for _, st := range s.engine.EntryStatus(key, catalogDirs) {
		if st.HasEntry {
			continue
		}
		f, ok := s.engine.Catalogs().File(st.Path)
		if !ok {
			continue
		}
		edits[st.Path] = append(edits[st.Path], f.AppendEdit(key))
	}
	if len(edits) == 0 {
		return protocol.CodeAction{}, false
	}

	kind := protocol.CodeActionKindQuickFix
	return protocol.CodeAction{
		Title:       fmt.Sprintf("Add '%s' to %d catalog files", diagnostics.DisplayKey(key, 16), len(edits)),
		Kind:        &kind,
		Diagnostics: []protocol.Diagnostic{d},
		Edit:        edits.WorkspaceEdit(),
	}, true
}
