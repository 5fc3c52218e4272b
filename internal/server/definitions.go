package server

import (
	"github.com/shinyvision/poxref/internal/extract"
	"github.com/shinyvision/poxref/internal/workspace"
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func (s *Server) onDefinition(_ *glsp.Context, p *protocol.DefinitionParams) (any, error) {
	if !s.ready() {
		return nil, nil
	}
	t, ok, err := s.keyAt(p.TextDocument.URI, p.Position)
	if err != nil || !ok || t.catalog {
		return nil, err
	}
	dirs := s.catalogDirsFor(t)
	if len(dirs) == 0 {
		return nil, nil
	}
	locations := s.engine.Definitions(t.key, dirs)
	if len(locations) == 0 {
		return nil, nil
	}
	return locations, nil
}

func (s *Server) onReferences(_ *glsp.Context, p *protocol.ReferenceParams) ([]protocol.Location, error) {
	logger := commonlog.GetLoggerf("poxref.server")
	if !s.ready() {
		return nil, nil
	}
	t, ok, err := s.keyAt(p.TextDocument.URI, p.Position)
	if err != nil || !ok {
		return nil, err
	}

	dirs := s.sourceDirsFor(t)
	if len(dirs) == 0 {
		logger.Infof("no configuration links %s to source directories", t.path)
		return nil, nil
	}
	refs := s.engine.References(t.key, dirs)
	if len(refs) == 0 && t.catalog {
		// The scopes may not have been scanned yet.
		s.engine.ScanDirectories(s.ctx, dirs, s.engine.ScopesForCatalog(t.path))
		refs = s.engine.References(t.key, dirs)
	}

	locations := s.sourceLocations(refs)
	if p.Context.IncludeDeclaration {
		locations = append(locations, s.engine.Definitions(t.key, s.catalogDirsFor(t))...)
	}
	if len(locations) == 0 {
		logger.Infof("no references found for %q", t.key)
		return nil, nil
	}
	return locations, nil
}

// sourceLocations converts references, dropping those inside comments.
func (s *Server) sourceLocations(refs []workspace.Reference) []protocol.Location {
	texts := make(map[string]string)
	var out []protocol.Location
	for _, r := range refs {
		text, ok := texts[r.Path]
		if !ok {
			text, _ = s.text(r.Path)
			texts[r.Path] = text
		}
		if r.Occurrence.CallStart <= len(text) && extract.InComment(text, r.Occurrence.CallStart) {
			continue
		}
		out = append(out, r.Location())
	}
	return out
}
