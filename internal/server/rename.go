package server

import (
	"github.com/shinyvision/poxref/internal/utils"
	"github.com/shinyvision/poxref/internal/workspace"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func (s *Server) onPrepareRename(_ *glsp.Context, p *protocol.PrepareRenameParams) (any, error) {
	if !s.ready() {
		return nil, nil
	}
	t, ok, err := s.keyAt(p.TextDocument.URI, p.Position)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, workspace.ErrNoKey
	}
	return protocol.RangeWithPlaceholder{Range: t.rng, Placeholder: t.key}, nil
}

func (s *Server) onRename(_ *glsp.Context, p *protocol.RenameParams) (*protocol.WorkspaceEdit, error) {
	if !s.ready() {
		return nil, nil
	}
	path := utils.UriToPath(p.TextDocument.URI)

	var (
		edits workspace.Edits
		err   error
	)
	if t, ok, _ := s.keyAt(p.TextDocument.URI, p.Position); ok && t.catalog {
		edits, err = s.engine.RenameFromCatalog(path, int(p.Position.Line), p.NewName)
	} else {
		text, ok := s.text(path)
		if !ok {
			return nil, workspace.ErrNoKey
		}
		edits, err = s.engine.Rename(path, p.Position.IndexIn(text), p.NewName)
	}
	if err != nil {
		return nil, err
	}
	return edits.WorkspaceEdit(), nil
}
