package server

import (
	"github.com/shinyvision/poxref/internal/catalog"
	"github.com/shinyvision/poxref/internal/config"
	"github.com/shinyvision/poxref/internal/state"
	"github.com/shinyvision/poxref/internal/utils"
	"github.com/shinyvision/poxref/internal/watch"
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// tracked reports whether the engine cares about edits to path.
func (s *Server) tracked(path string) bool {
	return catalog.IsCatalog(path) || s.engine.IsSource(path)
}

func (s *Server) didOpen(_ *glsp.Context, p *protocol.DidOpenTextDocumentParams) error {
	if !s.ready() {
		return nil
	}
	path := utils.UriToPath(p.TextDocument.URI)
	s.state.SetDocument(path, state.Document{
		Text:       p.TextDocument.Text,
		LanguageID: p.TextDocument.LanguageID,
		Version:    p.TextDocument.Version,
	})
	if s.tracked(path) {
		go s.engine.DocumentChanged(s.ctx, path)
	}
	return nil
}

func (s *Server) didChange(_ *glsp.Context, p *protocol.DidChangeTextDocumentParams) error {
	if !s.ready() {
		return nil
	}
	path := utils.UriToPath(p.TextDocument.URI)
	text, ok := s.state.Buffer(path)
	if !ok {
		return nil
	}

	for _, c := range p.ContentChanges {
		switch ch := c.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			text = ch.Text
		case protocol.TextDocumentContentChangeEvent:
			start := ch.Range.Start.IndexIn(text)
			end := ch.Range.End.IndexIn(text)
			if start >= 0 && end >= start && end <= len(text) {
				text = text[:start] + ch.Text + text[end:]
			}
		}
	}
	s.state.UpdateText(path, text, p.TextDocument.Version)
	if s.tracked(path) {
		go s.engine.DocumentChanged(s.ctx, path)
	}
	return nil
}

func (s *Server) didClose(_ *glsp.Context, p *protocol.DidCloseTextDocumentParams) error {
	if !s.ready() {
		return nil
	}
	path := utils.UriToPath(p.TextDocument.URI)
	s.state.DeleteDocument(path)
	if s.tracked(path) {
		go s.engine.DocumentClosed(s.ctx, path)
	}
	return nil
}

func (s *Server) didSave(_ *glsp.Context, p *protocol.DidSaveTextDocumentParams) error {
	if !s.ready() {
		return nil
	}
	path := utils.UriToPath(p.TextDocument.URI)
	if config.IsConfigFile(path) {
		go s.engine.ConfigChanged(s.ctx)
	}
	return nil
}

func (s *Server) didChangeWatchedFiles(_ *glsp.Context, p *protocol.DidChangeWatchedFilesParams) error {
	if !s.ready() || len(p.Changes) == 0 {
		return nil
	}
	changes := append([]protocol.FileEvent(nil), p.Changes...)
	go func() {
		for _, c := range changes {
			s.engine.FileEvent(s.ctx, utils.UriToPath(c.URI), fileOp(c.Type))
		}
	}()
	return nil
}

func (s *Server) didChangeConfiguration(_ *glsp.Context, p *protocol.DidChangeConfigurationParams) error {
	if !s.ready() || p.Settings == nil {
		return nil
	}
	st, err := parseSettings(settingsSection(p.Settings))
	if err != nil {
		commonlog.GetLoggerf("poxref.server").Warningf("ignoring configuration change: %v", err)
		return nil
	}
	s.resolver.SetSettings(st.Entries)
	go s.engine.ConfigChanged(s.ctx)
	return nil
}

func fileOp(t protocol.UInteger) watch.Op {
	switch t {
	case protocol.FileChangeTypeCreated:
		return watch.Created
	case protocol.FileChangeTypeDeleted:
		return watch.Removed
	}
	return watch.Changed
}
