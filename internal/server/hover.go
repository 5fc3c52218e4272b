package server

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/shinyvision/poxref/internal/catalog"
	"github.com/shinyvision/poxref/internal/utils"
	"github.com/shinyvision/poxref/internal/workspace"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

func (s *Server) onHover(_ *glsp.Context, p *protocol.HoverParams) (*protocol.Hover, error) {
	if !s.ready() {
		return nil, nil
	}
	t, ok, err := s.keyAt(p.TextDocument.URI, p.Position)
	if errors.Is(err, workspace.ErrScanning) {
		return markdownHover(lsName+"\n\nScanning...", nil), nil
	}
	if err != nil || !ok {
		return nil, err
	}

	dirs := s.catalogDirsFor(t)
	if len(dirs) == 0 {
		return nil, nil
	}
	lines := []string{lsName}
	lines = append(lines, translationLines(s.engine.Translations(t.key, dirs))...)
	if t.catalog {
		n := len(s.engine.References(t.key, s.sourceDirsFor(t)))
		lines = append(lines, fmt.Sprintf("%d references", n))
	}
	rng := t.rng
	return markdownHover(strings.Join(lines, "\n\n"), &rng), nil
}

// translationLines renders one markdown bullet per catalog file, linking to
// the entry.
func translationLines(trs []catalog.Translation) []string {
	if len(trs) == 0 {
		return []string{"- No entry"}
	}
	out := make([]string, 0, len(trs))
	for _, tr := range trs {
		rel := tr.RelativePath
		link := fmt.Sprintf("[%s](%s#L%d)", path.Base(rel), utils.PathToURI(tr.Path), tr.Line+1)
		folder := path.Dir(rel)
		out = append(out, fmt.Sprintf("- %s: `%s` (%s)", link, strings.ReplaceAll(tr.Translation, "`", "'"), folder))
	}
	return out
}

func markdownHover(value string, rng *protocol.Range) *protocol.Hover {
	return &protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.MarkupKindMarkdown, Value: value},
		Range:    rng,
	}
}
