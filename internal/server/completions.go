package server

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/shinyvision/poxref/internal/config"
	"github.com/shinyvision/poxref/internal/extract"
	"github.com/shinyvision/poxref/internal/utils"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

const maxDetailLen = 160

func (s *Server) onCompletion(_ *glsp.Context, p *protocol.CompletionParams) (any, error) {
	if !s.ready() {
		return nil, nil
	}
	docPath := utils.UriToPath(p.TextDocument.URI)
	if !s.engine.IsSource(docPath) {
		return nil, nil
	}
	text, ok := s.state.Buffer(docPath)
	if !ok {
		return nil, nil
	}
	offset := p.Position.IndexIn(text)
	if extract.InComment(text, offset) {
		return nil, nil
	}

	scopes := s.engine.ScopesFor(docPath)
	if len(scopes) == 0 {
		return nil, nil
	}
	funcs, catalogDirs := config.Union(scopes, extract.DefaultFunctions)
	arg, ok := extract.FirstArgumentAt(text, offset, funcs)
	if !ok || len(catalogDirs) == 0 {
		return nil, nil
	}

	keys := rankKeys(arg.Prefix, s.engine.AllKeys(catalogDirs))
	if len(keys) == 0 {
		return nil, nil
	}

	lines := utils.NewLineIndex(text)
	replace := lines.Range(arg.Start, offset)
	kind := protocol.CompletionItemKindText
	items := make([]protocol.CompletionItem, 0, len(keys))
	for i, key := range keys {
		sortText := fmt.Sprintf("%06d", i)
		item := protocol.CompletionItem{
			Label:    key,
			Kind:     &kind,
			SortText: &sortText,
			TextEdit: protocol.TextEdit{
				Range:   replace,
				NewText: extract.EscapeLiteral(key, arg.Verbatim),
			},
		}
		filter := arg.Prefix
		item.FilterText = &filter
		if detail, doc := s.completionDocs(key, catalogDirs); detail != "" {
			item.Detail = &detail
			item.Documentation = protocol.MarkupContent{Kind: protocol.MarkupKindMarkdown, Value: doc}
		}
		items = append(items, item)
	}
	return protocol.CompletionList{IsIncomplete: true, Items: items}, nil
}

// rankKeys orders the keys matching prefix. Without a prefix every key is
// returned, shortest first.
func rankKeys(prefix string, keys []string) []string {
	var out []string
	for _, k := range keys {
		if k != "" {
			out = append(out, k)
		}
	}
	if prefix == "" {
		sort.SliceStable(out, func(i, j int) bool {
			if len(out[i]) != len(out[j]) {
				return len(out[i]) < len(out[j])
			}
			return out[i] < out[j]
		})
		return out
	}

	matches := fuzzy.Find(prefix, out)
	ranked := make([]string, 0, len(matches))
	for _, m := range matches {
		ranked = append(ranked, m.Str)
	}
	return ranked
}

func (s *Server) completionDocs(key string, catalogDirs []string) (string, string) {
	trs := s.engine.Translations(key, catalogDirs)
	if len(trs) == 0 {
		return "", ""
	}
	first := trs[0]
	detail := fmt.Sprintf("(%s) %s", path.Base(first.RelativePath), shorten(first.Translation))
	return detail, strings.Join(append([]string{lsName}, translationLines(trs)...), "\n\n")
}

func shorten(s string) string {
	s = strings.ReplaceAll(strings.ReplaceAll(s, "\r\n", " "), "\n", " ")
	r := []rune(s)
	if len(r) > maxDetailLen {
		return string(r[:maxDetailLen-1]) + "…"
	}
	return s
}
