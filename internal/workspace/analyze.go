package workspace

import (
	"context"
	"sort"
	"strconv"

	"github.com/shinyvision/poxref/internal/config"
	"github.com/shinyvision/poxref/internal/diagnostics"
	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Analyze computes unused and duplicate entry diagnostics for every catalog
// file of the given scopes and replaces the diagnostics of those files.
//
// A key is unused in a scope when no scanned source document under the
// scope's source directories references it. Before the first key is reported
// the scope's unscanned source files are scanned once, so results do not
// depend on which documents happened to be opened.
func (e *Engine) Analyze(ctx context.Context, byWorkspace map[string][]config.Scope) {
	logger := commonlog.GetLoggerf("poxref.workspace")

	relevant := make(map[string]bool)
	out := make(map[string][]protocol.Diagnostic)
	seen := make(map[string]bool)
	add := func(path string, d protocol.Diagnostic) {
		k := path + "\x00" + diagnostics.CodeOf(d) + "\x00" + d.Message + "\x00" + strconv.Itoa(int(d.Range.Start.Line))
		if seen[k] {
			return
		}
		seen[k] = true
		out[path] = append(out[path], d)
	}

	for _, ws := range sortedKeys(byWorkspace) {
		scopes := byWorkspace[ws]
		for _, s := range scopes {
			if ctx.Err() != nil {
				return
			}
			if len(s.CatalogDirs) == 0 {
				continue
			}
			e.catalogs.EnsureWatched(s.CatalogDirs, ws)
			files := e.catalogs.Files(s.CatalogDirs)
			for _, p := range files {
				relevant[p] = true
			}

			rescanned := false
			for _, key := range sortedKeys(e.catalogs.AllKeys(s.CatalogDirs)) {
				if key == "" {
					continue
				}
				if ctx.Err() != nil {
					return
				}
				if len(e.References(key, s.SourceDirs)) > 0 {
					continue
				}
				if !rescanned && len(s.SourceDirs) > 0 {
					rescanned = true
					if n := e.scanUnscanned(ctx, s.SourceDirs, scopes); n > 0 {
						logger.Debugf("scanned %d unscanned source files for analysis", n)
						if len(e.References(key, s.SourceDirs)) > 0 {
							continue
						}
					}
				}

				for _, st := range e.catalogs.EntryStatus(key, s.CatalogDirs) {
					// Not trimmed: a whitespace translation is reported
					// as missing at call sites yet still counts as translated here.
					if !st.HasEntry || st.Translation == "" {
						continue
					}
					f, ok := e.catalogs.File(st.Path)
					if !ok {
						continue
					}
					add(st.Path, diagnostics.Unused(f.KeyRange(st.Line), key))
				}
			}

			for _, p := range files {
				f, ok := e.catalogs.File(p)
				if !ok {
					continue
				}
				for _, d := range f.Duplicates() {
					add(p, diagnostics.Duplicate(f.KeyRange(d.Line), d.Key, d.FirstLine))
				}
			}
		}
	}

	for _, p := range sortedKeys(relevant) {
		diags := out[p]
		sort.SliceStable(diags, func(i, j int) bool {
			return diags[i].Range.Start.Line < diags[j].Range.Start.Line
		})
		e.diags.Set(p, diags)
	}
	logger.Debugf("analyzed %d catalog files", len(relevant))
}
