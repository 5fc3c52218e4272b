package workspace

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shinyvision/poxref/internal/config"
	"github.com/shinyvision/poxref/internal/diagnostics"
	"github.com/shinyvision/poxref/internal/extract"
	"github.com/shinyvision/poxref/internal/utils"
	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// skipSourceDirs are never descended into when collecting source files.
var skipSourceDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"bin":          true,
	"obj":          true,
}

// ScanDocument extracts the localization calls of one source document and
// publishes its missing-entry diagnostics. Scopes come from the configuration
// files around the document; fallback is used when none of them match.
// Documents no scope covers lose their index and diagnostics.
func (e *Engine) ScanDocument(ctx context.Context, path string, fallback []config.Scope) {
	e.scanDocument(ctx, path, fallback, true)
}

func (e *Engine) scanDocument(ctx context.Context, path string, fallback []config.Scope, schedule bool) {
	logger := commonlog.GetLoggerf("poxref.workspace")
	if ctx.Err() != nil {
		return
	}
	path = utils.NormalizePath(path)
	gen := e.beginScan(path)
	defer e.endScan(path)

	text, err := e.readSource(path)
	if err != nil {
		logger.Warningf("cannot read %s: %v", path, err)
		e.commit(path, gen, nil, nil)
		return
	}

	scopes := e.resolver.MatchingScopes(path)
	if len(scopes) == 0 {
		scopes = config.Matching(fallback, path)
	}
	if len(scopes) == 0 {
		logger.Debugf("no scope covers %s", path)
		e.commit(path, gen, nil, nil)
		return
	}

	funcs, catalogDirs := config.Union(scopes, extract.DefaultFunctions)
	for _, s := range scopes {
		e.catalogs.EnsureWatched(s.CatalogDirs, s.WorkspaceID)
	}

	calls, backend := extract.Extract(e.grammarFor(path), text, funcs)
	lines := utils.NewLineIndex(text)
	idx := &docIndex{scopes: scopes}
	var diags []protocol.Diagnostic
	for _, c := range calls {
		occ := Occurrence{
			Call:      c,
			Range:     lines.Range(c.KeyStart, c.KeyEnd),
			CallRange: lines.Range(c.CallStart, c.CallEnd),
		}
		idx.occurrences = append(idx.occurrences, occ)

		if len(catalogDirs) == 0 {
			continue
		}
		if missing := e.missingIn(c.Key, catalogDirs); len(missing) > 0 {
			diags = append(diags, diagnostics.Missing(occ.CallRange, c.Key, missing))
		}
	}

	if !e.commit(path, gen, idx, diags) {
		logger.Debugf("discarding stale scan of %s", path)
		return
	}
	logger.Debugf("scanned %s with %s extractor: %d calls, %d missing", path, backend, len(calls), len(diags))

	e.remember(scopes)
	if schedule {
		e.scheduleAnalysis(scopes)
	}
}

// missingIn lists the catalog files under dirs where key has no entry or an
// empty translation.
func (e *Engine) missingIn(key string, dirs []string) []string {
	var missing []string
	for _, st := range e.catalogs.EntryStatus(key, dirs) {
		// A whitespace-only translation counts as missing here but as in use
		// for the unused-entry check.
		if !st.HasEntry || strings.TrimSpace(st.Translation) == "" {
			missing = append(missing, st.RelativePath)
		}
	}
	return missing
}

func (e *Engine) beginScan(path string) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scanning[path]++
	e.gens[path]++
	return e.gens[path]
}

func (e *Engine) endScan(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.scanning[path]--; e.scanning[path] <= 0 {
		delete(e.scanning, path)
	}
}

// commit stores the result of the scan numbered gen unless a newer scan of the
// same document has started since. A nil idx forgets the document.
func (e *Engine) commit(path string, gen uint64, idx *docIndex, diags []protocol.Diagnostic) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gens[path] != gen {
		return false
	}
	if idx == nil {
		delete(e.docs, path)
	} else {
		e.docs[path] = idx
	}
	e.diags.Set(path, diags)
	return true
}

// forget drops a deleted source document and reschedules analysis for the
// scopes it belonged to.
func (e *Engine) forget(path string) {
	e.mu.Lock()
	e.gens[path]++
	idx := e.docs[path]
	delete(e.docs, path)
	e.diags.Set(path, nil)
	e.mu.Unlock()

	if idx != nil {
		e.scheduleAnalysis(idx.scopes)
	}
}

// ScanDirectories scans every source file below dirs. Files are matched
// against their own configuration first and fallback second.
func (e *Engine) ScanDirectories(ctx context.Context, dirs []string, fallback []config.Scope) {
	e.scanDirectories(ctx, dirs, fallback, true)
}

func (e *Engine) scanDirectories(ctx context.Context, dirs []string, fallback []config.Scope, schedule bool) int {
	e.watchSources(dirs)
	files := e.sourceFiles(dirs)
	for _, f := range files {
		if ctx.Err() != nil {
			return 0
		}
		e.scanDocument(ctx, f, fallback, schedule)
	}
	return len(files)
}

// scanUnscanned scans the source files below dirs that have no index yet and
// reports how many it scanned. Analysis is not rescheduled.
func (e *Engine) scanUnscanned(ctx context.Context, dirs []string, fallback []config.Scope) int {
	n := 0
	for _, f := range e.sourceFiles(dirs) {
		if ctx.Err() != nil {
			break
		}
		if e.State(f) != NotScanned {
			continue
		}
		e.scanDocument(ctx, f, fallback, false)
		n++
	}
	return n
}

// TriggerFullScan discovers every configuration of every workspace, loads the
// catalogs they name and rescans all their source files. Analysis is
// scheduled once per workspace at the end.
func (e *Engine) TriggerFullScan(ctx context.Context) {
	logger := commonlog.GetLoggerf("poxref.workspace")

	byWorkspace := e.resolver.Discover()
	e.mu.Lock()
	e.known = make(map[string][]config.Scope, len(byWorkspace))
	for ws, scopes := range byWorkspace {
		e.known[ws] = append([]config.Scope(nil), scopes...)
	}
	for p := range e.docs {
		e.gens[p]++
	}
	e.docs = make(map[string]*docIndex)
	e.mu.Unlock()
	e.diags.Clear()

	total := 0
	for _, ws := range sortedKeys(byWorkspace) {
		scopes := byWorkspace[ws]
		var dirs []string
		for _, s := range scopes {
			e.catalogs.EnsureWatched(s.CatalogDirs, ws)
			for _, d := range s.SourceDirs {
				dirs = utils.AppendUnique(dirs, d)
			}
		}
		total += e.scanDirectories(ctx, dirs, scopes, false)
	}

	for _, p := range e.buffers.Paths() {
		if e.IsSource(p) && e.State(p) == NotScanned {
			e.scanDocument(ctx, p, e.workspaceScopes(p), false)
			total++
		}
	}
	if ctx.Err() != nil {
		logger.Warningf("full scan cancelled: %v", ctx.Err())
		return
	}
	logger.Infof("full scan of %d workspaces scanned %d source files", len(byWorkspace), total)

	for _, ws := range sortedKeys(byWorkspace) {
		e.scheduleAnalysis(byWorkspace[ws])
	}
}

// Reset drops every index, diagnostic and pending analysis and runs a full
// scan from scratch.
func (e *Engine) Reset(ctx context.Context) {
	commonlog.GetLoggerf("poxref.workspace").Info("clearing all state")
	e.debounce.cancel()
	e.catalogs.Reset()

	e.mu.Lock()
	for p := range e.docs {
		e.gens[p]++
	}
	e.docs = make(map[string]*docIndex)
	e.known = make(map[string][]config.Scope)
	e.mu.Unlock()

	e.grammarMu.Lock()
	e.grammars = make(map[extract.Language]extract.Extractor)
	e.grammarMu.Unlock()

	e.diags.Clear()
	e.TriggerFullScan(ctx)
}

// sourceFiles lists the source files below dirs, sorted and deduplicated.
func (e *Engine) sourceFiles(dirs []string) []string {
	logger := commonlog.GetLoggerf("poxref.workspace")
	seen := make(map[string]bool)
	var out []string
	for _, dir := range dirs {
		dir = utils.NormalizePath(dir)
		err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				if d != nil && d.IsDir() && p != dir {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if p != dir && skipSourceDirs[d.Name()] {
					return filepath.SkipDir
				}
				return nil
			}
			if e.IsSource(p) && !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
			return nil
		})
		if err != nil {
			logger.Debugf("walking %s: %v", dir, err)
		}
	}
	sort.Strings(out)
	return out
}
