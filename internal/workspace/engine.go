package workspace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shinyvision/poxref/internal/catalog"
	"github.com/shinyvision/poxref/internal/config"
	"github.com/shinyvision/poxref/internal/diagnostics"
	"github.com/shinyvision/poxref/internal/extract"
	"github.com/shinyvision/poxref/internal/state"
	"github.com/shinyvision/poxref/internal/utils"
	"github.com/shinyvision/poxref/internal/watch"
	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// ScanState tells how far a source document has been processed.
type ScanState int

const (
	NotScanned ScanState = iota
	Scanning
	Scanned
)

var (
	ErrScanning  = errors.New("document scanning in progress, try again later")
	ErrNoKey     = errors.New("no localization key found at the current position")
	ErrEmptyName = errors.New("new name must be non-empty")
)

// Options tune an Engine.
type Options struct {
	// Debounce is the quiet period before catalog analysis runs.
	Debounce time.Duration
	// SourceExtensions select the files treated as source documents.
	SourceExtensions []string
	// Grammar prefers the tree-sitter extractor for languages it supports.
	Grammar bool
}

func DefaultOptions() Options {
	return Options{
		Debounce:         DefaultDebounce,
		SourceExtensions: []string{".cs"},
	}
}

// Occurrence is a localization call recorded for a scanned document.
type Occurrence struct {
	extract.Call
	// Range covers the key content, CallRange the whole call.
	Range     protocol.Range
	CallRange protocol.Range
}

type docIndex struct {
	occurrences []Occurrence
	scopes      []config.Scope
}

// Engine owns the source occurrence index, the catalog index and the
// diagnostics derived from both, and keeps them current as files change.
type Engine struct {
	opts     Options
	resolver *config.Resolver
	catalogs *catalog.Index
	buffers  *state.State
	diags    *diagnostics.Store
	debounce *debouncer

	mu       sync.Mutex
	docs     map[string]*docIndex
	scanning map[string]int
	gens     map[string]uint64
	known    map[string][]config.Scope
	watcher  *watch.Watcher

	grammarMu sync.Mutex
	grammars  map[extract.Language]extract.Extractor
}

func NewEngine(resolver *config.Resolver, buffers *state.State, diags *diagnostics.Store, opts Options) *Engine {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if len(opts.SourceExtensions) == 0 {
		opts.SourceExtensions = DefaultOptions().SourceExtensions
	}
	e := &Engine{
		opts:     opts,
		resolver: resolver,
		catalogs: catalog.NewIndex(buffers),
		buffers:  buffers,
		diags:    diags,
		debounce: newDebouncer(opts.Debounce),
		docs:     make(map[string]*docIndex),
		scanning: make(map[string]int),
		gens:     make(map[string]uint64),
		known:    make(map[string][]config.Scope),
		grammars: make(map[extract.Language]extract.Extractor),
	}
	e.catalogs.OnChange(e.CatalogChanged)
	return e
}

func (e *Engine) Catalogs() *catalog.Index { return e.catalogs }

func (e *Engine) Diagnostics() *diagnostics.Store { return e.diags }

func (e *Engine) Resolver() *config.Resolver { return e.resolver }

func (e *Engine) Buffers() *state.State { return e.buffers }

// StartWatching watches catalog and source directories for changes made
// outside the editor.
func (e *Engine) StartWatching() error {
	w, err := watch.New(func(ev watch.Event) {
		e.FileEvent(context.Background(), ev.Path, ev.Op)
	})
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.watcher = w
	e.mu.Unlock()
	e.catalogs.SetWatcher(w)
	return nil
}

// Close stops pending analysis and the file watcher.
func (e *Engine) Close() {
	e.debounce.stop()
	e.mu.Lock()
	w := e.watcher
	e.watcher = nil
	e.mu.Unlock()
	if w != nil {
		if err := w.Close(); err != nil {
			commonlog.GetLoggerf("poxref.workspace").Warningf("closing watcher: %v", err)
		}
	}
}

// IsSource reports whether path has one of the configured source extensions.
func (e *Engine) IsSource(path string) bool {
	pathExt := filepath.Ext(path)
	for _, ext := range e.opts.SourceExtensions {
		if strings.EqualFold(ext, pathExt) {
			return true
		}
	}
	return false
}

// State returns the scan state of a source document.
func (e *Engine) State(path string) ScanState {
	path = utils.NormalizePath(path)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.scanning[path] > 0 {
		return Scanning
	}
	if _, ok := e.docs[path]; ok {
		return Scanned
	}
	return NotScanned
}

// KnownScopes returns every scope seen so far, grouped by workspace.
func (e *Engine) KnownScopes() map[string][]config.Scope {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string][]config.Scope, len(e.known))
	for ws, scopes := range e.known {
		out[ws] = append([]config.Scope(nil), scopes...)
	}
	return out
}

// DocumentChanged reacts to an edit of an open document.
func (e *Engine) DocumentChanged(ctx context.Context, path string) {
	path = utils.NormalizePath(path)
	switch {
	case catalog.IsCatalog(path):
		if e.catalogs.Covers(path) {
			e.catalogs.Reload(path)
		}
	case e.IsSource(path):
		e.ScanDocument(ctx, path, nil)
	}
}

// DocumentClosed reverts a document to its disk content. The caller removes
// the buffer first.
func (e *Engine) DocumentClosed(ctx context.Context, path string) {
	e.DocumentChanged(ctx, path)
}

// ConfigChanged rebuilds everything from the new configuration.
func (e *Engine) ConfigChanged(ctx context.Context) {
	e.TriggerFullScan(ctx)
}

// FileEvent handles a change made on disk. Files open in the editor are
// skipped since their buffer is authoritative.
func (e *Engine) FileEvent(ctx context.Context, path string, op watch.Op) {
	path = utils.NormalizePath(path)
	_, open := e.buffers.Buffer(path)

	switch {
	case config.IsConfigFile(path):
		e.ConfigChanged(ctx)
	case catalog.IsCatalog(path):
		if !e.catalogs.Covers(path) || (open && op != watch.Removed) {
			return
		}
		if op == watch.Removed {
			e.diags.Set(path, nil)
			e.catalogs.Remove(path)
			return
		}
		e.catalogs.Reload(path)
	case e.IsSource(path):
		if open && op != watch.Removed {
			return
		}
		if op == watch.Removed {
			e.forget(path)
			return
		}
		e.ScanDocument(ctx, path, e.workspaceScopes(path))
	}
}

// CatalogChanged rescans the source directories of every scope that uses
// the catalog file and schedules analysis for their workspaces. Catalog
// files no known scope claims trigger a full scan.
func (e *Engine) CatalogChanged(path string) {
	logger := commonlog.GetLoggerf("poxref.workspace")
	ctx := context.Background()

	scopes := e.ScopesForCatalog(path)
	if len(scopes) == 0 {
		logger.Infof("no scope uses %s, running full scan", path)
		e.TriggerFullScan(ctx)
		return
	}

	var dirs []string
	for _, s := range scopes {
		for _, d := range s.SourceDirs {
			dirs = utils.AppendUnique(dirs, d)
		}
	}
	logger.Debugf("catalog %s changed, rescanning %d source directories", path, len(dirs))
	for _, f := range e.sourceFiles(dirs) {
		e.scanDocument(ctx, f, scopes, false)
	}
	e.scheduleAnalysis(scopes)
}

func (e *Engine) readSource(path string) (string, error) {
	if text, ok := e.buffers.Buffer(path); ok {
		return text, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// remember records scopes so catalog changes can be traced back to them.
func (e *Engine) remember(scopes []config.Scope) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range scopes {
		list := e.known[s.WorkspaceID]
		found := false
		for _, k := range list {
			if scopeKey(k) == scopeKey(s) {
				found = true
				break
			}
		}
		if !found {
			e.known[s.WorkspaceID] = append(list, s)
		}
	}
}

func (e *Engine) workspaceScopes(path string) []config.Scope {
	ws, ok := e.resolver.WorkspaceFor(path)
	if !ok {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]config.Scope(nil), e.known[ws]...)
}

func (e *Engine) scheduleAnalysis(scopes []config.Scope) {
	for ws, list := range groupByWorkspace(scopes) {
		e.debounce.schedule(ws, list, func(ws string, list []config.Scope) {
			e.Analyze(context.Background(), map[string][]config.Scope{ws: list})
		})
	}
}

func (e *Engine) watchSources(dirs []string) {
	e.mu.Lock()
	w := e.watcher
	e.mu.Unlock()
	if w == nil {
		return
	}
	for _, d := range dirs {
		if w.Watching(d) {
			continue
		}
		if err := w.AddTree(d); err != nil {
			commonlog.GetLoggerf("poxref.workspace").Debugf("not watching %s: %v", d, err)
		}
	}
}

func (e *Engine) grammarFor(path string) extract.Extractor {
	if !e.opts.Grammar {
		return nil
	}
	lang, ok := extract.LanguageForPath(path)
	if !ok {
		return nil
	}

	e.grammarMu.Lock()
	defer e.grammarMu.Unlock()
	if ex, ok := e.grammars[lang]; ok {
		return ex
	}
	ts, err := extract.NewTreeSitter(lang)
	if err != nil {
		commonlog.GetLoggerf("poxref.workspace").Warningf("grammar extractor unavailable, using regex scanner: %v", err)
		e.grammars[lang] = nil
		return nil
	}
	e.grammars[lang] = ts
	return ts
}

func groupByWorkspace(scopes []config.Scope) map[string][]config.Scope {
	out := make(map[string][]config.Scope)
	for _, s := range scopes {
		out[s.WorkspaceID] = append(out[s.WorkspaceID], s)
	}
	return out
}

func scopeKey(s config.Scope) string {
	return strings.Join([]string{
		s.Origin,
		strings.Join(s.SourceDirs, "\x00"),
		strings.Join(s.CatalogDirs, "\x00"),
		strings.Join(s.FunctionNames, "\x00"),
	}, "\x01")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
