package catalog

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/shinyvision/poxref/internal/utils"
	"github.com/tliron/commonlog"
)

// Extension is the file extension of catalog files. Templates (.pot) are not
// indexed since every entry in them is untranslated by definition.
const Extension = ".po"

// BufferSource exposes open editor buffers, which win over disk content.
type BufferSource interface {
	Buffer(path string) (string, bool)
}

// DirWatcher registers a directory tree for change notifications.
type DirWatcher interface {
	AddTree(dir string) error
}

// EntryStatus tells whether one catalog file defines a key.
type EntryStatus struct {
	Path         string
	RelativePath string
	HasEntry     bool
	Translation  string
	Line         int
}

// Translation is a non-empty translation of a key in one catalog file.
type Translation struct {
	Path         string
	RelativePath string
	Translation  string
	Line         int
}

// Index holds the parsed entries of every catalog file below the watched
// directories, keyed by cleaned absolute path.
type Index struct {
	mu        sync.RWMutex
	files     map[string]*File
	gens      map[string]uint64
	watched   map[string]string
	buffers   BufferSource
	watcher   DirWatcher
	listeners []func(path string)
}

func NewIndex(buffers BufferSource) *Index {
	return &Index{
		files:   make(map[string]*File),
		gens:    make(map[string]uint64),
		watched: make(map[string]string),
		buffers: buffers,
	}
}

// SetWatcher installs the watcher used for directories registered from now on.
func (x *Index) SetWatcher(w DirWatcher) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.watcher = w
}

// OnChange registers fn to be called with the path of every catalog file that
// was reloaded or removed.
func (x *Index) OnChange(fn func(path string)) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.listeners = append(x.listeners, fn)
}

// IsCatalog reports whether path names a catalog file.
func IsCatalog(path string) bool {
	return strings.EqualFold(filepath.Ext(path), Extension)
}

// EnsureWatched parses every catalog file below each directory that has not
// been seen before and registers the directory for change notifications.
// Directories already known are left untouched.
func (x *Index) EnsureWatched(dirs []string, workspaceRoot string) {
	logger := commonlog.GetLoggerf("poxref.catalog")
	root := utils.NormalizePath(workspaceRoot)

	for _, dir := range dirs {
		dir = utils.NormalizePath(dir)
		if dir == "" {
			continue
		}

		x.mu.Lock()
		if _, ok := x.watched[dir]; ok {
			x.mu.Unlock()
			continue
		}
		x.watched[dir] = root
		watcher := x.watcher
		x.mu.Unlock()

		paths := findCatalogs(dir)
		for _, p := range paths {
			x.load(p)
		}
		logger.Infof("indexed %d catalog files under %s", len(paths), dir)

		if watcher != nil {
			if err := watcher.AddTree(dir); err != nil {
				logger.Warningf("could not watch %s: %v", dir, err)
			}
		}
	}
}

// Reload re-parses a single catalog file from its authoritative content and
// notifies the change listeners.
func (x *Index) Reload(path string) {
	path = utils.NormalizePath(path)
	x.load(path)
	x.emit(path)
}

// Remove drops a catalog file from the index and notifies the listeners.
func (x *Index) Remove(path string) {
	path = utils.NormalizePath(path)
	x.mu.Lock()
	x.gens[path]++
	delete(x.files, path)
	x.mu.Unlock()
	x.emit(path)
}

// Reset forgets every file and directory registration. Watches already placed
// on the file system stay in place.
func (x *Index) Reset() {
	x.mu.Lock()
	defer x.mu.Unlock()
	for p := range x.gens {
		x.gens[p]++
	}
	x.files = make(map[string]*File)
	x.watched = make(map[string]string)
}

// Covers reports whether path lies below a registered directory.
func (x *Index) Covers(path string) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	for dir := range x.watched {
		if utils.PathIsUnder(path, dir) {
			return true
		}
	}
	return false
}

// File returns the parsed file at path.
func (x *Index) File(path string) (*File, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	f, ok := x.files[utils.NormalizePath(path)]
	return f, ok
}

// Files lists the catalog files under any of dirs, sorted by path. An empty
// dirs list matches every indexed file.
func (x *Index) Files(dirs []string) []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.filesLocked(dirs)
}

// AllKeys returns the union of keys defined under dirs.
func (x *Index) AllKeys(dirs []string) map[string]struct{} {
	x.mu.RLock()
	defer x.mu.RUnlock()

	keys := make(map[string]struct{})
	for _, p := range x.filesLocked(dirs) {
		for _, e := range x.files[p].Entries {
			keys[e.Key] = struct{}{}
		}
	}
	return keys
}

// EntryStatus reports, for every catalog file under dirs, whether it defines
// key. Files without the key are included with HasEntry false.
func (x *Index) EntryStatus(key string, dirs []string) []EntryStatus {
	x.mu.RLock()
	defer x.mu.RUnlock()

	var out []EntryStatus
	for _, p := range x.filesLocked(dirs) {
		st := EntryStatus{Path: p, RelativePath: x.relativeLocked(p)}
		if e, ok := x.files[p].Lookup(key); ok {
			st.HasEntry = true
			st.Translation = e.Translation
			st.Line = e.Line
		}
		out = append(out, st)
	}
	return out
}

// Translations returns the non-empty translations of key under dirs.
func (x *Index) Translations(key string, dirs []string) []Translation {
	x.mu.RLock()
	defer x.mu.RUnlock()

	var out []Translation
	for _, p := range x.filesLocked(dirs) {
		e, ok := x.files[p].Lookup(key)
		if !ok || e.Translation == "" {
			continue
		}
		out = append(out, Translation{
			Path:         p,
			RelativePath: x.relativeLocked(p),
			Translation:  e.Translation,
			Line:         e.Line,
		})
	}
	return out
}

// RelativePath renders path against the workspace root it was indexed for.
func (x *Index) RelativePath(path string) string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.relativeLocked(utils.NormalizePath(path))
}

func (x *Index) filesLocked(dirs []string) []string {
	out := make([]string, 0, len(x.files))
	for p := range x.files {
		if len(dirs) == 0 || utils.PathIsUnderAny(p, dirs) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

func (x *Index) relativeLocked(path string) string {
	best := ""
	root := ""
	for dir, r := range x.watched {
		if utils.PathIsUnder(path, dir) && len(dir) > len(best) {
			best = dir
			root = r
		}
	}
	return utils.RelativePath(root, path)
}

// load parses path and stores the result unless a newer load or a removal of
// the same path started in the meantime.
func (x *Index) load(path string) {
	logger := commonlog.GetLoggerf("poxref.catalog")

	x.mu.Lock()
	x.gens[path]++
	gen := x.gens[path]
	x.mu.Unlock()

	text, ok := "", false
	if x.buffers != nil {
		text, ok = x.buffers.Buffer(path)
	}
	if !ok {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warningf("dropping catalog %s: %v", path, err)
			x.mu.Lock()
			if x.gens[path] == gen {
				delete(x.files, path)
			}
			x.mu.Unlock()
			return
		}
		text = string(data)
	}

	f := Parse(text)
	f.Path = path

	x.mu.Lock()
	defer x.mu.Unlock()
	if x.gens[path] != gen {
		logger.Debugf("discarding stale parse of %s", path)
		return
	}
	x.files[path] = f
	logger.Debugf("parsed %s: %d entries", path, len(f.Entries))
}

func (x *Index) emit(path string) {
	x.mu.RLock()
	listeners := append([]func(string){}, x.listeners...)
	x.mu.RUnlock()
	for _, fn := range listeners {
		fn(path)
	}
}

func findCatalogs(dir string) []string {
	logger := commonlog.GetLoggerf("poxref.catalog")
	var out []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Debugf("skipping %s: %v", p, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && IsCatalog(p) {
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		logger.Warningf("walking %s: %v", dir, err)
	}
	return out
}
