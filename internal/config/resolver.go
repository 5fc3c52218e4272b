package config

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"sync"

	"github.com/shinyvision/poxref/internal/utils"
	"github.com/tliron/commonlog"
)

// skipDirs are never searched for configuration files during discovery.
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"bin":          true,
	"obj":          true,
	"vendor":       true,
}

// Resolver finds the scopes that apply to documents of a set of workspaces.
type Resolver struct {
	mu       sync.RWMutex
	roots    []string
	settings []Entry
}

func NewResolver() *Resolver {
	return &Resolver{}
}

// SetWorkspaceRoots replaces the workspace folders.
func (r *Resolver) SetWorkspaceRoots(roots []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roots = r.roots[:0]
	for _, root := range roots {
		if root = utils.NormalizePath(root); root != "" {
			r.roots = utils.AppendUnique(r.roots, root)
		}
	}
}

// WorkspaceRoots returns the configured workspace folders.
func (r *Resolver) WorkspaceRoots() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.roots...)
}

// SetSettings replaces the workspace-level scope entries. Their directories
// resolve against each workspace root.
func (r *Resolver) SetSettings(entries []Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = append([]Entry(nil), entries...)
}

// WorkspaceFor returns the innermost workspace root containing path.
func (r *Resolver) WorkspaceFor(path string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	best := ""
	for _, root := range r.roots {
		if utils.PathIsUnder(path, root) && len(root) > len(best) {
			best = root
		}
	}
	return best, best != ""
}

// ScopesFor collects every scope visible from path: configuration files in
// each directory from path's directory up to the workspace root, closest
// first, followed by the workspace setting. Unreadable or malformed files are
// ignored. A path outside every workspace has no scopes.
func (r *Resolver) ScopesFor(path string) []Scope {
	logger := commonlog.GetLoggerf("poxref.config")
	path = utils.NormalizePath(path)
	root, ok := r.WorkspaceFor(path)
	if !ok {
		return nil
	}

	var scopes []Scope
	dir := filepath.Dir(path)
	for {
		for _, name := range FileNames {
			cfgPath := filepath.Join(dir, name)
			found, err := LoadFile(cfgPath, root)
			if err != nil {
				if !errors.Is(err, fs.ErrNotExist) {
					logger.Debugf("ignoring %s: %v", cfgPath, err)
				}
				continue
			}
			scopes = append(scopes, found...)
		}
		if dir == root {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return append(scopes, r.settingsScopes(root)...)
}

// MatchingScopes returns the scopes from ScopesFor whose source directories
// contain path.
func (r *Resolver) MatchingScopes(path string) []Scope {
	return Matching(r.ScopesFor(path), path)
}

// Discover finds every configuration file below each workspace root and
// returns the resulting scopes grouped by workspace, together with the
// workspace setting.
func (r *Resolver) Discover() map[string][]Scope {
	logger := commonlog.GetLoggerf("poxref.config")
	out := make(map[string][]Scope)

	for _, root := range r.WorkspaceRoots() {
		var files []string
		err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				if d != nil && d.IsDir() && p != root {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if p != root && skipDirs[d.Name()] {
					return filepath.SkipDir
				}
				return nil
			}
			if IsConfigFile(p) {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			logger.Warningf("searching %s for configuration: %v", root, err)
		}
		sort.Strings(files)

		var scopes []Scope
		for _, f := range files {
			if owner, ok := r.WorkspaceFor(f); !ok || owner != root {
				continue
			}
			found, err := LoadFile(f, root)
			if err != nil {
				logger.Warningf("ignoring %s: %v", f, err)
				continue
			}
			scopes = append(scopes, found...)
		}
		scopes = append(scopes, r.settingsScopes(root)...)
		if len(scopes) > 0 {
			out[root] = scopes
		}
		logger.Infof("discovered %d configuration files and %d scopes under %s", len(files), len(scopes), root)
	}
	return out
}

func (r *Resolver) settingsScopes(root string) []Scope {
	r.mu.RLock()
	entries := r.settings
	r.mu.RUnlock()
	if len(entries) == 0 {
		return nil
	}
	return Resolve(entries, root, root, OriginSettings)
}
