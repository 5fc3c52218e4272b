package utils

import (
	"net/url"
	"path/filepath"
	"slices"
	"strings"
)

// Converts a "file://" URI to a filesystem path.
func UriToPath(u string) string {
	if strings.HasPrefix(u, "file://") {
		uu, err := url.Parse(u)
		if err == nil {
			return uu.Path
		}
	}
	return u
}

// Converts a filesystem path to a "file://" URI.
func PathToURI(p string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(p)}
	return u.String()
}

// Appends a string to a slice only if it's not already present.
func AppendUnique(slice []string, v string) []string {
	if slices.Contains(slice, v) {
		return slice
	}
	return append(slice, v)
}

// NormalizePath returns the cleaned absolute form of p. Every path that takes
// part in a directory-prefix comparison goes through here first.
func NormalizePath(p string) string {
	if p == "" {
		return ""
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

// PathIsUnder reports whether path equals dir or lives below it.
func PathIsUnder(path, dir string) bool {
	path = NormalizePath(path)
	dir = NormalizePath(dir)
	if path == "" || dir == "" {
		return false
	}
	if path == dir {
		return true
	}
	if !strings.HasSuffix(dir, string(filepath.Separator)) {
		dir += string(filepath.Separator)
	}
	return strings.HasPrefix(path, dir)
}

// PathIsUnderAny reports whether path is under at least one of dirs.
func PathIsUnderAny(path string, dirs []string) bool {
	for _, d := range dirs {
		if PathIsUnder(path, d) {
			return true
		}
	}
	return false
}

// RelativePath renders path relative to root when possible.
func RelativePath(root, path string) string {
	if root == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}
