package diagnostics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Source tags every diagnostic produced by poxref.
const Source = "poxref"

// Codes identify the cause of a diagnostic.
const (
	CodeMissing   = "missing-entry"
	CodeUnused    = "unused-entry"
	CodeDuplicate = "duplicate-entry"
)

// Publisher receives the complete diagnostic set of a path whenever it
// changes. An empty set means the path has been cleared.
type Publisher func(path string, diags []protocol.Diagnostic)

// Store keeps the current diagnostics per path. Sets are always replaced as a
// whole.
type Store struct {
	mu      sync.Mutex
	byPath  map[string][]protocol.Diagnostic
	publish Publisher
}

func NewStore(publish Publisher) *Store {
	return &Store{
		byPath:  make(map[string][]protocol.Diagnostic),
		publish: publish,
	}
}

// SetPublisher replaces the publisher.
func (s *Store) SetPublisher(p Publisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publish = p
}

// Set replaces the diagnostics of path. An empty set removes the path.
func (s *Store) Set(path string, diags []protocol.Diagnostic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(diags) == 0 {
		if _, ok := s.byPath[path]; !ok {
			return
		}
		delete(s.byPath, path)
		s.notifyLocked(path, []protocol.Diagnostic{})
		return
	}
	s.byPath[path] = diags
	s.notifyLocked(path, diags)
}

// Get returns the diagnostics of path.
func (s *Store) Get(path string) []protocol.Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byPath[path]
}

// Clear removes every diagnostic.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for path := range s.byPath {
		delete(s.byPath, path)
		s.notifyLocked(path, []protocol.Diagnostic{})
	}
}

// Paths lists every path with diagnostics, sorted.
func (s *Store) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.byPath))
	for p := range s.byPath {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (s *Store) notifyLocked(path string, diags []protocol.Diagnostic) {
	if s.publish != nil {
		s.publish(path, diags)
	}
}

// Missing reports a call whose key lacks a translation in some catalogs.
func Missing(rng protocol.Range, key string, files []string) protocol.Diagnostic {
	return build(rng, protocol.DiagnosticSeverityWarning, CodeMissing, key,
		fmt.Sprintf("Missing catalog entry for '%s': %s", DisplayKey(key, 16), strings.Join(files, ", ")))
}

// Unused reports a translated catalog entry that no source file refers to.
func Unused(rng protocol.Range, key string) protocol.Diagnostic {
	return build(rng, protocol.DiagnosticSeverityInformation, CodeUnused, key,
		fmt.Sprintf("Unused catalog entry '%s'", DisplayKey(key, 40)))
}

// Duplicate reports a repeated definition. firstLine is 0-indexed.
func Duplicate(rng protocol.Range, key string, firstLine int) protocol.Diagnostic {
	return build(rng, protocol.DiagnosticSeverityWarning, CodeDuplicate, key,
		fmt.Sprintf("Duplicate catalog entry '%s' (first defined at line %d)", DisplayKey(key, 40), firstLine+1))
}

func build(rng protocol.Range, severity protocol.DiagnosticSeverity, code, key, message string) protocol.Diagnostic {
	source := Source
	return protocol.Diagnostic{
		Range:    rng,
		Severity: &severity,
		Code:     &protocol.IntegerOrString{Value: code},
		Source:   &source,
		Message:  message,
		Data:     map[string]any{"key": key},
	}
}

// DisplayKey collapses whitespace runs and truncates to limit runes.
func DisplayKey(key string, limit int) string {
	s := strings.Join(strings.Fields(key), " ")
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit]) + "…"
}

// CodeOf returns the code of a diagnostic produced by this package.
func CodeOf(d protocol.Diagnostic) string {
	if d.Code == nil {
		return ""
	}
	code, _ := d.Code.Value.(string)
	return code
}

// KeyOf returns the catalog key a diagnostic refers to.
func KeyOf(d protocol.Diagnostic) (string, bool) {
	m, ok := d.Data.(map[string]any)
	if !ok {
		return "", false
	}
	key, ok := m["key"].(string)
	return key, ok
}
