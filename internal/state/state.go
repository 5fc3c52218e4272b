package state

import (
	"sort"
	"sync"

	"github.com/shinyvision/poxref/internal/utils"
)

// Document is an editor buffer. While a document is open its text wins over
// whatever is on disk.
type Document struct {
	Text       string
	LanguageID string
	Version    int32
}

// State manages the open documents of the language server, keyed by cleaned
// absolute path.
type State struct {
	mu   sync.RWMutex
	docs map[string]Document
}

func NewState() *State {
	return &State{
		docs: make(map[string]Document),
	}
}

// GetDocument retrieves a document from the state.
func (s *State) GetDocument(path string) (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[utils.NormalizePath(path)]
	return doc, ok
}

// SetDocument adds or updates a document in the state.
func (s *State) SetDocument(path string, doc Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[utils.NormalizePath(path)] = doc
}

// UpdateText replaces the text of an open document, keeping its language.
func (s *State) UpdateText(path, text string, version int32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	path = utils.NormalizePath(path)
	doc, ok := s.docs[path]
	if !ok {
		return false
	}
	doc.Text = text
	doc.Version = version
	s.docs[path] = doc
	return true
}

// DeleteDocument removes a document from the state.
func (s *State) DeleteDocument(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, utils.NormalizePath(path))
}

// Buffer returns the text of an open document.
func (s *State) Buffer(path string) (string, bool) {
	doc, ok := s.GetDocument(path)
	return doc.Text, ok
}

// Paths lists the open documents in sorted order.
func (s *State) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.docs))
	for p := range s.docs {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
