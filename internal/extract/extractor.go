package extract

import (
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"
)

// Extractor finds localization calls in source text.
type Extractor interface {
	FindAllCalls(text string, funcs []string) ([]Call, error)
}

// Backend names the extractor that produced a result.
type Backend string

const (
	BackendRegex   Backend = "regex"
	BackendGrammar Backend = "grammar"
)

// Regex is the scanner based extractor. It never fails.
type Regex struct{}

func (Regex) FindAllCalls(text string, funcs []string) ([]Call, error) {
	return FindAllCalls(text, funcs), nil
}

// Extract runs the preferred extractor and falls back to the regex scanner
// when there is none or when it fails.
func Extract(preferred Extractor, text string, funcs []string) ([]Call, Backend) {
	if preferred != nil {
		calls, err := preferred.FindAllCalls(text, funcs)
		if err == nil {
			return calls, BackendGrammar
		}
		commonlog.GetLoggerf("poxref.extract").Warningf("grammar extraction failed, using regex scanner: %v", err)
	}
	return FindAllCalls(text, funcs), BackendRegex
}

// LanguageForPath maps a source file to the grammar language used for it.
func LanguageForPath(path string) (Language, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cs":
		return CSharp, true
	case ".php":
		return PHP, true
	}
	return "", false
}
