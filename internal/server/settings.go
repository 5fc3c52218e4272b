package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shinyvision/poxref/internal/config"
	"github.com/shinyvision/poxref/internal/workspace"
)

const (
	parserRegex    = "regex"
	parserGrammar  = "treesitter"
	settingsPrefix = "poxref"
)

// settings are the client supplied options, from initializationOptions or
// from the "poxref" section of workspace/didChangeConfiguration.
type settings struct {
	Entries          []config.Entry
	SourceExtensions []string
	Parser           string
	DebounceMs       int
}

type rawSettings struct {
	Config           json.RawMessage `json:"config"`
	SourceExtensions []string        `json:"sourceExtensions"`
	Parser           string          `json:"parser"`
	DebounceMs       int             `json:"debounceMs"`
}

func parseSettings(v any) (settings, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return settings{}, err
	}
	var raw rawSettings
	if err := json.Unmarshal(data, &raw); err != nil {
		return settings{}, fmt.Errorf("invalid settings: %w", err)
	}

	out := settings{
		SourceExtensions: raw.SourceExtensions,
		Parser:           strings.ToLower(raw.Parser),
		DebounceMs:       raw.DebounceMs,
	}
	if len(raw.Config) > 0 && !bytes.Equal(raw.Config, []byte("null")) {
		out.Entries, err = parseEntries(raw.Config)
		if err != nil {
			return settings{}, fmt.Errorf("invalid config setting: %w", err)
		}
	}
	switch out.Parser {
	case "", parserRegex, parserGrammar:
	default:
		return settings{}, fmt.Errorf("unknown parser %q", raw.Parser)
	}
	return out, nil
}

// parseEntries accepts a bare array of entries besides the forms a
// configuration file may take.
func parseEntries(data []byte) ([]config.Entry, error) {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		var entries []config.Entry
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, err
		}
		return entries, nil
	}
	return config.ParseEntries(data)
}

// settingsSection extracts the "poxref" object from a didChangeConfiguration
// payload. Payloads without the section are taken as the section itself.
func settingsSection(v any) any {
	if m, ok := v.(map[string]any); ok {
		if section, ok := m[settingsPrefix]; ok {
			return section
		}
	}
	return v
}

func (st settings) apply(opts workspace.Options) workspace.Options {
	if len(st.SourceExtensions) > 0 {
		exts := make([]string, 0, len(st.SourceExtensions))
		for _, e := range st.SourceExtensions {
			if e == "" {
				continue
			}
			if !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			exts = append(exts, e)
		}
		if len(exts) > 0 {
			opts.SourceExtensions = exts
		}
	}
	switch st.Parser {
	case parserRegex:
		opts.Grammar = false
	case parserGrammar:
		opts.Grammar = true
	}
	if st.DebounceMs > 0 {
		opts.Debounce = time.Duration(st.DebounceMs) * time.Millisecond
	}
	return opts
}
