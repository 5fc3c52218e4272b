package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/shinyvision/poxref/internal/config"
	"github.com/shinyvision/poxref/internal/diagnostics"
	"github.com/shinyvision/poxref/internal/state"
	"github.com/shinyvision/poxref/internal/workspace"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"gopkg.in/yaml.v3"
)

// Finding is one diagnostic as printed by check.
type Finding struct {
	File     string `json:"file" yaml:"file"`
	Line     int    `json:"line" yaml:"line"`
	Column   int    `json:"column" yaml:"column"`
	Severity string `json:"severity" yaml:"severity"`
	Code     string `json:"code" yaml:"code"`
	Message  string `json:"message" yaml:"message"`
}

type checkOptions struct {
	format string
	fail   bool
}

func newCheckCmd(o *rootOptions) *cobra.Command {
	co := &checkOptions{}
	cmd := &cobra.Command{
		Use:   "check [root...]",
		Short: "Scan workspace roots once and print catalog diagnostics",
		Long: `check performs a full scan of each workspace root (default: the current
directory), analyses the catalogs for unused and duplicate entries and
prints every diagnostic.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := o.engineOptions()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				args = []string{"."}
			}
			findings, err := check(cmd.Context(), args, opts)
			if err != nil {
				return err
			}
			if err := writeFindings(cmd.OutOrStdout(), co.format, findings); err != nil {
				return err
			}
			if co.fail && hasWarnings(findings) {
				return ErrFindings
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&co.format, "format", "f", "text", "output format: text, json or yaml")
	cmd.Flags().BoolVar(&co.fail, "fail", false, "exit non-zero when warnings are reported")
	return cmd
}

// check runs a full scan and analysis over roots and collects the results.
func check(ctx context.Context, roots []string, opts workspace.Options) ([]Finding, error) {
	logger := commonlog.GetLoggerf("poxref.cli")
	if ctx == nil {
		ctx = context.Background()
	}

	abs := make([]string, 0, len(roots))
	for _, r := range roots {
		p, err := filepath.Abs(r)
		if err != nil {
			return nil, fmt.Errorf("resolve root %s: %w", r, err)
		}
		abs = append(abs, p)
	}

	resolver := config.NewResolver()
	resolver.SetWorkspaceRoots(abs)
	store := diagnostics.NewStore(nil)
	// Analysis is run explicitly below.
	opts.Debounce = time.Hour
	engine := workspace.NewEngine(resolver, state.NewState(), store, opts)
	defer engine.Close()

	engine.TriggerFullScan(ctx)
	engine.Analyze(ctx, engine.KnownScopes())

	var findings []Finding
	for _, path := range store.Paths() {
		for _, d := range store.Get(path) {
			findings = append(findings, findingOf(displayPath(abs, path), d))
		}
	}
	logger.Infof("checked %d roots, %d findings", len(abs), len(findings))
	return findings, nil
}

func findingOf(path string, d protocol.Diagnostic) Finding {
	return Finding{
		File:     path,
		Line:     int(d.Range.Start.Line) + 1,
		Column:   int(d.Range.Start.Character) + 1,
		Severity: severityName(d.Severity),
		Code:     diagnostics.CodeOf(d),
		Message:  d.Message,
	}
}

// displayPath shortens path relative to the root containing it.
func displayPath(roots []string, path string) string {
	if len(roots) != 1 {
		return path
	}
	rel, err := filepath.Rel(roots[0], path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}

func severityName(s *protocol.DiagnosticSeverity) string {
	if s == nil {
		return "error"
	}
	switch *s {
	case protocol.DiagnosticSeverityWarning:
		return "warning"
	case protocol.DiagnosticSeverityInformation:
		return "info"
	case protocol.DiagnosticSeverityHint:
		return "hint"
	default:
		return "error"
	}
}

func hasWarnings(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == "warning" || f.Severity == "error" {
			return true
		}
	}
	return false
}

func writeFindings(w io.Writer, format string, findings []Finding) error {
	if findings == nil {
		findings = []Finding{}
	}
	switch format {
	case "", "text":
		for _, f := range findings {
			if _, err := fmt.Fprintf(w, "%s:%d:%d: %s: %s [%s]\n", f.File, f.Line, f.Column, f.Severity, f.Message, f.Code); err != nil {
				return err
			}
		}
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(findings)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(findings); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
