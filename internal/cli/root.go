package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shinyvision/poxref/internal/workspace"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
)

// ErrFindings is returned by check --fail when warnings were reported.
var ErrFindings = errors.New("catalog problems found")

type rootOptions struct {
	verbose  int
	logFile  string
	exts     []string
	parser   string
	debounce time.Duration
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		if !errors.Is(err, ErrFindings) {
			fmt.Fprintf(os.Stderr, "poxref: %v\n", err)
		}
		os.Exit(1)
	}
}

// NewRootCmd builds the poxref command tree. Without a subcommand the
// language server is started on stdio.
func NewRootCmd() *cobra.Command {
	o := &rootOptions{}
	root := &cobra.Command{
		Use:   "poxref",
		Short: "Cross-references localization calls with PO catalogs",
		Long: `poxref links G("...") calls in source files to the msgid entries of
gettext PO catalogs. It runs as a language server on stdio, or as a
one-shot checker over a set of workspace roots.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var logPath *string
			if o.logFile != "" {
				logPath = &o.logFile
			}
			commonlog.Configure(1+o.verbose, logPath)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(o)
		},
	}

	root.PersistentFlags().CountVarP(&o.verbose, "verbose", "v", "increase log verbosity (repeatable)")
	root.PersistentFlags().StringVar(&o.logFile, "log-file", "", "write logs to this file instead of stderr")
	root.PersistentFlags().StringSliceVar(&o.exts, "ext", nil, "source file extensions (default .cs)")
	root.PersistentFlags().StringVar(&o.parser, "parser", "regex", "call extractor: regex or treesitter")
	root.PersistentFlags().DurationVar(&o.debounce, "debounce", workspace.DefaultDebounce, "delay before catalog analysis runs")

	root.AddCommand(newServeCmd(o))
	root.AddCommand(newCheckCmd(o))
	root.AddCommand(newVersionCmd())
	return root
}

// engineOptions turns the persistent flags into engine options.
func (o *rootOptions) engineOptions() (workspace.Options, error) {
	opts := workspace.DefaultOptions()
	var exts []string
	for _, e := range o.exts {
		if e == "" {
			continue
		}
		if e[0] != '.' {
			e = "." + e
		}
		exts = append(exts, e)
	}
	if len(exts) > 0 {
		opts.SourceExtensions = exts
	}
	switch o.parser {
	case "", "regex":
	case "treesitter":
		opts.Grammar = true
	default:
		return opts, fmt.Errorf("unknown parser %q", o.parser)
	}
	if o.debounce > 0 {
		opts.Debounce = o.debounce
	}
	return opts, nil
}
