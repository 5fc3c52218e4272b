package server

import (
	"context"
	"sync"

	"github.com/shinyvision/poxref/internal/config"
	"github.com/shinyvision/poxref/internal/diagnostics"
	"github.com/shinyvision/poxref/internal/state"
	"github.com/shinyvision/poxref/internal/utils"
	"github.com/shinyvision/poxref/internal/workspace"
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"
)

const lsName = "poxref"

var version = "0.1.0"

// Version reports the server version.
func Version() string { return version }

// Server is the language server.
type Server struct {
	opts     workspace.Options
	resolver *config.Resolver
	state    *state.State
	diags    *diagnostics.Store
	engine   *workspace.Engine
	h        protocol.Handler

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	notify glsp.NotifyFunc
}

// NewServer creates a new server. opts are the defaults that initialization
// options may override.
func NewServer(opts workspace.Options) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		opts:     opts,
		resolver: config.NewResolver(),
		state:    state.NewState(),
		ctx:      ctx,
		cancel:   cancel,
	}
	s.diags = diagnostics.NewStore(s.publish)
	s.h = protocol.Handler{
		Initialize:                      s.initialize,
		Initialized:                     s.initialized,
		Shutdown:                        s.shutdown,
		SetTrace:                        s.setTrace,
		TextDocumentDidOpen:             s.didOpen,
		TextDocumentDidChange:           s.didChange,
		TextDocumentDidClose:            s.didClose,
		TextDocumentDidSave:             s.didSave,
		TextDocumentHover:               s.onHover,
		TextDocumentCompletion:          s.onCompletion,
		TextDocumentDefinition:          s.onDefinition,
		TextDocumentReferences:          s.onReferences,
		TextDocumentPrepareRename:       s.onPrepareRename,
		TextDocumentRename:              s.onRename,
		TextDocumentCodeAction:          s.onCodeAction,
		WorkspaceDidChangeConfiguration: s.didChangeConfiguration,
		WorkspaceDidChangeWatchedFiles:  s.didChangeWatchedFiles,
		WorkspaceExecuteCommand:         s.onExecuteCommand,
	}
	return s
}

// Run runs the language server.
func (s *Server) Run() {
	server := glspserver.NewServer(&s.h, lsName, false)
	server.RunStdio()
}

func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	logger := commonlog.GetLoggerf("poxref.server")
	s.setNotify(ctx.Notify)

	caps := s.h.CreateServerCapabilities()
	openClose := true
	change := protocol.TextDocumentSyncKindIncremental
	includeText := false
	caps.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &openClose,
		Change:    &change,
		Save:      &protocol.SaveOptions{IncludeText: &includeText},
	}
	caps.CompletionProvider = &protocol.CompletionOptions{TriggerCharacters: []string{`"`}}
	caps.RenameProvider = &protocol.RenameOptions{PrepareProvider: &openClose}
	caps.CodeActionProvider = &protocol.CodeActionOptions{CodeActionKinds: []protocol.CodeActionKind{protocol.CodeActionKindQuickFix}}
	caps.ExecuteCommandProvider = &protocol.ExecuteCommandOptions{Commands: commandNames()}

	var roots []string
	for _, f := range params.WorkspaceFolders {
		roots = append(roots, utils.UriToPath(f.URI))
	}
	if len(roots) == 0 && params.RootURI != nil {
		roots = append(roots, utils.UriToPath(*params.RootURI))
	}
	if len(roots) == 0 && params.RootPath != nil {
		roots = append(roots, *params.RootPath)
	}
	if len(roots) == 0 {
		roots = append(roots, ".")
	}
	s.resolver.SetWorkspaceRoots(roots)

	opts := s.opts
	if params.InitializationOptions != nil {
		settings, err := parseSettings(params.InitializationOptions)
		if err != nil {
			logger.Warningf("ignoring initialization options: %v", err)
		} else {
			opts = settings.apply(opts)
			s.resolver.SetSettings(settings.Entries)
		}
	}
	s.engine = workspace.NewEngine(s.resolver, s.state, s.diags, opts)
	logger.Infof("initialized for %d workspace roots, source extensions %v", len(roots), opts.SourceExtensions)

	return protocol.InitializeResult{
		Capabilities: caps,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &version,
		},
	}, nil
}

func (s *Server) initialized(ctx *glsp.Context, _ *protocol.InitializedParams) error {
	s.setNotify(ctx.Notify)
	if err := s.engine.StartWatching(); err != nil {
		commonlog.GetLoggerf("poxref.server").Warningf("file watching disabled: %v", err)
	}
	go s.engine.TriggerFullScan(s.ctx)
	return nil
}

func (s *Server) shutdown(_ *glsp.Context) error {
	s.cancel()
	if s.engine != nil {
		s.engine.Close()
	}
	return nil
}

func (s *Server) setTrace(_ *glsp.Context, p *protocol.SetTraceParams) error {
	protocol.SetTraceValue(p.Value)
	return nil
}

func (s *Server) setNotify(fn glsp.NotifyFunc) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notify = fn
}

// publish sends the diagnostics of one file to the client.
func (s *Server) publish(path string, diags []protocol.Diagnostic) {
	s.mu.Lock()
	notify := s.notify
	s.mu.Unlock()
	if notify == nil {
		return
	}
	if diags == nil {
		diags = []protocol.Diagnostic{}
	}
	notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         utils.PathToURI(path),
		Diagnostics: diags,
	})
}

// ready reports whether initialize has run.
func (s *Server) ready() bool {
	return s.engine != nil
}
