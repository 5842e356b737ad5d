package ls

import (
	"encoding/json"
	"log/slog"
	"runtime"
	"sync"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"github.com/RakeshSunda/typescript-language-server/internal/tsserver"
)

var (
	ServerName = "typescript-language-server"
	Version    = "0.1.0"
)

var acceptedLanguages = []string{
	"typescript",
	"typescriptreact",
	"javascript",
	"javascriptreact",
}

type Server struct {
	handler   protocol.Handler
	client    tsserver.Client
	documents *documentStore
	buffers   *BufferSyncSupport

	mu                    sync.Mutex
	notify                func(method string, params any)
	validateJavaScript    bool
	validateTypeScript    bool
	syntaxDiagnostics     map[protocol.DocumentUri][]protocol.Diagnostic
	semanticDiagnostics   map[protocol.DocumentUri][]protocol.Diagnostic
	suggestionDiagnostics map[protocol.DocumentUri][]protocol.Diagnostic
}

func New(client tsserver.Client) *Server {
	s := &Server{
		client:                client,
		documents:             newDocumentStore(),
		validateJavaScript:    true,
		validateTypeScript:    true,
		syntaxDiagnostics:     make(map[protocol.DocumentUri][]protocol.Diagnostic),
		semanticDiagnostics:   make(map[protocol.DocumentUri][]protocol.Diagnostic),
		suggestionDiagnostics: make(map[protocol.DocumentUri][]protocol.Diagnostic),
	}
	onCaseInsensitiveFileSystem := runtime.GOOS == "windows" || runtime.GOOS == "darwin"
	s.buffers = NewBufferSyncSupport(client, acceptedLanguages, nil, onCaseInsensitiveFileSystem)
	s.buffers.OnDelete = s.clearDiagnostics
	s.buffers.OnWillChange = func(resource protocol.DocumentUri) {
		slog.Debug("buffer will change", "uri", resource)
	}

	s.handler = protocol.Handler{
		Initialize:                      s.initialize,
		Shutdown:                        s.shutdown,
		SetTrace:                        s.setTrace,
		TextDocumentDidOpen:             s.didOpen,
		TextDocumentDidChange:           s.didChange,
		TextDocumentDidClose:            s.didClose,
		TextDocumentDidSave:             s.didSave,
		WorkspaceDidChangeConfiguration: s.didChangeConfiguration,
	}

	if events, ok := client.(tsserver.EventSource); ok {
		events.OnEvent(tsserver.EventSyntaxDiag, func(body []byte) {
			s.handleDiagnosticsEvent(s.syntaxDiagnostics, body)
		})
		events.OnEvent(tsserver.EventSemanticDiag, func(body []byte) {
			s.handleDiagnosticsEvent(s.semanticDiagnostics, body)
		})
		events.OnEvent(tsserver.EventSuggestionDiag, func(body []byte) {
			s.handleDiagnosticsEvent(s.suggestionDiagnostics, body)
		})
	}
	return s
}

func (s *Server) RunStdio() error {
	slog.Debug("starting LSP server", "name", ServerName, "version", Version)
	srv := server.NewServer(&s.handler, ServerName, false)
	return srv.RunStdio()
}

// Buffers exposes the synchronization core for editor-specific integrations
// (tab and visible-editor notifications arrive outside the LSP protocol).
func (s *Server) Buffers() *BufferSyncSupport {
	return s.buffers
}

func (s *Server) initialize(context *glsp.Context, params *protocol.InitializeParams) (any, error) {
	slog.Debug("initialize request received")
	s.captureNotify(context)

	capabilities := s.handler.CreateServerCapabilities()
	syncKind := protocol.TextDocumentSyncKindIncremental
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &protocol.True,
		Change:    &syncKind,
	}

	rootPath := ""
	if params.RootURI != nil {
		rootPath = uriToPath(*params.RootURI)
	} else if params.RootPath != nil {
		rootPath = *params.RootPath
	}
	if configurer, ok := s.client.(interface{ SetWorkspaceRoot(string) }); ok {
		configurer.SetWorkspaceRoot(rootPath)
	}

	opts := readInitializationOptions(params.InitializationOptions)
	if opts.EnableProjectDiagnostics != nil {
		if configurer, ok := s.client.(interface{ SetConfiguration(tsserver.Config) }); ok {
			configurer.SetConfiguration(tsserver.Config{
				EnableProjectDiagnostics: *opts.EnableProjectDiagnostics,
			})
		}
	}
	slog.Debug("initialize configuration", "rootPath", rootPath)

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    ServerName,
			Version: &Version,
		},
	}, nil
}

func (s *Server) shutdown(_ *glsp.Context) error {
	slog.Debug("shutdown request received")
	protocol.SetTraceValue(protocol.TraceValueOff)
	s.buffers.Close()
	return nil
}

func (s *Server) setTrace(_ *glsp.Context, params *protocol.SetTraceParams) error {
	slog.Debug("setTrace request received", "value", params.Value)
	protocol.SetTraceValue(params.Value)
	return nil
}

func (s *Server) didOpen(context *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	slog.Debug("didOpen", "uri", params.TextDocument.URI, "version", params.TextDocument.Version)
	s.captureNotify(context)

	doc := s.documents.Open(
		params.TextDocument.URI,
		params.TextDocument.LanguageID,
		params.TextDocument.Text,
		params.TextDocument.Version,
	)
	s.buffers.HandleDidOpenTextDocument(doc)
	return nil
}

func (s *Server) didChange(context *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	s.captureNotify(context)
	if len(params.ContentChanges) == 0 {
		return nil
	}

	uri := params.TextDocument.URI
	doc, ok := s.documents.Get(uri)
	if !ok {
		return nil
	}

	newText, edits, known := applyContentChanges(doc.Text(), params.ContentChanges)
	if !known {
		slog.Warn("didChange carried an unknown change type", "uri", uri)
	}
	doc.update(newText, params.TextDocument.Version)
	logEditSummary(uri, params.TextDocument.Version, edits)

	s.buffers.HandleDidChangeTextDocument(uri, edits)
	return nil
}

func (s *Server) didClose(context *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	slog.Debug("didClose", "uri", params.TextDocument.URI)
	s.captureNotify(context)

	s.documents.Close(params.TextDocument.URI)
	s.buffers.HandleDidCloseTextDocument(params.TextDocument.URI)
	return nil
}

func (s *Server) didSave(context *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	slog.Debug("didSave", "uri", params.TextDocument.URI)
	s.captureNotify(context)
	return nil
}

type validateSettings struct {
	JavaScript struct {
		Validate struct {
			Enable *bool `json:"enable"`
		} `json:"validate"`
	} `json:"javascript"`
	TypeScript struct {
		Validate struct {
			Enable *bool `json:"enable"`
		} `json:"validate"`
	} `json:"typescript"`
}

func (s *Server) didChangeConfiguration(context *glsp.Context, params *protocol.DidChangeConfigurationParams) error {
	s.captureNotify(context)

	data, err := json.Marshal(params.Settings)
	if err != nil {
		return nil
	}
	var settings validateSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil
	}

	s.mu.Lock()
	if settings.JavaScript.Validate.Enable != nil {
		s.validateJavaScript = *settings.JavaScript.Validate.Enable
	}
	if settings.TypeScript.Validate.Enable != nil {
		s.validateTypeScript = *settings.TypeScript.Validate.Enable
	}
	validateJS, validateTS := s.validateJavaScript, s.validateTypeScript
	s.mu.Unlock()

	slog.Debug("configuration changed", "validateJavaScript", validateJS, "validateTypeScript", validateTS)
	s.buffers.SetValidate(validateJS, validateTS)
	return nil
}

// DidChangeVisibleEditors reports which tracked documents are now visible.
// Editor-specific; arrives outside the LSP protocol.
func (s *Server) DidChangeVisibleEditors(resources []protocol.DocumentUri) {
	s.buffers.HandleDidChangeVisibleEditors(resources)
}

// DidChangeTabs applies one batch of editor tab deltas. Editor-specific;
// arrives outside the LSP protocol.
func (s *Server) DidChangeTabs(opened, closed []*Tab) {
	s.buffers.HandleTabChanges(opened, closed)
}

func (s *Server) captureNotify(context *glsp.Context) {
	if context == nil || context.Notify == nil {
		return
	}
	s.mu.Lock()
	s.notify = context.Notify
	s.mu.Unlock()
}

func (s *Server) handleDiagnosticsEvent(store map[protocol.DocumentUri][]protocol.Diagnostic, body []byte) {
	var event tsserver.DiagnosticEventBody
	if err := json.Unmarshal(body, &event); err != nil {
		slog.Warn("undecodable diagnostics event", "error", err)
		return
	}
	uri := pathToURI(event.File)

	s.mu.Lock()
	if len(event.Diagnostics) == 0 {
		delete(store, uri)
	} else {
		store[uri] = diagnosticsFromTsserver(event.Diagnostics)
	}
	s.mu.Unlock()

	s.publishDiagnostics(uri)
}

func (s *Server) clearDiagnostics(uri protocol.DocumentUri) {
	s.mu.Lock()
	delete(s.syntaxDiagnostics, uri)
	delete(s.semanticDiagnostics, uri)
	delete(s.suggestionDiagnostics, uri)
	s.mu.Unlock()

	s.publishDiagnostics(uri)
}

func (s *Server) publishDiagnostics(uri protocol.DocumentUri) {
	s.mu.Lock()
	notify := s.notify
	combined := make([]protocol.Diagnostic, 0,
		len(s.syntaxDiagnostics[uri])+len(s.semanticDiagnostics[uri])+len(s.suggestionDiagnostics[uri]))
	combined = append(combined, s.syntaxDiagnostics[uri]...)
	combined = append(combined, s.semanticDiagnostics[uri]...)
	combined = append(combined, s.suggestionDiagnostics[uri]...)
	s.mu.Unlock()

	if notify == nil {
		return
	}
	notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: combined,
	})
}
