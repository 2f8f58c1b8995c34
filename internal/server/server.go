package server

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/zap"

	"github.com/juev/ledger-beautifier/internal/parser"
)

const source = "ledger-beautifier"

type Server struct {
	client                protocol.Client
	logger                *zap.Logger
	documents             sync.Map
	rootPath              string
	settings              serverSettings
	settingsMu            sync.RWMutex
	supportsConfiguration bool
	// memo holds formatting results keyed by document content and layout.
	memo *cache.Cache
	// configs holds the project configuration per document directory.
	configs *cache.Cache
	version string
}

func NewServer(logger *zap.Logger, version string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := &Server{
		logger:  logger,
		memo:    cache.New(10*time.Minute, 20*time.Minute),
		configs: cache.New(time.Minute, 5*time.Minute),
		version: version,
	}
	srv.setSettings(defaultServerSettings())
	return srv
}

func (s *Server) SetClient(client protocol.Client) {
	s.client = client
}

func (s *Server) StoreDocument(uri protocol.DocumentURI, content string) {
	s.documents.Store(uri, content)
}

func (s *Server) Initialize(_ context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	if params != nil {
		if params.Capabilities.Workspace != nil {
			s.supportsConfiguration = params.Capabilities.Workspace.Configuration
		}
		s.setSettings(parseSettingsFromRaw(s.getSettings(), params.InitializationOptions))

		if len(params.WorkspaceFolders) > 0 {
			s.rootPath = uriToPath(protocol.DocumentURI(params.WorkspaceFolders[0].URI))
		} else if params.RootURI != "" { //nolint:staticcheck // keep for backward compatibility
			s.rootPath = uriToPath(params.RootURI) //nolint:staticcheck // keep for backward compatibility
		}
	}

	s.logger.Info("initialize", zap.String("root", s.rootPath))

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
				Save: &protocol.SaveOptions{
					IncludeText: false,
				},
			},
			DocumentFormattingProvider: true,
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    source,
			Version: s.version,
		},
	}, nil
}

func (s *Server) Initialized(_ context.Context, _ *protocol.InitializedParams) error {
	go s.refreshConfiguration(context.Background())
	return nil
}

func (s *Server) Shutdown(_ context.Context) error {
	s.memo.Flush()
	s.configs.Flush()
	return nil
}

func (s *Server) Exit(_ context.Context) error {
	return nil
}

func (s *Server) DidOpen(ctx context.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.documents.Store(params.TextDocument.URI, params.TextDocument.Text)
	go s.publishDiagnostics(ctx, params.TextDocument.URI, params.TextDocument.Text)
	return nil
}

func (s *Server) DidChange(ctx context.Context, params *protocol.DidChangeTextDocumentParams) error {
	if _, ok := s.GetDocument(params.TextDocument.URI); !ok {
		return nil
	}
	if len(params.ContentChanges) == 0 {
		return nil
	}
	// Full sync: every change carries the whole document.
	content := params.ContentChanges[len(params.ContentChanges)-1].Text
	s.documents.Store(params.TextDocument.URI, content)
	go s.publishDiagnostics(ctx, params.TextDocument.URI, content)
	return nil
}

func (s *Server) DidClose(ctx context.Context, params *protocol.DidCloseTextDocumentParams) error {
	s.documents.Delete(params.TextDocument.URI)
	if s.client != nil {
		_ = s.client.PublishDiagnostics(ctx, &protocol.PublishDiagnosticsParams{
			URI:         params.TextDocument.URI,
			Diagnostics: []protocol.Diagnostic{},
		})
	}
	return nil
}

// DidSave drops cached project configuration so an edited config file is
// picked up by the next formatting request.
func (s *Server) DidSave(_ context.Context, params *protocol.DidSaveTextDocumentParams) error {
	s.configs.Flush()
	if path := uriToPath(params.TextDocument.URI); path != "" {
		if _, ok := s.GetDocument(params.TextDocument.URI); !ok {
			if data, err := os.ReadFile(path); err == nil {
				s.documents.Store(params.TextDocument.URI, string(data))
			}
		}
	}
	return nil
}

// publishDiagnostics reports the regions the formatter leaves untouched.
func (s *Server) publishDiagnostics(ctx context.Context, docURI protocol.DocumentURI, content string) {
	if s.client == nil {
		return
	}

	diagnostics := []protocol.Diagnostic{}
	tree, err := parser.Parse([]byte(content))
	if err != nil {
		var perr *parser.ParseError
		if errors.As(err, &perr) {
			diagnostics = append(diagnostics, toDiagnostic(content, *perr, protocol.DiagnosticSeverityError))
		}
	} else {
		for _, perr := range tree.Errors {
			diagnostics = append(diagnostics, toDiagnostic(content, perr, protocol.DiagnosticSeverityWarning))
		}
	}

	_ = s.client.PublishDiagnostics(ctx, &protocol.PublishDiagnosticsParams{
		URI:         docURI,
		Diagnostics: diagnostics,
	})
}

func toDiagnostic(content string, err parser.ParseError, severity protocol.DiagnosticSeverity) protocol.Diagnostic {
	offset := min(max(err.Offset, 0), len(content))
	lineStart := strings.LastIndexByte(content[:offset], '\n') + 1
	pos := protocol.Position{
		Line:      uint32(max(0, err.Line-1)),
		Character: uint32(utf16Len(content[lineStart:offset])),
	}

	lineEnd := len(content)
	if i := strings.IndexByte(content[offset:], '\n'); i >= 0 {
		lineEnd = offset + i
	}
	end := protocol.Position{
		Line:      pos.Line,
		Character: uint32(utf16Len(strings.TrimRight(content[lineStart:lineEnd], "\r"))),
	}
	if end.Character < pos.Character {
		end.Character = pos.Character
	}

	return protocol.Diagnostic{
		Range:    protocol.Range{Start: pos, End: end},
		Severity: severity,
		Source:   source,
		Message:  "left unformatted: expected " + err.Expected,
	}
}

func (s *Server) GetDocument(uri protocol.DocumentURI) (string, bool) {
	if doc, ok := s.documents.Load(uri); ok {
		if content, ok := doc.(string); ok {
			return content, true
		}
	}
	return "", false
}

func uriToPath(docURI protocol.DocumentURI) string {
	str := string(docURI)
	if !strings.HasPrefix(str, "file://") {
		return ""
	}
	u := uri.URI(docURI) //nolint:unconvert // protocol.DocumentURI and uri.URI are different types
	path := u.Filename()
	if path == "" {
		path = str[7:]
	}
	return filepath.Clean(path)
}
