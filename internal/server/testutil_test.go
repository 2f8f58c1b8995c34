package server

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

const integrationTestTimeout = 500 * time.Millisecond

type integrationMockClient struct {
	mu            sync.Mutex
	diagnostics   []protocol.PublishDiagnosticsParams
	diagnosticsCh chan struct{}
	configuration []interface{}
	configCalls   chan struct{}
}

func newIntegrationMockClient() *integrationMockClient {
	return &integrationMockClient{
		diagnosticsCh: make(chan struct{}, 100),
		configCalls:   make(chan struct{}, 100),
	}
}

func (m *integrationMockClient) Progress(_ context.Context, _ *protocol.ProgressParams) error {
	return nil
}

func (m *integrationMockClient) WorkDoneProgressCreate(_ context.Context, _ *protocol.WorkDoneProgressCreateParams) error {
	return nil
}

func (m *integrationMockClient) LogMessage(_ context.Context, _ *protocol.LogMessageParams) error {
	return nil
}

func (m *integrationMockClient) PublishDiagnostics(_ context.Context, params *protocol.PublishDiagnosticsParams) error {
	m.mu.Lock()
	m.diagnostics = append(m.diagnostics, *params)
	m.mu.Unlock()

	select {
	case m.diagnosticsCh <- struct{}{}:
	default:
	}
	return nil
}

func (m *integrationMockClient) ShowMessage(_ context.Context, _ *protocol.ShowMessageParams) error {
	return nil
}

func (m *integrationMockClient) ShowMessageRequest(_ context.Context, _ *protocol.ShowMessageRequestParams) (*protocol.MessageActionItem, error) {
	return nil, nil
}

func (m *integrationMockClient) Telemetry(_ context.Context, _ interface{}) error {
	return nil
}

func (m *integrationMockClient) RegisterCapability(_ context.Context, _ *protocol.RegistrationParams) error {
	return nil
}

func (m *integrationMockClient) UnregisterCapability(_ context.Context, _ *protocol.UnregistrationParams) error {
	return nil
}

func (m *integrationMockClient) ApplyEdit(_ context.Context, _ *protocol.ApplyWorkspaceEditParams) (bool, error) {
	return false, nil
}

func (m *integrationMockClient) Configuration(_ context.Context, _ *protocol.ConfigurationParams) ([]interface{}, error) {
	m.mu.Lock()
	result := m.configuration
	m.mu.Unlock()

	select {
	case m.configCalls <- struct{}{}:
	default:
	}
	return result, nil
}

func (m *integrationMockClient) WorkspaceFolders(_ context.Context) ([]protocol.WorkspaceFolder, error) {
	return nil, nil
}

func (m *integrationMockClient) waitDiagnostics() bool {
	select {
	case <-m.diagnosticsCh:
		return true
	case <-time.After(integrationTestTimeout):
		return false
	}
}

func (m *integrationMockClient) waitConfiguration() bool {
	select {
	case <-m.configCalls:
		return true
	case <-time.After(integrationTestTimeout):
		return false
	}
}

func (m *integrationMockClient) getLastDiagnostics() *protocol.PublishDiagnosticsParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.diagnostics) == 0 {
		return nil
	}
	result := m.diagnostics[len(m.diagnostics)-1]
	return &result
}

type testServer struct {
	*Server
	client *integrationMockClient
}

func newTestServer() *testServer {
	srv := NewServer(nil, "test")
	client := newIntegrationMockClient()
	srv.SetClient(client)
	return &testServer{
		Server: srv,
		client: client,
	}
}

// journalURI writes content to a fresh directory and returns its URI, so
// project config discovery never escapes the test.
func journalURI(t *testing.T, name, content string) protocol.DocumentURI {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return uri.File(path)
}

func (ts *testServer) openDocument(uri protocol.DocumentURI, content string) error {
	params := &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:  uri,
			Text: content,
		},
	}
	return ts.DidOpen(context.Background(), params)
}

func (ts *testServer) openAndWait(uri protocol.DocumentURI, content string) ([]protocol.Diagnostic, error) {
	if err := ts.openDocument(uri, content); err != nil {
		return nil, err
	}
	return ts.lastDiagnostics(), nil
}

func (ts *testServer) changeDocument(uri protocol.DocumentURI, changes []protocol.TextDocumentContentChangeEvent) error {
	params := &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
		},
		ContentChanges: changes,
	}
	return ts.DidChange(context.Background(), params)
}

func (ts *testServer) changeAndWait(uri protocol.DocumentURI, changes []protocol.TextDocumentContentChangeEvent) ([]protocol.Diagnostic, error) {
	if err := ts.changeDocument(uri, changes); err != nil {
		return nil, err
	}
	return ts.lastDiagnostics(), nil
}

func (ts *testServer) replaceAndWait(uri protocol.DocumentURI, newContent string) ([]protocol.Diagnostic, error) {
	return ts.changeAndWait(uri, []protocol.TextDocumentContentChangeEvent{
		{Text: newContent},
	})
}

func (ts *testServer) lastDiagnostics() []protocol.Diagnostic {
	if !ts.client.waitDiagnostics() {
		return nil
	}
	last := ts.client.getLastDiagnostics()
	if last == nil {
		return nil
	}
	return last.Diagnostics
}

func (ts *testServer) format(uri protocol.DocumentURI) ([]protocol.TextEdit, error) {
	params := &protocol.DocumentFormattingParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	}
	return ts.Format(context.Background(), params)
}
