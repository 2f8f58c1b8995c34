package main

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/juev/ledger-beautifier/internal/server"
)

func newLSPCmd(verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "Run the language server on stdin and stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger(cmd.ErrOrStderr(), *verbose)
			defer func() { _ = logger.Sync() }()
			return serveLSP(cmd.Context(), logger, stdio{Reader: cmd.InOrStdin(), Writer: cmd.OutOrStdout()})
		},
	}
}

func serveLSP(ctx context.Context, logger *zap.Logger, rwc io.ReadWriteCloser) error {
	srv := server.NewServer(logger, Version)
	handler := protocol.ServerHandler(dispatcher{srv: srv}, nil)

	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(rwc))
	srv.SetClient(protocol.ClientDispatcher(conn, zap.NewNop()))

	conn.Go(ctx, handler)
	select {
	case <-conn.Done():
	case <-ctx.Done():
		return nil
	}

	// The client closing its end of the pipe is a normal shutdown.
	if err := conn.Err(); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// stdio joins the process streams into the connection the server reads.
type stdio struct {
	io.Reader
	io.Writer
}

func (stdio) Close() error { return nil }

// dispatcher routes the requests the server handles and answers every other
// method with an empty result.
type dispatcher struct {
	srv *server.Server
}

var _ protocol.Server = dispatcher{}

func (d dispatcher) Initialize(ctx context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	return d.srv.Initialize(ctx, params)
}

func (d dispatcher) Initialized(ctx context.Context, params *protocol.InitializedParams) error {
	return d.srv.Initialized(ctx, params)
}

func (d dispatcher) Shutdown(ctx context.Context) error { return d.srv.Shutdown(ctx) }

func (d dispatcher) Exit(ctx context.Context) error { return d.srv.Exit(ctx) }

func (d dispatcher) DidOpen(ctx context.Context, params *protocol.DidOpenTextDocumentParams) error {
	return d.srv.DidOpen(ctx, params)
}

func (d dispatcher) DidChange(ctx context.Context, params *protocol.DidChangeTextDocumentParams) error {
	return d.srv.DidChange(ctx, params)
}

func (d dispatcher) DidClose(ctx context.Context, params *protocol.DidCloseTextDocumentParams) error {
	return d.srv.DidClose(ctx, params)
}

func (d dispatcher) DidSave(ctx context.Context, params *protocol.DidSaveTextDocumentParams) error {
	return d.srv.DidSave(ctx, params)
}

func (d dispatcher) DidChangeConfiguration(ctx context.Context, params *protocol.DidChangeConfigurationParams) error {
	return d.srv.DidChangeConfiguration(ctx, params)
}

func (d dispatcher) Formatting(ctx context.Context, params *protocol.DocumentFormattingParams) ([]protocol.TextEdit, error) {
	return d.srv.Format(ctx, params)
}

// Notifications the server ignores.

func (dispatcher) WorkDoneProgressCancel(context.Context, *protocol.WorkDoneProgressCancelParams) error {
	return nil
}
func (dispatcher) LogTrace(context.Context, *protocol.LogTraceParams) error {
	return nil
}
func (dispatcher) SetTrace(context.Context, *protocol.SetTraceParams) error {
	return nil
}
func (dispatcher) DidChangeWatchedFiles(context.Context, *protocol.DidChangeWatchedFilesParams) error {
	return nil
}
func (dispatcher) DidChangeWorkspaceFolders(context.Context, *protocol.DidChangeWorkspaceFoldersParams) error {
	return nil
}
func (dispatcher) WillSave(context.Context, *protocol.WillSaveTextDocumentParams) error {
	return nil
}
func (dispatcher) DidCreateFiles(context.Context, *protocol.CreateFilesParams) error {
	return nil
}
func (dispatcher) DidRenameFiles(context.Context, *protocol.RenameFilesParams) error {
	return nil
}
func (dispatcher) DidDeleteFiles(context.Context, *protocol.DeleteFilesParams) error {
	return nil
}
func (dispatcher) SemanticTokensRefresh(context.Context) error {
	return nil
}
func (dispatcher) CodeLensRefresh(context.Context) error {
	return nil
}

// Requests the server does not advertise.

func (dispatcher) CodeAction(context.Context, *protocol.CodeActionParams) ([]protocol.CodeAction, error) {
	return nil, nil
}
func (dispatcher) CodeLens(context.Context, *protocol.CodeLensParams) ([]protocol.CodeLens, error) {
	return nil, nil
}
func (dispatcher) CodeLensResolve(_ context.Context, lens *protocol.CodeLens) (*protocol.CodeLens, error) {
	return lens, nil
}
func (dispatcher) ColorPresentation(context.Context, *protocol.ColorPresentationParams) ([]protocol.ColorPresentation, error) {
	return nil, nil
}
func (dispatcher) Completion(context.Context, *protocol.CompletionParams) (*protocol.CompletionList, error) {
	return nil, nil
}
func (dispatcher) CompletionResolve(_ context.Context, item *protocol.CompletionItem) (*protocol.CompletionItem, error) {
	return item, nil
}
func (dispatcher) Declaration(context.Context, *protocol.DeclarationParams) ([]protocol.Location, error) {
	return nil, nil
}
func (dispatcher) Definition(context.Context, *protocol.DefinitionParams) ([]protocol.Location, error) {
	return nil, nil
}
func (dispatcher) DocumentColor(context.Context, *protocol.DocumentColorParams) ([]protocol.ColorInformation, error) {
	return nil, nil
}
func (dispatcher) DocumentHighlight(context.Context, *protocol.DocumentHighlightParams) ([]protocol.DocumentHighlight, error) {
	return nil, nil
}
func (dispatcher) DocumentLink(context.Context, *protocol.DocumentLinkParams) ([]protocol.DocumentLink, error) {
	return nil, nil
}
func (dispatcher) DocumentLinkResolve(_ context.Context, link *protocol.DocumentLink) (*protocol.DocumentLink, error) {
	return link, nil
}
func (dispatcher) DocumentSymbol(context.Context, *protocol.DocumentSymbolParams) ([]interface{}, error) {
	return nil, nil
}
func (dispatcher) ExecuteCommand(context.Context, *protocol.ExecuteCommandParams) (interface{}, error) {
	return nil, nil
}
func (dispatcher) FoldingRanges(context.Context, *protocol.FoldingRangeParams) ([]protocol.FoldingRange, error) {
	return nil, nil
}
func (dispatcher) Hover(context.Context, *protocol.HoverParams) (*protocol.Hover, error) {
	return nil, nil
}
func (dispatcher) Implementation(context.Context, *protocol.ImplementationParams) ([]protocol.Location, error) {
	return nil, nil
}
func (dispatcher) OnTypeFormatting(context.Context, *protocol.DocumentOnTypeFormattingParams) ([]protocol.TextEdit, error) {
	return nil, nil
}
func (dispatcher) PrepareRename(context.Context, *protocol.PrepareRenameParams) (*protocol.Range, error) {
	return nil, nil
}
func (dispatcher) RangeFormatting(context.Context, *protocol.DocumentRangeFormattingParams) ([]protocol.TextEdit, error) {
	return nil, nil
}
func (dispatcher) References(context.Context, *protocol.ReferenceParams) ([]protocol.Location, error) {
	return nil, nil
}
func (dispatcher) Rename(context.Context, *protocol.RenameParams) (*protocol.WorkspaceEdit, error) {
	return nil, nil
}
func (dispatcher) SignatureHelp(context.Context, *protocol.SignatureHelpParams) (*protocol.SignatureHelp, error) {
	return nil, nil
}
func (dispatcher) Symbols(context.Context, *protocol.WorkspaceSymbolParams) ([]protocol.SymbolInformation, error) {
	return nil, nil
}
func (dispatcher) TypeDefinition(context.Context, *protocol.TypeDefinitionParams) ([]protocol.Location, error) {
	return nil, nil
}
func (dispatcher) WillSaveWaitUntil(context.Context, *protocol.WillSaveTextDocumentParams) ([]protocol.TextEdit, error) {
	return nil, nil
}
func (dispatcher) ShowDocument(context.Context, *protocol.ShowDocumentParams) (*protocol.ShowDocumentResult, error) {
	return nil, nil
}
func (dispatcher) WillCreateFiles(context.Context, *protocol.CreateFilesParams) (*protocol.WorkspaceEdit, error) {
	return nil, nil
}
func (dispatcher) WillRenameFiles(context.Context, *protocol.RenameFilesParams) (*protocol.WorkspaceEdit, error) {
	return nil, nil
}
func (dispatcher) WillDeleteFiles(context.Context, *protocol.DeleteFilesParams) (*protocol.WorkspaceEdit, error) {
	return nil, nil
}
func (dispatcher) SemanticTokensFull(context.Context, *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	return nil, nil
}
func (dispatcher) SemanticTokensFullDelta(context.Context, *protocol.SemanticTokensDeltaParams) (interface{}, error) {
	return nil, nil
}
func (dispatcher) SemanticTokensRange(context.Context, *protocol.SemanticTokensRangeParams) (*protocol.SemanticTokens, error) {
	return nil, nil
}
func (dispatcher) LinkedEditingRange(context.Context, *protocol.LinkedEditingRangeParams) (*protocol.LinkedEditingRanges, error) {
	return nil, nil
}
func (dispatcher) Moniker(context.Context, *protocol.MonikerParams) ([]protocol.Moniker, error) {
	return nil, nil
}
func (dispatcher) PrepareCallHierarchy(context.Context, *protocol.CallHierarchyPrepareParams) ([]protocol.CallHierarchyItem, error) {
	return nil, nil
}
func (dispatcher) IncomingCalls(context.Context, *protocol.CallHierarchyIncomingCallsParams) ([]protocol.CallHierarchyIncomingCall, error) {
	return nil, nil
}
func (dispatcher) OutgoingCalls(context.Context, *protocol.CallHierarchyOutgoingCallsParams) ([]protocol.CallHierarchyOutgoingCall, error) {
	return nil, nil
}
func (dispatcher) SelectionRange(context.Context, *protocol.SelectionRangeParams) ([]protocol.SelectionRange, error) {
	return nil, nil
}
func (dispatcher) NonstandardRequest(context.Context, string, interface{}) (interface{}, error) {
	return nil, nil
}
func (dispatcher) Request(context.Context, string, interface{}) (interface{}, error) {
	return nil, nil
}
