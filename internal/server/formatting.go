package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"

	"github.com/patrickmn/go-cache"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/juev/ledger-beautifier/internal/config"
	"github.com/juev/ledger-beautifier/internal/formatter"
)

// Format answers textDocument/formatting with a single edit replacing the
// whole document, or no edit when the document is already canonical or
// cannot be formatted.
func (s *Server) Format(_ context.Context, params *protocol.DocumentFormattingParams) ([]protocol.TextEdit, error) {
	doc, ok := s.GetDocument(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	opts, err := s.formatOptions(params.TextDocument.URI)
	if err != nil {
		s.logger.Warn("invalid formatting settings", zap.String("uri", string(params.TextDocument.URI)), zap.Error(err))
		return nil, nil
	}

	key := memoKey(doc, opts)
	if cached, found := s.memo.Get(key); found {
		if edits, ok := cached.([]protocol.TextEdit); ok {
			return edits, nil
		}
	}

	edits := s.formatDocument(params.TextDocument.URI, doc, opts)
	s.memo.Set(key, edits, cache.DefaultExpiration)
	return edits, nil
}

func (s *Server) formatDocument(docURI protocol.DocumentURI, doc string, opts formatter.Options) []protocol.TextEdit {
	out, err := formatter.Format([]byte(doc), opts)
	if err != nil {
		s.logger.Warn("format failed", zap.String("uri", string(docURI)), zap.Error(err))
		return nil
	}
	if string(out) == doc {
		return nil
	}
	return []protocol.TextEdit{{
		Range: protocol.Range{
			Start: protocol.Position{Line: 0, Character: 0},
			End:   endPosition(doc),
		},
		NewText: string(out),
	}}
}

// formatOptions combines the project configuration found next to the
// document with the client settings.
func (s *Server) formatOptions(docURI protocol.DocumentURI) (formatter.Options, error) {
	settings := s.getSettings()

	cfg := config.Default()
	if settings.ProjectConfig {
		dir := s.rootPath
		if path := uriToPath(docURI); path != "" {
			dir = filepath.Dir(path)
		}
		if dir != "" {
			cfg = s.projectConfig(dir)
		}
	}
	cfg = settings.Formatting.overlay(cfg)

	layoutCfg, err := cfg.Layout()
	if err != nil {
		return formatter.Options{}, err
	}
	return formatter.Options{Layout: layoutCfg, SkipVerify: cfg.NoVerify}, nil
}

func (s *Server) projectConfig(dir string) config.Config {
	if cached, found := s.configs.Get(dir); found {
		if cfg, ok := cached.(config.Config); ok {
			return cfg
		}
	}

	cfg, path, err := config.Load(config.LoadOptions{Dir: dir})
	if err != nil {
		s.logger.Warn("load project config", zap.String("dir", dir), zap.String("file", path), zap.Error(err))
		cfg = config.Default()
	}
	s.configs.Set(dir, cfg, cache.DefaultExpiration)
	return cfg
}

func memoKey(doc string, opts formatter.Options) string {
	sum := sha256.Sum256([]byte(doc))
	return fmt.Sprintf("%s|%d|%d|%s|%t",
		hex.EncodeToString(sum[:]),
		opts.Layout.IndentWidth, opts.Layout.MinGap, opts.Layout.AmountAlign, opts.SkipVerify)
}
