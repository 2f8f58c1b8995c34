package formatter

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/juev/ledger-beautifier/internal/layout"
	"github.com/juev/ledger-beautifier/internal/model"
	"github.com/juev/ledger-beautifier/internal/parser"
	"github.com/juev/ledger-beautifier/internal/render"
)

// ErrContentChanged is reported when the formatted output does not carry
// the same journal content as the input.
var ErrContentChanged = errors.New("formatting changed journal content")

type Stage string

const (
	StageParse  Stage = "parse"
	StageModel  Stage = "model"
	StageVerify Stage = "verify"
)

// FormatError wraps the failure of one pipeline stage. Err is a
// *parser.ParseError, a *model.ModelError or wraps ErrContentChanged.
type FormatError struct {
	Stage Stage
	Err   error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

type Options struct {
	Layout layout.Config
	// SkipVerify disables the re-parse check of the output.
	SkipVerify bool
}

func DefaultOptions() Options {
	return Options{Layout: layout.DefaultConfig()}
}

// Report is the result of a successful run.
type Report struct {
	Output []byte
	// Diagnostics lists the regions that were passed through unformatted.
	Diagnostics []parser.ParseError
	Changed     bool
}

// Format returns src in canonical layout.
func Format(src []byte, opts Options) ([]byte, error) {
	report, err := FormatReport(src, opts)
	if err != nil {
		return nil, err
	}
	return report.Output, nil
}

func FormatReport(src []byte, opts Options) (*Report, error) {
	tree, err := parser.Parse(src)
	if err != nil {
		return nil, &FormatError{Stage: StageParse, Err: err}
	}

	blocks, err := model.Build(tree)
	if err != nil {
		return nil, &FormatError{Stage: StageModel, Err: err}
	}

	lines := layout.New(opts.Layout).Lines(blocks)
	out := render.Render(lines, render.DetectLineEnding(src))

	if !opts.SkipVerify {
		if err := verify(blocks, out); err != nil {
			return nil, &FormatError{Stage: StageVerify, Err: err}
		}
	}

	return &Report{
		Output:      out,
		Diagnostics: tree.Errors,
		Changed:     !bytes.Equal(src, out),
	}, nil
}
