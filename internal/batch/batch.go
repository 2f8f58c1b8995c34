// Package batch formats many journal files concurrently and reports the
// results in input order.
package batch

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/renameio"
	"github.com/hako/durafmt"
	"github.com/pmezard/go-difflib/difflib"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/juev/ledger-beautifier/internal/formatter"
	"github.com/juev/ledger-beautifier/internal/parser"
	"github.com/juev/ledger-beautifier/internal/workspace"
)

type Mode int

const (
	// ModeStdout prints formatted journals to the output writer.
	ModeStdout Mode = iota
	// ModeWrite rewrites changed files in place.
	ModeWrite
	// ModeCheck lists the files that would change.
	ModeCheck
	// ModeDiff prints a unified diff per changed file.
	ModeDiff
)

func (m Mode) String() string {
	switch m {
	case ModeWrite:
		return "write"
	case ModeCheck:
		return "check"
	case ModeDiff:
		return "diff"
	default:
		return "stdout"
	}
}

type Options struct {
	Mode   Mode
	Format formatter.Options
	// Jobs bounds the number of files formatted at once; zero means one per
	// CPU.
	Jobs int
	// Color enables coloured diff output.
	Color bool
}

type Result struct {
	Path        string
	Changed     bool
	Output      []byte
	Diagnostics []parser.ParseError
	Err         error
}

type Summary struct {
	Results []Result
	Changed int
	Failed  int
	Elapsed time.Duration
}

// ExitCode is 1 when a file failed or, in check mode, when a file would
// change.
func (s Summary) ExitCode(mode Mode) int {
	if s.Failed > 0 {
		return 1
	}
	if mode == ModeCheck && s.Changed > 0 {
		return 1
	}
	return 0
}

type Runner struct {
	logger *zap.Logger
	opts   Options
	stdin  io.Reader
	out    io.Writer
}

func NewRunner(logger *zap.Logger, opts Options, stdin io.Reader, out io.Writer) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Jobs <= 0 {
		opts.Jobs = runtime.NumCPU()
	}
	return &Runner{logger: logger, opts: opts, stdin: stdin, out: out}
}

// Run formats files and emits their output in the order given. A failing
// file does not stop the others. The returned error is only set when the
// output could not be written or ctx was cancelled.
func (r *Runner) Run(ctx context.Context, files []string) (Summary, error) {
	start := time.Now()
	results := make([]Result, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Jobs)
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = Result{Path: path, Err: err}
				return nil
			}
			results[i] = r.formatFile(path)
			return nil
		})
	}
	_ = g.Wait()

	summary := Summary{Results: results}
	for i := range results {
		res := &results[i]
		r.logDiagnostics(res)
		if res.Err != nil {
			summary.Failed++
			r.logger.Error("format failed", zap.String("file", res.Path), zap.Error(res.Err))
			continue
		}
		if res.Changed {
			summary.Changed++
		}
		if err := r.emit(res); err != nil {
			return summary, err
		}
	}
	summary.Elapsed = time.Since(start)

	r.logger.Info("done",
		zap.String("mode", r.opts.Mode.String()),
		zap.Int("files", len(files)),
		zap.Int("changed", summary.Changed),
		zap.Int("failed", summary.Failed),
		zap.String("elapsed", durafmt.Parse(summary.Elapsed).LimitFirstN(2).String()),
	)
	return summary, ctx.Err()
}

func (r *Runner) formatFile(path string) Result {
	res := Result{Path: path}

	src, err := r.read(path)
	if err != nil {
		res.Err = err
		return res
	}

	report, err := formatter.FormatReport(src, r.opts.Format)
	if err != nil {
		res.Err = err
		return res
	}
	res.Changed = report.Changed
	res.Output = report.Output
	res.Diagnostics = report.Diagnostics

	if r.opts.Mode == ModeDiff && res.Changed {
		diff, err := unifiedDiff(path, src, report.Output)
		if err != nil {
			res.Err = err
			return res
		}
		res.Output = []byte(diff)
	}

	if r.opts.Mode == ModeWrite && res.Changed && path != workspace.Stdin {
		if err := writeAtomic(path, report.Output); err != nil {
			res.Err = err
		}
	}
	return res
}

func (r *Runner) read(path string) ([]byte, error) {
	if path == workspace.Stdin {
		if r.stdin == nil {
			return nil, fmt.Errorf("read stdin: no input")
		}
		data, err := io.ReadAll(r.stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func writeAtomic(path string, data []byte) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := renameio.WriteFile(path, data, info.Mode().Perm()); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (r *Runner) emit(res *Result) error {
	var err error
	switch r.opts.Mode {
	case ModeStdout:
		_, err = r.out.Write(res.Output)
	case ModeWrite:
		if res.Path == workspace.Stdin {
			_, err = r.out.Write(res.Output)
		}
	case ModeCheck:
		if res.Changed {
			_, err = fmt.Fprintln(r.out, res.Path)
		}
	case ModeDiff:
		if res.Changed {
			_, err = io.WriteString(r.out, r.colorize(string(res.Output)))
		}
	}
	return err
}

func (r *Runner) logDiagnostics(res *Result) {
	for _, d := range res.Diagnostics {
		r.logger.Warn("left unformatted",
			zap.String("file", res.Path),
			zap.Int("line", d.Line),
			zap.Int("column", d.Column),
			zap.String("expected", d.Expected),
		)
	}
}

func unifiedDiff(path string, before, after []byte) (string, error) {
	name := path
	if name == workspace.Stdin {
		name = "<stdin>"
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: name,
		ToFile:   name + " (formatted)",
		Context:  3,
	})
	if err != nil {
		return "", fmt.Errorf("diff %s: %w", path, err)
	}
	return diff, nil
}

func (r *Runner) colorize(diff string) string {
	if !r.opts.Color {
		return diff
	}
	added := color.New(color.FgGreen)
	removed := color.New(color.FgRed)
	hunk := color.New(color.FgCyan)
	header := color.New(color.Bold)
	for _, c := range []*color.Color{added, removed, hunk, header} {
		c.EnableColor()
	}

	lines := strings.SplitAfter(diff, "\n")
	var b strings.Builder
	for _, line := range lines {
		body := strings.TrimSuffix(line, "\n")
		var c *color.Color
		switch {
		case strings.HasPrefix(body, "+++"), strings.HasPrefix(body, "---"):
			c = header
		case strings.HasPrefix(body, "@@"):
			c = hunk
		case strings.HasPrefix(body, "+"):
			c = added
		case strings.HasPrefix(body, "-"):
			c = removed
		}
		if c == nil || body == "" {
			b.WriteString(line)
			continue
		}
		b.WriteString(c.Sprint(body))
		b.WriteString(line[len(body):])
	}
	return b.String()
}
