package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/juev/ledger-beautifier/internal/batch"
	"github.com/juev/ledger-beautifier/internal/config"
	"github.com/juev/ledger-beautifier/internal/formatter"
	"github.com/juev/ledger-beautifier/internal/include"
	"github.com/juev/ledger-beautifier/internal/workspace"
)

type rootOptions struct {
	write   bool
	check   bool
	diff    bool
	config  string
	verbose bool

	indent         int
	minGap         int
	alignAmounts   string
	jobs           int
	followIncludes bool
	noVerify       bool
}

func newRootCmd() *cobra.Command {
	var opts rootOptions

	cmd := &cobra.Command{
		Use:   "ledger-beautifier [flags] [path...]",
		Short: "Reformat hledger and ledger journals",
		Long: `Reformat hledger and ledger journals without changing what they mean.

Postings are indented, amounts are aligned in one column and runs of blank
lines are collapsed. Directories are searched for journal files. With no
path the journal is read from standard input, or the main journal of the
current directory is used when standard input is a terminal.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFormat(cmd, &opts, args)
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&opts.write, "write", "w", false, "rewrite files in place")
	flags.BoolVarP(&opts.check, "check", "c", false, "list files that would change and exit 1 if any")
	flags.BoolVarP(&opts.diff, "diff", "d", false, "print a unified diff instead of the formatted journal")
	flags.StringVar(&opts.config, "config", "", "config file (default: .ledger-beautifier.{yaml,yml,toml} found upward)")
	flags.IntVar(&opts.indent, "indent", 0, "posting indent width")
	flags.IntVar(&opts.minGap, "min-gap", 0, "minimum spaces between account and amount")
	flags.StringVar(&opts.alignAmounts, "align-amounts", "", "amount alignment: left or right")
	flags.IntVarP(&opts.jobs, "jobs", "j", 0, "files formatted in parallel (default: number of CPUs)")
	flags.BoolVar(&opts.followIncludes, "follow-includes", false, "also format files reached through include directives")
	flags.BoolVar(&opts.noVerify, "no-verify", false, "skip checking that formatting preserved the journal")
	cmd.MarkFlagsMutuallyExclusive("write", "check", "diff")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log progress to stderr")

	cmd.AddCommand(newLSPCmd(&opts.verbose), newManCmd())
	return cmd
}

func runFormat(cmd *cobra.Command, opts *rootOptions, args []string) error {
	logger := newLogger(cmd.ErrOrStderr(), opts.verbose)
	defer func() { _ = logger.Sync() }()

	dir, err := os.Getwd()
	if err != nil {
		return err
	}
	cfg, cfgPath, err := config.Load(config.LoadOptions{Path: opts.config, Dir: dir})
	if err != nil {
		return err
	}
	if cfgPath != "" {
		logger.Debug("config loaded", zap.String("path", cfgPath))
	}
	cfg = applyFlags(cmd, opts, cfg)

	lc, err := cfg.Layout()
	if err != nil {
		return err
	}

	files, err := selectFiles(cmd, dir, cfg, args)
	if err != nil {
		return err
	}
	if cfg.FollowIncludes {
		loader := include.NewLoader()
		loader.SetLimits(cfg.IncludeLimits())
		var loadErrs []include.LoadError
		files, loadErrs = workspace.FollowIncludes(loader, files)
		for _, le := range loadErrs {
			logger.Warn("include", zap.String("kind", le.Kind.String()), zap.String("file", le.Path), zap.String("error", le.Message))
		}
	}
	logger.Debug("files selected", zap.Int("count", len(files)))

	mode := modeOf(opts)
	runner := batch.NewRunner(logger, batch.Options{
		Mode:   mode,
		Format: formatter.Options{Layout: lc, SkipVerify: cfg.NoVerify},
		Jobs:   cfg.Jobs,
		Color:  mode == batch.ModeDiff && colorOutput(cmd.OutOrStdout()),
	}, cmd.InOrStdin(), cmd.OutOrStdout())

	summary, err := runner.Run(cmd.Context(), files)
	if err != nil {
		return err
	}
	if code := summary.ExitCode(mode); code != 0 {
		return exitError{code: code}
	}
	return nil
}

// applyFlags overrides cfg with the flags given on the command line.
func applyFlags(cmd *cobra.Command, opts *rootOptions, cfg config.Config) config.Config {
	flags := cmd.Flags()
	if flags.Changed("indent") {
		cfg.Indent = opts.indent
	}
	if flags.Changed("min-gap") {
		cfg.MinGap = opts.minGap
	}
	if flags.Changed("align-amounts") {
		cfg.AlignAmounts = opts.alignAmounts
	}
	if flags.Changed("jobs") {
		cfg.Jobs = opts.jobs
	}
	if flags.Changed("follow-includes") {
		cfg.FollowIncludes = opts.followIncludes
	}
	if flags.Changed("no-verify") {
		cfg.NoVerify = opts.noVerify
	}
	return config.Normalize(cfg)
}

func selectFiles(cmd *cobra.Command, dir string, cfg config.Config, args []string) ([]string, error) {
	if len(args) == 0 {
		if !isTerminal(cmd.InOrStdin()) {
			return []string{workspace.Stdin}, nil
		}
		root, err := workspace.RootJournal(dir, cfg.Extensions)
		if err != nil {
			if errors.Is(err, workspace.ErrNoJournal) {
				return nil, errors.New("no input: pass a path or pipe a journal on stdin")
			}
			return nil, err
		}
		args = []string{root}
	}
	for _, arg := range args {
		if arg == workspace.Stdin && isTerminal(cmd.InOrStdin()) {
			return nil, errors.New("refusing to read a journal from a terminal")
		}
	}
	return workspace.Expand(args, cfg.Extensions)
}

func modeOf(opts *rootOptions) batch.Mode {
	switch {
	case opts.write:
		return batch.ModeWrite
	case opts.check:
		return batch.ModeCheck
	case opts.diff:
		return batch.ModeDiff
	default:
		return batch.ModeStdout
	}
}

func newLogger(w io.Writer, verbose bool) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	level := zapcore.WarnLevel
	if verbose {
		encCfg = zap.NewDevelopmentEncoderConfig()
		level = zapcore.DebugLevel
	}
	encCfg.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)
	return zap.New(core)
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func colorOutput(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return isTerminal(w)
}
