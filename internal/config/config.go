// Package config loads formatter settings from a project file, a .env file
// and LEDGER_BEAUTIFIER_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"

	"github.com/juev/ledger-beautifier/internal/include"
	"github.com/juev/ledger-beautifier/internal/layout"
)

// FileNames are the project config files looked up by Discover, in order.
var FileNames = []string{
	".ledger-beautifier.yaml",
	".ledger-beautifier.yml",
	".ledger-beautifier.toml",
}

const envPrefix = "LEDGER_BEAUTIFIER_"

type Config struct {
	Indent          int      `yaml:"indent" toml:"indent"`
	MinGap          int      `yaml:"min_gap" toml:"min_gap"`
	AlignAmounts    string   `yaml:"align_amounts" toml:"align_amounts"`
	Extensions      []string `yaml:"extensions" toml:"extensions"`
	Jobs            int      `yaml:"jobs" toml:"jobs"`
	FollowIncludes  bool     `yaml:"follow_includes" toml:"follow_includes"`
	NoVerify        bool     `yaml:"no_verify" toml:"no_verify"`
	// MaxIncludeDepth and MaxFileSize bound the walk done by FollowIncludes.
	MaxIncludeDepth int      `yaml:"max_include_depth" toml:"max_include_depth"`
	MaxFileSize     int64    `yaml:"max_file_size" toml:"max_file_size"`
}

func Default() Config {
	limits := include.DefaultLimits()
	return Config{
		Indent:          layout.DefaultIndentWidth,
		MinGap:          layout.DefaultMinGap,
		AlignAmounts:    layout.AlignLeft.String(),
		Extensions:      []string{".journal", ".j", ".hledger", ".ledger", ".dat"},
		MaxIncludeDepth: limits.MaxIncludeDepth,
		MaxFileSize:     limits.MaxFileSizeBytes,
	}
}

// Normalize replaces unusable values with defaults.
func Normalize(cfg Config) Config {
	defaults := Default()
	if cfg.Indent <= 0 {
		cfg.Indent = defaults.Indent
	}
	if cfg.MinGap < layout.DefaultMinGap {
		cfg.MinGap = defaults.MinGap
	}
	cfg.AlignAmounts = strings.ToLower(strings.TrimSpace(cfg.AlignAmounts))
	if cfg.AlignAmounts == "" {
		cfg.AlignAmounts = defaults.AlignAmounts
	}
	exts := make([]string, 0, len(cfg.Extensions))
	for _, ext := range cfg.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	if len(exts) == 0 {
		exts = defaults.Extensions
	}
	cfg.Extensions = exts
	if cfg.Jobs < 0 {
		cfg.Jobs = 0
	}
	if cfg.MaxIncludeDepth <= 0 {
		cfg.MaxIncludeDepth = defaults.MaxIncludeDepth
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = defaults.MaxFileSize
	}
	return cfg
}

// Layout converts the settings into a layout configuration.
func (c Config) Layout() (layout.Config, error) {
	align, err := layout.ParseAlignment(c.AlignAmounts)
	if err != nil {
		return layout.Config{}, err
	}
	return layout.Config{
		IndentWidth: c.Indent,
		MinGap:      c.MinGap,
		AmountAlign: align,
	}.Normalize(), nil
}

// IncludeLimits returns the bounds applied when following include directives.
func (c Config) IncludeLimits() include.Limits {
	return include.Limits{
		MaxFileSizeBytes: c.MaxFileSize,
		MaxIncludeDepth:  c.MaxIncludeDepth,
	}
}

// Discover walks up from dir and returns the first config file found.
func Discover(dir string) (string, bool) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	for {
		for _, name := range FileNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, true
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// LoadFile reads a YAML or TOML config file over base.
func LoadFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read config: %w", err)
	}

	cfg := base
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		return base, fmt.Errorf("config %s: unsupported format", path)
	}
	if err != nil {
		return base, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with LEDGER_BEAUTIFIER_* values from lookup.
func ApplyEnv(cfg Config, lookup func(string) (string, bool)) (Config, error) {
	var errs []error

	if v, ok := lookup(envPrefix + "INDENT"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%sINDENT: %w", envPrefix, err))
		} else {
			cfg.Indent = n
		}
	}
	if v, ok := lookup(envPrefix + "MIN_GAP"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMIN_GAP: %w", envPrefix, err))
		} else {
			cfg.MinGap = n
		}
	}
	if v, ok := lookup(envPrefix + "ALIGN_AMOUNTS"); ok {
		cfg.AlignAmounts = v
	}
	if v, ok := lookup(envPrefix + "EXTENSIONS"); ok {
		cfg.Extensions = strings.Split(v, ",")
	}
	if v, ok := lookup(envPrefix + "JOBS"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%sJOBS: %w", envPrefix, err))
		} else {
			cfg.Jobs = n
		}
	}
	if v, ok := lookup(envPrefix + "FOLLOW_INCLUDES"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%sFOLLOW_INCLUDES: %w", envPrefix, err))
		} else {
			cfg.FollowIncludes = b
		}
	}
	if v, ok := lookup(envPrefix + "MAX_INCLUDE_DEPTH"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMAX_INCLUDE_DEPTH: %w", envPrefix, err))
		} else {
			cfg.MaxIncludeDepth = n
		}
	}
	if v, ok := lookup(envPrefix + "MAX_FILE_SIZE"); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sMAX_FILE_SIZE: %w", envPrefix, err))
		} else {
			cfg.MaxFileSize = n
		}
	}
	if v, ok := lookup(envPrefix + "NO_VERIFY"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%sNO_VERIFY: %w", envPrefix, err))
		} else {
			cfg.NoVerify = b
		}
	}

	return cfg, errors.Join(errs...)
}

type LoadOptions struct {
	// Path is an explicit config file; when empty the file is discovered
	// from Dir.
	Path string
	Dir  string
	// EnvFile defaults to .env in Dir. A missing file is not an error.
	EnvFile string
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load resolves the effective configuration and returns it together with
// the config file it came from, if any.
func Load(opts LoadOptions) (Config, string, error) {
	if opts.Dir == "" {
		opts.Dir = "."
	}
	if opts.LookupEnv == nil {
		opts.LookupEnv = os.LookupEnv
	}

	cfg := Default()
	path := opts.Path
	if path == "" {
		path, _ = Discover(opts.Dir)
	}
	if path != "" {
		var err error
		if cfg, err = LoadFile(path, cfg); err != nil {
			return Default(), path, err
		}
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = filepath.Join(opts.Dir, ".env")
	}
	dotenv, err := godotenv.Read(envFile)
	if err != nil {
		if opts.EnvFile != "" || !errors.Is(err, os.ErrNotExist) {
			return Default(), path, fmt.Errorf("read env file: %w", err)
		}
		dotenv = nil
	}

	cfg, err = ApplyEnv(cfg, func(key string) (string, bool) {
		if v, ok := opts.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	})
	if err != nil {
		return Default(), path, err
	}

	cfg = Normalize(cfg)
	if _, err := cfg.Layout(); err != nil {
		return Default(), path, err
	}
	return cfg, path, nil
}
