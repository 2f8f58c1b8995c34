// Package workspace turns command line arguments into the list of journal
// files to format.
package workspace

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/juev/ledger-beautifier/internal/include"
	"github.com/juev/ledger-beautifier/internal/parser"
)

// ErrNoJournal is returned by RootJournal when nothing in the directory
// looks like a journal.
var ErrNoJournal = errors.New("no journal file found")

// Stdin is the argument that selects standard input.
const Stdin = "-"

// HasExtension reports whether path ends in one of exts. Extensions are
// compared case-insensitively and carry their leading dot.
func HasExtension(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// FindJournalFiles walks root and returns the files with a journal
// extension, sorted. Hidden directories below root are skipped and
// unreadable entries are ignored.
func FindJournalFiles(root string, exts []string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			return nil //nolint:nilerr // skip inaccessible entries
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if HasExtension(path, exts) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// Expand resolves arguments to files in argument order. Directories are
// walked, files are kept as given whatever their extension, and duplicates
// are dropped. A path that cannot be stat'ed is kept so the caller reports
// it against that file.
func Expand(args []string, exts []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	add := func(path string) {
		key := path
		if path != Stdin {
			key = filepath.Clean(path)
			if abs, err := filepath.Abs(path); err == nil {
				key = abs
			}
		}
		if seen[key] {
			return
		}
		seen[key] = true
		files = append(files, path)
	}

	for _, arg := range args {
		if arg == Stdin {
			add(arg)
			continue
		}
		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			add(arg)
			continue
		}
		found, err := FindJournalFiles(arg, exts)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			add(f)
		}
	}
	return files, nil
}

// FollowIncludes appends every file reachable through include directives
// from files, after the files themselves. Standard input is left alone.
// Problems in the include graph are returned alongside the result.
func FollowIncludes(loader *include.Loader, files []string) ([]string, []include.LoadError) {
	var roots []string
	for _, f := range files {
		if f != Stdin {
			roots = append(roots, f)
		}
	}
	reached, errs := loader.Collect(roots)

	result := append([]string(nil), files...)
	known := make(map[string]bool, len(files))
	for _, f := range files {
		if abs, err := filepath.Abs(f); err == nil {
			known[abs] = true
		}
	}
	for _, f := range reached {
		if !known[f] {
			known[f] = true
			result = append(result, f)
		}
	}
	return result, errs
}

// RootJournal picks the main journal of dir: $LEDGER_FILE, then
// $HLEDGER_JOURNAL, then main.journal or .hledger.journal in dir, and
// otherwise the journal that no other journal includes.
func RootJournal(dir string, exts []string) (string, error) {
	for _, env := range []string{"LEDGER_FILE", "HLEDGER_JOURNAL"} {
		if path := os.Getenv(env); path != "" {
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
	}

	for _, name := range []string{"main.journal", ".hledger.journal"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return rootByIncludeGraph(dir, exts)
}

func rootByIncludeGraph(dir string, exts []string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	files, err := FindJournalFiles(dir, exts)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", ErrNoJournal
	}

	included := make(map[string]bool)
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			continue
		}
		tree, err := parser.Parse(content)
		if err != nil {
			continue
		}
		for _, inc := range include.Includes(tree) {
			targets, err := include.Expand(file, inc.Path)
			if err != nil {
				continue
			}
			for _, target := range targets {
				included[target] = true
			}
		}
	}

	for _, file := range files {
		if !included[file] {
			return file, nil
		}
	}
	return files[0], nil
}
