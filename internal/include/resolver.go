package include

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/juev/ledger-beautifier/internal/parser"
)

// ResolvePath makes includePath absolute relative to the directory of
// basePath. A leading "~" is expanded to the home directory.
func ResolvePath(basePath, includePath string) string {
	if strings.HasPrefix(includePath, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			if includePath == "~" {
				return home
			}
			includePath = filepath.Join(home, includePath[2:])
		}
	}

	if filepath.IsAbs(includePath) {
		return filepath.Clean(includePath)
	}

	return filepath.Clean(filepath.Join(filepath.Dir(basePath), includePath))
}

// Expand resolves an include argument to the files it names. Glob patterns,
// including "**", are expanded and sorted; a plain path is returned even
// when it does not exist so the caller can report it.
func Expand(basePath, includePath string) ([]string, error) {
	// hledger allows a reader prefix such as "journal:file.j"
	if i := strings.Index(includePath, ":"); i > 1 && !strings.ContainsAny(includePath[:i], `/\.`) {
		includePath = includePath[i+1:]
	}

	resolved := ResolvePath(basePath, includePath)
	if !strings.ContainsAny(resolved, "*?[") {
		return []string{resolved}, nil
	}

	matches, err := doublestar.FilepathGlob(resolved)
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// Includes returns the include directives of a parsed journal in source
// order.
func Includes(tree *parser.Tree) []Include {
	var result []Include
	for _, id := range tree.Children(tree.Root) {
		if tree.Kind(id) != parser.KindDirective {
			continue
		}
		keyword := tree.Child(id, parser.KindKeyword)
		if keyword == parser.NoNode || strings.TrimLeft(tree.Text(keyword), "!@") != "include" {
			continue
		}
		arg := tree.Child(id, parser.KindArgument)
		if arg == parser.NoNode {
			continue
		}
		path := tree.Text(arg)
		if i := strings.Index(path, ";"); i >= 0 {
			path = strings.TrimSpace(path[:i])
		}
		if path == "" {
			continue
		}
		result = append(result, Include{Path: path, Offset: tree.Span(id).Start})
	}
	return result
}
