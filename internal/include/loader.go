package include

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/juev/ledger-beautifier/internal/parser"
)

// Loader follows include directives between journal files. Parsed include
// lists are cached per path.
type Loader struct {
	mu     sync.Mutex
	limits Limits
	cache  map[string][]Include
}

func NewLoader() *Loader {
	return &Loader{
		limits: DefaultLimits(),
		cache:  make(map[string][]Include),
	}
}

func (l *Loader) SetLimits(limits Limits) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limits = limits
}

// Collect returns the roots followed by every file reachable from them
// through include directives. Each file appears once, in discovery order.
// Problems with individual includes are reported but do not stop the walk.
func (l *Loader) Collect(roots []string) ([]string, []LoadError) {
	c := &collector{
		loader:  l,
		seen:    make(map[string]bool),
		onStack: make(map[string]bool),
	}
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			abs = filepath.Clean(root)
		}
		if c.seen[abs] {
			continue
		}
		c.files = append(c.files, root)
		c.visit(abs, 0)
	}
	return c.files, c.errors
}

type collector struct {
	loader  *Loader
	files   []string
	errors  []LoadError
	seen    map[string]bool
	onStack map[string]bool
}

func (c *collector) visit(path string, depth int) {
	c.seen[path] = true
	c.onStack[path] = true
	defer delete(c.onStack, path)

	includes, loadErr := c.loader.includesOf(path)
	if loadErr != nil {
		c.errors = append(c.errors, *loadErr)
		return
	}

	limits := c.loader.getLimits()
	for _, inc := range includes {
		targets, err := Expand(path, inc.Path)
		if err != nil {
			c.errors = append(c.errors, LoadError{
				Kind:    ErrorFileNotFound,
				Path:    path,
				Message: fmt.Sprintf("bad include pattern %q: %v", inc.Path, err),
				Offset:  inc.Offset,
			})
			continue
		}

		for _, target := range targets {
			switch {
			case c.onStack[target]:
				c.errors = append(c.errors, LoadError{
					Kind:    ErrorCycleDetected,
					Path:    target,
					Message: fmt.Sprintf("cycle detected: %s includes %s", path, target),
					Offset:  inc.Offset,
				})
			case c.seen[target]:
			case depth+1 > limits.MaxIncludeDepth:
				c.errors = append(c.errors, LoadError{
					Kind:    ErrorDepthExceeded,
					Path:    target,
					Message: fmt.Sprintf("include depth exceeds %d", limits.MaxIncludeDepth),
					Offset:  inc.Offset,
				})
			default:
				if _, err := os.Stat(target); err != nil {
					c.errors = append(c.errors, LoadError{
						Kind:    ErrorFileNotFound,
						Path:    target,
						Message: fmt.Sprintf("cannot read included file: %v", err),
						Offset:  inc.Offset,
					})
					continue
				}
				c.files = append(c.files, target)
				c.visit(target, depth+1)
			}
		}
	}
}

func (l *Loader) getLimits() Limits {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limits
}

func (l *Loader) includesOf(path string) ([]Include, *LoadError) {
	l.mu.Lock()
	cached, ok := l.cache[path]
	limits := l.limits
	l.mu.Unlock()
	if ok {
		return cached, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{Kind: ErrorFileNotFound, Path: path, Message: fmt.Sprintf("cannot read file: %v", err), Offset: -1}
	}
	if limits.MaxFileSizeBytes > 0 && info.Size() > limits.MaxFileSizeBytes {
		return nil, &LoadError{
			Kind:    ErrorFileTooLarge,
			Path:    path,
			Message: fmt.Sprintf("file size %d exceeds limit %d", info.Size(), limits.MaxFileSizeBytes),
			Offset:  -1,
		}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Kind: ErrorFileNotFound, Path: path, Message: fmt.Sprintf("cannot read file: %v", err), Offset: -1}
	}
	tree, err := parser.Parse(content)
	if err != nil {
		return nil, &LoadError{Kind: ErrorParseError, Path: path, Message: err.Error(), Offset: -1}
	}

	includes := Includes(tree)
	l.mu.Lock()
	l.cache[path] = includes
	l.mu.Unlock()
	return includes, nil
}
