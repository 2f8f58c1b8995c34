package formatter

import (
	"fmt"
	"strings"

	"github.com/juev/ledger-beautifier/internal/ast"
	"github.com/juev/ledger-beautifier/internal/model"
	"github.com/juev/ledger-beautifier/internal/parser"
)

// verify re-reads out and checks that it holds the same blocks as want,
// ignoring blank lines and layout.
func verify(want []ast.Block, out []byte) error {
	tree, err := parser.Parse(out)
	if err != nil {
		return fmt.Errorf("%w: output does not parse: %v", ErrContentChanged, err)
	}
	got, err := model.Build(tree)
	if err != nil {
		return fmt.Errorf("%w: output does not build: %v", ErrContentChanged, err)
	}

	a := contentOf(want)
	b := contentOf(got)
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return fmt.Errorf("%w: have %q, formatted %q", ErrContentChanged, a[i], b[i])
		}
	}
	if len(a) != len(b) {
		return fmt.Errorf("%w: %d content entries became %d", ErrContentChanged, len(a), len(b))
	}
	return nil
}

// contentOf flattens blocks into comparable entries. Amounts are reduced to
// their decimal value and commodity.
func contentOf(blocks []ast.Block) []string {
	var out []string
	add := func(format string, args ...any) {
		out = append(out, fmt.Sprintf(format, args...))
	}

	for _, block := range blocks {
		switch b := block.(type) {
		case *ast.Transaction:
			add("transaction %s|%s|%s|%s|%s|%s|%s|%s",
				b.Kind, b.Date, b.Date2, b.Status, b.Code, b.Payee, b.Expression, b.Comment)
			for _, c := range b.Comments {
				add("note %s", c.Text)
			}
			for i := range b.Postings {
				p := &b.Postings[i]
				add("posting %s|%s|%s|%s|%s|%s|%s",
					p.Status, p.Account.Display(), amountContent(p.Amount),
					strings.Join(p.Annotations, " "), costContent(p.Cost),
					assertionContent(p.Assertion), p.Comment)
				for _, c := range p.Comments {
					add("note %s", c.Text)
				}
			}
		case *ast.Directive:
			for _, line := range b.Lines {
				add("directive %s", strings.TrimRight(line, " \t"))
			}
		case *ast.CommentLine:
			add("comment %s", strings.TrimRight(b.Text, " \t"))
		case *ast.RawPassthrough:
			add("raw %s", strings.Join(strings.Fields(b.Text), ""))
		}
	}
	return out
}

func amountContent(a *ast.Amount) string {
	if a == nil {
		return ""
	}
	value, err := a.Value()
	if err != nil {
		return a.Raw
	}
	return value.String() + " " + a.Commodity
}

func costContent(c *ast.Cost) string {
	if c == nil {
		return ""
	}
	return c.Operator() + " " + amountContent(&c.Amount)
}

func assertionContent(a *ast.BalanceAssertion) string {
	if a == nil {
		return ""
	}
	return a.Operator + " " + amountContent(a.Amount)
}
