package layout

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/juev/ledger-beautifier/internal/ast"
)

// Columns is the alignment grid of one transaction. Positions are counted
// in terminal cells from the start of the line.
type Columns struct {
	AccountWidth int
	AmountStart  int
	AmountWidth  int
	CommentStart int
}

type Engine struct {
	cfg    Config
	indent string
	// cells measures text independently of the process locale: ambiguous
	// East Asian characters always count as one cell.
	cells  *runewidth.Condition
}

func New(cfg Config) *Engine {
	cfg = cfg.Normalize()
	cells := runewidth.NewCondition()
	cells.EastAsianWidth = false
	cells.StrictEmojiNeutral = true
	return &Engine{cfg: cfg, indent: strings.Repeat(" ", cfg.IndentWidth), cells: cells}
}

// Lines renders blocks into output lines without terminators. Runs of blank
// lines collapse to one; blank lines at the start and end are dropped.
func (e *Engine) Lines(blocks []ast.Block) []string {
	var lines []string
	pendingBlank := false

	for _, block := range blocks {
		if _, ok := block.(*ast.BlankLine); ok {
			pendingBlank = len(lines) > 0
			continue
		}
		if pendingBlank {
			lines = append(lines, "")
			pendingBlank = false
		}

		switch b := block.(type) {
		case *ast.Transaction:
			lines = append(lines, e.transaction(b)...)
		case *ast.Directive:
			for _, line := range b.Lines {
				lines = append(lines, trimRight(line))
			}
		case *ast.CommentLine:
			lines = append(lines, trimRight(b.Text))
		case *ast.RawPassthrough:
			lines = append(lines, b.Text)
		}
	}
	return lines
}

func (e *Engine) transaction(tx *ast.Transaction) []string {
	cols := e.Columns(tx)
	lines := make([]string, 0, 1+len(tx.Comments)+len(tx.Postings))

	header := e.header(tx)
	if tx.Comment != "" {
		header += strings.Repeat(" ", e.cfg.MinGap) + tx.Comment
	}
	lines = append(lines, header)

	for _, c := range tx.Comments {
		lines = append(lines, e.indent+c.Text)
	}

	for i := range tx.Postings {
		p := &tx.Postings[i]
		lines = append(lines, e.posting(p, cols))
		for _, c := range p.Comments {
			lines = append(lines, e.indent+c.Text)
		}
	}
	return lines
}

func (e *Engine) header(tx *ast.Transaction) string {
	switch tx.Kind {
	case ast.TransactionPeriodic:
		return "~ " + tx.Expression
	case ast.TransactionAutomated:
		return "= " + tx.Expression
	}

	var sb strings.Builder
	sb.WriteString(tx.Date)
	if tx.Date2 != "" {
		sb.WriteString("=")
		sb.WriteString(tx.Date2)
	}
	if tx.Status != "" {
		sb.WriteString(" ")
		sb.WriteString(tx.Status)
	}
	if tx.Code != "" {
		sb.WriteString(" (")
		sb.WriteString(tx.Code)
		sb.WriteString(")")
	}
	if tx.Payee != "" {
		sb.WriteString(" ")
		sb.WriteString(tx.Payee)
	}
	return sb.String()
}

// Columns computes the alignment grid of a transaction from all of its
// postings.
func (e *Engine) Columns(tx *ast.Transaction) Columns {
	var cols Columns
	hasAmounts := false
	widestElided := 0

	for i := range tx.Postings {
		p := &tx.Postings[i]
		width := e.cells.StringWidth(accountDisplay(p))
		cols.AccountWidth = max(cols.AccountWidth, width)
		if p.Elided() {
			widestElided = max(widestElided, width)
			continue
		}
		hasAmounts = true
		cols.AmountWidth = max(cols.AmountWidth, e.cells.StringWidth(amountPart(p)))
	}

	cols.AmountStart = e.cfg.IndentWidth + cols.AccountWidth + e.cfg.MinGap

	widest := e.cfg.IndentWidth + widestElided
	if hasAmounts {
		widest = max(widest, cols.AmountStart+cols.AmountWidth)
	}
	cols.CommentStart = widest + e.cfg.MinGap
	return cols
}

func (e *Engine) posting(p *ast.Posting, cols Columns) string {
	var sb strings.Builder
	sb.WriteString(e.indent)
	sb.WriteString(accountDisplay(p))
	width := e.cfg.IndentWidth + e.cells.StringWidth(accountDisplay(p))

	if !p.Elided() {
		part := amountPart(p)
		start := cols.AmountStart
		if e.cfg.AmountAlign == AlignRight {
			start = cols.AmountStart + cols.AmountWidth - e.cells.StringWidth(part)
		}
		sb.WriteString(strings.Repeat(" ", start-width))
		sb.WriteString(part)
		width = start + e.cells.StringWidth(part)
	}

	if p.Comment != "" {
		sb.WriteString(strings.Repeat(" ", max(cols.CommentStart-width, e.cfg.MinGap)))
		sb.WriteString(p.Comment)
	}
	return sb.String()
}

func accountDisplay(p *ast.Posting) string {
	if p.Status != "" {
		return p.Status + " " + p.Account.Display()
	}
	return p.Account.Display()
}

// amountPart joins the amount, lot annotations, cost and balance assertion
// of a posting with single spaces.
func amountPart(p *ast.Posting) string {
	var parts []string
	if p.Amount != nil {
		parts = append(parts, p.Amount.Raw)
	}
	parts = append(parts, p.Annotations...)
	if p.Cost != nil {
		parts = append(parts, p.Cost.Operator()+" "+p.Cost.Amount.Raw)
	}
	if p.Assertion != nil {
		if p.Assertion.Amount != nil {
			parts = append(parts, p.Assertion.Operator+" "+p.Assertion.Amount.Raw)
		} else {
			parts = append(parts, p.Assertion.Operator)
		}
	}
	return strings.Join(parts, " ")
}

func trimRight(s string) string {
	return strings.TrimRight(s, " \t")
}
