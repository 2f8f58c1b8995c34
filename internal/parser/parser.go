package parser

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/juev/ledger-beautifier/internal/ast"
)

// ParseError reports a position where the grammar expected something else.
// Line and Column are 1-based; Column counts runes.
type ParseError struct {
	Offset   int
	Line     int
	Column   int
	Expected string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: expected %s", e.Line, e.Column, e.Expected)
}

type Parser struct {
	src   []byte
	lines []sourceLine
	idx   int
	tree  *Tree
}

// Parse builds the syntax tree of a journal. It fails only when the input
// cannot be treated as text at all; everything else the grammar rejects ends
// up as KindError nodes listed in Tree.Errors.
func Parse(src []byte) (*Tree, error) {
	p := &Parser{
		src:   src,
		lines: splitLines(src),
		tree:  &Tree{Source: src, Root: NoNode},
	}
	if err := p.checkText(); err != nil {
		return nil, err
	}
	p.tree.Root = p.tree.add(KindJournal, ast.Span{Start: 0, End: len(src)}, NoNode)
	p.parseJournal()
	return p.tree, nil
}

func (p *Parser) checkText() *ParseError {
	if i := bytes.IndexByte(p.src, 0); i >= 0 {
		return p.errorAt(i, "text without NUL bytes")
	}
	for i := 0; i < len(p.src); {
		r, size := utf8.DecodeRune(p.src[i:])
		if r == utf8.RuneError && size <= 1 {
			return p.errorAt(i, "valid UTF-8")
		}
		i += size
	}
	return nil
}

func (p *Parser) parseJournal() {
	for p.idx < len(p.lines) {
		line := p.lines[p.idx]
		text := p.text(p.idx)

		switch {
		case isBlank(text):
			p.tree.add(KindBlankLine, ast.Span{Start: line.start, End: line.end}, p.tree.Root)
			p.idx++
		case isBlankByte(text[0]):
			p.errorBlock(p.idx, p.bodyEnd(p.idx), line.start, "transaction or directive before indented line")
		case isCommentStart(text[0]):
			end := line.start + len(strings.TrimRight(text, " \t"))
			p.tree.add(KindCommentLine, ast.Span{Start: line.start, End: end}, p.tree.Root)
			p.idx++
		case isDigit(text[0]):
			p.parseTransaction(KindTransaction)
		case text[0] == '~':
			p.parseTransaction(KindPeriodicTransaction)
		case text[0] == '=':
			p.parseTransaction(KindAutomatedTransaction)
		default:
			p.parseDirective()
		}
	}
}

func (p *Parser) parseTransaction(kind NodeKind) {
	start := p.idx
	end := p.bodyEnd(start + 1)
	p.idx = end

	span := ast.Span{Start: p.lines[start].start, End: p.lines[end-1].end}
	tx := p.tree.add(kind, span, p.tree.Root)

	err := p.parseHeader(tx, kind, start)
	for i := start + 1; err == nil && i < end; i++ {
		err = p.parseBodyLine(tx, i)
	}
	if err != nil {
		p.tree.demote(tx)
		p.tree.Errors = append(p.tree.Errors, *err)
	}
}

func (p *Parser) parseHeader(tx NodeID, kind NodeKind, idx int) *ParseError {
	lx := newLexer(p.text(idx), p.lines[idx].start)

	switch kind {
	case KindPeriodicTransaction, KindAutomatedTransaction:
		lx.advance()
		exprKind, expected := KindInterval, "period expression"
		if kind == KindAutomatedTransaction {
			exprKind, expected = KindQuery, "query"
		}
		lx.skipSpaces()
		if !p.description(tx, exprKind, lx) {
			return p.errorAt(lx.offset(), expected)
		}
		p.trailingComment(tx, lx)
		return nil
	}

	start := lx.pos
	if !lx.scanDate() {
		return p.errorAt(lx.offset(), "date")
	}
	p.tree.add(KindDate, lx.span(start, lx.pos), tx)

	if lx.peek() == '=' {
		lx.advance()
		start = lx.pos
		if !lx.scanDate() {
			return p.errorAt(lx.offset(), "secondary date")
		}
		p.tree.add(KindDate2, lx.span(start, lx.pos), tx)
	}
	if !lx.eof() && !isBlankByte(lx.peek()) {
		return p.errorAt(lx.offset(), "whitespace after date")
	}
	lx.skipSpaces()

	if ch := lx.peek(); ch == '*' || ch == '!' {
		p.tree.add(KindStatus, lx.span(lx.pos, lx.pos+1), tx)
		lx.advance()
		lx.skipSpaces()
	}

	if lx.peek() == '(' {
		closing := strings.IndexByte(lx.rest(), ')')
		if closing < 0 {
			return p.errorAt(lx.offset(), "closing ')' of transaction code")
		}
		p.tree.add(KindCode, lx.span(lx.pos+1, lx.pos+closing), tx)
		lx.pos += closing + 1
		lx.skipSpaces()
	}

	p.description(tx, KindPayee, lx)
	p.trailingComment(tx, lx)
	return nil
}

// description adds the text up to an inline comment as a node of the given
// kind and reports whether the text was non-empty.
func (p *Parser) description(parent NodeID, kind NodeKind, lx *lexer) bool {
	end := lx.trimmedEnd()
	if i := strings.IndexByte(lx.rest(), ';'); i >= 0 {
		end = lx.pos + i
	}
	text := strings.TrimRight(lx.input[lx.pos:end], " \t")
	if text == "" {
		lx.pos = end
		return false
	}
	p.tree.add(kind, lx.span(lx.pos, lx.pos+len(text)), parent)
	lx.pos = end
	return true
}

func (p *Parser) trailingComment(parent NodeID, lx *lexer) {
	if lx.peek() != ';' {
		return
	}
	end := lx.trimmedEnd()
	p.tree.add(KindComment, lx.span(lx.pos, end), parent)
	lx.pos = len(lx.input)
}

func (p *Parser) parseBodyLine(tx NodeID, idx int) *ParseError {
	lx := newLexer(p.text(idx), p.lines[idx].start)
	lx.skipSpaces()

	if isNoteStart(lx.peek()) {
		p.tree.add(KindNote, lx.span(lx.pos, lx.trimmedEnd()), tx)
		return nil
	}
	return p.parsePosting(tx, lx)
}

func (p *Parser) parsePosting(tx NodeID, lx *lexer) *ParseError {
	posting := p.tree.add(KindPosting, lx.span(lx.pos, lx.trimmedEnd()), tx)

	if ch := lx.peek(); (ch == '*' || ch == '!') && isBlankByte(lx.peekAt(1)) {
		p.tree.add(KindStatus, lx.span(lx.pos, lx.pos+1), posting)
		lx.advance()
		lx.skipSpaces()
	}

	start := lx.pos
	switch ch := lx.peek(); ch {
	case '(', '[':
		closer := byte(')')
		if ch == '[' {
			closer = ']'
		}
		closing := strings.IndexByte(lx.rest(), closer)
		if closing < 0 {
			return p.errorAt(lx.offset(), fmt.Sprintf("closing '%c' of virtual account", closer))
		}
		if closing == 1 {
			return p.errorAt(lx.offset()+1, "account name")
		}
		lx.pos += closing + 1
	default:
		lx.pos = accountEnd(lx.input, lx.pos)
		if lx.pos == start {
			return p.errorAt(lx.offset(), "account name")
		}
	}
	p.tree.add(KindAccount, lx.span(start, lx.pos), posting)

	gap, sawTab := lx.skipSpaces()
	if lx.eof() {
		return nil
	}
	if lx.peek() != ';' {
		if gap < 2 && !sawTab {
			return p.errorAt(lx.offset(), "two spaces or a tab before the amount")
		}
		if err := p.parseAmountPart(posting, lx); err != nil {
			return err
		}
		lx.skipSpaces()
	}

	p.trailingComment(posting, lx)
	if !lx.eof() {
		return p.errorAt(lx.offset(), "end of posting")
	}
	return nil
}

// accountEnd finds where an account name starting at pos ends: at a tab,
// two consecutive spaces, a ';' or the end of the line.
func accountEnd(line string, pos int) int {
	end := len(line)
	for i := pos; i < len(line); i++ {
		ch := line[i]
		if ch == '\t' || ch == ';' || (ch == ' ' && i+1 < len(line) && line[i+1] == ' ') {
			end = i
			break
		}
	}
	for end > pos && line[end-1] == ' ' {
		end--
	}
	return end
}

func (p *Parser) parseAmountPart(posting NodeID, lx *lexer) *ParseError {
	switch lx.peek() {
	case '@', '=', '{', '[', ';':
	default:
		if err := p.parseAmount(posting, lx, "amount"); err != nil {
			return err
		}
		lx.skipSpaces()
	}

	for lx.peek() == '{' || lx.peek() == '[' {
		start := lx.pos
		closer := byte('}')
		if lx.peek() == '[' {
			closer = ']'
		}
		if !lx.scanBalanced(lx.peek(), closer) {
			return p.errorAt(lx.offset(), fmt.Sprintf("closing '%c' of annotation", closer))
		}
		p.tree.add(KindAnnotation, lx.span(start, lx.pos), posting)
		lx.skipSpaces()
	}

	if lx.peek() == '@' {
		start := lx.pos
		lx.advance()
		if lx.peek() == '@' {
			lx.advance()
		}
		cost := p.tree.add(KindCost, lx.span(start, start), posting)
		p.tree.add(KindOperator, lx.span(start, lx.pos), cost)
		lx.skipSpaces()
		if err := p.parseAmount(cost, lx, "cost amount"); err != nil {
			return err
		}
		p.tree.Nodes[cost].Span.End = lx.offset()
		lx.skipSpaces()
	}

	if lx.peek() == '=' {
		start := lx.pos
		lx.advance()
		if lx.peek() == '=' {
			lx.advance()
		}
		if lx.peek() == '*' {
			lx.advance()
		}
		assertion := p.tree.add(KindAssertion, lx.span(start, start), posting)
		p.tree.add(KindOperator, lx.span(start, lx.pos), assertion)
		lx.skipSpaces()
		if err := p.parseAmount(assertion, lx, "balance assertion amount"); err != nil {
			return err
		}
		p.tree.Nodes[assertion].Span.End = lx.offset()
	}
	return nil
}

// parseAmount reads [sign][commodity][sign]number[commodity] or a
// parenthesised value expression. Trailing blanks are left unread.
func (p *Parser) parseAmount(parent NodeID, lx *lexer, expected string) *ParseError {
	start := lx.pos

	if lx.peek() == '(' {
		if !lx.scanBalanced('(', ')') {
			return p.errorAt(lx.offset(), "closing ')' of value expression")
		}
		amount := p.tree.add(KindAmount, lx.span(start, lx.pos), parent)
		p.tree.add(KindExpression, lx.span(start, lx.pos), amount)
		return nil
	}

	amount := p.tree.add(KindAmount, lx.span(start, start), parent)

	// automated postings may scale the matched amount: "*-1"
	if lx.peek() == '*' {
		p.tree.add(KindOperator, lx.span(lx.pos, lx.pos+1), amount)
		lx.advance()
	}

	sign := -1
	if ch := lx.peek(); ch == '-' || ch == '+' {
		sign = lx.pos
		lx.advance()
	}

	leftCommodity := false
	if ch := lx.peek(); ch == '"' || isCommodityByte(ch) {
		commodityStart := lx.pos
		if !lx.scanCommodity() {
			return p.errorAt(lx.offset(), "closing '\"' of commodity")
		}
		if sign >= 0 {
			p.tree.add(KindSign, lx.span(sign, sign+1), amount)
			sign = -1
		}
		p.tree.add(KindCommodity, lx.span(commodityStart, lx.pos), amount)
		leftCommodity = true
		lx.skipSpaces()
		if ch := lx.peek(); ch == '-' || ch == '+' {
			sign = lx.pos
			lx.advance()
		}
	}

	numberStart := lx.pos
	if !lx.scanNumber() {
		return p.errorAt(lx.offset(), expected)
	}
	if sign >= 0 {
		numberStart = sign
	}
	p.tree.add(KindQuantity, lx.span(numberStart, lx.pos), amount)
	end := lx.pos

	if !leftCommodity {
		lx.skipSpaces()
		commodityStart := lx.pos
		if ch := lx.peek(); (ch == '"' || isCommodityByte(ch)) && lx.scanCommodity() {
			p.tree.add(KindCommodity, lx.span(commodityStart, lx.pos), amount)
			end = lx.pos
		}
		lx.pos = end
	}

	p.tree.Nodes[amount].Span.End = lx.offset()
	return nil
}

func (p *Parser) parseDirective() {
	start := p.idx
	line := p.lines[start]
	text := p.text(start)

	word := text
	if i := strings.IndexAny(text, " \t"); i >= 0 {
		word = text[:i]
	}
	keyword := strings.TrimLeft(word, "!@")
	option := strings.HasPrefix(word, "--") && len(word) > 2 && isLetter(word[2])
	if !isDirective(keyword) && !option {
		p.errorBlock(start, p.bodyEnd(start+1), line.start, "transaction, comment or directive")
		return
	}

	var end int
	switch keyword {
	case "comment", "test":
		end = p.blockEnd(start+1, "end "+keyword)
	default:
		end = p.bodyEnd(start + 1)
	}
	p.idx = end

	span := ast.Span{Start: line.start, End: p.lines[end-1].end}
	dir := p.tree.add(KindDirective, span, p.tree.Root)
	p.tree.add(KindKeyword, ast.Span{Start: line.start, End: line.start + len(word)}, dir)

	if arg := strings.TrimSpace(text[len(word):]); arg != "" {
		argStart := line.start + strings.Index(text[len(word):], arg) + len(word)
		p.tree.add(KindArgument, ast.Span{Start: argStart, End: argStart + len(arg)}, dir)
	}
	for i := start; i < end; i++ {
		p.tree.add(KindLine, ast.Span{Start: p.lines[i].start, End: p.lines[i].end}, dir)
	}
}

// errorBlock records lines [from, to) as one unrecognized region.
func (p *Parser) errorBlock(from, to, offset int, expected string) {
	span := ast.Span{Start: p.lines[from].start, End: p.lines[to-1].end}
	p.tree.add(KindError, span, p.tree.Root)
	p.tree.Errors = append(p.tree.Errors, *p.errorAt(offset, expected))
	p.idx = to
}

// bodyEnd returns the index of the first line at or after from that is not
// an indented, non-blank line.
func (p *Parser) bodyEnd(from int) int {
	i := from
	for i < len(p.lines) {
		text := p.text(i)
		if isBlank(text) || !isBlankByte(text[0]) {
			break
		}
		i++
	}
	return i
}

// blockEnd returns the index just past the line that closes a block, or the
// number of lines when the block runs to the end of input.
func (p *Parser) blockEnd(from int, closer string) int {
	for i := from; i < len(p.lines); i++ {
		if strings.TrimSpace(p.text(i)) == closer {
			return i + 1
		}
	}
	return len(p.lines)
}

func (p *Parser) text(idx int) string {
	line := p.lines[idx]
	return string(p.src[line.start:line.end])
}

func (p *Parser) errorAt(offset int, expected string) *ParseError {
	line := sort.Search(len(p.lines), func(i int) bool {
		return p.lines[i].next > offset
	})
	lineStart := 0
	switch {
	case line < len(p.lines):
		lineStart = p.lines[line].start
	case len(p.lines) > 0:
		line = len(p.lines) - 1
		lineStart = p.lines[line].start
	}
	if offset > len(p.src) {
		offset = len(p.src)
	}
	return &ParseError{
		Offset:   offset,
		Line:     line + 1,
		Column:   utf8.RuneCount(p.src[lineStart:offset]) + 1,
		Expected: expected,
	}
}
