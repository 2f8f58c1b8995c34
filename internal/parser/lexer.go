package parser

import (
	"strings"
	"unicode/utf8"

	"github.com/juev/ledger-beautifier/internal/ast"
)

// sourceLine is one physical line. end excludes the line terminator
// ("\n" or "\r\n"); next is the offset of the following line.
type sourceLine struct {
	start int
	end   int
	next  int
}

func splitLines(src []byte) []sourceLine {
	var lines []sourceLine
	start := 0
	for i := 0; i < len(src); i++ {
		if src[i] != '\n' {
			continue
		}
		end := i
		if end > start && src[end-1] == '\r' {
			end--
		}
		lines = append(lines, sourceLine{start: start, end: end, next: i + 1})
		start = i + 1
	}
	if start < len(src) {
		end := len(src)
		if src[end-1] == '\r' {
			end--
		}
		lines = append(lines, sourceLine{start: start, end: end, next: len(src)})
	}
	return lines
}

// lexer scans a single line. All offsets it reports are absolute.
type lexer struct {
	input string
	pos   int
	base  int
}

func newLexer(input string, base int) *lexer {
	return &lexer{input: input, base: base}
}

func (l *lexer) eof() bool {
	return l.pos >= len(l.input)
}

func (l *lexer) peek() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *lexer) peekAt(n int) byte {
	if l.pos+n >= len(l.input) {
		return 0
	}
	return l.input[l.pos+n]
}

func (l *lexer) advance() {
	if l.pos < len(l.input) {
		_, size := utf8.DecodeRuneInString(l.input[l.pos:])
		l.pos += size
	}
}

func (l *lexer) rest() string {
	return l.input[l.pos:]
}

func (l *lexer) offset() int {
	return l.base + l.pos
}

// span converts line-relative indexes to an absolute span.
func (l *lexer) span(from, to int) ast.Span {
	return ast.Span{Start: l.base + from, End: l.base + to}
}

// skipSpaces skips spaces and tabs and reports whether a tab was among them.
func (l *lexer) skipSpaces() (count int, sawTab bool) {
	for l.pos < len(l.input) && isBlankByte(l.input[l.pos]) {
		if l.input[l.pos] == '\t' {
			sawTab = true
		}
		l.pos++
		count++
	}
	return count, sawTab
}

// trimmedEnd is the line-relative end of the input without trailing blanks.
func (l *lexer) trimmedEnd() int {
	return len(strings.TrimRight(l.input, " \t"))
}

// scanDate accepts Y-M-D or M-D with '-', '/' or '.' used consistently.
func (l *lexer) scanDate() bool {
	start := l.pos
	var fields []string
	var sep byte

	for {
		fieldStart := l.pos
		for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
			l.pos++
		}
		if l.pos == fieldStart {
			l.pos = start
			return false
		}
		fields = append(fields, l.input[fieldStart:l.pos])

		ch := l.peek()
		if ch != '-' && ch != '/' && ch != '.' {
			break
		}
		if sep == 0 {
			sep = ch
		} else if ch != sep {
			l.pos = start
			return false
		}
		if !isDigit(l.peekAt(1)) {
			break
		}
		l.pos++
	}

	if !validDate(fields) {
		l.pos = start
		return false
	}
	return true
}

func validDate(fields []string) bool {
	var month, day string
	switch len(fields) {
	case 2:
		month, day = fields[0], fields[1]
	case 3:
		if len(fields[0]) > 4 {
			return false
		}
		month, day = fields[1], fields[2]
	default:
		return false
	}
	if len(month) > 2 || len(day) > 2 {
		return false
	}
	m := atoi(month)
	d := atoi(day)
	return m >= 1 && m <= 12 && d >= 1 && d <= 31
}

func atoi(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		n = n*10 + int(s[i]-'0')
	}
	return n
}

// scanNumber accepts digits with '.' or ',' marks and single-space digit
// groups of exactly three digits ("1 000,50").
func (l *lexer) scanNumber() bool {
	start := l.pos
	if l.peek() == '.' || l.peek() == ',' {
		if !isDigit(l.peekAt(1)) {
			return false
		}
	} else if !isDigit(l.peek()) {
		return false
	}

	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		switch {
		case isDigit(ch), ch == '.', ch == ',':
			l.pos++
		case ch == ' ' && l.pos > start && isDigit(l.input[l.pos-1]) && l.isDigitGroup(l.pos+1):
			l.pos++
		default:
			return true
		}
	}
	return true
}

func (l *lexer) isDigitGroup(i int) bool {
	if i+3 > len(l.input) {
		return false
	}
	for j := i; j < i+3; j++ {
		if !isDigit(l.input[j]) {
			return false
		}
	}
	if i+3 == len(l.input) {
		return true
	}
	return !isDigit(l.input[i+3])
}

func (l *lexer) scanCommodity() bool {
	if l.peek() == '"' {
		closing := strings.IndexByte(l.input[l.pos+1:], '"')
		if closing < 0 {
			return false
		}
		l.pos += closing + 2
		return true
	}
	start := l.pos
	for l.pos < len(l.input) && isCommodityByte(l.input[l.pos]) {
		l.pos++
	}
	return l.pos > start
}

// scanBalanced consumes from an opening delimiter to its matching closer.
func (l *lexer) scanBalanced(open, closing byte) bool {
	depth := 0
	for i := l.pos; i < len(l.input); i++ {
		switch l.input[i] {
		case open:
			depth++
		case closing:
			depth--
			if depth == 0 {
				l.pos = i + 1
				return true
			}
		}
	}
	return false
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isBlankByte(ch byte) bool {
	return ch == ' ' || ch == '\t'
}

func isBlank(s string) bool {
	return strings.TrimLeft(s, " \t") == ""
}

func isCommentStart(ch byte) bool {
	return ch == ';' || ch == '#' || ch == '%' || ch == '|' || ch == '*'
}

func isNoteStart(ch byte) bool {
	return ch == ';' || ch == '#'
}

func isCommodityByte(ch byte) bool {
	if isDigit(ch) || isBlankByte(ch) {
		return false
	}
	return !strings.ContainsRune(`-+.,;@={}[]()*!/~#|<>&^%"'`+"`", rune(ch))
}

func isDirective(word string) bool {
	directives := []string{
		"account", "alias", "apply", "assert", "bucket", "capture",
		"check", "comment", "commodity", "D", "decimal-mark", "def",
		"define", "end", "eval", "expr", "include", "payee", "P",
		"tag", "test", "Y", "year", "A", "C", "N", "V", "price",
	}
	for _, d := range directives {
		if word == d {
			return true
		}
	}
	return false
}
