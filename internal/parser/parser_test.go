package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, input string) *Tree {
	t.Helper()
	tree, err := Parse([]byte(input))
	require.NoError(t, err)
	return tree
}

func topKinds(tree *Tree) []NodeKind {
	var kinds []NodeKind
	for _, id := range tree.Children(tree.Root) {
		kinds = append(kinds, tree.Kind(id))
	}
	return kinds
}

func childText(tree *Tree, id NodeID, kind NodeKind) string {
	c := tree.Child(id, kind)
	if c == NoNode {
		return ""
	}
	return tree.Text(c)
}

func TestParse_SimpleTransaction(t *testing.T) {
	tree := parse(t, "2024-01-15 * (42) Grocery store  ; weekly\n    expenses:food  $50.00\n    assets:cash\n")

	require.Equal(t, []NodeKind{KindTransaction}, topKinds(tree))
	assert.Empty(t, tree.Errors)

	tx := tree.Children(tree.Root)[0]
	assert.Equal(t, "2024-01-15", childText(tree, tx, KindDate))
	assert.Equal(t, "*", childText(tree, tx, KindStatus))
	assert.Equal(t, "42", childText(tree, tx, KindCode))
	assert.Equal(t, "Grocery store", childText(tree, tx, KindPayee))
	assert.Equal(t, "; weekly", childText(tree, tx, KindComment))

	var postings []NodeID
	for _, c := range tree.Children(tx) {
		if tree.Kind(c) == KindPosting {
			postings = append(postings, c)
		}
	}
	require.Len(t, postings, 2)

	assert.Equal(t, "expenses:food", childText(tree, postings[0], KindAccount))
	amount := tree.Child(postings[0], KindAmount)
	require.NotEqual(t, NoNode, amount)
	assert.Equal(t, "$50.00", tree.Text(amount))
	assert.Equal(t, "$", childText(tree, amount, KindCommodity))
	assert.Equal(t, "50.00", childText(tree, amount, KindQuantity))

	assert.Equal(t, "assets:cash", childText(tree, postings[1], KindAccount))
	assert.Equal(t, NoNode, tree.Child(postings[1], KindAmount))
}

func TestParse_Dates(t *testing.T) {
	tests := []struct {
		name  string
		input string
		date  string
		date2 string
		ok    bool
	}{
		{"dashes", "2024-01-15 x\n", "2024-01-15", "", true},
		{"slashes", "2024/1/5 x\n", "2024/1/5", "", true},
		{"dots", "2024.01.15 x\n", "2024.01.15", "", true},
		{"month and day", "1/15 x\n", "1/15", "", true},
		{"secondary date", "2024-01-15=2024-01-20 x\n", "2024-01-15", "2024-01-20", true},
		{"date only", "2024-01-15\n", "2024-01-15", "", true},
		{"mixed separators", "2024-01/15 x\n", "", "", false},
		{"month out of range", "2024-13-01 x\n", "", "", false},
		{"day out of range", "2024-01-32 x\n", "", "", false},
		{"text after date", "2024-01-15x\n", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := parse(t, tt.input)
			tx := tree.Children(tree.Root)[0]
			if !tt.ok {
				assert.Equal(t, KindError, tree.Kind(tx))
				assert.NotEmpty(t, tree.Errors)
				return
			}
			require.Equal(t, KindTransaction, tree.Kind(tx))
			assert.Equal(t, tt.date, childText(tree, tx, KindDate))
			assert.Equal(t, tt.date2, childText(tree, tx, KindDate2))
		})
	}
}

func TestParse_PostingAmounts(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		account   string
		amount    string
		quantity  string
		sign      string
		commodity string
	}{
		{"right commodity", "    a  5.00 USD", "a", "5.00 USD", "5.00", "", "USD"},
		{"left commodity", "    a  $5.00", "a", "$5.00", "5.00", "", "$"},
		{"negative left", "    a  $-5.00", "a", "$-5.00", "-5.00", "", "$"},
		{"sign before commodity", "    a  -$5.00", "a", "-$5.00", "5.00", "-", "$"},
		{"space grouping", "    a  1 000,50 EUR", "a", "1 000,50 EUR", "1 000,50", "", "EUR"},
		{"quoted commodity", "    a  10 \"AB 1\"", "a", "10 \"AB 1\"", "10", "", "\"AB 1\""},
		{"no commodity", "    a  -12", "a", "-12", "-12", "", ""},
		{"account with spaces", "    assets:my bank\t100 RUB", "assets:my bank", "100 RUB", "100", "", "RUB"},
		{"unicode account", "    расходы:еда  200 ₽", "расходы:еда", "200 ₽", "200", "", "₽"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := parse(t, "2024-01-01 x\n"+tt.line+"\n")
			require.Empty(t, tree.Errors)

			tx := tree.Children(tree.Root)[0]
			posting := tree.Child(tx, KindPosting)
			require.NotEqual(t, NoNode, posting)
			assert.Equal(t, tt.account, childText(tree, posting, KindAccount))

			amount := tree.Child(posting, KindAmount)
			require.NotEqual(t, NoNode, amount)
			assert.Equal(t, tt.amount, tree.Text(amount))
			assert.Equal(t, tt.quantity, childText(tree, amount, KindQuantity))
			assert.Equal(t, tt.sign, childText(tree, amount, KindSign))
			assert.Equal(t, tt.commodity, childText(tree, amount, KindCommodity))
		})
	}
}

func TestParse_PostingTail(t *testing.T) {
	input := "2024-01-01 x\n" +
		"    * assets:stock  10 AAPL {$150} [2024-01-01] @ $155  ; bought\n" +
		"    assets:bank  $-1550 == $0\n" +
		"    (budget:food)  ($10 * 2)\n" +
		"    [assets:cash]  =* 0\n"
	tree := parse(t, input)
	require.Empty(t, tree.Errors)

	tx := tree.Children(tree.Root)[0]
	var postings []NodeID
	for _, c := range tree.Children(tx) {
		if tree.Kind(c) == KindPosting {
			postings = append(postings, c)
		}
	}
	require.Len(t, postings, 4)

	p := postings[0]
	assert.Equal(t, "*", childText(tree, p, KindStatus))
	assert.Equal(t, "assets:stock", childText(tree, p, KindAccount))
	var annotations []string
	for _, c := range tree.Children(p) {
		if tree.Kind(c) == KindAnnotation {
			annotations = append(annotations, tree.Text(c))
		}
	}
	assert.Equal(t, []string{"{$150}", "[2024-01-01]"}, annotations)
	cost := tree.Child(p, KindCost)
	require.NotEqual(t, NoNode, cost)
	assert.Equal(t, "@ $155", tree.Text(cost))
	assert.Equal(t, "@", childText(tree, cost, KindOperator))
	assert.Equal(t, "; bought", childText(tree, p, KindComment))

	assertion := tree.Child(postings[1], KindAssertion)
	require.NotEqual(t, NoNode, assertion)
	assert.Equal(t, "==", childText(tree, assertion, KindOperator))
	assert.Equal(t, "$0", childText(tree, assertion, KindAmount))

	assert.Equal(t, "(budget:food)", childText(tree, postings[2], KindAccount))
	expr := tree.Child(postings[2], KindAmount)
	assert.Equal(t, "($10 * 2)", childText(tree, expr, KindExpression))

	assert.Equal(t, "[assets:cash]", childText(tree, postings[3], KindAccount))
	assertion = tree.Child(postings[3], KindAssertion)
	assert.Equal(t, "=*", childText(tree, assertion, KindOperator))
	assert.Equal(t, NoNode, tree.Child(postings[3], KindAmount))
}

func TestParse_InvalidPostingsDemoteTransaction(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"unclosed virtual account", "    (assets:cash  5"},
		{"missing cost amount", "    assets:cash  5 USD @"},
		{"garbage after amount", "    assets:cash  5 USD garbage here"},
		{"unclosed annotation", "    assets:cash  5 USD {3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := "2024-01-01 x\n    expenses:food  5 USD\n" + tt.line + "\n\n2024-01-02 y\n    a  1\n    b\n"
			tree := parse(t, input)

			assert.Equal(t, []NodeKind{KindError, KindBlankLine, KindTransaction}, topKinds(tree))
			require.Len(t, tree.Errors, 1)
			assert.Equal(t, 3, tree.Errors[0].Line)

			raw := tree.Children(tree.Root)[0]
			assert.Empty(t, tree.Children(raw))
			assert.Equal(t, "2024-01-01 x\n    expenses:food  5 USD\n"+tt.line, tree.Text(raw))
		})
	}
}

func TestParse_NotesAndComments(t *testing.T) {
	input := "; top comment\n" +
		"# hash comment\n" +
		"2024-01-01 x\n" +
		"    ; header note\n" +
		"    a  1\n" +
		"    # posting note\n" +
		"    b\n"
	tree := parse(t, input)

	assert.Equal(t, []NodeKind{KindCommentLine, KindCommentLine, KindTransaction}, topKinds(tree))
	tx := tree.Children(tree.Root)[2]

	var kinds []NodeKind
	for _, c := range tree.Children(tx) {
		kinds = append(kinds, tree.Kind(c))
	}
	assert.Equal(t, []NodeKind{KindDate, KindPayee, KindNote, KindPosting, KindNote, KindPosting}, kinds)
	assert.Equal(t, "; header note", childText(tree, tx, KindNote))
}

func TestParse_PeriodicAndAutomated(t *testing.T) {
	tree := parse(t, "~ monthly from 2024  ; budget\n    expenses:rent  $1000\n    assets\n\n= expenses:food\n    (budget:food)  *-1\n")
	require.Equal(t, []NodeKind{KindPeriodicTransaction, KindBlankLine, KindAutomatedTransaction}, topKinds(tree), "%v", tree.Errors)

	periodic := tree.Children(tree.Root)[0]
	assert.Equal(t, "monthly from 2024", childText(tree, periodic, KindInterval))
	assert.Equal(t, "; budget", childText(tree, periodic, KindComment))

	automated := tree.Children(tree.Root)[2]
	assert.Equal(t, "expenses:food", childText(tree, automated, KindQuery))
}

func TestParse_AutomatedMultiplier(t *testing.T) {
	tree := parse(t, "= expenses:food\n    (budget:food)  *-1\n")
	require.Empty(t, tree.Errors)

	posting := tree.Child(tree.Children(tree.Root)[0], KindPosting)
	amount := tree.Child(posting, KindAmount)
	assert.Equal(t, "*-1", tree.Text(amount))
	assert.Equal(t, "*", childText(tree, amount, KindOperator))
	assert.Equal(t, "-1", childText(tree, amount, KindQuantity))

	tree = parse(t, "~\n    a  1\n")
	assert.Equal(t, []NodeKind{KindError}, topKinds(tree))
}

func TestParse_Directives(t *testing.T) {
	input := "account assets:cash  ; petty\n" +
		"    note small purchases\n" +
		"    alias cash\n" +
		"!include other.journal\n" +
		"--input-date-format %Y\n" +
		"P 2024-01-01 EUR $1.10\n"
	tree := parse(t, input)
	require.Empty(t, tree.Errors)
	require.Equal(t, []NodeKind{KindDirective, KindDirective, KindDirective, KindDirective}, topKinds(tree))

	account := tree.Children(tree.Root)[0]
	assert.Equal(t, "account", childText(tree, account, KindKeyword))
	assert.Equal(t, "assets:cash  ; petty", childText(tree, account, KindArgument))

	var lines []string
	for _, c := range tree.Children(account) {
		if tree.Kind(c) == KindLine {
			lines = append(lines, tree.Text(c))
		}
	}
	assert.Equal(t, []string{"account assets:cash  ; petty", "    note small purchases", "    alias cash"}, lines)

	include := tree.Children(tree.Root)[1]
	assert.Equal(t, "!include", childText(tree, include, KindKeyword))
	assert.Equal(t, "other.journal", childText(tree, include, KindArgument))

	assert.Equal(t, "--input-date-format", childText(tree, tree.Children(tree.Root)[2], KindKeyword))
}

func TestParse_CommentBlock(t *testing.T) {
	input := "comment\n2024-01-01 not a transaction\n\n  indented\nend comment\n2024-01-01 x\n    a  1\n    b\n"
	tree := parse(t, input)

	require.Equal(t, []NodeKind{KindDirective, KindTransaction}, topKinds(tree))
	block := tree.Children(tree.Root)[0]
	assert.Equal(t, "comment\n2024-01-01 not a transaction\n\n  indented\nend comment", tree.Text(block))

	tree = parse(t, "test\nno end\n")
	require.Equal(t, []NodeKind{KindDirective}, topKinds(tree))
	assert.Equal(t, "test\nno end", tree.Text(tree.Children(tree.Root)[0]))
}

func TestParse_UnknownDirective(t *testing.T) {
	input := "2024-01-01 x\n    a  1\n    b\n\nfrobnicate   the   ledger  \n    with sub line\n"
	tree := parse(t, input)

	require.Equal(t, []NodeKind{KindTransaction, KindBlankLine, KindError}, topKinds(tree))
	raw := tree.Children(tree.Root)[2]
	assert.Equal(t, "frobnicate   the   ledger  \n    with sub line", tree.Text(raw))
	require.Len(t, tree.Errors, 1)
	assert.Equal(t, 5, tree.Errors[0].Line)
	assert.Equal(t, 1, tree.Errors[0].Column)
}

func TestParse_OrphanIndentedLines(t *testing.T) {
	tree := parse(t, "  stray line\n\tanother\n2024-01-01 x\n")
	assert.Equal(t, []NodeKind{KindError, KindTransaction}, topKinds(tree))
	assert.Equal(t, "  stray line\n\tanother", tree.Text(tree.Children(tree.Root)[0]))
}

func TestParse_CRLF(t *testing.T) {
	tree := parse(t, "2024-01-01 x\r\n    a  1 USD  \r\n    b\r\n\r\n; done\r\n")
	require.Equal(t, []NodeKind{KindTransaction, KindBlankLine, KindCommentLine}, topKinds(tree))

	tx := tree.Children(tree.Root)[0]
	assert.Equal(t, "x", childText(tree, tx, KindPayee))
	posting := tree.Child(tx, KindPosting)
	assert.Equal(t, "1 USD", childText(tree, posting, KindAmount))
	assert.Equal(t, "; done", tree.Text(tree.Children(tree.Root)[2]))
}

func TestParse_Empty(t *testing.T) {
	tree := parse(t, "")
	assert.Empty(t, tree.Children(tree.Root))
	assert.Empty(t, tree.Errors)
}

func TestParse_Fatal(t *testing.T) {
	_, err := Parse([]byte("2024-01-01 x\n    a  1\x00\n"))
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 2, perr.Line)
	assert.Equal(t, 9, perr.Column)
	assert.Equal(t, 21, perr.Offset)

	_, err = Parse([]byte("2024-01-01 \xff\n"))
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "1:12: expected valid UTF-8", perr.Error())
}

func TestParse_SpansCoverSource(t *testing.T) {
	input := "2024-01-01 x\n    a  1\n    b\n\n; c\n"
	tree := parse(t, input)
	for _, id := range tree.Children(tree.Root) {
		span := tree.Span(id)
		assert.LessOrEqual(t, span.End, len(input))
		assert.Equal(t, tree.Root, tree.Node(id).Parent)
	}
}
