package model

import (
	"fmt"
	"strings"

	"github.com/juev/ledger-beautifier/internal/ast"
	"github.com/juev/ledger-beautifier/internal/parser"
)

// ModelError means the tree broke a structural contract the builder relies
// on. It is never recoverable.
type ModelError struct {
	Offset int
	Kind   parser.NodeKind
	Reason string
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("offset %d: %s node: %s", e.Offset, e.Kind, e.Reason)
}

type builder struct {
	tree *parser.Tree
}

// Build converts the children of the tree root into blocks, in source order.
func Build(tree *parser.Tree) ([]ast.Block, error) {
	b := &builder{tree: tree}
	children := tree.Children(tree.Root)
	blocks := make([]ast.Block, 0, len(children))

	for _, id := range children {
		block, err := b.block(id)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

func (b *builder) block(id parser.NodeID) (ast.Block, error) {
	span := b.tree.Span(id)

	switch kind := b.tree.Kind(id); kind {
	case parser.KindTransaction, parser.KindPeriodicTransaction, parser.KindAutomatedTransaction:
		return b.transaction(id)
	case parser.KindDirective:
		return b.directive(id), nil
	case parser.KindCommentLine:
		return &ast.CommentLine{Text: b.tree.Text(id), Span: span}, nil
	case parser.KindBlankLine:
		return &ast.BlankLine{Span: span}, nil
	case parser.KindError:
		return &ast.RawPassthrough{Text: b.tree.Text(id), Span: span}, nil
	default:
		return nil, b.fail(id, "unexpected node at journal level")
	}
}

func (b *builder) transaction(id parser.NodeID) (*ast.Transaction, error) {
	tx := &ast.Transaction{Span: b.tree.Span(id)}

	switch b.tree.Kind(id) {
	case parser.KindPeriodicTransaction:
		tx.Kind = ast.TransactionPeriodic
	case parser.KindAutomatedTransaction:
		tx.Kind = ast.TransactionAutomated
	default:
		tx.Kind = ast.TransactionPlain
		if b.tree.Child(id, parser.KindDate) == parser.NoNode {
			return nil, b.fail(id, "transaction without date")
		}
	}

	for _, c := range b.tree.Children(id) {
		text := strings.TrimSpace(b.tree.Text(c))
		switch b.tree.Kind(c) {
		case parser.KindDate:
			tx.Date = text
		case parser.KindDate2:
			tx.Date2 = text
		case parser.KindStatus:
			tx.Status = text
		case parser.KindCode:
			tx.Code = text
		case parser.KindPayee:
			tx.Payee = text
		case parser.KindInterval, parser.KindQuery:
			tx.Expression = text
		case parser.KindComment:
			tx.Comment = text
		case parser.KindNote:
			comment := ast.Comment{Text: text, Span: b.tree.Span(c)}
			if n := len(tx.Postings); n > 0 {
				tx.Postings[n-1].Comments = append(tx.Postings[n-1].Comments, comment)
			} else {
				tx.Comments = append(tx.Comments, comment)
			}
		case parser.KindPosting:
			posting, err := b.posting(c)
			if err != nil {
				return nil, err
			}
			tx.Postings = append(tx.Postings, posting)
		default:
			return nil, b.fail(c, "unexpected node in transaction")
		}
	}
	return tx, nil
}

func (b *builder) posting(id parser.NodeID) (ast.Posting, error) {
	posting := ast.Posting{Span: b.tree.Span(id)}

	account := b.tree.Child(id, parser.KindAccount)
	if account == parser.NoNode {
		return posting, b.fail(id, "posting without account")
	}

	for _, c := range b.tree.Children(id) {
		switch b.tree.Kind(c) {
		case parser.KindStatus:
			posting.Status = b.tree.Text(c)
		case parser.KindAccount:
			posting.Account = b.account(c)
		case parser.KindAmount:
			amount, err := b.amount(c)
			if err != nil {
				return posting, err
			}
			posting.Amount = amount
		case parser.KindAnnotation:
			posting.Annotations = append(posting.Annotations, b.tree.Text(c))
		case parser.KindCost:
			cost, err := b.cost(c)
			if err != nil {
				return posting, err
			}
			posting.Cost = cost
		case parser.KindAssertion:
			assertion, err := b.assertion(c)
			if err != nil {
				return posting, err
			}
			posting.Assertion = assertion
		case parser.KindComment:
			posting.Comment = strings.TrimSpace(b.tree.Text(c))
		default:
			return posting, b.fail(c, "unexpected node in posting")
		}
	}
	return posting, nil
}

func (b *builder) account(id parser.NodeID) ast.Account {
	text := b.tree.Text(id)
	account := ast.Account{Name: text, Span: b.tree.Span(id)}

	if len(text) >= 2 {
		switch {
		case text[0] == '(' && text[len(text)-1] == ')':
			account.Name, account.Virtual = text[1:len(text)-1], ast.VirtualUnbalanced
		case text[0] == '[' && text[len(text)-1] == ']':
			account.Name, account.Virtual = text[1:len(text)-1], ast.VirtualBalanced
		}
	}
	return account
}

func (b *builder) amount(id parser.NodeID) (*ast.Amount, error) {
	amount := &ast.Amount{Raw: b.tree.Text(id), Span: b.tree.Span(id)}

	if b.tree.Child(id, parser.KindExpression) != parser.NoNode {
		return amount, nil
	}

	var sign string
	for _, c := range b.tree.Children(id) {
		switch b.tree.Kind(c) {
		case parser.KindSign:
			sign = b.tree.Text(c)
		case parser.KindQuantity:
			amount.Quantity = b.tree.Text(c)
		case parser.KindCommodity:
			amount.Commodity = b.tree.Text(c)
		case parser.KindOperator:
		default:
			return nil, b.fail(c, "unexpected node in amount")
		}
	}
	if amount.Quantity == "" {
		return nil, b.fail(id, "amount without quantity")
	}
	amount.Quantity = sign + amount.Quantity
	return amount, nil
}

func (b *builder) cost(id parser.NodeID) (*ast.Cost, error) {
	cost := &ast.Cost{
		IsTotal: b.tree.Text(b.tree.Child(id, parser.KindOperator)) == "@@",
		Span:    b.tree.Span(id),
	}
	amountID := b.tree.Child(id, parser.KindAmount)
	if amountID == parser.NoNode {
		return nil, b.fail(id, "cost without amount")
	}
	amount, err := b.amount(amountID)
	if err != nil {
		return nil, err
	}
	cost.Amount = *amount
	return cost, nil
}

func (b *builder) assertion(id parser.NodeID) (*ast.BalanceAssertion, error) {
	operator := b.tree.Child(id, parser.KindOperator)
	if operator == parser.NoNode {
		return nil, b.fail(id, "balance assertion without operator")
	}
	assertion := &ast.BalanceAssertion{
		Operator: b.tree.Text(operator),
		Span:     b.tree.Span(id),
	}
	if amountID := b.tree.Child(id, parser.KindAmount); amountID != parser.NoNode {
		amount, err := b.amount(amountID)
		if err != nil {
			return nil, err
		}
		assertion.Amount = amount
	}
	return assertion, nil
}

func (b *builder) directive(id parser.NodeID) *ast.Directive {
	dir := &ast.Directive{Span: b.tree.Span(id)}
	for _, c := range b.tree.Children(id) {
		switch b.tree.Kind(c) {
		case parser.KindKeyword:
			dir.Keyword = b.tree.Text(c)
		case parser.KindArgument:
			dir.Argument = b.tree.Text(c)
		case parser.KindLine:
			dir.Lines = append(dir.Lines, b.tree.Text(c))
		}
	}
	return dir
}

func (b *builder) fail(id parser.NodeID, reason string) *ModelError {
	return &ModelError{
		Offset: b.tree.Span(id).Start,
		Kind:   b.tree.Kind(id),
		Reason: reason,
	}
}
