package parser

import "github.com/juev/ledger-beautifier/internal/ast"

type NodeKind int

const (
	KindError NodeKind = iota

	KindJournal
	KindBlankLine
	KindCommentLine

	// Transactions
	KindTransaction
	KindPeriodicTransaction
	KindAutomatedTransaction
	KindDate
	KindDate2
	KindStatus
	KindCode
	KindPayee
	KindInterval
	KindQuery
	KindComment
	KindNote

	// Postings
	KindPosting
	KindAccount
	KindAmount
	KindSign
	KindQuantity
	KindCommodity
	KindExpression
	KindAnnotation
	KindCost
	KindAssertion
	KindOperator

	// Directives
	KindDirective
	KindKeyword
	KindArgument
	KindLine
)

var nodeKindNames = map[NodeKind]string{
	KindError:                "Error",
	KindJournal:              "Journal",
	KindBlankLine:            "BlankLine",
	KindCommentLine:          "CommentLine",
	KindTransaction:          "Transaction",
	KindPeriodicTransaction:  "PeriodicTransaction",
	KindAutomatedTransaction: "AutomatedTransaction",
	KindDate:                 "Date",
	KindDate2:                "Date2",
	KindStatus:               "Status",
	KindCode:                 "Code",
	KindPayee:                "Payee",
	KindInterval:             "Interval",
	KindQuery:                "Query",
	KindComment:              "Comment",
	KindNote:                 "Note",
	KindPosting:              "Posting",
	KindAccount:              "Account",
	KindAmount:               "Amount",
	KindSign:                 "Sign",
	KindQuantity:             "Quantity",
	KindCommodity:            "Commodity",
	KindExpression:           "Expression",
	KindAnnotation:           "Annotation",
	KindCost:                 "Cost",
	KindAssertion:            "Assertion",
	KindOperator:             "Operator",
	KindDirective:            "Directive",
	KindKeyword:              "Keyword",
	KindArgument:             "Argument",
	KindLine:                 "Line",
}

func (k NodeKind) String() string {
	if name, ok := nodeKindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// NodeID addresses a node inside Tree.Nodes.
type NodeID int32

const NoNode NodeID = -1

type Node struct {
	Kind     NodeKind
	Span     ast.Span
	Parent   NodeID
	Children []NodeID
}

// Tree is an arena of nodes produced by Parse. Nodes refer to each other
// by index only, and every node's children are stored in source order.
type Tree struct {
	Source []byte
	Nodes  []Node
	Root   NodeID
	// Errors lists the regions the grammar recovered from. Each of them is
	// covered by a KindError node.
	Errors []ParseError
}

func (t *Tree) Node(id NodeID) *Node {
	return &t.Nodes[id]
}

func (t *Tree) Kind(id NodeID) NodeKind {
	return t.Nodes[id].Kind
}

func (t *Tree) Span(id NodeID) ast.Span {
	return t.Nodes[id].Span
}

func (t *Tree) Text(id NodeID) string {
	span := t.Nodes[id].Span
	return string(t.Source[span.Start:span.End])
}

func (t *Tree) Children(id NodeID) []NodeID {
	return t.Nodes[id].Children
}

// Child returns the first child of the given kind, or NoNode.
func (t *Tree) Child(id NodeID, kind NodeKind) NodeID {
	for _, c := range t.Nodes[id].Children {
		if t.Nodes[c].Kind == kind {
			return c
		}
	}
	return NoNode
}

func (t *Tree) add(kind NodeKind, span ast.Span, parent NodeID) NodeID {
	id := NodeID(len(t.Nodes))
	t.Nodes = append(t.Nodes, Node{Kind: kind, Span: span, Parent: parent})
	if parent != NoNode {
		t.Nodes[parent].Children = append(t.Nodes[parent].Children, id)
	}
	return id
}

// demote turns id into an error node and drops everything added after it.
// Only the most recently started subtree can be demoted.
func (t *Tree) demote(id NodeID) {
	t.Nodes = t.Nodes[:id+1]
	t.Nodes[id].Kind = KindError
	t.Nodes[id].Children = nil
}
