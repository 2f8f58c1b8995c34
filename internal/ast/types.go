package ast

// Span is a half-open byte range into the original source buffer.
type Span struct {
	Start int
	End   int
}

func (s Span) Len() int {
	return s.End - s.Start
}

// Block is one top-level item of a journal, in source order.
// The set of implementations is closed: *Transaction, *Directive,
// *CommentLine, *BlankLine and *RawPassthrough.
type Block interface {
	block()
	GetSpan() Span
}

type TransactionKind int

const (
	TransactionPlain TransactionKind = iota
	TransactionPeriodic
	TransactionAutomated
)

func (k TransactionKind) String() string {
	switch k {
	case TransactionPeriodic:
		return "periodic"
	case TransactionAutomated:
		return "automated"
	default:
		return "plain"
	}
}

type Transaction struct {
	Kind  TransactionKind
	Date  string
	Date2 string
	// Status is the clearance marker ("*" or "!"), empty when absent.
	Status string
	Code   string
	Payee  string
	// Expression holds the interval of a periodic transaction or the
	// query of an automated one.
	Expression string
	Comment    string
	Comments   []Comment
	Postings   []Posting
	Span       Span
}

func (*Transaction) block()          {}
func (t *Transaction) GetSpan() Span { return t.Span }

type VirtualType int

const (
	VirtualNone VirtualType = iota
	VirtualBalanced
	VirtualUnbalanced
)

type Account struct {
	Name    string
	Virtual VirtualType
	Span    Span
}

// Display returns the account as written, with virtual brackets.
func (a Account) Display() string {
	switch a.Virtual {
	case VirtualUnbalanced:
		return "(" + a.Name + ")"
	case VirtualBalanced:
		return "[" + a.Name + "]"
	default:
		return a.Name
	}
}

type Posting struct {
	Status      string
	Account     Account
	Amount      *Amount
	Annotations []string
	Cost        *Cost
	Assertion   *BalanceAssertion
	// Comment is the inline comment including its marker.
	Comment  string
	Comments []Comment
	Span     Span
}

// Elided reports whether the posting carries nothing after the account.
func (p *Posting) Elided() bool {
	return p.Amount == nil && len(p.Annotations) == 0 && p.Cost == nil && p.Assertion == nil
}

type Amount struct {
	// Raw is the amount exactly as written in the source.
	Raw       string
	Quantity  string
	Commodity string
	Span      Span
}

type Cost struct {
	Amount  Amount
	IsTotal bool
	Span    Span
}

func (c *Cost) Operator() string {
	if c.IsTotal {
		return "@@"
	}
	return "@"
}

type BalanceAssertion struct {
	// Operator is one of "=", "==", "=*" or "==*".
	Operator string
	Amount   *Amount
	Span     Span
}

type Comment struct {
	Text string
	Span Span
}

type Directive struct {
	Keyword  string
	Argument string
	// Lines holds every source line of the directive, sub-directives
	// and block bodies included, without line terminators.
	Lines []string
	Span  Span
}

func (*Directive) block()          {}
func (d *Directive) GetSpan() Span { return d.Span }

type CommentLine struct {
	Text string
	Span Span
}

func (*CommentLine) block()          {}
func (c *CommentLine) GetSpan() Span { return c.Span }

type BlankLine struct {
	Span Span
}

func (*BlankLine) block()          {}
func (b *BlankLine) GetSpan() Span { return b.Span }

// RawPassthrough carries source bytes the grammar could not recognize.
type RawPassthrough struct {
	Text string
	Span Span
}

func (*RawPassthrough) block()          {}
func (r *RawPassthrough) GetSpan() Span { return r.Span }
