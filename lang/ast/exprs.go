package ast

import "github.com/anissen/delta/lang/token"

type (
	// IntLit is an integer literal, e.g. 42 or -7.
	IntLit struct {
		Pos token.Pos
		Val int64
		Raw string
	}

	// FloatLit is a float literal, e.g. 3.2 or -0.5.
	FloatLit struct {
		Pos token.Pos
		Val float64
		Raw string
	}

	// BoolLit is the true or false literal.
	BoolLit struct {
		Pos token.Pos
		Val bool
	}

	// StringLit is a string literal, possibly interleaved with interpolated
	// expressions. A literal with no interpolations has exactly one Parts
	// entry holding its full text.
	StringLit struct {
		Pos   token.Pos
		End   token.Pos
		Parts []StringPart
	}

	// StringPart is one segment of a StringLit: either a literal text run
	// (Expr is nil) or an interpolated expression (Text is empty).
	StringPart struct {
		Text string
		Expr Expr
	}

	// Ident is a bare identifier reference.
	Ident struct {
		NamePos token.Pos
		Name    string
	}

	// TagExpr constructs a SimpleTag (Payload == nil) or a Tag with exactly
	// one payload value.
	TagExpr struct {
		Pos     token.Pos
		Name    string
		Payload Expr // nil for a SimpleTag
	}

	// LambdaExpr is a `\p1 p2 ... pn <body>` function literal. Body is an
	// Expr, since a lambda's indented block is itself a single expression
	// (the last statement of the block, if the block has only one).
	LambdaExpr struct {
		Backslash token.Pos
		Params    []Ident
		Body      Expr
	}

	// CallExpr invokes Func (always an Ident naming an in-scope function)
	// with Args, including the piped-in left operand when parsed from a
	// pipeline. Bar, if valid, is the position of the '|' that introduced
	// this call.
	CallExpr struct {
		Func Ident
		Args []Expr
		Bar  token.Pos // Unknown() when the call was not written as a pipeline
	}

	// UnaryExpr is `not x` or a unary `-x` (the latter only when the lexer
	// did not fold the '-' into a numeric literal).
	UnaryExpr struct {
		OpPos token.Pos
		Op    token.Token
		X     Expr
	}

	// BinaryExpr is any binary operator application: or/and, comparisons,
	// arithmetic. A pipeline is parsed into a CallExpr instead.
	BinaryExpr struct {
		Left   Expr
		OpPos  token.Pos
		Op     token.Token
		Right  Expr
	}

	// ParenExpr is a parenthesized expression, kept in the tree only to
	// recover its span; it carries no semantics of its own.
	ParenExpr struct {
		Lparen token.Pos
		X      Expr
		Rparen token.Pos
	}

	// IsExpr is a pattern match over Scrutinee.
	IsExpr struct {
		IsPos     token.Pos
		Scrutinee Expr
		Arms      []IsArm
		End       token.Pos
	}

	// IsArm is one `pattern [if guard] <indented body>` clause of an
	// IsExpr.
	IsArm struct {
		Pattern Pattern
		Guard   Expr // nil if the arm has no guard
		Body    Expr
	}

	// BlockExpr is an indented sequence of statements evaluated for its
	// final ExprStmt's value: the body of a lambda or is-arm is one of
	// these whenever it holds more than a single trailing expression (e.g.
	// it contains local let bindings).
	BlockExpr struct {
		Start token.Pos
		Stmts []Stmt
		End   token.Pos
	}

	// BadExpr is a placeholder for an expression that failed to parse.
	BadExpr struct {
		Start, End token.Pos
	}
)

func (*IntLit) expr()     {}
func (*FloatLit) expr()   {}
func (*BoolLit) expr()    {}
func (*StringLit) expr()  {}
func (*Ident) expr()      {}
func (*TagExpr) expr()    {}
func (*LambdaExpr) expr() {}
func (*CallExpr) expr()   {}
func (*UnaryExpr) expr()  {}
func (*BinaryExpr) expr() {}
func (*ParenExpr) expr()  {}
func (*IsExpr) expr()     {}
func (*BlockExpr) expr()  {}
func (*BadExpr) expr()    {}

func (n *IntLit) Span() (token.Pos, token.Pos)   { return n.Pos, n.Pos }
func (n *FloatLit) Span() (token.Pos, token.Pos) { return n.Pos, n.Pos }
func (n *BoolLit) Span() (token.Pos, token.Pos)  { return n.Pos, n.Pos }
func (n *StringLit) Span() (token.Pos, token.Pos) { return n.Pos, n.End }
func (n *Ident) Span() (token.Pos, token.Pos)    { return n.NamePos, n.NamePos }
func (n *TagExpr) Span() (token.Pos, token.Pos) {
	if n.Payload != nil {
		_, end := n.Payload.Span()
		return n.Pos, end
	}
	return n.Pos, n.Pos
}
func (n *LambdaExpr) Span() (token.Pos, token.Pos) {
	_, end := n.Body.Span()
	return n.Backslash, end
}
func (n *CallExpr) Span() (token.Pos, token.Pos) {
	start, _ := n.Func.Span()
	if len(n.Args) > 0 {
		_, end := n.Args[len(n.Args)-1].Span()
		return start, end
	}
	return start, start
}
func (n *UnaryExpr) Span() (token.Pos, token.Pos) {
	_, end := n.X.Span()
	return n.OpPos, end
}
func (n *BinaryExpr) Span() (token.Pos, token.Pos) {
	start, _ := n.Left.Span()
	_, end := n.Right.Span()
	return start, end
}
func (n *ParenExpr) Span() (token.Pos, token.Pos) { return n.Lparen, n.Rparen }
func (n *IsExpr) Span() (token.Pos, token.Pos)    { return n.IsPos, n.End }
func (n *BlockExpr) Span() (token.Pos, token.Pos) { return n.Start, n.End }
func (n *BadExpr) Span() (token.Pos, token.Pos)   { return n.Start, n.End }

