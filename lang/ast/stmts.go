package ast

import "github.com/anissen/delta/lang/token"

type (
	// LetStmt binds Value to Name. A LetStmt whose Value is a *LambdaExpr
	// declares a named function; any other Value declares a plain local.
	LetStmt struct {
		NamePos token.Pos
		Name    string
		Eq      token.Pos
		Value   Expr
	}

	// ExprStmt is a bare expression used as a statement. At the end of a
	// chunk or lambda body, its value is the chunk's or function's result.
	ExprStmt struct {
		X Expr
	}

	// BadStmt is a placeholder for a statement that failed to parse, used
	// to let parsing continue after a syntax error instead of aborting.
	BadStmt struct {
		Start, End token.Pos
	}
)

func (*LetStmt) stmt()  {}
func (*ExprStmt) stmt() {}
func (*BadStmt) stmt()  {}

func (n *BadStmt) Span() (token.Pos, token.Pos) { return n.Start, n.End }

func (n *LetStmt) Span() (token.Pos, token.Pos) {
	_, end := n.Value.Span()
	return n.NamePos, end
}
func (n *ExprStmt) Span() (token.Pos, token.Pos) { return n.X.Span() }
