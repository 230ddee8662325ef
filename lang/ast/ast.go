// Package ast defines the abstract syntax tree produced by the parser.
package ast

import "github.com/anissen/delta/lang/token"

// Node is implemented by every AST node.
type Node interface {
	// Span reports the start and end position of the node.
	Span() (start, end token.Pos)
}

// Expr is implemented by every expression node. delta is expression-
// oriented: almost every construct, including is-expressions and lambda
// bodies, is an Expr.
type Expr interface {
	Node
	expr()
}

// Stmt is implemented by every top-level statement node.
type Stmt interface {
	Node
	stmt()
}

// Chunk is the root of a parsed source file: an ordered list of top-level
// statements. The value of the final statement, if it is an expression
// statement, becomes the result of the main chunk.
type Chunk struct {
	Stmts []Stmt
	EOF   token.Pos
}

func (c *Chunk) Span() (token.Pos, token.Pos) {
	if len(c.Stmts) == 0 {
		return c.EOF, c.EOF
	}
	start, _ := c.Stmts[0].Span()
	return start, c.EOF
}

