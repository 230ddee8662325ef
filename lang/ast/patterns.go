package ast

import "github.com/anissen/delta/lang/token"

// Pattern is implemented by every is-expression arm pattern.
type Pattern interface {
	Node
	pattern()
}

type (
	// LiteralPattern matches a scrutinee structurally equal to Lit.
	LiteralPattern struct {
		Lit Expr // *IntLit, *FloatLit, *BoolLit or *StringLit
	}

	// SimpleTagPattern matches a SimpleTag value named Name.
	SimpleTagPattern struct {
		Pos  token.Pos
		Name string
	}

	// TagPattern matches a Tag value named Name whose payload matches
	// Payload (a LiteralPattern) or is bound to Payload (an IdentPattern).
	TagPattern struct {
		Pos     token.Pos
		Name    string
		Payload Pattern
	}

	// IdentPattern binds the whole scrutinee to Name; it always matches.
	IdentPattern struct {
		NamePos token.Pos
		Name    string
	}

	// WildcardPattern is `_`: it always matches and never binds.
	WildcardPattern struct {
		Pos token.Pos
	}
)

func (*LiteralPattern) pattern()   {}
func (*SimpleTagPattern) pattern() {}
func (*TagPattern) pattern()       {}
func (*IdentPattern) pattern()     {}
func (*WildcardPattern) pattern()  {}

func (n *LiteralPattern) Span() (token.Pos, token.Pos) { return n.Lit.Span() }
func (n *SimpleTagPattern) Span() (token.Pos, token.Pos) { return n.Pos, n.Pos }
func (n *TagPattern) Span() (token.Pos, token.Pos) {
	if n.Payload != nil {
		_, end := n.Payload.Span()
		return n.Pos, end
	}
	return n.Pos, n.Pos
}
func (n *IdentPattern) Span() (token.Pos, token.Pos) { return n.NamePos, n.NamePos }
func (n *WildcardPattern) Span() (token.Pos, token.Pos) { return n.Pos, n.Pos }
