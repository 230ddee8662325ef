package parser

import (
	"github.com/anissen/delta/lang/ast"
	"github.com/anissen/delta/lang/token"
)

// parseExpr parses a full expression, starting at the lowest precedence
// level (pipeline) and descending through the fixed precedence chain in
// spec.md §4.2.
func (p *parser) parseExpr() ast.Expr {
	return p.parsePipeline()
}

// startsExpr reports whether the current token can begin an expression,
// used both to decide when a pipeline's argument list ends and when a tag
// construction has a payload.
func (p *parser) startsExpr() bool {
	switch p.tok {
	case token.INT, token.FLOAT, token.TRUE, token.FALSE, token.STRING,
		token.IDENT, token.TAG, token.LPAREN, token.BACKSLASH, token.MINUS:
		return true
	default:
		return false
	}
}

// parsePipeline implements level 1: `L | F A1 A2 … Ak`, left-associative.
// F must be a plain identifier; the arguments are gathered greedily at
// unary-minus precedence (level 9) until a token that cannot start an
// expression is reached.
func (p *parser) parsePipeline() ast.Expr {
	left := p.parseOr()
	for p.tok == token.PIPE {
		bar := p.val.Pos
		p.advance()
		if p.tok != token.IDENT {
			p.errorf(UnexpectedToken, p.val.Pos, "pipeline target must be a function name, found %s", p.tok)
		}
		fn := ast.Ident{NamePos: p.val.Pos, Name: p.val.Raw}
		p.advance()

		args := []ast.Expr{left}
		for p.startsExpr() {
			args = append(args, p.parseUnaryMinus())
		}
		left = &ast.CallExpr{Func: fn, Args: args, Bar: bar}
	}
	return left
}

// parseOr implements level 2: `or`, left-associative.
func (p *parser) parseOr() ast.Expr {
	left := p.parseAnd()
	for p.tok == token.OR {
		pos := p.val.Pos
		p.advance()
		right := p.parseAnd()
		left = &ast.BinaryExpr{Left: left, OpPos: pos, Op: token.OR, Right: right}
	}
	return left
}

// parseAnd implements level 3: `and`, left-associative.
func (p *parser) parseAnd() ast.Expr {
	left := p.parseNot()
	for p.tok == token.AND {
		pos := p.val.Pos
		p.advance()
		right := p.parseNot()
		left = &ast.BinaryExpr{Left: left, OpPos: pos, Op: token.AND, Right: right}
	}
	return left
}

// parseNot implements level 4: prefix `not`.
func (p *parser) parseNot() ast.Expr {
	if p.tok == token.NOT {
		pos := p.val.Pos
		p.advance()
		return &ast.UnaryExpr{OpPos: pos, Op: token.NOT, X: p.parseNot()}
	}
	return p.parseEquality()
}

// parseEquality implements level 5: `==` `!=`, left-associative.
func (p *parser) parseEquality() ast.Expr {
	left := p.parseComparison()
	for p.tok == token.EQEQ || p.tok == token.NEQ {
		op, pos := p.tok, p.val.Pos
		p.advance()
		right := p.parseComparison()
		left = &ast.BinaryExpr{Left: left, OpPos: pos, Op: op, Right: right}
	}
	return left
}

// parseComparison implements level 6: ordering comparisons, both integer
// and float-specific, left-associative.
func (p *parser) parseComparison() ast.Expr {
	left := p.parseAdditive()
	for isOrderingOp(p.tok) {
		op, pos := p.tok, p.val.Pos
		p.advance()
		right := p.parseAdditive()
		left = &ast.BinaryExpr{Left: left, OpPos: pos, Op: op, Right: right}
	}
	return left
}

func isOrderingOp(tok token.Token) bool {
	switch tok {
	case token.LT, token.GT, token.LE, token.GE,
		token.FLT_LT, token.FLT_GT, token.FLT_LE, token.FLT_GE:
		return true
	default:
		return false
	}
}

// parseAdditive implements level 7: `+` `-`, left-associative.
func (p *parser) parseAdditive() ast.Expr {
	left := p.parseMultiplicative()
	for p.tok.IsAdditive() {
		op, pos := p.tok, p.val.Pos
		p.advance()
		right := p.parseMultiplicative()
		left = &ast.BinaryExpr{Left: left, OpPos: pos, Op: op, Right: right}
	}
	return left
}

// parseMultiplicative implements level 8: `*` `/` `%`, left-associative.
func (p *parser) parseMultiplicative() ast.Expr {
	left := p.parseUnaryMinus()
	for p.tok.IsMultiplicative() {
		op, pos := p.tok, p.val.Pos
		p.advance()
		right := p.parseUnaryMinus()
		left = &ast.BinaryExpr{Left: left, OpPos: pos, Op: op, Right: right}
	}
	return left
}

// parseUnaryMinus implements level 9. Most negative numeric literals are
// already folded into INT/FLOAT tokens by the lexer; this only fires for a
// '-' applied to a non-literal operand, e.g. `-x`.
func (p *parser) parseUnaryMinus() ast.Expr {
	if p.tok == token.MINUS {
		pos := p.val.Pos
		p.advance()
		return &ast.UnaryExpr{OpPos: pos, Op: token.MINUS, X: p.parseUnaryMinus()}
	}
	return p.parsePrimary()
}

// parsePrimary implements level 10. An `is` expression is recognized here
// by looking past an already-parsed atom for the `is` keyword, since its
// scrutinee is itself a primary.
func (p *parser) parsePrimary() ast.Expr {
	atom := p.parseAtom()
	if p.tok == token.IS {
		isPos := p.val.Pos
		p.advance()
		return p.parseIsExpr(atom, isPos)
	}
	return atom
}

func (p *parser) parseAtom() ast.Expr {
	switch p.tok {
	case token.INT:
		v := p.val
		p.advance()
		return &ast.IntLit{Pos: v.Pos, Val: v.Int, Raw: v.Raw}
	case token.FLOAT:
		v := p.val
		p.advance()
		return &ast.FloatLit{Pos: v.Pos, Val: v.Float, Raw: v.Raw}
	case token.TRUE:
		pos := p.val.Pos
		p.advance()
		return &ast.BoolLit{Pos: pos, Val: true}
	case token.FALSE:
		pos := p.val.Pos
		p.advance()
		return &ast.BoolLit{Pos: pos, Val: false}
	case token.STRING:
		return p.parseStringLit()
	case token.IDENT:
		v := p.val
		p.advance()
		return &ast.Ident{NamePos: v.Pos, Name: v.Raw}
	case token.TAG:
		return p.parseTagExpr()
	case token.LPAREN:
		lp := p.val.Pos
		p.advance()
		x := p.parseExpr()
		rp := p.expect(token.RPAREN)
		return &ast.ParenExpr{Lparen: lp, X: x, Rparen: rp}
	case token.BACKSLASH:
		return p.parseLambda()
	default:
		pos := p.val.Pos
		p.errorf(UnexpectedToken, pos, "unexpected %s", p.tok)
		panic(errPanicMode)
	}
}

func (p *parser) parseStringLit() ast.Expr {
	start := p.val.Pos
	end := p.val.Pos
	var parts []ast.StringPart
	parts = append(parts, ast.StringPart{Text: p.val.Str})
	p.advance()

	for p.tok == token.INTERP_BEGIN {
		p.advance()
		e := p.parseExpr()
		parts = append(parts, ast.StringPart{Expr: e})
		end = p.val.Pos
		p.expect(token.INTERP_END)
		if p.tok != token.STRING {
			p.errorf(MalformedString, end, "expected string continuation after interpolation, found %s", p.tok)
			break
		}
		parts = append(parts, ast.StringPart{Text: p.val.Str})
		end = p.val.Pos
		p.advance()
	}
	return &ast.StringLit{Pos: start, End: end, Parts: parts}
}

func (p *parser) parseTagExpr() ast.Expr {
	pos, name := p.val.Pos, p.val.Str
	p.advance()
	if p.startsExpr() {
		payload := p.parseUnaryMinus()
		return &ast.TagExpr{Pos: pos, Name: name, Payload: payload}
	}
	return &ast.TagExpr{Pos: pos, Name: name}
}

func (p *parser) parseLambda() ast.Expr {
	bs := p.val.Pos
	p.advance()

	var params []ast.Ident
	for p.tok == token.IDENT {
		params = append(params, ast.Ident{NamePos: p.val.Pos, Name: p.val.Raw})
		p.advance()
	}
	body := p.parseIndentedBlock()
	return &ast.LambdaExpr{Backslash: bs, Params: params, Body: body}
}
