package parser

import (
	"github.com/anissen/delta/lang/ast"
	"github.com/anissen/delta/lang/token"
)

// parseIsExpr parses the arm list of `scrutinee is NEWLINE INDENT (...)+ DEDENT`.
// scrutinee and isPos (the position of the already-consumed `is` token) are
// supplied by parsePrimary, which recognized the keyword after an atom.
func (p *parser) parseIsExpr(scrutinee ast.Expr, isPos token.Pos) ast.Expr {
	p.expect(token.NEWLINE)
	p.expect(token.INDENT)

	var arms []ast.IsArm
	p.skipNewlines()
	for p.tok != token.DEDENT && p.tok != token.EOF {
		arms = append(arms, p.parseIsArm())
		p.skipNewlines()
	}
	end := p.expect(token.DEDENT)

	if len(arms) == 0 {
		p.errorf(MalformedIsExpr, isPos, "is-expression has no arms")
	}
	return &ast.IsExpr{IsPos: isPos, Scrutinee: scrutinee, Arms: arms, End: end}
}

func (p *parser) parseIsArm() ast.IsArm {
	pat := p.parsePattern()
	var guard ast.Expr
	if p.tok == token.IF {
		p.advance()
		guard = p.parseExpr()
	}
	body := p.parseIndentedBlock()
	return ast.IsArm{Pattern: pat, Guard: guard, Body: body}
}

func (p *parser) parsePattern() ast.Pattern {
	switch p.tok {
	case token.INT:
		v := p.val
		p.advance()
		return &ast.LiteralPattern{Lit: &ast.IntLit{Pos: v.Pos, Val: v.Int, Raw: v.Raw}}
	case token.FLOAT:
		v := p.val
		p.advance()
		return &ast.LiteralPattern{Lit: &ast.FloatLit{Pos: v.Pos, Val: v.Float, Raw: v.Raw}}
	case token.TRUE:
		pos := p.val.Pos
		p.advance()
		return &ast.LiteralPattern{Lit: &ast.BoolLit{Pos: pos, Val: true}}
	case token.FALSE:
		pos := p.val.Pos
		p.advance()
		return &ast.LiteralPattern{Lit: &ast.BoolLit{Pos: pos, Val: false}}
	case token.STRING:
		v := p.val
		p.advance()
		return &ast.LiteralPattern{Lit: &ast.StringLit{Pos: v.Pos, End: v.Pos, Parts: []ast.StringPart{{Text: v.Str}}}}
	case token.TAG:
		pos, name := p.val.Pos, p.val.Str
		p.advance()
		if p.startsPatternPayload() {
			return &ast.TagPattern{Pos: pos, Name: name, Payload: p.parsePatternPayload()}
		}
		return &ast.SimpleTagPattern{Pos: pos, Name: name}
	case token.UNDERSCORE:
		pos := p.val.Pos
		p.advance()
		return &ast.WildcardPattern{Pos: pos}
	case token.IDENT:
		v := p.val
		p.advance()
		return &ast.IdentPattern{NamePos: v.Pos, Name: v.Raw}
	default:
		pos := p.val.Pos
		p.errorf(MalformedPattern, pos, "unexpected %s in pattern", p.tok)
		panic(errPanicMode)
	}
}

// startsPatternPayload reports whether the current token can begin a tag
// payload pattern: a literal or an identifier binding (spec.md §4.2).
func (p *parser) startsPatternPayload() bool {
	switch p.tok {
	case token.INT, token.FLOAT, token.TRUE, token.FALSE, token.STRING, token.IDENT:
		return true
	default:
		return false
	}
}

func (p *parser) parsePatternPayload() ast.Pattern {
	switch p.tok {
	case token.IDENT:
		v := p.val
		p.advance()
		return &ast.IdentPattern{NamePos: v.Pos, Name: v.Raw}
	default:
		return p.parsePattern()
	}
}
