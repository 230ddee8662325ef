package parser

import (
	"github.com/anissen/delta/lang/ast"
	"github.com/anissen/delta/lang/token"
)

func (p *parser) parseStmt() ast.Stmt {
	if p.tok == token.IDENT && p.tok2 == token.EQ {
		namePos, name := p.val.Pos, p.val.Raw
		p.advance()
		eq := p.expect(token.EQ)
		val := p.parseExpr()
		return &ast.LetStmt{NamePos: namePos, Name: name, Eq: eq, Value: val}
	}
	return &ast.ExprStmt{X: p.parseExpr()}
}

// parseIndentedBlock parses `NEWLINE INDENT stmt+ DEDENT`, unwrapping to a
// bare Expr when the block holds exactly one trailing expression statement
// (the common case for lambda and is-arm bodies).
func (p *parser) parseIndentedBlock() ast.Expr {
	p.expect(token.NEWLINE)
	start := p.expect(token.INDENT)

	var stmts []ast.Stmt
	p.skipNewlines()
	for p.tok != token.DEDENT && p.tok != token.EOF {
		stmts = append(stmts, p.parseStmtRecovering())
		p.skipNewlines()
	}
	end := p.expect(token.DEDENT)

	if len(stmts) == 1 {
		if es, ok := stmts[0].(*ast.ExprStmt); ok {
			return es.X
		}
	}
	if len(stmts) == 0 || !endsInExpr(stmts[len(stmts)-1]) {
		p.errorf(MalformedLambda, end, "block must end with an expression")
	}
	return &ast.BlockExpr{Start: start, Stmts: stmts, End: end}
}

func endsInExpr(s ast.Stmt) bool {
	_, ok := s.(*ast.ExprStmt)
	return ok
}
