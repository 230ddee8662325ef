// Package parser implements a recursive-descent, Pratt-style parser that
// turns a delta token stream into a lang/ast tree.
package parser

import (
	"errors"

	"github.com/anissen/delta/lang/ast"
	"github.com/anissen/delta/lang/lexer"
	"github.com/anissen/delta/lang/token"
)

// ParseChunk parses a whole source file into an *ast.Chunk. The returned
// error, if non-nil, is an ErrorList combining every lex and parse error
// found; parsing does not stop at the first one.
func ParseChunk(src []byte) (*ast.Chunk, error) {
	var p parser
	p.init(src)
	chunk := p.parseChunk()

	var all ErrorList
	for _, le := range p.lexErrs {
		all = append(all, &ParseError{Kind: UnexpectedToken, Start: le.Pos, End: le.Pos, Msg: le.Error()})
	}
	all = append(all, p.errors...)
	return chunk, all.Err()
}

type parser struct {
	lex     *lexer.Lexer
	lexErrs []*lexer.LexError
	errors  ErrorList

	tok  token.Token
	val  lexer.TokenValue
	tok2 token.Token
	val2 lexer.TokenValue
}

func (p *parser) init(src []byte) {
	p.lex = lexer.New(src, func(e *lexer.LexError) { p.lexErrs = append(p.lexErrs, e) })
	p.tok, p.val = p.lex.Scan()
	p.tok2, p.val2 = p.lex.Scan()
}

func (p *parser) advance() {
	p.tok, p.val = p.tok2, p.val2
	p.tok2, p.val2 = p.lex.Scan()
}

func (p *parser) skipNewlines() {
	for p.tok == token.NEWLINE {
		p.advance()
	}
}

var errPanicMode = errors.New("panic")

// expect consumes the current token if it matches tok, recording a
// parse error and panicking with errPanicMode otherwise. The panic is
// recovered at the nearest statement boundary, letting the parser resync
// and keep collecting errors instead of aborting on the first one.
func (p *parser) expect(tok token.Token) token.Pos {
	pos := p.val.Pos
	if p.tok != tok {
		p.errors.add(UnexpectedToken, pos, pos, "expected %s, found %s", tok, p.tok)
		panic(errPanicMode)
	}
	p.advance()
	return pos
}

func (p *parser) errorf(kind ParseErrorKind, pos token.Pos, format string, args ...any) {
	p.errors.add(kind, pos, pos, format, args...)
}

// sync advances past tokens until it reaches one that plausibly starts a
// fresh statement, so a single malformed statement does not cascade into
// spurious errors for the rest of the chunk.
func (p *parser) sync() {
	for {
		switch p.tok {
		case token.NEWLINE, token.DEDENT, token.EOF:
			return
		}
		p.advance()
	}
}

func (p *parser) parseChunk() *ast.Chunk {
	var stmts []ast.Stmt
	p.skipNewlines()
	for p.tok != token.EOF {
		stmts = append(stmts, p.parseStmtRecovering())
		p.skipNewlines()
	}
	return &ast.Chunk{Stmts: stmts, EOF: p.val.Pos}
}

// parseStmtRecovering parses one statement, converting a panic from expect
// into a *ast.BadStmt so the caller's loop always makes progress.
func (p *parser) parseStmtRecovering() (stmt ast.Stmt) {
	start := p.val.Pos
	defer func() {
		if r := recover(); r != nil {
			if r != errPanicMode {
				panic(r)
			}
			p.sync()
			stmt = &ast.BadStmt{Start: start, End: p.val.Pos}
		}
	}()
	return p.parseStmt()
}
