// Package lexer converts delta source text into a stream of tokens, as
// described in spec.md §4.1. Indentation is significant: it is translated
// into explicit INDENT, DEDENT and NEWLINE tokens so that the parser never
// has to look at raw whitespace.
package lexer

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/anissen/delta/lang/token"
)

// indentWidth is the number of columns a tab counts for when computing
// indentation levels (spec.md §4.1 leaves the exact width to the
// implementation, as long as it is applied uniformly).
const indentWidth = 4

// ErrorKind classifies a LexError.
type ErrorKind uint8

const (
	UnterminatedString ErrorKind = iota
	UnmatchedInterpolation
	InconsistentIndentation
	UnknownCharacter
)

func (k ErrorKind) String() string {
	switch k {
	case UnterminatedString:
		return "unterminated string"
	case UnmatchedInterpolation:
		return "unmatched interpolation brace"
	case InconsistentIndentation:
		return "inconsistent indentation"
	case UnknownCharacter:
		return "unknown character"
	default:
		return "lex error"
	}
}

// LexError reports a lexical error at a specific source position.
type LexError struct {
	Kind ErrorKind
	Pos  token.Pos
	Msg  string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Pos, e.Kind, e.Msg)
}

// TokenValue carries the decoded payload of a scanned token alongside its
// position, the way the teacher's scanner carries both token kind and value
// out of a single Scan call.
type TokenValue struct {
	Pos   token.Pos
	Raw   string // original source text of the token
	Int   int64
	Float float64
	Str   string // decoded string value, for STRING and TAG tokens
}

// Lexer tokenizes a single delta source file into a token stream consumed
// one token at a time by the parser.
type Lexer struct {
	src []byte
	err func(*LexError)

	cur  rune // current character, -1 at EOF
	off  int  // byte offset of cur
	roff int  // byte offset right after cur
	line int
	col  int

	prevTok token.Token // last token returned by Scan, for '-' disambiguation

	// indentation tracking
	indents      []int // stack of indent widths, indents[0] == 0
	atBOL        bool  // true when the next Scan must measure indentation
	pendingDeds  int   // remaining DEDENT tokens to emit before resuming
	reachedFirst bool  // true once the first non-blank line has been seen

	// string interpolation tracking
	resumeQuotes       []byte // stack of open quote chars awaiting their tail
	pendingInterpBegin bool   // next Scan must emit INTERP_BEGIN
	pendingResume      bool   // next Scan must continue a paused string literal
}

// New creates a Lexer over src. errHandler, if non-nil, is invoked for every
// LexError encountered; scanning continues on a best-effort basis after an
// error so that callers may collect several before giving up.
func New(src []byte, errHandler func(*LexError)) *Lexer {
	l := &Lexer{
		src:     src,
		err:     errHandler,
		line:    1,
		indents: []int{0},
		atBOL:   true,
		prevTok: token.ILLEGAL,
	}
	l.advance()
	return l
}

func (l *Lexer) error(kind ErrorKind, pos token.Pos, msg string) {
	if l.err != nil {
		l.err(&LexError{Kind: kind, Pos: pos, Msg: msg})
	}
}

func (l *Lexer) errorf(kind ErrorKind, pos token.Pos, format string, args ...any) {
	l.error(kind, pos, fmt.Sprintf(format, args...))
}

func (l *Lexer) pos() token.Pos { return token.MakePos(l.line, l.col) }

func (l *Lexer) peekByte() byte {
	if l.roff < len(l.src) {
		return l.src[l.roff]
	}
	return 0
}

func (l *Lexer) advance() {
	if l.cur == '\n' {
		l.line++
		l.col = 0
	}
	if l.roff >= len(l.src) {
		l.off = len(l.src)
		l.cur = -1
		return
	}
	l.off = l.roff
	r, w := rune(l.src[l.roff]), 1
	if r >= utf8.RuneSelf {
		r, w = utf8.DecodeRune(l.src[l.roff:])
		if r == utf8.RuneError && w == 1 {
			l.error(UnknownCharacter, l.pos(), "invalid UTF-8 encoding")
		}
	}
	l.roff += w
	l.cur = r
	l.col++
}

func (l *Lexer) advanceIf(b byte) bool {
	if l.cur == rune(b) {
		l.advance()
		return true
	}
	return false
}

// Scan returns the next token and its decoded value.
func (l *Lexer) Scan() (token.Token, TokenValue) {
	tok, tv := l.scan1()
	l.prevTok = tok
	return tok, tv
}

func (l *Lexer) scan1() (token.Token, TokenValue) {
	if l.pendingInterpBegin {
		l.pendingInterpBegin = false
		return token.INTERP_BEGIN, TokenValue{Pos: l.pos()}
	}
	if l.pendingResume {
		l.pendingResume = false
		q := l.resumeQuotes[len(l.resumeQuotes)-1]
		l.resumeQuotes = l.resumeQuotes[:len(l.resumeQuotes)-1]
		return l.stringBody(q)
	}
	if l.pendingDeds > 0 {
		l.pendingDeds--
		return token.DEDENT, TokenValue{Pos: l.pos()}
	}
	if l.atBOL {
		if tok, tv, ok := l.measureIndent(); ok {
			return tok, tv
		}
	}

	l.skipIntralineSpace()
	pos := l.pos()

	switch cur := l.cur; {
	case cur == -1:
		if len(l.indents) > 1 {
			l.pendingDeds = len(l.indents) - 2
			l.indents = l.indents[:1]
			return token.DEDENT, TokenValue{Pos: pos}
		}
		return token.EOF, TokenValue{Pos: pos}

	case cur == '\n':
		l.advance()
		l.atBOL = true
		if l.restIsBlank() {
			return l.scan1()
		}
		return token.NEWLINE, TokenValue{Pos: pos}

	case isLetter(cur):
		lit := l.ident()
		if lit == "_" {
			return token.UNDERSCORE, TokenValue{Pos: pos, Raw: lit}
		}
		return token.Lookup(lit), TokenValue{Pos: pos, Raw: lit}

	case isDigit(cur):
		return l.number(pos)

	case cur == '-' && l.precedesOperand() && isDigit(rune(l.peekByte())):
		return l.number(pos)

	case cur == '"':
		l.advance()
		return l.stringBody('"')

	case cur == ':':
		l.advance()
		if isLetter(l.cur) {
			name := l.ident()
			return token.TAG, TokenValue{Pos: pos, Raw: ":" + name, Str: name}
		}
		return token.COLON, TokenValue{Pos: pos, Raw: ":"}

	case cur == '}':
		if len(l.resumeQuotes) == 0 {
			l.advance()
			l.error(UnmatchedInterpolation, pos, "unmatched '}'")
			return token.ILLEGAL, TokenValue{Pos: pos, Raw: "}"}
		}
		l.advance()
		l.pendingResume = true
		return token.INTERP_END, TokenValue{Pos: pos}

	default:
		return l.punctOrOperator(pos)
	}
}

// precedesOperand reports whether a '-' at the current position should be
// read as part of a numeric literal rather than as the binary minus
// operator. spec.md §4.1: "an optional '-' immediately preceding digits is
// tokenized as part of the number when not preceded by an operand". An
// operand was just produced when the previous token could terminate an
// expression on its own: an identifier, a literal, a tag, or a closing
// parenthesis.
func (l *Lexer) precedesOperand() bool {
	switch l.prevTok {
	case token.IDENT, token.INT, token.FLOAT, token.STRING, token.TAG,
		token.TRUE, token.FALSE, token.RPAREN, token.UNDERSCORE:
		return false
	default:
		return true
	}
}

func (l *Lexer) skipIntralineSpace() {
	for l.cur == ' ' || l.cur == '\t' || l.cur == '\r' {
		l.advance()
	}
}

// restIsBlank reports whether only whitespace and blank lines remain from
// the current position to the end of the source. It consumes nothing.
func (l *Lexer) restIsBlank() bool {
	for _, b := range l.src[l.off:] {
		if b != ' ' && b != '\t' && b != '\r' && b != '\n' {
			return false
		}
	}
	return true
}

// measureIndent runs at the start of a logical line, after the NEWLINE
// that ended the previous one, and returns INDENT when the line is indented
// deeper than the previous one or DEDENT (queueing one more per further
// level popped) when it is shallower. ok is false when no layout token is
// due (equal indentation, or trailing blank lines at EOF) and regular
// scanning should proceed.
func (l *Lexer) measureIndent() (token.Token, TokenValue, bool) {
	width, atEOF := l.countIndent()
	pos := l.pos()
	if atEOF {
		l.atBOL = false
		return 0, TokenValue{}, false
	}

	top := l.indents[len(l.indents)-1]
	l.reachedFirst = true
	l.atBOL = false

	switch {
	case width > top:
		l.indents = append(l.indents, width)
		return token.INDENT, TokenValue{Pos: pos}, true
	case width < top:
		pops := 0
		for len(l.indents) > 1 && l.indents[len(l.indents)-1] > width {
			l.indents = l.indents[:len(l.indents)-1]
			pops++
		}
		if l.indents[len(l.indents)-1] != width {
			l.error(InconsistentIndentation, pos, "unindent does not match any outer indentation level")
		}
		l.pendingDeds = pops - 1
		return token.DEDENT, TokenValue{Pos: pos}, true
	default:
		return 0, TokenValue{}, false
	}
}

// countIndent measures the indentation of the current line without
// consuming non-whitespace characters, skipping blank lines entirely.
func (l *Lexer) countIndent() (width int, atEOF bool) {
	for {
		width = 0
		for {
			switch l.cur {
			case ' ':
				width++
				l.advance()
				continue
			case '\t':
				width += indentWidth
				l.advance()
				continue
			}
			break
		}
		switch l.cur {
		case -1:
			return 0, true
		case '\n':
			l.advance()
			continue
		default:
			return width, false
		}
	}
}

func isLetter(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isDigit(r rune) bool {
	return '0' <= r && r <= '9'
}

func (l *Lexer) ident() string {
	start := l.off
	for isLetter(l.cur) || isDigit(l.cur) {
		l.advance()
	}
	return string(l.src[start:l.off])
}

func (l *Lexer) punctOrOperator(pos token.Pos) (token.Token, TokenValue) {
	start := l.off
	cur := l.cur
	l.advance()

	raw := func() string { return string(l.src[start:l.off]) }

	switch cur {
	case '\\':
		return token.BACKSLASH, TokenValue{Pos: pos, Raw: raw()}
	case '(':
		return token.LPAREN, TokenValue{Pos: pos, Raw: raw()}
	case ')':
		return token.RPAREN, TokenValue{Pos: pos, Raw: raw()}
	case '=':
		if l.advanceIf('=') {
			return token.EQEQ, TokenValue{Pos: pos, Raw: raw()}
		}
		return token.EQ, TokenValue{Pos: pos, Raw: raw()}
	case '|':
		return token.PIPE, TokenValue{Pos: pos, Raw: raw()}
	case '_':
		return token.UNDERSCORE, TokenValue{Pos: pos, Raw: raw()}
	case '+':
		return token.PLUS, TokenValue{Pos: pos, Raw: raw()}
	case '-':
		return token.MINUS, TokenValue{Pos: pos, Raw: raw()}
	case '*':
		return token.STAR, TokenValue{Pos: pos, Raw: raw()}
	case '/':
		return token.SLASH, TokenValue{Pos: pos, Raw: raw()}
	case '%':
		return token.PERCENT, TokenValue{Pos: pos, Raw: raw()}
	case '!':
		if l.advanceIf('=') {
			return token.NEQ, TokenValue{Pos: pos, Raw: raw()}
		}
		l.error(UnknownCharacter, pos, "unexpected '!'")
		return token.ILLEGAL, TokenValue{Pos: pos, Raw: raw()}
	case '<':
		if l.advanceIf('.') {
			return token.FLT_LT, TokenValue{Pos: pos, Raw: raw()}
		}
		if l.advanceIf('=') {
			if l.advanceIf('.') {
				return token.FLT_LE, TokenValue{Pos: pos, Raw: raw()}
			}
			return token.LE, TokenValue{Pos: pos, Raw: raw()}
		}
		return token.LT, TokenValue{Pos: pos, Raw: raw()}
	case '>':
		if l.advanceIf('.') {
			return token.FLT_GT, TokenValue{Pos: pos, Raw: raw()}
		}
		if l.advanceIf('=') {
			if l.advanceIf('.') {
				return token.FLT_GE, TokenValue{Pos: pos, Raw: raw()}
			}
			return token.GE, TokenValue{Pos: pos, Raw: raw()}
		}
		return token.GT, TokenValue{Pos: pos, Raw: raw()}
	default:
		l.errorf(UnknownCharacter, pos, "unknown character %#U", cur)
		return token.ILLEGAL, TokenValue{Pos: pos, Raw: string(cur)}
	}
}
