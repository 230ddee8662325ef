package lexer

import (
	"strconv"

	"github.com/anissen/delta/lang/token"
)

// number scans an integer or float literal starting at pos. l.cur is
// positioned on the literal's first character, which may be a leading '-'
// already established by the caller (via precedesOperand) to belong to the
// number rather than to a preceding binary expression. spec.md §4.1: a
// decimal point followed by at least one digit makes the literal a float;
// there is no exponent notation and no non-decimal bases.
func (l *Lexer) number(pos token.Pos) (token.Token, TokenValue) {
	start := l.off
	if l.cur == '-' {
		l.advance()
	}
	for isDigit(l.cur) {
		l.advance()
	}

	isFloat := false
	if l.cur == '.' && isDigit(rune(l.peekByte())) {
		isFloat = true
		l.advance()
		for isDigit(l.cur) {
			l.advance()
		}
	}

	lit := string(l.src[start:l.off])
	if isFloat {
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			l.errorf(UnknownCharacter, pos, "malformed float literal %q", lit)
		}
		return token.FLOAT, TokenValue{Pos: pos, Raw: lit, Float: f}
	}

	i, err := strconv.ParseInt(lit, 10, 64)
	if err != nil {
		l.errorf(UnknownCharacter, pos, "malformed integer literal %q", lit)
	}
	return token.INT, TokenValue{Pos: pos, Raw: lit, Int: i}
}
