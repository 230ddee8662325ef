package lexer

import (
	"strings"

	"github.com/anissen/delta/lang/token"
)

// stringBody scans the literal text of a string starting right after its
// opening quote (or right after a '}' that closed an interpolation segment,
// when quote is popped off resumeQuotes) up to the next unescaped quote or
// interpolation brace. spec.md §4.1: only \", \\ and \n are recognized
// escapes; an unescaped '{' begins a nested expression token stream
// terminated by the matching '}', so the text collected so far is emitted
// as a STRING token and the caller is signalled to follow up with
// INTERP_BEGIN via pendingInterpBegin.
func (l *Lexer) stringBody(quote byte) (token.Token, TokenValue) {
	pos := l.pos()
	var buf strings.Builder

	for {
		switch l.cur {
		case -1:
			l.error(UnterminatedString, pos, "unterminated string literal")
			return token.STRING, TokenValue{Pos: pos, Str: buf.String()}

		case rune(quote):
			l.advance()
			return token.STRING, TokenValue{Pos: pos, Str: buf.String()}

		case '\n':
			l.error(UnterminatedString, pos, "newline in unterminated string literal")
			return token.STRING, TokenValue{Pos: pos, Str: buf.String()}

		case '{':
			l.advance()
			l.resumeQuotes = append(l.resumeQuotes, quote)
			l.pendingInterpBegin = true
			return token.STRING, TokenValue{Pos: pos, Str: buf.String()}

		case '\\':
			l.advance()
			switch l.cur {
			case '"':
				buf.WriteByte('"')
				l.advance()
			case '\\':
				buf.WriteByte('\\')
				l.advance()
			case 'n':
				buf.WriteByte('\n')
				l.advance()
			default:
				l.errorf(UnterminatedString, pos, "unknown escape sequence '\\%c'", l.cur)
				if l.cur != -1 {
					l.advance()
				}
			}

		default:
			buf.WriteRune(l.cur)
			l.advance()
		}
	}
}
