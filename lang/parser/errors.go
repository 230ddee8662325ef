package parser

import (
	"fmt"
	"strings"

	"github.com/anissen/delta/lang/token"
)

// ParseErrorKind classifies a ParseError.
type ParseErrorKind uint8

const (
	UnexpectedToken ParseErrorKind = iota
	MalformedPattern
	MalformedIsExpr
	MalformedLambda
	MalformedString
)

func (k ParseErrorKind) String() string {
	switch k {
	case UnexpectedToken:
		return "unexpected token"
	case MalformedPattern:
		return "malformed pattern"
	case MalformedIsExpr:
		return "malformed is-expression"
	case MalformedLambda:
		return "malformed lambda"
	case MalformedString:
		return "malformed string"
	default:
		return "parse error"
	}
}

// ParseError reports a single grammar violation at a span.
type ParseError struct {
	Kind  ParseErrorKind
	Start token.Pos
	End   token.Pos
	Msg   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Start, e.Kind, e.Msg)
}

// ErrorList accumulates ParseErrors across a whole parse, the way the
// teacher's scanner accumulates lex errors, so a caller can report every
// grammar violation found in one pass rather than stopping at the first.
type ErrorList []*ParseError

func (el *ErrorList) add(kind ParseErrorKind, start, end token.Pos, format string, args ...any) {
	*el = append(*el, &ParseError{Kind: kind, Start: start, End: end, Msg: fmt.Sprintf(format, args...)})
}

// Err returns el as an error, or nil if el is empty.
func (el ErrorList) Err() error {
	if len(el) == 0 {
		return nil
	}
	return el
}

func (el ErrorList) Error() string {
	switch len(el) {
	case 0:
		return "no errors"
	case 1:
		return el[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s (and %d more errors)", el[0].Error(), len(el)-1)
	return b.String()
}
