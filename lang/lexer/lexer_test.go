package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anissen/delta/lang/lexer"
	"github.com/anissen/delta/lang/token"
)

func scanAll(t *testing.T, src string) ([]token.Token, []lexer.TokenValue) {
	t.Helper()
	var errs []*lexer.LexError
	l := lexer.New([]byte(src), func(e *lexer.LexError) { errs = append(errs, e) })

	var toks []token.Token
	var vals []lexer.TokenValue
	for {
		tok, tv := l.Scan()
		toks = append(toks, tok)
		vals = append(vals, tv)
		if tok == token.EOF {
			break
		}
	}
	require.Empty(t, errs, "unexpected lex errors: %v", errs)
	return toks, vals
}

func TestScanSimpleLet(t *testing.T) {
	toks, vals := scanAll(t, "x = 42\n")
	require.Equal(t, []token.Token{token.IDENT, token.EQ, token.INT, token.EOF}, toks)
	assert.Equal(t, int64(42), vals[2].Int)
}

func TestScanNegativeNumberVsBinaryMinus(t *testing.T) {
	toks, vals := scanAll(t, "x = -3.2\n")
	require.Equal(t, []token.Token{token.IDENT, token.EQ, token.FLOAT, token.EOF}, toks)
	assert.InDelta(t, -3.2, vals[2].Float, 1e-9)

	toks2, _ := scanAll(t, "a - 3\n")
	require.Equal(t, []token.Token{token.IDENT, token.MINUS, token.INT, token.EOF}, toks2)
}

func TestScanFloatComparisons(t *testing.T) {
	toks, _ := scanAll(t, "a <. b >=. c\n")
	require.Equal(t, []token.Token{
		token.IDENT, token.FLT_LT, token.IDENT, token.FLT_GE, token.IDENT, token.EOF,
	}, toks)
}

func TestScanKeywordsAndTags(t *testing.T) {
	toks, vals := scanAll(t, "x is :red\n")
	require.Equal(t, []token.Token{token.IDENT, token.IS, token.TAG, token.EOF}, toks)
	assert.Equal(t, "red", vals[2].Str)
}

func TestScanIndentation(t *testing.T) {
	src := "f = \\x\n    x\n"
	toks, _ := scanAll(t, src)
	require.Equal(t, []token.Token{
		token.IDENT, token.EQ, token.BACKSLASH, token.IDENT, token.NEWLINE,
		token.INDENT, token.IDENT, token.DEDENT, token.EOF,
	}, toks)
}

func TestScanDedentPopsMultipleLevels(t *testing.T) {
	src := "a is\n    b\n        c\nd\n"
	toks, _ := scanAll(t, src)
	require.Equal(t, []token.Token{
		token.IDENT, token.IS, token.NEWLINE,
		token.INDENT, token.IDENT, token.NEWLINE,
		token.INDENT, token.IDENT, token.NEWLINE,
		token.DEDENT, token.DEDENT, token.IDENT, token.EOF,
	}, toks)
}

func TestScanStringInterpolation(t *testing.T) {
	toks, vals := scanAll(t, `"hi {name}!"` + "\n")
	require.Equal(t, []token.Token{
		token.STRING, token.INTERP_BEGIN, token.IDENT, token.INTERP_END, token.STRING, token.EOF,
	}, toks)
	assert.Equal(t, "hi ", vals[0].Str)
	assert.Equal(t, "name", vals[2].Raw)
	assert.Equal(t, "!", vals[4].Str)
}

func TestScanStringEscapes(t *testing.T) {
	toks, vals := scanAll(t, `"a\"b\\c\nd"` + "\n")
	require.Equal(t, []token.Token{token.STRING, token.EOF}, toks)
	assert.Equal(t, "a\"b\\c\nd", vals[0].Str)
}

func TestUnterminatedStringReportsError(t *testing.T) {
	var errs []*lexer.LexError
	l := lexer.New([]byte(`"abc`), func(e *lexer.LexError) { errs = append(errs, e) })
	for {
		tok, _ := l.Scan()
		if tok == token.EOF {
			break
		}
	}
	require.Len(t, errs, 1)
	assert.Equal(t, lexer.UnterminatedString, errs[0].Kind)
}

func TestUnmatchedInterpolationBraceReportsError(t *testing.T) {
	var errs []*lexer.LexError
	l := lexer.New([]byte("x }\n"), func(e *lexer.LexError) { errs = append(errs, e) })
	for {
		tok, _ := l.Scan()
		if tok == token.EOF {
			break
		}
	}
	require.Len(t, errs, 1)
	assert.Equal(t, lexer.UnmatchedInterpolation, errs[0].Kind)
}

func TestScanPipelineAndArithmetic(t *testing.T) {
	toks, _ := scanAll(t, "xs | map f + 1 * 2\n")
	require.Equal(t, []token.Token{
		token.IDENT, token.PIPE, token.IDENT, token.IDENT,
		token.PLUS, token.INT, token.STAR, token.INT, token.EOF,
	}, toks)
}

func TestScanParens(t *testing.T) {
	toks, _ := scanAll(t, "(1 + 2) * 3\n")
	require.Equal(t, []token.Token{
		token.LPAREN, token.INT, token.PLUS, token.INT, token.RPAREN,
		token.STAR, token.INT, token.EOF,
	}, toks)
}
