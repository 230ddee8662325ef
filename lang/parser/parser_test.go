package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anissen/delta/lang/ast"
	"github.com/anissen/delta/lang/parser"
	"github.com/anissen/delta/lang/token"
)

func TestParseLetAndArithmetic(t *testing.T) {
	chunk, err := parser.ParseChunk([]byte("x = 1 + 2 * 3\n"))
	require.NoError(t, err)
	require.Len(t, chunk.Stmts, 1)

	let, ok := chunk.Stmts[0].(*ast.LetStmt)
	require.True(t, ok)
	assert.Equal(t, "x", let.Name)

	bin, ok := let.Value.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, token.PLUS, bin.Op)

	rhs, ok := bin.Right.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, token.STAR, rhs.Op)
}

func TestParsePipelineCall(t *testing.T) {
	chunk, err := parser.ParseChunk([]byte("xs | add 1 2\n"))
	require.NoError(t, err)
	require.Len(t, chunk.Stmts, 1)

	es := chunk.Stmts[0].(*ast.ExprStmt)
	call, ok := es.X.(*ast.CallExpr)
	require.True(t, ok)
	assert.Equal(t, "add", call.Func.Name)
	require.Len(t, call.Args, 3)
	_, ok = call.Args[0].(*ast.Ident)
	assert.True(t, ok)
}

func TestParseChainedPipeline(t *testing.T) {
	chunk, err := parser.ParseChunk([]byte("xs | f | g\n"))
	require.NoError(t, err)
	es := chunk.Stmts[0].(*ast.ExprStmt)
	outer, ok := es.X.(*ast.CallExpr)
	require.True(t, ok)
	assert.Equal(t, "g", outer.Func.Name)
	require.Len(t, outer.Args, 1)
	inner, ok := outer.Args[0].(*ast.CallExpr)
	require.True(t, ok)
	assert.Equal(t, "f", inner.Func.Name)
}

func TestParseLambda(t *testing.T) {
	src := "f = \\x y\n    x + y\n"
	chunk, err := parser.ParseChunk([]byte(src))
	require.NoError(t, err)
	let := chunk.Stmts[0].(*ast.LetStmt)
	lam, ok := let.Value.(*ast.LambdaExpr)
	require.True(t, ok)
	require.Len(t, lam.Params, 2)
	assert.Equal(t, "x", lam.Params[0].Name)
	assert.Equal(t, "y", lam.Params[1].Name)
	_, ok = lam.Body.(*ast.BinaryExpr)
	assert.True(t, ok)
}

func TestParseIsExpression(t *testing.T) {
	src := "n is\n    0\n        :zero\n    x\n        x\n"
	chunk, err := parser.ParseChunk([]byte(src))
	require.NoError(t, err)

	es := chunk.Stmts[0].(*ast.ExprStmt)
	is, ok := es.X.(*ast.IsExpr)
	require.True(t, ok)
	require.Len(t, is.Arms, 2)

	_, ok = is.Arms[0].Pattern.(*ast.LiteralPattern)
	assert.True(t, ok)
	_, ok = is.Arms[1].Pattern.(*ast.IdentPattern)
	assert.True(t, ok)
}

func TestParseIsExpressionWithGuardAndTagPattern(t *testing.T) {
	src := "n is\n    :some x if x > 0\n        x\n    _\n        0\n"
	chunk, err := parser.ParseChunk([]byte(src))
	require.NoError(t, err)

	es := chunk.Stmts[0].(*ast.ExprStmt)
	is := es.X.(*ast.IsExpr)
	require.Len(t, is.Arms, 2)

	tp, ok := is.Arms[0].Pattern.(*ast.TagPattern)
	require.True(t, ok)
	assert.Equal(t, "some", tp.Name)
	require.NotNil(t, is.Arms[0].Guard)

	_, ok = is.Arms[1].Pattern.(*ast.WildcardPattern)
	assert.True(t, ok)
}

func TestParseStringInterpolation(t *testing.T) {
	chunk, err := parser.ParseChunk([]byte(`"hi {name}!"` + "\n"))
	require.NoError(t, err)
	es := chunk.Stmts[0].(*ast.ExprStmt)
	str, ok := es.X.(*ast.StringLit)
	require.True(t, ok)
	require.Len(t, str.Parts, 3)
	assert.Equal(t, "hi ", str.Parts[0].Text)
	assert.NotNil(t, str.Parts[1].Expr)
	assert.Equal(t, "!", str.Parts[2].Text)
}

func TestParseTagConstruction(t *testing.T) {
	chunk, err := parser.ParseChunk([]byte("x = :ok 5\n"))
	require.NoError(t, err)
	let := chunk.Stmts[0].(*ast.LetStmt)
	tag, ok := let.Value.(*ast.TagExpr)
	require.True(t, ok)
	assert.Equal(t, "ok", tag.Name)
	require.NotNil(t, tag.Payload)
}

func TestParseErrorRecoversAtNextStatement(t *testing.T) {
	_, err := parser.ParseChunk([]byte("x = )\ny = 2\n"))
	require.Error(t, err)
	var el parser.ErrorList
	require.ErrorAs(t, err, &el)
	assert.NotEmpty(t, el)
}
