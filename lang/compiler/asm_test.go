package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anissen/delta/lang/compiler"
	"github.com/anissen/delta/lang/parser"
)

func compileSource(t *testing.T, src string) *compiler.Program {
	t.Helper()
	chunk, err := parser.ParseChunk([]byte(src))
	require.NoError(t, err)
	prog, err := compiler.CompileChunk(chunk)
	require.NoError(t, err)
	return prog
}

func TestDisassembleArithmetic(t *testing.T) {
	prog := compileSource(t, "1 + 2\n")
	text, err := compiler.Disassemble(prog.Code)
	require.NoError(t, err)
	require.Contains(t, text, "push_integer\tvalue: 1")
	require.Contains(t, text, "push_integer\tvalue: 2")
	require.Contains(t, text, "add_int")
	require.Contains(t, text, "ret")
}

func TestDisassembleFunctionSignatureAndCall(t *testing.T) {
	prog := compileSource(t, "double = \\x\n\tx * 2\n21 | double\n")
	require.Len(t, prog.Functions, 1)
	require.Equal(t, "double", prog.Functions[0].Name)

	text, err := compiler.Disassemble(prog.Code)
	require.NoError(t, err)
	require.Contains(t, text, "function signature\tname: \"double\"")
	require.Contains(t, text, "=== function chunk: main ===")
	require.Contains(t, text, "=== function chunk: double ===")
	require.Contains(t, text, "call\tis_global: 0\targ_count: 1\tfn_index: 0")
}

func TestDisassembleStringInterpolation(t *testing.T) {
	prog := compileSource(t, "name = \"world\"\n\"hello {name}\"\n")
	text, err := compiler.Disassemble(prog.Code)
	require.NoError(t, err)
	require.Contains(t, text, "push_string\tvalue: \"hello \"")
	require.Contains(t, text, "to_string")
	require.Contains(t, text, "str_concat")
}

func TestDisassembleIsExpressionMatchFail(t *testing.T) {
	prog := compileSource(t, "x = 1\nx is\n\t2\n\t\t:two\n")
	text, err := compiler.Disassemble(prog.Code)
	require.NoError(t, err)
	require.Contains(t, text, "match_fail")
	require.Contains(t, text, "jump_if_false")
}

func TestParseProgramRejectsTruncatedHeader(t *testing.T) {
	_, err := compiler.ParseProgram([]byte{byte(compiler.FunctionChunkHeader)})
	require.Error(t, err)
}
