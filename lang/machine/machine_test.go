package machine_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anissen/delta/lang/compiler"
	"github.com/anissen/delta/lang/machine"
	"github.com/anissen/delta/lang/parser"
	"github.com/anissen/delta/lang/value"
)

func run(t *testing.T, src string) (value.Value, machine.Stats) {
	t.Helper()
	chunk, err := parser.ParseChunk([]byte(src))
	require.NoError(t, err)
	prog, err := compiler.CompileChunk(chunk)
	require.NoError(t, err)
	result, stats, err := machine.Run(prog)
	require.NoError(t, err)
	return result, stats
}

func runErr(t *testing.T, src string) error {
	t.Helper()
	chunk, err := parser.ParseChunk([]byte(src))
	require.NoError(t, err)
	prog, err := compiler.CompileChunk(chunk)
	require.NoError(t, err)
	_, _, err = machine.Run(prog)
	return err
}

func TestArithmetic(t *testing.T) {
	result, _ := run(t, "1 + 2 * 3\n")
	require.Equal(t, value.Integer(7), result)

	result, _ = run(t, "7 / 2\n")
	require.Equal(t, value.Integer(3), result)

	result, _ = run(t, "7 % 2\n")
	require.Equal(t, value.Integer(1), result)

	result, _ = run(t, "1.5 + 2.5\n")
	require.Equal(t, value.Float(4.0), result)
}

func TestDivisionByZeroFails(t *testing.T) {
	err := runErr(t, "1 / 0\n")
	require.Error(t, err)
	var rerr *machine.RuntimeError
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, machine.DivByZero, rerr.Kind)
}

func TestStringInterpolation(t *testing.T) {
	result, _ := run(t, "x = 5\n\"value is {x}\"\n")
	require.Equal(t, value.String("value is 5"), result)
}

func TestBooleanLogicNotShortCircuiting(t *testing.T) {
	result, _ := run(t, "true and false\n")
	require.Equal(t, value.Boolean(false), result)

	result, _ = run(t, "false or true\n")
	require.Equal(t, value.Boolean(true), result)

	result, _ = run(t, "not true\n")
	require.Equal(t, value.Boolean(false), result)
}

func TestTagConstructionAndMatching(t *testing.T) {
	src := "x = :some 5\nx is\n\t:some n\n\t\tn + 1\n\t_\n\t\t0\n"
	result, _ := run(t, src)
	require.Equal(t, value.Integer(6), result)
}

func TestIsExpressionNoMatchFails(t *testing.T) {
	err := runErr(t, "x = 3\nx is\n\t1\n\t\t:one\n")
	require.Error(t, err)
	var rerr *machine.RuntimeError
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, machine.NoMatch, rerr.Kind)
}

func TestFunctionCall(t *testing.T) {
	src := "square = \\x\n\tx * x\n6 | square\n"
	result, stats := run(t, src)
	require.Equal(t, value.Integer(36), result)
	require.Greater(t, stats.InstructionsExecuted, uint64(0))
}

func TestRecursiveFunctionCall(t *testing.T) {
	src := "fact = \\n\n\tn is\n\t\t0\n\t\t\t1\n\t\t_\n\t\t\tn * ((n - 1) | fact)\n5 | fact\n"
	result, _ := run(t, src)
	require.Equal(t, value.Integer(120), result)
}

func TestEqualityIsStructuralAcrossVariants(t *testing.T) {
	result, _ := run(t, "1 == 1.0\n")
	require.Equal(t, value.Boolean(false), result)
}

func TestComparisonOperators(t *testing.T) {
	result, _ := run(t, "3 < 4\n")
	require.Equal(t, value.Boolean(true), result)

	result, _ = run(t, "3.0 <. 4.0\n")
	require.Equal(t, value.Boolean(true), result)
}
