package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"

	"github.com/anissen/delta/lang/compiler"
	"github.com/anissen/delta/lang/machine"
	"github.com/anissen/delta/lang/parser"
)

func (c *Cmd) Run(_ context.Context, stdio mainer.Stdio, args []string) error {
	return RunFile(stdio, c.Debug, args[0])
}

// RunFile compiles and executes the source file at path, printing the
// result to stdio.Stdout. With debug set, it first prints the
// disassembled bytecode and the execution statistics gathered by the
// virtual machine.
func RunFile(stdio mainer.Stdio, debug bool, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}

	chunk, err := parser.ParseChunk(src)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}

	prog, err := compiler.CompileChunk(chunk)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}

	if debug {
		fmt.Fprintf(stdio.Stdout, "bytecode (%d bytes):\n", len(prog.Code))
		for i, b := range prog.Code {
			if i > 0 {
				fmt.Fprint(stdio.Stdout, " ")
			}
			fmt.Fprintf(stdio.Stdout, "%d", b)
		}
		fmt.Fprintln(stdio.Stdout)

		text, err := compiler.Disassemble(prog.Code)
		if err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			return err
		}
		fmt.Fprint(stdio.Stdout, text)
	}

	result, stats, err := machine.Run(prog)
	if err != nil {
		fmt.Fprintln(stdio.Stderr, err)
		return err
	}

	if debug {
		fmt.Fprintf(stdio.Stdout, "bytes_read: %d\n", stats.BytesRead)
		fmt.Fprintf(stdio.Stdout, "instructions_executed: %d\n", stats.InstructionsExecuted)
		fmt.Fprintf(stdio.Stdout, "jumps_performed: %d\n", stats.JumpsPerformed)
		fmt.Fprintf(stdio.Stdout, "max_stack_height: %d\n", stats.MaxStackHeight)
		fmt.Fprintf(stdio.Stdout, "stack_allocations: %d\n", stats.StackAllocations)
	}

	fmt.Fprintln(stdio.Stdout, result)
	return nil
}
