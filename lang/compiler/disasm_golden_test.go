package compiler_test

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/anissen/delta/internal/filetest"
	"github.com/anissen/delta/lang/compiler"
	"github.com/anissen/delta/lang/parser"
)

var updateDisasmTests = flag.Bool("test.update-disasm-tests", false, "update the disassembly golden files in testdata/")

// TestDisassembleGolden compiles every testdata/*.delta file and compares
// its disassembly against the matching testdata/*.delta.want golden file.
func TestDisassembleGolden(t *testing.T) {
	const dir = "testdata"
	for _, fi := range filetest.SourceFiles(t, dir, ".delta") {
		fi := fi
		t.Run(fi.Name(), func(t *testing.T) {
			src, err := os.ReadFile(filepath.Join(dir, fi.Name()))
			if err != nil {
				t.Fatal(err)
			}

			chunk, err := parser.ParseChunk(src)
			if err != nil {
				t.Fatal(err)
			}
			prog, err := compiler.CompileChunk(chunk)
			if err != nil {
				t.Fatal(err)
			}
			text, err := compiler.Disassemble(prog.Code)
			if err != nil {
				t.Fatal(err)
			}

			filetest.DiffOutput(t, fi, text, dir, updateDisasmTests)
		})
	}
}
