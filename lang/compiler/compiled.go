package compiler

import (
	"encoding/binary"
	"fmt"
	"math"
)

// FuncTableEntry is one row of the function signature table that precedes
// every chunk in a compiled program (spec.md §4.3). fn_index, the operand
// carried by `call` and `function`, is this entry's position in Functions.
type FuncTableEntry struct {
	Name        string
	LocalCount  uint8
	ChunkOffset uint32 // absolute byte offset of this function's function_chunk_header
}

// CodeStart returns the offset of the first instruction of the function's
// body, immediately after its function_chunk_header.
func (e FuncTableEntry) CodeStart() uint32 {
	return e.ChunkOffset + 3 + uint32(len(e.Name))
}

// Program is a fully compiled delta program: the function signature table
// plus the raw instruction bytes laid out exactly as spec.md §4.3 and §6
// describe (signatures, then the main chunk, then every named function's
// chunk, each chunk opening with a function_chunk_header).
type Program struct {
	Code []byte

	// Functions holds one entry per named function, in fn_index order:
	// every `name = \...` binding, whether at the top level or nested
	// inside another function's body (spec.md §4.2). It does not include
	// the main chunk.
	Functions []FuncTableEntry

	MainLocalCount uint8
	MainCodeStart  uint32
}

// ParseProgram decodes the function signature table and main chunk header
// at the front of code, without interpreting the instruction stream that
// follows. It recovers from raw bytes the same table and main-chunk fields
// that CompileChunk fills in directly.
func ParseProgram(code []byte) (*Program, error) {
	prog := &Program{Code: code}

	pos := 0
	for pos < len(code) && Opcode(code[pos]) == FunctionSignature {
		entry, n, err := decodeSignature(code, pos)
		if err != nil {
			return nil, err
		}
		prog.Functions = append(prog.Functions, entry)
		pos += n
	}

	if pos >= len(code) || Opcode(code[pos]) != FunctionChunkHeader {
		return nil, fmt.Errorf("malformed bytecode: expected main chunk header at offset %d", pos)
	}
	name, localCount, n, err := decodeChunkHeader(code, pos)
	if err != nil {
		return nil, err
	}
	if name != "main" {
		return nil, fmt.Errorf("malformed bytecode: main chunk header names %q, want \"main\"", name)
	}
	prog.MainLocalCount = localCount
	prog.MainCodeStart = uint32(pos + n)

	return prog, nil
}

func decodeSignature(code []byte, pos int) (FuncTableEntry, int, error) {
	if pos >= len(code) {
		return FuncTableEntry{}, 0, fmt.Errorf("malformed bytecode: truncated function_signature at offset %d", pos)
	}
	p := pos + 1
	if p >= len(code) {
		return FuncTableEntry{}, 0, fmt.Errorf("malformed bytecode: truncated function_signature at offset %d", pos)
	}
	nameLen := int(code[p])
	p++
	if p+nameLen+1+2 > len(code) {
		return FuncTableEntry{}, 0, fmt.Errorf("malformed bytecode: truncated function_signature at offset %d", pos)
	}
	name := string(code[p : p+nameLen])
	p += nameLen
	localCount := code[p]
	p++
	chunkOffset := binary.BigEndian.Uint16(code[p : p+2])
	p += 2
	return FuncTableEntry{Name: name, LocalCount: localCount, ChunkOffset: uint32(chunkOffset)}, p - pos, nil
}

func decodeChunkHeader(code []byte, pos int) (name string, localCount uint8, n int, err error) {
	if pos >= len(code) {
		return "", 0, 0, fmt.Errorf("malformed bytecode: truncated function_chunk_header at offset %d", pos)
	}
	p := pos + 1
	if p >= len(code) {
		return "", 0, 0, fmt.Errorf("malformed bytecode: truncated function_chunk_header at offset %d", pos)
	}
	nameLen := int(code[p])
	p++
	if p+nameLen+1 > len(code) {
		return "", 0, 0, fmt.Errorf("malformed bytecode: truncated function_chunk_header at offset %d", pos)
	}
	name = string(code[p : p+nameLen])
	p += nameLen
	localCount = code[p]
	p++
	return name, localCount, p - pos, nil
}

// byteEncoder accumulates the bytes of one chunk or the signature block.
// Its method names mirror the operand widths spec.md §6 specifies.
type byteEncoder struct {
	buf []byte
}

func (e *byteEncoder) u8(b byte)  { e.buf = append(e.buf, b) }
func (e *byteEncoder) op(op Opcode) { e.u8(byte(op)) }

func (e *byteEncoder) u16(v uint16) {
	e.buf = append(e.buf, byte(v>>8), byte(v))
}

func (e *byteEncoder) i16(v int16) { e.u16(uint16(v)) }

func (e *byteEncoder) i32(v int32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	e.buf = append(e.buf, b[:]...)
}

func (e *byteEncoder) f64(v float64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	e.buf = append(e.buf, b[:]...)
}

func (e *byteEncoder) str(s string) {
	e.u8(byte(len(s)))
	e.buf = append(e.buf, s...)
}

func (e *byteEncoder) len() uint32 { return uint32(len(e.buf)) }
