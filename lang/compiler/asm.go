package compiler

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// Disassemble renders code (a *Program's full byte stream, or any chunk-
// shaped slice of it) in the UTF-8, tab-separated textual form spec.md
// §4.5 describes: one line per instruction, `<offset>\t<mnemonic>\t<operand
// name>: <value>\t...`, with the function_signature and
// function_chunk_header markers rendered as their own banner lines since
// they are table/chunk structure rather than executable instructions.
func Disassemble(code []byte) (string, error) {
	var b strings.Builder
	pos := 0
	for pos < len(code) {
		n, line, err := disasmOne(code, pos)
		if err != nil {
			return b.String(), err
		}
		b.WriteString(line)
		b.WriteByte('\n')
		pos += n
	}
	return b.String(), nil
}

func disasmOne(code []byte, pos int) (n int, line string, err error) {
	op := Opcode(code[pos])
	switch op {
	case FunctionSignature:
		entry, n, err := decodeSignature(code, pos)
		if err != nil {
			return 0, "", err
		}
		return n, fmt.Sprintf("%04d\tfunction signature\tname: %q\tlocal_count: %d\tchunk_offset: %d",
			pos, entry.Name, entry.LocalCount, entry.ChunkOffset), nil
	case FunctionChunkHeader:
		name, localCount, n, err := decodeChunkHeader(code, pos)
		if err != nil {
			return 0, "", err
		}
		return n, fmt.Sprintf("%04d\t=== function chunk: %s ===\tlocal_count: %d", pos, name, localCount), nil
	}

	spec, ok := operandSpecs[op]
	if !ok {
		return 0, "", fmt.Errorf("malformed bytecode: illegal opcode 0x%02X at offset %d", byte(op), pos)
	}

	p := pos + 1
	var rendered []string
	for _, o := range spec {
		v, width, err := decodeOperand(code, p, o.kind)
		if err != nil {
			return 0, "", fmt.Errorf("%s at offset %d: %w", op, pos, err)
		}
		rendered = append(rendered, fmt.Sprintf("%s: %s", o.name, v))
		p += width
	}

	if len(rendered) == 0 {
		return p - pos, fmt.Sprintf("%04d\t%s", pos, op), nil
	}
	return p - pos, fmt.Sprintf("%04d\t%s\t%s", pos, op, strings.Join(rendered, "\t")), nil
}

type operandKind uint8

const (
	opU8 operandKind = iota
	opU16
	opI16
	opI32
	opF64
	opStr // len(1) prefixed byte string
)

type operand struct {
	name string
	kind operandKind
}

// operandSpecs names and widths every opcode's operands, in encoding order,
// matching spec.md §6's table for the opcodes it lists, except that
// push_float carries a full 8-byte double, and the scheme described in
// opcode.go's comments for the rest.
var operandSpecs = map[Opcode][]operand{
	GetValue:      {{"index", opU8}},
	SetValue:      {{"index", opU8}},
	PushInteger:   {{"value", opI32}},
	PushFloat:     {{"value", opF64}},
	PushString:    {{"value", opStr}},
	PushSimpleTag: {{"name", opStr}},
	PushTag:       {{"name", opStr}},
	PushBoolean:   {{"value", opU8}},
	GetTagName:    nil,
	GetTagPayload: nil,
	StrConcat:     nil,
	Eq:            nil,
	Not:           nil,
	And:           nil,
	Or:            nil,
	ToString:      nil,
	Pop:           nil,
	Jump:          {{"offset", opI16}},
	JumpIfFalse:   {{"offset", opI16}},
	Call:          {{"is_global", opU8}, {"arg_count", opU8}, {"fn_index", opU16}},
	Ret:           nil,
	Function:      {{"fn_index", opU16}, {"param_count", opU8}},
	MatchFail:     nil,

	AddInt: nil, SubInt: nil, MulInt: nil, DivInt: nil, ModInt: nil,
	AddFloat: nil, SubFloat: nil, MulFloat: nil, DivFloat: nil,
	LtInt: nil, GtInt: nil, LeInt: nil, GeInt: nil,
	LtFloat: nil, GtFloat: nil, LeFloat: nil, GeFloat: nil,
}

func decodeOperand(code []byte, pos int, kind operandKind) (string, int, error) {
	switch kind {
	case opU8:
		if pos >= len(code) {
			return "", 0, fmt.Errorf("truncated u8 operand")
		}
		return fmt.Sprintf("%d", code[pos]), 1, nil
	case opU16:
		if pos+2 > len(code) {
			return "", 0, fmt.Errorf("truncated u16 operand")
		}
		return fmt.Sprintf("%d", binary.BigEndian.Uint16(code[pos:pos+2])), 2, nil
	case opI16:
		if pos+2 > len(code) {
			return "", 0, fmt.Errorf("truncated i16 operand")
		}
		return fmt.Sprintf("%d", int16(binary.BigEndian.Uint16(code[pos:pos+2]))), 2, nil
	case opI32:
		if pos+4 > len(code) {
			return "", 0, fmt.Errorf("truncated i32 operand")
		}
		return fmt.Sprintf("%d", int32(binary.BigEndian.Uint32(code[pos:pos+4]))), 4, nil
	case opF64:
		if pos+8 > len(code) {
			return "", 0, fmt.Errorf("truncated f64 operand")
		}
		bits := binary.BigEndian.Uint64(code[pos : pos+8])
		return fmt.Sprintf("%g", math.Float64frombits(bits)), 8, nil
	case opStr:
		if pos >= len(code) {
			return "", 0, fmt.Errorf("truncated string length prefix")
		}
		l := int(code[pos])
		if pos+1+l > len(code) {
			return "", 0, fmt.Errorf("truncated string operand")
		}
		return fmt.Sprintf("%q", string(code[pos+1:pos+1+l])), 1 + l, nil
	default:
		return "", 0, fmt.Errorf("unknown operand kind")
	}
}
