// Package machine implements the stack-based virtual machine that executes
// a compiled delta program (spec.md §4.4).
package machine

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/anissen/delta/lang/compiler"
	"github.com/anissen/delta/lang/value"
)

// RuntimeErrorKind classifies a RuntimeError (spec.md §7).
type RuntimeErrorKind uint8

const (
	DivByZero RuntimeErrorKind = iota
	NoMatch
	TypeMismatch
	MalformedBytecode
)

func (k RuntimeErrorKind) String() string {
	switch k {
	case DivByZero:
		return "division by zero"
	case NoMatch:
		return "no is-arm matched"
	case TypeMismatch:
		return "type mismatch"
	case MalformedBytecode:
		return "malformed bytecode"
	default:
		return "runtime error"
	}
}

// RuntimeError reports a failure during bytecode execution.
type RuntimeError struct {
	Kind RuntimeErrorKind
	Msg  string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Stats holds the execution counters spec.md §4.4/§8 requires as part of
// the VM's observable contract.
type Stats struct {
	BytesRead            uint64
	InstructionsExecuted uint64
	JumpsPerformed       uint64
	MaxStackHeight       int
	StackAllocations     uint64
}

// Machine executes one compiled Program start to finish. It owns its value
// stack and frame stack exclusively (spec.md §5): a distinct Machine is
// required for concurrent evaluation.
type Machine struct {
	prog  *compiler.Program
	stack []value.Value
	calls []frame
	stats Stats
}

// Run executes prog's main chunk to completion and returns its result
// value together with the execution statistics gathered along the way.
func Run(prog *compiler.Program) (value.Value, Stats, error) {
	m := &Machine{prog: prog}
	m.pushFrame("main", int(prog.MainCodeStart), m.chunkEnd(-1), 0)
	result, err := m.exec()
	return result, m.stats, err
}

// chunkEnd returns the byte offset one past the end of the chunk whose
// index into prog.Functions is idx, or of the main chunk when idx is -1.
func (m *Machine) chunkEnd(idx int) int {
	if idx+1 < len(m.prog.Functions) {
		return int(m.prog.Functions[idx+1].ChunkOffset)
	}
	return len(m.prog.Code)
}

func (m *Machine) pushFrame(name string, start, end, base int) {
	m.calls = append(m.calls, frame{funcName: name, pc: start, codeEnd: end, base: base})
}

func (m *Machine) push(v value.Value) {
	m.stack = append(m.stack, v)
	m.stats.StackAllocations++
	if len(m.stack) > m.stats.MaxStackHeight {
		m.stats.MaxStackHeight = len(m.stack)
	}
}

func (m *Machine) pop() value.Value {
	v := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	return v
}

func (m *Machine) popBool() (value.Boolean, error) {
	v := m.pop()
	b, ok := v.(value.Boolean)
	if !ok {
		return false, &RuntimeError{Kind: TypeMismatch, Msg: fmt.Sprintf("expected bool, got %s", v.Type())}
	}
	return b, nil
}

func (m *Machine) popString() (value.String, error) {
	v := m.pop()
	s, ok := v.(value.String)
	if !ok {
		return "", &RuntimeError{Kind: TypeMismatch, Msg: fmt.Sprintf("expected string, got %s", v.Type())}
	}
	return s, nil
}

// exec runs the instruction loop from the current top frame until the
// top-level main frame returns, at which point its return value is the
// program's result.
func (m *Machine) exec() (value.Value, error) {
	code := m.prog.Code

	for {
		fr := &m.calls[len(m.calls)-1]
		if fr.pc >= fr.codeEnd {
			return nil, &RuntimeError{Kind: MalformedBytecode, Msg: "instruction pointer ran past end of chunk without a ret"}
		}

		op := compiler.Opcode(code[fr.pc])
		start := fr.pc
		fr.pc++
		m.stats.InstructionsExecuted++

		switch op {
		case compiler.Pop:
			m.pop()

		case compiler.GetValue:
			idx := int(code[fr.pc])
			fr.pc++
			m.push(m.stack[fr.base+idx])

		case compiler.SetValue:
			idx := int(code[fr.pc])
			fr.pc++
			v := m.pop()
			m.setLocal(fr, idx, v)

		case compiler.PushInteger:
			v := int32(binary.BigEndian.Uint32(code[fr.pc : fr.pc+4]))
			fr.pc += 4
			m.push(value.Integer(v))

		case compiler.PushFloat:
			bits := binary.BigEndian.Uint64(code[fr.pc : fr.pc+8])
			fr.pc += 8
			m.push(value.Float(math.Float64frombits(bits)))

		case compiler.PushBoolean:
			v := code[fr.pc]
			fr.pc++
			m.push(value.Boolean(v != 0))

		case compiler.PushString:
			s, n := readStr(code, fr.pc)
			fr.pc += n
			m.push(value.String(s))

		case compiler.PushSimpleTag:
			name, n := readStr(code, fr.pc)
			fr.pc += n
			m.push(value.SimpleTag{Name: name})

		case compiler.PushTag:
			name, n := readStr(code, fr.pc)
			fr.pc += n
			payload := m.pop()
			m.push(value.Tag{Name: name, Payload: payload})

		case compiler.GetTagName:
			switch t := m.pop().(type) {
			case value.Tag:
				m.push(value.String(t.Name))
			case value.SimpleTag:
				m.push(value.String(t.Name))
			default:
				return nil, &RuntimeError{Kind: TypeMismatch, Msg: fmt.Sprintf("get_tag_name on %s", t.Type())}
			}

		case compiler.GetTagPayload:
			t, ok := m.pop().(value.Tag)
			if !ok {
				return nil, &RuntimeError{Kind: TypeMismatch, Msg: "get_tag_payload on a non-payload-carrying value"}
			}
			m.push(t.Payload)

		case compiler.Eq:
			b := m.pop()
			a := m.pop()
			m.push(value.Boolean(value.Equal(a, b)))

		case compiler.Not:
			b, err := m.popBool()
			if err != nil {
				return nil, err
			}
			m.push(!b)

		case compiler.And:
			b, err := m.popBool()
			if err != nil {
				return nil, err
			}
			a, err := m.popBool()
			if err != nil {
				return nil, err
			}
			m.push(a && b)

		case compiler.Or:
			b, err := m.popBool()
			if err != nil {
				return nil, err
			}
			a, err := m.popBool()
			if err != nil {
				return nil, err
			}
			m.push(a || b)

		case compiler.ToString:
			v := m.pop()
			m.push(value.String(v.String()))

		case compiler.StrConcat:
			b, err := m.popString()
			if err != nil {
				return nil, err
			}
			a, err := m.popString()
			if err != nil {
				return nil, err
			}
			m.push(a + b)

		case compiler.AddInt, compiler.SubInt, compiler.MulInt, compiler.DivInt, compiler.ModInt:
			if err := m.execIntArith(op); err != nil {
				return nil, err
			}

		case compiler.AddFloat, compiler.SubFloat, compiler.MulFloat, compiler.DivFloat:
			if err := m.execFloatArith(op); err != nil {
				return nil, err
			}

		case compiler.LtInt, compiler.GtInt, compiler.LeInt, compiler.GeInt:
			if err := m.execIntCompare(op); err != nil {
				return nil, err
			}

		case compiler.LtFloat, compiler.GtFloat, compiler.LeFloat, compiler.GeFloat:
			if err := m.execFloatCompare(op); err != nil {
				return nil, err
			}

		case compiler.Jump:
			off := readI16(code, fr.pc)
			fr.pc = fr.pc + 2 + int(off)
			m.stats.JumpsPerformed++

		case compiler.JumpIfFalse:
			off := readI16(code, fr.pc)
			from := fr.pc + 2
			fr.pc = from
			b, err := m.popBool()
			if err != nil {
				return nil, err
			}
			if !b {
				fr.pc = from + int(off)
				m.stats.JumpsPerformed++
			}

		case compiler.MatchFail:
			return nil, &RuntimeError{Kind: NoMatch, Msg: "no is-arm matched and no wildcard was present"}

		case compiler.Function:
			idx := binary.BigEndian.Uint16(code[fr.pc : fr.pc+2])
			fr.pc += 2
			fr.pc++ // param_count, unused at runtime: arity is checked at compile time
			m.push(value.Function{Index: uint32(idx), Name: m.prog.Functions[idx].Name})

		case compiler.Call:
			fr.pc++ // is_global: reserved, always 0 (spec.md §9)
			argCount := int(code[fr.pc])
			fr.pc++
			fnIdx := binary.BigEndian.Uint16(code[fr.pc : fr.pc+2])
			fr.pc += 2
			if err := m.execCall(int(fnIdx), argCount); err != nil {
				return nil, err
			}

		case compiler.Ret:
			ret := m.pop()
			base := fr.base
			m.stack = m.stack[:base]
			m.calls = m.calls[:len(m.calls)-1]
			if len(m.calls) == 0 {
				return ret, nil
			}
			m.push(ret)

		default:
			return nil, &RuntimeError{Kind: MalformedBytecode, Msg: fmt.Sprintf("illegal opcode 0x%02X at offset %d", byte(op), start)}
		}

		m.stats.BytesRead += uint64(fr.pc - start)
	}
}

// setLocal writes v to the local slot index of the current frame,
// growing the stack with zero-value padding if the slot has not yet been
// reserved (happens the first time a function's trailing locals, such as
// an is-expression's scratch slot, are written).
func (m *Machine) setLocal(fr *frame, index int, v value.Value) {
	slot := fr.base + index
	for slot >= len(m.stack) {
		m.push(nil)
	}
	m.stack[slot] = v
}

func readStr(code []byte, pos int) (string, int) {
	l := int(code[pos])
	return string(code[pos+1 : pos+1+l]), 1 + l
}

func readI16(code []byte, pos int) int16 {
	return int16(binary.BigEndian.Uint16(code[pos : pos+2]))
}

func (m *Machine) execIntArith(op compiler.Opcode) error {
	b, okb := m.pop().(value.Integer)
	a, oka := m.pop().(value.Integer)
	if !oka || !okb {
		return &RuntimeError{Kind: TypeMismatch, Msg: "integer arithmetic on a non-integer operand"}
	}
	switch op {
	case compiler.AddInt:
		m.push(a + b)
	case compiler.SubInt:
		m.push(a - b)
	case compiler.MulInt:
		m.push(a * b)
	case compiler.DivInt:
		if b == 0 {
			return &RuntimeError{Kind: DivByZero, Msg: "integer division by zero"}
		}
		m.push(a / b)
	case compiler.ModInt:
		if b == 0 {
			return &RuntimeError{Kind: DivByZero, Msg: "integer modulo by zero"}
		}
		m.push(a % b)
	}
	return nil
}

func (m *Machine) execFloatArith(op compiler.Opcode) error {
	b, okb := m.pop().(value.Float)
	a, oka := m.pop().(value.Float)
	if !oka || !okb {
		return &RuntimeError{Kind: TypeMismatch, Msg: "float arithmetic on a non-float operand"}
	}
	switch op {
	case compiler.AddFloat:
		m.push(a + b)
	case compiler.SubFloat:
		m.push(a - b)
	case compiler.MulFloat:
		m.push(a * b)
	case compiler.DivFloat:
		m.push(a / b)
	}
	return nil
}

func (m *Machine) execIntCompare(op compiler.Opcode) error {
	b, okb := m.pop().(value.Integer)
	a, oka := m.pop().(value.Integer)
	if !oka || !okb {
		return &RuntimeError{Kind: TypeMismatch, Msg: "integer comparison on a non-integer operand"}
	}
	switch op {
	case compiler.LtInt:
		m.push(value.Boolean(a < b))
	case compiler.GtInt:
		m.push(value.Boolean(a > b))
	case compiler.LeInt:
		m.push(value.Boolean(a <= b))
	case compiler.GeInt:
		m.push(value.Boolean(a >= b))
	}
	return nil
}

func (m *Machine) execFloatCompare(op compiler.Opcode) error {
	b, okb := m.pop().(value.Float)
	a, oka := m.pop().(value.Float)
	if !oka || !okb {
		return &RuntimeError{Kind: TypeMismatch, Msg: "float comparison on a non-float operand"}
	}
	switch op {
	case compiler.LtFloat:
		m.push(value.Boolean(a < b))
	case compiler.GtFloat:
		m.push(value.Boolean(a > b))
	case compiler.LeFloat:
		m.push(value.Boolean(a <= b))
	case compiler.GeFloat:
		m.push(value.Boolean(a >= b))
	}
	return nil
}

// execCall enters fnIdx with argCount values already on top of the stack,
// per spec.md §4.4's calling convention: they become the callee's locals
// [0..argCount).
func (m *Machine) execCall(fnIdx, argCount int) error {
	if fnIdx < 0 || fnIdx >= len(m.prog.Functions) {
		return &RuntimeError{Kind: MalformedBytecode, Msg: fmt.Sprintf("call to undefined function index %d", fnIdx)}
	}
	entry := m.prog.Functions[fnIdx]
	base := len(m.stack) - argCount
	m.pushFrame(entry.Name, int(entry.CodeStart()), m.chunkEnd(fnIdx), base)
	return nil
}
