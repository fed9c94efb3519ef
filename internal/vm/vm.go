// Package vm is the P-Code stack interpreter: a flat []int stack plus
// a base/top/program-counter register set, executing the Instruction
// array codegen produces directly, with no textual intermediate form.
//
// Grounded on the teacher's vmtranslator/vm_translator.go call/return
// frame handling (parseCall pushes return-address/LCL/ARG/THIS/THAT
// then rewrites ARG to SP-n-5; parseReturn restores them from LCL in
// reverse): the same push-header-then-relocate-and-restore shape is
// reused here, adapted from five named Hack VM segment registers to
// PL/0's three-word [SL, DL, RA] activation header addressed through
// a single base register.
package vm

import (
	"fmt"

	"github.com/xiaobogaga/plzero/internal/codegen"
)

// stackSize bounds T; a program that exceeds it (runaway recursion,
// most often) fails with RuntimeError rather than a Go-level panic.
const stackSize = 4096

// IOPort abstracts the read/write statements' console so tests can
// swap in a programmed reader/recorder in place of the real terminal.
type IOPort interface {
	ReadInt() (int, error)
	WriteInt(v int)
}

// RuntimeError is returned by Run for any VM-detected fault: stack
// exhaustion, division by zero, or a malformed program counter.
type RuntimeError struct {
	Message string
}

func (e *RuntimeError) Error() string { return e.Message }

func runtimeErrorf(format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Message: fmt.Sprintf(format, args...)}
}

// Machine executes one linearized program to completion or fault. T
// is the index of the topmost occupied stack slot, not the next free
// one, matching the classic pcode convention.
type Machine struct {
	code []codegen.Instruction
	io   IOPort

	stack [stackSize]int
	p     int
	b     int
	t     int
}

func New(code []codegen.Instruction, io IOPort) *Machine {
	return &Machine{code: code, io: io}
}

// Run executes from the program entry until the outermost block
// returns (success) or a fault occurs. stack[0..2] start zeroed as the
// main frame's dummy header: its RA is 0, so a return out of the
// outermost block halts instead of jumping anywhere.
func (m *Machine) Run() error {
	m.p, m.b, m.t = 0, 0, 2
	for {
		if m.p < 0 || m.p >= len(m.code) {
			return runtimeErrorf("program counter %d out of range", m.p)
		}
		instr := m.code[m.p]
		m.p++
		switch instr.Op {
		case codegen.LIT:
			if err := m.push(instr.A); err != nil {
				return err
			}
		case codegen.LOD:
			addr, err := m.base(instr.Level)
			if err != nil {
				return err
			}
			if err := m.push(m.stack[addr+instr.A]); err != nil {
				return err
			}
		case codegen.STO:
			addr, err := m.base(instr.Level)
			if err != nil {
				return err
			}
			if m.t < 0 {
				return runtimeErrorf("stack underflow")
			}
			m.stack[addr+instr.A] = m.stack[m.t]
			m.t--
		case codegen.CAL:
			if err := m.call(instr); err != nil {
				return err
			}
		case codegen.INT:
			newTop := m.b + instr.A - 1
			if newTop >= stackSize {
				return runtimeErrorf("stack overflow")
			}
			for i := m.t + 1; i <= newTop; i++ {
				m.stack[i] = 0
			}
			m.t = newTop
		case codegen.JMP:
			m.p = instr.A
		case codegen.JPC:
			if m.t < 0 {
				return runtimeErrorf("stack underflow")
			}
			if m.stack[m.t] == 0 {
				m.p = instr.A
			}
			m.t--
		case codegen.OPR:
			halt, err := m.operate(instr.A)
			if err != nil {
				return err
			}
			if halt {
				return nil
			}
		case codegen.RED:
			v, err := m.io.ReadInt()
			if err != nil {
				return runtimeErrorf("read: %v", err)
			}
			addr, err := m.base(instr.Level)
			if err != nil {
				return err
			}
			m.stack[addr+instr.A] = v
		case codegen.WRT:
			v, err := m.pop()
			if err != nil {
				return err
			}
			m.io.WriteInt(v)
		default:
			return runtimeErrorf("unknown opcode %d", instr.Op)
		}
	}
}

// base walks levelDiff static links from the current frame: base(0,B)
// is the current frame itself, base(L,B) repeats L times through SL.
func (m *Machine) base(levelDiff int) (int, error) {
	b := m.b
	for i := 0; i < levelDiff; i++ {
		if b < 0 || b >= stackSize {
			return 0, runtimeErrorf("corrupt static link")
		}
		b = m.stack[b]
	}
	return b, nil
}

// call builds the callee's activation record. The arguments are
// already sitting on top of the stack, pushed by the caller's emitted
// code immediately before this instruction. Read literally, CAL would
// open the new frame just above them (frame start = T+1), which would
// leave the arguments below B at negative offsets instead of at the
// offsets 3..3+P-1 the call/return contract promises the callee. So
// call instead shifts the P already-pushed words up by 3 to make room
// for the header in front of them, landing the frame as the
// contiguous [SL, DL, RA, params...] the offsets assume; with zero
// arguments this shift is a no-op and call degenerates to exactly the
// textbook "frame starts at T+1" rule.
func (m *Machine) call(instr codegen.Instruction) error {
	sl, err := m.base(instr.Level)
	if err != nil {
		return err
	}
	nargs := instr.N
	if m.t < nargs-1 {
		return runtimeErrorf("stack underflow")
	}
	argsStart := m.t - nargs + 1
	if argsStart+nargs+2 >= stackSize {
		return runtimeErrorf("stack overflow")
	}
	for i := nargs - 1; i >= 0; i-- {
		m.stack[argsStart+3+i] = m.stack[argsStart+i]
	}
	m.stack[argsStart] = sl
	m.stack[argsStart+1] = m.b
	m.stack[argsStart+2] = m.p
	m.b = argsStart
	m.t = argsStart + nargs + 2
	m.p = instr.A
	return nil
}

// operate executes one OPR subcode. It reports halt=true when the
// restored return address is 0, meaning this was a return out of the
// outermost block.
func (m *Machine) operate(subcode int) (halt bool, err error) {
	switch subcode {
	case codegen.OprReturn:
		newTop := m.b - 1
		ra := m.stack[m.b+2]
		newB := m.stack[m.b+1]
		m.t = newTop
		m.p = ra
		m.b = newB
		return ra == 0, nil
	case codegen.OprNeg:
		return false, m.unary(func(a int) int { return -a })
	case codegen.OprOdd:
		return false, m.unary(func(a int) int { return boolInt(a%2 != 0) })
	case codegen.OprAdd:
		return false, m.binary(func(a, b int) (int, error) { return a + b, nil })
	case codegen.OprSub:
		return false, m.binary(func(a, b int) (int, error) { return a - b, nil })
	case codegen.OprMul:
		return false, m.binary(func(a, b int) (int, error) { return a * b, nil })
	case codegen.OprDiv:
		return false, m.binary(func(a, b int) (int, error) {
			if b == 0 {
				return 0, runtimeErrorf("division by zero")
			}
			return a / b, nil
		})
	case codegen.OprEq:
		return false, m.binary(func(a, b int) (int, error) { return boolInt(a == b), nil })
	case codegen.OprNeq:
		return false, m.binary(func(a, b int) (int, error) { return boolInt(a != b), nil })
	case codegen.OprLt:
		return false, m.binary(func(a, b int) (int, error) { return boolInt(a < b), nil })
	case codegen.OprGe:
		return false, m.binary(func(a, b int) (int, error) { return boolInt(a >= b), nil })
	case codegen.OprGt:
		return false, m.binary(func(a, b int) (int, error) { return boolInt(a > b), nil })
	case codegen.OprLe:
		return false, m.binary(func(a, b int) (int, error) { return boolInt(a <= b), nil })
	default:
		return false, runtimeErrorf("unknown OPR subcode %d", subcode)
	}
}

func (m *Machine) unary(f func(int) int) error {
	a, err := m.pop()
	if err != nil {
		return err
	}
	return m.push(f(a))
}

func (m *Machine) binary(f func(a, b int) (int, error)) error {
	b, err := m.pop()
	if err != nil {
		return err
	}
	a, err := m.pop()
	if err != nil {
		return err
	}
	v, err := f(a, b)
	if err != nil {
		return err
	}
	return m.push(v)
}

func (m *Machine) push(v int) error {
	if m.t+1 >= stackSize {
		return runtimeErrorf("stack overflow")
	}
	m.t++
	m.stack[m.t] = v
	return nil
}

func (m *Machine) pop() (int, error) {
	if m.t < 0 {
		return 0, runtimeErrorf("stack underflow")
	}
	v := m.stack[m.t]
	m.t--
	return v, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
