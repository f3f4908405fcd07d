package vm

import (
	"fmt"

	"github.com/ledgerseal/rgbcore/pkg/schema"
)

// ContractView is the read-only slice of contract state the VM can
// observe: the current global-state stacks, indexed by type.
type ContractView interface {
	// GlobalCount reports how many entries exist for ty, and whether ty
	// is a type the contract tracks at all.
	GlobalCount(ty schema.GlobalStateType) (count int, known bool)
	// GlobalElement returns element el of the pos-th entry (most-recent
	// first) of type ty.
	GlobalElement(ty schema.GlobalStateType, pos, el int) (value []byte, ok bool)
}

// OpView is the read-only view of the operation under validation: its own
// global state, inputs, outputs, and metadata.
type OpView interface {
	GlobalCount(ty schema.GlobalStateType) (count int, known bool)
	GlobalElement(ty schema.GlobalStateType, pos, el int) (value []byte, ok bool)

	InputCount(ty schema.AssignmentType) (count int, known bool)
	InputElement(ty schema.AssignmentType, pos, el int) (value []byte, ok bool)

	OutputCount(ty schema.AssignmentType) (count int, known bool)
	OutputElement(ty schema.AssignmentType, pos, el int) (value []byte, ok bool)

	MetaElement(ty schema.MetaType, el int) (value []byte, ok bool)
}

// Machine executes a schema's validation script against one (contract,
// operation) pair. All opcodes are pure and idempotent over that pair
// (spec.md §4.7); a Machine is cheap to construct per call. Its registers
// are reset at the start of every Execute, while the Budget it was built
// with keeps accumulating spent gas across calls.
type Machine struct {
	Registers
	budget *Budget
}

// NewMachine returns a Machine metered by the given gas budget.
func NewMachine(budget *Budget) *Machine {
	return &Machine{budget: budget}
}

// Execute runs program against contract and op, starting from a freshly
// reset register file (original_source's register-reset-on-halt rule:
// nothing survives between invocations). It returns a structural error
// only for malformed bytecode or budget exhaustion; a script that runs to
// completion but fails its own checks instead reports that through
// Registers.Passed().
func (m *Machine) Execute(program []Instruction, contract ContractView, op OpView) error {
	m.Registers.Reset()

	for _, inst := range program {
		if inst.Op == OpHalt {
			if err := m.budget.Charge(inst.Op, CostControl); err != nil {
				return err
			}
			return nil
		}

		if err := m.step(inst, contract, op); err != nil {
			return err
		}
		if m.CK {
			// A failed opcode halts the script immediately; CF stays
			// unset, so Passed() reports false without requiring an
			// explicit halt instruction after a failure.
			return nil
		}
	}
	return nil
}

func (m *Machine) step(inst Instruction, contract ContractView, op OpView) error {
	switch inst.Op {
	case OpCnC:
		return m.execCount(inst, CostCount, func() (int, bool) { return contract.GlobalCount(inst.GlobalType()) }, &m.A32)
	case OpCnG:
		return m.execCount16(inst, func() (int, bool) { return op.GlobalCount(inst.GlobalType()) })
	case OpCnI:
		return m.execCount16(inst, func() (int, bool) { return op.InputCount(inst.AssignType()) })
	case OpCnO:
		return m.execCount16(inst, func() (int, bool) { return op.OutputCount(inst.AssignType()) })
	case OpLdC:
		return m.execLoad(inst, func(pos, el int) ([]byte, bool) { return contract.GlobalElement(inst.GlobalType(), pos, el) })
	case OpLdG:
		return m.execLoad(inst, func(pos, el int) ([]byte, bool) { return op.GlobalElement(inst.GlobalType(), pos, el) })
	case OpLdI:
		return m.execLoad(inst, func(pos, el int) ([]byte, bool) { return op.InputElement(inst.AssignType(), pos, el) })
	case OpLdO:
		return m.execLoad(inst, func(pos, el int) ([]byte, bool) { return op.OutputElement(inst.AssignType(), pos, el) })
	case OpLdM:
		return m.execLoadMeta(inst, op)
	case OpEqS:
		return m.execEqS(inst)
	case OpPass:
		return m.execPass(inst)
	default:
		return fmt.Errorf("vm: unknown opcode 0x%02x", inst.Op)
	}
}

// execCount implements cn.c: count into an A32 destination. never fails;
// 0 if the type is absent from contract state (spec.md §4.7).
func (m *Machine) execCount(inst Instruction, cost uint64, count func() (int, bool), bank *[bankSize]uint32) error {
	if err := m.budget.Charge(inst.Op, cost); err != nil {
		return err
	}
	n, _ := count()
	if int(inst.Dst) >= bankSize {
		return fmt.Errorf("vm: A32 register %d out of range", inst.Dst)
	}
	if n < 0 || uint64(n) > uint64(^uint32(0)) {
		m.CO = true
		m.CK = true
		return nil
	}
	bank[inst.Dst] = uint32(n)
	return nil
}

// execCount16 implements cn.g/cn.i/cn.o: count into an A16 destination.
// Fails (CK set, halt) if the operation's type is undeclared (spec.md
// §4.7: "set fail + halt if type undefined").
func (m *Machine) execCount16(inst Instruction, count func() (int, bool)) error {
	if err := m.budget.Charge(inst.Op, CostCount); err != nil {
		return err
	}
	if int(inst.Dst) >= bankSize {
		return fmt.Errorf("vm: A16 register %d out of range", inst.Dst)
	}
	n, known := count()
	if !known {
		m.CK = true
		return nil
	}
	if n < 0 || n > 0xFFFF {
		m.CO = true
		m.CK = true
		return nil
	}
	m.A16[inst.Dst] = uint16(n)
	return nil
}

// execLoad implements ld.c/ld.g/ld.i/ld.o: load an element into an S
// register, reading the position from the A16 bank at inst.Pos.
func (m *Machine) execLoad(inst Instruction, load func(pos, el int) ([]byte, bool)) error {
	if err := m.budget.Charge(inst.Op, CostLoad); err != nil {
		return err
	}
	if int(inst.Dst) >= bankSize || int(inst.Pos) >= bankSize {
		return fmt.Errorf("vm: register out of range (dst=%d pos=%d)", inst.Dst, inst.Pos)
	}
	pos := int(m.A16[inst.Pos])
	value, ok := load(pos, int(inst.El))
	if !ok {
		m.CK = true
		return nil
	}
	m.S[inst.Dst] = value
	return nil
}

// execEqS implements eq.s: compares S[Dst] against S[Pos] byte for byte,
// setting CK (and halting the script, per the Execute loop) on any
// mismatch. A missing register on either side (nil slice) compares equal
// only to another missing register.
func (m *Machine) execEqS(inst Instruction) error {
	if err := m.budget.Charge(inst.Op, CostControl); err != nil {
		return err
	}
	if int(inst.Dst) >= bankSize || int(inst.Pos) >= bankSize {
		return fmt.Errorf("vm: register out of range (dst=%d pos=%d)", inst.Dst, inst.Pos)
	}
	a, b := m.S[inst.Dst], m.S[inst.Pos]
	if len(a) != len(b) {
		m.CK = true
		return nil
	}
	for i := range a {
		if a[i] != b[i] {
			m.CK = true
			return nil
		}
	}
	return nil
}

// execPass implements pass: the only opcode that sets CF. A schema script
// reaches it only after every check it cares about has already succeeded
// (spec.md §4.7: "the validator considers the script passed iff CK is
// unset and CF is set at halt").
func (m *Machine) execPass(inst Instruction) error {
	if err := m.budget.Charge(inst.Op, CostControl); err != nil {
		return err
	}
	m.CF = true
	return nil
}

// execLoadMeta implements ld.m: load an element of the operation's
// metadata, which has no positional index (an operation carries at most
// one entry per MetaType per schema.Once-style arity).
func (m *Machine) execLoadMeta(inst Instruction, op OpView) error {
	if err := m.budget.Charge(inst.Op, CostLoad); err != nil {
		return err
	}
	if int(inst.Dst) >= bankSize {
		return fmt.Errorf("vm: S register %d out of range", inst.Dst)
	}
	value, ok := op.MetaElement(inst.MetaType(), int(inst.El))
	if !ok {
		m.CK = true
		return nil
	}
	m.S[inst.Dst] = value
	return nil
}
