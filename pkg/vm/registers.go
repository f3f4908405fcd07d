// Package vm implements the tiny deterministic register machine schemas
// embed their validation scripts in (spec.md §4.7). It has no I/O, no
// floating point, and no notion of wall-clock time.
package vm

// bankSize is the number of addressable slots in each integer/string
// register bank.
const bankSize = 16

// Registers holds the machine's addressable state: two integer banks
// (A16, A32) and one string bank (S), plus the three control registers
// the validator inspects after halt.
type Registers struct {
	A16 [bankSize]uint16
	A32 [bankSize]uint32
	S   [bankSize][]byte

	// CK (check) — set on any opcode failure.
	CK bool
	// CO (overflow) — set if a counting/loading result would not fit its
	// destination register.
	CO bool
	// CF (final) — set by the script to signal it reached a passing halt.
	CF bool
}

// Reset zeroes every register and control flag. Per
// original_source/src/vm/op_contract.rs, register and control-register
// state never carries over between script invocations — Reset runs at the
// start of every Execute call, not just construction.
func (r *Registers) Reset() {
	*r = Registers{}
}

// Passed reports whether the script halted in a passing state: CK unset
// and CF set (spec.md §4.7).
func (r *Registers) Passed() bool {
	return !r.CK && r.CF
}
