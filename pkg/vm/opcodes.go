package vm

import (
	"fmt"

	"github.com/ledgerseal/rgbcore/pkg/schema"
)

// Opcode numbers the RGB-specific instruction extension. The numbering is
// hardwired here rather than left schema-configurable — two candidate
// numbering schemes exist upstream and this repo fixes on the more
// complete one. Scripts carry no version byte, so nothing selects between
// numberings when a script runs.
type Opcode uint8

const (
	OpCnC Opcode = 0x40 + iota // cn.c dst_A32, ty      — count of contract global state
	OpCnG                      // cn.g dst_A16, ty      — count of operation global state
	OpCnI                      // cn.i dst_A16, ty      — count of operation inputs
	OpCnO                      // cn.o dst_A16, ty      — count of operation outputs
	OpLdC                      // ld.c dst_S, ty, pos_A, el — load contract global state element
	OpLdG                      // ld.g dst_S, ty, pos_A, el — load operation global state element
	OpLdI                      // ld.i dst_S, ty, pos_A, el — load operation input element
	OpLdO                      // ld.o dst_S, ty, pos_A, el — load operation output element
	OpLdM                      // ld.m dst_S, ty, el        — load operation metadata element
	OpEqS                      // eq.s a_S, b_S             — set CK if S[a] != S[b]
	OpPass                     // pass                      — set CF
	OpHalt                     // halt — stop execution; CF/CK reflect the outcome so far
)

// IsaVersion is the only version this VM implements. Neither a schema nor
// its script declares a version, and no code in this module compares one
// against IsaVersion.
const IsaVersion uint8 = 1

// ErrUnsupportedISA reports an ISA version this VM does not implement. No
// code path in this module returns it.
var ErrUnsupportedISA = fmt.Errorf("vm: unsupported ISA version")

// Instruction is one decoded bytecode instruction. Not every field is
// meaningful for every opcode; see the Opcode table in spec.md §4.7.
type Instruction struct {
	Op  Opcode
	Dst uint8
	Ty  uint16 // schema.GlobalStateType / schema.AssignmentType / schema.MetaType, depending on Op
	Pos uint8  // source A-register holding a position, for ld.* opcodes
	El  uint8
}

// GlobalType interprets Ty as a schema.GlobalStateType.
func (i Instruction) GlobalType() schema.GlobalStateType { return schema.GlobalStateType(i.Ty) }

// AssignType interprets Ty as a schema.AssignmentType.
func (i Instruction) AssignType() schema.AssignmentType { return schema.AssignmentType(i.Ty) }

// MetaType interprets Ty as a schema.MetaType.
func (i Instruction) MetaType() schema.MetaType { return schema.MetaType(i.Ty) }

// Decode parses a fixed 6-byte instruction: opcode, dst, ty (LE u16), pos,
// el. Every RGB extension opcode shares this shape so script decoding
// never branches on which fields are present.
func Decode(b []byte) (Instruction, error) {
	if len(b) < 6 {
		return Instruction{}, fmt.Errorf("vm: truncated instruction, need 6 bytes, got %d", len(b))
	}
	return Instruction{
		Op:  Opcode(b[0]),
		Dst: b[1],
		Ty:  uint16(b[2]) | uint16(b[3])<<8,
		Pos: b[4],
		El:  b[5],
	}, nil
}

// Encode writes i back to its 6-byte form, the inverse of Decode.
func (i Instruction) Encode() [6]byte {
	return [6]byte{byte(i.Op), i.Dst, byte(i.Ty), byte(i.Ty >> 8), i.Pos, i.El}
}
