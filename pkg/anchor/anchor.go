// Package anchor implements the Anchor bundle binding a transition to its
// Bitcoin witness transaction via a multi-protocol commitment (MPC) proof
// (spec.md §4.8).
package anchor

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ledgerseal/rgbcore/pkg/commit"
	"github.com/ledgerseal/rgbcore/pkg/ids"
	"github.com/ledgerseal/rgbcore/pkg/strictcodec"
)

// DbcMethod names which deterministic-bitcoin-commitment container the
// witness transaction carries the MPC root in. The core never parses
// Bitcoin scripts itself (out of scope); this only tells a resolver
// implementation where to look (SPEC_FULL.md supplement #6).
type DbcMethod uint8

const (
	Tapret DbcMethod = iota
	Opret
)

func (m DbcMethod) String() string {
	switch m {
	case Tapret:
		return "tapret"
	case Opret:
		return "opret"
	default:
		return fmt.Sprintf("DbcMethod(%d)", uint8(m))
	}
}

// ErrMpcInvalid is returned when an MPC proof's convolution does not equal
// the root the resolver reports as committed in the witness transaction.
var ErrMpcInvalid = errors.New("anchor: MPC proof does not convolve to the committed root")

// ErrSlotMismatch is returned when a proof's Slot is not the one
// contract_id determines for the tree width the proof's path implies
// (spec.md §4.8: "each contract's opid occupies a distinct slot determined
// by contract_id").
var ErrSlotMismatch = errors.New("anchor: MPC proof slot does not match contract_id")

const mpcLeafTag = "rgb:mpc:leaf#v1"
const mpcNodeTag = "rgb:mpc:node#v1"

// Proof is a Merkle-style inclusion path proving that commit(contract_id,
// opid) occupies a specific slot of the multi-protocol commitment tree a
// single witness transaction may carry commitments for many contracts in
// (spec.md §4.8).
type Proof struct {
	// Slot is the leaf position contract_id determines (width is implied
	// by len(Siblings)).
	Slot uint32
	// Siblings is the sibling hash at each level from leaf to root.
	Siblings [][32]byte
}

// leafHash computes the MPC leaf for a (protocol, message) pair.
func leafHash(protocol ids.ContractId, message ids.OpId) [32]byte {
	return commit.TaggedHashMulti(mpcLeafTag, protocol.Bytes(), message.Bytes())
}

// Convolve recomputes the MPC tree root along p's path from the leaf
// committing (protocol, message), the core's one piece of MPC-verification
// logic (spec.md §4.8: "the core verifies the convolution").
func (p Proof) Convolve(protocol ids.ContractId, message ids.OpId) [32]byte {
	cur := leafHash(protocol, message)
	pos := p.Slot
	for _, sibling := range p.Siblings {
		var buf [32 + 32]byte
		if pos%2 == 0 {
			copy(buf[:32], cur[:])
			copy(buf[32:], sibling[:])
		} else {
			copy(buf[:32], sibling[:])
			copy(buf[32:], cur[:])
		}
		cur = commit.TaggedHash(mpcNodeTag, buf[:])
		pos /= 2
	}
	return cur
}

// Anchor is the bundle a Transition carries to bind it to its witness
// transaction.
type Anchor struct {
	Method      DbcMethod
	MpcProof    Proof
	WitnessTxid ids.Txid
}

// Verify checks that a.MpcProof occupies the slot contract_id determines
// within its tree and that mpc_proof.convolve(contract_id, opid) equals
// committedRoot, the value the resolver reports as embedded in the
// witness transaction's TAPRET/OPRET output (spec.md §4.8).
func (a Anchor) Verify(contractId ids.ContractId, opid ids.OpId, committedRoot [32]byte) error {
	width := uint32(1) << uint(len(a.MpcProof.Siblings))
	if a.MpcProof.Slot != slotFor(contractId, width) {
		return fmt.Errorf("%w: contract %s, slot %d", ErrSlotMismatch, contractId, a.MpcProof.Slot)
	}
	if a.MpcProof.Convolve(contractId, opid) != committedRoot {
		return fmt.Errorf("%w: contract %s, op %s", ErrMpcInvalid, contractId, opid)
	}
	return nil
}

// StrictEncode writes the canonical byte representation of an Anchor.
func (a Anchor) StrictEncode(w *strictcodec.Writer) error {
	if err := w.WriteByte(byte(a.Method)); err != nil {
		return err
	}
	if err := w.WriteU32(a.MpcProof.Slot); err != nil {
		return err
	}
	if err := strictcodec.WriteSlice(w, a.MpcProof.Siblings, func(w *strictcodec.Writer, h [32]byte) error {
		return w.WriteRawBytes(h[:])
	}); err != nil {
		return err
	}
	return w.WriteRawBytes(a.WitnessTxid.Bytes())
}

// DecodeAnchor reads an Anchor per StrictEncode's layout.
func DecodeAnchor(r *strictcodec.Reader) (Anchor, error) {
	m, err := r.ReadByte()
	if err != nil {
		return Anchor{}, err
	}
	slot, err := r.ReadU32()
	if err != nil {
		return Anchor{}, err
	}
	siblings, err := strictcodec.ReadSlice(r, func(r *strictcodec.Reader) ([32]byte, error) {
		b, err := r.ReadRawBytes(32)
		if err != nil {
			return [32]byte{}, err
		}
		var h [32]byte
		copy(h[:], b)
		return h, nil
	})
	if err != nil {
		return Anchor{}, err
	}
	txidBytes, err := r.ReadRawBytes(ids.Size)
	if err != nil {
		return Anchor{}, err
	}
	return Anchor{
		Method:      DbcMethod(m),
		MpcProof:    Proof{Slot: slot, Siblings: siblings},
		WitnessTxid: ids.Txid(ids.Bytes32FromSlice(txidBytes)),
	}, nil
}

// slotFor derives the deterministic MPC slot a contract id occupies
// within a tree of the given width. Anchor.Verify checks a proof's slot
// against it so a contract can never be bound to a slot some other
// contract_id would have chosen.
func slotFor(contractId ids.ContractId, width uint32) uint32 {
	b := contractId.Bytes()
	v := binary.LittleEndian.Uint32(b[:4])
	return v % width
}
