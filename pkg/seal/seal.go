// Package seal implements the single-use-seal definitions that anchor an
// assignment to a Bitcoin outpoint (spec.md §3 "Seals").
package seal

import (
	"github.com/ledgerseal/rgbcore/pkg/commit"
	"github.com/ledgerseal/rgbcore/pkg/ids"
	"github.com/ledgerseal/rgbcore/pkg/strictcodec"
)

// Method identifies which deterministic-bitcoin-commitment scheme closes a
// seal, mirroring the two methods recognized for anchors (spec.md's
// "original_source" supplement on DbcMethod).
type Method uint8

const (
	MethodTapret Method = iota
	MethodOpret
)

const sealTag = "rgb:seal:v1"

// Revealed is a single-use-seal definition: a specific transaction output,
// blinded by a 64-bit nonce. Txid == nil (Option::None) means "this seal
// closes on the witness transaction of the operation that defines it" — a
// self-referential seal resolved at seal-closure time (spec.md §3).
type Revealed struct {
	Method   Method
	Txid     *ids.Txid
	Vout     uint32
	Blinding uint64
}

// NewRevealed constructs a seal bound to an explicit outpoint.
func NewRevealed(method Method, txid ids.Txid, vout uint32, blinding uint64) Revealed {
	return Revealed{Method: method, Txid: &txid, Vout: vout, Blinding: blinding}
}

// NewSelfReferential constructs a seal that closes on the witness
// transaction of the operation defining it.
func NewSelfReferential(method Method, vout uint32, blinding uint64) Revealed {
	return Revealed{Method: method, Txid: nil, Vout: vout, Blinding: blinding}
}

// StrictEncode writes the canonical byte representation of a revealed seal.
func (s Revealed) StrictEncode(w *strictcodec.Writer) error {
	if err := w.WriteByte(byte(s.Method)); err != nil {
		return err
	}
	present := s.Txid != nil
	if err := w.WriteOption(present, func(w *strictcodec.Writer) error {
		return w.WriteRawBytes(s.Txid.Bytes())
	}); err != nil {
		return err
	}
	if err := w.WriteU32(s.Vout); err != nil {
		return err
	}
	return w.WriteU64(s.Blinding)
}

// DecodeRevealed reads a revealed seal per StrictEncode's layout.
func DecodeRevealed(r *strictcodec.Reader) (Revealed, error) {
	m, err := r.ReadByte()
	if err != nil {
		return Revealed{}, err
	}

	var txid *ids.Txid
	_, err = r.ReadOption(func(r *strictcodec.Reader) error {
		b, err := r.ReadRawBytes(ids.Size)
		if err != nil {
			return err
		}
		t := ids.Txid(ids.Bytes32FromSlice(b))
		txid = &t
		return nil
	})
	if err != nil {
		return Revealed{}, err
	}

	vout, err := r.ReadU32()
	if err != nil {
		return Revealed{}, err
	}
	blinding, err := r.ReadU64()
	if err != nil {
		return Revealed{}, err
	}
	return Revealed{Method: Method(m), Txid: txid, Vout: vout, Blinding: blinding}, nil
}

func (s Revealed) bytes() []byte {
	w := strictcodec.NewWriter()
	_ = s.StrictEncode(w)
	return w.Bytes()
}

// Conceal computes the 32-byte ConfidentialSeal hash of s.
func (s Revealed) Conceal() Confidential {
	return Confidential(commit.TaggedHash(sealTag, s.bytes()))
}

// Confidential is the concealed projection of a Revealed seal: a 32-byte
// tagged hash of its strict encoding.
type Confidential [32]byte

// OutPoint identifies a specific output of a witness transaction.
type OutPoint struct {
	Txid ids.Txid
	Vout uint32
}

// ResolveOutPoint computes the OutPoint a revealed seal closes on, given
// the id of the witness transaction of the operation that *defines* the
// seal (used to resolve self-referential seals, spec.md §3/§4.9).
func (s Revealed) ResolveOutPoint(definingWitness ids.Txid) OutPoint {
	if s.Txid != nil {
		return OutPoint{Txid: *s.Txid, Vout: s.Vout}
	}
	return OutPoint{Txid: definingWitness, Vout: s.Vout}
}
