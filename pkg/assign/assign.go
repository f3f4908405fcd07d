// Package assign implements Assignment — the (seal, state) pair an
// operation produces — and TypedAssigns, the homogeneous per-state-type
// list of assignments an operation carries (spec.md §3 "Assignments",
// §4.4).
package assign

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/ledgerseal/rgbcore/pkg/commit"
	"github.com/ledgerseal/rgbcore/pkg/seal"
	"github.com/ledgerseal/rgbcore/pkg/state"
	"github.com/ledgerseal/rgbcore/pkg/strictcodec"
)

// ErrIndexOutOfBounds is returned by RevealedSealAt for an out-of-range
// index.
var ErrIndexOutOfBounds = errors.New("assign: index out of bounds")

const assignmentTag = "rgb:owned-state:v1"
const typedAssignsTag = "rgb:state:owned*"

// Assignment is one of the four orthogonal reveal/conceal shapes over
// (seal, state). The revealed forms are optional; the concealed forms are
// always present, since every Assignment must support commitment-id
// computation and seal-closure verification without the revealed data.
type Assignment struct {
	RevealedSeal     *seal.Revealed
	ConfidentialSeal seal.Confidential

	RevealedState  *state.Revealed
	ConcealedState state.Concealed
}

// NewRevealed constructs an assignment with both sides revealed.
func NewRevealed(s seal.Revealed, r state.Revealed, proof state.RangeProof) (Assignment, error) {
	concealed, err := state.Conceal(r, proof)
	if err != nil {
		return Assignment{}, fmt.Errorf("assign: conceal state: %w", err)
	}
	return Assignment{
		RevealedSeal:     &s,
		ConfidentialSeal: s.Conceal(),
		RevealedState:    &r,
		ConcealedState:   concealed,
	}, nil
}

// NewSealConfidential constructs an assignment whose seal is concealed but
// whose state is revealed.
func NewSealConfidential(cs seal.Confidential, r state.Revealed, proof state.RangeProof) (Assignment, error) {
	concealed, err := state.Conceal(r, proof)
	if err != nil {
		return Assignment{}, fmt.Errorf("assign: conceal state: %w", err)
	}
	return Assignment{
		ConfidentialSeal: cs,
		RevealedState:    &r,
		ConcealedState:   concealed,
	}, nil
}

// NewStateConfidential constructs an assignment whose state is concealed
// but whose seal is revealed.
func NewStateConfidential(s seal.Revealed, cs state.Concealed) Assignment {
	return Assignment{
		RevealedSeal:     &s,
		ConfidentialSeal: s.Conceal(),
		ConcealedState:   cs,
	}
}

// NewFullyConfidential constructs an assignment with both sides concealed.
func NewFullyConfidential(cs seal.Confidential, concealed state.Concealed) Assignment {
	return Assignment{ConfidentialSeal: cs, ConcealedState: concealed}
}

// Conceal returns a (possibly already-concealed) assignment with both
// revealed forms dropped. commitment_id(assignment) == commitment_id(
// assignment.Conceal()) (spec.md §3).
func (a Assignment) Conceal() Assignment {
	return NewFullyConfidential(a.ConfidentialSeal, a.ConcealedState)
}

// CommitmentID is the Merkle leaf TypedAssigns commits this assignment
// under: the tagged hash of its concealed seal and concealed state,
// together, which is why conceal never changes it (spec.md §4.4).
func (a Assignment) CommitmentID() [32]byte {
	stateW := strictcodec.NewWriter()
	_ = a.ConcealedState.StrictEncode(stateW)
	return commit.TaggedHashMulti(assignmentTag, a.ConfidentialSeal[:], stateW.Bytes())
}

// sortKey is the byte key assignment ordering is defined over:
// (seal.conceal(), state.conceal()), same regardless of which side is
// revealed (spec.md §4.4).
func (a Assignment) sortKey() []byte {
	stateW := strictcodec.NewWriter()
	_ = a.ConcealedState.StrictEncode(stateW)
	key := make([]byte, 0, 32+stateW.Len())
	key = append(key, a.ConfidentialSeal[:]...)
	key = append(key, stateW.Bytes()...)
	return key
}

// TypedAssigns is a homogeneous list of assignments for a single state
// kind (spec.md §3: "max length 64 Ki"). Assignment ordering is stable
// within a TypedAssigns and is defined purely over concealed forms.
type TypedAssigns struct {
	Kind        state.Kind
	Assignments []Assignment
}

// MaxAssigns is the maximum number of assignments a single TypedAssigns
// may carry (u16::MAX, the strict-codec vector cap).
const MaxAssigns = strictcodec.MaxLen

// NewTypedAssigns builds a TypedAssigns, sorting its assignments into the
// canonical (seal.conceal(), state.conceal()) order.
func NewTypedAssigns(kind state.Kind, assignments []Assignment) (TypedAssigns, error) {
	if len(assignments) > MaxAssigns {
		return TypedAssigns{}, fmt.Errorf("assign: %d assignments exceeds %d cap", len(assignments), MaxAssigns)
	}
	sorted := append([]Assignment(nil), assignments...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].sortKey(), sorted[j].sortKey()) < 0
	})
	return TypedAssigns{Kind: kind, Assignments: sorted}, nil
}

// Len reports the number of assignments.
func (t TypedAssigns) Len() int { return len(t.Assignments) }

// RevealedSealAt returns the revealed seal at index, if the seal is
// revealed there; Ok(None) when it is confidential; an error when index is
// out of bounds (spec.md §4.4).
func (t TypedAssigns) RevealedSealAt(index int) (*seal.Revealed, error) {
	if index < 0 || index >= len(t.Assignments) {
		return nil, fmt.Errorf("%w: index %d, len %d", ErrIndexOutOfBounds, index, len(t.Assignments))
	}
	return t.Assignments[index].RevealedSeal, nil
}

// ToConfidentialSeals returns the confidential projection of every seal in
// t, in assignment order — used for seal-closure verification (spec.md
// §4.4).
func (t TypedAssigns) ToConfidentialSeals() []seal.Confidential {
	out := make([]seal.Confidential, len(t.Assignments))
	for i, a := range t.Assignments {
		out[i] = a.ConfidentialSeal
	}
	return out
}

// MerkleRoot computes the Merkle root over each assignment's
// CommitmentID(), under tag rgb:state:owned*. An empty TypedAssigns
// merklizes to the fixed empty constant, which is permitted (spec.md §4.4
// edge case).
func (t TypedAssigns) MerkleRoot() [32]byte {
	leaves := make([][32]byte, len(t.Assignments))
	for i, a := range t.Assignments {
		leaves[i] = a.CommitmentID()
	}
	return merkleRootTagged(leaves)
}

// StrictEncode writes a's full reveal/conceal shape: which sides are
// revealed, followed by whichever forms are present. Used by persistence
// layers that need to round-trip an operation byte-for-byte, not just
// commit to it.
func (a Assignment) StrictEncode(w *strictcodec.Writer) error {
	if err := w.WriteOption(a.RevealedSeal != nil, func(w *strictcodec.Writer) error {
		return a.RevealedSeal.StrictEncode(w)
	}); err != nil {
		return err
	}
	if err := w.WriteRawBytes(a.ConfidentialSeal[:]); err != nil {
		return err
	}
	if err := w.WriteOption(a.RevealedState != nil, func(w *strictcodec.Writer) error {
		return a.RevealedState.StrictEncode(w)
	}); err != nil {
		return err
	}
	return a.ConcealedState.StrictEncode(w)
}

// DecodeAssignment reads an Assignment per StrictEncode's layout.
func DecodeAssignment(r *strictcodec.Reader) (Assignment, error) {
	var a Assignment
	hadSeal, err := r.ReadOption(func(r *strictcodec.Reader) error {
		s, err := seal.DecodeRevealed(r)
		if err != nil {
			return err
		}
		a.RevealedSeal = &s
		return nil
	})
	if err != nil {
		return Assignment{}, err
	}
	_ = hadSeal

	csBytes, err := r.ReadRawBytes(32)
	if err != nil {
		return Assignment{}, err
	}
	copy(a.ConfidentialSeal[:], csBytes)

	_, err = r.ReadOption(func(r *strictcodec.Reader) error {
		rs, err := state.DecodeRevealed(r)
		if err != nil {
			return err
		}
		a.RevealedState = &rs
		return nil
	})
	if err != nil {
		return Assignment{}, err
	}

	a.ConcealedState, err = state.DecodeConcealed(r)
	if err != nil {
		return Assignment{}, err
	}
	return a, nil
}

// StrictEncode writes t's kind followed by its assignments, in the stored
// (canonical) order.
func (t TypedAssigns) StrictEncode(w *strictcodec.Writer) error {
	if err := w.WriteByte(byte(t.Kind)); err != nil {
		return err
	}
	return strictcodec.WriteSlice(w, t.Assignments, func(w *strictcodec.Writer, a Assignment) error {
		return a.StrictEncode(w)
	})
}

// DecodeTypedAssigns reads a TypedAssigns per StrictEncode's layout. The
// assignments are already in canonical order on the wire, so no re-sort is
// performed (unlike NewTypedAssigns, which sorts fresh input).
func DecodeTypedAssigns(r *strictcodec.Reader) (TypedAssigns, error) {
	kindByte, err := r.ReadByte()
	if err != nil {
		return TypedAssigns{}, err
	}
	assignments, err := strictcodec.ReadSlice(r, DecodeAssignment)
	if err != nil {
		return TypedAssigns{}, err
	}
	return TypedAssigns{Kind: state.Kind(kindByte), Assignments: assignments}, nil
}

// merkleRootTagged mirrors commit.MerkleRoot but under the TypedAssigns-
// specific leaf/node tags rather than commit's generic ones, since
// spec.md §4.4 calls for a distinct tag ("rgb:state:owned*") from the
// general-purpose Merklization used elsewhere.
func merkleRootTagged(leaves [][32]byte) [32]byte {
	if len(leaves) == 0 {
		return commit.TaggedHash(typedAssignsTag+":empty", nil)
	}
	width := 1
	for width < len(leaves) {
		width <<= 1
	}
	level := make([][32]byte, width)
	copy(level, leaves)
	for i := len(leaves); i < width; i++ {
		level[i] = commit.TaggedHash(typedAssignsTag+":empty", nil)
	}
	for len(level) > 1 {
		next := make([][32]byte, len(level)/2)
		for i := range next {
			next[i] = commit.TaggedHashMulti(typedAssignsTag, level[2*i][:], level[2*i+1][:])
		}
		level = next
	}
	return level[0]
}
