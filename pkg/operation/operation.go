// Package operation implements Genesis and Transition — the two operation
// shapes a contract's DAG is built from — and OpId, their canonical
// commitment identifier (spec.md §3 "Operations", §4.5).
package operation

import (
	"sort"

	"github.com/ledgerseal/rgbcore/pkg/assign"
	"github.com/ledgerseal/rgbcore/pkg/chainnet"
	"github.com/ledgerseal/rgbcore/pkg/commit"
	"github.com/ledgerseal/rgbcore/pkg/ids"
	"github.com/ledgerseal/rgbcore/pkg/schema"
	"github.com/ledgerseal/rgbcore/pkg/strictcodec"
)

const operationTag = "rgb:operation:v1"

// Opout references a specific assignment produced by a prior operation:
// the op that produced it, the assignment type it belongs to, and its
// index within that TypedAssigns (spec.md §3).
type Opout struct {
	Op        ids.OpId
	StateType schema.AssignmentType
	Index     uint16
}

// Less orders Opouts by (state_type, index) lexicographically within an
// operation-id group, and by Op otherwise — the ordering
// original_source/src/contract/assignment.rs documents for Merkle-leaf
// purposes (SPEC_FULL.md supplement #4).
func (o Opout) Less(other Opout) bool {
	if o.Op != other.Op {
		return o.Op.Less(other.Op)
	}
	if o.StateType != other.StateType {
		return o.StateType < other.StateType
	}
	return o.Index < other.Index
}

func (o Opout) strictEncode(w *strictcodec.Writer) error {
	if err := w.WriteRawBytes(o.Op.Bytes()); err != nil {
		return err
	}
	if err := w.WriteU16(uint16(o.StateType)); err != nil {
		return err
	}
	return w.WriteU16(o.Index)
}

// MetaEntry is a single metadata field: a declared type paired with its
// strict-encoded value.
type MetaEntry struct {
	Type  schema.MetaType
	Value []byte
}

// GlobalEntry is a single contract-wide state value pushed by an
// operation, tagged with its GlobalStateType.
type GlobalEntry struct {
	Type  schema.GlobalStateType
	Value []byte
}

// Common holds the fields every operation shares, factored out so Genesis
// and Transition can both compute an OpId through the same path.
type Common struct {
	SchemaId     ids.SchemaId
	ChainNet     chainnet.ChainNet
	Metadata     []MetaEntry
	GlobalState  []GlobalEntry
	OwnedState   map[schema.AssignmentType]assign.TypedAssigns
	PublicRights []uint16
}

// Genesis is the bootstrap operation with no inputs; its OpId is the
// ContractId (spec.md §3).
type Genesis struct {
	Common
}

// Transition is a non-genesis operation that spends prior assignments.
type Transition struct {
	Common
	ContractId     ids.ContractId
	TransitionType schema.TransitionType
	Inputs         map[Opout]struct{}
}

// genesisTransitionTypeSentinel is the transition-type value substituted
// into the OpId prefix hash for Genesis operations, which have no
// TransitionType field of their own (spec.md §4.5's prefix formula is
// written for operations generally; Genesis has no contract_id or
// transition_type yet, so both are zeroed here — a deliberate, documented
// extension since the prior contract_id literally does not exist before
// genesis commits).
const genesisTransitionTypeSentinel = schema.TransitionType(0)

func metadataRoot(entries []MetaEntry) [32]byte {
	sorted := append([]MetaEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Type < sorted[j].Type })
	leaves := make([][32]byte, len(sorted))
	for i, e := range sorted {
		w := strictcodec.NewWriter()
		_ = w.WriteU16(uint16(e.Type))
		_ = w.WriteBlob(e.Value)
		leaves[i] = commit.TaggedHash("rgb:operation:metadata", w.Bytes())
	}
	return commit.MerkleRoot(leaves)
}

func globalStateRoot(entries []GlobalEntry) [32]byte {
	sorted := append([]GlobalEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Type < sorted[j].Type })
	leaves := make([][32]byte, len(sorted))
	for i, e := range sorted {
		w := strictcodec.NewWriter()
		_ = w.WriteU16(uint16(e.Type))
		_ = w.WriteBlob(e.Value)
		leaves[i] = commit.TaggedHash("rgb:operation:global-state", w.Bytes())
	}
	return commit.MerkleRoot(leaves)
}

func ownedStateRoot(owned map[schema.AssignmentType]assign.TypedAssigns) [32]byte {
	types := make([]schema.AssignmentType, 0, len(owned))
	for t := range owned {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	leaves := make([][32]byte, len(types))
	for i, t := range types {
		ta := owned[t]
		root := ta.MerkleRoot()
		w := strictcodec.NewWriter()
		_ = w.WriteU16(uint16(t))
		_ = w.WriteRawBytes(root[:])
		leaves[i] = commit.TaggedHash("rgb:operation:owned-state", w.Bytes())
	}
	return commit.MerkleRoot(leaves)
}

func publicRightsRoot(rights []uint16) [32]byte {
	sorted := append([]uint16(nil), rights...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	leaves := make([][32]byte, len(sorted))
	for i, r := range sorted {
		w := strictcodec.NewWriter()
		_ = w.WriteU16(r)
		leaves[i] = commit.TaggedHash("rgb:operation:public-rights", w.Bytes())
	}
	return commit.MerkleRoot(leaves)
}

func inputsRoot(inputs map[Opout]struct{}) [32]byte {
	sorted := make([]Opout, 0, len(inputs))
	for o := range inputs {
		sorted = append(sorted, o)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })

	leaves := make([][32]byte, len(sorted))
	for i, o := range sorted {
		w := strictcodec.NewWriter()
		_ = o.strictEncode(w)
		leaves[i] = commit.TaggedHash("rgb:operation:inputs", w.Bytes())
	}
	return commit.MerkleRoot(leaves)
}

func prefixHash(schemaId ids.SchemaId, net chainnet.ChainNet, transitionType schema.TransitionType, contractId ids.ContractId) [32]byte {
	w := strictcodec.NewWriter()
	_ = w.WriteRawBytes(schemaId.Bytes())
	_ = w.WriteByte(byte(net))
	_ = w.WriteU16(uint16(transitionType))
	_ = w.WriteRawBytes(contractId.Bytes())
	return commit.TaggedHash("rgb:operation:prefix", w.Bytes())
}

func opId(prefix [32]byte, metaRoot, inRoot, globRoot, ownedRoot, rightsRoot [32]byte) ids.OpId {
	w := strictcodec.NewWriter()
	_ = w.WriteRawBytes(prefix[:])
	_ = w.WriteRawBytes(metaRoot[:])
	_ = w.WriteRawBytes(inRoot[:])
	_ = w.WriteRawBytes(globRoot[:])
	_ = w.WriteRawBytes(ownedRoot[:])
	_ = w.WriteRawBytes(rightsRoot[:])
	return ids.OpId(commit.TaggedHash(operationTag, w.Bytes()))
}

// StrictEncode writes c's full byte-for-byte representation (not just the
// commitment roots OpId hashes over), for persistence layers that need to
// reconstruct an operation rather than merely verify it.
func (c Common) StrictEncode(w *strictcodec.Writer) error {
	if err := w.WriteRawBytes(c.SchemaId.Bytes()); err != nil {
		return err
	}
	if err := w.WriteByte(byte(c.ChainNet)); err != nil {
		return err
	}
	if err := strictcodec.WriteSlice(w, c.Metadata, func(w *strictcodec.Writer, m MetaEntry) error {
		if err := w.WriteU16(uint16(m.Type)); err != nil {
			return err
		}
		return w.WriteBlob(m.Value)
	}); err != nil {
		return err
	}
	if err := strictcodec.WriteSlice(w, c.GlobalState, func(w *strictcodec.Writer, g GlobalEntry) error {
		if err := w.WriteU16(uint16(g.Type)); err != nil {
			return err
		}
		return w.WriteBlob(g.Value)
	}); err != nil {
		return err
	}
	ownedKeys := strictcodec.SortedKeys(c.OwnedState)
	if err := strictcodec.WriteMap(w, ownedKeys, c.OwnedState,
		func(w *strictcodec.Writer, ty schema.AssignmentType) error { return w.WriteU16(uint16(ty)) },
		func(w *strictcodec.Writer, ta assign.TypedAssigns) error { return ta.StrictEncode(w) },
	); err != nil {
		return err
	}
	return strictcodec.WriteSlice(w, c.PublicRights, func(w *strictcodec.Writer, r uint16) error {
		return w.WriteU16(r)
	})
}

// DecodeCommon reads a Common per StrictEncode's layout.
func DecodeCommon(r *strictcodec.Reader) (Common, error) {
	var c Common
	schemaBytes, err := r.ReadRawBytes(32)
	if err != nil {
		return Common{}, err
	}
	copy(c.SchemaId[:], schemaBytes)

	netByte, err := r.ReadByte()
	if err != nil {
		return Common{}, err
	}
	c.ChainNet = chainnet.ChainNet(netByte)

	c.Metadata, err = strictcodec.ReadSlice(r, func(r *strictcodec.Reader) (MetaEntry, error) {
		ty, err := r.ReadU16()
		if err != nil {
			return MetaEntry{}, err
		}
		val, err := r.ReadBlob()
		if err != nil {
			return MetaEntry{}, err
		}
		return MetaEntry{Type: schema.MetaType(ty), Value: val}, nil
	})
	if err != nil {
		return Common{}, err
	}

	c.GlobalState, err = strictcodec.ReadSlice(r, func(r *strictcodec.Reader) (GlobalEntry, error) {
		ty, err := r.ReadU16()
		if err != nil {
			return GlobalEntry{}, err
		}
		val, err := r.ReadBlob()
		if err != nil {
			return GlobalEntry{}, err
		}
		return GlobalEntry{Type: schema.GlobalStateType(ty), Value: val}, nil
	})
	if err != nil {
		return Common{}, err
	}

	owned, _, err := strictcodec.ReadMap(r,
		func(r *strictcodec.Reader) (schema.AssignmentType, error) {
			ty, err := r.ReadU16()
			return schema.AssignmentType(ty), err
		},
		assign.DecodeTypedAssigns,
	)
	if err != nil {
		return Common{}, err
	}
	c.OwnedState = owned

	c.PublicRights, err = strictcodec.ReadSlice(r, func(r *strictcodec.Reader) (uint16, error) { return r.ReadU16() })
	if err != nil {
		return Common{}, err
	}
	return c, nil
}

// StrictEncode writes g's full byte-for-byte representation.
func (g Genesis) StrictEncode(w *strictcodec.Writer) error { return g.Common.StrictEncode(w) }

// DecodeGenesis reads a Genesis per StrictEncode's layout.
func DecodeGenesis(r *strictcodec.Reader) (Genesis, error) {
	c, err := DecodeCommon(r)
	if err != nil {
		return Genesis{}, err
	}
	return Genesis{Common: c}, nil
}

// StrictEncode writes t's full byte-for-byte representation, including the
// fields Genesis lacks.
func (t Transition) StrictEncode(w *strictcodec.Writer) error {
	if err := t.Common.StrictEncode(w); err != nil {
		return err
	}
	if err := w.WriteRawBytes(t.ContractId.Bytes()); err != nil {
		return err
	}
	if err := w.WriteU16(uint16(t.TransitionType)); err != nil {
		return err
	}
	return strictcodec.WriteSlice(w, sortedOpoutSlice(t.Inputs), func(w *strictcodec.Writer, o Opout) error {
		return o.strictEncode(w)
	})
}

// DecodeTransition reads a Transition per StrictEncode's layout.
func DecodeTransition(r *strictcodec.Reader) (Transition, error) {
	c, err := DecodeCommon(r)
	if err != nil {
		return Transition{}, err
	}
	var t Transition
	t.Common = c

	contractBytes, err := r.ReadRawBytes(32)
	if err != nil {
		return Transition{}, err
	}
	copy(t.ContractId[:], contractBytes)

	tt, err := r.ReadU16()
	if err != nil {
		return Transition{}, err
	}
	t.TransitionType = schema.TransitionType(tt)

	inputs, err := strictcodec.ReadSlice(r, func(r *strictcodec.Reader) (Opout, error) {
		return decodeOpout(r)
	})
	if err != nil {
		return Transition{}, err
	}
	t.Inputs = make(map[Opout]struct{}, len(inputs))
	for _, o := range inputs {
		t.Inputs[o] = struct{}{}
	}
	return t, nil
}

func sortedOpoutSlice(inputs map[Opout]struct{}) []Opout {
	out := make([]Opout, 0, len(inputs))
	for o := range inputs {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

func decodeOpout(r *strictcodec.Reader) (Opout, error) {
	opBytes, err := r.ReadRawBytes(32)
	if err != nil {
		return Opout{}, err
	}
	var o Opout
	copy(o.Op[:], opBytes)
	ty, err := r.ReadU16()
	if err != nil {
		return Opout{}, err
	}
	o.StateType = schema.AssignmentType(ty)
	o.Index, err = r.ReadU16()
	if err != nil {
		return Opout{}, err
	}
	return o, nil
}

// OpId computes g's commitment identifier, which doubles as its
// ContractId (spec.md §3).
func (g Genesis) OpId() ids.OpId {
	var zeroContract ids.ContractId
	prefix := prefixHash(g.SchemaId, g.ChainNet, genesisTransitionTypeSentinel, zeroContract)
	return opId(
		prefix,
		metadataRoot(g.Metadata),
		inputsRoot(nil),
		globalStateRoot(g.GlobalState),
		ownedStateRoot(g.OwnedState),
		publicRightsRoot(g.PublicRights),
	)
}

// ContractId returns g's OpId, the contract's identifier.
func (g Genesis) ContractId() ids.ContractId { return ids.ContractId(g.OpId()) }

// OpId computes t's commitment identifier over the canonical six-section
// ordering: prefix, metadata, inputs, global state, owned state, public
// rights (spec.md §4.5).
func (t Transition) OpId() ids.OpId {
	prefix := prefixHash(t.SchemaId, t.ChainNet, t.TransitionType, t.ContractId)
	return opId(
		prefix,
		metadataRoot(t.Metadata),
		inputsRoot(t.Inputs),
		globalStateRoot(t.GlobalState),
		ownedStateRoot(t.OwnedState),
		publicRightsRoot(t.PublicRights),
	)
}
