// Package schema implements the per-contract type declarations a Schema
// carries — the arity bounds, state formats, and script entry points the
// validator enforces against every operation (spec.md §3 "Schema", §4.6).
package schema

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ledgerseal/rgbcore/pkg/commit"
	"github.com/ledgerseal/rgbcore/pkg/state"
	"github.com/ledgerseal/rgbcore/pkg/strictcodec"
)

// GlobalStateType, AssignmentType, TransitionType and MetaType are the
// schema-scoped identifiers binding an operation's fields to their
// declared shapes.
type GlobalStateType uint16
type AssignmentType uint16
type TransitionType uint16
type MetaType uint16

// Arity bounds a field's occurrence count within one operation.
type Arity uint8

const (
	NoneOrMore Arity = iota
	Once
	OnceOrMore
	NoneOrOnce
)

// Check reports whether count satisfies a.
func (a Arity) Check(count int) bool {
	switch a {
	case NoneOrMore:
		return count >= 0
	case Once:
		return count == 1
	case OnceOrMore:
		return count >= 1
	case NoneOrOnce:
		return count == 0 || count == 1
	default:
		return false
	}
}

func (a Arity) String() string {
	switch a {
	case NoneOrMore:
		return "none-or-more"
	case Once:
		return "once"
	case OnceOrMore:
		return "once-or-more"
	case NoneOrOnce:
		return "none-or-once"
	default:
		return fmt.Sprintf("Arity(%d)", uint8(a))
	}
}

// DataFormat describes the shape a state/metadata value must conform to:
// an integer range, an enum membership set, a length cap, or a digest/
// curve-point byte shape (spec.md §4.6).
type DataFormat struct {
	Kind      FormatKind
	MinValue  uint64   // FormatInt
	MaxValue  uint64   // FormatInt
	Enum      []uint64 // FormatEnum
	MaxLength uint32   // FormatBytes / FormatString
	FixedLen  uint32   // FormatDigest / FormatPoint / FormatSignature (0 means unconstrained)
}

// FormatKind discriminates DataFormat.
type FormatKind uint8

const (
	FormatInt FormatKind = iota
	FormatEnum
	FormatBytes
	FormatString
	FormatDigest
	FormatPoint
	FormatSignature
)

// ValidateInt reports whether a decoded integer conforms to f.
func (f DataFormat) ValidateInt(v uint64) error {
	if f.Kind != FormatInt {
		return fmt.Errorf("schema: format %v is not an integer format", f.Kind)
	}
	if v < f.MinValue || v > f.MaxValue {
		return fmt.Errorf("schema: value %d outside bound [%d, %d]", v, f.MinValue, f.MaxValue)
	}
	return nil
}

// ValidateEnum reports whether v is a member of f's declared enum set.
func (f DataFormat) ValidateEnum(v uint64) error {
	if f.Kind != FormatEnum {
		return fmt.Errorf("schema: format %v is not an enum format", f.Kind)
	}
	for _, m := range f.Enum {
		if m == v {
			return nil
		}
	}
	return fmt.Errorf("schema: value %d not a member of declared enum", v)
}

// ValidateLen reports whether a byte/string length conforms to f's cap.
func (f DataFormat) ValidateLen(n int) error {
	if uint32(n) > f.MaxLength {
		return fmt.Errorf("schema: length %d exceeds cap %d", n, f.MaxLength)
	}
	return nil
}

// GlobalStateSpec is the declared shape and capacity of one
// GlobalStateType's stack.
type GlobalStateSpec struct {
	Format   DataFormat
	MaxItems uint32
}

// AssignmentSpec declares an assignment type's state kind, its state
// format, and the arity it's bound to per transition type.
type AssignmentSpec struct {
	StateKind state.Kind
	Format    DataFormat
	ArityByTransition map[TransitionType]Arity
}

// TransitionSpec declares a transition type's required input/output
// arities per assignment type, its permitted metadata types, and the VM
// entry point its validation script starts at.
type TransitionSpec struct {
	InputArity  map[AssignmentType]Arity
	OutputArity map[AssignmentType]Arity
	MetaTypes   []MetaType
	EntryPoint  uint16
}

// Features is a bitfield of optional schema capabilities, defaulting to
// all bits set (every feature enabled) absent an explicit restriction
// (original_source's src/standards/features.rs).
type Features uint32

const (
	FeaturePublicRights Features = 1 << iota
	FeatureMultipleGenesisAssignments
	FeatureConfidentialAmendments
)

// AllFeatures is the zero-restriction default.
const AllFeatures Features = FeaturePublicRights | FeatureMultipleGenesisAssignments | FeatureConfidentialAmendments

// Has reports whether f grants feature bit want.
func (f Features) Has(want Features) bool { return f&want == want }

// Schema is the full set of type declarations a contract is validated
// against.
type Schema struct {
	GlobalState map[GlobalStateType]GlobalStateSpec
	Assignments map[AssignmentType]AssignmentSpec
	Transitions map[TransitionType]TransitionSpec
	Meta        map[MetaType]DataFormat
	Script      []byte // VM bytecode shared by every entry point
	Features    Features
}

var (
	// ErrUndeclaredType is returned by SelfValidate when a transition
	// references an assignment or metadata type the schema never declared.
	ErrUndeclaredType = errors.New("schema: transition references undeclared type")
)

// SelfValidate checks the internal consistency invariant spec.md §3
// requires: every type a TransitionSpec references must exist in the
// schema's own declarations.
func (s Schema) SelfValidate() error {
	for tt, spec := range s.Transitions {
		for at := range spec.InputArity {
			if _, ok := s.Assignments[at]; !ok {
				return fmt.Errorf("%w: transition %d input assignment type %d", ErrUndeclaredType, tt, at)
			}
		}
		for at := range spec.OutputArity {
			if _, ok := s.Assignments[at]; !ok {
				return fmt.Errorf("%w: transition %d output assignment type %d", ErrUndeclaredType, tt, at)
			}
		}
		for _, mt := range spec.MetaTypes {
			if _, ok := s.Meta[mt]; !ok {
				return fmt.Errorf("%w: transition %d metadata type %d", ErrUndeclaredType, tt, mt)
			}
		}
	}
	for at, spec := range s.Assignments {
		for tt := range spec.ArityByTransition {
			if _, ok := s.Transitions[tt]; !ok {
				return fmt.Errorf("%w: assignment %d references undeclared transition %d", ErrUndeclaredType, at, tt)
			}
		}
	}
	return nil
}

const schemaTag = "rgb:schema:v1"

// SchemaId is the tagged hash of the schema's canonical strict encoding
// (spec.md §3).
func (s Schema) SchemaId() [32]byte {
	w := strictcodec.NewWriter()
	_ = s.StrictEncode(w)
	return commit.TaggedHash(schemaTag, w.Bytes())
}

// StrictEncode writes the canonical byte representation of s, with every
// map iterated in ascending key order so schema_id is reproducible.
func (s Schema) StrictEncode(w *strictcodec.Writer) error {
	gsKeys := sortedU16Keys(globalKeys(s.GlobalState))
	if err := w.WriteLen(len(gsKeys)); err != nil {
		return err
	}
	for _, k := range gsKeys {
		if err := w.WriteU16(uint16(k)); err != nil {
			return err
		}
		spec := s.GlobalState[GlobalStateType(k)]
		if err := encodeFormat(w, spec.Format); err != nil {
			return err
		}
		if err := w.WriteU32(spec.MaxItems); err != nil {
			return err
		}
	}

	asKeys := sortedU16Keys(assignKeys(s.Assignments))
	if err := w.WriteLen(len(asKeys)); err != nil {
		return err
	}
	for _, k := range asKeys {
		if err := w.WriteU16(uint16(k)); err != nil {
			return err
		}
		spec := s.Assignments[AssignmentType(k)]
		if err := w.WriteByte(byte(spec.StateKind)); err != nil {
			return err
		}
		if err := encodeFormat(w, spec.Format); err != nil {
			return err
		}
		ttKeys := sortedTransitionKeys(spec.ArityByTransition)
		if err := w.WriteLen(len(ttKeys)); err != nil {
			return err
		}
		for _, tt := range ttKeys {
			if err := w.WriteU16(uint16(tt)); err != nil {
				return err
			}
			if err := w.WriteByte(byte(spec.ArityByTransition[tt])); err != nil {
				return err
			}
		}
	}

	ttKeys := sortedTransitionKeys(s.Transitions)
	if err := w.WriteLen(len(ttKeys)); err != nil {
		return err
	}
	for _, tt := range ttKeys {
		spec := s.Transitions[tt]
		if err := w.WriteU16(uint16(tt)); err != nil {
			return err
		}
		if err := encodeArityMap(w, spec.InputArity); err != nil {
			return err
		}
		if err := encodeArityMap(w, spec.OutputArity); err != nil {
			return err
		}
		metaSorted := append([]MetaType(nil), spec.MetaTypes...)
		sort.Slice(metaSorted, func(i, j int) bool { return metaSorted[i] < metaSorted[j] })
		if err := strictcodec.WriteSlice(w, metaSorted, func(w *strictcodec.Writer, mt MetaType) error {
			return w.WriteU16(uint16(mt))
		}); err != nil {
			return err
		}
		if err := w.WriteU16(spec.EntryPoint); err != nil {
			return err
		}
	}

	metaKeys := sortedU16Keys(metaKeysOf(s.Meta))
	if err := w.WriteLen(len(metaKeys)); err != nil {
		return err
	}
	for _, k := range metaKeys {
		if err := w.WriteU16(uint16(k)); err != nil {
			return err
		}
		if err := encodeFormat(w, s.Meta[MetaType(k)]); err != nil {
			return err
		}
	}

	if err := w.WriteBlob(s.Script); err != nil {
		return err
	}
	return w.WriteU32(uint32(s.Features))
}

// DecodeSchema reads a Schema per StrictEncode's layout.
func DecodeSchema(r *strictcodec.Reader) (Schema, error) {
	var s Schema

	gsCount, err := r.ReadLen()
	if err != nil {
		return Schema{}, err
	}
	s.GlobalState = make(map[GlobalStateType]GlobalStateSpec, gsCount)
	for i := 0; i < gsCount; i++ {
		k, err := r.ReadU16()
		if err != nil {
			return Schema{}, err
		}
		format, err := decodeFormat(r)
		if err != nil {
			return Schema{}, err
		}
		maxItems, err := r.ReadU32()
		if err != nil {
			return Schema{}, err
		}
		s.GlobalState[GlobalStateType(k)] = GlobalStateSpec{Format: format, MaxItems: maxItems}
	}

	asCount, err := r.ReadLen()
	if err != nil {
		return Schema{}, err
	}
	s.Assignments = make(map[AssignmentType]AssignmentSpec, asCount)
	for i := 0; i < asCount; i++ {
		k, err := r.ReadU16()
		if err != nil {
			return Schema{}, err
		}
		kindByte, err := r.ReadByte()
		if err != nil {
			return Schema{}, err
		}
		format, err := decodeFormat(r)
		if err != nil {
			return Schema{}, err
		}
		ttCount, err := r.ReadLen()
		if err != nil {
			return Schema{}, err
		}
		arityByTransition := make(map[TransitionType]Arity, ttCount)
		for j := 0; j < ttCount; j++ {
			tt, err := r.ReadU16()
			if err != nil {
				return Schema{}, err
			}
			arity, err := r.ReadByte()
			if err != nil {
				return Schema{}, err
			}
			arityByTransition[TransitionType(tt)] = Arity(arity)
		}
		s.Assignments[AssignmentType(k)] = AssignmentSpec{
			StateKind:         state.Kind(kindByte),
			Format:            format,
			ArityByTransition: arityByTransition,
		}
	}

	ttCount, err := r.ReadLen()
	if err != nil {
		return Schema{}, err
	}
	s.Transitions = make(map[TransitionType]TransitionSpec, ttCount)
	for i := 0; i < ttCount; i++ {
		tt, err := r.ReadU16()
		if err != nil {
			return Schema{}, err
		}
		inputArity, err := decodeArityMap(r)
		if err != nil {
			return Schema{}, err
		}
		outputArity, err := decodeArityMap(r)
		if err != nil {
			return Schema{}, err
		}
		metaTypes, err := strictcodec.ReadSlice(r, func(r *strictcodec.Reader) (MetaType, error) {
			v, err := r.ReadU16()
			return MetaType(v), err
		})
		if err != nil {
			return Schema{}, err
		}
		entryPoint, err := r.ReadU16()
		if err != nil {
			return Schema{}, err
		}
		s.Transitions[TransitionType(tt)] = TransitionSpec{
			InputArity:  inputArity,
			OutputArity: outputArity,
			MetaTypes:   metaTypes,
			EntryPoint:  entryPoint,
		}
	}

	metaCount, err := r.ReadLen()
	if err != nil {
		return Schema{}, err
	}
	s.Meta = make(map[MetaType]DataFormat, metaCount)
	for i := 0; i < metaCount; i++ {
		k, err := r.ReadU16()
		if err != nil {
			return Schema{}, err
		}
		format, err := decodeFormat(r)
		if err != nil {
			return Schema{}, err
		}
		s.Meta[MetaType(k)] = format
	}

	s.Script, err = r.ReadBlob()
	if err != nil {
		return Schema{}, err
	}
	features, err := r.ReadU32()
	if err != nil {
		return Schema{}, err
	}
	s.Features = Features(features)
	return s, nil
}

func decodeArityMap(r *strictcodec.Reader) (map[AssignmentType]Arity, error) {
	count, err := r.ReadLen()
	if err != nil {
		return nil, err
	}
	out := make(map[AssignmentType]Arity, count)
	for i := 0; i < count; i++ {
		k, err := r.ReadU16()
		if err != nil {
			return nil, err
		}
		v, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		out[AssignmentType(k)] = Arity(v)
	}
	return out, nil
}

func decodeFormat(r *strictcodec.Reader) (DataFormat, error) {
	kind, err := r.ReadByte()
	if err != nil {
		return DataFormat{}, err
	}
	minValue, err := r.ReadU64()
	if err != nil {
		return DataFormat{}, err
	}
	maxValue, err := r.ReadU64()
	if err != nil {
		return DataFormat{}, err
	}
	enum, err := strictcodec.ReadSlice(r, func(r *strictcodec.Reader) (uint64, error) { return r.ReadU64() })
	if err != nil {
		return DataFormat{}, err
	}
	maxLength, err := r.ReadU32()
	if err != nil {
		return DataFormat{}, err
	}
	fixedLen, err := r.ReadU32()
	if err != nil {
		return DataFormat{}, err
	}
	return DataFormat{
		Kind:      FormatKind(kind),
		MinValue:  minValue,
		MaxValue:  maxValue,
		Enum:      enum,
		MaxLength: maxLength,
		FixedLen:  fixedLen,
	}, nil
}

func encodeArityMap(w *strictcodec.Writer, m map[AssignmentType]Arity) error {
	keys := sortedU16Keys(assignKeys(m))
	if err := w.WriteLen(len(keys)); err != nil {
		return err
	}
	for _, k := range keys {
		if err := w.WriteU16(uint16(k)); err != nil {
			return err
		}
		if err := w.WriteByte(byte(m[AssignmentType(k)])); err != nil {
			return err
		}
	}
	return nil
}

func encodeFormat(w *strictcodec.Writer, f DataFormat) error {
	if err := w.WriteByte(byte(f.Kind)); err != nil {
		return err
	}
	if err := w.WriteU64(f.MinValue); err != nil {
		return err
	}
	if err := w.WriteU64(f.MaxValue); err != nil {
		return err
	}
	enumSorted := append([]uint64(nil), f.Enum...)
	sort.Slice(enumSorted, func(i, j int) bool { return enumSorted[i] < enumSorted[j] })
	if err := strictcodec.WriteSlice(w, enumSorted, func(w *strictcodec.Writer, v uint64) error {
		return w.WriteU64(v)
	}); err != nil {
		return err
	}
	if err := w.WriteU32(f.MaxLength); err != nil {
		return err
	}
	return w.WriteU32(f.FixedLen)
}

func globalKeys(m map[GlobalStateType]GlobalStateSpec) []uint16 {
	out := make([]uint16, 0, len(m))
	for k := range m {
		out = append(out, uint16(k))
	}
	return out
}

func assignKeys[V any](m map[AssignmentType]V) []uint16 {
	out := make([]uint16, 0, len(m))
	for k := range m {
		out = append(out, uint16(k))
	}
	return out
}

func metaKeysOf(m map[MetaType]DataFormat) []uint16 {
	out := make([]uint16, 0, len(m))
	for k := range m {
		out = append(out, uint16(k))
	}
	return out
}

func sortedU16Keys(keys []uint16) []uint16 {
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sortedTransitionKeys[V any](m map[TransitionType]V) []TransitionType {
	out := make([]TransitionType, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
