// Package state implements the RevealedState/ConcealedState sum types and
// the conceal discipline that binds a revealed state atom to its
// confidential projection (spec.md §3 "State atoms", §4.3).
package state

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/ripemd160"

	"github.com/ledgerseal/rgbcore/pkg/commit"
	"github.com/ledgerseal/rgbcore/pkg/pedersen"
	"github.com/ledgerseal/rgbcore/pkg/strictcodec"
)

// Kind discriminates the four RevealedState/ConcealedState variants. The
// discriminant byte is part of the strict encoding and must never be
// reordered once a schema references it.
type Kind uint8

const (
	KindVoid Kind = iota
	KindFungible
	KindStructured
	KindAttachment
)

func (k Kind) String() string {
	switch k {
	case KindVoid:
		return "void"
	case KindFungible:
		return "fungible"
	case KindStructured:
		return "structured"
	case KindAttachment:
		return "attachment"
	default:
		return fmt.Sprintf("state.Kind(%d)", uint8(k))
	}
}

// MaxStructuredLen bounds a Structured atom's payload (spec.md §3: "≤ 64
// KiB") to the largest blob the strict codec can length-prefix, 65535
// bytes, so every accepted payload encodes.
const MaxStructuredLen = strictcodec.MaxLen

// MaxMimeLen is the fixed attachment MIME-string bound, resolving the
// spec's open question in favor of the safer, bounded choice.
const MaxMimeLen = 255

// Commitment tag for the assignment-level commitment of a state atom.
const ownedStateTag = "rgb:owned-state:v1"

// Fungible carries a value hidden behind a Pedersen commitment once
// concealed.
type Fungible struct {
	Value    uint64
	Blinding pedersen.Blinding
	Tag      [32]byte // AssetTag binding this value to its generator
}

// Structured is an arbitrary strict-encoded payload, bounded to
// MaxStructuredLen bytes.
type Structured struct {
	Bytes []byte
}

// Attachment references an opaque external blob by content id.
type Attachment struct {
	ID   [32]byte
	Mime string // ASCII, <= MaxMimeLen
	Salt uint64
}

// Revealed is the sum type `RevealedState`: exactly one of its typed
// fields is meaningful, selected by Kind.
type Revealed struct {
	Kind       Kind
	Fungible   Fungible
	Structured Structured
	Attachment Attachment
}

// Void constructs the payload-less Void revealed state.
func Void() Revealed { return Revealed{Kind: KindVoid} }

// NewFungible constructs a revealed Fungible state atom.
func NewFungible(value uint64, blinding pedersen.Blinding, tag [32]byte) Revealed {
	return Revealed{Kind: KindFungible, Fungible: Fungible{Value: value, Blinding: blinding, Tag: tag}}
}

// NewStructured constructs a revealed Structured state atom.
func NewStructured(data []byte) (Revealed, error) {
	if len(data) > MaxStructuredLen {
		return Revealed{}, fmt.Errorf("state: structured payload of %d bytes exceeds %d byte cap", len(data), MaxStructuredLen)
	}
	return Revealed{Kind: KindStructured, Structured: Structured{Bytes: append([]byte(nil), data...)}}, nil
}

// NewAttachment constructs a revealed Attachment state atom.
func NewAttachment(id [32]byte, mime string, salt uint64) (Revealed, error) {
	if len(mime) > MaxMimeLen {
		return Revealed{}, fmt.Errorf("state: attachment mime of %d bytes exceeds %d byte cap", len(mime), MaxMimeLen)
	}
	return Revealed{Kind: KindAttachment, Attachment: Attachment{ID: id, Mime: mime, Salt: salt}}, nil
}

// StrictEncode writes the canonical byte representation used both for wire
// transport and as a commitment preimage.
func (r Revealed) StrictEncode(w *strictcodec.Writer) error {
	if err := w.WriteByte(byte(r.Kind)); err != nil {
		return err
	}
	switch r.Kind {
	case KindVoid:
		return nil
	case KindFungible:
		if err := w.WriteU64(r.Fungible.Value); err != nil {
			return err
		}
		if err := w.WriteRawBytes(r.Fungible.Blinding[:]); err != nil {
			return err
		}
		return w.WriteRawBytes(r.Fungible.Tag[:])
	case KindStructured:
		return w.WriteBlob(r.Structured.Bytes)
	case KindAttachment:
		if err := w.WriteRawBytes(r.Attachment.ID[:]); err != nil {
			return err
		}
		if err := w.WriteString(r.Attachment.Mime); err != nil {
			return err
		}
		return w.WriteU64(r.Attachment.Salt)
	default:
		return fmt.Errorf("state: cannot encode unknown kind %d", r.Kind)
	}
}

// DecodeRevealed reads a Revealed state atom per StrictEncode's layout.
func DecodeRevealed(r *strictcodec.Reader) (Revealed, error) {
	b, err := r.ReadByte()
	if err != nil {
		return Revealed{}, err
	}
	kind := Kind(b)
	switch kind {
	case KindVoid:
		return Void(), nil
	case KindFungible:
		value, err := r.ReadU64()
		if err != nil {
			return Revealed{}, err
		}
		blindingBytes, err := r.ReadRawBytes(32)
		if err != nil {
			return Revealed{}, err
		}
		var blinding pedersen.Blinding
		copy(blinding[:], blindingBytes)
		tagBytes, err := r.ReadRawBytes(32)
		if err != nil {
			return Revealed{}, err
		}
		var tag [32]byte
		copy(tag[:], tagBytes)
		return NewFungible(value, blinding, tag), nil
	case KindStructured:
		payload, err := r.ReadBlob()
		if err != nil {
			return Revealed{}, err
		}
		return NewStructured(payload)
	case KindAttachment:
		idBytes, err := r.ReadRawBytes(32)
		if err != nil {
			return Revealed{}, err
		}
		var id [32]byte
		copy(id[:], idBytes)
		mime, err := r.ReadString()
		if err != nil {
			return Revealed{}, err
		}
		salt, err := r.ReadU64()
		if err != nil {
			return Revealed{}, err
		}
		return NewAttachment(id, mime, salt)
	default:
		return Revealed{}, &strictcodec.UnknownDiscriminantError{TypeName: "RevealedState", Got: b}
	}
}

// bytes returns the strict-encoded preimage of r, panicking only if r
// carries a payload too large for the codec — callers must validate with
// NewStructured/NewAttachment first, which makes this infallible in
// practice.
func (r Revealed) bytes() []byte {
	w := strictcodec.NewWriter()
	if err := r.StrictEncode(w); err != nil {
		panic(fmt.Sprintf("state: unreachable encode failure: %v", err))
	}
	return w.Bytes()
}

// Equal compares two revealed states over their strict-encoded bytes, per
// spec.md §3: "Equality and ordering of revealed states are defined over
// the strict-encoded bytes, not semantic value."
func (r Revealed) Equal(other Revealed) bool {
	return bytes.Equal(r.bytes(), other.bytes())
}

// Concealed is the sum type `ConcealedState` — the confidential projection
// of a Revealed atom.
type Concealed struct {
	Kind Kind

	// Fungible projection.
	Commitment pedersen.Commitment
	RangeProof RangeProof

	// Structured projection: 20-byte hash160.
	StructuredHash [20]byte

	// Attachment projection: 32-byte tagged SHA-256.
	AttachmentHash [32]byte
}

// RangeProof is an opaque, bounded-size byte blob proving that a
// commitment's hidden value lies within a bounded range (spec.md §4.2: the
// core only transports and hashes it; verification is a pluggable hook).
type RangeProof []byte

// MaxRangeProofLen bounds RangeProof the same way every other codec blob is
// bounded, as a u16-length-prefixed field (spec.md §4.1).
const MaxRangeProofLen = strictcodec.MaxLen

// hash160 computes the BTC-hash-160 of data: RIPEMD160(SHA256(data))
// (spec.md §3: "20-byte BTC-hash-160").
func hash160(data []byte) ([20]byte, error) {
	var out [20]byte
	sha := sha256.Sum256(data)
	h := ripemd160.New()
	if _, err := h.Write(sha[:]); err != nil {
		return out, err
	}
	copy(out[:], h.Sum(nil))
	return out, nil
}

// Conceal computes the confidential projection of r. It is a pure function
// and, for already-Void input, trivially idempotent; callers that need
// idempotence over an already-concealed value should retain the Concealed
// form and never re-derive it from a synthetic Revealed.
func Conceal(r Revealed, proof RangeProof) (Concealed, error) {
	switch r.Kind {
	case KindVoid:
		return Concealed{Kind: KindVoid}, nil
	case KindFungible:
		gen := pedersen.NewGenerator(r.Fungible.Tag)
		c, err := pedersen.Commit(gen, r.Fungible.Value, r.Fungible.Blinding)
		if err != nil {
			return Concealed{}, fmt.Errorf("state: conceal fungible: %w", err)
		}
		if len(proof) > MaxRangeProofLen {
			return Concealed{}, fmt.Errorf("state: range proof of %d bytes exceeds %d byte cap", len(proof), MaxRangeProofLen)
		}
		return Concealed{Kind: KindFungible, Commitment: c, RangeProof: proof}, nil
	case KindStructured:
		h20, err := hash160(r.bytes())
		if err != nil {
			return Concealed{}, fmt.Errorf("state: conceal structured: %w", err)
		}
		return Concealed{Kind: KindStructured, StructuredHash: h20}, nil
	case KindAttachment:
		return Concealed{Kind: KindAttachment, AttachmentHash: commit.TaggedHash(ownedStateTag, r.bytes())}, nil
	default:
		return Concealed{}, fmt.Errorf("state: cannot conceal unknown kind %d", r.Kind)
	}
}

// CommitmentID returns the tagged hash of the concealed form's strict
// encoding. TypedAssigns Merklization takes its leaves from
// assign.Assignment.CommitmentID instead, which hashes the concealed seal
// together with this state's encoding. Because Conceal is deterministic, commit(reveal) == commit(conceal(reveal))
// (spec.md §8).
func (c Concealed) CommitmentID() [32]byte {
	w := strictcodec.NewWriter()
	_ = c.StrictEncode(w)
	return commit.TaggedHash(ownedStateTag, w.Bytes())
}

// StrictEncode writes the canonical byte representation of a concealed
// state atom.
func (c Concealed) StrictEncode(w *strictcodec.Writer) error {
	if err := w.WriteByte(byte(c.Kind)); err != nil {
		return err
	}
	switch c.Kind {
	case KindVoid:
		return nil
	case KindFungible:
		cb := c.Commitment.Bytes()
		if err := w.WriteRawBytes(cb[:]); err != nil {
			return err
		}
		return w.WriteBlob(c.RangeProof)
	case KindStructured:
		return w.WriteRawBytes(c.StructuredHash[:])
	case KindAttachment:
		return w.WriteRawBytes(c.AttachmentHash[:])
	default:
		return fmt.Errorf("state: cannot encode unknown concealed kind %d", c.Kind)
	}
}

// DecodeConcealed reads a Concealed state atom per StrictEncode's layout.
func DecodeConcealed(r *strictcodec.Reader) (Concealed, error) {
	b, err := r.ReadByte()
	if err != nil {
		return Concealed{}, err
	}
	kind := Kind(b)
	switch kind {
	case KindVoid:
		return Concealed{Kind: KindVoid}, nil
	case KindFungible:
		cBytes, err := r.ReadRawBytes(33)
		if err != nil {
			return Concealed{}, err
		}
		var cb [33]byte
		copy(cb[:], cBytes)
		c, err := pedersen.FromBytes(cb)
		if err != nil {
			return Concealed{}, err
		}
		proof, err := r.ReadBlob()
		if err != nil {
			return Concealed{}, err
		}
		return Concealed{Kind: KindFungible, Commitment: c, RangeProof: RangeProof(proof)}, nil
	case KindStructured:
		h, err := r.ReadRawBytes(20)
		if err != nil {
			return Concealed{}, err
		}
		var h20 [20]byte
		copy(h20[:], h)
		return Concealed{Kind: KindStructured, StructuredHash: h20}, nil
	case KindAttachment:
		h, err := r.ReadRawBytes(32)
		if err != nil {
			return Concealed{}, err
		}
		var h32 [32]byte
		copy(h32[:], h)
		return Concealed{Kind: KindAttachment, AttachmentHash: h32}, nil
	default:
		return Concealed{}, &strictcodec.UnknownDiscriminantError{TypeName: "ConcealedState", Got: b}
	}
}
