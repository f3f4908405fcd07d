// Package commit implements the tagged-hash and Merklization primitives
// that every other commitment in the system builds on (spec.md §4.2).
package commit

import (
	"crypto/sha256"
	"encoding/binary"
)

// TaggedHash computes H_t(msg) = SHA256( SHA256(tag) ‖ SHA256(tag) ‖ msg ),
// the domain-separated hash construction used throughout the commitment
// layer so that a preimage committed under one tag can never collide with a
// preimage committed under another.
func TaggedHash(tag string, msg []byte) [32]byte {
	tagHash := sha256.Sum256([]byte(tag))
	h := sha256.New()
	h.Write(tagHash[:])
	h.Write(tagHash[:])
	h.Write(msg)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// TaggedHashMulti is TaggedHash over the concatenation of several chunks,
// avoiding an intermediate allocation for the common multi-field case.
func TaggedHashMulti(tag string, chunks ...[]byte) [32]byte {
	tagHash := sha256.Sum256([]byte(tag))
	h := sha256.New()
	h.Write(tagHash[:])
	h.Write(tagHash[:])
	for _, c := range chunks {
		h.Write(c)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// AssetTagTag is the domain tag for deriving an AssetTag from an
// assignment type and a contract-scoped nonce.
const AssetTagTag = "asset-tag"

// DeriveAssetTag derives the 32-byte AssetTag that binds a fungible
// assignment type to a single Pedersen generator pair for a given contract,
// so that values under different assignment types can never be confused
// during homomorphic verification (spec.md §4.2):
//
//	H("asset-tag" ‖ len(domain) ‖ domain ‖ LE(assignment_type) ‖ LE(timestamp) ‖ LE(salt))
//
// domain is typically the contract ID or schema ID the tag is scoped to.
func DeriveAssetTag(domain []byte, assignmentType uint16, timestamp int64, salt [32]byte) [32]byte {
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(domain)))

	var typeBuf [2]byte
	binary.LittleEndian.PutUint16(typeBuf[:], assignmentType)

	var tsBuf [8]byte
	binary.LittleEndian.PutUint64(tsBuf[:], uint64(timestamp))

	return TaggedHashMulti(AssetTagTag, lenBuf[:], domain, typeBuf[:], tsBuf[:], salt[:])
}
