package commit

import "encoding/binary"

// MerkleLeafTag and MerkleNodeTag separate leaf hashes from internal node
// hashes so that a leaf can never be mistaken for an internal node during
// an inclusion-proof replay.
const (
	MerkleLeafTag  = "urn:lnp-bp:merkle:leaf#2024-02-03"
	MerkleNodeTag  = "urn:lnp-bp:merkle:node#2024-02-03"
	MerkleEmptyTag = "urn:lnp-bp:merkle:empty#2024-02-03"
)

// emptyNode is the tagged hash standing in for a missing sibling when the
// leaf count is padded out to the next power of two.
func emptyNode(depth int, width uint16) [32]byte {
	var buf [4]byte
	binary.LittleEndian.PutUint16(buf[0:2], uint16(depth))
	binary.LittleEndian.PutUint16(buf[2:4], width)
	return TaggedHash(MerkleEmptyTag, buf[:])
}

// LeafHash commits a single leaf preimage under the leaf domain tag.
func LeafHash(preimage []byte) [32]byte {
	return TaggedHash(MerkleLeafTag, preimage)
}

func hashPair(left, right [32]byte) [32]byte {
	return TaggedHashMulti(MerkleNodeTag, left[:], right[:])
}

// MerkleRoot computes the root of a binary Merkle tree over leaves, padding
// with tagged empty nodes up to the next power of two the way
// original_source/src/rgb/serialize.rs's MerkleNode construction does, so
// that a tree over N leaves and one over N+1 leaves never share a root by
// accident of padding. An empty leaf set hashes to depth-0 emptyNode.
func MerkleRoot(leaves [][32]byte) [32]byte {
	n := len(leaves)
	if n == 0 {
		return emptyNode(0, 0)
	}

	width := nextPow2(n)
	level := make([][32]byte, width)
	copy(level, leaves)
	for i := n; i < width; i++ {
		level[i] = emptyNode(0, uint16(width))
	}

	depth := 1
	for len(level) > 1 {
		next := make([][32]byte, len(level)/2)
		for i := range next {
			next[i] = hashPair(level[2*i], level[2*i+1])
		}
		level = next
		depth++
	}
	return level[0]
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// MerklePath is an inclusion proof: the sibling hash at each level from leaf
// to root, plus which side the proved leaf sits on at each level.
type MerklePath struct {
	Siblings [][32]byte
	LeftMask uint64 // bit i set means the proved node is the left child at level i
}

// MerkleProof builds the inclusion path for leaves[index].
func MerkleProof(leaves [][32]byte, index int) MerklePath {
	n := len(leaves)
	width := nextPow2(n)
	level := make([][32]byte, width)
	copy(level, leaves)
	for i := n; i < width; i++ {
		level[i] = emptyNode(0, uint16(width))
	}

	var path MerklePath
	pos := index
	for len(level) > 1 {
		isLeft := pos%2 == 0
		var sibling [32]byte
		if isLeft {
			sibling = level[pos+1]
			path.LeftMask |= 1 << uint(len(path.Siblings))
		} else {
			sibling = level[pos-1]
		}
		path.Siblings = append(path.Siblings, sibling)

		next := make([][32]byte, len(level)/2)
		for i := range next {
			next[i] = hashPair(level[2*i], level[2*i+1])
		}
		level = next
		pos /= 2
	}
	return path
}

// VerifyPath recomputes the root from leaf and path and reports whether it
// equals root.
func VerifyPath(leaf [32]byte, path MerklePath, root [32]byte) bool {
	cur := leaf
	for i, sibling := range path.Siblings {
		if path.LeftMask&(1<<uint(i)) != 0 {
			cur = hashPair(cur, sibling)
		} else {
			cur = hashPair(sibling, cur)
		}
	}
	return cur == root
}
