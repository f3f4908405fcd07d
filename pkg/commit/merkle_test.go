package commit

import "testing"

func TestMerkleRootEmpty(t *testing.T) {
	root := MerkleRoot(nil)
	if root == ([32]byte{}) {
		t.Error("empty-leaf root should not be the zero hash")
	}
}

func TestMerkleRootDeterministic(t *testing.T) {
	leaves := [][32]byte{
		LeafHash([]byte("a")),
		LeafHash([]byte("b")),
		LeafHash([]byte("c")),
	}
	r1 := MerkleRoot(leaves)
	r2 := MerkleRoot(leaves)
	if r1 != r2 {
		t.Error("Merkle root should be deterministic")
	}
}

func TestMerkleRootOrderSensitive(t *testing.T) {
	a := LeafHash([]byte("a"))
	b := LeafHash([]byte("b"))

	r1 := MerkleRoot([][32]byte{a, b})
	r2 := MerkleRoot([][32]byte{b, a})
	if r1 == r2 {
		t.Error("swapping leaf order should change the root")
	}
}

func TestMerkleRootWidthSensitive(t *testing.T) {
	leaf := LeafHash([]byte("x"))
	r1 := MerkleRoot([][32]byte{leaf})
	r2 := MerkleRoot([][32]byte{leaf, leaf})
	if r1 == r2 {
		t.Error("padding width should be reflected in the root")
	}
}

func TestMerklePathVerification(t *testing.T) {
	leaves := [][32]byte{
		LeafHash([]byte("1")),
		LeafHash([]byte("2")),
		LeafHash([]byte("3")),
		LeafHash([]byte("4")),
		LeafHash([]byte("5")),
	}
	root := MerkleRoot(leaves)

	for i, leaf := range leaves {
		path := MerkleProof(leaves, i)
		if !VerifyPath(leaf, path, root) {
			t.Errorf("path for leaf %d should verify", i)
		}
	}
}

func TestMerklePathRejectsWrongLeaf(t *testing.T) {
	leaves := [][32]byte{
		LeafHash([]byte("1")),
		LeafHash([]byte("2")),
		LeafHash([]byte("3")),
	}
	root := MerkleRoot(leaves)
	path := MerkleProof(leaves, 0)

	if VerifyPath(LeafHash([]byte("wrong")), path, root) {
		t.Error("path verification should fail against a substituted leaf")
	}
}

func TestDeriveAssetTagDeterministic(t *testing.T) {
	domain := []byte("contract-id-bytes")
	salt := [32]byte{1, 2, 3}

	t1 := DeriveAssetTag(domain, 0, 1_700_000_000, salt)
	t2 := DeriveAssetTag(domain, 0, 1_700_000_000, salt)
	if t1 != t2 {
		t.Error("DeriveAssetTag should be deterministic for identical inputs")
	}

	t3 := DeriveAssetTag(domain, 1, 1_700_000_000, salt)
	if t1 == t3 {
		t.Error("different assignment types should derive different asset tags")
	}
}
