package anchor

import (
	"errors"
	"testing"

	"github.com/ledgerseal/rgbcore/pkg/ids"
	"github.com/ledgerseal/rgbcore/pkg/strictcodec"
)

func sampleProof() (ids.ContractId, ids.OpId, Proof) {
	var contractId ids.ContractId
	contractId[0] = 0xAA
	var opid ids.OpId
	opid[0] = 0xBB

	proof := Proof{
		Slot: slotFor(contractId, 4),
		Siblings: [][32]byte{
			{1, 2, 3},
			{4, 5, 6},
		},
	}
	return contractId, opid, proof
}

func TestConvolveDeterministic(t *testing.T) {
	contractId, opid, proof := sampleProof()
	r1 := proof.Convolve(contractId, opid)
	r2 := proof.Convolve(contractId, opid)
	if r1 != r2 {
		t.Fatal("Convolve must be a pure function of its inputs")
	}
}

func TestConvolveSensitiveToMessage(t *testing.T) {
	contractId, opid, proof := sampleProof()
	root := proof.Convolve(contractId, opid)

	other := opid
	other[31] ^= 0xFF
	if proof.Convolve(contractId, other) == root {
		t.Error("changing the committed opid must change the convolved root")
	}
}

func TestConvolveSensitiveToSlotParity(t *testing.T) {
	contractId, opid, _ := sampleProof()
	left := Proof{Slot: 0, Siblings: [][32]byte{{9, 9, 9}}}
	right := Proof{Slot: 1, Siblings: [][32]byte{{9, 9, 9}}}
	if left.Convolve(contractId, opid) == right.Convolve(contractId, opid) {
		t.Error("slot parity must affect sibling ordering and thus the root")
	}
}

func TestAnchorVerify(t *testing.T) {
	contractId, opid, proof := sampleProof()
	a := Anchor{Method: Tapret, MpcProof: proof, WitnessTxid: ids.Txid{0x01}}

	root := proof.Convolve(contractId, opid)
	if err := a.Verify(contractId, opid, root); err != nil {
		t.Fatalf("expected a matching root to verify, got %v", err)
	}

	var wrongRoot [32]byte
	wrongRoot[0] = 0xFF
	if err := a.Verify(contractId, opid, wrongRoot); err == nil {
		t.Error("expected verification to fail against a mismatched root")
	}
}

func TestAnchorVerifyRejectsSlotMismatch(t *testing.T) {
	contractId, opid, proof := sampleProof()
	proof.Slot = (proof.Slot + 1) % 4
	a := Anchor{Method: Tapret, MpcProof: proof, WitnessTxid: ids.Txid{0x01}}

	root := proof.Convolve(contractId, opid)
	err := a.Verify(contractId, opid, root)
	if !errors.Is(err, ErrSlotMismatch) {
		t.Fatalf("expected ErrSlotMismatch, got %v", err)
	}
}

func TestAnchorStrictEncodeRoundTrip(t *testing.T) {
	contractId, opid, proof := sampleProof()
	_ = contractId
	_ = opid
	a := Anchor{Method: Opret, MpcProof: proof, WitnessTxid: ids.Txid{0x42}}

	w := strictcodec.NewWriter()
	if err := a.StrictEncode(w); err != nil {
		t.Fatalf("StrictEncode failed: %v", err)
	}

	var out Anchor
	err := strictcodec.DecodeExact(w.Bytes(), func(r *strictcodec.Reader) error {
		v, err := DecodeAnchor(r)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if out.Method != a.Method {
		t.Errorf("Method mismatch: got %v, want %v", out.Method, a.Method)
	}
	if out.WitnessTxid != a.WitnessTxid {
		t.Error("WitnessTxid mismatch after round trip")
	}
	if len(out.MpcProof.Siblings) != len(a.MpcProof.Siblings) {
		t.Fatalf("sibling count mismatch: got %d, want %d", len(out.MpcProof.Siblings), len(a.MpcProof.Siblings))
	}
	for i := range out.MpcProof.Siblings {
		if out.MpcProof.Siblings[i] != a.MpcProof.Siblings[i] {
			t.Errorf("sibling %d mismatch", i)
		}
	}
}

func TestDbcMethodString(t *testing.T) {
	if Tapret.String() != "tapret" {
		t.Errorf("unexpected Tapret.String(): %q", Tapret.String())
	}
	if Opret.String() != "opret" {
		t.Errorf("unexpected Opret.String(): %q", Opret.String())
	}
}
