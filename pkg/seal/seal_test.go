package seal

import (
	"testing"

	"github.com/ledgerseal/rgbcore/pkg/ids"
	"github.com/ledgerseal/rgbcore/pkg/strictcodec"
)

func TestRevealedRoundTripExplicit(t *testing.T) {
	txid := ids.Txid{1, 2, 3}
	original := NewRevealed(MethodTapret, txid, 0, 42)

	w := strictcodec.NewWriter()
	if err := original.StrictEncode(w); err != nil {
		t.Fatalf("StrictEncode failed: %v", err)
	}

	var got Revealed
	err := strictcodec.DecodeExact(w.Bytes(), func(r *strictcodec.Reader) error {
		var err error
		got, err = DecodeRevealed(r)
		return err
	})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if *got.Txid != txid || got.Vout != 0 || got.Blinding != 42 || got.Method != MethodTapret {
		t.Errorf("round trip mismatch: got %+v", got)
	}
}

func TestRevealedRoundTripSelfReferential(t *testing.T) {
	original := NewSelfReferential(MethodOpret, 1, 7)

	w := strictcodec.NewWriter()
	if err := original.StrictEncode(w); err != nil {
		t.Fatalf("StrictEncode failed: %v", err)
	}

	var got Revealed
	err := strictcodec.DecodeExact(w.Bytes(), func(r *strictcodec.Reader) error {
		var err error
		got, err = DecodeRevealed(r)
		return err
	})
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Txid != nil {
		t.Error("self-referential seal should decode with a nil Txid")
	}
}

func TestConcealDeterministic(t *testing.T) {
	txid := ids.Txid{9, 9, 9}
	s := NewRevealed(MethodTapret, txid, 2, 99)
	if s.Conceal() != s.Conceal() {
		t.Error("Conceal should be deterministic")
	}
}

func TestResolveOutPointSelfReferential(t *testing.T) {
	s := NewSelfReferential(MethodTapret, 3, 1)
	defining := ids.Txid{5, 5, 5}
	got := s.ResolveOutPoint(defining)
	if got.Txid != defining || got.Vout != 3 {
		t.Errorf("self-referential seal should resolve to the defining witness, got %+v", got)
	}
}

func TestResolveOutPointExplicit(t *testing.T) {
	explicit := ids.Txid{1, 1, 1}
	s := NewRevealed(MethodTapret, explicit, 4, 1)
	defining := ids.Txid{5, 5, 5}
	got := s.ResolveOutPoint(defining)
	if got.Txid != explicit || got.Vout != 4 {
		t.Errorf("explicit seal should resolve to its own txid, got %+v", got)
	}
}
