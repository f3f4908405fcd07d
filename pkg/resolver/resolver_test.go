package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/ledgerseal/rgbcore/pkg/anchor"
	"github.com/ledgerseal/rgbcore/pkg/chainnet"
	"github.com/ledgerseal/rgbcore/pkg/ids"
)

type fakeResolver struct {
	witnesses  map[ids.Txid]PubWitness
	ords       map[ids.Txid]chainnet.WitnessStatus
	net        chainnet.ChainNet
	substitute bool // if true, return a witness with a different txid
}

func (f *fakeResolver) ResolvePubWitness(_ context.Context, txid ids.Txid) (PubWitness, error) {
	if f.substitute {
		var other ids.Txid
		other[0] = 0xEE
		return PubWitness{Txid: other}, nil
	}
	w, ok := f.witnesses[txid]
	if !ok {
		return PubWitness{}, &Error{Kind: KindUnknown, Txid: txid}
	}
	return w, nil
}

func (f *fakeResolver) ResolvePubWitnessOrd(_ context.Context, txid ids.Txid) (chainnet.WitnessStatus, error) {
	o, ok := f.ords[txid]
	if !ok {
		return chainnet.WitnessStatus{}, &Error{Kind: KindUnknown, Txid: txid}
	}
	return o, nil
}

func (f *fakeResolver) CheckChainNet(net chainnet.ChainNet) bool {
	return f.net == net
}

func TestCheckedResolverPassesThroughMatchingTxid(t *testing.T) {
	var txid ids.Txid
	txid[0] = 0x01
	fr := &fakeResolver{witnesses: map[ids.Txid]PubWitness{txid: {Txid: txid}}}
	cr := NewCheckedResolver(fr)

	w, err := cr.ResolvePubWitness(context.Background(), txid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Txid != txid {
		t.Error("expected returned witness to carry the requested txid")
	}
}

func TestCheckedResolverRejectsSubstitutedTxid(t *testing.T) {
	var txid ids.Txid
	txid[0] = 0x01
	fr := &fakeResolver{substitute: true}
	cr := NewCheckedResolver(fr)

	_, err := cr.ResolvePubWitness(context.Background(), txid)
	if err == nil {
		t.Fatal("expected an error when the resolver substitutes a different txid")
	}
	if !errors.Is(err, ErrUnresolved) {
		t.Errorf("expected errors.Is(err, ErrUnresolved), got %v", err)
	}
	var re *Error
	if errors.As(err, &re) && re.Kind != KindIdMismatch {
		t.Errorf("expected KindIdMismatch, got %v", re.Kind)
	}
}

func TestCheckChainNet(t *testing.T) {
	fr := &fakeResolver{net: chainnet.BitcoinMainnet}
	cr := NewCheckedResolver(fr)
	if !cr.CheckChainNet(chainnet.BitcoinMainnet) {
		t.Error("expected matching chain-net to pass")
	}
	if cr.CheckChainNet(chainnet.BitcoinTestnet) {
		t.Error("expected mismatched chain-net to fail")
	}
}

func TestVerifyAnchor(t *testing.T) {
	var contractId ids.ContractId
	contractId[0] = 0xAA
	var opid ids.OpId
	opid[0] = 0xBB
	proof := anchor.Proof{Slot: 0, Siblings: [][32]byte{{1, 2, 3}}}
	root := proof.Convolve(contractId, opid)

	var txid ids.Txid
	txid[0] = 0x01
	fr := &fakeResolver{witnesses: map[ids.Txid]PubWitness{txid: {Txid: txid, CommittedRoot: root}}}

	a := anchor.Anchor{Method: anchor.Tapret, MpcProof: proof, WitnessTxid: txid}
	if err := VerifyAnchor(context.Background(), fr, a, contractId, opid); err != nil {
		t.Fatalf("expected anchor to verify, got %v", err)
	}
}

func TestVerifyAnchorRejectsWrongRoot(t *testing.T) {
	var contractId ids.ContractId
	contractId[0] = 0xAA
	var opid ids.OpId
	opid[0] = 0xBB
	proof := anchor.Proof{Slot: 0, Siblings: [][32]byte{{1, 2, 3}}}

	var txid ids.Txid
	txid[0] = 0x01
	var wrongRoot [32]byte
	wrongRoot[0] = 0xFF
	fr := &fakeResolver{witnesses: map[ids.Txid]PubWitness{txid: {Txid: txid, CommittedRoot: wrongRoot}}}

	a := anchor.Anchor{Method: anchor.Tapret, MpcProof: proof, WitnessTxid: txid}
	if err := VerifyAnchor(context.Background(), fr, a, contractId, opid); err == nil {
		t.Fatal("expected an error for a non-matching committed root")
	}
}
