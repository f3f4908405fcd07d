package validator

import (
	"context"
	"testing"

	"github.com/ledgerseal/rgbcore/pkg/anchor"
	"github.com/ledgerseal/rgbcore/pkg/assign"
	"github.com/ledgerseal/rgbcore/pkg/chainnet"
	"github.com/ledgerseal/rgbcore/pkg/ids"
	"github.com/ledgerseal/rgbcore/pkg/operation"
	"github.com/ledgerseal/rgbcore/pkg/schema"
	"github.com/ledgerseal/rgbcore/pkg/seal"
	"github.com/ledgerseal/rgbcore/pkg/state"
)

func TestValidateBalancedTransferPasses(t *testing.T) {
	c, r, _ := oneInOneOutConsignment(1000, 1000)
	status := Validate(context.Background(), c, r, DefaultOptions())
	if status.Validity != Valid {
		t.Fatalf("expected Valid, got %s: %+v", status.Validity, status.Failures)
	}
	if len(status.Failures) != 0 {
		t.Errorf("expected no failures, got %+v", status.Failures)
	}
}

func TestValidateImbalancedTransferFails(t *testing.T) {
	c, r, tid := oneInOneOutConsignment(1000, 999)
	status := Validate(context.Background(), c, r, DefaultOptions())
	if status.Validity != Invalid {
		t.Fatalf("expected Invalid, got %s", status.Validity)
	}
	found := false
	for _, f := range status.Failures {
		if f.Kind == ScriptFailed && f.Op == tid {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a ScriptFailed failure on %s, got %+v", tid, status.Failures)
	}
}

func TestValidateDoubleSpendDetected(t *testing.T) {
	c, r, tid := oneInOneOutConsignment(1000, 1000)

	// Clone the transition under a different transition (same input opout)
	// so the same genesis output is consumed twice.
	orig := c.Transitions[tid]
	dupCommon := orig.Common
	dupOutSeal := seal.NewRevealed(seal.MethodTapret, ids.Txid{0x07}, 1, 3)
	dupCommon.OwnedState = map[schema.AssignmentType]assign.TypedAssigns{
		assetType: mustTypedAssigns(state.KindFungible, []assign.Assignment{fungibleAssignment(1000, dupOutSeal)}),
	}
	dup := operation.Transition{
		Common:         dupCommon,
		ContractId:     orig.ContractId,
		TransitionType: orig.TransitionType,
		Inputs:         orig.Inputs,
	}
	dupId := dup.OpId()

	an := trivialAnchor(ids.Txid{0x09})
	root := committedRootFor(orig.ContractId, dupId)
	r.addWitness(an.WitnessTxid, root, seal.OutPoint{Txid: ids.Txid{0x01}, Vout: 0})

	c.Transitions[dupId] = dup
	c.Anchors[dupId] = an

	status := Validate(context.Background(), c, r, DefaultOptions())
	if status.Validity != Invalid {
		t.Fatalf("expected Invalid, got %s", status.Validity)
	}
	found := false
	for _, f := range status.Failures {
		if f.Kind == DoubleSpend {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a DoubleSpend failure, got %+v", status.Failures)
	}
}

func TestValidateChainNetMismatchAborts(t *testing.T) {
	c, r, _ := oneInOneOutConsignment(1000, 1000)
	r.net = chainnet.BitcoinTestnet // resolver serves a different chain-net than the contract

	status := Validate(context.Background(), c, r, DefaultOptions())
	if status.Validity != Invalid {
		t.Fatalf("expected Invalid, got %s", status.Validity)
	}
	if len(status.Failures) != 1 || status.Failures[0].Kind != ResolverChainNetMismatch {
		t.Errorf("expected a single ResolverChainNetMismatch failure, got %+v", status.Failures)
	}
}

func TestValidateUnresolvedWitnessDowngrades(t *testing.T) {
	c, r, _ := oneInOneOutConsignment(1000, 1000)
	for tid := range c.Transitions {
		anc := c.Anchors[tid]
		delete(r.witnesses, anc.WitnessTxid) // resolver can no longer serve this witness
	}

	status := Validate(context.Background(), c, r, DefaultOptions())
	if status.Validity != UnresolvedTransactions {
		t.Fatalf("expected UnresolvedTransactions, got %s: %+v", status.Validity, status.Failures)
	}
}

func TestValidateMissingAnchorFails(t *testing.T) {
	c, r, tid := oneInOneOutConsignment(1000, 1000)
	delete(c.Anchors, tid)

	status := Validate(context.Background(), c, r, DefaultOptions())
	if status.Validity != Invalid {
		t.Fatalf("expected Invalid, got %s", status.Validity)
	}
	found := false
	for _, f := range status.Failures {
		if f.Kind == AnchorAbsent && f.Op == tid {
			found = true
		}
	}
	if !found {
		t.Errorf("expected AnchorAbsent on %s, got %+v", tid, status.Failures)
	}
}

func TestValidateBadMpcProofFails(t *testing.T) {
	c, r, tid := oneInOneOutConsignment(1000, 1000)
	an := c.Anchors[tid]
	w := r.witnesses[an.WitnessTxid]
	w.CommittedRoot[0] ^= 0xFF // no longer matches the anchor's convolved root
	r.witnesses[an.WitnessTxid] = w

	status := Validate(context.Background(), c, r, DefaultOptions())
	if status.Validity != Invalid {
		t.Fatalf("expected Invalid, got %s", status.Validity)
	}
	found := false
	for _, f := range status.Failures {
		if f.Kind == MpcInvalid {
			found = true
		}
	}
	if !found {
		t.Errorf("expected MpcInvalid, got %+v", status.Failures)
	}
}

func TestValidateSealNotSpentFails(t *testing.T) {
	c, r, tid := oneInOneOutConsignment(1000, 1000)
	an := c.Anchors[tid]
	w := r.witnesses[an.WitnessTxid]
	w.Spends = nil // witness tx no longer reported as spending the genesis outpoint
	r.witnesses[an.WitnessTxid] = w

	status := Validate(context.Background(), c, r, DefaultOptions())
	if status.Validity != Invalid {
		t.Fatalf("expected Invalid, got %s", status.Validity)
	}
	found := false
	for _, f := range status.Failures {
		if f.Kind == SealsInvalid {
			found = true
		}
	}
	if !found {
		t.Errorf("expected SealsInvalid, got %+v", status.Failures)
	}
}

func TestValidateEmptyGenesisOnlyConsignmentIsValid(t *testing.T) {
	c, r, _ := oneInOneOutConsignment(1000, 1000)
	c.Transitions = map[ids.OpId]operation.Transition{}
	c.Anchors = map[ids.OpId]anchor.Anchor{}

	status := Validate(context.Background(), c, r, DefaultOptions())
	if status.Validity != Valid {
		t.Fatalf("expected Valid, got %s: %+v", status.Validity, status.Failures)
	}
}
