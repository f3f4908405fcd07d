package validator

import (
	"context"
	"math"

	"github.com/ledgerseal/rgbcore/pkg/anchor"
	"github.com/ledgerseal/rgbcore/pkg/assign"
	"github.com/ledgerseal/rgbcore/pkg/chainnet"
	"github.com/ledgerseal/rgbcore/pkg/ids"
	"github.com/ledgerseal/rgbcore/pkg/operation"
	"github.com/ledgerseal/rgbcore/pkg/pedersen"
	"github.com/ledgerseal/rgbcore/pkg/resolver"
	"github.com/ledgerseal/rgbcore/pkg/schema"
	"github.com/ledgerseal/rgbcore/pkg/seal"
	"github.com/ledgerseal/rgbcore/pkg/state"
	"github.com/ledgerseal/rgbcore/pkg/vm"
)

const assetType = schema.AssignmentType(1)
const transferType = schema.TransitionType(1)

var assetTag = [32]byte{0xAB}

// alwaysPassScript is "pass; halt" — it makes schema/VM validation trivial
// so tests can focus on the surrounding structural checks the validator
// itself performs (arity, double-spend, balance, MPC, seal closure).
func alwaysPassScript() []byte {
	pass := vm.Instruction{Op: vm.OpPass}.Encode()
	halt := vm.Instruction{Op: vm.OpHalt}.Encode()
	return append(append([]byte{}, pass[:]...), halt[:]...)
}

func fungibleAssetSchema() schema.Schema {
	return schema.Schema{
		GlobalState: map[schema.GlobalStateType]schema.GlobalStateSpec{},
		Assignments: map[schema.AssignmentType]schema.AssignmentSpec{
			assetType: {
				StateKind: state.KindFungible,
				Format:    schema.DataFormat{Kind: schema.FormatInt, MinValue: 0, MaxValue: math.MaxUint64},
			},
		},
		Transitions: map[schema.TransitionType]schema.TransitionSpec{
			genesisTransitionType: {
				InputArity:  map[schema.AssignmentType]schema.Arity{},
				OutputArity: map[schema.AssignmentType]schema.Arity{assetType: schema.Once},
				EntryPoint:  0,
			},
			transferType: {
				InputArity:  map[schema.AssignmentType]schema.Arity{assetType: schema.Once},
				OutputArity: map[schema.AssignmentType]schema.Arity{assetType: schema.OnceOrMore},
				EntryPoint:  0,
			},
		},
		Meta:     map[schema.MetaType]schema.DataFormat{},
		Script:   alwaysPassScript(),
		Features: schema.AllFeatures,
	}
}

func fungibleAssignment(value uint64, s seal.Revealed) assign.Assignment {
	blinding, err := pedersen.GenerateBlinding()
	if err != nil {
		panic(err)
	}
	revealed := state.NewFungible(value, blinding, assetTag)
	a, err := assign.NewRevealed(s, revealed, nil)
	if err != nil {
		panic(err)
	}
	return a
}

// trivialAnchor returns an anchor whose MPC proof has no siblings, so its
// convolution is simply the leaf hash of (contractId, opid) — enough to
// exercise the commitment pass without constructing a real tree.
func trivialAnchor(witnessTxid ids.Txid) anchor.Anchor {
	return anchor.Anchor{Method: anchor.Tapret, MpcProof: anchor.Proof{Slot: 0}, WitnessTxid: witnessTxid}
}

func committedRootFor(contractId ids.ContractId, opid ids.OpId) [32]byte {
	return anchor.Proof{Slot: 0}.Convolve(contractId, opid)
}

// fakeResolver is a minimal resolver.ResolveWitness test double: a fixed
// map of witnesses and ordinals, plus a chain-net it claims to serve.
type fakeResolver struct {
	witnesses map[ids.Txid]resolver.PubWitness
	ords      map[ids.Txid]chainnet.WitnessStatus
	net       chainnet.ChainNet
}

func newFakeResolver(net chainnet.ChainNet) *fakeResolver {
	return &fakeResolver{
		witnesses: map[ids.Txid]resolver.PubWitness{},
		ords:      map[ids.Txid]chainnet.WitnessStatus{},
		net:       net,
	}
}

func (f *fakeResolver) addWitness(txid ids.Txid, root [32]byte, spends ...seal.OutPoint) {
	f.witnesses[txid] = resolver.PubWitness{Txid: txid, CommittedRoot: root, Spends: spends}
	f.ords[txid] = chainnet.WitnessStatus{Kind: chainnet.Mined, Height: 100}
}

func (f *fakeResolver) ResolvePubWitness(_ context.Context, txid ids.Txid) (resolver.PubWitness, error) {
	w, ok := f.witnesses[txid]
	if !ok {
		return resolver.PubWitness{}, &resolver.Error{Kind: resolver.KindUnknown, Expected: txid, Message: "unknown witness"}
	}
	return w, nil
}

func (f *fakeResolver) ResolvePubWitnessOrd(_ context.Context, txid ids.Txid) (chainnet.WitnessStatus, error) {
	ord, ok := f.ords[txid]
	if !ok {
		return chainnet.WitnessStatus{}, &resolver.Error{Kind: resolver.KindUnknown, Expected: txid, Message: "unknown witness"}
	}
	return ord, nil
}

func (f *fakeResolver) CheckChainNet(net chainnet.ChainNet) bool { return net == f.net }

// oneInOneOutConsignment builds a genesis issuing `issued` units and one
// transition spending that output and producing outputs summing to
// `produced`, anchored to a trivial MPC proof and a resolver that reports
// the transition's witness as spending the genesis outpoint. Callers get
// back the consignment, a resolver pre-populated with a valid witness, and
// the transition's OpId for convenience.
func oneInOneOutConsignment(issued, produced uint64) (Consignment, *fakeResolver, ids.OpId) {
	sch := fungibleAssetSchema()
	net := chainnet.BitcoinRegtest
	schemaId := ids.SchemaId(sch.SchemaId())

	genesisTxid := ids.Txid{0x01}
	genesisSeal := seal.NewRevealed(seal.MethodTapret, genesisTxid, 0, 1)

	genesis := operation.Genesis{Common: operation.Common{
		SchemaId: schemaId,
		ChainNet: net,
		OwnedState: map[schema.AssignmentType]assign.TypedAssigns{
			assetType: mustTypedAssigns(state.KindFungible, []assign.Assignment{fungibleAssignment(issued, genesisSeal)}),
		},
	}}
	contractId := genesis.ContractId()

	inBlinding := genesis.OwnedState[assetType].Assignments[0].RevealedState.Fungible.Blinding
	outBlinding, err := pedersen.GenerateBlinding()
	if err != nil {
		panic(err)
	}
	var balancedOutBlinding pedersen.Blinding
	if produced == issued {
		balancedOutBlinding, err = pedersen.ZeroBalanced([]pedersen.Blinding{}, []pedersen.Blinding{inBlinding})
		if err != nil {
			panic(err)
		}
	} else {
		balancedOutBlinding = outBlinding
	}

	outSeal := seal.NewRevealed(seal.MethodTapret, ids.Txid{0x03}, 0, 2)
	revealedOut := state.NewFungible(produced, balancedOutBlinding, assetTag)
	outAssignment, err := assign.NewRevealed(outSeal, revealedOut, nil)
	if err != nil {
		panic(err)
	}

	input := operation.Opout{Op: contractId, StateType: assetType, Index: 0}
	transition := operation.Transition{
		Common: operation.Common{
			SchemaId: schemaId,
			ChainNet: net,
			OwnedState: map[schema.AssignmentType]assign.TypedAssigns{
				assetType: mustTypedAssigns(state.KindFungible, []assign.Assignment{outAssignment}),
			},
		},
		ContractId:     contractId,
		TransitionType: transferType,
		Inputs:         map[operation.Opout]struct{}{input: {}},
	}
	tid := transition.OpId()

	an := trivialAnchor(ids.Txid{0x02})
	root := committedRootFor(contractId, tid)

	r := newFakeResolver(net)
	r.addWitness(an.WitnessTxid, root, seal.OutPoint{Txid: genesisTxid, Vout: 0})

	c := Consignment{
		Schema:      sch,
		Genesis:     genesis,
		Transitions: map[ids.OpId]operation.Transition{tid: transition},
		Anchors:     map[ids.OpId]anchor.Anchor{tid: an},
	}
	return c, r, tid
}

func mustTypedAssigns(kind state.Kind, assignments []assign.Assignment) assign.TypedAssigns {
	ta, err := assign.NewTypedAssigns(kind, assignments)
	if err != nil {
		panic(err)
	}
	return ta
}
