// Package validator implements the operation-graph DAG walker: the
// commitment pass (seal closure, MPC proof verification, double-spend
// detection) and the logic pass (schema conformance, VM script execution,
// contract-state evolution) that together decide whether a consignment is
// valid (spec.md §4.9).
package validator

import (
	"context"
	"fmt"

	"github.com/ledgerseal/rgbcore/pkg/chainnet"
	"github.com/ledgerseal/rgbcore/pkg/ids"
	"github.com/ledgerseal/rgbcore/pkg/operation"
	"github.com/ledgerseal/rgbcore/pkg/resolver"
	"github.com/ledgerseal/rgbcore/pkg/schema"
	"github.com/ledgerseal/rgbcore/pkg/seal"
	"github.com/ledgerseal/rgbcore/pkg/vm"
)

// Options configures one Validate call.
type Options struct {
	// GasLimit bounds every single operation's VM execution (spec.md
	// §4.7's per-opcode budgets).
	GasLimit uint64
	// SafeHeight, when non-nil, makes any witness mined above it (or not
	// yet final) produce an UnsafeWitnessHeight/NonFinalWitness warning
	// (spec.md §4.9.4b). Warnings never affect Validity.
	SafeHeight *uint32
}

// DefaultOptions returns sensible defaults: a generous gas ceiling and no
// safe-height enforcement.
func DefaultOptions() Options {
	return Options{GasLimit: 50_000_000}
}

// genesisTransitionType is the schema transition-type slot a genesis
// operation's arity and script are declared under — the schema mirrors
// pkg/operation's own zero-value sentinel for the same reason: genesis
// has no TransitionType field of its own.
const genesisTransitionType = schema.TransitionType(0)

// Validate walks c's operation graph against r and reports a Status.
// Failures are accumulated rather than returned early, except for the
// three conditions spec.md §4.9 calls fatal: an invalid schema, a
// chain-net mismatch, and a cyclic graph (each aborts immediately with
// whatever failure triggered it).
func Validate(ctx context.Context, c Consignment, r resolver.ResolveWitness, opts Options) Status {
	var status Status
	checked := resolver.NewCheckedResolver(r)
	contractId := c.Genesis.ContractId()

	// 1. Chain-net check (fatal).
	genesisNet := c.Genesis.ChainNet
	if !checked.CheckChainNet(genesisNet) {
		status.fail(ResolverChainNetMismatch, contractId, operation.Opout{}, "resolver does not serve this contract's chain-net")
		status.finalize()
		return status
	}
	for _, tid := range c.sortedTransitionIds() {
		if c.Transitions[tid].ChainNet != genesisNet {
			status.fail(ContractChainNetMismatch, tid, operation.Opout{}, "transition chain-net differs from genesis")
			status.finalize()
			return status
		}
	}

	// 2. Schema check (fatal).
	if err := c.Schema.SelfValidate(); err != nil {
		status.fail(SchemaMismatch, contractId, operation.Opout{}, err.Error())
		status.finalize()
		return status
	}
	schemaId := ids.SchemaId(c.Schema.SchemaId())
	if c.Genesis.SchemaId != schemaId {
		status.fail(SchemaMismatch, contractId, operation.Opout{}, "genesis declares a schema id the supplied schema does not match")
		status.finalize()
		return status
	}

	// 3. Commitment pass.
	commitOK := commitmentPass(ctx, &status, c, checked, contractId, schemaId)
	if status.Partial {
		status.finalize()
		return status
	}

	// Topological order (fatal on a cycle).
	order, cyclic, ok := topoSort(c)
	if !ok {
		status.fail(CyclicGraph, cyclic, operation.Opout{}, "")
		status.finalize()
		return status
	}

	// 4. Logic pass.
	contractState := NewState()
	if passed, err := runOperation(c.Schema, opts.GasLimit, contractState, genesisTransitionType, c.Genesis.Common, nil); err != nil {
		status.fail(ScriptFailed, contractId, operation.Opout{}, err.Error())
	} else if !passed {
		status.fail(ScriptFailed, contractId, operation.Opout{}, "genesis failed schema/VM validation")
	} else {
		contractState.EvolveState(contractId, c.Genesis.Common, nil)
	}

	for _, tid := range order {
		select {
		case <-ctx.Done():
			status.Partial = true
			status.finalize()
			return status
		default:
		}

		t := c.Transitions[tid]

		ok, known := commitOK[tid]
		if !known {
			status.fail(SealsUnvalidated, tid, operation.Opout{}, "operation reached the logic pass without a commitment-pass result")
			continue
		}
		if !ok {
			continue // already reported in the commitment pass
		}

		if t.ContractId != contractId {
			status.fail(ContractMismatch, tid, operation.Opout{}, "")
			continue
		}

		an := c.Anchors[tid]
		ord, err := checked.ResolvePubWitnessOrd(ctx, an.WitnessTxid)
		if err != nil {
			status.fail(WitnessUnresolved, tid, operation.Opout{}, err.Error())
			continue
		}
		if ord.Kind == chainnet.Archived {
			status.fail(SealsInvalid, tid, operation.Opout{}, "witness transaction is archived")
			continue
		}
		recordSafetyWarning(&status, opts, tid, ord)

		sortedIns := sortedOpouts(t.Inputs)
		missing := false
		for _, in := range sortedIns {
			if _, live := contractState.Live(in); !live {
				status.fail(NoPrevState, tid, in, "")
				missing = true
			}
		}
		if missing {
			continue
		}

		if err := verifyFungibleBalance(contractState, c.Schema, t.Common, sortedIns); err != nil {
			status.fail(ScriptFailed, tid, operation.Opout{}, err.Error())
			continue
		}

		passed, err := runOperation(c.Schema, opts.GasLimit, contractState, t.TransitionType, t.Common, sortedIns)
		if err != nil {
			status.fail(ScriptFailed, tid, operation.Opout{}, err.Error())
			continue
		}
		if !passed {
			status.fail(ScriptFailed, tid, operation.Opout{}, "schema/VM validation failed")
			continue
		}

		contractState.EvolveState(tid, t.Common, sortedIns)
	}

	status.finalize()
	return status
}

func recordSafetyWarning(status *Status, opts Options, tid ids.OpId, ord chainnet.WitnessStatus) {
	if opts.SafeHeight == nil {
		return
	}
	if ord.Kind != chainnet.Mined {
		status.warn(NonFinalWitness, tid, ord.String())
		return
	}
	if ord.Height > *opts.SafeHeight {
		status.warn(UnsafeWitnessHeight, tid, fmt.Sprintf("height %d above safe height %d", ord.Height, *opts.SafeHeight))
	}
}

// commitmentPass runs spec.md §4.9 step 3 over every transition, in
// ascending OpId order, and returns which transitions are safe to apply
// in the logic pass.
func commitmentPass(ctx context.Context, status *Status, c Consignment, checked *resolver.CheckedResolver, contractId ids.ContractId, schemaId ids.SchemaId) map[ids.OpId]bool {
	result := make(map[ids.OpId]bool, len(c.Transitions))
	sortedIds := c.sortedTransitionIds()

	// 3e. Double-spend detection, independent of any other per-op check.
	consumed := map[operation.Opout]bool{}
	for _, tid := range sortedIds {
		for _, in := range sortedOpouts(c.Transitions[tid].Inputs) {
			if consumed[in] {
				status.fail(DoubleSpend, tid, in, "")
				continue
			}
			consumed[in] = true
		}
	}

	for _, tid := range sortedIds {
		select {
		case <-ctx.Done():
			status.Partial = true
			return result
		default:
		}

		t := c.Transitions[tid]
		ok := true

		if t.SchemaId != schemaId {
			status.fail(SchemaMismatch, tid, operation.Opout{}, "transition declares a schema id the supplied schema does not match")
			ok = false
		}

		seals, sealsOK := collectClosedSeals(status, c, contractId, tid, t)
		ok = ok && sealsOK

		an, hasAnchor := c.Anchors[tid]
		if !hasAnchor {
			status.fail(AnchorAbsent, tid, operation.Opout{}, "")
			result[tid] = false
			continue
		}

		w, err := checked.ResolvePubWitness(ctx, an.WitnessTxid)
		if err != nil {
			status.fail(SealNoPubWitness, tid, operation.Opout{}, err.Error())
			result[tid] = false
			continue
		}

		if err := an.Verify(contractId, tid, w.CommittedRoot); err != nil {
			status.fail(MpcInvalid, tid, operation.Opout{}, err.Error())
			ok = false
		}

		for _, op := range seals {
			if !w.SpendsOutPoint(op) {
				status.fail(SealsInvalid, tid, operation.Opout{}, fmt.Sprintf("witness does not spend outpoint %+v", op))
				ok = false
			}
		}

		result[tid] = ok
	}
	return result
}

// collectClosedSeals resolves the revealed seal (and its outpoint) for
// every input of t, per spec.md §4.9 step 3a. Inputs that cannot be
// resolved structurally each produce exactly one failure and are skipped;
// the transition overall is marked not-ok in that case.
func collectClosedSeals(status *Status, c Consignment, contractId ids.ContractId, tid ids.OpId, t operation.Transition) ([]seal.OutPoint, bool) {
	ok := true
	outs := make([]seal.OutPoint, 0, len(t.Inputs))

	for _, in := range sortedOpouts(t.Inputs) {
		var priorCommon operation.Common
		var priorIsGenesis bool
		switch {
		case in.Op == contractId:
			priorCommon = c.Genesis.Common
			priorIsGenesis = true
		default:
			prior, found := c.Transitions[in.Op]
			if !found {
				status.fail(OperationAbsent, tid, in, "")
				ok = false
				continue
			}
			priorCommon = prior.Common
		}

		ta, hasType := priorCommon.OwnedState[in.StateType]
		if !hasType || int(in.Index) >= ta.Len() {
			status.fail(NoPrevOut, tid, in, "")
			ok = false
			continue
		}
		revealedSeal, err := ta.RevealedSealAt(int(in.Index))
		if err != nil || revealedSeal == nil {
			status.fail(ConfidentialSeal, tid, in, "")
			ok = false
			continue
		}

		var definingWitness ids.Txid
		if revealedSeal.Txid == nil {
			if priorIsGenesis {
				// Genesis is never anchored, so a self-referential seal
				// defined at genesis has no witness transaction to
				// resolve against; unsupported, reported the same way as
				// any other unresolvable seal.
				status.fail(ConfidentialSeal, tid, in, "self-referential seal defined at genesis has no witness to resolve")
				ok = false
				continue
			}
			priorAnchor, hasAnchor := c.Anchors[in.Op]
			if !hasAnchor {
				status.fail(AnchorAbsent, in.Op, operation.Opout{}, "")
				ok = false
				continue
			}
			definingWitness = priorAnchor.WitnessTxid
		}

		outs = append(outs, revealedSeal.ResolveOutPoint(definingWitness))
	}
	return outs, ok
}

// runOperation checks schema conformance and runs the VM script bound to
// transitionType against the current contract state, using inputs'
// already-live assignments as the operation's input view.
func runOperation(sch schema.Schema, gasLimit uint64, contractState *State, transitionType schema.TransitionType, common operation.Common, inputs []operation.Opout) (bool, error) {
	inputCounts := map[schema.AssignmentType]int{}
	for _, in := range inputs {
		inputCounts[in.StateType]++
	}
	if err := checkConformance(sch, transitionType, inputCounts, common); err != nil {
		return false, err
	}

	spec, ok := sch.Transitions[transitionType]
	if !ok {
		return false, fmt.Errorf("schema: transition type %d undeclared", transitionType)
	}

	opv := buildOpView(common, gatherInputStates(contractState, inputs))
	program, err := decodeProgram(sch.Script, spec.EntryPoint)
	if err != nil {
		return false, err
	}

	m := vm.NewMachine(vm.NewBudget(gasLimit))
	if err := m.Execute(program, contractState, opv); err != nil {
		return false, err
	}
	return m.Passed(), nil
}

func gatherInputStates(s *State, inputs []operation.Opout) map[schema.AssignmentType][][]byte {
	grouped := map[schema.AssignmentType][][]byte{}
	for _, in := range inputs {
		a, ok := s.Live(in)
		if !ok {
			continue
		}
		grouped[in.StateType] = append(grouped[in.StateType], encodeAssignmentState(a))
	}
	return grouped
}

func decodeProgram(script []byte, entryPoint uint16) ([]vm.Instruction, error) {
	if int(entryPoint) > len(script) {
		return nil, fmt.Errorf("vm: entry point %d beyond script length %d", entryPoint, len(script))
	}
	var out []vm.Instruction
	pos := int(entryPoint)
	for pos+6 <= len(script) {
		inst, err := vm.Decode(script[pos : pos+6])
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
		pos += 6
		if inst.Op == vm.OpHalt {
			break
		}
	}
	return out, nil
}
