package validator

import (
	"fmt"

	"github.com/ledgerseal/rgbcore/pkg/operation"
	"github.com/ledgerseal/rgbcore/pkg/pedersen"
	"github.com/ledgerseal/rgbcore/pkg/schema"
	"github.com/ledgerseal/rgbcore/pkg/state"
)

// verifyFungibleBalance checks, for every assignment type whose schema
// state kind is Fungible, that the Pedersen commitments of a transition's
// consumed inputs homomorphically sum to the same point as its produced
// outputs — the conservation-of-value check a schema's validation script
// would otherwise spend host-ISA arithmetic opcodes on (spec.md §8
// scenario 1/2, "Σin==Σout"). Verifying over commitments rather than
// plaintext values means the check never requires the hidden amounts to
// be revealed (spec.md §4.2).
func verifyFungibleBalance(s *State, sch schema.Schema, common operation.Common, inputs []operation.Opout) error {
	inSum := map[schema.AssignmentType]pedersen.Commitment{}
	inSeen := map[schema.AssignmentType]bool{}
	for _, in := range inputs {
		a, ok := s.Live(in)
		if !ok {
			continue
		}
		if !isFungible(sch, in.StateType) {
			continue
		}
		if inSeen[in.StateType] {
			inSum[in.StateType] = inSum[in.StateType].Add(a.ConcealedState.Commitment)
		} else {
			inSum[in.StateType] = a.ConcealedState.Commitment
			inSeen[in.StateType] = true
		}
	}

	outSum := map[schema.AssignmentType]pedersen.Commitment{}
	outSeen := map[schema.AssignmentType]bool{}
	for ty, ta := range common.OwnedState {
		if !isFungible(sch, ty) {
			continue
		}
		for _, a := range ta.Assignments {
			if outSeen[ty] {
				outSum[ty] = outSum[ty].Add(a.ConcealedState.Commitment)
			} else {
				outSum[ty] = a.ConcealedState.Commitment
				outSeen[ty] = true
			}
		}
	}

	for ty, in := range inSum {
		out, ok := outSum[ty]
		if !ok {
			return fmt.Errorf("fungible assignment type %d: inputs with no corresponding outputs", ty)
		}
		if !in.Equal(out) {
			return fmt.Errorf("fungible assignment type %d: input/output commitment sums differ", ty)
		}
	}
	for ty := range outSum {
		if !inSeen[ty] {
			return fmt.Errorf("fungible assignment type %d: outputs with no corresponding inputs", ty)
		}
	}
	return nil
}

func isFungible(sch schema.Schema, ty schema.AssignmentType) bool {
	spec, ok := sch.Assignments[ty]
	return ok && spec.StateKind == state.KindFungible
}
