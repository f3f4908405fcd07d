package validator

import (
	"github.com/ledgerseal/rgbcore/pkg/assign"
	"github.com/ledgerseal/rgbcore/pkg/ids"
	"github.com/ledgerseal/rgbcore/pkg/operation"
	"github.com/ledgerseal/rgbcore/pkg/schema"
)

// ContractStateAccess is the read side of the rolling per-contract
// projection the validator evolves as it walks the operation graph
// (spec.md §6 "Persisted state layout"). Validate itself always evolves
// the in-memory State below; internal/store does not implement these
// interfaces.
type ContractStateAccess interface {
	// Global returns the entries of global state type ty, most-recent
	// first.
	Global(ty schema.GlobalStateType) [][]byte
}

// ContractStateEvolve extends ContractStateAccess with the single mutation
// the validator performs: applying one operation's effect on state.
type ContractStateEvolve interface {
	ContractStateAccess
	// EvolveState consumes op's inputs and adds its outputs. Called only
	// after op has passed schema and VM validation.
	EvolveState(opid ids.OpId, common operation.Common, inputs []operation.Opout)
}

// State is the default in-memory ContractStateEvolve implementation. It
// tracks global state stacks and the set of still-live (unspent)
// assignments, keyed by the Opout that names them.
type State struct {
	global map[schema.GlobalStateType][][]byte
	live   map[operation.Opout]assign.Assignment
}

// NewState returns an empty contract state.
func NewState() *State {
	return &State{
		global: map[schema.GlobalStateType][][]byte{},
		live:   map[operation.Opout]assign.Assignment{},
	}
}

func (s *State) Global(ty schema.GlobalStateType) [][]byte {
	return s.global[ty]
}

// Live returns the assignment still tracked under o, if any.
func (s *State) Live(o operation.Opout) (assign.Assignment, bool) {
	a, ok := s.live[o]
	return a, ok
}

// EvolveState removes every consumed input and records every output of
// common's owned state under opid, in the canonical per-type assignment
// order (spec.md §4.9.4c).
func (s *State) EvolveState(opid ids.OpId, common operation.Common, inputs []operation.Opout) {
	for _, in := range inputs {
		delete(s.live, in)
	}
	for _, g := range common.GlobalState {
		s.global[g.Type] = append([][]byte{g.Value}, s.global[g.Type]...)
	}
	for ty, ta := range common.OwnedState {
		for idx, a := range ta.Assignments {
			s.live[operation.Opout{Op: opid, StateType: ty, Index: uint16(idx)}] = a
		}
	}
}

// GlobalCount implements vm.ContractView.
func (s *State) GlobalCount(ty schema.GlobalStateType) (int, bool) {
	v, ok := s.global[ty]
	return len(v), ok
}

// GlobalElement implements vm.ContractView. Every global-state entry is
// strict-encoded as a single opaque blob, so el must be 0.
func (s *State) GlobalElement(ty schema.GlobalStateType, pos, el int) ([]byte, bool) {
	v, ok := s.global[ty]
	if !ok || pos < 0 || pos >= len(v) || el != 0 {
		return nil, false
	}
	return v[pos], true
}
