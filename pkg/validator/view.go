package validator

import (
	"github.com/ledgerseal/rgbcore/pkg/assign"
	"github.com/ledgerseal/rgbcore/pkg/operation"
	"github.com/ledgerseal/rgbcore/pkg/schema"
	"github.com/ledgerseal/rgbcore/pkg/strictcodec"
)

// opView adapts one operation's metadata, global state, inputs and outputs
// into the shape the VM reads through (vm.OpView). Every field is keyed by
// its schema type and carries the state's strict-encoded bytes, not the
// typed Go value — the VM only ever compares counts and raw element bytes
// (spec.md §4.7).
type opView struct {
	globals map[schema.GlobalStateType][][]byte
	meta    map[schema.MetaType][]byte
	inputs  map[schema.AssignmentType][][]byte
	outputs map[schema.AssignmentType][][]byte
}

func (v *opView) GlobalCount(ty schema.GlobalStateType) (int, bool) {
	e, ok := v.globals[ty]
	return len(e), ok
}

func (v *opView) GlobalElement(ty schema.GlobalStateType, pos, el int) ([]byte, bool) {
	e, ok := v.globals[ty]
	if !ok || pos < 0 || pos >= len(e) || el != 0 {
		return nil, false
	}
	return e[pos], true
}

func (v *opView) InputCount(ty schema.AssignmentType) (int, bool) {
	e, ok := v.inputs[ty]
	return len(e), ok
}

func (v *opView) InputElement(ty schema.AssignmentType, pos, el int) ([]byte, bool) {
	e, ok := v.inputs[ty]
	if !ok || pos < 0 || pos >= len(e) || el != 0 {
		return nil, false
	}
	return e[pos], true
}

func (v *opView) OutputCount(ty schema.AssignmentType) (int, bool) {
	e, ok := v.outputs[ty]
	return len(e), ok
}

func (v *opView) OutputElement(ty schema.AssignmentType, pos, el int) ([]byte, bool) {
	e, ok := v.outputs[ty]
	if !ok || pos < 0 || pos >= len(e) || el != 0 {
		return nil, false
	}
	return e[pos], true
}

func (v *opView) MetaElement(ty schema.MetaType, el int) ([]byte, bool) {
	b, ok := v.meta[ty]
	if !ok || el != 0 {
		return nil, false
	}
	return b, true
}

// buildOpView assembles an opView for common's own global state,
// metadata, and output assignments, plus the already-resolved bytes of
// its input assignments (gathered from the rolling contract state before
// this operation's inputs are consumed).
func buildOpView(common operation.Common, inputStates map[schema.AssignmentType][][]byte) *opView {
	v := &opView{
		globals: map[schema.GlobalStateType][][]byte{},
		meta:    map[schema.MetaType][]byte{},
		inputs:  inputStates,
		outputs: map[schema.AssignmentType][][]byte{},
	}
	for _, g := range common.GlobalState {
		v.globals[g.Type] = append(v.globals[g.Type], g.Value)
	}
	for _, m := range common.Metadata {
		v.meta[m.Type] = m.Value
	}
	for ty, ta := range common.OwnedState {
		values := make([][]byte, len(ta.Assignments))
		for i, a := range ta.Assignments {
			values[i] = encodeAssignmentState(a)
		}
		v.outputs[ty] = values
	}
	return v
}

// encodeAssignmentState returns the bytes the VM sees for an assignment's
// state: the revealed value when present, or the concealed projection
// otherwise. A script that inspects concealed bytes directly only ever
// sees opaque commitment bytes — reading the real value out of a
// concealed assignment is exactly what conceal is meant to prevent.
func encodeAssignmentState(a assign.Assignment) []byte {
	w := strictcodec.NewWriter()
	if a.RevealedState != nil {
		_ = a.RevealedState.StrictEncode(w)
	} else {
		_ = a.ConcealedState.StrictEncode(w)
	}
	return w.Bytes()
}
