package validator

import (
	"math"
	"strings"
	"testing"

	"github.com/ledgerseal/rgbcore/pkg/assign"
	"github.com/ledgerseal/rgbcore/pkg/ids"
	"github.com/ledgerseal/rgbcore/pkg/operation"
	"github.com/ledgerseal/rgbcore/pkg/schema"
	"github.com/ledgerseal/rgbcore/pkg/seal"
	"github.com/ledgerseal/rgbcore/pkg/state"
)

func baseSchemaForConformance() schema.Schema {
	return schema.Schema{
		GlobalState: map[schema.GlobalStateType]schema.GlobalStateSpec{
			1: {Format: schema.DataFormat{Kind: schema.FormatInt, MinValue: 0, MaxValue: 10}},
		},
		Assignments: map[schema.AssignmentType]schema.AssignmentSpec{
			assetType: {StateKind: state.KindFungible, Format: schema.DataFormat{Kind: schema.FormatInt, MinValue: 0, MaxValue: 100}},
		},
		Transitions: map[schema.TransitionType]schema.TransitionSpec{
			transferType: {
				InputArity:  map[schema.AssignmentType]schema.Arity{assetType: schema.Once},
				OutputArity: map[schema.AssignmentType]schema.Arity{assetType: schema.OnceOrMore},
				MetaTypes:   []schema.MetaType{7},
			},
		},
		Meta: map[schema.MetaType]schema.DataFormat{
			7: {Kind: schema.FormatBytes, MaxLength: 4},
		},
	}
}

func oneAssetOutput(value uint64) map[schema.AssignmentType]assign.TypedAssigns {
	s := seal.NewRevealed(seal.MethodTapret, ids.Txid{0x01}, 0, 1)
	return map[schema.AssignmentType]assign.TypedAssigns{
		assetType: mustTypedAssigns(state.KindFungible, []assign.Assignment{fungibleAssignment(value, s)}),
	}
}

func TestCheckConformanceUndeclaredTransitionType(t *testing.T) {
	sch := baseSchemaForConformance()
	err := checkConformance(sch, schema.TransitionType(99), nil, operation.Common{})
	if err == nil || !strings.Contains(err.Error(), "undeclared") {
		t.Fatalf("expected undeclared transition type error, got %v", err)
	}
}

func TestCheckConformanceInputArityViolation(t *testing.T) {
	sch := baseSchemaForConformance()
	common := operation.Common{OwnedState: oneAssetOutput(10)}
	err := checkConformance(sch, transferType, map[schema.AssignmentType]int{assetType: 2}, common)
	if err == nil || !strings.Contains(err.Error(), "arity") {
		t.Fatalf("expected arity violation, got %v", err)
	}
}

func TestCheckConformanceUndeclaredInputType(t *testing.T) {
	sch := baseSchemaForConformance()
	common := operation.Common{OwnedState: oneAssetOutput(10)}
	err := checkConformance(sch, transferType, map[schema.AssignmentType]int{assetType: 1, schema.AssignmentType(9): 1}, common)
	if err == nil || !strings.Contains(err.Error(), "undeclared") {
		t.Fatalf("expected undeclared input type error, got %v", err)
	}
}

func TestCheckConformanceOutputArityViolation(t *testing.T) {
	sch := baseSchemaForConformance()
	common := operation.Common{OwnedState: map[schema.AssignmentType]assign.TypedAssigns{
		assetType: mustTypedAssigns(state.KindFungible, nil),
	}}
	err := checkConformance(sch, transferType, map[schema.AssignmentType]int{assetType: 1}, common)
	if err == nil || !strings.Contains(err.Error(), "arity") {
		t.Fatalf("expected output arity violation, got %v", err)
	}
}

func TestCheckConformanceUndeclaredOutputType(t *testing.T) {
	sch := baseSchemaForConformance()
	common := operation.Common{OwnedState: oneAssetOutput(10)}
	common.OwnedState[schema.AssignmentType(42)] = mustTypedAssigns(state.KindFungible, nil)
	err := checkConformance(sch, transferType, map[schema.AssignmentType]int{assetType: 1}, common)
	if err == nil || !strings.Contains(err.Error(), "undeclared") {
		t.Fatalf("expected undeclared output type error, got %v", err)
	}
}

func TestCheckConformanceUndeclaredMetadata(t *testing.T) {
	sch := baseSchemaForConformance()
	common := operation.Common{
		OwnedState: oneAssetOutput(10),
		Metadata:   []operation.MetaEntry{{Type: 5, Value: []byte{0x01}}},
	}
	err := checkConformance(sch, transferType, map[schema.AssignmentType]int{assetType: 1}, common)
	if err == nil || !strings.Contains(err.Error(), "metadata type 5 is undeclared") {
		t.Fatalf("expected undeclared metadata error, got %v", err)
	}
}

func TestCheckConformanceMetadataTooLong(t *testing.T) {
	sch := baseSchemaForConformance()
	common := operation.Common{
		OwnedState: oneAssetOutput(10),
		Metadata:   []operation.MetaEntry{{Type: 7, Value: []byte{1, 2, 3, 4, 5}}},
	}
	err := checkConformance(sch, transferType, map[schema.AssignmentType]int{assetType: 1}, common)
	if err == nil || !strings.Contains(err.Error(), "exceeds cap") {
		t.Fatalf("expected metadata length violation, got %v", err)
	}
}

func TestCheckConformanceUndeclaredGlobalState(t *testing.T) {
	sch := baseSchemaForConformance()
	common := operation.Common{
		OwnedState:  oneAssetOutput(10),
		GlobalState: []operation.GlobalEntry{{Type: 99, Value: []byte{0x01}}},
	}
	err := checkConformance(sch, transferType, map[schema.AssignmentType]int{assetType: 1}, common)
	if err == nil || !strings.Contains(err.Error(), "global state type 99 is undeclared") {
		t.Fatalf("expected undeclared global state error, got %v", err)
	}
}

func TestCheckConformanceStateKindMismatch(t *testing.T) {
	sch := baseSchemaForConformance()
	s := seal.NewRevealed(seal.MethodTapret, ids.Txid{0x01}, 0, 1)
	revealed := state.Revealed{Kind: state.KindStructured, Structured: state.Structured{Bytes: []byte{1, 2}}}
	a, err := assign.NewRevealed(s, revealed, nil)
	if err != nil {
		t.Fatal(err)
	}
	common := operation.Common{OwnedState: map[schema.AssignmentType]assign.TypedAssigns{
		assetType: mustTypedAssigns(state.KindStructured, []assign.Assignment{a}),
	}}
	err = checkConformance(sch, transferType, map[schema.AssignmentType]int{assetType: 1}, common)
	if err == nil || !strings.Contains(err.Error(), "declares state kind") {
		t.Fatalf("expected state kind mismatch, got %v", err)
	}
}

func TestCheckConformanceIntOutOfRange(t *testing.T) {
	sch := baseSchemaForConformance()
	common := operation.Common{OwnedState: oneAssetOutput(math.MaxUint64)}
	err := checkConformance(sch, transferType, map[schema.AssignmentType]int{assetType: 1}, common)
	if err == nil || !strings.Contains(err.Error(), "outside bound") {
		t.Fatalf("expected int range violation, got %v", err)
	}
}

func TestCheckConformanceValid(t *testing.T) {
	sch := baseSchemaForConformance()
	common := operation.Common{
		OwnedState: oneAssetOutput(10),
		Metadata:   []operation.MetaEntry{{Type: 7, Value: []byte{1, 2}}},
	}
	err := checkConformance(sch, transferType, map[schema.AssignmentType]int{assetType: 1}, common)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}
