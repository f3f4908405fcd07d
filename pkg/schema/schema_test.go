package schema

import (
	"errors"
	"testing"

	"github.com/ledgerseal/rgbcore/pkg/state"
)

func minimalSchema() Schema {
	return Schema{
		GlobalState: map[GlobalStateType]GlobalStateSpec{
			0: {Format: DataFormat{Kind: FormatInt, MinValue: 0, MaxValue: 100}, MaxItems: 10},
		},
		Assignments: map[AssignmentType]AssignmentSpec{
			0: {
				StateKind: state.KindFungible,
				Format:    DataFormat{Kind: FormatInt, MinValue: 0, MaxValue: ^uint64(0)},
				ArityByTransition: map[TransitionType]Arity{
					0: OnceOrMore,
				},
			},
		},
		Transitions: map[TransitionType]TransitionSpec{
			0: {
				InputArity:  map[AssignmentType]Arity{0: OnceOrMore},
				OutputArity: map[AssignmentType]Arity{0: OnceOrMore},
				MetaTypes:   nil,
				EntryPoint:  0,
			},
		},
		Meta:     map[MetaType]DataFormat{},
		Script:   []byte{0x01, 0x02},
		Features: AllFeatures,
	}
}

func TestSelfValidatePasses(t *testing.T) {
	if err := minimalSchema().SelfValidate(); err != nil {
		t.Errorf("expected minimal schema to self-validate, got %v", err)
	}
}

func TestSelfValidateRejectsUndeclaredAssignment(t *testing.T) {
	s := minimalSchema()
	s.Transitions[0] = TransitionSpec{
		InputArity: map[AssignmentType]Arity{99: Once},
	}
	err := s.SelfValidate()
	if !errors.Is(err, ErrUndeclaredType) {
		t.Errorf("expected ErrUndeclaredType, got %v", err)
	}
}

func TestSchemaIdDeterministic(t *testing.T) {
	s := minimalSchema()
	id1 := s.SchemaId()
	id2 := s.SchemaId()
	if id1 != id2 {
		t.Error("SchemaId should be deterministic")
	}
}

func TestSchemaIdOrderIndependent(t *testing.T) {
	s1 := minimalSchema()
	s1.GlobalState[1] = GlobalStateSpec{Format: DataFormat{Kind: FormatInt}, MaxItems: 1}

	// s2 gets the same two entries, inserted in the opposite order.
	s2 := minimalSchema()
	s2.GlobalState = map[GlobalStateType]GlobalStateSpec{
		1: {Format: DataFormat{Kind: FormatInt}, MaxItems: 1},
	}
	s2.GlobalState[0] = s1.GlobalState[0]

	if s1.SchemaId() != s2.SchemaId() {
		t.Error("identical maps built in different insertion order should yield the same schema id")
	}
}

func TestArityCheck(t *testing.T) {
	cases := []struct {
		arity Arity
		count int
		want  bool
	}{
		{Once, 1, true},
		{Once, 0, false},
		{Once, 2, false},
		{OnceOrMore, 0, false},
		{OnceOrMore, 5, true},
		{NoneOrOnce, 0, true},
		{NoneOrOnce, 1, true},
		{NoneOrOnce, 2, false},
		{NoneOrMore, 0, true},
		{NoneOrMore, 1000, true},
	}
	for _, c := range cases {
		if got := c.arity.Check(c.count); got != c.want {
			t.Errorf("%v.Check(%d) = %v, want %v", c.arity, c.count, got, c.want)
		}
	}
}

func TestFeaturesHas(t *testing.T) {
	f := FeaturePublicRights
	if !f.Has(FeaturePublicRights) {
		t.Error("expected FeaturePublicRights to be set")
	}
	if f.Has(FeatureConfidentialAmendments) {
		t.Error("did not expect FeatureConfidentialAmendments to be set")
	}
}

func TestDataFormatValidateInt(t *testing.T) {
	f := DataFormat{Kind: FormatInt, MinValue: 10, MaxValue: 20}
	if err := f.ValidateInt(15); err != nil {
		t.Errorf("15 should be within [10, 20], got %v", err)
	}
	if err := f.ValidateInt(25); err == nil {
		t.Error("25 should be outside [10, 20]")
	}
}
