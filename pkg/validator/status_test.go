package validator

import (
	"testing"

	"github.com/ledgerseal/rgbcore/pkg/ids"
	"github.com/ledgerseal/rgbcore/pkg/operation"
)

func TestStatusFinalizeNoFailuresIsValid(t *testing.T) {
	var s Status
	s.finalize()
	if s.Validity != Valid {
		t.Fatalf("expected Valid, got %s", s.Validity)
	}
}

func TestStatusFinalizeAllWitnessUnresolvedDowngrades(t *testing.T) {
	var s Status
	s.fail(WitnessUnresolved, ids.OpId{0x01}, operation.Opout{}, "")
	s.fail(SealNoPubWitness, ids.OpId{0x02}, operation.Opout{}, "")
	s.finalize()
	if s.Validity != UnresolvedTransactions {
		t.Fatalf("expected UnresolvedTransactions, got %s", s.Validity)
	}
}

func TestStatusFinalizeMixedFailuresIsInvalid(t *testing.T) {
	var s Status
	s.fail(WitnessUnresolved, ids.OpId{0x01}, operation.Opout{}, "")
	s.fail(DoubleSpend, ids.OpId{0x02}, operation.Opout{}, "")
	s.finalize()
	if s.Validity != Invalid {
		t.Fatalf("expected Invalid, got %s", s.Validity)
	}
}

func TestStatusFinalizeSingleOtherFailureIsInvalid(t *testing.T) {
	var s Status
	s.fail(ScriptFailed, ids.OpId{0x01}, operation.Opout{}, "")
	s.finalize()
	if s.Validity != Invalid {
		t.Fatalf("expected Invalid, got %s", s.Validity)
	}
}

func TestStatusWarningsDoNotAffectValidity(t *testing.T) {
	var s Status
	s.warn(UnsafeWitnessHeight, ids.OpId{0x01}, "below safe height")
	s.warn(NonFinalWitness, ids.OpId{0x01}, "not yet mined")
	s.finalize()
	if s.Validity != Valid {
		t.Fatalf("expected Valid with only warnings, got %s", s.Validity)
	}
	if len(s.Warnings) != 2 {
		t.Fatalf("expected 2 warnings recorded, got %d", len(s.Warnings))
	}
}
