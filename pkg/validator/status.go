package validator

import (
	"fmt"

	"github.com/ledgerseal/rgbcore/pkg/ids"
	"github.com/ledgerseal/rgbcore/pkg/operation"
)

// Validity is the final verdict of a validation run (spec.md §4.9, §7).
type Validity uint8

const (
	Valid Validity = iota
	Invalid
	UnresolvedTransactions
)

func (v Validity) String() string {
	switch v {
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	case UnresolvedTransactions:
		return "unresolved-transactions"
	default:
		return fmt.Sprintf("Validity(%d)", uint8(v))
	}
}

// FailureKind enumerates the validator's failure taxonomy (spec.md §4.9,
// explicitly a partial list there; ScriptFailed/SealsUnvalidated are this
// repo's concrete fill-ins for what the prose describes but does not name
// precisely).
type FailureKind uint8

const (
	ContractChainNetMismatch FailureKind = iota
	ResolverChainNetMismatch
	SchemaMismatch
	ContractMismatch
	OperationAbsent
	CyclicGraph
	DoubleSpend
	NoPrevState
	NoPrevOut
	ConfidentialSeal
	AnchorAbsent
	MpcInvalid
	SealsInvalid
	SealNoPubWitness
	WitnessUnresolved
	SealsUnvalidated
	ScriptFailed
)

func (k FailureKind) String() string {
	names := [...]string{
		"ContractChainNetMismatch", "ResolverChainNetMismatch", "SchemaMismatch",
		"ContractMismatch", "OperationAbsent", "CyclicGraph", "DoubleSpend",
		"NoPrevState", "NoPrevOut", "ConfidentialSeal", "AnchorAbsent",
		"MpcInvalid", "SealsInvalid", "SealNoPubWitness", "WitnessUnresolved",
		"SealsUnvalidated", "ScriptFailed",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return fmt.Sprintf("FailureKind(%d)", uint8(k))
}

// Failure is one accumulated validation defect, anchored to the operation
// (and, where relevant, the specific Opout) that triggered it.
type Failure struct {
	Kind   FailureKind
	Op     ids.OpId
	Opout  operation.Opout
	Detail string
}

func (f Failure) String() string {
	if f.Detail != "" {
		return fmt.Sprintf("%s(op=%s): %s", f.Kind, f.Op, f.Detail)
	}
	return fmt.Sprintf("%s(op=%s)", f.Kind, f.Op)
}

// WarningKind enumerates non-fatal observations recorded alongside a
// validation (spec.md §4.9.4b: unsafe witness height never downgrades
// validity).
type WarningKind uint8

const (
	UnsafeWitnessHeight WarningKind = iota
	NonFinalWitness
)

func (k WarningKind) String() string {
	switch k {
	case UnsafeWitnessHeight:
		return "UnsafeWitnessHeight"
	case NonFinalWitness:
		return "NonFinalWitness"
	default:
		return fmt.Sprintf("WarningKind(%d)", uint8(k))
	}
}

// Warning is a non-fatal observation that never changes Status.Validity
// away from Valid (spec.md §7).
type Warning struct {
	Kind   WarningKind
	Op     ids.OpId
	Detail string
}

// Status is the accumulated outcome of one Validate call. Failures and
// Warnings are appended in a deterministic order (ascending OpId, then
// discovery order within an operation) so two validations of the same
// consignment produce byte-identical reports (spec.md §5).
type Status struct {
	Validity Validity
	Failures []Failure
	Warnings []Warning
	// Partial is set when validation was cancelled mid-run; Validity then
	// reflects only the work completed so far (spec.md §5).
	Partial bool
}

func (s *Status) fail(kind FailureKind, op ids.OpId, opout operation.Opout, detail string) {
	s.Failures = append(s.Failures, Failure{Kind: kind, Op: op, Opout: opout, Detail: detail})
}

func (s *Status) warn(kind WarningKind, op ids.OpId, detail string) {
	s.Warnings = append(s.Warnings, Warning{Kind: kind, Op: op, Detail: detail})
}

// finalize derives Validity from the accumulated failures: any failure
// whose kind is witness-resolution-specific, and no other failures,
// downgrades to UnresolvedTransactions rather than Invalid (spec.md §7,
// §8 scenario 6). Any other failure makes the whole status Invalid.
func (s *Status) finalize() {
	if len(s.Failures) == 0 {
		s.Validity = Valid
		return
	}
	allUnresolved := true
	for _, f := range s.Failures {
		if f.Kind != WitnessUnresolved && f.Kind != SealNoPubWitness {
			allUnresolved = false
			break
		}
	}
	if allUnresolved {
		s.Validity = UnresolvedTransactions
		return
	}
	s.Validity = Invalid
}
