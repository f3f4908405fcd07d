package validator

import (
	"fmt"

	"github.com/ledgerseal/rgbcore/pkg/operation"
	"github.com/ledgerseal/rgbcore/pkg/schema"
	"github.com/ledgerseal/rgbcore/pkg/state"
)

// checkConformance enforces the arity and declared-type rules spec.md
// §4.6 assigns to the schema validator, ahead of VM execution: every
// input/output/metadata type an operation carries must be declared, and
// occurrence counts must satisfy the declared Arity.
func checkConformance(sch schema.Schema, transitionType schema.TransitionType, inputCounts map[schema.AssignmentType]int, common operation.Common) error {
	spec, ok := sch.Transitions[transitionType]
	if !ok {
		return fmt.Errorf("schema: transition type %d undeclared", transitionType)
	}

	for ty, arity := range spec.InputArity {
		if !arity.Check(inputCounts[ty]) {
			return fmt.Errorf("schema: input assignment type %d has %d entries, violates arity %s", ty, inputCounts[ty], arity)
		}
	}
	for ty, count := range inputCounts {
		if _, declared := spec.InputArity[ty]; !declared && count > 0 {
			return fmt.Errorf("schema: input assignment type %d is undeclared for transition type %d", ty, transitionType)
		}
	}

	for ty, arity := range spec.OutputArity {
		count := 0
		if ta, ok := common.OwnedState[ty]; ok {
			count = ta.Len()
		}
		if !arity.Check(count) {
			return fmt.Errorf("schema: output assignment type %d has %d entries, violates arity %s", ty, count, arity)
		}
	}
	for ty := range common.OwnedState {
		if _, declared := spec.OutputArity[ty]; !declared {
			return fmt.Errorf("schema: output assignment type %d is undeclared for transition type %d", ty, transitionType)
		}
	}

	declaredMeta := make(map[schema.MetaType]bool, len(spec.MetaTypes))
	for _, mt := range spec.MetaTypes {
		declaredMeta[mt] = true
	}
	for _, m := range common.Metadata {
		if !declaredMeta[m.Type] {
			return fmt.Errorf("schema: metadata type %d is undeclared for transition type %d", m.Type, transitionType)
		}
	}

	globalCounts := make(map[schema.GlobalStateType]int, len(common.GlobalState))
	for _, g := range common.GlobalState {
		spec, declared := sch.GlobalState[g.Type]
		if !declared {
			return fmt.Errorf("schema: global state type %d is undeclared", g.Type)
		}
		globalCounts[g.Type]++
		if spec.MaxItems > 0 && uint32(globalCounts[g.Type]) > spec.MaxItems {
			return fmt.Errorf("schema: global state type %d exceeds declared cap %d", g.Type, spec.MaxItems)
		}
		if err := validateRawFormat(spec.Format, g.Value); err != nil {
			return fmt.Errorf("schema: global state type %d: %w", g.Type, err)
		}
	}

	for ty, ta := range common.OwnedState {
		assignSpec, declared := sch.Assignments[ty]
		if !declared {
			return fmt.Errorf("schema: assignment type %d is undeclared", ty)
		}
		if assignSpec.StateKind != ta.Kind {
			return fmt.Errorf("schema: assignment type %d declares state kind %s, operation carries %s", ty, assignSpec.StateKind, ta.Kind)
		}
		for _, a := range ta.Assignments {
			if a.RevealedState == nil {
				continue
			}
			if err := validateStateFormat(assignSpec.Format, *a.RevealedState); err != nil {
				return fmt.Errorf("schema: assignment type %d: %w", ty, err)
			}
		}
	}
	for _, m := range common.Metadata {
		f, declared := sch.Meta[m.Type]
		if !declared {
			continue // already reported above
		}
		if err := validateRawFormat(f, m.Value); err != nil {
			return fmt.Errorf("schema: metadata type %d: %w", m.Type, err)
		}
	}

	return nil
}

// validateStateFormat checks the declared format facet that applies to
// r's kind, covering every FormatKind spec.md §4.6 assigns to the schema
// validator: integer range, enum membership, length caps, and the fixed
// byte width of digest/point/signature-shaped payloads. Cross-field
// invariants beyond what §4.6 tabulates are left to the schema's own VM
// script, not this generic pass.
func validateStateFormat(f schema.DataFormat, r state.Revealed) error {
	switch r.Kind {
	case state.KindFungible:
		if f.Kind == schema.FormatInt {
			return f.ValidateInt(r.Fungible.Value)
		}
	case state.KindStructured:
		switch f.Kind {
		case schema.FormatBytes:
			return f.ValidateLen(len(r.Structured.Bytes))
		case schema.FormatEnum:
			v, err := bytesToUint64(r.Structured.Bytes)
			if err != nil {
				return err
			}
			return f.ValidateEnum(v)
		case schema.FormatDigest, schema.FormatPoint, schema.FormatSignature:
			return validateFixedLen(f, len(r.Structured.Bytes))
		}
	case state.KindAttachment:
		switch f.Kind {
		case schema.FormatString:
			return f.ValidateLen(len(r.Attachment.Mime))
		case schema.FormatDigest:
			return validateFixedLen(f, len(r.Attachment.ID))
		}
	}
	return nil
}

// validateRawFormat checks an undecoded strict-encoding byte value (a
// metadata or global-state entry, spec.md §4.6) against f, dispatching on
// FormatKind the same way validateStateFormat does for already-typed
// revealed state.
func validateRawFormat(f schema.DataFormat, data []byte) error {
	switch f.Kind {
	case schema.FormatInt:
		v, err := bytesToUint64(data)
		if err != nil {
			return err
		}
		return f.ValidateInt(v)
	case schema.FormatEnum:
		v, err := bytesToUint64(data)
		if err != nil {
			return err
		}
		return f.ValidateEnum(v)
	case schema.FormatBytes, schema.FormatString:
		return f.ValidateLen(len(data))
	case schema.FormatDigest, schema.FormatPoint, schema.FormatSignature:
		return validateFixedLen(f, len(data))
	}
	return nil
}

// bytesToUint64 big-endian-decodes data into a uint64, rejecting inputs
// wider than the integer it would overflow.
func bytesToUint64(data []byte) (uint64, error) {
	if len(data) > 8 {
		return 0, fmt.Errorf("schema: value of %d bytes exceeds 8-byte integer width", len(data))
	}
	var v uint64
	for _, b := range data {
		v = v<<8 | uint64(b)
	}
	return v, nil
}

// validateFixedLen checks n against f's FixedLen, where 0 means
// unconstrained (schema.DataFormat.FixedLen's documented convention).
func validateFixedLen(f schema.DataFormat, n int) error {
	if f.FixedLen != 0 && uint32(n) != f.FixedLen {
		return fmt.Errorf("schema: length %d does not match fixed length %d", n, f.FixedLen)
	}
	return nil
}
