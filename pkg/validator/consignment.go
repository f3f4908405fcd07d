package validator

import (
	"github.com/ledgerseal/rgbcore/pkg/anchor"
	"github.com/ledgerseal/rgbcore/pkg/ids"
	"github.com/ledgerseal/rgbcore/pkg/operation"
	"github.com/ledgerseal/rgbcore/pkg/schema"
)

// Consignment is everything a single Validate call processes: one
// contract's genesis and the transitions extending it, each transition's
// anchor, and the schema they all claim conformance to (spec.md §2 "a
// consignment (set of operations + anchors)").
type Consignment struct {
	Schema      schema.Schema
	Genesis     operation.Genesis
	Transitions map[ids.OpId]operation.Transition
	Anchors     map[ids.OpId]anchor.Anchor
}

// sortedTransitionIds returns the consignment's transition ids in
// ascending order, the tie-break the validator uses whenever the DAG
// itself imposes no order (spec.md §5).
func (c Consignment) sortedTransitionIds() []ids.OpId {
	out := make([]ids.OpId, 0, len(c.Transitions))
	for id := range c.Transitions {
		out = append(out, id)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Less(out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
