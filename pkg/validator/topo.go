package validator

import (
	"sort"

	"github.com/ledgerseal/rgbcore/pkg/ids"
	"github.com/ledgerseal/rgbcore/pkg/operation"
)

// topoSort orders transitions so that every transition consuming another
// transition's output is processed after it, breaking ties by ascending
// OpId when the DAG itself imposes no order (spec.md §4.9.4, §5). It
// returns ok=false with the first opid it could not place once every
// other node has been scheduled — a cycle, since a well-formed DAG always
// has at least one zero-indegree node among whatever remains.
func topoSort(c Consignment) (order []ids.OpId, cyclic ids.OpId, ok bool) {
	contractId := c.Genesis.ContractId()

	indegree := map[ids.OpId]int{}
	dependents := map[ids.OpId][]ids.OpId{}
	for id := range c.Transitions {
		indegree[id] = 0
	}
	for id, t := range c.Transitions {
		for in := range t.Inputs {
			if in.Op == contractId {
				continue // genesis is always already applied
			}
			if _, isTransition := c.Transitions[in.Op]; !isTransition {
				continue // dangling input; reported separately as OperationAbsent
			}
			indegree[id]++
			dependents[in.Op] = append(dependents[in.Op], id)
		}
	}

	var frontier []ids.OpId
	for id, deg := range indegree {
		if deg == 0 {
			frontier = append(frontier, id)
		}
	}

	for len(frontier) > 0 {
		sort.Slice(frontier, func(i, j int) bool { return frontier[i].Less(frontier[j]) })
		next := frontier[0]
		frontier = frontier[1:]
		order = append(order, next)

		for _, dep := range dependents[next] {
			indegree[dep]--
			if indegree[dep] == 0 {
				frontier = append(frontier, dep)
			}
		}
	}

	if len(order) != len(c.Transitions) {
		var smallest ids.OpId
		first := true
		for id, deg := range indegree {
			if deg <= 0 {
				continue
			}
			if first || id.Less(smallest) {
				smallest = id
				first = false
			}
		}
		return nil, smallest, false
	}
	return order, ids.OpId{}, true
}

// sortedOpouts returns inputs' keys in ascending Opout order.
func sortedOpouts(inputs map[operation.Opout]struct{}) []operation.Opout {
	out := make([]operation.Opout, 0, len(inputs))
	for o := range inputs {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
