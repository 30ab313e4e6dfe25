package workflow

import (
	"sort"
	"strings"

	"github.com/pzhin/agentweave/types"
)

// Layers converts the graph into an ordered sequence of
// parallel-execution groups using a layered variant of Kahn's
// algorithm: every node whose in-degree is currently zero lands in the
// same layer, so nodes within a layer have no dependency relation among
// themselves and are eligible to run concurrently. Layers are sorted by
// node ID so the result is independent of map iteration order.
//
// Dependency references to nodes that do not exist are ignored here;
// Validate reports them separately.
func Layers(g *Graph) ([][]string, error) {
	indegree := make(map[string]int, len(g.nodes))
	dependents := make(map[string][]string, len(g.nodes))

	for id := range g.nodes {
		indegree[id] = 0
	}
	for id, node := range g.nodes {
		for _, dep := range node.DependsOn {
			if _, ok := g.nodes[dep]; !ok {
				continue
			}
			indegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	var layers [][]string
	for len(indegree) > 0 {
		var layer []string
		for id, deg := range indegree {
			if deg == 0 {
				layer = append(layer, id)
			}
		}
		if len(layer) == 0 {
			return nil, types.Errorf(types.ErrCycleDetected,
				"cycle detected among nodes: %s", strings.Join(sortedKeys(indegree), ", "))
		}
		sort.Strings(layer)
		for _, id := range layer {
			delete(indegree, id)
			for _, dep := range dependents[id] {
				if _, ok := indegree[dep]; ok {
					indegree[dep]--
				}
			}
		}
		layers = append(layers, layer)
	}
	return layers, nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
