package workflow

import (
	"errors"

	"github.com/pzhin/agentweave/types"
)

// Validate checks the two structural invariants of a workflow graph:
// every ID referenced in DependsOn or in an input binding must exist,
// and the dependency relation must be acyclic. All problems are
// collected and returned together as a *types.ValidationError so a
// caller can fix a definition in one pass. On success the graph is
// marked validated and must not be structurally modified afterwards.
func (g *Graph) Validate() error {
	verr := &types.ValidationError{}

	if len(g.nodes) == 0 {
		verr.Add(types.NewError(types.ErrValidation, "workflow has no nodes"))
	}

	for _, id := range g.NodeIDs() {
		node := g.nodes[id]
		if node.Type == "" {
			verr.Add(types.Errorf(types.ErrValidation, "node %q has no agent type", id).WithNode(id))
		}
		for _, dep := range node.DependsOn {
			if _, ok := g.nodes[dep]; !ok {
				verr.Add(types.Errorf(types.ErrMissingDependency,
					"node %q depends on unknown node %q", id, dep).WithNode(id))
			}
		}
		for input, binding := range node.Bindings {
			if _, ok := g.nodes[binding.Source]; !ok {
				verr.Add(types.Errorf(types.ErrMissingDependency,
					"node %q binds input %q from unknown node %q", id, input, binding.Source).WithNode(id))
			}
		}
	}

	if _, err := Layers(g); err != nil {
		var terr *types.Error
		if errors.As(err, &terr) {
			verr.Add(terr)
		} else {
			verr.Add(types.NewError(types.ErrCycleDetected, err.Error()))
		}
	}

	if verr.HasErrors() {
		return verr
	}
	g.validated = true
	return nil
}
