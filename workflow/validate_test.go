package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pzhin/agentweave/types"
)

func codes(t *testing.T, err error) []types.ErrorCode {
	t.Helper()
	verr, ok := err.(*types.ValidationError)
	require.True(t, ok, "expected *types.ValidationError, got %T", err)
	out := make([]types.ErrorCode, 0, len(verr.Errors))
	for _, e := range verr.Errors {
		out = append(out, e.Code)
	}
	return out
}

func TestValidate_EmptyGraph(t *testing.T) {
	t.Parallel()
	g := rawGraph(nil)

	err := g.Validate()
	require.Error(t, err)
	assert.Contains(t, codes(t, err), types.ErrValidation)
	assert.False(t, g.Validated())
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	t.Parallel()
	// One missing dependency and one cycle, reported together in a
	// single pass.
	g := rawGraph(map[string][]string{
		"A": {"ghost"},
		"B": {"C"},
		"C": {"B"},
	})

	err := g.Validate()
	require.Error(t, err)

	got := codes(t, err)
	assert.Contains(t, got, types.ErrMissingDependency)
	assert.Contains(t, got, types.ErrCycleDetected)
	assert.Len(t, got, 2)
}

func TestValidate_MissingBindingSource(t *testing.T) {
	t.Parallel()
	g := rawGraph(map[string][]string{"A": nil})
	g.nodes["A"].Bindings = map[string]Binding{
		"text": {Source: "ghost", Key: "body"},
	}

	err := g.Validate()
	require.Error(t, err)
	assert.Contains(t, codes(t, err), types.ErrMissingDependency)
}

func TestValidate_MissingAgentType(t *testing.T) {
	t.Parallel()
	g := rawGraph(map[string][]string{"A": nil})
	g.nodes["A"].Type = ""

	err := g.Validate()
	require.Error(t, err)
	assert.Contains(t, codes(t, err), types.ErrValidation)
}

func TestValidate_MarksGraphValidated(t *testing.T) {
	t.Parallel()
	g := rawGraph(map[string][]string{"A": nil, "B": {"A"}})

	require.NoError(t, g.Validate())
	assert.True(t, g.Validated())
}

func TestValidate_IsValidationHelper(t *testing.T) {
	t.Parallel()
	g := rawGraph(map[string][]string{"A": {"A"}})

	err := g.Validate()
	require.Error(t, err)
	assert.True(t, types.IsValidation(err))
}
