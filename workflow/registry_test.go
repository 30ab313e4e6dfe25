package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pzhin/agentweave/types"
)

func noopAgent(ctx context.Context, inputs types.Values, opts AgentOptions) (any, error) {
	return types.Values{"ok": true}, nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	t.Parallel()
	reg := NewRegistry(nil)

	require.NoError(t, reg.Register(&RegistryEntry{
		Type: "summarizer",
		Name: "Summarizer",
		Run:  noopAgent,
	}))

	entry, err := reg.Get("summarizer")
	require.NoError(t, err)
	assert.Equal(t, "Summarizer", entry.Name)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_RejectsDuplicate(t *testing.T) {
	t.Parallel()
	reg := NewRegistry(nil)
	require.NoError(t, reg.Register(&RegistryEntry{Type: "summarizer", Run: noopAgent}))

	err := reg.Register(&RegistryEntry{Type: "summarizer", Run: noopAgent})
	require.Error(t, err)
	assert.Equal(t, types.ErrDuplicateAgent, types.GetErrorCode(err))
}

func TestRegistry_RejectsIncompleteEntry(t *testing.T) {
	t.Parallel()
	reg := NewRegistry(nil)

	tests := []struct {
		name  string
		entry *RegistryEntry
	}{
		{"nil entry", nil},
		{"empty type", &RegistryEntry{Run: noopAgent}},
		{"no executable", &RegistryEntry{Type: "summarizer"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reg.Register(tt.entry)
			require.Error(t, err)
			assert.Equal(t, types.ErrValidation, types.GetErrorCode(err))
		})
	}
}

func TestRegistry_UnknownType(t *testing.T) {
	t.Parallel()
	reg := NewRegistry(nil)

	_, err := reg.Get("ghost")
	require.Error(t, err)
	assert.Equal(t, types.ErrUnknownAgentType, types.GetErrorCode(err))
}

func TestRegistry_ListSorted(t *testing.T) {
	t.Parallel()
	reg := NewRegistry(nil)
	for _, typ := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, reg.Register(&RegistryEntry{Type: typ, Run: noopAgent}))
	}

	list := reg.List()
	require.Len(t, list, 3)
	assert.Equal(t, "alpha", list[0].Type)
	assert.Equal(t, "mid", list[1].Type)
	assert.Equal(t, "zeta", list[2].Type)
}
