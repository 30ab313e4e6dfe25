package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValues_TypedGetters(t *testing.T) {
	t.Parallel()
	v := Values{"s": "text", "n": 3, "f": 2.5, "b": true}

	assert.Equal(t, "text", v.GetString("s"))
	assert.Equal(t, "", v.GetString("n"))

	f, ok := v.GetFloat("n")
	assert.True(t, ok)
	assert.Equal(t, 3.0, f)
	f, ok = v.GetFloat("f")
	assert.True(t, ok)
	assert.Equal(t, 2.5, f)
	_, ok = v.GetFloat("s")
	assert.False(t, ok)

	assert.True(t, v.GetBool("b"))
	assert.False(t, v.GetBool("missing"))
}

func TestValues_CloneIsIndependent(t *testing.T) {
	t.Parallel()
	v := Values{"a": 1}
	c := v.Clone()
	c["a"] = 2
	c["b"] = 3

	assert.Equal(t, 1, v["a"])
	_, ok := v.Get("b")
	assert.False(t, ok)

	assert.Nil(t, Values(nil).Clone())
}

func TestValues_MergeOverwrites(t *testing.T) {
	t.Parallel()
	v := Values{"a": 1, "b": 1}
	v.Merge(Values{"b": 2, "c": 3})

	assert.Equal(t, Values{"a": 1, "b": 2, "c": 3}, v)
}
