package canon_test

import (
	"testing"

	"github.com/oldnordic/odincode/pkg/canon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize_SortsKeys(t *testing.T) {
	a := canon.Args{"b": "2", "a": "1", "c": "3"}
	got := canon.Canonicalize(a)
	assert.Equal(t, `{"a":"1","b":"2","c":"3"}`, got)
}

func TestCanonicalize_Empty(t *testing.T) {
	assert.Equal(t, "{}", canon.Canonicalize(nil))
	assert.Equal(t, "{}", canon.Canonicalize(canon.Args{}))
}

func TestCanonicalize_NoInsignificantWhitespace(t *testing.T) {
	got := canon.Canonicalize(canon.Args{"path": "a b.txt"})
	require.NotContains(t, got, "  ")
	assert.Equal(t, `{"path":"a b.txt"}`, got)
}

func TestCanonicalize_Idempotent(t *testing.T) {
	a := canon.Args{"z": "1", "a": "2"}
	first := canon.Canonicalize(a)

	// Round-trip through a map built from the same pairs in different order.
	b := canon.Args{"a": "2", "z": "1"}
	second := canon.Canonicalize(b)

	assert.Equal(t, first, second)
}

func TestEqual(t *testing.T) {
	a := canon.Args{"x": "1", "y": "2"}
	b := canon.Args{"y": "2", "x": "1"}
	c := canon.Args{"x": "1", "y": "3"}

	assert.True(t, canon.Equal(a, b))
	assert.False(t, canon.Equal(a, c))
}

func TestSortedKeys(t *testing.T) {
	a := canon.Args{"b": "", "a": "", "c": ""}
	assert.Equal(t, []string{"a", "b", "c"}, canon.SortedKeys(a))
}
