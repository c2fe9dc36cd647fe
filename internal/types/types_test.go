package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZeroValueIsUnresolved(t *testing.T) {
	var t0 Type
	assert.Equal(t, Unresolved, t0.Kind)
	assert.False(t, t0.Resolved())
	assert.True(t, IntType.Resolved())
}

func TestEqualityIsKindBasedOnly(t *testing.T) {
	a := NewDecimal(2, 3)
	b := NewDecimal(9, 9)
	assert.True(t, a.Equal(b), "decimals of different precision must compare equal")
	assert.False(t, a.Equal(IntType))
}

func TestStringRendering(t *testing.T) {
	cases := []struct {
		t    Type
		want string
	}{
		{IntType, "int"},
		{NewDecimal(2, 3), "decimal[2.3]"},
		{NewText(10), "texto[10]"},
		{BoolType, "bool"},
		{Type{}, "unresolved"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.t.String())
	}
}

func TestSize(t *testing.T) {
	assert.Equal(t, 4, IntType.Size())
	assert.Equal(t, 8, NewDecimal(1, 1).Size())
	assert.Equal(t, 12, NewText(12).Size())
	assert.Equal(t, 1, BoolType.Size())
}
