package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperatorPrecedenceOrdering(t *testing.T) {
	// NOT binds tighter than comparison, comparison tighter than AND, AND tighter than OR.
	assert.Less(t, NOT.Precedence(), EQ.Precedence())
	assert.Less(t, EQ.Precedence(), AND.Precedence())
	assert.Less(t, AND.Precedence(), OR.Precedence())
	assert.Less(t, MULTIPLY.Precedence(), ADD.Precedence())
	assert.Less(t, ADD.Precedence(), EQ.Precedence())
	assert.Equal(t, 0, COUNT.Precedence())
}

func TestOperatorFlags(t *testing.T) {
	for _, op := range []Operator{AND, OR, ADD, MULTIPLY} {
		assert.True(t, op.Multivalued(), "%s should be multivalued", op)
	}
	for _, op := range []Operator{SUBTRACT, DIVIDE, EQ, NOT, IN} {
		assert.False(t, op.Multivalued(), "%s should not be multivalued", op)
	}
	for _, op := range []Operator{COUNT, SUM, AVG, MIN, MAX} {
		assert.True(t, op.Aggregate(), "%s should be an aggregate", op)
	}
	assert.False(t, LOWER.Aggregate())
}

func TestOperatorCatalogIsComplete(t *testing.T) {
	for op := NOT; op <= SUM; op++ {
		require.True(t, op.Valid(), "operator %d missing from catalog", int(op))
		assert.NotEmpty(t, op.Sign())
		assert.NotZero(t, op.Family())

		parsed, err := ParseOperator(op.Name())
		require.NoError(t, err)
		assert.Equal(t, op, parsed)
	}
	assert.False(t, Operator(0).Valid())
	assert.Equal(t, "Operator(999)", Operator(999).String())
}

func TestParseOperator(t *testing.T) {
	op, err := ParseOperator(" IS_NULL ")
	require.NoError(t, err)
	assert.Equal(t, IS_NULL, op)

	_, err = ParseOperator("xor")
	assert.Error(t, err)
}
