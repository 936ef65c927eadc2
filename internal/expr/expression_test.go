package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func comparisons() (Expression, Expression, Expression) {
	a := Operate(Col("age"), GE, Of(18))
	b := Operate(Col("name"), EQ, Of("Ann"))
	c := Operate(Path("parent.username"), LIKE, Of("J%"))
	return a, b, c
}

func TestOperate_FlatteningIsAssociative(t *testing.T) {
	p1, p2, p3 := comparisons()

	nestedRight := Operate(p1, AND, Operate(p2, AND, p3))
	nestedLeft := Operate(Operate(p1, AND, p2), AND, p3)
	flat := Operate(p1, AND, p2, p3)

	assert.Equal(t, flat, nestedRight)
	assert.Equal(t, flat, nestedLeft)

	op, ok := flat.(Operation)
	require.True(t, ok)
	assert.Equal(t, AND, op.Operator)
	assert.Equal(t, p1, op.Operand)
	assert.Len(t, op.Args, 2)
}

func TestOperate_DoesNotFlattenDifferentOperators(t *testing.T) {
	a, b, c := comparisons()

	expr := Operate(Operate(a, AND, b), OR, c)
	op, ok := expr.(Operation)
	require.True(t, ok)
	assert.Equal(t, OR, op.Operator)

	inner, ok := op.Operand.(Operation)
	require.True(t, ok)
	assert.Equal(t, AND, inner.Operator)
}

func TestOperate_DoesNotFlattenNonAssociativeOperators(t *testing.T) {
	left := Operate(Col("a"), SUBTRACT, Col("b"))
	expr := Operate(Col("x"), SUBTRACT, left)

	op, ok := expr.(Operation)
	require.True(t, ok)
	require.Len(t, op.Args, 1)
	assert.Equal(t, left, op.Args[0])
}

func TestOperate_DoubleNegationCollapses(t *testing.T) {
	a, b, _ := comparisons()
	p := Operate(a, OR, b)

	assert.Equal(t, p, Operate(Operate(p, NOT), NOT))

	single := Operate(p, NOT)
	op, ok := single.(Operation)
	require.True(t, ok)
	assert.Equal(t, NOT, op.Operator)
}

func TestConcat(t *testing.T) {
	base := Col("parent")
	joined := Concat(base, "username")

	assert.Equal(t, []string{"parent", "username"}, joined.Path)
	assert.Equal(t, []string{"parent"}, base.Path, "Concat must not modify its input")
	assert.Equal(t, "parent.username", joined.Key())

	parent, ok := joined.Parent()
	require.True(t, ok)
	assert.Equal(t, base, parent)

	_, ok = base.Parent()
	assert.False(t, ok)
}

func TestPath(t *testing.T) {
	assert.Equal(t, Col("a", "b", "c"), Path("a.b.c"))
	assert.Equal(t, Col("age"), Path("age"))
}

func TestIsTrue(t *testing.T) {
	assert.True(t, IsTrue(True))
	assert.True(t, IsTrue(Of(true)))
	assert.False(t, IsTrue(Of(false)))
	assert.False(t, IsTrue(Of(1)))
	assert.False(t, IsTrue(Col("active")))
}

func TestOf(t *testing.T) {
	col := Col("age")
	assert.Equal(t, col, Of(col))
	assert.Equal(t, Constant{Value: 42}, Of(42))
}

func TestContainsAggregate(t *testing.T) {
	testCases := []struct {
		name string
		expr Expression
		want bool
	}{
		{"column", Col("age"), false},
		{"constant", Of(1), false},
		{"plain comparison", Operate(Col("age"), GT, Of(1)), false},
		{"aggregate", Operate(Col("age"), MAX), true},
		{"nested in operand", Operate(Operate(Col("age"), SUM), GT, Of(10)), true},
		{"nested in args", Operate(Of(10), LT, Operate(Col("age"), AVG)), true},
		{"function without aggregate", Operate(Col("name"), LOWER), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ContainsAggregate(tc.expr))
		})
	}
}

func TestExpressionString(t *testing.T) {
	a, b, c := comparisons()

	testCases := []struct {
		name string
		expr Expression
		want string
	}{
		{"column", Path("parent.username"), "parent.username"},
		{"string constant", Of("Ann"), `"Ann"`},
		{"comparison", a, "age >= 18"},
		{"and chain", Operate(a, AND, b), `age >= 18 AND name = "Ann"`},
		{"or under and", Operate(Operate(a, OR, b), AND, c), `(age >= 18 OR name = "Ann") AND parent.username LIKE "J%"`},
		{"not", Operate(a, NOT), "NOT(age >= 18)"},
		{"aggregate", Operate(Col("age"), COUNT), "COUNT(age)"},
		{"function with args", Operate(Col("name"), SUBSTRING, Of(1), Of(3)), "SUBSTRING(name, 1, 3)"},
		{"in list", Operate(Col("age"), IN, Of(1), Of(2)), "age IN(1, 2)"},
		{"postfix", Operate(Col("pid"), IS_NULL), "pid IS NULL"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.expr.String())
		})
	}
}
