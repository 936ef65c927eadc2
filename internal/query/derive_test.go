package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querykit/internal/expr"
)

func TestList(t *testing.T) {
	base := adults().WithOrderBy(Order{Expr: expr.Col("age")})
	list := base.List(5, 10, LockRead)

	assert.Equal(t, 5, list.Offset())
	assert.Equal(t, 10, list.Limit())
	assert.Equal(t, LockRead, list.Lock())
	assert.Equal(t, base.Where(), list.Where())
	assert.Equal(t, base.OrderBy(), list.OrderBy())

	assert.Equal(t, -1, base.Offset(), "List must not modify its receiver")
}

func TestExist(t *testing.T) {
	base := adults().
		WithFetch(expr.Col("parent")).
		WithOrderBy(Order{Expr: expr.Col("age"), Sort: Desc})
	exist := base.Exist(3)

	assert.Equal(t, SelectAny, exist.Select())
	assert.Equal(t, 3, exist.Offset())
	assert.Equal(t, 1, exist.Limit())
	assert.Empty(t, exist.Fetch())
	assert.Empty(t, exist.OrderBy())
	assert.Equal(t, base.Where(), exist.Where())

	assert.Len(t, base.Fetch(), 1)
	assert.Len(t, base.OrderBy(), 1)
}

func TestCount_PlainRows(t *testing.T) {
	base := adults().
		WithFetch(expr.Col("parent")).
		WithOrderBy(Order{Expr: expr.Col("age")}).
		WithLock(LockWrite)
	count := base.Count()

	assert.Equal(t, CountAny, count.Select())
	assert.Equal(t, FromEntity{Entity: "User"}, count.From())
	assert.Equal(t, base.Where(), count.Where())
	assert.Empty(t, count.Fetch())
	assert.Empty(t, count.OrderBy())
	assert.Equal(t, LockNone, count.Lock())
}

func TestCount_GroupedCountsGroups(t *testing.T) {
	base := New("User").
		WithSelect(SingleColumn{Column: expr.Col("did")}).
		WithFetch(expr.Col("parent")).
		WithGroupBy(expr.Col("did")).
		WithOrderBy(Order{Expr: expr.Col("did")})
	count := base.Count()

	assert.Equal(t, CountAny, count.Select())
	sub, ok := count.From().(FromSubQuery)
	require.True(t, ok)
	assert.Equal(t, SelectAny, sub.Query.Select())
	assert.Equal(t, []expr.Expression{expr.Col("did")}, sub.Query.GroupBy())
	assert.Empty(t, sub.Query.Fetch())
	assert.Empty(t, sub.Query.OrderBy())
}

func TestCount_AggregateKeepsIntactSubQuery(t *testing.T) {
	maxAge := expr.Operate(expr.Col("age"), expr.MAX)
	sel := MultiColumn{Columns: []expr.Expression{expr.Col("did"), maxAge}}
	base := New("User").
		WithSelect(sel).
		WithGroupBy(expr.Col("did")).
		WithOrderBy(Order{Expr: maxAge, Sort: Desc}).
		WithLock(LockRead)
	count := base.Count()

	assert.Equal(t, CountAny, count.Select())
	sub, ok := count.From().(FromSubQuery)
	require.True(t, ok)
	assert.Equal(t, sel, sub.Query.Select(), "the aggregate selection survives inside the sub-query")
	assert.Empty(t, sub.Query.OrderBy())
	assert.Equal(t, LockNone, sub.Query.Lock())
}

func TestCount_AggregateInHavingAloneForcesSubQuery(t *testing.T) {
	having := expr.Operate(expr.Operate(expr.Col("age"), expr.COUNT), expr.GT, expr.Of(1))
	base := New("User").WithHaving(having)

	require.True(t, RequiresCountSubQuery(base))

	count := base.Count()
	sub, ok := count.From().(FromSubQuery)
	require.True(t, ok)
	assert.Equal(t, EntitySelection{ResultType: "User"}, sub.Query.Select())
	assert.Equal(t, having, sub.Query.Having())
}

func TestRequiresCountSubQuery(t *testing.T) {
	testCases := []struct {
		name string
		s    *Structure
		want bool
	}{
		{"entity selection", New("User"), false},
		{"plain column", New("User").WithSelect(SingleColumn{Column: expr.Col("age")}), false},
		{"aggregate column", New("User").WithSelect(SingleColumn{Column: expr.Operate(expr.Col("age"), expr.SUM)}), true},
		{"nested aggregate", New("User").WithSelect(MultiColumn{Columns: []expr.Expression{
			expr.Col("did"),
			expr.Operate(expr.Operate(expr.Col("age"), expr.AVG), expr.ADD, expr.Of(1)),
		}}), true},
		{"aggregate only in where", New("User").WithWhere(expr.Operate(expr.Operate(expr.Col("age"), expr.MAX), expr.GT, expr.Of(1))), false},
		{"group by without aggregate", New("User").WithGroupBy(expr.Col("did")), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, RequiresCountSubQuery(tc.s))
		})
	}
}

func TestSlice(t *testing.T) {
	base := adults().WithLock(LockWrite)
	slice := base.Slice(20, 10)

	assert.Equal(t, base.Count(), slice.Count)
	assert.Equal(t, 20, slice.List.Offset())
	assert.Equal(t, 10, slice.List.Limit())
	assert.Equal(t, LockNone, slice.List.Lock())
}
