package builder

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querykit/internal/expr"
	"github.com/roach88/querykit/internal/query"
	"github.com/roach88/querykit/internal/sqlgen"
	"github.com/roach88/querykit/internal/testutil"
)

func newQuery(respond testutil.Responder, opts ...Option) (*Query, *testutil.RecordingBackend) {
	backend := testutil.NewRecordingBackend(respond)
	return New(backend, opts...), backend
}

// countOr answers count structures with n and everything else with rows.
func countOr(n int64, rows ...[]any) testutil.Responder {
	return func(s *query.Structure) ([][]any, error) {
		if strings.HasPrefix(s.String(), "select COUNT(true) from") {
			return [][]any{{n}}, nil
		}
		return rows, nil
	}
}

func TestWhere_AndChainsConjunction(t *testing.T) {
	q, backend := newQuery(nil)

	_, err := q.From("User").Where("age").Ge(18).And("name").Eq("Ann").All(context.Background())
	require.NoError(t, err)

	s := backend.Last()
	require.NotNil(t, s)
	assert.Equal(t, `select User from User where age >= 18 AND name = "Ann"`, s.String())

	want := expr.Operate(
		expr.Operate(expr.Col("age"), expr.GE, expr.Of(18)),
		expr.AND,
		expr.Operate(expr.Col("name"), expr.EQ, expr.Of("Ann")),
	)
	assert.Equal(t, want, s.Where())
}

func TestWhere_TemplatesAreImmutable(t *testing.T) {
	q, _ := newQuery(nil)
	adults := q.From("User").Where("age").Ge(18)

	ann := adults.And("name").Eq("Ann")
	bob := adults.And("name").Eq("Bob")

	assert.Equal(t, "select User from User where age >= 18", adults.Structure().String())
	assert.Equal(t, `select User from User where age >= 18 AND name = "Ann"`, ann.Structure().String())
	assert.Equal(t, `select User from User where age >= 18 AND name = "Bob"`, bob.Structure().String())
}

func TestWhere_ConcurrentContinuations(t *testing.T) {
	q, backend := newQuery(nil)
	adults := q.From("User").Where("age").Ge(18)

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := adults.And("id").Eq(i).All(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, s := range backend.Structures() {
		seen[s.String()] = true
	}
	assert.Len(t, seen, 16)
	assert.Equal(t, "select User from User where age >= 18", adults.Structure().String())
}

func TestWhereExpr_AcceptsComposedPredicates(t *testing.T) {
	q, _ := newQuery(nil)
	young := Get("age").Lt(18)
	old := Get("age").Gt(65)

	c := q.From("User").WhereExpr(Or(young, old)).AndExpr(Get("name").IsNotNull())

	assert.Equal(t, "select User from User where (age < 18 OR age > 65) AND name IS NOT NULL", c.Structure().String())
}

func TestPathOperator_Transforms(t *testing.T) {
	q, _ := newQuery(nil)

	tests := []struct {
		name string
		got  Collector
		want expr.Expression
	}{
		{
			name: "lower then like",
			got:  q.From("User").Where("name").Lower().Like("a%"),
			want: expr.Operate(expr.Operate(expr.Col("name"), expr.LOWER), expr.LIKE, expr.Of("a%")),
		},
		{
			name: "arithmetic then between",
			got:  q.From("User").Where("age").Add(1).Between(18, 30),
			want: expr.Operate(expr.Operate(expr.Col("age"), expr.ADD, expr.Of(1)), expr.BETWEEN, expr.Of(18), expr.Of(30)),
		},
		{
			name: "in list",
			got:  q.From("User").Where("id").In(1, 2, 3),
			want: expr.Operate(expr.Col("id"), expr.IN, expr.Of(1), expr.Of(2), expr.Of(3)),
		},
		{
			name: "relationship path",
			got:  q.From("User").Where("parent.username").IsNull(),
			want: expr.Operate(expr.Path("parent.username"), expr.IS_NULL),
		},
		{
			name: "operand argument",
			got:  q.From("User").Where("age").Gt(Get("parent.age")),
			want: expr.Operate(expr.Col("age"), expr.GT, expr.Path("parent.age")),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got.Structure().Where())
		})
	}
}

func TestSelect_ColumnQueryClauses(t *testing.T) {
	q, backend := newQuery(nil)

	_, err := q.From("User").
		Select(Get("department.name"), Max(Get("age"))).
		Where("age").Gt(10).
		GroupBy(Get("department.name")).
		Having(Max(Get("age")).Gt(30)).
		OrderBy(Asc(Get("department.name"))).
		All(context.Background())
	require.NoError(t, err)

	assert.Equal(t,
		"select [department.name, MAX(age)] from User where age > 10 group by department.name having MAX(age) > 30 orderBy department.name asc",
		backend.Last().String())
}

func TestSelectPaths_SingleColumn(t *testing.T) {
	q, _ := newQuery(nil)
	c := q.From("User").SelectPaths("username")

	assert.Equal(t, query.SingleColumn{Column: expr.Col("username")}, c.Structure().Select())
}

func TestSelectProjection_WithFetch(t *testing.T) {
	q, _ := newQuery(nil)
	c := q.From("User").SelectProjection("UserSummary").Fetch("department").OrderBy(Desc(Get("age")))

	assert.Equal(t, "select UserSummary fetch department from User orderBy age desc", c.Structure().String())
}

func TestCount(t *testing.T) {
	q, backend := newQuery(testutil.Rows([]any{int64(3)}))

	n, err := q.From("User").Where("age").Ge(18).OrderBy(Asc(Get("age"))).Count(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(3), n)
	assert.Equal(t, "select COUNT(true) from User where age >= 18", backend.Last().String())
}

func TestCount_GroupedUsesSubQuery(t *testing.T) {
	q, backend := newQuery(testutil.Rows([]any{int64(2)}))

	n, err := q.From("User").Select(Get("department")).GroupBy(Get("department")).Count(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), n)
	assert.Equal(t, "select COUNT(true) from (select true from User group by department)", backend.Last().String())
}

func TestCount_ValueTypes(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    int64
		wantErr bool
	}{
		{"int64", int64(4), 4, false},
		{"int", 4, 4, false},
		{"float64", float64(4), 4, false},
		{"uint64", uint64(4), 4, false},
		{"uint64 max int64", uint64(math.MaxInt64), math.MaxInt64, false},
		{"uint64 overflow", uint64(math.MaxInt64) + 1, 0, true},
		{"float64 fraction", 4.5, 0, true},
		{"float64 overflow", float64(1 << 63), 0, true},
		{"float64 NaN", math.NaN(), 0, true},
		{"bytes", []byte("4"), 4, false},
		{"string", "4", 4, false},
		{"garbage text", "four", 0, true},
		{"bool", true, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := newQuery(testutil.Rows([]any{tt.value}))
			n, err := q.From("User").Count(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestCount_RejectsMalformedResult(t *testing.T) {
	q, _ := newQuery(nil)

	_, err := q.From("User").Count(context.Background())
	require.Error(t, err)
	assert.True(t, sqlgen.IsStructureMismatch(err))
}

func TestList_WindowAndLock(t *testing.T) {
	q, backend := newQuery(testutil.Rows([]any{1, "ann"}))

	rows, err := q.From("User").Where("age").Ge(18).List(context.Background(), 10, 20, query.LockWrite)
	require.NoError(t, err)

	assert.Equal(t, []Row{{1, "ann"}}, rows)
	assert.Equal(t, "select User from User where age >= 18 offset 10 limit 20 lock(WRITE)", backend.Last().String())
}

func TestFirst(t *testing.T) {
	q, backend := newQuery(testutil.Rows([]any{1}, []any{2}))

	row, ok, err := q.From("User").First(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Row{1}, row)
	assert.Equal(t, 1, backend.Last().Limit())

	q, _ = newQuery(nil)
	_, ok, err = q.From("User").First(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFirstAt_WindowAndLock(t *testing.T) {
	q, backend := newQuery(testutil.Rows([]any{7}))

	row, ok, err := q.From("User").Where("age").Ge(18).FirstAt(context.Background(), 4, query.LockWrite)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Row{7}, row)
	assert.Equal(t, "select User from User where age >= 18 offset 4 limit 1 lock(WRITE)", backend.Last().String())
}

func TestSingleAt_WindowAndLock(t *testing.T) {
	q, backend := newQuery(testutil.Rows([]any{1}, []any{2}))

	_, ok, err := q.From("User").SingleAt(context.Background(), 2, query.LockRead)
	assert.ErrorIs(t, err, ErrTooManyResults)
	assert.False(t, ok)
	assert.Equal(t, "select User from User offset 2 limit 2 lock(READ)", backend.Last().String())

	q, _ = newQuery(testutil.Rows([]any{1}))
	row, ok, err := q.From("User").SingleAt(context.Background(), 2, query.LockRead)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Row{1}, row)
}

func TestSingle(t *testing.T) {
	tests := []struct {
		name        string
		rows        [][]any
		wantOK      bool
		wantErr     error
		wantRequire error
	}{
		{name: "none", rows: nil, wantOK: false, wantRequire: ErrNoResults},
		{name: "one", rows: [][]any{{1}}, wantOK: true},
		{name: "two", rows: [][]any{{1}, {2}}, wantErr: ErrTooManyResults, wantRequire: ErrTooManyResults},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, backend := newQuery(testutil.Rows(tt.rows...))
			users := q.From("User")

			_, ok, err := users.Single(context.Background())
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, 2, backend.Last().Limit())

			_, err = users.RequireSingle(context.Background())
			if tt.wantRequire == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantRequire)
			}
		})
	}
}

func TestExist(t *testing.T) {
	q, backend := newQuery(testutil.Rows([]any{true}))

	ok, err := q.From("User").Where("age").Ge(18).OrderBy(Desc(Get("age"))).Exist(context.Background(), 3)
	require.NoError(t, err)

	assert.True(t, ok)
	assert.Equal(t, "select true from User where age >= 18 offset 3 limit 1", backend.Last().String())

	q, _ = newQuery(nil)
	ok, err = q.From("User").Exist(context.Background(), 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSlice(t *testing.T) {
	q, backend := newQuery(countOr(5, []any{"kim"}, []any{"lee"}))

	page, err := q.From("User").OrderBy(Asc(Get("name"))).Slice(context.Background(), 3, 2)
	require.NoError(t, err)

	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, []Row{{"kim"}, {"lee"}}, page.Rows)
	assert.Equal(t, 3, page.Offset)
	assert.Equal(t, 2, page.Limit)

	calls := backend.Structures()
	require.Len(t, calls, 2)
	assert.Equal(t, "select COUNT(true) from User", calls[0].String())
	assert.Equal(t, "select User from User orderBy name asc offset 3 limit 2", calls[1].String())
}

func TestSlice_SkipsListPastTheEnd(t *testing.T) {
	q, backend := newQuery(countOr(2, []any{"unexpected"}))

	page, err := q.From("User").Slice(context.Background(), 5, 10)
	require.NoError(t, err)

	assert.Equal(t, int64(2), page.Total)
	assert.Empty(t, page.Rows)
	assert.Len(t, backend.Structures(), 1)
}

func TestPostProcessor_AppliesPerDerivation(t *testing.T) {
	var seen []string
	tenant := PostProcessorFunc(func(s *query.Structure) *query.Structure {
		seen = append(seen, s.Select().String())
		return s.WithWhere(expr.Operate(s.Where(), expr.AND, expr.Operate(expr.Col("tenant"), expr.EQ, expr.Of(7))))
	})
	q, backend := newQuery(countOr(1), WithPostProcessor(tenant))
	adults := q.From("User").Where("age").Ge(18)
	ctx := context.Background()

	_, err := adults.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, "select COUNT(true) from User where age >= 18 AND tenant = 7", backend.Last().String())

	_, err = adults.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, "select User from User where age >= 18 AND tenant = 7", backend.Last().String())

	_, err = adults.Exist(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "select true from User where age >= 18 AND tenant = 7 offset 0 limit 1", backend.Last().String())

	assert.Equal(t, []string{"COUNT(true)", "User", "true"}, seen)
}

func TestBuildMetadata_DoesNotExecute(t *testing.T) {
	var called bool
	q, backend := newQuery(nil, WithPostProcessor(PostProcessorFunc(func(s *query.Structure) *query.Structure {
		called = true
		return s
	})))

	meta := q.From("User").Where("age").Ge(18).BuildMetadata()
	slice := meta.Slice(0, 10)

	assert.Equal(t, "select COUNT(true) from User where age >= 18", slice.Count.String())
	assert.Equal(t, "select User from User where age >= 18 offset 0 limit 10", slice.List.String())
	assert.Equal(t, "select true from User where age >= 18 offset 2 limit 1", meta.Exist(2).String())
	assert.Empty(t, backend.Structures())
	assert.False(t, called)
}

func TestBackendErrorsPropagate(t *testing.T) {
	boom := errors.New("connection reset")
	q, _ := newQuery(func(*query.Structure) ([][]any, error) { return nil, boom })
	users := q.From("User")
	ctx := context.Background()

	_, err := users.All(ctx)
	assert.ErrorIs(t, err, boom)
	_, err = users.Count(ctx)
	assert.ErrorIs(t, err, boom)
	_, err = users.Exist(ctx, 0)
	assert.ErrorIs(t, err, boom)
	_, err = users.Slice(ctx, 0, 10)
	assert.ErrorIs(t, err, boom)
}

func TestCancelledContext(t *testing.T) {
	q, backend := newQuery(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.From("User").All(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, backend.Structures())
}

func TestResume(t *testing.T) {
	q, backend := newQuery(nil)
	s := query.New("User").WithWhere(expr.Operate(expr.Col("age"), expr.GE, expr.Of(21)))

	_, err := q.Resume(s).List(context.Background(), -1, 5, query.LockNone)
	require.NoError(t, err)
	assert.Equal(t, "select User from User where age >= 21 limit 5", backend.Last().String())
}

func TestPredicateCombinators(t *testing.T) {
	a := Get("a").Eq(1)
	b := Get("b").Eq(2)
	c := Get("c").Eq(3)

	assert.True(t, expr.IsTrue(And().Expression()))
	assert.Equal(t, a.Expression(), And(a).Expression())
	assert.Equal(t, And(a, b, c).Expression(), a.And(b).And(c).Expression())
	assert.Equal(t, Or(a, b).Expression(), Or(a, b).Not().Not().Expression())
	assert.Equal(t, "NOT(a = 1 OR b = 2)", Not(Or(a, b)).String())
	assert.Equal(t, fmt.Sprint(Count(Get("id"))), Get("id").Count().String())
}
