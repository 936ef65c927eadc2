package builder

import (
	"context"

	"github.com/roach88/querykit/internal/expr"
	"github.com/roach88/querykit/internal/query"
)

// Collector runs the accumulated query. Every call derives a fresh
// structure; the collector itself never changes.
type Collector interface {
	// Count returns the number of rows (or groups) the query matches,
	// ignoring offset and limit.
	Count(ctx context.Context) (int64, error)

	// List returns rows in the window [offset, offset+limit). Pass -1 for
	// either bound to leave it open.
	List(ctx context.Context, offset, limit int, lock query.LockType) ([]Row, error)

	// All is List with no window and no lock.
	All(ctx context.Context) ([]Row, error)

	// First returns the first row, if any.
	First(ctx context.Context) (Row, bool, error)

	// FirstAt is First starting at offset (-1 for none) under lock.
	FirstAt(ctx context.Context, offset int, lock query.LockType) (Row, bool, error)

	// Single returns the only row, if any. More than one match is
	// ErrTooManyResults.
	Single(ctx context.Context) (Row, bool, error)

	// SingleAt is Single starting at offset (-1 for none) under lock.
	SingleAt(ctx context.Context, offset int, lock query.LockType) (Row, bool, error)

	// RequireSingle is Single where no match is ErrNoResults.
	RequireSingle(ctx context.Context) (Row, error)

	// Exist reports whether a row exists at position offset.
	Exist(ctx context.Context, offset int) (bool, error)

	// Slice returns one page of rows together with the total count.
	Slice(ctx context.Context, offset, limit int) (Slice, error)

	// BuildMetadata exposes the derived structures without running them.
	BuildMetadata() StructureBuilder

	// Structure returns the structure accumulated so far.
	Structure() *query.Structure
}

// OrderBy sets the ordering.
type OrderBy interface {
	Collector
	OrderBy(orders ...query.Order) Collector
}

// Having filters groups.
type Having interface {
	OrderBy
	Having(p ExpressionHolder) OrderBy
}

// GroupBy groups the selected columns.
type GroupBy interface {
	OrderBy
	GroupBy(exprs ...ExpressionHolder) Having
}

// AndBuilder extends the where clause of an entity query.
type AndBuilder interface {
	OrderBy
	And(path string) PathOperator[AndBuilder]
	AndExpr(p ExpressionHolder) AndBuilder
}

// AndBuilder0 extends the where clause of a column query.
type AndBuilder0 interface {
	GroupBy
	And(path string) PathOperator[AndBuilder0]
	AndExpr(p ExpressionHolder) AndBuilder0
}

// Where filters an entity query.
type Where interface {
	OrderBy
	Where(path string) PathOperator[AndBuilder]
	WhereExpr(p ExpressionHolder) AndBuilder
}

// Where0 filters a column query.
type Where0 interface {
	GroupBy
	Where(path string) PathOperator[AndBuilder0]
	WhereExpr(p ExpressionHolder) AndBuilder0
}

// Fetch adds related entities to an entity selection.
type Fetch interface {
	Where
	Fetch(paths ...string) Where
}

// Select is the state returned by From. Without a Select call the query
// yields whole entities.
type Select interface {
	Fetch

	// Select switches to a column query. One expression selects a single
	// column; several select a column list.
	Select(exprs ...ExpressionHolder) Where0

	// SelectPaths is Select over dotted column paths.
	SelectPaths(paths ...string) Where0

	// SelectProjection yields the named projection of the entity.
	SelectProjection(name string) Fetch
}

// entityStage backs every state of an entity query.
type entityStage struct {
	collector
}

// columnStage backs every state of a column query.
type columnStage struct {
	collector
}

func (q *Query) entity(s *query.Structure) *entityStage {
	return &entityStage{collector{q: q, s: s}}
}

func (q *Query) column(s *query.Structure) *columnStage {
	return &columnStage{collector{q: q, s: s}}
}

func (e *entityStage) Select(exprs ...ExpressionHolder) Where0 {
	return e.q.column(e.s.WithSelect(selection(exprs)))
}

func (e *entityStage) SelectPaths(paths ...string) Where0 {
	exprs := make([]ExpressionHolder, len(paths))
	for i, p := range paths {
		exprs[i] = Get(p)
	}
	return e.Select(exprs...)
}

func (e *entityStage) SelectProjection(name string) Fetch {
	return e.q.entity(e.s.WithSelect(query.EntitySelection{ResultType: name}))
}

func (e *entityStage) Fetch(paths ...string) Where {
	fetch := e.s.Fetch()
	for _, p := range paths {
		fetch = append(fetch, expr.Path(p))
	}
	return e.q.entity(e.s.WithFetch(fetch...))
}

func (e *entityStage) Where(path string) PathOperator[AndBuilder] {
	return newPathOperator(Get(path), func(p Predicate) AndBuilder {
		return e.AndExpr(p)
	})
}

func (e *entityStage) WhereExpr(p ExpressionHolder) AndBuilder {
	return e.AndExpr(p)
}

func (e *entityStage) And(path string) PathOperator[AndBuilder] {
	return e.Where(path)
}

func (e *entityStage) AndExpr(p ExpressionHolder) AndBuilder {
	return e.q.entity(e.s.WithWhere(conjoin(e.s.Where(), p)))
}

func (e *entityStage) OrderBy(orders ...query.Order) Collector {
	return e.q.entity(e.s.WithOrderBy(orders...))
}

func (c *columnStage) Where(path string) PathOperator[AndBuilder0] {
	return newPathOperator(Get(path), func(p Predicate) AndBuilder0 {
		return c.AndExpr(p)
	})
}

func (c *columnStage) WhereExpr(p ExpressionHolder) AndBuilder0 {
	return c.AndExpr(p)
}

func (c *columnStage) And(path string) PathOperator[AndBuilder0] {
	return c.Where(path)
}

func (c *columnStage) AndExpr(p ExpressionHolder) AndBuilder0 {
	return c.q.column(c.s.WithWhere(conjoin(c.s.Where(), p)))
}

func (c *columnStage) GroupBy(exprs ...ExpressionHolder) Having {
	groupBy := make([]expr.Expression, len(exprs))
	for i, h := range exprs {
		groupBy[i] = h.Expression()
	}
	return c.q.column(c.s.WithGroupBy(groupBy...))
}

func (c *columnStage) Having(p ExpressionHolder) OrderBy {
	return c.q.column(c.s.WithHaving(conjoin(c.s.Having(), p)))
}

func (c *columnStage) OrderBy(orders ...query.Order) Collector {
	return c.q.column(c.s.WithOrderBy(orders...))
}

func selection(exprs []ExpressionHolder) query.Selection {
	if len(exprs) == 1 {
		return query.SingleColumn{Column: exprs[0].Expression()}
	}
	cols := make([]expr.Expression, len(exprs))
	for i, h := range exprs {
		cols[i] = h.Expression()
	}
	return query.MultiColumn{Columns: cols}
}

// conjoin ANDs p onto an existing predicate; the true predicate is dropped.
func conjoin(existing expr.Expression, p ExpressionHolder) expr.Expression {
	if expr.IsTrue(existing) {
		return p.Expression()
	}
	return expr.Operate(existing, expr.AND, p.Expression())
}
