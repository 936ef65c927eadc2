package query

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/querykit/internal/expr"
)

// LockType is the row-locking mode of a list query.
type LockType int

const (
	LockNone LockType = iota
	LockRead
	LockWrite
	LockWriteNoWait
)

var lockNames = map[LockType]string{
	LockNone:        "NONE",
	LockRead:        "READ",
	LockWrite:       "WRITE",
	LockWriteNoWait: "WRITE_NOWAIT",
}

func (l LockType) String() string {
	if name, ok := lockNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LockType(%d)", int(l))
}

// ParseLockType accepts the names printed by String, case-insensitively.
// The empty string is LockNone.
func ParseLockType(name string) (LockType, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return LockNone, nil
	}
	for l, n := range lockNames {
		if n == name {
			return l, nil
		}
	}
	return LockNone, fmt.Errorf("unknown lock type %q", name)
}

// SortOrder is the direction of an Order.
type SortOrder int

const (
	Asc SortOrder = iota
	Desc
)

func (o SortOrder) String() string {
	if o == Desc {
		return "desc"
	}
	return "asc"
}

// Order pairs an expression with a direction.
type Order struct {
	Expr expr.Expression
	Sort SortOrder
}

func (o Order) String() string {
	return o.Expr.String() + " " + o.Sort.String()
}

// Selection is what a query returns.
//
// This is a sealed interface - only EntitySelection, SingleColumn and
// MultiColumn implement it.
type Selection interface {
	fmt.Stringer
	selectionNode()
}

// EntitySelection selects all basic attributes of an entity, or of a
// projection when ResultType names a projection of the root entity.
type EntitySelection struct {
	ResultType string
}

// SingleColumn selects one computed value.
type SingleColumn struct {
	Column expr.Expression
}

// MultiColumn selects a row of computed values.
type MultiColumn struct {
	Columns []expr.Expression
}

func (EntitySelection) selectionNode() {}
func (SingleColumn) selectionNode()    {}
func (MultiColumn) selectionNode()     {}

func (s EntitySelection) String() string { return s.ResultType }
func (s SingleColumn) String() string    { return s.Column.String() }
func (s MultiColumn) String() string     { return "[" + joinExpressions(s.Columns) + "]" }

// From is the row source of a query.
//
// This is a sealed interface - only FromEntity and FromSubQuery implement it.
type From interface {
	fmt.Stringer
	fromNode()
}

// FromEntity reads the table of an entity.
type FromEntity struct {
	Entity string
}

// FromSubQuery reads the rows of a nested query.
type FromSubQuery struct {
	Query *Structure
}

func (FromEntity) fromNode()   {}
func (FromSubQuery) fromNode() {}

func (f FromEntity) String() string   { return f.Entity }
func (f FromSubQuery) String() string { return "(" + f.Query.String() + ")" }

// Structure is an immutable description of one query.
type Structure struct {
	selection Selection
	from      From
	where     expr.Expression
	groupBy   []expr.Expression
	having    expr.Expression
	orderBy   []Order
	fetch     []expr.Column
	offset    int
	limit     int
	lock      LockType
}

// New returns a structure selecting every row of entity.
func New(entity string) *Structure {
	return &Structure{
		selection: EntitySelection{ResultType: entity},
		from:      FromEntity{Entity: entity},
		where:     expr.True,
		having:    expr.True,
		offset:    -1,
		limit:     -1,
	}
}

// NewSubQuery returns a structure selecting sel from the rows of sub.
func NewSubQuery(sel Selection, sub *Structure) *Structure {
	return &Structure{
		selection: sel,
		from:      FromSubQuery{Query: sub},
		where:     expr.True,
		having:    expr.True,
		offset:    -1,
		limit:     -1,
	}
}

// copy is shallow: slices are shared because no method ever writes to them.
func (s *Structure) copy() *Structure {
	c := *s
	return &c
}

func (s *Structure) Select() Selection       { return s.selection }
func (s *Structure) From() From              { return s.from }
func (s *Structure) Where() expr.Expression  { return s.where }
func (s *Structure) Having() expr.Expression { return s.having }
func (s *Structure) Offset() int             { return s.offset }
func (s *Structure) Limit() int              { return s.limit }
func (s *Structure) Lock() LockType          { return s.lock }

func (s *Structure) GroupBy() []expr.Expression { return slices.Clone(s.groupBy) }
func (s *Structure) OrderBy() []Order           { return slices.Clone(s.orderBy) }
func (s *Structure) Fetch() []expr.Column       { return slices.Clone(s.fetch) }

// RootEntity returns the entity at the bottom of any sub-query nesting.
func (s *Structure) RootEntity() string {
	switch f := s.from.(type) {
	case FromEntity:
		return f.Entity
	case FromSubQuery:
		return f.Query.RootEntity()
	default:
		panic(fmt.Sprintf("query: unknown from %T", s.from))
	}
}

func (s *Structure) WithSelect(sel Selection) *Structure {
	c := s.copy()
	c.selection = sel
	return c
}

func (s *Structure) WithFrom(from From) *Structure {
	c := s.copy()
	c.from = from
	return c
}

// WithWhere replaces the filter. A nil predicate resets it to true.
func (s *Structure) WithWhere(where expr.Expression) *Structure {
	c := s.copy()
	c.where = orTrue(where)
	return c
}

// WithHaving replaces the group filter. A nil predicate resets it to true.
func (s *Structure) WithHaving(having expr.Expression) *Structure {
	c := s.copy()
	c.having = orTrue(having)
	return c
}

func (s *Structure) WithGroupBy(groupBy ...expr.Expression) *Structure {
	c := s.copy()
	c.groupBy = slices.Clone(groupBy)
	return c
}

func (s *Structure) WithOrderBy(orderBy ...Order) *Structure {
	c := s.copy()
	c.orderBy = slices.Clone(orderBy)
	return c
}

func (s *Structure) WithFetch(fetch ...expr.Column) *Structure {
	c := s.copy()
	c.fetch = slices.Clone(fetch)
	return c
}

// WithOffset sets the number of rows to skip; -1 means none.
func (s *Structure) WithOffset(offset int) *Structure {
	c := s.copy()
	c.offset = offset
	return c
}

// WithLimit sets the maximum number of rows; -1 means unbounded.
func (s *Structure) WithLimit(limit int) *Structure {
	c := s.copy()
	c.limit = limit
	return c
}

func (s *Structure) WithLock(lock LockType) *Structure {
	c := s.copy()
	c.lock = lock
	return c
}

// String renders the debug form:
//
//	select … [fetch …] from <type> [where …] [group by …] [having …] [orderBy …] [offset n] [limit n] [lock(…)]
func (s *Structure) String() string {
	var b strings.Builder
	b.WriteString("select ")
	b.WriteString(s.selection.String())
	if len(s.fetch) > 0 {
		parts := make([]string, len(s.fetch))
		for i, f := range s.fetch {
			parts[i] = f.String()
		}
		b.WriteString(" fetch " + strings.Join(parts, ", "))
	}
	b.WriteString(" from " + s.from.String())
	if s.where != nil && !expr.IsTrue(s.where) {
		b.WriteString(" where " + s.where.String())
	}
	if len(s.groupBy) > 0 {
		b.WriteString(" group by " + joinExpressions(s.groupBy))
	}
	if s.having != nil && !expr.IsTrue(s.having) {
		b.WriteString(" having " + s.having.String())
	}
	if len(s.orderBy) > 0 {
		parts := make([]string, len(s.orderBy))
		for i, o := range s.orderBy {
			parts[i] = o.String()
		}
		b.WriteString(" orderBy " + strings.Join(parts, ", "))
	}
	if s.offset >= 0 {
		fmt.Fprintf(&b, " offset %d", s.offset)
	}
	if s.limit >= 0 {
		fmt.Fprintf(&b, " limit %d", s.limit)
	}
	if s.lock != LockNone {
		fmt.Fprintf(&b, " lock(%s)", s.lock)
	}
	return b.String()
}

func orTrue(e expr.Expression) expr.Expression {
	if e == nil {
		return expr.True
	}
	return e
}

func joinExpressions(es []expr.Expression) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}
