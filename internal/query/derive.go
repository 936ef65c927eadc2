package query

import "github.com/roach88/querykit/internal/expr"

var (
	// SelectAny selects the constant true.
	SelectAny Selection = SingleColumn{Column: expr.True}

	// CountAny selects COUNT(true).
	CountAny Selection = SingleColumn{Column: expr.Operate(expr.True, expr.COUNT)}
)

// SliceStructure pairs the count and list structures of one page.
type SliceStructure struct {
	Count *Structure
	List  *Structure
}

// List derives the structure of a list terminal.
func (s *Structure) List(offset, limit int, lock LockType) *Structure {
	c := s.copy()
	c.offset = offset
	c.limit = limit
	c.lock = lock
	return c
}

// Exist derives the structure of an existence check starting at offset.
func (s *Structure) Exist(offset int) *Structure {
	c := s.copy()
	c.selection = SelectAny
	c.offset = offset
	c.limit = 1
	c.fetch = nil
	c.orderBy = nil
	return c
}

// Count derives the structure counting the rows s would return.
func (s *Structure) Count() *Structure {
	c := s.copy()
	c.lock = LockNone
	c.orderBy = nil

	switch {
	case RequiresCountSubQuery(s):
		return NewSubQuery(CountAny, c)
	case len(s.groupBy) > 0:
		c.selection = SelectAny
		c.fetch = nil
		return NewSubQuery(CountAny, c)
	default:
		c.selection = CountAny
		c.fetch = nil
		return c
	}
}

// Slice derives the count and unlocked list structures of one page.
func (s *Structure) Slice(offset, limit int) SliceStructure {
	return SliceStructure{
		Count: s.Count(),
		List:  s.List(offset, limit, LockNone),
	}
}

// RequiresCountSubQuery reports whether the select or having clause applies an
// aggregate, in which case rows can only be counted after aggregation.
func RequiresCountSubQuery(s *Structure) bool {
	switch sel := s.selection.(type) {
	case SingleColumn:
		if expr.ContainsAggregate(sel.Column) {
			return true
		}
	case MultiColumn:
		for _, col := range sel.Columns {
			if expr.ContainsAggregate(col) {
				return true
			}
		}
	}
	return expr.ContainsAggregate(s.having)
}
