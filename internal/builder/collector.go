package builder

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/roach88/querykit/internal/query"
	"github.com/roach88/querykit/internal/sqlgen"
)

// Slice is one page of results plus the total number of matches.
type Slice struct {
	Rows   []Row
	Total  int64
	Offset int
	Limit  int
}

// StructureBuilder derives the structures a Collector would execute.
type StructureBuilder interface {
	Count() *query.Structure
	List(offset, limit int, lock query.LockType) *query.Structure
	Exist(offset int) *query.Structure
	Slice(offset, limit int) query.SliceStructure
}

// collector implements Collector over an accumulated structure. It is shared
// by both stage types.
type collector struct {
	q *Query
	s *query.Structure
}

func (c collector) Structure() *query.Structure { return c.s }

func (c collector) BuildMetadata() StructureBuilder { return c.s }

func (c collector) Count(ctx context.Context) (int64, error) {
	s := c.q.post.PreCount(c.s.Count())
	rows, err := c.run(ctx, "count", s)
	if err != nil {
		return 0, err
	}
	if len(rows) != 1 || len(rows[0]) != 1 {
		return 0, sqlgen.StructureMismatch("count returned %d rows, want a single value", len(rows))
	}
	return toInt64(rows[0][0])
}

func (c collector) List(ctx context.Context, offset, limit int, lock query.LockType) ([]Row, error) {
	s := c.q.post.PreList(c.s.List(offset, limit, lock))
	return c.run(ctx, "list", s)
}

func (c collector) All(ctx context.Context) ([]Row, error) {
	return c.List(ctx, -1, -1, query.LockNone)
}

func (c collector) First(ctx context.Context) (Row, bool, error) {
	return c.FirstAt(ctx, -1, query.LockNone)
}

func (c collector) FirstAt(ctx context.Context, offset int, lock query.LockType) (Row, bool, error) {
	rows, err := c.List(ctx, offset, 1, lock)
	if err != nil || len(rows) == 0 {
		return nil, false, err
	}
	return rows[0], true, nil
}

func (c collector) Single(ctx context.Context) (Row, bool, error) {
	return c.SingleAt(ctx, -1, query.LockNone)
}

// SingleAt fetches two rows so a second match can be reported.
func (c collector) SingleAt(ctx context.Context, offset int, lock query.LockType) (Row, bool, error) {
	rows, err := c.List(ctx, offset, 2, lock)
	if err != nil {
		return nil, false, err
	}
	switch len(rows) {
	case 0:
		return nil, false, nil
	case 1:
		return rows[0], true, nil
	default:
		return nil, false, ErrTooManyResults
	}
}

func (c collector) RequireSingle(ctx context.Context) (Row, error) {
	row, ok, err := c.Single(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoResults
	}
	return row, nil
}

func (c collector) Exist(ctx context.Context, offset int) (bool, error) {
	s := c.q.post.PreExist(c.s.Exist(offset))
	rows, err := c.run(ctx, "exist", s)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// Slice counts first and skips the list query when the page would be empty.
func (c collector) Slice(ctx context.Context, offset, limit int) (Slice, error) {
	page := Slice{Offset: offset, Limit: limit}
	total, err := c.Count(ctx)
	if err != nil {
		return page, err
	}
	page.Total = total
	if total == 0 || limit == 0 || int64(max(offset, 0)) >= total {
		return page, nil
	}
	rows, err := c.List(ctx, offset, limit, query.LockNone)
	if err != nil {
		return page, err
	}
	page.Rows = rows
	return page, nil
}

func (c collector) run(ctx context.Context, kind string, s *query.Structure) ([]Row, error) {
	c.q.logger.DebugContext(ctx, "running query", "kind", kind, "structure", s.String())
	rows, err := c.q.backend.List(ctx, s)
	if err != nil {
		c.q.logger.DebugContext(ctx, "query failed", "kind", kind, "error", err)
		return nil, err
	}
	return rows, nil
}

// toInt64 normalizes the count value drivers hand back: integers, floats,
// or decimal text.
func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("count value %d overflows int64", n)
		}
		return int64(n), nil
	case float64:
		// 2^63 is the first float64 above math.MaxInt64.
		if n != math.Trunc(n) || n < math.MinInt64 || n >= 1<<63 {
			return 0, fmt.Errorf("count value %v is not an int64", n)
		}
		return int64(n), nil
	case []byte:
		return strconv.ParseInt(string(n), 10, 64)
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("count value has unexpected type %T", v)
	}
}
