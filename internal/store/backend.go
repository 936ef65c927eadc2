package store

import (
	"context"
	"fmt"

	"github.com/roach88/querykit/internal/meta"
	"github.com/roach88/querykit/internal/query"
	"github.com/roach88/querykit/internal/sqlgen"
)

// Backend renders structures and executes them on a Store. It satisfies
// builder.Backend.
type Backend struct {
	store *Store
	gen   *sqlgen.Generator
	meta  meta.Metamodel
}

// NewBackend creates a Backend resolving columns through m.
func NewBackend(s *Store, gen *sqlgen.Generator, m meta.Metamodel) *Backend {
	return &Backend{store: s, gen: gen, meta: m}
}

// Render returns the SQL that List would execute for q.
func (b *Backend) Render(q *query.Structure) (*sqlgen.PreparedSQL, error) {
	prepared, err := b.gen.Render(q, b.meta)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", q, err)
	}
	return prepared, nil
}

// List renders q, executes it and checks every row against the rendered
// select list.
func (b *Backend) List(ctx context.Context, q *query.Structure) ([][]any, error) {
	prepared, err := b.Render(q)
	if err != nil {
		return nil, err
	}
	rows, err := b.store.Execute(ctx, prepared.SQL, prepared.Args)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if len(row) != prepared.Arity {
			return nil, sqlgen.StructureMismatch("row has %d columns, want %d", len(row), prepared.Arity)
		}
	}
	return rows, nil
}
