package builder

import (
	"context"
	"log/slog"

	"github.com/roach88/querykit/internal/query"
)

// Row is one result row, ordered as the rendered select list.
type Row = []any

// Backend executes a finished structure. Implementations translate it to
// SQL (or anything else) and return raw rows.
type Backend interface {
	List(ctx context.Context, s *query.Structure) ([]Row, error)
}

// PostProcessor rewrites a derived structure just before it is executed.
// Typical uses are tenant filters and soft-delete predicates.
type PostProcessor interface {
	PreCount(s *query.Structure) *query.Structure
	PreList(s *query.Structure) *query.Structure
	PreExist(s *query.Structure) *query.Structure
}

// NopPostProcessor returns every structure unchanged.
type NopPostProcessor struct{}

func (NopPostProcessor) PreCount(s *query.Structure) *query.Structure { return s }
func (NopPostProcessor) PreList(s *query.Structure) *query.Structure  { return s }
func (NopPostProcessor) PreExist(s *query.Structure) *query.Structure { return s }

// PostProcessorFunc applies the same rewrite to every derivation.
type PostProcessorFunc func(s *query.Structure) *query.Structure

func (f PostProcessorFunc) PreCount(s *query.Structure) *query.Structure { return f(s) }
func (f PostProcessorFunc) PreList(s *query.Structure) *query.Structure  { return f(s) }
func (f PostProcessorFunc) PreExist(s *query.Structure) *query.Structure { return f(s) }

// Query is the entry point. It holds no per-query state and is safe for
// concurrent use.
type Query struct {
	backend Backend
	post    PostProcessor
	logger  *slog.Logger
}

// Option configures a Query.
type Option func(*Query)

// WithPostProcessor installs p. A nil p restores the no-op processor.
func WithPostProcessor(p PostProcessor) Option {
	return func(q *Query) {
		if p == nil {
			p = NopPostProcessor{}
		}
		q.post = p
	}
}

// WithLogger sets the logger used for query tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(q *Query) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// New returns a Query that executes through backend.
func New(backend Backend, opts ...Option) *Query {
	q := &Query{
		backend: backend,
		post:    NopPostProcessor{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// From starts a query over entity.
func (q *Query) From(entity string) Select {
	return q.entity(query.New(entity))
}

// Resume returns a Collector over an existing structure, for example one
// decoded from a query document.
func (q *Query) Resume(s *query.Structure) Collector {
	if _, ok := s.Select().(query.EntitySelection); ok {
		return q.entity(s)
	}
	return q.column(s)
}
