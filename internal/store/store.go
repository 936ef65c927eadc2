package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// IDGenerator produces the query_id attached to statement logs.
type IDGenerator interface {
	NewID() string
}

// uuidV7 is the default IDGenerator.
type uuidV7 struct{}

func (uuidV7) NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Store executes SQL against a SQLite database.
type Store struct {
	db      *sql.DB
	logger  *slog.Logger
	ids     IDGenerator
	metrics *Metrics
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the statement logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithIDGenerator replaces the UUIDv7 query ids, typically with a
// deterministic sequence in tests.
func WithIDGenerator(ids IDGenerator) Option {
	return func(s *Store) {
		if ids != nil {
			s.ids = ids
		}
	}
}

// WithMetrics records every statement in m.
func WithMetrics(m *Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// Open creates or opens a SQLite database at path. ":memory:" opens a private
// in-memory database.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, and every connection to
	// ":memory:" would see its own database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	s := &Store{
		db:     db,
		logger: slog.Default(),
		ids:    uuidV7{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Apply executes a DDL or seed script. Scripts may hold several statements.
func (s *Store) Apply(ctx context.Context, script string) error {
	if _, err := s.db.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("apply script: %w", err)
	}
	return nil
}

// Execute runs a query and returns every row. Column values are normalized:
// TEXT arrives as string, INTEGER as int64, REAL as float64, NULL as nil.
func (s *Store) Execute(ctx context.Context, query string, args []any) ([][]any, error) {
	id := s.ids.NewID()
	start := time.Now()
	s.logger.DebugContext(ctx, "executing statement",
		"query_id", id,
		"sql", query,
		"params", len(args),
	)

	rows, err := s.query(ctx, query, args)
	elapsed := time.Since(start)
	s.metrics.observe(err, elapsed)
	if err != nil {
		s.logger.DebugContext(ctx, "statement failed",
			"query_id", id,
			"error", err,
		)
		return nil, err
	}

	s.logger.DebugContext(ctx, "statement finished",
		"query_id", id,
		"rows", len(rows),
		"elapsed", elapsed,
	)
	return rows, nil
}

func (s *Store) query(ctx context.Context, query string, args []any) ([][]any, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("get columns: %w", err)
	}

	var out [][]any
	for rows.Next() {
		row, err := scanRow(rows, len(columns))
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// scanRow scans the current row into one value per column.
func scanRow(rows *sql.Rows, width int) ([]any, error) {
	values := make([]any, width)
	ptrs := make([]any, width)
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}
	for i, v := range values {
		if b, ok := v.([]byte); ok {
			values[i] = string(b)
		}
	}
	return values, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}
