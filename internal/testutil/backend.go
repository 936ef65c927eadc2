package testutil

import (
	"context"
	"sync"

	"github.com/roach88/querykit/internal/query"
)

// Responder produces the rows a RecordingBackend returns for a structure.
type Responder func(s *query.Structure) ([][]any, error)

// RecordingBackend is an in-memory executor backend that records every
// structure it is asked to list and answers through a Responder.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type RecordingBackend struct {
	mu      sync.Mutex
	calls   []*query.Structure
	respond Responder
}

// NewRecordingBackend creates a backend answering with respond. A nil
// responder answers every call with no rows.
func NewRecordingBackend(respond Responder) *RecordingBackend {
	if respond == nil {
		respond = func(*query.Structure) ([][]any, error) { return nil, nil }
	}
	return &RecordingBackend{respond: respond}
}

// Rows returns a responder that always answers with rows.
func Rows(rows ...[]any) Responder {
	return func(*query.Structure) ([][]any, error) {
		return rows, nil
	}
}

// List records s and returns the responder's rows.
func (b *RecordingBackend) List(ctx context.Context, s *query.Structure) ([][]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.calls = append(b.calls, s)
	b.mu.Unlock()
	return b.respond(s)
}

// Structures returns the recorded structures in call order.
func (b *RecordingBackend) Structures() []*query.Structure {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*query.Structure, len(b.calls))
	copy(out, b.calls)
	return out
}

// Last returns the most recently recorded structure, or nil.
func (b *RecordingBackend) Last() *query.Structure {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.calls) == 0 {
		return nil
	}
	return b.calls[len(b.calls)-1]
}
