package sqlgen

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes render errors.
type ErrorCode string

const (
	// ErrCodeUnsupportedExpression indicates an expression variant with no rendering rule.
	ErrCodeUnsupportedExpression ErrorCode = "UNSUPPORTED_EXPRESSION"

	// ErrCodeUnsupportedOperator indicates an operator outside the catalog or
	// applied with the wrong number of arguments.
	ErrCodeUnsupportedOperator ErrorCode = "UNSUPPORTED_OPERATOR"

	// ErrCodeStructureMismatch indicates a selection that disagrees with the
	// metamodel or with the rows an executor returned.
	ErrCodeStructureMismatch ErrorCode = "STRUCTURE_MISMATCH"

	// ErrCodeUnresolvedPath indicates a column path the metamodel cannot resolve.
	ErrCodeUnresolvedPath ErrorCode = "UNRESOLVED_PATH"
)

// RenderError is returned for every rendering failure. Render never returns
// partial SQL alongside an error.
type RenderError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Expr is the debug form of the offending expression or structure.
	Expr string

	// Err is the underlying cause, typically a metamodel lookup error.
	Err error
}

// Error implements the error interface.
func (e *RenderError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Expr != "" {
		msg += " (in " + e.Expr + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// StructureMismatch builds an ErrCodeStructureMismatch error. Executors use it
// when a row does not have the arity the rendered statement promised.
func StructureMismatch(format string, args ...any) *RenderError {
	return &RenderError{Code: ErrCodeStructureMismatch, Message: fmt.Sprintf(format, args...)}
}

// IsUnsupported returns true for unsupported expression and operator errors.
// Uses errors.As to handle wrapped errors.
func IsUnsupported(err error) bool {
	var re *RenderError
	if errors.As(err, &re) {
		return re.Code == ErrCodeUnsupportedExpression || re.Code == ErrCodeUnsupportedOperator
	}
	return false
}

// IsStructureMismatch returns true if the error is a structure mismatch.
func IsStructureMismatch(err error) bool {
	var re *RenderError
	if errors.As(err, &re) {
		return re.Code == ErrCodeStructureMismatch
	}
	return false
}

// IsUnresolvedPath returns true if the error is an unresolved column path.
func IsUnresolvedPath(err error) bool {
	var re *RenderError
	if errors.As(err, &re) {
		return re.Code == ErrCodeUnresolvedPath
	}
	return false
}
