// Package expr provides the expression algebra used to describe predicates,
// projections, and computed values in querykit queries.
//
// Expression is a sealed interface. Only Constant, Column, and Operation
// implement it, so backends can switch exhaustively:
//
//	switch e := e.(type) {
//	case expr.Constant:
//	    // literal
//	case expr.Column:
//	    // navigation path from the query root
//	case expr.Operation:
//	    // operator applied to an operand and arguments
//	}
//
// Expressions are values and are never mutated after construction. Operate
// normalizes two shapes before allocating a node:
//
//   - NOT applied to a NOT operation returns the inner operand.
//   - A multivalued operator (AND, OR, +, *) applied to an operation with the
//     same operator splices the arguments into one n-ary node, so
//     a AND (b AND c), (a AND b) AND c and AND(a, b, c) are structurally equal.
package expr
