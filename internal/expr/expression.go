package expr

import (
	"fmt"
	"slices"
	"strings"
)

// Expression is a node of the expression algebra.
//
// This is a sealed interface - only Constant, Column, and Operation
// implement it.
type Expression interface {
	fmt.Stringer
	expressionNode() // Marker method - seals interface to this package
}

// Constant is a literal value.
type Constant struct {
	Value any
}

func (Constant) expressionNode() {}

func (c Constant) String() string {
	if s, ok := c.Value.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprint(c.Value)
}

// Column is a navigation path from the query root. Every segment except the
// last crosses a relationship.
type Column struct {
	Path []string
}

func (Column) expressionNode() {}

func (c Column) String() string {
	return strings.Join(c.Path, ".")
}

// Key returns the dotted path, used to deduplicate joins.
func (c Column) Key() string {
	return strings.Join(c.Path, ".")
}

// Parent returns the column without its last segment. ok is false for
// single-segment paths.
func (c Column) Parent() (parent Column, ok bool) {
	if len(c.Path) <= 1 {
		return Column{}, false
	}
	return Column{Path: slices.Clone(c.Path[:len(c.Path)-1])}, true
}

// Operation applies Operator to Operand and zero or more Args.
type Operation struct {
	Operand  Expression
	Operator Operator
	Args     []Expression
}

func (Operation) expressionNode() {}

func (o Operation) String() string {
	switch {
	case o.Operator.Multivalued():
		parts := make([]string, 0, len(o.Args)+1)
		parts = append(parts, wrapString(o, o.Operand))
		for _, arg := range o.Args {
			parts = append(parts, wrapString(o, arg))
		}
		return strings.Join(parts, " "+o.Operator.Sign()+" ")
	case o.Operator.Family() == FamilyPostfix:
		return wrapString(o, o.Operand) + " " + o.Operator.Sign()
	case len(o.Args) == 0:
		return o.Operator.Sign() + "(" + o.Operand.String() + ")"
	case len(o.Args) == 1 && o.Operator.Family() != FamilyFunction && o.Operator.Family() != FamilyList:
		return wrapString(o, o.Operand) + " " + o.Operator.Sign() + " " + wrapString(o, o.Args[0])
	default:
		args := make([]string, len(o.Args))
		for i, arg := range o.Args {
			args[i] = arg.String()
		}
		if o.Operator.Family() == FamilyFunction {
			return o.Operator.Sign() + "(" + o.Operand.String() + ", " + strings.Join(args, ", ") + ")"
		}
		return wrapString(o, o.Operand) + " " + o.Operator.Sign() + "(" + strings.Join(args, ", ") + ")"
	}
}

func wrapString(parent Operation, child Expression) string {
	if op, ok := child.(Operation); ok && op.Operator.Precedence() > parent.Operator.Precedence() {
		return "(" + op.String() + ")"
	}
	return child.String()
}

// True is the constant-true predicate. It is the default for where and having.
var True Expression = Constant{Value: true}

// Of wraps a Go value as a Constant. Expressions are returned unchanged.
func Of(value any) Expression {
	if e, ok := value.(Expression); ok {
		return e
	}
	return Constant{Value: value}
}

// Col builds a column from path segments.
func Col(path ...string) Column {
	return Column{Path: slices.Clone(path)}
}

// Path builds a column from a dotted path such as "parent.username".
func Path(dotted string) Column {
	return Column{Path: strings.Split(dotted, ".")}
}

// Concat appends a segment to a column path, returning a new column.
func Concat(c Column, name string) Column {
	path := make([]string, 0, len(c.Path)+1)
	path = append(path, c.Path...)
	return Column{Path: append(path, name)}
}

// IsTrue reports whether e is the constant-true predicate.
func IsTrue(e Expression) bool {
	c, ok := e.(Constant)
	if !ok {
		return false
	}
	b, ok := c.Value.(bool)
	return ok && b
}

// Operate builds an Operation, collapsing double negation and flattening
// chains of the same multivalued operator.
func Operate(left Expression, op Operator, args ...Expression) Expression {
	if op == NOT {
		if inner, ok := left.(Operation); ok && inner.Operator == NOT {
			return inner.Operand
		}
	}
	if !op.Multivalued() {
		return Operation{Operand: left, Operator: op, Args: slices.Clone(args)}
	}

	operand := left
	var merged []Expression
	if lo, ok := left.(Operation); ok && lo.Operator == op {
		operand = lo.Operand
		merged = append(merged, lo.Args...)
	}
	for _, arg := range args {
		if ao, ok := arg.(Operation); ok && ao.Operator == op {
			merged = append(merged, ao.Operand)
			merged = append(merged, ao.Args...)
			continue
		}
		merged = append(merged, arg)
	}
	return Operation{Operand: operand, Operator: op, Args: merged}
}

// ContainsAggregate reports whether e applies an aggregate operator anywhere
// in its tree.
func ContainsAggregate(e Expression) bool {
	op, ok := e.(Operation)
	if !ok {
		return false
	}
	if op.Operator.Aggregate() || ContainsAggregate(op.Operand) {
		return true
	}
	for _, arg := range op.Args {
		if ContainsAggregate(arg) {
			return true
		}
	}
	return false
}

// OperatorOf returns the operator of e when e is an Operation.
func OperatorOf(e Expression) (Operator, bool) {
	if op, ok := e.(Operation); ok {
		return op.Operator, true
	}
	return 0, false
}
