package expr

import (
	"fmt"
	"strings"
)

// Operator identifies an operation in the expression algebra.
type Operator int

const (
	NOT Operator = iota + 1
	AND
	OR
	EQ
	NE
	GT
	GE
	LT
	LE
	LIKE
	NOT_LIKE
	IS_NULL
	IS_NOT_NULL
	IN
	NOT_IN
	BETWEEN
	ADD
	SUBTRACT
	MULTIPLY
	DIVIDE
	MOD
	LOWER
	UPPER
	SUBSTRING
	TRIM
	LENGTH
	NULLIF
	IFNULL
	MIN
	MAX
	COUNT
	AVG
	SUM
)

// Family groups operators that share a rendering shape.
type Family int

const (
	FamilyUnary Family = iota + 1
	FamilyInfix
	FamilyFunction
	FamilyList
	FamilyRange
	FamilyPostfix
)

// Precedence ranks. Lower binds tighter.
const (
	rankFunction   = 0
	rankNot        = 1
	rankMultiply   = 2
	rankAdd        = 3
	rankComparison = 4
	rankAnd        = 6
	rankOr         = 7
)

type operatorInfo struct {
	name        string
	sign        string
	precedence  int
	family      Family
	multivalued bool
	aggregate   bool
}

var operators = map[Operator]operatorInfo{
	NOT:         {"not", "NOT", rankNot, FamilyUnary, false, false},
	AND:         {"and", "AND", rankAnd, FamilyInfix, true, false},
	OR:          {"or", "OR", rankOr, FamilyInfix, true, false},
	EQ:          {"eq", "=", rankComparison, FamilyInfix, false, false},
	NE:          {"ne", "<>", rankComparison, FamilyInfix, false, false},
	GT:          {"gt", ">", rankComparison, FamilyInfix, false, false},
	GE:          {"ge", ">=", rankComparison, FamilyInfix, false, false},
	LT:          {"lt", "<", rankComparison, FamilyInfix, false, false},
	LE:          {"le", "<=", rankComparison, FamilyInfix, false, false},
	LIKE:        {"like", "LIKE", rankComparison, FamilyInfix, false, false},
	NOT_LIKE:    {"not_like", "NOT LIKE", rankComparison, FamilyInfix, false, false},
	IS_NULL:     {"is_null", "IS NULL", rankComparison, FamilyPostfix, false, false},
	IS_NOT_NULL: {"is_not_null", "IS NOT NULL", rankComparison, FamilyPostfix, false, false},
	IN:          {"in", "IN", rankComparison, FamilyList, false, false},
	NOT_IN:      {"not_in", "NOT IN", rankComparison, FamilyList, false, false},
	BETWEEN:     {"between", "BETWEEN", rankAnd, FamilyRange, false, false},
	ADD:         {"add", "+", rankAdd, FamilyInfix, true, false},
	SUBTRACT:    {"subtract", "-", rankAdd, FamilyInfix, false, false},
	MULTIPLY:    {"multiply", "*", rankMultiply, FamilyInfix, true, false},
	DIVIDE:      {"divide", "/", rankMultiply, FamilyInfix, false, false},
	MOD:         {"mod", "%", rankMultiply, FamilyInfix, false, false},
	LOWER:       {"lower", "LOWER", rankFunction, FamilyFunction, false, false},
	UPPER:       {"upper", "UPPER", rankFunction, FamilyFunction, false, false},
	SUBSTRING:   {"substring", "SUBSTRING", rankFunction, FamilyFunction, false, false},
	TRIM:        {"trim", "TRIM", rankFunction, FamilyFunction, false, false},
	LENGTH:      {"length", "LENGTH", rankFunction, FamilyFunction, false, false},
	NULLIF:      {"nullif", "NULLIF", rankFunction, FamilyFunction, false, false},
	IFNULL:      {"ifnull", "IFNULL", rankFunction, FamilyFunction, false, false},
	MIN:         {"min", "MIN", rankFunction, FamilyFunction, false, true},
	MAX:         {"max", "MAX", rankFunction, FamilyFunction, false, true},
	COUNT:       {"count", "COUNT", rankFunction, FamilyFunction, false, true},
	AVG:         {"avg", "AVG", rankFunction, FamilyFunction, false, true},
	SUM:         {"sum", "SUM", rankFunction, FamilyFunction, false, true},
}

var operatorsByName = func() map[string]Operator {
	m := make(map[string]Operator, len(operators))
	for op, info := range operators {
		m[info.name] = op
	}
	return m
}()

// Valid reports whether op is a member of the catalog.
func (op Operator) Valid() bool {
	_, ok := operators[op]
	return ok
}

// Sign returns the SQL spelling of the operator (e.g. ">=", "AND", "COUNT").
func (op Operator) Sign() string {
	return operators[op].sign
}

// Name returns the lower-case identifier used in query documents.
func (op Operator) Name() string {
	return operators[op].name
}

// Precedence returns the precedence rank. Lower binds tighter.
func (op Operator) Precedence() int {
	return operators[op].precedence
}

// Family returns the rendering family of the operator.
func (op Operator) Family() Family {
	return operators[op].family
}

// Multivalued reports whether repeated application merges into one n-ary node.
func (op Operator) Multivalued() bool {
	return operators[op].multivalued
}

// Aggregate reports whether the operator is an aggregate function.
func (op Operator) Aggregate() bool {
	return operators[op].aggregate
}

func (op Operator) String() string {
	if info, ok := operators[op]; ok {
		return strings.ToUpper(info.name)
	}
	return fmt.Sprintf("Operator(%d)", int(op))
}

// ParseOperator looks up an operator by its document name ("ge", "is_null", ...).
func ParseOperator(name string) (Operator, error) {
	op, ok := operatorsByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown operator %q", name)
	}
	return op, nil
}
