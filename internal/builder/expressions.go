package builder

import (
	"github.com/roach88/querykit/internal/expr"
	"github.com/roach88/querykit/internal/query"
)

// ExpressionHolder is anything that carries an expression: Operand,
// Predicate, or a caller's own wrapper.
type ExpressionHolder interface {
	Expression() expr.Expression
}

// Operand is a value expression: a column path, a constant, or a computation
// over them.
type Operand struct {
	e expr.Expression
}

// Predicate is a boolean expression.
type Predicate struct {
	e expr.Expression
}

func (o Operand) Expression() expr.Expression   { return o.e }
func (p Predicate) Expression() expr.Expression { return p.e }

func (o Operand) String() string   { return o.e.String() }
func (p Predicate) String() string { return p.e.String() }

// Get returns the column at a dotted path such as "parent.username".
func Get(path string) Operand {
	return Operand{e: expr.Path(path)}
}

// Value wraps a constant.
func Value(v any) Operand {
	return Operand{e: toExpr(v)}
}

// toExpr accepts holders, expressions, or plain Go values.
func toExpr(v any) expr.Expression {
	switch v := v.(type) {
	case ExpressionHolder:
		return v.Expression()
	case expr.Expression:
		return v
	default:
		return expr.Constant{Value: v}
	}
}

func toExprs(values []any) []expr.Expression {
	if len(values) == 0 {
		return nil
	}
	out := make([]expr.Expression, len(values))
	for i, v := range values {
		out[i] = toExpr(v)
	}
	return out
}

func (o Operand) operate(op expr.Operator, args ...any) expr.Expression {
	return expr.Operate(o.e, op, toExprs(args)...)
}

func (o Operand) Eq(v any) Predicate        { return Predicate{o.operate(expr.EQ, v)} }
func (o Operand) Ne(v any) Predicate        { return Predicate{o.operate(expr.NE, v)} }
func (o Operand) Gt(v any) Predicate        { return Predicate{o.operate(expr.GT, v)} }
func (o Operand) Ge(v any) Predicate        { return Predicate{o.operate(expr.GE, v)} }
func (o Operand) Lt(v any) Predicate        { return Predicate{o.operate(expr.LT, v)} }
func (o Operand) Le(v any) Predicate        { return Predicate{o.operate(expr.LE, v)} }
func (o Operand) Like(v any) Predicate      { return Predicate{o.operate(expr.LIKE, v)} }
func (o Operand) NotLike(v any) Predicate   { return Predicate{o.operate(expr.NOT_LIKE, v)} }
func (o Operand) In(vs ...any) Predicate    { return Predicate{o.operate(expr.IN, vs...)} }
func (o Operand) NotIn(vs ...any) Predicate { return Predicate{o.operate(expr.NOT_IN, vs...)} }
func (o Operand) IsNull() Predicate         { return Predicate{o.operate(expr.IS_NULL)} }
func (o Operand) IsNotNull() Predicate      { return Predicate{o.operate(expr.IS_NOT_NULL)} }

// Between matches lower <= o <= upper.
func (o Operand) Between(lower, upper any) Predicate {
	return Predicate{o.operate(expr.BETWEEN, lower, upper)}
}

func (o Operand) Lower() Operand         { return Operand{o.operate(expr.LOWER)} }
func (o Operand) Upper() Operand         { return Operand{o.operate(expr.UPPER)} }
func (o Operand) Trim() Operand          { return Operand{o.operate(expr.TRIM)} }
func (o Operand) Length() Operand        { return Operand{o.operate(expr.LENGTH)} }
func (o Operand) Add(v any) Operand      { return Operand{o.operate(expr.ADD, v)} }
func (o Operand) Subtract(v any) Operand { return Operand{o.operate(expr.SUBTRACT, v)} }
func (o Operand) Multiply(v any) Operand { return Operand{o.operate(expr.MULTIPLY, v)} }
func (o Operand) Divide(v any) Operand   { return Operand{o.operate(expr.DIVIDE, v)} }
func (o Operand) Mod(v any) Operand      { return Operand{o.operate(expr.MOD, v)} }
func (o Operand) IfNull(v any) Operand   { return Operand{o.operate(expr.IFNULL, v)} }
func (o Operand) NullIf(v any) Operand   { return Operand{o.operate(expr.NULLIF, v)} }

// Substring takes length characters starting at the 1-based position start.
func (o Operand) Substring(start, length int) Operand {
	return Operand{o.operate(expr.SUBSTRING, start, length)}
}

func (o Operand) Count() Operand { return Operand{o.operate(expr.COUNT)} }
func (o Operand) Sum() Operand   { return Operand{o.operate(expr.SUM)} }
func (o Operand) Avg() Operand   { return Operand{o.operate(expr.AVG)} }
func (o Operand) Min() Operand   { return Operand{o.operate(expr.MIN)} }
func (o Operand) Max() Operand   { return Operand{o.operate(expr.MAX)} }

// And combines p with others; nested conjunctions flatten.
func (p Predicate) And(others ...ExpressionHolder) Predicate {
	return And(append([]ExpressionHolder{p}, others...)...)
}

// Or combines p with others; nested disjunctions flatten.
func (p Predicate) Or(others ...ExpressionHolder) Predicate {
	return Or(append([]ExpressionHolder{p}, others...)...)
}

// Not negates p. Negating a negation returns the original predicate.
func (p Predicate) Not() Predicate {
	return Not(p)
}

// And is the conjunction of ps. With no arguments it is the true predicate.
func And(ps ...ExpressionHolder) Predicate {
	return Predicate{combine(expr.AND, ps)}
}

// Or is the disjunction of ps. With no arguments it is the true predicate.
func Or(ps ...ExpressionHolder) Predicate {
	return Predicate{combine(expr.OR, ps)}
}

// Not negates p.
func Not(p ExpressionHolder) Predicate {
	return Predicate{expr.Operate(p.Expression(), expr.NOT)}
}

func combine(op expr.Operator, ps []ExpressionHolder) expr.Expression {
	switch len(ps) {
	case 0:
		return expr.True
	case 1:
		return ps[0].Expression()
	}
	rest := make([]expr.Expression, len(ps)-1)
	for i, p := range ps[1:] {
		rest[i] = p.Expression()
	}
	return expr.Operate(ps[0].Expression(), op, rest...)
}

func Count(h ExpressionHolder) Operand { return Operand{expr.Operate(h.Expression(), expr.COUNT)} }
func Sum(h ExpressionHolder) Operand   { return Operand{expr.Operate(h.Expression(), expr.SUM)} }
func Avg(h ExpressionHolder) Operand   { return Operand{expr.Operate(h.Expression(), expr.AVG)} }
func Min(h ExpressionHolder) Operand   { return Operand{expr.Operate(h.Expression(), expr.MIN)} }
func Max(h ExpressionHolder) Operand   { return Operand{expr.Operate(h.Expression(), expr.MAX)} }

// Asc orders by h ascending.
func Asc(h ExpressionHolder) query.Order {
	return query.Order{Expr: h.Expression(), Sort: query.Asc}
}

// Desc orders by h descending.
func Desc(h ExpressionHolder) query.Order {
	return query.Order{Expr: h.Expression(), Sort: query.Desc}
}
