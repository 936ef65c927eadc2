package builder

// PathOperator applies a comparison to a column path and continues in state
// B with the resulting predicate. Value transforms (Lower, Add, ...) return a
// PathOperator over the transformed operand.
type PathOperator[B any] struct {
	operand Operand
	apply   func(Predicate) B
}

func newPathOperator[B any](operand Operand, apply func(Predicate) B) PathOperator[B] {
	return PathOperator[B]{operand: operand, apply: apply}
}

func (p PathOperator[B]) with(o Operand) PathOperator[B] {
	return PathOperator[B]{operand: o, apply: p.apply}
}

func (p PathOperator[B]) Eq(v any) B                 { return p.apply(p.operand.Eq(v)) }
func (p PathOperator[B]) Ne(v any) B                 { return p.apply(p.operand.Ne(v)) }
func (p PathOperator[B]) Gt(v any) B                 { return p.apply(p.operand.Gt(v)) }
func (p PathOperator[B]) Ge(v any) B                 { return p.apply(p.operand.Ge(v)) }
func (p PathOperator[B]) Lt(v any) B                 { return p.apply(p.operand.Lt(v)) }
func (p PathOperator[B]) Le(v any) B                 { return p.apply(p.operand.Le(v)) }
func (p PathOperator[B]) Like(v any) B               { return p.apply(p.operand.Like(v)) }
func (p PathOperator[B]) NotLike(v any) B            { return p.apply(p.operand.NotLike(v)) }
func (p PathOperator[B]) In(vs ...any) B             { return p.apply(p.operand.In(vs...)) }
func (p PathOperator[B]) NotIn(vs ...any) B          { return p.apply(p.operand.NotIn(vs...)) }
func (p PathOperator[B]) Between(lower, upper any) B { return p.apply(p.operand.Between(lower, upper)) }
func (p PathOperator[B]) IsNull() B                  { return p.apply(p.operand.IsNull()) }
func (p PathOperator[B]) IsNotNull() B               { return p.apply(p.operand.IsNotNull()) }

func (p PathOperator[B]) Lower() PathOperator[B]         { return p.with(p.operand.Lower()) }
func (p PathOperator[B]) Upper() PathOperator[B]         { return p.with(p.operand.Upper()) }
func (p PathOperator[B]) Trim() PathOperator[B]          { return p.with(p.operand.Trim()) }
func (p PathOperator[B]) Length() PathOperator[B]        { return p.with(p.operand.Length()) }
func (p PathOperator[B]) Add(v any) PathOperator[B]      { return p.with(p.operand.Add(v)) }
func (p PathOperator[B]) Subtract(v any) PathOperator[B] { return p.with(p.operand.Subtract(v)) }
func (p PathOperator[B]) Multiply(v any) PathOperator[B] { return p.with(p.operand.Multiply(v)) }
func (p PathOperator[B]) Divide(v any) PathOperator[B]   { return p.with(p.operand.Divide(v)) }
func (p PathOperator[B]) Mod(v any) PathOperator[B]      { return p.with(p.operand.Mod(v)) }
