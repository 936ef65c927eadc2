package sqlgen

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/querykit/internal/expr"
	"github.com/roach88/querykit/internal/meta"
	"github.com/roach88/querykit/internal/query"
)

// Unbounded is bound as the row count of "LIMIT ?,?" when no limit is set.
const Unbounded = math.MaxInt

// PreparedSQL is the output of Render.
type PreparedSQL struct {
	SQL  string
	Args []any

	// Selected lists the attribute behind each result column of an entity or
	// projection selection, fetch expansions included. It is nil for column
	// selections.
	Selected []*meta.Attribute

	// Arity is the number of result columns.
	Arity int
}

// Generator renders structures for one dialect.
//
// Generator holds no mutable state and is safe for concurrent use.
type Generator struct {
	dialect Dialect
}

// NewGenerator creates a generator for dialect.
func NewGenerator(dialect Dialect) *Generator {
	return &Generator{dialect: dialect}
}

// Dialect returns the generator's dialect.
func (g *Generator) Dialect() Dialect {
	return g.dialect
}

// Render converts s into SQL text and arguments, resolving column paths
// through m.
func (g *Generator) Render(s *query.Structure, m meta.Metamodel) (*PreparedSQL, error) {
	if s == nil {
		return nil, &RenderError{Code: ErrCodeUnsupportedExpression, Message: "nil structure"}
	}
	st := &statement{dialect: g.dialect, meta: m}
	r, err := newRenderer(st, s, 0)
	if err != nil {
		return nil, err
	}
	text, err := r.render()
	if err != nil {
		return nil, err
	}
	return &PreparedSQL{
		SQL:      text,
		Args:     st.args,
		Selected: r.selected,
		Arity:    r.arity,
	}, nil
}

// statement is the state shared by a query and its nested sub-queries.
type statement struct {
	dialect     Dialect
	meta        meta.Metamodel
	args        []any
	selectIndex int
}

type join struct {
	path   []string
	attr   *meta.Attribute
	target *meta.Entity
	alias  string
}

// renderer renders one query level.
type renderer struct {
	st        *statement
	s         *query.Structure
	entity    *meta.Entity // nil when reading from a sub-query
	subIndex  int
	fromAlias string

	// joins in first-seen order, indexed by dotted path
	joins     []join
	joinIndex map[string]int

	selected []*meta.Attribute
	arity    int
}

func newRenderer(st *statement, s *query.Structure, subIndex int) (*renderer, error) {
	r := &renderer{
		st:        st,
		s:         s,
		subIndex:  subIndex,
		joinIndex: make(map[string]int),
	}
	var prefix string
	switch f := s.From().(type) {
	case query.FromEntity:
		e, err := st.meta.Entity(f.Entity)
		if err != nil {
			return nil, &RenderError{Code: ErrCodeUnresolvedPath, Message: "unknown root entity", Expr: s.String(), Err: err}
		}
		r.entity = e
		prefix = aliasPrefix(e.Name)
	case query.FromSubQuery:
		prefix = "t"
	default:
		return nil, &RenderError{Code: ErrCodeUnsupportedExpression, Message: fmt.Sprintf("unknown from %T", s.From())}
	}
	if subIndex == 0 {
		r.fromAlias = prefix + "_"
	} else {
		r.fromAlias = prefix + strconv.Itoa(subIndex) + "_"
	}
	return r, nil
}

// render emits this level. Clauses are written in text order so arguments
// accumulate in placeholder order; joins carry no arguments and are spliced
// in after FROM once every path has been seen.
func (r *renderer) render() (string, error) {
	var head, tail strings.Builder

	head.WriteString("SELECT ")
	if err := r.writeSelect(&head); err != nil {
		return "", err
	}
	head.WriteString(" FROM ")
	if err := r.writeFrom(&head); err != nil {
		return "", err
	}
	if err := r.writeWhere(&tail); err != nil {
		return "", err
	}
	if err := r.writeGroupBy(&tail); err != nil {
		return "", err
	}
	if err := r.writeHaving(&tail); err != nil {
		return "", err
	}
	if err := r.writeOrderBy(&tail); err != nil {
		return "", err
	}
	r.writeLimit(&tail)

	joins, err := r.joinClause()
	if err != nil {
		return "", err
	}
	lock, err := r.st.dialect.LockSuffix(r.s.Lock())
	if err != nil {
		return "", &RenderError{Code: ErrCodeStructureMismatch, Message: err.Error(), Expr: r.s.String()}
	}
	return head.String() + joins + tail.String() + lock, nil
}

func (r *renderer) writeSelect(b *strings.Builder) error {
	items, err := r.selectItems()
	if err != nil {
		return err
	}
	r.arity = len(items)
	for i, item := range items {
		if i > 0 {
			b.WriteString(", ")
		}
		if err := r.writeExpr(b, item); err != nil {
			return err
		}
		if r.subIndex > 0 {
			fmt.Fprintf(b, " AS _%d", r.st.selectIndex)
			r.st.selectIndex++
		}
	}
	return nil
}

// selectItems expands the selection into result expressions and, for entity
// and projection selections, records the attribute behind each one.
func (r *renderer) selectItems() ([]expr.Expression, error) {
	var items []expr.Expression
	switch sel := r.s.Select().(type) {
	case query.SingleColumn:
		items = append(items, sel.Column)
	case query.MultiColumn:
		items = append(items, sel.Columns...)
	case query.EntitySelection:
		if r.entity == nil {
			return nil, &RenderError{Code: ErrCodeStructureMismatch, Message: "entity selection over a sub-query", Expr: r.s.String()}
		}
		var err error
		if items, err = r.entityItems(sel); err != nil {
			return nil, err
		}
		fetched, err := r.fetchItems()
		if err != nil {
			return nil, err
		}
		items = append(items, fetched...)
		if len(items) != len(r.selected) {
			return nil, &RenderError{
				Code:    ErrCodeStructureMismatch,
				Message: fmt.Sprintf("selection has %d columns but %d attributes", len(items), len(r.selected)),
				Expr:    r.s.String(),
			}
		}
	default:
		return nil, &RenderError{Code: ErrCodeUnsupportedExpression, Message: fmt.Sprintf("unknown selection %T", r.s.Select())}
	}
	if len(items) == 0 {
		return nil, &RenderError{Code: ErrCodeStructureMismatch, Message: "selection resolves to no columns", Expr: r.s.String()}
	}
	return items, nil
}

func (r *renderer) entityItems(sel query.EntitySelection) ([]expr.Expression, error) {
	var items []expr.Expression
	if sel.ResultType == r.entity.Name {
		for _, a := range r.entity.BasicAttributes() {
			items = append(items, expr.Col(a.Name))
			r.selected = append(r.selected, a)
		}
		return items, nil
	}

	p, err := r.st.meta.Projection(r.entity.Name, sel.ResultType)
	if err != nil {
		return nil, &RenderError{Code: ErrCodeStructureMismatch, Message: "unknown result type " + sel.ResultType, Expr: r.s.String(), Err: err}
	}
	for _, pa := range p.Attributes {
		a, ok := r.entity.Attribute(pa.Source)
		if !ok || a.Kind != meta.Basic {
			return nil, &RenderError{
				Code:    ErrCodeStructureMismatch,
				Message: fmt.Sprintf("projection %s field %s does not map to a basic attribute of %s", p.Name, pa.Name, r.entity.Name),
				Expr:    r.s.String(),
			}
		}
		items = append(items, expr.Col(a.Name))
		r.selected = append(r.selected, a)
	}
	return items, nil
}

// fetchItems appends every basic attribute of each fetched relationship.
func (r *renderer) fetchItems() ([]expr.Expression, error) {
	var items []expr.Expression
	for _, f := range r.s.Fetch() {
		res, err := meta.Resolve(r.st.meta, r.entity.Name, f.Path)
		if err != nil {
			return nil, &RenderError{Code: ErrCodeUnresolvedPath, Message: "cannot resolve fetch path", Expr: f.String(), Err: err}
		}
		if res.Attribute.Kind != meta.ToOne {
			return nil, &RenderError{Code: ErrCodeStructureMismatch, Message: "fetch path is not a to-one relationship", Expr: f.String()}
		}
		target, err := r.st.meta.Entity(res.Attribute.Target)
		if err != nil {
			return nil, &RenderError{Code: ErrCodeUnresolvedPath, Message: "cannot resolve fetch target", Expr: f.String(), Err: err}
		}
		for _, a := range target.BasicAttributes() {
			items = append(items, expr.Concat(f, a.Name))
			r.selected = append(r.selected, a)
		}
	}
	return items, nil
}

func (r *renderer) writeFrom(b *strings.Builder) error {
	switch f := r.s.From().(type) {
	case query.FromEntity:
		b.WriteString(r.st.dialect.QuoteIdent(r.entity.Table))
	case query.FromSubQuery:
		sub, err := newRenderer(r.st, f.Query, r.subIndex+1)
		if err != nil {
			return err
		}
		text, err := sub.render()
		if err != nil {
			return err
		}
		b.WriteString("(" + text + ")")
	}
	b.WriteString(" " + r.fromAlias)
	return nil
}

func (r *renderer) writeWhere(b *strings.Builder) error {
	where := r.s.Where()
	if where == nil || expr.IsTrue(where) {
		return nil
	}
	b.WriteString(" WHERE ")
	return r.writeExpr(b, where)
}

func (r *renderer) writeGroupBy(b *strings.Builder) error {
	groupBy := r.s.GroupBy()
	if len(groupBy) == 0 {
		return nil
	}
	b.WriteString(" GROUP BY ")
	for i, e := range groupBy {
		if i > 0 {
			b.WriteString(", ")
		}
		if err := r.writeExpr(b, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) writeHaving(b *strings.Builder) error {
	having := r.s.Having()
	if having == nil || expr.IsTrue(having) {
		return nil
	}
	b.WriteString(" HAVING ")
	return r.writeExpr(b, having)
}

func (r *renderer) writeOrderBy(b *strings.Builder) error {
	orderBy := r.s.OrderBy()
	if len(orderBy) == 0 {
		return nil
	}
	b.WriteString(" ORDER BY ")
	for i, o := range orderBy {
		if i > 0 {
			b.WriteString(", ")
		}
		if err := r.writeExpr(b, o.Expr); err != nil {
			return err
		}
		if o.Sort == query.Desc {
			b.WriteString(" DESC")
		} else {
			b.WriteString(" ASC")
		}
	}
	return nil
}

// writeLimit binds offset and limit for "LIMIT ?,?" when skipping rows.
// Otherwise a limit of 0 or 1 is inlined and larger limits are bound.
func (r *renderer) writeLimit(b *strings.Builder) {
	offset, limit := r.s.Offset(), r.s.Limit()
	switch {
	case offset > 0:
		b.WriteString(" LIMIT ?,?")
		if limit < 0 {
			limit = Unbounded
		}
		r.st.args = append(r.st.args, offset, limit)
	case limit >= 0:
		if limit <= 1 {
			fmt.Fprintf(b, " LIMIT %d", limit)
		} else {
			b.WriteString(" LIMIT ?")
			r.st.args = append(r.st.args, limit)
		}
	}
}

func (r *renderer) writeExpr(b *strings.Builder, e expr.Expression) error {
	switch e := e.(type) {
	case expr.Constant:
		if v, ok := e.Value.(bool); ok {
			if v {
				b.WriteString("1")
			} else {
				b.WriteString("0")
			}
			return nil
		}
		b.WriteString("?")
		r.st.args = append(r.st.args, e.Value)
		return nil
	case expr.Column:
		col, err := r.column(e)
		if err != nil {
			return err
		}
		b.WriteString(col)
		return nil
	case expr.Operation:
		return r.writeOperation(b, e)
	default:
		return &RenderError{Code: ErrCodeUnsupportedExpression, Message: fmt.Sprintf("unknown expression %T", e)}
	}
}

func (r *renderer) writeOperation(b *strings.Builder, op expr.Operation) error {
	o := op.Operator
	if !o.Valid() {
		return &RenderError{Code: ErrCodeUnsupportedOperator, Message: fmt.Sprintf("unknown operator %v", o)}
	}
	rank := o.Precedence()

	switch o.Family() {
	case expr.FamilyUnary:
		b.WriteString(o.Sign() + " ")
		return r.writeOperand(b, op.Operand, rank)

	case expr.FamilyInfix:
		if err := r.writeOperand(b, op.Operand, rank); err != nil {
			return err
		}
		for _, arg := range op.Args {
			b.WriteString(" " + o.Sign() + " ")
			if err := r.writeArg(b, arg, rank); err != nil {
				return err
			}
		}
		return nil

	case expr.FamilyFunction:
		b.WriteString(o.Sign() + "(")
		if err := r.writeExpr(b, op.Operand); err != nil {
			return err
		}
		for _, arg := range op.Args {
			b.WriteString(", ")
			if err := r.writeExpr(b, arg); err != nil {
				return err
			}
		}
		b.WriteString(")")
		return nil

	case expr.FamilyList:
		if len(op.Args) == 0 {
			// Empty lists are invalid SQL: IN () is always false, NOT IN () always true.
			if o == expr.NOT_IN {
				b.WriteString("1")
			} else {
				b.WriteString("0")
			}
			return nil
		}
		if err := r.writeOperand(b, op.Operand, rank); err != nil {
			return err
		}
		b.WriteString(" " + o.Sign() + " (")
		for i, arg := range op.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			if err := r.writeExpr(b, arg); err != nil {
				return err
			}
		}
		b.WriteString(")")
		return nil

	case expr.FamilyRange:
		if len(op.Args) != 2 {
			return &RenderError{
				Code:    ErrCodeUnsupportedOperator,
				Message: fmt.Sprintf("%v takes 2 arguments, got %d", o, len(op.Args)),
				Expr:    op.String(),
			}
		}
		lower := expr.Operation{Operand: op.Operand, Operator: expr.GE, Args: op.Args[:1]}
		upper := expr.Operation{Operand: op.Operand, Operator: expr.LE, Args: op.Args[1:]}
		return r.writeOperation(b, expr.Operation{Operand: lower, Operator: expr.AND, Args: []expr.Expression{upper}})

	case expr.FamilyPostfix:
		if err := r.writeOperand(b, op.Operand, rank); err != nil {
			return err
		}
		b.WriteString(" " + o.Sign())
		return nil

	default:
		return &RenderError{Code: ErrCodeUnsupportedOperator, Message: fmt.Sprintf("no rendering rule for %v", o), Expr: op.String()}
	}
}

// writeOperand parenthesizes a primary operand that binds looser than rank.
func (r *renderer) writeOperand(b *strings.Builder, e expr.Expression, rank int) error {
	return r.writeWrapped(b, e, func(child int) bool { return child > rank })
}

// writeArg parenthesizes an argument that binds looser than or as loose as
// rank, keeping left associativity without redundant parentheses.
func (r *renderer) writeArg(b *strings.Builder, e expr.Expression, rank int) error {
	return r.writeWrapped(b, e, func(child int) bool { return child >= rank })
}

func (r *renderer) writeWrapped(b *strings.Builder, e expr.Expression, wrap func(child int) bool) error {
	op, ok := e.(expr.Operation)
	if !ok || !wrap(op.Operator.Precedence()) {
		return r.writeExpr(b, e)
	}
	b.WriteString("(")
	if err := r.writeExpr(b, e); err != nil {
		return err
	}
	b.WriteString(")")
	return nil
}

// column renders a path as alias.column, registering the joins its
// relationship prefixes need. A path ending on a relationship renders the
// join column.
func (r *renderer) column(c expr.Column) (string, error) {
	if r.entity == nil {
		return "", &RenderError{Code: ErrCodeStructureMismatch, Message: "column references cannot be resolved against a sub-query", Expr: c.String()}
	}
	res, err := meta.Resolve(r.st.meta, r.entity.Name, c.Path)
	if err != nil {
		return "", &RenderError{Code: ErrCodeUnresolvedPath, Message: "cannot resolve column", Expr: c.String(), Err: err}
	}
	alias := r.fromAlias
	if len(c.Path) > 1 {
		if alias, err = r.joinAlias(c.Path[:len(c.Path)-1]); err != nil {
			return "", err
		}
	}
	name := res.Attribute.Column
	if res.Attribute.Kind == meta.ToOne {
		name = res.Attribute.JoinColumn
	}
	return alias + "." + name, nil
}

// joinAlias returns the alias of the join for path, adding it and any missing
// parent joins first.
func (r *renderer) joinAlias(path []string) (string, error) {
	for i := 1; i <= len(path); i++ {
		key := strings.Join(path[:i], ".")
		if _, ok := r.joinIndex[key]; ok {
			continue
		}
		res, err := meta.Resolve(r.st.meta, r.entity.Name, path[:i])
		if err != nil {
			return "", &RenderError{Code: ErrCodeUnresolvedPath, Message: "cannot resolve join", Expr: key, Err: err}
		}
		target, err := r.st.meta.Entity(res.Attribute.Target)
		if err != nil {
			return "", &RenderError{Code: ErrCodeUnresolvedPath, Message: "cannot resolve join target", Expr: key, Err: err}
		}
		index := len(r.joins)
		alias := aliasPrefix(target.Name)
		if r.subIndex > 0 {
			alias += strconv.Itoa(r.subIndex) + "_"
		}
		alias += strconv.Itoa(index) + "_"
		r.joins = append(r.joins, join{path: path[:i], attr: res.Attribute, target: target, alias: alias})
		r.joinIndex[key] = index
	}
	return r.joins[r.joinIndex[strings.Join(path, ".")]].alias, nil
}

func (r *renderer) joinClause() (string, error) {
	var b strings.Builder
	for _, j := range r.joins {
		parent := r.fromAlias
		if len(j.path) > 1 {
			parent = r.joins[r.joinIndex[strings.Join(j.path[:len(j.path)-1], ".")]].alias
		}
		referenced, err := meta.ReferencedColumn(r.st.meta, j.attr)
		if err != nil {
			return "", &RenderError{Code: ErrCodeUnresolvedPath, Message: "cannot resolve referenced column", Expr: strings.Join(j.path, "."), Err: err}
		}
		fmt.Fprintf(&b, " LEFT JOIN %s %s ON %s.%s = %s.%s",
			r.st.dialect.QuoteIdent(j.target.Table), j.alias,
			parent, j.attr.JoinColumn, j.alias, referenced)
	}
	return b.String(), nil
}

// aliasPrefix is the first four letters or digits of the lower-cased,
// NFC-normalized entity name, minus trailing digits. Aliases append digit
// indexes to the prefix, so a prefix ending in a digit could collide.
func aliasPrefix(name string) string {
	lowered := cases.Lower(language.Und).String(norm.NFC.String(name))
	prefix := make([]rune, 0, 4)
	for _, r := range lowered {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		prefix = append(prefix, r)
		if len(prefix) == 4 {
			break
		}
	}
	for len(prefix) > 0 && unicode.IsDigit(prefix[len(prefix)-1]) {
		prefix = prefix[:len(prefix)-1]
	}
	if len(prefix) == 0 {
		return "t"
	}
	return string(prefix)
}
