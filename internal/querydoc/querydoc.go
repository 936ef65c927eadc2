// Package querydoc reads one query from a YAML document.
//
//	name: adults-in-sales
//	from: User
//	select: [username, {max: [age]}]
//	where:
//	  and:
//	    - ge: [age, 18]
//	    - eq: [department.name, Sales]
//	group_by: [username]
//	order_by: ["username desc"]
//	terminal: slice
//	offset: 0
//	limit: 10
//
// Expressions are written as single-key maps naming an operator, followed by
// the operand and its arguments. In operand position a string is a column
// path; in argument position it is a constant. {col: path} and {value: x}
// spell either out explicitly.
package querydoc

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/querykit/internal/expr"
	"github.com/roach88/querykit/internal/query"
)

// Terminal names the collector call a document runs.
type Terminal string

const (
	TerminalList   Terminal = "list"
	TerminalCount  Terminal = "count"
	TerminalExist  Terminal = "exist"
	TerminalSlice  Terminal = "slice"
	TerminalFirst  Terminal = "first"
	TerminalSingle Terminal = "single"
)

// Document is the YAML shape of a query.
type Document struct {
	Name       string      `yaml:"name,omitempty"`
	From       string      `yaml:"from"`
	Select     []yaml.Node `yaml:"select,omitempty"`
	Projection string      `yaml:"projection,omitempty"`
	Fetch      []string    `yaml:"fetch,omitempty"`
	Where      yaml.Node   `yaml:"where,omitempty"`
	GroupBy    []yaml.Node `yaml:"group_by,omitempty"`
	Having     yaml.Node   `yaml:"having,omitempty"`
	OrderBy    []yaml.Node `yaml:"order_by,omitempty"`
	Terminal   Terminal    `yaml:"terminal,omitempty"`
	Offset     *int        `yaml:"offset,omitempty"`
	Limit      *int        `yaml:"limit,omitempty"`
	Lock       string      `yaml:"lock,omitempty"`
}

// Query is a decoded document: the accumulated structure plus the terminal
// call and its arguments.
type Query struct {
	Name      string
	Structure *query.Structure
	Terminal  Terminal
	Offset    int
	Limit     int
	Lock      query.LockType
}

// Derivation is one structure a terminal would execute.
type Derivation struct {
	Name      string
	Structure *query.Structure
}

// Derive returns the structures the terminal executes, in order. Slice
// yields its count and list structures.
func (q *Query) Derive() []Derivation {
	s := q.Structure
	switch q.Terminal {
	case TerminalCount:
		return []Derivation{{"count", s.Count()}}
	case TerminalExist:
		return []Derivation{{"exist", s.Exist(q.Offset)}}
	case TerminalSlice:
		slice := s.Slice(q.Offset, q.Limit)
		return []Derivation{{"count", slice.Count}, {"list", slice.List}}
	case TerminalFirst:
		return []Derivation{{"first", s.List(q.Offset, 1, q.Lock)}}
	case TerminalSingle:
		return []Derivation{{"single", s.List(q.Offset, 2, q.Lock)}}
	default:
		return []Derivation{{"list", s.List(q.Offset, q.Limit, q.Lock)}}
	}
}

// DocError reports an invalid document field.
type DocError struct {
	Field   string
	Line    int
	Message string
}

func (e *DocError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads and decodes the document at path.
func Load(path string) (*Query, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read query file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a document. Unknown fields are rejected.
func Parse(data []byte) (*Query, error) {
	var doc Document
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	q, err := doc.Compile()
	if err != nil {
		return nil, fmt.Errorf("invalid query document: %w", err)
	}
	return q, nil
}

// Compile turns the document into a Query.
func (d *Document) Compile() (*Query, error) {
	if d.From == "" {
		return nil, &DocError{Field: "from", Message: "entity is required"}
	}
	if len(d.Select) > 0 && d.Projection != "" {
		return nil, &DocError{Field: "projection", Message: "cannot be combined with select"}
	}
	if len(d.Fetch) > 0 && len(d.Select) > 0 {
		return nil, &DocError{Field: "fetch", Message: "requires an entity or projection selection"}
	}

	s := query.New(d.From)

	switch {
	case d.Projection != "":
		s = s.WithSelect(query.EntitySelection{ResultType: d.Projection})
	case len(d.Select) == 1:
		col, err := operand("select", &d.Select[0])
		if err != nil {
			return nil, err
		}
		s = s.WithSelect(query.SingleColumn{Column: col})
	case len(d.Select) > 1:
		cols, err := operands("select", d.Select)
		if err != nil {
			return nil, err
		}
		s = s.WithSelect(query.MultiColumn{Columns: cols})
	}

	if len(d.Fetch) > 0 {
		fetch := make([]expr.Column, len(d.Fetch))
		for i, p := range d.Fetch {
			fetch[i] = expr.Path(p)
		}
		s = s.WithFetch(fetch...)
	}

	if !isEmpty(&d.Where) {
		where, err := operand("where", &d.Where)
		if err != nil {
			return nil, err
		}
		s = s.WithWhere(where)
	}

	if len(d.GroupBy) > 0 {
		groupBy, err := operands("group_by", d.GroupBy)
		if err != nil {
			return nil, err
		}
		s = s.WithGroupBy(groupBy...)
	}

	if !isEmpty(&d.Having) {
		having, err := operand("having", &d.Having)
		if err != nil {
			return nil, err
		}
		s = s.WithHaving(having)
	}

	if len(d.OrderBy) > 0 {
		orders := make([]query.Order, len(d.OrderBy))
		for i := range d.OrderBy {
			o, err := order(&d.OrderBy[i])
			if err != nil {
				return nil, err
			}
			orders[i] = o
		}
		s = s.WithOrderBy(orders...)
	}

	terminal := d.Terminal
	if terminal == "" {
		terminal = TerminalList
	}
	switch terminal {
	case TerminalList, TerminalCount, TerminalExist, TerminalSlice, TerminalFirst, TerminalSingle:
	default:
		return nil, &DocError{Field: "terminal", Message: fmt.Sprintf("unknown terminal %q", terminal)}
	}

	lock, err := query.ParseLockType(d.Lock)
	if err != nil {
		return nil, &DocError{Field: "lock", Message: err.Error()}
	}

	q := &Query{
		Name:      d.Name,
		Structure: s,
		Terminal:  terminal,
		Offset:    -1,
		Limit:     -1,
		Lock:      lock,
	}
	if d.Offset != nil {
		q.Offset = *d.Offset
	}
	if d.Limit != nil {
		q.Limit = *d.Limit
	}
	if q.Terminal == TerminalExist && q.Offset < 0 {
		q.Offset = 0
	}
	return q, nil
}

func isEmpty(n *yaml.Node) bool {
	return n.Kind == 0 || (n.Kind == yaml.ScalarNode && n.Tag == "!!null")
}

// order reads "path [asc|desc]" or {expr: <expression>, sort: asc|desc}.
func order(n *yaml.Node) (query.Order, error) {
	if n.Kind == yaml.ScalarNode {
		fields := strings.Fields(n.Value)
		if len(fields) == 0 || len(fields) > 2 {
			return query.Order{}, nodeError("order_by", n, fmt.Sprintf("expected \"path [asc|desc]\", got %q", n.Value))
		}
		sort := query.Asc
		if len(fields) == 2 {
			var err error
			if sort, err = parseSort(fields[1]); err != nil {
				return query.Order{}, nodeError("order_by", n, err.Error())
			}
		}
		return query.Order{Expr: expr.Path(fields[0]), Sort: sort}, nil
	}

	var entry struct {
		Expr yaml.Node `yaml:"expr"`
		Sort string    `yaml:"sort"`
	}
	if err := n.Decode(&entry); err != nil {
		return query.Order{}, nodeError("order_by", n, err.Error())
	}
	if isEmpty(&entry.Expr) {
		return query.Order{}, nodeError("order_by", n, "expr is required")
	}
	e, err := operand("order_by", &entry.Expr)
	if err != nil {
		return query.Order{}, err
	}
	sort, err := parseSort(entry.Sort)
	if err != nil {
		return query.Order{}, nodeError("order_by", n, err.Error())
	}
	return query.Order{Expr: e, Sort: sort}, nil
}

func parseSort(s string) (query.SortOrder, error) {
	switch strings.ToLower(s) {
	case "", "asc":
		return query.Asc, nil
	case "desc":
		return query.Desc, nil
	default:
		return 0, fmt.Errorf("unknown sort order %q", s)
	}
}

func nodeError(field string, n *yaml.Node, msg string) *DocError {
	return &DocError{Field: field, Line: n.Line, Message: msg}
}
