package meta

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrUnknownEntity is returned when an entity name is not registered.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrUnknownProjection is returned when a projection name is not registered.
	ErrUnknownProjection = errors.New("unknown projection")

	// ErrUnknownAttribute is returned when a path segment names no attribute.
	ErrUnknownAttribute = errors.New("unknown attribute")

	// ErrNotRelationship is returned when a path crosses a basic attribute.
	ErrNotRelationship = errors.New("attribute is not a relationship")
)

// Metamodel resolves entity and projection names to their mapping metadata.
type Metamodel interface {
	Entity(name string) (*Entity, error)
	Projection(entity, name string) (*Projection, error)
}

// AttributeKind distinguishes column attributes from relationships.
type AttributeKind int

const (
	// Basic attributes map to a column of the owning table.
	Basic AttributeKind = iota + 1
	// ToOne attributes reference exactly one row of the target entity.
	ToOne
)

func (k AttributeKind) String() string {
	switch k {
	case Basic:
		return "basic"
	case ToOne:
		return "to-one"
	default:
		return fmt.Sprintf("AttributeKind(%d)", int(k))
	}
}

// Attribute describes one field of an entity.
type Attribute struct {
	Name string
	Kind AttributeKind

	// Column is the column name of a basic attribute.
	Column string

	// JoinColumn is the foreign-key column on the owning table (to-one only).
	JoinColumn string

	// ReferencedColumn is the column on the target table. Empty means the
	// target entity's id column.
	ReferencedColumn string

	// Target is the referenced entity name (to-one only).
	Target string
}

// BasicAttribute declares a column attribute. An empty column defaults to the
// attribute name.
func BasicAttribute(name, column string) *Attribute {
	if column == "" {
		column = name
	}
	return &Attribute{Name: name, Kind: Basic, Column: column}
}

// ToOneAttribute declares a relationship joined through joinColumn.
func ToOneAttribute(name, target, joinColumn string) *Attribute {
	return &Attribute{Name: name, Kind: ToOne, Target: target, JoinColumn: joinColumn}
}

func (a *Attribute) String() string {
	if a.Kind == ToOne {
		return fmt.Sprintf("%s -> %s (%s)", a.Name, a.Target, a.JoinColumn)
	}
	return fmt.Sprintf("%s (%s)", a.Name, a.Column)
}

// Entity maps a logical type to a table.
type Entity struct {
	Name  string
	Table string
	// ID names the identifying attribute.
	ID         string
	Attributes []*Attribute

	byName map[string]*Attribute
}

// NewEntity builds an entity whose id attribute is "id".
func NewEntity(name, table string, attrs ...*Attribute) *Entity {
	e := &Entity{Name: name, Table: table, ID: "id", Attributes: attrs}
	e.index()
	return e
}

func (e *Entity) index() {
	e.byName = make(map[string]*Attribute, len(e.Attributes))
	for _, a := range e.Attributes {
		e.byName[a.Name] = a
	}
}

// Attribute returns the attribute with the given name.
func (e *Entity) Attribute(name string) (*Attribute, bool) {
	if e.byName == nil {
		e.index()
	}
	a, ok := e.byName[name]
	return a, ok
}

// BasicAttributes returns the column attributes in declaration order.
func (e *Entity) BasicAttributes() []*Attribute {
	var out []*Attribute
	for _, a := range e.Attributes {
		if a.Kind == Basic {
			out = append(out, a)
		}
	}
	return out
}

// IDColumn returns the column of the identifying attribute.
func (e *Entity) IDColumn() (string, error) {
	a, ok := e.Attribute(e.ID)
	if !ok || a.Kind != Basic {
		return "", fmt.Errorf("entity %s: id attribute %q is not a basic attribute", e.Name, e.ID)
	}
	return a.Column, nil
}

// ProjectionAttribute maps a projection field to a basic attribute of the
// projected entity.
type ProjectionAttribute struct {
	Name   string
	Source string
}

// Projection is a named subset of an entity's attributes.
type Projection struct {
	Name       string
	Entity     string
	Attributes []ProjectionAttribute
}

// Schema is an in-memory Metamodel.
type Schema struct {
	entities    map[string]*Entity
	order       []string
	projections map[string]*Projection
}

// NewSchema returns an empty schema.
func NewSchema() *Schema {
	return &Schema{
		entities:    make(map[string]*Entity),
		projections: make(map[string]*Projection),
	}
}

// AddEntity registers an entity. Names must be unique.
func (s *Schema) AddEntity(e *Entity) error {
	if e.Name == "" {
		return fmt.Errorf("entity name is required")
	}
	if _, exists := s.entities[e.Name]; exists {
		return fmt.Errorf("entity %s declared twice", e.Name)
	}
	if e.Table == "" {
		return fmt.Errorf("entity %s: table is required", e.Name)
	}
	if e.ID == "" {
		e.ID = "id"
	}
	e.index()
	if len(e.byName) != len(e.Attributes) {
		return fmt.Errorf("entity %s: duplicate attribute names", e.Name)
	}
	s.entities[e.Name] = e
	s.order = append(s.order, e.Name)
	return nil
}

// AddProjection registers a projection of an entity.
func (s *Schema) AddProjection(p *Projection) error {
	key := projectionKey(p.Entity, p.Name)
	if _, exists := s.projections[key]; exists {
		return fmt.Errorf("projection %s of %s declared twice", p.Name, p.Entity)
	}
	s.projections[key] = p
	return nil
}

// MustEntity registers entities and panics on error. Intended for fixtures.
func (s *Schema) MustEntity(entities ...*Entity) *Schema {
	for _, e := range entities {
		if err := s.AddEntity(e); err != nil {
			panic(err)
		}
	}
	return s
}

// Validate checks cross references: every entity has a basic id attribute,
// every relationship targets a registered entity with a resolvable
// referenced column, and every projection sources basic attributes.
func (s *Schema) Validate() error {
	var errs []error
	for _, name := range s.order {
		e := s.entities[name]
		if _, err := e.IDColumn(); err != nil {
			errs = append(errs, err)
		}
		for _, a := range e.Attributes {
			switch a.Kind {
			case Basic:
				if a.Column == "" {
					errs = append(errs, fmt.Errorf("entity %s: attribute %s has no column", e.Name, a.Name))
				}
			case ToOne:
				target, ok := s.entities[a.Target]
				if !ok {
					errs = append(errs, fmt.Errorf("entity %s: attribute %s: %w %q", e.Name, a.Name, ErrUnknownEntity, a.Target))
					continue
				}
				if a.JoinColumn == "" {
					errs = append(errs, fmt.Errorf("entity %s: attribute %s has no join column", e.Name, a.Name))
				}
				if a.ReferencedColumn == "" {
					if _, err := target.IDColumn(); err != nil {
						errs = append(errs, err)
					}
				}
			default:
				errs = append(errs, fmt.Errorf("entity %s: attribute %s has unknown kind %v", e.Name, a.Name, a.Kind))
			}
		}
	}

	keys := make([]string, 0, len(s.projections))
	for k := range s.projections {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p := s.projections[k]
		e, ok := s.entities[p.Entity]
		if !ok {
			errs = append(errs, fmt.Errorf("projection %s: %w %q", p.Name, ErrUnknownEntity, p.Entity))
			continue
		}
		for _, pa := range p.Attributes {
			a, ok := e.Attribute(pa.Source)
			if !ok {
				errs = append(errs, fmt.Errorf("projection %s: field %s: %w %s.%s", p.Name, pa.Name, ErrUnknownAttribute, e.Name, pa.Source))
				continue
			}
			if a.Kind != Basic {
				errs = append(errs, fmt.Errorf("projection %s: field %s must source a basic attribute", p.Name, pa.Name))
			}
		}
	}
	return errors.Join(errs...)
}

// Entity implements Metamodel.
func (s *Schema) Entity(name string) (*Entity, error) {
	e, ok := s.entities[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, name)
	}
	return e, nil
}

// Projection implements Metamodel.
func (s *Schema) Projection(entity, name string) (*Projection, error) {
	p, ok := s.projections[projectionKey(entity, name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s of %s", ErrUnknownProjection, name, entity)
	}
	return p, nil
}

// Entities returns the registered entities in declaration order.
func (s *Schema) Entities() []*Entity {
	out := make([]*Entity, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.entities[name])
	}
	return out
}

// Projections returns the registered projections sorted by entity and name.
func (s *Schema) Projections() []*Projection {
	keys := make([]string, 0, len(s.projections))
	for k := range s.projections {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*Projection, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.projections[k])
	}
	return out
}

func projectionKey(entity, name string) string {
	return entity + "/" + name
}
