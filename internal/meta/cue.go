package meta

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

// SchemaError reports a malformed schema declaration with its CUE position
// when one is known.
type SchemaError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *SchemaError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &SchemaError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return err
}

// LoadCUE loads the CUE package in dir and compiles its entity and projection
// declarations into a validated Schema.
func LoadCUE(dir string) (*Schema, error) {
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("loading CUE files in %s: no instances", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("loading CUE files in %s: %w", dir, inst.Err)
	}
	value := cuecontext.New().BuildInstance(inst)
	return CompileCUE(value)
}

// ParseCUE compiles CUE source text into a validated Schema.
func ParseCUE(src string) (*Schema, error) {
	return CompileCUE(cuecontext.New().CompileString(src))
}

// CompileCUE converts a CUE value carrying top-level "entity" and
// "projection" structs into a validated Schema.
func CompileCUE(v cue.Value) (*Schema, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	schema := NewSchema()

	entities := v.LookupPath(cue.ParsePath("entity"))
	if !entities.Exists() {
		return nil, &SchemaError{Field: "entity", Message: "at least one entity is required", Pos: v.Pos()}
	}
	iter, err := entities.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		e, err := compileEntity(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		if err := schema.AddEntity(e); err != nil {
			return nil, &SchemaError{Field: "entity." + e.Name, Message: err.Error(), Pos: iter.Value().Pos()}
		}
	}

	projections := v.LookupPath(cue.ParsePath("projection"))
	if projections.Exists() {
		iter, err := projections.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			p, err := compileProjection(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			if err := schema.AddProjection(p); err != nil {
				return nil, &SchemaError{Field: "projection." + p.Name, Message: err.Error(), Pos: iter.Value().Pos()}
			}
		}
	}

	if err := schema.Validate(); err != nil {
		return nil, err
	}
	return schema, nil
}

func compileEntity(name string, v cue.Value) (*Entity, error) {
	e := &Entity{Name: name, Table: name, ID: "id"}

	if table, ok, err := optionalString(v, "table"); err != nil {
		return nil, err
	} else if ok {
		e.Table = table
	}
	if id, ok, err := optionalString(v, "id"); err != nil {
		return nil, err
	} else if ok {
		e.ID = id
	}

	attrs := v.LookupPath(cue.ParsePath("attributes"))
	if !attrs.Exists() {
		return nil, &SchemaError{Field: "entity." + name, Message: "attributes are required", Pos: v.Pos()}
	}
	iter, err := attrs.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		attr, err := compileAttribute(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		e.Attributes = append(e.Attributes, attr)
	}
	return e, nil
}

// compileAttribute accepts either a column name string or a struct with
// column, or references plus joinColumn and optional referencedColumn.
func compileAttribute(name string, v cue.Value) (*Attribute, error) {
	if v.IncompleteKind() == cue.StringKind {
		column, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return BasicAttribute(name, column), nil
	}
	if v.IncompleteKind() != cue.StructKind {
		return nil, &SchemaError{Field: "attributes." + name, Message: "must be a column name or a struct", Pos: v.Pos()}
	}

	target, isRef, err := optionalString(v, "references")
	if err != nil {
		return nil, err
	}
	if isRef {
		join, ok, err := optionalString(v, "joinColumn")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &SchemaError{Field: "attributes." + name, Message: "joinColumn is required for references", Pos: v.Pos()}
		}
		attr := ToOneAttribute(name, target, join)
		if ref, ok, err := optionalString(v, "referencedColumn"); err != nil {
			return nil, err
		} else if ok {
			attr.ReferencedColumn = ref
		}
		return attr, nil
	}

	column, _, err := optionalString(v, "column")
	if err != nil {
		return nil, err
	}
	return BasicAttribute(name, column), nil
}

func compileProjection(name string, v cue.Value) (*Projection, error) {
	entity, ok, err := optionalString(v, "entity")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &SchemaError{Field: "projection." + name, Message: "entity is required", Pos: v.Pos()}
	}
	p := &Projection{Name: name, Entity: entity}

	attrs := v.LookupPath(cue.ParsePath("attributes"))
	if !attrs.Exists() {
		return nil, &SchemaError{Field: "projection." + name, Message: "attributes are required", Pos: v.Pos()}
	}
	iter, err := attrs.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		source, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		p.Attributes = append(p.Attributes, ProjectionAttribute{Name: iter.Label(), Source: source})
	}
	return p, nil
}

func optionalString(v cue.Value, field string) (string, bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", false, nil
	}
	s, err := fv.String()
	if err != nil {
		return "", false, formatCUEError(err)
	}
	return s, true, nil
}
