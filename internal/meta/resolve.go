package meta

import (
	"fmt"
	"strings"
)

// Resolution is the attribute a path ends on, together with the entity that
// declares it.
type Resolution struct {
	Attribute *Attribute
	Owner     *Entity
}

// Resolve walks path from the root entity. Every segment but the last must
// name a to-one relationship.
func Resolve(m Metamodel, root string, path []string) (Resolution, error) {
	if len(path) == 0 {
		return Resolution{}, fmt.Errorf("empty path on %s", root)
	}
	entity, err := m.Entity(root)
	if err != nil {
		return Resolution{}, err
	}
	for i, segment := range path {
		attr, ok := entity.Attribute(segment)
		if !ok {
			return Resolution{}, fmt.Errorf("%w: %s.%s (path %s)", ErrUnknownAttribute, entity.Name, segment, strings.Join(path, "."))
		}
		if i == len(path)-1 {
			return Resolution{Attribute: attr, Owner: entity}, nil
		}
		if attr.Kind != ToOne {
			return Resolution{}, fmt.Errorf("%w: %s.%s (path %s)", ErrNotRelationship, entity.Name, segment, strings.Join(path, "."))
		}
		entity, err = m.Entity(attr.Target)
		if err != nil {
			return Resolution{}, err
		}
	}
	panic("unreachable")
}

// ReferencedColumn returns the target-side join column of a to-one attribute.
func ReferencedColumn(m Metamodel, attr *Attribute) (string, error) {
	if attr.Kind != ToOne {
		return "", fmt.Errorf("%w: %s", ErrNotRelationship, attr.Name)
	}
	if attr.ReferencedColumn != "" {
		return attr.ReferencedColumn, nil
	}
	target, err := m.Entity(attr.Target)
	if err != nil {
		return "", err
	}
	return target.IDColumn()
}
