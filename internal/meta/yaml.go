package meta

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// yamlSchema is the YAML form of a schema. Entities and attributes are lists
// so declaration order survives decoding.
type yamlSchema struct {
	Entities    []yamlEntity     `yaml:"entities"`
	Projections []yamlProjection `yaml:"projections"`
}

type yamlEntity struct {
	Name       string          `yaml:"name"`
	Table      string          `yaml:"table"`
	ID         string          `yaml:"id"`
	Attributes []yamlAttribute `yaml:"attributes"`
}

type yamlAttribute struct {
	Name             string `yaml:"name"`
	Column           string `yaml:"column,omitempty"`
	References       string `yaml:"references,omitempty"`
	JoinColumn       string `yaml:"join_column,omitempty"`
	ReferencedColumn string `yaml:"referenced_column,omitempty"`
}

type yamlProjection struct {
	Name       string                `yaml:"name"`
	Entity     string                `yaml:"entity"`
	Attributes []yamlProjectionField `yaml:"attributes"`
}

type yamlProjectionField struct {
	Name   string `yaml:"name"`
	Source string `yaml:"source"`
}

// ParseYAML decodes a YAML schema document into a validated Schema.
func ParseYAML(data []byte) (*Schema, error) {
	var doc yamlSchema
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing schema YAML: %w", err)
	}
	if len(doc.Entities) == 0 {
		return nil, fmt.Errorf("parsing schema YAML: at least one entity is required")
	}

	schema := NewSchema()
	for _, ye := range doc.Entities {
		table := ye.Table
		if table == "" {
			table = ye.Name
		}
		e := &Entity{Name: ye.Name, Table: table, ID: ye.ID}
		for _, ya := range ye.Attributes {
			if ya.References != "" {
				attr := ToOneAttribute(ya.Name, ya.References, ya.JoinColumn)
				attr.ReferencedColumn = ya.ReferencedColumn
				e.Attributes = append(e.Attributes, attr)
				continue
			}
			e.Attributes = append(e.Attributes, BasicAttribute(ya.Name, ya.Column))
		}
		if err := schema.AddEntity(e); err != nil {
			return nil, err
		}
	}
	for _, yp := range doc.Projections {
		p := &Projection{Name: yp.Name, Entity: yp.Entity}
		for _, f := range yp.Attributes {
			p.Attributes = append(p.Attributes, ProjectionAttribute{Name: f.Name, Source: f.Source})
		}
		if err := schema.AddProjection(p); err != nil {
			return nil, err
		}
	}

	if err := schema.Validate(); err != nil {
		return nil, err
	}
	return schema, nil
}
