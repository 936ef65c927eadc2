package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/querykit/internal/meta"
)

// AttributeInfo describes one attribute in schema output.
type AttributeInfo struct {
	Name             string `json:"name"`
	Kind             string `json:"kind"`
	Column           string `json:"column,omitempty"`
	Target           string `json:"target,omitempty"`
	JoinColumn       string `json:"join_column,omitempty"`
	ReferencedColumn string `json:"referenced_column,omitempty"`
}

// EntityInfo describes one entity in schema output.
type EntityInfo struct {
	Name       string          `json:"name"`
	Table      string          `json:"table"`
	ID         string          `json:"id"`
	Attributes []AttributeInfo `json:"attributes"`
}

// ProjectionInfo describes one projection in schema output.
type ProjectionInfo struct {
	Name       string            `json:"name"`
	Entity     string            `json:"entity"`
	Attributes map[string]string `json:"attributes"`
}

// SchemaResult is the output of the schema command.
type SchemaResult struct {
	Entities    []EntityInfo     `json:"entities"`
	Projections []ProjectionInfo `json:"projections,omitempty"`
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the loaded metamodel",
		Long: `Load the configured metamodel, validate it and print its entities,
attributes and projections.

Example:
  querykit schema --schema ./schema
  querykit schema --schema schema.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(rootOpts, cmd)
		},
	}
	return cmd
}

func runSchema(opts *RootOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	schema, err := opts.loadSchema(f)
	if err != nil {
		return err
	}

	result := describeSchema(schema)

	var b strings.Builder
	for _, e := range result.Entities {
		fmt.Fprintf(&b, "%s (table %s, id %s)\n", e.Name, e.Table, e.ID)
		for _, a := range e.Attributes {
			if a.Kind == meta.ToOne.String() {
				fmt.Fprintf(&b, "  %s -> %s (%s = %s)\n", a.Name, a.Target, a.JoinColumn, a.ReferencedColumn)
				continue
			}
			fmt.Fprintf(&b, "  %s (%s)\n", a.Name, a.Column)
		}
	}
	for _, p := range schema.Projections() {
		fmt.Fprintf(&b, "projection %s of %s\n", p.Name, p.Entity)
		for _, a := range p.Attributes {
			fmt.Fprintf(&b, "  %s <- %s\n", a.Name, a.Source)
		}
	}
	return f.Success(result, b.String())
}

func describeSchema(schema *meta.Schema) SchemaResult {
	var result SchemaResult
	for _, e := range schema.Entities() {
		info := EntityInfo{Name: e.Name, Table: e.Table, ID: e.ID}
		for _, a := range e.Attributes {
			ai := AttributeInfo{Name: a.Name, Kind: a.Kind.String()}
			if a.Kind == meta.ToOne {
				ai.Target = a.Target
				ai.JoinColumn = a.JoinColumn
				ai.ReferencedColumn, _ = meta.ReferencedColumn(schema, a)
			} else {
				ai.Column = a.Column
			}
			info.Attributes = append(info.Attributes, ai)
		}
		result.Entities = append(result.Entities, info)
	}
	for _, p := range schema.Projections() {
		attrs := make(map[string]string, len(p.Attributes))
		for _, a := range p.Attributes {
			attrs[a.Name] = a.Source
		}
		result.Projections = append(result.Projections, ProjectionInfo{Name: p.Name, Entity: p.Entity, Attributes: attrs})
	}
	return result
}
