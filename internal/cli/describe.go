package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// DescribedStructure is the debug form of one derived structure.
type DescribedStructure struct {
	Name      string `json:"name"`
	Structure string `json:"structure"`
}

// DescribeResult is the output of the describe command.
type DescribeResult struct {
	Query       string               `json:"query,omitempty"`
	Terminal    string               `json:"terminal"`
	Structure   string               `json:"structure"`
	Derivations []DescribedStructure `json:"derivations"`
}

// NewDescribeCommand creates the describe command.
func NewDescribeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe <query.yaml>",
		Short: "Print the structures a query document derives",
		Long: `Print the accumulated query structure and the structures derived for
its terminal, in debug text form. No schema is needed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runDescribe(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	q, err := loadQuery(f, path)
	if err != nil {
		return err
	}

	result := DescribeResult{
		Query:     q.Name,
		Terminal:  string(q.Terminal),
		Structure: q.Structure.String(),
	}
	for _, d := range q.Derive() {
		result.Derivations = append(result.Derivations, DescribedStructure{
			Name:      d.Name,
			Structure: d.Structure.String(),
		})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "structure: %s\n", result.Structure)
	for _, d := range result.Derivations {
		fmt.Fprintf(&b, "%s: %s\n", d.Name, d.Structure)
	}
	return f.Success(result, b.String())
}
