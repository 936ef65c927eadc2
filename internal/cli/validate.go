package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/querykit/internal/query"
)

// ValidationIssue is one finding of the validate command.
type ValidationIssue struct {
	Severity string `json:"severity"`
	Clause   string `json:"clause"`
	Message  string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Issues []ValidationIssue `json:"issues,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <query.yaml>",
		Short: "Check a query document for structural mistakes",
		Long: `Check a query document for aggregation and pagination mistakes.

When a schema is configured, every derived structure is also rendered so
unresolvable paths and unknown projections are reported. Warnings alone
keep a query valid.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	q, err := loadQuery(f, path)
	if err != nil {
		return err
	}

	checked := query.Validate(q.Structure.List(q.Offset, q.Limit, q.Lock))
	result := ValidationResult{Valid: checked.Valid}
	for _, issue := range checked.Issues {
		result.Issues = append(result.Issues, ValidationIssue{
			Severity: issue.Severity.String(),
			Clause:   issue.Clause,
			Message:  issue.Message,
		})
	}

	if opts.Settings.Schema != "" {
		schema, err := opts.loadSchema(f)
		if err != nil {
			return err
		}
		gen, err := opts.generator()
		if err != nil {
			return err
		}
		for _, d := range q.Derive() {
			if _, err := gen.Render(d.Structure, schema); err != nil {
				result.Valid = false
				result.Issues = append(result.Issues, ValidationIssue{
					Severity: query.SeverityError.String(),
					Clause:   "render." + d.Name,
					Message:  err.Error(),
				})
			}
		}
	}

	if !result.Valid {
		return outputValidationFailure(f, result)
	}

	var b strings.Builder
	b.WriteString("✓ Query valid\n")
	for _, issue := range result.Issues {
		fmt.Fprintf(&b, "  %s: %s: %s\n", issue.Severity, issue.Clause, issue.Message)
	}
	return f.Success(result, b.String())
}

func outputValidationFailure(f *OutputFormatter, result ValidationResult) error {
	errCount := 0
	for _, issue := range result.Issues {
		if issue.Severity == query.SeverityError.String() {
			errCount++
		}
	}
	message := fmt.Sprintf("validation failed with %d error(s)", errCount)

	if f.JSON() {
		return f.Fail(ExitFailure, ErrCodeInvalidQuery, message, nil, result)
	}

	fmt.Fprintln(f.Writer, "✗ Validation failed")
	for _, issue := range result.Issues {
		fmt.Fprintf(f.Writer, "  %s: %s: %s\n", issue.Severity, issue.Clause, issue.Message)
	}
	return NewExitError(ExitFailure, ErrCodeInvalidQuery+": "+message)
}
