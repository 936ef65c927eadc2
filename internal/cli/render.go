package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/querykit/internal/querydoc"
)

// RenderedStatement is one derived structure rendered to SQL.
type RenderedStatement struct {
	Name string `json:"name"`
	SQL  string `json:"sql"`
	Args []any  `json:"args"`
}

// RenderResult is the output of the render command.
type RenderResult struct {
	Query      string              `json:"query,omitempty"`
	Dialect    string              `json:"dialect"`
	Statements []RenderedStatement `json:"statements"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render <query.yaml>",
		Short: "Print the SQL a query document executes",
		Long: `Render the structures derived for the document's terminal into SQL text
and positional parameters. A slice terminal renders its count and list
statements.

Example:
  querykit render --schema ./schema adults.yaml
  querykit render --dialect sqlite --format json adults.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runRender(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	q, err := loadQuery(f, path)
	if err != nil {
		return err
	}
	schema, err := opts.loadSchema(f)
	if err != nil {
		return err
	}
	gen, err := opts.generator()
	if err != nil {
		return err
	}

	result := RenderResult{Query: q.Name, Dialect: gen.Dialect().Name}
	for _, d := range q.Derive() {
		prepared, err := gen.Render(d.Structure, schema)
		if err != nil {
			return f.Fail(ExitFailure, ErrCodeRender, "failed to render "+d.Name, err, nil)
		}
		args := prepared.Args
		if args == nil {
			args = []any{}
		}
		result.Statements = append(result.Statements, RenderedStatement{
			Name: d.Name,
			SQL:  prepared.SQL,
			Args: args,
		})
	}

	var b strings.Builder
	for _, st := range result.Statements {
		fmt.Fprintf(&b, "-- %s\n%s\nargs: %v\n", st.Name, st.SQL, st.Args)
	}
	return f.Success(result, b.String())
}

// loadQuery reads a query document, reporting failures through f.
func loadQuery(f *OutputFormatter, path string) (*querydoc.Query, error) {
	q, err := querydoc.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, f.Fail(ExitCommandError, ErrCodeNotFound, "query document not found: "+path, nil, nil)
		}
		return nil, f.Fail(ExitCommandError, ErrCodeQueryDoc, "failed to load query document "+path, err, nil)
	}
	f.VerboseLog("Loaded query %s (terminal %s)", path, q.Terminal)
	return q, nil
}
