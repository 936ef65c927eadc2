package cli

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/querykit/internal/builder"
	"github.com/roach88/querykit/internal/querydoc"
	"github.com/roach88/querykit/internal/sqlgen"
	"github.com/roach88/querykit/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Init     []string
	Metrics  bool
}

// MetricSample is one sample gathered after a run.
type MetricSample struct {
	Name   string            `json:"name"`
	Labels map[string]string `json:"labels,omitempty"`
	Value  float64           `json:"value"`
}

// RunResult is the output of the run command. Which fields are set depends
// on the terminal.
type RunResult struct {
	Query    string         `json:"query,omitempty"`
	Terminal string         `json:"terminal"`
	Rows     [][]any        `json:"rows,omitempty"`
	Count    *int64         `json:"count,omitempty"`
	Exists   *bool          `json:"exists,omitempty"`
	Found    *bool          `json:"found,omitempty"`
	Metrics  []MetricSample `json:"metrics,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <query.yaml>",
		Short: "Execute a query document against a SQLite database",
		Long: `Execute a query document against a SQLite database and print the result
of its terminal. Statements are always rendered in the SQLite dialect.

Example:
  querykit run --schema ./schema --db app.db adults.yaml
  querykit run --schema schema.yaml --db :memory: --init schema.sql --init seed.sql adults.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database path; overrides config")
	cmd.Flags().StringArrayVar(&opts.Init, "init", nil, "SQL script applied before the query (repeatable)")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "report statement metrics")

	return cmd
}

func runRun(opts *RunOptions, path string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	q, err := loadQuery(f, path)
	if err != nil {
		return err
	}
	schema, err := opts.loadSchema(f)
	if err != nil {
		return err
	}

	database := opts.Settings.Database
	if opts.Database != "" {
		database = opts.Database
	}
	if database == "" {
		return f.Fail(ExitCommandError, ErrCodeGeneric, "no database configured (use --db or set database in config)", nil, nil)
	}

	storeOpts := []store.Option{store.WithLogger(opts.logger())}
	var reg *prometheus.Registry
	if opts.Metrics {
		reg = prometheus.NewRegistry()
		storeOpts = append(storeOpts, store.WithMetrics(store.NewMetrics(reg)))
	}

	st, err := store.Open(database, storeOpts...)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeExecution, "failed to open database "+database, err, nil)
	}
	defer st.Close()

	for _, script := range opts.Init {
		data, err := os.ReadFile(script)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeNotFound, "failed to read init script "+script, err, nil)
		}
		if err := st.Apply(ctx, string(data)); err != nil {
			return f.Fail(ExitFailure, ErrCodeExecution, "failed to apply init script "+script, err, nil)
		}
		f.VerboseLog("Applied %s", script)
	}

	backend := store.NewBackend(st, sqlgen.NewGenerator(sqlgen.SQLite), schema)
	collector := builder.New(backend, builder.WithLogger(opts.logger())).Resume(q.Structure)

	result, err := execute(ctx, collector, q)
	if err != nil {
		if errors.Is(err, builder.ErrTooManyResults) {
			return f.Fail(ExitFailure, ErrCodeExecution, err.Error(), nil, nil)
		}
		return f.Fail(ExitFailure, ErrCodeExecution, "query failed", err, nil)
	}
	result.Query = q.Name
	if reg != nil {
		samples, err := gatherSamples(reg)
		if err != nil {
			return f.Fail(ExitFailure, ErrCodeGeneric, "failed to gather metrics", err, nil)
		}
		result.Metrics = samples
	}

	return f.Success(result, formatRunResult(result))
}

func execute(ctx context.Context, c builder.Collector, q *querydoc.Query) (RunResult, error) {
	result := RunResult{Terminal: string(q.Terminal)}
	switch q.Terminal {
	case querydoc.TerminalList:
		rows, err := c.List(ctx, q.Offset, q.Limit, q.Lock)
		if err != nil {
			return result, err
		}
		result.Rows = rowValues(rows)
	case querydoc.TerminalCount:
		n, err := c.Count(ctx)
		if err != nil {
			return result, err
		}
		result.Count = &n
	case querydoc.TerminalExist:
		ok, err := c.Exist(ctx, q.Offset)
		if err != nil {
			return result, err
		}
		result.Exists = &ok
	case querydoc.TerminalSlice:
		page, err := c.Slice(ctx, q.Offset, q.Limit)
		if err != nil {
			return result, err
		}
		result.Rows = rowValues(page.Rows)
		result.Count = &page.Total
	case querydoc.TerminalFirst, querydoc.TerminalSingle:
		// Same window and lock as querydoc.Query.Derive.
		first := c.FirstAt
		if q.Terminal == querydoc.TerminalSingle {
			first = c.SingleAt
		}
		row, ok, err := first(ctx, q.Offset, q.Lock)
		if err != nil {
			return result, err
		}
		result.Found = &ok
		if ok {
			result.Rows = [][]any{row}
		}
	default:
		return result, fmt.Errorf("unknown terminal %q", q.Terminal)
	}
	return result, nil
}

func rowValues(rows []builder.Row) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out
}

func formatRunResult(r RunResult) string {
	var b strings.Builder
	for _, row := range r.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				cells[i] = "NULL"
				continue
			}
			cells[i] = fmt.Sprint(v)
		}
		b.WriteString(strings.Join(cells, "\t"))
		b.WriteString("\n")
	}
	switch {
	case r.Count != nil && r.Terminal == string(querydoc.TerminalSlice):
		fmt.Fprintf(&b, "(%d of %d rows)\n", len(r.Rows), *r.Count)
	case r.Count != nil:
		fmt.Fprintf(&b, "%d\n", *r.Count)
	case r.Exists != nil:
		fmt.Fprintf(&b, "%t\n", *r.Exists)
	case r.Found != nil && !*r.Found:
		b.WriteString("(no rows)\n")
	}
	for _, m := range r.Metrics {
		fmt.Fprintf(&b, "# %s%s %g\n", m.Name, formatLabels(m.Labels), m.Value)
	}
	return b.String()
}

func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, 0, len(labels))
	for _, k := range slices.Sorted(maps.Keys(labels)) {
		parts = append(parts, fmt.Sprintf("%s=%q", k, labels[k]))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// gatherSamples flattens counters and histogram sample counts.
func gatherSamples(g prometheus.Gatherer) ([]MetricSample, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}
	var samples []MetricSample
	for _, fam := range families {
		for _, m := range fam.GetMetric() {
			labels := make(map[string]string, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			switch {
			case m.GetCounter() != nil:
				samples = append(samples, MetricSample{Name: fam.GetName(), Labels: labels, Value: m.GetCounter().GetValue()})
			case m.GetHistogram() != nil:
				samples = append(samples,
					MetricSample{Name: fam.GetName() + "_count", Labels: labels, Value: float64(m.GetHistogram().GetSampleCount())},
					MetricSample{Name: fam.GetName() + "_sum", Labels: labels, Value: m.GetHistogram().GetSampleSum()},
				)
			}
		}
	}
	return samples, nil
}
