package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/querykit/internal/config"
	"github.com/roach88/querykit/internal/meta"
	"github.com/roach88/querykit/internal/sqlgen"
)

// RootOptions holds global flags and the settings resolved from them.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
	Format     string // "json" | "text"
	Dialect    string
	Schema     string

	// Settings is filled in by PersistentPreRunE: config file and
	// environment, overridden by explicitly set flags.
	Settings config.Config

	// Logger is the configured logger, also installed as the slog default.
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the querykit CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "querykit",
		Short: "querykit - type-checked SQL query construction",
		Long: `Build, inspect and run queries described in YAML documents against a
metamodel defined in CUE or YAML.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (YAML)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output and debug logging")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Dialect, "dialect", "", "SQL dialect (mysql|sqlite); overrides config")
	cmd.PersistentFlags().StringVar(&opts.Schema, "schema", "", "metamodel: CUE directory, .cue or .yaml file; overrides config")

	cmd.AddCommand(NewRenderCommand(opts))
	cmd.AddCommand(NewDescribeCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))

	return cmd
}

// resolve loads configuration, applies flag overrides and installs the
// logger.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	if !slices.Contains(ValidFormats, o.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}

	settings, err := config.Load(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	flags := cmd.Flags()
	if flags.Changed("dialect") {
		settings.Dialect = o.Dialect
	}
	if flags.Changed("schema") {
		settings.Schema = o.Schema
	}
	if o.Verbose {
		settings.Log.Level = "debug"
	}
	if err := settings.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid settings", err)
	}
	o.Settings = settings

	o.Logger = newLogger(cmd.ErrOrStderr(), settings.Log)
	slog.SetDefault(o.Logger)
	return nil
}

func newLogger(w io.Writer, cfg config.Log) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// formatter returns an OutputFormatter bound to cmd's writers.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// logger returns the resolved logger, or the slog default when commands run
// without the root's pre-run hook.
func (o *RootOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// loadSchema loads and validates the configured metamodel.
func (o *RootOptions) loadSchema(f *OutputFormatter) (*meta.Schema, error) {
	path := o.Settings.Schema
	if path == "" {
		path = o.Schema
	}
	if path == "" {
		return nil, f.Fail(ExitCommandError, ErrCodeSchema, "no schema configured (use --schema or set schema in config)", nil, nil)
	}
	schema, err := meta.Load(path)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeSchema, "failed to load schema "+path, err, nil)
	}
	f.VerboseLog("Loaded schema %s (%d entities)", path, len(schema.Entities()))
	return schema, nil
}

// generator returns the generator for the configured dialect.
func (o *RootOptions) generator() (*sqlgen.Generator, error) {
	name := o.Settings.Dialect
	if name == "" {
		name = o.Dialect
	}
	dialect, err := sqlgen.DialectByName(name)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid dialect", err)
	}
	return sqlgen.NewGenerator(dialect), nil
}
