package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testSchema = filepath.Join("testdata", "schema.yaml")
	testSeed   = filepath.Join("testdata", "seed.sql")
)

func queryFile(name string) string {
	return filepath.Join("testdata", "queries", name)
}

// runCLI executes the root command and returns what it wrote to stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "querykit", cmd.Use)
	assert.Contains(t, cmd.Long, "metamodel")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"render", "describe", "validate", "run", "schema"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"config", "dialect", "schema"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
}

func TestRunCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	runCmd, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)

	for _, name := range []string{"db", "init", "metrics"} {
		assert.NotNil(t, runCmd.Flags().Lookup(name), name)
	}
}

func TestInvalidFormat(t *testing.T) {
	_, err := runCLI(t, "--format", "xml", "describe", queryFile("adults.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestResolve_ConfigFile(t *testing.T) {
	out, err := runCLI(t, "--config", filepath.Join("testdata", "config.yaml"), "render", queryFile("adults.yaml"))
	require.NoError(t, err)

	// config.yaml selects the sqlite dialect and the test schema.
	assert.Contains(t, out, `FROM "user" user_`)
}

func TestResolve_FlagsOverrideConfig(t *testing.T) {
	out, err := runCLI(t,
		"--config", filepath.Join("testdata", "config.yaml"),
		"--dialect", "mysql",
		"render", queryFile("adults.yaml"),
	)
	require.NoError(t, err)
	assert.Contains(t, out, "FROM `user` user_")
}

func TestResolve_Environment(t *testing.T) {
	t.Setenv("QUERYKIT_DIALECT", "sqlite")
	t.Setenv("QUERYKIT_SCHEMA", testSchema)

	out, err := runCLI(t, "render", queryFile("adults.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, `FROM "user" user_`)
}

func TestResolve_InvalidSettings(t *testing.T) {
	_, err := runCLI(t, "--dialect", "oracle", "describe", queryFile("adults.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid settings")
}

func TestResolve_MissingConfigFile(t *testing.T) {
	_, err := runCLI(t, "--config", filepath.Join("testdata", "nope.yaml"), "describe", queryFile("adults.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
}
