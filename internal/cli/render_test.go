package cli

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_Golden(t *testing.T) {
	out, err := runCLI(t, "--schema", testSchema, "render", queryFile("adults.yaml"))
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "render_adults", []byte(out))
}

func TestRender_JSONSQLite(t *testing.T) {
	out, err := runCLI(t, "--schema", testSchema, "--dialect", "sqlite", "--format", "json", "render", queryFile("joe.yaml"))
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   RenderResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "sqlite", resp.Data.Dialect)
	require.Len(t, resp.Data.Statements, 1)

	st := resp.Data.Statements[0]
	assert.Equal(t, "first", st.Name)
	assert.Equal(t, `SELECT user_.id, user_.username FROM "user" user_ WHERE user_.username = ? LIMIT 1`, st.SQL)
	assert.Equal(t, []any{"joe"}, st.Args)
}

func TestRender_GroupedCount(t *testing.T) {
	out, err := runCLI(t, "--schema", testSchema, "--format", "json", "render", queryFile("oldest_by_department.yaml"))
	require.NoError(t, err)

	var resp struct {
		Data RenderResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Statements, 1)
	assert.Equal(t, "count", resp.Data.Statements[0].Name)
	assert.Contains(t, resp.Data.Statements[0].SQL, "SELECT COUNT(1) FROM (SELECT")
	assert.Equal(t, []any{float64(30)}, resp.Data.Statements[0].Args)
}

func TestRender_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		exitCode int
		code     string
	}{
		{"missing document", []string{"--schema", testSchema, "render", queryFile("missing.yaml")}, ExitCommandError, ErrCodeNotFound},
		{"broken document", []string{"--schema", testSchema, "render", queryFile("broken.yaml")}, ExitCommandError, ErrCodeQueryDoc},
		{"no schema", []string{"render", queryFile("adults.yaml")}, ExitCommandError, ErrCodeSchema},
		{"missing schema", []string{"--schema", "testdata/none.yaml", "render", queryFile("adults.yaml")}, ExitCommandError, ErrCodeSchema},
		{"unknown path", []string{"--schema", testSchema, "render", queryFile("unknown_path.yaml")}, ExitFailure, ErrCodeRender},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCLI(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.exitCode, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.code)
			assert.Contains(t, out, "Error ["+tt.code+"]")
		})
	}
}
