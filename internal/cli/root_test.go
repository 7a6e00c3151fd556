package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	defsDir     = filepath.Join("testdata")
	recordsFile = filepath.Join("testdata", "records.json")
)

// execute runs cmd with args and returns what it wrote to stdout and stderr.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "fluentq", cmd.Use)
	assert.Contains(t, cmd.Long, "portable")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"eval", "sql", "explain", "validate", "test"}

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
}

func TestQueryFlags(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"eval", "sql", "explain"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)

			defs := sub.Flags().Lookup("defs")
			require.NotNil(t, defs)
			assert.Equal(t, "d", defs.Shorthand)

			q := sub.Flags().Lookup("query")
			require.NotNil(t, q)
			assert.Equal(t, "q", q.Shorthand)

			assert.NotNil(t, sub.Flags().Lookup("doc"))
		})
	}
}

func TestSQLCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	sqlCmd, _, err := cmd.Find([]string{"sql"})
	require.NoError(t, err)

	table := sqlCmd.Flags().Lookup("table")
	require.NotNil(t, table)
	assert.Equal(t, "records", table.DefValue)
	assert.NotNil(t, sqlCmd.Flags().Lookup("columns"))
}

func TestExplainCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	explainCmd, _, err := cmd.Find([]string{"explain"})
	require.NoError(t, err)

	outputFlag := explainCmd.Flags().Lookup("output")
	require.NotNil(t, outputFlag)
	assert.Equal(t, "o", outputFlag.Shorthand)
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	_, _, err := execute(t, NewRootCommand(), "--format", "xml", "validate", defsDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestRootCommand_RunsSubcommand(t *testing.T) {
	out, _, err := execute(t, NewRootCommand(), "--format", "text", "eval", "-d", defsDir, "-q", "gophers", recordsFile)
	require.NoError(t, err)
	assert.Contains(t, out, `"Name":"Dmitri"`)
}
