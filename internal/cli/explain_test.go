package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func explainJSON(t *testing.T, args ...string) ExplainResult {
	t.Helper()
	out, _, err := execute(t, NewExplainCommand(&RootOptions{Format: "json"}), args...)
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   ExplainResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

func TestExplain_Text(t *testing.T) {
	out, _, err := execute(t, NewExplainCommand(&RootOptions{Format: "text"}), "-d", defsDir, "-q", "adults")
	require.NoError(t, err)

	assert.Contains(t, out, "query:       adults\n")
	assert.Contains(t, out, "expression:  ")
	assert.Contains(t, out, "Age")
	assert.Regexp(t, `fingerprint: [0-9a-f]{64}\n`, out)
	assert.Contains(t, out, `document:    {"body":`)
}

func TestExplain_EqualQueriesShareFingerprint(t *testing.T) {
	// adults is defined in YAML, of-age in CUE
	yamlDef := explainJSON(t, "-d", defsDir, "-q", "adults")
	cueDef := explainJSON(t, "-d", defsDir, "-q", "of-age")

	assert.Equal(t, yamlDef.Fingerprint, cueDef.Fingerprint)
	assert.JSONEq(t, string(yamlDef.Document), string(cueDef.Document))

	other := explainJSON(t, "-d", defsDir, "-q", "gophers")
	assert.NotEqual(t, yamlDef.Fingerprint, other.Fingerprint)
}

func TestExplain_WritesDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gophers.json")
	result := explainJSON(t, "-d", defsDir, "-q", "gophers", "-o", path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, string(result.Document), string(data))

	// The written document explains to the same fingerprint
	again := explainJSON(t, "--doc", path)
	assert.Equal(t, result.Fingerprint, again.Fingerprint)
	assert.Equal(t, path, again.Query)
}

func TestExplain_Errors(t *testing.T) {
	out, _, err := execute(t, NewExplainCommand(&RootOptions{Format: "text"}),
		"-d", defsDir, "-q", "adults", "-o", filepath.Join(t.TempDir(), "missing", "doc.json"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "failed to write document")
}
