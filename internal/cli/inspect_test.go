package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testToken(payload string) string {
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(`{"alg":"none"}`)) + "." + enc.EncodeToString([]byte(payload)) + ".sig"
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() { configFile = "" })

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestInspect_JSON(t *testing.T) {
	out, err := runCLI(t, "inspect",
		"--path", "/v1/users/42",
		"--token", testToken(`{"sub":"u1","exp":1704110500,"is_using_rbac":false}`),
		"--now", "1704110400",
	)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))

	assert.Equal(t, true, got["is.readonly.request"])
	assert.Equal(t, true, got["jwt.valid"])
	assert.Equal(t, "u1", got["jwt.username"])
	assert.Equal(t, false, got["jwt.is_using_rbac"])
	assert.NotContains(t, got, "jwt.error")
	assert.NotContains(t, got, "jwt.scope")
}

func TestInspect_ExpiredAtGivenTime(t *testing.T) {
	out, err := runCLI(t, "inspect",
		"--path", "/v1/users/42",
		"--authorization", "Bearer "+testToken(`{"sub":"u1","exp":1704110500}`),
		"--now", "1704110501",
	)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, false, got["jwt.valid"])
	assert.Equal(t, true, got["jwt.expired"])
	assert.Equal(t, "Token expired", got["jwt.error"])
}

func TestInspect_YAML(t *testing.T) {
	out, err := runCLI(t, "inspect", "--method", "post", "--path", "/v1/users/42", "-o", "yaml")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, false, got["is.readonly.request"])
	assert.Equal(t, "No token provided", got["jwt.error"])
}

func TestInspect_MethodIsCaseSensitive(t *testing.T) {
	for method, want := range map[string]bool{"GET": true, "get": false, "Get": false} {
		t.Run(method, func(t *testing.T) {
			out, err := runCLI(t, "inspect", "--method", method, "--path", "/v1/users/42")
			require.NoError(t, err)

			var got map[string]any
			require.NoError(t, json.Unmarshal([]byte(out), &got))
			assert.Equal(t, want, got["is.readonly.request"])
		})
	}
}

func TestInspect_ConfigFileAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
gateway:
  base_path: /orders
routes:
  readonly:
    - template: /v1/orders/{id}
`), 0o600))

	out, err := runCLI(t, "inspect", "--config", path, "--path", "/orders/v1/orders/7")
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, true, got["is.readonly.request"])

	out, err = runCLI(t, "inspect", "--config", path, "--gateway-base-path", "/other", "--path", "/orders/v1/orders/7")
	require.NoError(t, err)
	got = nil
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, false, got["is.readonly.request"], "flag overrides the file's base path")
}

func TestInspect_Errors(t *testing.T) {
	_, err := runCLI(t, "inspect", "-o", "xml")
	assert.ErrorContains(t, err, "unsupported output format")

	_, err = runCLI(t, "inspect", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to find config")
}
