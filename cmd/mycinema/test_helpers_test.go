package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mycinema/internal/testsupport"
)

type cliTestEnv struct {
	backend    *testsupport.Backend
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, movies ...testsupport.BackendMovie) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("TMDB_API_KEY", "")
	t.Setenv("WEBSHARE_USERNAME", "")
	t.Setenv("WEBSHARE_PASSWORD", "")

	backend := testsupport.NewBackend(t, movies...)
	configPath := filepath.Join(base, "mycinema.toml")
	writeTestConfig(t, configPath, base, backend.URL)

	return &cliTestEnv{backend: backend, configPath: configPath, baseDir: base}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path, base, backendURL string) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q
api_bind = "127.0.0.1:0"

[tmdb]
api_key = "test-key"
base_url = %q

[webshare]
username = "jan"
password = "tajne"
base_url = %q
`,
		filepath.Join(base, "data"),
		filepath.Join(base, "logs"),
		backendURL,
		backendURL,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func decodeJSON[T any](t *testing.T, raw string) T {
	t.Helper()
	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("decode %q: %v", raw, err)
	}
	return out
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
