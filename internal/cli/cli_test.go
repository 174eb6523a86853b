package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

// executeCommand runs the CLI with args against a fresh command tree and
// returns what the commands printed.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	// Keep proxies and service overrides from the developer's shell out of the tests
	for _, key := range []string{"HTTPS_PROXY", "HTTP_PROXY", "LOHNKONTO_API_URL", "VITE_API_URL", "LOHNKONTO_OUTPUT", "LOHNKONTO_LOG_FILE"} {
		t.Setenv(key, "")
	}

	root := NewRootCmd()
	AddCommands(root)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), err
}

func TestRootCommandTree(t *testing.T) {
	root := NewRootCmd()
	AddCommands(root)

	want := []string{"process", "health", "info", "config", "gui", "completion"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd == root {
			t.Errorf("command %q not registered", name)
		}
	}

	if cmd, _, err := root.Find([]string{"convert"}); err != nil || cmd.Name() != "process" {
		t.Error("convert alias does not resolve to process")
	}
}

func TestCompletionBash(t *testing.T) {
	out, err := executeCommand(t, "completion", "bash")
	if err != nil {
		t.Fatalf("completion failed: %v", err)
	}
	if !bytes.Contains([]byte(out), []byte("lohnkonto")) {
		t.Error("bash completion does not mention the program name")
	}
}

func TestForceCLIFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.csv")

	out, err := executeCommand(t, "--cli", "config", "path", "-c", path)
	if err != nil {
		t.Fatalf("--cli rejected: %v", err)
	}
	if !strings.Contains(out, path) {
		t.Errorf("output %q does not contain %s", out, path)
	}
}
