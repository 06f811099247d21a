package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

// writeTestConfig writes a minimal sqlite config into a temp dir and
// returns its path.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "klartext.yaml")
	content := fmt.Sprintf("database:\n  driver: sqlite\n  path: %s\napis:\n  noop: {}\n",
		filepath.Join(dir, "klartext.db"))
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// writeObjectFile writes an object JSON file and returns its path.
func writeObjectFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "object.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write object file: %v", err)
	}
	return path
}

// runCommand executes the root command with args and returns its output.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := runCommand(t, "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(out, "kt dev") {
		t.Errorf("expected output to contain 'kt dev', got: %s", out)
	}
	if !strings.Contains(out, "commit: none") {
		t.Errorf("expected output to contain 'commit: none', got: %s", out)
	}
}

func TestVersionCmdWithCustomValues(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, Date
	Version, Commit, Date = "1.0.0", "abc123", "2026-01-01"
	defer func() { Version, Commit, Date = origVersion, origCommit, origDate }()

	out, err := runCommand(t, "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(out, "kt 1.0.0") {
		t.Errorf("expected output to contain 'kt 1.0.0', got: %s", out)
	}
	if !strings.Contains(out, "built: 2026-01-01") {
		t.Errorf("expected output to contain 'built: 2026-01-01', got: %s", out)
	}
}

func TestRootCmdHelp(t *testing.T) {
	out, err := runCommand(t, "--help")
	if err != nil {
		t.Fatalf("help command failed: %v", err)
	}
	if !strings.Contains(out, "Klartext") {
		t.Errorf("expected help output to contain 'Klartext', got: %s", out)
	}
	for _, sub := range []string{"version", "serve", "ingest", "simplify", "fragments", "quota"} {
		if !strings.Contains(out, sub) {
			t.Errorf("expected help output to list %q subcommand, got: %s", sub, out)
		}
	}
}

func TestExecute(t *testing.T) {
	ok := &cobra.Command{Use: "ok", RunE: func(*cobra.Command, []string) error { return nil }}
	ok.SetOut(new(bytes.Buffer))
	if code := execute(ok); code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}

	failing := &cobra.Command{Use: "fail", RunE: func(*cobra.Command, []string) error { return fmt.Errorf("boom") }}
	failing.SetOut(new(bytes.Buffer))
	failing.SetErr(new(bytes.Buffer))
	if code := execute(failing); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
}
