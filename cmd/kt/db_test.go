package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestDBCmd_Help(t *testing.T) {
	out, err := runCommand(t, "db", "--help")
	if err != nil {
		t.Fatalf("db --help failed: %v", err)
	}
	if !strings.Contains(out, "Database management") {
		t.Errorf("expected help to mention 'Database management', got: %s", out)
	}
	for _, sub := range []string{"init", "reset"} {
		if !strings.Contains(out, sub) {
			t.Errorf("expected help to list %q subcommand, got: %s", sub, out)
		}
	}
}

func TestDBInitCmd(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := runCommand(t, "db", "init", "--config", cfgPath)
	if err != nil {
		t.Fatalf("db init failed: %v", err)
	}
	if !strings.Contains(out, "Connected to sqlite database") {
		t.Errorf("expected connection notice, got: %s", out)
	}
	if !strings.Contains(out, "Tables migrated") {
		t.Errorf("expected migration notice, got: %s", out)
	}
	if !strings.Contains(out, "noop") {
		t.Errorf("expected seeded provider names, got: %s", out)
	}

	// Running init again must succeed.
	if _, err := runCommand(t, "db", "init", "--config", cfgPath); err != nil {
		t.Fatalf("repeated db init failed: %v", err)
	}
}

func TestDBInitCmd_MissingConfig(t *testing.T) {
	_, err := runCommand(t, "db", "init", "--config", "/nonexistent/klartext.yaml")
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
	if !strings.Contains(err.Error(), "read") {
		t.Errorf("error = %q, want to mention the unreadable file", err.Error())
	}
}

func TestDBResetCmd_Aborts(t *testing.T) {
	cfgPath := writeTestConfig(t)
	if _, err := runCommand(t, "db", "init", "--config", cfgPath); err != nil {
		t.Fatalf("db init failed: %v", err)
	}

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader("n\n"))
	cmd.SetArgs([]string{"db", "reset", "--config", cfgPath})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("db reset failed: %v", err)
	}
	if !strings.Contains(buf.String(), "Aborted") {
		t.Errorf("expected abort notice, got: %s", buf.String())
	}
}

func TestDBResetCmd_Yes(t *testing.T) {
	cfgPath := writeTestConfig(t)
	if _, err := runCommand(t, "db", "init", "--config", cfgPath); err != nil {
		t.Fatalf("db init failed: %v", err)
	}

	out, err := runCommand(t, "db", "reset", "--config", cfgPath, "--yes")
	if err != nil {
		t.Fatalf("db reset --yes failed: %v", err)
	}
	if !strings.Contains(out, "Database reset") {
		t.Errorf("expected reset notice, got: %s", out)
	}
}
