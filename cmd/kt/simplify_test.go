package main

import (
	"strings"
	"testing"
)

func TestSimplifyCmd(t *testing.T) {
	cfgPath := writeTestConfig(t)
	objPath := writeObjectFile(t, testObjectJSON)
	if _, err := runCommand(t, "ingest", "--config", cfgPath, "--file", objPath); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	out, err := runCommand(t, "simplify", "--config", cfgPath,
		"--object-id", "1", "--lang", "de_LS", "--api", "noop", "--batch", "1")
	if err != nil {
		t.Fatalf("simplify failed: %v", err)
	}
	if !strings.Contains(out, "2 fragments") {
		t.Errorf("expected start summary, got: %s", out)
	}
	if !strings.Contains(out, "1/2 (0 failed)") || !strings.Contains(out, "2/2 (0 failed)") {
		t.Errorf("expected per-tick progress lines, got: %s", out)
	}
	if !strings.Contains(out, "Run finished: done") {
		t.Errorf("expected terminal status, got: %s", out)
	}

	// Everything is simplified now; a second run completes immediately.
	out, err = runCommand(t, "simplify", "--config", cfgPath,
		"--object-id", "1", "--lang", "de_LS", "--api", "noop")
	if err != nil {
		t.Fatalf("second simplify failed: %v", err)
	}
	if !strings.Contains(out, "0 fragments") {
		t.Errorf("expected nothing pending, got: %s", out)
	}
}

func TestSimplifyCmd_Queued(t *testing.T) {
	cfgPath := writeTestConfig(t)
	objPath := writeObjectFile(t, testObjectJSON)
	if _, err := runCommand(t, "ingest", "--config", cfgPath, "--file", objPath); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	out, err := runCommand(t, "simplify", "--config", cfgPath,
		"--object-id", "1", "--lang", "de_LS", "--api", "noop", "--queued")
	if err != nil {
		t.Fatalf("queued simplify failed: %v", err)
	}
	if !strings.Contains(out, "Queued for background processing") {
		t.Errorf("expected queue notice, got: %s", out)
	}
}

func TestSimplifyCmd_MissingFlags(t *testing.T) {
	if _, err := runCommand(t, "simplify"); err == nil {
		t.Error("expected error for missing required flags")
	}
}
