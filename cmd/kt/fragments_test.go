package main

import (
	"strings"
	"testing"
)

func seedFragments(t *testing.T) string {
	t.Helper()
	cfgPath := writeTestConfig(t)
	objPath := writeObjectFile(t, testObjectJSON)
	if _, err := runCommand(t, "ingest", "--config", cfgPath, "--file", objPath); err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	return cfgPath
}

func TestFragmentsListCmd(t *testing.T) {
	cfgPath := seedFragments(t)

	out, err := runCommand(t, "fragments", "list", "--config", cfgPath)
	if err != nil {
		t.Fatalf("fragments list failed: %v", err)
	}
	if !strings.Contains(out, "ID") || !strings.Contains(out, "LANG") {
		t.Errorf("expected table header, got: %s", out)
	}
	if !strings.Contains(out, "Hallo Welt") {
		t.Errorf("expected fragment text, got: %s", out)
	}

	out, err = runCommand(t, "fragments", "list", "--config", cfgPath, "--state", "in_use")
	if err != nil {
		t.Fatalf("filtered list failed: %v", err)
	}
	if strings.Contains(out, "Hallo Welt") {
		t.Errorf("nothing is simplified yet, in_use should be empty, got: %s", out)
	}
}

func TestFragmentsIgnoreAndDeleteCmd(t *testing.T) {
	cfgPath := seedFragments(t)

	out, err := runCommand(t, "fragments", "ignore", "1", "--config", cfgPath)
	if err != nil {
		t.Fatalf("fragments ignore failed: %v", err)
	}
	if !strings.Contains(out, "Fragment 1 ignored") {
		t.Errorf("expected ignore notice, got: %s", out)
	}

	out, err = runCommand(t, "fragments", "delete", "1", "--config", cfgPath)
	if err != nil {
		t.Fatalf("fragments delete failed: %v", err)
	}
	if !strings.Contains(out, "Deleted fragment 1") {
		t.Errorf("expected delete notice, got: %s", out)
	}

	if _, err := runCommand(t, "fragments", "delete", "1", "--config", cfgPath); err == nil {
		t.Error("expected error when deleting a missing fragment")
	}
	if _, err := runCommand(t, "fragments", "delete", "abc", "--config", cfgPath); err == nil {
		t.Error("expected error for a non-numeric fragment id")
	}
}
