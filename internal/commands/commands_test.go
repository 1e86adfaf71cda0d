package commands

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	SetVersion("1.2.3", "abc123", "2026-01-01")
	defer SetVersion("dev", "unknown", "unknown")

	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version command error = %v", err)
	}
	if !strings.Contains(out, "1.2.3") || !strings.Contains(out, "abc123") {
		t.Errorf("unexpected version output: %q", out)
	}
}

func TestVersionCommandJSON(t *testing.T) {
	SetVersion("1.2.3", "abc123", "2026-01-01")
	defer SetVersion("dev", "unknown", "unknown")

	out, err := execute(t, "version", "--json")
	if err != nil {
		t.Fatalf("version command error = %v", err)
	}

	var info versionInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", out, err)
	}
	if info.Version != "1.2.3" {
		t.Errorf("version = %q, want 1.2.3", info.Version)
	}
}

func TestCallCommandRejectsBadParam(t *testing.T) {
	_, err := execute(t, "call", "DescribeInstances", "--param", "no-equals-sign")
	if err == nil || !strings.Contains(err.Error(), "key=value") {
		t.Errorf("expected key=value error, got %v", err)
	}
}

func TestCallCommandRejectsBadQuery(t *testing.T) {
	_, err := execute(t, "call", "DescribeInstances", "--query", ".[unclosed")
	if err == nil || !strings.Contains(err.Error(), "invalid --query") {
		t.Errorf("expected query validation error, got %v", err)
	}
}

func TestCallCommandMissingConfig(t *testing.T) {
	t.Setenv("SIGQUERY_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := execute(t, "call", "DescribeInstances")
	if err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestStatusCommandMissingConfig(t *testing.T) {
	t.Setenv("SIGQUERY_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := execute(t, "status", "GetServiceStatus")
	if err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestRootCommandSubcommands(t *testing.T) {
	cmd := NewRootCommand()

	want := map[string]bool{
		"call": false, "status": false, "configure": false,
		"validate": false, "version": false,
	}
	for _, sub := range cmd.Commands() {
		name := strings.Fields(sub.Use)[0]
		if _, ok := want[name]; ok {
			want[name] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}
