package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	if cmd == nil {
		t.Fatal("NewRootCommand should not return nil")
	}
	if cmd.Use != "casetrack" {
		t.Errorf("expected Use='casetrack', got %s", cmd.Use)
	}

	want := map[string]bool{"serve": false, "worker": false, "migrate": false, "version": false}
	for _, sub := range cmd.Commands() {
		name := strings.Fields(sub.Use)[0]
		if _, ok := want[name]; ok {
			want[name] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %s not registered", name)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	cmd := newVersionCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execution failed: %v", err)
	}
	if !strings.Contains(buf.String(), "casetrack") {
		t.Errorf("version output missing binary name: %q", buf.String())
	}
}

func TestConfigFlagRegistered(t *testing.T) {
	cmd := NewRootCommand()
	if cmd.PersistentFlags().Lookup("config") == nil {
		t.Error("persistent flag --config not registered")
	}
}

func TestLoadConfigRejectsMissingFile(t *testing.T) {
	_, err := loadConfig(&RootOptions{ConfigPath: "/nonexistent/casetrack.yaml"})
	if err == nil {
		t.Error("expected error for missing config file")
	}
}
