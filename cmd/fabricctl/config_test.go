package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nasif-azam/fabricctl/internal/config"
	"github.com/nasif-azam/fabricctl/internal/testutil/testlog"
)

func writeOverrides(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fabricctl.local.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write overrides: %v", err)
	}
	return path
}

func TestApplyOverridesOnlyDefinedKeys(t *testing.T) {
	testlog.Start(t)

	cfg := config.Default()
	cfg.WorkspaceName = "Prod"
	cfg.ReportPath = "deployment_report.json"

	path := writeOverrides(t, `
workspace_id = "ws-local"
item_delay = "500ms"
`)
	if err := applyOverrides(path, &cfg); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if cfg.WorkspaceID != "ws-local" {
		t.Fatalf("expected override applied, got %q", cfg.WorkspaceID)
	}
	if cfg.ItemDelay.Std() != 500*time.Millisecond {
		t.Fatalf("expected parsed delay, got %s", cfg.ItemDelay.Std())
	}
	// Keys the file does not define stay untouched.
	if cfg.WorkspaceName != "Prod" || cfg.ReportPath != "deployment_report.json" {
		t.Fatalf("undefined keys must not change: %+v", cfg)
	}
}

func TestApplyOverridesBadDuration(t *testing.T) {
	testlog.Start(t)

	cfg := config.Default()
	path := writeOverrides(t, `item_delay = "soon"`)
	if err := applyOverrides(path, &cfg); err == nil {
		t.Fatal("expected duration parse error")
	}
}

func TestApplyOverridesMissingFile(t *testing.T) {
	testlog.Start(t)

	cfg := config.Default()
	if err := applyOverrides(filepath.Join(t.TempDir(), "absent.toml"), &cfg); err == nil {
		t.Fatal("expected error for missing overrides file")
	}
}
