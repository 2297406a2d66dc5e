package deploy

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nasif-azam/fabricctl/internal/items"
	"github.com/nasif-azam/fabricctl/internal/testutil/testlog"
)

func sampleLedger() []items.DeploymentResult {
	return []items.DeploymentResult{
		{Artifact: items.Artifact{DisplayName: "A", Type: items.TypeReport}, Status: items.StatusDeployed},
		{Artifact: items.Artifact{DisplayName: "B", Type: items.TypeNotebook}, Status: items.StatusFailed, Reason: "403"},
		{Artifact: items.Artifact{DisplayName: "C", Type: items.TypeDataflow}, Status: items.StatusSkipped, Reason: "definition not found"},
		{Artifact: items.Artifact{DisplayName: "junk", Type: items.TypeUnknown}, Status: items.StatusSkipped, Reason: "unknown item type"},
	}
}

func TestBuildReportCounters(t *testing.T) {
	testlog.Start(t)

	report := BuildReport("run-1", "Dev", "Prod", "ws-1", sampleLedger(), time.Now())
	if report.Summary.Total != 3 {
		t.Fatalf("unknown artifacts must not count toward total, got %d", report.Summary.Total)
	}
	if report.Summary.Success != 1 || report.Summary.Failed != 1 || report.Summary.Skipped != 1 {
		t.Fatalf("unexpected summary %+v", report.Summary)
	}
	if len(report.FailedItems) != 1 || report.FailedItems[0] != "B" {
		t.Fatalf("unexpected failed items %v", report.FailedItems)
	}
	if len(report.Items) != 4 {
		t.Fatalf("every ledger entry must appear in items, got %d", len(report.Items))
	}
}

func TestReportWriteJSONRoundTrip(t *testing.T) {
	testlog.Start(t)

	report := BuildReport("run-1", "Dev", "Prod", "ws-1", sampleLedger(), time.Now())
	path := filepath.Join(t.TempDir(), "report.json")
	if err := report.WriteFile(path, FormatJSON); err != nil {
		t.Fatalf("write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got Report
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.RunID != "run-1" || got.Summary != report.Summary {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestReportWriteYAMLRoundTrip(t *testing.T) {
	testlog.Start(t)

	report := BuildReport("run-2", "Dev", "Prod", "ws-1", sampleLedger(), time.Now())
	path := filepath.Join(t.TempDir(), "report.yaml")
	if err := report.WriteFile(path, FormatYAML); err != nil {
		t.Fatalf("write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got Report
	if err := yaml.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.TargetID != "ws-1" || got.Summary != report.Summary {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestReportWriteRejectsUnknownFormat(t *testing.T) {
	testlog.Start(t)

	report := BuildReport("run-3", "", "Prod", "ws-1", nil, time.Now())
	if err := report.WriteFile(filepath.Join(t.TempDir(), "r"), "toml"); err == nil {
		t.Fatal("expected unknown format error")
	}
}
