package deploy

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nasif-azam/fabricctl/internal/items"
)

// ReportFormat selects the on-disk report encoding.
type ReportFormat string

const (
	FormatJSON ReportFormat = "json"
	FormatYAML ReportFormat = "yaml"
)

// ItemReport is one ledger entry flattened for the archived report.
type ItemReport struct {
	Name   string `json:"name" yaml:"name"`
	Type   string `json:"type" yaml:"type"`
	Status string `json:"status" yaml:"status"`
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Summary holds the run counters.
type Summary struct {
	Total   int `json:"total_items" yaml:"total_items"`
	Success int `json:"successful" yaml:"successful"`
	Failed  int `json:"failed" yaml:"failed"`
	Skipped int `json:"skipped" yaml:"skipped"`
}

// Report is the terminal record of one deployment run, persisted for
// archival.
type Report struct {
	RunID           string       `json:"run_id" yaml:"run_id"`
	Timestamp       time.Time    `json:"timestamp" yaml:"timestamp"`
	SourceWorkspace string       `json:"source_workspace,omitempty" yaml:"source_workspace,omitempty"`
	TargetWorkspace string       `json:"target_workspace" yaml:"target_workspace"`
	TargetID        string       `json:"target_workspace_id" yaml:"target_workspace_id"`
	Summary         Summary      `json:"summary" yaml:"summary"`
	FailedItems     []string     `json:"failed_items" yaml:"failed_items"`
	Items           []ItemReport `json:"items" yaml:"items"`
}

// BuildReport folds the ledger into the archived report shape. Every entry
// lands in Items; only non-Unknown artifacts count toward Total.
func BuildReport(runID, sourceName, targetName, targetID string, ledger []items.DeploymentResult, now time.Time) Report {
	report := Report{
		RunID:           runID,
		Timestamp:       now,
		SourceWorkspace: sourceName,
		TargetWorkspace: targetName,
		TargetID:        targetID,
		FailedItems:     []string{},
		Items:           []ItemReport{},
	}
	for _, entry := range ledger {
		report.Items = append(report.Items, ItemReport{
			Name:   entry.Artifact.DisplayName,
			Type:   string(entry.Artifact.Type),
			Status: string(entry.Status),
			Reason: entry.Reason,
		})
		if entry.Artifact.Type != items.TypeUnknown {
			report.Summary.Total++
		}
		switch entry.Status {
		case items.StatusDeployed:
			report.Summary.Success++
		case items.StatusFailed:
			report.Summary.Failed++
			report.FailedItems = append(report.FailedItems, entry.Artifact.DisplayName)
		case items.StatusSkipped:
			if entry.Artifact.Type != items.TypeUnknown {
				report.Summary.Skipped++
			}
		}
	}
	return report
}

// WriteFile persists the report at path in the given format.
func (r Report) WriteFile(path string, format ReportFormat) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case FormatYAML:
		data, err = yaml.Marshal(r)
	case FormatJSON, "":
		data, err = json.MarshalIndent(r, "", "  ")
	default:
		return fmt.Errorf("deploy: unknown report format %q", format)
	}
	if err != nil {
		return fmt.Errorf("deploy: encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("deploy: write report: %w", err)
	}
	return nil
}
