package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/nasif-azam/fabricctl/internal/config"
)

// overrideFile mirrors the keys of the main config that make sense to tweak
// per machine without editing the shared file.
type overrideFile struct {
	WorkspaceName string `toml:"workspace_name"`
	WorkspaceID   string `toml:"workspace_id"`
	SourcePath    string `toml:"source_path"`
	SourceRepo    string `toml:"source_repo"`
	SourceBranch  string `toml:"source_branch"`
	ItemDelay     string `toml:"item_delay"`
	ReportPath    string `toml:"report_path"`
	ReportFormat  string `toml:"report_format"`
	StatusAddr    string `toml:"status_addr"`
	SkipRoles     bool   `toml:"skip_role_assignment"`
}

// applyOverrides layers a local override file onto cfg. Only keys the file
// actually defines are applied.
func applyOverrides(path string, cfg *config.Config) error {
	var raw overrideFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load overrides: %w", err)
	}

	if meta.IsDefined("workspace_name") {
		cfg.WorkspaceName = strings.TrimSpace(raw.WorkspaceName)
	}
	if meta.IsDefined("workspace_id") {
		cfg.WorkspaceID = strings.TrimSpace(raw.WorkspaceID)
	}
	if meta.IsDefined("source_path") {
		cfg.SourcePath = strings.TrimSpace(raw.SourcePath)
	}
	if meta.IsDefined("source_repo") {
		cfg.SourceRepo = strings.TrimSpace(raw.SourceRepo)
	}
	if meta.IsDefined("source_branch") {
		cfg.SourceBranch = strings.TrimSpace(raw.SourceBranch)
	}
	if meta.IsDefined("item_delay") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ItemDelay))
		if err != nil {
			return fmt.Errorf("parse item_delay: %w", err)
		}
		cfg.ItemDelay = config.Duration(d)
	}
	if meta.IsDefined("report_path") {
		cfg.ReportPath = strings.TrimSpace(raw.ReportPath)
	}
	if meta.IsDefined("report_format") {
		cfg.ReportFormat = strings.TrimSpace(raw.ReportFormat)
	}
	if meta.IsDefined("status_addr") {
		cfg.StatusAddr = strings.TrimSpace(raw.StatusAddr)
	}
	if meta.IsDefined("skip_role_assignment") {
		cfg.SkipRoleAssignment = raw.SkipRoles
	}
	return nil
}
