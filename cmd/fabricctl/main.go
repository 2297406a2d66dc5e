package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nasif-azam/fabricctl/internal/access"
	"github.com/nasif-azam/fabricctl/internal/auth"
	"github.com/nasif-azam/fabricctl/internal/config"
	"github.com/nasif-azam/fabricctl/internal/deploy"
	"github.com/nasif-azam/fabricctl/internal/fabricapi"
	"github.com/nasif-azam/fabricctl/internal/items"
	"github.com/nasif-azam/fabricctl/internal/logging"
	"github.com/nasif-azam/fabricctl/internal/observability"
	"github.com/nasif-azam/fabricctl/internal/source"
	"github.com/nasif-azam/fabricctl/internal/workspace"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("fabricctl", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var configPath string
	var overridesPath string
	var sourcePath string
	var branch string
	var reportPath string
	var dryRun bool
	fs.StringVar(&configPath, "config", "", "path to fabricctl.toml (optional, env vars suffice)")
	fs.StringVar(&overridesPath, "overrides", "", "path to a local override file")
	fs.StringVar(&sourcePath, "source", "", "local source tree override")
	fs.StringVar(&branch, "branch", "", "source repository branch override")
	fs.StringVar(&reportPath, "report", "", "report output path override")
	fs.BoolVar(&dryRun, "dry-run", false, "discover and resolve items without remote calls")

	if err := fs.Parse(args); err != nil {
		return 1
	}

	logging.ConfigureRuntime()
	logger := log.Logger

	cfg, err := config.Load(configPath, func(cfg *config.Config) error {
		if overridesPath != "" {
			if err := applyOverrides(overridesPath, cfg); err != nil {
				return err
			}
		}
		if sourcePath != "" {
			cfg.SourcePath = sourcePath
		}
		if branch != "" {
			cfg.SourceBranch = branch
		}
		if reportPath != "" {
			cfg.ReportPath = reportPath
		}
		if dryRun {
			cfg.DryRun = true
		}
		return nil
	})
	if err != nil {
		logger.Error().Err(err).Msg("configuration invalid")
		return 1
	}

	tokens := auth.NewProvider(auth.Credentials{
		TenantID:     cfg.TenantID,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
	}, auth.WithLogger(logger), auth.WithTimeout(cfg.HTTPTimeout.Std()))

	api := fabricapi.NewClient(tokens,
		fabricapi.WithTimeout(cfg.HTTPTimeout.Std()),
		fabricapi.WithLogger(logger),
	)

	var fetcher source.Fetcher
	if cfg.SourcePath != "" {
		fetcher = source.LocalFetcher{Path: cfg.SourcePath}
	} else {
		fetcher = source.GitFetcher{URL: cfg.SourceRepo, Branch: cfg.SourceBranch, Log: logger}
	}

	orchestrator := deploy.NewOrchestrator(
		tokens,
		api,
		workspace.NewReconciler(api, logger),
		access.NewReconciler(api, logger),
		items.NewMaterializer(api, logger),
		fetcher,
		deploy.LogObserver{Log: logger},
		logger,
		deploy.Options{
			Target: workspace.Spec{
				Name:       cfg.WorkspaceName,
				ExplicitID: cfg.WorkspaceID,
				CapacityID: cfg.CapacityID,
			},
			SourceWorkspaceID:   cfg.SourceWorkspaceID,
			SourceWorkspaceName: cfg.SourceWorkspaceName,
			PrincipalID:         cfg.ClientID,
			SkipRoleAssignment:  cfg.SkipRoleAssignment,
			DryRun:              cfg.DryRun,
			ItemDelay:           cfg.ItemDelay.Std(),
			ReportPath:          cfg.ReportPath,
			ReportFormat:        deploy.ReportFormat(cfg.ReportFormat),
		},
	)

	if cfg.StatusAddr != "" {
		status := observability.NewStatusServer(cfg.StatusAddr, orchestrator.Snapshot, logger)
		status.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			status.Stop(shutdownCtx)
		}()
	}

	report, err := orchestrator.Run(context.Background())
	if err != nil {
		logger.Error().Err(err).Msg("deployment failed")
		return 1
	}

	fmt.Printf("total=%d success=%d failed=%d skipped=%d report=%s\n",
		report.Summary.Total, report.Summary.Success, report.Summary.Failed,
		report.Summary.Skipped, cfg.ReportPath)

	if report.Summary.Failed > 0 && report.Summary.Success == 0 {
		return 1
	}
	return 0
}
