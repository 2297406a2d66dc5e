// Package deploy sequences a full promotion run: authenticate, reconcile
// workspace and access, fetch and discover the source tree, materialize each
// item, and emit the terminal report.
package deploy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nasif-azam/fabricctl/internal/fabricapi"
	"github.com/nasif-azam/fabricctl/internal/items"
	"github.com/nasif-azam/fabricctl/internal/observability"
	"github.com/nasif-azam/fabricctl/internal/source"
	"github.com/nasif-azam/fabricctl/internal/workspace"
)

// Phase names the orchestrator's state transitions.
type Phase string

const (
	PhaseInit            Phase = "init"
	PhaseAuthenticated   Phase = "authenticated"
	PhaseWorkspaceReady  Phase = "workspace_ready"
	PhaseAccessChecked   Phase = "access_checked"
	PhaseItemsDiscovered Phase = "items_discovered"
	PhaseDeploying       Phase = "deploying"
	PhaseReported        Phase = "reported"
	PhaseDone            Phase = "done"
	PhaseFailed          Phase = "failed"
)

const totalSteps = 6

// WorkspaceEnsurer resolves the target workspace identity.
type WorkspaceEnsurer interface {
	Ensure(ctx context.Context, spec workspace.Spec) (fabricapi.Workspace, error)
}

// RoleEnsurer reconciles the executing principal's role; unconfirmed is soft.
type RoleEnsurer interface {
	EnsureRole(ctx context.Context, workspaceID, principalID, principalType, role string) (bool, error)
}

// ItemDeployer materializes one artifact into the target workspace.
type ItemDeployer interface {
	Deploy(ctx context.Context, artifact items.Artifact, workspaceID string) items.DeploymentResult
}

// Options configure one run.
type Options struct {
	Target workspace.Spec

	// SourceWorkspaceID, when set, is verified for access before deploying,
	// mirroring a dev->prod promotion where both sides must be reachable.
	SourceWorkspaceID   string
	SourceWorkspaceName string

	PrincipalID   string
	PrincipalType string
	DesiredRole   string

	SkipRoleAssignment bool
	DryRun             bool

	ItemDelay    time.Duration
	ReportPath   string
	ReportFormat ReportFormat
}

func (o *Options) applyDefaults() {
	if o.PrincipalType == "" {
		o.PrincipalType = "ServicePrincipal"
	}
	if o.DesiredRole == "" {
		o.DesiredRole = "Admin"
	}
	if o.ItemDelay == 0 {
		o.ItemDelay = 2 * time.Second
	}
	if o.ReportPath == "" {
		o.ReportPath = "deployment_report.json"
	}
	if o.ReportFormat == "" {
		o.ReportFormat = FormatJSON
	}
}

// Orchestrator drives one strictly sequential deployment run.
type Orchestrator struct {
	tokens   fabricapi.TokenSource
	api      fabricapi.API
	ws       WorkspaceEnsurer
	roles    RoleEnsurer
	deployer ItemDeployer
	fetcher  source.Fetcher
	observer Observer
	log      zerolog.Logger
	opts     Options

	// sleep is swappable so tests need not wait out the inter-item delay.
	sleep func(time.Duration)

	mu     sync.Mutex
	runID  string
	phase  Phase
	target fabricapi.Workspace
	ledger []items.DeploymentResult
}

func NewOrchestrator(
	tokens fabricapi.TokenSource,
	api fabricapi.API,
	ws WorkspaceEnsurer,
	roles RoleEnsurer,
	deployer ItemDeployer,
	fetcher source.Fetcher,
	observer Observer,
	logger zerolog.Logger,
	opts Options,
) *Orchestrator {
	opts.applyDefaults()
	if observer == nil {
		observer = LogObserver{Log: logger}
	}
	return &Orchestrator{
		tokens:   tokens,
		api:      api,
		ws:       ws,
		roles:    roles,
		deployer: deployer,
		fetcher:  fetcher,
		observer: observer,
		log:      logger,
		opts:     opts,
		sleep:    time.Sleep,
		runID:    uuid.NewString(),
		phase:    PhaseInit,
	}
}

// Snapshot projects the run state for the status endpoint. Safe to call
// concurrently with Run.
func (o *Orchestrator) Snapshot() observability.StatusSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	snap := observability.StatusSnapshot{
		RunID:     o.runID,
		Phase:     string(o.phase),
		Workspace: o.target.DisplayName,
	}
	for _, entry := range o.ledger {
		snap.Items = append(snap.Items, observability.StatusItem{
			Name:   entry.Artifact.DisplayName,
			Type:   string(entry.Artifact.Type),
			Status: string(entry.Status),
			Reason: entry.Reason,
		})
		if entry.Artifact.Type != items.TypeUnknown {
			snap.Total++
		}
		switch entry.Status {
		case items.StatusDeployed:
			snap.Success++
		case items.StatusFailed:
			snap.Failed++
		case items.StatusSkipped:
			if entry.Artifact.Type != items.TypeUnknown {
				snap.Skipped++
			}
		}
	}
	return snap
}

func (o *Orchestrator) setPhase(p Phase) {
	o.mu.Lock()
	o.phase = p
	o.mu.Unlock()
	o.log.Debug().Str("phase", string(p)).Msg("phase transition")
}

func (o *Orchestrator) appendLedger(entry items.DeploymentResult) {
	o.mu.Lock()
	o.ledger = append(o.ledger, entry)
	o.mu.Unlock()
}

func (o *Orchestrator) fail(err error) (Report, error) {
	o.setPhase(PhaseFailed)
	o.observer.OnError(err.Error())
	return Report{}, err
}

// Run executes the pipeline. Hard failures abort remaining steps; cleanup of
// the fetched tree is guaranteed on every exit path. Once deployment begins
// the report is always produced and persisted, regardless of per-item
// failures.
func (o *Orchestrator) Run(ctx context.Context) (Report, error) {
	if !o.opts.DryRun {
		o.observer.OnStep(1, totalSteps, "authenticate")
		if _, err := o.tokens.Token(ctx); err != nil {
			return o.fail(err)
		}
		o.setPhase(PhaseAuthenticated)
		o.observer.OnSuccess("access token acquired")

		o.observer.OnStep(2, totalSteps, "reconcile workspace")
		if o.opts.SourceWorkspaceID != "" {
			if _, err := o.api.GetWorkspace(ctx, o.opts.SourceWorkspaceID); err != nil {
				return o.fail(fmt.Errorf("%w: source workspace %s: %v",
					workspace.ErrWorkspace, o.opts.SourceWorkspaceID, err))
			}
			o.observer.OnSuccess("source workspace accessible")
		}
		target, err := o.ws.Ensure(ctx, o.opts.Target)
		if err != nil {
			return o.fail(err)
		}
		o.mu.Lock()
		o.target = target
		o.mu.Unlock()
		o.setPhase(PhaseWorkspaceReady)
		o.observer.OnSuccess(fmt.Sprintf("target workspace ready: %s (%s)", target.DisplayName, target.ID))

		o.observer.OnStep(3, totalSteps, "reconcile access")
		if o.opts.SkipRoleAssignment {
			o.observer.OnSuccess("role assignment skipped by configuration")
		} else {
			confirmed, err := o.roles.EnsureRole(ctx, target.ID, o.opts.PrincipalID, o.opts.PrincipalType, o.opts.DesiredRole)
			if err != nil || !confirmed {
				// Soft by contract: the principal may hold out-of-band access
				// and item creation is the definitive check.
				o.observer.OnWarning("role reconciliation unconfirmed, proceeding")
			} else {
				o.observer.OnSuccess("role binding confirmed")
			}
		}
		o.setPhase(PhaseAccessChecked)
	}

	o.observer.OnStep(4, totalSteps, "fetch and discover items")
	root, cleanup, err := o.fetcher.Fetch(ctx)
	if err != nil {
		return o.fail(err)
	}
	defer cleanup()

	discovered, err := items.Discover(root, o.log)
	if err != nil {
		return o.fail(err)
	}
	o.setPhase(PhaseItemsDiscovered)
	o.observer.OnSuccess(fmt.Sprintf("discovered %d folders", len(discovered)))

	o.observer.OnStep(5, totalSteps, "deploy items")
	o.setPhase(PhaseDeploying)
	o.deployAll(ctx, discovered)

	o.observer.OnStep(6, totalSteps, "generate report")
	o.mu.Lock()
	ledger := make([]items.DeploymentResult, len(o.ledger))
	copy(ledger, o.ledger)
	target := o.target
	o.mu.Unlock()

	report := BuildReport(o.runID, o.opts.SourceWorkspaceName, targetName(target, o.opts), target.ID, ledger, time.Now())
	if err := report.WriteFile(o.opts.ReportPath, o.opts.ReportFormat); err != nil {
		o.observer.OnWarning(err.Error())
	} else {
		o.observer.OnSuccess("report saved to " + o.opts.ReportPath)
	}
	o.setPhase(PhaseReported)

	o.narrateSummary(report)
	o.setPhase(PhaseDone)
	return report, nil
}

func (o *Orchestrator) deployAll(ctx context.Context, discovered []items.Artifact) {
	deployable := 0
	for _, artifact := range discovered {
		if artifact.Type != items.TypeUnknown {
			deployable++
		}
	}

	idx := 0
	for _, artifact := range discovered {
		if artifact.Type == items.TypeUnknown {
			o.appendLedger(items.DeploymentResult{
				Artifact: artifact,
				Status:   items.StatusSkipped,
				Reason:   "unknown item type",
			})
			continue
		}
		idx++
		o.log.Info().
			Int("item", idx).
			Int("of", deployable).
			Str("name", artifact.DisplayName).
			Str("type", string(artifact.Type)).
			Msg("deploying")

		var entry items.DeploymentResult
		if o.opts.DryRun {
			entry = o.dryRunResult(artifact)
		} else {
			entry = o.deployer.Deploy(ctx, artifact, o.target.ID)
		}
		o.appendLedger(entry)

		switch entry.Status {
		case items.StatusDeployed:
			o.observer.OnSuccess("deployed: " + artifact.DisplayName)
		case items.StatusFailed:
			o.observer.OnError(fmt.Sprintf("failed: %s: %s", artifact.DisplayName, entry.Reason))
		case items.StatusSkipped:
			o.observer.OnWarning(fmt.Sprintf("skipped: %s: %s", artifact.DisplayName, entry.Reason))
		}

		// Courtesy throttling against the rate-limited remote API.
		if idx < deployable && !o.opts.DryRun {
			o.sleep(o.opts.ItemDelay)
		}
	}
}

func (o *Orchestrator) dryRunResult(artifact items.Artifact) items.DeploymentResult {
	if _, ok := items.ResolveDefinition(artifact); !ok {
		return items.DeploymentResult{Artifact: artifact, Status: items.StatusSkipped, Reason: "definition not found"}
	}
	return items.DeploymentResult{Artifact: artifact, Status: items.StatusSkipped, Reason: "dry run"}
}

func (o *Orchestrator) narrateSummary(report Report) {
	s := report.Summary
	switch {
	case s.Total > 0 && s.Success == s.Total:
		o.observer.OnSuccess(fmt.Sprintf("all %d items deployed", s.Total))
	case s.Success > 0:
		o.observer.OnWarning(fmt.Sprintf("%d/%d items deployed", s.Success, s.Total))
	default:
		o.observer.OnError("no items deployed")
	}
	for _, name := range report.FailedItems {
		o.observer.OnError("failed item: " + name)
	}
}

func targetName(ws fabricapi.Workspace, opts Options) string {
	if ws.DisplayName != "" {
		return ws.DisplayName
	}
	return opts.Target.Name
}
