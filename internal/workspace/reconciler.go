// Package workspace resolves the target workspace for a deployment run,
// creating it when absent.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nasif-azam/fabricctl/internal/fabricapi"
)

var ErrWorkspace = errors.New("workspace: cannot establish target workspace")

// Spec names the workspace a run wants to exist.
type Spec struct {
	Name       string
	ExplicitID string
	CapacityID string
}

func (s Spec) Validate() error {
	if strings.TrimSpace(s.Name) == "" && strings.TrimSpace(s.ExplicitID) == "" {
		return fmt.Errorf("%w: name or explicit id required", ErrWorkspace)
	}
	return nil
}

// Reconciler performs get-or-create against one control plane.
type Reconciler struct {
	api fabricapi.API
	log zerolog.Logger
}

func NewReconciler(api fabricapi.API, logger zerolog.Logger) *Reconciler {
	return &Reconciler{api: api, log: logger}
}

// Ensure resolves the workspace identity idempotently. An explicit id that
// fetches cleanly is returned untouched. Otherwise the reconciler searches by
// display name and falls back to creation. A create conflict means the
// workspace already exists; the conflict response does not reliably carry the
// pre-existing id, so the caller-supplied explicit id (when present) is taken
// as the resolved identity, with one by-name re-fetch when it is not.
func (r *Reconciler) Ensure(ctx context.Context, spec Spec) (fabricapi.Workspace, error) {
	if err := spec.Validate(); err != nil {
		return fabricapi.Workspace{}, err
	}

	explicitID := strings.TrimSpace(spec.ExplicitID)
	if explicitID != "" {
		ws, err := r.api.GetWorkspace(ctx, explicitID)
		switch {
		case err == nil:
			r.log.Info().Str("workspace_id", ws.ID).Str("name", ws.DisplayName).Msg("workspace resolved by id")
			return ws, nil
		case errors.Is(err, fabricapi.ErrNotFound):
			// Id not yet provisioned; fall through to name search and create.
			r.log.Warn().Str("workspace_id", explicitID).Msg("explicit workspace id not found, reconciling by name")
		default:
			return fabricapi.Workspace{}, fmt.Errorf("%w: fetch %s: %v", ErrWorkspace, explicitID, err)
		}
	}

	if spec.Name != "" {
		if ws, ok, err := r.findByName(ctx, spec.Name); err != nil {
			return fabricapi.Workspace{}, err
		} else if ok {
			r.log.Info().Str("workspace_id", ws.ID).Str("name", ws.DisplayName).Msg("workspace already exists")
			return ws, nil
		}
	}

	r.log.Info().Str("name", spec.Name).Msg("creating workspace")
	ws, err := r.api.CreateWorkspace(ctx, spec.Name, spec.CapacityID)
	if err == nil {
		r.log.Info().Str("workspace_id", ws.ID).Str("name", ws.DisplayName).Msg("workspace created")
		return ws, nil
	}
	if !errors.Is(err, fabricapi.ErrConflict) {
		return fabricapi.Workspace{}, fmt.Errorf("%w: create %q: %v", ErrWorkspace, spec.Name, err)
	}

	r.log.Info().Str("name", spec.Name).Msg("workspace create conflicted, already exists")
	if explicitID != "" {
		return fabricapi.Workspace{ID: explicitID, DisplayName: spec.Name, CapacityID: spec.CapacityID}, nil
	}
	if ws, ok, err := r.findByName(ctx, spec.Name); err == nil && ok {
		return ws, nil
	}
	return fabricapi.Workspace{}, fmt.Errorf("%w: %q exists but could not be resolved", ErrWorkspace, spec.Name)
}

func (r *Reconciler) findByName(ctx context.Context, name string) (fabricapi.Workspace, bool, error) {
	all, err := r.api.ListWorkspaces(ctx)
	if err != nil {
		return fabricapi.Workspace{}, false, fmt.Errorf("%w: list: %v", ErrWorkspace, err)
	}
	for _, ws := range all {
		if ws.DisplayName == name {
			return ws, true, nil
		}
	}
	return fabricapi.Workspace{}, false, nil
}
