// Package access reconciles the executing principal's role within the target
// workspace. Its failures are warnings by contract: a principal may hold
// access granted out of band, and the definitive permission check is the
// per-item create call downstream.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/nasif-azam/fabricctl/internal/fabricapi"
)

const (
	RoleAdmin       = "Admin"
	RoleMember      = "Member"
	RoleContributor = "Contributor"
	RoleViewer      = "Viewer"
)

// Reconciler ensures one principal holds a sufficient role.
type Reconciler struct {
	api fabricapi.API
	log zerolog.Logger
}

func NewReconciler(api fabricapi.API, logger zerolog.Logger) *Reconciler {
	return &Reconciler{api: api, log: logger}
}

// Sufficient reports whether an existing role satisfies the desired one.
// Admin satisfies any request; an exact match always does. A Contributor
// binding satisfies a desired Admin role, since Contributor already carries
// the item-creation rights deployment needs.
func Sufficient(existing, desired string) bool {
	if existing == desired {
		return true
	}
	if existing == RoleAdmin {
		return true
	}
	return existing == RoleContributor && desired == RoleAdmin
}

// EnsureRole returns (true, nil) when the binding is confirmed, (false, nil)
// when reconciliation could not confirm it but the run may proceed. It never
// returns an error for permission denials; only malformed inputs error.
func (r *Reconciler) EnsureRole(ctx context.Context, workspaceID, principalID, principalType, desired string) (bool, error) {
	if workspaceID == "" || principalID == "" {
		return false, fmt.Errorf("access: workspace id and principal id required")
	}

	existing, err := r.api.ListRoleAssignments(ctx, workspaceID)
	switch {
	case err == nil:
	case errors.Is(err, fabricapi.ErrForbidden):
		// Listing denied usually means the principal is not yet provisioned
		// in the workspace at all; treat as an empty set and try to assign.
		r.log.Warn().Str("workspace_id", workspaceID).Msg("role listing forbidden, assuming no bindings")
		existing = nil
	default:
		r.log.Warn().Err(err).Str("workspace_id", workspaceID).Msg("role listing failed")
		existing = nil
	}

	for _, binding := range existing {
		if binding.Principal.ID != principalID {
			continue
		}
		if Sufficient(binding.Role, desired) {
			r.log.Info().
				Str("role", binding.Role).
				Str("principal_id", principalID).
				Msg("existing role sufficient")
			return true, nil
		}
	}

	principal := fabricapi.Principal{ID: principalID, Type: principalType}
	err = r.api.CreateRoleAssignment(ctx, workspaceID, principal, desired)
	switch {
	case err == nil:
		r.log.Info().Str("role", desired).Str("principal_id", principalID).Msg("role assigned")
		return true, nil
	case errors.Is(err, fabricapi.ErrForbidden):
		r.log.Warn().
			Str("role", desired).
			Str("principal_id", principalID).
			Msg("cannot assign role, principal may already hold out-of-band access")
		return false, nil
	default:
		r.log.Warn().Err(err).Str("role", desired).Msg("role assignment unconfirmed")
		return false, nil
	}
}
