package workspace

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/nasif-azam/fabricctl/internal/fabricapi"
	"github.com/nasif-azam/fabricctl/internal/testutil/testlog"
)

type fakeAPI struct {
	workspaces []fabricapi.Workspace
	createErr  error
	creates    int
	nextID     string
}

func (f *fakeAPI) GetWorkspace(_ context.Context, id string) (fabricapi.Workspace, error) {
	for _, ws := range f.workspaces {
		if ws.ID == id {
			return ws, nil
		}
	}
	return fabricapi.Workspace{}, &fabricapi.APIError{Status: 404, Body: "not found"}
}

func (f *fakeAPI) ListWorkspaces(_ context.Context) ([]fabricapi.Workspace, error) {
	return f.workspaces, nil
}

func (f *fakeAPI) CreateWorkspace(_ context.Context, displayName, capacityID string) (fabricapi.Workspace, error) {
	f.creates++
	if f.createErr != nil {
		return fabricapi.Workspace{}, f.createErr
	}
	ws := fabricapi.Workspace{ID: f.nextID, DisplayName: displayName, CapacityID: capacityID}
	f.workspaces = append(f.workspaces, ws)
	return ws, nil
}

func (f *fakeAPI) ListRoleAssignments(context.Context, string) ([]fabricapi.RoleAssignment, error) {
	return nil, nil
}

func (f *fakeAPI) CreateRoleAssignment(context.Context, string, fabricapi.Principal, string) error {
	return nil
}

func (f *fakeAPI) CreateItem(context.Context, string, fabricapi.ItemRequest) error {
	return nil
}

func TestEnsureExplicitIDReturnsAsIs(t *testing.T) {
	testlog.Start(t)

	api := &fakeAPI{workspaces: []fabricapi.Workspace{{ID: "ws-1", DisplayName: "Prod"}}}
	r := NewReconciler(api, zerolog.Nop())

	ws, err := r.Ensure(context.Background(), Spec{Name: "Prod", ExplicitID: "ws-1"})
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if ws.ID != "ws-1" {
		t.Fatalf("expected ws-1, got %q", ws.ID)
	}
	if api.creates != 0 {
		t.Fatalf("expected no create call, got %d", api.creates)
	}
}

func TestEnsureCreatesWhenAbsent(t *testing.T) {
	testlog.Start(t)

	api := &fakeAPI{nextID: "ws-new"}
	r := NewReconciler(api, zerolog.Nop())

	ws, err := r.Ensure(context.Background(), Spec{Name: "Prod", CapacityID: "cap-1"})
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if ws.ID != "ws-new" || ws.CapacityID != "cap-1" {
		t.Fatalf("unexpected workspace %+v", ws)
	}
}

func TestEnsureIdempotentAcrossRuns(t *testing.T) {
	testlog.Start(t)

	api := &fakeAPI{nextID: "ws-new"}
	r := NewReconciler(api, zerolog.Nop())

	first, err := r.Ensure(context.Background(), Spec{Name: "Prod", CapacityID: "cap-1"})
	if err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	second, err := r.Ensure(context.Background(), Spec{Name: "Prod", CapacityID: "cap-1"})
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected identical identity, got %q then %q", first.ID, second.ID)
	}
	if api.creates != 1 {
		t.Fatalf("expected exactly one create across runs, got %d", api.creates)
	}
}

func TestEnsureConflictFallsBackToCallerSuppliedID(t *testing.T) {
	testlog.Start(t)

	// Explicit id that is not fetchable yet, then a 409 on create: the
	// caller-supplied id is the resolved identity and no error surfaces.
	api := &fakeAPI{createErr: &fabricapi.APIError{Status: 409, Body: "exists"}}
	r := NewReconciler(api, zerolog.Nop())

	ws, err := r.Ensure(context.Background(), Spec{Name: "Prod", ExplicitID: "ws-given", CapacityID: "cap-1"})
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if ws.ID != "ws-given" {
		t.Fatalf("expected caller-supplied id, got %q", ws.ID)
	}
}

func TestEnsureConflictWithoutExplicitIDRefetchesByName(t *testing.T) {
	testlog.Start(t)

	api := &fakeAPI{createErr: &fabricapi.APIError{Status: 409, Body: "exists"}}
	r := NewReconciler(api, zerolog.Nop())

	if _, err := r.Ensure(context.Background(), Spec{Name: "Prod"}); !errors.Is(err, ErrWorkspace) {
		t.Fatalf("expected ErrWorkspace when conflict cannot be resolved, got %v", err)
	}

	// A concurrent creator that shows up in the listing resolves cleanly.
	api.workspaces = []fabricapi.Workspace{{ID: "ws-other", DisplayName: "Prod"}}
	ws, err := r.Ensure(context.Background(), Spec{Name: "Prod"})
	if err != nil {
		t.Fatalf("ensure after listing catches up: %v", err)
	}
	if ws.ID != "ws-other" {
		t.Fatalf("expected re-fetched id, got %q", ws.ID)
	}
}

func TestEnsureOtherCreateFailureIsFatal(t *testing.T) {
	testlog.Start(t)

	api := &fakeAPI{createErr: &fabricapi.APIError{Status: 500, Body: "boom"}}
	r := NewReconciler(api, zerolog.Nop())

	if _, err := r.Ensure(context.Background(), Spec{Name: "Prod"}); !errors.Is(err, ErrWorkspace) {
		t.Fatalf("expected ErrWorkspace, got %v", err)
	}
}
