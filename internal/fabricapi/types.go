// Package fabricapi is a thin typed client for the Fabric control-plane REST
// surface: workspaces, role assignments, and item creation.
//
// It intentionally avoids reconciliation policy; callers decide what a 409 or
// 403 means for their step.
package fabricapi

// Workspace is one remote workspace container.
type Workspace struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	CapacityID  string `json:"capacityId,omitempty"`
	Description string `json:"description,omitempty"`
}

// Principal identifies the identity a role binds to.
type Principal struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// RoleAssignment is one principal-to-role binding within a workspace.
type RoleAssignment struct {
	ID        string    `json:"id,omitempty"`
	Principal Principal `json:"principal"`
	Role      string    `json:"role"`
}

// DefinitionPart is one encoded payload inside an item definition.
type DefinitionPart struct {
	Path        string `json:"path"`
	Payload     string `json:"payload"`
	PayloadType string `json:"payloadType"`
}

// Definition wraps the parts list the create-item call expects.
type Definition struct {
	Parts []DefinitionPart `json:"parts"`
}

// ItemRequest is the body of a create-item call.
type ItemRequest struct {
	DisplayName string      `json:"displayName"`
	Type        string      `json:"type"`
	Definition  *Definition `json:"definition,omitempty"`
}

type workspaceList struct {
	Value []Workspace `json:"value"`
}

type roleAssignmentList struct {
	Value []RoleAssignment `json:"value"`
}

type createWorkspaceRequest struct {
	DisplayName string `json:"displayName"`
	CapacityID  string `json:"capacityId,omitempty"`
	Description string `json:"description,omitempty"`
}

type createRoleAssignmentRequest struct {
	Principal Principal `json:"principal"`
	Role      string    `json:"role"`
}
