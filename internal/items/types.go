// Package items discovers deployable artifacts in a source tree and
// materializes them into a target workspace.
package items

// Type classifies one deployable artifact.
type Type string

const (
	TypeReport        Type = "Report"
	TypeSemanticModel Type = "SemanticModel"
	TypeLakehouse     Type = "Lakehouse"
	TypeDataflow      Type = "Dataflow"
	TypeNotebook      Type = "Notebook"
	TypePipeline      Type = "Pipeline"
	TypeDashboard     Type = "Dashboard"
	TypeUnknown       Type = "Unknown"
)

// typeMarkers maps folder-name markers to artifact types. Order is the
// classification priority: the first marker found in a folder name wins.
// Markers are expected to be mutually exclusive per folder; when a name
// carries more than one, this fixed order decides.
var typeMarkers = []struct {
	Marker string
	Type   Type
}{
	{".Dataflow", TypeDataflow},
	{".Lakehouse", TypeLakehouse},
	{".Report", TypeReport},
	{".SemanticModel", TypeSemanticModel},
	{".Notebook", TypeNotebook},
	{".Pipeline", TypePipeline},
	{".Dashboard", TypeDashboard},
}

// definitionFiles maps each type to its canonical definition filename.
// Notebooks additionally fall back to <displayName>.ipynb.
var definitionFiles = map[Type]string{
	TypeReport:        "definition.pbir",
	TypeSemanticModel: "definition.pbism",
	TypeLakehouse:     "lakehouse.metadata.json",
	TypeDataflow:      "mashup.pq",
	TypeNotebook:      "notebook-content.py",
	TypePipeline:      "pipeline-content.json",
	TypeDashboard:     "dashboard.json",
}

// Artifact is one typed deployable unit discovered from a folder. Immutable
// for the duration of a run.
type Artifact struct {
	DisplayName string
	Type        Type
	FolderName  string
	Path        string
}

// Status is the terminal state of one artifact's materialization.
type Status string

const (
	StatusDeployed Status = "Deployed"
	StatusFailed   Status = "Failed"
	StatusSkipped  Status = "Skipped"
)

// DeploymentResult is one append-only ledger entry.
type DeploymentResult struct {
	Artifact Artifact
	Status   Status
	Reason   string
}
