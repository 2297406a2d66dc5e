package items

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/nasif-azam/fabricctl/internal/testutil/testlog"
)

func writeTree(t *testing.T, root string, dirs []string, files map[string]string) {
	t.Helper()
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", d, err)
		}
	}
	for path, content := range files {
		full := filepath.Join(root, path)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", path, err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
}

func typedOnly(artifacts []Artifact) []Artifact {
	var out []Artifact
	for _, a := range artifacts {
		if a.Type != TypeUnknown {
			out = append(out, a)
		}
	}
	return out
}

func TestDiscoverClassifiesAndIgnoresPlainFiles(t *testing.T) {
	testlog.Start(t)

	root := t.TempDir()
	writeTree(t, root,
		[]string{
			"Development/SalesReport.Report",
			"Development/SalesModel.SemanticModel",
		},
		map[string]string{
			"Development/notes.txt": "not an item",
		},
	)

	artifacts, err := Discover(root, zerolog.Nop())
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	typed := typedOnly(artifacts)
	if len(typed) != 2 {
		t.Fatalf("expected 2 typed artifacts, got %d", len(typed))
	}

	byName := map[string]Type{}
	for _, a := range typed {
		byName[a.DisplayName] = a.Type
	}
	if byName["SalesReport"] != TypeReport {
		t.Fatalf("expected SalesReport as Report, got %v", byName)
	}
	if byName["SalesModel"] != TypeSemanticModel {
		t.Fatalf("expected SalesModel as SemanticModel, got %v", byName)
	}
}

func TestDiscoverUnknownFoldersExcludedFromTypedSet(t *testing.T) {
	testlog.Start(t)

	root := t.TempDir()
	writeTree(t, root, []string{
		"Development/Sales.Report",
		"Development/scratch",
	}, nil)

	artifacts, err := Discover(root, zerolog.Nop())
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(artifacts) != 2 {
		t.Fatalf("expected unknown folder recorded, got %d artifacts", len(artifacts))
	}
	if len(typedOnly(artifacts)) != 1 {
		t.Fatalf("expected 1 typed artifact, got %d", len(typedOnly(artifacts)))
	}
	for _, a := range artifacts {
		if a.FolderName == "scratch" && a.Type != TypeUnknown {
			t.Fatalf("expected scratch as Unknown, got %s", a.Type)
		}
	}
}

func TestDiscoverMissingFolderFails(t *testing.T) {
	testlog.Start(t)

	if _, err := Discover(t.TempDir(), zerolog.Nop()); !errors.Is(err, ErrDiscovery) {
		t.Fatalf("expected ErrDiscovery, got %v", err)
	}
}

func TestDiscoverEmptyFolderFails(t *testing.T) {
	testlog.Start(t)

	root := t.TempDir()
	writeTree(t, root, []string{"Development"}, nil)
	if _, err := Discover(root, zerolog.Nop()); !errors.Is(err, ErrDiscovery) {
		t.Fatalf("expected ErrDiscovery for empty tree, got %v", err)
	}
}

func TestClassifyMarkerPriorityOrder(t *testing.T) {
	testlog.Start(t)

	// Dataflow precedes Report in the marker table, so a pathological name
	// carrying both markers classifies as Dataflow.
	a := Classify("Weird.Dataflow.Report")
	if a.Type != TypeDataflow {
		t.Fatalf("expected priority order to pick Dataflow, got %s", a.Type)
	}

	if got := Classify("Monthly.Dashboard"); got.Type != TypeDashboard || got.DisplayName != "Monthly" {
		t.Fatalf("unexpected classification %+v", got)
	}
	if got := Classify("ETL.Pipeline"); got.Type != TypePipeline {
		t.Fatalf("expected Pipeline, got %s", got.Type)
	}
}
