package observability

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func serveStatus(t *testing.T, snapshot SnapshotFunc, path string) *httptest.ResponseRecorder {
	t.Helper()

	s := NewStatusServer("127.0.0.1:0", snapshot, zerolog.Nop())
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.handler().ServeHTTP(rec, req)
	return rec
}

func TestStatusServerHealthz(t *testing.T) {
	rec := serveStatus(t, func() StatusSnapshot { return StatusSnapshot{} }, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode healthz body: %v", err)
	}
	if body["status"] != "ok" || body["component"] != "fabricctl" {
		t.Fatalf("unexpected healthz body: %v", body)
	}
}

func TestStatusServerSnapshot(t *testing.T) {
	snapshot := StatusSnapshot{
		RunID:     "run-1",
		Phase:     "Deploying",
		Workspace: "Analytics-Prod",
		Total:     3,
		Success:   2,
		Failed:    1,
		Items: []StatusItem{
			{Name: "Sales", Type: "Report", Status: "Deployed"},
		},
	}
	rec := serveStatus(t, func() StatusSnapshot { return snapshot }, "/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status endpoint = %d", rec.Code)
	}

	var got StatusSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if got.RunID != "run-1" || got.Phase != "Deploying" || got.Failed != 1 {
		t.Fatalf("snapshot not served verbatim: %+v", got)
	}
	if len(got.Items) != 1 || got.Items[0].Name != "Sales" {
		t.Fatalf("snapshot items not served: %+v", got.Items)
	}
}

func TestStatusServerMetricsEndpoint(t *testing.T) {
	RecordItemOutcome("Notebook", "Deployed")

	rec := serveStatus(t, func() StatusSnapshot { return StatusSnapshot{} }, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics endpoint = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "fabricctl_deploy_items_total") {
		t.Fatal("expected deploy counter in metrics exposition")
	}
}
