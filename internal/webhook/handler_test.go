package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fakeDispatcher struct {
	calls  int
	owner  string
	repo   string
	file   string
	ref    string
	inputs map[string]string
	err    error
}

func (f *fakeDispatcher) DispatchWorkflow(_ context.Context, owner, repo, workflowFile, ref string, inputs map[string]string) error {
	f.calls++
	f.owner, f.repo, f.file, f.ref, f.inputs = owner, repo, workflowFile, ref, inputs
	return f.err
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ActionSecret = "s3cret"
	cfg.RepoOwner = "acme"
	cfg.RepoName = "base_project"
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func executeBody(t *testing.T, params map[string]string) []byte {
	t.Helper()
	data, err := json.Marshal(map[string]any{"form_params": params})
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func decodeEnvelope(t *testing.T, data []byte) status {
	t.Helper()
	var resp envelope
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return resp.Looker
}

func TestHandlerListing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	Handler(testConfig(), &fakeDispatcher{}, discardLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp listing
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if resp.Label != "LookML Dashboard Updater" {
		t.Errorf("label = %q", resp.Label)
	}
	if len(resp.Integrations) != 1 {
		t.Fatalf("expected 1 integration, got %d", len(resp.Integrations))
	}
	got := resp.Integrations[0]
	if got.Name != "update_lookml_dashboard" {
		t.Errorf("name = %q", got.Name)
	}
	if got.FormURL != "https://example.com/form" {
		t.Errorf("form_url = %q", got.FormURL)
	}
	if got.URL != "https://example.com/execute" {
		t.Errorf("url = %q", got.URL)
	}
	if len(got.SupportedActionTypes) != 1 || got.SupportedActionTypes[0] != "dashboard" {
		t.Errorf("supported_action_types = %v", got.SupportedActionTypes)
	}
}

func TestHandlerListingHonorsForwardedProto(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/looker/action_list", nil)
	req.Header.Set("X-Forwarded-Proto", "http")
	rec := httptest.NewRecorder()

	Handler(testConfig(), &fakeDispatcher{}, discardLogger()).ServeHTTP(rec, req)

	var resp listing
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	// The known suffix is stripped so form/execute nest under the mount point.
	if resp.Integrations[0].FormURL != "http://example.com/looker/form" {
		t.Errorf("form_url = %q", resp.Integrations[0].FormURL)
	}
}

func TestHandlerForm(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/form", nil)
	rec := httptest.NewRecorder()

	Handler(testConfig(), &fakeDispatcher{}, discardLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var fields []formField
	if err := json.Unmarshal(rec.Body.Bytes(), &fields); err != nil {
		t.Fatalf("decode form: %v", err)
	}
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}
	if fields[0].Name != "dashboard_id" || fields[0].Type != "text" || !fields[0].Required {
		t.Errorf("dashboard_id field: %+v", fields[0])
	}
	if fields[1].Name != "confirm" || fields[1].Default != "yes" {
		t.Errorf("confirm field: %+v", fields[1])
	}
	if len(fields[1].Options) != 2 {
		t.Errorf("confirm options: %+v", fields[1].Options)
	}
}

func TestHandlerFormRejectsGet(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/form", nil)
	rec := httptest.NewRecorder()

	Handler(testConfig(), &fakeDispatcher{}, discardLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Not Found") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestHandlerExecuteDispatches(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	body := executeBody(t, map[string]string{"dashboard_id": "270", "confirm": "yes"})

	req := httptest.NewRequest(http.MethodPost, "/execute", bytes.NewReader(body))
	req.Header.Set("Authorization", `Token token="s3cret"`)
	rec := httptest.NewRecorder()

	Handler(testConfig(), dispatcher, discardLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	got := decodeEnvelope(t, rec.Body.Bytes())
	if !got.Success {
		t.Fatalf("expected success, got %q", got.Message)
	}
	if !strings.Contains(got.Message, "270") {
		t.Errorf("message = %q", got.Message)
	}
	if dispatcher.calls != 1 {
		t.Fatalf("dispatch calls = %d, want 1", dispatcher.calls)
	}
	if dispatcher.owner != "acme" || dispatcher.repo != "base_project" {
		t.Errorf("dispatched to %s/%s", dispatcher.owner, dispatcher.repo)
	}
	if dispatcher.file != "update_dashboard.yml" || dispatcher.ref != "main" {
		t.Errorf("workflow = %s@%s", dispatcher.file, dispatcher.ref)
	}
	if dispatcher.inputs["dashboard_id"] != "270" {
		t.Errorf("inputs = %v", dispatcher.inputs)
	}
}

func TestHandlerExecuteCancelled(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	body := executeBody(t, map[string]string{"dashboard_id": "270", "confirm": "no"})

	req := httptest.NewRequest(http.MethodPost, "/execute", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	Handler(testConfig(), dispatcher, discardLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	got := decodeEnvelope(t, rec.Body.Bytes())
	if !got.Success || !strings.Contains(got.Message, "cancelled") {
		t.Errorf("envelope = %+v", got)
	}
	if dispatcher.calls != 0 {
		t.Errorf("dispatch calls = %d, want 0", dispatcher.calls)
	}
}

func TestHandlerExecuteEmptyBodyCancels(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	req := httptest.NewRequest(http.MethodPost, "/execute", strings.NewReader(""))
	rec := httptest.NewRecorder()

	Handler(testConfig(), dispatcher, discardLogger()).ServeHTTP(rec, req)

	// No form params means no confirmation, which cancels without error.
	got := decodeEnvelope(t, rec.Body.Bytes())
	if !got.Success {
		t.Errorf("expected cancel to report success, got %+v", got)
	}
	if dispatcher.calls != 0 {
		t.Errorf("dispatch calls = %d, want 0", dispatcher.calls)
	}
}

func TestHandlerExecuteMissingDashboardID(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	body := executeBody(t, map[string]string{"confirm": "yes"})

	req := httptest.NewRequest(http.MethodPost, "/execute", bytes.NewReader(body))
	req.Header.Set("Authorization", `Token token="s3cret"`)
	rec := httptest.NewRecorder()

	Handler(testConfig(), dispatcher, discardLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	got := decodeEnvelope(t, rec.Body.Bytes())
	if got.Success {
		t.Error("expected failure envelope")
	}
	if dispatcher.calls != 0 {
		t.Errorf("dispatch calls = %d, want 0", dispatcher.calls)
	}
}

func TestHandlerExecuteRejectsBadSecret(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	body := executeBody(t, map[string]string{"dashboard_id": "270", "confirm": "yes"})

	req := httptest.NewRequest(http.MethodPost, "/execute", bytes.NewReader(body))
	req.Header.Set("Authorization", `Token token="wrong"`)
	rec := httptest.NewRecorder()

	Handler(testConfig(), dispatcher, discardLogger()).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	got := decodeEnvelope(t, rec.Body.Bytes())
	if got.Success || got.Message != "Unauthorized" {
		t.Errorf("envelope = %+v", got)
	}
	if dispatcher.calls != 0 {
		t.Errorf("dispatch calls = %d, want 0", dispatcher.calls)
	}
}

func TestHandlerExecuteNoSecretConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.ActionSecret = ""
	dispatcher := &fakeDispatcher{}
	body := executeBody(t, map[string]string{"dashboard_id": "42", "confirm": "yes"})

	req := httptest.NewRequest(http.MethodPost, "/execute", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	Handler(cfg, dispatcher, discardLogger()).ServeHTTP(rec, req)

	got := decodeEnvelope(t, rec.Body.Bytes())
	if !got.Success {
		t.Fatalf("expected success, got %q", got.Message)
	}
	if dispatcher.calls != 1 {
		t.Errorf("dispatch calls = %d, want 1", dispatcher.calls)
	}
}

func TestHandlerExecuteReportsDispatchFailure(t *testing.T) {
	dispatcher := &fakeDispatcher{err: errors.New("dispatch update_dashboard.yml: status 422: workflow not found")}
	body := executeBody(t, map[string]string{"dashboard_id": "270", "confirm": "yes"})

	req := httptest.NewRequest(http.MethodPost, "/execute", bytes.NewReader(body))
	req.Header.Set("Authorization", `Token token="s3cret"`)
	rec := httptest.NewRecorder()

	Handler(testConfig(), dispatcher, discardLogger()).ServeHTTP(rec, req)

	// Looker expects the failure inside the envelope, not as a transport error.
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	got := decodeEnvelope(t, rec.Body.Bytes())
	if got.Success {
		t.Error("expected failure envelope")
	}
	if !strings.Contains(got.Message, "status 422") {
		t.Errorf("message = %q", got.Message)
	}
}

func TestHealthHandler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	HealthHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("body = %q, want ok", rec.Body.String())
	}
}
