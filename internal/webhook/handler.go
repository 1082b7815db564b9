package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// WorkflowDispatcher triggers a CI workflow run for a dashboard.
// *githubapi.Client satisfies it.
type WorkflowDispatcher interface {
	DispatchWorkflow(ctx context.Context, owner, repo, workflowFile, ref string, inputs map[string]string) error
}

const maxBodyBytes = 1 * 1024 * 1024 // 1 MB

// iconDataURI is the upload glyph Looker shows next to the action.
const iconDataURI = "data:image/svg+xml;base64,PHN2ZyB4bWxucz0iaHR0cDovL3d3dy53My5vcmcvMjAwMC9zdmciIHdpZHRoPSIyNCIgaGVpZ2h0PSIyNCIgdmlld0JveD0iMCAwIDI0IDI0IiBmaWxsPSJub25lIiBzdHJva2U9IiM1OGE2ZmYiIHN0cm9rZS13aWR0aD0iMiI+PHBhdGggZD0iTTIxIDE1djRhMiAyIDAgMCAxLTIgMkg1YTIgMiAwIDAgMS0yLTJ2LTQiLz48cG9seWxpbmUgcG9pbnRzPSIxNyA4IDEyIDMgNyA4Ii8+PGxpbmUgeDE9IjEyIiB5MT0iMyIgeDI9IjEyIiB5Mj0iMTUiLz48L3N2Zz4="

// Handler returns an http.Handler that serves the Looker Action Hub
// protocol: the integration listing at the root, the dynamic form at
// .../form and the action execution at .../execute. Looker proxies may
// mount the endpoint under an arbitrary prefix, so routing goes by path
// suffix rather than exact match.
func Handler(cfg Config, dispatcher WorkflowDispatcher, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleAction(w, r, cfg, dispatcher, log)
	})
}

// HealthHandler returns an HTTP handler for liveness and readiness probes.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func handleAction(w http.ResponseWriter, r *http.Request, cfg Config, dispatcher WorkflowDispatcher, log *slog.Logger) {
	delivery := uuid.NewString()
	path := strings.TrimRight(r.URL.Path, "/")
	log.Info("action hub request", "delivery", delivery, "method", r.Method, "path", r.URL.Path)

	isForm := strings.HasSuffix(path, "/form")
	isExecute := strings.HasSuffix(path, "/execute")

	switch {
	case isForm && r.Method == http.MethodPost:
		writeJSON(w, http.StatusOK, formFields())
	case isExecute && r.Method == http.MethodPost:
		handleExecute(w, r, cfg, dispatcher, log, delivery)
	case !isForm && !isExecute:
		writeJSON(w, http.StatusOK, actionList(requestBaseURL(r)))
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not Found"})
	}
}

func handleExecute(w http.ResponseWriter, r *http.Request, cfg Config, dispatcher WorkflowDispatcher, log *slog.Logger, delivery string) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeEnvelope(w, http.StatusInternalServerError, false, fmt.Sprintf("Error: %v", err))
		return
	}

	var payload executePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		// Looker clients occasionally send empty bodies; an empty form
		// falls through to the cancel path below.
		payload = executePayload{}
	}
	dashboardID := payload.FormParams["dashboard_id"]
	confirm := payload.FormParams["confirm"]

	if confirm != "yes" {
		writeEnvelope(w, http.StatusOK, true, "Action cancelled by the user.")
		return
	}
	if dashboardID == "" {
		writeEnvelope(w, http.StatusBadRequest, false, "Missing dashboard ID.")
		return
	}
	if cfg.ActionSecret != "" {
		auth := r.Header.Get("Authorization")
		if !strings.Contains(auth, fmt.Sprintf("Token token=%q", cfg.ActionSecret)) {
			log.Warn("rejected unauthenticated execute", "delivery", delivery)
			writeEnvelope(w, http.StatusUnauthorized, false, "Unauthorized")
			return
		}
	}

	inputs := map[string]string{"dashboard_id": dashboardID}
	if err := dispatcher.DispatchWorkflow(r.Context(), cfg.RepoOwner, cfg.RepoName, cfg.WorkflowFile, cfg.WorkflowRef, inputs); err != nil {
		log.Error("workflow dispatch failed", "delivery", delivery, "dashboard_id", dashboardID, "error", err)
		writeEnvelope(w, http.StatusOK, false, fmt.Sprintf("Error: %v", err))
		return
	}

	log.Info("workflow dispatched", "delivery", delivery, "dashboard_id", dashboardID, "workflow", cfg.WorkflowFile)
	writeEnvelope(w, http.StatusOK, true, fmt.Sprintf("Workflow dispatched for dashboard %s.", dashboardID))
}

type executePayload struct {
	FormParams map[string]string `json:"form_params"`
}

type integration struct {
	Name                 string   `json:"name"`
	Label                string   `json:"label"`
	Description          string   `json:"description"`
	SupportedActionTypes []string `json:"supported_action_types"`
	IconDataURI          string   `json:"icon_data_uri"`
	FormURL              string   `json:"form_url"`
	URL                  string   `json:"url"`
	SupportedFormats     []string `json:"supported_formats"`
	Params               []string `json:"params"`
}

type listing struct {
	Label        string        `json:"label"`
	Integrations []integration `json:"integrations"`
}

func actionList(baseURL string) listing {
	return listing{
		Label: "LookML Dashboard Updater",
		Integrations: []integration{
			{
				Name:                 "update_lookml_dashboard",
				Label:                "Update dashboard in base project",
				Description:          "Imports this dashboard's LookML, strips volatile ids and parameterizes the model reference",
				SupportedActionTypes: []string{"dashboard"},
				IconDataURI:          iconDataURI,
				FormURL:              baseURL + "/form",
				URL:                  baseURL + "/execute",
				SupportedFormats:     []string{"txt"},
				Params:               []string{},
			},
		},
	}
}

type formField struct {
	Name        string       `json:"name"`
	Label       string       `json:"label"`
	Description string       `json:"description"`
	Type        string       `json:"type"`
	Required    bool         `json:"required"`
	Options     []formOption `json:"options,omitempty"`
	Default     string       `json:"default,omitempty"`
}

type formOption struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

func formFields() []formField {
	return []formField{
		{
			Name:        "dashboard_id",
			Label:       "Dashboard ID",
			Description: "Looker ID of the dashboard to update in the base project",
			Type:        "text",
			Required:    true,
		},
		{
			Name:        "confirm",
			Label:       "Confirm update",
			Description: "Update this dashboard in the base project?",
			Type:        "select",
			Required:    true,
			Options: []formOption{
				{Name: "yes", Label: "Yes, update"},
				{Name: "no", Label: "No, cancel"},
			},
			Default: "yes",
		},
	}
}

// requestBaseURL rebuilds the externally visible URL of the action
// endpoint so the listing can point Looker at its own form/execute
// routes, honoring the proxy's X-Forwarded-Proto.
func requestBaseURL(r *http.Request) string {
	proto := r.Header.Get("X-Forwarded-Proto")
	if proto == "" {
		proto = "https"
	}
	path := strings.TrimRight(r.URL.Path, "/")
	for _, suffix := range []string{"/form", "/execute", "/action_list"} {
		if strings.HasSuffix(path, suffix) {
			path = strings.TrimSuffix(path, suffix)
			break
		}
	}
	return proto + "://" + r.Host + path
}

type envelope struct {
	Looker status `json:"looker"`
}

type status struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeEnvelope(w http.ResponseWriter, code int, success bool, message string) {
	writeJSON(w, code, envelope{Looker: status{Success: success, Message: message}})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
