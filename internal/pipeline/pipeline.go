// Package pipeline runs the dashboard flows end to end: the tenant sync
// that diffs a Looker export against the pinned base project, and the
// base-project import that cleans an export for hand maintenance.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lookerops/dashsync/internal/diff"
	"github.com/lookerops/dashsync/internal/generate"
	"github.com/lookerops/dashsync/internal/githubapi"
	"github.com/lookerops/dashsync/internal/lookml"
	"github.com/lookerops/dashsync/internal/manifest"
	"github.com/lookerops/dashsync/internal/resolve"
	"github.com/lookerops/dashsync/internal/store"
	"github.com/lookerops/dashsync/pkg/schema"
)

// DashboardFetcher supplies a dashboard's LookML export.
// *lookerapi.Client satisfies it.
type DashboardFetcher interface {
	DashboardLookML(ctx context.Context, id string) (string, error)
}

// BaseFetcher reads base-project files at a pinned ref.
// *githubapi.Client satisfies it.
type BaseFetcher interface {
	ContentsAtRef(ctx context.Context, owner, repo, ref, path string) (string, error)
}

// Options configure one tenant sync run.
type Options struct {
	DashboardID   string
	TenantName    string
	TenantDir     string
	BaseDashboard string // explicit base override; empty means detect from the existing file
	BaseOwner     string // overrides the manifest pin
	BaseRepo      string // overrides the manifest pin
	SchemaPath    string // dashboard schema; empty or absent skips validation
	DryRun        bool

	Looker DashboardFetcher
	GitHub BaseFetcher
	Log    *slog.Logger
}

const (
	ActionCreated = "CREATED"
	ActionUpdated = "UPDATED"
)

// Result reports what a sync run produced.
type Result struct {
	DashboardName string
	FilePath      string
	Action        string
	IsExtend      bool
	Output        string
	Written       bool
}

// CIOutputs returns the run summary as workflow output pairs.
func (r *Result) CIOutputs() []store.Output {
	return []store.Output{
		{Key: "dashboard_name", Value: r.DashboardName},
		{Key: "file_path", Value: r.FilePath},
		{Key: "action", Value: r.Action},
		{Key: "is_extend", Value: strconv.FormatBool(r.IsExtend)},
	}
}

// Run syncs one tenant dashboard. The Looker export is fetched, the base
// reference resolved, and either an extends document with only the tenant's
// deltas or a full standalone document is generated and written into the
// tenant's dashboards directory. With DryRun set the write is skipped and
// the caller shows Output instead.
func Run(ctx context.Context, opts Options) (*Result, error) {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

	dashboardsDir := filepath.Join(opts.TenantDir, "dashboards")
	manifestPath := filepath.Join(opts.TenantDir, "manifest.lkml")

	log.Info("fetching dashboard", "dashboard_id", opts.DashboardID)
	raw, err := opts.Looker.DashboardLookML(ctx, opts.DashboardID)
	if err != nil {
		return nil, fmt.Errorf("fetch dashboard %s: %w", opts.DashboardID, err)
	}

	name := lookml.ExtractDashboardName(raw)
	if name == "" {
		return nil, &lookml.ParseError{Msg: "no dashboard entry in export"}
	}
	log.Info("dashboard detected", "name", name)

	baseName := resolve.BaseDashboard(opts.BaseDashboard, dashboardsDir, name)
	pin := basePin(opts, manifestPath, log)

	var output string
	if baseName != "" {
		output, err = runExtends(ctx, opts, log, raw, name, baseName, pin)
	} else {
		log.Info("standalone dashboard", "model", pin.model)
		output, err = generate.Standalone(raw, pin.model)
	}
	if err != nil {
		return nil, err
	}

	res := &Result{DashboardName: name, IsExtend: baseName != "", Output: output}
	if existing := store.FindExistingFile(dashboardsDir, name); existing != "" {
		res.FilePath = existing
		res.Action = ActionUpdated
	} else {
		res.FilePath = filepath.Join(dashboardsDir, name+store.FileExtension)
		res.Action = ActionCreated
	}

	if opts.DryRun {
		return res, nil
	}
	if err := store.WriteFile(res.FilePath, output); err != nil {
		return nil, err
	}
	res.Written = true
	log.Info("dashboard written", "action", res.Action, "path", res.FilePath)
	return res, nil
}

// basePinInfo is the resolved base-project pin for one run: where to fetch
// the base dashboard from and which model name the tenant binds.
type basePinInfo struct {
	owner string
	repo  string
	ref   string
	model string
}

// basePin merges the CLI overrides with the tenant manifest. CLI owner and
// repo win; the manifest supplies ref and model name, falling back to the
// "main" ref and the tenant name as model.
func basePin(opts Options, manifestPath string, log *slog.Logger) basePinInfo {
	pin := basePinInfo{
		owner: opts.BaseOwner,
		repo:  opts.BaseRepo,
		ref:   "main",
		model: opts.TenantName,
	}
	info, err := manifest.Read(manifestPath)
	if err != nil {
		log.Debug("no tenant manifest", "path", manifestPath, "error", err)
		return pin
	}
	log.Info("manifest read", "path", manifestPath, "ref", info.BaseRef, "model", info.ModelName)
	if info.ModelName != "" {
		pin.model = info.ModelName
	}
	if info.BaseRef != "" {
		pin.ref = info.BaseRef
	}
	if pin.owner == "" {
		pin.owner = info.BaseOwner
	}
	if pin.repo == "" {
		pin.repo = info.BaseRepo
	}
	return pin
}

func runExtends(ctx context.Context, opts Options, log *slog.Logger, raw, name, baseName string, pin basePinInfo) (string, error) {
	log.Info("dashboard extends base",
		"base", baseName, "ref", pin.ref, "repo", pin.owner+"/"+pin.repo, "model", pin.model)

	basePath := "dashboards/" + baseName + store.FileExtension
	baseText, err := opts.GitHub.ContentsAtRef(ctx, pin.owner, pin.repo, pin.ref, basePath)
	if err != nil {
		if errors.Is(err, githubapi.ErrNotFound) {
			// The base file may have been renamed or not released at the
			// pinned ref yet. The tenant still gets a full copy, with the
			// model left as the manifest constant.
			log.Warn("base dashboard not found, generating standalone", "base", baseName, "ref", pin.ref)
			return generate.Standalone(raw, "")
		}
		return "", fmt.Errorf("fetch base dashboard %s: %w", baseName, err)
	}

	tenantDoc, err := lookml.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse tenant dashboard: %w", err)
	}
	baseDoc, err := lookml.Parse(baseText)
	if err != nil {
		return "", fmt.Errorf("parse base dashboard %s: %w", baseName, err)
	}

	if err := validateDocs(opts.SchemaPath, log, tenantDoc, baseDoc); err != nil {
		return "", err
	}

	elements := diff.Elements(tenantDoc.Elements(), baseDoc.Elements())
	filters := diff.Filters(tenantDoc.Filters(), baseDoc.Filters())
	log.Info("diff computed",
		"tenant_elements", len(tenantDoc.Elements()),
		"base_elements", len(baseDoc.Elements()),
		"changed_elements", len(elements),
		"changed_filters", len(filters))

	return generate.Extends(generate.ExtendsParams{
		DashboardName: name,
		TenantName:    opts.TenantName,
		BaseName:      baseName,
		Title:         tenantDoc.Title(),
		TenantModel:   pin.model,
		Elements:      elements,
		Filters:       filters,
	})
}

// validateDocs checks both parsed dashboards against the repository schema.
// A missing schema file is a skip, not a failure, so checkouts without the
// schemas directory still sync.
func validateDocs(schemaPath string, log *slog.Logger, tenant, base *lookml.Document) error {
	if schemaPath == "" {
		return nil
	}
	if _, err := os.Stat(schemaPath); err != nil {
		log.Debug("dashboard schema not found, skipping validation", "path", schemaPath)
		return nil
	}
	docs := []struct {
		label string
		doc   *lookml.Document
	}{
		{"tenant", tenant},
		{"base", base},
	}
	for _, d := range docs {
		attrs, err := d.doc.Attrs()
		if err != nil {
			return err
		}
		violations, err := schema.ValidateDashboard(schemaPath, attrs)
		if err != nil {
			return err
		}
		if len(violations) > 0 {
			return fmt.Errorf("%s dashboard failed validation: %s", d.label, strings.Join(violations, "; "))
		}
	}
	return nil
}
