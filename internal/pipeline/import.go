package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/lookerops/dashsync/internal/lookml"
	"github.com/lookerops/dashsync/internal/store"
)

// ImportOptions configure one base-project import run.
type ImportOptions struct {
	DashboardID string
	OutputDir   string
	DryRun      bool

	Looker DashboardFetcher
	Log    *slog.Logger
}

// ImportResult reports what an import run produced.
type ImportResult struct {
	DashboardName string
	FilePath      string
	Action        string
	Output        string
	Written       bool
}

// CIOutputs returns the run summary as workflow output pairs.
func (r *ImportResult) CIOutputs() []store.Output {
	return []store.Output{
		{Key: "dashboard_name", Value: r.DashboardName},
		{Key: "file_path", Value: r.FilePath},
		{Key: "action", Value: r.Action},
	}
}

// RunImport pulls a dashboard export into the base project: volatile id
// fields are stripped and the model reference is replaced with the manifest
// constant, but the export's own formatting is otherwise kept byte for byte.
func RunImport(ctx context.Context, opts ImportOptions) (*ImportResult, error) {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

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

	cleaned := lookml.StripVolatileFields(raw)
	cleaned = lookml.InsertModelPlaceholder(cleaned)

	res := &ImportResult{DashboardName: name, Output: cleaned}
	if existing := store.FindExistingFile(opts.OutputDir, name); existing != "" {
		res.FilePath = existing
		res.Action = ActionUpdated
	} else {
		res.FilePath = filepath.Join(opts.OutputDir, name+store.FileExtension)
		res.Action = ActionCreated
	}

	if opts.DryRun {
		return res, nil
	}
	if err := store.WriteFile(res.FilePath, cleaned); err != nil {
		return nil, err
	}
	res.Written = true
	log.Info("dashboard written", "action", res.Action, "path", res.FilePath)
	return res, nil
}
