package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/lookerops/dashsync/internal/config"
	"github.com/lookerops/dashsync/internal/githubapi"
	"github.com/lookerops/dashsync/internal/logging"
	"github.com/lookerops/dashsync/internal/lookerapi"
	"github.com/lookerops/dashsync/internal/pipeline"
	"github.com/lookerops/dashsync/internal/store"
	"github.com/lookerops/dashsync/internal/webhook"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var runSyncFunc = pipeline.Run
var runImportFunc = pipeline.RunImport
var listenAndServeFunc = http.ListenAndServe

func newRootCommand() *cobra.Command {
	var logLevel string
	root := &cobra.Command{
		Use:   "dashsync",
		Short: "Sync Looker dashboards into LookML projects",
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", defaultLogLevel(), "log level (debug|info|warn|error)")
	root.AddCommand(newSyncCommand(&logLevel))
	root.AddCommand(newImportCommand(&logLevel))
	root.AddCommand(newWebhookCommand(&logLevel))
	return root
}

func defaultLogLevel() string {
	if v := os.Getenv("DASHSYNC_LOG_LEVEL"); v != "" {
		return v
	}
	return "info"
}

func newSyncCommand(logLevel *string) *cobra.Command {
	var dashboardID, tenantName, tenantDir, baseDashboard, baseOwner, baseRepo, schemaPath string
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync one dashboard into a tenant project, diffed against its base",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dashboardID == "" || tenantName == "" {
				return fmt.Errorf("--dashboard-id and --tenant-name are required")
			}
			log := logging.New(*logLevel)
			cfg := config.FromEnv()
			if err := cfg.ValidateLooker(); err != nil {
				return err
			}
			dir := tenantDir
			if dir == "" {
				dir = filepath.Join("..", tenantName)
			}
			res, err := runSyncFunc(cmd.Context(), pipeline.Options{
				DashboardID:   dashboardID,
				TenantName:    tenantName,
				TenantDir:     dir,
				BaseDashboard: baseDashboard,
				BaseOwner:     baseOwner,
				BaseRepo:      baseRepo,
				SchemaPath:    schemaPath,
				DryRun:        dryRun,
				Looker:        lookerapi.New(lookerClientConfig(cfg)),
				GitHub:        githubapi.New(githubapi.Config{Token: cfg.GitHub.Token}),
				Log:           log,
			})
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res.Action, res.FilePath, res.Output, res.Written)
			return store.AppendCIOutputs(res.CIOutputs())
		},
	}
	cmd.Flags().StringVar(&dashboardID, "dashboard-id", "", "Looker dashboard ID")
	cmd.Flags().StringVar(&tenantName, "tenant-name", "", "tenant project name")
	cmd.Flags().StringVar(&tenantDir, "tenant-dir", "", "tenant project directory (default ../<tenant-name>)")
	cmd.Flags().StringVar(&baseDashboard, "base-dashboard", "", "base dashboard this one extends (detected from the existing file when omitted)")
	cmd.Flags().StringVar(&baseOwner, "base-repo-owner", "", "base project repository owner (overrides the manifest)")
	cmd.Flags().StringVar(&baseRepo, "base-repo-name", "", "base project repository name (overrides the manifest)")
	cmd.Flags().StringVar(&schemaPath, "schema", filepath.Join("schemas", "dashboard.schema.json"), "dashboard JSON schema path")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the generated document instead of writing")
	return cmd
}

func newImportCommand(logLevel *string) *cobra.Command {
	var dashboardID, outputDir string
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import one dashboard into the base project",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dashboardID == "" {
				return fmt.Errorf("--dashboard-id is required")
			}
			log := logging.New(*logLevel)
			cfg := config.FromEnv()
			if err := cfg.ValidateLooker(); err != nil {
				return err
			}
			res, err := runImportFunc(cmd.Context(), pipeline.ImportOptions{
				DashboardID: dashboardID,
				OutputDir:   outputDir,
				DryRun:      dryRun,
				Looker:      lookerapi.New(lookerClientConfig(cfg)),
				Log:         log,
			})
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res.Action, res.FilePath, res.Output, res.Written)
			return store.AppendCIOutputs(res.CIOutputs())
		},
	}
	cmd.Flags().StringVar(&dashboardID, "dashboard-id", "", "Looker dashboard ID")
	cmd.Flags().StringVar(&outputDir, "output-dir", "dashboards", "dashboards directory of the base project")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the cleaned document instead of writing")
	return cmd
}

func newWebhookCommand(logLevel *string) *cobra.Command {
	webhookCmd := &cobra.Command{
		Use:   "webhook",
		Short: "Looker Action Hub endpoint",
	}

	var port int

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the action hub server",
		RunE: func(_ *cobra.Command, _ []string) error {
			log := logging.New(*logLevel)
			cfg := config.FromEnv()
			if err := cfg.ValidateDispatch(); err != nil {
				return err
			}
			wcfg := webhook.Config{
				Port:         port,
				ActionSecret: cfg.Webhook.ActionSecret,
				RepoOwner:    cfg.GitHub.RepoOwner,
				RepoName:     cfg.GitHub.RepoName,
				WorkflowFile: cfg.Webhook.WorkflowFile,
				WorkflowRef:  cfg.Webhook.WorkflowRef,
			}
			dispatcher := githubapi.New(githubapi.Config{Token: cfg.GitHub.Token})

			mux := http.NewServeMux()
			mux.Handle("/healthz", webhook.HealthHandler())
			mux.Handle("/", webhook.Handler(wcfg, dispatcher, log))

			addr := fmt.Sprintf(":%d", wcfg.Port)
			log.Info("action hub listening", "addr", addr)
			return listenAndServeFunc(addr, mux)
		},
	}
	serveCmd.Flags().IntVar(&port, "port", webhook.DefaultConfig().Port, "listen port")

	webhookCmd.AddCommand(serveCmd)
	return webhookCmd
}

func lookerClientConfig(cfg *config.Config) lookerapi.Config {
	return lookerapi.Config{
		BaseURL:      cfg.Looker.BaseURL,
		ClientID:     cfg.Looker.ClientID,
		ClientSecret: cfg.Looker.ClientSecret,
		Timeout:      cfg.Looker.Timeout,
	}
}

func printResult(w io.Writer, action, path, output string, written bool) {
	if !written {
		fmt.Fprintf(w, "--- DRY RUN: %s → %s ---\n%s", action, path, output)
		return
	}
	color.New(color.FgGreen).Fprintf(w, "✔ Dashboard %s: %s\n", action, path)
}
