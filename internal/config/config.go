// Package config loads runtime settings from the environment.
//
// The variable names stay compatible with the Looker SDK convention
// (LOOKERSDK_*) and the existing CI secrets (GH_*, ACTION_SECRET), so a
// deployment needs no re-wiring to switch to this tool.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Looker holds the dashboard API connection settings.
type Looker struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// GitHub holds repository access settings for the base project and the
// workflow dispatch target.
type GitHub struct {
	Token     string
	RepoOwner string
	RepoName  string
}

// Webhook holds the trigger endpoint settings.
type Webhook struct {
	ActionSecret string
	WorkflowFile string
	WorkflowRef  string
}

// Config is the full runtime configuration.
type Config struct {
	Looker  Looker
	GitHub  GitHub
	Webhook Webhook
}

const defaultAPITimeout = 15 * time.Second

// FromEnv reads the configuration. Values are optional at load time; each
// entry point validates the subset it actually needs. LOOKERSDK_TIMEOUT
// accepts Go duration strings such as "30s".
func FromEnv() *Config {
	v := viper.New()
	for key, env := range map[string]string{
		"looker.base_url":       "LOOKERSDK_BASE_URL",
		"looker.client_id":      "LOOKERSDK_CLIENT_ID",
		"looker.client_secret":  "LOOKERSDK_CLIENT_SECRET",
		"looker.timeout":        "LOOKERSDK_TIMEOUT",
		"github.token":          "GH_TOKEN",
		"github.repo_owner":     "GH_REPO_OWNER",
		"github.repo_name":      "GH_REPO_NAME",
		"webhook.action_secret": "ACTION_SECRET",
		"webhook.workflow_file": "DASHSYNC_WORKFLOW_FILE",
		"webhook.workflow_ref":  "DASHSYNC_WORKFLOW_REF",
	} {
		_ = v.BindEnv(key, env)
	}
	v.SetDefault("looker.timeout", defaultAPITimeout)
	v.SetDefault("webhook.workflow_file", "update_dashboard.yml")
	v.SetDefault("webhook.workflow_ref", "main")

	return &Config{
		Looker: Looker{
			BaseURL:      v.GetString("looker.base_url"),
			ClientID:     v.GetString("looker.client_id"),
			ClientSecret: v.GetString("looker.client_secret"),
			Timeout:      v.GetDuration("looker.timeout"),
		},
		GitHub: GitHub{
			Token:     v.GetString("github.token"),
			RepoOwner: v.GetString("github.repo_owner"),
			RepoName:  v.GetString("github.repo_name"),
		},
		Webhook: Webhook{
			ActionSecret: v.GetString("webhook.action_secret"),
			WorkflowFile: v.GetString("webhook.workflow_file"),
			WorkflowRef:  v.GetString("webhook.workflow_ref"),
		},
	}
}

// ValidateLooker reports the settings a sync run cannot start without.
func (c *Config) ValidateLooker() error {
	var missing []string
	if c.Looker.BaseURL == "" {
		missing = append(missing, "LOOKERSDK_BASE_URL")
	}
	if c.Looker.ClientID == "" {
		missing = append(missing, "LOOKERSDK_CLIENT_ID")
	}
	if c.Looker.ClientSecret == "" {
		missing = append(missing, "LOOKERSDK_CLIENT_SECRET")
	}
	return missingError("looker", missing)
}

// ValidateDispatch reports the settings workflow dispatch requires.
func (c *Config) ValidateDispatch() error {
	var missing []string
	if c.GitHub.Token == "" {
		missing = append(missing, "GH_TOKEN")
	}
	if c.GitHub.RepoOwner == "" {
		missing = append(missing, "GH_REPO_OWNER")
	}
	if c.GitHub.RepoName == "" {
		missing = append(missing, "GH_REPO_NAME")
	}
	return missingError("github", missing)
}

func missingError(section string, missing []string) error {
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing %s settings: %s", section, strings.Join(missing, ", "))
}
