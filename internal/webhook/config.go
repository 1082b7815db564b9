package webhook

// Config holds the action hub server settings.
type Config struct {
	Port         int
	ActionSecret string
	RepoOwner    string
	RepoName     string
	WorkflowFile string
	WorkflowRef  string
}

// DefaultConfig returns the default action hub configuration.
func DefaultConfig() Config {
	return Config{
		Port:         8080,
		WorkflowFile: "update_dashboard.yml",
		WorkflowRef:  "main",
	}
}
