// Package resolve determines which base dashboard, if any, a tenant
// dashboard extends.
package resolve

import (
	"os"
	"regexp"

	"github.com/lookerops/dashsync/internal/store"
)

var (
	flowExtendsRe  = regexp.MustCompile(`extends:\s*\[(\w+)\]`)
	blockExtendsRe = regexp.MustCompile(`extends:\s*\n\s+-\s+(\w+)`)
)

// BaseDashboard picks the base for a dashboard. An explicit override wins;
// otherwise the tenant's existing file for the dashboard is inspected for
// an extends reference. Returns "" for a standalone dashboard.
func BaseDashboard(explicit, dashboardsDir, name string) string {
	if explicit != "" {
		return explicit
	}
	path := store.FindExistingFile(dashboardsDir, name)
	if path == "" {
		return ""
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return ExtendsTarget(string(content))
}

// ExtendsTarget extracts the first extends reference from dashboard text,
// accepting the inline [name] form and the block list form.
func ExtendsTarget(text string) string {
	if m := flowExtendsRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := blockExtendsRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}
