// Package store reads and writes tenant dashboard files and reports run
// results back to CI.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// FileExtension is the dashboard file suffix used by LookML projects.
const FileExtension = ".dashboard.lookml"

// FindExistingFile locates the file holding a dashboard inside dir. The
// conventional <name>.dashboard.lookml path wins; otherwise every dashboard
// file is scanned for the entry, since files get renamed by hand. Returns
// "" when the dashboard has no file yet.
func FindExistingFile(dir, name string) string {
	exact := filepath.Join(dir, name+FileExtension)
	if _, err := os.Stat(exact); err == nil {
		return exact
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	entryRe := regexp.MustCompile(`(?m)^-?\s*dashboard:\s+` + regexp.QuoteMeta(name) + `\s*$`)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), FileExtension) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if entryRe.Match(content) {
			return path
		}
	}
	return ""
}

// WriteFile writes content to path, creating the parent directory when
// needed. The write replaces the whole file; generation happens before any
// write, so a failed run leaves the previous version in place.
func WriteFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dashboards dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
