// Package manifest extracts the base-project pin from a tenant's
// manifest.lkml.
package manifest

import (
	"os"
	"regexp"
)

// Info is what the tenant manifest declares about its base project. Fields
// the manifest does not declare stay empty; callers substitute their own
// defaults.
type Info struct {
	BaseRepoURL string
	BaseOwner   string
	BaseRepo    string
	BaseRef     string
	ModelName   string
}

var (
	urlRe    = regexp.MustCompile(`url:\s*"([^"]+)"`)
	githubRe = regexp.MustCompile(`github\.com/([^/]+)/([^/.]+)`)
	refRe    = regexp.MustCompile(`ref:\s*"([^"]+)"`)
	modelRe  = regexp.MustCompile(`override_constant:\s*model_name\s*\{[^}]*value:\s*"([^"]+)"`)
)

// Read parses the manifest at path. The read error is returned so callers
// can log it, but an absent manifest is an expected state, not a failure
// of the run.
func Read(path string) (Info, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Info{}, err
	}
	return Parse(string(content)), nil
}

// Parse extracts the pin fields from manifest text. LookML manifests are
// not YAML, so the fields are grabbed straight from the text.
func Parse(content string) Info {
	var info Info
	if m := urlRe.FindStringSubmatch(content); m != nil {
		info.BaseRepoURL = m[1]
		if gh := githubRe.FindStringSubmatch(m[1]); gh != nil {
			info.BaseOwner = gh[1]
			info.BaseRepo = gh[2]
		}
	}
	if m := refRe.FindStringSubmatch(content); m != nil {
		info.BaseRef = m[1]
	}
	if m := modelRe.FindStringSubmatch(content); m != nil {
		info.ModelName = m[1]
	}
	return info
}
