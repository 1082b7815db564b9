// Package lookml parses and transforms LookML dashboard documents while
// preserving the exact key order and scalar formatting of the source text.
package lookml

import (
	"regexp"
	"strings"
)

// ModelPlaceholder is the manifest constant reference written into base
// dashboards so each tenant project binds its own model at import time.
const ModelPlaceholder = "@{model_name}"

var (
	volatileLineRe = regexp.MustCompile(`^\s{2,4}(id|slug|preferred_slug)\s*:`)
	modelRefRe     = regexp.MustCompile(`(model:\s*)(?:"[^"]*"|[@\w{}]+)`)
	quotedModelRe  = regexp.MustCompile(`(model:\s*)"[^"]*"`)
	bareModelRe    = regexp.MustCompile(`(model:\s*)[^"@\s]\S*`)
)

// StripVolatileFields drops the id, slug and preferred_slug lines the
// dashboard API invents on every export. Only shallow occurrences (two to
// four spaces of indent) are volatile; deeper ones belong to element bodies
// and are kept.
func StripVolatileFields(text string) string {
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if volatileLineRe.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// SubstituteModelReference rewrites every model reference in the text to
// target. The value is quoted unless target is itself a constant reference.
// Quoted values, bare names and constant references are all recognized.
func SubstituteModelReference(text, target string) string {
	replacement := `"` + target + `"`
	if strings.HasPrefix(target, "@{") {
		replacement = target
	}
	return modelRefRe.ReplaceAllString(text, "${1}"+replacement)
}

// InsertModelPlaceholder rewrites model references to the quoted
// @{model_name} constant. References already using a constant are left
// alone, so re-importing an already imported dashboard is a no-op.
func InsertModelPlaceholder(text string) string {
	text = quotedModelRe.ReplaceAllString(text, `${1}"`+ModelPlaceholder+`"`)
	return bareModelRe.ReplaceAllString(text, `${1}"`+ModelPlaceholder+`"`)
}
