// Package schema validates decoded dashboard documents against the JSON
// schema shipped under schemas/.
package schema

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// ValidateDashboard checks a decoded dashboard against the schema at
// schemaPath. It returns the violation messages, or an error when the
// schema itself cannot be loaded.
func ValidateDashboard(schemaPath string, attrs map[string]any) ([]string, error) {
	schemaLoader := gojsonschema.NewReferenceLoader("file://" + schemaPath)
	docLoader := gojsonschema.NewGoLoader(attrs)
	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return nil, fmt.Errorf("validate against %s: %w", schemaPath, err)
	}
	if result.Valid() {
		return nil, nil
	}

	errs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		errs = append(errs, e.String())
	}
	return errs, nil
}
