// Package diff classifies tenant dashboard records against the base
// dashboard they extend. A record is inherited when its normalized form
// matches the same-named base record; everything else is new or modified
// and must appear in the tenant's extends document.
package diff

import (
	"reflect"

	"github.com/lookerops/dashsync/internal/lookml"
)

// Elements returns the tenant elements that are new or modified relative to
// base, in tenant order. Unnamed base elements cannot be addressed for
// inheritance and are not indexed, so unnamed tenant elements always count
// as new.
func Elements(tenant, base []lookml.Record) []lookml.Record {
	byName := make(map[string]lookml.Record, len(base))
	for _, rec := range base {
		if rec.Name == "" {
			continue
		}
		byName[rec.Name] = rec
	}
	return changed(tenant, byName)
}

// Filters returns the tenant filters that are new or modified relative to
// base, in tenant order.
func Filters(tenant, base []lookml.Record) []lookml.Record {
	byName := make(map[string]lookml.Record, len(base))
	for _, rec := range base {
		byName[rec.Name] = rec
	}
	return changed(tenant, byName)
}

// changed keeps the tenant records missing from the base index or whose
// normalized attributes differ. The model reference is ignored on both
// sides: tenant and base point at different models by construction, and
// that alone must not break inheritance. When the base holds duplicate
// names the last occurrence is the one compared against.
func changed(tenant []lookml.Record, base map[string]lookml.Record) []lookml.Record {
	var out []lookml.Record
	for _, rec := range tenant {
		baseRec, ok := base[rec.Name]
		if !ok {
			out = append(out, rec)
			continue
		}
		tenantNorm := lookml.Normalize(rec.Attrs, true)
		baseNorm := lookml.Normalize(baseRec.Attrs, true)
		if !reflect.DeepEqual(tenantNorm, baseNorm) {
			out = append(out, rec)
		}
	}
	return out
}
