package lookml

import "reflect"

// noisyDefaults are attribute values the dashboard API emits on export
// whether or not the author ever set them. An attribute equal to its noisy
// default carries no signal; any other value is a real customization.
var noisyDefaults = map[string]any{
	"show_view_names":                       false,
	"show_comparison":                       false,
	"comparison_type":                       "value",
	"comparison_reverse_colors":             false,
	"show_comparison_label":                 true,
	"enable_conditional_formatting":         false,
	"conditional_formatting_include_totals": false,
	"conditional_formatting_include_nulls":  false,
	"defaults_version":                      1,
	"tab_name":                              "",
	"hidden":                                false,
	"transpose":                             false,
	"truncate_text":                         true,
	"hide_totals":                           false,
	"hide_row_totals":                       false,
	"size_to_fit":                           true,
	"row":                                   nil,
	"col":                                   nil,
	"width":                                 nil,
	"height":                                nil,
}

// Normalize returns a copy of attrs suitable for comparison: volatile API
// identifiers are dropped, the model reference is dropped when removeModel
// is set, and noisy defaults are dropped only when they still hold their
// default value. The input map is never mutated.
func Normalize(attrs map[string]any, removeModel bool) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	delete(out, "id")
	delete(out, "slug")
	delete(out, "preferred_slug")
	if removeModel {
		delete(out, "model")
	}
	for key, def := range noisyDefaults {
		if v, ok := out[key]; ok && reflect.DeepEqual(v, def) {
			delete(out, key)
		}
	}
	return out
}
