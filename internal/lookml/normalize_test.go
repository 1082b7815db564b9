package lookml

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizeStripsVolatileIdentifiers(t *testing.T) {
	attrs := map[string]any{
		"name":           "orders",
		"id":             7,
		"slug":           "AbCdEf123",
		"preferred_slug": "9XyZ",
		"title":          "Orders",
		"model":          "acme_analytics",
	}
	got := Normalize(attrs, false)
	want := map[string]any{
		"name":  "orders",
		"title": "Orders",
		"model": "acme_analytics",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("normalized attrs mismatch (-want +got):\n%s", diff)
	}
	if _, ok := attrs["id"]; !ok {
		t.Error("input map was mutated")
	}
}

func TestNormalizeRemoveModel(t *testing.T) {
	attrs := map[string]any{"name": "orders", "model": "acme_analytics"}
	got := Normalize(attrs, true)
	if _, ok := got["model"]; ok {
		t.Error("model survived removeModel")
	}
	got = Normalize(attrs, false)
	if got["model"] != "acme_analytics" {
		t.Error("model dropped without removeModel")
	}
}

func TestNormalizeNoisyDefaults(t *testing.T) {
	attrs := map[string]any{
		"name":             "sessions",
		"show_view_names":  false,      // default, dropped
		"truncate_text":    false,      // default is true, kept
		"comparison_type":  "value",    // default, dropped
		"tab_name":         "Overview", // default is "", kept
		"row":              nil,        // default, dropped
		"col":              4,          // kept
		"defaults_version": 1,          // default, dropped
	}
	got := Normalize(attrs, false)
	want := map[string]any{
		"name":          "sessions",
		"truncate_text": false,
		"tab_name":      "Overview",
		"col":           4,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("normalized attrs mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	attrs := map[string]any{
		"name":            "sessions",
		"id":              3,
		"model":           "m",
		"show_comparison": false,
		"height":          6,
	}
	once := Normalize(attrs, true)
	twice := Normalize(once, true)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("second pass changed attrs (-once +twice):\n%s", diff)
	}
}
