package lookml

import (
	"errors"
	"testing"
)

const sampleDashboard = `---
- dashboard: wifi_analytics
  title: WiFi Analytics
  layout: newspaper
  elements:
  - name: total_sessions
    title: Total Sessions
    type: single_value
    model: tenant_model
    explore: sessions
  - title: Untitled Note
    type: text
  filters:
  - name: date_range
    title: Date Range
    default_value: 7 days
`

func TestParseDocument(t *testing.T) {
	doc, err := Parse(sampleDashboard)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.Empty() {
		t.Fatal("document reported empty")
	}
	if got := doc.Name(); got != "wifi_analytics" {
		t.Errorf("Name: got %q", got)
	}
	if got := doc.Title(); got != "WiFi Analytics" {
		t.Errorf("Title: got %q", got)
	}

	elements := doc.Elements()
	if len(elements) != 2 {
		t.Fatalf("Elements: got %d, want 2", len(elements))
	}
	if elements[0].Name != "total_sessions" {
		t.Errorf("element 0 name: got %q", elements[0].Name)
	}
	if got := elements[0].Attrs["model"]; got != "tenant_model" {
		t.Errorf("element 0 model attr: got %v", got)
	}
	if elements[1].Name != "" {
		t.Errorf("unnamed element: got %q", elements[1].Name)
	}

	filters := doc.Filters()
	if len(filters) != 1 || filters[0].Name != "date_range" {
		t.Errorf("Filters: got %+v", filters)
	}
}

func TestDocumentAttrs(t *testing.T) {
	doc, err := Parse(sampleDashboard)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	attrs, err := doc.Attrs()
	if err != nil {
		t.Fatalf("Attrs: %v", err)
	}
	if attrs["dashboard"] != "wifi_analytics" || attrs["layout"] != "newspaper" {
		t.Errorf("attrs: got %v", attrs)
	}
	if _, ok := attrs["elements"].([]any); !ok {
		t.Errorf("elements attr: got %T", attrs["elements"])
	}

	empty, err := Parse("")
	if err != nil {
		t.Fatalf("Parse empty: %v", err)
	}
	if attrs, err := empty.Attrs(); err != nil || attrs != nil {
		t.Errorf("empty Attrs: got %v, %v", attrs, err)
	}
}

func TestParseBareMapping(t *testing.T) {
	doc, err := Parse("dashboard: sales\ntitle: Sales\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.Name() != "sales" || doc.Title() != "Sales" {
		t.Errorf("got name %q title %q", doc.Name(), doc.Title())
	}
}

func TestParseEmptyInputs(t *testing.T) {
	for _, text := range []string{"", "---\n", "[]\n"} {
		doc, err := Parse(text)
		if err != nil {
			t.Fatalf("Parse(%q): %v", text, err)
		}
		if !doc.Empty() {
			t.Errorf("Parse(%q): expected empty document", text)
		}
		if doc.Name() != "" || doc.Elements() != nil || doc.Filters() != nil {
			t.Errorf("Parse(%q): empty document not inert", text)
		}
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"scalar document", "just a string"},
		{"elements not a list", "- dashboard: d\n  elements: nope\n"},
		{"element not a mapping", "- dashboard: d\n  elements:\n  - just_a_string\n"},
		{"invalid yaml", "- dashboard: d\n  title: [unclosed\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.text)
			if err == nil {
				t.Fatal("expected error")
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected ParseError, got %T", err)
			}
		})
	}
}

func TestExtractDashboardName(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
	}{
		{"list form", "---\n- dashboard: sales_kpis\n  title: x\n", "sales_kpis"},
		{"later line", "# generated\n- dashboard: retention\n", "retention"},
		{"bare mapping has no entry", "dashboard: sales\n", ""},
		{"absent", "title: no dashboard here\n", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractDashboardName(tc.text); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}
