// Package generate renders dashboard documents back to LookML text.
//
// Output is deterministic: the same inputs produce byte-identical text, so
// repeated syncs leave version control clean. Key order follows the source
// document, and a fixed set of fields is rendered in flow style to match
// hand-written dashboard files.
package generate

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/lookerops/dashsync/internal/lookml"
	"gopkg.in/yaml.v3"
)

// Fields conventionally written inline in dashboard LookML.
var flowFields = map[string]bool{
	"extends":            true,
	"fields":             true,
	"sorts":              true,
	"listens_to_filters": true,
	"listen":             true,
}

// ExtendsParams describes an extends document to render.
type ExtendsParams struct {
	DashboardName string
	TenantName    string
	BaseName      string
	Title         string          // optional; defaults to "<base> - <tenant>"
	TenantModel   string          // optional; empty binds the manifest constant
	Elements      []lookml.Record // new or modified elements, in tenant order
	Filters       []lookml.Record // new or modified filters, in tenant order
}

// Extends renders the compact tenant document: a reference to the base plus
// only the changed records. Empty collections are omitted entirely, so a
// dashboard with no customizations reduces to its header.
func Extends(p ExtendsParams) (string, error) {
	title := p.Title
	if title == "" {
		title = p.BaseName + " - " + p.TenantName
	}
	mapping := &yaml.Node{Kind: yaml.MappingNode}
	appendEntry(mapping, "dashboard", strScalar(p.DashboardName))
	appendEntry(mapping, "title", strScalar(title))
	appendEntry(mapping, "extends", &yaml.Node{
		Kind:    yaml.SequenceNode,
		Content: []*yaml.Node{strScalar(p.BaseName)},
	})
	if len(p.Elements) > 0 {
		appendEntry(mapping, "elements", recordSequence(p.Elements))
	}
	if len(p.Filters) > 0 {
		appendEntry(mapping, "filters", recordSequence(p.Filters))
	}

	out, err := render(mapping)
	if err != nil {
		return "", err
	}
	return substituteModel(out, p.TenantModel), nil
}

// Standalone renders a full dashboard copy from the API export text. The
// document is reparsed so the flow-style conventions apply, and every model
// reference is bound to tenantModel. An export holding no dashboard entry
// passes through untouched.
func Standalone(text, tenantModel string) (string, error) {
	doc, err := lookml.Parse(text)
	if err != nil {
		return "", err
	}
	if doc.Empty() {
		return text, nil
	}
	out, err := render(doc.Node())
	if err != nil {
		return "", err
	}
	return substituteModel(out, tenantModel), nil
}

// render emits the dashboard mapping as a single-entry document list, the
// shape dashboard files use on disk.
func render(mapping *yaml.Node) (string, error) {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Content: []*yaml.Node{mapping}}
	wrapFlowStyles(seq)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(seq); err != nil {
		return "", fmt.Errorf("encode dashboard: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encode dashboard: %w", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "---\n") {
		out = "---\n" + out
	}
	return out, nil
}

// wrapFlowStyles marks the flow-field values inline at any depth. Matched
// collections are not descended into; everything else is walked.
func wrapFlowStyles(node *yaml.Node) {
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]
			if flowFields[key.Value] && (value.Kind == yaml.SequenceNode || value.Kind == yaml.MappingNode) {
				value.Style = yaml.FlowStyle
				continue
			}
			wrapFlowStyles(value)
		}
	case yaml.SequenceNode, yaml.DocumentNode:
		for _, child := range node.Content {
			wrapFlowStyles(child)
		}
	}
}

func substituteModel(text, model string) string {
	if model == "" {
		model = lookml.ModelPlaceholder
	}
	return lookml.SubstituteModelReference(text, model)
}

func appendEntry(mapping *yaml.Node, key string, value *yaml.Node) {
	mapping.Content = append(mapping.Content, strScalar(key), value)
}

func strScalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

func recordSequence(records []lookml.Record) *yaml.Node {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, rec := range records {
		seq.Content = append(seq.Content, rec.Node)
	}
	return seq
}
