package lookml

import (
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Record is one named entry of a dashboard collection, either an element or
// a filter. Node is the original parse tree, kept so regeneration preserves
// source order and style; Attrs is the decoded view used for comparison.
type Record struct {
	Name  string
	Node  *yaml.Node
	Attrs map[string]any
}

// Document is a parsed dashboard file.
type Document struct {
	node     *yaml.Node
	elements []Record
	filters  []Record
}

// ParseError reports dashboard text that could not be interpreted.
type ParseError struct {
	Msg string
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *ParseError) Unwrap() error { return e.Err }

var dashboardNameRe = regexp.MustCompile(`(?m)^-\s+dashboard:\s+(\S+)`)

// ExtractDashboardName pulls the dashboard identifier out of raw dashboard
// text without parsing it. Returns "" when no dashboard entry is present.
func ExtractDashboardName(text string) string {
	m := dashboardNameRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// Parse reads one dashboard document. Dashboard files wrap the mapping in a
// single-entry sequence; a bare mapping is accepted too. Empty or null input
// yields an empty document.
func Parse(text string) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(text), &root); err != nil {
		return nil, &ParseError{Msg: "parse dashboard yaml", Err: err}
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return &Document{}, nil
	}
	top := resolveAlias(root.Content[0])
	if top.Kind == yaml.SequenceNode {
		if len(top.Content) == 0 {
			return &Document{}, nil
		}
		top = resolveAlias(top.Content[0])
	}
	if top.Kind == yaml.ScalarNode && top.Tag == "!!null" {
		return &Document{}, nil
	}
	if top.Kind != yaml.MappingNode {
		return nil, &ParseError{Msg: "dashboard entry is not a mapping"}
	}
	doc := &Document{node: top}
	var err error
	if doc.elements, err = collectRecords(top, "elements"); err != nil {
		return nil, err
	}
	if doc.filters, err = collectRecords(top, "filters"); err != nil {
		return nil, err
	}
	return doc, nil
}

// Empty reports whether the document carries no dashboard entry at all.
func (d *Document) Empty() bool { return d.node == nil }

// Name returns the dashboard identifier, or "" for an empty document.
func (d *Document) Name() string { return scalarValue(d.node, "dashboard") }

// Title returns the dashboard title, or "" when unset.
func (d *Document) Title() string { return scalarValue(d.node, "title") }

// Node exposes the underlying mapping for regeneration.
func (d *Document) Node() *yaml.Node { return d.node }

// Attrs decodes the whole dashboard mapping into a generic map, the shape
// schema validation wants. Empty documents decode to nil.
func (d *Document) Attrs() (map[string]any, error) {
	if d.node == nil {
		return nil, nil
	}
	var attrs map[string]any
	if err := d.node.Decode(&attrs); err != nil {
		return nil, &ParseError{Msg: "decode dashboard attributes", Err: err}
	}
	return attrs, nil
}

// Elements returns the dashboard's elements in source order.
func (d *Document) Elements() []Record { return d.elements }

// Filters returns the dashboard's filters in source order.
func (d *Document) Filters() []Record { return d.filters }

func collectRecords(node *yaml.Node, key string) ([]Record, error) {
	list := mapValue(node, key)
	if list == nil {
		return nil, nil
	}
	if list.Kind != yaml.SequenceNode {
		return nil, &ParseError{Msg: fmt.Sprintf("dashboard %s is not a list", key)}
	}
	records := make([]Record, 0, len(list.Content))
	for i, item := range list.Content {
		item = resolveAlias(item)
		if item.Kind != yaml.MappingNode {
			return nil, &ParseError{Msg: fmt.Sprintf("%s entry %d is not a mapping", key, i)}
		}
		var attrs map[string]any
		if err := item.Decode(&attrs); err != nil {
			return nil, &ParseError{Msg: fmt.Sprintf("decode %s entry %d", key, i), Err: err}
		}
		records = append(records, Record{
			Name:  scalarValue(item, "name"),
			Node:  item,
			Attrs: attrs,
		})
	}
	return records, nil
}

func mapValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return resolveAlias(node.Content[i+1])
		}
	}
	return nil
}

func scalarValue(node *yaml.Node, key string) string {
	v := mapValue(node, key)
	if v == nil || v.Kind != yaml.ScalarNode {
		return ""
	}
	return v.Value
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		return n.Alias
	}
	return n
}
