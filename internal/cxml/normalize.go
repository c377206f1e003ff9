// Package cxml implements normalization and clinical extraction for the
// generic clinical XML schema. Well-formed XML is lowered into a tree of
// ordered tag→value mappings that both the heuristic scan and the
// prescription walk can traverse without schema knowledge.
package cxml

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/medbridge/go-clinconv/internal/engine"
)

// AttributesKey is the reserved mapping key holding a node's XML attributes.
const AttributesKey = "@attributes"

// ValueKind discriminates the three shapes a normalized value can take.
type ValueKind int

const (
	KindText ValueKind = iota
	KindNode
	KindList
)

// Value is one entry in a normalized tree: trimmed text for childless
// elements, a Node for elements with children, or an ordered list when a
// tag repeats among siblings.
type Value struct {
	Kind ValueKind
	Text string
	Node *Node
	List []Value
}

// TextValue wraps a string.
func TextValue(s string) Value { return Value{Kind: KindText, Text: s} }

// NodeValue wraps a mapping.
func NodeValue(n *Node) Value { return Value{Kind: KindNode, Node: n} }

// Node is a tag→value mapping with stable insertion order. Iteration order
// matters: extraction output must be deterministic for identical input.
type Node struct {
	keys   []string
	values map[string]Value
}

// NewNode returns an empty mapping.
func NewNode() *Node {
	return &Node{values: make(map[string]Value)}
}

// Add inserts a child value under tag. A second occurrence of the same tag
// promotes the entry to an ordered list; later occurrences append. The first
// occurrence keeps its position in the key order.
func (n *Node) Add(tag string, v Value) {
	existing, ok := n.values[tag]
	if !ok {
		n.keys = append(n.keys, tag)
		n.values[tag] = v
		return
	}
	if existing.Kind == KindList {
		existing.List = append(existing.List, v)
		n.values[tag] = existing
		return
	}
	n.values[tag] = Value{Kind: KindList, List: []Value{existing, v}}
}

// Get returns the value for tag.
func (n *Node) Get(tag string) (Value, bool) {
	v, ok := n.values[tag]
	return v, ok
}

// Keys returns the tags in insertion order.
func (n *Node) Keys() []string { return n.keys }

// Len returns the number of distinct tags.
func (n *Node) Len() int { return len(n.keys) }

// Text returns the child text value for tag, or empty when the child is
// absent or not text.
func (n *Node) Text(tag string) string {
	v, ok := n.values[tag]
	if !ok || v.Kind != KindText {
		return ""
	}
	return v.Text
}

// Normalize parses well-formed XML into its normalized tree. The result has
// a single entry mapping the root tag to its subtree. Malformed input
// (unclosed or mismatched tags, trailing content) fails with a
// ValidationError carrying the decoder's diagnostic.
func Normalize(xmlText string) (*Node, error) {
	dec := xml.NewDecoder(strings.NewReader(xmlText))

	root := NewNode()
	seenRoot := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, engine.NewValidationError(engine.FormatXML, err.Error())
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if seenRoot {
				return nil, engine.NewValidationError(engine.FormatXML, "multiple root elements")
			}
			seenRoot = true

			v, err := normalizeElement(dec, t)
			if err != nil {
				return nil, engine.NewValidationError(engine.FormatXML, err.Error())
			}
			root.Add(t.Name.Local, v)
		case xml.CharData:
			// Only whitespace may appear outside the root element.
			if strings.TrimSpace(string(t)) != "" {
				return nil, engine.NewValidationError(engine.FormatXML, "content outside root element")
			}
		}
	}
	if !seenRoot {
		return nil, engine.NewValidationError(engine.FormatXML, "no root element found")
	}
	return root, nil
}

// normalizeElement consumes tokens up to the element's end tag. Elements
// with children become mappings (attributes under the reserved key); a
// childless element with text collapses to that text, and a fully empty one
// to an empty mapping.
func normalizeElement(dec *xml.Decoder, start xml.StartElement) (Value, error) {
	node := NewNode()
	if len(start.Attr) > 0 {
		attrs := NewNode()
		for _, a := range start.Attr {
			attrs.Add(a.Name.Local, TextValue(a.Value))
		}
		node.Add(AttributesKey, NodeValue(attrs))
	}

	hasChildren := false
	var text strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			return Value{}, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			hasChildren = true
			child, err := normalizeElement(dec, t)
			if err != nil {
				return Value{}, err
			}
			node.Add(t.Name.Local, child)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			if trimmed := strings.TrimSpace(text.String()); !hasChildren && trimmed != "" {
				return TextValue(trimmed), nil
			}
			return NodeValue(node), nil
		}
	}
}
