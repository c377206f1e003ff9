package hl7

import "strings"

// Kind discriminates primitive from composite values at both the field and
// component level. Decomposition depends only on delimiter presence: no
// caret means a primitive field, no ampersand means a primitive component.
type Kind int

const (
	KindPrimitive Kind = iota
	KindComposite
)

// Component is one caret-delimited part of a composite field. Composite
// components carry ampersand-delimited sub-component strings instead of a
// single value.
type Component struct {
	Kind          Kind
	Value         string
	SubComponents []string
}

// Text reconstructs the component's raw text.
func (c Component) Text() string {
	if c.Kind == KindComposite {
		return strings.Join(c.SubComponents, subComponentSep)
	}
	return c.Value
}

// Field is one pipe-delimited field value.
type Field struct {
	Kind       Kind
	Value      string
	Components []Component
}

// Text reconstructs the field's raw text.
func (f Field) Text() string {
	if f.Kind != KindComposite {
		return f.Value
	}
	parts := make([]string, len(f.Components))
	for i, c := range f.Components {
		parts[i] = c.Text()
	}
	return strings.Join(parts, componentSep)
}

// Scalar returns the field's single-valued form: the value of a primitive
// field, or the first component's value of a composite one.
func (f Field) Scalar() string {
	if f.Kind == KindComposite {
		if len(f.Components) == 0 {
			return ""
		}
		return f.Components[0].Value
	}
	return f.Value
}

// ComponentValue returns the value of the i-th component, treating a
// primitive field as a single component at index 0. Composite components
// yield an empty string; their detail lives in the sub-components.
func (f Field) ComponentValue(i int) string {
	if f.Kind != KindComposite {
		if i == 0 {
			return f.Value
		}
		return ""
	}
	if i < 0 || i >= len(f.Components) {
		return ""
	}
	return f.Components[i].Value
}

// Segment is one decomposed HL7 segment: a three-letter name and a mapping
// from 1-based field index to field value. The name itself is never present
// in Fields, and neither are fields whose raw content was empty, so absence
// and emptiness stay distinguishable.
type Segment struct {
	Name   string
	Fields map[int]Field
}

// FieldAt returns the field at a 1-based index and whether it was present.
func (s Segment) FieldAt(i int) (Field, bool) {
	f, ok := s.Fields[i]
	return f, ok
}

// DecomposeSegment parses one raw segment string. Element 0 of the pipe
// split is the segment name; elements 1..N map to 1-based field indices.
func DecomposeSegment(segment string) Segment {
	parts := strings.Split(segment, fieldSep)
	out := Segment{Name: parts[0], Fields: make(map[int]Field)}
	for i, raw := range parts[1:] {
		if raw == "" {
			continue
		}
		out.Fields[i+1] = parseField(raw)
	}
	return out
}

func parseField(raw string) Field {
	if !strings.Contains(raw, componentSep) {
		return Field{Kind: KindPrimitive, Value: raw}
	}
	parts := strings.Split(raw, componentSep)
	components := make([]Component, len(parts))
	for i, p := range parts {
		components[i] = parseComponent(p)
	}
	return Field{Kind: KindComposite, Components: components}
}

func parseComponent(raw string) Component {
	if !strings.Contains(raw, subComponentSep) {
		return Component{Kind: KindPrimitive, Value: raw}
	}
	return Component{Kind: KindComposite, SubComponents: strings.Split(raw, subComponentSep)}
}

// MessageType identifies an HL7 message by type and trigger event, read from
// MSH field 9 (for example VXU^V04).
type MessageType struct {
	MessageType  string `json:"message_type"`
	TriggerEvent string `json:"trigger_event"`
}

// ExtractMessageType reads the message type from a raw MSH segment string.
// A primitive field 9 carries the type alone; a composite one adds the
// trigger event in its second component.
func ExtractMessageType(mshSegment string) MessageType {
	fields := strings.Split(mshSegment, fieldSep)
	if len(fields) <= 8 {
		return MessageType{}
	}
	raw := fields[8]
	if !strings.Contains(raw, componentSep) {
		return MessageType{MessageType: raw}
	}
	parts := strings.Split(raw, componentSep)
	mt := MessageType{MessageType: parts[0]}
	if len(parts) > 1 {
		mt.TriggerEvent = parts[1]
	}
	return mt
}
