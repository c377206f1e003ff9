package hl7

import (
	"strings"

	"github.com/medbridge/go-clinconv/internal/engine"
)

// Repeated holds one or more occurrences of a segment name in source order.
// Accessors always yield the ordered occurrence list, so callers never
// branch on whether a segment repeated.
type Repeated struct {
	segments []Segment
}

func (r *Repeated) add(s Segment) { r.segments = append(r.segments, s) }

// All returns every occurrence in source order.
func (r *Repeated) All() []Segment { return r.segments }

// First returns the first occurrence.
func (r *Repeated) First() (Segment, bool) {
	if len(r.segments) == 0 {
		return Segment{}, false
	}
	return r.segments[0], true
}

// Len returns the occurrence count.
func (r *Repeated) Len() int { return len(r.segments) }

// Message is the segment-level model of one HL7 message.
type Message struct {
	Type     MessageType
	Segments map[string]*Repeated
}

// Segment returns the first occurrence of a segment by name.
func (m *Message) Segment(name string) (Segment, bool) {
	r, ok := m.Segments[name]
	if !ok {
		return Segment{}, false
	}
	return r.First()
}

// All returns every occurrence of a segment by name, in source order.
func (m *Message) All(name string) []Segment {
	r, ok := m.Segments[name]
	if !ok {
		return nil
	}
	return r.All()
}

// Has reports whether at least one occurrence of the segment exists.
func (m *Message) Has(name string) bool {
	r, ok := m.Segments[name]
	return ok && r.Len() > 0
}

// BuildMessage aggregates tokenized segments into a Message. The segment
// list must be non-empty and must open with MSH; anything else is a
// structural inconsistency surfaced as a ParseError.
func BuildMessage(segments []string) (*Message, error) {
	if len(segments) == 0 {
		return nil, engine.NewParseError(engine.FormatHL7, "no segments found in message")
	}
	if !strings.HasPrefix(segments[0], "MSH") {
		return nil, engine.NewParseError(engine.FormatHL7, "message does not begin with MSH segment")
	}

	msg := &Message{
		Type:     ExtractMessageType(segments[0]),
		Segments: make(map[string]*Repeated),
	}
	for _, raw := range segments {
		seg := DecomposeSegment(raw)
		r, ok := msg.Segments[seg.Name]
		if !ok {
			r = &Repeated{}
			msg.Segments[seg.Name] = r
		}
		r.add(seg)
	}
	return msg, nil
}
