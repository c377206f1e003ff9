package hl7

import "testing"

func TestDecomposeSegmentIndexing(t *testing.T) {
	seg := DecomposeSegment("PID|||PAT001||DOE^JOHN||19800101|M")
	if seg.Name != "PID" {
		t.Fatalf("expected name PID, got %q", seg.Name)
	}

	// Empty raw fields are absent, not empty.
	if _, ok := seg.FieldAt(1); ok {
		t.Error("field 1 should be absent")
	}
	if _, ok := seg.FieldAt(2); ok {
		t.Error("field 2 should be absent")
	}

	f, ok := seg.FieldAt(3)
	if !ok {
		t.Fatal("field 3 should be present")
	}
	if f.Kind != KindPrimitive || f.Value != "PAT001" {
		t.Errorf("field 3: got %+v", f)
	}

	name, ok := seg.FieldAt(5)
	if !ok || name.Kind != KindComposite {
		t.Fatalf("field 5 should be composite, got %+v", name)
	}
	if name.ComponentValue(0) != "DOE" || name.ComponentValue(1) != "JOHN" {
		t.Errorf("name components: got %q %q", name.ComponentValue(0), name.ComponentValue(1))
	}
}

func TestFieldScalarAndText(t *testing.T) {
	seg := DecomposeSegment("ORC|NW|ORD001^PLACER||IP")

	if got := fieldScalar(seg, 2); got != "ORD001" {
		t.Errorf("scalar of composite: got %q, want ORD001", got)
	}
	if got := fieldText(seg, 2); got != "ORD001^PLACER" {
		t.Errorf("text of composite: got %q", got)
	}
	if got := fieldScalar(seg, 1); got != "NW" {
		t.Errorf("scalar of primitive: got %q", got)
	}
	if got := fieldScalar(seg, 9); got != "" {
		t.Errorf("absent field should be empty, got %q", got)
	}
}

func TestSubComponents(t *testing.T) {
	seg := DecomposeSegment("OBX|1|CE|30956-7&VAC^Vaccine type")
	f, ok := seg.FieldAt(3)
	if !ok || f.Kind != KindComposite {
		t.Fatalf("field 3 should be composite, got %+v", f)
	}
	c := f.Components[0]
	if c.Kind != KindComposite {
		t.Fatalf("component 0 should carry sub-components, got %+v", c)
	}
	if len(c.SubComponents) != 2 || c.SubComponents[0] != "30956-7" || c.SubComponents[1] != "VAC" {
		t.Errorf("sub-components: got %v", c.SubComponents)
	}
	if c.Text() != "30956-7&VAC" {
		t.Errorf("component text round-trip: got %q", c.Text())
	}
	// Composite components have no direct value.
	if f.ComponentValue(0) != "" {
		t.Errorf("composite component value should be empty, got %q", f.ComponentValue(0))
	}
}

func TestExtractMessageType(t *testing.T) {
	mt := ExtractMessageType("MSH|^~\\&|HIS|LAB|LAB|LAB|202308221200||ORM^O01|MSG00001|P|2.3|")
	if mt.MessageType != "ORM" || mt.TriggerEvent != "O01" {
		t.Errorf("got %+v, want ORM/O01", mt)
	}

	mt = ExtractMessageType("MSH|^~\\&|HIS|LAB|LAB|LAB|202308221200||ADT|MSG00001|P|2.3|")
	if mt.MessageType != "ADT" || mt.TriggerEvent != "" {
		t.Errorf("primitive type field: got %+v", mt)
	}

	mt = ExtractMessageType("MSH|^~\\&|HIS")
	if mt.MessageType != "" {
		t.Errorf("short MSH should yield empty type, got %+v", mt)
	}
}

func TestBuildMessageRepetition(t *testing.T) {
	msg, err := BuildMessage([]string{
		"MSH|^~\\&|HIS|LAB|LAB|LAB|202308221200||ORM^O01|MSG00001|P|2.3|",
		"RXE|^Aspirin^81MG|81MG|TAB|Q6H|30",
		"RXE|^Lisinopril^10MG|10MG|TAB|QD|60",
	})
	if err != nil {
		t.Fatal(err)
	}

	// A single occurrence and a repeated one read the same way.
	if got := len(msg.All("MSH")); got != 1 {
		t.Errorf("MSH occurrences: got %d", got)
	}
	if got := len(msg.All("RXE")); got != 2 {
		t.Errorf("RXE occurrences: got %d", got)
	}
	first, ok := msg.Segment("RXE")
	if !ok || fieldScalar(first, 2) != "81MG" {
		t.Errorf("first RXE should be Aspirin's, got %+v", first)
	}
	if msg.Has("RXA") {
		t.Error("RXA should be absent")
	}
}

func TestBuildMessageErrors(t *testing.T) {
	if _, err := BuildMessage(nil); err == nil {
		t.Error("empty segment list should fail")
	}
	if _, err := BuildMessage([]string{"PID|||PAT001"}); err == nil {
		t.Error("message not starting with MSH should fail")
	}
}
