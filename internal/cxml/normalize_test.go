package cxml

import (
	"testing"

	"github.com/medbridge/go-clinconv/internal/engine"
)

func TestNormalizeNested(t *testing.T) {
	tree, err := Normalize(`<prescription><patient><id>PAT001</id><name>John Doe</name></patient></prescription>`)
	if err != nil {
		t.Fatal(err)
	}

	v, ok := tree.Get("prescription")
	if !ok || v.Kind != KindNode {
		t.Fatalf("prescription root: got %+v", v)
	}
	patient, ok := v.Node.Get("patient")
	if !ok || patient.Kind != KindNode {
		t.Fatalf("patient: got %+v", patient)
	}
	if got := patient.Node.Text("id"); got != "PAT001" {
		t.Errorf("id: got %q", got)
	}
	if got := patient.Node.Text("name"); got != "John Doe" {
		t.Errorf("name: got %q", got)
	}
}

func TestNormalizeRepeatedTagBecomesList(t *testing.T) {
	tree, err := Normalize(`<medications><medication><name>A</name></medication><medication><name>B</name></medication></medications>`)
	if err != nil {
		t.Fatal(err)
	}

	root, _ := tree.Get("medications")
	v, ok := root.Node.Get("medication")
	if !ok || v.Kind != KindList {
		t.Fatalf("repeated tag should be a list, got %+v", v)
	}
	if len(v.List) != 2 {
		t.Fatalf("list length: got %d", len(v.List))
	}
	if got := v.List[0].Node.Text("name"); got != "A" {
		t.Errorf("first item: got %q", got)
	}
	if got := v.List[1].Node.Text("name"); got != "B" {
		t.Errorf("second item: got %q", got)
	}
}

func TestNormalizeKeyOrder(t *testing.T) {
	tree, err := Normalize(`<r><c>1</c><a>2</a><b>3</b><a>4</a></r>`)
	if err != nil {
		t.Fatal(err)
	}
	root, _ := tree.Get("r")
	keys := root.Node.Keys()
	want := []string{"c", "a", "b"}
	if len(keys) != len(want) {
		t.Fatalf("keys: got %v", keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys: got %v, want %v", keys, want)
		}
	}
}

func TestNormalizeAttributes(t *testing.T) {
	tree, err := Normalize(`<record id="42"><field unit="mg"><sub>x</sub></field></record>`)
	if err != nil {
		t.Fatal(err)
	}
	root, _ := tree.Get("record")
	attrs, ok := root.Node.Get(AttributesKey)
	if !ok || attrs.Kind != KindNode {
		t.Fatalf("attributes: got %+v", attrs)
	}
	if got := attrs.Node.Text("id"); got != "42" {
		t.Errorf("id attribute: got %q", got)
	}
}

func TestNormalizeTextBeatsAttributes(t *testing.T) {
	tree, err := Normalize(`<r><v unit="mg">500</v></r>`)
	if err != nil {
		t.Fatal(err)
	}
	root, _ := tree.Get("r")
	v, _ := root.Node.Get("v")
	if v.Kind != KindText || v.Text != "500" {
		t.Errorf("leaf with text should collapse to text, got %+v", v)
	}
}

func TestNormalizeMalformed(t *testing.T) {
	cases := []string{
		"<invalid>xml",
		"<a><b></a></b>",
		"",
		"<a/><b/>",
		"plain text",
		"<a>x</a>trailing junk",
		"junk before <a>x</a>",
	}
	for _, in := range cases {
		_, err := Normalize(in)
		if err == nil {
			t.Errorf("input %q: expected error", in)
			continue
		}
		if !engine.IsValidationError(err) {
			t.Errorf("input %q: expected validation error, got %T: %v", in, err, err)
		}
	}
}
