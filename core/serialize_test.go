package core

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestSerialize tests rendering each kind
func TestSerialize(t *testing.T) {
	tests := []struct {
		name string
		obj  Object
		want string
	}{
		{"nil", nil, "null"},
		{"dict sorted", Dict{"Type": Name("Page"), "Count": Int(3)}, "<< /Count 3 /Type /Page >>"},
		{"empty dict", Dict{}, "<< >>"},
		{"whole real", Real(2), "2.0"},
		{"fraction", Real(0.5), "0.5"},
		{"small real", Real(0.00001), "0.00001"},
		{"escaped literal", String("a(b)\n"), `(a\(b\)\n)`},
		{"binary literal", String("\x00\xff"), `(\000\377)`},
		{"name escape", Name("A B#"), "/A#20B#23"},
		{"array", Array{Int(1), IndirectRef{Number: 2}, Bool(true)}, "[1 2 0 R true]"},
		{"stream length fixed", &Stream{Dict: Dict{"Length": Int(99)}, Data: []byte("xy")}, "<< /Length 2 >>\nstream\nxy\nendstream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Serialize(tt.obj); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

// TestSerializeParsesBack tests that serialized output parses back unchanged
func TestSerializeParsesBack(t *testing.T) {
	obj := Dict{
		"Title":  String("Report (final)\r\n\x01"),
		"Weird":  Name("a/b c"),
		"Values": Array{Int(-3), Real(1.25), Real(7), Bool(false), Null{}},
		"Ref":    IndirectRef{Number: 10, Generation: 3},
		"Nested": Dict{"Empty": Array{}},
	}

	got, err := NewParser(strings.NewReader(Serialize(obj))).ParseObject()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(Object(obj), got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

// TestWriteIndirectStream tests writing a stream object
func TestWriteIndirectStream(t *testing.T) {
	var buf bytes.Buffer
	stream := &Stream{Dict: Dict{"Type": Name("XObject")}, Data: []byte("\x00endstream?")}
	if err := WriteIndirect(&buf, IndirectRef{Number: 5, Generation: 1}, stream); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	obj, err := NewParser(&buf).ParseIndirectObject()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obj.Ref != (IndirectRef{Number: 5, Generation: 1}) {
		t.Errorf("expected 5 1 R, got %s", obj.Ref)
	}
	parsed := obj.Object.(*Stream)
	if !bytes.Equal(parsed.Data, stream.Data) {
		t.Errorf("expected data %q, got %q", stream.Data, parsed.Data)
	}
	if parsed.Dict["Length"] != Int(len(stream.Data)) {
		t.Errorf("expected Length %d, got %s", len(stream.Data), parsed.Dict["Length"])
	}
}
