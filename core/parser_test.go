package core

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestParseObject tests direct objects
func TestParseObject(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Object
	}{
		{"integer", "123", Int(123)},
		{"negative real", "-4.5", Real(-4.5)},
		{"name", "/Name", Name("Name")},
		{"literal", "(hi)", String("hi")},
		{"odd hex", "<414>", String("A@")},
		{"null", "null", Null{}},
		{"bool", "false", Bool(false)},
		{"reference", "12 0 R", IndirectRef{Number: 12, Generation: 0}},
		{"array with reference", "[1 2 0 R]", Array{Int(1), IndirectRef{Number: 2}}},
		{"integers only", "[1 2 3]", Array{Int(1), Int(2), Int(3)}},
		{"null dict value dropped", "<< /A null /B true >>", Dict{"B": Bool(true)}},
		{
			"nested",
			"<< /Kids [3 0 R 4 0 R] /MediaBox [0 0 612.5 792] /Parent << /Count 2 >> >>",
			Dict{
				"Kids":     Array{IndirectRef{Number: 3}, IndirectRef{Number: 4}},
				"MediaBox": Array{Int(0), Int(0), Real(612.5), Int(792)},
				"Parent":   Dict{"Count": Int(2)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewParser(strings.NewReader(tt.input)).ParseObject()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("object mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestParseObjectEOF tests end of input
func TestParseObjectEOF(t *testing.T) {
	p := NewParser(strings.NewReader("  % only a comment\n"))
	if _, err := p.ParseObject(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

// TestParseObjectErrors tests malformed objects
func TestParseObjectErrors(t *testing.T) {
	for _, input := range []string{"<< /A 1", "[1 2", "<< 1 2 >>", "endobj"} {
		t.Run(input, func(t *testing.T) {
			if _, err := NewParser(strings.NewReader(input)).ParseObject(); err == nil {
				t.Errorf("expected error for %q", input)
			}
		})
	}
}

// TestParseIndirectObject tests obj ... endobj parsing
func TestParseIndirectObject(t *testing.T) {
	input := "7 2 obj\n<< /Type /Catalog >>\nendobj\n"
	obj, err := NewParser(strings.NewReader(input)).ParseIndirectObject()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obj.Ref != (IndirectRef{Number: 7, Generation: 2}) {
		t.Errorf("expected ref 7 2 R, got %s", obj.Ref)
	}
	if diff := cmp.Diff(Dict{"Type": Name("Catalog")}, obj.Object); diff != "" {
		t.Errorf("object mismatch (-want +got):\n%s", diff)
	}
}

// TestParseIndirectStream tests stream bodies
func TestParseIndirectStream(t *testing.T) {
	input := "4 0 obj\n<< /Length 5 >>\nstream\nhello\nendstream\nendobj\n"
	obj, err := NewParser(strings.NewReader(input)).ParseIndirectObject()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stream, ok := obj.Object.(*Stream)
	if !ok {
		t.Fatalf("expected stream, got %T", obj.Object)
	}
	if string(stream.Data) != "hello" {
		t.Errorf("expected data %q, got %q", "hello", stream.Data)
	}
}

type lengthResolver map[IndirectRef]Object

func (r lengthResolver) ResolveReference(ref IndirectRef) (Object, error) {
	if obj, ok := r[ref]; ok {
		return obj, nil
	}
	return nil, ErrElementNotFound
}

// TestParseIndirectStreamLength tests an indirect /Length
func TestParseIndirectStreamLength(t *testing.T) {
	input := "4 0 obj\n<< /Length 8 0 R >>\nstream\r\nbinary\x00\x01\nendstream\nendobj\n"

	p := NewParser(strings.NewReader(input))
	p.SetReferenceResolver(lengthResolver{{Number: 8}: Int(8)})
	obj, err := p.ParseIndirectObject()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := string(obj.Object.(*Stream).Data); got != "binary\x00\x01" {
		t.Errorf("expected binary data, got %q", got)
	}

	p = NewParser(strings.NewReader(input))
	if _, err := p.ParseIndirectObject(); err == nil {
		t.Error("expected error without resolver")
	}

	p = NewParser(strings.NewReader(input))
	p.SetReferenceResolver(lengthResolver{})
	if _, err := p.ParseIndirectObject(); !errors.Is(err, ErrElementNotFound) {
		t.Errorf("expected ErrElementNotFound, got %v", err)
	}
}

// TestParseIndirectObjectErrors tests broken indirect objects
func TestParseIndirectObjectErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing obj keyword", "1 0 << >> endobj"},
		{"missing endobj", "1 0 obj << >> 2 0 obj"},
		{"stream without dict", "1 0 obj [1] stream\nx\nendstream endobj"},
		{"short stream", "1 0 obj << /Length 50 >> stream\nabc\nendstream endobj"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewParser(strings.NewReader(tt.input)).ParseIndirectObject(); err == nil {
				t.Error("expected error")
			}
		})
	}
}
