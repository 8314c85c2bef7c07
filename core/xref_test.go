package core

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const classicBody = "%PDF-1.4\n" +
	"1 0 obj\n<< /Type /Catalog >>\nendobj\n" +
	"xref\n" +
	"0 2\n" +
	"0000000000 65535 f \n" +
	"0000000009 00000 n \n" +
	"trailer\n<< /Size 2 /Root 1 0 R >>\n"

func classicBytes() ([]byte, int64) {
	xrefOff := strings.Index(classicBody, "xref")
	return []byte(classicBody + fmt.Sprintf("startxref\n%d\n%%%%EOF\n", xrefOff)), int64(xrefOff)
}

// TestFindStartXRef tests locating the last startxref
func TestFindStartXRef(t *testing.T) {
	data, want := classicBytes()
	got, err := NewXRefParser(bytes.NewReader(data), int64(len(data))).FindStartXRef()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Errorf("expected offset %d, got %d", want, got)
	}
}

// TestFindStartXRefMissing tests a file without startxref
func TestFindStartXRefMissing(t *testing.T) {
	data := []byte("%PDF-1.4\nno trailer here\n")
	_, err := NewXRefParser(bytes.NewReader(data), int64(len(data))).FindStartXRef()
	if !errors.Is(err, ErrMalformedFormat) {
		t.Errorf("expected ErrMalformedFormat, got %v", err)
	}
}

// TestParseClassicSection tests an xref table and trailer
func TestParseClassicSection(t *testing.T) {
	data, off := classicBytes()
	section, err := NewXRefParser(bytes.NewReader(data), int64(len(data))).ParseSection(off)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[int]XRefEntry{
		0: {Type: XRefFree, Offset: 0, Generation: 65535},
		1: {Type: XRefInUse, Offset: 9, Generation: 0},
	}
	if diff := cmp.Diff(want, section.Entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	if section.Stream {
		t.Error("expected classical section")
	}
	if section.Offset != off {
		t.Errorf("expected section offset %d, got %d", off, section.Offset)
	}
	if root, _ := section.Trailer.GetRef("Root"); root.Number != 1 {
		t.Errorf("expected /Root 1 0 R, got %s", section.Trailer)
	}
	if _, ok := section.Prev(); ok {
		t.Error("expected no /Prev")
	}
}

// TestParseSectionOutOfRange tests offsets past the file
func TestParseSectionOutOfRange(t *testing.T) {
	data, _ := classicBytes()
	p := NewXRefParser(bytes.NewReader(data), int64(len(data)))
	for _, off := range []int64{-1, int64(len(data)) + 5, 9} {
		if _, err := p.ParseSection(off); err == nil {
			t.Errorf("expected error at offset %d", off)
		}
	}
}

// xrefStreamRows encodes rows of (type, field2, field3) with /W [1 2 1].
func xrefStreamRows(rows [][3]int) []byte {
	var out []byte
	for _, r := range rows {
		out = append(out, byte(r[0]), byte(r[1]>>8), byte(r[1]), byte(r[2]))
	}
	return out
}

func xrefStreamObject(t *testing.T, num int, rows [][3]int, extra Dict) []byte {
	t.Helper()
	dict := Dict{"Type": Name("XRef"), "W": Array{Int(1), Int(2), Int(1)}}
	for k, v := range extra {
		dict[k] = v
	}
	stream, err := NewFlateStream(xrefStreamRows(rows), dict)
	if err != nil {
		t.Fatalf("NewFlateStream failed: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteIndirect(&buf, IndirectRef{Number: num}, stream); err != nil {
		t.Fatalf("WriteIndirect failed: %v", err)
	}
	return buf.Bytes()
}

// TestParseXRefStreamSection tests a cross-reference stream
func TestParseXRefStreamSection(t *testing.T) {
	prefix := []byte("%PDF-1.5\n")
	obj := xrefStreamObject(t, 6, [][3]int{
		{0, 0, 255},
		{1, 9, 0},
		{2, 5, 1},
	}, Dict{"Size": Int(3), "Root": IndirectRef{Number: 1}})
	data := append(prefix, obj...)

	section, err := NewXRefParser(bytes.NewReader(data), int64(len(data))).ParseSection(int64(len(prefix)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[int]XRefEntry{
		0: {Type: XRefFree, Offset: 0, Generation: 255},
		1: {Type: XRefInUse, Offset: 9},
		2: {Type: XRefCompressed, Offset: 5, Generation: 1},
	}
	if diff := cmp.Diff(want, section.Entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	if !section.Stream {
		t.Error("expected stream section")
	}
	for _, key := range []string{"W", "Filter", "Length", "Type"} {
		if section.Trailer.Has(key) {
			t.Errorf("expected /%s stripped from trailer", key)
		}
	}
	if size, _ := section.Trailer.GetInt("Size"); size != 3 {
		t.Errorf("expected /Size 3, got %d", size)
	}
}

// TestParseXRefStreamIndex tests /Index subsections
func TestParseXRefStreamIndex(t *testing.T) {
	prefix := []byte("%PDF-1.5\n")
	obj := xrefStreamObject(t, 9, [][3]int{{1, 100, 0}, {1, 200, 2}}, Dict{
		"Size":  Int(11),
		"Index": Array{Int(4), Int(1), Int(10), Int(1)},
	})
	data := append(prefix, obj...)

	section, err := NewXRefParser(bytes.NewReader(data), int64(len(data))).ParseSection(int64(len(prefix)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e := section.Entries[4]; e.Offset != 100 {
		t.Errorf("expected object 4 at 100, got %+v", e)
	}
	if e := section.Entries[10]; e.Offset != 200 || e.Generation != 2 {
		t.Errorf("expected object 10 at 200 gen 2, got %+v", e)
	}
	if len(section.Entries) != 2 {
		t.Errorf("expected 2 entries, got %d", len(section.Entries))
	}
}

// TestParseHybridSection tests merging /XRefStm entries
func TestParseHybridSection(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.5\n")
	stmOff := buf.Len()
	buf.Write(xrefStreamObject(t, 3, [][3]int{{1, 50, 0}, {2, 7, 0}}, Dict{
		"Size":  Int(3),
		"Index": Array{Int(1), Int(2)},
	}))
	tableOff := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 2\n0000000000 65535 f \n0000000009 00000 n \ntrailer\n<< /Size 3 /XRefStm %d >>\n", stmOff)
	data := buf.Bytes()

	section, err := NewXRefParser(bytes.NewReader(data), int64(len(data))).ParseSection(int64(tableOff))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e := section.Entries[1]; e.Type != XRefInUse || e.Offset != 9 {
		t.Errorf("expected table entry to win for object 1, got %+v", e)
	}
	if e := section.Entries[2]; e.Type != XRefCompressed || e.Offset != 7 {
		t.Errorf("expected hidden entry for object 2, got %+v", e)
	}
}

// TestParseXRefStreamRejectsOtherStreams tests streams that are not /XRef
func TestParseXRefStreamRejectsOtherStreams(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.5\n")
	WriteIndirect(&buf, IndirectRef{Number: 1}, &Stream{Dict: Dict{"Type": Name("ObjStm")}, Data: []byte("x")})
	data := buf.Bytes()

	_, err := NewXRefParser(bytes.NewReader(data), int64(len(data))).ParseSection(9)
	if !errors.Is(err, ErrMalformedFormat) {
		t.Errorf("expected ErrMalformedFormat, got %v", err)
	}
}
