package writer

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tsawler/pdfedit/core"
)

// TestXRefRowFormat tests the xref row layout
func TestXRefRowFormat(t *testing.T) {
	row := []byte(strings.Replace(xrefRowFormat, "%010d %05d", "0000000123 00000", 1))
	got := []byte(fmtRow(123, 0))
	if !bytes.Equal(row, got) {
		t.Errorf("expected %q, got %q", row, got)
	}
	if len(got) != 20 {
		t.Errorf("expected 20-byte row, got %d", len(got))
	}
	if !bytes.HasPrefix(got, []byte("0000000123 00000 n")) {
		t.Errorf("unexpected row %q", got)
	}
}

func fmtRow(off int64, gen int) string {
	var buf bytes.Buffer
	s := NewBufferStream(nil)
	w := NewOldStyle(nil)
	w.offsets[1] = recorded{gen: gen, offset: off}
	w.WriteTrailer(core.Dict{}, PrevSection{}, s, 0)
	buf.Write(s.Bytes())
	lines := strings.SplitAfter(buf.String(), "\n")
	return lines[2]
}

// TestWriteContentAndTrailer tests objects and their xref section
func TestWriteContentAndTrailer(t *testing.T) {
	s := NewBufferStream([]byte("%PDF-1.4\n"))
	w := NewOldStyle(nil)

	objs := []ObjectEntry{
		{Ref: core.IndirectRef{Number: 1}, Object: core.Dict{"Type": core.Name("Catalog")}},
		{Ref: core.IndirectRef{Number: 2}, Object: core.Int(7)},
		{Ref: core.IndirectRef{Number: 2}, Object: core.Int(8)},
		{Ref: core.IndirectRef{Number: 3}, Object: nil},
		{Ref: core.IndirectRef{Number: 5, Generation: 2}, Object: core.String("x")},
	}
	if err := w.WriteContent(objs, s, 0); err != nil {
		t.Fatalf("WriteContent failed: %v", err)
	}
	if w.Pending() != 3 {
		t.Errorf("expected 3 recorded objects, got %d", w.Pending())
	}

	end, err := w.WriteTrailer(core.Dict{"Root": core.IndirectRef{Number: 1}, "Prev": core.Int(99)}, PrevSection{}, s, 0)
	if err != nil {
		t.Fatalf("WriteTrailer failed: %v", err)
	}
	if end != s.Size() {
		t.Errorf("expected end %d to equal size %d", end, s.Size())
	}
	if w.Pending() != 0 {
		t.Error("expected offsets reset after trailer")
	}

	out := string(s.Bytes())
	want := "%PDF-1.4\n" +
		"1 0 obj\n<< /Type /Catalog >>\nendobj\n" +
		"2 0 obj\n7\nendobj\n" +
		"5 2 obj\n(x)\nendobj\n" +
		"xref\n" +
		"1 2\n" +
		"0000000009 00000 n \n" +
		"0000000045 00000 n \n" +
		"5 1\n" +
		"0000000062 00002 n \n" +
		"trailer\n<< /Root 1 0 R /Size 6 >>\n" +
		"startxref\n81\n%%EOF\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

// TestWriteContentSameNumberTwoGenerations tests that a number is written
// once per section even when a later entry carries another generation.
func TestWriteContentSameNumberTwoGenerations(t *testing.T) {
	s := NewBufferStream([]byte("%PDF-1.4\n"))
	var logs bytes.Buffer
	w := NewOldStyle(slog.New(slog.NewTextHandler(&logs, nil)))

	objs := []ObjectEntry{
		{Ref: core.IndirectRef{Number: 4, Generation: 0}, Object: core.Int(1)},
		{Ref: core.IndirectRef{Number: 4, Generation: 1}, Object: core.Int(2)},
	}
	if err := w.WriteContent(objs, s, 0); err != nil {
		t.Fatalf("WriteContent failed: %v", err)
	}
	if w.Pending() != 1 {
		t.Errorf("expected 1 recorded object, got %d", w.Pending())
	}
	if _, err := w.WriteTrailer(core.Dict{}, PrevSection{}, s, 0); err != nil {
		t.Fatalf("WriteTrailer failed: %v", err)
	}

	out := string(s.Bytes())
	if strings.Contains(out, "4 1 obj") {
		t.Errorf("expected second generation to be skipped, got %q", out)
	}
	if !strings.Contains(out, "4 1\n0000000009 00000 n \n") {
		t.Errorf("expected one row for object 4 with generation 0, got %q", out)
	}
	if !strings.Contains(logs.String(), "level=WARN") {
		t.Errorf("expected a warning for the dropped generation, got %q", logs.String())
	}
}

// TestWriteTrailerPrevAndSize tests /Prev and /Size
func TestWriteTrailerPrevAndSize(t *testing.T) {
	s := NewBufferStream([]byte("%PDF-1.4\n"))
	w := NewOldStyle(nil)
	w.WriteContent([]ObjectEntry{{Ref: core.IndirectRef{Number: 2}, Object: core.Null{}}}, s, 0)
	if _, err := w.WriteTrailer(core.Dict{}, PrevSection{XRefPos: 500, Size: 40}, s, 0); err != nil {
		t.Fatalf("WriteTrailer failed: %v", err)
	}
	out := string(s.Bytes())
	if !strings.Contains(out, "<< /Prev 500 /Size 40 >>") {
		t.Errorf("expected Prev and Size from previous section, got %q", out)
	}
}

// TestWriteTrailerNothingRecorded tests a trailer with no content
func TestWriteTrailerNothingRecorded(t *testing.T) {
	s := NewBufferStream([]byte("abc"))
	end, err := NewOldStyle(nil).WriteTrailer(core.Dict{}, PrevSection{}, s, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if end != 0 || string(s.Bytes()) != "abc" {
		t.Errorf("expected nothing written, got end %d and %q", end, s.Bytes())
	}
}

// TestWriteTrailerTruncatesTail tests truncation past %%EOF
func TestWriteTrailerTruncatesTail(t *testing.T) {
	s := NewBufferStream([]byte("%PDF-1.4\n" + strings.Repeat("stale bytes ", 50)))
	w := NewOldStyle(nil)
	if err := w.WriteContent([]ObjectEntry{{Ref: core.IndirectRef{Number: 1}, Object: core.Int(1)}}, s, 9); err != nil {
		t.Fatalf("WriteContent failed: %v", err)
	}
	end, err := w.WriteTrailer(core.Dict{}, PrevSection{}, s, 0)
	if err != nil {
		t.Fatalf("WriteTrailer failed: %v", err)
	}
	if s.Size() != end {
		t.Errorf("expected size %d after truncation, got %d", end, s.Size())
	}
	if !strings.HasSuffix(string(s.Bytes()), "%%EOF\n") || strings.Contains(string(s.Bytes()), "stale") {
		t.Errorf("expected stale tail removed, got %q", s.Bytes())
	}
}

// TestWriteHeader tests header lines
func TestWriteHeader(t *testing.T) {
	s := NewBufferStream(nil)
	if err := WriteHeader("1.6", s); err != nil {
		t.Fatalf("WriteHeader failed: %v", err)
	}
	if got := string(s.Bytes()); got != "%PDF-1.6\n%\x81\x82\xFD\xFE\n" {
		t.Errorf("unexpected header %q", got)
	}
}

// TestSubsections tests splitting numbers into runs
func TestSubsections(t *testing.T) {
	got := subsections([]int{1, 2, 3, 7, 9, 10})
	want := [][]int{{1, 2, 3}, {7}, {9, 10}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("subsections mismatch (-want +got):\n%s", diff)
	}
}

// TestBufferStreamOverwrite tests overwriting in memory
func TestBufferStreamOverwrite(t *testing.T) {
	s := NewBufferStream([]byte("hello world"))
	s.SetPos(6)
	s.Write([]byte("there, friend"))
	if got := string(s.Bytes()); got != "hello there, friend" {
		t.Errorf("expected overwrite and growth, got %q", got)
	}

	buf := make([]byte, 5)
	n, err := s.ReadAt(buf, 0)
	if err != nil || n != 5 || string(buf) != "hello" {
		t.Errorf("expected to read back hello, got %q (%v)", buf[:n], err)
	}
	s.Truncate(5)
	if s.Size() != 5 {
		t.Errorf("expected size 5, got %d", s.Size())
	}
}
