package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/tsawler/pdfedit"
	"github.com/tsawler/pdfedit/core"
	"github.com/tsawler/pdfedit/internal/pdftest"
)

func twoRevisionDocument(t *testing.T) *pdfedit.Document {
	t.Helper()
	b := pdftest.FlatDocument(2)
	b.Object(10, 0, core.Dict{"Title": core.String("Report")})
	b.EndSection(core.Dict{"Root": pdftest.Ref(1), "Info": pdftest.Ref(10)})
	doc, err := pdfedit.OpenBytes(b.Bytes(), pdfedit.ReadOnly())
	if err != nil {
		t.Fatalf("OpenBytes failed: %v", err)
	}
	t.Cleanup(func() { doc.Close() })
	return doc
}

// TestRevisionRows tests building the revision table rows
func TestRevisionRows(t *testing.T) {
	doc := twoRevisionDocument(t)
	rows, err := revisionRows(doc)
	if err != nil {
		t.Fatalf("revisionRows failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if !rows[0].Current || rows[1].Current {
		t.Errorf("expected only the newest revision to be current, got %+v", rows)
	}
	if rows[0].Digest == rows[1].Digest {
		t.Errorf("expected distinct digests, both are %s", rows[0].Digest)
	}
	if len(rows[0].Digest) != 16 {
		t.Errorf("expected 16 hex digits, got %q", rows[0].Digest)
	}

	var buf bytes.Buffer
	if err := writeRevisions(&buf, rows, false); err != nil {
		t.Fatalf("writeRevisions failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %q", buf.String())
	}
	if !strings.HasSuffix(lines[1], " *") {
		t.Errorf("expected current marker on newest revision, got %q", lines[1])
	}
	if strings.Contains(buf.String(), "\x1b[") {
		t.Error("expected no escape codes without a terminal")
	}
}

// TestRevisionsJSON tests JSON output of the revision listing
func TestRevisionsJSON(t *testing.T) {
	doc := twoRevisionDocument(t)
	rows, err := revisionRows(doc)
	if err != nil {
		t.Fatalf("revisionRows failed: %v", err)
	}
	var buf bytes.Buffer
	if err := writeJSON(&buf, rows); err != nil {
		t.Fatalf("writeJSON failed: %v", err)
	}
	var decoded []revisionRow
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not json: %v", err)
	}
	if diff := cmp.Diff(rows, decoded); diff != "" {
		t.Errorf("json mismatch (-want +got):\n%s", diff)
	}
}

// TestDescribe tests the document summary
func TestDescribe(t *testing.T) {
	doc := twoRevisionDocument(t)
	di, err := describe(doc)
	if err != nil {
		t.Fatalf("describe failed: %v", err)
	}
	want := documentInfo{
		Version:   "1.4",
		Revisions: 2,
		Pages:     2,
		Info:      map[string]string{"Title": "Report"},
	}
	if diff := cmp.Diff(want, di); diff != "" {
		t.Errorf("info mismatch (-want +got):\n%s", diff)
	}

	var buf bytes.Buffer
	if err := writeInfo(&buf, di); err != nil {
		t.Fatalf("writeInfo failed: %v", err)
	}
	for _, s := range []string{"Version:    1.4", "Pages:      2", "Title:      Report"} {
		if !strings.Contains(buf.String(), s) {
			t.Errorf("expected %q in output:\n%s", s, buf.String())
		}
	}
}
