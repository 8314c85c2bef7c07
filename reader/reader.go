package reader

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"

	"github.com/tsawler/pdfedit/core"
	"github.com/zeebo/xxh3"
)

// Version represents a PDF header version
type Version struct {
	Major int
	Minor int
}

// String returns the version as a string (e.g., "1.7")
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// headerWindow bounds where the %PDF- header and the linearization
// dictionary may appear.
const headerWindow = 1024

// maxLengthDepth bounds nested resolution of indirect stream lengths.
const maxLengthDepth = 8

var headerRe = regexp.MustCompile(`%PDF-(\d+)\.(\d+)`)

// File is a parsed PDF file as stored on disk. It never reflects unsaved
// changes; the store package layers those on top.
type File struct {
	r    io.ReaderAt
	size int64

	version    Version
	sections   []*core.XRefSection // newest first
	eofs       []int64
	tables     []map[int]core.XRefEntry
	linearized *core.IndirectRef

	objStreams map[objStreamKey]*core.ObjectStream
}

type objStreamKey struct {
	rev int
	num int
}

// Open parses the header and the whole cross-reference chain of r. The
// ReaderAt must stay valid while the File is in use.
func Open(r io.ReaderAt, size int64) (*File, error) {
	f := &File{
		r:          r,
		size:       size,
		objStreams: make(map[objStreamKey]*core.ObjectStream),
	}

	version, err := f.parseHeader()
	if err != nil {
		return nil, err
	}
	f.version = version

	if err := f.loadSections(); err != nil {
		return nil, err
	}
	f.buildTables()
	f.detectLinearization()
	return f, nil
}

// OpenFile opens the named file read-only. The caller closes the returned
// *os.File when done with the File.
func OpenFile(name string) (*File, *os.File, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("failed to stat file: %w", err)
	}
	f, err := Open(file, info.Size())
	if err != nil {
		file.Close()
		return nil, nil, err
	}
	return f, file, nil
}

func (f *File) parseHeader() (Version, error) {
	n := f.size
	if n > headerWindow {
		n = headerWindow
	}
	buf := make([]byte, n)
	read, err := f.r.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return Version{}, fmt.Errorf("failed to read header: %w", err)
	}
	m := headerRe.FindSubmatch(buf[:read])
	if m == nil {
		return Version{}, fmt.Errorf("missing %%PDF- header: %w", core.ErrMalformedFormat)
	}
	major, _ := strconv.Atoi(string(m[1]))
	minor, _ := strconv.Atoi(string(m[2]))
	return Version{Major: major, Minor: minor}, nil
}

// loadSections follows /Prev from the last startxref, newest first.
func (f *File) loadSections() error {
	xp := core.NewXRefParser(f.r, f.size)
	offset, err := xp.FindStartXRef()
	if err != nil {
		return err
	}

	seen := make(map[int64]bool)
	for {
		if seen[offset] {
			return fmt.Errorf("cyclic /Prev chain at offset %d: %w", offset, core.ErrMalformedFormat)
		}
		seen[offset] = true

		section, err := xp.ParseSection(offset)
		if err != nil {
			return fmt.Errorf("revision %d: %w", len(f.sections), err)
		}
		eof, err := f.EOFAfter(offset)
		if err != nil {
			return fmt.Errorf("revision %d: %w", len(f.sections), err)
		}
		f.sections = append(f.sections, section)
		f.eofs = append(f.eofs, eof)

		prev, ok := section.Prev()
		if !ok {
			return nil
		}
		offset = prev
	}
}

// buildTables merges every section with all older ones so that each
// revision has a complete view. Newer entries win.
func (f *File) buildTables() {
	f.tables = make([]map[int]core.XRefEntry, len(f.sections))
	merged := make(map[int]core.XRefEntry)
	for i := len(f.sections) - 1; i >= 0; i-- {
		next := make(map[int]core.XRefEntry, len(merged)+len(f.sections[i].Entries))
		for num, e := range merged {
			next[num] = e
		}
		for num, e := range f.sections[i].Entries {
			next[num] = e
		}
		f.tables[i] = next
		merged = next
	}
}

// detectLinearization checks whether the first object in the file is a
// linearization parameter dictionary.
func (f *File) detectLinearization() {
	n := f.size
	if n > headerWindow {
		n = headerWindow
	}
	p := core.NewParser(io.NewSectionReader(f.r, 0, n))
	obj, err := p.ParseIndirectObject()
	if err != nil {
		return
	}
	if dict, ok := obj.Object.(core.Dict); ok && dict.Has("Linearized") {
		ref := obj.Ref
		f.linearized = &ref
	}
}

// EOFAfter returns the offset just past the first %%EOF marker (and its
// end-of-line) that follows offset.
func (f *File) EOFAfter(offset int64) (int64, error) {
	const chunk = 4096
	marker := []byte("%%EOF")
	buf := make([]byte, chunk+len(marker))
	for pos := offset; pos < f.size; pos += chunk {
		n, err := f.r.ReadAt(buf, pos)
		if err != nil && err != io.EOF {
			return 0, fmt.Errorf("scanning for %%%%EOF: %w", err)
		}
		if idx := bytes.Index(buf[:n], marker); idx >= 0 {
			end := pos + int64(idx+len(marker))
			return end + f.eolLen(end), nil
		}
	}
	return 0, fmt.Errorf("no %%%%EOF after offset %d: %w", offset, core.ErrMalformedFormat)
}

func (f *File) eolLen(at int64) int64 {
	var b [2]byte
	n, _ := f.r.ReadAt(b[:], at)
	switch {
	case n >= 2 && b[0] == '\r' && b[1] == '\n':
		return 2
	case n >= 1 && (b[0] == '\n' || b[0] == '\r'):
		return 1
	}
	return 0
}

// Size returns the file size in bytes
func (f *File) Size() int64 {
	return f.size
}

// ReaderAt returns the underlying reader
func (f *File) ReaderAt() io.ReaderAt {
	return f.r
}

// Version returns the header version
func (f *File) Version() Version {
	return f.version
}

// Sections returns the cross-reference section offsets, newest first.
func (f *File) Sections() []int64 {
	out := make([]int64, len(f.sections))
	for i, s := range f.sections {
		out[i] = s.Offset
	}
	return out
}

// EOFOffsets returns, per section, the offset following its %%EOF.
func (f *File) EOFOffsets() []int64 {
	return append([]int64(nil), f.eofs...)
}

// RevisionCount returns the number of cross-reference sections
func (f *File) RevisionCount() int {
	return len(f.sections)
}

func (f *File) checkRev(rev int) error {
	if rev < 0 || rev >= len(f.sections) {
		return fmt.Errorf("revision %d not in [0, %d): %w", rev, len(f.sections), core.ErrOutOfRange)
	}
	return nil
}

// Table returns a copy of the merged entry table visible at revision rev.
func (f *File) Table(rev int) (map[int]core.XRefEntry, error) {
	if err := f.checkRev(rev); err != nil {
		return nil, err
	}
	out := make(map[int]core.XRefEntry, len(f.tables[rev]))
	for num, e := range f.tables[rev] {
		out[num] = e
	}
	return out, nil
}

// Entry returns the entry for an object number at revision rev
func (f *File) Entry(rev, num int) (core.XRefEntry, bool) {
	if rev < 0 || rev >= len(f.tables) {
		return core.XRefEntry{}, false
	}
	e, ok := f.tables[rev][num]
	return e, ok
}

// Trailer returns a deep copy of the trailer of revision rev
func (f *File) Trailer(rev int) (core.Dict, error) {
	if err := f.checkRev(rev); err != nil {
		return nil, err
	}
	return core.CloneDict(f.sections[rev].Trailer), nil
}

// ObjectCount returns the /Size of the newest trailer
func (f *File) ObjectCount() int {
	size, _ := f.sections[0].Trailer.GetInt("Size")
	return int(size)
}

// Linearized returns the reference of the linearization dictionary, if the
// file is linearized.
func (f *File) Linearized() (core.IndirectRef, bool) {
	if f.linearized == nil {
		return core.IndirectRef{}, false
	}
	return *f.linearized, true
}

// Encrypted reports whether the newest trailer carries /Encrypt
func (f *File) Encrypted() bool {
	return f.sections[0].Trailer.Has("Encrypt")
}

// Digest returns the xxh3 hash of the bytes up to and including the %%EOF
// of revision rev.
func (f *File) Digest(rev int) (uint64, error) {
	if err := f.checkRev(rev); err != nil {
		return 0, err
	}
	h := xxh3.New()
	if _, err := io.Copy(h, io.NewSectionReader(f.r, 0, f.eofs[rev])); err != nil {
		return 0, fmt.Errorf("hashing revision %d: %w", rev, err)
	}
	return h.Sum64(), nil
}

// Fetch reads the object ref as stored at revision rev. Free, unknown or
// generation-mismatched entries yield core.Null{}.
func (f *File) Fetch(rev int, ref core.IndirectRef) (core.Object, error) {
	if err := f.checkRev(rev); err != nil {
		return nil, err
	}
	return f.fetch(rev, ref, 0)
}

func (f *File) fetch(rev int, ref core.IndirectRef, depth int) (core.Object, error) {
	entry, ok := f.tables[rev][ref.Number]
	if !ok {
		return core.Null{}, nil
	}

	switch entry.Type {
	case core.XRefInUse:
		if entry.Generation != ref.Generation {
			return core.Null{}, nil
		}
		return f.readAt(rev, ref, entry.Offset, depth)
	case core.XRefCompressed:
		if ref.Generation != 0 {
			return core.Null{}, nil
		}
		stm, err := f.objectStream(rev, int(entry.Offset), depth)
		if err != nil {
			return nil, fmt.Errorf("object %s: %w", ref, err)
		}
		obj, err := stm.ObjectAt(entry.Generation, ref.Number)
		if err != nil {
			return nil, fmt.Errorf("object %s: %w", ref, err)
		}
		return obj, nil
	}
	return core.Null{}, nil
}

func (f *File) readAt(rev int, ref core.IndirectRef, offset int64, depth int) (core.Object, error) {
	if offset < 0 || offset >= f.size {
		return nil, fmt.Errorf("object %s offset %d outside file: %w", ref, offset, core.ErrMalformedFormat)
	}
	p := core.NewParserAt(io.NewSectionReader(f.r, offset, f.size-offset), offset)
	p.SetReferenceResolver(lengthResolver{f: f, rev: rev, depth: depth + 1})

	obj, err := p.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("object %s at %d: %v: %w", ref, offset, err, core.ErrMalformedFormat)
	}
	if obj.Ref != ref {
		return nil, fmt.Errorf("expected object %s at %d, found %s: %w", ref, offset, obj.Ref, core.ErrMalformedFormat)
	}
	return obj.Object, nil
}

func (f *File) objectStream(rev, num, depth int) (*core.ObjectStream, error) {
	key := objStreamKey{rev: rev, num: num}
	if stm, ok := f.objStreams[key]; ok {
		return stm, nil
	}
	entry, ok := f.tables[rev][num]
	if !ok || entry.Type != core.XRefInUse {
		return nil, fmt.Errorf("object stream %d is not stored directly: %w", num, core.ErrMalformedFormat)
	}
	obj, err := f.readAt(rev, core.IndirectRef{Number: num, Generation: entry.Generation}, entry.Offset, depth)
	if err != nil {
		return nil, err
	}
	stream, ok := obj.(*core.Stream)
	if !ok {
		return nil, fmt.Errorf("object stream %d is %s: %w", num, obj.Type(), core.ErrMalformedFormat)
	}
	stm, err := core.NewObjectStream(stream)
	if err != nil {
		return nil, err
	}
	f.objStreams[key] = stm
	return stm, nil
}

// lengthResolver resolves indirect /Length values while parsing streams.
type lengthResolver struct {
	f     *File
	rev   int
	depth int
}

func (lr lengthResolver) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	if lr.depth > maxLengthDepth {
		return nil, fmt.Errorf("length of %s nests too deeply: %w", ref, core.ErrMalformedFormat)
	}
	return lr.f.fetch(lr.rev, ref, lr.depth)
}
