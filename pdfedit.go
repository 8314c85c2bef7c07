// Package pdfedit edits PDF documents through incremental updates.
//
// A [Document] layers unsaved changes over the stored file, lets callers
// browse older revisions and edit the page tree, and appends every save as
// a new cross-reference section so earlier revisions stay intact.
//
// Basic usage:
//
//	doc, err := pdfedit.Open("report.pdf")
//	if err != nil {
//	    // handle error
//	}
//	defer doc.Close()
//
//	if err := doc.RemovePage(2); err != nil {
//	    // handle error
//	}
//	err = doc.SaveChanges(true)
//
// Read-only inspection:
//
//	doc, err := pdfedit.Open("report.pdf", pdfedit.ReadOnly())
//	fmt.Println(doc.PageCount(), doc.RevisionCount())
//
// The store, pages and rewrite packages are available for lower-level use.
package pdfedit

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/tsawler/pdfedit/core"
	"github.com/tsawler/pdfedit/pages"
	"github.com/tsawler/pdfedit/reader"
	"github.com/tsawler/pdfedit/resolver"
	"github.com/tsawler/pdfedit/store"
	"github.com/tsawler/pdfedit/writer"
)

// Document is an open PDF file. It owns the revision writer and the page
// tree; page handles only refer back to it weakly.
type Document struct {
	rw     *store.RevisionWriter
	tree   *pages.PageTree
	file   *os.File
	buffer *writer.BufferStream
	closed bool
}

// Open opens the file at path. Unless ReadOnly is given the file is opened
// for writing and saves go into it.
func Open(path string, opts ...Option) (*Document, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	flag := os.O_RDWR
	if o.readOnly {
		flag = os.O_RDONLY
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	var stream store.Storage
	var src io.ReaderAt = f
	if !o.readOnly {
		fs, err := writer.NewFileStream(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		stream, src = fs, fs
	}

	doc, err := open(src, info.Size(), stream, o)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc.file = f
	return doc, nil
}

// OpenReader opens a document read-only from r
func OpenReader(r io.ReaderAt, size int64, opts ...Option) (*Document, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.readOnly = true
	return open(r, size, nil, o)
}

// OpenBytes opens an in-memory copy of data for editing. Bytes returns the
// edited file.
func OpenBytes(data []byte, opts ...Option) (*Document, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	buf := writer.NewBufferStream(data)
	var stream store.Storage
	if !o.readOnly {
		stream = buf
	}
	doc, err := open(buf, buf.Size(), stream, o)
	if err != nil {
		return nil, err
	}
	doc.buffer = buf
	return doc, nil
}

func open(r io.ReaderAt, size int64, stream store.Storage, o options) (*Document, error) {
	base, err := reader.Open(r, size)
	if err != nil {
		return nil, err
	}
	rw, err := store.NewRevisionWriter(base, stream, o.config())
	if err != nil {
		return nil, err
	}
	return &Document{rw: rw, tree: pages.New(rw)}, nil
}

// ErrClosed is returned by operations on a closed document
var ErrClosed = errors.New("document is closed")

// ID returns the process-unique document identifier carried by its page
// handles.
func (d *Document) ID() uint64 {
	return d.tree.ID()
}

// Store returns the revision writer underneath the document
func (d *Document) Store() *store.RevisionWriter {
	return d.rw
}

// PageTree returns the document's page tree
func (d *Document) PageTree() *pages.PageTree {
	return d.tree
}

// Version returns the header version of the stored file
func (d *Document) Version() reader.Version {
	return d.rw.Base().Version()
}

// PageCount returns the number of pages at the active revision
func (d *Document) PageCount() int {
	if d.closed {
		return 0
	}
	return d.tree.PageCount()
}

// GetPage returns the page at 1-based position pos
func (d *Document) GetPage(pos int) (*pages.Page, error) {
	if d.closed {
		return nil, ErrClosed
	}
	return d.tree.GetPage(pos)
}

// Pages returns every page in order
func (d *Document) Pages() ([]*pages.Page, error) {
	if d.closed {
		return nil, ErrClosed
	}
	return d.tree.Pages()
}

// PagePosition returns the 1-based position of page
func (d *Document) PagePosition(page *pages.Page) (int, error) {
	if d.closed {
		return 0, ErrClosed
	}
	return d.tree.PagePosition(page)
}

// InsertPage adds a copy of dict as page pos
func (d *Document) InsertPage(dict core.Dict, pos int) (*pages.Page, error) {
	if d.closed {
		return nil, ErrClosed
	}
	return d.tree.InsertPage(dict, pos)
}

// RemovePage removes page pos
func (d *Document) RemovePage(pos int) error {
	if d.closed {
		return ErrClosed
	}
	return d.tree.RemovePage(pos)
}

// Revision returns the active revision, 0 being the newest
func (d *Document) Revision() int {
	return d.rw.Revision()
}

// RevisionCount returns the number of stored revisions
func (d *Document) RevisionCount() int {
	return d.rw.RevisionCount()
}

// ChangeRevision makes revision n active. Only revision 0 can be edited.
func (d *Document) ChangeRevision(n int) error {
	if d.closed {
		return ErrClosed
	}
	if err := d.rw.ChangeRevision(n); err != nil {
		return err
	}
	d.tree.Reset()
	return nil
}

// SaveChanges writes unsaved changes into the file, as a new revision when
// newRevision is set.
func (d *Document) SaveChanges(newRevision bool) error {
	if d.closed {
		return ErrClosed
	}
	return d.rw.SaveChanges(newRevision)
}

// Fetch returns a copy of the object ref at the active revision
func (d *Document) Fetch(ref core.IndirectRef) (core.Object, error) {
	if d.closed {
		return nil, ErrClosed
	}
	return d.rw.Fetch(ref)
}

// ChangeObject replaces the value of ref and returns the previous unsaved
// value, if any.
func (d *Document) ChangeObject(ref core.IndirectRef, value core.Object) (core.Object, error) {
	if d.closed {
		return nil, ErrClosed
	}
	return d.rw.ChangeObject(ref, value)
}

// CreateObject reserves a reference for a new object of kind
func (d *Document) CreateObject(kind core.ObjectType) (core.IndirectRef, core.Object, error) {
	if d.closed {
		return core.IndirectRef{}, nil, ErrClosed
	}
	return d.rw.CreateObject(kind)
}

// ChangeTrailer sets one trailer entry
func (d *Document) ChangeTrailer(key string, value core.Object) (core.Object, error) {
	if d.closed {
		return nil, ErrClosed
	}
	return d.rw.ChangeTrailer(key, value)
}

// Trailer returns the trailer of the active revision
func (d *Document) Trailer() (core.Dict, error) {
	if d.closed {
		return nil, ErrClosed
	}
	return d.rw.Trailer()
}

// Info returns the text entries of the document information dictionary
// decoded to UTF-8.
func (d *Document) Info() (map[string]string, error) {
	trailer, err := d.Trailer()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	if !trailer.Has("Info") {
		return out, nil
	}
	r := resolver.New(d.rw)
	dict, err := r.Dict(trailer.Get("Info"))
	if err != nil {
		return nil, fmt.Errorf("info dictionary: %w", err)
	}
	for key, v := range dict {
		if v, err = r.Resolve(v); err != nil {
			return nil, fmt.Errorf("info /%s: %w", key, err)
		}
		if s, ok := v.(core.String); ok {
			out[key] = core.DecodeTextString(s)
		}
	}
	return out, nil
}

// Resolve returns obj with every reference inside it replaced by its
// value at the active revision.
func (d *Document) Resolve(obj core.Object) (core.Object, error) {
	if d.closed {
		return nil, ErrClosed
	}
	return resolver.New(d.rw).ResolveDeep(obj)
}

// Bytes returns the current file contents of a document opened with
// OpenBytes, or nil otherwise.
func (d *Document) Bytes() []byte {
	if d.buffer == nil {
		return nil
	}
	return d.buffer.Bytes()
}

// Close discards unsaved changes, invalidates page handles and closes the
// file.
func (d *Document) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.tree.Close()
	if d.file != nil {
		return d.file.Close()
	}
	return nil
}

// Must panics if err is non-nil and returns val otherwise. It is meant for
// scripts and tests.
//
//	doc := pdfedit.Must(pdfedit.Open("document.pdf"))
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}
