package store

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/tsawler/pdfedit/core"
	"github.com/tsawler/pdfedit/reader"
	"github.com/tsawler/pdfedit/writer"
)

// Mode selects how strictly mutations are checked
type Mode int

const (
	// Paranoid rejects changes to unknown references and replacements of a
	// different kind.
	Paranoid Mode = iota
	// Easy accepts any change.
	Easy
)

func (m Mode) String() string {
	if m == Easy {
		return "easy"
	}
	return "paranoid"
}

// Config holds RevisionWriter settings
type Config struct {
	Mode     Mode
	ReadOnly bool
	Logger   *slog.Logger
}

// Storage is the file a RevisionWriter saves into. It must be readable so
// a saved revision can be parsed back.
type Storage interface {
	writer.Stream
	io.ReaderAt
}

// RevisionInfo describes one stored revision; Index 0 is the newest.
type RevisionInfo struct {
	Index      int   `json:"index"`
	XRefOffset int64 `json:"xrefOffset"`
	EOFOffset  int64 `json:"eofOffset"`
}

// trailerKinds constrains the kinds of well-known trailer entries.
var trailerKinds = map[string]core.ObjectType{
	"Prev":    core.ObjInt,
	"Size":    core.ObjInt,
	"Root":    core.ObjIndirect,
	"Encrypt": core.ObjIndirect,
	"Info":    core.ObjIndirect,
	"ID":      core.ObjArray,
}

// RevisionWriter guards an ObjectStore with revision and mode checks and
// saves its overlay as incremental updates. Revision 0 is the only mutable
// one; older revisions are read-only snapshots of the stored bytes.
type RevisionWriter struct {
	store      *ObjectStore
	stream     Storage
	cfg        Config
	logger     *slog.Logger
	serializer *writer.OldStyle

	revision int
	storePos int64
	needsEOL bool
}

// NewRevisionWriter opens base for editing. stream holds the same bytes as
// base and receives every save; it may be nil when cfg.ReadOnly is set.
func NewRevisionWriter(base *reader.File, stream Storage, cfg Config) (*RevisionWriter, error) {
	if stream == nil && !cfg.ReadOnly {
		return nil, fmt.Errorf("writable document needs a stream: %w", core.ErrReadOnlyDocument)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s, err := NewObjectStore(base)
	if err != nil {
		return nil, err
	}

	rw := &RevisionWriter{
		store:      s,
		stream:     stream,
		cfg:        cfg,
		logger:     logger,
		serializer: writer.NewOldStyle(logger),
	}
	rw.locateStorePosition()
	return rw, nil
}

// locateStorePosition finds where the next save starts: after the last
// %%EOF of any section. A file ending without an end-of-line after %%EOF
// gets one written before the next update.
func (rw *RevisionWriter) locateStorePosition() {
	base := rw.store.Base()
	rw.storePos = 0
	for _, eof := range base.EOFOffsets() {
		if eof > rw.storePos {
			rw.storePos = eof
		}
	}
	var last [1]byte
	if _, err := base.ReaderAt().ReadAt(last[:], rw.storePos-1); err == nil {
		rw.needsEOL = last[0] != '\n' && last[0] != '\r'
	}
}

// Base returns the parsed file the writer currently edits on top of
func (rw *RevisionWriter) Base() *reader.File {
	return rw.store.Base()
}

// Mode returns the mutation checking mode
func (rw *RevisionWriter) Mode() Mode {
	return rw.cfg.Mode
}

// ReadOnly reports whether the document was opened read-only
func (rw *RevisionWriter) ReadOnly() bool {
	return rw.cfg.ReadOnly
}

// Linearized reports whether the stored file is linearized
func (rw *RevisionWriter) Linearized() bool {
	_, ok := rw.store.Base().Linearized()
	return ok
}

// Revision returns the active revision
func (rw *RevisionWriter) Revision() int {
	return rw.revision
}

// RevisionCount returns the number of revisions. A linearized file has one.
func (rw *RevisionWriter) RevisionCount() int {
	if rw.Linearized() {
		return 1
	}
	return rw.store.Base().RevisionCount()
}

// StorePosition returns where the next save begins writing
func (rw *RevisionWriter) StorePosition() int64 {
	return rw.storePos
}

// Revisions describes every revision, newest first
func (rw *RevisionWriter) Revisions() []RevisionInfo {
	base := rw.store.Base()
	sections := base.Sections()
	eofs := base.EOFOffsets()
	out := make([]RevisionInfo, rw.RevisionCount())
	for i := range out {
		out[i] = RevisionInfo{Index: i, XRefOffset: sections[i], EOFOffset: eofs[i]}
	}
	return out
}

// ChangeRevision makes revision n active. Only revision 0 accepts changes.
// Linearized documents cannot change revisions at all.
func (rw *RevisionWriter) ChangeRevision(n int) error {
	if rw.Linearized() {
		return fmt.Errorf("changing revisions of a linearized document: %w", core.ErrNotImplemented)
	}
	if n < 0 || n >= rw.RevisionCount() {
		return fmt.Errorf("revision %d not in [0, %d): %w", n, rw.RevisionCount(), core.ErrOutOfRange)
	}
	rw.revision = n
	rw.logger.Info("changed revision", "revision", n)
	return nil
}

// checkWritable rejects mutations on old revisions and read-only documents.
func (rw *RevisionWriter) checkWritable() error {
	if rw.revision != 0 {
		return fmt.Errorf("revision %d is a snapshot: %w", rw.revision, core.ErrReadOnlyDocument)
	}
	if rw.cfg.ReadOnly {
		return core.ErrReadOnlyDocument
	}
	return nil
}

// Fetch returns a deep copy of ref at the active revision. Older revisions
// never see the overlay.
func (rw *RevisionWriter) Fetch(ref core.IndirectRef) (core.Object, error) {
	if rw.revision != 0 {
		return rw.store.Base().Fetch(rw.revision, ref)
	}
	return rw.store.Fetch(ref)
}

// KnowsRef reports the state of ref at the active revision
func (rw *RevisionWriter) KnowsRef(ref core.IndirectRef) RefState {
	if rw.revision != 0 {
		return baseState(rw.store.Base(), rw.revision, ref)
	}
	return rw.store.KnowsRef(ref)
}

// TypeSafe reports whether repl may replace old; see ObjectStore.TypeSafe.
func (rw *RevisionWriter) TypeSafe(old, repl core.Object) bool {
	return rw.store.TypeSafe(old, repl)
}

// Trailer returns a deep copy of the active revision's trailer
func (rw *RevisionWriter) Trailer() (core.Dict, error) {
	if rw.revision != 0 {
		return rw.store.Base().Trailer(rw.revision)
	}
	return rw.store.Trailer(), nil
}

// ChangeObject replaces ref's value and returns the previous overlay entry.
// In paranoid mode ref must be reserved or initialized, and an initialized
// value may only be replaced by one of the same kind.
func (rw *RevisionWriter) ChangeObject(ref core.IndirectRef, value core.Object) (core.Object, error) {
	if err := rw.checkWritable(); err != nil {
		return nil, err
	}
	if rw.cfg.Mode == Paranoid {
		switch rw.store.KnowsRef(ref) {
		case Unused:
			return nil, fmt.Errorf("object %s is not known: %w", ref, core.ErrElementBadType)
		case Initialized:
			old, err := rw.store.Fetch(ref)
			if err != nil {
				return nil, err
			}
			if !rw.store.TypeSafe(old, value) {
				return nil, fmt.Errorf("object %s: replacing %s with %s: %w", ref, old.Type(), kindOf(value), core.ErrElementBadType)
			}
		}
	}
	return rw.store.ChangeObject(ref, value), nil
}

// ReserveRef reserves a reference for a new object
func (rw *RevisionWriter) ReserveRef() (core.IndirectRef, error) {
	if err := rw.checkWritable(); err != nil {
		return core.IndirectRef{}, err
	}
	return rw.store.ReserveRef()
}

// CreateObject reserves a reference and returns a default value of kind
func (rw *RevisionWriter) CreateObject(kind core.ObjectType) (core.IndirectRef, core.Object, error) {
	if err := rw.checkWritable(); err != nil {
		return core.IndirectRef{}, nil, err
	}
	return rw.store.CreateObject(kind)
}

// ChangeTrailer sets one trailer entry and returns its previous value.
// Well-known keys must hold values of their required kind in every mode.
// In paranoid mode referenced objects must be known and a replacement must
// be type safe.
func (rw *RevisionWriter) ChangeTrailer(key string, value core.Object) (core.Object, error) {
	if err := rw.checkWritable(); err != nil {
		return nil, err
	}
	if want, ok := trailerKinds[key]; ok && value != nil && value.Type() != want {
		return nil, fmt.Errorf("trailer /%s must be %s, got %s: %w", key, want, value.Type(), core.ErrElementBadType)
	}
	if rw.cfg.Mode == Paranoid && value != nil {
		if ref, ok := value.(core.IndirectRef); ok && rw.store.KnowsRef(ref) == Unused {
			return nil, fmt.Errorf("trailer /%s references unknown %s: %w", key, ref, core.ErrElementBadType)
		}
		trailer := rw.store.Trailer()
		if old, ok := trailer[key]; ok && !rw.store.TypeSafe(old, value) {
			return nil, fmt.Errorf("trailer /%s: replacing %s with %s: %w", key, old.Type(), value.Type(), core.ErrElementBadType)
		}
	}
	return rw.store.ChangeTrailer(key, value), nil
}

// ReleaseObject records that the caller no longer needs ref
func (rw *RevisionWriter) ReleaseObject(ref core.IndirectRef) {
	rw.store.ReleaseObject(ref)
}

// Released returns how often ref was released
func (rw *RevisionWriter) Released(ref core.IndirectRef) int {
	return rw.store.Released(ref)
}

// Changed returns the references with unsaved values
func (rw *RevisionWriter) Changed() []core.IndirectRef {
	return rw.store.Changed()
}

// NumObjects returns the object count a save would record
func (rw *RevisionWriter) NumObjects() int {
	return rw.store.NumObjects()
}

// AddListener registers l for change notifications
func (rw *RevisionWriter) AddListener(l ChangeListener) {
	rw.store.AddListener(l)
}

// RemoveListener unregisters l
func (rw *RevisionWriter) RemoveListener(l ChangeListener) {
	rw.store.RemoveListener(l)
}

// SaveChanges writes every overlay object and a cross-reference section at
// the store position. With newRevision the section becomes a new revision
// and the store position moves past it; otherwise the next save overwrites
// the same region. The overlay keeps serving reads in both cases. Nothing
// is written when the overlay is empty.
func (rw *RevisionWriter) SaveChanges(newRevision bool) error {
	if err := rw.checkWritable(); err != nil {
		return err
	}
	changed := rw.store.Changed()
	if len(changed) == 0 {
		return nil
	}

	entries := make([]writer.ObjectEntry, 0, len(changed))
	for _, ref := range changed {
		entries = append(entries, writer.ObjectEntry{Ref: ref, Object: rw.store.overlay[ref]})
	}

	contentPos := rw.storePos
	if rw.needsEOL {
		if err := rw.stream.SetPos(rw.storePos); err != nil {
			return fmt.Errorf("save: %w", err)
		}
		if _, err := rw.stream.Write([]byte("\n")); err != nil {
			return fmt.Errorf("save: %w", err)
		}
		contentPos++
	}

	if err := rw.serializer.WriteContent(entries, rw.stream, contentPos); err != nil {
		rw.serializer.Reset()
		return fmt.Errorf("save: %w", err)
	}

	base := rw.store.Base()
	prevSize := base.ObjectCount()
	if size, ok := rw.store.trailer.GetInt("Size"); ok && int(size) > prevSize {
		prevSize = int(size)
	}
	prev := writer.PrevSection{XRefPos: base.Sections()[0], Size: prevSize}

	trailer := rw.store.Trailer()
	trailer.Delete("XRefStm")
	end, err := rw.serializer.WriteTrailer(trailer, prev, rw.stream, 0)
	if err != nil {
		rw.serializer.Reset()
		return fmt.Errorf("save: %w", err)
	}

	if !newRevision {
		rw.logger.Info("saved changes in place", "objects", len(entries), "offset", rw.storePos, "end", end)
		return nil
	}

	reopened, err := reader.Open(rw.stream, end)
	if err != nil {
		return fmt.Errorf("save: reading back new revision: %w", err)
	}
	rw.store.rebase(reopened)
	rw.storePos = end
	rw.needsEOL = false
	rw.logger.Info("saved new revision", "objects", len(entries), "revisions", rw.RevisionCount(), "end", end)
	return nil
}

func kindOf(obj core.Object) string {
	if obj == nil {
		return "nothing"
	}
	return obj.Type().String()
}
