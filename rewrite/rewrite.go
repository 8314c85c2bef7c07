package rewrite

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/tsawler/pdfedit/core"
	"github.com/tsawler/pdfedit/reader"
	"github.com/tsawler/pdfedit/writer"
)

// ErrNotLinearized is returned when delinearizing a file that is not
// linearized.
var ErrNotLinearized = errors.New("document is not linearized")

// DefaultPageSize is how many objects are fetched per FillObjectList call
// when Options.PageSize is not set.
const DefaultPageSize = 512

// Options configures a rewriter
type Options struct {
	// PageSize bounds how many objects are held in memory at once.
	PageSize int
	Logger   *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// rewriter holds what flattening and delinearizing share: a list of
// references written in order, read page by page from the stored file.
type rewriter struct {
	file   *reader.File
	opts   Options
	refs   []core.IndirectRef
	cursor int
	// skip is never collected or written
	skip *core.IndirectRef
	// dropLayout leaves cross-reference and object streams out of pages
	dropLayout bool
}

func newRewriter(f *reader.File, opts Options) (*rewriter, error) {
	if f.Encrypted() {
		return nil, fmt.Errorf("rewriting an encrypted document: %w", core.ErrNotImplemented)
	}
	return &rewriter{file: f, opts: opts.withDefaults()}, nil
}

// collect walks obj depth first and appends each reference the first time
// it is seen, then descends into its target.
func (r *rewriter) collect(obj core.Object, seen map[core.IndirectRef]bool) error {
	switch v := obj.(type) {
	case core.Array:
		for _, elem := range v {
			if err := r.collect(elem, seen); err != nil {
				return err
			}
		}
	case core.Dict:
		for _, key := range v.Keys() {
			if err := r.collect(v[key], seen); err != nil {
				return err
			}
		}
	case *core.Stream:
		return r.collect(v.Dict, seen)
	case core.IndirectRef:
		if seen[v] || (r.skip != nil && *r.skip == v) {
			return nil
		}
		seen[v] = true
		r.refs = append(r.refs, v)
		target, err := r.file.Fetch(0, v)
		if err != nil {
			return fmt.Errorf("fetching %s: %w", v, err)
		}
		return r.collect(target, seen)
	}
	return nil
}

// collectFrom replaces the reference list with everything reachable from
// roots, in first-visit order.
func (r *rewriter) collectFrom(roots ...core.Object) error {
	r.refs = nil
	r.cursor = 0
	r.dropLayout = false
	seen := make(map[core.IndirectRef]bool)
	for _, root := range roots {
		if err := r.collect(root, seen); err != nil {
			return err
		}
	}
	r.opts.Logger.Debug("collected reachable objects", "count", len(r.refs))
	return nil
}

// ReachableRefs returns the listed references in write order. A list taken
// from the entry table still holds the layout streams FillObjectList drops.
func (r *rewriter) ReachableRefs() []core.IndirectRef {
	return append([]core.IndirectRef(nil), r.refs...)
}

// FillObjectList returns up to max objects following the previous call,
// fetched fresh from the stored file. max <= 0 uses the page size. An
// empty result means the list is exhausted. Streams that only describe the
// old layout are passed over when the list came from the entry table.
func (r *rewriter) FillObjectList(max int) ([]writer.ObjectEntry, error) {
	if max <= 0 {
		max = r.opts.PageSize
	}
	var out []writer.ObjectEntry
	for ; r.cursor < len(r.refs) && len(out) < max; r.cursor++ {
		ref := r.refs[r.cursor]
		obj, err := r.file.Fetch(0, ref)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", ref, err)
		}
		if r.dropLayout && layoutStream(obj) {
			r.opts.Logger.Debug("dropping layout stream", "ref", ref.String())
			continue
		}
		out = append(out, writer.ObjectEntry{Ref: ref, Object: obj})
	}
	return out, nil
}

// layoutStream reports whether obj is a cross-reference or object stream
func layoutStream(obj core.Object) bool {
	s, ok := obj.(*core.Stream)
	if !ok {
		return false
	}
	typ, _ := s.Dict.GetName("Type")
	return typ == "XRef" || typ == "ObjStm"
}

// trailer returns the newest trailer without the links into the old file
func (r *rewriter) trailer() (core.Dict, error) {
	t, err := r.file.Trailer(0)
	if err != nil {
		return nil, err
	}
	for _, key := range []string{"Prev", "XRefStm", "Size"} {
		t.Delete(key)
	}
	return t, nil
}

// write emits the header, every listed object and a single xref section
// with no previous section.
func (r *rewriter) write(target writer.Stream, kind string) error {
	if err := writer.WriteHeader(r.file.Version().String(), target); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	serializer := writer.NewOldStyle(r.opts.Logger)
	r.cursor = 0
	written := 0
	for {
		objs, err := r.FillObjectList(r.opts.PageSize)
		if err != nil {
			return err
		}
		if len(objs) == 0 {
			break
		}
		if err := serializer.WriteContent(objs, target, 0); err != nil {
			return err
		}
		written += len(objs)
	}

	trailer, err := r.trailer()
	if err != nil {
		return err
	}
	end, err := serializer.WriteTrailer(trailer, writer.PrevSection{}, target, 0)
	if err != nil {
		return err
	}
	if end == 0 {
		return fmt.Errorf("no objects to write: %w", core.ErrElementNotFound)
	}
	r.opts.Logger.Info("rewrote document", "mode", kind, "objects", written, "size", end)
	return nil
}

// Flattener rewrites a document as one revision holding only the objects
// reachable from the newest trailer.
type Flattener struct {
	*rewriter
}

// NewFlattener prepares to flatten f. Encrypted documents are rejected with
// core.ErrNotImplemented.
func NewFlattener(f *reader.File, opts Options) (*Flattener, error) {
	r, err := newRewriter(f, opts)
	if err != nil {
		return nil, err
	}
	return &Flattener{rewriter: r}, nil
}

// InitReachableObjects collects every reference reachable from the trailer
func (fl *Flattener) InitReachableObjects() error {
	trailer, err := fl.file.Trailer(0)
	if err != nil {
		return err
	}
	return fl.collectFrom(trailer)
}

// Write collects the reachable objects and writes them to target
func (fl *Flattener) Write(target writer.Stream) error {
	if err := fl.InitReachableObjects(); err != nil {
		return err
	}
	return fl.write(target, "flatten")
}

// Delinearizator rewrites a linearized document without its linearization
// dictionary. By default every in-use object of the entry table is kept;
// after InitReachableObjects only objects reachable from the catalog and
// the other trailer entries are.
type Delinearizator struct {
	*rewriter
	linearized core.IndirectRef
}

// NewDelinearizator prepares to delinearize f. It fails with
// ErrNotLinearized when f has no linearization dictionary.
func NewDelinearizator(f *reader.File, opts Options) (*Delinearizator, error) {
	lin, ok := f.Linearized()
	if !ok {
		return nil, ErrNotLinearized
	}
	r, err := newRewriter(f, opts)
	if err != nil {
		return nil, err
	}
	r.skip = &lin
	d := &Delinearizator{rewriter: r, linearized: lin}
	if err := d.fromTable(); err != nil {
		return nil, err
	}
	return d, nil
}

// Linearized returns the reference of the dropped linearization dictionary
func (d *Delinearizator) Linearized() core.IndirectRef {
	return d.linearized
}

// fromTable lists every in-use number of the newest entry table except the
// linearization dictionary. Nothing is fetched here; FillObjectList drops
// the cross-reference and object streams as it reaches them.
func (d *Delinearizator) fromTable() error {
	table, err := d.file.Table(0)
	if err != nil {
		return err
	}
	nums := make([]int, 0, len(table))
	for num, e := range table {
		if e.Type != core.XRefFree && num != d.linearized.Number {
			nums = append(nums, num)
		}
	}
	sort.Ints(nums)

	d.refs = d.refs[:0]
	d.cursor = 0
	d.dropLayout = true
	for _, num := range nums {
		ref := core.IndirectRef{Number: num}
		if e := table[num]; e.Type == core.XRefInUse {
			ref.Generation = e.Generation
		}
		d.refs = append(d.refs, ref)
	}
	return nil
}

// InitReachableObjects switches to the objects reachable from the catalog
// and the remaining trailer entries, skipping the linearization
// dictionary.
func (d *Delinearizator) InitReachableObjects() error {
	trailer, err := d.file.Trailer(0)
	if err != nil {
		return err
	}
	roots := []core.Object{trailer.Get("Root")}
	for _, key := range trailer.Keys() {
		if key != "Root" {
			roots = append(roots, trailer[key])
		}
	}
	return d.collectFrom(roots...)
}

// Write writes the listed objects to target as a single revision
func (d *Delinearizator) Write(target writer.Stream) error {
	return d.write(target, "delinearize")
}
