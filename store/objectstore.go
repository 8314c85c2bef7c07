package store

import (
	"fmt"
	"math"
	"sort"

	"github.com/tsawler/pdfedit/core"
	"github.com/tsawler/pdfedit/reader"
)

// RefState is what the store knows about a reference
type RefState int

const (
	// Unused references name no object and no reservation.
	Unused RefState = iota
	// Reserved references were handed out but never assigned a value.
	Reserved
	// Initialized references hold a value, on disk or in the overlay.
	Initialized
)

func (s RefState) String() string {
	switch s {
	case Unused:
		return "unused"
	case Reserved:
		return "reserved"
	case Initialized:
		return "initialized"
	}
	return "unknown"
}

// maxObjectNumber is the largest object number ReserveRef hands out.
const maxObjectNumber = math.MaxInt32

// maxGeneration is the generation at which a free slot may not be reused.
const maxGeneration = 65535

// ChangeListener is notified synchronously after ChangeObject stores a new
// value, before ChangeObject returns.
type ChangeListener interface {
	ObjectChanged(ref core.IndirectRef, old, value core.Object)
}

// ObjectStore overlays unsaved changes on a parsed file. Values go in and
// come out as deep copies, so callers never share state with the store.
type ObjectStore struct {
	base      *reader.File
	overlay   map[core.IndirectRef]core.Object
	reserved  map[core.IndirectRef]bool // false until initialized
	trailer   core.Dict
	released  map[core.IndirectRef]int
	listeners []ChangeListener
	next      int
}

// NewObjectStore creates an empty overlay over base
func NewObjectStore(base *reader.File) (*ObjectStore, error) {
	trailer, err := base.Trailer(0)
	if err != nil {
		return nil, err
	}
	s := &ObjectStore{
		overlay:  make(map[core.IndirectRef]core.Object),
		reserved: make(map[core.IndirectRef]bool),
		released: make(map[core.IndirectRef]int),
		trailer:  trailer,
		next:     1,
	}
	s.rebase(base)
	return s, nil
}

// rebase points the store at a freshly parsed file, keeping the overlay
// and pending trailer entries. /Prev and /Size are taken from the file.
func (s *ObjectStore) rebase(base *reader.File) {
	s.base = base
	if stored, err := base.Trailer(0); err == nil {
		for _, key := range []string{"Prev", "Size"} {
			if v, ok := stored[key]; ok {
				s.trailer[key] = core.Clone(v)
			} else {
				delete(s.trailer, key)
			}
		}
	}
	if n := base.ObjectCount(); n > s.next {
		s.next = n
	}
	if table, err := base.Table(0); err == nil {
		for num := range table {
			if num+1 > s.next {
				s.next = num + 1
			}
		}
	}
}

// Base returns the parsed file underneath the overlay
func (s *ObjectStore) Base() *reader.File {
	return s.base
}

// Fetch returns a deep copy of ref's value: the overlay entry when one
// exists, otherwise the newest stored value. Missing objects are core.Null.
func (s *ObjectStore) Fetch(ref core.IndirectRef) (core.Object, error) {
	if obj, ok := s.overlay[ref]; ok {
		if obj == nil {
			return core.Null{}, nil
		}
		return core.Clone(obj), nil
	}
	return s.base.Fetch(0, ref)
}

// ChangeObject stores a deep copy of value under ref and returns the
// previous overlay entry, or nil when there was none. A reserved reference
// becomes initialized. No type checks are made here.
func (s *ObjectStore) ChangeObject(ref core.IndirectRef, value core.Object) core.Object {
	prev, hadPrev := s.overlay[ref]
	old := prev
	if !hadPrev {
		old, _ = s.base.Fetch(0, ref)
	}

	s.overlay[ref] = core.Clone(value)
	if _, ok := s.reserved[ref]; ok {
		s.reserved[ref] = true
	}

	for _, l := range append([]ChangeListener(nil), s.listeners...) {
		l.ObjectChanged(ref, old, value)
	}
	return prev
}

// ReserveRef hands out a reference for a new object. The lowest free slot
// of the stored table is reused with its generation incremented; otherwise
// the next unused number is taken with generation 0.
func (s *ObjectStore) ReserveRef() (core.IndirectRef, error) {
	used := s.usedNumbers()

	if table, err := s.base.Table(0); err == nil {
		free := make([]int, 0)
		for num, e := range table {
			if num >= 1 && e.Type == core.XRefFree && e.Generation < maxGeneration && !used[num] {
				free = append(free, num)
			}
		}
		if len(free) > 0 {
			sort.Ints(free)
			ref := core.IndirectRef{Number: free[0], Generation: table[free[0]].Generation + 1}
			s.reserved[ref] = false
			return ref, nil
		}
	}

	num := s.next
	for used[num] {
		num++
	}
	if num > maxObjectNumber {
		return core.IndirectRef{}, core.ErrIndirectObjectsExhausted
	}
	s.next = num + 1
	ref := core.IndirectRef{Number: num}
	s.reserved[ref] = false
	return ref, nil
}

func (s *ObjectStore) usedNumbers() map[int]bool {
	used := make(map[int]bool, len(s.overlay)+len(s.reserved))
	for ref := range s.overlay {
		used[ref.Number] = true
	}
	for ref := range s.reserved {
		used[ref.Number] = true
	}
	return used
}

// CreateObject reserves a reference and returns the empty default value for
// kind. Fetch does not see the object until ChangeObject stores it.
func (s *ObjectStore) CreateObject(kind core.ObjectType) (core.IndirectRef, core.Object, error) {
	value := core.NewObject(kind)
	if value == nil {
		return core.IndirectRef{}, nil, fmt.Errorf("cannot create object of kind %s: %w", kind, core.ErrElementBadType)
	}
	ref, err := s.ReserveRef()
	if err != nil {
		return core.IndirectRef{}, nil, err
	}
	return ref, value, nil
}

// KnowsRef reports whether ref is unused, reserved or initialized.
func (s *ObjectStore) KnowsRef(ref core.IndirectRef) RefState {
	if initialized, ok := s.reserved[ref]; ok {
		if initialized {
			return Initialized
		}
		return Reserved
	}
	if _, ok := s.overlay[ref]; ok {
		return Initialized
	}
	return baseState(s.base, 0, ref)
}

func baseState(base *reader.File, rev int, ref core.IndirectRef) RefState {
	e, ok := base.Entry(rev, ref.Number)
	if !ok {
		return Unused
	}
	switch e.Type {
	case core.XRefInUse:
		if e.Generation == ref.Generation {
			return Initialized
		}
	case core.XRefCompressed:
		if ref.Generation == 0 {
			return Initialized
		}
	}
	return Unused
}

// TypeSafe reports whether replacing old with repl keeps the value kind.
// References are dereferenced first; an old reference to a missing object
// accepts any replacement. A nil operand is never type safe.
func (s *ObjectStore) TypeSafe(old, repl core.Object) bool {
	if old == nil || repl == nil {
		return false
	}
	if ref, ok := old.(core.IndirectRef); ok {
		target, err := s.Fetch(ref)
		if err != nil {
			return false
		}
		if _, missing := target.(core.Null); missing {
			return true
		}
		old = target
	}
	if ref, ok := repl.(core.IndirectRef); ok {
		target, err := s.Fetch(ref)
		if err != nil {
			return false
		}
		repl = target
	}
	return old.Type() == repl.Type()
}

// ChangeTrailer sets key in the pending trailer and returns its previous
// value. A nil value removes the key.
func (s *ObjectStore) ChangeTrailer(key string, value core.Object) core.Object {
	prev := s.trailer[key]
	if value == nil {
		delete(s.trailer, key)
	} else {
		s.trailer[key] = core.Clone(value)
	}
	return prev
}

// Trailer returns a deep copy of the pending trailer
func (s *ObjectStore) Trailer() core.Dict {
	return core.CloneDict(s.trailer)
}

// ReleaseObject counts one release of ref. Released objects stay on disk.
func (s *ObjectStore) ReleaseObject(ref core.IndirectRef) {
	s.released[ref]++
}

// Released returns how many times ref was released
func (s *ObjectStore) Released(ref core.IndirectRef) int {
	return s.released[ref]
}

// Changed returns the overlay references in order
func (s *ObjectStore) Changed() []core.IndirectRef {
	refs := make([]core.IndirectRef, 0, len(s.overlay))
	for ref := range s.overlay {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Less(refs[j]) })
	return refs
}

// NumObjects returns the object count a save would record in /Size: the
// stored /Size or one past the highest changed number, whichever is larger.
func (s *ObjectStore) NumObjects() int {
	n := s.base.ObjectCount()
	for ref := range s.overlay {
		if ref.Number+1 > n {
			n = ref.Number + 1
		}
	}
	return n
}

// AddListener registers l for change notifications
func (s *ObjectStore) AddListener(l ChangeListener) {
	s.listeners = append(s.listeners, l)
}

// RemoveListener unregisters l
func (s *ObjectStore) RemoveListener(l ChangeListener) {
	for i, existing := range s.listeners {
		if existing == l {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			return
		}
	}
}
