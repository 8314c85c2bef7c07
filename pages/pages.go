package pages

import (
	"errors"
	"fmt"
	"sync/atomic"
	"weak"

	"github.com/tsawler/pdfedit/core"
	"github.com/tsawler/pdfedit/store"
)

// Source is the object source a PageTree reads and edits through.
// *store.RevisionWriter implements it.
type Source interface {
	Fetch(ref core.IndirectRef) (core.Object, error)
	ChangeObject(ref core.IndirectRef, value core.Object) (core.Object, error)
	CreateObject(kind core.ObjectType) (core.IndirectRef, core.Object, error)
	Trailer() (core.Dict, error)
	AddListener(l store.ChangeListener)
	RemoveListener(l store.ChangeListener)
}

// NodeType classifies a page tree dictionary
type NodeType int

const (
	Unknown NodeType = iota
	Root
	InterNode
	LeafNode
)

func (n NodeType) String() string {
	switch n {
	case Root:
		return "root"
	case InterNode:
		return "internode"
	case LeafNode:
		return "leaf"
	}
	return "unknown"
}

// NodeTypeOf classifies node by its shape: /Type /Pages without /Parent is
// the root, /Type /Pages with a parent or an untyped node with /Kids is an
// intermediate node and /Type /Page is a leaf.
func NodeTypeOf(node core.Object) NodeType {
	dict, ok := node.(core.Dict)
	if !ok {
		return Unknown
	}
	typ, _ := dict.GetName("Type")
	switch typ {
	case "Pages":
		if dict.Has("Parent") {
			return InterNode
		}
		return Root
	case "Page":
		return LeafNode
	case "":
		if dict.Has("Kids") {
			return InterNode
		}
	}
	return Unknown
}

func isBranch(t NodeType) bool {
	return t == Root || t == InterNode
}

// location is where a leaf sits: the Kids array of parent at index. path
// holds the branch nodes from the root down to parent.
type location struct {
	ref    core.IndirectRef
	parent core.IndirectRef
	index  int
	path   []core.IndirectRef
}

var treeIDs atomic.Uint64

// PageTree counts, finds, inserts and removes pages of a document. It
// caches leaf counts and the ordered leaf list and drops them when the
// source reports a change to a node it has read.
type PageTree struct {
	src Source
	id  uint64

	counts  map[core.IndirectRef]int
	parents map[core.IndirectRef]map[core.IndirectRef]bool
	// kidsArrays maps indirect Kids arrays to the node owning them
	kidsArrays map[core.IndirectRef]core.IndirectRef
	catalog    core.IndirectRef

	leaves    []location
	leavesErr error
	built     bool
	// clean counts the leaves listed before revisit was reached again
	clean   int
	revisit core.IndirectRef

	handles map[core.IndirectRef]*Page
	closed  bool
}

// New creates a page tree over src and registers it for change
// notifications.
func New(src Source) *PageTree {
	t := &PageTree{
		src:     src,
		id:      treeIDs.Add(1),
		handles: make(map[core.IndirectRef]*Page),
	}
	t.reset()
	src.AddListener(t)
	return t
}

// ID returns the process-unique identifier carried by page handles
func (t *PageTree) ID() uint64 {
	return t.id
}

// Reset drops every cached count and the page order. Callers use it when
// the source starts serving a different revision.
func (t *PageTree) Reset() {
	t.reset()
}

func (t *PageTree) reset() {
	t.counts = make(map[core.IndirectRef]int)
	t.parents = make(map[core.IndirectRef]map[core.IndirectRef]bool)
	t.kidsArrays = make(map[core.IndirectRef]core.IndirectRef)
	t.leaves = nil
	t.leavesErr = nil
	t.built = false
}

// ObjectChanged drops cached counts of ref and its ancestors and the leaf
// list when ref is a node, a Kids array or the catalog the tree has read,
// or when the new value is itself a page tree node.
func (t *PageTree) ObjectChanged(ref core.IndirectRef, old, value core.Object) {
	_, counted := t.counts[ref]
	_, child := t.parents[ref]
	owner, isKids := t.kidsArrays[ref]
	relevant := counted || child || isKids || ref == t.catalog ||
		NodeTypeOf(old) != Unknown || NodeTypeOf(value) != Unknown
	if !relevant {
		return
	}

	seen := make(map[core.IndirectRef]bool)
	var up func(r core.IndirectRef)
	up = func(r core.IndirectRef) {
		if seen[r] {
			return
		}
		seen[r] = true
		delete(t.counts, r)
		for p := range t.parents[r] {
			up(p)
		}
	}
	up(ref)
	if isKids {
		up(owner)
	}
	if ref == t.catalog {
		t.counts = make(map[core.IndirectRef]int)
	}
	t.leaves = nil
	t.leavesErr = nil
	t.built = false
}

// Close invalidates every handle and stops listening for changes
func (t *PageTree) Close() {
	if t.closed {
		return
	}
	t.closed = true
	for ref, p := range t.handles {
		p.valid = false
		delete(t.handles, ref)
	}
	t.src.RemoveListener(t)
}

// root returns the page tree root named by the catalog.
func (t *PageTree) root() (core.IndirectRef, core.Dict, error) {
	trailer, err := t.src.Trailer()
	if err != nil {
		return core.IndirectRef{}, nil, err
	}
	catalogRef, ok := trailer.GetRef("Root")
	if !ok {
		return core.IndirectRef{}, nil, fmt.Errorf("trailer has no /Root: %w", core.ErrElementNotFound)
	}
	t.catalog = catalogRef
	catalog, err := t.dict(catalogRef)
	if err != nil {
		return core.IndirectRef{}, nil, fmt.Errorf("catalog: %w", err)
	}
	rootRef, ok := catalog.GetRef("Pages")
	if !ok {
		return core.IndirectRef{}, nil, fmt.Errorf("catalog has no /Pages: %w", core.ErrElementNotFound)
	}
	root, err := t.dict(rootRef)
	if err != nil {
		return core.IndirectRef{}, nil, fmt.Errorf("page tree root: %w", err)
	}
	if !isBranch(NodeTypeOf(root)) {
		return core.IndirectRef{}, nil, fmt.Errorf("page tree root %s is not a pages node: %w", rootRef, core.ErrMalformedFormat)
	}
	return rootRef, root, nil
}

func (t *PageTree) dict(ref core.IndirectRef) (core.Dict, error) {
	obj, err := t.src.Fetch(ref)
	if err != nil {
		return nil, err
	}
	dict, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("object %s is %s, not a dictionary: %w", ref, obj.Type(), core.ErrElementBadType)
	}
	return dict, nil
}

// kids returns the Kids array of node, resolving an indirect array.
func (t *PageTree) kids(ref core.IndirectRef, node core.Dict) (core.Array, error) {
	switch v := node.Get("Kids").(type) {
	case core.Array:
		return v, nil
	case core.IndirectRef:
		t.kidsArrays[v] = ref
		obj, err := t.src.Fetch(v)
		if err != nil {
			return nil, err
		}
		arr, ok := obj.(core.Array)
		if !ok {
			return nil, fmt.Errorf("/Kids of %s is %s: %w", ref, obj.Type(), core.ErrMalformedFormat)
		}
		return arr, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("/Kids of %s is %s: %w", ref, v.Type(), core.ErrMalformedFormat)
	}
}

func (t *PageTree) addParent(child, parent core.IndirectRef) {
	set, ok := t.parents[child]
	if !ok {
		set = make(map[core.IndirectRef]bool)
		t.parents[child] = set
	}
	set[parent] = true
}

// KidsCount returns the number of leaves below ref. A leaf counts as one
// and unknown nodes count as zero. Results for branch nodes are cached
// until a change to the node or one of its descendants is observed.
func (t *PageTree) KidsCount(ref core.IndirectRef) (int, error) {
	return t.kidsCount(ref, make(map[core.IndirectRef]bool))
}

func (t *PageTree) kidsCount(ref core.IndirectRef, stack map[core.IndirectRef]bool) (int, error) {
	if n, ok := t.counts[ref]; ok {
		return n, nil
	}
	if stack[ref] {
		return 0, fmt.Errorf("node %s contains itself: %w", ref, core.ErrAmbiguousPageTree)
	}
	stack[ref] = true
	defer delete(stack, ref)

	obj, err := t.src.Fetch(ref)
	if err != nil {
		return 0, err
	}
	switch typ := NodeTypeOf(obj); {
	case typ == LeafNode:
		return 1, nil
	case isBranch(typ):
		kids, err := t.kids(ref, obj.(core.Dict))
		if err != nil {
			return 0, err
		}
		total := 0
		for _, kid := range kids {
			kidRef, ok := kid.(core.IndirectRef)
			if !ok {
				continue
			}
			t.addParent(kidRef, ref)
			n, err := t.kidsCount(kidRef, stack)
			if err != nil {
				return 0, err
			}
			total += n
		}
		t.counts[ref] = total
		return total, nil
	}
	return 0, nil
}

// PageCount returns the number of pages. A missing or malformed tree has
// none.
func (t *PageTree) PageCount() int {
	rootRef, _, err := t.root()
	if err != nil {
		return 0
	}
	n, err := t.KidsCount(rootRef)
	if err != nil {
		return 0
	}
	return n
}

// buildLeaves walks the whole tree depth first and lists every leaf
// occurrence in order. A node reached a second time does not stop the walk;
// the number of leaves listed before that point is kept in clean. A node
// inside its own subtree is an error kept until the next change.
func (t *PageTree) buildLeaves() ([]location, error) {
	if t.built {
		return t.leaves, t.leavesErr
	}
	t.leaves, t.leavesErr = t.walk()
	t.built = true
	if t.leavesErr != nil {
		t.leaves = nil
	}
	return t.leaves, t.leavesErr
}

func (t *PageTree) walk() ([]location, error) {
	t.clean = -1
	rootRef, root, err := t.root()
	if err != nil {
		return nil, err
	}
	visited := map[core.IndirectRef]bool{rootRef: true}
	onPath := map[core.IndirectRef]bool{}
	var leaves []location

	var descend func(ref core.IndirectRef, node core.Dict, path []core.IndirectRef) error
	descend = func(ref core.IndirectRef, node core.Dict, path []core.IndirectRef) error {
		onPath[ref] = true
		defer delete(onPath, ref)
		kids, err := t.kids(ref, node)
		if err != nil {
			return err
		}
		path = append(path[:len(path):len(path)], ref)
		for i, kid := range kids {
			kidRef, ok := kid.(core.IndirectRef)
			if !ok {
				continue
			}
			if onPath[kidRef] {
				return fmt.Errorf("node %s contains itself: %w", kidRef, core.ErrAmbiguousPageTree)
			}
			if visited[kidRef] && t.clean < 0 {
				t.clean = len(leaves)
				t.revisit = kidRef
			}
			visited[kidRef] = true
			t.addParent(kidRef, ref)

			obj, err := t.src.Fetch(kidRef)
			if err != nil {
				return err
			}
			switch typ := NodeTypeOf(obj); {
			case typ == LeafNode:
				leaves = append(leaves, location{ref: kidRef, parent: ref, index: i, path: path})
			case isBranch(typ):
				if err := descend(kidRef, obj.(core.Dict), path); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := descend(rootRef, root, nil); err != nil {
		return nil, err
	}
	if t.clean < 0 {
		t.clean = len(leaves)
	}
	return leaves, nil
}

// locate finds the leaf at pos the way a depth-first search stopping at pos
// would: it fails with core.ErrAmbiguousPageTree when a node was reached
// twice before pos.
func (t *PageTree) locate(pos int) (location, error) {
	leaves, err := t.buildLeaves()
	if err != nil {
		return location{}, err
	}
	if pos > t.clean && t.clean < len(leaves) {
		return location{}, fmt.Errorf("page %d follows node %s reached twice: %w", pos, t.revisit, core.ErrAmbiguousPageTree)
	}
	if pos < 1 || pos > len(leaves) {
		return location{}, fmt.Errorf("page %d not in [1, %d]: %w", pos, len(leaves), core.ErrPageNotFound)
	}
	return leaves[pos-1], nil
}

// SearchTreeNode returns the reference of the page at 1-based position pos.
func (t *PageTree) SearchTreeNode(pos int) (core.IndirectRef, error) {
	loc, err := t.locate(pos)
	if err != nil {
		return core.IndirectRef{}, err
	}
	return loc.ref, nil
}

// FindPageDict returns the dictionary of the page at position pos
func (t *PageTree) FindPageDict(pos int) (core.Dict, error) {
	ref, err := t.SearchTreeNode(pos)
	if err != nil {
		return nil, err
	}
	return t.dict(ref)
}

// GetPage returns the handle of the page at position pos. Repeated calls
// for the same page return the same handle.
func (t *PageTree) GetPage(pos int) (*Page, error) {
	ref, err := t.SearchTreeNode(pos)
	if err != nil {
		return nil, err
	}
	return t.handle(ref), nil
}

// Pages returns handles for all pages in order. It fails like GetPage
// when some node is reached twice.
func (t *PageTree) Pages() ([]*Page, error) {
	leaves, err := t.buildLeaves()
	if err != nil {
		return nil, err
	}
	if t.clean < len(leaves) {
		return nil, fmt.Errorf("node %s reached twice: %w", t.revisit, core.ErrAmbiguousPageTree)
	}
	out := make([]*Page, len(leaves))
	for i, loc := range leaves {
		out[i] = t.handle(loc.ref)
	}
	return out, nil
}

func (t *PageTree) handle(ref core.IndirectRef) *Page {
	if p, ok := t.handles[ref]; ok {
		return p
	}
	p := &Page{tree: weak.Make(t), treeID: t.id, ref: ref, valid: true}
	t.handles[ref] = p
	return p
}

func (t *PageTree) invalidate(ref core.IndirectRef) {
	if p, ok := t.handles[ref]; ok {
		p.valid = false
		delete(t.handles, ref)
	}
}

// PagePosition returns the 1-based position of page. It fails with
// core.ErrPageNotFound when the handle is invalid, the page is no longer
// reachable or the page itself is reached twice.
func (t *PageTree) PagePosition(page *Page) (int, error) {
	if page == nil || !page.valid || page.treeID != t.id {
		return 0, core.ErrPageNotFound
	}
	leaves, err := t.buildLeaves()
	if err != nil {
		if errors.Is(err, core.ErrAmbiguousPageTree) {
			return 0, fmt.Errorf("%w: %w", core.ErrPageNotFound, err)
		}
		return 0, err
	}
	pos := 0
	for i, loc := range leaves {
		if loc.ref != page.ref {
			continue
		}
		if pos != 0 {
			return 0, fmt.Errorf("%w: page %s reached twice: %w", core.ErrPageNotFound, page.ref, core.ErrAmbiguousPageTree)
		}
		pos = i + 1
	}
	if pos == 0 {
		t.invalidate(page.ref)
		return 0, fmt.Errorf("page %s is not in the tree: %w", page.ref, core.ErrPageNotFound)
	}
	return pos, nil
}

// InsertPage stores a copy of dict as a new page so that it becomes page
// pos, shifting later pages back. pos may be one past the last page to
// append. /Type and /Parent of the copy are set by the tree.
func (t *PageTree) InsertPage(dict core.Dict, pos int) (*Page, error) {
	leaves, err := t.buildLeaves()
	if err != nil {
		return nil, err
	}
	if pos < 1 || pos > len(leaves)+1 {
		return nil, fmt.Errorf("insert position %d not in [1, %d]: %w", pos, len(leaves)+1, core.ErrPageNotFound)
	}

	var parent core.IndirectRef
	var index int
	var path []core.IndirectRef
	switch {
	case len(leaves) == 0:
		rootRef, _, err := t.root()
		if err != nil {
			return nil, err
		}
		parent, path = rootRef, []core.IndirectRef{rootRef}
	case pos <= len(leaves):
		loc, err := t.locate(pos)
		if err != nil {
			return nil, err
		}
		parent, index, path = loc.parent, loc.index, loc.path
	default:
		loc, err := t.locate(len(leaves))
		if err != nil {
			return nil, err
		}
		parent, index, path = loc.parent, loc.index+1, loc.path
	}

	ref, _, err := t.src.CreateObject(core.ObjDict)
	if err != nil {
		return nil, err
	}
	page := core.CloneDict(dict)
	if page == nil {
		page = core.Dict{}
	}
	page["Type"] = core.Name("Page")
	page["Parent"] = parent
	if _, err := t.src.ChangeObject(ref, page); err != nil {
		return nil, err
	}

	if err := t.editKids(parent, func(kids core.Array) core.Array {
		kids = append(kids, nil)
		copy(kids[index+1:], kids[index:])
		kids[index] = ref
		return kids
	}); err != nil {
		return nil, err
	}
	if err := t.adjustCounts(path, 1); err != nil {
		return nil, err
	}
	return t.handle(ref), nil
}

// RemovePage removes the page at position pos from its parent and
// invalidates its handle. The page object itself stays in the file.
func (t *PageTree) RemovePage(pos int) error {
	loc, err := t.locate(pos)
	if err != nil {
		return err
	}
	if err := t.editKids(loc.parent, func(kids core.Array) core.Array {
		return append(kids[:loc.index], kids[loc.index+1:]...)
	}); err != nil {
		return err
	}
	if err := t.adjustCounts(loc.path, -1); err != nil {
		return err
	}
	t.invalidate(loc.ref)
	return nil
}

// editKids rewrites the Kids array of node, which may be stored inline or
// as its own object.
func (t *PageTree) editKids(node core.IndirectRef, edit func(core.Array) core.Array) error {
	dict, err := t.dict(node)
	if err != nil {
		return err
	}
	if arrRef, ok := dict.Get("Kids").(core.IndirectRef); ok {
		obj, err := t.src.Fetch(arrRef)
		if err != nil {
			return err
		}
		kids, _ := obj.(core.Array)
		_, err = t.src.ChangeObject(arrRef, edit(kids))
		return err
	}
	kids, _ := dict.GetArray("Kids")
	dict["Kids"] = edit(kids)
	_, err = t.src.ChangeObject(node, dict)
	return err
}

// adjustCounts adds delta to /Count of every node on path.
func (t *PageTree) adjustCounts(path []core.IndirectRef, delta int) error {
	for _, ref := range path {
		dict, err := t.dict(ref)
		if err != nil {
			return err
		}
		count, _ := dict.GetInt("Count")
		dict["Count"] = count + core.Int(delta)
		if _, err := t.src.ChangeObject(ref, dict); err != nil {
			return err
		}
	}
	return nil
}
