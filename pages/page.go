package pages

import (
	"fmt"
	"weak"

	"github.com/tsawler/pdfedit/core"
)

// maxInheritDepth bounds the /Parent walk for inherited attributes.
const maxInheritDepth = 64

// Page is a handle to one page of a PageTree. It does not keep the tree
// alive; once the page is removed, becomes unreachable or the tree is
// closed, every method fails with core.ErrPageNotFound.
type Page struct {
	tree   weak.Pointer[PageTree]
	treeID uint64
	ref    core.IndirectRef
	valid  bool
}

// Ref returns the page object reference
func (p *Page) Ref() core.IndirectRef {
	return p.ref
}

// TreeID returns the ID of the tree that issued the handle
func (p *Page) TreeID() uint64 {
	return p.treeID
}

// Valid reports whether the handle still refers to a page in its tree
func (p *Page) Valid() bool {
	return p.valid && p.tree.Value() != nil
}

func (p *Page) owner() (*PageTree, error) {
	if !p.valid {
		return nil, fmt.Errorf("page %s: %w", p.ref, core.ErrPageNotFound)
	}
	t := p.tree.Value()
	if t == nil || t.closed {
		p.valid = false
		return nil, fmt.Errorf("page %s: document closed: %w", p.ref, core.ErrPageNotFound)
	}
	return t, nil
}

// Position returns the page's current 1-based position
func (p *Page) Position() (int, error) {
	t, err := p.owner()
	if err != nil {
		return 0, err
	}
	return t.PagePosition(p)
}

// Dict returns a copy of the page dictionary
func (p *Page) Dict() (core.Dict, error) {
	t, err := p.owner()
	if err != nil {
		return nil, err
	}
	if _, err := t.PagePosition(p); err != nil {
		return nil, err
	}
	return t.dict(p.ref)
}

// inherited looks name up on the page and then on its ancestors
func (p *Page) inherited(name string) (core.Object, error) {
	t, err := p.owner()
	if err != nil {
		return nil, err
	}
	dict, err := p.Dict()
	if err != nil {
		return nil, err
	}
	for depth := 0; depth < maxInheritDepth; depth++ {
		if v := dict.Get(name); v != nil {
			if ref, ok := v.(core.IndirectRef); ok {
				return t.src.Fetch(ref)
			}
			return v, nil
		}
		parent, ok := dict.GetRef("Parent")
		if !ok {
			return nil, nil
		}
		if dict, err = t.dict(parent); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// MediaBox returns the page media box [x1 y1 x2 y2]. The value is
// inheritable.
func (p *Page) MediaBox() ([]float64, error) {
	return p.box("MediaBox")
}

// CropBox returns the page crop box, defaulting to the media box
func (p *Page) CropBox() ([]float64, error) {
	box, err := p.box("CropBox")
	if err != nil {
		return p.MediaBox()
	}
	return box, nil
}

func (p *Page) box(name string) ([]float64, error) {
	obj, err := p.inherited(name)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("%s: %w", name, core.ErrElementNotFound)
	}
	arr, ok := obj.(core.Array)
	if !ok || len(arr) != 4 {
		return nil, fmt.Errorf("invalid %s %v: %w", name, obj, core.ErrElementBadType)
	}

	box := make([]float64, 4)
	for i, elem := range arr {
		switch v := elem.(type) {
		case core.Int:
			box[i] = float64(v)
		case core.Real:
			box[i] = float64(v)
		default:
			return nil, fmt.Errorf("invalid %s element %v: %w", name, elem, core.ErrElementBadType)
		}
	}
	return box, nil
}

// Rotate returns the inheritable page rotation, 0 when absent
func (p *Page) Rotate() (int, error) {
	obj, err := p.inherited("Rotate")
	if err != nil {
		return 0, err
	}
	if rotate, ok := obj.(core.Int); ok {
		return int(rotate), nil
	}
	return 0, nil
}
