package pdftest

import "github.com/tsawler/pdfedit/core"

// Ref is shorthand for a generation-zero reference
func Ref(num int) core.IndirectRef {
	return core.IndirectRef{Number: num}
}

// FlatDocument builds a single-revision file with a catalog (1), a page tree
// root (2) and n pages numbered 3..n+2, each with a /Label string.
func FlatDocument(n int) *Builder {
	b := New("1.4")
	kids := make(core.Array, n)
	for i := range kids {
		kids[i] = Ref(3 + i)
	}
	b.Object(1, 0, core.Dict{"Type": core.Name("Catalog"), "Pages": Ref(2)})
	b.Object(2, 0, core.Dict{"Type": core.Name("Pages"), "Kids": kids, "Count": core.Int(n)})
	for i := 0; i < n; i++ {
		b.Object(3+i, 0, PageDict(2, i+1))
	}
	return b.EndSection(core.Dict{"Root": Ref(1)})
}

// PageDict returns a leaf page whose /Label records its original position.
func PageDict(parent, label int) core.Dict {
	return core.Dict{
		"Type":     core.Name("Page"),
		"Parent":   Ref(parent),
		"MediaBox": core.Array{core.Int(0), core.Int(0), core.Int(612), core.Int(792)},
		"Label":    core.Int(label),
	}
}

// NestedDocument builds a two-level tree: root 2 with intermediate nodes 3
// (pages 5, 6) and 4 (pages 7, 8, 9).
func NestedDocument() *Builder {
	b := New("1.4")
	b.Object(1, 0, core.Dict{"Type": core.Name("Catalog"), "Pages": Ref(2)})
	b.Object(2, 0, core.Dict{"Type": core.Name("Pages"), "Kids": core.Array{Ref(3), Ref(4)}, "Count": core.Int(5)})
	b.Object(3, 0, core.Dict{"Type": core.Name("Pages"), "Parent": Ref(2), "Kids": core.Array{Ref(5), Ref(6)}, "Count": core.Int(2)})
	b.Object(4, 0, core.Dict{"Type": core.Name("Pages"), "Parent": Ref(2), "Kids": core.Array{Ref(7), Ref(8), Ref(9)}, "Count": core.Int(3)})
	b.Object(5, 0, PageDict(3, 1))
	b.Object(6, 0, PageDict(3, 2))
	b.Object(7, 0, PageDict(4, 3))
	b.Object(8, 0, PageDict(4, 4))
	b.Object(9, 0, PageDict(4, 5))
	return b.EndSection(core.Dict{"Root": Ref(1)})
}

// LinearizedDocument builds a file whose first object (10) is a
// linearization dictionary, followed by a one-page document.
func LinearizedDocument() *Builder {
	b := New("1.5")
	b.Object(10, 0, core.Dict{"Linearized": core.Int(1), "N": core.Int(1), "O": core.Int(3)})
	b.Object(1, 0, core.Dict{"Type": core.Name("Catalog"), "Pages": Ref(2)})
	b.Object(2, 0, core.Dict{"Type": core.Name("Pages"), "Kids": core.Array{Ref(3)}, "Count": core.Int(1)})
	b.Object(3, 0, PageDict(2, 1))
	return b.EndSection(core.Dict{"Root": Ref(1)})
}
