// Package pdftest assembles PDF files byte by byte for tests. Offsets are
// computed as objects are appended, so fixtures can describe base files,
// incremental updates, free entries, object streams and linearized layouts
// without checked-in binaries.
package pdftest

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/tsawler/pdfedit/core"
)

type entry struct {
	typ    core.XRefEntryType
	offset int64
	gen    int
}

// Builder accumulates a PDF file. Objects added after the last section
// belong to the next section.
type Builder struct {
	buf      bytes.Buffer
	pending  map[int]entry
	sections []int64
	maxNum   int
}

// New starts a file with a %PDF- header for version and a binary comment.
func New(version string) *Builder {
	b := &Builder{pending: make(map[int]entry)}
	fmt.Fprintf(&b.buf, "%%PDF-%s\n%%\xE2\xE3\xCF\xD3\n", version)
	return b
}

// Len returns the current length, which is where the next write lands.
func (b *Builder) Len() int64 {
	return int64(b.buf.Len())
}

// Object appends "num gen obj ... endobj" and records its offset.
func (b *Builder) Object(num, gen int, obj core.Object) *Builder {
	b.pending[num] = entry{typ: core.XRefInUse, offset: b.Len(), gen: gen}
	core.WriteIndirect(&b.buf, core.IndirectRef{Number: num, Generation: gen}, obj)
	b.track(num)
	return b
}

// Free records a free entry for num whose next use will be generation gen.
func (b *Builder) Free(num, gen int) *Builder {
	b.pending[num] = entry{typ: core.XRefFree, gen: gen}
	b.track(num)
	return b
}

// Raw appends bytes verbatim
func (b *Builder) Raw(s string) *Builder {
	b.buf.WriteString(s)
	return b
}

// ObjectStream appends an object stream numbered streamNum holding objs and
// records compressed entries for them. Only EndStreamSection can describe
// compressed entries.
func (b *Builder) ObjectStream(streamNum int, objs map[int]core.Object) *Builder {
	nums := make([]int, 0, len(objs))
	for num := range objs {
		nums = append(nums, num)
	}
	sort.Ints(nums)

	var header, body bytes.Buffer
	for i, num := range nums {
		fmt.Fprintf(&header, "%d %d ", num, body.Len())
		core.Write(&body, objs[num])
		body.WriteByte(' ')
		b.pending[num] = entry{typ: core.XRefCompressed, offset: int64(streamNum), gen: i}
		b.track(num)
	}
	stream, err := core.NewFlateStream(append(header.Bytes(), body.Bytes()...), core.Dict{
		"Type":  core.Name("ObjStm"),
		"N":     core.Int(len(nums)),
		"First": core.Int(header.Len()),
	})
	if err != nil {
		panic(err)
	}
	return b.Object(streamNum, 0, stream)
}

func (b *Builder) track(num int) {
	if num > b.maxNum {
		b.maxNum = num
	}
}

func (b *Builder) prepareTrailer(trailer core.Dict) core.Dict {
	t := core.CloneDict(trailer)
	if t == nil {
		t = core.Dict{}
	}
	if !t.Has("Size") {
		t["Size"] = core.Int(b.maxNum + 1)
	}
	if !t.Has("Prev") && len(b.sections) > 0 {
		t["Prev"] = core.Int(b.sections[len(b.sections)-1])
	}
	return t
}

// EndSection writes a classical xref table for the pending entries, the
// trailer, startxref and %%EOF. /Size and /Prev are filled in unless the
// trailer already carries them. The first section always lists object 0 as
// the head of the free list.
func (b *Builder) EndSection(trailer core.Dict) *Builder {
	if len(b.sections) == 0 {
		if _, ok := b.pending[0]; !ok {
			b.pending[0] = entry{typ: core.XRefFree, gen: 65535}
		}
	}
	t := b.prepareTrailer(trailer)
	xrefOff := b.Len()

	b.buf.WriteString("xref\n")
	for _, run := range b.runs() {
		fmt.Fprintf(&b.buf, "%d %d\n", run[0], len(run))
		for _, num := range run {
			e := b.pending[num]
			kind := "n"
			if e.typ == core.XRefFree {
				kind = "f"
			}
			fmt.Fprintf(&b.buf, "%010d %05d %s \n", e.offset, e.gen, kind)
		}
	}
	b.buf.WriteString("trailer\n")
	core.Write(&b.buf, t)
	b.finish(xrefOff)
	return b
}

// EndStreamSection writes the pending entries as cross-reference stream
// object num, followed by startxref and %%EOF.
func (b *Builder) EndStreamSection(num int, trailer core.Dict) *Builder {
	if len(b.sections) == 0 {
		if _, ok := b.pending[0]; !ok {
			b.pending[0] = entry{typ: core.XRefFree, gen: 65535}
		}
	}
	xrefOff := b.Len()
	b.pending[num] = entry{typ: core.XRefInUse, offset: xrefOff}
	b.track(num)
	t := b.prepareTrailer(trailer)

	var rows bytes.Buffer
	index := core.Array{}
	for _, run := range b.runs() {
		index = append(index, core.Int(run[0]), core.Int(len(run)))
		for _, n := range run {
			e := b.pending[n]
			o := e.offset
			rows.WriteByte(byte(e.typ))
			rows.Write([]byte{byte(o >> 24), byte(o >> 16), byte(o >> 8), byte(o)})
			rows.Write([]byte{byte(e.gen >> 8), byte(e.gen)})
		}
	}
	t["Type"] = core.Name("XRef")
	t["W"] = core.Array{core.Int(1), core.Int(4), core.Int(2)}
	t["Index"] = index
	stream, err := core.NewFlateStream(rows.Bytes(), t)
	if err != nil {
		panic(err)
	}
	core.WriteIndirect(&b.buf, core.IndirectRef{Number: num}, stream)
	b.finish(xrefOff)
	return b
}

func (b *Builder) finish(xrefOff int64) {
	fmt.Fprintf(&b.buf, "\nstartxref\n%d\n%%%%EOF\n", xrefOff)
	b.sections = append(b.sections, xrefOff)
	b.pending = make(map[int]entry)
}

// runs groups pending object numbers into consecutive subsections.
func (b *Builder) runs() [][]int {
	nums := make([]int, 0, len(b.pending))
	for num := range b.pending {
		nums = append(nums, num)
	}
	sort.Ints(nums)

	var out [][]int
	for _, num := range nums {
		if n := len(out); n > 0 && out[n-1][len(out[n-1])-1] == num-1 {
			out[n-1] = append(out[n-1], num)
			continue
		}
		out = append(out, []int{num})
	}
	return out
}

// Sections returns the xref offsets written so far, oldest first.
func (b *Builder) Sections() []int64 {
	return append([]int64(nil), b.sections...)
}

// Bytes returns the assembled file
func (b *Builder) Bytes() []byte {
	return append([]byte(nil), b.buf.Bytes()...)
}

// Reader returns the file as an io.ReaderAt with its size
func (b *Builder) Reader() (*bytes.Reader, int64) {
	data := b.Bytes()
	return bytes.NewReader(data), int64(len(data))
}
