package core

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
)

// XRefEntryType is the kind of a cross-reference entry
type XRefEntryType int

const (
	// XRefFree marks a free slot; Offset holds the next free object number.
	XRefFree XRefEntryType = iota
	// XRefInUse marks an object stored at a byte offset.
	XRefInUse
	// XRefCompressed marks an object stored inside an object stream; Offset
	// holds the stream's object number and Generation the index within it.
	XRefCompressed
)

func (t XRefEntryType) String() string {
	switch t {
	case XRefFree:
		return "free"
	case XRefInUse:
		return "in-use"
	case XRefCompressed:
		return "compressed"
	}
	return "unknown"
}

// XRefEntry represents a single cross-reference entry
type XRefEntry struct {
	Type       XRefEntryType
	Offset     int64
	Generation int
}

// XRefSection is one cross-reference section together with its trailer.
// A file with incremental updates has one section per revision.
type XRefSection struct {
	// Offset is where the section starts: the xref keyword or the
	// cross-reference stream object.
	Offset  int64
	Entries map[int]XRefEntry
	Trailer Dict
	// Stream reports whether the section was read from a cross-reference
	// stream rather than a classical table.
	Stream bool
}

// Prev returns the offset of the previous section, if any
func (s *XRefSection) Prev() (int64, bool) {
	prev, ok := s.Trailer.GetInt("Prev")
	return int64(prev), ok
}

// XRefParser reads cross-reference sections from a PDF file
type XRefParser struct {
	r    io.ReaderAt
	size int64
}

// NewXRefParser creates a parser over the first size bytes of r
func NewXRefParser(r io.ReaderAt, size int64) *XRefParser {
	return &XRefParser{r: r, size: size}
}

// startXRefWindow is how far from the end of the file startxref is searched.
const startXRefWindow = 1024

// FindStartXRef returns the offset recorded after the last startxref keyword.
func (x *XRefParser) FindStartXRef() (int64, error) {
	start := x.size - startXRefWindow
	if start < 0 {
		start = 0
	}
	buf := make([]byte, x.size-start)
	n, err := x.r.ReadAt(buf, start)
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("reading file tail: %w", err)
	}
	buf = buf[:n]

	idx := bytes.LastIndex(buf, []byte("startxref"))
	if idx < 0 {
		return 0, fmt.Errorf("startxref not found: %w", ErrMalformedFormat)
	}
	fields := bytes.Fields(buf[idx+len("startxref"):])
	if len(fields) == 0 {
		return 0, fmt.Errorf("missing startxref offset: %w", ErrMalformedFormat)
	}
	offset, err := strconv.ParseInt(string(fields[0]), 10, 64)
	if err != nil || offset < 0 || offset >= x.size {
		return 0, fmt.Errorf("invalid startxref offset %q: %w", fields[0], ErrMalformedFormat)
	}
	return offset, nil
}

// ParseSection parses the cross-reference section starting at offset. Both
// classical tables and cross-reference streams are accepted. For hybrid
// files the stream named by /XRefStm supplies entries the table lacks.
func (x *XRefParser) ParseSection(offset int64) (*XRefSection, error) {
	if offset < 0 || offset >= x.size {
		return nil, fmt.Errorf("xref offset %d outside file: %w", offset, ErrMalformedFormat)
	}

	p := NewParserAt(io.NewSectionReader(x.r, offset, x.size-offset), offset)
	tok, err := p.peek(0)
	if err != nil {
		return nil, fmt.Errorf("xref at %d: %w", offset, err)
	}

	var section *XRefSection
	if tok.Type == TokenKeyword && string(tok.Value) == "xref" {
		p.take()
		section, err = parseXRefTable(p)
	} else {
		section, err = x.parseXRefStream(offset)
	}
	if err != nil {
		return nil, fmt.Errorf("xref at %d: %w", offset, err)
	}
	section.Offset = offset

	if stmOff, ok := section.Trailer.GetInt("XRefStm"); ok && !section.Stream {
		hidden, err := x.parseXRefStream(int64(stmOff))
		if err != nil {
			return nil, fmt.Errorf("XRefStm at %d: %w", stmOff, err)
		}
		for num, entry := range hidden.Entries {
			if _, exists := section.Entries[num]; !exists {
				section.Entries[num] = entry
			}
		}
	}
	return section, nil
}

// parseXRefTable reads the subsections of a classical table and its trailer.
// The xref keyword has already been consumed.
func parseXRefTable(p *Parser) (*XRefSection, error) {
	section := &XRefSection{Entries: make(map[int]XRefEntry)}

	for {
		tok, err := p.take()
		if err != nil {
			return nil, err
		}
		if tok.Type == TokenKeyword && string(tok.Value) == "trailer" {
			break
		}
		if tok.Type != TokenInteger {
			return nil, fmt.Errorf("expected subsection header at offset %d: %w", tok.Pos, ErrMalformedFormat)
		}
		countTok, err := p.take()
		if err != nil {
			return nil, err
		}
		first, err1 := strconv.Atoi(string(tok.Value))
		count, err2 := strconv.Atoi(string(countTok.Value))
		if err1 != nil || err2 != nil || first < 0 || count < 0 {
			return nil, fmt.Errorf("invalid subsection header at offset %d: %w", tok.Pos, ErrMalformedFormat)
		}

		for i := 0; i < count; i++ {
			entry, err := parseTableRow(p)
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", first+i, err)
			}
			section.Entries[first+i] = entry
		}
	}

	obj, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("trailer: %w", err)
	}
	trailer, ok := obj.(Dict)
	if !ok {
		return nil, fmt.Errorf("trailer is %s: %w", obj.Type(), ErrMalformedFormat)
	}
	section.Trailer = trailer
	return section, nil
}

// parseTableRow reads "offset generation n|f" from a classical table.
func parseTableRow(p *Parser) (XRefEntry, error) {
	var fields [3]*Token
	for i := range fields {
		tok, err := p.take()
		if err != nil {
			return XRefEntry{}, err
		}
		fields[i] = tok
	}
	offset, err1 := strconv.ParseInt(string(fields[0].Value), 10, 64)
	gen, err2 := strconv.Atoi(string(fields[1].Value))
	if err1 != nil || err2 != nil {
		return XRefEntry{}, fmt.Errorf("invalid row at offset %d: %w", fields[0].Pos, ErrMalformedFormat)
	}

	switch string(fields[2].Value) {
	case "n":
		return XRefEntry{Type: XRefInUse, Offset: offset, Generation: gen}, nil
	case "f":
		return XRefEntry{Type: XRefFree, Offset: offset, Generation: gen}, nil
	}
	return XRefEntry{}, fmt.Errorf("invalid row type %q at offset %d: %w", fields[2].Value, fields[2].Pos, ErrMalformedFormat)
}

// trailerOnlyKeys are cross-reference stream keys that describe the stream
// itself rather than the document.
var trailerOnlyKeys = []string{"Type", "W", "Index", "Length", "Filter", "DecodeParms"}

func (x *XRefParser) parseXRefStream(offset int64) (*XRefSection, error) {
	if offset < 0 || offset >= x.size {
		return nil, fmt.Errorf("xref stream offset %d outside file: %w", offset, ErrMalformedFormat)
	}
	p := NewParserAt(io.NewSectionReader(x.r, offset, x.size-offset), offset)
	iobj, err := p.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrMalformedFormat)
	}
	stream, ok := iobj.Object.(*Stream)
	if !ok {
		return nil, fmt.Errorf("object %s is not a stream: %w", iobj.Ref, ErrMalformedFormat)
	}
	if typ, _ := stream.Dict.GetName("Type"); typ != "XRef" {
		return nil, fmt.Errorf("stream %s is not an XRef stream: %w", iobj.Ref, ErrMalformedFormat)
	}

	data, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("decoding xref stream: %w", err)
	}
	entries, err := decodeXRefStreamEntries(stream.Dict, data)
	if err != nil {
		return nil, err
	}

	trailer := CloneDict(stream.Dict)
	for _, key := range trailerOnlyKeys {
		trailer.Delete(key)
	}
	return &XRefSection{Entries: entries, Trailer: trailer, Stream: true}, nil
}

func decodeXRefStreamEntries(dict Dict, data []byte) (map[int]XRefEntry, error) {
	wArr, ok := dict.GetArray("W")
	if !ok || len(wArr) != 3 {
		return nil, fmt.Errorf("xref stream /W must have three widths: %w", ErrMalformedFormat)
	}
	var w [3]int
	rowLen := 0
	for i, v := range wArr {
		n, ok := v.(Int)
		if !ok || n < 0 || n > 8 {
			return nil, fmt.Errorf("invalid /W entry %s: %w", stringOf(v), ErrMalformedFormat)
		}
		w[i] = int(n)
		rowLen += int(n)
	}
	if rowLen == 0 {
		return nil, fmt.Errorf("xref stream rows are empty: %w", ErrMalformedFormat)
	}

	size, _ := dict.GetInt("Size")
	index := Array{Int(0), size}
	if arr, ok := dict.GetArray("Index"); ok {
		index = arr
	}
	if len(index)%2 != 0 {
		return nil, fmt.Errorf("odd /Index length: %w", ErrMalformedFormat)
	}

	entries := make(map[int]XRefEntry)
	pos := 0
	for i := 0; i < len(index); i += 2 {
		first, ok1 := index[i].(Int)
		count, ok2 := index[i+1].(Int)
		if !ok1 || !ok2 || first < 0 || count < 0 {
			return nil, fmt.Errorf("invalid /Index pair: %w", ErrMalformedFormat)
		}
		for j := 0; j < int(count); j++ {
			if pos+rowLen > len(data) {
				return nil, fmt.Errorf("xref stream truncated at entry %d: %w", int(first)+j, ErrMalformedFormat)
			}
			row := data[pos : pos+rowLen]
			pos += rowLen

			typ := int64(1)
			if w[0] > 0 {
				typ = readField(row[:w[0]])
			}
			f2 := readField(row[w[0] : w[0]+w[1]])
			f3 := readField(row[w[0]+w[1]:])

			switch typ {
			case 0:
				entries[int(first)+j] = XRefEntry{Type: XRefFree, Offset: f2, Generation: int(f3)}
			case 1:
				entries[int(first)+j] = XRefEntry{Type: XRefInUse, Offset: f2, Generation: int(f3)}
			case 2:
				entries[int(first)+j] = XRefEntry{Type: XRefCompressed, Offset: f2, Generation: int(f3)}
			}
			// unknown types are references to the null object
		}
	}
	return entries, nil
}

// readField decodes a big-endian unsigned field
func readField(b []byte) int64 {
	var v int64
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return v
}
