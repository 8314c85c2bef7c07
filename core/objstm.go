package core

import (
	"bytes"
	"fmt"
	"strconv"
)

// ObjectStream is a decoded /Type /ObjStm stream holding compressed objects.
type ObjectStream struct {
	n       int
	first   int
	data    []byte
	numbers []int
	offsets []int
}

// NewObjectStream validates the stream dictionary and decodes its header.
func NewObjectStream(stream *Stream) (*ObjectStream, error) {
	if stream == nil {
		return nil, fmt.Errorf("nil object stream: %w", ErrMalformedFormat)
	}
	if typ, _ := stream.Dict.GetName("Type"); typ != "ObjStm" {
		return nil, fmt.Errorf("stream is not an object stream: %w", ErrMalformedFormat)
	}
	n, ok := stream.Dict.GetInt("N")
	if !ok || n < 0 {
		return nil, fmt.Errorf("object stream has invalid /N: %w", ErrMalformedFormat)
	}
	first, ok := stream.Dict.GetInt("First")
	if !ok || first < 0 {
		return nil, fmt.Errorf("object stream has invalid /First: %w", ErrMalformedFormat)
	}

	data, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("decoding object stream: %w", err)
	}
	if int(first) > len(data) {
		return nil, fmt.Errorf("/First %d beyond decoded length %d: %w", first, len(data), ErrMalformedFormat)
	}

	os := &ObjectStream{n: int(n), first: int(first), data: data}
	if err := os.parseHeader(); err != nil {
		return nil, err
	}
	return os, nil
}

// parseHeader reads the N pairs of "objnum offset" preceding /First.
func (os *ObjectStream) parseHeader() error {
	p := NewParser(bytes.NewReader(os.data[:os.first]))
	for i := 0; i < os.n; i++ {
		var pair [2]int
		for j := range pair {
			tok, err := p.take()
			if err != nil {
				return err
			}
			if tok.Type != TokenInteger {
				return fmt.Errorf("object stream header entry %d: %w", i, ErrMalformedFormat)
			}
			v, err := strconv.Atoi(string(tok.Value))
			if err != nil {
				return fmt.Errorf("object stream header entry %d: %w", i, ErrMalformedFormat)
			}
			pair[j] = v
		}
		os.numbers = append(os.numbers, pair[0])
		os.offsets = append(os.offsets, pair[1])
	}
	return nil
}

// N returns the number of objects stored in the stream
func (os *ObjectStream) N() int {
	return os.n
}

// ObjectNumbers returns the object numbers in header order
func (os *ObjectStream) ObjectNumbers() []int {
	return append([]int(nil), os.numbers...)
}

// ObjectAt parses the object at header index. When objNum is non-negative
// the header entry at that index must carry that object number.
func (os *ObjectStream) ObjectAt(index, objNum int) (Object, error) {
	if index < 0 || index >= len(os.offsets) {
		return nil, fmt.Errorf("index %d out of range [0, %d): %w", index, len(os.offsets), ErrMalformedFormat)
	}
	if objNum >= 0 && os.numbers[index] != objNum {
		return nil, fmt.Errorf("index %d holds object %d, not %d: %w", index, os.numbers[index], objNum, ErrMalformedFormat)
	}
	start := os.first + os.offsets[index]
	end := len(os.data)
	if index+1 < len(os.offsets) {
		end = os.first + os.offsets[index+1]
	}
	if start > len(os.data) || end < start || end > len(os.data) {
		return nil, fmt.Errorf("object %d has bad bounds: %w", os.numbers[index], ErrMalformedFormat)
	}

	obj, err := NewParser(bytes.NewReader(os.data[start:end])).ParseObject()
	if err != nil {
		return nil, fmt.Errorf("object %d in object stream: %w", os.numbers[index], err)
	}
	return obj, nil
}

// ObjectByNumber finds an object by number
func (os *ObjectStream) ObjectByNumber(objNum int) (Object, error) {
	for i, num := range os.numbers {
		if num == objNum {
			return os.ObjectAt(i, objNum)
		}
	}
	return nil, fmt.Errorf("object %d not in object stream: %w", objNum, ErrElementNotFound)
}
