package core

import "bytes"

// Clone returns a deep copy of obj. Arrays, dictionaries and streams are
// copied recursively so that mutating the result never affects obj. A nil
// Object clones to nil.
func Clone(obj Object) Object {
	switch v := obj.(type) {
	case nil:
		return nil
	case Array:
		if v == nil {
			return Array(nil)
		}
		out := make(Array, len(v))
		for i, elem := range v {
			out[i] = Clone(elem)
		}
		return out
	case Dict:
		return cloneDict(v)
	case *Stream:
		if v == nil {
			return (*Stream)(nil)
		}
		s := &Stream{Dict: cloneDict(v.Dict)}
		if v.Data != nil {
			s.Data = append([]byte(nil), v.Data...)
		}
		return s
	default:
		// scalars and references are immutable values
		return obj
	}
}

// CloneDict is Clone specialized for dictionaries.
func CloneDict(d Dict) Dict {
	return cloneDict(d)
}

func cloneDict(d Dict) Dict {
	if d == nil {
		return nil
	}
	out := make(Dict, len(d))
	for k, val := range d {
		out[k] = Clone(val)
	}
	return out
}

// Equal reports whether a and b are structurally equal values. Indirect
// references compare by number and generation; they are not dereferenced.
func Equal(a, b Object) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Type() != b.Type() {
		return false
	}
	switch av := a.(type) {
	case Array:
		bv := b.(Array)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Dict:
		return equalDict(av, b.(Dict))
	case *Stream:
		bv := b.(*Stream)
		if av == nil || bv == nil {
			return av == bv
		}
		return bytes.Equal(av.Data, bv.Data) && equalDict(av.Dict, bv.Dict)
	default:
		return a == b
	}
}

func equalDict(a, b Dict) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !Equal(av, bv) {
			return false
		}
	}
	return true
}

// NewObject returns the empty default value for a kind: null, false, 0, 0.0,
// an empty string or name, an empty array or dictionary, or an empty stream.
// ObjIndirect has no default and yields nil.
func NewObject(kind ObjectType) Object {
	switch kind {
	case ObjNull:
		return Null{}
	case ObjBool:
		return Bool(false)
	case ObjInt:
		return Int(0)
	case ObjReal:
		return Real(0)
	case ObjString:
		return String("")
	case ObjName:
		return Name("")
	case ObjArray:
		return Array{}
	case ObjDict:
		return Dict{}
	case ObjStream:
		return &Stream{Dict: Dict{"Length": Int(0)}, Data: []byte{}}
	default:
		return nil
	}
}
