package core

import (
	"fmt"

	"github.com/tsawler/pdfedit/internal/filters"
)

// Decode returns the stream data with every filter in /Filter undone.
// Image codecs that have no decoder here are reported as ErrNotImplemented.
func (s *Stream) Decode() ([]byte, error) {
	switch f := s.Dict.Get("Filter").(type) {
	case nil:
		return s.Data, nil
	case Name:
		params, _ := s.Dict.Get("DecodeParms").(Dict)
		return decodeWithFilter(s.Data, string(f), params)
	case Array:
		data := s.Data
		for i, elem := range f {
			name, ok := elem.(Name)
			if !ok {
				return nil, fmt.Errorf("filter %d is %s, not a name", i, stringOf(elem))
			}
			var params Dict
			switch p := s.Dict.Get("DecodeParms").(type) {
			case Array:
				params, _ = p.Get(i).(Dict)
			case Dict:
				params = p
			}
			var err error
			if data, err = decodeWithFilter(data, string(name), params); err != nil {
				return nil, fmt.Errorf("filter %d (%s): %w", i, name, err)
			}
		}
		return data, nil
	default:
		return nil, fmt.Errorf("invalid /Filter %s", f.Type())
	}
}

// NewFlateStream builds a FlateDecode stream around data. extra entries are
// copied into the stream dictionary.
func NewFlateStream(data []byte, extra Dict) (*Stream, error) {
	encoded, err := filters.FlateEncode(data)
	if err != nil {
		return nil, fmt.Errorf("deflate: %w", err)
	}
	dict := CloneDict(extra)
	if dict == nil {
		dict = Dict{}
	}
	dict["Filter"] = Name("FlateDecode")
	dict["Length"] = Int(len(encoded))
	return &Stream{Dict: dict, Data: encoded}, nil
}

func decodeWithFilter(data []byte, name string, params Dict) ([]byte, error) {
	switch name {
	case "FlateDecode", "Fl":
		return filters.FlateDecode(data, toParams(params))
	case "ASCIIHexDecode", "AHx":
		return filters.ASCIIHexDecode(data)
	case "ASCII85Decode", "A85":
		return filters.ASCII85Decode(data)
	}
	return nil, fmt.Errorf("filter %s: %w", name, ErrNotImplemented)
}

func toParams(dict Dict) filters.Params {
	if dict == nil {
		return nil
	}
	params := make(filters.Params, len(dict))
	for k, v := range dict {
		switch val := v.(type) {
		case Int:
			params[k] = int(val)
		case Real:
			params[k] = float64(val)
		case Bool:
			params[k] = bool(val)
		case Name:
			params[k] = string(val)
		}
	}
	return params
}
