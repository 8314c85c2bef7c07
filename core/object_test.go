package core

import (
	"testing"
)

// TestCloneIsDeep tests that clones share no state
func TestCloneIsDeep(t *testing.T) {
	original := Dict{
		"Kids":   Array{IndirectRef{Number: 3}},
		"Nested": Dict{"A": Int(1)},
	}
	stream := &Stream{Dict: Dict{"Length": Int(3)}, Data: []byte("abc")}

	clone := Clone(original).(Dict)
	clone["Kids"] = append(clone["Kids"].(Array), IndirectRef{Number: 4})
	clone["Nested"].(Dict)["A"] = Int(2)

	if len(original["Kids"].(Array)) != 1 {
		t.Errorf("expected original Kids untouched, got %s", original["Kids"])
	}
	if original["Nested"].(Dict)["A"] != Int(1) {
		t.Errorf("expected original nested value 1, got %s", original["Nested"])
	}

	sclone := Clone(stream).(*Stream)
	sclone.Data[0] = 'X'
	sclone.Dict["Length"] = Int(9)
	if string(stream.Data) != "abc" || stream.Dict["Length"] != Int(3) {
		t.Errorf("expected original stream untouched, got %s", stream)
	}

	if Clone(nil) != nil {
		t.Error("expected nil clone of nil")
	}
}

// TestEqual tests structural comparison
func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Object
		want bool
	}{
		{"same ints", Int(1), Int(1), true},
		{"int vs real", Int(1), Real(1), false},
		{"refs by value", IndirectRef{Number: 1}, IndirectRef{Number: 1}, true},
		{"refs differ by generation", IndirectRef{Number: 1}, IndirectRef{Number: 1, Generation: 1}, false},
		{"dicts", Dict{"A": Array{Name("x")}}, Dict{"A": Array{Name("x")}}, true},
		{"dict extra key", Dict{"A": Int(1)}, Dict{"A": Int(1), "B": Int(2)}, false},
		{"streams", &Stream{Dict: Dict{}, Data: []byte("a")}, &Stream{Dict: Dict{}, Data: []byte("a")}, true},
		{"stream data differs", &Stream{Dict: Dict{}, Data: []byte("a")}, &Stream{Dict: Dict{}, Data: []byte("b")}, false},
		{"both nil", nil, nil, true},
		{"nil vs null", nil, Null{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

// TestNewObject tests default values per kind
func TestNewObject(t *testing.T) {
	for _, kind := range []ObjectType{ObjNull, ObjBool, ObjInt, ObjReal, ObjString, ObjName, ObjArray, ObjDict, ObjStream} {
		t.Run(kind.String(), func(t *testing.T) {
			obj := NewObject(kind)
			if obj == nil || obj.Type() != kind {
				t.Errorf("expected %s default, got %v", kind, obj)
			}
		})
	}
	if NewObject(ObjIndirect) != nil {
		t.Error("expected nil default for references")
	}
}

// TestDictAccessors tests typed dictionary getters
func TestDictAccessors(t *testing.T) {
	d := Dict{"Type": Name("Page"), "Count": Int(2), "Parent": IndirectRef{Number: 1}}

	if name, ok := d.GetName("Type"); !ok || name != "Page" {
		t.Errorf("expected /Page, got %v", name)
	}
	if _, ok := d.GetName("Count"); ok {
		t.Error("expected Count not to be a name")
	}
	if ref, ok := d.GetRef("Parent"); !ok || ref.Number != 1 {
		t.Errorf("expected parent ref, got %v", ref)
	}
	if prev := d.Delete("Count"); prev != Int(2) {
		t.Errorf("expected deleted value 2, got %v", prev)
	}
	if d.Has("Count") {
		t.Error("expected Count to be deleted")
	}
	if keys := d.Keys(); len(keys) != 2 || keys[0] != "Parent" || keys[1] != "Type" {
		t.Errorf("expected sorted keys, got %v", keys)
	}
}

// TestIndirectRefLess tests reference ordering
func TestIndirectRefLess(t *testing.T) {
	a := IndirectRef{Number: 1, Generation: 5}
	b := IndirectRef{Number: 2}
	c := IndirectRef{Number: 2, Generation: 1}
	if !a.Less(b) || !b.Less(c) || c.Less(a) {
		t.Error("expected ordering by number then generation")
	}
}
