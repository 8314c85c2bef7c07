package filters

import (
	"bytes"
	"testing"
)

// TestASCIIHexDecode tests ASCIIHex decoding
func TestASCIIHexDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []byte
		wantErr bool
	}{
		{name: "simple", input: "48656C6C6F>", want: []byte("Hello")},
		{name: "whitespace", input: "48 65\n6c 6c 6f", want: []byte("Hello")},
		{name: "odd digit", input: "7>", want: []byte{0x70}},
		{name: "invalid", input: "4G>", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ASCIIHexDecode([]byte(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

// TestASCII85Decode tests ASCII85 decoding
func TestASCII85Decode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []byte
	}{
		{name: "hello", input: "87cURDZ~>", want: []byte("Hello")},
		{name: "prefixed", input: "<~87cURDZ~>", want: []byte("Hello")},
		{name: "zero group", input: "z~>", want: []byte{0, 0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ASCII85Decode([]byte(tt.input))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
