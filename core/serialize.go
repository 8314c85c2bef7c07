package core

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Write serializes obj in PDF syntax. A nil Object is written as null.
// Dictionary keys are written in sorted order and a stream's /Length is
// always rewritten to match its data.
func Write(w io.Writer, obj Object) error {
	bw, ok := w.(*bufio.Writer)
	if !ok {
		bw = bufio.NewWriter(w)
	}
	writeObject(bw, obj)
	return bw.Flush()
}

// WriteIndirect serializes "num gen obj ... endobj" followed by a newline.
func WriteIndirect(w io.Writer, ref IndirectRef, obj Object) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d %d obj\n", ref.Number, ref.Generation)
	writeObject(bw, obj)
	bw.WriteString("\nendobj\n")
	return bw.Flush()
}

// Serialize returns the PDF syntax for obj
func Serialize(obj Object) string {
	var sb strings.Builder
	Write(&sb, obj)
	return sb.String()
}

func writeObject(w *bufio.Writer, obj Object) {
	switch v := obj.(type) {
	case nil, Null:
		w.WriteString("null")
	case Bool:
		w.WriteString(strconv.FormatBool(bool(v)))
	case Int:
		w.WriteString(strconv.FormatInt(int64(v), 10))
	case Real:
		w.WriteString(formatReal(float64(v)))
	case String:
		writeLiteral(w, string(v))
	case Name:
		writeName(w, string(v))
	case Array:
		w.WriteByte('[')
		for i, elem := range v {
			if i > 0 {
				w.WriteByte(' ')
			}
			writeObject(w, elem)
		}
		w.WriteByte(']')
	case Dict:
		writeDict(w, v)
	case *Stream:
		dict := CloneDict(v.Dict)
		if dict == nil {
			dict = Dict{}
		}
		dict["Length"] = Int(len(v.Data))
		writeDict(w, dict)
		w.WriteString("\nstream\n")
		w.Write(v.Data)
		w.WriteString("\nendstream")
	case IndirectRef:
		fmt.Fprintf(w, "%d %d R", v.Number, v.Generation)
	default:
		w.WriteString("null")
	}
}

func writeDict(w *bufio.Writer, d Dict) {
	w.WriteString("<<")
	for _, key := range d.Keys() {
		w.WriteByte(' ')
		writeName(w, key)
		w.WriteByte(' ')
		writeObject(w, d[key])
	}
	w.WriteString(" >>")
}

// formatReal writes a real without exponent and always with a decimal
// point so it parses back as a real.
func formatReal(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

func writeLiteral(w *bufio.Writer, s string) {
	w.WriteByte('(')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '(', ')', '\\':
			w.WriteByte('\\')
			w.WriteByte(c)
		case '\n':
			w.WriteString(`\n`)
		case '\r':
			w.WriteString(`\r`)
		case '\t':
			w.WriteString(`\t`)
		case '\b':
			w.WriteString(`\b`)
		case '\f':
			w.WriteString(`\f`)
		default:
			if c < 0x20 || c > 0x7e {
				fmt.Fprintf(w, "\\%03o", c)
			} else {
				w.WriteByte(c)
			}
		}
	}
	w.WriteByte(')')
}

func writeName(w *bufio.Writer, name string) {
	w.WriteByte('/')
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c < 0x21 || c > 0x7e || c == '#' || isDelimiter(c) {
			fmt.Fprintf(w, "#%02X", c)
		} else {
			w.WriteByte(c)
		}
	}
}
