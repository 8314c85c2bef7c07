package core

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

var utf16BE = unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM)

// pdfDocHigh maps PDFDocEncoding bytes 0x80-0x9F, which differ from Latin-1.
var pdfDocHigh = [32]rune{
	'•', '†', '‡', '…', '—', '–', 'ƒ', '⁄',
	'‹', '›', '−', '‰', '„', '“', '”', '‘',
	'’', '‚', '™', 'ﬁ', 'ﬂ', 'Ł', 'Œ', 'Š',
	'Ÿ', 'Ž', 'ı', 'ł', 'œ', 'š', 'ž', '�',
}

// DecodeTextString converts a PDF text string (UTF-16BE with BOM, UTF-8 with
// BOM, or PDFDocEncoding) to UTF-8.
func DecodeTextString(s String) string {
	raw := string(s)
	switch {
	case strings.HasPrefix(raw, "\xFE\xFF"):
		out, err := utf16BE.NewDecoder().String(raw)
		if err == nil {
			return out
		}
	case strings.HasPrefix(raw, "\xEF\xBB\xBF"):
		return raw[3:]
	}

	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c >= 0x80 && c <= 0x9F:
			sb.WriteRune(pdfDocHigh[c-0x80])
		default:
			sb.WriteRune(rune(c))
		}
	}
	return sb.String()
}

// EncodeTextString converts UTF-8 text to a PDF text string. Printable ASCII
// is stored as is; anything else is encoded as UTF-16BE with a BOM.
func EncodeTextString(text string) String {
	ascii := true
	for i := 0; i < len(text); i++ {
		if text[i] >= utf8.RuneSelf {
			ascii = false
			break
		}
	}
	if ascii {
		return String(text)
	}
	out, err := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder().String(text)
	if err != nil {
		return String(text)
	}
	return String(out)
}
