// Package writer serializes indirect objects and classical cross-reference
// sections.
//
// [OldStyle] writes "N G obj ... endobj" blocks through a [Stream] while
// recording where each began, then [OldStyle.WriteTrailer] emits the xref
// table built from those offsets, the trailer, startxref and %%EOF. Each
// xref row is exactly 20 bytes:
//
//	0000000123 00000 n \n
//
// [FileStream] writes to an *os.File; [BufferStream] keeps everything in
// memory and can be read back through io.ReaderAt.
package writer
