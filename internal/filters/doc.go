// Package filters decodes and encodes PDF stream filters.
//
// FlateDecode is backed by github.com/klauspost/compress/zlib and supports
// the TIFF and PNG predictors used by cross-reference streams:
//
//	decoded, err := filters.FlateDecode(data, filters.Params{"Predictor": 12, "Columns": 5})
//
// FlateEncode produces the zlib data written into object and
// cross-reference streams. ASCIIHexDecode and ASCII85Decode cover the two
// text filters.
package filters
