// Package reader parses a PDF file as it exists on disk.
//
// [Open] validates the header, follows the cross-reference chain from the
// last startxref through every /Prev link and records one section per
// revision, newest first. Classical tables, cross-reference streams and
// hybrid files are supported. A cyclic chain fails with
// core.ErrMalformedFormat.
//
//	f, err := reader.Open(r, size)
//	if err != nil {
//	    return err
//	}
//	catalog, err := f.Fetch(0, rootRef)
//
// Revision 0 is the newest. [File.Fetch] reads an object as visible at a
// revision: free or unknown entries and generation mismatches yield
// core.Null, compressed objects are read through their object streams.
//
// The File never sees unsaved edits; the store package layers an overlay
// on top of it.
package reader
