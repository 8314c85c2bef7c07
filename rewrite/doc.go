// Package rewrite writes a whole document as one self-contained revision.
//
// [Flattener] keeps only the objects reachable from the newest trailer, so
// incremental updates and unreferenced objects disappear. [Delinearizator]
// drops the linearization dictionary of a linearized file and keeps the
// rest. Both read objects straight from the stored file, never from unsaved
// edits, and fetch them page by page to bound memory.
//
//	fl, err := rewrite.NewFlattener(f, rewrite.Options{})
//	err = fl.Write(writer.NewBufferStream(nil))
package rewrite
