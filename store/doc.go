// Package store keeps unsaved edits to a PDF file and saves them as
// incremental updates.
//
// [ObjectStore] overlays deep copies of changed objects on a parsed
// reader.File and hands out references for new objects, reusing free slots
// of the stored table before allocating new numbers.
//
// [RevisionWriter] adds the document-level rules: only revision 0 is
// mutable, read-only documents reject every change, and in [Paranoid] mode
// changes to unknown references or replacements of a different kind fail
// with core.ErrElementBadType. [RevisionWriter.SaveChanges] serializes the
// overlay with a classical xref section either in place or as a new
// revision.
//
//	rw, err := store.NewRevisionWriter(base, stream, store.Config{Mode: store.Paranoid})
//	ref, value, err := rw.CreateObject(core.ObjDict)
//	_, err = rw.ChangeObject(ref, value)
//	err = rw.SaveChanges(true)
package store
