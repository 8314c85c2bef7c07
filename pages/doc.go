// Package pages counts, finds and edits the pages of a document.
//
// A [PageTree] reads the page hierarchy through a [Source], normally a
// store.RevisionWriter, and registers itself as a change listener so its
// cached counts and page order are dropped whenever a node it has read
// changes.
//
//	tree := pages.New(rw)
//	n := tree.PageCount()
//	page, err := tree.GetPage(1) // positions start at 1
//
// # Ambiguous trees
//
// Every positional lookup walks the tree and fails with
// core.ErrAmbiguousPageTree when a node is reachable through two parents.
// [PageTree.PageCount] never fails; a missing or malformed root counts as
// an empty document.
//
// # Handles
//
// [Page] values are handles: they refer to their tree through a weak
// pointer and become invalid when the page is removed, can no longer be
// reached or the tree is closed. Inheritable attributes such as /MediaBox
// and /Rotate are resolved through the /Parent chain.
package pages
