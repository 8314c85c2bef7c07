package core

import "errors"

// Document structure errors
var (
	// ErrMalformedFormat indicates unparseable input or a broken revision chain
	// (for example a cyclic /Prev link).
	ErrMalformedFormat = errors.New("malformed PDF format")

	// ErrElementNotFound indicates a requested element does not exist.
	ErrElementNotFound = errors.New("element not found")

	// ErrElementBadType indicates a value of the wrong kind was supplied.
	ErrElementBadType = errors.New("element has bad type")
)

// Page tree errors
var (
	// ErrPageNotFound indicates a page position or page handle cannot be
	// resolved in the current page tree.
	ErrPageNotFound = errors.New("page not found")

	// ErrAmbiguousPageTree indicates one node is reachable through more than
	// one parent path.
	ErrAmbiguousPageTree = errors.New("ambiguous page tree")
)

// Revision and mutation errors
var (
	// ErrReadOnlyDocument indicates a mutation on a read-only document or on a
	// revision other than the newest one.
	ErrReadOnlyDocument = errors.New("document is read-only")

	// ErrNotImplemented indicates an operation unsupported for this document,
	// such as changing revisions of a linearized file.
	ErrNotImplemented = errors.New("not implemented")

	// ErrOutOfRange indicates an invalid revision index.
	ErrOutOfRange = errors.New("out of range")

	// ErrIndirectObjectsExhausted indicates no object number is left to reserve.
	ErrIndirectObjectsExhausted = errors.New("indirect object numbers exhausted")
)
