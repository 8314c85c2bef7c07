// Package resolver follows indirect references through any source that
// can fetch objects, usually a store.RevisionWriter, so the values seen are
// those of its active revision including unsaved changes.
//
//	r := resolver.New(rw)
//	info, err := r.Dict(trailer.Get("Info"))
//
// [Resolver.ResolveDeep] expands every reference inside a value and fails
// with core.ErrMalformedFormat on a reference cycle or when nesting exceeds
// the depth set by [WithMaxDepth].
package resolver
