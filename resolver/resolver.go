package resolver

import (
	"fmt"

	"github.com/tsawler/pdfedit/core"
)

// DefaultMaxDepth bounds nesting when no WithMaxDepth option is given
const DefaultMaxDepth = 100

// Fetcher returns the value of an indirect object. store.RevisionWriter
// and the document satisfy it.
type Fetcher interface {
	Fetch(ref core.IndirectRef) (core.Object, error)
}

// Resolver follows indirect references through a Fetcher
type Resolver struct {
	src      Fetcher
	maxDepth int
}

// Option configures the resolver
type Option func(*Resolver)

// WithMaxDepth sets the maximum nesting depth
func WithMaxDepth(depth int) Option {
	return func(r *Resolver) {
		r.maxDepth = depth
	}
}

// New creates a resolver reading through src
func New(src Fetcher, opts ...Option) *Resolver {
	r := &Resolver{src: src, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve follows obj while it is a reference and returns the first direct
// value. Containers are returned as they are.
func (r *Resolver) Resolve(obj core.Object) (core.Object, error) {
	onPath := make(map[core.IndirectRef]bool)
	for depth := 0; ; depth++ {
		ref, ok := obj.(core.IndirectRef)
		if !ok {
			return obj, nil
		}
		if depth >= r.maxDepth {
			return nil, fmt.Errorf("reference chain deeper than %d: %w", r.maxDepth, core.ErrMalformedFormat)
		}
		if onPath[ref] {
			return nil, fmt.Errorf("circular reference at %s: %w", ref, core.ErrMalformedFormat)
		}
		onPath[ref] = true
		next, err := r.src.Fetch(ref)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", ref, err)
		}
		obj = next
	}
}

// ResolveDeep returns a copy of obj with every reference inside it
// replaced by its value. A reference reachable from itself fails with
// core.ErrMalformedFormat; the same object reached along two branches is
// expanded twice.
func (r *Resolver) ResolveDeep(obj core.Object) (core.Object, error) {
	return r.deep(obj, make(map[core.IndirectRef]bool), 0)
}

func (r *Resolver) deep(obj core.Object, onPath map[core.IndirectRef]bool, depth int) (core.Object, error) {
	if depth >= r.maxDepth {
		return nil, fmt.Errorf("nesting deeper than %d: %w", r.maxDepth, core.ErrMalformedFormat)
	}

	switch v := obj.(type) {
	case core.IndirectRef:
		if onPath[v] {
			return nil, fmt.Errorf("circular reference at %s: %w", v, core.ErrMalformedFormat)
		}
		target, err := r.src.Fetch(v)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", v, err)
		}
		onPath[v] = true
		defer delete(onPath, v)
		return r.deep(target, onPath, depth+1)

	case core.Dict:
		out := make(core.Dict, len(v))
		for key, value := range v {
			resolved, err := r.deep(value, onPath, depth+1)
			if err != nil {
				return nil, fmt.Errorf("/%s: %w", key, err)
			}
			out[key] = resolved
		}
		return out, nil

	case core.Array:
		out := make(core.Array, len(v))
		for i, elem := range v {
			resolved, err := r.deep(elem, onPath, depth+1)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = resolved
		}
		return out, nil

	case *core.Stream:
		dict, err := r.deep(v.Dict, onPath, depth+1)
		if err != nil {
			return nil, fmt.Errorf("stream dictionary: %w", err)
		}
		return &core.Stream{Dict: dict.(core.Dict), Data: v.Data}, nil

	default:
		return obj, nil
	}
}

// Dict resolves obj and requires a dictionary
func (r *Resolver) Dict(obj core.Object) (core.Dict, error) {
	v, err := r.Resolve(obj)
	if err != nil {
		return nil, err
	}
	d, ok := v.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("expected dictionary, got %s: %w", v.Type(), core.ErrElementBadType)
	}
	return d, nil
}

// Array resolves obj and requires an array
func (r *Resolver) Array(obj core.Object) (core.Array, error) {
	v, err := r.Resolve(obj)
	if err != nil {
		return nil, err
	}
	a, ok := v.(core.Array)
	if !ok {
		return nil, fmt.Errorf("expected array, got %s: %w", v.Type(), core.ErrElementBadType)
	}
	return a, nil
}
