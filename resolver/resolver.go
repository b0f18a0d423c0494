package resolver

import (
	"fmt"

	"github.com/tsawler/pdfpipe/core"
)

// DefaultMaxDepth bounds how deeply ResolveDeep nests.
const DefaultMaxDepth = 100

// ObjectReader is the object source the resolver follows references into:
// a document reader, or a pipe session that overlays its edits on one.
type ObjectReader interface {
	GetObject(objNum int) (core.Object, error)
	ResolveReference(ref core.IndirectRef) (core.Object, error)
}

// ObjectResolver follows indirect references through an ObjectReader.
// It keeps no state between calls, so one resolver can be shared.
type ObjectResolver struct {
	reader   ObjectReader
	maxDepth int
}

// Option configures the resolver
type Option func(*ObjectResolver)

// WithMaxDepth sets how deeply ResolveDeep may nest before failing.
func WithMaxDepth(depth int) Option {
	return func(r *ObjectResolver) {
		r.maxDepth = depth
	}
}

// NewResolver creates a resolver reading from reader.
func NewResolver(reader ObjectReader, opts ...Option) *ObjectResolver {
	r := &ObjectResolver{reader: reader, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve follows obj while it is a reference and returns the first
// direct value. Containers are returned as they are.
func (r *ObjectResolver) Resolve(obj core.Object) (core.Object, error) {
	var seen map[core.IndirectRef]bool
	for {
		ref, ok := obj.(core.IndirectRef)
		if !ok {
			return obj, nil
		}
		if seen[ref] {
			return nil, fmt.Errorf("reference %s resolves to itself", ref)
		}
		if seen == nil {
			seen = make(map[core.IndirectRef]bool)
		}
		seen[ref] = true

		next, err := r.reader.ResolveReference(ref)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve reference %s: %w", ref, err)
		}
		obj = next
	}
}

// ResolveDeep returns a copy of obj with every nested reference replaced
// by its value. A reference back to an object that is already being
// expanded, such as a page's /Parent, stays a reference.
func (r *ObjectResolver) ResolveDeep(obj core.Object) (core.Object, error) {
	w := &walk{r: r, open: make(map[core.IndirectRef]bool)}
	return w.expand(obj, 0)
}

// walk is the state of one ResolveDeep call.
type walk struct {
	r    *ObjectResolver
	open map[core.IndirectRef]bool // references on the current path
}

func (w *walk) expand(obj core.Object, depth int) (core.Object, error) {
	if depth > w.r.maxDepth {
		return nil, fmt.Errorf("maximum nesting depth %d exceeded", w.r.maxDepth)
	}

	switch v := obj.(type) {
	case core.IndirectRef:
		if w.open[v] {
			return v, nil
		}
		target, err := w.r.reader.ResolveReference(v)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve reference %s: %w", v, err)
		}
		w.open[v] = true
		defer delete(w.open, v)
		return w.expand(target, depth+1)

	case core.Dict:
		out := make(core.Dict, len(v))
		for key, value := range v {
			e, err := w.expand(value, depth+1)
			if err != nil {
				return nil, fmt.Errorf("/%s: %w", key, err)
			}
			out[key] = e
		}
		return out, nil

	case core.Array:
		out := make(core.Array, len(v))
		for i, elem := range v {
			e, err := w.expand(elem, depth+1)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = e
		}
		return out, nil

	case *core.Stream:
		dict, err := w.expand(v.Dict, depth+1)
		if err != nil {
			return nil, fmt.Errorf("stream dictionary: %w", err)
		}
		// The copy keeps the data, cached content and encryption state.
		cp := *v
		cp.Dict = dict.(core.Dict)
		return &cp, nil
	}
	return obj, nil
}

// ResolveDict expands every reference inside dict.
func (r *ObjectResolver) ResolveDict(dict core.Dict) (core.Dict, error) {
	resolved, err := r.ResolveDeep(dict)
	if err != nil {
		return nil, err
	}
	return resolved.(core.Dict), nil
}

// ResolveArray expands every reference inside arr.
func (r *ObjectResolver) ResolveArray(arr core.Array) (core.Array, error) {
	resolved, err := r.ResolveDeep(arr)
	if err != nil {
		return nil, err
	}
	return resolved.(core.Array), nil
}

// ResolveReference returns the value ref points at without expanding it.
func (r *ObjectResolver) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	return r.reader.ResolveReference(ref)
}

// GetObject loads an object by number.
func (r *ObjectResolver) GetObject(objNum int) (core.Object, error) {
	return r.reader.GetObject(objNum)
}

// GetObjectResolvedDeep loads object objNum and expands it.
func (r *ObjectResolver) GetObjectResolvedDeep(objNum int) (core.Object, error) {
	obj, err := r.reader.GetObject(objNum)
	if err != nil {
		return nil, err
	}
	return r.ResolveDeep(obj)
}
