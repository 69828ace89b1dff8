package goshape

import (
	"reflect"
	"sync/atomic"
)

// Kind is the structural category of a registered type.
type Kind int

const (
	KindValue   Kind = iota // scalar leaf
	KindMap                 // string-keyed set of named members
	KindArray               // ordered sequence, fixed arity for tuples
	KindPointer             // nullable indirection to a pointee shape
)

func (k Kind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindMap:
		return "map"
	case KindArray:
		return "array"
	case KindPointer:
		return "pointer"
	default:
		return "unknown"
	}
}

// Shape is the registered descriptor of a type. Exactly one of the adapter
// groups is populated, selected by Kind.
type Shape struct {
	typ     reflect.Type
	kind    Kind
	name    string // scalar class name; folded into fingerprints
	derived bool   // built on demand from the Go kind

	scalar *scalarOps

	fields []*Field
	index  map[string]int
	dyn    *dynamicMap

	seq sequence

	ptr *pointerOps
}

// Type returns the Go type the shape describes.
func (s *Shape) Type() reflect.Type { return s.typ }

// Kind returns the structural category.
func (s *Shape) Kind() Kind { return s.kind }

// Name returns the scalar class name of a Value shape.
func (s *Shape) Name() string { return s.name }

// Fields returns the flattened member list of a Map shape in declaration
// order. String-keyed Go maps have no fixed members and return nil.
func (s *Shape) Fields() []*Field {
	if s.kind != KindMap || s.dyn != nil {
		return nil
	}
	return append([]*Field(nil), s.fields...)
}

// Field looks up a member by external name.
func (s *Shape) Field(name string) (*Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.fields[i], true
}

// Dynamic reports whether a Map shape takes its keys from the value (a
// string-keyed Go map) rather than from registered members.
func (s *Shape) Dynamic() bool { return s.dyn != nil }

// Arity returns the fixed element count of an Array shape, or -1 when the
// length varies. Non-array shapes return 0.
func (s *Shape) Arity() int {
	if s.kind != KindArray {
		return 0
	}
	return s.seq.arity()
}

// Elem returns the element shape of a homogeneous Array, the value shape of a
// dynamic Map, or the pointee shape of a Pointer.
func (s *Shape) Elem() (*Shape, error) {
	switch {
	case s.kind == KindPointer:
		return s.ptr.elem.resolve()
	case s.dyn != nil:
		return s.dyn.elem.resolve()
	case s.kind == KindArray:
		if ref := s.seq.elemRef(); ref != nil {
			return ref.resolve()
		}
	}
	return nil, issue(CodeInvalidType, "", s.typ.String()+" has no single element shape")
}

// Field is one flattened member of a Map shape.
type Field struct {
	name string
	ref  *shapeRef
	get  func(owner any) any
}

// Name returns the external key of the member.
func (f *Field) Name() string { return f.name }

// Type returns the Go type of the member.
func (f *Field) Type() reflect.Type { return f.ref.typ }

// Shape resolves the member's shape through the owning registry.
func (f *Field) Shape() (*Shape, error) { return f.ref.resolve() }

// shapeRef defers the lookup of a member shape until first use so that
// registration order does not matter and recursive types terminate.
type shapeRef struct {
	reg    *Registry
	typ    reflect.Type
	cached atomic.Pointer[Shape]
}

func (r *shapeRef) resolve() (*Shape, error) {
	if s := r.cached.Load(); s != nil {
		return s, nil
	}
	s, err := r.reg.ShapeOf(r.typ)
	if err != nil {
		return nil, err
	}
	r.cached.Store(s)
	return s, nil
}

func resolvedRef(s *Shape) *shapeRef {
	r := &shapeRef{typ: s.typ}
	r.cached.Store(s)
	return r
}

type scalarOps struct {
	write func(v any) (Token, error)
	read  func(tok Token, v any) error
}
