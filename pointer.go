package goshape

import (
	"reflect"
)

// pointerOps adapts an owning indirection. target returns the pointee or nil,
// alloc installs a fresh pointee, replacing any current one, and release drops
// the current one.
type pointerOps struct {
	elem    *shapeRef
	target  func(p any) any
	alloc   func(p any) (any, error)
	release func(p any)
}

// NullableOps describes a nullable holder P of E, such as an optional
// wrapper or a handle type.
type NullableOps[P, E any] struct {
	Get     func(p *P) *E // nil when empty
	Alloc   func(p *P) (*E, error) // replaces any current value with a zero E
	Release func(p *P)
}

// Nullable registers P as a Pointer shape to E.
func Nullable[P, E any](reg *Registry, ops NullableOps[P, E]) error {
	if ops.Get == nil || ops.Alloc == nil || ops.Release == nil {
		return issue(CodeInvalidType, "", reflect.TypeFor[P]().String()+": nullable ops need Get, Alloc and Release")
	}
	return reg.bind(&Shape{
		typ:  reflect.TypeFor[P](),
		kind: KindPointer,
		ptr: &pointerOps{
			elem: reg.ref(reflect.TypeFor[E]()),
			target: func(p any) any {
				if e := ops.Get(p.(*P)); e != nil {
					return e
				}
				return nil
			},
			alloc: func(p any) (any, error) {
				e, err := ops.Alloc(p.(*P))
				if err != nil {
					return nil, err
				}
				if e == nil {
					return nil, ErrAllocation
				}
				return e, nil
			},
			release: func(p any) { ops.Release(p.(*P)) },
		},
	})
}

func (r *Registry) derivePointer(t reflect.Type) *Shape {
	et := t.Elem()
	return &Shape{typ: t, kind: KindPointer, derived: true, ptr: &pointerOps{
		elem: r.ref(et),
		target: func(p any) any {
			pv := deref(p)
			if pv.IsNil() {
				return nil
			}
			return pv.Interface()
		},
		alloc: func(p any) (any, error) {
			nv := reflect.New(et)
			deref(p).Set(nv)
			return nv.Interface(), nil
		},
		release: func(p any) { deref(p).SetZero() },
	}}
}

// derive builds a shape from the Go kind of t for types nobody registered.
func (r *Registry) derive(t reflect.Type) (*Shape, error) {
	switch t.Kind() {
	case reflect.Pointer:
		return r.derivePointer(t), nil
	case reflect.Slice:
		return r.deriveSlice(t), nil
	case reflect.Array:
		return r.deriveArray(t), nil
	case reflect.Map:
		switch {
		case t.Elem().Kind() == reflect.Struct && t.Elem().NumField() == 0:
			return r.deriveSet(t), nil
		case t.Key().Kind() == reflect.String:
			return r.deriveStringMap(t), nil
		default:
			return r.deriveKeyedMap(t), nil
		}
	}
	if s := reflectScalar(t); s != nil {
		return s, nil
	}
	return nil, issue(CodeNotRegistered, "", t.String()+" has no registered shape")
}
