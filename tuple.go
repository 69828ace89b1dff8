package goshape

import (
	"fmt"
	"reflect"
	"strconv"
)

// Position is one slot of a tuple registration.
type Position[T any] struct {
	typ reflect.Type
	get func(owner any) any
}

// At declares the next tuple position, stored at the address acc returns.
func At[T, V any](acc func(*T) *V) Position[T] {
	return Position[T]{typ: reflect.TypeFor[V](), get: func(o any) any { return acc(o.(*T)) }}
}

type tuplePos struct {
	ref *shapeRef
	get func(owner any) any
}

// tuple is a fixed-arity heterogeneous sequence.
type tuple struct {
	owner reflect.Type
	pos   []tuplePos
}

func (t *tuple) arity() int         { return len(t.pos) }
func (t *tuple) size(any) int       { return len(t.pos) }
func (t *tuple) begin(any)          {}
func (t *tuple) commit(any, any)    {}
func (t *tuple) elemRef() *shapeRef { return nil }

func (t *tuple) each(c any, fn func(i int, e any, es *Shape) error) error {
	for i, p := range t.pos {
		es, err := p.ref.resolve()
		if err != nil {
			return rebase(err, strconv.Itoa(i))
		}
		if err := fn(i, p.get(c), es); err != nil {
			return err
		}
	}
	return nil
}

func (t *tuple) slot(c any, i int) (any, *Shape, error) {
	if i >= len(t.pos) {
		return nil, nil, issue(CodeArity, "", fmt.Sprintf("%s has %d elements, found more", t.owner, len(t.pos)))
	}
	es, err := t.pos[i].ref.resolve()
	if err != nil {
		return nil, nil, err
	}
	return t.pos[i].get(c), es, nil
}

func (t *tuple) end(_ any, n int) error {
	if n != len(t.pos) {
		return issue(CodeArity, "", fmt.Sprintf("%s has %d elements, found %d", t.owner, len(t.pos), n))
	}
	return nil
}

// Tuple registers T as a fixed-arity Array shape whose elements are the given
// positions in order.
func Tuple[T any](reg *Registry, positions ...Position[T]) error {
	t := reflect.TypeFor[T]()
	if len(positions) == 0 {
		return issue(CodeArity, "", t.String()+": a tuple needs at least one position")
	}
	seq := &tuple{owner: t, pos: make([]tuplePos, len(positions))}
	for i, p := range positions {
		if p.get == nil {
			return issue(CodeInvalidType, "", fmt.Sprintf("%s: position %d has no accessor", t, i))
		}
		seq.pos[i] = tuplePos{ref: reg.ref(p.typ), get: p.get}
	}
	return reg.bind(&Shape{typ: t, kind: KindArray, seq: seq})
}

// MustTuple is Tuple that panics on error.
func MustTuple[T any](reg *Registry, positions ...Position[T]) {
	if err := Tuple(reg, positions...); err != nil {
		panic(err)
	}
}

// Pair is a two-element tuple.
type Pair[A, B any] struct {
	First  A
	Second B
}

// Triple is a three-element tuple.
type Triple[A, B, C any] struct {
	First  A
	Second B
	Third  C
}

// PairOf registers Pair[A, B] as a tuple.
func PairOf[A, B any](reg *Registry) error {
	return Tuple(reg,
		At(func(p *Pair[A, B]) *A { return &p.First }),
		At(func(p *Pair[A, B]) *B { return &p.Second }),
	)
}

// TripleOf registers Triple[A, B, C] as a tuple.
func TripleOf[A, B, C any](reg *Registry) error {
	return Tuple(reg,
		At(func(t *Triple[A, B, C]) *A { return &t.First }),
		At(func(t *Triple[A, B, C]) *B { return &t.Second }),
		At(func(t *Triple[A, B, C]) *C { return &t.Third }),
	)
}
