package goshape

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"strconv"
)

// sequence adapts a collection to the Array shape. Writers iterate with each;
// readers call begin, then slot and commit once per element, then end with
// the number of elements read.
type sequence interface {
	arity() int
	size(c any) int
	each(c any, fn func(i int, e any, es *Shape) error) error
	begin(c any)
	slot(c any, i int) (any, *Shape, error)
	commit(c any, e any)
	end(c any, n int) error
	elemRef() *shapeRef
}

// emplacer covers positional containers: the element at index i is built in
// place, discarding whatever was stored there or after it.
type emplacer struct {
	elem     *shapeRef
	fixed    int // element count of a fixed-size array, -1 when resizable
	length   func(c any) int
	at       func(c any, i int) any
	emplace  func(c any, i int) any
	truncate func(c any, n int)
}

func (e *emplacer) arity() int         { return e.fixed }
func (e *emplacer) size(c any) int     { return e.length(c) }
func (e *emplacer) begin(any)          {}
func (e *emplacer) commit(any, any)    {}
func (e *emplacer) elemRef() *shapeRef { return e.elem }

func (e *emplacer) each(c any, fn func(i int, e any, es *Shape) error) error {
	es, err := e.elem.resolve()
	if err != nil {
		return err
	}
	n := e.length(c)
	for i := 0; i < n; i++ {
		if err := fn(i, e.at(c, i), es); err != nil {
			return err
		}
	}
	return nil
}

func (e *emplacer) slot(c any, i int) (any, *Shape, error) {
	es, err := e.elem.resolve()
	if err != nil {
		return nil, nil, err
	}
	if e.fixed >= 0 && i >= e.fixed {
		return nil, nil, issue(CodeArity, "", fmt.Sprintf("array holds %d elements, found more", e.fixed))
	}
	return e.emplace(c, i), es, nil
}

func (e *emplacer) end(c any, n int) error {
	if e.length(c) > n {
		e.truncate(c, n)
	}
	return nil
}

// inserter covers value-keyed containers: each element is decoded into a
// fresh value and inserted. The container is cleared before reading.
type inserter struct {
	elem   *shapeRef
	length func(c any) int
	iter   func(c any, fn func(i int, e any) error) error
	alloc  func() any
	insert func(c any, e any)
	clear  func(c any)
}

func (s *inserter) arity() int         { return -1 }
func (s *inserter) size(c any) int     { return s.length(c) }
func (s *inserter) begin(c any)        { s.clear(c) }
func (s *inserter) commit(c, e any)    { s.insert(c, e) }
func (s *inserter) end(any, int) error { return nil }
func (s *inserter) elemRef() *shapeRef { return s.elem }

func (s *inserter) each(c any, fn func(i int, e any, es *Shape) error) error {
	es, err := s.elem.resolve()
	if err != nil {
		return err
	}
	return s.iter(c, func(i int, e any) error { return fn(i, e, es) })
}

func (s *inserter) slot(any, int) (any, *Shape, error) {
	es, err := s.elem.resolve()
	if err != nil {
		return nil, nil, err
	}
	return s.alloc(), es, nil
}

// EmplaceOps describes a positional container C of E. Resize must zero any
// element it adds.
type EmplaceOps[C, E any] struct {
	Len    func(c *C) int
	At     func(c *C, i int) *E
	Resize func(c *C, n int)
}

// Emplacer registers C as an Array shape read by index.
func Emplacer[C, E any](reg *Registry, ops EmplaceOps[C, E]) error {
	if ops.Len == nil || ops.At == nil || ops.Resize == nil {
		return issue(CodeInvalidType, "", reflect.TypeFor[C]().String()+": emplace ops need Len, At and Resize")
	}
	return reg.bind(&Shape{
		typ:  reflect.TypeFor[C](),
		kind: KindArray,
		seq: &emplacer{
			elem:   reg.ref(reflect.TypeFor[E]()),
			fixed:  -1,
			length: func(c any) int { return ops.Len(c.(*C)) },
			at:     func(c any, i int) any { return ops.At(c.(*C), i) },
			emplace: func(c any, i int) any {
				cc := c.(*C)
				if i < ops.Len(cc) {
					ops.Resize(cc, i)
				}
				ops.Resize(cc, i+1)
				return ops.At(cc, i)
			},
			truncate: func(c any, n int) { ops.Resize(c.(*C), n) },
		},
	})
}

// InsertOps describes a value-keyed container C of E.
type InsertOps[C, E any] struct {
	Len    func(c *C) int
	Each   func(c *C, fn func(e *E) error) error
	Insert func(c *C, e E)
	Clear  func(c *C)
}

// Inserter registers C as an Array shape filled by insertion.
func Inserter[C, E any](reg *Registry, ops InsertOps[C, E]) error {
	if ops.Len == nil || ops.Each == nil || ops.Insert == nil || ops.Clear == nil {
		return issue(CodeInvalidType, "", reflect.TypeFor[C]().String()+": insert ops need Len, Each, Insert and Clear")
	}
	return reg.bind(&Shape{
		typ:  reflect.TypeFor[C](),
		kind: KindArray,
		seq: &inserter{
			elem:   reg.ref(reflect.TypeFor[E]()),
			length: func(c any) int { return ops.Len(c.(*C)) },
			iter: func(c any, fn func(i int, e any) error) error {
				i := 0
				return ops.Each(c.(*C), func(e *E) error {
					err := fn(i, e)
					i++
					return err
				})
			},
			alloc:  func() any { return new(E) },
			insert: func(c, e any) { ops.Insert(c.(*C), *e.(*E)) },
			clear:  func(c any) { ops.Clear(c.(*C)) },
		},
	})
}

func deref(v any) reflect.Value { return reflect.ValueOf(v).Elem() }

func (r *Registry) deriveSlice(t reflect.Type) *Shape {
	et := t.Elem()
	return &Shape{typ: t, kind: KindArray, derived: true, seq: &emplacer{
		elem:   r.ref(et),
		fixed:  -1,
		length: func(c any) int { return deref(c).Len() },
		at:     func(c any, i int) any { return deref(c).Index(i).Addr().Interface() },
		emplace: func(c any, i int) any {
			sv := deref(c)
			if i > sv.Len() {
				i = sv.Len()
			}
			sv.Set(reflect.Append(sv.Slice(0, i), reflect.Zero(et)))
			return sv.Index(i).Addr().Interface()
		},
		truncate: func(c any, n int) { deref(c).SetLen(n) },
	}}
}

func (r *Registry) deriveArray(t reflect.Type) *Shape {
	return &Shape{typ: t, kind: KindArray, derived: true, seq: &emplacer{
		elem:   r.ref(t.Elem()),
		fixed:  t.Len(),
		length: func(any) int { return t.Len() },
		at:     func(c any, i int) any { return deref(c).Index(i).Addr().Interface() },
		emplace: func(c any, i int) any {
			ev := deref(c).Index(i)
			ev.SetZero()
			return ev.Addr().Interface()
		},
		// a fixed array cannot shrink; elements past the input are zeroed
		truncate: func(c any, n int) {
			av := deref(c)
			for i := n; i < av.Len(); i++ {
				av.Index(i).SetZero()
			}
		},
	}}
}

// deriveSet handles map[K]struct{}: a set serialized as an array of keys.
func (r *Registry) deriveSet(t reflect.Type) *Shape {
	kt := t.Key()
	less := keyOrder(kt)
	present := reflect.Zero(t.Elem())
	return &Shape{typ: t, kind: KindArray, derived: true, seq: &inserter{
		elem:   r.ref(kt),
		length: func(c any) int { return deref(c).Len() },
		iter: func(c any, fn func(i int, e any) error) error {
			for i, k := range sortedKeys(deref(c), less) {
				kp := reflect.New(kt)
				kp.Elem().Set(k)
				if err := fn(i, kp.Interface()); err != nil {
					return err
				}
			}
			return nil
		},
		alloc: func() any { return reflect.New(kt).Interface() },
		insert: func(c, e any) {
			m := ensureMap(deref(c))
			m.SetMapIndex(deref(e), present)
		},
		clear: func(c any) { clearMap(deref(c)) },
	}}
}

// deriveKeyedMap handles map[K]V with non-string keys: an array of
// {first, second} pairs.
func (r *Registry) deriveKeyedMap(t reflect.Type) *Shape {
	kt, vt := t.Key(), t.Elem()
	pt := reflect.StructOf([]reflect.StructField{
		{Name: "First", Type: kt, Tag: `json:"first"`},
		{Name: "Second", Type: vt, Tag: `json:"second"`},
	})
	pair := &Shape{typ: pt, kind: KindMap, derived: true, index: map[string]int{"first": 0, "second": 1}}
	pair.fields = []*Field{
		{name: "first", ref: r.ref(kt), get: func(o any) any { return deref(o).Field(0).Addr().Interface() }},
		{name: "second", ref: r.ref(vt), get: func(o any) any { return deref(o).Field(1).Addr().Interface() }},
	}
	less := keyOrder(kt)
	return &Shape{typ: t, kind: KindArray, derived: true, seq: &inserter{
		elem:   resolvedRef(pair),
		length: func(c any) int { return deref(c).Len() },
		iter: func(c any, fn func(i int, e any) error) error {
			m := deref(c)
			for i, k := range sortedKeys(m, less) {
				p := reflect.New(pt)
				p.Elem().Field(0).Set(k)
				p.Elem().Field(1).Set(m.MapIndex(k))
				if err := fn(i, p.Interface()); err != nil {
					return err
				}
			}
			return nil
		},
		alloc: func() any { return reflect.New(pt).Interface() },
		insert: func(c, e any) {
			pv := deref(e)
			ensureMap(deref(c)).SetMapIndex(pv.Field(0), pv.Field(1))
		},
		clear: func(c any) { clearMap(deref(c)) },
	}}
}

// dynamicMap backs Map shapes whose keys come from a string-keyed Go map.
type dynamicMap struct {
	elem  *shapeRef
	keys  func(m any) []string
	get   func(m any, key string) any
	alloc func() any
	set   func(m any, key string, v any)
	clear func(m any)
}

func (r *Registry) deriveStringMap(t reflect.Type) *Shape {
	kt, vt := t.Key(), t.Elem()
	return &Shape{typ: t, kind: KindMap, derived: true, dyn: &dynamicMap{
		elem: r.ref(vt),
		keys: func(m any) []string {
			mv := deref(m)
			out := make([]string, 0, mv.Len())
			for _, k := range mv.MapKeys() {
				out = append(out, k.String())
			}
			slices.Sort(out)
			return out
		},
		get: func(m any, key string) any {
			vp := reflect.New(vt)
			vp.Elem().Set(deref(m).MapIndex(reflect.ValueOf(key).Convert(kt)))
			return vp.Interface()
		},
		alloc: func() any { return reflect.New(vt).Interface() },
		set: func(m any, key string, v any) {
			ensureMap(deref(m)).SetMapIndex(reflect.ValueOf(key).Convert(kt), deref(v))
		},
		clear: func(m any) { clearMap(deref(m)) },
	}}
}

func ensureMap(m reflect.Value) reflect.Value {
	if m.IsNil() {
		m.Set(reflect.MakeMap(m.Type()))
	}
	return m
}

func clearMap(m reflect.Value) {
	if !m.IsNil() {
		m.Clear()
	}
}

// keyOrder picks a comparison for map keys once, at derivation. Keys of
// other kinds keep map iteration order.
func keyOrder(kt reflect.Type) func(a, b reflect.Value) int {
	switch kt.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return func(a, b reflect.Value) int { return cmp.Compare(a.Int(), b.Int()) }
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return func(a, b reflect.Value) int { return cmp.Compare(a.Uint(), b.Uint()) }
	case reflect.Float32, reflect.Float64:
		return func(a, b reflect.Value) int { return cmp.Compare(a.Float(), b.Float()) }
	case reflect.String:
		return func(a, b reflect.Value) int { return cmp.Compare(a.String(), b.String()) }
	case reflect.Bool:
		return func(a, b reflect.Value) int {
			return cmp.Compare(strconv.FormatBool(a.Bool()), strconv.FormatBool(b.Bool()))
		}
	default:
		return nil
	}
}

func sortedKeys(m reflect.Value, less func(a, b reflect.Value) int) []reflect.Value {
	keys := m.MapKeys()
	if less != nil {
		slices.SortFunc(keys, less)
	}
	return keys
}
