package goshape

import (
	"fmt"
	"reflect"
)

// Member is one entry of a struct registration: a named field or an embedded
// base whose fields are flattened into the owner.
type Member[T any] struct {
	add func(b *structBuilder)
}

type structBuilder struct {
	reg    *Registry
	owner  reflect.Type
	fields []*Field
	index  map[string]int
	errs   Issues
}

func (b *structBuilder) field(f *Field) {
	if _, dup := b.index[f.name]; dup {
		b.fail(CodeDuplicateField, f.name, fmt.Sprintf("%s declares %q more than once", b.owner, f.name))
		return
	}
	b.index[f.name] = len(b.fields)
	b.fields = append(b.fields, f)
}

func (b *structBuilder) fail(code, name, msg string) {
	path := "/"
	if name != "" {
		path = "/" + name
	}
	b.errs = append(b.errs, Issue{Code: code, Path: path, Message: msg, Offset: -1})
}

// F declares a member stored at the address returned by acc.
func F[T, V any](name string, acc func(*T) *V) Member[T] {
	return Member[T]{add: func(b *structBuilder) {
		if acc == nil || name == "" {
			b.fail(CodeInvalidType, name, fmt.Sprintf("%s: member %q needs a name and an accessor", b.owner, name))
			return
		}
		b.field(&Field{
			name: name,
			ref:  b.reg.ref(reflect.TypeFor[V]()),
			get:  func(o any) any { return acc(o.(*T)) },
		})
	}}
}

// FieldOf declares a member named after the struct field acc selects, using
// the goshape or json tag when present.
func FieldOf[T, V any](acc func(*T) *V) Member[T] {
	return Member[T]{add: func(b *structBuilder) {
		name, err := FieldNameOf(acc)
		if err != nil {
			b.fail(CodeInvalidType, "", fmt.Sprintf("%s: %v", b.owner, err))
			return
		}
		F(name, acc).add(b)
	}}
}

// Embed flattens the members of the registered Map shape B into the owner.
// B must be registered before the owner.
func Embed[T, B any](acc func(*T) *B) Member[T] {
	return Member[T]{add: func(b *structBuilder) {
		bt := reflect.TypeFor[B]()
		base, err := b.reg.ShapeOf(bt)
		if err != nil {
			b.fail(CodeNotRegistered, "", fmt.Sprintf("%s: base %s is not registered", b.owner, bt))
			return
		}
		if base.kind != KindMap || base.dyn != nil {
			b.fail(CodeInvalidType, "", fmt.Sprintf("%s: base %s is a %s shape, not a struct", b.owner, bt, base.kind))
			return
		}
		for _, bf := range base.fields {
			get := bf.get
			b.field(&Field{
				name: bf.name,
				ref:  bf.ref,
				get:  func(o any) any { return get(acc(o.(*T))) },
			})
		}
	}}
}

// Struct registers T as a Map shape with the given members in order.
// Embedded bases contribute their members at the position of the Embed.
func Struct[T any](reg *Registry, members ...Member[T]) error {
	t := reflect.TypeFor[T]()
	b := &structBuilder{reg: reg, owner: t, index: make(map[string]int, len(members))}
	for _, m := range members {
		if m.add != nil {
			m.add(b)
		}
	}
	if len(b.errs) > 0 {
		return b.errs
	}
	return reg.bind(&Shape{typ: t, kind: KindMap, fields: b.fields, index: b.index})
}

// MustStruct is Struct that panics on error.
func MustStruct[T any](reg *Registry, members ...Member[T]) {
	if err := Struct(reg, members...); err != nil {
		panic(err)
	}
}

// Extend registers T as the members of its base B followed by its own.
func Extend[T, B any](reg *Registry, base func(*T) *B, members ...Member[T]) error {
	return Struct(reg, append([]Member[T]{Embed(base)}, members...)...)
}

// MustExtend is Extend that panics on error.
func MustExtend[T, B any](reg *Registry, base func(*T) *B, members ...Member[T]) {
	if err := Extend(reg, base, members...); err != nil {
		panic(err)
	}
}
