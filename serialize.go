package goshape

import (
	"reflect"
	"strconv"
)

// Serializer walks a value by its registered shape and drives a Printer.
// Container sizes are reported to the printer up front; the printer is not
// flushed.
type Serializer struct {
	reg *Registry
	out Printer
}

// NewSerializer binds a registry to a printer.
func NewSerializer(reg *Registry, out Printer) *Serializer {
	return &Serializer{reg: reg, out: out}
}

// Write prints the value ptr points to. Printer errors are returned as is;
// shape failures are returned as Issues carrying the member path.
func (s *Serializer) Write(ptr any) error {
	rv := reflect.ValueOf(ptr)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return issue(CodeInvalidType, "", "Write needs a non-nil pointer")
	}
	sh, err := s.reg.ShapeOf(rv.Type().Elem())
	if err != nil {
		return err
	}
	return s.write(sh, ptr)
}

// Serialize prints v to out using the shapes in reg.
func Serialize[T any](reg *Registry, out Printer, v T) error {
	sh, err := ShapeFor[T](reg)
	if err != nil {
		return err
	}
	return NewSerializer(reg, out).write(sh, &v)
}

func (s *Serializer) write(sh *Shape, v any) error {
	switch sh.kind {
	case KindValue:
		tok, err := sh.scalar.write(v)
		if err != nil {
			return err
		}
		return s.out.AddValue(tok)
	case KindMap:
		if sh.dyn != nil {
			return s.writeDynamic(sh.dyn, v)
		}
		if err := s.out.OpenMap(len(sh.fields)); err != nil {
			return err
		}
		for _, f := range sh.fields {
			fs, err := f.ref.resolve()
			if err != nil {
				return rebase(err, f.name)
			}
			if err := s.out.AddKey(f.name); err != nil {
				return err
			}
			if err := s.write(fs, f.get(v)); err != nil {
				return rebase(err, f.name)
			}
		}
		return s.out.CloseMap()
	case KindArray:
		if err := s.out.OpenArray(sh.seq.size(v)); err != nil {
			return err
		}
		err := sh.seq.each(v, func(i int, e any, es *Shape) error {
			if err := s.write(es, e); err != nil {
				return rebase(err, strconv.Itoa(i))
			}
			return nil
		})
		if err != nil {
			return err
		}
		return s.out.CloseArray()
	case KindPointer:
		target := sh.ptr.target(v)
		if target == nil {
			return s.out.AddValue(NullToken())
		}
		es, err := sh.ptr.elem.resolve()
		if err != nil {
			return err
		}
		return s.write(es, target)
	}
	return issue(CodeInvalidType, "", "unknown shape kind for "+sh.typ.String())
}

func (s *Serializer) writeDynamic(dm *dynamicMap, v any) error {
	es, err := dm.elem.resolve()
	if err != nil {
		return err
	}
	keys := dm.keys(v)
	if err := s.out.OpenMap(len(keys)); err != nil {
		return err
	}
	for _, k := range keys {
		if err := s.out.AddKey(k); err != nil {
			return err
		}
		if err := s.write(es, dm.get(v, k)); err != nil {
			return rebase(err, k)
		}
	}
	return s.out.CloseMap()
}
