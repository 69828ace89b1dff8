package goshape

import (
	"encoding/binary"
	"hash"
	"hash/fnv"
	"reflect"
	"strconv"
)

// Fingerprint folds the structure of t, as registered in reg, into a 64-bit
// FNV-1a hash seeded with seed. Equal structures give equal fingerprints;
// field names, order, element shapes and tuple arity all contribute. The
// length of a slice or fixed array does not.
// Recursive types fold a back-reference instead of recursing again.
func Fingerprint(reg *Registry, t reflect.Type, seed uint64) (uint64, error) {
	sh, err := reg.ShapeOf(t)
	if err != nil {
		return 0, err
	}
	h := fnv.New64a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], seed)
	h.Write(buf[:])
	fp := &folder{h: h}
	if err := fp.fold(sh); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}

// FingerprintOf is Fingerprint for T.
func FingerprintOf[T any](reg *Registry, seed uint64) (uint64, error) {
	return Fingerprint(reg, reflect.TypeFor[T](), seed)
}

type folder struct {
	h     hash.Hash64
	stack []*Shape
}

func (f *folder) str(s string) {
	f.h.Write([]byte(strconv.Itoa(len(s))))
	f.h.Write([]byte{':'})
	f.h.Write([]byte(s))
}

func (f *folder) fold(sh *Shape) error {
	for depth, open := range f.stack {
		if open == sh {
			f.str("ref")
			f.str(strconv.Itoa(len(f.stack) - depth))
			return nil
		}
	}
	f.stack = append(f.stack, sh)
	defer func() { f.stack = f.stack[:len(f.stack)-1] }()

	f.str(sh.kind.String())
	switch sh.kind {
	case KindValue:
		f.str(sh.name)
	case KindMap:
		if sh.dyn != nil {
			f.str("*")
			es, err := sh.dyn.elem.resolve()
			if err != nil {
				return err
			}
			return f.fold(es)
		}
		f.str(strconv.Itoa(len(sh.fields)))
		for _, fl := range sh.fields {
			f.str(fl.name)
			fs, err := fl.ref.resolve()
			if err != nil {
				return rebase(err, fl.name)
			}
			if err := f.fold(fs); err != nil {
				return err
			}
		}
	case KindArray:
		if t, ok := sh.seq.(*tuple); ok {
			f.str("tuple")
			f.str(strconv.Itoa(len(t.pos)))
			for i, p := range t.pos {
				ps, err := p.ref.resolve()
				if err != nil {
					return rebase(err, strconv.Itoa(i))
				}
				if err := f.fold(ps); err != nil {
					return err
				}
			}
			return nil
		}
		es, err := sh.seq.elemRef().resolve()
		if err != nil {
			return err
		}
		return f.fold(es)
	case KindPointer:
		es, err := sh.ptr.elem.resolve()
		if err != nil {
			return err
		}
		return f.fold(es)
	}
	return nil
}
