package goshape

import (
	"fmt"
	"reflect"
	"strconv"

	eng "github.com/reoring/goshape/internal/engine"
	"github.com/reoring/goshape/internal/stream"
)

// Deserializer reads tokens from a Parser into values according to their
// registered shapes.
type Deserializer struct {
	reg *Registry
	src Parser
	opt ReadOpt
}

// NewDeserializer binds a registry to a parser. Depth, size and duplicate key
// limits from opts are enforced while tokens are pulled.
func NewDeserializer(reg *Registry, src Parser, opts ...ReadOpt) *Deserializer {
	var opt ReadOpt
	if len(opts) > 0 {
		opt = opts[len(opts)-1]
	}
	eo := eng.EnforceOptions{
		OnDuplicate: toDupStrictness(opt.OnDuplicateKey),
		MaxDepth:    opt.MaxDepth,
		MaxBytes:    opt.MaxBytes,
		IssueSink: func(si eng.SimpleIssue) {
			reg.log.Warn("goshape: input issue", "code", si.Code, "path", si.Path, "message", si.Message)
		},
	}
	if eo.Enabled() {
		src = eng.WrapWithEnforcement(src, eo)
	}
	return &Deserializer{reg: reg, src: src, opt: opt}
}

func toDupStrictness(s Severity) eng.DuplicateStrictness {
	switch s {
	case Warn:
		return eng.DupWarn
	case Error:
		return eng.DupError
	default:
		return eng.DupIgnore
	}
}

// Read fills the value ptr points to with the next value of the input.
func (d *Deserializer) Read(ptr any) error {
	rv := reflect.ValueOf(ptr)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return issue(CodeInvalidType, "", "Read needs a non-nil pointer")
	}
	sh, err := d.reg.ShapeOf(rv.Type().Elem())
	if err != nil {
		return err
	}
	return d.read(sh, ptr)
}

// Deserialize reads one value of type T from src.
func Deserialize[T any](reg *Registry, src Parser, opts ...ReadOpt) (T, error) {
	var v T
	err := DeserializeInto(reg, src, &v, opts...)
	return v, err
}

// DeserializeInto reads one value from src into dst. Containers in dst are
// reused: positional ones are truncated to the elements read, keyed ones are
// cleared first.
func DeserializeInto[T any](reg *Registry, src Parser, dst *T, opts ...ReadOpt) error {
	if dst == nil {
		return issue(CodeInvalidType, "", "DeserializeInto needs a non-nil destination")
	}
	sh, err := ShapeFor[T](reg)
	if err != nil {
		return err
	}
	return NewDeserializer(reg, src, opts...).read(sh, dst)
}

func kindMismatch(want string, tok Token) Issues {
	return Issues{{Code: CodeInvalidType, Path: "/", Message: "expected " + want + " but found " + tok.Kind.String(), Offset: tok.Offset}}
}

func (d *Deserializer) next() (Token, error) {
	tok, err := d.src.NextToken()
	if err != nil {
		return Token{}, parserIssue(err, "")
	}
	return tok, nil
}

func (d *Deserializer) read(sh *Shape, v any) error {
	tok, err := d.next()
	if err != nil {
		return err
	}
	return d.readValue(sh, v, tok)
}

func (d *Deserializer) readValue(sh *Shape, v any, tok Token) error {
	switch sh.kind {
	case KindValue:
		if !tok.Kind.IsScalar() || tok.Kind == TokenNull {
			return mismatch("a "+sh.name+" value", tok)
		}
		return sh.scalar.read(tok, v)
	case KindMap:
		if tok.Kind != TokenBeginObject {
			return kindMismatch("a map", tok)
		}
		if sh.dyn != nil {
			return d.readDynamic(sh.dyn, v)
		}
		return d.readFields(sh, v)
	case KindArray:
		if tok.Kind != TokenBeginArray {
			return kindMismatch("an array", tok)
		}
		return d.readElements(sh.seq, v)
	case KindPointer:
		if tok.Kind == TokenNull {
			sh.ptr.release(v)
			return nil
		}
		es, err := sh.ptr.elem.resolve()
		if err != nil {
			return err
		}
		// a non-null value always lands in a fresh pointee
		target, err := sh.ptr.alloc(v)
		if err != nil {
			return Issues{{Code: CodeAllocation, Path: "/", Message: "cannot allocate " + es.typ.String(), Cause: err, Offset: tok.Offset}}
		}
		return d.readValue(es, target, tok)
	}
	return issue(CodeInvalidType, "", "unknown shape kind for "+sh.typ.String())
}

// nextKey returns the next member key, or ok=false at the end of the map.
func (d *Deserializer) nextKey() (key string, ok bool, err error) {
	tok, err := d.next()
	if err != nil {
		return "", false, err
	}
	switch tok.Kind {
	case TokenEndObject:
		return "", false, nil
	case TokenKey:
		return tok.String, true, nil
	default:
		return "", false, Issues{{Code: CodeParseError, Path: "/", Message: "expected a key but found " + tok.Kind.String(), Offset: tok.Offset}}
	}
}

func (d *Deserializer) readFields(sh *Shape, v any) error {
	for {
		key, ok, err := d.nextKey()
		if err != nil || !ok {
			return err
		}
		vt, err := d.next()
		if err != nil {
			return rebase(err, key)
		}
		i, known := sh.index[key]
		if !known {
			if d.opt.Unknown == UnknownStrip {
				if _, err := stream.Skip(d.src, vt); err != nil {
					return rebase(parserIssue(err, ""), key)
				}
				continue
			}
			return Issues{{Code: CodeUnknownKey, Path: eng.JoinPointer("", key), Message: fmt.Sprintf("%s has no member %q", sh.typ, key), Offset: vt.Offset}}
		}
		f := sh.fields[i]
		fs, err := f.ref.resolve()
		if err != nil {
			return rebase(err, key)
		}
		if err := d.readValue(fs, f.get(v), vt); err != nil {
			return rebase(err, key)
		}
	}
}

func (d *Deserializer) readDynamic(dm *dynamicMap, v any) error {
	es, err := dm.elem.resolve()
	if err != nil {
		return err
	}
	dm.clear(v)
	for {
		key, ok, err := d.nextKey()
		if err != nil || !ok {
			return err
		}
		e := dm.alloc()
		if err := d.read(es, e); err != nil {
			return rebase(err, key)
		}
		dm.set(v, key, e)
	}
}

func (d *Deserializer) readElements(seq sequence, v any) error {
	seq.begin(v)
	for i := 0; ; i++ {
		tok, err := d.next()
		if err != nil {
			return rebase(err, strconv.Itoa(i))
		}
		if tok.Kind == TokenEndArray {
			return seq.end(v, i)
		}
		e, es, err := seq.slot(v, i)
		if err != nil {
			return err
		}
		if err := d.readValue(es, e, tok); err != nil {
			return rebase(err, strconv.Itoa(i))
		}
		seq.commit(v, e)
	}
}
