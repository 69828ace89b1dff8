package goshape

import (
	"encoding/base64"
	"errors"
	"math"
	"reflect"
	"strconv"
)

// Scalar registers T as a Value shape. name identifies the scalar class in
// fingerprints; enc turns a value into a leaf token and dec does the reverse.
// Errors returned by dec are reported as invalid_type unless they already
// are Issues.
func Scalar[T any](reg *Registry, name string, enc func(T) (Token, error), dec func(Token) (T, error)) error {
	if enc == nil || dec == nil {
		return issue(CodeInvalidType, "", "scalar "+name+" needs both an encoder and a decoder")
	}
	return reg.bind(&Shape{
		typ:  reflect.TypeFor[T](),
		kind: KindValue,
		name: name,
		scalar: &scalarOps{
			write: func(v any) (Token, error) { return enc(*v.(*T)) },
			read: func(tok Token, v any) error {
				out, err := dec(tok)
				if err != nil {
					if iss, ok := err.(Issues); ok {
						return iss
					}
					return Issues{{Code: CodeInvalidType, Path: "/", Message: err.Error(), Cause: err, Offset: tok.Offset}}
				}
				*v.(*T) = out
				return nil
			},
		},
	})
}

// MustScalar is Scalar that panics on error.
func MustScalar[T any](reg *Registry, name string, enc func(T) (Token, error), dec func(Token) (T, error)) {
	if err := Scalar(reg, name, enc, dec); err != nil {
		panic(err)
	}
}

func registerBuiltins(r *Registry) {
	bindBuiltin[bool](r, "bool", boolOps[bool]())
	bindBuiltin[string](r, "string", stringOps[string]())
	bindBuiltin[int](r, "int", intOps[int](strconv.IntSize))
	bindBuiltin[int8](r, "int8", intOps[int8](8))
	bindBuiltin[int16](r, "int16", intOps[int16](16))
	bindBuiltin[int32](r, "int32", intOps[int32](32))
	bindBuiltin[int64](r, "int64", intOps[int64](64))
	bindBuiltin[uint](r, "uint", uintOps[uint](strconv.IntSize))
	bindBuiltin[uint8](r, "uint8", uintOps[uint8](8))
	bindBuiltin[uint16](r, "uint16", uintOps[uint16](16))
	bindBuiltin[uint32](r, "uint32", uintOps[uint32](32))
	bindBuiltin[uint64](r, "uint64", uintOps[uint64](64))
	bindBuiltin[float32](r, "float32", floatOps[float32](32))
	bindBuiltin[float64](r, "float64", floatOps[float64](64))
	bindBuiltin[[]byte](r, "bytes", bytesOps())
}

func bindBuiltin[T any](r *Registry, name string, ops *scalarOps) {
	r.shapes[reflect.TypeFor[T]()] = &Shape{typ: reflect.TypeFor[T](), kind: KindValue, name: name, scalar: ops}
}

func boolOps[T ~bool]() *scalarOps {
	return &scalarOps{
		write: func(v any) (Token, error) { return BoolToken(bool(*v.(*T))), nil },
		read: func(tok Token, v any) error {
			if tok.Kind != TokenBool {
				return mismatch("bool", tok)
			}
			*v.(*T) = T(tok.Bool)
			return nil
		},
	}
}

func stringOps[T ~string]() *scalarOps {
	return &scalarOps{
		write: func(v any) (Token, error) { return StringToken(string(*v.(*T))), nil },
		read: func(tok Token, v any) error {
			if tok.Kind != TokenString {
				return mismatch("string", tok)
			}
			*v.(*T) = T(tok.String)
			return nil
		},
	}
}

// bytesOps carries []byte as a standard base64 string, the way encoding/json
// does.
func bytesOps() *scalarOps {
	return &scalarOps{
		write: func(v any) (Token, error) {
			return StringToken(base64.StdEncoding.EncodeToString(*v.(*[]byte))), nil
		},
		read: func(tok Token, v any) error {
			if tok.Kind != TokenString {
				return mismatch("bytes", tok)
			}
			b, err := base64.StdEncoding.DecodeString(tok.String)
			if err != nil {
				return Issues{{Code: CodeInvalidType, Path: "/", Message: "invalid base64 payload", Cause: err, Offset: tok.Offset}}
			}
			*v.(*[]byte) = b
			return nil
		},
	}
}

func intOps[T ~int | ~int8 | ~int16 | ~int32 | ~int64](bits int) *scalarOps {
	return &scalarOps{
		write: func(v any) (Token, error) { return NumberToken(strconv.FormatInt(int64(*v.(*T)), 10)), nil },
		read: func(tok Token, v any) error {
			n, err := parseInt(tok, bits)
			if err != nil {
				return err
			}
			*v.(*T) = T(n)
			return nil
		},
	}
}

func uintOps[T ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64](bits int) *scalarOps {
	return &scalarOps{
		write: func(v any) (Token, error) { return NumberToken(strconv.FormatUint(uint64(*v.(*T)), 10)), nil },
		read: func(tok Token, v any) error {
			n, err := parseUint(tok, bits)
			if err != nil {
				return err
			}
			*v.(*T) = T(n)
			return nil
		},
	}
}

func floatOps[T ~float32 | ~float64](bits int) *scalarOps {
	return &scalarOps{
		write: func(v any) (Token, error) { return formatFloat(float64(*v.(*T)), bits) },
		read: func(tok Token, v any) error {
			f, err := parseFloat(tok, bits)
			if err != nil {
				return err
			}
			*v.(*T) = T(f)
			return nil
		},
	}
}

// reflectScalar derives a Value shape for a named type over a basic kind,
// e.g. `type Color int`.
func reflectScalar(t reflect.Type) *Shape {
	s := &Shape{typ: t, kind: KindValue, name: t.Kind().String(), derived: true}
	elem := func(v any) reflect.Value { return reflect.ValueOf(v).Elem() }
	switch t.Kind() {
	case reflect.Bool:
		s.scalar = &scalarOps{
			write: func(v any) (Token, error) { return BoolToken(elem(v).Bool()), nil },
			read: func(tok Token, v any) error {
				if tok.Kind != TokenBool {
					return mismatch("bool", tok)
				}
				elem(v).SetBool(tok.Bool)
				return nil
			},
		}
	case reflect.String:
		s.scalar = &scalarOps{
			write: func(v any) (Token, error) { return StringToken(elem(v).String()), nil },
			read: func(tok Token, v any) error {
				if tok.Kind != TokenString {
					return mismatch("string", tok)
				}
				elem(v).SetString(tok.String)
				return nil
			},
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		bits := t.Bits()
		s.scalar = &scalarOps{
			write: func(v any) (Token, error) { return NumberToken(strconv.FormatInt(elem(v).Int(), 10)), nil },
			read: func(tok Token, v any) error {
				n, err := parseInt(tok, bits)
				if err != nil {
					return err
				}
				elem(v).SetInt(n)
				return nil
			},
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		bits := t.Bits()
		s.scalar = &scalarOps{
			write: func(v any) (Token, error) { return NumberToken(strconv.FormatUint(elem(v).Uint(), 10)), nil },
			read: func(tok Token, v any) error {
				n, err := parseUint(tok, bits)
				if err != nil {
					return err
				}
				elem(v).SetUint(n)
				return nil
			},
		}
	case reflect.Float32, reflect.Float64:
		bits := t.Bits()
		s.scalar = &scalarOps{
			write: func(v any) (Token, error) { return formatFloat(elem(v).Float(), bits) },
			read: func(tok Token, v any) error {
				f, err := parseFloat(tok, bits)
				if err != nil {
					return err
				}
				elem(v).SetFloat(f)
				return nil
			},
		}
	default:
		return nil
	}
	return s
}

func mismatch(want string, tok Token) Issues {
	msg := "expected " + want + " but found " + tok.Kind.String()
	if tok.Kind == TokenBeginObject || tok.Kind == TokenBeginArray {
		msg = "expected a scalar value but found a compound start"
	}
	return Issues{{Code: CodeInvalidType, Path: "/", Message: msg, Offset: tok.Offset}}
}

func numberIssue(code, msg string, tok Token, cause error) Issues {
	return Issues{{Code: code, Path: "/", Message: msg, Cause: cause, Offset: tok.Offset}}
}

func parseInt(tok Token, bits int) (int64, error) {
	if tok.Kind != TokenNumber {
		return 0, mismatch("integer", tok)
	}
	n, err := strconv.ParseInt(tok.Number, 10, bits)
	if err == nil {
		return n, nil
	}
	if errors.Is(err, strconv.ErrRange) {
		return 0, numberIssue(CodeOverflow, tok.Number+" does not fit in int"+strconv.Itoa(bits), tok, err)
	}
	// 1e3 or 2.0 are accepted when integral
	f, ferr := strconv.ParseFloat(tok.Number, 64)
	if ferr != nil || f != math.Trunc(f) {
		return 0, numberIssue(CodeInvalidType, "expected integer but found "+tok.Number, tok, err)
	}
	lim := math.Ldexp(1, bits-1)
	if f < -lim || f >= lim {
		return 0, numberIssue(CodeOverflow, tok.Number+" does not fit in int"+strconv.Itoa(bits), tok, err)
	}
	return int64(f), nil
}

func parseUint(tok Token, bits int) (uint64, error) {
	if tok.Kind != TokenNumber {
		return 0, mismatch("unsigned integer", tok)
	}
	n, err := strconv.ParseUint(tok.Number, 10, bits)
	if err == nil {
		return n, nil
	}
	if errors.Is(err, strconv.ErrRange) || (len(tok.Number) > 0 && tok.Number[0] == '-') {
		return 0, numberIssue(CodeOverflow, tok.Number+" does not fit in uint"+strconv.Itoa(bits), tok, err)
	}
	f, ferr := strconv.ParseFloat(tok.Number, 64)
	if ferr != nil || f != math.Trunc(f) {
		return 0, numberIssue(CodeInvalidType, "expected unsigned integer but found "+tok.Number, tok, err)
	}
	if f < 0 || f >= math.Ldexp(1, bits) {
		return 0, numberIssue(CodeOverflow, tok.Number+" does not fit in uint"+strconv.Itoa(bits), tok, err)
	}
	return uint64(f), nil
}

func parseFloat(tok Token, bits int) (float64, error) {
	if tok.Kind != TokenNumber {
		return 0, mismatch("number", tok)
	}
	f, err := strconv.ParseFloat(tok.Number, bits)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, numberIssue(CodeOverflow, tok.Number+" does not fit in float"+strconv.Itoa(bits), tok, err)
		}
		return 0, numberIssue(CodeInvalidType, "expected number but found "+tok.Number, tok, err)
	}
	return f, nil
}

func formatFloat(f float64, bits int) (Token, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Token{}, issue(CodeInvalidType, "", "non-finite number "+strconv.FormatFloat(f, 'g', -1, bits))
	}
	return NumberToken(strconv.FormatFloat(f, 'g', -1, bits)), nil
}
