// Package protofmt carries values as a protobuf google.protobuf.Value
// message. Importing it registers the format under the name "proto".
//
// Numbers travel as doubles, so integers beyond 2^53 lose precision. Struct
// keys have no order on the wire; the parser replays them sorted.
package protofmt

import (
	"errors"
	"io"
	"sort"
	"strconv"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/reoring/goshape"
)

// Name is the registered format name.
const Name = "proto"

// Format is the protobuf goshape.Format.
type Format struct{}

func (Format) Name() string { return Name }

func (Format) NewPrinter(w io.Writer, _ goshape.PrinterConfig) goshape.Printer {
	return NewPrinter(w)
}

func (Format) NewParser(r io.Reader) goshape.Parser { return NewParser(r) }

func init() { goshape.RegisterFormat(Format{}) }

var (
	errUnbalanced = errors.New("protofmt: close does not match the open container")
	errKeyOutside = errors.New("protofmt: key outside of a struct")
	errValueKind  = errors.New("protofmt: AddValue needs a leaf token")
)

type node struct {
	st   *structpb.Struct
	list *structpb.ListValue
	key  string
}

type printer struct {
	w     io.Writer
	root  *structpb.Value
	stack []*node
}

// NewPrinter returns a goshape.Printer that marshals the value to w on Flush.
func NewPrinter(w io.Writer) goshape.Printer { return &printer{w: w} }

func (p *printer) add(v *structpb.Value) {
	n := len(p.stack)
	if n == 0 {
		p.root = v
		return
	}
	top := p.stack[n-1]
	if top.st != nil {
		top.st.Fields[top.key] = v
		return
	}
	top.list.Values = append(top.list.Values, v)
}

func (p *printer) OpenMap(int) error {
	st := &structpb.Struct{Fields: map[string]*structpb.Value{}}
	p.add(structpb.NewStructValue(st))
	p.stack = append(p.stack, &node{st: st})
	return nil
}

func (p *printer) OpenArray(int) error {
	l := &structpb.ListValue{}
	p.add(structpb.NewListValue(l))
	p.stack = append(p.stack, &node{list: l})
	return nil
}

func (p *printer) pop(isMap bool) error {
	n := len(p.stack)
	if n == 0 || (p.stack[n-1].st != nil) != isMap {
		return errUnbalanced
	}
	p.stack = p.stack[:n-1]
	return nil
}

func (p *printer) CloseMap() error   { return p.pop(true) }
func (p *printer) CloseArray() error { return p.pop(false) }

func (p *printer) AddKey(key string) error {
	n := len(p.stack)
	if n == 0 || p.stack[n-1].st == nil {
		return errKeyOutside
	}
	p.stack[n-1].key = key
	return nil
}

func (p *printer) AddValue(tok goshape.Token) error {
	switch tok.Kind {
	case goshape.TokenString:
		p.add(structpb.NewStringValue(tok.String))
	case goshape.TokenBool:
		p.add(structpb.NewBoolValue(tok.Bool))
	case goshape.TokenNull:
		p.add(structpb.NewNullValue())
	case goshape.TokenNumber:
		f, err := strconv.ParseFloat(tok.Number, 64)
		if err != nil {
			return err
		}
		p.add(structpb.NewNumberValue(f))
	default:
		return errValueKind
	}
	return nil
}

func (p *printer) Flush() error {
	if p.root == nil || len(p.stack) > 0 {
		return nil
	}
	b, err := proto.Marshal(p.root)
	if err != nil {
		return err
	}
	p.root = nil
	_, err = p.w.Write(b)
	return err
}

type parser struct {
	r      io.Reader
	toks   []goshape.Token
	pos    int
	loaded bool
}

// NewParser returns a goshape.Parser reading one marshalled Value from r.
func NewParser(r io.Reader) goshape.Parser { return &parser{r: r} }

func (p *parser) NextToken() (goshape.Token, error) {
	if !p.loaded {
		p.loaded = true
		b, err := io.ReadAll(p.r)
		if err != nil {
			return goshape.Token{}, err
		}
		if len(b) == 0 {
			return goshape.Token{}, io.EOF
		}
		var v structpb.Value
		if err := proto.Unmarshal(b, &v); err != nil {
			return goshape.Token{}, err
		}
		p.flatten(&v)
	}
	if p.pos >= len(p.toks) {
		return goshape.Token{}, io.EOF
	}
	t := p.toks[p.pos]
	p.pos++
	return t, nil
}

// Location reports the index of the next token; the message is decoded whole.
func (p *parser) Location() int64 { return int64(p.pos) }

func (p *parser) emit(t goshape.Token) { p.toks = append(p.toks, t) }

func (p *parser) flatten(v *structpb.Value) {
	switch k := v.GetKind().(type) {
	case *structpb.Value_StructValue:
		p.emit(goshape.Token{Kind: goshape.TokenBeginObject, Offset: -1})
		fields := k.StructValue.GetFields()
		keys := make([]string, 0, len(fields))
		for key := range fields {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			p.emit(goshape.Token{Kind: goshape.TokenKey, String: key, Offset: -1})
			p.flatten(fields[key])
		}
		p.emit(goshape.Token{Kind: goshape.TokenEndObject, Offset: -1})
	case *structpb.Value_ListValue:
		p.emit(goshape.Token{Kind: goshape.TokenBeginArray, Offset: -1})
		for _, e := range k.ListValue.GetValues() {
			p.flatten(e)
		}
		p.emit(goshape.Token{Kind: goshape.TokenEndArray, Offset: -1})
	case *structpb.Value_StringValue:
		p.emit(goshape.StringToken(k.StringValue))
	case *structpb.Value_BoolValue:
		p.emit(goshape.BoolToken(k.BoolValue))
	case *structpb.Value_NumberValue:
		p.emit(goshape.NumberToken(strconv.FormatFloat(k.NumberValue, 'g', -1, 64)))
	default:
		p.emit(goshape.NullToken())
	}
}
