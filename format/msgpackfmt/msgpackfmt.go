// Package msgpackfmt implements the MessagePack format with
// vmihailenco/msgpack/v5. Importing it registers the format under the name
// "msgpack".
package msgpackfmt

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"

	"github.com/reoring/goshape"
)

// Name is the registered format name.
const Name = "msgpack"

// Format is the MessagePack goshape.Format.
type Format struct{}

func (Format) Name() string { return Name }

func (Format) NewPrinter(w io.Writer, _ goshape.PrinterConfig) goshape.Printer {
	return NewPrinter(w)
}

func (Format) NewParser(r io.Reader) goshape.Parser { return NewParser(r) }

func init() { goshape.RegisterFormat(Format{}) }

var (
	errUnbalanced = errors.New("msgpackfmt: close does not match the open container")
	errValueKind  = errors.New("msgpackfmt: AddValue needs a leaf token")
)

// frame buffers the body of one container so its header can carry the
// element count even when the serializer does not know it up front.
type frame struct {
	isMap bool
	n     int
	buf   bytes.Buffer
	enc   *msgpack.Encoder
}

func newFrame(isMap bool) *frame {
	f := &frame{isMap: isMap}
	f.enc = msgpack.NewEncoder(&f.buf)
	return f
}

type printer struct {
	w     io.Writer
	root  *frame
	stack []*frame
}

// NewPrinter returns a goshape.Printer writing MessagePack to w.
func NewPrinter(w io.Writer) goshape.Printer {
	return &printer{w: w, root: newFrame(false)}
}

func (p *printer) cur() *frame {
	if n := len(p.stack); n > 0 {
		return p.stack[n-1]
	}
	return p.root
}

// element counts one array element; map entries are counted by key.
func (p *printer) element() *frame {
	f := p.cur()
	if !f.isMap {
		f.n++
	}
	return f
}

func (p *printer) open(isMap bool) error {
	p.element()
	p.stack = append(p.stack, newFrame(isMap))
	return nil
}

func (p *printer) close(isMap bool) error {
	k := len(p.stack)
	if k == 0 || p.stack[k-1].isMap != isMap {
		return errUnbalanced
	}
	f := p.stack[k-1]
	p.stack = p.stack[:k-1]
	parent := p.cur()
	var err error
	if isMap {
		err = parent.enc.EncodeMapLen(f.n)
	} else {
		err = parent.enc.EncodeArrayLen(f.n)
	}
	if err != nil {
		return err
	}
	_, err = parent.buf.Write(f.buf.Bytes())
	return err
}

func (p *printer) OpenMap(int) error   { return p.open(true) }
func (p *printer) CloseMap() error     { return p.close(true) }
func (p *printer) OpenArray(int) error { return p.open(false) }
func (p *printer) CloseArray() error   { return p.close(false) }

func (p *printer) AddKey(key string) error {
	f := p.cur()
	f.n++
	return f.enc.EncodeString(key)
}

func (p *printer) AddValue(tok goshape.Token) error {
	enc := p.element().enc
	switch tok.Kind {
	case goshape.TokenString:
		return enc.EncodeString(tok.String)
	case goshape.TokenBool:
		return enc.EncodeBool(tok.Bool)
	case goshape.TokenNull:
		return enc.EncodeNil()
	case goshape.TokenNumber:
		if i, err := strconv.ParseInt(tok.Number, 10, 64); err == nil {
			return enc.EncodeInt(i)
		}
		if u, err := strconv.ParseUint(tok.Number, 10, 64); err == nil {
			return enc.EncodeUint(u)
		}
		f, err := strconv.ParseFloat(tok.Number, 64)
		if err != nil {
			return fmt.Errorf("msgpackfmt: invalid number %q: %w", tok.Number, err)
		}
		return enc.EncodeFloat64(f)
	default:
		return errValueKind
	}
}

func (p *printer) Flush() error {
	if len(p.stack) > 0 || p.root.buf.Len() == 0 {
		return nil
	}
	_, err := p.w.Write(p.root.buf.Bytes())
	p.root.buf.Reset()
	p.root.n = 0
	return err
}

type readFrame struct {
	isMap     bool
	remaining int
	wantKey   bool
}

type parser struct {
	dec   *msgpack.Decoder
	cr    *countReader
	stack []readFrame
}

// NewParser returns a goshape.Parser reading MessagePack from r.
func NewParser(r io.Reader) goshape.Parser {
	cr := &countReader{r: r}
	return &parser{dec: msgpack.NewDecoder(cr), cr: cr}
}

func (p *parser) Location() int64 { return p.cr.n }

func (p *parser) NextToken() (goshape.Token, error) {
	if n := len(p.stack); n > 0 {
		top := &p.stack[n-1]
		if top.remaining == 0 {
			p.stack = p.stack[:n-1]
			if top.isMap {
				return p.token(goshape.TokenEndObject), nil
			}
			return p.token(goshape.TokenEndArray), nil
		}
		if top.isMap && top.wantKey {
			key, err := p.dec.DecodeString()
			if err != nil {
				return goshape.Token{}, p.fail(err)
			}
			top.wantKey = false
			t := p.token(goshape.TokenKey)
			t.String = key
			return t, nil
		}
		top.remaining--
		top.wantKey = true
	}
	return p.value()
}

func (p *parser) token(k goshape.TokenKind) goshape.Token {
	return goshape.Token{Kind: k, Offset: p.cr.n}
}

// fail upgrades EOF inside a container to io.ErrUnexpectedEOF.
func (p *parser) fail(err error) error {
	if errors.Is(err, io.EOF) && len(p.stack) > 0 {
		return io.ErrUnexpectedEOF
	}
	return err
}

func (p *parser) value() (goshape.Token, error) {
	c, err := p.dec.PeekCode()
	if err != nil {
		return goshape.Token{}, p.fail(err)
	}
	switch {
	case msgpcode.IsFixedMap(c) || c == msgpcode.Map16 || c == msgpcode.Map32:
		n, err := p.dec.DecodeMapLen()
		if err != nil {
			return goshape.Token{}, p.fail(err)
		}
		p.stack = append(p.stack, readFrame{isMap: true, remaining: n, wantKey: true})
		return p.token(goshape.TokenBeginObject), nil
	case msgpcode.IsFixedArray(c) || c == msgpcode.Array16 || c == msgpcode.Array32:
		n, err := p.dec.DecodeArrayLen()
		if err != nil {
			return goshape.Token{}, p.fail(err)
		}
		p.stack = append(p.stack, readFrame{remaining: n})
		return p.token(goshape.TokenBeginArray), nil
	case c == msgpcode.Nil:
		if err := p.dec.DecodeNil(); err != nil {
			return goshape.Token{}, p.fail(err)
		}
		return p.token(goshape.TokenNull), nil
	case c == msgpcode.True || c == msgpcode.False:
		b, err := p.dec.DecodeBool()
		if err != nil {
			return goshape.Token{}, p.fail(err)
		}
		t := p.token(goshape.TokenBool)
		t.Bool = b
		return t, nil
	case msgpcode.IsString(c) || msgpcode.IsBin(c):
		s, err := p.dec.DecodeString()
		if err != nil {
			return goshape.Token{}, p.fail(err)
		}
		t := p.token(goshape.TokenString)
		t.String = s
		return t, nil
	case c == msgpcode.Float:
		f, err := p.dec.DecodeFloat32()
		if err != nil {
			return goshape.Token{}, p.fail(err)
		}
		return p.number(strconv.FormatFloat(float64(f), 'g', -1, 32)), nil
	case c == msgpcode.Double:
		f, err := p.dec.DecodeFloat64()
		if err != nil {
			return goshape.Token{}, p.fail(err)
		}
		return p.number(strconv.FormatFloat(f, 'g', -1, 64)), nil
	case c == msgpcode.Uint8 || c == msgpcode.Uint16 || c == msgpcode.Uint32 || c == msgpcode.Uint64:
		u, err := p.dec.DecodeUint64()
		if err != nil {
			return goshape.Token{}, p.fail(err)
		}
		return p.number(strconv.FormatUint(u, 10)), nil
	case msgpcode.IsFixedNum(c) || c == msgpcode.Int8 || c == msgpcode.Int16 || c == msgpcode.Int32 || c == msgpcode.Int64:
		i, err := p.dec.DecodeInt64()
		if err != nil {
			return goshape.Token{}, p.fail(err)
		}
		return p.number(strconv.FormatInt(i, 10)), nil
	default:
		return goshape.Token{}, fmt.Errorf("msgpackfmt: unsupported code 0x%02x at byte %d", c, p.cr.n)
	}
}

func (p *parser) number(text string) goshape.Token {
	t := p.token(goshape.TokenNumber)
	t.Number = text
	return t
}

type countReader struct {
	r io.Reader
	n int64
}

func (c *countReader) Read(b []byte) (int, error) {
	n, err := c.r.Read(b)
	c.n += int64(n)
	return n, err
}
