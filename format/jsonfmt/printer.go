package jsonfmt

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"

	j "github.com/goccy/go-json"

	"github.com/reoring/goshape"
)

var (
	errUnbalanced   = errors.New("jsonfmt: close does not match the open container")
	errKeyOutside   = errors.New("jsonfmt: key outside of an object")
	errEmptyNumber  = errors.New("jsonfmt: empty number")
	errValueKind    = errors.New("jsonfmt: AddValue needs a leaf token")
	errMissingValue = errors.New("jsonfmt: key without a value")
)

type printFrame struct {
	kind  containerKind
	count int
}

// printer writes JSON text as the serializer walks a value. Output goes
// through a buffered writer that Flush drains.
type printer struct {
	w        *bufio.Writer
	pretty   bool
	indent   string
	stack    []printFrame
	afterKey bool
	top      int
}

// NewPrinter returns a goshape.Printer writing JSON to w.
func NewPrinter(w io.Writer, cfg goshape.PrinterConfig) goshape.Printer {
	p := &printer{w: bufio.NewWriter(w), pretty: cfg.Pretty, indent: cfg.Indent}
	if p.pretty && p.indent == "" {
		p.indent = "  "
	}
	return p
}

func (p *printer) newline(depth int) {
	p.w.WriteByte('\n')
	p.w.WriteString(strings.Repeat(p.indent, depth))
}

// beforeValue emits the separator owed before a value in the current
// position.
func (p *printer) beforeValue() {
	if p.afterKey {
		p.afterKey = false
		return
	}
	n := len(p.stack)
	if n == 0 {
		if p.top > 0 {
			p.w.WriteByte('\n')
		}
		p.top++
		return
	}
	top := &p.stack[n-1]
	if top.count > 0 {
		p.w.WriteByte(',')
	}
	top.count++
	if p.pretty {
		p.newline(n)
	}
}

func (p *printer) open(k containerKind, c byte) error {
	p.beforeValue()
	p.stack = append(p.stack, printFrame{kind: k})
	return p.w.WriteByte(c)
}

func (p *printer) close(k containerKind, c byte) error {
	n := len(p.stack)
	if n == 0 || p.stack[n-1].kind != k {
		return errUnbalanced
	}
	if p.afterKey {
		return errMissingValue
	}
	fr := p.stack[n-1]
	p.stack = p.stack[:n-1]
	if p.pretty && fr.count > 0 {
		p.newline(n - 1)
	}
	return p.w.WriteByte(c)
}

func (p *printer) OpenMap(int) error   { return p.open(kindObject, '{') }
func (p *printer) CloseMap() error     { return p.close(kindObject, '}') }
func (p *printer) OpenArray(int) error { return p.open(kindArray, '[') }
func (p *printer) CloseArray() error   { return p.close(kindArray, ']') }

func (p *printer) AddKey(key string) error {
	n := len(p.stack)
	if n == 0 || p.stack[n-1].kind != kindObject {
		return errKeyOutside
	}
	if p.afterKey {
		return errMissingValue
	}
	p.beforeValue()
	if err := p.quote(key); err != nil {
		return err
	}
	p.w.WriteByte(':')
	if p.pretty {
		p.w.WriteByte(' ')
	}
	p.afterKey = true
	return nil
}

func (p *printer) AddValue(tok goshape.Token) error {
	switch tok.Kind {
	case goshape.TokenString:
		p.beforeValue()
		return p.quote(tok.String)
	case goshape.TokenNumber:
		if tok.Number == "" {
			return errEmptyNumber
		}
		p.beforeValue()
		_, err := p.w.WriteString(tok.Number)
		return err
	case goshape.TokenBool:
		p.beforeValue()
		_, err := p.w.WriteString(strconv.FormatBool(tok.Bool))
		return err
	case goshape.TokenNull:
		p.beforeValue()
		_, err := p.w.WriteString("null")
		return err
	default:
		return errValueKind
	}
}

func (p *printer) quote(s string) error {
	b, err := j.Marshal(s)
	if err != nil {
		return err
	}
	_, err = p.w.Write(b)
	return err
}

func (p *printer) Flush() error {
	if p.pretty && len(p.stack) == 0 && p.top > 0 {
		p.w.WriteByte('\n')
		p.top = 0
	}
	return p.w.Flush()
}
