// Package tomlfmt implements the TOML format with BurntSushi/toml.
// Importing it registers the format under the name "toml".
//
// TOML documents are tables, so only Map-shaped values can be printed at the
// top level, and TOML has no null. Keys are replayed in sorted order.
package tomlfmt

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/reoring/goshape"
)

// Name is the registered format name.
const Name = "toml"

// Format is the TOML goshape.Format.
type Format struct{}

func (Format) Name() string { return Name }

func (Format) NewPrinter(w io.Writer, cfg goshape.PrinterConfig) goshape.Printer {
	return NewPrinter(w, cfg)
}

func (Format) NewParser(r io.Reader) goshape.Parser { return NewParser(r) }

func init() { goshape.RegisterFormat(Format{}) }

var (
	errUnbalanced = errors.New("tomlfmt: close does not match the open container")
	errKeyOutside = errors.New("tomlfmt: key outside of a table")
	errNull       = errors.New("tomlfmt: TOML cannot represent null")
	errTopLevel   = errors.New("tomlfmt: the top-level value must be a table")
	errValueKind  = errors.New("tomlfmt: AddValue needs a leaf token")
)

type container struct {
	table map[string]any
	list  []any
	key   string
}

type printer struct {
	w      io.Writer
	indent string
	root   map[string]any
	stack  []*container
}

// NewPrinter returns a goshape.Printer encoding one TOML document on Flush.
func NewPrinter(w io.Writer, cfg goshape.PrinterConfig) goshape.Printer {
	indent := "  "
	if cfg.Indent != "" {
		indent = cfg.Indent
	}
	return &printer{w: w, indent: indent}
}

func (p *printer) add(v any) error {
	n := len(p.stack)
	if n == 0 {
		m, ok := v.(map[string]any)
		if !ok {
			return errTopLevel
		}
		p.root = m
		return nil
	}
	top := p.stack[n-1]
	if top.table != nil {
		top.table[top.key] = v
		return nil
	}
	top.list = append(top.list, v)
	return nil
}

func (p *printer) OpenMap(int) error {
	m := map[string]any{}
	if err := p.add(m); err != nil {
		return err
	}
	p.stack = append(p.stack, &container{table: m})
	return nil
}

func (p *printer) OpenArray(int) error {
	if len(p.stack) == 0 {
		return errTopLevel
	}
	p.stack = append(p.stack, &container{list: []any{}})
	return nil
}

func (p *printer) CloseMap() error {
	n := len(p.stack)
	if n == 0 || p.stack[n-1].table == nil {
		return errUnbalanced
	}
	p.stack = p.stack[:n-1]
	return nil
}

// CloseArray attaches the finished list to its parent; slices are values, so
// the list cannot be linked in at open time.
func (p *printer) CloseArray() error {
	n := len(p.stack)
	if n == 0 || p.stack[n-1].table != nil {
		return errUnbalanced
	}
	l := p.stack[n-1].list
	p.stack = p.stack[:n-1]
	return p.add(l)
}

func (p *printer) AddKey(key string) error {
	n := len(p.stack)
	if n == 0 || p.stack[n-1].table == nil {
		return errKeyOutside
	}
	p.stack[n-1].key = key
	return nil
}

func (p *printer) AddValue(tok goshape.Token) error {
	switch tok.Kind {
	case goshape.TokenString:
		return p.add(tok.String)
	case goshape.TokenBool:
		return p.add(tok.Bool)
	case goshape.TokenNull:
		return errNull
	case goshape.TokenNumber:
		if i, err := strconv.ParseInt(tok.Number, 10, 64); err == nil {
			return p.add(i)
		}
		f, err := strconv.ParseFloat(tok.Number, 64)
		if err != nil {
			return fmt.Errorf("tomlfmt: invalid number %q: %w", tok.Number, err)
		}
		return p.add(f)
	default:
		return errValueKind
	}
}

func (p *printer) Flush() error {
	if p.root == nil || len(p.stack) > 0 {
		return nil
	}
	enc := toml.NewEncoder(p.w)
	enc.Indent = p.indent
	err := enc.Encode(p.root)
	p.root = nil
	return err
}

type parser struct {
	r      io.Reader
	toks   []goshape.Token
	pos    int
	loaded bool
}

// NewParser returns a goshape.Parser over one TOML document.
func NewParser(r io.Reader) goshape.Parser { return &parser{r: r} }

func (p *parser) NextToken() (goshape.Token, error) {
	if !p.loaded {
		p.loaded = true
		var doc map[string]any
		if _, err := toml.NewDecoder(p.r).Decode(&doc); err != nil {
			return goshape.Token{}, err
		}
		if err := p.flatten(doc); err != nil {
			return goshape.Token{}, err
		}
	}
	if p.pos >= len(p.toks) {
		return goshape.Token{}, io.EOF
	}
	t := p.toks[p.pos]
	p.pos++
	return t, nil
}

// Location reports the index of the next token; the document is decoded whole.
func (p *parser) Location() int64 { return int64(p.pos) }

func (p *parser) emit(t goshape.Token) { p.toks = append(p.toks, t) }

func (p *parser) table(m map[string]any) error {
	p.emit(goshape.Token{Kind: goshape.TokenBeginObject, Offset: -1})
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p.emit(goshape.Token{Kind: goshape.TokenKey, String: k, Offset: -1})
		if err := p.flatten(m[k]); err != nil {
			return err
		}
	}
	p.emit(goshape.Token{Kind: goshape.TokenEndObject, Offset: -1})
	return nil
}

func (p *parser) flatten(v any) error {
	switch x := v.(type) {
	case map[string]any:
		return p.table(x)
	case []map[string]any:
		p.emit(goshape.Token{Kind: goshape.TokenBeginArray, Offset: -1})
		for _, t := range x {
			if err := p.table(t); err != nil {
				return err
			}
		}
		p.emit(goshape.Token{Kind: goshape.TokenEndArray, Offset: -1})
	case []any:
		p.emit(goshape.Token{Kind: goshape.TokenBeginArray, Offset: -1})
		for _, e := range x {
			if err := p.flatten(e); err != nil {
				return err
			}
		}
		p.emit(goshape.Token{Kind: goshape.TokenEndArray, Offset: -1})
	case string:
		p.emit(goshape.StringToken(x))
	case bool:
		p.emit(goshape.BoolToken(x))
	case int64:
		p.emit(goshape.NumberToken(strconv.FormatInt(x, 10)))
	case float64:
		p.emit(goshape.NumberToken(strconv.FormatFloat(x, 'g', -1, 64)))
	case time.Time:
		p.emit(goshape.StringToken(x.Format(time.RFC3339Nano)))
	case fmt.Stringer:
		// local dates and times
		p.emit(goshape.StringToken(x.String()))
	default:
		return fmt.Errorf("tomlfmt: unsupported value %T", v)
	}
	return nil
}
