// Package yamlfmt implements the YAML format with gopkg.in/yaml.v3 nodes.
// Importing it registers the format under the name "yaml".
//
// Documents are decoded into a node tree and replayed as tokens, so memory
// grows with the document; printing builds a node tree that Flush encodes.
package yamlfmt

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/reoring/goshape"
)

// Name is the registered format name.
const Name = "yaml"

// Format is the YAML goshape.Format.
type Format struct{}

func (Format) Name() string { return Name }

func (Format) NewPrinter(w io.Writer, cfg goshape.PrinterConfig) goshape.Printer {
	return NewPrinter(w, cfg)
}

func (Format) NewParser(r io.Reader) goshape.Parser { return NewParser(r) }

func init() { goshape.RegisterFormat(Format{}) }

var (
	errUnbalanced = errors.New("yamlfmt: close does not match the open container")
	errKeyOutside = errors.New("yamlfmt: key outside of a mapping")
	errValueKind  = errors.New("yamlfmt: AddValue needs a leaf token")
)

type printer struct {
	w      io.Writer
	indent int
	root   *yaml.Node
	stack  []*yaml.Node
}

// NewPrinter returns a goshape.Printer writing one YAML document to w on Flush.
func NewPrinter(w io.Writer, cfg goshape.PrinterConfig) goshape.Printer {
	indent := 2
	if cfg.Pretty && len(cfg.Indent) > 0 {
		indent = len(cfg.Indent)
	}
	return &printer{w: w, indent: indent}
}

func (p *printer) add(n *yaml.Node) {
	if len(p.stack) == 0 {
		p.root = n
		return
	}
	top := p.stack[len(p.stack)-1]
	top.Content = append(top.Content, n)
}

func (p *printer) open(kind yaml.Kind, tag string) error {
	n := &yaml.Node{Kind: kind, Tag: tag}
	p.add(n)
	p.stack = append(p.stack, n)
	return nil
}

func (p *printer) close(kind yaml.Kind) error {
	k := len(p.stack)
	if k == 0 || p.stack[k-1].Kind != kind {
		return errUnbalanced
	}
	p.stack = p.stack[:k-1]
	return nil
}

func (p *printer) OpenMap(int) error   { return p.open(yaml.MappingNode, "!!map") }
func (p *printer) CloseMap() error     { return p.close(yaml.MappingNode) }
func (p *printer) OpenArray(int) error { return p.open(yaml.SequenceNode, "!!seq") }
func (p *printer) CloseArray() error   { return p.close(yaml.SequenceNode) }

func (p *printer) AddKey(key string) error {
	k := len(p.stack)
	if k == 0 || p.stack[k-1].Kind != yaml.MappingNode {
		return errKeyOutside
	}
	p.add(&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key})
	return nil
}

func (p *printer) AddValue(tok goshape.Token) error {
	n := &yaml.Node{Kind: yaml.ScalarNode}
	switch tok.Kind {
	case goshape.TokenString:
		n.Tag, n.Value = "!!str", tok.String
	case goshape.TokenNumber:
		n.Tag, n.Value = "!!float", tok.Number
		if _, err := strconv.ParseInt(tok.Number, 10, 64); err == nil {
			n.Tag = "!!int"
		} else if _, err := strconv.ParseUint(tok.Number, 10, 64); err == nil {
			n.Tag = "!!int"
		}
	case goshape.TokenBool:
		n.Tag, n.Value = "!!bool", strconv.FormatBool(tok.Bool)
	case goshape.TokenNull:
		n.Tag, n.Value = "!!null", "null"
	default:
		return errValueKind
	}
	p.add(n)
	return nil
}

func (p *printer) Flush() error {
	if p.root == nil || len(p.stack) > 0 {
		return nil
	}
	enc := yaml.NewEncoder(p.w)
	enc.SetIndent(p.indent)
	if err := enc.Encode(p.root); err != nil {
		return err
	}
	p.root = nil
	return enc.Close()
}

type parser struct {
	dec    *yaml.Decoder
	toks   []goshape.Token
	pos    int
	loaded bool
}

// NewParser returns a goshape.Parser over the first YAML document in r.
func NewParser(r io.Reader) goshape.Parser {
	return &parser{dec: yaml.NewDecoder(r)}
}

func (p *parser) NextToken() (goshape.Token, error) {
	if !p.loaded {
		p.loaded = true
		var doc yaml.Node
		if err := p.dec.Decode(&doc); err != nil {
			return goshape.Token{}, err
		}
		if err := p.flatten(&doc); err != nil {
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

// Location reports the line of the last token returned, or -1.
func (p *parser) Location() int64 {
	if p.pos == 0 || p.pos > len(p.toks) {
		return -1
	}
	return p.toks[p.pos-1].Offset
}

func (p *parser) emit(kind goshape.TokenKind, n *yaml.Node) *goshape.Token {
	p.toks = append(p.toks, goshape.Token{Kind: kind, Offset: int64(n.Line)})
	return &p.toks[len(p.toks)-1]
}

func (p *parser) flatten(n *yaml.Node) error {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil
		}
		return p.flatten(n.Content[0])
	case yaml.AliasNode:
		return p.flatten(n.Alias)
	case yaml.MappingNode:
		p.emit(goshape.TokenBeginObject, n)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := n.Content[i]
			if k.Kind != yaml.ScalarNode {
				return fmt.Errorf("yamlfmt: line %d: mapping keys must be scalars", k.Line)
			}
			p.emit(goshape.TokenKey, k).String = k.Value
			if err := p.flatten(n.Content[i+1]); err != nil {
				return err
			}
		}
		p.emit(goshape.TokenEndObject, n)
	case yaml.SequenceNode:
		p.emit(goshape.TokenBeginArray, n)
		for _, c := range n.Content {
			if err := p.flatten(c); err != nil {
				return err
			}
		}
		p.emit(goshape.TokenEndArray, n)
	case yaml.ScalarNode:
		return p.scalar(n)
	default:
		return fmt.Errorf("yamlfmt: line %d: unsupported node kind %d", n.Line, n.Kind)
	}
	return nil
}

func (p *parser) scalar(n *yaml.Node) error {
	switch n.ShortTag() {
	case "!!null":
		p.emit(goshape.TokenNull, n)
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return err
		}
		p.emit(goshape.TokenBool, n).Bool = b
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			p.emit(goshape.TokenNumber, n).Number = strconv.FormatInt(i, 10)
			return nil
		}
		var u uint64
		if err := n.Decode(&u); err != nil {
			return err
		}
		p.emit(goshape.TokenNumber, n).Number = strconv.FormatUint(u, 10)
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return err
		}
		p.emit(goshape.TokenNumber, n).Number = strconv.FormatFloat(f, 'g', -1, 64)
	default:
		p.emit(goshape.TokenString, n).String = n.Value
	}
	return nil
}
